// Package reconcile patches a live golang.org/x/net/html tree so that it
// matches freshly rendered markup, without tearing the tree down.
//
// Pairing is positional: both trees are flattened to their elements in
// document order and compared index by index. Only text and attributes are
// patched; no element is ever inserted, removed or moved. This is correct as
// long as the template's structure depends on the shape of its data and not
// on its content. When the shape changes (a list grows), use the full Render
// path of View instead. WithShapeCheck turns the precondition into an error.
//
// Known asymmetry: attributes present only on the live node are kept.
package reconcile

import (
	"fmt"
	"strings"

	"golang.org/x/net/html"
)

// Stats counts what a Reconcile call did.
type Stats struct {
	Compared     int `json:"compared"`      // element pairs visited
	TextPatched  int `json:"text_patched"`  // live elements whose text was replaced
	AttrsPatched int `json:"attrs_patched"` // attribute values written or added
	SkippedNew   int `json:"skipped_new"`   // new elements without a live counterpart
	SkippedLive  int `json:"skipped_live"`  // live elements without a new counterpart
}

// Changed reports whether anything was written to the live tree.
func (s Stats) Changed() bool {
	return s.TextPatched > 0 || s.AttrsPatched > 0
}

type options struct {
	shapeCheck bool
}

// Option configures Reconcile.
type Option func(*options)

// WithShapeCheck makes Reconcile fail with ErrShapeMismatch, before touching
// the live tree, when the element tag sequences differ.
func WithShapeCheck() Option {
	return func(o *options) { o.shapeCheck = true }
}

// Reconcile updates the descendants of live to match markup. The container
// live itself is never compared or patched.
//
// markup is fully parsed before the first write, so a parse error leaves
// live untouched.
func Reconcile(live *html.Node, markup string, opts ...Option) (Stats, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	fragment, err := Parse(markup)
	if err != nil {
		return Stats{}, err
	}

	var newEls []*html.Node
	for _, n := range fragment {
		newEls = appendElements(newEls, n)
	}
	var liveEls []*html.Node
	for c := live.FirstChild; c != nil; c = c.NextSibling {
		liveEls = appendElements(liveEls, c)
	}

	if o.shapeCheck {
		if err := sameShape(newEls, liveEls); err != nil {
			return Stats{}, err
		}
	}

	n := min(len(newEls), len(liveEls))
	st := Stats{
		Compared:    n,
		SkippedNew:  len(newEls) - n,
		SkippedLive: len(liveEls) - n,
	}

	for i := 0; i < n; i++ {
		patch(newEls[i], liveEls[i], &st)
	}
	return st, nil
}

// patch applies one pair. Elements below a text-patched live node may already
// be detached by the time their own pair comes up; writing to them is harmless.
func patch(n, l *html.Node, st *Stats) {
	if equalNode(n, l) {
		return
	}

	if hasLeadingText(n) {
		if text := Text(n); Text(l) != text {
			setText(l, text)
			st.TextPatched++
		}
	}

	for _, a := range n.Attr {
		if setAttr(l, a) {
			st.AttrsPatched++
		}
	}
}

// appendElements appends n and its element descendants in document order.
func appendElements(dst []*html.Node, n *html.Node) []*html.Node {
	if n.Type == html.ElementNode {
		dst = append(dst, n)
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		dst = appendElements(dst, c)
	}
	return dst
}

func sameShape(a, b []*html.Node) error {
	if len(a) != len(b) {
		return fmt.Errorf("%w: %d new elements, %d live", ErrShapeMismatch, len(a), len(b))
	}
	for i := range a {
		if a[i].Data != b[i].Data {
			return fmt.Errorf("%w: element %d is <%s>, live has <%s>", ErrShapeMismatch, i, a[i].Data, b[i].Data)
		}
	}
	return nil
}

// hasLeadingText reports whether n's first child is a text node with
// non-blank content. Purely structural elements never get their text replaced.
func hasLeadingText(n *html.Node) bool {
	c := n.FirstChild
	return c != nil && c.Type == html.TextNode && strings.TrimSpace(c.Data) != ""
}

// equalNode is deep structural equality: node type, tag, attribute set
// (order-insensitive) and children, recursively.
func equalNode(a, b *html.Node) bool {
	if a.Type != b.Type || a.Data != b.Data || a.Namespace != b.Namespace {
		return false
	}
	if a.Type == html.ElementNode && !equalAttrs(a.Attr, b.Attr) {
		return false
	}
	ca, cb := a.FirstChild, b.FirstChild
	for ca != nil && cb != nil {
		if !equalNode(ca, cb) {
			return false
		}
		ca, cb = ca.NextSibling, cb.NextSibling
	}
	return ca == nil && cb == nil
}

func equalAttrs(a, b []html.Attribute) bool {
	if len(a) != len(b) {
		return false
	}
	for _, x := range a {
		v, ok := attr(b, x.Namespace, x.Key)
		if !ok || v != x.Val {
			return false
		}
	}
	return true
}

func attr(attrs []html.Attribute, ns, key string) (string, bool) {
	for _, a := range attrs {
		if a.Namespace == ns && a.Key == key {
			return a.Val, true
		}
	}
	return "", false
}

// Attr returns the value of the named attribute on n.
func Attr(n *html.Node, key string) string {
	v, _ := attr(n.Attr, "", key)
	return v
}

// setAttr writes a onto n and reports whether n changed.
func setAttr(n *html.Node, a html.Attribute) bool {
	for i := range n.Attr {
		if n.Attr[i].Namespace == a.Namespace && n.Attr[i].Key == a.Key {
			if n.Attr[i].Val == a.Val {
				return false
			}
			n.Attr[i].Val = a.Val
			return true
		}
	}
	n.Attr = append(n.Attr, a)
	return true
}

// setText replaces every child of n with a single text node.
func setText(n *html.Node, text string) {
	Clear(n)
	n.AppendChild(&html.Node{Type: html.TextNode, Data: text})
}

// Text returns the concatenated text of n's subtree (DOM textContent).
func Text(n *html.Node) string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return b.String()
}

// Clear removes every child of n.
func Clear(n *html.Node) {
	for c := n.FirstChild; c != nil; {
		next := c.NextSibling
		n.RemoveChild(c)
		c = next
	}
}

// Insert parses markup and appends the resulting nodes to n. On a parse
// error n is left as it was.
func Insert(n *html.Node, markup string) error {
	nodes, err := Parse(markup)
	if err != nil {
		return err
	}
	for _, c := range nodes {
		n.AppendChild(c)
	}
	return nil
}

// InnerHTML serialises the children of n.
func InnerHTML(n *html.Node) (string, error) {
	var b strings.Builder
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if err := html.Render(&b, c); err != nil {
			return "", fmt.Errorf("reconcile: render: %w", err)
		}
	}
	return b.String(), nil
}
