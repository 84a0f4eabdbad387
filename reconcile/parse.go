package reconcile

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// ErrParse is returned when markup is not well formed.
var ErrParse = errors.New("reconcile: parse error")

// ErrShapeMismatch is returned by Reconcile with WithShapeCheck when the two
// trees do not have the same element tag sequence.
var ErrShapeMismatch = errors.New("reconcile: tree shapes differ")

// voidElements never take an end tag.
var voidElements = map[string]bool{
	"area": true, "base": true, "br": true, "col": true, "embed": true,
	"hr": true, "img": true, "input": true, "link": true, "meta": true,
	"param": true, "source": true, "track": true, "wbr": true,
}

// bodyContext is the context element fragments are parsed in.
func bodyContext() *html.Node {
	return &html.Node{Type: html.ElementNode, Data: "body", DataAtom: atom.Body}
}

// Parse parses markup into detached top-level nodes.
//
// The HTML5 parser accepts anything, so Parse first checks that every
// non-void element is explicitly closed, in order. Templates that rely on
// implied end tags (<li>a<li>b) are rejected: positional reconciliation needs
// the tree to follow the markup text exactly.
func Parse(markup string) ([]*html.Node, error) {
	if err := checkWellFormed(markup); err != nil {
		return nil, err
	}
	nodes, err := html.ParseFragment(strings.NewReader(markup), bodyContext())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrParse, err)
	}
	return nodes, nil
}

func checkWellFormed(markup string) error {
	z := html.NewTokenizer(strings.NewReader(markup))
	var open []string
	offset := 0

	for {
		tt := z.Next()
		start := offset
		offset += len(z.Raw())

		switch tt {
		case html.ErrorToken:
			if err := z.Err(); err != io.EOF {
				return fmt.Errorf("%w: at byte %d: %v", ErrParse, start, err)
			}
			if n := len(open); n > 0 {
				return fmt.Errorf("%w: unclosed <%s>", ErrParse, open[n-1])
			}
			return nil

		case html.StartTagToken:
			name, _ := z.TagName()
			tag := string(name)
			if !voidElements[tag] {
				open = append(open, tag)
			}

		case html.SelfClosingTagToken:
			// Honoured only on void elements and in svg/math content; a
			// <div/> elsewhere stays open in the parsed tree.
			name, _ := z.TagName()
			tag := string(name)
			if !voidElements[tag] && !foreignTag(tag) && !inForeign(open) {
				return fmt.Errorf("%w: at byte %d: self-closing <%s/>", ErrParse, start, tag)
			}

		case html.EndTagToken:
			name, _ := z.TagName()
			tag := string(name)
			if voidElements[tag] {
				continue
			}
			n := len(open)
			if n == 0 {
				return fmt.Errorf("%w: at byte %d: unexpected </%s>", ErrParse, start, tag)
			}
			if open[n-1] != tag {
				return fmt.Errorf("%w: at byte %d: </%s> closes <%s>", ErrParse, start, tag, open[n-1])
			}
			open = open[:n-1]
		}
	}
}

func foreignTag(tag string) bool { return tag == "svg" || tag == "math" }

func inForeign(open []string) bool {
	for _, tag := range open {
		if foreignTag(tag) {
			return true
		}
	}
	return false
}
