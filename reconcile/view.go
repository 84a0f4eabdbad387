package reconcile

import (
	"log/slog"
	"sync"

	"github.com/microcosm-cc/bluemonday"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// View owns one live container element and offers the two render paths:
// Render (clear + insert, for structural changes) and Update (reconcile in
// place). Safe for concurrent use.
type View struct {
	mu         sync.Mutex
	name       string
	root       *html.Node
	policy     *bluemonday.Policy
	shapeCheck bool
	logger     *slog.Logger
}

// ViewOption configures a View.
type ViewOption func(*View)

// WithSanitizer passes all markup through p before parsing.
func WithSanitizer(p *bluemonday.Policy) ViewOption {
	return func(v *View) { v.policy = p }
}

// WithStrictShape makes Update fail with ErrShapeMismatch instead of
// patching misaligned trees.
func WithStrictShape() ViewOption {
	return func(v *View) { v.shapeCheck = true }
}

// WithViewLogger sets the logger used for patch statistics.
func WithViewLogger(l *slog.Logger) ViewOption {
	return func(v *View) { v.logger = l }
}

// NewView creates an empty view whose container is <div class="name">.
func NewView(name string, opts ...ViewOption) *View {
	v := &View{
		name: name,
		root: &html.Node{
			Type:     html.ElementNode,
			Data:     "div",
			DataAtom: atom.Div,
			Attr:     []html.Attribute{{Key: "class", Val: name}},
		},
	}
	for _, o := range opts {
		o(v)
	}
	if v.logger == nil {
		v.logger = slog.Default()
	}
	return v
}

// Name returns the view's name.
func (v *View) Name() string { return v.name }

// Render replaces the view content with markup. On a parse error the
// previous content stays.
func (v *View) Render(markup string) error {
	nodes, err := Parse(v.sanitize(markup))
	if err != nil {
		return err
	}

	v.mu.Lock()
	defer v.mu.Unlock()
	Clear(v.root)
	for _, n := range nodes {
		v.root.AppendChild(n)
	}
	v.logger.Debug("reconcile: render", "view", v.name, "nodes", len(nodes))
	return nil
}

// Update reconciles the view content against markup.
func (v *View) Update(markup string) (Stats, error) {
	var opts []Option
	if v.shapeCheck {
		opts = append(opts, WithShapeCheck())
	}
	markup = v.sanitize(markup)

	v.mu.Lock()
	defer v.mu.Unlock()
	st, err := Reconcile(v.root, markup, opts...)
	if err != nil {
		return st, err
	}
	v.logger.Debug("reconcile: update", "view", v.name,
		"compared", st.Compared, "text", st.TextPatched, "attrs", st.AttrsPatched,
		"skipped_new", st.SkippedNew, "skipped_live", st.SkippedLive)
	return st, nil
}

// HTML returns the serialised content of the view, without the container.
func (v *View) HTML() string {
	v.mu.Lock()
	defer v.mu.Unlock()
	s, err := InnerHTML(v.root)
	if err != nil {
		v.logger.Error("reconcile: serialise view", "view", v.name, "error", err)
		return ""
	}
	return s
}

// Markdown returns the view content converted to Markdown.
func (v *View) Markdown() (string, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	return Markdown(v.root)
}

// Root returns the live container. Callers that walk or mutate it must not
// race with Render or Update; prefer Inspect.
func (v *View) Root() *html.Node { return v.root }

// Inspect runs fn with the live container under the view lock. fn must not
// retain the node.
func (v *View) Inspect(fn func(root *html.Node)) {
	v.mu.Lock()
	defer v.mu.Unlock()
	fn(v.root)
}

func (v *View) sanitize(markup string) string {
	if v.policy == nil {
		return markup
	}
	return v.policy.Sanitize(markup)
}
