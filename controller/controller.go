// Package controller drives the views: each interaction reads or writes the
// state store, renders markup for the affected views and either re-renders
// them or patches them in place.
//
// Structural changes (a new recipe, a new result page) go through
// View.Render. Value changes on an unchanged shape (servings, bookmark flag,
// active result) go through View.Update. Views are built with a strict shape
// check, so an Update whose markup no longer lines up falls back to Render.
package controller

import (
	"context"
	"errors"
	"fmt"
	"html/template"
	"log/slog"

	"github.com/hazyhaar/forkify/markup"
	"github.com/hazyhaar/forkify/reconcile"
	"github.com/hazyhaar/forkify/state"
)

// View names, also the class of each view container.
const (
	ViewRecipe     = "recipe"
	ViewResults    = "results"
	ViewPagination = "pagination"
	ViewBookmarks  = "bookmarks"
	ViewUpload     = "upload"
)

// Controller wires the store to the views. Safe for concurrent use; each
// view serialises its own writes.
type Controller struct {
	store  *state.Store
	logger *slog.Logger

	recipe     *reconcile.View
	results    *reconcile.View
	pagination *reconcile.View
	bookmarks  *reconcile.View
	upload     *reconcile.View
}

// Option configures a Controller.
type Option func(*Controller)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Controller) { c.logger = l }
}

// New creates a Controller over store and renders the initial views: the
// welcome message, the bookmark list and an empty upload form.
func New(store *state.Store, opts ...Option) (*Controller, error) {
	c := &Controller{store: store}
	for _, o := range opts {
		o(c)
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}

	policy := markup.Policy()
	view := func(name string) *reconcile.View {
		return reconcile.NewView(name,
			reconcile.WithSanitizer(policy),
			reconcile.WithStrictShape(),
			reconcile.WithViewLogger(c.logger))
	}
	c.recipe = view(ViewRecipe)
	c.results = view(ViewResults)
	c.pagination = view(ViewPagination)
	c.bookmarks = view(ViewBookmarks)
	c.upload = view(ViewUpload)

	if err := c.renderMessage(c.recipe, markup.Welcome); err != nil {
		return nil, err
	}
	if err := c.ShowBookmarks(); err != nil {
		return nil, err
	}
	if err := c.ResetUploadForm(); err != nil {
		return nil, err
	}
	return c, nil
}

// Store returns the underlying state store.
func (c *Controller) Store() *state.Store { return c.store }

// View returns the view called name, or nil.
func (c *Controller) View(name string) *reconcile.View {
	switch name {
	case ViewRecipe:
		return c.recipe
	case ViewResults:
		return c.results
	case ViewPagination:
		return c.pagination
	case ViewBookmarks:
		return c.bookmarks
	case ViewUpload:
		return c.upload
	}
	return nil
}

// ShowRecipe loads recipe id and renders it. The selected result and
// bookmark are highlighted in place.
func (c *Controller) ShowRecipe(ctx context.Context, id string) error {
	if id == "" {
		return nil
	}
	if err := c.highlight(id); err != nil {
		return err
	}
	if err := spinner(c.recipe); err != nil {
		return err
	}

	if err := c.store.LoadRecipe(ctx, id); err != nil {
		if errors.Is(err, state.ErrSuperseded) {
			return err
		}
		c.logger.Warn("controller: load recipe", "id", id, "error", err)
		if rerr := c.renderError(c.recipe, markup.RecipeError); rerr != nil {
			return rerr
		}
		return err
	}

	r, _ := c.store.Recipe()
	if err := c.renderRecipe(r); err != nil {
		return err
	}
	return c.updateBookmarks(r.ID)
}

// Search runs query and renders the first page of results with its
// pagination. An empty query does nothing.
func (c *Controller) Search(ctx context.Context, query string) error {
	if query == "" {
		return nil
	}
	if err := spinner(c.results); err != nil {
		return err
	}

	if err := c.store.LoadSearchResults(ctx, query); err != nil {
		if errors.Is(err, state.ErrSuperseded) {
			return err
		}
		c.logger.Warn("controller: search", "query", query, "error", err)
		if rerr := c.renderError(c.results, markup.ResultsError); rerr != nil {
			return rerr
		}
		if rerr := c.pagination.Render(""); rerr != nil {
			return rerr
		}
		return err
	}
	return c.Paginate(1)
}

// Paginate renders result page n and its pagination buttons.
func (c *Controller) Paginate(page int) error {
	results := c.store.ResultsPage(page)
	if len(results) == 0 {
		if err := c.renderError(c.results, markup.ResultsError); err != nil {
			return err
		}
	} else {
		s, err := markup.Results(results, c.currentID())
		if err != nil {
			return err
		}
		if err := c.results.Render(s); err != nil {
			return err
		}
	}

	s, err := markup.Pagination(c.store.Search())
	if err != nil {
		return err
	}
	return c.pagination.Render(s)
}

// UpdateServings rescales the current recipe and patches the recipe view.
func (c *Controller) UpdateServings(servings int) error {
	if err := c.store.UpdateServings(servings); err != nil {
		return err
	}
	r, _ := c.store.Recipe()
	s, err := markup.Recipe(r)
	if err != nil {
		return err
	}
	return c.refresh(c.recipe, s)
}

// ToggleBookmark bookmarks the current recipe, or removes its bookmark, and
// returns the new flag.
func (c *Controller) ToggleBookmark(ctx context.Context) (bool, error) {
	on, err := c.store.ToggleBookmark(ctx)
	if errors.Is(err, state.ErrNoRecipe) {
		return false, err
	}
	// A persistence error still leaves the in-memory toggle in place.
	r, _ := c.store.Recipe()
	s, rerr := markup.Recipe(r)
	if rerr != nil {
		return on, rerr
	}
	if rerr := c.refresh(c.recipe, s); rerr != nil {
		return on, rerr
	}
	if rerr := c.ShowBookmarks(); rerr != nil {
		return on, rerr
	}
	return on, err
}

// ShowBookmarks renders the bookmark list, or the empty-list message.
func (c *Controller) ShowBookmarks() error {
	marks := c.store.Bookmarks()
	if len(marks) == 0 {
		return c.renderMessage(c.bookmarks, markup.BookmarksEmpty)
	}
	s, err := markup.Bookmarks(marks, c.currentID())
	if err != nil {
		return err
	}
	return c.bookmarks.Render(s)
}

// ReloadBookmarks picks up a bookmark list saved by another process and
// redraws what depends on it: the bookmark list and the bookmark button of
// a recipe on display.
func (c *Controller) ReloadBookmarks(ctx context.Context) error {
	if err := c.store.ReloadBookmarks(ctx); err != nil {
		return err
	}
	if err := c.ShowBookmarks(); err != nil {
		return err
	}
	r, ok := c.store.Recipe()
	if !ok || c.store.RecipeStatus() != state.StatusLoaded {
		return nil
	}
	s, err := markup.Recipe(r)
	if err != nil {
		return err
	}
	return c.refresh(c.recipe, s)
}

// UploadRecipe validates and submits draft. On success the new recipe is
// rendered and bookmarked; on failure the upload view shows the reason.
func (c *Controller) UploadRecipe(ctx context.Context, draft state.Draft) (state.Recipe, error) {
	if err := spinner(c.upload); err != nil {
		return state.Recipe{}, err
	}

	r, err := c.store.UploadRecipe(ctx, draft)
	if err != nil && !errors.Is(err, state.ErrSuperseded) {
		c.logger.Warn("controller: upload", "error", err)
		if rerr := c.renderError(c.upload, UserMessage(err)); rerr != nil {
			return state.Recipe{}, rerr
		}
		if rerr := c.ShowBookmarks(); rerr != nil {
			return state.Recipe{}, rerr
		}
		return state.Recipe{}, err
	}
	if err == nil {
		if rerr := c.renderRecipe(r); rerr != nil {
			return r, rerr
		}
	}
	if rerr := c.renderMessage(c.upload, markup.UploadSuccess); rerr != nil {
		return r, rerr
	}
	if rerr := c.ShowBookmarks(); rerr != nil {
		return r, rerr
	}
	return r, err
}

// ResetUploadForm renders an empty upload form.
func (c *Controller) ResetUploadForm() error {
	s, err := markup.Upload(markup.UploadForm{})
	if err != nil {
		return err
	}
	return c.upload.Render(s)
}

// Document collects every view for markup.Layout.
func (c *Controller) Document() markup.Page {
	return markup.Page{
		Query:      c.store.Search().Query,
		Bookmarks:  trusted(c.bookmarks),
		Results:    trusted(c.results),
		Pagination: trusted(c.pagination),
		Recipe:     trusted(c.recipe),
		Upload:     trusted(c.upload),
	}
}

// UserMessage turns an error into the text shown to the user.
func UserMessage(err error) string {
	switch {
	case errors.Is(err, state.ErrFormat):
		return "Wrong format, please use the correct format"
	case errors.Is(err, state.ErrNotFound):
		return markup.RecipeError
	case errors.Is(err, state.ErrTransport):
		return "The recipe service is not reachable right now. Please try again later."
	}
	return err.Error()
}

func (c *Controller) renderRecipe(r state.Recipe) error {
	s, err := markup.Recipe(r)
	if err != nil {
		return err
	}
	return c.recipe.Render(s)
}

// highlight marks id as active in the results and bookmark lists.
func (c *Controller) highlight(id string) error {
	if page := c.store.CurrentResultsPage(); len(page) > 0 {
		s, err := markup.Results(page, id)
		if err != nil {
			return err
		}
		if err := c.refresh(c.results, s); err != nil {
			return err
		}
	}
	return c.updateBookmarks(id)
}

func (c *Controller) updateBookmarks(activeID string) error {
	marks := c.store.Bookmarks()
	if len(marks) == 0 {
		return nil
	}
	s, err := markup.Bookmarks(marks, activeID)
	if err != nil {
		return err
	}
	return c.refresh(c.bookmarks, s)
}

// refresh patches v in place, or re-renders it when the shape changed.
func (c *Controller) refresh(v *reconcile.View, s string) error {
	_, err := v.Update(s)
	if errors.Is(err, reconcile.ErrShapeMismatch) {
		c.logger.Debug("controller: shape changed, full render", "view", v.Name())
		return v.Render(s)
	}
	return err
}

func (c *Controller) currentID() string {
	r, ok := c.store.Recipe()
	if !ok {
		return ""
	}
	return r.ID
}

func (c *Controller) renderError(v *reconcile.View, msg string) error {
	s, err := markup.Error(msg)
	if err != nil {
		return err
	}
	return v.Render(s)
}

func (c *Controller) renderMessage(v *reconcile.View, msg string) error {
	s, err := markup.Message(msg)
	if err != nil {
		return err
	}
	return v.Render(s)
}

// trusted marks sanitised view content as safe for the layout.
func trusted(v *reconcile.View) template.HTML {
	return template.HTML(v.HTML())
}

func spinner(v *reconcile.View) error {
	s, err := markup.Spinner()
	if err != nil {
		return err
	}
	if err := v.Render(s); err != nil {
		return fmt.Errorf("controller: spinner: %w", err)
	}
	return nil
}
