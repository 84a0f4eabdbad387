// Package state is the single source of truth of the recipe application:
// the current recipe, the search results with their pagination, and the
// bookmark list.
//
// A Store is built once at startup and handed to whoever drives the UI. It
// is safe for concurrent use. Loads are sequenced: every LoadRecipe,
// LoadSearchResults or UploadRecipe call takes a ticket before it reaches the
// Source, and a completion whose ticket is no longer the newest of its kind is
// dropped with ErrSuperseded. The most recently started call wins, however
// the network orders the replies.
package state

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
)

// DefaultResultsPerPage is the page size used when none is configured.
const DefaultResultsPerPage = 10

// Store holds the application state.
type Store struct {
	src       Source
	bookmarks BookmarkStore
	logger    *slog.Logger

	mu           sync.Mutex
	recipe       Recipe
	hasRecipe    bool
	recipeStatus Status
	recipeTicket uint64
	search       Search
	searchStatus Status
	searchTicket uint64
	marks        []Recipe
}

// Option configures a Store.
type Option func(*Store)

// WithResultsPerPage sets the search page size. Values below 1 are ignored.
func WithResultsPerPage(n int) Option {
	return func(s *Store) {
		if n > 0 {
			s.search.ResultsPerPage = n
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Store) { s.logger = l }
}

// New creates a Store and loads the persisted bookmarks.
func New(ctx context.Context, src Source, bookmarks BookmarkStore, opts ...Option) (*Store, error) {
	s := &Store{
		src:       src,
		bookmarks: bookmarks,
		search:    Search{Page: 1, ResultsPerPage: DefaultResultsPerPage},
	}
	for _, o := range opts {
		o(s)
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}

	marks, err := bookmarks.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("state: load bookmarks: %w", err)
	}
	s.setMarksLocked(marks)
	s.logger.Debug("state: bookmarks loaded", "count", len(s.marks))
	return s, nil
}

// ReloadBookmarks replaces the bookmark list with the persisted one, for
// when another process has written it. Nothing is saved. On failure the
// current list is kept.
func (s *Store) ReloadBookmarks(ctx context.Context) error {
	marks, err := s.bookmarks.Load(ctx)
	if err != nil {
		return fmt.Errorf("state: reload bookmarks: %w", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.setMarksLocked(marks)
	if s.hasRecipe {
		s.recipe.Bookmarked = s.indexOf(s.recipe.ID) >= 0
	}
	s.logger.Debug("state: bookmarks reloaded", "count", len(s.marks))
	return nil
}

func (s *Store) setMarksLocked(marks []Recipe) {
	s.marks = nil
	for _, m := range marks {
		if s.indexOf(m.ID) >= 0 {
			continue
		}
		m = m.Clone()
		m.Bookmarked = true
		s.marks = append(s.marks, m)
	}
}

// LoadRecipe fetches recipe id and makes it the current recipe. On failure
// the previous recipe stays current.
func (s *Store) LoadRecipe(ctx context.Context, id string) error {
	ticket := s.beginRecipe()

	r, err := s.src.Recipe(ctx, id)
	if err == nil && r == nil {
		err = fmt.Errorf("state: load recipe %s: %w", id, ErrNotFound)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if ticket != s.recipeTicket {
		s.logger.Debug("state: stale recipe load dropped", "id", id)
		return fmt.Errorf("state: load recipe %s: %w", id, ErrSuperseded)
	}
	if err != nil {
		s.recipeStatus = StatusFailed
		return err
	}
	s.setRecipeLocked(*r)
	return nil
}

// LoadSearchResults runs query and replaces the results. The page goes back
// to 1. On failure the previous results stay.
func (s *Store) LoadSearchResults(ctx context.Context, query string) error {
	s.mu.Lock()
	s.searchTicket++
	ticket := s.searchTicket
	s.searchStatus = StatusLoading
	s.mu.Unlock()

	results, err := s.src.Search(ctx, query)

	s.mu.Lock()
	defer s.mu.Unlock()
	if ticket != s.searchTicket {
		s.logger.Debug("state: stale search dropped", "query", query)
		return fmt.Errorf("state: search %q: %w", query, ErrSuperseded)
	}
	if err != nil {
		s.searchStatus = StatusFailed
		return err
	}
	s.search.Query = query
	s.search.Results = append([]Summary(nil), results...)
	s.search.Page = 1
	s.searchStatus = StatusLoaded
	return nil
}

// ResultsPage selects page and returns its slice of the results:
// results[(page-1)*n : page*n], clamped. A page past the end, or below 1,
// yields an empty slice. It never fails.
func (s *Store) ResultsPage(page int) []Summary {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.resultsPageLocked(page)
}

// CurrentResultsPage returns the slice for the selected page.
func (s *Store) CurrentResultsPage() []Summary {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.resultsPageLocked(s.search.Page)
}

func (s *Store) resultsPageLocked(page int) []Summary {
	s.search.Page = page
	n := s.search.ResultsPerPage
	// Bounds are checked in pages so huge page numbers cannot overflow.
	if page < 1 || page > s.search.Pages() {
		return []Summary{}
	}
	start := (page - 1) * n
	end := min(page*n, len(s.search.Results))
	return append([]Summary(nil), s.search.Results[start:end]...)
}

// UpdateServings rescales every ingredient quantity in proportion to the new
// serving count. Ingredients without quantity are left alone.
func (s *Store) UpdateServings(servings int) error {
	if servings <= 0 {
		return fmt.Errorf("%w: got %d", ErrInvalidServings, servings)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.hasRecipe || s.recipe.Servings <= 0 {
		return ErrNoRecipe
	}

	old := float64(s.recipe.Servings)
	for i := range s.recipe.Ingredients {
		q := s.recipe.Ingredients[i].Quantity
		if q == nil {
			continue
		}
		scaled := *q / old * float64(servings)
		s.recipe.Ingredients[i].Quantity = &scaled
	}
	s.recipe.Servings = servings
	return nil
}

// AddBookmark bookmarks a snapshot of r and persists the list. A recipe
// already bookmarked keeps its original position and nothing is written.
func (s *Store) AddBookmark(ctx context.Context, r Recipe) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addBookmarkLocked(ctx, r)
}

func (s *Store) addBookmarkLocked(ctx context.Context, r Recipe) error {
	if s.hasRecipe && r.ID == s.recipe.ID {
		s.recipe.Bookmarked = true
	}
	if s.indexOf(r.ID) >= 0 {
		return nil
	}
	snap := r.Clone()
	snap.Bookmarked = true
	s.marks = append(s.marks, snap)
	return s.persistLocked(ctx)
}

// DeleteBookmark removes the bookmark with the given id and persists the
// list. Unknown ids are a no-op.
func (s *Store) DeleteBookmark(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.deleteBookmarkLocked(ctx, id)
}

func (s *Store) deleteBookmarkLocked(ctx context.Context, id string) error {
	i := s.indexOf(id)
	if i < 0 {
		return nil
	}
	s.marks = append(s.marks[:i], s.marks[i+1:]...)
	if s.hasRecipe && id == s.recipe.ID {
		s.recipe.Bookmarked = false
	}
	return s.persistLocked(ctx)
}

// ToggleBookmark adds the current recipe to the bookmarks, or removes it if
// it is already there. It returns the new bookmarked flag.
func (s *Store) ToggleBookmark(ctx context.Context) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.hasRecipe {
		return false, ErrNoRecipe
	}
	if s.recipe.Bookmarked {
		err := s.deleteBookmarkLocked(ctx, s.recipe.ID)
		return false, err
	}
	err := s.addBookmarkLocked(ctx, s.recipe)
	return true, err
}

// UploadRecipe validates draft, submits it, makes the stored recipe current
// and bookmarks it.
func (s *Store) UploadRecipe(ctx context.Context, draft Draft) (Recipe, error) {
	up, err := ParseDraft(draft)
	if err != nil {
		return Recipe{}, err
	}

	ticket := s.beginRecipe()

	r, err := s.src.Upload(ctx, up)
	if err == nil && r == nil {
		err = fmt.Errorf("state: upload %q: %w", up.Title, ErrTransport)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if ticket != s.recipeTicket {
		if err != nil {
			return Recipe{}, fmt.Errorf("state: upload %q: %w", up.Title, ErrSuperseded)
		}
		// The recipe exists remotely: keep it bookmarked, just not current.
		s.logger.Warn("state: upload completed after a newer recipe load", "id", r.ID)
		if err := s.addBookmarkLocked(ctx, *r); err != nil {
			return Recipe{}, err
		}
		return r.Clone(), fmt.Errorf("state: upload %q: %w", up.Title, ErrSuperseded)
	}
	if err != nil {
		s.recipeStatus = StatusFailed
		return Recipe{}, err
	}
	s.setRecipeLocked(*r)
	s.logger.Info("state: recipe uploaded", "id", r.ID)
	if err := s.addBookmarkLocked(ctx, s.recipe); err != nil {
		return s.recipe.Clone(), err
	}
	return s.recipe.Clone(), nil
}

// Recipe returns a copy of the current recipe. ok is false before the first
// successful load.
func (s *Store) Recipe() (r Recipe, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.recipe.Clone(), s.hasRecipe
}

// Search returns a copy of the search state.
func (s *Store) Search() Search {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := s.search
	c.Results = append([]Summary(nil), s.search.Results...)
	return c
}

// Bookmarks returns a copy of the bookmarks in insertion order.
func (s *Store) Bookmarks() []Recipe {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cloneAll(s.marks)
}

// IsBookmarked reports whether id is in the bookmarks.
func (s *Store) IsBookmarked(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.indexOf(id) >= 0
}

// RecipeStatus returns the lifecycle of the latest recipe load.
func (s *Store) RecipeStatus() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.recipeStatus
}

// SearchStatus returns the lifecycle of the latest search.
func (s *Store) SearchStatus() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.searchStatus
}

func (s *Store) beginRecipe() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.recipeTicket++
	s.recipeStatus = StatusLoading
	return s.recipeTicket
}

func (s *Store) setRecipeLocked(r Recipe) {
	s.recipe = r.Clone()
	s.recipe.Bookmarked = s.indexOf(r.ID) >= 0
	s.hasRecipe = true
	s.recipeStatus = StatusLoaded
}

func (s *Store) indexOf(id string) int {
	for i := range s.marks {
		if s.marks[i].ID == id {
			return i
		}
	}
	return -1
}

// persistLocked writes the whole list. There is no rollback: on failure the
// in-memory list keeps the mutation and the error is returned.
func (s *Store) persistLocked(ctx context.Context) error {
	if err := s.bookmarks.Save(ctx, cloneAll(s.marks)); err != nil {
		s.logger.Error("state: persist bookmarks", "error", err)
		return fmt.Errorf("state: persist bookmarks: %w", err)
	}
	return nil
}

func cloneAll(rs []Recipe) []Recipe {
	out := make([]Recipe, len(rs))
	for i, r := range rs {
		out[i] = r.Clone()
	}
	return out
}
