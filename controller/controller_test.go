package controller

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"golang.org/x/net/html"

	"github.com/hazyhaar/forkify/markup"
	"github.com/hazyhaar/forkify/reconcile"
	"github.com/hazyhaar/forkify/state"
)

type fakeSource struct {
	mu      sync.Mutex
	recipes map[string]state.Recipe
	results map[string][]state.Summary
	next    int
}

func newFakeSource() *fakeSource {
	one, half := 1.0, 0.5
	src := &fakeSource{
		recipes: map[string]state.Recipe{},
		results: map[string][]state.Summary{},
	}
	for i := range 12 {
		id := fmt.Sprintf("p%02d", i)
		src.recipes[id] = state.Recipe{
			ID: id, Title: fmt.Sprintf("Pizza %d", i), Publisher: "Closet Cooking",
			SourceURL: "https://example.com/" + id, Image: "https://example.com/" + id + ".jpg",
			Servings: 4, CookingTime: 30,
			Ingredients: []state.Ingredient{
				{Quantity: &one, Unit: "kg", Description: "flour"},
				{Quantity: &half, Unit: "l", Description: "water"},
				{Description: "salt"},
			},
		}
		src.results["pizza"] = append(src.results["pizza"], state.Summary{ID: id, Title: fmt.Sprintf("Pizza %d", i), Publisher: "Closet Cooking"})
	}
	return src
}

func (f *fakeSource) Recipe(_ context.Context, id string) (*state.Recipe, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.recipes[id]
	if !ok {
		return nil, fmt.Errorf("fake: %w", state.ErrNotFound)
	}
	r = r.Clone()
	return &r, nil
}

func (f *fakeSource) Search(_ context.Context, q string) ([]state.Summary, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]state.Summary{}, f.results[q]...), nil
}

func (f *fakeSource) Upload(_ context.Context, u *state.Upload) (*state.Recipe, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.next++
	r := state.Recipe{
		ID: fmt.Sprintf("user-%d", f.next), Title: u.Title, Publisher: u.Publisher,
		SourceURL: u.SourceURL, Image: u.Image, Servings: u.Servings, CookingTime: u.CookingTime,
		Ingredients: u.Ingredients, Key: "test-key",
	}
	f.recipes[r.ID] = r
	return &r, nil
}

type memBookmarks struct {
	mu    sync.Mutex
	saved []state.Recipe
}

func (m *memBookmarks) Load(context.Context) ([]state.Recipe, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saved, nil
}
func (m *memBookmarks) Save(_ context.Context, rs []state.Recipe) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saved = rs
	return nil
}

func newTestController(t *testing.T) *Controller {
	t.Helper()
	c, _ := newTestControllerWith(t, &memBookmarks{})
	return c
}

func newTestControllerWith(t *testing.T, bm *memBookmarks) (*Controller, *memBookmarks) {
	t.Helper()
	st, err := state.New(context.Background(), newFakeSource(), bm)
	if err != nil {
		t.Fatal(err)
	}
	c, err := New(st)
	if err != nil {
		t.Fatalf("new controller: %v", err)
	}
	return c, bm
}

func find(root *html.Node, class string) *html.Node {
	if root.Type == html.ElementNode && strings.Contains(" "+reconcile.Attr(root, "class")+" ", " "+class+" ") {
		return root
	}
	for c := root.FirstChild; c != nil; c = c.NextSibling {
		if n := find(c, class); n != nil {
			return n
		}
	}
	return nil
}

func TestNew_InitialViews(t *testing.T) {
	c := newTestController(t)
	if got := c.View(ViewRecipe).HTML(); !strings.Contains(got, "Start by searching") {
		t.Errorf("recipe view: got %q", got)
	}
	if got := c.View(ViewBookmarks).HTML(); !strings.Contains(got, "No bookmarks yet") {
		t.Errorf("bookmarks view: got %q", got)
	}
	if got := c.View(ViewUpload).HTML(); !strings.Contains(got, `name="ingredient-1"`) {
		t.Errorf("upload view: got %q", got)
	}
	if c.View("nope") != nil {
		t.Error("unknown view name returned a view")
	}
}

func TestSearch_RendersPageAndPagination(t *testing.T) {
	c := newTestController(t)
	if err := c.Search(context.Background(), "pizza"); err != nil {
		t.Fatalf("search: %v", err)
	}
	res := c.View(ViewResults).HTML()
	if got := strings.Count(res, `class="preview"`); got != 10 {
		t.Errorf("previews: got %d, want 10", got)
	}
	if pag := c.View(ViewPagination).HTML(); !strings.Contains(pag, `data-goto="2"`) || strings.Contains(pag, "pagination__btn--prev") {
		t.Errorf("pagination on page 1: got %q", pag)
	}

	if err := c.Paginate(2); err != nil {
		t.Fatal(err)
	}
	if got := strings.Count(c.View(ViewResults).HTML(), `class="preview"`); got != 2 {
		t.Errorf("previews on page 2: got %d, want 2", got)
	}
	if pag := c.View(ViewPagination).HTML(); !strings.Contains(pag, `data-goto="1"`) || strings.Contains(pag, "pagination__btn--next") {
		t.Errorf("pagination on page 2: got %q", pag)
	}
}

func TestSearch_NoResults(t *testing.T) {
	c := newTestController(t)
	if err := c.Search(context.Background(), "zzz"); err != nil {
		t.Fatalf("search: %v", err)
	}
	if got := c.View(ViewResults).HTML(); !strings.Contains(got, markup.ResultsError) {
		t.Errorf("results view: got %q", got)
	}
}

func TestShowRecipe_HighlightsResultInPlace(t *testing.T) {
	// WHAT: Open a recipe from the result list.
	// WHY: The result link gets the active class by patching, keeping the list nodes.
	c := newTestController(t)
	ctx := context.Background()
	if err := c.Search(ctx, "pizza"); err != nil {
		t.Fatal(err)
	}
	var list *html.Node
	c.View(ViewResults).Inspect(func(root *html.Node) { list = find(root, "list") })

	if err := c.ShowRecipe(ctx, "p03"); err != nil {
		t.Fatalf("show: %v", err)
	}
	var after *html.Node
	c.View(ViewResults).Inspect(func(root *html.Node) { after = find(root, "list") })
	if after != list {
		t.Error("result list was re-rendered instead of patched")
	}
	res := c.View(ViewResults).HTML()
	if !strings.Contains(res, `preview__link preview__link--active" href="/recipes/p03"`) {
		t.Errorf("p03 not active:\n%s", res)
	}
	if got := c.View(ViewRecipe).HTML(); !strings.Contains(got, "Pizza 3") {
		t.Errorf("recipe view: got %q", got)
	}
}

func TestShowRecipe_NotFound(t *testing.T) {
	c := newTestController(t)
	err := c.ShowRecipe(context.Background(), "missing")
	if !errors.Is(err, state.ErrNotFound) {
		t.Fatalf("error: got %v, want ErrNotFound", err)
	}
	if got := c.View(ViewRecipe).HTML(); !strings.Contains(got, markup.RecipeError) {
		t.Errorf("recipe view: got %q", got)
	}
}

func TestUpdateServings_PatchesInPlace(t *testing.T) {
	c := newTestController(t)
	if err := c.ShowRecipe(context.Background(), "p01"); err != nil {
		t.Fatal(err)
	}
	var title *html.Node
	c.View(ViewRecipe).Inspect(func(root *html.Node) { title = find(root, "recipe__title") })

	if err := c.UpdateServings(8); err != nil {
		t.Fatalf("servings: %v", err)
	}
	var after, people *html.Node
	c.View(ViewRecipe).Inspect(func(root *html.Node) {
		after = find(root, "recipe__title")
		people = find(root, "recipe__info-data--people")
	})
	if after != title {
		t.Error("recipe view was re-rendered")
	}
	if got := reconcile.Text(people); got != "8" {
		t.Errorf("servings: got %q, want 8", got)
	}
	got := c.View(ViewRecipe).HTML()
	if !strings.Contains(got, `<div class="recipe__quantity">2</div>`) || !strings.Contains(got, `data-update-to="9"`) {
		t.Errorf("recipe view after rescale:\n%s", got)
	}

	if err := c.UpdateServings(0); !errors.Is(err, state.ErrInvalidServings) {
		t.Errorf("servings 0: got %v, want ErrInvalidServings", err)
	}
}

func TestToggleBookmark(t *testing.T) {
	c := newTestController(t)
	ctx := context.Background()
	if _, err := c.ToggleBookmark(ctx); !errors.Is(err, state.ErrNoRecipe) {
		t.Fatalf("no recipe: got %v", err)
	}
	if err := c.ShowRecipe(ctx, "p02"); err != nil {
		t.Fatal(err)
	}

	on, err := c.ToggleBookmark(ctx)
	if err != nil || !on {
		t.Fatalf("toggle on: %v %v", on, err)
	}
	if got := c.View(ViewBookmarks).HTML(); !strings.Contains(got, "Pizza 2") {
		t.Errorf("bookmarks view: got %q", got)
	}
	if got := c.View(ViewRecipe).HTML(); !strings.Contains(got, `data-bookmarked="true"`) {
		t.Errorf("recipe bookmark flag not patched:\n%s", got)
	}

	on, err = c.ToggleBookmark(ctx)
	if err != nil || on {
		t.Fatalf("toggle off: %v %v", on, err)
	}
	if got := c.View(ViewBookmarks).HTML(); !strings.Contains(got, "No bookmarks yet") {
		t.Errorf("bookmarks view: got %q", got)
	}
}

func TestReloadBookmarks_RedrawsViews(t *testing.T) {
	// WHAT: The persisted list gains the displayed recipe behind the controller's back.
	// WHY: The bookmark list and the recipe's bookmark button must follow the reload.
	c, bm := newTestControllerWith(t, &memBookmarks{})
	ctx := context.Background()
	if err := c.ShowRecipe(ctx, "p02"); err != nil {
		t.Fatal(err)
	}
	if got := c.View(ViewRecipe).HTML(); strings.Contains(got, `data-bookmarked="true"`) {
		t.Fatalf("recipe bookmarked before reload:\n%s", got)
	}

	r, _ := c.Store().Recipe()
	bm.mu.Lock()
	bm.saved = []state.Recipe{r}
	bm.mu.Unlock()

	if err := c.ReloadBookmarks(ctx); err != nil {
		t.Fatalf("reload: %v", err)
	}
	if got := c.View(ViewBookmarks).HTML(); !strings.Contains(got, "Pizza 2") {
		t.Errorf("bookmarks view: got %q", got)
	}
	if got := c.View(ViewRecipe).HTML(); !strings.Contains(got, `data-bookmarked="true"`) {
		t.Errorf("recipe bookmark flag not patched:\n%s", got)
	}

	bm.mu.Lock()
	bm.saved = nil
	bm.mu.Unlock()
	if err := c.ReloadBookmarks(ctx); err != nil {
		t.Fatalf("reload: %v", err)
	}
	if got := c.View(ViewBookmarks).HTML(); !strings.Contains(got, "No bookmarks yet") {
		t.Errorf("bookmarks view after emptied list: got %q", got)
	}
}

func TestReloadBookmarks_NoRecipe(t *testing.T) {
	c, bm := newTestControllerWith(t, &memBookmarks{})
	bm.saved = []state.Recipe{{ID: "p05", Title: "Pizza 5"}}
	if err := c.ReloadBookmarks(context.Background()); err != nil {
		t.Fatalf("reload: %v", err)
	}
	if got := c.View(ViewBookmarks).HTML(); !strings.Contains(got, "Pizza 5") {
		t.Errorf("bookmarks view: got %q", got)
	}
}

func uploadDraft() state.Draft {
	return state.Draft{
		"title": "Grandma soup", "publisher": "me", "sourceUrl": "https://example.com/soup",
		"image": "https://example.com/soup.jpg", "servings": "2", "cookingTime": "20",
		"ingredient-1": "1,l,water", "ingredient-2": ",,salt",
	}
}

func TestUploadRecipe(t *testing.T) {
	c := newTestController(t)
	r, err := c.UploadRecipe(context.Background(), uploadDraft())
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	if !r.Bookmarked {
		t.Error("uploaded recipe not bookmarked")
	}
	if got := c.View(ViewRecipe).HTML(); !strings.Contains(got, "Grandma soup") || strings.Contains(got, "recipe__user-generated hidden") {
		t.Errorf("recipe view: got %q", got)
	}
	if got := c.View(ViewUpload).HTML(); !strings.Contains(got, markup.UploadSuccess) {
		t.Errorf("upload view: got %q", got)
	}
	if got := c.View(ViewBookmarks).HTML(); !strings.Contains(got, "Grandma soup") {
		t.Errorf("bookmarks view: got %q", got)
	}
}

func TestUploadRecipe_FormatError(t *testing.T) {
	c := newTestController(t)
	d := uploadDraft()
	d["ingredient-1"] = "water"

	_, err := c.UploadRecipe(context.Background(), d)
	if !errors.Is(err, state.ErrFormat) {
		t.Fatalf("error: got %v, want ErrFormat", err)
	}
	if got := c.View(ViewUpload).HTML(); !strings.Contains(got, "Wrong format, please use the correct format") {
		t.Errorf("upload view: got %q", got)
	}
}

func TestPage_AssemblesViews(t *testing.T) {
	c := newTestController(t)
	if err := c.Search(context.Background(), "pizza"); err != nil {
		t.Fatal(err)
	}
	page, err := markup.Layout(c.Document())
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{`<div class="results"><ul class="list">`, `value="pizza"`, "Start by searching"} {
		if !strings.Contains(page, want) {
			t.Errorf("page missing %q", want)
		}
	}
}

func TestUserMessage(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{fmt.Errorf("x: %w", state.ErrFormat), "Wrong format, please use the correct format"},
		{fmt.Errorf("x: %w", state.ErrNotFound), markup.RecipeError},
		{errors.New("boom"), "boom"},
	}
	for _, tt := range tests {
		if got := UserMessage(tt.err); got != tt.want {
			t.Errorf("UserMessage(%v): got %q, want %q", tt.err, got, tt.want)
		}
	}
}
