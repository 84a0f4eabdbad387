package markup

import (
	"html/template"
	"strings"
	"testing"

	"golang.org/x/net/html"

	"github.com/hazyhaar/forkify/reconcile"
	"github.com/hazyhaar/forkify/state"
)

func q(f float64) *float64 { return &f }

func testRecipe() state.Recipe {
	return state.Recipe{
		ID:          "5ed6604591c37cdc054bc886",
		Title:       "Pizza & friends",
		Publisher:   "Closet Cooking",
		SourceURL:   "http://www.closetcooking.com/pizza.html",
		Image:       "http://forkify-api.herokuapp.com/images/pizza.jpg",
		Servings:    4,
		CookingTime: 45,
		Ingredients: []state.Ingredient{
			{Quantity: q(1), Unit: "kg", Description: "flour"},
			{Quantity: q(0.333333), Unit: "cup", Description: "milk"},
			{Description: "salt"},
		},
	}
}

func tags(t *testing.T, markup string) []string {
	t.Helper()
	nodes, err := reconcile.Parse(markup)
	if err != nil {
		t.Fatalf("parse: %v\n%s", err, markup)
	}
	var out []string
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			out = append(out, n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	for _, n := range nodes {
		walk(n)
	}
	return out
}

func TestFragmentsAreWellFormed(t *testing.T) {
	// WHAT: Every fragment passes the strict parse used by the views.
	// WHY: A template relying on implied end tags would fail every update.
	r := testRecipe()
	fragments := map[string]func() (string, error){
		"recipe":     func() (string, error) { return Recipe(r) },
		"results":    func() (string, error) { return Results([]state.Summary{{ID: "a", Title: "A"}, {ID: "b", Key: "k"}}, "a") },
		"bookmarks":  func() (string, error) { return Bookmarks([]state.Recipe{r}, "") },
		"pagination": func() (string, error) { return Pagination(state.Search{Results: make([]state.Summary, 25), Page: 2, ResultsPerPage: 10}) },
		"error":      func() (string, error) { return Error(RecipeError) },
		"message":    func() (string, error) { return Message(Welcome) },
		"spinner":    Spinner,
		"upload":     func() (string, error) { return Upload(UploadForm{Title: "x"}) },
	}
	for name, fn := range fragments {
		t.Run(name, func(t *testing.T) {
			s, err := fn()
			if err != nil {
				t.Fatalf("render: %v", err)
			}
			tags(t, s)
		})
	}
}

func TestRecipe_ShapeIndependentOfValues(t *testing.T) {
	// WHAT: Servings and bookmark changes keep the element sequence.
	// WHY: In-place updates pair elements by position.
	a := testRecipe()
	b := testRecipe()
	b.Servings = 9
	b.Bookmarked = true
	*b.Ingredients[0].Quantity = 2.25

	ma, err := Recipe(a)
	if err != nil {
		t.Fatal(err)
	}
	mb, err := Recipe(b)
	if err != nil {
		t.Fatal(err)
	}
	ta, tb := tags(t, ma), tags(t, mb)
	if strings.Join(ta, ",") != strings.Join(tb, ",") {
		t.Fatalf("shapes differ:\n%v\n%v", ta, tb)
	}
}

func TestRecipe_Content(t *testing.T) {
	r := testRecipe()
	r.Key = "k"
	s, err := Recipe(r)
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{
		`Pizza &amp; friends`,
		`data-update-to="3"`,
		`data-update-to="5"`,
		`action="/servings/5"`,
		`<div class="recipe__quantity">0.33</div>`,
		`<div class="recipe__quantity"></div>`,
		`class="recipe__user-generated"`,
		`>Bookmark<`,
	} {
		if !strings.Contains(s, want) {
			t.Errorf("recipe markup missing %q", want)
		}
	}
}

func TestResults_ActiveAndUserGenerated(t *testing.T) {
	s, err := Results([]state.Summary{{ID: "a"}, {ID: "b", Key: "k"}}, "b")
	if err != nil {
		t.Fatal(err)
	}
	if got := strings.Count(s, "preview__link--active"); got != 1 {
		t.Errorf("active links: got %d, want 1", got)
	}
	if !strings.Contains(s, `preview__link preview__link--active" href="/recipes/b"`) {
		t.Errorf("active class not on b:\n%s", s)
	}
	if got := strings.Count(s, "preview__user-generated hidden"); got != 1 {
		t.Errorf("hidden markers: got %d, want 1", got)
	}
}

func TestPaginationButtons(t *testing.T) {
	tests := []struct {
		name    string
		results int
		page    int
		want    Buttons
	}{
		{"single page", 7, 1, Buttons{}},
		{"first of many", 25, 1, Buttons{Next: 2}},
		{"middle", 25, 2, Buttons{Prev: 1, Next: 3}},
		{"last", 25, 3, Buttons{Prev: 2}},
		{"no results", 0, 1, Buttons{}},
		{"out of range", 25, 7, Buttons{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := state.Search{Results: make([]state.Summary, tt.results), Page: tt.page, ResultsPerPage: 10}
			if got := PaginationButtons(s); got != tt.want {
				t.Errorf("got %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestFormatQuantity(t *testing.T) {
	tests := []struct {
		in   *float64
		want string
	}{
		{nil, ""},
		{q(1), "1"},
		{q(0.5), "0.5"},
		{q(1.0 / 3), "0.33"},
		{q(2.999), "3"},
	}
	for _, tt := range tests {
		if got := FormatQuantity(tt.in); got != tt.want {
			t.Errorf("FormatQuantity: got %q, want %q", got, tt.want)
		}
	}
}

func TestUpload_DefaultIngredientFields(t *testing.T) {
	s, err := Upload(UploadForm{Ingredients: []string{"1,kg,rice"}})
	if err != nil {
		t.Fatal(err)
	}
	if got := strings.Count(s, `name="ingredient-`); got != DefaultIngredientFields {
		t.Errorf("ingredient inputs: got %d, want %d", got, DefaultIngredientFields)
	}
	if !strings.Contains(s, `value="1,kg,rice"`) {
		t.Error("prefilled ingredient missing")
	}
}

func TestPolicy_KeepsTemplateMarkup(t *testing.T) {
	// WHAT: Sanitise a rendered recipe whose title carries a script.
	// WHY: The view sanitiser must strip user scripts without breaking the templates.
	r := testRecipe()
	r.Title = `Evil<script>alert(1)</script>`
	s, err := Recipe(r)
	if err != nil {
		t.Fatal(err)
	}
	clean := Policy().Sanitize(s)
	if strings.Contains(clean, "<script") {
		t.Fatalf("script survived:\n%s", clean)
	}
	for _, want := range []string{`class="recipe__title"`, `data-update-to="5"`, `<form`, `<button`} {
		if !strings.Contains(clean, want) {
			t.Errorf("sanitised markup lost %q", want)
		}
	}
	tags(t, clean)
}

func TestLayout(t *testing.T) {
	rec, err := Recipe(testRecipe())
	if err != nil {
		t.Fatal(err)
	}
	s, err := Layout(Page{Query: `pizza"`, Recipe: template.HTML(rec)})
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(s, "<!DOCTYPE html>") {
		t.Error("missing doctype")
	}
	if !strings.Contains(s, `value="pizza&#34;"`) {
		t.Errorf("query not escaped:\n%s", s)
	}
	if !strings.Contains(s, `<div class="recipe"><figure`) {
		t.Error("recipe view not embedded")
	}
}
