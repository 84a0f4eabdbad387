// Package markup renders application state to HTML fragments.
//
// Every fragment is well formed (each element explicitly closed) and its
// element structure depends only on the shape of the data: a recipe with the
// same number of ingredients always yields the same tag sequence. The views
// rely on this to patch fragments in place.
package markup

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"math"
	"strconv"

	"github.com/hazyhaar/forkify/state"
)

//go:embed templates/*.html
var templateFS embed.FS

var funcs = template.FuncMap{
	"inc":      func(n int) int { return n + 1 },
	"dec":      func(n int) int { return n - 1 },
	"quantity": FormatQuantity,
}

var tmpl = template.Must(template.New("markup").Funcs(funcs).ParseFS(templateFS, "templates/*.html"))

// Messages shown by the views.
const (
	RecipeError    = "We could not find that recipe. Please try another one!"
	ResultsError   = "No recipes found for your query. Please try again!"
	BookmarksEmpty = "No bookmarks yet. Find a nice recipe and bookmark it :)"
	Welcome        = "Start by searching for a recipe or an ingredient. Have fun!"
	UploadSuccess  = "Recipe was successfully uploaded :)"
)

// Recipe renders the recipe view.
func Recipe(r state.Recipe) (string, error) {
	return execute("recipe", r)
}

type preview struct {
	ID        string
	Title     string
	Publisher string
	Image     string
	Key       string
	Active    bool
}

func (p preview) UserGenerated() bool { return p.Key != "" }

// Results renders a page of search results. The entry whose id is activeID
// gets the active class.
func Results(page []state.Summary, activeID string) (string, error) {
	items := make([]preview, len(page))
	for i, s := range page {
		items[i] = preview{ID: s.ID, Title: s.Title, Publisher: s.Publisher, Image: s.Image, Key: s.Key, Active: s.ID == activeID}
	}
	return execute("previews", items)
}

// Bookmarks renders the bookmark list.
func Bookmarks(marks []state.Recipe, activeID string) (string, error) {
	items := make([]preview, len(marks))
	for i, r := range marks {
		items[i] = preview{ID: r.ID, Title: r.Title, Publisher: r.Publisher, Image: r.Image, Key: r.Key, Active: r.ID == activeID}
	}
	return execute("previews", items)
}

// Buttons are the pagination targets around the selected page; 0 means no
// button.
type Buttons struct {
	Prev int
	Next int
}

// PaginationButtons decides which buttons to show for s.
func PaginationButtons(s state.Search) Buttons {
	cur, total := s.Page, s.Pages()
	var b Buttons
	if total <= 1 || cur < 1 || cur > total {
		return b
	}
	if cur > 1 {
		b.Prev = cur - 1
	}
	if cur < total {
		b.Next = cur + 1
	}
	return b
}

// Pagination renders the previous/next buttons.
func Pagination(s state.Search) (string, error) {
	return execute("pagination", PaginationButtons(s))
}

// Error renders an error message.
func Error(msg string) (string, error) { return execute("error", msg) }

// Message renders an informational message.
func Message(msg string) (string, error) { return execute("message", msg) }

// Spinner renders the loading indicator.
func Spinner() (string, error) { return execute("spinner", nil) }

// UploadForm is the data of the upload form. Ingredients holds the raw
// "quantity,unit,description" field values.
type UploadForm struct {
	Title       string
	SourceURL   string
	Image       string
	Publisher   string
	CookingTime string
	Servings    string
	Ingredients []string
}

// DefaultIngredientFields is the number of ingredient inputs on an empty form.
const DefaultIngredientFields = 6

// Upload renders the upload form, prefilled with f.
func Upload(f UploadForm) (string, error) {
	for len(f.Ingredients) < DefaultIngredientFields {
		f.Ingredients = append(f.Ingredients, "")
	}
	return execute("upload", f)
}

// Page holds the rendered views assembled by Layout.
type Page struct {
	Query      string
	FlashType  string // "success" or "error"
	Flash      string
	Bookmarks  template.HTML
	Results    template.HTML
	Pagination template.HTML
	Recipe     template.HTML
	Upload     template.HTML
}

// Layout renders the whole document around already rendered views. The
// view fragments must come from a sanitising view.
func Layout(p Page) (string, error) {
	return execute("layout", p)
}

// FormatQuantity prints q with at most two decimals and no trailing zeros.
// A nil quantity prints as nothing.
func FormatQuantity(q *float64) string {
	if q == nil {
		return ""
	}
	v := math.Round(*q*100) / 100
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func execute(name string, data any) (string, error) {
	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, name, data); err != nil {
		return "", fmt.Errorf("markup: %s: %w", name, err)
	}
	return buf.String(), nil
}
