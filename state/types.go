package state

import "context"

// Ingredient is one line of a recipe. Quantity is nil for ingredients with
// no amount ("salt to taste"); nil is preserved by serving rescales.
type Ingredient struct {
	Quantity    *float64 `json:"quantity"`
	Unit        string   `json:"unit"`
	Description string   `json:"description"`
}

// Recipe is the currently displayed recipe, and the shape of a bookmark
// snapshot. JSON field names match the bookmarks blob the browser app kept.
type Recipe struct {
	ID          string       `json:"id"`
	Title       string       `json:"title"`
	Publisher   string       `json:"publisher"`
	SourceURL   string       `json:"sourceUrl"`
	Image       string       `json:"image"`
	Servings    int          `json:"servings"`
	CookingTime int          `json:"cookingTime"`
	Ingredients []Ingredient `json:"ingredients"`
	Key         string       `json:"key,omitempty"` // set on recipes uploaded with our API key
	Bookmarked  bool         `json:"bookmarked"`
}

// Clone returns a deep copy.
func (r Recipe) Clone() Recipe {
	c := r
	if r.Ingredients != nil {
		c.Ingredients = make([]Ingredient, len(r.Ingredients))
		for i, ing := range r.Ingredients {
			c.Ingredients[i] = ing
			if ing.Quantity != nil {
				q := *ing.Quantity
				c.Ingredients[i].Quantity = &q
			}
		}
	}
	return c
}

// UserGenerated reports whether the recipe was uploaded by this user.
func (r Recipe) UserGenerated() bool { return r.Key != "" }

// Summary is one search hit.
type Summary struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	Publisher string `json:"publisher"`
	Image     string `json:"image"`
	Key       string `json:"key,omitempty"`
}

// Search is the search state: last successful query, its results and the
// selected page (1-based).
type Search struct {
	Query          string    `json:"query"`
	Results        []Summary `json:"results"`
	Page           int       `json:"page"`
	ResultsPerPage int       `json:"results_per_page"`
}

// Pages returns the number of result pages, 0 when there are no results.
func (s Search) Pages() int {
	if s.ResultsPerPage <= 0 {
		return 0
	}
	return (len(s.Results) + s.ResultsPerPage - 1) / s.ResultsPerPage
}

// Upload is a user recipe ready to be submitted.
type Upload struct {
	Title       string
	Publisher   string
	SourceURL   string
	Image       string
	Servings    int
	CookingTime int
	Ingredients []Ingredient
}

// Source looks recipes up and accepts uploads. Implementations wrap
// ErrNotFound and ErrTransport so callers can tell the two apart.
type Source interface {
	Recipe(ctx context.Context, id string) (*Recipe, error)
	Search(ctx context.Context, query string) ([]Summary, error)
	Upload(ctx context.Context, u *Upload) (*Recipe, error)
}

// BookmarkStore persists the bookmark list as a single value.
type BookmarkStore interface {
	Load(ctx context.Context) ([]Recipe, error)
	Save(ctx context.Context, bookmarks []Recipe) error
}

// Status is the lifecycle of a recipe or search load.
type Status int

const (
	StatusEmpty Status = iota
	StatusLoading
	StatusLoaded
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusLoading:
		return "loading"
	case StatusLoaded:
		return "loaded"
	case StatusFailed:
		return "failed"
	default:
		return "empty"
	}
}
