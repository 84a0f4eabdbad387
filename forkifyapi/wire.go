package forkifyapi

import "github.com/hazyhaar/forkify/state"

// Envelope is the common response shape of the API.
type Envelope struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
	Results *int   `json:"results,omitempty"`
	Data    Data   `json:"data"`
}

// Data carries either a single recipe or a result list.
type Data struct {
	Recipe  *Recipe  `json:"recipe,omitempty"`
	Recipes []Result `json:"recipes,omitempty"`
}

// Ingredient is an ingredient on the wire. A null quantity means none.
type Ingredient struct {
	Quantity    *float64 `json:"quantity"`
	Unit        string   `json:"unit"`
	Description string   `json:"description"`
}

// Recipe is a recipe as the API sends and accepts it.
type Recipe struct {
	ID          string       `json:"id,omitempty"`
	Title       string       `json:"title"`
	Publisher   string       `json:"publisher"`
	SourceURL   string       `json:"source_url"`
	ImageURL    string       `json:"image_url"`
	Servings    int          `json:"servings"`
	CookingTime int          `json:"cooking_time"`
	Ingredients []Ingredient `json:"ingredients"`
	Key         string       `json:"key,omitempty"`
	CreatedAt   string       `json:"createdAt,omitempty"`
}

// Result is one search hit on the wire.
type Result struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	Publisher string `json:"publisher"`
	ImageURL  string `json:"image_url"`
	Key       string `json:"key,omitempty"`
}

// State converts w to the application record.
func (w *Recipe) State() *state.Recipe {
	r := &state.Recipe{
		ID:          w.ID,
		Title:       w.Title,
		Publisher:   w.Publisher,
		SourceURL:   w.SourceURL,
		Image:       w.ImageURL,
		Servings:    w.Servings,
		CookingTime: w.CookingTime,
		Key:         w.Key,
		Ingredients: make([]state.Ingredient, len(w.Ingredients)),
	}
	for i, ing := range w.Ingredients {
		r.Ingredients[i] = state.Ingredient{Quantity: ing.Quantity, Unit: ing.Unit, Description: ing.Description}
	}
	return r
}

// Summary converts w to the application record.
func (w Result) Summary() state.Summary {
	return state.Summary{ID: w.ID, Title: w.Title, Publisher: w.Publisher, Image: w.ImageURL, Key: w.Key}
}

// FromUpload converts an upload into its wire form.
func FromUpload(u *state.Upload) *Recipe {
	w := &Recipe{
		Title:       u.Title,
		Publisher:   u.Publisher,
		SourceURL:   u.SourceURL,
		ImageURL:    u.Image,
		Servings:    u.Servings,
		CookingTime: u.CookingTime,
		Ingredients: make([]Ingredient, len(u.Ingredients)),
	}
	for i, ing := range u.Ingredients {
		w.Ingredients[i] = Ingredient{Quantity: ing.Quantity, Unit: ing.Unit, Description: ing.Description}
	}
	return w
}
