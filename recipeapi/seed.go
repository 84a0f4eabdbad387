package recipeapi

import (
	_ "embed"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/hazyhaar/forkify/forkifyapi"
)

//go:embed seed.yaml
var defaultSeed []byte

// SeedRecipe is one recipe of a seed fixture. JSON fixtures parse too.
type SeedRecipe struct {
	ID          string           `yaml:"id"`
	Title       string           `yaml:"title"`
	Publisher   string           `yaml:"publisher"`
	SourceURL   string           `yaml:"source_url"`
	ImageURL    string           `yaml:"image_url"`
	Servings    int              `yaml:"servings"`
	CookingTime int              `yaml:"cooking_time"`
	Ingredients []SeedIngredient `yaml:"ingredients"`
}

// SeedIngredient is one ingredient of a seed recipe.
type SeedIngredient struct {
	Quantity    *float64 `yaml:"quantity"`
	Unit        string   `yaml:"unit"`
	Description string   `yaml:"description"`
}

type seedFile struct {
	Recipes []SeedRecipe `yaml:"recipes"`
}

// LoadSeedFile reads a fixture. An empty path loads the built-in one.
func LoadSeedFile(path string) ([]forkifyapi.Recipe, error) {
	data := defaultSeed
	if path != "" {
		var err error
		if data, err = os.ReadFile(path); err != nil {
			return nil, fmt.Errorf("recipeapi: seed: %w", err)
		}
	}
	return ParseSeed(data)
}

// ParseSeed decodes a fixture: a mapping with a recipes list.
func ParseSeed(data []byte) ([]forkifyapi.Recipe, error) {
	var f seedFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("recipeapi: seed: %w", err)
	}
	out := make([]forkifyapi.Recipe, 0, len(f.Recipes))
	for i, sr := range f.Recipes {
		if sr.Title == "" || sr.Servings <= 0 {
			return nil, fmt.Errorf("recipeapi: seed: recipe %d: title and positive servings required", i)
		}
		r := forkifyapi.Recipe{
			ID:          sr.ID,
			Title:       sr.Title,
			Publisher:   sr.Publisher,
			SourceURL:   sr.SourceURL,
			ImageURL:    sr.ImageURL,
			Servings:    sr.Servings,
			CookingTime: sr.CookingTime,
			Ingredients: make([]forkifyapi.Ingredient, len(sr.Ingredients)),
		}
		for j, ing := range sr.Ingredients {
			r.Ingredients[j] = forkifyapi.Ingredient{Quantity: ing.Quantity, Unit: ing.Unit, Description: ing.Description}
		}
		out = append(out, r)
	}
	return out, nil
}
