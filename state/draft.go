package state

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
)

// Draft is the flat field map of the upload form: title, sourceUrl, image,
// publisher, cookingTime, servings and any number of ingredient-N fields
// whose value reads "quantity,unit,description".
type Draft map[string]string

const ingredientPrefix = "ingredient"

// ParseDraft validates d and turns it into an Upload. Every violation wraps
// ErrFormat.
func ParseDraft(d Draft) (*Upload, error) {
	up := &Upload{
		Title:     strings.TrimSpace(d["title"]),
		Publisher: strings.TrimSpace(d["publisher"]),
		SourceURL: strings.TrimSpace(d["sourceUrl"]),
		Image:     strings.TrimSpace(d["image"]),
	}

	servings, err := strconv.Atoi(strings.TrimSpace(d["servings"]))
	if err != nil || servings <= 0 {
		return nil, fmt.Errorf("%w: servings %q", ErrFormat, d["servings"])
	}
	up.Servings = servings

	cooking, err := strconv.Atoi(strings.TrimSpace(d["cookingTime"]))
	if err != nil || cooking < 0 {
		return nil, fmt.Errorf("%w: cookingTime %q", ErrFormat, d["cookingTime"])
	}
	up.CookingTime = cooking

	var keys []string
	for k, v := range d {
		if strings.HasPrefix(k, ingredientPrefix) && strings.TrimSpace(v) != "" {
			keys = append(keys, k)
		}
	}
	sort.Slice(keys, func(i, j int) bool { return naturalLess(keys[i], keys[j]) })

	up.Ingredients = make([]Ingredient, 0, len(keys))
	for _, k := range keys {
		ing, err := ParseIngredient(d[k])
		if err != nil {
			return nil, fmt.Errorf("%s: %w", k, err)
		}
		up.Ingredients = append(up.Ingredients, ing)
	}
	return up, nil
}

// ParseIngredient parses "quantity,unit,description". An empty quantity
// means no quantity.
func ParseIngredient(s string) (Ingredient, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 3 {
		return Ingredient{}, fmt.Errorf("%w: ingredient %q", ErrFormat, s)
	}
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}

	ing := Ingredient{Unit: parts[1], Description: parts[2]}
	if parts[0] != "" {
		q, err := strconv.ParseFloat(parts[0], 64)
		if err != nil || math.IsNaN(q) || math.IsInf(q, 0) {
			return Ingredient{}, fmt.Errorf("%w: quantity %q", ErrFormat, parts[0])
		}
		ing.Quantity = &q
	}
	return ing, nil
}

// naturalLess orders keys by their non-digit prefix, then by the numeric
// suffix, so ingredient-2 sorts before ingredient-10.
func naturalLess(a, b string) bool {
	pa, na, oka := splitNumericSuffix(a)
	pb, nb, okb := splitNumericSuffix(b)
	if pa != pb || !oka || !okb {
		return a < b
	}
	return na < nb
}

func splitNumericSuffix(s string) (string, int, bool) {
	i := len(s)
	for i > 0 && s[i-1] >= '0' && s[i-1] <= '9' {
		i--
	}
	if i == len(s) {
		return s, 0, false
	}
	n, err := strconv.Atoi(s[i:])
	if err != nil {
		return s, 0, false
	}
	return s[:i], n, true
}
