package state

import "errors"

// ErrNotFound is returned when the source answered but has no such recipe.
var ErrNotFound = errors.New("state: recipe not found")

// ErrTransport is returned when the source could not be reached or answered
// with something unusable.
var ErrTransport = errors.New("state: transport failure")

// ErrFormat is returned when an uploaded recipe draft is malformed.
var ErrFormat = errors.New("state: wrong format, please use the correct format")

// ErrInvalidServings is returned by UpdateServings for a count below 1.
var ErrInvalidServings = errors.New("state: servings must be at least 1")

// ErrNoRecipe is returned by operations that need a loaded recipe.
var ErrNoRecipe = errors.New("state: no recipe loaded")

// ErrSuperseded is returned when a load completed after a newer load of the
// same kind was started. Its result has been discarded.
var ErrSuperseded = errors.New("state: superseded by a newer request")
