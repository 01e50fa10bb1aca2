package domain

import "errors"

// ErrRecipeNotFound is returned when a recipe ID cannot be found in the store.
var ErrRecipeNotFound = errors.New("recipe not found")

// ErrNoSteps is returned when a cooking session is requested for a recipe without steps.
var ErrNoSteps = errors.New("recipe has no steps")

// ErrSessionNotFound is returned when no live cooking session exists for a recipe.
var ErrSessionNotFound = errors.New("session not found")

// ErrRecipeInUse is returned when editing a recipe that has a live cooking session.
var ErrRecipeInUse = errors.New("recipe has a live cooking session")
