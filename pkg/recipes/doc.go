// Package recipes implements the recipe book: create, update, delete and
// favorite operations with timestamps, serialized per recipe.
package recipes
