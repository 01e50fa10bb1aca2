// Package catalog filters and orders recipe lists for display.
package catalog

import (
	"fmt"
	"slices"
	"strings"

	"github.com/aretw0/mise/pkg/domain"
)

// SortOrder orders recipes by total cooking time.
type SortOrder string

const (
	SortNone SortOrder = ""
	SortAsc  SortOrder = "asc"
	SortDesc SortOrder = "desc"
)

// Query selects and orders recipes. The zero Query returns everything in store order.
type Query struct {
	Difficulty    domain.Difficulty
	FavoritesOnly bool
	Sort          SortOrder
}

// ParseSort accepts "", "asc" and "desc" in any case.
func ParseSort(s string) (SortOrder, error) {
	switch order := SortOrder(strings.ToLower(strings.TrimSpace(s))); order {
	case SortNone, SortAsc, SortDesc:
		return order, nil
	default:
		return SortNone, fmt.Errorf("invalid sort order %q (want asc or desc)", s)
	}
}

// ParseDifficulty accepts "", "easy", "medium" and "hard" in any case.
func ParseDifficulty(s string) (domain.Difficulty, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "":
		return "", nil
	case "easy":
		return domain.DifficultyEasy, nil
	case "medium":
		return domain.DifficultyMedium, nil
	case "hard":
		return domain.DifficultyHard, nil
	default:
		return "", fmt.Errorf("invalid difficulty %q (want Easy, Medium or Hard)", s)
	}
}

// Apply returns the recipes matching q. The input slice is not modified and
// recipes with equal total time keep their relative order.
func Apply(recipes []domain.Recipe, q Query) []domain.Recipe {
	out := make([]domain.Recipe, 0, len(recipes))
	for _, r := range recipes {
		if q.Difficulty != "" && r.Difficulty != q.Difficulty {
			continue
		}
		if q.FavoritesOnly && !r.Favorite {
			continue
		}
		out = append(out, r)
	}

	if q.Sort == SortNone {
		return out
	}

	slices.SortStableFunc(out, func(a, b domain.Recipe) int {
		ta, tb := a.TotalMinutes(), b.TotalMinutes()
		if q.Sort == SortDesc {
			ta, tb = tb, ta
		}
		switch {
		case ta < tb:
			return -1
		case ta > tb:
			return 1
		}
		return 0
	})
	return out
}
