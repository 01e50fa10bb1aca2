// Package recipebook imports recipe collections from YAML or JSON files.
//
// A document is either a list of recipes or a mapping with a "recipes" key.
// Keys match case-insensitively and ignore underscores, so "duration_minutes"
// and "durationMinutes" are the same field, and scalar values are weakly typed
// ("2.5" decodes into a number).
package recipebook

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/aretw0/mise/internal/dto"
	"github.com/aretw0/mise/pkg/domain"
	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v3"
)

// Format selects the document syntax.
type Format string

const (
	FormatYAML Format = "yaml"
	FormatJSON Format = "json"
)

// FormatFromPath picks the format from the file extension, defaulting to YAML.
func FormatFromPath(path string) Format {
	if strings.EqualFold(filepath.Ext(path), ".json") {
		return FormatJSON
	}
	return FormatYAML
}

// Load reads and parses the recipe file at path.
func Load(path string) ([]domain.Recipe, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read recipe file: %w", err)
	}
	recipes, err := Parse(data, FormatFromPath(path))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return recipes, nil
}

// Parse decodes a recipe document.
func Parse(data []byte, format Format) ([]domain.Recipe, error) {
	var raw any
	switch format {
	case FormatJSON:
		if err := json.Unmarshal(data, &raw); err != nil {
			return nil, fmt.Errorf("failed to parse json: %w", err)
		}
	default:
		if err := yaml.Unmarshal(data, &raw); err != nil {
			return nil, fmt.Errorf("failed to parse yaml: %w", err)
		}
	}

	if list, ok := raw.([]any); ok {
		raw = map[string]any{"recipes": list}
	}

	var book dto.RecipeBook
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &book,
		WeaklyTypedInput: true,
		MatchName:        matchName,
	})
	if err != nil {
		return nil, err
	}
	if err := decoder.Decode(raw); err != nil {
		return nil, fmt.Errorf("failed to decode recipes: %w", err)
	}

	for i := range book.Recipes {
		normalize(&book.Recipes[i])
	}
	return book.Recipes, nil
}

func matchName(mapKey, fieldName string) bool {
	fold := func(s string) string {
		return strings.ToLower(strings.ReplaceAll(s, "_", ""))
	}
	return fold(mapKey) == fold(fieldName)
}

func normalize(r *domain.Recipe) {
	r.ID = strings.TrimSpace(r.ID)
	for i := range r.Steps {
		if r.Steps[i].Kind == "" {
			r.Steps[i].Kind = domain.StepInstruction
		}
	}
}
