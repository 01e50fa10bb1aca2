package tui

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/aretw0/mise/pkg/domain"
	"github.com/aretw0/mise/pkg/view"
)

// RecipeMarkdown describes a recipe as markdown for glamour.
func RecipeMarkdown(r domain.Recipe) string {
	var sb strings.Builder

	title := r.Title
	if r.Favorite {
		title += " ★"
	}
	fmt.Fprintf(&sb, "# %s\n\n", title)

	var meta []string
	if r.Cuisine != "" {
		meta = append(meta, r.Cuisine)
	}
	if r.Difficulty != "" {
		meta = append(meta, string(r.Difficulty))
	}
	meta = append(meta, view.MMSS(r.TotalDurationSec())+" total")
	fmt.Fprintf(&sb, "_%s_ · `%s`\n\n", strings.Join(meta, " · "), r.ID)

	if len(r.Ingredients) > 0 {
		sb.WriteString("## Ingredients\n\n")
		for _, in := range r.Ingredients {
			line := in.Name
			if in.Quantity > 0 {
				line = strings.TrimSpace(strconv.FormatFloat(in.Quantity, 'f', -1, 64)+" "+in.Unit) + " " + in.Name
			}
			fmt.Fprintf(&sb, "- %s\n", line)
		}
		sb.WriteString("\n")
	}

	sb.WriteString("## Steps\n\n")
	if len(r.Steps) == 0 {
		sb.WriteString("_No steps yet._\n")
	}
	for i, s := range r.Steps {
		kind := s.Kind
		if kind == "" {
			kind = domain.StepInstruction
		}
		fmt.Fprintf(&sb, "%d. %s (**%s**, %s)\n", i+1, s.Description, view.MMSS(s.DurationSec()), kind)
	}
	return sb.String()
}
