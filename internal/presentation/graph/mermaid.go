package graph

import (
	"fmt"
	"strings"

	"github.com/aretw0/mise/pkg/domain"
	"github.com/aretw0/mise/pkg/view"
)

// GenerateMermaid produces a Mermaid flowchart of a recipe's steps.
// It applies semantic styling:
// - Start and finish: ((Circle))
// - Cooking (passive time): [[Subroutine]]
// - Instruction (hands-on): [Rectangle]
// When a session is given, finished steps are styled "done" and the
// current one "current".
func GenerateMermaid(recipe domain.Recipe, s *domain.Session) string {
	var sb strings.Builder
	sb.WriteString("graph TD\n")
	sb.WriteString(fmt.Sprintf("    start((\"%s\"))\n", escape(recipe.Title)))

	prev := "start"
	for i, step := range recipe.Steps {
		id := stepID(i)

		opener, closer := "[", "]"
		if step.Kind == domain.StepCooking {
			opener, closer = "[[", "]]"
		}

		label := fmt.Sprintf("%d. %s <br/> ⏱️ %s", i+1, escape(step.Description), view.MMSS(step.DurationSec()))
		sb.WriteString(fmt.Sprintf("    %s%s\"%s\"%s\n", id, opener, label, closer))
		sb.WriteString(fmt.Sprintf("    %s --> %s\n", prev, id))
		prev = id
	}
	sb.WriteString("    finish((\"Done\"))\n")
	sb.WriteString(fmt.Sprintf("    %s --> finish\n", prev))

	if s != nil {
		sb.WriteString("\n    %% Session Styles\n")
		// Force black text (color:#000) for contrast on light and dark themes
		sb.WriteString("    classDef done fill:#e1f5fe,stroke:#01579b,stroke-width:2px,color:#000;\n")
		sb.WriteString("    classDef current fill:#ffeb3b,stroke:#fbc02d,stroke-width:4px,color:#000;\n")

		for i := 0; i < s.CurrentStepIndex && i < len(recipe.Steps); i++ {
			sb.WriteString(fmt.Sprintf("    class %s done;\n", stepID(i)))
		}
		if s.CurrentStepIndex < len(recipe.Steps) {
			sb.WriteString(fmt.Sprintf("    class %s current;\n", stepID(s.CurrentStepIndex)))
		}
	}

	return sb.String()
}

func stepID(i int) string {
	return fmt.Sprintf("step_%d", i+1)
}

// escape keeps labels inside their double quotes.
func escape(s string) string {
	return strings.ReplaceAll(s, "\"", "'")
}
