package graph_test

import (
	"strings"
	"testing"

	"github.com/aretw0/mise/internal/presentation/graph"
	"github.com/aretw0/mise/pkg/domain"
)

func recipe() domain.Recipe {
	return domain.Recipe{
		ID:    "pasta",
		Title: "Pasta \"al dente\"",
		Steps: []domain.Step{
			{Description: "Chop garlic", DurationMinutes: 1.5, Kind: domain.StepInstruction},
			{Description: "Boil pasta", DurationMinutes: 9, Kind: domain.StepCooking},
			{Description: "Toss", DurationMinutes: 1},
		},
	}
}

func TestGenerateMermaid(t *testing.T) {
	tests := []struct {
		name     string
		session  *domain.Session
		contains []string
		excludes []string
	}{
		{
			name: "Step Shapes",
			contains: []string{
				"start((\"Pasta 'al dente'\"))",
				"step_1[\"1. Chop garlic <br/> ⏱️ 01:30\"]",
				"step_2[[\"2. Boil pasta <br/> ⏱️ 09:00\"]]",
				"step_3[\"3. Toss <br/> ⏱️ 01:00\"]",
			},
			excludes: []string{"classDef"},
		},
		{
			name: "Chain",
			contains: []string{
				"start --> step_1",
				"step_1 --> step_2",
				"step_2 --> step_3",
				"step_3 --> finish",
			},
		},
		{
			name:    "Session Overlay",
			session: &domain.Session{RecipeID: "pasta", CurrentStepIndex: 2, StepCount: 3},
			contains: []string{
				"classDef done",
				"class step_1 done;",
				"class step_2 done;",
				"class step_3 current;",
			},
			excludes: []string{"class step_3 done;"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := graph.GenerateMermaid(recipe(), tt.session)
			for _, want := range tt.contains {
				if !strings.Contains(got, want) {
					t.Errorf("GenerateMermaid() missing %q\nGot:\n%s", want, got)
				}
			}
			for _, unwanted := range tt.excludes {
				if strings.Contains(got, unwanted) {
					t.Errorf("GenerateMermaid() should not contain %q\nGot:\n%s", unwanted, got)
				}
			}
		})
	}
}

func TestGenerateMermaid_NoSteps(t *testing.T) {
	got := graph.GenerateMermaid(domain.Recipe{Title: "Empty"}, nil)
	if !strings.Contains(got, "start --> finish") {
		t.Errorf("expected start to link to finish, got:\n%s", got)
	}
}
