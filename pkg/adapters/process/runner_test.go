package process

import (
	"context"
	"os"
	"runtime"
	"testing"
	"time"

	"github.com/aretw0/mise/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func advanced() domain.SessionEvent {
	return domain.SessionEvent{
		Type:     domain.EventAdvanced,
		RecipeID: "eggs",
		ActiveID: "eggs",
		After: &domain.Session{
			RecipeID:         "eggs",
			CurrentStepIndex: 1,
			StepCount:        2,
			StepRemainingSec: 180,
		},
	}
}

func TestHook_Matches(t *testing.T) {
	var h Hook
	assert.True(t, h.Matches(domain.EventAdvanced))
	assert.True(t, h.Matches(domain.EventEnded))
	assert.False(t, h.Matches(domain.EventTicked))

	h.On = []domain.EventType{domain.EventPaused}
	assert.True(t, h.Matches(domain.EventPaused))
	assert.False(t, h.Matches(domain.EventAdvanced))
}

func TestRunner_Execute(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("uses sh")
	}

	runner := NewRunner(WithHooks(
		Hook{Name: "announce", Command: "sh", Args: []string{"-c", "echo $MISE_RECIPE_ID step $MISE_STEP/$MISE_STEP_COUNT $GREETING"}, Env: map[string]string{"GREETING": "hi"}},
		Hook{Name: "on_pause", On: []domain.EventType{domain.EventPaused}, Command: "sh", Args: []string{"-c", "echo paused"}},
		Hook{Name: "empty"},
	))
	require.Len(t, runner.Hooks(), 2)

	t.Run("Passes Event via Env Vars", func(t *testing.T) {
		results := runner.Execute(context.Background(), advanced())
		require.Len(t, results, 1)
		assert.NoError(t, results[0].Err)
		assert.Equal(t, "announce", results[0].Hook)
		assert.Equal(t, "eggs step 2/2 hi", results[0].Output)
	})

	t.Run("Skips Unmatched Events", func(t *testing.T) {
		results := runner.Execute(context.Background(), domain.SessionEvent{Type: domain.EventTicked})
		assert.Empty(t, results)
	})

	t.Run("Reports Failures", func(t *testing.T) {
		failing := NewRunner(WithHooks(Hook{Name: "bad", Command: "sh", Args: []string{"-c", "echo nope >&2; exit 3"}}))
		results := failing.Execute(context.Background(), advanced())
		require.Len(t, results, 1)
		require.Error(t, results[0].Err)
		assert.Contains(t, results[0].Err.Error(), "nope")
	})

	t.Run("Times Out", func(t *testing.T) {
		slow := NewRunner(
			WithTimeout(50*time.Millisecond),
			WithHooks(Hook{Name: "slow", Command: "sleep", Args: []string{"5"}}),
		)
		results := slow.Execute(context.Background(), advanced())
		require.Len(t, results, 1)
		assert.Error(t, results[0].Err)
	})
}

func TestRunner_Listener(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("uses sh")
	}

	out := t.TempDir() + "/fired"
	runner := NewRunner(WithHooks(Hook{
		Name:    "touch",
		On:      []domain.EventType{domain.EventEnded},
		Command: "sh",
		Args:    []string{"-c", "echo $MISE_REASON > " + out},
	}))

	listen := runner.Listener(context.Background())
	listen(domain.SessionEvent{Type: domain.EventTicked})
	listen(domain.SessionEvent{Type: domain.EventEnded, RecipeID: "eggs", Reason: domain.EndCompleted})
	runner.Wait()

	assert.FileExists(t, out)
}

func TestRunner_ListenerKeepsEventOrder(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("uses sh")
	}

	out := t.TempDir() + "/log"
	runner := NewRunner(WithHooks(Hook{
		Name:    "log",
		Command: "sh",
		// The first event sleeps so a concurrent second one would overtake it.
		Args: []string{"-c", `[ "$MISE_EVENT" = step_advanced ] && sleep 0.2; echo $MISE_EVENT >> ` + out},
	}))

	listen := runner.Listener(context.Background())
	listen(advanced())
	listen(domain.SessionEvent{Type: domain.EventEnded, RecipeID: "eggs", Reason: domain.EndCompleted})
	runner.Wait()

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, string(domain.EventAdvanced)+"\n"+string(domain.EventEnded)+"\n", string(data))
}

func TestRunner_ListenerSkipsAfterCancel(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("uses sh")
	}

	out := t.TempDir() + "/fired"
	runner := NewRunner(WithHooks(Hook{
		Name:    "touch",
		Command: "sh",
		Args:    []string{"-c", "touch " + out},
	}))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	runner.Listener(ctx)(advanced())
	runner.Wait()

	assert.NoFileExists(t, out)
}
