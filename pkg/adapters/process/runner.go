package process

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/aretw0/mise/internal/logging"
	"github.com/aretw0/mise/pkg/domain"
)

// DefaultTimeout bounds a single hook execution.
const DefaultTimeout = 10 * time.Second

// Runner executes allow-listed hooks for session events.
// Only commands registered up front can run; event data reaches the command
// through MISE_* environment variables, never as arguments.
type Runner struct {
	hooks   []Hook
	baseDir string
	timeout time.Duration
	logger  *slog.Logger

	mu       sync.Mutex
	queue    []queued
	draining bool
	wg       sync.WaitGroup
}

type queued struct {
	ctx   context.Context
	event domain.SessionEvent
}

// RunnerOption configures the runner.
type RunnerOption func(*Runner)

// WithHooks populates the allow-list from a loaded config.
func WithHooks(hooks ...Hook) RunnerOption {
	return func(r *Runner) {
		for _, h := range hooks {
			r.Register(h)
		}
	}
}

// WithBaseDir sets the working directory for executed processes.
func WithBaseDir(dir string) RunnerOption {
	return func(r *Runner) {
		r.baseDir = dir
	}
}

// WithTimeout overrides DefaultTimeout.
func WithTimeout(d time.Duration) RunnerOption {
	return func(r *Runner) {
		if d > 0 {
			r.timeout = d
		}
	}
}

// WithLogger sets the logger used to report hook failures.
func WithLogger(logger *slog.Logger) RunnerOption {
	return func(r *Runner) {
		r.logger = logger
	}
}

// NewRunner creates a new hook Runner.
func NewRunner(opts ...RunnerOption) *Runner {
	r := &Runner{
		timeout: DefaultTimeout,
		logger:  logging.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Register adds a trusted command to the allow-list. Hooks without a command are ignored.
func (r *Runner) Register(h Hook) {
	if h.Command == "" {
		return
	}
	r.hooks = append(r.hooks, h)
}

// Hooks returns the registered hooks.
func (r *Runner) Hooks() []Hook {
	return append([]Hook(nil), r.hooks...)
}

// Result is the outcome of one hook execution.
type Result struct {
	Hook   string
	Output string
	Err    error
}

// Execute runs every hook matching e and waits for them.
func (r *Runner) Execute(ctx context.Context, e domain.SessionEvent) []Result {
	var results []Result
	for _, h := range r.hooks {
		if !h.Matches(e.Type) {
			continue
		}
		out, err := r.run(ctx, h, e)
		results = append(results, Result{Hook: h.Name, Output: out, Err: err})
	}
	return results
}

// Listener returns a session listener that runs matching hooks in the background.
// Events are queued and handled one at a time in the order they were published.
// Session listeners must not block, so failures are only logged.
func (r *Runner) Listener(ctx context.Context) func(domain.SessionEvent) {
	return func(e domain.SessionEvent) {
		if !r.matchesAny(e.Type) {
			return
		}
		r.mu.Lock()
		defer r.mu.Unlock()
		r.queue = append(r.queue, queued{ctx: ctx, event: e})
		if !r.draining {
			r.draining = true
			r.wg.Add(1)
			go r.drain()
		}
	}
}

// Wait blocks until every queued event has been handled.
func (r *Runner) Wait() {
	r.wg.Wait()
}

func (r *Runner) drain() {
	defer r.wg.Done()
	for {
		r.mu.Lock()
		if len(r.queue) == 0 {
			r.draining = false
			r.mu.Unlock()
			return
		}
		next := r.queue[0]
		r.queue[0] = queued{}
		r.queue = r.queue[1:]
		r.mu.Unlock()

		if next.ctx.Err() != nil {
			r.logger.Debug("Hook skipped", "event", next.event.Type, "err", next.ctx.Err())
			continue
		}
		for _, res := range r.Execute(next.ctx, next.event) {
			if res.Err != nil {
				r.logger.Warn("Hook failed", "hook", res.Hook, "event", next.event.Type, "err", res.Err)
				continue
			}
			r.logger.Debug("Hook ran", "hook", res.Hook, "event", next.event.Type, "output", res.Output)
		}
	}
}

func (r *Runner) matchesAny(t domain.EventType) bool {
	for _, h := range r.hooks {
		if h.Matches(t) {
			return true
		}
	}
	return false
}

func (r *Runner) run(ctx context.Context, h Hook, e domain.SessionEvent) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, h.Command, h.Args...)
	cmd.Dir = r.baseDir
	cmd.Env = append(cmd.Environ(), eventEnv(e)...)
	for k, v := range h.Env {
		cmd.Env = append(cmd.Env, k+"="+v)
	}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("execution failed: %w. Stderr: %s", err, strings.TrimSpace(stderr.String()))
	}
	return strings.TrimSpace(stdout.String()), nil
}

func eventEnv(e domain.SessionEvent) []string {
	env := []string{
		"MISE_EVENT=" + string(e.Type),
		"MISE_RECIPE_ID=" + e.RecipeID,
		"MISE_ACTIVE_ID=" + e.ActiveID,
	}
	if e.Reason != "" {
		env = append(env, "MISE_REASON="+string(e.Reason))
	}
	if s := e.After; s != nil {
		env = append(env,
			"MISE_STEP="+strconv.Itoa(s.CurrentStepIndex+1),
			"MISE_STEP_COUNT="+strconv.Itoa(s.StepCount),
			"MISE_STEP_REMAINING_SEC="+strconv.Itoa(s.StepRemainingSec),
			"MISE_OVERALL_REMAINING_SEC="+strconv.Itoa(s.OverallRemainingSec),
		)
	}
	return env
}
