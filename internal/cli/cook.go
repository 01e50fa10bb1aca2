package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/aretw0/mise"
	"github.com/aretw0/mise/internal/logging"
	"github.com/aretw0/mise/internal/presentation/tui"
	"github.com/aretw0/mise/pkg/domain"
	"github.com/muesli/termenv"
)

// ctrlC is what Ctrl+C reads as once the terminal is in raw mode.
const ctrlC = 0x03

// Interrupts is a re-armable source of user interrupts, see SignalManager.
type Interrupts interface {
	Done() <-chan struct{}
	Reset()
}

// CookOptions configures the interactive cook loop.
type CookOptions struct {
	// In delivers single key presses. Nil disables the keyboard.
	In  io.Reader
	Out io.Writer

	Profile termenv.Profile

	// Inline redraws the status line in place instead of printing a new line per change.
	Inline bool

	Interrupts Interrupts
	Logger     *slog.Logger
}

// Cook starts (or focuses) the session of a recipe and follows it until it
// completes, the user stops it or ctx is done.
//
// Keys: space or p toggles pause, s skips the current step, q stops.
// The first interrupt pauses a running session, the next one stops it.
func Cook(ctx context.Context, k *mise.Kitchen, recipeID string, opts CookOptions) error {
	if opts.Out == nil {
		opts.Out = io.Discard
	}
	if opts.Logger == nil {
		opts.Logger = logging.NewNop()
	}

	if _, err := k.Start(ctx, recipeID); err != nil {
		return err
	}

	updates := make(chan struct{}, 1)
	ended := make(chan domain.EndReason, 1)
	unsubscribe := k.Subscribe(func(e domain.SessionEvent) {
		if e.RecipeID != recipeID {
			return
		}
		if e.Type == domain.EventEnded {
			select {
			case ended <- e.Reason:
			default:
			}
			return
		}
		select {
		case updates <- struct{}{}:
		default:
		}
	})
	defer unsubscribe()

	stop := make(chan struct{})
	defer close(stop)

	var keys <-chan byte
	if opts.In != nil {
		keys = readKeys(NewInterruptibleReader(opts.In, stop), stop)
	}

	var interrupts <-chan struct{}
	if opts.Interrupts != nil {
		interrupts = opts.Interrupts.Done()
	}

	c := &cook{kitchen: k, recipeID: recipeID, opts: opts}
	printSystemMessage(opts.Out, "[space] pause/resume  [s] skip step  [q] stop")
	c.draw(ctx)

	for {
		select {
		case <-ctx.Done():
			c.newline()
			return ctx.Err()

		case reason := <-ended:
			c.newline()
			if reason == domain.EndCompleted {
				printSystemMessage(opts.Out, "All steps done. Enjoy!")
			} else {
				printSystemMessage(opts.Out, "Session %s.", reason)
			}
			return nil

		case <-updates:
			c.draw(ctx)

		case b, ok := <-keys:
			if !ok {
				// Keyboard closed: keep following the session.
				keys = nil
				continue
			}
			c.key(b)

		case <-interrupts:
			c.interrupt()
			opts.Interrupts.Reset()
			interrupts = opts.Interrupts.Done()
		}
	}
}

type cook struct {
	kitchen  *mise.Kitchen
	recipeID string
	opts     CookOptions
	last     string
}

func (c *cook) key(b byte) {
	var err error
	switch b {
	case ' ', 'p', 'P':
		_, err = c.kitchen.Toggle(c.recipeID)
	case 's', 'S':
		_, err = c.kitchen.SkipStep(c.recipeID)
	case 'q', 'Q':
		err = c.kitchen.EndSession(c.recipeID)
	case ctrlC:
		c.interrupt()
	}
	if err != nil && !errors.Is(err, domain.ErrSessionNotFound) {
		c.opts.Logger.Warn("Key ignored", "key", string(b), "err", err)
	}
}

func (c *cook) interrupt() {
	if s, ok := c.kitchen.Session(c.recipeID); ok && s.IsRunning {
		if _, err := c.kitchen.Pause(c.recipeID); err == nil {
			c.newline()
			printSystemMessage(c.opts.Out, "Paused. Interrupt again to stop.")
			c.last = ""
			return
		}
	}
	_ = c.kitchen.EndSession(c.recipeID)
}

func (c *cook) draw(ctx context.Context) {
	p, err := c.kitchen.Progress(ctx, c.recipeID)
	if err != nil || !p.Started() {
		return
	}
	line := tui.StatusLine(p, c.opts.Profile)
	if line == c.last {
		return
	}
	c.last = line

	if c.opts.Inline {
		fmt.Fprint(c.opts.Out, "\r\x1b[2K"+line)
		return
	}
	fmt.Fprintln(c.opts.Out, line)
}

func (c *cook) newline() {
	if c.opts.Inline && c.last != "" {
		fmt.Fprintln(c.opts.Out)
	}
}

// readKeys pumps bytes from r until it fails or stop is closed.
func readKeys(r io.Reader, stop <-chan struct{}) <-chan byte {
	keys := make(chan byte)
	go func() {
		defer close(keys)
		buf := make([]byte, 1)
		for {
			n, err := r.Read(buf)
			if n == 1 {
				select {
				case keys <- buf[0]:
				case <-stop:
					return
				}
			}
			if err != nil {
				return
			}
		}
	}()
	return keys
}
