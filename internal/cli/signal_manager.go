package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"
)

// SignalManager turns OS signals into a re-armable stream of interrupts:
// the cook loop pauses on the first Ctrl+C and only stops on the next one.
// It also papers over platform races (e.g. Windows Stdin EOF vs Interrupt).
type SignalManager struct {
	signals []os.Signal
	ctx     context.Context
	cancel  context.CancelFunc
}

// NewSignalManager starts listening for signals immediately.
// Without arguments it captures SIGINT (Ctrl+C) and SIGTERM.
func NewSignalManager(signals ...os.Signal) *SignalManager {
	if len(signals) == 0 {
		signals = []os.Signal{os.Interrupt, syscall.SIGTERM}
	}
	sm := &SignalManager{signals: signals}
	sm.Reset()
	return sm
}

// Context returns the current signal context.
func (sm *SignalManager) Context() context.Context {
	return sm.ctx
}

// Done is closed when the next signal arrives.
func (sm *SignalManager) Done() <-chan struct{} {
	return sm.ctx.Done()
}

// Reset re-arms the listener once a signal has been handled.
func (sm *SignalManager) Reset() {
	if sm.cancel != nil {
		sm.cancel()
	}
	sm.ctx, sm.cancel = signal.NotifyContext(context.Background(), sm.signals...)
}

// Stop permanently stops the signal listener.
func (sm *SignalManager) Stop() {
	if sm.cancel != nil {
		sm.cancel()
	}
}

// CheckRace waits briefly to see if a signal follows an input error.
// On Windows/PowerShell Ctrl+C surfaces as an EOF slightly before the signal.
func (sm *SignalManager) CheckRace() bool {
	if sm.ctx.Err() == nil {
		select {
		case <-sm.ctx.Done():
		case <-time.After(100 * time.Millisecond):
			return false
		}
	}
	return true
}
