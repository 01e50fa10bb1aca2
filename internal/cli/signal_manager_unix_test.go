//go:build unix

package cli

import (
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSignalManager_Rearms(t *testing.T) {
	sm := NewSignalManager(syscall.SIGUSR1)
	defer sm.Stop()

	for range 2 {
		assert.NoError(t, syscall.Kill(syscall.Getpid(), syscall.SIGUSR1))
		select {
		case <-sm.Done():
		case <-time.After(time.Second):
			t.Fatal("signal not delivered")
		}
		sm.Reset()
		assert.NoError(t, sm.Context().Err())
	}
}
