package signaler

import (
	"os"
	"runtime"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sendSignal(t *testing.T, sig os.Signal) {
	t.Helper()
	proc, err := os.FindProcess(os.Getpid())
	require.NoError(t, err)
	if err := proc.Signal(sig); err != nil {
		if runtime.GOOS == "windows" {
			t.Skipf("signal %s not supported on windows: %v", sig, err)
		}
		require.NoError(t, err)
	}
}

func TestWaitForInterrupt(t *testing.T) {
	for _, sig := range []os.Signal{syscall.SIGTERM, os.Interrupt} {
		c := WaitForInterrupt()
		sendSignal(t, sig)
		select {
		case got := <-c:
			assert.Equal(t, sig, got)
		case <-time.After(2 * time.Second):
			t.Fatalf("signal %s not received", sig)
		}
		Release(c)
	}
}

func TestRelease(t *testing.T) {
	keep := WaitForInterrupt()
	defer Release(keep)
	released := WaitForInterrupt()
	Release(released)

	sendSignal(t, syscall.SIGTERM)
	select {
	case <-keep:
	case <-time.After(2 * time.Second):
		t.Fatal("signal not received on registered channel")
	}
	select {
	case sig := <-released:
		t.Fatalf("released channel received %s", sig)
	case <-time.After(50 * time.Millisecond):
	}
}
