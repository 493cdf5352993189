package signaler

import (
	"os"
	"os/signal"
	"syscall"
)

// WaitForInterrupt returns a channel which receives interrupt and terminate
// signals
func WaitForInterrupt() chan os.Signal {
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)
	return c
}

// Release stops signal delivery to a channel returned by WaitForInterrupt
func Release(c chan os.Signal) {
	signal.Stop(c)
}
