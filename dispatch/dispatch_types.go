package dispatch

import (
	"errors"
	"sync"
	"time"

	"github.com/gofrs/uuid"
)

const (
	// DefaultBuffer is the channel capacity of each subscriber pipe
	DefaultBuffer = 512
	// DefaultPublishTimeout bounds how long PublishWait blocks on a full pipe
	DefaultPublishTimeout = 5 * time.Second
)

var (
	// ErrMuxIsNil is returned when a nil mux is used
	ErrMuxIsNil = errors.New("mux is nil")
	// ErrIDNotSet is returned when a pipe ID is empty
	ErrIDNotSet = errors.New("id not set")
	// ErrNotSubscribed is returned when unsubscribing an unknown pipe
	ErrNotSubscribed = errors.New("pipe not subscribed")
	// ErrPublishTimeout is returned when a pipe did not accept a payload in
	// time
	ErrPublishTimeout = errors.New("publish timed out")

	errDataIsNil = errors.New("data payload is nil")
)

// Mux fans out published payloads to every subscribed pipe
type Mux struct {
	mtx            sync.RWMutex
	routes         map[uuid.UUID]chan any
	buffer         int
	publishTimeout time.Duration
}

// Pipe is a subscription to a Mux
type Pipe struct {
	C  <-chan any
	id uuid.UUID
	m  *Mux
}
