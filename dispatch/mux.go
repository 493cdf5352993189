package dispatch

import (
	"errors"
	"fmt"
	"time"

	"github.com/gofrs/uuid"
	"github.com/thrasher-corp/gctwithdraw/common"
	"github.com/thrasher-corp/gctwithdraw/log"
)

// GetNewMux returns a new multiplexer with the supplied pipe buffer size, a
// buffer of 0 or less uses DefaultBuffer
func GetNewMux(buffer int) *Mux {
	if buffer <= 0 {
		buffer = DefaultBuffer
	}
	return &Mux{
		routes:         make(map[uuid.UUID]chan any),
		buffer:         buffer,
		publishTimeout: DefaultPublishTimeout,
	}
}

// Subscribe returns a new pipe which receives every subsequent payload
func (m *Mux) Subscribe() (Pipe, error) {
	if m == nil {
		return Pipe{}, ErrMuxIsNil
	}
	id, err := uuid.NewV4()
	if err != nil {
		return Pipe{}, err
	}
	ch := make(chan any, m.buffer)
	m.mtx.Lock()
	m.routes[id] = ch
	m.mtx.Unlock()
	return Pipe{C: ch, id: id, m: m}, nil
}

// Unsubscribe removes the pipe and closes its channel
func (m *Mux) Unsubscribe(id uuid.UUID) error {
	if m == nil {
		return ErrMuxIsNil
	}
	if id.IsNil() {
		return ErrIDNotSet
	}
	m.mtx.Lock()
	defer m.mtx.Unlock()
	ch, ok := m.routes[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotSubscribed, id)
	}
	delete(m.routes, id)
	close(ch)
	return nil
}

// Publish sends data to every pipe without blocking. A full pipe misses the
// payload.
func (m *Mux) Publish(data any) error {
	if m == nil {
		return ErrMuxIsNil
	}
	if data == nil {
		return errDataIsNil
	}
	m.mtx.RLock()
	defer m.mtx.RUnlock()
	for id, ch := range m.routes {
		select {
		case ch <- data:
		default:
			log.Debugf(log.Global, "dispatch pipe %s full, payload dropped", id)
		}
	}
	return nil
}

// PublishWait sends data to every pipe, waiting up to the publish timeout for
// each full pipe
func (m *Mux) PublishWait(data any) error {
	if m == nil {
		return ErrMuxIsNil
	}
	if data == nil {
		return errDataIsNil
	}
	m.mtx.RLock()
	defer m.mtx.RUnlock()
	var errs error
	for id, ch := range m.routes {
		select {
		case ch <- data:
			continue
		default:
		}
		timer := time.NewTimer(m.publishTimeout)
		select {
		case ch <- data:
		case <-timer.C:
			errs = common.AppendError(errs, fmt.Errorf("%w: pipe %s", ErrPublishTimeout, id))
		}
		timer.Stop()
	}
	return errs
}

// Subscribers returns the number of subscribed pipes
func (m *Mux) Subscribers() int {
	if m == nil {
		return 0
	}
	m.mtx.RLock()
	defer m.mtx.RUnlock()
	return len(m.routes)
}

// ID returns the pipe ID
func (p *Pipe) ID() uuid.UUID {
	return p.id
}

// Release unsubscribes the pipe from its mux
func (p *Pipe) Release() error {
	if p.m == nil {
		return ErrMuxIsNil
	}
	err := p.m.Unsubscribe(p.id)
	if errors.Is(err, ErrNotSubscribed) {
		return nil
	}
	return err
}
