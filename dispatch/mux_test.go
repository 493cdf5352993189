package dispatch

import (
	"sync"
	"testing"
	"time"

	"github.com/gofrs/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNilMux(t *testing.T) {
	t.Parallel()
	var m *Mux
	_, err := m.Subscribe()
	assert.ErrorIs(t, err, ErrMuxIsNil)
	assert.ErrorIs(t, m.Unsubscribe(uuid.Must(uuid.NewV4())), ErrMuxIsNil)
	assert.ErrorIs(t, m.Publish("x"), ErrMuxIsNil)
	assert.ErrorIs(t, m.PublishWait("x"), ErrMuxIsNil)
	assert.Zero(t, m.Subscribers())
}

func TestSubscribeAndPublish(t *testing.T) {
	t.Parallel()
	m := GetNewMux(0)
	assert.Equal(t, DefaultBuffer, m.buffer)
	require.ErrorIs(t, m.Publish(nil), errDataIsNil)
	require.NoError(t, m.Publish("no subscribers"))

	a, err := m.Subscribe()
	require.NoError(t, err)
	b, err := m.Subscribe()
	require.NoError(t, err)
	assert.NotEqual(t, a.ID(), b.ID())
	assert.Equal(t, 2, m.Subscribers())

	require.NoError(t, m.Publish("hello"))
	assert.Equal(t, "hello", <-a.C)
	assert.Equal(t, "hello", <-b.C)

	require.NoError(t, a.Release())
	_, open := <-a.C
	assert.False(t, open, "released pipes must be closed")
	require.NoError(t, a.Release(), "releasing twice must not error")
	assert.Equal(t, 1, m.Subscribers())

	assert.ErrorIs(t, m.Unsubscribe(uuid.Nil), ErrIDNotSet)
	assert.ErrorIs(t, m.Unsubscribe(uuid.Must(uuid.NewV4())), ErrNotSubscribed)
}

func TestPublishDropsWhenFull(t *testing.T) {
	t.Parallel()
	m := GetNewMux(1)
	p, err := m.Subscribe()
	require.NoError(t, err)
	require.NoError(t, m.Publish(1))
	require.NoError(t, m.Publish(2))
	assert.Equal(t, 1, <-p.C)
	select {
	case v := <-p.C:
		t.Fatalf("unexpected payload %v", v)
	default:
	}
}

func TestPublishWait(t *testing.T) {
	t.Parallel()
	m := GetNewMux(1)
	m.publishTimeout = 20 * time.Millisecond
	p, err := m.Subscribe()
	require.NoError(t, err)
	require.NoError(t, m.PublishWait(1))
	assert.ErrorIs(t, m.PublishWait(2), ErrPublishTimeout)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		time.Sleep(5 * time.Millisecond)
		<-p.C
	}()
	m.publishTimeout = time.Second
	require.NoError(t, m.PublishWait(3), "a reader freeing space must unblock the publisher")
	wg.Wait()
	assert.Equal(t, 3, <-p.C)
}
