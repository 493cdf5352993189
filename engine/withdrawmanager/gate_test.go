package withdrawmanager

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/gofrs/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/thrasher-corp/gctwithdraw/portfolio/withdraw"
)

type notification struct {
	t    EventType
	data any
}

type notifier struct {
	mtx    sync.Mutex
	events []notification
	req    chan withdraw.ConfirmationRequest
}

func newNotifier() *notifier {
	return &notifier{req: make(chan withdraw.ConfirmationRequest, 10)}
}

func (n *notifier) notify(t EventType, data any) {
	n.mtx.Lock()
	n.events = append(n.events, notification{t, data})
	n.mtx.Unlock()
	if req, ok := data.(withdraw.ConfirmationRequest); ok && t == EventConfirmationRequested {
		n.req <- req
	}
}

func (n *notifier) count(t EventType) int {
	n.mtx.Lock()
	defer n.mtx.Unlock()
	var c int
	for i := range n.events {
		if n.events[i].t == t {
			c++
		}
	}
	return c
}

func TestIsLarge(t *testing.T) {
	t.Parallel()
	threshold := decimal.NewFromInt(1000)
	assert.True(t, IsLarge(decimal.NewFromInt(10), decimal.NewFromInt(100), threshold), "a value equal to the threshold is large")
	assert.True(t, IsLarge(decimal.NewFromInt(11), decimal.NewFromInt(100), threshold))
	assert.False(t, IsLarge(decimal.RequireFromString("9.99"), decimal.NewFromInt(100), threshold))
}

func TestGateRendezvous(t *testing.T) {
	t.Parallel()
	n := newNotifier()
	g := NewGate(n.notify)

	type result struct {
		resp withdraw.ConfirmationResponse
		err  error
	}
	results := make(chan result, 1)
	go func() {
		resp, err := g.RequestConfirmation(context.Background(), &withdraw.ConfirmationRequest{Coin: "ETH", Amount: decimal.NewFromInt(1), IsLarge: true})
		results <- result{resp, err}
	}()

	var req withdraw.ConfirmationRequest
	select {
	case req = <-n.req:
	case <-time.After(time.Second):
		require.FailNow(t, "confirmation request was not published")
	}
	require.False(t, req.ID.IsNil(), "requests must be assigned an ID")
	assert.Len(t, g.Pending(), 1)

	assert.ErrorIs(t, g.Resolve(uuid.Must(uuid.NewV4()), true, false), ErrUnknownConfirmation)
	require.NoError(t, g.Resolve(req.ID, true, false))
	assert.ErrorIs(t, g.Resolve(req.ID, true, false), ErrConfirmationAlreadyResolved)

	r := <-results
	require.NoError(t, r.err)
	assert.True(t, r.resp.Confirmed)
	assert.False(t, r.resp.ConfirmAll)
	assert.Empty(t, g.Pending())
	assert.Equal(t, 1, n.count(EventConfirmationResolved))
	assert.False(t, g.ConfirmAll())
}

func TestGateConfirmAll(t *testing.T) {
	t.Parallel()
	n := newNotifier()
	g := NewGate(n.notify)

	resolve := func(confirmed, confirmAll bool) withdraw.ConfirmationResponse {
		t.Helper()
		done := make(chan withdraw.ConfirmationResponse, 1)
		go func() {
			resp, err := g.RequestConfirmation(context.Background(), &withdraw.ConfirmationRequest{})
			assert.NoError(t, err)
			done <- resp
		}()
		req := <-n.req
		require.NoError(t, g.Resolve(req.ID, confirmed, confirmAll))
		return <-done
	}

	resp := resolve(false, true)
	assert.False(t, resp.Confirmed)
	assert.False(t, resp.ConfirmAll, "declining must not enable confirm all")
	assert.False(t, g.ConfirmAll())

	resp = resolve(true, true)
	assert.True(t, resp.Confirmed)
	assert.True(t, g.ConfirmAll())

	resp, err := g.RequestConfirmation(context.Background(), &withdraw.ConfirmationRequest{})
	require.NoError(t, err)
	assert.True(t, resp.Confirmed, "confirm all must approve later requests without waiting")
	assert.Equal(t, 2, n.count(EventConfirmationRequested))

	g.Reset()
	assert.False(t, g.ConfirmAll(), "reset must clear confirm all")
}

func TestGateCancellation(t *testing.T) {
	t.Parallel()
	n := newNotifier()
	g := NewGate(n.notify)

	_, err := g.RequestConfirmation(context.Background(), nil)
	assert.ErrorIs(t, err, withdraw.ErrRequestCannotBeNil)

	ctx, cancel := context.WithCancel(context.Background())
	errs := make(chan error, 1)
	go func() {
		_, err := g.RequestConfirmation(ctx, &withdraw.ConfirmationRequest{})
		errs <- err
	}()
	req := <-n.req
	cancel()
	assert.ErrorIs(t, <-errs, ErrConfirmationCancelled)
	assert.ErrorIs(t, g.Resolve(req.ID, true, false), ErrConfirmationAlreadyResolved)

	responses := make(chan withdraw.ConfirmationResponse, 1)
	go func() {
		resp, err := g.RequestConfirmation(context.Background(), &withdraw.ConfirmationRequest{})
		assert.NoError(t, err)
		responses <- resp
	}()
	<-n.req
	g.CancelPending()
	assert.False(t, (<-responses).Confirmed, "cancelled requests must be declined")
	assert.Empty(t, g.Pending())
}
