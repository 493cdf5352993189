package withdrawmanager

import (
	"context"
	"fmt"

	"github.com/gofrs/uuid"
	"github.com/shopspring/decimal"
	"github.com/thrasher-corp/gctwithdraw/portfolio/withdraw"
)

// NewGate returns a confirmation gate which reports requests and decisions
// through notify
func NewGate(notify func(EventType, any)) *Gate {
	return &Gate{
		pending:  make(map[uuid.UUID]*pendingConfirmation),
		resolved: make(map[uuid.UUID]struct{}),
		notify:   notify,
	}
}

// IsLarge reports whether amount valued at price meets the USD threshold
func IsLarge(amount, price, thresholdUSD decimal.Decimal) bool {
	return amount.Mul(price).GreaterThanOrEqual(thresholdUSD)
}

// RequestConfirmation publishes the request and blocks until it is resolved
// or ctx is done. Once a response has confirmed all, every later request is
// approved without waiting.
func (g *Gate) RequestConfirmation(ctx context.Context, req *withdraw.ConfirmationRequest) (withdraw.ConfirmationResponse, error) {
	if req == nil {
		return withdraw.ConfirmationResponse{}, withdraw.ErrRequestCannotBeNil
	}
	if req.ID.IsNil() {
		id, err := uuid.NewV4()
		if err != nil {
			return withdraw.ConfirmationResponse{}, err
		}
		req.ID = id
	}

	g.mtx.Lock()
	if g.confirmAll {
		g.mtx.Unlock()
		return withdraw.ConfirmationResponse{ID: req.ID, Confirmed: true, ConfirmAll: true}, nil
	}
	p := &pendingConfirmation{
		req:  *req,
		resp: make(chan withdraw.ConfirmationResponse, 1),
	}
	g.pending[req.ID] = p
	g.mtx.Unlock()

	if g.notify != nil {
		g.notify(EventConfirmationRequested, *req)
	}

	select {
	case resp := <-p.resp:
		return resp, nil
	case <-ctx.Done():
		g.mtx.Lock()
		delete(g.pending, req.ID)
		g.resolved[req.ID] = struct{}{}
		g.mtx.Unlock()
		return withdraw.ConfirmationResponse{ID: req.ID}, fmt.Errorf("%w: %w", ErrConfirmationCancelled, ctx.Err())
	}
}

// Resolve delivers the operator decision for id. Each ID can be resolved
// once.
func (g *Gate) Resolve(id uuid.UUID, confirmed, confirmAll bool) error {
	g.mtx.Lock()
	p, ok := g.pending[id]
	if !ok {
		_, done := g.resolved[id]
		g.mtx.Unlock()
		if done {
			return fmt.Errorf("%w: %s", ErrConfirmationAlreadyResolved, id)
		}
		return fmt.Errorf("%w: %s", ErrUnknownConfirmation, id)
	}
	delete(g.pending, id)
	g.resolved[id] = struct{}{}
	confirmAll = confirmed && confirmAll
	if confirmAll {
		g.confirmAll = true
	}
	g.mtx.Unlock()

	resp := withdraw.ConfirmationResponse{ID: id, Confirmed: confirmed, ConfirmAll: confirmAll}
	p.resp <- resp
	if g.notify != nil {
		g.notify(EventConfirmationResolved, resp)
	}
	return nil
}

// CancelPending declines every request still waiting for a decision
func (g *Gate) CancelPending() {
	g.mtx.Lock()
	cancelled := make([]withdraw.ConfirmationResponse, 0, len(g.pending))
	for id, p := range g.pending {
		resp := withdraw.ConfirmationResponse{ID: id}
		p.resp <- resp
		cancelled = append(cancelled, resp)
		g.resolved[id] = struct{}{}
		delete(g.pending, id)
	}
	g.mtx.Unlock()
	if g.notify == nil {
		return
	}
	for i := range cancelled {
		g.notify(EventConfirmationResolved, cancelled[i])
	}
}

// Reset declines pending requests and clears confirm all for a new run
func (g *Gate) Reset() {
	g.CancelPending()
	g.mtx.Lock()
	g.confirmAll = false
	g.resolved = make(map[uuid.UUID]struct{})
	g.mtx.Unlock()
}

// ConfirmAll reports whether the operator approved all remaining requests
func (g *Gate) ConfirmAll() bool {
	g.mtx.Lock()
	defer g.mtx.Unlock()
	return g.confirmAll
}

// Pending returns the requests awaiting a decision
func (g *Gate) Pending() []withdraw.ConfirmationRequest {
	g.mtx.Lock()
	defer g.mtx.Unlock()
	resp := make([]withdraw.ConfirmationRequest, 0, len(g.pending))
	for _, p := range g.pending {
		resp = append(resp, p.req)
	}
	return resp
}
