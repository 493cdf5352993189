package withdrawmanager

import (
	"math/rand"
	"time"

	"github.com/shopspring/decimal"
	"github.com/thrasher-corp/gctwithdraw/portfolio/withdraw"
)

// Quantize truncates raw toward zero to precision fractional digits
func Quantize(raw decimal.Decimal, precision int) decimal.Decimal {
	if precision < 0 {
		precision = 0
	}
	return raw.Truncate(int32(precision))
}

// NewPlanner returns a planner seeded with seed, a seed of 0 uses the current
// time
func NewPlanner(seed int64) *Planner {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &Planner{rnd: rand.New(rand.NewSource(seed))} //nolint:gosec // amounts are not security sensitive
}

// Draw returns a uniformly distributed raw amount in [min, max]
func (p *Planner) Draw(minAmount, maxAmount decimal.Decimal) (decimal.Decimal, error) {
	if !minAmount.IsPositive() {
		return decimal.Zero, withdraw.ErrAmountMustBeGreaterThanZero
	}
	if minAmount.GreaterThan(maxAmount) {
		return decimal.Zero, withdraw.ErrInvalidAmountRange
	}
	p.mtx.Lock()
	f := p.rnd.Float64()
	p.mtx.Unlock()
	raw := minAmount.Add(maxAmount.Sub(minAmount).Mul(decimal.NewFromFloat(f)))
	if raw.GreaterThan(maxAmount) {
		raw = maxAmount
	}
	return raw, nil
}

// Plan draws an amount in [min, max] truncated to precision. A result of
// zero must be skipped by the caller.
func (p *Planner) Plan(minAmount, maxAmount decimal.Decimal, precision int) (decimal.Decimal, error) {
	if precision < 0 {
		return decimal.Zero, withdraw.ErrInvalidPrecision
	}
	raw, err := p.Draw(minAmount, maxAmount)
	if err != nil {
		return decimal.Zero, err
	}
	return Quantize(raw, precision), nil
}

// Interval returns a uniformly distributed whole number of seconds in
// [min, max]. Both bounds are clamped to [0, withdraw.MaxIntervalSeconds].
func (p *Planner) Interval(minInterval, maxInterval int) int {
	minInterval = clampInterval(minInterval)
	maxInterval = clampInterval(maxInterval)
	if maxInterval <= minInterval {
		return minInterval
	}
	p.mtx.Lock()
	defer p.mtx.Unlock()
	return minInterval + p.rnd.Intn(maxInterval-minInterval+1)
}

func clampInterval(seconds int) int {
	switch {
	case seconds < 0:
		return 0
	case seconds > withdraw.MaxIntervalSeconds:
		return withdraw.MaxIntervalSeconds
	default:
		return seconds
	}
}
