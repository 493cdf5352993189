package withdrawmanager

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/gofrs/uuid"
	"github.com/shopspring/decimal"
	"github.com/thrasher-corp/gctwithdraw/config"
	dbwithdraw "github.com/thrasher-corp/gctwithdraw/database/repository/withdraw"
	"github.com/thrasher-corp/gctwithdraw/dispatch"
	exchange "github.com/thrasher-corp/gctwithdraw/exchanges"
	"github.com/thrasher-corp/gctwithdraw/log"
	"github.com/thrasher-corp/gctwithdraw/portfolio/withdraw"
	"github.com/volatiletech/null"
)

// String implements the stringer interface
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRunning:
		return "running"
	case StateStopping:
		return "stopping"
	case StateFinished:
		return "finished"
	default:
		return fmt.Sprintf("unknown (%d)", int32(s))
	}
}

// SetupWithdrawManager creates a new withdraw manager
func SetupWithdrawManager(cfg *config.WithdrawalConfig, isDryRun bool) (*Manager, error) {
	if cfg == nil {
		return nil, ErrNilConfig
	}
	precision := cfg.DefaultPrecision
	if precision <= 0 {
		precision = DefaultPrecision
	}
	m := &Manager{
		warningThresholdUSD: cfg.WarningThresholdUSD,
		enableWarning:       cfg.EnableWarning == nil || *cfg.EnableWarning,
		defaultPrecision:    precision,
		isDryRun:            isDryRun,
		planner:             NewPlanner(0),
		mux:                 dispatch.GetNewMux(0),
		pollInterval:        defaultPollInterval,
		tickInterval:        defaultTickInterval,
		intervalUnit:        time.Second,
		runState:            withdraw.RunState{UsedAddresses: make(map[string]struct{})},
	}
	m.gate = NewGate(m.emit)
	return m, nil
}

// SetGateway sets the exchange the manager withdraws from and clears its
// cached exchange data
func (m *Manager) SetGateway(gw exchange.Gateway) error {
	if m == nil {
		return ErrNilSubsystem
	}
	if gw == nil {
		return ErrNilGateway
	}
	m.mtx.Lock()
	defer m.mtx.Unlock()
	if m.isActive() {
		return ErrGatewayInUse
	}
	gw.PurgeCache()
	m.gateway = gw
	log.Infof(log.WithdrawMgr, "Withdraw manager using %s", gw.GetName())
	return nil
}

// Gateway returns the current exchange gateway
func (m *Manager) Gateway() exchange.Gateway {
	if m == nil {
		return nil
	}
	m.mtx.Lock()
	defer m.mtx.Unlock()
	return m.gateway
}

// SetRecorder sets where withdrawal attempts are persisted, nil disables
// persistence
func (m *Manager) SetRecorder(r Recorder) error {
	if m == nil {
		return ErrNilSubsystem
	}
	m.mtx.Lock()
	m.recorder = r
	m.mtx.Unlock()
	return nil
}

// LoadAddresses replaces the destination list and resets the used address set
func (m *Manager) LoadAddresses(records []withdraw.AddressRecord) error {
	if m == nil {
		return ErrNilSubsystem
	}
	m.mtx.Lock()
	defer m.mtx.Unlock()
	if m.isActive() {
		return ErrBatchAlreadyRunning
	}
	m.addresses = append([]withdraw.AddressRecord(nil), records...)
	m.runState.UsedAddresses = make(map[string]struct{})
	log.Infof(log.WithdrawMgr, "Withdraw manager loaded %d addresses", len(records))
	return nil
}

// Addresses returns a copy of the loaded destination list
func (m *Manager) Addresses() []withdraw.AddressRecord {
	if m == nil {
		return nil
	}
	m.mtx.Lock()
	defer m.mtx.Unlock()
	return append([]withdraw.AddressRecord(nil), m.addresses...)
}

// Subscribe returns a pipe receiving every manager event
func (m *Manager) Subscribe() (dispatch.Pipe, error) {
	if m == nil {
		return dispatch.Pipe{}, ErrNilSubsystem
	}
	return m.mux.Subscribe()
}

// IsRunning reports whether a batch is in progress
func (m *Manager) IsRunning() bool {
	return m != nil && m.running.Load()
}

// Start validates params against the loaded addresses and starts a batch on
// a worker goroutine
func (m *Manager) Start(params *withdraw.BatchParameters) (uuid.UUID, error) {
	if m == nil {
		return uuid.Nil, ErrNilSubsystem
	}
	if params == nil {
		return uuid.Nil, withdraw.ErrRequestCannotBeNil
	}
	m.mtx.Lock()
	defer m.mtx.Unlock()
	if m.isActive() {
		return uuid.Nil, ErrBatchAlreadyRunning
	}
	if m.gateway == nil {
		return uuid.Nil, ErrNilGateway
	}
	if err := params.Validate(len(m.addresses)); err != nil {
		return uuid.Nil, err
	}
	runID, err := uuid.NewV4()
	if err != nil {
		return uuid.Nil, err
	}

	p := *params
	p.Coin = strings.ToUpper(strings.TrimSpace(p.Coin))
	p.Network = strings.TrimSpace(p.Network)
	m.runID = runID
	m.params = &p
	m.state = StateRunning
	m.running.Store(true)
	m.runState.Running = true
	m.runState.Processed = 0
	m.runState.Total = p.Total()
	m.done = make(chan struct{})
	waitCtx, cancel := context.WithCancel(context.Background())
	m.cancelWait = cancel

	plan := &runPlan{
		runID:     runID,
		gateway:   m.gateway,
		params:    p,
		addresses: append([]withdraw.AddressRecord(nil), m.addresses...),
	}
	log.Infof(log.WithdrawMgr,
		"Batch %s starting: %s on %s via %s, addresses %d to %d, amount %s to %s, interval %ds to %ds",
		runID,
		p.Coin,
		p.Network,
		m.gateway.GetName(),
		p.StartIndex+1,
		p.EndIndex+1,
		p.MinAmount,
		p.MaxAmount,
		p.MinInterval,
		p.MaxInterval)
	go m.run(waitCtx, plan, m.done)
	return runID, nil
}

// Stop requests the running batch to finish after the current step. It is
// safe to call at any time.
func (m *Manager) Stop() error {
	if m == nil {
		return ErrNilSubsystem
	}
	m.mtx.Lock()
	if m.state == StateRunning {
		m.state = StateStopping
		m.running.Store(false)
		m.runState.Running = false
		if m.cancelWait != nil {
			m.cancelWait()
		}
		log.Infof(log.WithdrawMgr, "Batch %s stop requested", m.runID)
	}
	m.mtx.Unlock()
	m.gate.CancelPending()
	return nil
}

// Wait blocks until the current batch has finished or ctx is done
func (m *Manager) Wait(ctx context.Context) error {
	if m == nil {
		return ErrNilSubsystem
	}
	m.mtx.Lock()
	done := m.done
	m.mtx.Unlock()
	if done == nil {
		return nil
	}
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Resolve delivers an operator decision to a pending confirmation
func (m *Manager) Resolve(id uuid.UUID, confirmed, confirmAll bool) error {
	if m == nil {
		return ErrNilSubsystem
	}
	return m.gate.Resolve(id, confirmed, confirmAll)
}

// PendingConfirmations returns the confirmations awaiting a decision
func (m *Manager) PendingConfirmations() []withdraw.ConfirmationRequest {
	if m == nil {
		return nil
	}
	return m.gate.Pending()
}

// Snapshot returns the current manager state
func (m *Manager) Snapshot() Snapshot {
	if m == nil {
		return Snapshot{State: StateIdle.String()}
	}
	m.mtx.Lock()
	defer m.mtx.Unlock()
	s := Snapshot{
		State:         m.state.String(),
		RunID:         m.runID,
		Running:       m.running.Load(),
		Processed:     m.runState.Processed,
		Total:         m.runState.Total,
		Addresses:     len(m.addresses),
		UsedAddresses: m.usedAddresses(),
		ConfirmAll:    m.gate.ConfirmAll(),
		Pending:       m.gate.Pending(),
	}
	if m.gateway != nil {
		s.Exchange = m.gateway.GetName()
	}
	if m.params != nil {
		p := *m.params
		s.Params = &p
	}
	if m.lastSummary != nil {
		summary := *m.lastSummary
		s.LastSummary = &summary
	}
	return s
}

// usedAddresses must be called with the lock held
func (m *Manager) usedAddresses() []string {
	resp := make([]string, 0, len(m.runState.UsedAddresses))
	for addr := range m.runState.UsedAddresses {
		resp = append(resp, addr)
	}
	sort.Strings(resp)
	return resp
}

// isActive must be called with the lock held
func (m *Manager) isActive() bool {
	return m.state == StateRunning || m.state == StateStopping
}

// run is the batch worker. batch_finished is emitted exactly once whatever
// the exit path.
func (m *Manager) run(waitCtx context.Context, p *runPlan, done chan struct{}) {
	summary := &Summary{RunID: p.runID, Total: p.params.Total()}
	defer func() {
		if r := recover(); r != nil {
			summary.Err = fmt.Errorf("%w: %v", errUnexpectedFailure, r)
			log.Errorf(log.WithdrawMgr, "Batch %s aborted: %v", p.runID, summary.Err)
		}
		m.finish(summary, done)
	}()

	m.gate.Reset()
	ctx := context.Background()
	m.resolveRunSettings(ctx, p)

	for i := p.params.StartIndex; i <= p.params.EndIndex; i++ {
		if !m.running.Load() {
			summary.Cancelled = true
			m.logf(p.runID, SeverityInfo, "Stop requested, exiting before address %d", i+1)
			break
		}

		result, err := m.processAddress(ctx, waitCtx, p, i)
		switch result {
		case outcomeSucceeded:
			summary.Succeeded++
		case outcomeSkipped:
			summary.Skipped++
		case outcomeFailed:
			summary.Failed++
		}
		summary.Processed = m.incrementProcessed(p.runID, summary.Total)
		if err != nil {
			summary.Err = err
			break
		}

		if result == outcomeSkipped || i == p.params.EndIndex {
			continue
		}
		if !m.pace(waitCtx, p) {
			summary.Cancelled = true
			m.logf(p.runID, SeverityInfo, "Stop requested while waiting, exiting")
			break
		}
	}
}

// resolveRunSettings fetches precision, fee and price once per run. Every
// failure degrades to a safe default.
func (m *Manager) resolveRunSettings(ctx context.Context, p *runPlan) {
	coin, network := p.params.Coin, p.params.Network

	precision, err := p.gateway.GetWithdrawPrecision(ctx, coin, network)
	switch {
	case err != nil:
		m.logf(p.runID, SeverityWarn, "Unable to fetch %s %s withdrawal precision, using %d decimals: %v", coin, network, m.defaultPrecision, err)
		precision = m.defaultPrecision
	case precision < 0:
		m.logf(p.runID, SeverityWarn, "Invalid %s %s withdrawal precision %d, using %d decimals", coin, network, precision, m.defaultPrecision)
		precision = m.defaultPrecision
	default:
		m.logf(p.runID, SeverityInfo, "%s %s withdrawal precision: %d decimals", coin, network, precision)
	}
	p.precision = precision

	fee, err := p.gateway.GetWithdrawalFee(ctx, coin, network)
	switch {
	case err != nil:
		m.logf(p.runID, SeverityWarn, "Unable to fetch %s %s withdrawal fee, using 0: %v", coin, network, err)
		fee = decimal.Zero
	case fee.IsNegative():
		m.logf(p.runID, SeverityWarn, "Invalid %s %s withdrawal fee %s, using 0", coin, network, fee)
		fee = decimal.Zero
	default:
		m.logf(p.runID, SeverityInfo, "%s %s withdrawal fee: %s", coin, network, fee)
	}
	p.fee = fee

	if !m.enableWarning {
		return
	}
	price, err := p.gateway.GetPrice(ctx, coin)
	if err != nil || !price.IsPositive() {
		m.logf(p.runID, SeverityWarn, "Unable to fetch %s USD price, large withdrawal confirmation disabled: %v", coin, err)
		return
	}
	p.price, p.hasPrice = price, true
	m.logf(p.runID, SeverityDebug, "%s USD price: %s", coin, price)
}

// processAddress performs every step for the address at index i. A returned
// error is fatal to the run.
func (m *Manager) processAddress(ctx, waitCtx context.Context, p *runPlan, i int) (result outcome, err error) {
	display := i + 1
	defer func() {
		if r := recover(); r != nil {
			m.logf(p.runID, SeverityError, "Address %d failed unexpectedly: %v", display, r)
			result, err = outcomeFailed, nil
		}
	}()

	rec := p.addresses[i]
	address := strings.TrimSpace(rec.Address)
	if address == "" {
		m.logf(p.runID, SeverityWarn, "Address %d is empty, skipping", display)
		return outcomeSkipped, nil
	}
	masked := withdraw.MaskAddress(address)

	raw, err := m.planner.Draw(p.params.MinAmount, p.params.MaxAmount)
	if err != nil {
		m.logf(p.runID, SeverityError, "Address %d unable to plan amount, skipping: %v", display, err)
		return outcomeSkipped, nil
	}
	plan := withdraw.Plan{
		Index:     i,
		Address:   address,
		Label:     rec.Label,
		RawAmount: raw,
		Amount:    Quantize(raw, p.precision),
		Precision: p.precision,
		Fee:       p.fee,
	}
	if !plan.Amount.IsPositive() {
		m.logf(p.runID, SeverityWarn, "Address %d amount %s rounds to zero at %d decimals, skipping", display, raw, p.precision)
		return outcomeSkipped, nil
	}
	m.logf(p.runID, SeverityDebug, "Address %d %s planned %s %s", display, masked, plan.Amount.StringFixed(int32(plan.Precision)), p.params.Coin)

	if m.enableWarning && p.hasPrice && !m.gate.ConfirmAll() {
		usdValue := plan.Amount.Mul(p.price)
		if IsLarge(plan.Amount, p.price, m.warningThresholdUSD) {
			m.logf(p.runID, SeverityWarn, "Address %d withdrawal of $%s meets the $%s threshold, awaiting confirmation", display, usdValue.StringFixed(2), m.warningThresholdUSD.StringFixed(2))
			resp, err := m.gate.RequestConfirmation(waitCtx, &withdraw.ConfirmationRequest{
				Coin:     p.params.Coin,
				Network:  p.params.Network,
				Amount:   plan.Amount,
				Address:  address,
				Memo:     rec.Label,
				IsLarge:  true,
				USDValue: usdValue,
			})
			if err != nil || !resp.Confirmed {
				m.logf(p.runID, SeverityWarn, "Address %d withdrawal declined, skipping", display)
				return outcomeSkipped, nil
			}
		}
	}

	balance, err := p.gateway.GetBalance(ctx, p.params.Coin)
	if err != nil {
		m.logf(p.runID, SeverityWarn, "Address %d unable to fetch %s balance, skipping: %v", display, p.params.Coin, err)
		return outcomeSkipped, nil
	}
	required := plan.Amount.Add(plan.Fee)
	if balance.LessThan(required) {
		m.logf(p.runID, SeverityWarn, "Address %d insufficient balance (required: %s, available: %s), skipping", display, required, balance)
		return outcomeSkipped, nil
	}

	destination := address
	if enc, ok := p.gateway.(exchange.AddressEncoder); ok {
		destination = enc.EncodeAddress(address, rec.Label)
	}

	req := &withdraw.Request{
		Exchange:  p.gateway.GetName(),
		Coin:      p.params.Coin,
		Network:   p.params.Network,
		Address:   destination,
		Amount:    plan.Amount,
		Precision: plan.Precision,
		Fee:       plan.Fee,
	}
	m.logf(p.runID, SeverityInfo, "Address %d withdrawing %s %s to %s", display, req.AmountString(), req.Coin, withdraw.MaskAddress(destination))

	var exchangeID string
	if m.isDryRun {
		log.Warnln(log.WithdrawMgr, "Dry run enabled, no withdrawal request will be submitted")
		exchangeID = DryRunID
	} else {
		resp, err := p.gateway.Withdraw(ctx, req)
		if err != nil {
			m.record(ctx, p, &plan, dbwithdraw.StatusFailed, "", err)
			if errors.Is(err, exchange.ErrTimestampDesync) {
				m.logf(p.runID, SeverityError, "Address %d withdrawal rejected due to a clock mismatch with %s, synchronise the system clock before retrying. Batch stopped: %v", display, req.Exchange, err)
				return outcomeFailed, err
			}
			m.logf(p.runID, SeverityError, "Address %d withdrawal failed: %v", display, err)
			return outcomeFailed, nil
		}
		exchangeID = resp.ExchangeID
	}

	m.markUsed(address)
	m.record(ctx, p, &plan, dbwithdraw.StatusSuccess, exchangeID, nil)
	m.logf(p.runID, SeveritySuccess, "Address %d withdrawal submitted: %s", display, exchangeID)
	return outcomeSucceeded, nil
}

// pace waits a random interval before the next withdrawal. It returns false
// when the batch was stopped during the wait.
func (m *Manager) pace(waitCtx context.Context, p *runPlan) bool {
	seconds := m.planner.Interval(p.params.MinInterval, p.params.MaxInterval)
	wait := time.Duration(seconds) * m.intervalUnit
	if wait <= 0 {
		return m.running.Load()
	}
	m.logf(p.runID, SeverityDebug, "Waiting %s before the next withdrawal", wait)

	deadline := time.Now().Add(wait)
	var lastTick time.Time
	timer := time.NewTimer(0)
	defer timer.Stop()
	<-timer.C
	for {
		if !m.running.Load() {
			return false
		}
		now := time.Now()
		remaining := deadline.Sub(now)
		if remaining <= 0 {
			m.emitFor(p.runID, EventWaitTick, WaitTick{})
			return true
		}
		if now.Sub(lastTick) >= m.tickInterval {
			m.emitFor(p.runID, EventWaitTick, WaitTick{Remaining: remaining, Seconds: int(remaining.Round(time.Second) / time.Second)})
			lastTick = now
		}
		sleep := m.pollInterval
		if remaining < sleep {
			sleep = remaining
		}
		timer.Reset(sleep)
		select {
		case <-timer.C:
		case <-waitCtx.Done():
			return false
		}
	}
}

// finish records the run outcome and releases the manager for the next run
func (m *Manager) finish(s *Summary, done chan struct{}) {
	if s.Err != nil {
		s.Error = s.Err.Error()
	}
	// Declined while the state is still active so a new run cannot lose its
	// first confirmation to this cleanup.
	m.gate.CancelPending()
	m.mtx.Lock()
	m.state = StateFinished
	m.running.Store(false)
	m.runState.Running = false
	if m.cancelWait != nil {
		m.cancelWait()
		m.cancelWait = nil
	}
	summary := *s
	m.lastSummary = &summary
	m.mtx.Unlock()

	log.Infof(log.WithdrawMgr,
		"Batch %s finished: processed %d/%d, succeeded %d, skipped %d, failed %d, cancelled %v",
		s.RunID,
		s.Processed,
		s.Total,
		s.Succeeded,
		s.Skipped,
		s.Failed,
		s.Cancelled)
	m.emitFor(s.RunID, EventBatchFinished, summary)
	close(done)
}

func (m *Manager) incrementProcessed(runID uuid.UUID, total int) int {
	m.mtx.Lock()
	m.runState.Processed++
	processed := m.runState.Processed
	m.mtx.Unlock()
	m.emitFor(runID, EventProgress, Progress{Processed: processed, Total: total})
	return processed
}

func (m *Manager) markUsed(address string) {
	m.mtx.Lock()
	m.runState.UsedAddresses[address] = struct{}{}
	m.mtx.Unlock()
}

// record persists a withdrawal attempt, failures are logged only
func (m *Manager) record(ctx context.Context, p *runPlan, plan *withdraw.Plan, status, exchangeID string, withdrawErr error) {
	m.mtx.Lock()
	r := m.recorder
	m.mtx.Unlock()
	if r == nil {
		return
	}
	rec := &dbwithdraw.Record{
		RunID:        p.runID,
		Exchange:     p.gateway.GetName(),
		Coin:         p.params.Coin,
		Network:      p.params.Network,
		Address:      plan.Address,
		AddressIndex: plan.Index,
		Amount:       plan.Amount,
		Fee:          plan.Fee,
		Status:       status,
		CreatedAt:    time.Now().UTC(),
	}
	if plan.Label != "" {
		rec.Label = null.StringFrom(plan.Label)
	}
	if exchangeID != "" {
		rec.ExchangeID = null.StringFrom(exchangeID)
	}
	if withdrawErr != nil {
		rec.Error = null.StringFrom(withdrawErr.Error())
	}
	if err := r.Event(ctx, rec); err != nil {
		log.Errorf(log.WithdrawMgr, "Batch %s unable to record withdrawal to %s: %v", p.runID, withdraw.MaskAddress(plan.Address), err)
	}
}

// logf writes to the withdraw sub logger and publishes a log event
func (m *Manager) logf(runID uuid.UUID, severity Severity, format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	switch severity {
	case SeverityDebug:
		log.Debugln(log.WithdrawMgr, msg)
	case SeverityWarn:
		log.Warnln(log.WithdrawMgr, msg)
	case SeverityError:
		log.Errorln(log.WithdrawMgr, msg)
	default:
		log.Infoln(log.WithdrawMgr, msg)
	}
	m.emitFor(runID, EventLog, LogMessage{Message: msg, Severity: severity})
}

// emit publishes an event for the current run
func (m *Manager) emit(t EventType, data any) {
	m.mtx.Lock()
	runID := m.runID
	m.mtx.Unlock()
	m.emitFor(runID, t, data)
}

func (m *Manager) emitFor(runID uuid.UUID, t EventType, data any) {
	evt := Event{Type: t, RunID: runID, Time: time.Now(), Data: data}
	var err error
	switch t {
	case EventBatchFinished, EventConfirmationRequested, EventConfirmationResolved:
		err = m.mux.PublishWait(evt)
	default:
		err = m.mux.Publish(evt)
	}
	if err != nil {
		log.Warnf(log.WithdrawMgr, "Unable to publish %s event: %v", t, err)
	}
}
