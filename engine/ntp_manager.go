package engine

import (
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/thrasher-corp/gctwithdraw/config"
	"github.com/thrasher-corp/gctwithdraw/engine/subsystem"
	"github.com/thrasher-corp/gctwithdraw/log"
	"github.com/thrasher-corp/gctwithdraw/ntpclient"
)

const (
	defaultNTPCheckInterval = time.Hour
	defaultRetryLimit       = 3
)

// ntpManager checks the local clock against NTP servers. Exchanges reject
// signed withdrawals with skewed timestamps so drift is reported early.
type ntpManager struct {
	started                   int32
	shutdown                  chan struct{}
	level                     int64
	allowedDifference         time.Duration
	allowedNegativeDifference time.Duration
	pools                     []string
	checkInterval             time.Duration
	retryLimit                int
	fetch                     func([]string) time.Time
}

// setupNTPManager creates a new NTP manager
func setupNTPManager(cfg *config.NTPClientConfig) (*ntpManager, error) {
	if cfg == nil {
		return nil, errNilConfig
	}
	if cfg.AllowedNegativeDifference == nil ||
		cfg.AllowedDifference == nil {
		return nil, errNilNTPConfigValues
	}
	return &ntpManager{
		shutdown:                  make(chan struct{}),
		level:                     int64(cfg.Level),
		allowedDifference:         *cfg.AllowedDifference,
		allowedNegativeDifference: *cfg.AllowedNegativeDifference,
		pools:                     cfg.Pool,
		checkInterval:             defaultNTPCheckInterval,
		retryLimit:                defaultRetryLimit,
		fetch:                     ntpclient.NTPClient,
	}, nil
}

// IsRunning safely checks whether the subsystem is running
func (m *ntpManager) IsRunning() bool {
	if m == nil {
		return false
	}
	return atomic.LoadInt32(&m.started) == 1
}

// Start runs the subsystem. A level of 1 keeps checking the clock every
// check interval, any other enabled level checks once.
func (m *ntpManager) Start() error {
	if m == nil {
		return fmt.Errorf("ntp manager %w", ErrNilSubsystem)
	}
	if m.level == 0 {
		return errNTPManagerDisabled
	}
	if !atomic.CompareAndSwapInt32(&m.started, 0, 1) {
		return fmt.Errorf("NTP manager %w", ErrSubSystemAlreadyStarted)
	}

	var err error
	for i := 0; i < m.retryLimit; i++ {
		if err = m.processTime(); err == nil || errors.Is(err, ntpclient.ErrClockDrift) {
			break
		}
	}
	if err != nil {
		log.Warnln(log.TimeMgr, err)
	}

	if m.level != 1 {
		atomic.CompareAndSwapInt32(&m.started, 1, 0)
		return nil
	}
	m.shutdown = make(chan struct{})
	go m.run()
	log.Debugf(log.TimeMgr, "NTP manager %s", subsystem.MsgStarted)
	return nil
}

// Stop attempts to shutdown the subsystem
func (m *ntpManager) Stop() error {
	if m == nil {
		return fmt.Errorf("ntp manager %w", ErrNilSubsystem)
	}
	if !atomic.CompareAndSwapInt32(&m.started, 1, 0) {
		return fmt.Errorf("NTP manager %w", ErrSubSystemNotStarted)
	}
	log.Debugf(log.TimeMgr, "NTP manager %s", subsystem.MsgShuttingDown)
	close(m.shutdown)
	log.Debugf(log.TimeMgr, "NTP manager %s", subsystem.MsgShutdown)
	return nil
}

func (m *ntpManager) run() {
	t := time.NewTicker(m.checkInterval)
	defer t.Stop()

	for {
		select {
		case <-m.shutdown:
			return
		case <-t.C:
			if err := m.processTime(); err != nil {
				log.Warnln(log.TimeMgr, err)
			}
		}
	}
}

// FetchNTPTime returns the time from defined NTP pools
func (m *ntpManager) FetchNTPTime() (time.Time, error) {
	if m == nil {
		return time.Time{}, fmt.Errorf("ntp manager %w", ErrNilSubsystem)
	}
	return m.fetch(m.pools), nil
}

// processTime determines the difference between system time and NTP time
// to discover discrepancies
func (m *ntpManager) processTime() error {
	ntpTime, err := m.FetchNTPTime()
	if err != nil {
		return err
	}
	diff, err := ntpclient.CheckDrift(ntpTime, time.Now(), m.allowedDifference, m.allowedNegativeDifference)
	if err != nil {
		return fmt.Errorf("NTP manager: %w, signed exchange requests may be rejected", err)
	}
	log.Debugf(log.TimeMgr, "NTP manager: local clock within allowed difference (%v)", diff)
	return nil
}
