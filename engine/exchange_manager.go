package engine

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/thrasher-corp/gctwithdraw/config"
	exchange "github.com/thrasher-corp/gctwithdraw/exchanges"
	"github.com/thrasher-corp/gctwithdraw/exchanges/binance"
	"github.com/thrasher-corp/gctwithdraw/exchanges/okx"
	"github.com/thrasher-corp/gctwithdraw/log"
)

var (
	// ErrExchangeNotFound is returned when an exchange gateway is not loaded
	ErrExchangeNotFound = errors.New("exchange not found")
	// ErrExchangeAlreadyLoaded is returned when a gateway is added twice
	ErrExchangeAlreadyLoaded = errors.New("exchange already loaded")

	errExchangeIsNil    = errors.New("exchange is nil")
	errExchangeDisabled = errors.New("exchange is disabled")
)

// ExchangeManager holds the loaded exchange gateways keyed by lower case name
type ExchangeManager struct {
	mtx       sync.Mutex
	exchanges map[string]exchange.Gateway
}

type cacheConfigurer interface {
	SetCacheTTL(time.Duration)
}

// NewExchangeManager returns a new ExchangeManager
func NewExchangeManager() *ExchangeManager {
	return &ExchangeManager{exchanges: make(map[string]exchange.Gateway)}
}

// NewExchangeByName returns a new unconfigured gateway for the exchange name
func (m *ExchangeManager) NewExchangeByName(name string) (exchange.Gateway, error) {
	switch strings.ToLower(name) {
	case strings.ToLower(config.Binance):
		return new(binance.Binance), nil
	case strings.ToLower(config.OKX):
		return new(okx.Okx), nil
	default:
		return nil, fmt.Errorf("%w: %s", config.ErrUnsupportedExchange, name)
	}
}

// Add adds a gateway to the manager
func (m *ExchangeManager) Add(exch exchange.Gateway) error {
	if m == nil {
		return fmt.Errorf("exchange manager: %w", ErrNilSubsystem)
	}
	if exch == nil {
		return errExchangeIsNil
	}
	name := strings.ToLower(exch.GetName())
	m.mtx.Lock()
	defer m.mtx.Unlock()
	if _, ok := m.exchanges[name]; ok {
		return fmt.Errorf("%w: %s", ErrExchangeAlreadyLoaded, exch.GetName())
	}
	m.exchanges[name] = exch
	return nil
}

// GetExchanges returns all loaded gateways sorted by name
func (m *ExchangeManager) GetExchanges() ([]exchange.Gateway, error) {
	if m == nil {
		return nil, fmt.Errorf("exchange manager: %w", ErrNilSubsystem)
	}
	m.mtx.Lock()
	defer m.mtx.Unlock()
	exchs := make([]exchange.Gateway, 0, len(m.exchanges))
	for _, exch := range m.exchanges {
		exchs = append(exchs, exch)
	}
	sort.Slice(exchs, func(i, j int) bool { return exchs[i].GetName() < exchs[j].GetName() })
	return exchs, nil
}

// GetExchangeByName returns a loaded gateway by name
func (m *ExchangeManager) GetExchangeByName(name string) (exchange.Gateway, error) {
	if m == nil {
		return nil, fmt.Errorf("exchange manager: %w", ErrNilSubsystem)
	}
	m.mtx.Lock()
	defer m.mtx.Unlock()
	exch, ok := m.exchanges[strings.ToLower(name)]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrExchangeNotFound, name)
	}
	return exch, nil
}

// LoadExchange creates, configures and adds the gateway for cfg. A loaded
// gateway of the same name is returned as is.
func (m *ExchangeManager) LoadExchange(cfg *config.ExchangeConfig, cacheTTL time.Duration) (exchange.Gateway, error) {
	if m == nil {
		return nil, fmt.Errorf("exchange manager: %w", ErrNilSubsystem)
	}
	if cfg == nil {
		return nil, exchange.ErrNilExchangeConfig
	}
	if exch, err := m.GetExchangeByName(cfg.Name); err == nil {
		return exch, nil
	}
	if !cfg.Enabled {
		return nil, fmt.Errorf("%w: %s", errExchangeDisabled, cfg.Name)
	}
	exch, err := m.NewExchangeByName(cfg.Name)
	if err != nil {
		return nil, err
	}
	exch.SetDefaults()
	if err = exch.Setup(cfg); err != nil {
		return nil, fmt.Errorf("%s setup failed: %w", cfg.Name, err)
	}
	if c, ok := exch.(cacheConfigurer); ok && cacheTTL > 0 {
		c.SetCacheTTL(cacheTTL)
	}
	if err = m.Add(exch); err != nil {
		return nil, err
	}
	log.Debugf(log.ExchangeSys, "%s exchange gateway loaded", exch.GetName())
	return exch, nil
}
