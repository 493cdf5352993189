package engine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/thrasher-corp/gctwithdraw/config"
	exchange "github.com/thrasher-corp/gctwithdraw/exchanges"
	"github.com/thrasher-corp/gctwithdraw/exchanges/binance"
	"github.com/thrasher-corp/gctwithdraw/exchanges/okx"
)

func TestNewExchangeByName(t *testing.T) {
	t.Parallel()
	m := NewExchangeManager()
	exch, err := m.NewExchangeByName("binance")
	require.NoError(t, err)
	assert.IsType(t, new(binance.Binance), exch)

	exch, err = m.NewExchangeByName("OKX")
	require.NoError(t, err)
	assert.IsType(t, new(okx.Okx), exch)
	_, isEncoder := exch.(exchange.AddressEncoder)
	assert.True(t, isEncoder, "OKX must encode address labels")

	_, err = m.NewExchangeByName("Bitstamp")
	assert.ErrorIs(t, err, config.ErrUnsupportedExchange)
}

func TestExchangeManagerAdd(t *testing.T) {
	t.Parallel()
	var nilManager *ExchangeManager
	assert.ErrorIs(t, nilManager.Add(nil), ErrNilSubsystem)

	m := NewExchangeManager()
	assert.ErrorIs(t, m.Add(nil), errExchangeIsNil)

	b := new(binance.Binance)
	b.SetDefaults()
	require.NoError(t, m.Add(b))
	assert.ErrorIs(t, m.Add(b), ErrExchangeAlreadyLoaded)

	o := new(okx.Okx)
	o.SetDefaults()
	require.NoError(t, m.Add(o))

	exchs, err := m.GetExchanges()
	require.NoError(t, err)
	require.Len(t, exchs, 2)
	assert.Equal(t, "Binance", exchs[0].GetName())
	assert.Equal(t, "OKX", exchs[1].GetName())

	exch, err := m.GetExchangeByName("oKx")
	require.NoError(t, err)
	assert.Equal(t, "OKX", exch.GetName())
	_, err = m.GetExchangeByName("kraken")
	assert.ErrorIs(t, err, ErrExchangeNotFound)
}

func TestLoadExchange(t *testing.T) {
	t.Parallel()
	m := NewExchangeManager()
	_, err := m.LoadExchange(nil, 0)
	assert.ErrorIs(t, err, exchange.ErrNilExchangeConfig)

	_, err = m.LoadExchange(&config.ExchangeConfig{Name: config.Binance}, 0)
	assert.ErrorIs(t, err, errExchangeDisabled)

	cfg := new(binance.Binance).GetDefaultConfig()
	exch, err := m.LoadExchange(cfg, time.Minute)
	require.NoError(t, err)
	assert.True(t, exch.IsEnabled())
	b, ok := exch.(*binance.Binance)
	require.True(t, ok)
	require.NotNil(t, b.Cache)

	again, err := m.LoadExchange(cfg, time.Minute)
	require.NoError(t, err)
	assert.Same(t, exch, again, "loaded gateways must be reused")

	_, err = m.LoadExchange(&config.ExchangeConfig{Name: "Kraken", Enabled: true}, 0)
	assert.ErrorIs(t, err, config.ErrUnsupportedExchange)
}
