package config

import (
	"bytes"
	"io"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/thrasher-corp/gctwithdraw/database"
)

const legacyINI = `[GENERAL]
last_selected_exchange = OKX
okx_simulated = True
last_address_file = /tmp/addresses.csv

[BINANCE]
api_key = bnkey
api_secret = bnsecret

[OKX]
api_key = okkey
api_secret = oksecret
passphrase = okpass

[WITHDRAWAL_PARAMS]
min_interval = 30
max_interval = 90.0
warning_threshold = 250.5
enable_warning = False
`

func TestDefaultConfig(t *testing.T) {
	t.Parallel()
	c := DefaultConfig()
	require.Len(t, c.Exchanges, 2)
	assert.Equal(t, Binance, c.Exchanges[0].Name)
	assert.Equal(t, OKX, c.Exchanges[1].Name)
	assert.Equal(t, DefaultAPIClientID, c.Exchanges[1].API.Credentials.ClientID)
	assert.Equal(t, DefaultMinInterval, c.Withdrawal.MinInterval)
	assert.Equal(t, DefaultMaxInterval, c.Withdrawal.MaxInterval)
	assert.True(t, c.Withdrawal.WarningThresholdUSD.Equal(decimal.NewFromInt(1000)))
	require.NotNil(t, c.Withdrawal.EnableWarning)
	assert.True(t, *c.Withdrawal.EnableWarning)
	assert.Equal(t, DefaultPrecision, c.Withdrawal.DefaultPrecision)
	assert.Equal(t, defaultRemoteControlListenAddress, c.RemoteControl.ListenAddress)
}

func TestGetExchangeConfig(t *testing.T) {
	t.Parallel()
	c := DefaultConfig()
	e, err := c.GetExchangeConfig("okx")
	require.NoError(t, err)
	assert.Equal(t, OKX, e.Name)

	e.Verbose = true
	got, err := c.GetExchangeConfig(OKX)
	require.NoError(t, err)
	assert.False(t, got.Verbose, "GetExchangeConfig should return a copy")

	require.NoError(t, c.UpdateExchangeConfig(e))
	got, err = c.GetExchangeConfig(OKX)
	require.NoError(t, err)
	assert.True(t, got.Verbose)

	_, err = c.GetExchangeConfig("Kraken")
	assert.ErrorIs(t, err, ErrExchangeNotFound)
	assert.ErrorIs(t, c.UpdateExchangeConfig(&ExchangeConfig{Name: "Kraken"}), ErrExchangeNotFound)
	assert.ErrorIs(t, c.UpdateExchangeConfig(nil), errNilConfig)
}

func TestGetEnabledExchanges(t *testing.T) {
	t.Parallel()
	c := DefaultConfig()
	c.Exchanges[0].Enabled = false
	assert.Equal(t, []string{OKX}, c.GetEnabledExchanges())
}

func TestCheckExchangeConfigValues(t *testing.T) {
	t.Parallel()
	c := &Config{GlobalHTTPTimeout: time.Second}
	assert.ErrorIs(t, c.CheckExchangeConfigValues(), errNoExchangeConfigs)

	c.Exchanges = []ExchangeConfig{
		{Name: "binance", Enabled: true, API: APIConfig{
			AuthenticatedSupport: true,
			Credentials:          APICredentialsConfig{Key: "k", Secret: "s"},
		}},
		{Name: "OKX", Enabled: true, HTTPTimeout: time.Minute, API: APIConfig{
			AuthenticatedSupport: true,
			Credentials:          APICredentialsConfig{Key: "k", Secret: "s"},
		}, RateLimits: &RateLimitConfig{
			Auth:   LimitConfig{Interval: time.Second, Requests: 5},
			UnAuth: LimitConfig{Interval: -1},
		}},
		{Name: "Kraken", Enabled: true},
		{Name: "", Enabled: true},
	}
	require.NoError(t, c.CheckExchangeConfigValues())

	assert.Equal(t, Binance, c.Exchanges[0].Name, "name should be normalised")
	assert.Equal(t, time.Second, c.Exchanges[0].HTTPTimeout, "timeout should default to global")
	assert.True(t, c.Exchanges[0].API.AuthenticatedSupport)

	assert.Equal(t, time.Minute, c.Exchanges[1].HTTPTimeout)
	assert.False(t, c.Exchanges[1].API.AuthenticatedSupport, "OKX requires a passphrase")
	assert.Equal(t, 5, c.Exchanges[1].RateLimits.Auth.Requests)
	assert.Equal(t, LimitConfig{}, c.Exchanges[1].RateLimits.UnAuth, "invalid limit should be cleared")

	assert.False(t, c.Exchanges[2].Enabled, "unsupported exchange should be disabled")
	assert.False(t, c.Exchanges[3].Enabled, "nameless exchange should be disabled")
}

func TestPurgeExchangeAPICredentials(t *testing.T) {
	t.Parallel()
	c := DefaultConfig()
	c.Exchanges[1].API.AuthenticatedSupport = true
	c.Exchanges[1].API.Credentials = APICredentialsConfig{Key: "k", Secret: "s", ClientID: "p"}
	c.PurgeExchangeAPICredentials()
	assert.False(t, c.Exchanges[1].API.AuthenticatedSupport)
	assert.Equal(t, DefaultAPIKey, c.Exchanges[1].API.Credentials.Key)
	assert.Equal(t, DefaultAPIClientID, c.Exchanges[1].API.Credentials.ClientID)
}

func TestCheckWithdrawalConfig(t *testing.T) {
	t.Parallel()
	c := &Config{Withdrawal: WithdrawalConfig{
		MinInterval:         100,
		MaxInterval:         10,
		WarningThresholdUSD: decimal.NewFromInt(-5),
		DefaultPrecision:    40,
	}}
	c.CheckWithdrawalConfig()
	assert.Equal(t, 100, c.Withdrawal.MinInterval)
	assert.Equal(t, 100, c.Withdrawal.MaxInterval, "max below min should be raised to min")
	assert.True(t, c.Withdrawal.WarningThresholdUSD.Equal(DefaultWarningThresholdUSD))
	assert.Equal(t, DefaultPrecision, c.Withdrawal.DefaultPrecision)
	assert.Equal(t, defaultCacheTTL, c.Withdrawal.CacheTTL)

	c = &Config{Withdrawal: WithdrawalConfig{MinInterval: -1, MaxInterval: 5}}
	c.CheckWithdrawalConfig()
	assert.Equal(t, 0, c.Withdrawal.MinInterval)
	assert.Equal(t, 5, c.Withdrawal.MaxInterval)

	c = &Config{Withdrawal: WithdrawalConfig{MinInterval: math.MaxInt, MaxInterval: math.MaxInt}}
	c.CheckWithdrawalConfig()
	assert.Equal(t, maxIntervalSeconds, c.Withdrawal.MaxInterval)
	assert.Equal(t, maxIntervalSeconds, c.Withdrawal.MinInterval)
}

func TestCheckRemoteControlConfig(t *testing.T) {
	t.Parallel()
	c := &Config{RemoteControl: RemoteControlConfig{Enabled: true, Username: "admin"}}
	c.CheckRemoteControlConfig()
	assert.False(t, c.RemoteControl.Enabled, "missing password should disable remote control")
	assert.Equal(t, defaultWebsocketConnectionLimit, c.RemoteControl.ConnectionLimit)
}

func TestCheckNTPConfig(t *testing.T) {
	t.Parallel()
	c := &Config{}
	c.CheckNTPConfig()
	require.NotNil(t, c.NTPClient.AllowedDifference)
	assert.Equal(t, time.Duration(defaultNTPAllowedDifference), *c.NTPClient.AllowedDifference)
	require.NotNil(t, c.NTPClient.AllowedNegativeDifference)
	assert.Equal(t, []string{"pool.ntp.org:123"}, c.NTPClient.Pool)
}

func TestCheckConfig(t *testing.T) {
	t.Parallel()
	c := DefaultConfig()
	c.DataDirectory = t.TempDir()
	c.GlobalHTTPTimeout = 0
	c.Database = database.Config{}
	require.NoError(t, c.CheckConfig())
	assert.Equal(t, defaultHTTPTimeout, c.GlobalHTTPTimeout)
	assert.Equal(t, database.DBSQLite3, c.Database.Driver)
	assert.Equal(t, database.DefaultSQLiteDatabase, c.Database.Database)
	require.NotNil(t, c.Logging.Enabled)
	assert.DirExists(t, filepath.Join(c.DataDirectory, "logs"))
}

func TestReadConfig(t *testing.T) {
	t.Parallel()
	c, encrypted, err := ReadConfig(strings.NewReader(`{"name":"test","withdrawal":{"minInterval":5}}`), nil)
	require.NoError(t, err)
	assert.False(t, encrypted)
	assert.Equal(t, "test", c.Name)
	assert.Equal(t, 5, c.Withdrawal.MinInterval)

	_, _, err = ReadConfig(strings.NewReader(`{"name":`), nil)
	assert.Error(t, err)
}

func TestSaveAndReadEncrypted(t *testing.T) {
	t.Parallel()
	c := DefaultConfig()
	c.EncryptConfig = fileEncryptionEnabled
	c.Exchanges[0].API.Credentials.Secret = "super-secret"

	key := []byte("password")
	var buf bytes.Buffer
	require.NoError(t, c.Save(func() (io.Writer, error) { return &buf, nil }, func() ([]byte, error) { return key, nil }))
	assert.True(t, ConfirmECS(buf.Bytes()))
	assert.NotContains(t, buf.String(), "super-secret")

	attempts := 0
	got, encrypted, err := ReadConfig(bytes.NewReader(buf.Bytes()), func() ([]byte, error) {
		attempts++
		if attempts == 1 {
			return []byte("wrong"), nil
		}
		return key, nil
	})
	require.NoError(t, err)
	assert.True(t, encrypted)
	assert.Equal(t, 2, attempts, "a wrong key should be retried")
	assert.Equal(t, "super-secret", got.Exchanges[0].API.Credentials.Secret)
	assert.NotEmpty(t, got.sessionDK, "session key should be kept for re-saving")

	_, _, err = ReadConfig(bytes.NewReader(buf.Bytes()), func() ([]byte, error) { return []byte("nope"), nil })
	assert.ErrorIs(t, err, errDecryptFailed)
}

func TestSaveConfigToFile(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "nested", File)
	c := DefaultConfig()
	c.Name = "saved"
	require.NoError(t, c.SaveConfigToFile(path))

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	got, encrypted, err := ReadConfig(f, nil)
	require.NoError(t, err)
	assert.False(t, encrypted)
	assert.Equal(t, "saved", got.Name)
}

func TestImportINI(t *testing.T) {
	t.Parallel()
	c, err := ImportINI(strings.NewReader(legacyINI))
	require.NoError(t, err)

	assert.Equal(t, OKX, c.LastSelectedExchange)
	assert.Equal(t, "/tmp/addresses.csv", c.Withdrawal.LastAddressFile)
	assert.Equal(t, 30, c.Withdrawal.MinInterval)
	assert.Equal(t, 90, c.Withdrawal.MaxInterval)
	assert.True(t, c.Withdrawal.WarningThresholdUSD.Equal(decimal.RequireFromString("250.5")))
	require.NotNil(t, c.Withdrawal.EnableWarning)
	assert.False(t, *c.Withdrawal.EnableWarning)

	bn, err := c.GetExchangeConfig(Binance)
	require.NoError(t, err)
	assert.True(t, bn.API.AuthenticatedSupport)
	assert.Equal(t, "bnkey", bn.API.Credentials.Key)

	ok, err := c.GetExchangeConfig(OKX)
	require.NoError(t, err)
	assert.True(t, ok.Simulated)
	assert.True(t, ok.API.AuthenticatedSupport)
	assert.Equal(t, "okpass", ok.API.Credentials.ClientID)

	_, err = ImportINI(strings.NewReader("[WITHDRAWAL_PARAMS]\nwarning_threshold = lots\n"))
	assert.ErrorIs(t, err, errInvalidSetting)
}

func TestImportINIFile(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), INIFile)
	require.NoError(t, os.WriteFile(path, []byte(legacyINI), 0o600))

	c := &Config{}
	require.NoError(t, c.ReadConfigFromFile(path, true))
	assert.Equal(t, OKX, c.LastSelectedExchange)
}

func TestApplyEnvOverrides(t *testing.T) {
	t.Setenv("GCTWITHDRAW_BINANCE_API_KEY", "envkey")
	t.Setenv("GCTWITHDRAW_BINANCE_API_SECRET", "envsecret")
	t.Setenv("GCTWITHDRAW_WITHDRAWAL_PARAMS_MIN_INTERVAL", "12")

	assert.ErrorIs(t, ApplyEnvOverrides(nil), errNilConfig)

	c := DefaultConfig()
	require.NoError(t, ApplyEnvOverrides(c))
	assert.Equal(t, "envkey", c.Exchanges[0].API.Credentials.Key)
	assert.True(t, c.Exchanges[0].API.AuthenticatedSupport)
	assert.Equal(t, 12, c.Withdrawal.MinInterval)
	assert.Equal(t, DefaultMaxInterval, c.Withdrawal.MaxInterval)
}

func TestGetDataPath(t *testing.T) {
	t.Parallel()
	c := &Config{DataDirectory: "/data"}
	assert.Equal(t, filepath.Join("/data", "logs"), c.GetDataPath("logs"))
}
