package config

import (
	"fmt"
	"io"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
	"github.com/thrasher-corp/gctwithdraw/common/convert"
	"github.com/thrasher-corp/gctwithdraw/log"
)

// Setting keys shared by the INI layout and environment overrides. An
// environment override is the key upper cased with dots replaced, prefixed
// with GCTWITHDRAW_, e.g. GCTWITHDRAW_BINANCE_API_KEY
const (
	keyLastSelectedExchange = "general.last_selected_exchange"
	keyOKXSimulated         = "general.okx_simulated"
	keyLastAddressFile      = "general.last_address_file"
	keyBinanceAPIKey        = "binance.api_key"
	keyBinanceAPISecret     = "binance.api_secret"
	keyOKXAPIKey            = "okx.api_key"
	keyOKXAPISecret         = "okx.api_secret"
	keyOKXPassphrase        = "okx.passphrase"
	keyMinInterval          = "withdrawal_params.min_interval"
	keyMaxInterval          = "withdrawal_params.max_interval"
	keyWarningThreshold     = "withdrawal_params.warning_threshold"
	keyEnableWarning        = "withdrawal_params.enable_warning"
)

var settingKeys = []string{
	keyLastSelectedExchange,
	keyOKXSimulated,
	keyLastAddressFile,
	keyBinanceAPIKey,
	keyBinanceAPISecret,
	keyOKXAPIKey,
	keyOKXAPISecret,
	keyOKXPassphrase,
	keyMinInterval,
	keyMaxInterval,
	keyWarningThreshold,
	keyEnableWarning,
}

var iniSections = []string{"general", "binance", "okx", "withdrawal_params"}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	for i := range settingKeys {
		_ = v.BindEnv(settingKeys[i])
	}
	return v
}

// ImportINIFile loads a legacy config.ini into a new config
func ImportINIFile(path string) (*Config, error) {
	v := newViper()
	v.SetConfigFile(path)
	v.SetConfigType("ini")
	if err := v.ReadInConfig(); err != nil {
		return nil, err
	}
	return importINI(v)
}

// ImportINI loads the legacy INI layout with sections GENERAL, BINANCE, OKX
// and WITHDRAWAL_PARAMS from a reader into a new config
func ImportINI(r io.Reader) (*Config, error) {
	v := newViper()
	v.SetConfigType("ini")
	if err := v.ReadConfig(r); err != nil {
		return nil, err
	}
	return importINI(v)
}

func importINI(v *viper.Viper) (*Config, error) {
	for _, k := range v.AllKeys() {
		section, _, _ := strings.Cut(k, ".")
		known := false
		for i := range iniSections {
			if section == iniSections[i] {
				known = true
				break
			}
		}
		if !known {
			log.Warnf(log.ConfigMgr, "Ignoring unknown INI setting %s", k)
		}
	}
	c := DefaultConfig()
	if err := applySettings(c, v); err != nil {
		return nil, err
	}
	log.Infoln(log.ConfigMgr, "Imported legacy INI config")
	return c, nil
}

// ApplyEnvOverrides applies any GCTWITHDRAW_ environment variables to the
// config
func ApplyEnvOverrides(c *Config) error {
	if c == nil {
		return errNilConfig
	}
	return applySettings(c, newViper())
}

func applySettings(c *Config, v *viper.Viper) error {
	if v.IsSet(keyLastSelectedExchange) {
		c.LastSelectedExchange = v.GetString(keyLastSelectedExchange)
	}
	if v.IsSet(keyLastAddressFile) {
		c.Withdrawal.LastAddressFile = v.GetString(keyLastAddressFile)
	}

	applyCredentials(c, v, Binance, keyBinanceAPIKey, keyBinanceAPISecret, "")
	applyCredentials(c, v, OKX, keyOKXAPIKey, keyOKXAPISecret, keyOKXPassphrase)
	if v.IsSet(keyOKXSimulated) {
		e := c.exchangeConfigForUpdate(OKX)
		e.Simulated = v.GetBool(keyOKXSimulated)
	}

	var err error
	if v.IsSet(keyMinInterval) {
		if c.Withdrawal.MinInterval, err = getSeconds(v, keyMinInterval); err != nil {
			return err
		}
	}
	if v.IsSet(keyMaxInterval) {
		if c.Withdrawal.MaxInterval, err = getSeconds(v, keyMaxInterval); err != nil {
			return err
		}
	}
	if v.IsSet(keyWarningThreshold) {
		threshold, err := decimal.NewFromString(strings.TrimSpace(v.GetString(keyWarningThreshold)))
		if err != nil {
			return fmt.Errorf("%w %s: %v", errInvalidSetting, keyWarningThreshold, err)
		}
		c.Withdrawal.WarningThresholdUSD = threshold
	}
	if v.IsSet(keyEnableWarning) {
		c.Withdrawal.EnableWarning = convert.BoolPtr(v.GetBool(keyEnableWarning))
	}
	return nil
}

func getSeconds(v *viper.Viper, key string) (int, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(v.GetString(key)))
	if err != nil {
		return 0, fmt.Errorf("%w %s: %v", errInvalidSetting, key, err)
	}
	return int(d.IntPart()), nil
}

func applyCredentials(c *Config, v *viper.Viper, exch, keyKey, secretKey, clientIDKey string) {
	if !v.IsSet(keyKey) && !v.IsSet(secretKey) && (clientIDKey == "" || !v.IsSet(clientIDKey)) {
		return
	}
	e := c.exchangeConfigForUpdate(exch)
	if v.IsSet(keyKey) {
		e.API.Credentials.Key = v.GetString(keyKey)
	}
	if v.IsSet(secretKey) {
		e.API.Credentials.Secret = v.GetString(secretKey)
	}
	if clientIDKey != "" && v.IsSet(clientIDKey) {
		e.API.Credentials.ClientID = v.GetString(clientIDKey)
	}
	e.API.AuthenticatedSupport = credentialsSet(e)
}

// exchangeConfigForUpdate returns the stored exchange config by name,
// appending a default one when missing
func (c *Config) exchangeConfigForUpdate(name string) *ExchangeConfig {
	m.Lock()
	defer m.Unlock()
	for i := range c.Exchanges {
		if strings.EqualFold(c.Exchanges[i].Name, name) {
			return &c.Exchanges[i]
		}
	}
	c.Exchanges = append(c.Exchanges, ExchangeConfig{
		Name:        name,
		Enabled:     true,
		HTTPTimeout: defaultHTTPTimeout,
	})
	return &c.Exchanges[len(c.Exchanges)-1]
}
