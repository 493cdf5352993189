package config

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/thrasher-corp/gctwithdraw/common"
	"github.com/thrasher-corp/gctwithdraw/common/convert"
	"github.com/thrasher-corp/gctwithdraw/database"
	"github.com/thrasher-corp/gctwithdraw/log"
)

// DefaultConfig returns a config holding both supported exchanges with
// authenticated support disabled
func DefaultConfig() *Config {
	c := &Config{
		Name:              "gctwithdraw",
		EncryptConfig:     fileEncryptionDisabled,
		GlobalHTTPTimeout: defaultHTTPTimeout,
		Exchanges:         defaultExchangeConfigs(),
	}
	c.CheckWithdrawalConfig()
	c.CheckRemoteControlConfig()
	return c
}

func defaultExchangeConfigs() []ExchangeConfig {
	resp := make([]ExchangeConfig, len(SupportedExchanges))
	for i := range SupportedExchanges {
		resp[i] = ExchangeConfig{
			Name:        SupportedExchanges[i],
			Enabled:     true,
			HTTPTimeout: defaultHTTPTimeout,
			API: APIConfig{
				Credentials: APICredentialsConfig{
					Key:    DefaultAPIKey,
					Secret: DefaultAPISecret,
				},
			},
		}
		if SupportedExchanges[i] == OKX {
			resp[i].API.Credentials.ClientID = DefaultAPIClientID
		}
	}
	return resp
}

// GetEnabledExchanges returns a list of enabled exchange names
func (c *Config) GetEnabledExchanges() []string {
	m.Lock()
	defer m.Unlock()
	var enabledExchs []string
	for i := range c.Exchanges {
		if c.Exchanges[i].Enabled {
			enabledExchs = append(enabledExchs, c.Exchanges[i].Name)
		}
	}
	return enabledExchs
}

// GetExchangeConfig returns a copy of an exchange configuration by name
func (c *Config) GetExchangeConfig(name string) (*ExchangeConfig, error) {
	m.Lock()
	defer m.Unlock()
	for i := range c.Exchanges {
		if strings.EqualFold(c.Exchanges[i].Name, name) {
			cpy := c.Exchanges[i]
			return &cpy, nil
		}
	}
	return nil, fmt.Errorf("%s %w", name, ErrExchangeNotFound)
}

// UpdateExchangeConfig updates exchange configurations
func (c *Config) UpdateExchangeConfig(e *ExchangeConfig) error {
	if e == nil {
		return errNilConfig
	}
	m.Lock()
	defer m.Unlock()
	for i := range c.Exchanges {
		if strings.EqualFold(c.Exchanges[i].Name, e.Name) {
			c.Exchanges[i] = *e
			return nil
		}
	}
	return fmt.Errorf("%s %w", e.Name, ErrExchangeNotFound)
}

// PurgeExchangeAPICredentials purges the stored API credentials
func (c *Config) PurgeExchangeAPICredentials() {
	m.Lock()
	defer m.Unlock()
	for i := range c.Exchanges {
		if !c.Exchanges[i].API.AuthenticatedSupport {
			continue
		}
		c.Exchanges[i].API.AuthenticatedSupport = false
		c.Exchanges[i].API.Credentials = APICredentialsConfig{
			Key:    DefaultAPIKey,
			Secret: DefaultAPISecret,
		}
		if c.Exchanges[i].Name == OKX {
			c.Exchanges[i].API.Credentials.ClientID = DefaultAPIClientID
		}
	}
}

// CheckExchangeConfigValues checks the exchange configs, filling defaults and
// disabling authenticated support where credentials are unset
func (c *Config) CheckExchangeConfigValues() error {
	m.Lock()
	defer m.Unlock()

	if len(c.Exchanges) == 0 {
		return errNoExchangeConfigs
	}

	for i := range c.Exchanges {
		e := &c.Exchanges[i]
		if e.Name == "" {
			log.Errorf(log.ConfigMgr, ErrExchangeNameEmpty, i)
			e.Enabled = false
			continue
		}
		if !common.StringDataCompareInsensitive(SupportedExchanges, e.Name) {
			log.Warnf(log.ConfigMgr, "Exchange %s has no withdrawal gateway, disabling", e.Name)
			e.Enabled = false
			continue
		}
		for j := range SupportedExchanges {
			if strings.EqualFold(SupportedExchanges[j], e.Name) {
				e.Name = SupportedExchanges[j]
			}
		}
		if e.HTTPTimeout <= 0 {
			log.Warnf(log.ConfigMgr,
				"Exchange %s HTTP Timeout value not set, defaulting to %v.",
				e.Name,
				c.GlobalHTTPTimeout)
			e.HTTPTimeout = c.GlobalHTTPTimeout
		}
		if e.API.AuthenticatedSupport && !credentialsSet(e) {
			e.API.AuthenticatedSupport = false
			log.Warnf(log.ConfigMgr, WarningExchangeAuthAPIDefaultOrEmptyValues, e.Name)
		}
		if e.RateLimits != nil {
			checkLimit(e.Name, "auth", &e.RateLimits.Auth)
			checkLimit(e.Name, "unauth", &e.RateLimits.UnAuth)
		}
	}
	return nil
}

func checkLimit(exch, class string, l *LimitConfig) {
	if l.Interval > 0 && l.Requests > 0 {
		return
	}
	if l.Interval != 0 || l.Requests != 0 {
		log.Warnf(log.ConfigMgr, "Exchange %s %s rate limit invalid, using exchange defaults", exch, class)
	}
	*l = LimitConfig{}
}

func credentialsSet(e *ExchangeConfig) bool {
	creds := e.API.Credentials
	if creds.Key == "" || creds.Key == DefaultAPIKey ||
		creds.Secret == "" || creds.Secret == DefaultAPISecret {
		return false
	}
	if e.Name == OKX && (creds.ClientID == "" || creds.ClientID == DefaultAPIClientID) {
		return false
	}
	return true
}

// CheckLoggerConfig checks to see logger values are present and valid in config
// if not creates a default instance of the logger
func (c *Config) CheckLoggerConfig() error {
	m.Lock()
	defer m.Unlock()

	if c.Logging.Enabled == nil || c.Logging.Output == "" {
		c.Logging = log.GenDefaultSettings()
	}

	if c.Logging.AdvancedSettings.ShowLogSystemName == nil {
		c.Logging.AdvancedSettings.ShowLogSystemName = convert.BoolPtr(false)
	}

	if c.Logging.LoggerFileConfig != nil {
		if c.Logging.LoggerFileConfig.FileName == "" {
			c.Logging.LoggerFileConfig.FileName = "log.txt"
		}
		if c.Logging.LoggerFileConfig.Rotate == nil {
			c.Logging.LoggerFileConfig.Rotate = convert.BoolPtr(false)
		}
		if c.Logging.LoggerFileConfig.MaxSize <= 0 {
			log.Warnf(log.Global, "Logger rotation size invalid, defaulting to %v", log.DefaultMaxFileSize)
			c.Logging.LoggerFileConfig.MaxSize = log.DefaultMaxFileSize
		}
		log.SetFileLoggingState(true)
	}

	if err := log.SetGlobalLogConfig(&c.Logging); err != nil {
		return err
	}

	logPath := c.GetDataPath("logs")
	if err := common.CreateDir(logPath); err != nil {
		return err
	}
	log.SetLogPath(logPath)
	return nil
}

func (c *Config) checkDatabaseConfig() error {
	m.Lock()
	defer m.Unlock()

	if (c.Database == database.Config{}) {
		c.Database.Driver = database.DBSQLite3
		c.Database.Database = database.DefaultSQLiteDatabase
	}

	if !c.Database.Enabled {
		return nil
	}

	if !common.StringDataCompareInsensitive(database.SupportedDrivers, c.Database.Driver) {
		c.Database.Enabled = false
		return fmt.Errorf("unsupported database driver %v, database disabled", c.Database.Driver)
	}

	if c.Database.Driver == database.DBSQLite3 {
		databaseDir := c.GetDataPath("database")
		if err := common.CreateDir(databaseDir); err != nil {
			return err
		}
		database.DB.DataPath = databaseDir
	}

	return database.DB.SetConfig(&c.Database)
}

// CheckNTPConfig checks for missing or incorrectly configured NTPClient and recreates with known safe defaults
func (c *Config) CheckNTPConfig() {
	m.Lock()
	defer m.Unlock()

	if c.NTPClient.AllowedDifference == nil || *c.NTPClient.AllowedDifference == 0 {
		c.NTPClient.AllowedDifference = new(time.Duration)
		*c.NTPClient.AllowedDifference = defaultNTPAllowedDifference
	}

	if c.NTPClient.AllowedNegativeDifference == nil || *c.NTPClient.AllowedNegativeDifference <= 0 {
		c.NTPClient.AllowedNegativeDifference = new(time.Duration)
		*c.NTPClient.AllowedNegativeDifference = defaultNTPAllowedNegativeDifference
	}

	if len(c.NTPClient.Pool) < 1 {
		log.Warnln(log.ConfigMgr, "NTPClient enabled with no servers configured, enabling default pool.")
		c.NTPClient.Pool = []string{"pool.ntp.org:123"}
	}
}

// CheckRemoteControlConfig fills the control plane defaults and disables it
// when no credentials are set
func (c *Config) CheckRemoteControlConfig() {
	m.Lock()
	defer m.Unlock()

	if c.RemoteControl.ListenAddress == "" {
		c.RemoteControl.ListenAddress = defaultRemoteControlListenAddress
	}
	if c.RemoteControl.ConnectionLimit <= 0 {
		c.RemoteControl.ConnectionLimit = defaultWebsocketConnectionLimit
	}
	if c.RemoteControl.Enabled && (c.RemoteControl.Username == "" || c.RemoteControl.Password == "") {
		log.Warnln(log.ConfigMgr, "Remote control enabled with empty username or password, disabling.")
		c.RemoteControl.Enabled = false
	}
}

// CheckWithdrawalConfig fills batch withdrawal defaults and repairs invalid
// interval ranges
func (c *Config) CheckWithdrawalConfig() {
	m.Lock()
	defer m.Unlock()

	w := &c.Withdrawal
	if w.MinInterval <= 0 && w.MaxInterval <= 0 {
		w.MinInterval, w.MaxInterval = DefaultMinInterval, DefaultMaxInterval
	}
	if w.MinInterval < 0 {
		log.Warnf(log.ConfigMgr, "Withdrawal min interval %d invalid, defaulting to 0", w.MinInterval)
		w.MinInterval = 0
	}
	if w.MaxInterval < w.MinInterval {
		log.Warnf(log.ConfigMgr,
			"Withdrawal max interval %d below min interval %d, using min interval",
			w.MaxInterval,
			w.MinInterval)
		w.MaxInterval = w.MinInterval
	}
	if w.MaxInterval > maxIntervalSeconds {
		log.Warnf(log.ConfigMgr, "Withdrawal max interval %d above %d, capping", w.MaxInterval, maxIntervalSeconds)
		w.MaxInterval = maxIntervalSeconds
		if w.MinInterval > w.MaxInterval {
			w.MinInterval = w.MaxInterval
		}
	}
	if !w.WarningThresholdUSD.IsPositive() {
		w.WarningThresholdUSD = DefaultWarningThresholdUSD
	}
	if w.EnableWarning == nil {
		w.EnableWarning = convert.BoolPtr(true)
	}
	if w.DefaultPrecision <= 0 || w.DefaultPrecision > maxPrecision {
		w.DefaultPrecision = DefaultPrecision
	}
	if w.CacheTTL <= 0 {
		w.CacheTTL = defaultCacheTTL
	}
}

// CheckConfig checks all config settings
func (c *Config) CheckConfig() error {
	err := c.CheckLoggerConfig()
	if err != nil {
		log.Errorf(log.ConfigMgr,
			"Failed to configure logger, some logging features unavailable: %s\n",
			err)
	}

	err = c.checkDatabaseConfig()
	if err != nil {
		log.Errorf(log.DatabaseMgr,
			"Failed to configure database: %v",
			err)
	}

	if c.GlobalHTTPTimeout <= 0 {
		log.Warnf(log.ConfigMgr,
			"Global HTTP Timeout value not set, defaulting to %v.\n",
			defaultHTTPTimeout)
		c.GlobalHTTPTimeout = defaultHTTPTimeout
	}

	err = c.CheckExchangeConfigValues()
	if err != nil {
		return fmt.Errorf(ErrCheckingConfigValues, err)
	}

	c.CheckRemoteControlConfig()
	c.CheckWithdrawalConfig()

	if c.NTPClient.Level != 0 {
		c.CheckNTPConfig()
	}
	return nil
}

// GetFilePath returns the desired config file or the first config file found
// in the default data directory
func GetFilePath(configFile string) (string, error) {
	if configFile != "" {
		return configFile, nil
	}

	dir := common.GetDefaultDataDir(runtime.GOOS)
	for _, name := range []string{File, EncryptedFile, INIFile} {
		p := filepath.Join(dir, name)
		if _, err := os.Stat(p); err == nil {
			return p, nil
		}
	}
	return "", fmt.Errorf("%w in %s, run the 'init' command to generate one", errConfigFileNotFound, dir)
}

// DefaultFilePath returns the default config file path
// MacOS/Linux: $HOME/.gctwithdraw/config.json
// Windows: %APPDATA%\GCTWithdraw\config.json
func DefaultFilePath() string {
	p, err := GetFilePath("")
	if err != nil {
		return filepath.Join(common.GetDefaultDataDir(runtime.GOOS), File)
	}
	return p
}

// ReadConfigFromFile reads the configuration from the given file. INI files
// are imported, encrypted files prompt for their key and, outside of dryrun,
// unencrypted files are offered encryption
func (c *Config) ReadConfigFromFile(configPath string, dryrun bool) error {
	path, err := GetFilePath(configPath)
	if err != nil {
		return err
	}

	if strings.EqualFold(filepath.Ext(path), ".ini") {
		result, err := ImportINIFile(path)
		if err != nil {
			return err
		}
		*c = *result
		return nil
	}

	confFile, err := os.Open(path)
	if err != nil {
		return err
	}
	defer confFile.Close()

	result, wasEncrypted, err := ReadConfig(confFile, func() ([]byte, error) { return PromptForConfigKey(false) })
	if err != nil {
		return fmt.Errorf("error reading config %w", err)
	}
	*c = *result

	if err = ApplyEnvOverrides(c); err != nil {
		return err
	}

	if dryrun || wasEncrypted || c.EncryptConfig == fileEncryptionDisabled {
		return nil
	}

	if c.EncryptConfig == fileEncryptionPrompt {
		confirm, err := promptForConfigEncryption()
		if err != nil {
			log.Errorf(log.ConfigMgr, "The encryption prompt failed, ignoring for now, next time we will prompt again. Error: %s\n", err)
			return nil
		}
		if confirm {
			c.EncryptConfig = fileEncryptionEnabled
			return c.SaveConfigToFile(path)
		}

		c.EncryptConfig = fileEncryptionDisabled
		if err = c.SaveConfigToFile(path); err != nil {
			log.Errorf(log.ConfigMgr, "Cannot save config. Error: %s\n", err)
		}
	}
	return nil
}

// ReadConfig verifies and checks for encryption and loads the config from a JSON object.
// Prompts for decryption key, if target data is encrypted.
// Returns the loaded configuration and whether it was encrypted.
func ReadConfig(configReader io.Reader, keyProvider func() ([]byte, error)) (*Config, bool, error) {
	reader := bufio.NewReader(configReader)

	pref, err := reader.Peek(len(EncryptConfirmString))
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, false, err
	}

	if !ConfirmECS(pref) {
		c := &Config{}
		err = json.NewDecoder(reader).Decode(c)
		return c, false, err
	}

	conf, err := readEncryptedConfWithKey(reader, keyProvider)
	return conf, true, err
}

func readEncryptedConfWithKey(reader *bufio.Reader, keyProvider func() ([]byte, error)) (*Config, error) {
	fileData, err := io.ReadAll(reader)
	if err != nil {
		return nil, err
	}
	for errCounter := 0; errCounter < maxAuthFailures; errCounter++ {
		key, err := keyProvider()
		if err != nil {
			log.Errorf(log.ConfigMgr, "PromptForConfigKey err: %s", err)
			continue
		}

		c, err := readEncryptedConf(bytes.NewReader(fileData), key)
		if err != nil {
			log.Errorln(log.ConfigMgr, "Could not decrypt and deserialise data with given key. Invalid password?", err)
			continue
		}
		return c, nil
	}
	return nil, errDecryptFailed
}

func readEncryptedConf(reader io.Reader, key []byte) (*Config, error) {
	c := &Config{}
	data, err := c.decryptConfigData(reader, key)
	if err != nil {
		return nil, err
	}
	err = json.Unmarshal(data, c)
	return c, err
}

// SaveConfigToFile saves your configuration to your desired path as a JSON object.
// The function encrypts the data and prompts for encryption key, if necessary
func (c *Config) SaveConfigToFile(configPath string) error {
	path, err := GetFilePath(configPath)
	if err != nil {
		return err
	}
	if strings.EqualFold(filepath.Ext(path), ".ini") {
		path = strings.TrimSuffix(path, filepath.Ext(path)) + ".json"
		log.Infof(log.ConfigMgr, "Imported INI config will be saved as %s", path)
	}
	var writer *os.File
	provider := func() (io.Writer, error) {
		if err = common.CreateDir(filepath.Dir(path)); err != nil {
			return nil, err
		}
		writer, err = os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o600)
		return writer, err
	}
	defer func() {
		if writer != nil {
			if closeErr := writer.Close(); closeErr != nil {
				log.Errorln(log.ConfigMgr, closeErr)
			}
		}
	}()
	return c.Save(provider, func() ([]byte, error) { return PromptForConfigKey(true) })
}

// Save saves your configuration to the writer as a JSON object
// with encryption, if configured
// If there is an error when preparing the data to store, the writer is never requested
func (c *Config) Save(writerProvider func() (io.Writer, error), keyProvider func() ([]byte, error)) error {
	payload, err := json.MarshalIndent(c, "", " ")
	if err != nil {
		return err
	}

	if c.EncryptConfig == fileEncryptionEnabled {
		if len(c.sessionDK) == 0 {
			var key []byte
			key, err = keyProvider()
			if err != nil {
				return err
			}
			var sessionDK, storedSalt []byte
			sessionDK, storedSalt, err = makeNewSessionDK(key)
			if err != nil {
				return err
			}
			c.sessionDK, c.storedSalt = sessionDK, storedSalt
		}
		payload, err = c.encryptConfigFile(payload)
		if err != nil {
			return err
		}
	}
	configWriter, err := writerProvider()
	if err != nil {
		return err
	}
	_, err = io.Copy(configWriter, bytes.NewReader(payload))
	return err
}

// LoadConfig loads your configuration file into your configuration object
func (c *Config) LoadConfig(configPath string, dryrun bool) error {
	err := c.ReadConfigFromFile(configPath, dryrun)
	if err != nil {
		return fmt.Errorf(ErrFailureOpeningConfig, configPath, err)
	}
	return c.CheckConfig()
}

// GetDataPath gets the data path for the given subpath
func (c *Config) GetDataPath(elem ...string) string {
	var baseDir string
	if c.DataDirectory != "" {
		baseDir = c.DataDirectory
	} else {
		baseDir = common.GetDefaultDataDir(runtime.GOOS)
	}
	return filepath.Join(append([]string{baseDir}, elem...)...)
}
