package config

import (
	"errors"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"github.com/thrasher-corp/gctwithdraw/database"
	"github.com/thrasher-corp/gctwithdraw/log"
)

// Constants declared here are filename strings and default values
const (
	EncryptedFile                       = "config.dat"
	File                                = "config.json"
	INIFile                             = "config.ini"
	EnvPrefix                           = "GCTWITHDRAW"
	fileEncryptionPrompt                = 0
	fileEncryptionEnabled               = 1
	fileEncryptionDisabled              = -1
	defaultHTTPTimeout                  = time.Second * 15
	maxAuthFailures                     = 3
	defaultNTPAllowedDifference         = 50000000
	defaultNTPAllowedNegativeDifference = 50000000
	defaultRemoteControlListenAddress   = "localhost:9052"
	defaultWebsocketConnectionLimit     = 5
	DefaultAPIKey                       = "Key"
	DefaultAPISecret                    = "Secret"
	DefaultAPIClientID                  = "ClientID"
	DefaultMinInterval                  = 60
	DefaultMaxInterval                  = 600
	DefaultPrecision                    = 6
	maxPrecision                        = 18
	maxIntervalSeconds                  = 24 * 60 * 60
	defaultCacheTTL                     = time.Minute * 5
)

// Supported exchange names
const (
	Binance = "Binance"
	OKX     = "OKX"
)

// Constants here hold some messages
const (
	ErrExchangeNameEmpty                       = "exchange #%d name is empty"
	ErrFailureOpeningConfig                    = "fatal error opening %s file. Error: %s"
	ErrCheckingConfigValues                    = "fatal error checking config values. Error: %s"
	WarningExchangeAuthAPIDefaultOrEmptyValues = "exchange %s authenticated API support disabled due to default/empty APIKey/Secret/ClientID values"
)

var (
	m sync.Mutex

	// SupportedExchanges lists the exchanges a withdrawal gateway exists for
	SupportedExchanges = []string{Binance, OKX}
	// DefaultWarningThresholdUSD is the USD value at or above which a
	// withdrawal requires confirmation
	DefaultWarningThresholdUSD = decimal.NewFromInt(1000)

	// ErrExchangeNotFound is returned when an exchange config does not exist
	ErrExchangeNotFound = errors.New("exchange not found")
	// ErrUnsupportedExchange is returned when no gateway exists for an exchange
	ErrUnsupportedExchange = errors.New("unsupported exchange")

	errNoExchangeConfigs  = errors.New("no exchange configs found")
	errConfigFileNotFound = errors.New("config file not found")
	errDecryptFailed      = errors.New("failed to decrypt config after 3 attempts")
	errNilConfig          = errors.New("config is nil")
	errInvalidSetting     = errors.New("invalid setting")
)

// Config is the overarching object that holds all the information for
// logging, persistence, remote control, exchanges and withdrawal defaults
type Config struct {
	Name                 string              `json:"name"`
	DataDirectory        string              `json:"dataDirectory"`
	EncryptConfig        int                 `json:"encryptConfig"`
	GlobalHTTPTimeout    time.Duration       `json:"globalHTTPTimeout"`
	LastSelectedExchange string              `json:"lastSelectedExchange"`
	Logging              log.Config          `json:"logging"`
	Database             database.Config     `json:"database"`
	NTPClient            NTPClientConfig     `json:"ntpclient"`
	RemoteControl        RemoteControlConfig `json:"remoteControl"`
	Exchanges            []ExchangeConfig    `json:"exchanges"`
	Withdrawal           WithdrawalConfig    `json:"withdrawal"`

	// encryption session values
	storedSalt []byte
	sessionDK  []byte
}

// ExchangeConfig holds all the information needed for each enabled Exchange.
type ExchangeConfig struct {
	Name          string           `json:"name"`
	Enabled       bool             `json:"enabled"`
	Verbose       bool             `json:"verbose"`
	Simulated     bool             `json:"simulated,omitempty"`
	HTTPTimeout   time.Duration    `json:"httpTimeout"`
	HTTPUserAgent string           `json:"httpUserAgent,omitempty"`
	HTTPDebugging bool             `json:"httpDebugging,omitempty"`
	API           APIConfig        `json:"api"`
	RateLimits    *RateLimitConfig `json:"rateLimits,omitempty"`
}

// APICredentialsConfig stores the API credentials. ClientID holds the OKX
// passphrase
type APICredentialsConfig struct {
	Key      string `json:"key,omitempty"`
	Secret   string `json:"secret,omitempty"`
	ClientID string `json:"clientID,omitempty"`
}

// APIConfig stores the exchange API config
type APIConfig struct {
	AuthenticatedSupport bool                 `json:"authenticatedSupport"`
	Credentials          APICredentialsConfig `json:"credentials"`
	Endpoints            map[string]string    `json:"urlEndpoints,omitempty"`
}

// RateLimitConfig overrides the default request limits of an exchange
type RateLimitConfig struct {
	Auth   LimitConfig `json:"auth"`
	UnAuth LimitConfig `json:"unauth"`
}

// LimitConfig allows Requests per Interval
type LimitConfig struct {
	Interval time.Duration `json:"interval"`
	Requests int           `json:"requests"`
}

// NTPClientConfig defines a network time protocol configuration to allow for
// positive and negative differences
type NTPClientConfig struct {
	Level                     int            `json:"enabled"`
	Pool                      []string       `json:"pool"`
	AllowedDifference         *time.Duration `json:"allowedDifference"`
	AllowedNegativeDifference *time.Duration `json:"allowedNegativeDifference"`
}

// RemoteControlConfig stores the REST and websocket control plane settings
type RemoteControlConfig struct {
	Enabled             bool   `json:"enabled"`
	ListenAddress       string `json:"listenAddress"`
	Username            string `json:"username"`
	Password            string `json:"password"`
	ConnectionLimit     int    `json:"connectionLimit"`
	AllowInsecureOrigin bool   `json:"allowInsecureOrigin"`
}

// WithdrawalConfig stores batch withdrawal defaults. Intervals are seconds
type WithdrawalConfig struct {
	MinInterval         int             `json:"minInterval"`
	MaxInterval         int             `json:"maxInterval"`
	WarningThresholdUSD decimal.Decimal `json:"warningThresholdUSD"`
	EnableWarning       *bool           `json:"enableWarning"`
	DefaultPrecision    int             `json:"defaultPrecision"`
	CacheTTL            time.Duration   `json:"cacheTTL"`
	LastAddressFile     string          `json:"lastAddressFile,omitempty"`
}
