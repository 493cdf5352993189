package engine

import (
	"context"
	"fmt"
	"log"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/thrasher-corp/gctwithdraw/config"
	dbwithdraw "github.com/thrasher-corp/gctwithdraw/database/repository/withdraw"
	"github.com/thrasher-corp/gctwithdraw/engine/withdrawmanager"
	exchange "github.com/thrasher-corp/gctwithdraw/exchanges"
	gctlog "github.com/thrasher-corp/gctwithdraw/log"
	"github.com/thrasher-corp/gctwithdraw/portfolio/addressbook"
)

const (
	serverTimeSyncTimeout = 15 * time.Second
	shutdownWaitTimeout   = 30 * time.Second
)

var newEngineMutex sync.Mutex

// New creates an engine from an already loaded and checked config
func New(cfg *config.Config, settings *Settings) (*Engine, error) {
	if cfg == nil {
		return nil, errNilConfig
	}
	if settings == nil {
		return nil, errNilSettings
	}
	newEngineMutex.Lock()
	defer newEngineMutex.Unlock()

	b := &Engine{Config: cfg}
	validateSettings(b, settings, nil)
	if err := b.setupManagers(); err != nil {
		return nil, err
	}
	return b, nil
}

// NewFromSettings starts a new engine based on supplied settings
func NewFromSettings(settings *Settings, flagSet map[string]bool) (*Engine, error) {
	if settings == nil {
		return nil, errNilSettings
	}
	newEngineMutex.Lock()
	defer newEngineMutex.Unlock()

	var b Engine
	var err error
	b.Config, err = loadConfigWithSettings(settings, flagSet)
	if err != nil {
		return nil, fmt.Errorf("failed to load config. Err: %w", err)
	}

	if b.Config.Logging.Enabled != nil && *b.Config.Logging.Enabled {
		if err = gctlog.SetupGlobalLogger(); err != nil {
			return nil, fmt.Errorf("failed to setup logger. Err: %w", err)
		}
		gctlog.Infoln(gctlog.Global, "Logger initialised.")
	}

	b.Settings.ConfigFile = settings.ConfigFile
	validateSettings(&b, settings, flagSet)
	if err = b.setupManagers(); err != nil {
		return nil, err
	}
	return &b, nil
}

// loadConfigWithSettings creates configuration based on the provided settings
func loadConfigWithSettings(settings *Settings, flagSet map[string]bool) (*config.Config, error) {
	filePath, err := config.GetFilePath(settings.ConfigFile)
	if err != nil {
		return nil, err
	}
	log.Printf("Loading config file %s..\n", filePath)

	conf := &config.Config{}
	if err = conf.ReadConfigFromFile(filePath, settings.EnableDryRun); err != nil {
		return nil, fmt.Errorf(config.ErrFailureOpeningConfig, filePath, err)
	}
	if flagSet["datadir"] {
		if !settings.EnableDryRun {
			log.Println("Command line argument '--datadir' induces dry run mode.")
		}
		settings.EnableDryRun = true
		conf.DataDirectory = settings.DataDir
	}
	settings.ConfigFile = filePath
	return conf, conf.CheckConfig()
}

// validateSettings validates and sets all engine settings. Flags which were
// not set on the command line fall back to the config values.
func validateSettings(b *Engine, s *Settings, flagSet map[string]bool) {
	if b.Settings.ConfigFile == "" {
		b.Settings.ConfigFile = s.ConfigFile
	}
	b.Settings.DataDir = b.Config.GetDataPath()
	b.Settings.MigrationDir = s.MigrationDir
	b.Settings.Verbose = s.Verbose
	b.Settings.EnableDryRun = s.EnableDryRun
	b.Settings.EnableExchangeVerbose = s.EnableExchangeVerbose
	b.Settings.EnableExchangeHTTPDebugging = s.EnableExchangeHTTPDebugging
	b.Settings.ExchangePurgeCredentials = s.ExchangePurgeCredentials

	if s.Exchange != "" {
		b.Settings.Exchange = s.Exchange
	} else {
		b.Settings.Exchange = b.Config.LastSelectedExchange
	}

	if flagSet["database"] {
		b.Settings.EnableDatabaseManager = s.EnableDatabaseManager
	} else {
		b.Settings.EnableDatabaseManager = s.EnableDatabaseManager || b.Config.Database.Enabled
	}

	if flagSet["ntpclient"] {
		b.Settings.EnableNTPClient = s.EnableNTPClient
	} else {
		b.Settings.EnableNTPClient = s.EnableNTPClient || b.Config.NTPClient.Level != 0
	}

	if flagSet["remotecontrol"] {
		b.Settings.EnableRemoteControl = s.EnableRemoteControl
	} else {
		b.Settings.EnableRemoteControl = s.EnableRemoteControl || b.Config.RemoteControl.Enabled
	}

	if s.GlobalHTTPTimeout > 0 {
		b.Settings.GlobalHTTPTimeout = s.GlobalHTTPTimeout
	} else {
		b.Settings.GlobalHTTPTimeout = b.Config.GlobalHTTPTimeout
	}
}

// setupManagers creates the subsystems which do not need to be started
func (bot *Engine) setupManagers() error {
	var err error
	bot.WithdrawManager, err = withdrawmanager.SetupWithdrawManager(&bot.Config.Withdrawal, bot.Settings.EnableDryRun)
	if err != nil {
		return err
	}
	bot.ExchangeManager = NewExchangeManager()
	return nil
}

// PrintSettings returns the engine settings
func PrintSettings(s *Settings) {
	gctlog.Debugln(gctlog.Global)
	gctlog.Debugf(gctlog.Global, "ENGINE SETTINGS")
	gctlog.Debugf(gctlog.Global, "- CORE SETTINGS:")
	gctlog.Debugf(gctlog.Global, "\t Verbose mode: %v", s.Verbose)
	gctlog.Debugf(gctlog.Global, "\t Enable dry run mode: %v", s.EnableDryRun)
	gctlog.Debugf(gctlog.Global, "\t Enable database manager: %v", s.EnableDatabaseManager)
	gctlog.Debugf(gctlog.Global, "\t Enable NTP client: %v", s.EnableNTPClient)
	gctlog.Debugf(gctlog.Global, "\t Enable remote control: %v", s.EnableRemoteControl)
	gctlog.Debugf(gctlog.Global, "- EXCHANGE SETTINGS:")
	gctlog.Debugf(gctlog.Global, "\t Selected exchange: %v", s.Exchange)
	gctlog.Debugf(gctlog.Global, "\t Enable exchange verbose mode: %v", s.EnableExchangeVerbose)
	gctlog.Debugf(gctlog.Global, "\t Enable exchange HTTP debugging: %v", s.EnableExchangeHTTPDebugging)
	gctlog.Debugf(gctlog.Global, "\t Purge exchange credentials: %v", s.ExchangePurgeCredentials)
	gctlog.Debugf(gctlog.Global, "- COMMON SETTINGS:")
	gctlog.Debugf(gctlog.Global, "\t Global HTTP timeout: %v", s.GlobalHTTPTimeout)
	gctlog.Debugln(gctlog.Global)
}

// Start starts the engine subsystems and selects the exchange gateway
func (bot *Engine) Start() error {
	if bot == nil {
		return errNilEngine
	}

	newEngineMutex.Lock()
	defer newEngineMutex.Unlock()

	var err error
	if bot.Settings.EnableDatabaseManager {
		if err = bot.startDatabaseManager(); err != nil {
			gctlog.Errorf(gctlog.Global, "Database manager unable to start: %v", err)
		}
	}

	if bot.Settings.EnableNTPClient {
		if bot.NTPManager, err = setupNTPManager(&bot.Config.NTPClient); err != nil {
			gctlog.Errorf(gctlog.Global, "NTP manager unable to setup: %v", err)
		} else if err = bot.NTPManager.Start(); err != nil {
			gctlog.Errorf(gctlog.Global, "NTP manager unable to start: %v", err)
		}
	}

	bot.Uptime = time.Now()
	gctlog.Debugf(gctlog.Global, "Engine '%s' started.\n", bot.Config.Name)
	gctlog.Debugf(gctlog.Global, "Using data dir: %s\n", bot.Settings.DataDir)
	if bot.Config.Logging.LoggerFileConfig != nil && strings.Contains(bot.Config.Logging.Output, "file") {
		gctlog.Debugf(gctlog.Global, "Using log file: %s\n",
			filepath.Join(gctlog.GetLogPath(), bot.Config.Logging.LoggerFileConfig.FileName))
	}
	gctlog.Debugf(gctlog.Global,
		"Using %d out of %d logical processors for runtime performance\n",
		runtime.GOMAXPROCS(-1), runtime.NumCPU())

	if bot.Settings.ExchangePurgeCredentials {
		gctlog.Debugln(gctlog.Global, "Purging exchange API credentials.")
		bot.Config.PurgeExchangeAPICredentials()
	}

	name, err := bot.selectExchangeName()
	if err != nil {
		return err
	}
	if err = bot.setExchange(name); err != nil {
		return err
	}

	if bot.Settings.EnableRemoteControl {
		if err = bot.startAPIServer(); err != nil {
			gctlog.Errorf(gctlog.Global, "API server unable to start: %v", err)
		}
	}
	return nil
}

func (bot *Engine) startDatabaseManager() error {
	var err error
	bot.DatabaseManager, err = SetupDatabaseConnectionManager(&bot.Config.Database, bot.Settings.DataDir, bot.Settings.MigrationDir)
	if err != nil {
		return err
	}
	if err = bot.DatabaseManager.Start(&bot.ServicesWG); err != nil {
		return err
	}
	repo, err := dbwithdraw.New(bot.DatabaseManager.GetInstance())
	if err != nil {
		return err
	}
	return bot.WithdrawManager.SetRecorder(repo)
}

func (bot *Engine) startAPIServer() error {
	var err error
	bot.apiServer, err = setupAPIServerManager(&bot.Config.RemoteControl, bot.WithdrawManager)
	if err != nil {
		return err
	}
	return bot.apiServer.StartServer()
}

// selectExchangeName picks the selected exchange, then the last used one and
// finally the first enabled exchange in the config
func (bot *Engine) selectExchangeName() (string, error) {
	if bot.Settings.Exchange != "" {
		return bot.Settings.Exchange, nil
	}
	if bot.Config.LastSelectedExchange != "" {
		return bot.Config.LastSelectedExchange, nil
	}
	if enabled := bot.Config.GetEnabledExchanges(); len(enabled) > 0 {
		return enabled[0], nil
	}
	return "", ErrNoExchangeSelected
}

// SetExchange loads the named exchange gateway and hands it to the withdraw
// manager. It fails while a batch is running.
func (bot *Engine) SetExchange(name string) error {
	if bot == nil {
		return errNilEngine
	}
	newEngineMutex.Lock()
	defer newEngineMutex.Unlock()
	return bot.setExchange(name)
}

func (bot *Engine) setExchange(name string) error {
	if name == "" {
		return ErrNoExchangeSelected
	}
	if bot.WithdrawManager.IsRunning() {
		return withdrawmanager.ErrGatewayInUse
	}
	cfg, err := bot.Config.GetExchangeConfig(name)
	if err != nil {
		return err
	}
	if bot.Settings.EnableExchangeVerbose {
		cfg.Verbose = true
	}
	if bot.Settings.EnableExchangeHTTPDebugging {
		cfg.HTTPDebugging = true
	}
	if cfg.HTTPTimeout <= 0 && bot.Settings.GlobalHTTPTimeout > 0 {
		cfg.HTTPTimeout = bot.Settings.GlobalHTTPTimeout
	}

	exch, err := bot.ExchangeManager.LoadExchange(cfg, bot.Config.Withdrawal.CacheTTL)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), serverTimeSyncTimeout)
	defer cancel()
	if err = exch.SyncServerTime(ctx); err != nil {
		gctlog.Warnf(gctlog.ExchangeSys, "%s unable to sync server time: %v", exch.GetName(), err)
	}

	if err = bot.WithdrawManager.SetGateway(exch); err != nil {
		return err
	}
	bot.Settings.Exchange = exch.GetName()
	bot.Config.LastSelectedExchange = exch.GetName()
	gctlog.Infof(gctlog.Global, "Using exchange %s", exch.GetName())
	return nil
}

// GetExchange returns the gateway currently used by the withdraw manager
func (bot *Engine) GetExchange() (exchange.Gateway, error) {
	if bot == nil {
		return nil, errNilEngine
	}
	gw := bot.WithdrawManager.Gateway()
	if gw == nil {
		return nil, ErrNoExchangeSelected
	}
	return gw, nil
}

// LoadAddressFile imports an address file into the withdraw manager and
// remembers it as the last used file
func (bot *Engine) LoadAddressFile(path string) (*addressbook.Book, error) {
	if bot == nil {
		return nil, errNilEngine
	}
	book, err := addressbook.LoadFile(path)
	if err != nil {
		return nil, err
	}
	if err = bot.WithdrawManager.LoadAddresses(book.Addresses()); err != nil {
		return nil, err
	}
	bot.Config.Withdrawal.LastAddressFile = path
	return book, nil
}

// Stop correctly shuts down engine saving configuration files
func (bot *Engine) Stop() {
	if bot == nil {
		return
	}
	newEngineMutex.Lock()
	defer newEngineMutex.Unlock()

	gctlog.Debugln(gctlog.Global, "Engine shutting down..")

	if bot.WithdrawManager.IsRunning() {
		if err := bot.WithdrawManager.Stop(); err != nil {
			gctlog.Errorf(gctlog.Global, "Withdraw manager unable to stop. Error: %v", err)
		}
		ctx, cancel := context.WithTimeout(context.Background(), shutdownWaitTimeout)
		if err := bot.WithdrawManager.Wait(ctx); err != nil {
			gctlog.Errorf(gctlog.Global, "Withdraw manager did not finish. Error: %v", err)
		}
		cancel()
	}

	if bot.apiServer.IsRunning() {
		if err := bot.apiServer.StopServer(); err != nil {
			gctlog.Errorf(gctlog.Global, "API server unable to stop. Error: %v", err)
		}
	}

	if bot.NTPManager.IsRunning() {
		if err := bot.NTPManager.Stop(); err != nil {
			gctlog.Errorf(gctlog.Global, "NTP manager unable to stop. Error: %v", err)
		}
	}

	if bot.DatabaseManager.IsRunning() {
		if err := bot.DatabaseManager.Stop(); err != nil {
			gctlog.Errorf(gctlog.Global, "Database manager unable to stop. Error: %v", err)
		}
	}

	if !bot.Settings.EnableDryRun {
		if err := bot.Config.SaveConfigToFile(bot.Settings.ConfigFile); err != nil {
			gctlog.Errorf(gctlog.Global, "Unable to save config. Error: %v", err)
		} else {
			gctlog.Debugln(gctlog.Global, "Config file saved successfully.")
		}
	}

	// Wait for services to gracefully shutdown
	bot.ServicesWG.Wait()
	if err := gctlog.CloseLogger(); err != nil {
		log.Printf("Failed to close logger. Error: %v\n", err)
	}
}
