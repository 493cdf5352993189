package log

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

var (
	errSubloggerConfigIsNil  = errors.New("sublogger config is nil")
	errUnhandledOutputWriter = errors.New("unhandled output writer")
	errSubLoggerNotFound     = errors.New("sub logger not found")
	errSubLoggerAlreadyFound = errors.New("sub logger already registered")
	errEmptyLoggerName       = errors.New("cannot have empty logger name")
)

func getWriters(s *SubLoggerConfig) (io.Writer, error) {
	if s == nil {
		return nil, errSubloggerConfigIsNil
	}
	mw, err := MultiWriter()
	if err != nil {
		return nil, err
	}
	outputWriters := strings.Split(s.Output, "|")
	for x := range outputWriters {
		var writer io.Writer
		switch strings.ToLower(outputWriters[x]) {
		case "stdout", "console":
			writer = os.Stdout
		case "stderr":
			writer = os.Stderr
		case "file":
			if !fileLoggingConfiguredCorrectly {
				continue
			}
			writer = globalLogFile
		default:
			return nil, fmt.Errorf("%w: %s", errUnhandledOutputWriter, outputWriters[x])
		}
		if err = mw.Add(writer); err != nil {
			return nil, err
		}
	}
	return mw, nil
}

// GenDefaultSettings return struct with known sane/working logger settings
func GenDefaultSettings() Config {
	enabled, showName, rotate := true, false, false
	return Config{
		Enabled: &enabled,
		SubLoggerConfig: SubLoggerConfig{
			Level:  "INFO|DEBUG|WARN|ERROR",
			Output: "console",
		},
		LoggerFileConfig: &FileConfig{
			FileName: "log.txt",
			Rotate:   &rotate,
			MaxSize:  0,
		},
		AdvancedSettings: AdvancedSettings{
			ShowLogSystemName: &showName,
			Spacer:            spacer,
			TimeStampFormat:   timestampFormat,
			Headers: Headers{
				Info:  "[INFO]",
				Warn:  "[WARN]",
				Debug: "[DEBUG]",
				Error: "[ERROR]",
			},
		},
	}
}

// SetGlobalLogConfig sets the global config with the supplied config
func SetGlobalLogConfig(incoming *Config) error {
	if incoming == nil {
		return errors.New("incoming log config is nil")
	}
	mu.Lock()
	globalLogConfig = incoming
	mu.Unlock()
	return nil
}

// SetLogPath sets the log path for writing to file
func SetLogPath(newLogPath string) {
	mu.Lock()
	logPath = newLogPath
	mu.Unlock()
}

// GetLogPath returns path of log file
func GetLogPath() string {
	mu.RLock()
	defer mu.RUnlock()
	return logPath
}

// SetFileLoggingState sets whether file logging is enabled
func SetFileLoggingState(correctlyConfigured bool) {
	mu.Lock()
	fileLoggingConfiguredCorrectly = correctlyConfigured
	mu.Unlock()
}

// SetupGlobalLogger setup the global loggers with the default global config values
func SetupGlobalLogger() error {
	mu.Lock()
	defer mu.Unlock()
	if fileLoggingConfiguredCorrectly && globalLogConfig.LoggerFileConfig != nil {
		globalLogFile = &Rotate{
			FileName: globalLogConfig.LoggerFileConfig.FileName,
			MaxSize:  globalLogConfig.LoggerFileConfig.MaxSize,
			Rotate:   globalLogConfig.LoggerFileConfig.Rotate,
		}
	}

	enabled := globalLogConfig.Enabled == nil || *globalLogConfig.Enabled
	for _, sl := range subLoggers {
		if !enabled {
			sl.levels = Levels{}
			continue
		}
		output, err := getWriters(&globalLogConfig.SubLoggerConfig)
		if err != nil {
			return err
		}
		sl.levels = splitLevel(globalLogConfig.Level)
		sl.output = output
	}

	logger = newLogger(globalLogConfig)
	return setupSubLoggers(globalLogConfig.SubLoggers)
}

// setupSubLoggers overrides individual sub loggers with provided configuration values
func setupSubLoggers(s []SubLoggerConfig) error {
	for x := range s {
		sl, found := subLoggers[strings.ToUpper(s[x].Name)]
		if !found {
			return fmt.Errorf("%w: %s", errSubLoggerNotFound, s[x].Name)
		}
		output, err := getWriters(&s[x])
		if err != nil {
			return err
		}
		sl.output = output
		sl.levels = splitLevel(s[x].Level)
	}
	return nil
}

func newLogger(c *Config) Logger {
	var showName bool
	if c.AdvancedSettings.ShowLogSystemName != nil {
		showName = *c.AdvancedSettings.ShowLogSystemName
	}
	return Logger{
		TimestampFormat:   c.AdvancedSettings.TimeStampFormat,
		Spacer:            c.AdvancedSettings.Spacer,
		ErrorHeader:       c.AdvancedSettings.Headers.Error,
		InfoHeader:        c.AdvancedSettings.Headers.Info,
		WarnHeader:        c.AdvancedSettings.Headers.Warn,
		DebugHeader:       c.AdvancedSettings.Headers.Debug,
		ShowLogSystemName: showName,
		StructuredLogging: c.AdvancedSettings.StructuredLogging,
	}
}

func splitLevel(level string) (l Levels) {
	enabledLevels := strings.Split(level, "|")
	for x := range enabledLevels {
		switch level := enabledLevels[x]; level {
		case "DEBUG":
			l.Debug = true
		case "INFO":
			l.Info = true
		case "WARN":
			l.Warn = true
		case "ERROR":
			l.Error = true
		}
	}
	return
}

// NewSubLogger allows for a new sub logger to be registered.
func NewSubLogger(name string) (*SubLogger, error) {
	if name == "" {
		return nil, errEmptyLoggerName
	}
	name = strings.ToUpper(name)
	mu.Lock()
	defer mu.Unlock()
	if _, ok := subLoggers[name]; ok {
		return nil, fmt.Errorf("%w: %s", errSubLoggerAlreadyFound, name)
	}
	return registerNewSubLogger(name), nil
}

// SetLevel sets the active levels of an existing sub logger
func SetLevel(name, level string) (Levels, error) {
	mu.Lock()
	defer mu.Unlock()
	sl, ok := subLoggers[strings.ToUpper(name)]
	if !ok {
		return Levels{}, fmt.Errorf("%w: %s", errSubLoggerNotFound, name)
	}
	sl.levels = splitLevel(level)
	return sl.levels, nil
}

// CloseLogger is called on shutdown of application
func CloseLogger() error {
	mu.Lock()
	defer mu.Unlock()
	return globalLogFile.Close()
}

func registerNewSubLogger(subLogger string) *SubLogger {
	temp := &SubLogger{
		name:   strings.ToUpper(subLogger),
		output: os.Stdout,
		levels: splitLevel("INFO|WARN|DEBUG|ERROR"),
	}
	subLoggers[temp.name] = temp
	return temp
}

// register all loggers at package init()
func init() {
	Global = registerNewSubLogger("LOG")

	AddressBook = registerNewSubLogger("ADDRESSBOOK")
	APIServerMgr = registerNewSubLogger("API")
	ConfigMgr = registerNewSubLogger("CONFIG")
	DatabaseMgr = registerNewSubLogger("DATABASE")
	ExchangeSys = registerNewSubLogger("EXCHANGE")
	RequestSys = registerNewSubLogger("REQUESTER")
	TimeMgr = registerNewSubLogger("TIMEKEEPER")
	WithdrawMgr = registerNewSubLogger("WITHDRAW")

	logger = newLogger(&Config{AdvancedSettings: GenDefaultSettings().AdvancedSettings})
}
