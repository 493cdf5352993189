package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"reflect"
	"time"

	"github.com/shopspring/decimal"
	"github.com/thrasher-corp/gctwithdraw/config"
	"github.com/thrasher-corp/gctwithdraw/engine"
	"github.com/thrasher-corp/gctwithdraw/log"
	"github.com/thrasher-corp/gctwithdraw/ntpclient"
	"github.com/urfave/cli/v2"
)

var (
	errNoAddressFile       = errors.New("no address file supplied")
	errMissingArgument     = errors.New("missing argument")
	errInvalidAmount       = errors.New("invalid amount")
	errUnsupportedField    = errors.New("unsupported field type")
	errNotStructPointer    = errors.New("expected a pointer to a struct")
	errDatabaseUnavailable = errors.New("database support is disabled, enable it in the config or with --database")
)

type remoteMode int

const (
	remoteFromConfig remoteMode = iota
	remoteDisabled
	remoteEnabled
)

func jsonOutput(in any) {
	j, err := json.MarshalIndent(in, "", " ")
	if err != nil {
		return
	}
	fmt.Println(string(j))
}

// newEngine loads the config, starts the engine and selects the exchange
func newEngine(c *cli.Context, remote remoteMode) (*engine.Engine, error) {
	settings := &engine.Settings{
		ConfigFile:                  configFile,
		DataDir:                     dataDir,
		Exchange:                    exchangeName,
		MigrationDir:                migrationDir,
		EnableDryRun:                dryRun,
		EnableDatabaseManager:       enableDatabase,
		EnableNTPClient:             enableNTPClient,
		EnableRemoteControl:         remote == remoteEnabled,
		Verbose:                     verbose,
		EnableExchangeVerbose:       exchangeVerbose,
		EnableExchangeHTTPDebugging: exchangeHTTPDebug,
		ExchangePurgeCredentials:    purgeCredentials,
		GlobalHTTPTimeout:           globalHTTPTimeout,
	}
	flagSet := map[string]bool{
		"remotecontrol": remote != remoteFromConfig,
	}
	for _, name := range []string{"datadir", "exchange", "database", "ntpclient"} {
		flagSet[name] = c.IsSet(name)
	}

	bot, err := engine.NewFromSettings(settings, flagSet)
	if err != nil {
		return nil, err
	}
	if verbose {
		engine.PrintSettings(&bot.Settings)
	}
	if err = bot.Start(); err != nil {
		bot.Stop()
		return nil, err
	}
	return bot, nil
}

// queryContext bounds a single exchange query by the --timeout flag
func queryContext(c *cli.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Context, requestTimeout)
}

// argOrFlag returns the named flag value, falling back to the positional
// argument at index
func argOrFlag(c *cli.Context, name string, index int) (string, error) {
	if c.IsSet(name) {
		return c.String(name), nil
	}
	if v := c.Args().Get(index); v != "" {
		return v, nil
	}
	return "", fmt.Errorf("%w: %s", errMissingArgument, name)
}

// checkClock warns when the local clock drifts from the configured NTP pool
func checkClock(cfg *config.Config) {
	cfg.CheckNTPConfig()
	ntpTime := ntpclient.NTPClient(cfg.NTPClient.Pool)
	diff, err := ntpclient.CheckDrift(ntpTime,
		time.Now(),
		*cfg.NTPClient.AllowedDifference,
		*cfg.NTPClient.AllowedNegativeDifference)
	if err != nil {
		log.Warnf(log.TimeMgr, "%v. Signed exchange requests may be rejected, please sync your clock", err)
		return
	}
	log.Debugf(log.TimeMgr, "Local clock difference to NTP pool: %v", diff)
}

func parseAmount(name, value string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(value)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w for %s %q: %w", errInvalidAmount, name, value, err)
	}
	return d, nil
}

// FlagsFromStruct returns a flag for every field tagged with cli. Current
// field values are used as flag defaults
func FlagsFromStruct(v any, usage map[string]string) []cli.Flag {
	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.Pointer {
		rv = rv.Elem()
	}
	if rv.Kind() != reflect.Struct {
		return nil
	}
	rt := rv.Type()
	flags := make([]cli.Flag, 0, rt.NumField())
	for i := 0; i < rt.NumField(); i++ {
		name := rt.Field(i).Tag.Get("cli")
		if name == "" {
			continue
		}
		field := rv.Field(i)
		switch field.Kind() {
		case reflect.String:
			flags = append(flags, &cli.StringFlag{Name: name, Value: field.String(), Usage: usage[name]})
		case reflect.Bool:
			flags = append(flags, &cli.BoolFlag{Name: name, Value: field.Bool(), Usage: usage[name]})
		case reflect.Int:
			flags = append(flags, &cli.IntFlag{Name: name, Value: int(field.Int()), Usage: usage[name]})
		case reflect.Int64:
			flags = append(flags, &cli.Int64Flag{Name: name, Value: field.Int(), Usage: usage[name]})
		case reflect.Float64:
			flags = append(flags, &cli.Float64Flag{Name: name, Value: field.Float(), Usage: usage[name]})
		}
	}
	return flags
}

// unmarshalCLIFields sets every cli tagged field of v from the context
func unmarshalCLIFields(c *cli.Context, v any) error {
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Pointer || rv.Elem().Kind() != reflect.Struct {
		return errNotStructPointer
	}
	rv = rv.Elem()
	rt := rv.Type()
	for i := 0; i < rt.NumField(); i++ {
		name := rt.Field(i).Tag.Get("cli")
		if name == "" {
			continue
		}
		field := rv.Field(i)
		switch field.Kind() {
		case reflect.String:
			field.SetString(c.String(name))
		case reflect.Bool:
			field.SetBool(c.Bool(name))
		case reflect.Int:
			field.SetInt(int64(c.Int(name)))
		case reflect.Int64:
			field.SetInt(c.Int64(name))
		case reflect.Float64:
			field.SetFloat(c.Float64(name))
		default:
			return fmt.Errorf("%w: %s %s", errUnsupportedField, name, field.Kind())
		}
	}
	return nil
}

func printField(name string, value any) {
	fmt.Fprintf(os.Stdout, "%-16s %v\n", name+":", value)
}
