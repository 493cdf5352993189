package main

import (
	"fmt"
	"os"
	"time"

	"github.com/thrasher-corp/gctwithdraw/config"
	"github.com/urfave/cli/v2"
)

const (
	version        = "v1.0.0"
	defaultTimeout = time.Second * 30
)

var (
	configFile        string
	dataDir           string
	exchangeName      string
	migrationDir      string
	dryRun            bool
	verbose           bool
	exchangeVerbose   bool
	exchangeHTTPDebug bool
	purgeCredentials  bool
	enableDatabase    bool
	enableNTPClient   bool
	globalHTTPTimeout time.Duration
	requestTimeout    time.Duration
	outputJSON        bool
)

func main() {
	app := cli.NewApp()
	app.Name = "gctwithdraw"
	app.Version = version
	app.EnableBashCompletion = true
	app.Usage = "batch cryptocurrency withdrawals from Binance and OKX"
	app.Flags = []cli.Flag{
		&cli.StringFlag{
			Name:        "config",
			Value:       config.DefaultFilePath(),
			Usage:       "config file to load",
			Destination: &configFile,
		},
		&cli.StringFlag{
			Name:        "datadir",
			Usage:       "overrides the config data directory, induces dry run mode",
			Destination: &dataDir,
		},
		&cli.StringFlag{
			Name:        "exchange",
			Aliases:     []string{"e"},
			Usage:       "the exchange to withdraw from (binance|okx), defaults to the last used exchange",
			Destination: &exchangeName,
		},
		&cli.BoolFlag{
			Name:        "dryrun",
			Usage:       "plans and logs withdrawals without submitting them, config changes are not saved",
			Destination: &dryRun,
		},
		&cli.BoolFlag{
			Name:        "verbose",
			Usage:       "increases logging verbosity",
			Destination: &verbose,
		},
		&cli.BoolFlag{
			Name:        "exchangeverbose",
			Usage:       "logs exchange requests and responses",
			Destination: &exchangeVerbose,
		},
		&cli.BoolFlag{
			Name:        "exchangehttpdebugging",
			Usage:       "dumps exchange HTTP requests and responses",
			Destination: &exchangeHTTPDebug,
		},
		&cli.BoolFlag{
			Name:        "purgecredentials",
			Usage:       "purges the stored exchange API credentials before running",
			Destination: &purgeCredentials,
		},
		&cli.BoolFlag{
			Name:        "database",
			Usage:       "records withdrawals to the configured database",
			Destination: &enableDatabase,
		},
		&cli.BoolFlag{
			Name:        "ntpclient",
			Usage:       "keeps checking the local clock against the configured NTP pool",
			Destination: &enableNTPClient,
		},
		&cli.StringFlag{
			Name:        "migrationdir",
			Usage:       "runs the database migrations in this folder on connect",
			Destination: &migrationDir,
		},
		&cli.DurationFlag{
			Name:        "globalhttptimeout",
			Usage:       "overrides the exchange HTTP timeout",
			Destination: &globalHTTPTimeout,
		},
		&cli.DurationFlag{
			Name:        "timeout",
			Value:       defaultTimeout,
			Usage:       "the context timeout for single exchange queries",
			Destination: &requestTimeout,
		},
		&cli.BoolFlag{
			Name:        "json",
			Usage:       "prints query results as JSON",
			Destination: &outputJSON,
		},
	}
	app.Commands = []*cli.Command{
		initCommand,
		runCommand,
		coinsCommand,
		networksCommand,
		balanceCommand,
		feeCommand,
		historyCommand,
		recordsCommand,
		validateCommand,
		serveCommand,
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
