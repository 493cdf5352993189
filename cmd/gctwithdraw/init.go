package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/thrasher-corp/gctwithdraw/config"
	"github.com/urfave/cli/v2"
)

var errConfigExists = errors.New("config file already exists, use --force to overwrite")

var initCommand = &cli.Command{
	Name:  "init",
	Usage: "writes a default config file to the --config path",
	Flags: []cli.Flag{
		&cli.BoolFlag{
			Name:  "force",
			Usage: "overwrites an existing config file",
		},
	},
	Action: initConfig,
}

func initConfig(c *cli.Context) error {
	if _, err := os.Stat(configFile); err == nil && !c.Bool("force") {
		return fmt.Errorf("%w: %s", errConfigExists, configFile)
	}
	cfg := config.DefaultConfig()
	if err := cfg.SaveConfigToFile(configFile); err != nil {
		return err
	}
	fmt.Printf("Default config written to %s. Add your exchange API credentials and enable authenticated support.\n", configFile)
	return nil
}
