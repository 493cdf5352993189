package main

import (
	"fmt"

	"github.com/thrasher-corp/gctwithdraw/log"
	"github.com/thrasher-corp/gctwithdraw/signaler"
	"github.com/urfave/cli/v2"
)

var serveCommand = &cli.Command{
	Name:      "serve",
	Usage:     "runs the REST and websocket control plane until interrupted",
	ArgsUsage: "<addressfile>",
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:  "file",
			Usage: "address file to load, defaults to the last used file",
		},
	},
	Action: serve,
}

func serve(c *cli.Context) error {
	file := c.String("file")
	if file == "" {
		file = c.Args().First()
	}

	bot, err := newEngine(c, remoteEnabled)
	if err != nil {
		return err
	}
	defer bot.Stop()

	if file == "" {
		file = bot.Config.Withdrawal.LastAddressFile
	}
	if file != "" {
		if _, err = bot.LoadAddressFile(file); err != nil {
			return err
		}
	} else {
		log.Warnln(log.AddressBook, "No address file loaded, batches cannot be started")
	}

	interrupt := signaler.WaitForInterrupt()
	defer signaler.Release(interrupt)
	fmt.Printf("Serving on %s, press Ctrl+C to stop\n", bot.Config.RemoteControl.ListenAddress)
	<-interrupt
	return nil
}
