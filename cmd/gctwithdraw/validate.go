package main

import (
	"fmt"

	"github.com/thrasher-corp/gctwithdraw/portfolio/addressbook"
	"github.com/urfave/cli/v2"
)

var validateCommand = &cli.Command{
	Name:      "validate",
	Usage:     "checks every address of an address file against the address format of a coin",
	ArgsUsage: "<addressfile> <coin>",
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:  "file",
			Usage: "csv (address,label) or txt address file",
		},
		&cli.StringFlag{
			Name:  "coin",
			Usage: "the coin the addresses receive",
		},
	},
	Action: validateAddresses,
}

func validateAddresses(c *cli.Context) error {
	file, err := argOrFlag(c, "file", 0)
	if err != nil {
		return err
	}
	coin, err := argOrFlag(c, "coin", 1)
	if err != nil {
		return err
	}
	book, err := addressbook.LoadFile(file)
	if err != nil {
		return err
	}
	invalid := book.Validate(coin)
	if outputJSON {
		jsonOutput(invalid)
	} else {
		printInvalid(invalid)
		fmt.Printf("%d of %d addresses valid for %s\n", book.Len()-len(invalid), book.Len(), coin)
	}
	if len(invalid) > 0 {
		return fmt.Errorf("%w: %d of %d", errInvalidAddresses, len(invalid), book.Len())
	}
	return nil
}
