package main

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/thrasher-corp/gctwithdraw/portfolio/withdraw"
	"github.com/urfave/cli/v2"
)

var coinsCommand = &cli.Command{
	Name:   "coins",
	Usage:  "lists coins with at least one network open for withdrawal",
	Action: getCoins,
}

var networksCommand = &cli.Command{
	Name:      "networks",
	Usage:     "lists the withdrawal networks of a coin",
	ArgsUsage: "<coin>",
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:  "coin",
			Usage: "the coin to query",
		},
	},
	Action: getNetworks,
}

var balanceCommand = &cli.Command{
	Name:      "balance",
	Usage:     "returns the free balance of a coin",
	ArgsUsage: "<coin>",
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:  "coin",
			Usage: "the coin to query",
		},
	},
	Action: getBalance,
}

var feeCommand = &cli.Command{
	Name:      "fee",
	Usage:     "returns the withdrawal fee and amount precision of a coin on a network",
	ArgsUsage: "<coin> <network>",
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:  "coin",
			Usage: "the coin to query",
		},
		&cli.StringFlag{
			Name:  "network",
			Usage: "the withdrawal network",
		},
	},
	Action: getFee,
}

var historyCommand = &cli.Command{
	Name:      "history",
	Usage:     "returns the exchange withdrawal history of a coin",
	ArgsUsage: "<coin>",
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:  "coin",
			Usage: "the coin to query",
		},
	},
	Action: getHistory,
}

func getCoins(c *cli.Context) error {
	bot, err := newEngine(c, remoteDisabled)
	if err != nil {
		return err
	}
	defer bot.Stop()
	gw, err := bot.GetExchange()
	if err != nil {
		return err
	}

	ctx, cancel := queryContext(c)
	defer cancel()
	coins, err := gw.GetWithdrawableCoins(ctx)
	if err != nil {
		return err
	}
	if outputJSON {
		jsonOutput(coins)
		return nil
	}
	fmt.Printf("%s withdrawable coins (%d):\n%s\n", gw.GetName(), len(coins), strings.Join(coins, ", "))
	return nil
}

func getNetworks(c *cli.Context) error {
	coin, err := argOrFlag(c, "coin", 0)
	if err != nil {
		return err
	}
	bot, err := newEngine(c, remoteDisabled)
	if err != nil {
		return err
	}
	defer bot.Stop()
	gw, err := bot.GetExchange()
	if err != nil {
		return err
	}

	ctx, cancel := queryContext(c)
	defer cancel()
	networks, err := gw.GetNetworks(ctx, coin)
	if err != nil {
		return err
	}
	if outputJSON {
		jsonOutput(networks)
		return nil
	}
	fmt.Printf("%s %s networks: %s\n", gw.GetName(), strings.ToUpper(coin), strings.Join(networks, ", "))
	return nil
}

func getBalance(c *cli.Context) error {
	coin, err := argOrFlag(c, "coin", 0)
	if err != nil {
		return err
	}
	bot, err := newEngine(c, remoteDisabled)
	if err != nil {
		return err
	}
	defer bot.Stop()
	gw, err := bot.GetExchange()
	if err != nil {
		return err
	}

	ctx, cancel := queryContext(c)
	defer cancel()
	balance, err := gw.GetBalance(ctx, coin)
	if err != nil {
		return err
	}
	if outputJSON {
		jsonOutput(map[string]string{"exchange": gw.GetName(), "coin": strings.ToUpper(coin), "balance": balance.String()})
		return nil
	}
	printField("Exchange", gw.GetName())
	printField("Coin", strings.ToUpper(coin))
	printField("Balance", balance)
	return nil
}

func getFee(c *cli.Context) error {
	coin, err := argOrFlag(c, "coin", 0)
	if err != nil {
		return err
	}
	network, err := argOrFlag(c, "network", 1)
	if err != nil {
		return err
	}
	bot, err := newEngine(c, remoteDisabled)
	if err != nil {
		return err
	}
	defer bot.Stop()
	gw, err := bot.GetExchange()
	if err != nil {
		return err
	}

	ctx, cancel := queryContext(c)
	defer cancel()
	fee, err := gw.GetWithdrawalFee(ctx, coin, network)
	if err != nil {
		return err
	}
	precision, err := gw.GetWithdrawPrecision(ctx, coin, network)
	if err != nil {
		return err
	}
	if outputJSON {
		jsonOutput(map[string]any{"coin": strings.ToUpper(coin), "network": network, "fee": fee.String(), "precision": precision})
		return nil
	}
	printField("Coin", strings.ToUpper(coin))
	printField("Network", network)
	printField("Fee", fee)
	printField("Precision", precision)
	return nil
}

func getHistory(c *cli.Context) error {
	coin, err := argOrFlag(c, "coin", 0)
	if err != nil {
		return err
	}
	bot, err := newEngine(c, remoteDisabled)
	if err != nil {
		return err
	}
	defer bot.Stop()
	gw, err := bot.GetExchange()
	if err != nil {
		return err
	}

	ctx, cancel := queryContext(c)
	defer cancel()
	history, err := gw.GetWithdrawalHistory(ctx, coin)
	if err != nil {
		return err
	}
	if outputJSON {
		jsonOutput(history)
		return nil
	}
	return printHistory(history)
}

func printHistory(history []withdraw.HistoryItem) error {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "TIME\tID\tCOIN\tNETWORK\tAMOUNT\tFEE\tADDRESS\tSTATUS\tTXID")
	for i := range history {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			history[i].Time.Format("2006-01-02 15:04:05"),
			history[i].ID,
			history[i].Coin,
			history[i].Network,
			history[i].Amount,
			history[i].Fee,
			withdraw.MaskAddress(history[i].Address),
			history[i].Status,
			history[i].TxID)
	}
	return w.Flush()
}
