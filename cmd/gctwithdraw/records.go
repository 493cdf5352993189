package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/gofrs/uuid"
	dbwithdraw "github.com/thrasher-corp/gctwithdraw/database/repository/withdraw"
	"github.com/thrasher-corp/gctwithdraw/portfolio/withdraw"
	"github.com/urfave/cli/v2"
)

const defaultRecordLimit = 50

var recordsCommand = &cli.Command{
	Name:  "records",
	Usage: "lists withdrawal attempts stored in the local database",
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:  "runid",
			Usage: "only returns the attempts of this batch run",
		},
		&cli.IntFlag{
			Name:  "limit",
			Value: defaultRecordLimit,
			Usage: "the maximum number of recent attempts to return",
		},
	},
	Action: getRecords,
}

func getRecords(c *cli.Context) error {
	var runID uuid.UUID
	if c.IsSet("runid") {
		var err error
		if runID, err = uuid.FromString(c.String("runid")); err != nil {
			return fmt.Errorf("invalid run id: %w", err)
		}
	}

	bot, err := newEngine(c, remoteDisabled)
	if err != nil {
		return err
	}
	defer bot.Stop()
	if !bot.DatabaseManager.IsRunning() {
		return errDatabaseUnavailable
	}
	repo, err := dbwithdraw.New(bot.DatabaseManager.GetInstance())
	if err != nil {
		return err
	}

	ctx, cancel := queryContext(c)
	defer cancel()
	var records []dbwithdraw.Record
	if runID.IsNil() {
		records, err = repo.GetRecent(ctx, c.Int("limit"))
	} else {
		records, err = repo.GetByRunID(ctx, runID)
	}
	if err != nil {
		return err
	}
	if outputJSON {
		jsonOutput(records)
		return nil
	}
	return printRecords(records)
}

func printRecords(records []dbwithdraw.Record) error {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "TIME\tRUN\tEXCHANGE\tCOIN\tNETWORK\t#\tADDRESS\tAMOUNT\tFEE\tSTATUS\tDETAIL")
	for i := range records {
		detail := records[i].ExchangeID.String
		if records[i].Error.Valid {
			detail = records[i].Error.String
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%d\t%s\t%s\t%s\t%s\t%s\n",
			records[i].CreatedAt.Format("2006-01-02 15:04:05"),
			records[i].RunID,
			records[i].Exchange,
			records[i].Coin,
			records[i].Network,
			records[i].AddressIndex+1,
			withdraw.MaskAddress(records[i].Address),
			records[i].Amount,
			records[i].Fee,
			records[i].Status,
			detail)
	}
	return w.Flush()
}
