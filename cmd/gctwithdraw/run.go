package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/gofrs/uuid"
	"github.com/thrasher-corp/gctwithdraw/config"
	"github.com/thrasher-corp/gctwithdraw/engine/withdrawmanager"
	"github.com/thrasher-corp/gctwithdraw/log"
	"github.com/thrasher-corp/gctwithdraw/portfolio/addressbook"
	"github.com/thrasher-corp/gctwithdraw/portfolio/withdraw"
	"github.com/thrasher-corp/gctwithdraw/signaler"
	"github.com/urfave/cli/v2"
)

const waitTickDisplayEvery = 10

var (
	errInvalidAddresses = errors.New("address file holds invalid addresses")
	errBatchStopped     = errors.New("batch stopped before completion")
)

// batchFlags are the run options. Address ranges are 1-based and inclusive,
// an end of 0 selects the last address
type batchFlags struct {
	File        string `cli:"file"`
	Coin        string `cli:"coin"`
	Network     string `cli:"network"`
	MinAmount   string `cli:"min"`
	MaxAmount   string `cli:"max"`
	Start       int    `cli:"start"`
	End         int    `cli:"end"`
	MinInterval int    `cli:"mininterval"`
	MaxInterval int    `cli:"maxinterval"`
	Force       bool   `cli:"force"`
}

var batchUsage = map[string]string{
	"file":        "csv (address,label) or txt address file, defaults to the last used file",
	"coin":        "the coin to withdraw",
	"network":     "the withdrawal network",
	"min":         "the minimum amount per address",
	"max":         "the maximum amount per address",
	"start":       "the first address of the range, starting at 1",
	"end":         "the last address of the range, 0 selects the last address",
	"mininterval": "the minimum seconds between withdrawals, -1 uses the config value",
	"maxinterval": "the maximum seconds between withdrawals, -1 uses the config value",
	"force":       "starts even when addresses fail validation",
}

var runCommand = &cli.Command{
	Name:      "run",
	Usage:     "withdraws a random amount to every address in a range of an address file",
	ArgsUsage: "<addressfile>",
	Flags:     FlagsFromStruct(&batchFlags{Start: 1, MinInterval: -1, MaxInterval: -1}, batchUsage),
	Action:    runBatch,
}

// params converts the flags into batch parameters for addressCount addresses
func (f *batchFlags) params(addressCount int, cfg *config.WithdrawalConfig) (*withdraw.BatchParameters, error) {
	minAmount, err := parseAmount("min", f.MinAmount)
	if err != nil {
		return nil, err
	}
	maxAmount, err := parseAmount("max", f.MaxAmount)
	if err != nil {
		return nil, err
	}
	end := f.End
	if end == 0 {
		end = addressCount
	}
	startIdx, endIdx, err := withdraw.DisplayRangeToIndex(f.Start, end, addressCount)
	if err != nil {
		return nil, err
	}
	p := &withdraw.BatchParameters{
		Coin:        strings.ToUpper(strings.TrimSpace(f.Coin)),
		Network:     strings.TrimSpace(f.Network),
		MinAmount:   minAmount,
		MaxAmount:   maxAmount,
		StartIndex:  startIdx,
		EndIndex:    endIdx,
		MinInterval: f.MinInterval,
		MaxInterval: f.MaxInterval,
	}
	if p.MinInterval < 0 {
		p.MinInterval = cfg.MinInterval
	}
	if p.MaxInterval < 0 {
		p.MaxInterval = cfg.MaxInterval
	}
	return p, p.Validate(addressCount)
}

func runBatch(c *cli.Context) error {
	var flags batchFlags
	if err := unmarshalCLIFields(c, &flags); err != nil {
		return err
	}
	if flags.File == "" {
		flags.File = c.Args().First()
	}

	bot, err := newEngine(c, remoteFromConfig)
	if err != nil {
		return err
	}
	defer bot.Stop()
	checkClock(bot.Config)

	if flags.File == "" {
		flags.File = bot.Config.Withdrawal.LastAddressFile
	}
	if flags.File == "" {
		return errNoAddressFile
	}
	book, err := bot.LoadAddressFile(flags.File)
	if err != nil {
		return err
	}

	params, err := flags.params(book.Len(), &bot.Config.Withdrawal)
	if err != nil {
		return err
	}
	if invalid := addressbook.ValidateBatch(params.Coin, book.Addresses()); len(invalid) > 0 {
		printInvalid(invalid)
		if !flags.Force {
			return fmt.Errorf("%w: %d of %d", errInvalidAddresses, len(invalid), book.Len())
		}
		log.Warnf(log.AddressBook, "Starting with %d invalid addresses", len(invalid))
	}

	pipe, err := bot.WithdrawManager.Subscribe()
	if err != nil {
		return err
	}
	defer func() {
		if err := pipe.Release(); err != nil {
			log.Errorln(log.WithdrawMgr, err)
		}
	}()

	runID, err := bot.WithdrawManager.Start(params)
	if err != nil {
		return err
	}
	fmt.Printf("Started batch %s: %s on %s to addresses %d-%d of %s\n",
		runID,
		params.Coin,
		params.Network,
		params.StartIndex+1,
		params.EndIndex+1,
		flags.File)

	interrupt := signaler.WaitForInterrupt()
	defer signaler.Release(interrupt)

	p := &prompter{out: os.Stdout, resolver: bot.WithdrawManager}
	lines := readLines(os.Stdin)
	for {
		select {
		case data, ok := <-pipe.C:
			if !ok {
				return errBatchStopped
			}
			evt, ok := data.(withdrawmanager.Event)
			if !ok || evt.RunID != runID {
				continue
			}
			if summary, done := p.handleEvent(&evt); done {
				return summary.Err
			}
		case line, ok := <-lines:
			if !ok {
				lines = nil
				continue
			}
			p.answer(line)
		case <-interrupt:
			fmt.Println("\nStopping batch, press Ctrl+C again to quit immediately")
			if err := bot.WithdrawManager.Stop(); err != nil {
				return err
			}
			forceExitOnInterrupt()
			interrupt = nil
		}
	}
}

// forceExitOnInterrupt exits the process on the next signal
func forceExitOnInterrupt() {
	c := signaler.WaitForInterrupt()
	go func() {
		<-c
		fmt.Println("\nForced exit")
		os.Exit(1)
	}()
}

func readLines(r io.Reader) <-chan string {
	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(r)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
	}()
	return lines
}

type confirmationResolver interface {
	Resolve(id uuid.UUID, confirmed, confirmAll bool) error
}

// prompter renders manager events on a terminal and answers confirmations
type prompter struct {
	out      io.Writer
	resolver confirmationResolver
	pending  []withdraw.ConfirmationRequest
}

// handleEvent prints an event and reports the summary once the batch is done
func (p *prompter) handleEvent(evt *withdrawmanager.Event) (withdrawmanager.Summary, bool) {
	switch data := evt.Data.(type) {
	case withdrawmanager.Progress:
		fmt.Fprintf(p.out, "Progress: %d/%d\n", data.Processed, data.Total)
	case withdrawmanager.WaitTick:
		if data.Seconds > 0 && (data.Seconds%waitTickDisplayEvery == 0 || data.Seconds <= 3) {
			fmt.Fprintf(p.out, "Next withdrawal in %ds\n", data.Seconds)
		}
	case withdraw.ConfirmationRequest:
		p.pending = append(p.pending, data)
		if len(p.pending) == 1 {
			p.prompt()
		}
	case withdraw.ConfirmationResponse:
		p.remove(data.ID)
	case withdrawmanager.Summary:
		p.pending = nil
		fmt.Fprintf(p.out, "Batch %s finished: processed %d/%d, succeeded %d, skipped %d, failed %d, cancelled %v\n",
			data.RunID,
			data.Processed,
			data.Total,
			data.Succeeded,
			data.Skipped,
			data.Failed,
			data.Cancelled)
		return data, true
	}
	return withdrawmanager.Summary{}, false
}

func (p *prompter) prompt() {
	req := p.pending[0]
	value := ""
	if req.USDValue.IsPositive() {
		value = fmt.Sprintf(" (~%s USD)", req.USDValue.StringFixed(2))
	}
	fmt.Fprintf(p.out, "Confirm withdrawal of %s %s%s on %s to %s? [y]es/[n]o/[a]ll: ",
		req.Amount,
		req.Coin,
		value,
		req.Network,
		req.Address)
}

// answer resolves the oldest pending confirmation from a terminal line
func (p *prompter) answer(line string) {
	if len(p.pending) == 0 {
		return
	}
	confirmed, confirmAll, ok := parseAnswer(line)
	if !ok {
		fmt.Fprint(p.out, "Please answer y, n or a: ")
		return
	}
	id := p.pending[0].ID
	if err := p.resolver.Resolve(id, confirmed, confirmAll); err != nil &&
		!errors.Is(err, withdrawmanager.ErrConfirmationAlreadyResolved) &&
		!errors.Is(err, withdrawmanager.ErrUnknownConfirmation) {
		fmt.Fprintf(p.out, "Unable to resolve confirmation: %v\n", err)
	}
	p.remove(id)
}

func (p *prompter) remove(id uuid.UUID) {
	for i := range p.pending {
		if p.pending[i].ID != id {
			continue
		}
		p.pending = append(p.pending[:i], p.pending[i+1:]...)
		if i == 0 && len(p.pending) > 0 {
			p.prompt()
		}
		return
	}
}

func parseAnswer(line string) (confirmed, confirmAll, ok bool) {
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true, false, true
	case "a", "all":
		return true, true, true
	case "n", "no", "":
		return false, false, true
	}
	return false, false, false
}

func printInvalid(invalid []addressbook.Invalid) {
	for i := range invalid {
		fmt.Printf("Invalid address #%d %s: %s\n", invalid[i].Index, invalid[i].Address, invalid[i].Reason)
	}
}
