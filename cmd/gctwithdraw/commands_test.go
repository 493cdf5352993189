package main

import (
	"bytes"
	"testing"

	"github.com/gofrs/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/thrasher-corp/gctwithdraw/config"
	"github.com/thrasher-corp/gctwithdraw/engine/withdrawmanager"
	"github.com/thrasher-corp/gctwithdraw/portfolio/withdraw"
	"github.com/urfave/cli/v2"
)

func TestFlagsFromStruct(t *testing.T) {
	t.Parallel()
	flags := FlagsFromStruct(&struct {
		Exchange string  `cli:"exchange"`
		Leverage int64   `cli:"leverage"`
		Price    float64 `cli:"price"`
		Skipped  string
	}{
		Exchange: "okx",
		Leverage: 1,
		Price:    3.1415,
	}, map[string]string{"price": "the price"})
	require.Len(t, flags, 3)
	for e := range flags {
		assert.Contains(t, []string{"exchange", "leverage", "price"}, flags[e].Names()[0])
	}
	assert.Nil(t, FlagsFromStruct("not a struct", nil))
}

func runApp(t *testing.T, flags []cli.Flag, action cli.ActionFunc, args ...string) {
	t.Helper()
	app := cli.NewApp()
	app.Flags = flags
	app.Action = action
	require.NoError(t, app.Run(append([]string{"test"}, args...)))
}

func TestUnmarshalCLIFields(t *testing.T) {
	t.Parallel()
	var got batchFlags
	runApp(t,
		FlagsFromStruct(&batchFlags{Start: 1, MinInterval: -1, MaxInterval: -1}, batchUsage),
		func(c *cli.Context) error { return unmarshalCLIFields(c, &got) },
		"--coin", "eth", "--network", "ETH", "--min", "0.1", "--max", "0.2", "--end", "3", "--force")
	assert.Equal(t, batchFlags{
		Coin:        "eth",
		Network:     "ETH",
		MinAmount:   "0.1",
		MaxAmount:   "0.2",
		Start:       1,
		End:         3,
		MinInterval: -1,
		MaxInterval: -1,
		Force:       true,
	}, got)

	runApp(t, nil, func(c *cli.Context) error {
		assert.ErrorIs(t, unmarshalCLIFields(c, got), errNotStructPointer)
		return nil
	})
}

func TestArgOrFlag(t *testing.T) {
	t.Parallel()
	flags := []cli.Flag{&cli.StringFlag{Name: "coin"}, &cli.StringFlag{Name: "network"}}
	runApp(t, flags, func(c *cli.Context) error {
		coin, err := argOrFlag(c, "coin", 0)
		require.NoError(t, err)
		assert.Equal(t, "btc", coin)
		network, err := argOrFlag(c, "network", 0)
		require.NoError(t, err)
		assert.Equal(t, "positional", network)
		_, err = argOrFlag(c, "missing", 3)
		assert.ErrorIs(t, err, errMissingArgument)
		return nil
	}, "--coin", "btc", "positional")
}

func TestBatchFlagsParams(t *testing.T) {
	t.Parallel()
	cfg := &config.WithdrawalConfig{MinInterval: 60, MaxInterval: 600}
	f := &batchFlags{
		Coin:        " eth ",
		Network:     "ETH",
		MinAmount:   "0.1",
		MaxAmount:   "0.2",
		Start:       2,
		MinInterval: -1,
		MaxInterval: -1,
	}
	p, err := f.params(5, cfg)
	require.NoError(t, err)
	assert.Equal(t, "ETH", p.Coin)
	assert.Equal(t, 1, p.StartIndex)
	assert.Equal(t, 4, p.EndIndex, "an end of 0 must select the last address")
	assert.Equal(t, 60, p.MinInterval)
	assert.Equal(t, 600, p.MaxInterval)
	assert.True(t, p.MinAmount.Equal(decimal.RequireFromString("0.1")))

	f.MinInterval, f.MaxInterval = 0, 0
	p, err = f.params(5, cfg)
	require.NoError(t, err)
	assert.Zero(t, p.MaxInterval)

	f.End = 6
	_, err = f.params(5, cfg)
	assert.ErrorIs(t, err, withdraw.ErrInvalidAddressRange)

	f.End = 0
	f.MinAmount = "abc"
	_, err = f.params(5, cfg)
	assert.ErrorIs(t, err, errInvalidAmount)

	f.MinAmount = "0.3"
	_, err = f.params(5, cfg)
	assert.ErrorIs(t, err, withdraw.ErrInvalidAmountRange)
}

func TestParseAnswer(t *testing.T) {
	t.Parallel()
	for _, tc := range []struct {
		in                            string
		confirmed, confirmAll, parsed bool
	}{
		{"y", true, false, true},
		{" YES ", true, false, true},
		{"a", true, true, true},
		{"all", true, true, true},
		{"n", false, false, true},
		{"", false, false, true},
		{"maybe", false, false, false},
	} {
		confirmed, confirmAll, ok := parseAnswer(tc.in)
		assert.Equal(t, tc.confirmed, confirmed, tc.in)
		assert.Equal(t, tc.confirmAll, confirmAll, tc.in)
		assert.Equal(t, tc.parsed, ok, tc.in)
	}
}

type fakeResolver struct {
	calls []withdraw.ConfirmationResponse
}

func (f *fakeResolver) Resolve(id uuid.UUID, confirmed, confirmAll bool) error {
	f.calls = append(f.calls, withdraw.ConfirmationResponse{ID: id, Confirmed: confirmed, ConfirmAll: confirmAll})
	return nil
}

func TestPrompter(t *testing.T) {
	t.Parallel()
	var out bytes.Buffer
	r := &fakeResolver{}
	p := &prompter{out: &out, resolver: r}

	p.answer("y")
	assert.Empty(t, r.calls, "answers without a pending confirmation must be ignored")

	first := withdraw.ConfirmationRequest{ID: uuid.Must(uuid.NewV4()), Coin: "ETH", Network: "ETH", Amount: decimal.NewFromInt(2), USDValue: decimal.NewFromInt(5000)}
	second := withdraw.ConfirmationRequest{ID: uuid.Must(uuid.NewV4()), Coin: "ETH", Network: "ETH", Amount: decimal.NewFromInt(3)}
	_, done := p.handleEvent(&withdrawmanager.Event{Type: withdrawmanager.EventConfirmationRequested, Data: first})
	assert.False(t, done)
	assert.Contains(t, out.String(), "~5000.00 USD")
	p.handleEvent(&withdrawmanager.Event{Type: withdrawmanager.EventConfirmationRequested, Data: second})
	require.Len(t, p.pending, 2)

	out.Reset()
	p.answer("what")
	assert.Contains(t, out.String(), "Please answer")
	assert.Empty(t, r.calls)

	p.answer("a")
	require.Len(t, r.calls, 1)
	assert.Equal(t, withdraw.ConfirmationResponse{ID: first.ID, Confirmed: true, ConfirmAll: true}, r.calls[0])
	require.Len(t, p.pending, 1)
	assert.Equal(t, second.ID, p.pending[0].ID)

	p.handleEvent(&withdrawmanager.Event{Type: withdrawmanager.EventConfirmationResolved, Data: withdraw.ConfirmationResponse{ID: second.ID}})
	assert.Empty(t, p.pending, "remotely resolved confirmations must be dropped")

	summary, done := p.handleEvent(&withdrawmanager.Event{
		Type: withdrawmanager.EventBatchFinished,
		Data: withdrawmanager.Summary{Processed: 2, Total: 2, Succeeded: 2},
	})
	assert.True(t, done)
	assert.Equal(t, 2, summary.Succeeded)
}
