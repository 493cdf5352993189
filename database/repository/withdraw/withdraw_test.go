package withdraw

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/gofrs/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/thrasher-corp/gctwithdraw/database"
	sqlite "github.com/thrasher-corp/gctwithdraw/database/drivers/sqlite3"
	"github.com/thrasher-corp/goose"
	"github.com/volatiletech/null"
)

var migrationDir = filepath.Join("..", "..", "migrations")

func newTestRepository(t *testing.T) *Repository {
	t.Helper()
	inst := &database.Instance{}
	require.NoError(t, inst.SetConfig(&database.Config{
		Enabled:           true,
		Driver:            database.DBSQLite3,
		ConnectionDetails: database.ConnectionDetails{Database: sqlite.InMemory},
	}))
	require.NoError(t, sqlite.Connect(inst), "sqlite Connect must not error")
	t.Cleanup(func() { assert.NoError(t, inst.CloseConnection()) })

	db, err := inst.GetSQL()
	require.NoError(t, err)
	require.NoError(t, goose.Run("up", db.DB, inst.GetSQLDialect(), migrationDir, ""), "migrations must apply")

	r, err := New(inst)
	require.NoError(t, err)
	return r
}

func TestNew(t *testing.T) {
	t.Parallel()
	_, err := New(&database.Instance{})
	assert.ErrorIs(t, err, database.ErrDatabaseNotConnected)
}

func TestEventAndQuery(t *testing.T) {
	t.Parallel()
	r := newTestRepository(t)
	ctx := context.Background()

	assert.ErrorIs(t, r.Event(ctx, nil), errNilRecord)
	assert.ErrorIs(t, r.Event(ctx, &Record{}), errRunIDRequired)

	runID := uuid.Must(uuid.NewV4())
	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	recs := []*Record{
		{
			RunID:        runID,
			Exchange:     "Binance",
			Coin:         "USDT",
			Network:      "TRX",
			Address:      "TXYZopYRdj2D9XRtbG411XZZ3kM5VkAeBf",
			Label:        null.StringFrom("memo"),
			AddressIndex: 1,
			Amount:       decimal.RequireFromString("1.50"),
			Fee:          decimal.RequireFromString("1"),
			Status:       StatusFailed,
			Error:        null.StringFrom("insufficient balance"),
			CreatedAt:    base.Add(time.Second),
		},
		{
			RunID:        runID,
			Exchange:     "Binance",
			Coin:         "USDT",
			Network:      "TRX",
			Address:      "TJRabPrwbZy45sbavfcjinPJC18kjpRTv8",
			AddressIndex: 0,
			Amount:       decimal.RequireFromString("1.25"),
			Fee:          decimal.RequireFromString("1"),
			Status:       StatusSuccess,
			ExchangeID:   null.StringFrom("7213fea8e94b4a5593d507237e5a555b"),
			CreatedAt:    base,
		},
	}
	for i := range recs {
		require.NoError(t, r.Event(ctx, recs[i]), "Event must not error")
		assert.False(t, recs[i].ID.IsNil(), "Event should assign an id")
	}

	other := &Record{
		RunID:    uuid.Must(uuid.NewV4()),
		Exchange: "OKX",
		Coin:     "ETH",
		Network:  "ERC20",
		Address:  "0x52908400098527886E0F7030069857D2E4169EE7",
		Amount:   decimal.RequireFromString("0.01"),
		Fee:      decimal.Zero,
		Status:   StatusSuccess,
	}
	require.NoError(t, r.Event(ctx, other))

	_, err := r.GetByRunID(ctx, uuid.Nil)
	assert.ErrorIs(t, err, errRunIDRequired)

	got, err := r.GetByRunID(ctx, runID)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, 0, got[0].AddressIndex, "records should be ordered by address index")
	assert.Equal(t, StatusSuccess, got[0].Status)
	assert.True(t, got[0].Amount.Equal(decimal.RequireFromString("1.25")))
	assert.Equal(t, "7213fea8e94b4a5593d507237e5a555b", got[0].ExchangeID.String)
	assert.False(t, got[0].Label.Valid)
	assert.Equal(t, "memo", got[1].Label.String)
	assert.Equal(t, "insufficient balance", got[1].Error.String)

	_, err = r.GetRecent(ctx, 0)
	assert.ErrorIs(t, err, errInvalidLimit)

	recent, err := r.GetRecent(ctx, 1)
	require.NoError(t, err)
	require.Len(t, recent, 1)
	assert.Equal(t, other.ID, recent[0].ID, "most recent record should be returned first")
}

func TestPostgresBindVars(t *testing.T) {
	t.Parallel()
	query := sqlx.Rebind(sqlx.BindType(database.DBPostgreSQL),
		`SELECT `+selectColumns+` FROM withdrawal_records WHERE run_id = ? ORDER BY created_at DESC LIMIT ?`)
	assert.Contains(t, query, "run_id = $1")
	assert.Contains(t, query, "LIMIT $2")

	named, args, err := sqlx.Named(insertRecord, &Record{Exchange: "OKX", AddressIndex: 3})
	require.NoError(t, err, "every insert column must map to a record field")
	assert.Len(t, args, 14)
	assert.Equal(t, "OKX", args[2])
	assert.Equal(t, 3, args[7])
	assert.NotContains(t, named, ":address_index")
}
