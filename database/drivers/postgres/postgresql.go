package postgres

import (
	"github.com/jmoiron/sqlx"
	// import postgres driver
	_ "github.com/lib/pq"
	"github.com/thrasher-corp/gctwithdraw/database"
)

// Connect opens a connection to Postgres database and stores it on the
// supplied instance
func Connect(i *database.Instance) error {
	cfg := i.GetConfig()
	if cfg == nil || cfg.Database == "" {
		return database.ErrNoDatabaseProvided
	}

	db, err := sqlx.Open(database.DBPostgreSQL, cfg.ConnectionDetails.DSN())
	if err != nil {
		return err
	}
	if err = i.SetPostgresConnection(db); err != nil {
		return err
	}
	i.SetConnected(true)
	return nil
}
