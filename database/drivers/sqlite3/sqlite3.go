package sqlite

import (
	"path/filepath"

	"github.com/jmoiron/sqlx"
	// import sqlite3 driver
	_ "github.com/mattn/go-sqlite3"
	"github.com/thrasher-corp/gctwithdraw/database"
)

// InMemory is the database name used to open a non persistent database
const InMemory = ":memory:"

// Connect opens a connection to sqlite database and stores it on the
// supplied instance
func Connect(i *database.Instance) error {
	cfg := i.GetConfig()
	if cfg == nil || cfg.Database == "" {
		return database.ErrNoDatabaseProvided
	}

	location := cfg.Database
	if location != InMemory {
		location = filepath.Join(i.DataPath, cfg.Database)
	}

	dbConn, err := sqlx.Open(database.DBSQLite3, location)
	if err != nil {
		return err
	}
	if err = i.SetSQLiteConnection(dbConn); err != nil {
		return err
	}
	i.SetConnected(true)
	return nil
}
