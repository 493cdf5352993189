package database

import (
	"errors"
	"path/filepath"
	"sync"

	"github.com/jmoiron/sqlx"
)

// Supported database drivers
const (
	DBSQLite3             = "sqlite3"
	DBPostgreSQL          = "postgres"
	DefaultSQLiteDatabase = "gctwithdraw.db"
)

// MigrationDir is the default goose migration folder
var MigrationDir = filepath.Join("database", "migrations")

var (
	// DB Global Database Connection
	DB = &Instance{}
	// SupportedDrivers slice of supported database driver types
	SupportedDrivers = []string{DBSQLite3, DBPostgreSQL}

	// ErrNoDatabaseProvided error to display when no database is provided
	ErrNoDatabaseProvided = errors.New("no database provided")
	// ErrDatabaseSupportDisabled error to display when no database is provided
	ErrDatabaseSupportDisabled = errors.New("database support is disabled")
	// ErrDatabaseNotConnected is returned when a repository is used before a
	// connection has been established
	ErrDatabaseNotConnected = errors.New("database is not connected")

	errNilInstance = errors.New("database instance is nil")
	errNilConfig   = errors.New("received nil config")
	errNilSQL      = errors.New("database SQL connection is nil")
)

// Config holds all database configurable options including enable/disabled &
// DSN settings
type Config struct {
	Enabled bool   `json:"enabled"`
	Verbose bool   `json:"verbose"`
	Driver  string `json:"driver"`
	ConnectionDetails
}

// ConnectionDetails holds DSN information
type ConnectionDetails struct {
	Host     string `json:"host"`
	Port     uint16 `json:"port"`
	Username string `json:"username"`
	Password string `json:"password"`
	Database string `json:"database"`
	SSLMode  string `json:"sslmode"`
}

// Instance holds all information for a database instance
type Instance struct {
	SQL       *sqlx.DB
	DataPath  string
	config    *Config
	connected bool
	m         sync.RWMutex
}
