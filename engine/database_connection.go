package engine

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/thrasher-corp/gctwithdraw/database"
	dbpsql "github.com/thrasher-corp/gctwithdraw/database/drivers/postgres"
	dbsqlite3 "github.com/thrasher-corp/gctwithdraw/database/drivers/sqlite3"
	"github.com/thrasher-corp/gctwithdraw/engine/subsystem"
	"github.com/thrasher-corp/gctwithdraw/log"
	"github.com/thrasher-corp/goose"
)

// DatabaseConnectionManagerName is an exported subsystem name
const DatabaseConnectionManagerName = "database"

var errDatabaseDisabled = errors.New("database support disabled")

// DatabaseConnectionManager holds the database connection and its status
type DatabaseConnectionManager struct {
	started      int32
	shutdown     chan struct{}
	cfg          database.Config
	dbConn       *database.Instance
	migrationDir string
	wg           *sync.WaitGroup
	pingInterval time.Duration
}

// SetupDatabaseConnectionManager creates a new database manager. Migrations
// found in migrationDir are applied on start when it is set.
func SetupDatabaseConnectionManager(cfg *database.Config, dataPath, migrationDir string) (*DatabaseConnectionManager, error) {
	if cfg == nil {
		return nil, errNilConfig
	}
	m := &DatabaseConnectionManager{
		shutdown:     make(chan struct{}),
		cfg:          *cfg,
		dbConn:       database.DB,
		migrationDir: migrationDir,
		pingInterval: time.Minute,
	}
	m.dbConn.DataPath = dataPath
	if err := m.dbConn.SetConfig(&m.cfg); err != nil {
		return nil, err
	}
	return m, nil
}

// IsRunning safely checks whether the subsystem is running
func (m *DatabaseConnectionManager) IsRunning() bool {
	if m == nil {
		return false
	}
	return atomic.LoadInt32(&m.started) == 1
}

// GetInstance returns the database instance when connected
func (m *DatabaseConnectionManager) GetInstance() *database.Instance {
	if m == nil || !m.IsRunning() {
		return nil
	}
	return m.dbConn
}

// Start sets up the database connection manager to maintain a SQL connection
func (m *DatabaseConnectionManager) Start(wg *sync.WaitGroup) (err error) {
	if m == nil {
		return fmt.Errorf("%s %w", DatabaseConnectionManagerName, ErrNilSubsystem)
	}
	if wg == nil {
		return subsystem.ErrNilWaitGroup
	}
	if !atomic.CompareAndSwapInt32(&m.started, 0, 1) {
		return fmt.Errorf("database manager %w", ErrSubSystemAlreadyStarted)
	}
	defer func() {
		if err != nil {
			atomic.CompareAndSwapInt32(&m.started, 1, 0)
		}
	}()

	log.Debugln(log.DatabaseMgr, "Database manager starting...")
	if !m.cfg.Enabled {
		return database.ErrDatabaseSupportDisabled
	}

	switch m.cfg.Driver {
	case database.DBPostgreSQL:
		log.Debugf(log.DatabaseMgr,
			"Attempting to establish database connection to host %s/%s utilising %s driver\n",
			m.cfg.Host,
			m.cfg.Database,
			m.cfg.Driver)
		err = dbpsql.Connect(m.dbConn)
	case database.DBSQLite3:
		log.Debugf(log.DatabaseMgr,
			"Attempting to establish database connection to %s utilising %s driver\n",
			m.cfg.Database,
			m.cfg.Driver)
		err = dbsqlite3.Connect(m.dbConn)
	default:
		return fmt.Errorf("%w: unsupported driver %q", errDatabaseDisabled, m.cfg.Driver)
	}
	if err != nil {
		return fmt.Errorf("database failed to connect: %w, some features that utilise a database will be unavailable", err)
	}

	if m.migrationDir != "" {
		if err = m.migrate(); err != nil {
			if closeErr := m.dbConn.CloseConnection(); closeErr != nil {
				log.Errorln(log.DatabaseMgr, closeErr)
			}
			return err
		}
	}

	m.shutdown = make(chan struct{})
	m.wg = wg
	wg.Add(1)
	go m.run(wg)
	return nil
}

// Stop stops the database manager and closes the connection
func (m *DatabaseConnectionManager) Stop() error {
	if m == nil {
		return fmt.Errorf("%s %w", DatabaseConnectionManagerName, ErrNilSubsystem)
	}
	if !atomic.CompareAndSwapInt32(&m.started, 1, 0) {
		return fmt.Errorf("database manager %w", ErrSubSystemNotStarted)
	}
	log.Debugf(log.DatabaseMgr, "Database manager %s", subsystem.MsgShuttingDown)
	close(m.shutdown)
	if err := m.dbConn.CloseConnection(); err != nil {
		log.Errorf(log.DatabaseMgr, "Failed to close database: %v", err)
	}
	return nil
}

func (m *DatabaseConnectionManager) migrate() error {
	db, err := m.dbConn.GetSQL()
	if err != nil {
		return err
	}
	if err = goose.Run("up", db.DB, m.dbConn.GetSQLDialect(), m.migrationDir, ""); err != nil {
		return fmt.Errorf("database migration failed: %w", err)
	}
	return nil
}

func (m *DatabaseConnectionManager) run(wg *sync.WaitGroup) {
	log.Debugf(log.DatabaseMgr, "Database manager %s", subsystem.MsgStarted)
	t := time.NewTicker(m.pingInterval)
	defer func() {
		t.Stop()
		wg.Done()
		log.Debugf(log.DatabaseMgr, "Database manager %s", subsystem.MsgShutdown)
	}()

	for {
		select {
		case <-m.shutdown:
			return
		case <-t.C:
			m.checkConnection()
		}
	}
}

func (m *DatabaseConnectionManager) checkConnection() {
	if err := m.dbConn.Ping(); err != nil {
		m.dbConn.SetConnected(false)
		log.Errorf(log.DatabaseMgr, "Database connection error: %v\n", err)
		return
	}
	if !m.dbConn.IsConnected() {
		log.Infof(log.DatabaseMgr, "Database connection reestablished")
		m.dbConn.SetConnected(true)
	}
}
