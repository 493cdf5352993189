package engine

import (
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/thrasher-corp/gctwithdraw/database"
	dbsqlite3 "github.com/thrasher-corp/gctwithdraw/database/drivers/sqlite3"
	"github.com/thrasher-corp/gctwithdraw/engine/subsystem"
)

var testMigrationDir = filepath.Join("..", "database", "migrations")

func TestSetupDatabaseConnectionManager(t *testing.T) {
	_, err := SetupDatabaseConnectionManager(nil, "", "")
	assert.ErrorIs(t, err, errNilConfig)

	m, err := SetupDatabaseConnectionManager(&database.Config{}, t.TempDir(), "")
	require.NoError(t, err)
	assert.NotNil(t, m)
	assert.False(t, m.IsRunning())
	assert.Nil(t, m.GetInstance())
}

func TestDatabaseConnectionManagerStart(t *testing.T) {
	var wg sync.WaitGroup
	var nilManager *DatabaseConnectionManager
	assert.ErrorIs(t, nilManager.Start(&wg), ErrNilSubsystem)

	m, err := SetupDatabaseConnectionManager(&database.Config{}, t.TempDir(), "")
	require.NoError(t, err)
	assert.ErrorIs(t, m.Start(nil), subsystem.ErrNilWaitGroup)
	assert.ErrorIs(t, m.Start(&wg), database.ErrDatabaseSupportDisabled)
	assert.False(t, m.IsRunning(), "a failed start must reset the running state")

	m, err = SetupDatabaseConnectionManager(&database.Config{Enabled: true, Driver: "mongodb"}, t.TempDir(), "")
	require.NoError(t, err)
	assert.ErrorIs(t, m.Start(&wg), errDatabaseDisabled)

	m, err = SetupDatabaseConnectionManager(&database.Config{Enabled: true, Driver: database.DBSQLite3}, t.TempDir(), "")
	require.NoError(t, err)
	assert.ErrorIs(t, m.Start(&wg), database.ErrNoDatabaseProvided)
}

func TestDatabaseConnectionManagerSQLite(t *testing.T) {
	var wg sync.WaitGroup
	m, err := SetupDatabaseConnectionManager(&database.Config{
		Enabled:           true,
		Driver:            database.DBSQLite3,
		ConnectionDetails: database.ConnectionDetails{Database: dbsqlite3.InMemory},
	}, t.TempDir(), testMigrationDir)
	require.NoError(t, err)

	assert.ErrorIs(t, m.Stop(), ErrSubSystemNotStarted)
	require.NoError(t, m.Start(&wg))
	assert.True(t, m.IsRunning())
	assert.ErrorIs(t, m.Start(&wg), ErrSubSystemAlreadyStarted)
	inst := m.GetInstance()
	require.NotNil(t, inst)
	assert.True(t, inst.IsConnected())
	m.checkConnection()
	assert.True(t, inst.IsConnected())

	require.NoError(t, m.Stop())
	wg.Wait()
	assert.False(t, m.IsRunning())
	assert.False(t, inst.IsConnected())
}
