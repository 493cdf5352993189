package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/thrasher-corp/gctwithdraw/config"
	"github.com/thrasher-corp/gctwithdraw/database"
	dbpsql "github.com/thrasher-corp/gctwithdraw/database/drivers/postgres"
	dbsqlite3 "github.com/thrasher-corp/gctwithdraw/database/drivers/sqlite3"
	"github.com/thrasher-corp/goose"
)

var (
	configFile   string
	migrationDir string
	command      string
	args         string
)

func openDBConnection(cfg *config.Config) error {
	database.DB.DataPath = cfg.GetDataPath()
	var err error
	switch cfg.Database.Driver {
	case database.DBPostgreSQL:
		err = dbpsql.Connect(database.DB)
	case database.DBSQLite3:
		err = dbsqlite3.Connect(database.DB)
	default:
		return fmt.Errorf("unsupported database driver: %q", cfg.Database.Driver)
	}
	if err != nil {
		return fmt.Errorf("database failed to connect: %w", err)
	}
	return nil
}

func main() {
	fmt.Println("gctwithdraw database migration tool")
	fmt.Println()

	flag.StringVar(&command, "command", "", "command to run status|up|up-by-one|up-to|down|redo|version|create")
	flag.StringVar(&args, "args", "", "arguments to pass to goose")
	flag.StringVar(&configFile, "config", config.DefaultFilePath(), "config file to load")
	flag.StringVar(&migrationDir, "migrationdir", database.MigrationDir, "override migration folder")
	flag.Parse()

	if err := migrate(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func migrate() error {
	var conf config.Config
	if err := conf.LoadConfig(configFile, true); err != nil {
		return err
	}
	if !conf.Database.Enabled {
		return database.ErrDatabaseSupportDisabled
	}
	if err := openDBConnection(&conf); err != nil {
		return err
	}
	defer func() {
		if err := database.DB.CloseConnection(); err != nil {
			fmt.Println(err)
		}
	}()

	dialect := database.DB.GetSQLDialect()
	if dialect == database.DBSQLite3 {
		fmt.Printf("Database file: %s\n", conf.Database.Database)
	} else {
		fmt.Printf("Connected to: %s\n", conf.Database.Host)
	}

	db, err := database.DB.GetSQL()
	if err != nil {
		return err
	}

	if command == "" {
		if err = goose.Run("status", db.DB, dialect, migrationDir, ""); err != nil {
			return err
		}
		fmt.Println()
		flag.Usage()
		return nil
	}
	return goose.Run(command, db.DB, dialect, migrationDir, args)
}
