package storage

import (
	"database/sql"
	"fmt"
	"strings"

	"readmegen/internal/config"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/mattn/go-sqlite3"
)

// DriverName maps a configured store name onto a database/sql driver.
func DriverName(dbType string) (string, error) {
	switch strings.ToLower(dbType) {
	case "sqlite", "sqlite3":
		return "sqlite3", nil
	case "mysql":
		return "mysql", nil
	default:
		return "", fmt.Errorf("unsupported driver: %s", dbType)
	}
}

// Open connects to the database configured under dbType.
func Open(dbType string, cfg *config.Config) (*sql.DB, error) {
	driver, err := DriverName(dbType)
	if err != nil {
		return nil, err
	}
	dbCfg, ok := cfg.Databases[driver]
	if !ok {
		dbCfg, ok = cfg.Databases[dbType]
	}
	if !ok {
		return nil, fmt.Errorf("database config for %s not found", dbType)
	}

	var db *sql.DB
	switch driver {
	case "sqlite3":
		if dbCfg.DSN == "" {
			return nil, fmt.Errorf("sqlite dsn must be provided")
		}
		db, err = sql.Open("sqlite3", dbCfg.DSN)
		if err != nil {
			return nil, fmt.Errorf("open sqlite database: %w", err)
		}
		// every new connection to an in-memory database starts empty
		if strings.Contains(dbCfg.DSN, ":memory:") || strings.Contains(dbCfg.DSN, "mode=memory") {
			db.SetMaxOpenConns(1)
		}
	case "mysql":
		dsn := dbCfg.DSN
		if dsn == "" {
			dsn = fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?%s",
				dbCfg.Username,
				dbCfg.Password,
				dbCfg.Host,
				dbCfg.Port,
				dbCfg.DBName,
				dbCfg.Params,
			)
		}
		db, err = sql.Open("mysql", dsn)
		if err != nil {
			return nil, fmt.Errorf("open mysql database: %w", err)
		}
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return db, nil
}

// Migrate ensures the session state table is present.
func Migrate(db *sql.DB, dbType string) error {
	driver, err := DriverName(dbType)
	if err != nil {
		return fmt.Errorf("unsupported driver for migration: %s", dbType)
	}
	var stmts []string
	switch driver {
	case "sqlite3":
		stmts = []string{
			`CREATE TABLE IF NOT EXISTS session_states (
				id TEXT PRIMARY KEY,
				payload TEXT NOT NULL,
				reset_counter INTEGER NOT NULL DEFAULT 0,
				created_at DATETIME NOT NULL,
				updated_at DATETIME NOT NULL
			)`,
			`CREATE INDEX IF NOT EXISTS idx_session_states_updated_at ON session_states(updated_at)`,
		}
	case "mysql":
		stmts = []string{
			`CREATE TABLE IF NOT EXISTS session_states (
				id VARCHAR(64) NOT NULL,
				payload LONGTEXT NOT NULL,
				reset_counter BIGINT NOT NULL DEFAULT 0,
				created_at DATETIME NOT NULL,
				updated_at DATETIME NOT NULL,
				PRIMARY KEY (id),
				INDEX idx_session_states_updated_at (updated_at)
			) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
		}
	}

	for _, stmt := range stmts {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("migrate (%s): %w", driver, err)
		}
	}
	return nil
}
