package storage

import (
	"testing"

	"readmegen/internal/config"
)

func TestOpenAndMigrateSQLite(t *testing.T) {
	cfg := config.Default()
	cfg.Databases["sqlite3"] = config.DatabaseConfig{DSN: "file::memory:?cache=shared"}

	db, err := Open("sqlite", cfg)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer db.Close()

	if err := Migrate(db, "sqlite3"); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	// idempotent
	if err := Migrate(db, "sqlite3"); err != nil {
		t.Fatalf("second migrate: %v", err)
	}
	var name string
	if err := db.QueryRow(`SELECT name FROM sqlite_master WHERE type='table' AND name='session_states'`).Scan(&name); err != nil {
		t.Fatalf("session_states missing: %v", err)
	}
}

func TestOpenUnknownDriver(t *testing.T) {
	if _, err := Open("postgres", config.Default()); err == nil {
		t.Fatalf("expected unsupported driver error")
	}
	if err := Migrate(nil, "oracle"); err == nil {
		t.Fatalf("expected unsupported migration error")
	}
}
