package session

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"readmegen/internal/models"
)

// SQLStore keeps state in the session_states table.
type SQLStore struct {
	db     *sql.DB
	driver string
	cipher *Cipher
}

// NewSQLStore expects a migrated database; driver is sqlite3 or mysql.
func NewSQLStore(db *sql.DB, driver string, c *Cipher) *SQLStore {
	return &SQLStore{db: db, driver: driver, cipher: c}
}

func (s *SQLStore) Load(ctx context.Context, id string) (*models.SessionState, error) {
	var payload string
	err := s.db.QueryRowContext(ctx, `SELECT payload FROM session_states WHERE id = ?`, id).Scan(&payload)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("query session: %w", err)
	}
	return decodeState(s.cipher, payload)
}

func (s *SQLStore) Save(ctx context.Context, state *models.SessionState) error {
	payload, err := encodeState(s.cipher, state)
	if err != nil {
		return err
	}
	var stmt string
	switch s.driver {
	case "mysql":
		stmt = `INSERT INTO session_states (id, payload, reset_counter, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?)
			ON DUPLICATE KEY UPDATE payload = VALUES(payload), reset_counter = VALUES(reset_counter), updated_at = VALUES(updated_at)`
	default:
		stmt = `INSERT INTO session_states (id, payload, reset_counter, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?)
			ON CONFLICT(id) DO UPDATE SET payload = excluded.payload, reset_counter = excluded.reset_counter, updated_at = excluded.updated_at`
	}
	if _, err := s.db.ExecContext(ctx, stmt,
		state.ID, payload, state.ResetCounter, state.CreatedAt.UTC(), state.UpdatedAt.UTC(),
	); err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

func (s *SQLStore) Delete(ctx context.Context, id string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM session_states WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

func (s *SQLStore) DeleteExpired(ctx context.Context, before time.Time) (int, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM session_states WHERE updated_at < ?`, before.UTC())
	if err != nil {
		return 0, fmt.Errorf("delete expired sessions: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	return int(affected), nil
}

func (s *SQLStore) Close() error {
	return s.db.Close()
}
