package session

import (
	"context"
	"errors"
	"time"

	"readmegen/internal/models"
)

// ErrNotFound reports that no state is stored for a session id.
var ErrNotFound = errors.New("session not found")

// Store persists session state. Implementations must be safe for concurrent use;
// read-modify-write serialization is the Manager's job.
type Store interface {
	Load(ctx context.Context, id string) (*models.SessionState, error)
	Save(ctx context.Context, state *models.SessionState) error
	Delete(ctx context.Context, id string) error
	// DeleteExpired removes sessions last updated before the cutoff.
	DeleteExpired(ctx context.Context, before time.Time) (int, error)
	Close() error
}
