package session

import (
	"context"
	"log"
	"time"
)

const DefaultSweepInterval = 10 * time.Minute

// StartSweeper removes expired sessions every interval until ctx is done.
func (m *Manager) StartSweeper(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = DefaultSweepInterval
	}
	go m.sweepLoop(ctx, interval)
}

func (m *Manager) sweepLoop(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			removed, err := m.Sweep(ctx)
			if err != nil {
				log.Printf("sweep expired sessions error: %v", err)
				continue
			}
			if removed > 0 {
				log.Printf("swept %d expired sessions", removed)
			}
		}
	}
}
