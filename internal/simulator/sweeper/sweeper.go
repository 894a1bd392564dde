// Package sweeper periodically purges expired tokens from the simulator store.
package sweeper

import (
	"context"
	"log/slog"
	"time"
)

// Storage interface for sweeper operations
type Storage interface {
	DeleteExpiredTokens(ctx context.Context, before time.Time) (int64, error)
}

// Sweeper manages periodic token cleanup
type Sweeper struct {
	storage  Storage
	interval time.Duration
	stopChan chan struct{}
	logger   *slog.Logger
}

// New creates a new sweeper
func New(storage Storage, interval time.Duration, logger *slog.Logger) *Sweeper {
	if logger == nil {
		logger = slog.Default()
	}
	return &Sweeper{
		storage:  storage,
		interval: interval,
		stopChan: make(chan struct{}),
		logger:   logger,
	}
}

// Start begins the sweeper loop
func (s *Sweeper) Start() {
	s.logger.Info("Sweeper started", "interval", s.interval.String())
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.tick()
		case <-s.stopChan:
			s.logger.Info("Sweeper stopped")
			return
		}
	}
}

// Stop stops the sweeper
func (s *Sweeper) Stop() {
	close(s.stopChan)
}

// tick performs one cleanup cycle. Revoked tokens are kept until they
// expire so introspection keeps answering for them.
func (s *Sweeper) tick() {
	ctx := context.Background()

	removed, err := s.storage.DeleteExpiredTokens(ctx, time.Now())
	if err != nil {
		s.logger.Error("Failed to purge expired tokens", "error", err)
		return
	}

	if removed > 0 {
		s.logger.Info("Purged expired tokens", "count", removed)
	} else {
		s.logger.Debug("Sweeper tick", "removed", removed)
	}
}
