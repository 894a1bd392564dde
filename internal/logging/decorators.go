package logging

import (
	"context"
	"log/slog"
	"time"

	"github.com/fed-stew/authvital/internal/simulator/storage"
)

// StoreLogger wraps a storage.Store and logs all method calls
type StoreLogger struct {
	store  storage.Store
	logger *slog.Logger
}

// NewStoreLogger creates a new logging decorator for a Store
func NewStoreLogger(store storage.Store, logger *slog.Logger) storage.Store {
	return &StoreLogger{
		store:  store,
		logger: logger.With("interface", "Store"),
	}
}

func (l *StoreLogger) CreateClient(ctx context.Context, client *storage.Client) error {
	start := time.Now()

	err := l.store.CreateClient(ctx, client)
	duration := time.Since(start)

	if err != nil {
		l.logger.Error("CreateClient failed",
			"client_id", client.ID,
			"duration", duration,
			"error", err)
		return err
	}

	l.logger.Info("CreateClient completed",
		"client_id", client.ID,
		"name", client.Name,
		"duration", duration)

	return nil
}

func (l *StoreLogger) GetClient(ctx context.Context, id string) (*storage.Client, error) {
	start := time.Now()

	client, err := l.store.GetClient(ctx, id)
	duration := time.Since(start)

	if err != nil {
		l.logger.Debug("GetClient failed",
			"client_id", id,
			"duration", duration,
			"error", err)
		return nil, err
	}

	l.logger.Debug("GetClient completed",
		"client_id", id,
		"duration", duration)

	return client, nil
}

func (l *StoreLogger) ListClients(ctx context.Context) ([]*storage.Client, error) {
	start := time.Now()

	clients, err := l.store.ListClients(ctx)
	duration := time.Since(start)

	if err != nil {
		l.logger.Error("ListClients failed",
			"duration", duration,
			"error", err)
		return nil, err
	}

	l.logger.Debug("ListClients completed",
		"count", len(clients),
		"duration", duration)

	return clients, nil
}

func (l *StoreLogger) DeleteClient(ctx context.Context, id string) error {
	start := time.Now()

	err := l.store.DeleteClient(ctx, id)
	duration := time.Since(start)

	if err != nil {
		l.logger.Error("DeleteClient failed",
			"client_id", id,
			"duration", duration,
			"error", err)
		return err
	}

	l.logger.Info("DeleteClient completed",
		"client_id", id,
		"duration", duration)

	return nil
}

func (l *StoreLogger) SetFailures(ctx context.Context, clientID string, count int) error {
	start := time.Now()

	err := l.store.SetFailures(ctx, clientID, count)
	duration := time.Since(start)

	if err != nil {
		l.logger.Error("SetFailures failed",
			"client_id", clientID,
			"count", count,
			"duration", duration,
			"error", err)
		return err
	}

	l.logger.Info("SetFailures completed",
		"client_id", clientID,
		"count", count,
		"duration", duration)

	return nil
}

func (l *StoreLogger) ConsumeFailure(ctx context.Context, clientID string) (bool, error) {
	start := time.Now()

	consumed, err := l.store.ConsumeFailure(ctx, clientID)
	duration := time.Since(start)

	if err != nil {
		l.logger.Error("ConsumeFailure failed",
			"client_id", clientID,
			"duration", duration,
			"error", err)
		return false, err
	}

	l.logger.Debug("ConsumeFailure completed",
		"client_id", clientID,
		"consumed", consumed,
		"duration", duration)

	return consumed, nil
}

func (l *StoreLogger) SaveToken(ctx context.Context, token *storage.Token) error {
	start := time.Now()

	err := l.store.SaveToken(ctx, token)
	duration := time.Since(start)

	if err != nil {
		l.logger.Error("SaveToken failed",
			"token_id", token.ID,
			"client_id", token.ClientID,
			"duration", duration,
			"error", err)
		return err
	}

	l.logger.Info("SaveToken completed",
		"token_id", token.ID,
		"client_id", token.ClientID,
		"duration", duration)

	return nil
}

func (l *StoreLogger) GetToken(ctx context.Context, value string) (*storage.Token, error) {
	start := time.Now()

	token, err := l.store.GetToken(ctx, value)
	duration := time.Since(start)

	if err != nil {
		l.logger.Debug("GetToken failed",
			"duration", duration,
			"error", err)
		return nil, err
	}

	l.logger.Debug("GetToken completed",
		"token_id", token.ID,
		"client_id", token.ClientID,
		"duration", duration)

	return token, nil
}

func (l *StoreLogger) RevokeToken(ctx context.Context, value string) error {
	start := time.Now()

	err := l.store.RevokeToken(ctx, value)
	duration := time.Since(start)

	if err != nil {
		l.logger.Error("RevokeToken failed",
			"duration", duration,
			"error", err)
		return err
	}

	l.logger.Info("RevokeToken completed",
		"duration", duration)

	return nil
}

func (l *StoreLogger) DeleteExpiredTokens(ctx context.Context, before time.Time) (int64, error) {
	start := time.Now()

	removed, err := l.store.DeleteExpiredTokens(ctx, before)
	duration := time.Since(start)

	if err != nil {
		l.logger.Error("DeleteExpiredTokens failed",
			"duration", duration,
			"error", err)
		return 0, err
	}

	l.logger.Debug("DeleteExpiredTokens completed",
		"removed", removed,
		"duration", duration)

	return removed, nil
}

func (l *StoreLogger) Close() error {
	return l.store.Close()
}
