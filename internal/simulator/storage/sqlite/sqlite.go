package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/fed-stew/authvital/internal/simulator/storage"

	_ "github.com/mattn/go-sqlite3"
)

// Store implements storage.Store using SQLite
type Store struct {
	db *sql.DB
}

// New creates a new SQLite store instance
func New(dbPath string) (*Store, error) {
	// Foreign keys go through the DSN so every pooled connection enforces them
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &Store{db: db}

	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// migrate creates the database schema
func (s *Store) migrate() error {
	schema := `
		CREATE TABLE IF NOT EXISTS clients (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			secret_hash TEXT NOT NULL,
			scopes TEXT NOT NULL DEFAULT '',
			fail_next INTEGER NOT NULL DEFAULT 0,
			created_at DATETIME NOT NULL,
			updated_at DATETIME NOT NULL
		);

		CREATE TABLE IF NOT EXISTS tokens (
			id TEXT PRIMARY KEY,
			client_id TEXT NOT NULL,
			value TEXT NOT NULL UNIQUE,
			scope TEXT NOT NULL DEFAULT '',
			expires_at DATETIME NOT NULL,
			revoked INTEGER NOT NULL DEFAULT 0,
			created_at DATETIME NOT NULL,
			FOREIGN KEY (client_id) REFERENCES clients(id) ON DELETE CASCADE
		);

		CREATE INDEX IF NOT EXISTS idx_tokens_client ON tokens(client_id);
	`

	_, err := s.db.Exec(schema)
	return err
}

// CreateClient creates a new client
func (s *Store) CreateClient(ctx context.Context, client *storage.Client) error {
	if err := client.Validate(); err != nil {
		return err
	}

	now := time.Now()
	client.CreatedAt = now
	client.UpdatedAt = now

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO clients (id, name, secret_hash, scopes, fail_next, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, client.ID, client.Name, client.SecretHash, strings.Join(client.Scopes, " "),
		client.FailNext, client.CreatedAt, client.UpdatedAt)

	return err
}

// GetClient retrieves a client by ID
func (s *Store) GetClient(ctx context.Context, id string) (*storage.Client, error) {
	var client storage.Client
	var scopes string

	err := s.db.QueryRowContext(ctx, `
		SELECT id, name, secret_hash, scopes, fail_next, created_at, updated_at
		FROM clients WHERE id = ?
	`, id).Scan(&client.ID, &client.Name, &client.SecretHash, &scopes,
		&client.FailNext, &client.CreatedAt, &client.UpdatedAt)

	if err == sql.ErrNoRows {
		return nil, storage.ErrClientNotFound
	}
	if err != nil {
		return nil, err
	}

	client.Scopes = strings.Fields(scopes)
	return &client, nil
}

// ListClients retrieves all clients
func (s *Store) ListClients(ctx context.Context) ([]*storage.Client, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, secret_hash, scopes, fail_next, created_at, updated_at
		FROM clients ORDER BY created_at
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var clients []*storage.Client
	for rows.Next() {
		var client storage.Client
		var scopes string

		if err := rows.Scan(&client.ID, &client.Name, &client.SecretHash, &scopes,
			&client.FailNext, &client.CreatedAt, &client.UpdatedAt); err != nil {
			return nil, err
		}

		client.Scopes = strings.Fields(scopes)
		clients = append(clients, &client)
	}

	return clients, rows.Err()
}

// DeleteClient deletes a client and its issued tokens
func (s *Store) DeleteClient(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, "DELETE FROM clients WHERE id = ?", id)
	if err != nil {
		return err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return storage.ErrClientNotFound
	}

	return nil
}

// SetFailures sets the number of upcoming token requests to fail for a client
func (s *Store) SetFailures(ctx context.Context, clientID string, count int) error {
	if count < 0 {
		return storage.ErrInvalidFailures
	}

	result, err := s.db.ExecContext(ctx, `
		UPDATE clients SET fail_next = ?, updated_at = ? WHERE id = ?
	`, count, time.Now(), clientID)
	if err != nil {
		return err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return storage.ErrClientNotFound
	}

	return nil
}

// ConsumeFailure atomically decrements the client's pending failure count.
// It reports true when a failure was consumed and the request should fail.
func (s *Store) ConsumeFailure(ctx context.Context, clientID string) (bool, error) {
	result, err := s.db.ExecContext(ctx, `
		UPDATE clients SET fail_next = fail_next - 1, updated_at = ?
		WHERE id = ? AND fail_next > 0
	`, time.Now(), clientID)
	if err != nil {
		return false, err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, err
	}

	return rows > 0, nil
}

// SaveToken records an issued token
func (s *Store) SaveToken(ctx context.Context, token *storage.Token) error {
	if err := token.Validate(); err != nil {
		return err
	}

	token.CreatedAt = time.Now()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO tokens (id, client_id, value, scope, expires_at, revoked, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, token.ID, token.ClientID, token.Value, token.Scope, token.ExpiresAt,
		token.Revoked, token.CreatedAt)

	return err
}

// GetToken retrieves a token record by its value
func (s *Store) GetToken(ctx context.Context, value string) (*storage.Token, error) {
	var token storage.Token

	err := s.db.QueryRowContext(ctx, `
		SELECT id, client_id, value, scope, expires_at, revoked, created_at
		FROM tokens WHERE value = ?
	`, value).Scan(&token.ID, &token.ClientID, &token.Value, &token.Scope,
		&token.ExpiresAt, &token.Revoked, &token.CreatedAt)

	if err == sql.ErrNoRows {
		return nil, storage.ErrTokenNotFound
	}
	if err != nil {
		return nil, err
	}

	return &token, nil
}

// RevokeToken marks a token as revoked. Revoking an unknown token is a no-op.
func (s *Store) RevokeToken(ctx context.Context, value string) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE tokens SET revoked = 1 WHERE value = ?
	`, value)
	return err
}

// DeleteExpiredTokens removes tokens whose expiry is before the given time.
// It returns the number of rows removed.
func (s *Store) DeleteExpiredTokens(ctx context.Context, before time.Time) (int64, error) {
	result, err := s.db.ExecContext(ctx, `
		DELETE FROM tokens WHERE expires_at < ?
	`, before)
	if err != nil {
		return 0, err
	}

	return result.RowsAffected()
}

// Close closes the database connection
func (s *Store) Close() error {
	return s.db.Close()
}
