package storage

// sqlite.go — durable persistence for the session credential and the wallet
// authorization record. One row each under a fixed storage key; writes are
// wholesale INSERT OR REPLACE so a reader never observes a half-updated
// credential.

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/danivega/stormbet/internal/domain"
	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS session_credentials (
    storage_key        TEXT PRIMARY KEY,
    access_token       TEXT    NOT NULL,
    access_expires_at  INTEGER NOT NULL,
    refresh_token      TEXT    NOT NULL,
    refresh_expires_at INTEGER NOT NULL,
    owner_identity     TEXT    NOT NULL,
    updated_at         DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS wallet_authorizations (
    storage_key      TEXT PRIMARY KEY,
    accounts         TEXT NOT NULL,
    selected_address TEXT NOT NULL,
    auth_token       TEXT NOT NULL,
    session_json     TEXT,
    updated_at       DATETIME NOT NULL
);
`

// Fixed row keys; the app holds at most one session and one authorization.
const (
	credentialKey    = "session"
	authorizationKey = "wallet"
)

// SQLiteStore implements ports.CredentialStore using SQLite (pure Go, no CGo).
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (or creates) the database at the given path and
// applies the schema.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("storage.NewSQLiteStore: open %q: %w", path, err)
	}
	db.SetMaxOpenConns(1) // SQLite is single-writer
	db.SetMaxIdleConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("storage.NewSQLiteStore: apply schema: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

// LoadCredential returns the stored session credential, or (nil, nil).
func (s *SQLiteStore) LoadCredential(ctx context.Context) (*domain.SessionCredential, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT access_token, access_expires_at, refresh_token, refresh_expires_at, owner_identity
		FROM session_credentials WHERE storage_key = ?`, credentialKey)

	var cred domain.SessionCredential
	var accessExp, refreshExp int64
	err := row.Scan(&cred.AccessToken, &accessExp, &cred.RefreshToken, &refreshExp, &cred.OwnerIdentity)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("storage.LoadCredential: %w", err)
	}
	cred.AccessExpiresAt = time.Unix(accessExp, 0).UTC()
	cred.RefreshExpiresAt = time.Unix(refreshExp, 0).UTC()
	return &cred, nil
}

// SaveCredential atomically replaces the session credential.
func (s *SQLiteStore) SaveCredential(ctx context.Context, cred domain.SessionCredential) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO session_credentials
		(storage_key, access_token, access_expires_at, refresh_token, refresh_expires_at, owner_identity, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		credentialKey,
		cred.AccessToken, cred.AccessExpiresAt.Unix(),
		cred.RefreshToken, cred.RefreshExpiresAt.Unix(),
		cred.OwnerIdentity, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("storage.SaveCredential: %w", err)
	}
	return nil
}

// DeleteCredential purges the session credential. Missing rows are fine.
func (s *SQLiteStore) DeleteCredential(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx,
		`DELETE FROM session_credentials WHERE storage_key = ?`, credentialKey); err != nil {
		return fmt.Errorf("storage.DeleteCredential: %w", err)
	}
	return nil
}

// LoadAuthorization returns the stored wallet authorization, or (nil, nil).
func (s *SQLiteStore) LoadAuthorization(ctx context.Context) (*domain.WalletAuthorization, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT accounts, selected_address, auth_token, session_json
		FROM wallet_authorizations WHERE storage_key = ?`, authorizationKey)

	var accountsJSON, selected, authToken string
	var sessionJSON sql.NullString
	err := row.Scan(&accountsJSON, &selected, &authToken, &sessionJSON)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("storage.LoadAuthorization: %w", err)
	}

	var auth domain.WalletAuthorization
	auth.AuthToken = authToken
	if err := json.Unmarshal([]byte(accountsJSON), &auth.Accounts); err != nil {
		return nil, fmt.Errorf("storage.LoadAuthorization: decode accounts: %w", err)
	}
	for _, a := range auth.Accounts {
		if a.Address == selected {
			auth.SelectedAccount = a
			break
		}
	}
	if sessionJSON.Valid && sessionJSON.String != "" {
		var sess domain.WalletSession
		if err := json.Unmarshal([]byte(sessionJSON.String), &sess); err != nil {
			return nil, fmt.Errorf("storage.LoadAuthorization: decode session: %w", err)
		}
		auth.Session = &sess
	}
	return &auth, nil
}

// SaveAuthorization atomically replaces the wallet authorization.
func (s *SQLiteStore) SaveAuthorization(ctx context.Context, auth domain.WalletAuthorization) error {
	accountsJSON, err := json.Marshal(auth.Accounts)
	if err != nil {
		return fmt.Errorf("storage.SaveAuthorization: encode accounts: %w", err)
	}
	var sessionJSON any
	if auth.Session != nil {
		b, err := json.Marshal(auth.Session)
		if err != nil {
			return fmt.Errorf("storage.SaveAuthorization: encode session: %w", err)
		}
		sessionJSON = string(b)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO wallet_authorizations
		(storage_key, accounts, selected_address, auth_token, session_json, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		authorizationKey,
		string(accountsJSON), auth.SelectedAccount.Address, auth.AuthToken,
		sessionJSON, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("storage.SaveAuthorization: %w", err)
	}
	return nil
}

// DeleteAuthorization purges the wallet authorization.
func (s *SQLiteStore) DeleteAuthorization(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx,
		`DELETE FROM wallet_authorizations WHERE storage_key = ?`, authorizationKey); err != nil {
		return fmt.Errorf("storage.DeleteAuthorization: %w", err)
	}
	return nil
}

// Close closes the database cleanly.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
