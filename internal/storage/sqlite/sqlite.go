package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"tunneldeck/internal/storage"
	"tunneldeck/internal/storage/models"
	tderrors "tunneldeck/pkg/errors"
)

// dbHandle is the common interface between *sql.DB and *sql.Tx.
type dbHandle interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// DB implements the Storage interface using SQLite
type DB struct {
	db *sql.DB
}

// New creates a new SQLite storage instance
func New(dbPath string) (*DB, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// An in-memory database exists per connection.
	if dbPath == ":memory:" {
		db.SetMaxOpenConns(1)
	} else {
		db.SetMaxOpenConns(25)
		db.SetMaxIdleConns(5)
	}
	db.SetConnMaxLifetime(5 * time.Minute)

	storage := &DB{db: db}

	// Run migrations
	if err := runMigrations(storage); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return storage, nil
}

// Close closes the database connection
func (d *DB) Close() error {
	return d.db.Close()
}

func (d *DB) handle() dbHandle { return d.db }

// BeginTx starts a new transaction
func (d *DB) BeginTx(ctx context.Context) (storage.Transaction, error) {
	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	return &Tx{tx: tx}, nil
}

// Tx implements the Transaction interface
type Tx struct {
	tx *sql.Tx
}

func (t *Tx) Commit() error    { return t.tx.Commit() }
func (t *Tx) Rollback() error  { return t.tx.Rollback() }
func (t *Tx) handle() dbHandle { return t.tx }

func (t *Tx) BeginTx(ctx context.Context) (storage.Transaction, error) {
	return nil, fmt.Errorf("nested transactions not supported")
}

func (t *Tx) Close() error { return nil }

// ─── Settings operations ────────────────────────────────────────────────────

func (d *DB) GetSetting(ctx context.Context, key string) (string, error) {
	return getSetting(ctx, d.handle(), key)
}
func (t *Tx) GetSetting(ctx context.Context, key string) (string, error) {
	return getSetting(ctx, t.handle(), key)
}

func getSetting(ctx context.Context, h dbHandle, key string) (string, error) {
	var value string
	err := h.QueryRowContext(ctx, "SELECT value FROM settings WHERE key = ?", key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", fmt.Errorf("%w: %s", tderrors.ErrSettingNotFound, key)
	}
	if err != nil {
		return "", err
	}
	return value, nil
}

func (d *DB) SetSetting(ctx context.Context, key, value string) error {
	return setSetting(ctx, d.handle(), key, value)
}
func (t *Tx) SetSetting(ctx context.Context, key, value string) error {
	return setSetting(ctx, t.handle(), key, value)
}

func setSetting(ctx context.Context, h dbHandle, key, value string) error {
	query := `
		INSERT INTO settings (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`
	_, err := h.ExecContext(ctx, query, key, value)
	return err
}

func (d *DB) GetAllSettings(ctx context.Context) (map[string]string, error) {
	return getAllSettings(ctx, d.handle())
}
func (t *Tx) GetAllSettings(ctx context.Context) (map[string]string, error) {
	return getAllSettings(ctx, t.handle())
}

func getAllSettings(ctx context.Context, h dbHandle) (map[string]string, error) {
	rows, err := h.QueryContext(ctx, "SELECT key, value FROM settings")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	settings := make(map[string]string)
	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return nil, err
		}
		settings[key] = value
	}
	return settings, rows.Err()
}

// ─── Action history ─────────────────────────────────────────────────────────

func (d *DB) RecordAction(ctx context.Context, action *models.Action) error {
	return recordAction(ctx, d.handle(), action)
}
func (t *Tx) RecordAction(ctx context.Context, action *models.Action) error {
	return recordAction(ctx, t.handle(), action)
}

func recordAction(ctx context.Context, h dbHandle, action *models.Action) error {
	query := `
		INSERT INTO action_log (kind, target, desired, success, error_message)
		VALUES (?, ?, ?, ?, ?)
	`
	result, err := h.ExecContext(ctx, query,
		action.Kind, action.Target, action.Desired, action.Success, action.ErrorMessage,
	)
	if err != nil {
		return fmt.Errorf("failed to record action: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	action.ID = id
	return nil
}

func (d *DB) ListActions(ctx context.Context, filter storage.ActionFilter) ([]*models.Action, error) {
	return listActions(ctx, d.handle(), filter)
}
func (t *Tx) ListActions(ctx context.Context, filter storage.ActionFilter) ([]*models.Action, error) {
	return listActions(ctx, t.handle(), filter)
}

func listActions(ctx context.Context, h dbHandle, filter storage.ActionFilter) ([]*models.Action, error) {
	query := `
		SELECT id, kind, target, desired, success, error_message, created_at
		FROM action_log
	`
	var conditions []string
	var args []interface{}

	if filter.Kind != "" {
		conditions = append(conditions, "kind = ?")
		args = append(args, filter.Kind)
	}
	if filter.Target != "" {
		conditions = append(conditions, "target = ?")
		args = append(args, filter.Target)
	}
	if filter.FailedOnly {
		conditions = append(conditions, "success = 0")
	}

	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY id DESC"

	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	}

	rows, err := h.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var actions []*models.Action
	for rows.Next() {
		action := &models.Action{}
		err := rows.Scan(
			&action.ID, &action.Kind, &action.Target, &action.Desired,
			&action.Success, &action.ErrorMessage, &action.CreatedAt,
		)
		if err != nil {
			return nil, err
		}
		actions = append(actions, action)
	}
	return actions, rows.Err()
}

func (d *DB) PruneActions(ctx context.Context, keep int) error {
	return pruneActions(ctx, d.handle(), keep)
}
func (t *Tx) PruneActions(ctx context.Context, keep int) error {
	return pruneActions(ctx, t.handle(), keep)
}

func pruneActions(ctx context.Context, h dbHandle, keep int) error {
	query := `
		DELETE FROM action_log
		WHERE id NOT IN (SELECT id FROM action_log ORDER BY id DESC LIMIT ?)
	`
	if _, err := h.ExecContext(ctx, query, keep); err != nil {
		return fmt.Errorf("failed to prune actions: %w", err)
	}
	return nil
}
