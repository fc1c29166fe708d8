package storage

import (
	"context"

	"tunneldeck/internal/storage/models"
)

// Setting keys persisted from the settings tab
const (
	SettingIdleInterval   = "refresh.idle_interval"
	SettingDebounceDelay  = "refresh.debounce_delay"
	SettingCoalesceDelay  = "refresh.coalesce_delay"
	SettingReloadInterval = "registry.reload_interval"
)

// Storage defines the interface for data persistence
type Storage interface {
	// Settings operations
	GetSetting(ctx context.Context, key string) (string, error)
	SetSetting(ctx context.Context, key, value string) error
	GetAllSettings(ctx context.Context) (map[string]string, error)

	// Action history
	RecordAction(ctx context.Context, action *models.Action) error
	ListActions(ctx context.Context, filter ActionFilter) ([]*models.Action, error)
	PruneActions(ctx context.Context, keep int) error

	// Transactions
	BeginTx(ctx context.Context) (Transaction, error)

	// Close closes the storage connection
	Close() error
}

// ActionFilter represents filters for querying the action history
type ActionFilter struct {
	Kind       string
	Target     string
	FailedOnly bool
	Limit      int
}

// Transaction represents a database transaction
type Transaction interface {
	Commit() error
	Rollback() error
	Storage
}
