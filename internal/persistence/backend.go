// Package persistence stores client-side state (history, settings) on a
// key/value backend. Writes are best effort: storage failures are logged and
// never surface to the workflow.
package persistence

import (
	"context"
	"errors"
)

// ErrNotFound is returned by a Backend when the key has never been written.
var ErrNotFound = errors.New("persistence: key not found")

const (
	HistoryKey  = "restauro.history"
	SettingsKey = "restauro.settings"
)

// Backend is a string key to byte value store.
type Backend interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
}
