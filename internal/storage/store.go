// Package storage provides the durable key-value store behind the ledger.
// Values are JSON text written as complete replacements; there are no partial
// writes.
package storage

import (
	"context"
	"errors"
)

// ErrClosed is returned by operations on a closed store.
var ErrClosed = errors.New("store closed")

// Store is a string key-value store with atomic whole-value writes.
type Store interface {
	// Get returns the value for key and whether it exists.
	Get(ctx context.Context, key string) (string, bool, error)
	// Set replaces the value for key.
	Set(ctx context.Context, key, value string) error
	// SetMany replaces several keys at once; either all writes land or none.
	SetMany(ctx context.Context, values map[string]string) error
	// Delete removes keys; missing keys are ignored.
	Delete(ctx context.Context, keys ...string) error
	Close() error
}
