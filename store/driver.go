package store

import (
	"context"
	"database/sql"
	"errors"
)

// ErrNotFound is returned by a driver when a key holds no value.
var ErrNotFound = errors.New("key not found")

// Driver is an interface for store driver.
// The conversation store only needs get/set/delete by logical key; values are JSON documents.
type Driver interface {
	Close() error

	IsInitialized(ctx context.Context) (bool, error)

	// Get returns the raw value stored under key, or ErrNotFound.
	Get(ctx context.Context, key string) ([]byte, error)
	// Set replaces the value stored under key.
	Set(ctx context.Context, key string, value []byte) error
	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
}

// SQLDriver is implemented by drivers backed by database/sql; the migrator applies schema files to them.
type SQLDriver interface {
	Driver
	GetDB() *sql.DB
	// Name is the migration directory of the driver, e.g. "sqlite".
	Name() string
}
