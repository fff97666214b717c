package memory

import (
	"context"
	"sync"

	"github.com/hrygo/rivalchat/store"
)

// DB keeps every value in process memory. State is lost on exit.
type DB struct {
	mu     sync.RWMutex
	values map[string][]byte
}

func NewDB() *DB {
	return &DB{values: map[string][]byte{}}
}

func (*DB) Close() error {
	return nil
}

func (d *DB) IsInitialized(context.Context) (bool, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	_, ok := d.values[store.KeySchemaVersion]
	return ok, nil
}

func (d *DB) Get(_ context.Context, key string) ([]byte, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	value, ok := d.values[key]
	if !ok {
		return nil, store.ErrNotFound
	}
	return append([]byte(nil), value...), nil
}

func (d *DB) Set(_ context.Context, key string, value []byte) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.values[key] = append([]byte(nil), value...)
	return nil
}

func (d *DB) Delete(_ context.Context, key string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.values, key)
	return nil
}
