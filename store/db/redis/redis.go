package redis

import (
	"context"
	"time"

	"github.com/pkg/errors"
	goredis "github.com/redis/go-redis/v9"

	"github.com/hrygo/rivalchat/internal/profile"
	"github.com/hrygo/rivalchat/store"
)

// Config holds the Redis connection configuration.
type Config struct {
	Addr         string
	Password     string
	DB           int
	KeyPrefix    string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
}

// DefaultConfig returns the default Redis configuration.
func DefaultConfig() *Config {
	return &Config{
		Addr:         "localhost:6379",
		KeyPrefix:    "rivalchat:",
		PoolSize:     10,
		MinIdleConns: 2,
		DialTimeout:  5 * time.Second,
	}
}

// ConfigFromProfile overlays the profile connection settings on DefaultConfig.
func ConfigFromProfile(profile *profile.Profile) *Config {
	config := DefaultConfig()
	if profile.RedisAddr != "" {
		config.Addr = profile.RedisAddr
	}
	config.Password = profile.RedisPassword
	config.DB = profile.RedisDB
	return config
}

// DB stores every logical key as a plain string value under KeyPrefix, without expiry.
type DB struct {
	client *goredis.Client
	prefix string
}

func NewDB(profile *profile.Profile) (store.Driver, error) {
	if profile == nil {
		return nil, errors.New("profile is nil")
	}
	return NewDBWithConfig(context.Background(), ConfigFromProfile(profile))
}

// NewDBWithConfig connects and verifies the connection with a PING.
func NewDBWithConfig(ctx context.Context, config *Config) (*DB, error) {
	client := goredis.NewClient(&goredis.Options{
		Addr:         config.Addr,
		Password:     config.Password,
		DB:           config.DB,
		PoolSize:     config.PoolSize,
		MinIdleConns: config.MinIdleConns,
		DialTimeout:  config.DialTimeout,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, errors.Wrapf(err, "failed to connect to redis at %s", config.Addr)
	}
	return &DB{client: client, prefix: config.KeyPrefix}, nil
}

func (d *DB) key(key string) string {
	return d.prefix + key
}

func (d *DB) Close() error {
	return d.client.Close()
}

func (d *DB) IsInitialized(ctx context.Context) (bool, error) {
	n, err := d.client.Exists(ctx, d.key(store.KeySchemaVersion)).Result()
	if err != nil {
		return false, errors.Wrap(err, "failed to check if redis is initialized")
	}
	return n > 0, nil
}

func (d *DB) Get(ctx context.Context, key string) ([]byte, error) {
	value, err := d.client.Get(ctx, d.key(key)).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return value, nil
}

func (d *DB) Set(ctx context.Context, key string, value []byte) error {
	return d.client.Set(ctx, d.key(key), value, 0).Err()
}

func (d *DB) Delete(ctx context.Context, key string) error {
	return d.client.Del(ctx, d.key(key)).Err()
}
