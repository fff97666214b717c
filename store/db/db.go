package db

import (
	"github.com/pkg/errors"

	"github.com/hrygo/rivalchat/internal/profile"
	"github.com/hrygo/rivalchat/store"
	"github.com/hrygo/rivalchat/store/db/memory"
	"github.com/hrygo/rivalchat/store/db/postgres"
	"github.com/hrygo/rivalchat/store/db/redis"
	"github.com/hrygo/rivalchat/store/db/sqlite"
)

// NewDBDriver creates new db driver based on profile.
func NewDBDriver(profile *profile.Profile) (store.Driver, error) {
	var driver store.Driver
	var err error

	switch profile.Driver {
	case "sqlite":
		driver, err = sqlite.NewDB(profile)
	case "postgres":
		driver, err = postgres.NewDB(profile)
	case "redis":
		driver, err = redis.NewDB(profile)
	case "memory":
		driver = memory.NewDB()
	default:
		return nil, errors.Errorf("unknown db driver %q: supported drivers are sqlite, postgres, redis and memory", profile.Driver)
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to create db driver")
	}
	return driver, nil
}
