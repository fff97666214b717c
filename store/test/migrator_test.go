package test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hrygo/rivalchat/internal/profile"
	"github.com/hrygo/rivalchat/store"
	"github.com/hrygo/rivalchat/store/db/sqlite"
)

func TestMigrateRecordsSchemaVersion(t *testing.T) {
	forEachDriver(t, func(t *testing.T, ts *store.Store) {
		ctx := context.Background()

		current, err := ts.GetCurrentSchemaVersion()
		require.NoError(t, err)
		recorded, err := ts.GetSchemaVersion(ctx)
		require.NoError(t, err)
		require.Equal(t, current, recorded)

		// Migrating an initialized store keeps its data.
		require.NoError(t, ts.UpsertAPIConfig(ctx, &store.APIConfig{Model: "gpt-4"}))
		require.NoError(t, ts.Migrate(ctx))
		config, err := ts.GetAPIConfig(ctx)
		require.NoError(t, err)
		require.Equal(t, "gpt-4", config.Model)
	})
}

func newProdSQLiteStore(t *testing.T) *store.Store {
	t.Helper()
	p := &profile.Profile{Mode: "prod", Driver: "sqlite", DSN: filepath.Join(t.TempDir(), "rivalchat_prod.db")}
	driver, err := sqlite.NewDB(p)
	require.NoError(t, err)
	ts := store.New(driver, p)
	t.Cleanup(func() { ts.Close() })
	return ts
}

func TestMigrateAppliesIncrementalMigrations(t *testing.T) {
	ctx := context.Background()
	ts := newProdSQLiteStore(t)
	require.NoError(t, ts.Migrate(ctx))

	db := ts.GetDriver().(store.SQLDriver).GetDB()
	_, err := db.ExecContext(ctx, "DROP INDEX idx_kv_updated_ts")
	require.NoError(t, err)
	raw := []byte(`"0.2.0"`)
	require.NoError(t, ts.GetDriver().Set(ctx, store.KeySchemaVersion, raw))

	require.NoError(t, ts.Migrate(ctx))

	var exists bool
	err = db.QueryRowContext(ctx, "SELECT EXISTS (SELECT 1 FROM sqlite_master WHERE type='index' AND name='idx_kv_updated_ts')").Scan(&exists)
	require.NoError(t, err)
	require.True(t, exists)

	current, err := ts.GetCurrentSchemaVersion()
	require.NoError(t, err)
	recorded, err := ts.GetSchemaVersion(ctx)
	require.NoError(t, err)
	require.Equal(t, current, recorded)
}

func TestMigrateRejectsDowngrade(t *testing.T) {
	ctx := context.Background()
	ts := newProdSQLiteStore(t)
	require.NoError(t, ts.Migrate(ctx))
	require.NoError(t, ts.GetDriver().Set(ctx, store.KeySchemaVersion, []byte(`"99.0.0"`)))

	err := ts.Migrate(ctx)
	require.Error(t, err)
	require.Contains(t, err.Error(), "cannot downgrade")
}
