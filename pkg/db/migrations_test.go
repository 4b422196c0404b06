package db

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestDB(t *testing.T) *MigrationRunner {
	t.Helper()

	sqlDB, err := Open(context.Background(), filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })
	return NewMigrationRunner(sqlDB)
}

func testMigrations() []Migration {
	return []Migration{
		{
			Version:     20260815120001,
			Description: "Create widgets table",
			Up: func(tx *sql.Tx) error {
				_, err := tx.Exec("CREATE TABLE widgets (id INTEGER PRIMARY KEY, name TEXT)")
				return err
			},
			Down: func(tx *sql.Tx) error {
				_, err := tx.Exec("DROP TABLE widgets")
				return err
			},
		},
		{
			Version:     20260815120000,
			Description: "Create gadgets table",
			Up: func(tx *sql.Tx) error {
				_, err := tx.Exec("CREATE TABLE gadgets (id INTEGER PRIMARY KEY)")
				return err
			},
			Down: func(tx *sql.Tx) error {
				_, err := tx.Exec("DROP TABLE gadgets")
				return err
			},
		},
	}
}

func TestMigrationRunner(t *testing.T) {
	ctx := context.Background()

	t.Run("applies in version order", func(t *testing.T) {
		runner := openTestDB(t)
		require.NoError(t, runner.Run(ctx, testMigrations()))

		versions, err := runner.GetAppliedVersions(ctx)
		require.NoError(t, err)
		assert.Equal(t, []int64{20260815120000, 20260815120001}, versions)
	})

	t.Run("rerun is a no-op", func(t *testing.T) {
		runner := openTestDB(t)
		require.NoError(t, runner.Run(ctx, testMigrations()))
		require.NoError(t, runner.Run(ctx, testMigrations()))

		versions, err := runner.GetAppliedVersions(ctx)
		require.NoError(t, err)
		assert.Len(t, versions, 2)
	})

	t.Run("failed migration is rolled back", func(t *testing.T) {
		runner := openTestDB(t)
		failing := []Migration{{
			Version:     20260815120002,
			Description: "Always fails",
			Up: func(tx *sql.Tx) error {
				return errors.New("boom")
			},
		}}

		err := runner.Run(ctx, failing)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to apply migration 20260815120002")

		versions, err := runner.GetAppliedVersions(ctx)
		require.NoError(t, err)
		assert.Empty(t, versions)
	})

	t.Run("rollback removes the latest migration", func(t *testing.T) {
		runner := openTestDB(t)
		migrations := testMigrations()
		require.NoError(t, runner.Run(ctx, migrations))

		require.NoError(t, runner.Rollback(ctx, migrations))

		versions, err := runner.GetAppliedVersions(ctx)
		require.NoError(t, err)
		assert.Equal(t, []int64{20260815120000}, versions)
	})

	t.Run("rollback on empty database is a no-op", func(t *testing.T) {
		runner := openTestDB(t)
		require.NoError(t, runner.Rollback(ctx, testMigrations()))
	})
}

func TestOpenEnforcesWAL(t *testing.T) {
	sqlDB, err := Open(context.Background(), filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	defer sqlDB.Close()

	var mode string
	require.NoError(t, sqlDB.QueryRow("PRAGMA journal_mode").Scan(&mode))
	assert.Equal(t, "wal", mode)
}

func TestDefaultDBPath(t *testing.T) {
	t.Run("base path override", func(t *testing.T) {
		t.Setenv("SKILLBENCH_BASE_PATH", "/tmp/skillbench-test")
		path, err := DefaultDBPath()
		require.NoError(t, err)
		assert.Equal(t, filepath.Join("/tmp/skillbench-test", "results.db"), path)
	})

	t.Run("defaults to home directory", func(t *testing.T) {
		t.Setenv("SKILLBENCH_BASE_PATH", "")
		path, err := DefaultDBPath()
		require.NoError(t, err)
		assert.Contains(t, path, ".skillbench")
	})
}
