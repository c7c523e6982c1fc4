//go:build cgo

package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/IIExpanse/honest-sign-test-task/internal/config"
)

func TestOpenMemoryStore(t *testing.T) {
	ctx := context.Background()
	cfg := config.JournalConfig{
		Driver: "libsql",
		Path:   ":memory:",
	}

	store, err := Open(ctx, cfg)
	require.NoError(t, err)
	require.NotNil(t, store)
	require.Equal(t, "libsql", store.Driver())
	require.NoError(t, store.Close())
}

func TestLibsqlJournal(t *testing.T) {
	ctx := context.Background()
	journal, err := OpenJournal(ctx, config.JournalConfig{
		Driver: "libsql",
		Path:   "file:" + t.TempDir() + "/crptdoc.db",
	})
	require.NoError(t, err)
	defer func() { _ = journal.Close() }()

	exerciseJournal(t, journal)
}

func TestMigrateIsIdempotent(t *testing.T) {
	ctx := context.Background()
	store, err := Open(ctx, config.JournalConfig{Path: "file:" + t.TempDir() + "/crptdoc.db"})
	require.NoError(t, err)
	defer func() { _ = store.Close() }()

	require.NoError(t, store.Migrate(ctx))
	require.NoError(t, store.Migrate(ctx))

	var columns int
	require.NoError(t, store.DB.QueryRowContext(ctx, "SELECT COUNT(*) FROM pragma_table_info('submissions') WHERE name = 'rejection_code'").Scan(&columns))
	require.Equal(t, 1, columns)
}
