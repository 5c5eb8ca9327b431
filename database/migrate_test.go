package database

import (
	"context"
	"io/fs"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
)

func TestMigrations(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	container, err := postgres.Run(ctx, "postgres:16-alpine",
		postgres.WithDatabase(dbName),
		postgres.WithUsername(dbUser),
		postgres.WithPassword(dbPass),
		postgres.BasicWaitStrategies(),
		tc.WithLogger(&nopLogger{}),
	)
	tc.CleanupContainer(t, container)
	require.NoError(t, err)

	connStr, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	m, err := NewFromConnectionString(connStr)
	require.NoError(t, err)
	defer func() { _, _ = m.Close() }()

	fnames, err := fs.Glob(migrationsFS, "migrations/*.up.sql")
	require.NoError(t, err)
	require.NotEmpty(t, fnames)

	for i := 1; i <= len(fnames); i++ {
		assert.NoError(t, m.Steps(i))
		assert.NoError(t, m.Steps(-i))
		assert.NoError(t, m.Steps(i))
		assert.NoError(t, Down(m, 0))
	}

	require.NoError(t, Up(m))
	require.NoError(t, Up(m), "applying twice is a no-op")
	version, dirty, err := m.Version()
	require.NoError(t, err)
	assert.Equal(t, uint(len(fnames)), version)
	assert.False(t, dirty)
}

func TestToPgx5URL(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "pgx5://u:p@h:5432/db", toPgx5URL("postgres://u:p@h:5432/db"))
	assert.Equal(t, "pgx5://u:p@h/db", toPgx5URL("postgresql://u:p@h/db"))
	assert.Equal(t, "pgx5://x", toPgx5URL("pgx5://x"))
}
