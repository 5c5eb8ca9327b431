package lock

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coursesync/sisu-moodle-sync/database"
	"github.com/coursesync/sisu-moodle-sync/internal/config"
)

// exerciseService runs the behaviour every implementation must share
func exerciseService(t *testing.T, svc Service) {
	t.Helper()
	ctx := context.Background()

	locked, err := svc.IsLocked(ctx, "otm-1")
	require.NoError(t, err)
	assert.False(t, locked, "never locked course")

	l, err := svc.Get(ctx, "otm-1")
	require.NoError(t, err)
	assert.Equal(t, "otm-1", l.RegistryID)
	assert.False(t, l.Locked)

	require.NoError(t, svc.SetLock(ctx, "otm-1", "first"))
	require.NoError(t, svc.SetLock(ctx, "otm-1", "Action remove_roles for 50 items exceeds threshold"))
	require.NoError(t, svc.SetLock(ctx, "otm-2", "other"))

	locked, err = svc.IsLocked(ctx, "otm-1")
	require.NoError(t, err)
	assert.True(t, locked)

	l, err = svc.Get(ctx, "otm-1")
	require.NoError(t, err)
	assert.Equal(t, "Action remove_roles for 50 items exceeds threshold", l.Reason)

	ids, err := svc.ListLocked(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"otm-1", "otm-2"}, ids)

	require.NoError(t, svc.Unlock(ctx, "otm-1"))
	require.NoError(t, svc.Unlock(ctx, "otm-1"))
	require.NoError(t, svc.Unlock(ctx, "never-locked"))

	locked, err = svc.IsLocked(ctx, "otm-1")
	require.NoError(t, err)
	assert.False(t, locked)

	ids, err = svc.ListLocked(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"otm-2"}, ids)
}

func TestMemoryService(t *testing.T) {
	t.Parallel()
	exerciseService(t, NewMemoryService())
}

func TestDBService(t *testing.T) {
	t.Parallel()
	if testing.Short() {
		t.Skip("requires docker")
	}
	exerciseService(t, NewDBService(database.SetupTestDB(t)))
}

func TestNewService(t *testing.T) {
	t.Parallel()

	svc, err := NewService(&config.Config{}, nil)
	require.NoError(t, err)
	assert.IsType(t, &memoryService{}, svc)

	_, err = NewService(&config.Config{Storage: config.StorageTypeDatabase}, nil)
	assert.ErrorContains(t, err, "database pool is required")
}
