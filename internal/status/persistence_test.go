package status

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

const testRunType = "full"

func TestFileStatusPersistence_SaveAndLoad(t *testing.T) {
	t.Parallel()

	tmpDir := t.TempDir()
	persistence := NewFileStatusPersistence(tmpDir)
	require.NotNil(t, persistence)

	now := time.Now().UTC().Truncate(time.Second)
	testStatus := &RunStatus{
		Phase:        RunPhaseComplete,
		Message:      "Run completed",
		LastAttempt:  &now,
		AttemptCount: 1,
		LastSuccess:  &now,
		LastSummary:  &SummaryDigest{Total: 12, Succeeded: 10, Skipped: 2, Elapsed: "4s"},
		Schedule:     "1h",
	}

	ctx := context.Background()
	require.NoError(t, persistence.SaveStatus(ctx, testRunType, testStatus))

	_, err := os.Stat(filepath.Join(tmpDir, testRunType, StatusFileName))
	require.NoError(t, err)

	loaded, err := persistence.LoadStatus(ctx, testRunType)
	require.NoError(t, err)
	require.Equal(t, testStatus.Phase, loaded.Phase)
	require.Equal(t, testStatus.Message, loaded.Message)
	require.Equal(t, testStatus.AttemptCount, loaded.AttemptCount)
	require.True(t, now.Equal(*loaded.LastSuccess))
	require.Equal(t, testStatus.LastSummary, loaded.LastSummary)
	require.Equal(t, "1h", loaded.Schedule)
}

func TestFileStatusPersistence_LoadNonExistent(t *testing.T) {
	t.Parallel()

	persistence := NewFileStatusPersistence(t.TempDir())

	loaded, err := persistence.LoadStatus(context.Background(), testRunType)
	require.NoError(t, err)
	require.NotNil(t, loaded)
	require.Equal(t, RunPhase(""), loaded.Phase)
	require.False(t, loaded.IsRunning())
}

func TestFileStatusPersistence_UpdateStatus(t *testing.T) {
	t.Parallel()

	persistence := NewFileStatusPersistence(t.TempDir())
	ctx := context.Background()

	now := time.Now()
	require.NoError(t, persistence.SaveStatus(ctx, testRunType, &RunStatus{
		Phase:        RunPhaseRunning,
		Message:      "Run in progress",
		LastAttempt:  &now,
		AttemptCount: 1,
	}))

	loaded, err := persistence.LoadStatus(ctx, testRunType)
	require.NoError(t, err)
	require.True(t, loaded.IsRunning())

	require.NoError(t, persistence.SaveStatus(ctx, testRunType, &RunStatus{
		Phase:       RunPhaseFailed,
		Message:     "3 of 10 courses failed",
		LastAttempt: &now,
		LastSummary: &SummaryDigest{Total: 10, Succeeded: 7, Failed: 3},
	}))

	loaded, err = persistence.LoadStatus(ctx, testRunType)
	require.NoError(t, err)
	require.Equal(t, RunPhaseFailed, loaded.Phase)
	require.Equal(t, "3 of 10 courses failed", loaded.Message)
	require.Equal(t, 3, loaded.LastSummary.Failed)
}

func TestFileStatusPersistence_AtomicWrite(t *testing.T) {
	t.Parallel()

	tmpDir := t.TempDir()
	persistence := NewFileStatusPersistence(tmpDir)

	require.NoError(t, persistence.SaveStatus(context.Background(), testRunType, &RunStatus{Phase: RunPhaseComplete}))

	tempPath := filepath.Join(tmpDir, testRunType, StatusFileName) + ".tmp"
	_, err := os.Stat(tempPath)
	require.True(t, os.IsNotExist(err), "Temporary file should not exist after save")
}

func TestFileStatusPersistence_LoadAllStatus(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		setup    func(t *testing.T, dir string, p StatusPersistence)
		baseDir  func(dir string) string
		expected map[string]RunPhase
	}{
		{
			name: "all run types",
			setup: func(t *testing.T, _ string, p StatusPersistence) {
				t.Helper()
				require.NoError(t, p.SaveStatus(context.Background(), "full", &RunStatus{Phase: RunPhaseComplete}))
				require.NoError(t, p.SaveStatus(context.Background(), "unlock", &RunStatus{Phase: RunPhaseFailed}))
			},
			expected: map[string]RunPhase{"full": RunPhaseComplete, "unlock": RunPhaseFailed},
		},
		{
			name:     "empty directory",
			setup:    func(*testing.T, string, StatusPersistence) {},
			expected: map[string]RunPhase{},
		},
		{
			name:     "missing directory",
			setup:    func(*testing.T, string, StatusPersistence) {},
			baseDir:  func(dir string) string { return filepath.Join(dir, "nonexistent") },
			expected: map[string]RunPhase{},
		},
		{
			name: "unreadable file is skipped",
			setup: func(t *testing.T, dir string, p StatusPersistence) {
				t.Helper()
				require.NoError(t, p.SaveStatus(context.Background(), "full", &RunStatus{Phase: RunPhaseRunning}))
				invalidDir := filepath.Join(dir, "unlock")
				require.NoError(t, os.MkdirAll(invalidDir, 0750))
				require.NoError(t, os.WriteFile(filepath.Join(invalidDir, StatusFileName), []byte("{invalid json}"), 0600))
			},
			expected: map[string]RunPhase{"full": RunPhaseRunning},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			dir := t.TempDir()
			if tt.baseDir != nil {
				dir = tt.baseDir(dir)
			}
			persistence := NewFileStatusPersistence(dir)
			tt.setup(t, dir, persistence)

			result, err := persistence.LoadAllStatus(context.Background())
			require.NoError(t, err)
			require.Len(t, result, len(tt.expected))
			for runType, phase := range tt.expected {
				require.Contains(t, result, runType)
				require.Equal(t, phase, result[runType].Phase)
			}
		})
	}
}
