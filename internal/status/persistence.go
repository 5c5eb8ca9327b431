// Package status provides run status tracking and file persistence for scheduled runs.
package status

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
)

//go:generate mockgen -destination=mocks/mock_status_persistence.go -package=mocks -source=persistence.go StatusPersistence

const (
	// StatusFileName is the name of the status file
	StatusFileName = "status.json"
)

// StatusPersistence defines the interface for run status persistence
//
//nolint:revive // This name is fine
type StatusPersistence interface {
	// SaveStatus saves the run status to persistent storage for a run type
	SaveStatus(ctx context.Context, runType string, status *RunStatus) error

	// LoadStatus loads the run status for a run type.
	// Returns an empty RunStatus if the file doesn't exist (first run).
	LoadStatus(ctx context.Context, runType string) (*RunStatus, error)

	// LoadAllStatus loads the run status of every run type with a status file
	LoadAllStatus(ctx context.Context) (map[string]*RunStatus, error)
}

// fileStatusPersistence implements StatusPersistence using local filesystem
type fileStatusPersistence struct {
	basePath string
}

// NewFileStatusPersistence creates a new file-based status persistence.
// basePath is the base directory where per run type status files are stored.
func NewFileStatusPersistence(basePath string) StatusPersistence {
	return &fileStatusPersistence{
		basePath: basePath,
	}
}

// SaveStatus writes the run status to a JSON file in a run type specific directory
func (f *fileStatusPersistence) SaveStatus(_ context.Context, runType string, status *RunStatus) error {
	runDir := filepath.Join(f.basePath, runType)
	if err := os.MkdirAll(runDir, 0750); err != nil {
		return fmt.Errorf("failed to create status directory for run type '%s': %w", runType, err)
	}

	filePath := filepath.Join(runDir, StatusFileName)

	data, err := json.MarshalIndent(status, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal status data for run type '%s': %w", runType, err)
	}

	// Write to temporary file first for atomic operation
	tempPath := filePath + ".tmp"
	if err := os.WriteFile(tempPath, data, 0600); err != nil {
		return fmt.Errorf("failed to write temporary status file for run type '%s': %w", runType, err)
	}

	if err := os.Rename(tempPath, filePath); err != nil {
		_ = os.Remove(tempPath)
		return fmt.Errorf("failed to rename status file for run type '%s': %w", runType, err)
	}

	return nil
}

// LoadStatus loads the run status from a JSON file for a run type
func (f *fileStatusPersistence) LoadStatus(_ context.Context, runType string) (*RunStatus, error) {
	filePath := filepath.Join(f.basePath, runType, StatusFileName)

	// #nosec G304 -- filePath is built from the configured base path and a known run type
	data, err := os.ReadFile(filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return &RunStatus{}, nil
		}
		return nil, fmt.Errorf("failed to read status file for run type '%s': %w", runType, err)
	}

	var status RunStatus
	if err := json.Unmarshal(data, &status); err != nil {
		return nil, fmt.Errorf("failed to unmarshal status data for run type '%s': %w", runType, err)
	}

	return &status, nil
}

// LoadAllStatus loads the run status of every run type directory under the base path
func (f *fileStatusPersistence) LoadAllStatus(ctx context.Context) (map[string]*RunStatus, error) {
	result := make(map[string]*RunStatus)

	entries, err := os.ReadDir(f.basePath)
	if err != nil {
		if os.IsNotExist(err) {
			return result, nil
		}
		return nil, fmt.Errorf("failed to read status directory: %w", err)
	}

	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}

		runType := entry.Name()
		status, err := f.LoadStatus(ctx, runType)
		if err != nil {
			// Keep partial results when one file is unreadable
			slog.Warn("Skipping unreadable run status", "run_type", runType, "error", err)
			continue
		}

		result[runType] = status
	}

	return result, nil
}
