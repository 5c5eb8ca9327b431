package app

import (
	"github.com/coursesync/sisu-moodle-sync/internal/app/storage"
	"github.com/coursesync/sisu-moodle-sync/internal/course"
	"github.com/coursesync/sisu-moodle-sync/internal/groupsync"
	"github.com/coursesync/sisu-moodle-sync/internal/lock"
	"github.com/coursesync/sisu-moodle-sync/internal/moodle"
	"github.com/coursesync/sisu-moodle-sync/internal/process"
	"github.com/coursesync/sisu-moodle-sync/internal/sync/coordinator"
	"github.com/coursesync/sisu-moodle-sync/internal/sync/state"
)

// AppComponents groups all application components
//
//nolint:revive // This name is fine
type AppComponents struct {
	// Storage owns the storage backend shared by the stores below
	Storage storage.Factory

	Courses course.Store
	Locks   lock.Service
	States  state.RunStateService

	// Moodle is the web service client used by every component
	Moodle moodle.Client

	Reconciler *process.Reconciler
	Importer   *process.Importer
	Groups     *groupsync.Service

	// SyncCoordinator manages scheduled runs
	SyncCoordinator coordinator.Coordinator
}
