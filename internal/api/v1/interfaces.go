package v1

import (
	"context"

	"github.com/coursesync/sisu-moodle-sync/internal/course"
	"github.com/coursesync/sisu-moodle-sync/internal/groupsync"
	"github.com/coursesync/sisu-moodle-sync/internal/process"
)

//go:generate mockgen -destination=mocks/mock_interfaces.go -package=mocks -source=interfaces.go

// RunTrigger starts scheduled run types on demand
type RunTrigger interface {
	Trigger(ctx context.Context, runType string) error
}

// CourseReconciler reconciles a selection of courses and reports the outcome
type CourseReconciler interface {
	Reconcile(ctx context.Context, sel process.Selection) *process.Summary
}

// CourseImporter creates the Moodle course of a realisation
type CourseImporter interface {
	Import(ctx context.Context, registryID, createdBy string) (*course.Course, *process.Summary, error)
}

// GroupSynchronizer previews and applies the group changes of a course
type GroupSynchronizer interface {
	Preview(ctx context.Context, registryID string) (*groupsync.Tree, error)
	Process(ctx context.Context, registryID string) (*groupsync.Tree, error)
}

// ReadinessChecker reports whether the service can reach its backends
type ReadinessChecker interface {
	CheckReadiness(ctx context.Context) error
}
