package process

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/coursesync/sisu-moodle-sync/internal/course"
	"github.com/coursesync/sisu-moodle-sync/internal/moodle"
	"github.com/coursesync/sisu-moodle-sync/internal/sisu"
)

// ErrAlreadyImported is returned when importing a course that is already mirrored
var ErrAlreadyImported = errors.New("course already imported")

// ImportOptions controls how Moodle courses are created
type ImportOptions struct {
	CategoryID int64
	// Languages is the preference order for the course name. The first one is
	// also the language the course is created in.
	Languages []string
}

// Importer creates Moodle courses for registry realisations
type Importer struct {
	courses    course.Store
	registry   sisu.Client
	lms        moodle.Client
	reconciler *Reconciler
	opts       ImportOptions
}

// NewImporter creates an Importer that runs a first reconcile with reconciler
func NewImporter(courses course.Store, registry sisu.Client, lms moodle.Client, reconciler *Reconciler, opts ImportOptions) *Importer {
	return &Importer{
		courses:    courses,
		registry:   registry,
		lms:        lms,
		reconciler: reconciler,
		opts:       opts,
	}
}

// Import creates the Moodle course of a realisation, records it and runs its
// first synchronization. A removed course may be imported again.
func (i *Importer) Import(ctx context.Context, registryID, createdBy string) (*course.Course, *Summary, error) {
	existing, err := i.courses.FindByRegistryID(ctx, registryID)
	switch {
	case err == nil && !existing.Removed:
		return nil, nil, fmt.Errorf("course %s: %w", registryID, ErrAlreadyImported)
	case err != nil && !errors.Is(err, course.ErrNotFound):
		return nil, nil, fmt.Errorf("failed to look up course %s: %w", registryID, err)
	}

	realisation, err := i.registry.GetCourseUnitRealisation(ctx, registryID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to fetch course unit realisation %s: %w", registryID, err)
	}

	c := &course.Course{
		RegistryID:   registryID,
		ImportStatus: course.ImportInProgress,
		CreatedBy:    createdBy,
	}
	if existing != nil {
		c.ID = existing.ID
	}
	if err := i.courses.Save(ctx, c); err != nil {
		return nil, nil, fmt.Errorf("failed to save course %s: %w", registryID, err)
	}

	name := realisation.Name.Pick(i.opts.Languages)
	nc := moodle.NewCourse{
		FullName:   name,
		ShortName:  fmt.Sprintf("%s (%s)", name, registryID),
		IDNumber:   registryID,
		CategoryID: i.opts.CategoryID,
		StartDate:  realisation.StartDate,
		EndDate:    realisation.EndDate,
	}
	if len(i.opts.Languages) > 0 {
		nc.Lang = i.opts.Languages[0]
	}

	moodleID, err := i.lms.CreateCourse(ctx, nc)
	if err != nil {
		if markErr := i.courses.MarkImportStatus(ctx, registryID, course.ImportCompletedFailed, nil); markErr != nil {
			slog.Error("Failed to record failed import", "course", registryID, "error", markErr)
		}
		return nil, nil, fmt.Errorf("failed to create Moodle course for %s: %w", registryID, err)
	}
	if err := i.courses.MarkImportStatus(ctx, registryID, course.ImportCompleted, &moodleID); err != nil {
		return nil, nil, fmt.Errorf("failed to record import of %s as Moodle course %d: %w", registryID, moodleID, err)
	}
	slog.Info("Course imported", "course", registryID, "moodle_course_id", moodleID, "created_by", createdBy)

	summary := i.reconciler.Reconcile(ctx, Selection{Type: RunCourses, RegistryIDs: []string{registryID}})

	imported, err := i.courses.FindByRegistryID(ctx, registryID)
	if err != nil {
		return nil, summary, fmt.Errorf("failed to reload course %s: %w", registryID, err)
	}
	return imported, summary, nil
}
