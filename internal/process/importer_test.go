package process_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coursesync/sisu-moodle-sync/internal/course"
	"github.com/coursesync/sisu-moodle-sync/internal/process"
	"github.com/coursesync/sisu-moodle-sync/internal/sisu"
)

func newImporter(f *fixture) *process.Importer {
	return process.NewImporter(f.courses, f.registry, f.lms, f.reconciler(), process.ImportOptions{
		CategoryID: 7,
		Languages:  []string{"en", "fi"},
	})
}

func TestImporter_Import(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.mu.Lock()
	f.realisations["cur-9"] = &sisu.Realisation{
		ID:        "cur-9",
		Name:      sisu.LocalizedText{"fi": "Ohjelmointi", "en": "Programming"},
		StartDate: time.Date(2026, 1, 10, 0, 0, 0, 0, time.UTC),
		Published: true,
		Students:  []sisu.Student{{PersonID: "p1", Enrolled: true}},
	}
	f.mu.Unlock()
	f.person("p1", 11)

	importer := newImporter(f)
	ctx := context.Background()

	c, summary, err := importer.Import(ctx, "cur-9", "admin")
	require.NoError(t, err)
	require.NotNil(t, c.MoodleID)
	assert.Equal(t, course.ImportCompleted, c.ImportStatus)
	assert.Equal(t, "admin", c.CreatedBy)

	require.NotNil(t, summary)
	assert.Equal(t, process.StatusSuccess, itemFor(t, summary, "cur-9").Status)

	moodleCourse, err := f.lms.GetCourse(ctx, *c.MoodleID)
	require.NoError(t, err)
	assert.Equal(t, "Programming", moodleCourse.FullName)
	assert.Equal(t, "cur-9", moodleCourse.IDNumber)

	_, visible, ok := f.lms.Enrollment(*c.MoodleID, 11)
	assert.True(t, ok)
	assert.True(t, visible)

	_, _, err = importer.Import(ctx, "cur-9", "admin")
	assert.ErrorIs(t, err, process.ErrAlreadyImported)

	require.NoError(t, f.courses.MarkRemoved(ctx, "cur-9", "course_ended"))
	again, _, err := importer.Import(ctx, "cur-9", "admin")
	require.NoError(t, err)
	assert.False(t, again.Removed)
	assert.Equal(t, c.ID, again.ID)
}

func TestImporter_Failures(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.mu.Lock()
	f.realisations["cur-9"] = &sisu.Realisation{ID: "cur-9", Name: sisu.LocalizedText{"en": "Programming"}, Published: true}
	f.mu.Unlock()
	f.lms.Fail = func(method string) error {
		if method == "CreateCourse" {
			return errors.New("category does not exist")
		}
		return nil
	}

	importer := newImporter(f)
	ctx := context.Background()

	_, _, err := importer.Import(ctx, "unknown", "admin")
	assert.ErrorIs(t, err, sisu.ErrNotFound)

	_, _, err = importer.Import(ctx, "cur-9", "admin")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "category does not exist")

	c, err := f.courses.FindByRegistryID(ctx, "cur-9")
	require.NoError(t, err)
	assert.Equal(t, course.ImportCompletedFailed, c.ImportStatus)
	assert.Nil(t, c.MoodleID)
}

func TestImporter_FullRunDuringImport(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.mu.Lock()
	f.realisations["cur-9"] = &sisu.Realisation{
		ID:        "cur-9",
		Name:      sisu.LocalizedText{"en": "Programming"},
		Published: true,
		Students:  []sisu.Student{{PersonID: "p1", Enrolled: true}},
	}
	f.mu.Unlock()
	f.person("p1", 11)

	ctx := context.Background()
	scheduled := f.reconciler()

	// A scheduled full run lands while the Moodle course is being created.
	// The course is only in storage, so the run makes no Moodle calls.
	var during *process.Summary
	f.lms.Fail = func(method string) error {
		if method == "CreateCourse" && during == nil {
			during = scheduled.Reconcile(ctx, process.Selection{Type: process.RunFull})
		}
		return nil
	}

	c, summary, err := newImporter(f).Import(ctx, "cur-9", "admin")
	require.NoError(t, err)

	require.NotNil(t, during)
	item := itemFor(t, during, "cur-9")
	assert.Equal(t, process.EnrichmentImportInProgress, item.EnrichmentStatus)
	assert.Equal(t, process.StatusSkipped, item.Status)

	assert.False(t, c.Removed)
	assert.Empty(t, c.RemovedReason)
	assert.Equal(t, course.ImportCompleted, c.ImportStatus)
	assert.Equal(t, process.StatusSuccess, itemFor(t, summary, "cur-9").Status)

	next := scheduled.Reconcile(ctx, process.Selection{Type: process.RunFull})
	require.Equal(t, 1, next.Total)
	assert.Equal(t, process.StatusSuccess, itemFor(t, next, "cur-9").Status)

	_, _, err = newImporter(f).Import(ctx, "cur-9", "admin")
	assert.ErrorIs(t, err, process.ErrAlreadyImported)
}
