package process

import (
	"context"
	"errors"
	"fmt"

	"go.opentelemetry.io/otel/trace"

	"github.com/coursesync/sisu-moodle-sync/internal/course"
	"github.com/coursesync/sisu-moodle-sync/internal/moodle"
	"github.com/coursesync/sisu-moodle-sync/internal/otel"
	"github.com/coursesync/sisu-moodle-sync/internal/sisu"
)

// enrich gathers the lock, registry and Moodle state of one course. Each step
// depends on the previous one, so the first non-success outcome ends it.
func (r *Reconciler) enrich(ctx context.Context, item *Item) {
	if item.EnrichmentStatus != EnrichmentInProgress {
		return
	}
	ctx, span := otel.StartSpan(ctx, r.tracer, "process.enrich",
		trace.WithAttributes(otel.AttrCourseID.String(item.RegistryID())))
	defer func() {
		span.SetAttributes(otel.AttrItemStatus.String(string(item.EnrichmentStatus)))
		span.End()
	}()

	set := func(status EnrichmentStatus, message string) {
		item.EnrichmentStatus = status
		item.Message = message
	}
	fail := func(what string, err error) {
		otel.RecordError(span, err)
		set(EnrichmentError, fmt.Sprintf("%s: %v", what, err))
	}

	locked, err := r.locks.IsLocked(ctx, item.RegistryID())
	if err != nil {
		fail("failed to read course lock", err)
		return
	}
	if locked {
		set(EnrichmentLocked, "course is locked")
		return
	}
	if item.Course.ImportStatus == course.ImportInProgress {
		set(EnrichmentImportInProgress, "course import is in progress")
		return
	}

	realisation, err := r.registry.GetCourseUnitRealisation(ctx, item.RegistryID())
	switch {
	case errors.Is(err, sisu.ErrNotFound):
		set(EnrichmentRegistryCourseNotFound, "course unit realisation not found in the registry")
		return
	case err != nil:
		fail("failed to fetch course unit realisation", err)
		return
	}
	item.Realisation = realisation

	if realisation.EndedBefore(r.now().Add(-r.opts.courseEndedAfter)) {
		set(EnrichmentCourseEnded, fmt.Sprintf("course ended on %s", realisation.EndDate.Format("2006-01-02")))
		return
	}
	if !realisation.Published {
		set(EnrichmentCourseNotPublic, "course unit realisation is not published")
		return
	}

	if item.Course.MoodleID == nil {
		set(EnrichmentMoodleCourseNotFound, "course has no Moodle course")
		return
	}
	moodleCourse, err := r.lms.GetCourse(ctx, *item.Course.MoodleID)
	switch {
	case moodle.IsNotFound(err):
		set(EnrichmentMoodleCourseNotFound, fmt.Sprintf("Moodle course %d not found", *item.Course.MoodleID))
		return
	case err != nil:
		fail("failed to fetch Moodle course", err)
		return
	}
	item.MoodleCourse = moodleCourse

	enrollments, err := r.lms.GetEnrollments(ctx, moodleCourse.ID)
	if err != nil {
		fail("failed to fetch Moodle enrolments", err)
		return
	}
	item.Enrollments = enrollments

	set(EnrichmentSuccess, "")
}

// Action is what processing does with an enriched course
type Action string

// Processing actions, in the order their classes are executed
const (
	ActionSkip        Action = "skip"
	ActionRemove      Action = "remove"
	ActionSynchronize Action = "synchronize"
)

// actionOrder is the order in which action classes run
var actionOrder = []Action{ActionSkip, ActionRemove, ActionSynchronize}

// ResolveAction maps an enrichment status to the processing action
func ResolveAction(status EnrichmentStatus) Action {
	switch status {
	case EnrichmentSuccess:
		return ActionSynchronize
	case EnrichmentMoodleCourseNotFound, EnrichmentRegistryCourseNotFound, EnrichmentCourseEnded:
		return ActionRemove
	default:
		return ActionSkip
	}
}

func (r *Reconciler) skip(_ context.Context, item *Item) {
	switch item.EnrichmentStatus {
	case EnrichmentLocked:
		item.finish(StatusLocked, item.Message)
	case EnrichmentError:
		item.finish(StatusError, item.Message)
	default:
		item.finish(StatusSkipped, item.Message)
	}
}

func (r *Reconciler) remove(ctx context.Context, item *Item) {
	reason := string(item.EnrichmentStatus)
	if err := r.courses.MarkRemoved(ctx, item.RegistryID(), reason); err != nil {
		item.finish(StatusError, fmt.Sprintf("failed to mark course removed: %v", err))
		return
	}
	item.finish(StatusSuccess, fmt.Sprintf("course removed: %s", item.Message))
}
