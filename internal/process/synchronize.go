package process

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"

	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/coursesync/sisu-moodle-sync/internal/enrollment"
	"github.com/coursesync/sisu-moodle-sync/internal/identity"
	"github.com/coursesync/sisu-moodle-sync/internal/moodle"
	"github.com/coursesync/sisu-moodle-sync/internal/otel"
	"github.com/coursesync/sisu-moodle-sync/internal/threshold"
)

// resolveWorkers bounds concurrent account lookups within one course
const resolveWorkers = 8

func (r *Reconciler) synchronize(ctx context.Context, item *Item) {
	ctx, span := otel.StartSpan(ctx, r.tracer, "process.synchronize",
		trace.WithAttributes(otel.AttrCourseID.String(item.RegistryID())))
	defer func() {
		span.SetAttributes(otel.AttrItemStatus.String(string(item.Status)))
		span.End()
	}()

	users, err := r.buildUsers(ctx, item)
	if err != nil {
		otel.RecordError(span, err)
		item.finish(StatusError, err.Error())
		return
	}
	item.Users = users

	counts, total := r.resolveActions(item)
	if err := r.guard.CheckAll(counts, total); err != nil {
		r.lockForViolation(ctx, item, err)
		return
	}

	attempted, failed := r.applyActions(ctx, item)
	for _, u := range item.Users {
		if u.Status != UserInProgress {
			continue
		}
		_ = u.Complete(UserSuccess, "")
	}

	switch {
	case failed == 0:
		item.finish(StatusSuccess, "")
	case failed == attempted:
		item.finish(StatusError, fmt.Sprintf("all %d enrolment actions failed", failed))
	default:
		item.finish(StatusEnrollmentFailures, fmt.Sprintf("%d of %d enrolment actions failed", failed, attempted))
	}

	if r.groups != nil {
		r.synchronizeGroups(ctx, item)
	}
}

// buildUsers resolves the registry people of a course to Moodle users. People
// sharing one account are merged. Moodle users carrying the synced role that
// are no longer in the registry are added with no desired roles.
func (r *Reconciler) buildUsers(ctx context.Context, item *Item) ([]*UserItem, error) {
	var people []Person
	for _, s := range item.Realisation.Students {
		people = append(people, Person{ID: s.PersonID, Kind: KindStudent, Enrolled: s.Enrolled})
	}
	for _, t := range item.Realisation.Teachers {
		people = append(people, Person{ID: t.PersonID, Kind: KindTeacher})
	}

	accounts := make([]*identity.Account, len(people))
	errs := make([]error, len(people))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(resolveWorkers)
	for i, p := range people {
		g.Go(func() error {
			accounts[i], errs[i] = r.accounts.ResolveAccount(gctx, p.ID)
			return nil
		})
	}
	_ = g.Wait()

	var (
		users    []*UserItem
		byUserID = make(map[int64]*UserItem)
	)
	for i, p := range people {
		err := errs[i]
		switch {
		case errors.Is(err, identity.ErrUsernameNotFound):
			u := newUserItem(p)
			_ = u.Complete(UserUsernameNotFound, err.Error())
			users = append(users, u)
			continue
		case errors.Is(err, identity.ErrAccountNotFound):
			u := newUserItem(p)
			_ = u.Complete(UserMoodleUserMissing, err.Error())
			users = append(users, u)
			continue
		case err != nil:
			// an unknown account could be mistaken for a departed user
			return nil, fmt.Errorf("failed to resolve person %s: %w", p.ID, err)
		}

		id := accounts[i].MoodleUserID
		if u, ok := byUserID[id]; ok {
			u.People = append(u.People, p)
			continue
		}
		u := newUserItem(p)
		u.MoodleUserID = &id
		byUserID[id] = u
		users = append(users, u)
	}

	synced := r.resolver.Roles().Synced
	for _, e := range item.Enrollments {
		if u, ok := byUserID[e.UserID]; ok {
			u.Enrolled = true
			u.Roles = enrollment.NewRoleSet(e.RoleIDs...)
			u.Visible = e.Visible
			continue
		}
		if !slices.Contains(e.RoleIDs, synced) {
			continue
		}
		id := e.UserID
		u := newUserItem()
		u.MoodleUserID = &id
		u.Enrolled = true
		u.Roles = enrollment.NewRoleSet(e.RoleIDs...)
		u.Visible = e.Visible
		byUserID[id] = u
		users = append(users, u)
	}
	return users, nil
}

// resolveActions fills the actions of every resolved user and returns the
// number of users per action type and the number of student-side users
func (r *Reconciler) resolveActions(item *Item) (map[enrollment.ActionType]int, int) {
	roles := r.resolver.Roles()
	counts := make(map[enrollment.ActionType]int)
	total := 0
	for _, u := range item.Users {
		if u.MoodleUserID == nil {
			continue
		}
		if !u.IsTeacher() && !u.Roles.Has(roles.Teacher) {
			total++
		}
		actions := r.resolver.Resolve(enrollment.Input{
			Desired:  roles.DesiredRoles(u.IsStudent(), u.IsTeacher()),
			Enrolled: u.Enrolled,
			Current:  u.Roles,
			Visible:  u.Visible,
		})
		for _, a := range actions {
			u.Actions = append(u.Actions, &UserAction{Type: a.Type, Roles: a.Roles, MoodleUserID: *u.MoodleUserID})
			counts[a.Type]++
		}
	}
	return counts, total
}

func (r *Reconciler) lockForViolation(ctx context.Context, item *Item, err error) {
	var violation *threshold.Violation
	if errors.As(err, &violation) {
		r.metrics.RecordThresholdViolation(ctx, string(violation.Action))
	}
	message := err.Error()
	slog.Warn("Threshold exceeded, locking course", "course", item.RegistryID(), "reason", message)
	if lockErr := r.locks.SetLock(ctx, item.RegistryID(), message); lockErr != nil {
		message = fmt.Sprintf("%s (failed to lock course: %v)", message, lockErr)
	}
	item.finish(StatusLocked, message)
}

// applyActions issues the actions of a course one action type at a time in
// batches. A failed batch fails its actions and their users only.
func (r *Reconciler) applyActions(ctx context.Context, item *Item) (attempted, failed int) {
	owners := make(map[*UserAction]*UserItem)
	byType := make(map[enrollment.ActionType][]*UserAction)
	for _, u := range item.Users {
		for _, a := range u.Actions {
			owners[a] = u
			byType[a.Type] = append(byType[a.Type], a)
		}
	}

	courseID := item.MoodleCourse.ID
	for _, actionType := range enrollment.ActionTypes {
		for batch := range slices.Chunk(byType[actionType], r.opts.batchSize) {
			err := r.applyBatch(ctx, courseID, actionType, batch)
			attempted += len(batch)

			status, message := ActionSuccess, ""
			if err != nil {
				status, message = ActionError, err.Error()
				failed += len(batch)
				slog.Error("Enrolment batch failed",
					"course", item.RegistryID(), "action", actionType, "size", len(batch), "error", err)
			}
			r.metrics.RecordActions(ctx, string(actionType), string(status), len(batch))
			for _, a := range batch {
				_ = a.Complete(status, message)
				if err != nil {
					_ = owners[a].Complete(UserError, fmt.Sprintf("%s failed: %v", actionType, err))
				}
			}
		}
	}
	return attempted, failed
}

func (r *Reconciler) applyBatch(ctx context.Context, courseID int64, actionType enrollment.ActionType, batch []*UserAction) error {
	ctx, span := otel.StartSpan(ctx, r.tracer, "process.applyBatch", trace.WithAttributes(
		otel.AttrActionType.String(string(actionType)),
		otel.AttrActionCount.Int(len(batch)),
	))
	defer span.End()

	roles := r.resolver.Roles()
	var err error
	switch actionType {
	case enrollment.ActionAddEnrollment, enrollment.ActionReactivateEnrollment:
		var enrolments []moodle.Enrolment
		for _, a := range batch {
			for _, role := range a.Roles.Sorted() {
				enrolments = append(enrolments, moodle.Enrolment{UserID: a.MoodleUserID, RoleID: role})
			}
		}
		err = r.lms.BulkEnroll(ctx, courseID, enrolments)
	case enrollment.ActionSuspendEnrollment:
		userIDs := make([]int64, 0, len(batch))
		for _, a := range batch {
			userIDs = append(userIDs, a.MoodleUserID)
		}
		err = r.lms.BulkSuspend(ctx, courseID, roles.Synced, userIDs)
	case enrollment.ActionAddRoles:
		err = r.lms.BulkAssignRoles(ctx, courseID, assignments(batch))
	case enrollment.ActionRemoveRoles:
		err = r.lms.BulkUnassignRoles(ctx, courseID, assignments(batch))
	default:
		err = fmt.Errorf("unknown action type %s", actionType)
	}
	otel.RecordError(span, err)
	return err
}

func assignments(batch []*UserAction) []moodle.RoleAssignment {
	var out []moodle.RoleAssignment
	for _, a := range batch {
		for _, role := range a.Roles.Sorted() {
			out = append(out, moodle.RoleAssignment{UserID: a.MoodleUserID, RoleID: role})
		}
	}
	return out
}

// synchronizeGroups applies the group tree of a synchronized course. Group
// failures do not undo enrolment results but downgrade a successful item.
func (r *Reconciler) synchronizeGroups(ctx context.Context, item *Item) {
	tree, err := r.groups.ProcessRealisation(ctx, item.MoodleCourse.ID, item.Realisation)
	if err == nil {
		item.Groups = tree
		if !tree.Failed() {
			return
		}
		err = errors.New("some group changes failed")
	}
	if item.Status == StatusSuccess {
		item.Status = StatusEnrollmentFailures
	}
	item.Message = joinMessages(item.Message, fmt.Sprintf("group sync: %v", err))
}

func joinMessages(a, b string) string {
	if a == "" {
		return b
	}
	return a + "; " + b
}
