package groupsync

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/coursesync/sisu-moodle-sync/internal/course"
	"github.com/coursesync/sisu-moodle-sync/internal/identity"
	"github.com/coursesync/sisu-moodle-sync/internal/lock"
	"github.com/coursesync/sisu-moodle-sync/internal/moodle"
	"github.com/coursesync/sisu-moodle-sync/internal/otel"
	"github.com/coursesync/sisu-moodle-sync/internal/sisu"
	"github.com/coursesync/sisu-moodle-sync/internal/telemetry"
)

var (
	// ErrNotImported is returned for a course that has no Moodle course yet
	ErrNotImported = errors.New("course has not been imported to moodle")
	// ErrLocked is returned when applying changes to a locked course
	ErrLocked = errors.New("course is locked")
)

// resolveWorkers bounds concurrent identity lookups for one course
const resolveWorkers = 8

// Service previews and applies group changes of courses
type Service struct {
	courses  course.Store
	locks    lock.Service
	registry sisu.Client
	lms      moodle.Client
	accounts identity.Resolver
	opts     Options
	tracer   trace.Tracer
	metrics  *telemetry.SyncMetrics
}

// ServiceOption configures a Service
type ServiceOption func(*Service)

// WithTracer traces previews and applications with tracer
func WithTracer(tracer trace.Tracer) ServiceOption {
	return func(s *Service) {
		s.tracer = tracer
	}
}

// WithMetrics records applied changes on m
func WithMetrics(m *telemetry.SyncMetrics) ServiceOption {
	return func(s *Service) {
		s.metrics = m
	}
}

// NewService creates a group Service. Changes are only applied to courses
// that are not locked in locks.
func NewService(
	courses course.Store,
	locks lock.Service,
	registry sisu.Client,
	lms moodle.Client,
	accounts identity.Resolver,
	opts Options,
	options ...ServiceOption,
) *Service {
	s := &Service{
		courses:  courses,
		locks:    locks,
		registry: registry,
		lms:      lms,
		accounts: accounts,
		opts:     opts,
	}
	for _, o := range options {
		o(s)
	}
	return s
}

// Preview returns the change tree of a course without applying it
func (s *Service) Preview(ctx context.Context, registryID string) (*Tree, error) {
	ctx, span := otel.StartSpan(ctx, s.tracer, "groupsync.Preview",
		trace.WithAttributes(otel.AttrCourseID.String(registryID)))
	defer span.End()

	moodleID, realisation, err := s.load(ctx, registryID)
	if err != nil {
		otel.RecordError(span, err)
		return nil, err
	}
	tree, err := s.compute(ctx, moodleID, realisation)
	if err != nil {
		otel.RecordError(span, err)
		return nil, err
	}
	return tree, nil
}

// Process computes the change tree of a course, applies it and returns the
// tree annotated with the outcome of every change
func (s *Service) Process(ctx context.Context, registryID string) (*Tree, error) {
	ctx, span := otel.StartSpan(ctx, s.tracer, "groupsync.Process",
		trace.WithAttributes(otel.AttrCourseID.String(registryID)))
	defer span.End()

	moodleID, realisation, err := s.load(ctx, registryID)
	if err != nil {
		otel.RecordError(span, err)
		return nil, err
	}
	tree, err := s.ProcessRealisation(ctx, moodleID, realisation)
	if err != nil {
		otel.RecordError(span, err)
		return nil, err
	}
	return tree, nil
}

// ProcessRealisation applies the group changes of an already fetched
// realisation to the given Moodle course. A locked course returns ErrLocked
// and Moodle is left untouched.
func (s *Service) ProcessRealisation(ctx context.Context, moodleCourseID int64, realisation *sisu.Realisation) (*Tree, error) {
	locked, err := s.locks.IsLocked(ctx, realisation.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to read lock of course %s: %w", realisation.ID, err)
	}
	if locked {
		return nil, fmt.Errorf("course %s: %w", realisation.ID, ErrLocked)
	}

	tree, err := s.compute(ctx, moodleCourseID, realisation)
	if err != nil {
		return nil, err
	}

	Apply(ctx, s.lms, moodleCourseID, tree.Groupings)
	s.record(ctx, tree)

	if tree.Failed() {
		slog.Warn("Some group changes failed", "course", realisation.ID, "moodle_course_id", moodleCourseID)
	} else {
		slog.Info("Group changes applied", "course", realisation.ID, "moodle_course_id", moodleCourseID)
	}
	return tree, nil
}

func (s *Service) load(ctx context.Context, registryID string) (int64, *sisu.Realisation, error) {
	c, err := s.courses.FindByRegistryID(ctx, registryID)
	if err != nil {
		return 0, nil, err
	}
	if c.MoodleID == nil || c.Removed {
		return 0, nil, fmt.Errorf("course %s: %w", registryID, ErrNotImported)
	}
	realisation, err := s.registry.GetCourseUnitRealisation(ctx, registryID)
	if err != nil {
		return 0, nil, err
	}
	return *c.MoodleID, realisation, nil
}

func (s *Service) compute(ctx context.Context, moodleCourseID int64, realisation *sisu.Realisation) (*Tree, error) {
	groupings, err := s.lms.GetGroupingsWithGroups(ctx, moodleCourseID)
	if err != nil {
		return nil, fmt.Errorf("failed to get groupings of moodle course %d: %w", moodleCourseID, err)
	}
	ungrouped, err := s.ungroupedGroups(ctx, moodleCourseID, groupings)
	if err != nil {
		return nil, err
	}
	members, err := s.resolveMembers(ctx, realisation.StudyGroupSets)
	if err != nil {
		return nil, err
	}

	tree := &Tree{
		CourseRegistryID: realisation.ID,
		MoodleCourseID:   moodleCourseID,
		Groupings:        Diff(realisation.StudyGroupSets, groupings, ungrouped, members, s.opts),
	}
	trace.SpanFromContext(ctx).SetAttributes(attribute.Int("groupsync.groupings", len(tree.Groupings)))
	return tree, nil
}

// ungroupedGroups returns the sync-owned groups of the course that belong to
// no grouping, with their members
func (s *Service) ungroupedGroups(ctx context.Context, moodleCourseID int64, groupings []moodle.Grouping) ([]moodle.Group, error) {
	grouped := make(map[int64]bool)
	for _, gr := range groupings {
		for _, g := range gr.Groups {
			grouped[g.ID] = true
		}
	}

	all, err := s.lms.GetCourseGroups(ctx, moodleCourseID)
	if err != nil {
		return nil, fmt.Errorf("failed to get groups of moodle course %d: %w", moodleCourseID, err)
	}
	var (
		out []moodle.Group
		ids []int64
	)
	for _, g := range all {
		if _, managed := managedKey(g.IDNumber); !managed || grouped[g.ID] {
			continue
		}
		out = append(out, g)
		ids = append(ids, g.ID)
	}
	if len(out) == 0 {
		return nil, nil
	}

	members, err := s.lms.GetGroupMembers(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to get members of ungrouped groups of moodle course %d: %w", moodleCourseID, err)
	}
	for i := range out {
		out[i].MemberIDs = members[out[i].ID]
	}
	return out, nil
}

// resolveMembers maps the members of all synchronized sub-groups to Moodle
// accounts. Persons without an account are left out. Any other failure
// aborts, since a missing member would turn into a removal.
func (s *Service) resolveMembers(ctx context.Context, sets []sisu.StudyGroupSet) (Members, error) {
	seen := make(map[string]bool)
	var personIDs []string
	for _, set := range sets {
		if !Eligible(set) {
			continue
		}
		for _, sg := range set.SubGroups {
			for _, id := range sg.MemberIDs {
				if !seen[id] {
					seen[id] = true
					personIDs = append(personIDs, id)
				}
			}
		}
	}

	var (
		mu      sync.Mutex
		members = make(Members, len(personIDs))
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(resolveWorkers)
	for _, personID := range personIDs {
		g.Go(func() error {
			account, err := s.accounts.ResolveAccount(gctx, personID)
			switch {
			case errors.Is(err, identity.ErrUsernameNotFound), errors.Is(err, identity.ErrAccountNotFound):
				return nil
			case err != nil:
				return fmt.Errorf("failed to resolve group member %s: %w", personID, err)
			}
			mu.Lock()
			members[personID] = account.MoodleUserID
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return members, nil
}

func (s *Service) record(ctx context.Context, tree *Tree) {
	if s.metrics == nil {
		return
	}
	for _, gr := range tree.Groupings {
		s.recordChange(ctx, "grouping", gr.Type, gr.Status)
		for _, g := range gr.Groups {
			s.recordChange(ctx, "group", g.Type, g.Status)
			for _, m := range g.Members {
				s.recordChange(ctx, "membership", m.Type, m.Status)
			}
		}
	}
}

func (s *Service) recordChange(ctx context.Context, level string, typ ChangeType, status ApplyStatus) {
	if typ == ChangeKeep || typ == ChangeDetached {
		return
	}
	s.metrics.RecordGroupChange(ctx, level+"_"+string(typ), string(status))
}
