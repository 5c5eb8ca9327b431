package process

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"time"

	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/coursesync/sisu-moodle-sync/internal/course"
	"github.com/coursesync/sisu-moodle-sync/internal/enrollment"
	"github.com/coursesync/sisu-moodle-sync/internal/groupsync"
	"github.com/coursesync/sisu-moodle-sync/internal/identity"
	"github.com/coursesync/sisu-moodle-sync/internal/lock"
	"github.com/coursesync/sisu-moodle-sync/internal/moodle"
	"github.com/coursesync/sisu-moodle-sync/internal/otel"
	"github.com/coursesync/sisu-moodle-sync/internal/sisu"
	"github.com/coursesync/sisu-moodle-sync/internal/telemetry"
	"github.com/coursesync/sisu-moodle-sync/internal/threshold"
)

// RunType selects which courses a run processes
type RunType string

// Run types
const (
	// RunFull processes every course that has not been removed
	RunFull RunType = "full"
	// RunUnlock clears the lock of every locked course
	RunUnlock RunType = "unlock"
	// RunCourses processes the courses listed in the selection
	RunCourses RunType = "courses"
)

// ParseRunType parses a run type name
func ParseRunType(s string) (RunType, error) {
	switch t := RunType(s); t {
	case RunFull, RunUnlock, RunCourses:
		return t, nil
	default:
		return "", fmt.Errorf("unknown run type %q", s)
	}
}

// Selection is the set of courses of one run
type Selection struct {
	Type RunType
	// RegistryIDs lists the courses of a RunCourses run
	RegistryIDs []string
}

const (
	defaultWorkers   = 8
	defaultBatchSize = 300
)

// Dependencies are the collaborators of a Reconciler
type Dependencies struct {
	Courses  course.Store
	Locks    lock.Service
	Registry sisu.Client
	Moodle   moodle.Client
	Accounts identity.Resolver
}

type options struct {
	workers          int
	batchSize        int
	courseEndedAfter time.Duration
}

// Option configures a Reconciler
type Option func(*Reconciler)

// WithWorkers bounds how many courses are processed in parallel
func WithWorkers(n int) Option {
	return func(r *Reconciler) {
		if n > 0 {
			r.opts.workers = n
		}
	}
}

// WithBatchSize bounds the number of actions in one bulk call
func WithBatchSize(n int) Option {
	return func(r *Reconciler) {
		if n > 0 {
			r.opts.batchSize = n
		}
	}
}

// WithCourseEndedAfter sets how long after its end date a course is removed
func WithCourseEndedAfter(d time.Duration) Option {
	return func(r *Reconciler) {
		r.opts.courseEndedAfter = d
	}
}

// WithGuard sets the threshold guard. Without one, actions are unlimited.
func WithGuard(g *threshold.Guard) Option {
	return func(r *Reconciler) {
		r.guard = g
	}
}

// WithGroups synchronizes groups of every synchronized course
func WithGroups(s *groupsync.Service) Option {
	return func(r *Reconciler) {
		r.groups = s
	}
}

// WithTracer traces runs with tracer
func WithTracer(tracer trace.Tracer) Option {
	return func(r *Reconciler) {
		r.tracer = tracer
	}
}

// WithMetrics records run metrics on m
func WithMetrics(m *telemetry.SyncMetrics) Option {
	return func(r *Reconciler) {
		r.metrics = m
	}
}

// WithClock replaces the clock used for course end dates and run timing
func WithClock(now func() time.Time) Option {
	return func(r *Reconciler) {
		r.now = now
	}
}

// Reconciler runs reconciliation over a selection of courses
type Reconciler struct {
	courses  course.Store
	locks    lock.Service
	registry sisu.Client
	lms      moodle.Client
	accounts identity.Resolver
	resolver *enrollment.Resolver
	guard    *threshold.Guard
	groups   *groupsync.Service
	tracer   trace.Tracer
	metrics  *telemetry.SyncMetrics
	now      func() time.Time
	opts     options
}

// NewReconciler creates a Reconciler managing the given Moodle roles
func NewReconciler(deps Dependencies, roles enrollment.Roles, opts ...Option) *Reconciler {
	r := &Reconciler{
		courses:  deps.Courses,
		locks:    deps.Locks,
		registry: deps.Registry,
		lms:      deps.Moodle,
		accounts: deps.Accounts,
		resolver: enrollment.NewResolver(roles),
		now:      time.Now,
		opts: options{
			workers:   defaultWorkers,
			batchSize: defaultBatchSize,
		},
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Reconcile runs the selection and returns its summary. Failures are recorded
// on the summary and its items; Reconcile itself never fails.
func (r *Reconciler) Reconcile(ctx context.Context, sel Selection) *Summary {
	start := r.now()
	ctx, span := otel.StartSpan(ctx, r.tracer, "process.Reconcile",
		trace.WithAttributes(otel.AttrRunType.String(string(sel.Type))))
	defer span.End()

	slog.Info("Starting reconcile run", "type", sel.Type, "courses", len(sel.RegistryIDs))

	items, err := r.selectItems(ctx, sel)
	if err != nil {
		otel.RecordError(span, err)
		slog.Error("Failed to select courses", "type", sel.Type, "error", err)
		summary := newSummary(sel.Type, start, nil)
		summary.Error = err.Error()
		summary.Elapsed = r.now().Sub(start)
		r.metrics.RecordRunDuration(ctx, string(sel.Type), summary.Elapsed, false)
		return summary
	}
	span.SetAttributes(otel.AttrItemCount.Int(len(items)))

	if sel.Type == RunUnlock {
		r.forEach(ctx, items, r.unlock)
	} else {
		r.forEach(ctx, items, r.enrich)

		classes := make(map[Action][]*Item)
		for _, item := range items {
			action := ResolveAction(item.EnrichmentStatus)
			classes[action] = append(classes[action], item)
		}
		handlers := map[Action]func(context.Context, *Item){
			ActionSkip:        r.skip,
			ActionRemove:      r.remove,
			ActionSynchronize: r.synchronize,
		}
		for _, action := range actionOrder {
			r.forEach(ctx, classes[action], handlers[action])
		}
	}

	for _, item := range items {
		r.metrics.RecordItem(ctx, string(item.Status))
	}

	summary := newSummary(sel.Type, start, items)
	summary.Elapsed = r.now().Sub(start)
	r.metrics.RecordRunDuration(ctx, string(sel.Type), summary.Elapsed, summary.Successful())
	slog.Info("Reconcile run finished", "summary", summary.String())
	return summary
}

// selectItems loads the courses of a selection
func (r *Reconciler) selectItems(ctx context.Context, sel Selection) ([]*Item, error) {
	switch sel.Type {
	case RunFull:
		courses, err := r.courses.List(ctx, course.ListOptions{})
		if err != nil {
			return nil, fmt.Errorf("failed to list courses: %w", err)
		}
		items := make([]*Item, 0, len(courses))
		for _, c := range courses {
			items = append(items, newItem(c))
		}
		return items, nil
	case RunUnlock:
		ids, err := r.locks.ListLocked(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list locked courses: %w", err)
		}
		return r.itemsFor(ctx, ids)
	case RunCourses:
		if len(sel.RegistryIDs) == 0 {
			return nil, errors.New("no courses selected")
		}
		return r.itemsFor(ctx, sel.RegistryIDs)
	default:
		return nil, fmt.Errorf("unknown run type %q", sel.Type)
	}
}

// itemsFor returns one item per registry id. Courses unknown to the store get
// a bare course record so that they still appear on the summary.
func (r *Reconciler) itemsFor(ctx context.Context, registryIDs []string) ([]*Item, error) {
	items := make([]*Item, 0, len(registryIDs))
	seen := make(map[string]bool, len(registryIDs))
	for _, id := range registryIDs {
		if seen[id] {
			continue
		}
		seen[id] = true

		c, err := r.courses.FindByRegistryID(ctx, id)
		switch {
		case errors.Is(err, course.ErrNotFound):
			item := newItem(&course.Course{RegistryID: id})
			item.EnrichmentStatus = EnrichmentError
			item.Message = "course has not been imported"
			items = append(items, item)
			continue
		case err != nil:
			return nil, fmt.Errorf("failed to load course %s: %w", id, err)
		}
		items = append(items, newItem(c))
	}
	return items, nil
}

// forEach runs fn for every item on the worker pool and waits for all of them.
// A panicking item is failed without affecting the others.
func (r *Reconciler) forEach(ctx context.Context, items []*Item, fn func(context.Context, *Item)) {
	var g errgroup.Group
	g.SetLimit(r.opts.workers)
	for _, item := range items {
		g.Go(func() error {
			defer func() {
				if p := recover(); p != nil {
					slog.Error("Panic while processing course",
						"course", item.RegistryID(), "panic", p, "stack", string(debug.Stack()))
					if item.EnrichmentStatus == EnrichmentInProgress {
						item.EnrichmentStatus = EnrichmentError
					}
					item.finish(StatusError, fmt.Sprintf("internal error: %v", p))
				}
			}()
			fn(ctx, item)
			return nil
		})
	}
	_ = g.Wait()
}

// unlock clears the lock of a locked course without any other change
func (r *Reconciler) unlock(ctx context.Context, item *Item) {
	if err := r.locks.Unlock(ctx, item.RegistryID()); err != nil {
		item.EnrichmentStatus = EnrichmentError
		item.finish(StatusError, fmt.Sprintf("failed to unlock course: %v", err))
		return
	}
	item.EnrichmentStatus = EnrichmentLocked
	item.finish(StatusSuccess, "course unlocked")
	slog.Info("Course unlocked", "course", item.RegistryID())
}
