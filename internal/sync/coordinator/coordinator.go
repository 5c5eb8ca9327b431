package coordinator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	gosync "sync"
	"time"

	"github.com/coursesync/sisu-moodle-sync/internal/config"
	"github.com/coursesync/sisu-moodle-sync/internal/process"
	"github.com/coursesync/sisu-moodle-sync/internal/status"
	pkgsync "github.com/coursesync/sisu-moodle-sync/internal/sync"
	"github.com/coursesync/sisu-moodle-sync/internal/sync/state"
)

const (
	// basePollingInterval is the base interval at which the coordinator checks for due runs
	basePollingInterval = 2 * time.Minute
	// pollingJitter is the maximum random offset (±30 seconds) applied to the polling interval
	pollingJitter = 30 * time.Second
)

// ErrRunInProgress is returned by Trigger when a run of the same type is already running
var ErrRunInProgress = errors.New("run already in progress")

// Coordinator manages background scheduling and execution of reconcile runs
type Coordinator interface {
	// Start begins background run coordination for all schedules.
	// Blocks until context is cancelled or an unrecoverable error occurs.
	Start(ctx context.Context) error

	// Stop gracefully stops the coordinator and waits for running runs
	Stop() error

	// Trigger claims a run of the given type and executes it in the background
	Trigger(ctx context.Context, runType string) error
}

// defaultCoordinator is the default implementation of Coordinator
type defaultCoordinator struct {
	manager pkgsync.Manager
	config  *config.Config

	statusSvc state.RunStateService

	pollingInterval func() time.Duration
	now             func() time.Time

	// Lifecycle management
	mu         gosync.Mutex
	runCtx     context.Context
	cancelFunc context.CancelFunc
	done       chan struct{}
	runs       gosync.WaitGroup
}

// Option is a function that configures the coordinator
type Option func(*defaultCoordinator)

// WithPollingInterval replaces the jittered polling interval
func WithPollingInterval(interval time.Duration) Option {
	return func(c *defaultCoordinator) {
		c.pollingInterval = func() time.Duration { return interval }
	}
}

// WithClock sets the clock used for run timestamps
func WithClock(now func() time.Time) Option {
	return func(c *defaultCoordinator) {
		c.now = now
	}
}

// New creates a new coordinator with injected dependencies
func New(
	manager pkgsync.Manager,
	statusSvc state.RunStateService,
	cfg *config.Config,
	opts ...Option,
) Coordinator {
	c := &defaultCoordinator{
		manager:         manager,
		statusSvc:       statusSvc,
		config:          cfg,
		pollingInterval: calculatePollingInterval,
		now:             time.Now,
		runCtx:          context.Background(),
		done:            make(chan struct{}),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// calculatePollingInterval returns the base polling interval with a random jitter applied.
// The jitter is ±30 seconds to prevent all instances from polling the database simultaneously.
func calculatePollingInterval() time.Duration {
	//nolint:gosec // G404: Non-cryptographic randomness is sufficient for polling jitter
	jitterOffset := time.Duration(rand.Int64N(int64(2*pollingJitter))) - pollingJitter
	return basePollingInterval + jitterOffset
}

// Start begins background run coordination for all schedules
func (c *defaultCoordinator) Start(ctx context.Context) error {
	slog.Info("Starting background run coordinator", "schedule_count", len(c.config.Sync.Schedules))

	coordCtx, cancel := context.WithCancel(ctx)
	c.mu.Lock()
	c.runCtx = coordCtx
	c.cancelFunc = cancel
	c.mu.Unlock()
	defer func() {
		close(c.done)
		slog.Info("Background run coordinator shutting down")
	}()

	if err := c.statusSvc.Initialize(ctx, c.config.Sync.Schedules); err != nil {
		return fmt.Errorf("failed to initialize run status: %w", err)
	}

	pollingInterval := c.pollingInterval()
	slog.Info("Configured coordinator polling interval",
		"base_interval", basePollingInterval,
		"actual_interval", pollingInterval)

	ticker := time.NewTicker(pollingInterval)
	defer ticker.Stop()

	c.processDueRuns(coordCtx)

	for {
		select {
		case <-ticker.C:
			c.processDueRuns(coordCtx)

			// Recalculate interval with new jitter for next iteration
			ticker.Reset(c.pollingInterval())
		case <-coordCtx.Done():
			slog.Info("Run coordinator stopping")
			return nil
		}
	}
}

// Stop gracefully stops the coordinator
func (c *defaultCoordinator) Stop() error {
	c.mu.Lock()
	cancel := c.cancelFunc
	c.mu.Unlock()

	if cancel != nil {
		slog.Info("Stopping run coordinator")
		cancel()
		<-c.done
	}
	c.runs.Wait()
	return nil
}

// Trigger claims a run of the given type and executes it in the background
func (c *defaultCoordinator) Trigger(ctx context.Context, runType string) error {
	schedule := scheduleFor(c.config, runType)
	claimed, err := c.claim(ctx, schedule, true)
	if err != nil {
		return err
	}
	if !claimed {
		return ErrRunInProgress
	}

	c.mu.Lock()
	runCtx := c.runCtx
	c.mu.Unlock()
	if runCtx == nil {
		// Not started: the run is bound to the caller's context
		runCtx = ctx
	}

	c.runs.Add(1)
	go func() {
		defer c.runs.Done()
		c.performRun(runCtx, runType)
	}()
	return nil
}

// processDueRuns claims and executes every schedule that is due
func (c *defaultCoordinator) processDueRuns(ctx context.Context) {
	for _, schedule := range c.config.Sync.Schedules {
		if ctx.Err() != nil {
			return
		}

		claimed, err := c.claim(ctx, schedule, false)
		if err != nil {
			slog.Error("Error claiming run", "run_type", schedule.Type, "error", err)
			continue
		}
		if claimed {
			c.performRun(ctx, schedule.Type)
		}
	}
}

// claim atomically moves the run status to Running when the run should start
func (c *defaultCoordinator) claim(ctx context.Context, schedule config.ScheduleConfig, manual bool) (bool, error) {
	return c.statusSvc.UpdateStatusAtomically(ctx, schedule.Type, func(runStatus *status.RunStatus) bool {
		shouldRun, reason := c.manager.ShouldRun(schedule, runStatus, manual)
		if !shouldRun {
			slog.Debug("Run not needed", "run_type", schedule.Type, "reason", reason)
			return false
		}

		now := c.now()
		runStatus.Phase = status.RunPhaseRunning
		runStatus.Message = fmt.Sprintf("Run in progress (%s)", reason)
		runStatus.LastAttempt = &now
		runStatus.AttemptCount++
		return true
	})
}

// performRun executes a claimed run and records its outcome
func (c *defaultCoordinator) performRun(ctx context.Context, runType string) {
	// Default outcome in case the run is killed by an unexpected error
	phase := status.RunPhaseFailed
	message := fmt.Sprintf("Unexpected failure while running %s", runType)
	var result *pkgsync.Result

	defer func() {
		// The final update must land even when the run was cancelled
		updateCtx := context.WithoutCancel(ctx)
		_, err := c.statusSvc.UpdateStatusAtomically(updateCtx, runType, func(runStatus *status.RunStatus) bool {
			runStatus.Phase = phase
			runStatus.Message = message
			if result != nil {
				runStatus.LastSummary = pkgsync.Digest(result.Summary)
			}
			if phase == status.RunPhaseComplete {
				now := c.now()
				runStatus.LastSuccess = &now
				runStatus.AttemptCount = 0
			}
			return true
		})
		if err != nil {
			slog.Error("Error updating run status", "run_type", runType, "error", err)
		}
	}()

	runTypeValue, err := process.ParseRunType(runType)
	if err != nil {
		message = err.Error()
		return
	}

	slog.Info("Starting scheduled run", "run_type", runType)

	var runErr *pkgsync.Error
	result, runErr = c.manager.PerformRun(ctx, process.Selection{Type: runTypeValue})
	if runErr != nil {
		message = runErr.Message
		slog.Error("Run failed", "run_type", runType, "error", runErr.Message)
		return
	}

	phase = status.RunPhaseComplete
	message = "Run completed successfully"
	if result != nil && result.Summary != nil {
		message = result.Summary.String()
	}
	slog.Info("Run completed", "run_type", runType, "summary", message)
}
