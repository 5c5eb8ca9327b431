// Package sync provides run management for the scheduled reconcile runs of
// the sync service.
//
// # Core Interfaces
//
//   - Manager: decides whether a scheduled run is due and executes it
//   - IntervalChecker: time-based schedule checks
//   - Reconciler: the course reconciler a Manager drives
//
// # Coordinator Package
//
// The sync/coordinator subpackage provides the orchestration layer that
// schedules runs in the background. It handles ticker-based polling, claiming
// runs through the run state service, and lifecycle management.
//
// # Run Decision Making
//
// Manager.ShouldRun returns a decision and a reason:
//
//   - A Running phase blocks the run unless it has gone stale
//   - A manual request always runs
//   - A run type that never ran runs immediately
//   - Otherwise the run is due once the schedule interval has elapsed since the last attempt
//
// # Result Types
//
//   - Result: the run summary
//   - Error: structured error with condition information. A run in which
//     some courses failed returns both a Result and an Error.
package sync
