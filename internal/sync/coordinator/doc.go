// Package coordinator provides background scheduling of reconcile runs.
//
// This package implements the orchestration layer that executes the
// configured run schedules (full, unlock). It sits on top of sync.Manager and
// handles:
//
//   - Background polling using time.Ticker with jitter
//   - An initial check on startup
//   - Claiming runs through the run state service
//   - On-demand runs triggered through the API
//   - Graceful shutdown
//
// # Claiming Runs
//
// A run is claimed by atomically moving its run status from a non-Running
// phase to Running through RunStateService.UpdateStatusAtomically. With the
// database backed state this is a row lock, so several instances sharing a
// database never execute the same run type concurrently.
//
// # Usage Example
//
//	manager := sync.NewDefaultManager(reconciler)
//	stateService := state.NewDBStateService(pool)
//	coord := coordinator.New(manager, stateService, cfg)
//
//	go coord.Start(ctx)
//	// ... run server ...
//	coord.Stop()
//
// # Error Handling
//
//   - Failed runs are logged and their status set to Failed
//   - The coordinator keeps polling after failures
//   - Status persistence errors are logged but don't stop the coordinator
package coordinator
