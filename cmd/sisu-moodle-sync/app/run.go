package app

import (
	"context"
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	syncapp "github.com/coursesync/sisu-moodle-sync/internal/app"
	"github.com/coursesync/sisu-moodle-sync/internal/config"
	"github.com/coursesync/sisu-moodle-sync/internal/status"
)

func newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run <full|unlock>",
		Short: "Execute one run and wait for it to finish",
		Long: `Execute one run of the given type outside the server and wait for it.

The run is claimed through the same run status as the server's schedules,
so it is refused while the server is executing a run of the same type.

Examples:
  sisu-moodle-sync run full --config config.yaml
  sisu-moodle-sync run unlock --config config.yaml`,
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{config.RunTypeFull, config.RunTypeUnlock},
		RunE:      runRun,
	}
	addConfigFlag(cmd, false)
	return cmd
}

func runRun(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	runType := args[0]

	return withComponents(ctx, cmd, func(cfg *config.Config, c *syncapp.AppComponents) error {
		if err := c.States.Initialize(ctx, cfg.Sync.Schedules); err != nil {
			return fmt.Errorf("failed to initialize run status: %w", err)
		}
		if err := c.SyncCoordinator.Trigger(ctx, runType); err != nil {
			return fmt.Errorf("failed to start %s run: %w", runType, err)
		}
		slog.Info("Run started", "run_type", runType)

		// Stop waits for the triggered run
		if err := c.SyncCoordinator.Stop(); err != nil {
			return fmt.Errorf("failed to wait for run: %w", err)
		}

		runStatus, err := c.States.GetRunStatus(context.WithoutCancel(ctx), runType)
		if err != nil {
			return fmt.Errorf("failed to read run status: %w", err)
		}
		if err := writeJSON(cmd.OutOrStdout(), runStatus); err != nil {
			return err
		}
		if runStatus.Phase != status.RunPhaseComplete {
			return fmt.Errorf("%s run finished in phase %s: %s", runType, runStatus.Phase, runStatus.Message)
		}
		return nil
	})
}

// withComponents builds the application components from the --config flag,
// calls fn and releases the storage backend afterwards
func withComponents(
	ctx context.Context, cmd *cobra.Command, fn func(*config.Config, *syncapp.AppComponents) error,
) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	c, err := syncapp.NewComponents(ctx, syncapp.WithConfig(cfg))
	if err != nil {
		return fmt.Errorf("failed to build components: %w", err)
	}
	defer c.Storage.Cleanup()

	return fn(cfg, c)
}
