package app

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	syncapp "github.com/coursesync/sisu-moodle-sync/internal/app"
	"github.com/coursesync/sisu-moodle-sync/internal/config"
	"github.com/coursesync/sisu-moodle-sync/internal/status"
)

func newStatusCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show the status of every run type",
		RunE:  runStatus,
	}
	addConfigFlag(cmd, false)
	cmd.Flags().String("format", "", "Output format (json)")
	return cmd
}

func runStatus(cmd *cobra.Command, _ []string) error {
	ctx := context.Background()
	format, err := cmd.Flags().GetString("format")
	if err != nil {
		return fmt.Errorf("failed to get format flag: %w", err)
	}

	return withComponents(ctx, cmd, func(cfg *config.Config, c *syncapp.AppComponents) error {
		if err := c.States.Initialize(ctx, cfg.Sync.Schedules); err != nil {
			return fmt.Errorf("failed to initialize run status: %w", err)
		}
		runs, err := c.States.ListRunStatuses(ctx)
		if err != nil {
			return fmt.Errorf("failed to list run statuses: %w", err)
		}
		if format == formatJSON {
			return writeJSON(cmd.OutOrStdout(), runs)
		}
		return renderRunStatuses(cmd, runs)
	})
}

func renderRunStatuses(cmd *cobra.Command, runs map[string]*status.RunStatus) error {
	table := tablewriter.NewWriter(cmd.OutOrStdout())
	table.Header("Run type", "Schedule", "Phase", "Last attempt", "Last success", "Attempts", "Last run", "Message")

	types := make([]string, 0, len(runs))
	for runType := range runs {
		types = append(types, runType)
	}
	slices.Sort(types)

	for _, runType := range types {
		s := runs[runType]
		lastRun := "-"
		if d := s.LastSummary; d != nil {
			lastRun = fmt.Sprintf("%d ok, %d failed, %d skipped of %d", d.Succeeded, d.Failed, d.Skipped, d.Total)
		}
		schedule := s.Schedule
		if schedule == "" {
			schedule = "manual"
		}
		if err := table.Append(runType, schedule, string(s.Phase),
			formatTime(s.LastAttempt), formatTime(s.LastSuccess), s.AttemptCount, lastRun, s.Message); err != nil {
			return fmt.Errorf("failed to render run status: %w", err)
		}
	}
	return table.Render()
}

func formatTime(t *time.Time) string {
	if t == nil {
		return "-"
	}
	return t.Local().Format(time.DateTime)
}
