package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	syncapp "github.com/coursesync/sisu-moodle-sync/internal/app"
	"github.com/coursesync/sisu-moodle-sync/internal/config"
)

const defaultLockReason = "Locked manually"

func newLockCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "lock",
		Short: "Manage course sync locks",
		Long: `Manage the per-course sync lock. A locked course is skipped by every run
until the lock is cleared, either here or by an unlock run.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Usage()
		},
	}
	addConfigFlag(cmd, true)

	setCmd := &cobra.Command{
		Use:   "set <registry-id>",
		Short: "Lock a course",
		Args:  cobra.ExactArgs(1),
		RunE:  runLockSet,
	}
	setCmd.Flags().String("reason", defaultLockReason, "Reason recorded with the lock")

	clearCmd := &cobra.Command{
		Use:   "clear <registry-id>",
		Short: "Clear the lock of a course",
		Args:  cobra.ExactArgs(1),
		RunE:  runLockClear,
	}

	showCmd := &cobra.Command{
		Use:   "show <registry-id>",
		Short: "Show the lock record of a course",
		Args:  cobra.ExactArgs(1),
		RunE:  runLockShow,
	}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List locked courses",
		Args:  cobra.NoArgs,
		RunE:  runLockList,
	}

	cmd.AddCommand(setCmd, clearCmd, showCmd, listCmd)
	return cmd
}

func runLockSet(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	reason, err := cmd.Flags().GetString("reason")
	if err != nil {
		return fmt.Errorf("failed to get reason flag: %w", err)
	}
	if reason == "" {
		reason = defaultLockReason
	}

	return withComponents(ctx, cmd, func(cfg *config.Config, c *syncapp.AppComponents) error {
		warnMemoryStorage(cfg)
		if err := c.Locks.SetLock(ctx, args[0], reason); err != nil {
			return fmt.Errorf("failed to lock course %s: %w", args[0], err)
		}
		slog.Info("Course locked", "registry_id", args[0], "reason", reason)
		return nil
	})
}

func runLockClear(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	return withComponents(ctx, cmd, func(cfg *config.Config, c *syncapp.AppComponents) error {
		warnMemoryStorage(cfg)
		if err := c.Locks.Unlock(ctx, args[0]); err != nil {
			return fmt.Errorf("failed to unlock course %s: %w", args[0], err)
		}
		slog.Info("Course unlocked", "registry_id", args[0])
		return nil
	})
}

func runLockShow(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	return withComponents(ctx, cmd, func(cfg *config.Config, c *syncapp.AppComponents) error {
		warnMemoryStorage(cfg)
		record, err := c.Locks.Get(ctx, args[0])
		if err != nil {
			return fmt.Errorf("failed to read lock of course %s: %w", args[0], err)
		}
		return writeJSON(cmd.OutOrStdout(), record)
	})
}

func runLockList(cmd *cobra.Command, _ []string) error {
	ctx := context.Background()

	return withComponents(ctx, cmd, func(cfg *config.Config, c *syncapp.AppComponents) error {
		warnMemoryStorage(cfg)
		ids, err := c.Locks.ListLocked(ctx)
		if err != nil {
			return fmt.Errorf("failed to list locked courses: %w", err)
		}

		table := tablewriter.NewWriter(cmd.OutOrStdout())
		table.Header("Registry id", "Reason", "Locked at")
		for _, id := range ids {
			record, err := c.Locks.Get(ctx, id)
			if err != nil {
				return fmt.Errorf("failed to read lock of course %s: %w", id, err)
			}
			if err := table.Append(id, record.Reason, formatTime(&record.UpdatedAt)); err != nil {
				return fmt.Errorf("failed to render lock: %w", err)
			}
		}
		return table.Render()
	})
}
