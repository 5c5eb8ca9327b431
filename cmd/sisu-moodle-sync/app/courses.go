package app

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	syncapp "github.com/coursesync/sisu-moodle-sync/internal/app"
	"github.com/coursesync/sisu-moodle-sync/internal/config"
	"github.com/coursesync/sisu-moodle-sync/internal/course"
	"github.com/coursesync/sisu-moodle-sync/internal/process"
)

func newCoursesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "courses",
		Short: "Manage synced courses",
		Long:  `Manage the courses mirrored from Sisu. Use with 'list', 'import' or 'sync' subcommands.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Usage()
		},
	}
	addConfigFlag(cmd, true)

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List synced courses",
		Args:  cobra.NoArgs,
		RunE:  runCoursesList,
	}
	listCmd.Flags().Bool("include-removed", false, "Include courses marked removed")
	listCmd.Flags().String("format", "", "Output format (json)")

	importCmd := &cobra.Command{
		Use:   "import <registry-id>",
		Short: "Create the Moodle course of a Sisu realisation and sync it",
		Args:  cobra.ExactArgs(1),
		RunE:  runCoursesImport,
	}
	importCmd.Flags().String("created-by", "cli", "Recorded creator of the course")

	syncCmd := &cobra.Command{
		Use:   "sync <registry-id>...",
		Short: "Synchronize the enrolments of the given courses",
		Args:  cobra.MinimumNArgs(1),
		RunE:  runCoursesSync,
	}

	cmd.AddCommand(listCmd, importCmd, syncCmd)
	return cmd
}

func runCoursesList(cmd *cobra.Command, _ []string) error {
	ctx := context.Background()
	includeRemoved, err := cmd.Flags().GetBool("include-removed")
	if err != nil {
		return fmt.Errorf("failed to get include-removed flag: %w", err)
	}
	format, err := cmd.Flags().GetString("format")
	if err != nil {
		return fmt.Errorf("failed to get format flag: %w", err)
	}

	return withComponents(ctx, cmd, func(cfg *config.Config, c *syncapp.AppComponents) error {
		warnMemoryStorage(cfg)
		courses, err := c.Courses.List(ctx, course.ListOptions{IncludeRemoved: includeRemoved})
		if err != nil {
			return fmt.Errorf("failed to list courses: %w", err)
		}
		if format == formatJSON {
			return writeJSON(cmd.OutOrStdout(), courses)
		}

		table := tablewriter.NewWriter(cmd.OutOrStdout())
		table.Header("Registry id", "Moodle id", "Import status", "Removed", "Created by", "Updated")
		for _, crs := range courses {
			moodleID := "-"
			if crs.MoodleID != nil {
				moodleID = strconv.FormatInt(*crs.MoodleID, 10)
			}
			removed := "no"
			if crs.Removed {
				removed = "yes: " + crs.RemovedReason
			}
			if err := table.Append(crs.RegistryID, moodleID, string(crs.ImportStatus), removed,
				crs.CreatedBy, formatTime(&crs.UpdatedAt)); err != nil {
				return fmt.Errorf("failed to render course: %w", err)
			}
		}
		return table.Render()
	})
}

func runCoursesImport(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	createdBy, err := cmd.Flags().GetString("created-by")
	if err != nil {
		return fmt.Errorf("failed to get created-by flag: %w", err)
	}

	return withComponents(ctx, cmd, func(cfg *config.Config, c *syncapp.AppComponents) error {
		warnMemoryStorage(cfg)
		crs, summary, err := c.Importer.Import(ctx, args[0], createdBy)
		if err != nil {
			return fmt.Errorf("failed to import course %s: %w", args[0], err)
		}
		slog.Info("Course imported", "registry_id", crs.RegistryID, "import_status", crs.ImportStatus)
		return writeJSON(cmd.OutOrStdout(), map[string]any{"course": crs, "summary": summary})
	})
}

func runCoursesSync(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	return withComponents(ctx, cmd, func(cfg *config.Config, c *syncapp.AppComponents) error {
		warnMemoryStorage(cfg)
		summary := c.Reconciler.Reconcile(ctx, process.Selection{Type: process.RunCourses, RegistryIDs: args})
		slog.Info("Course sync finished", "summary", summary.String())
		if err := writeJSON(cmd.OutOrStdout(), summary); err != nil {
			return err
		}
		if !summary.Successful() {
			return fmt.Errorf("%s", summary.String())
		}
		return nil
	})
}

// warnMemoryStorage warns that one-shot commands against memory storage see
// none of the courses or locks of a running server
func warnMemoryStorage(cfg *config.Config) {
	if cfg.GetStorageType() == config.StorageTypeMemory {
		slog.Warn("Storage type is memory; courses and locks are not shared with the server")
	}
}
