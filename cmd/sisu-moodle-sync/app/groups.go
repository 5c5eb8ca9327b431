package app

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	syncapp "github.com/coursesync/sisu-moodle-sync/internal/app"
	"github.com/coursesync/sisu-moodle-sync/internal/config"
)

func newGroupsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "groups",
		Short: "Preview or apply the group sync of a course",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Usage()
		},
	}
	addConfigFlag(cmd, true)

	cmd.AddCommand(&cobra.Command{
		Use:   "preview <registry-id>",
		Short: "Print the group change tree without applying it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGroups(cmd, args[0], false)
		},
	}, &cobra.Command{
		Use:   "process <registry-id>",
		Short: "Apply the group change tree and print the outcome",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGroups(cmd, args[0], true)
		},
	})
	return cmd
}

func runGroups(cmd *cobra.Command, registryID string, apply bool) error {
	ctx := context.Background()

	return withComponents(ctx, cmd, func(cfg *config.Config, c *syncapp.AppComponents) error {
		warnMemoryStorage(cfg)
		compute := c.Groups.Preview
		if apply {
			compute = c.Groups.Process
		}
		tree, err := compute(ctx, registryID)
		if err != nil {
			return fmt.Errorf("failed to sync groups of course %s: %w", registryID, err)
		}
		if err := writeJSON(cmd.OutOrStdout(), tree); err != nil {
			return err
		}
		if tree.Failed() {
			return fmt.Errorf("some group changes of course %s failed", registryID)
		}
		return nil
	})
}
