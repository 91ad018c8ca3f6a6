package cmd

import (
	"github.com/spf13/cobra"

	"github.com/manav03panchal/projecthub/internal/validate"
)

// activityFlagLimit caps the number of entries shown.
var activityFlagLimit int

// activityCmd shows the activity log.
var activityCmd = &cobra.Command{
	Use:     "activity",
	Aliases: []string{"log", "history"},
	Short:   "Show recent activity",
	Long: `Show the audit log of project, task and calendar changes, newest first.

Examples:
  projecthub activity
  projecthub activity --limit 100`,
	Args: cobra.NoArgs,
	RunE: runActivity,
}

func init() {
	activityCmd.Flags().IntVarP(&activityFlagLimit, "limit", "n", 20, "Number of entries")
	rootCmd.AddCommand(activityCmd)
}

func runActivity(cmd *cobra.Command, args []string) error {
	if err := validate.InRange("limit", activityFlagLimit, 1, 1000); err != nil {
		return err
	}

	entries, err := ctx.ActivityRepo.List(activityFlagLimit)
	if err != nil {
		return err
	}

	if ctx.IsJSON() {
		return ctx.JSONFormatter().PrintActivity(entries)
	}
	ctx.CLIFormatter().PrintActivity(entries)
	return nil
}
