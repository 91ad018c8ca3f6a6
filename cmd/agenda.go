package cmd

import (
	"os"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/manav03panchal/projecthub/internal/parser"
	"github.com/manav03panchal/projecthub/internal/tui"
)

// agendaFlagHorizon is how far ahead the agenda lists events.
var agendaFlagHorizon string

// agendaCmd opens the interactive agenda.
var agendaCmd = &cobra.Command{
	Use:     "agenda",
	Aliases: []string{"dash", "dashboard", "tui"},
	Short:   "Open the interactive agenda",
	Long: `Open an interactive terminal agenda of upcoming events and open tasks.

The agenda shows:
  - The next or current event with a countdown
  - Upcoming events from every synced calendar
  - Open tasks with today's progress
  - Calendar sync health

Keyboard Controls:
  j/k - Move between tasks
  x   - Mark the selected task done
  r   - Refresh data
  q   - Quit

When output is not a terminal, or with --format json, the agenda is
printed once instead.

Examples:
  projecthub agenda
  projecthub agenda --horizon 3d`,
	Args: cobra.NoArgs,
	RunE: runAgenda,
}

func init() {
	agendaCmd.Flags().StringVar(&agendaFlagHorizon, "horizon", "48h", "How far ahead to list events")
	rootCmd.AddCommand(agendaCmd)
}

func runAgenda(cmd *cobra.Command, args []string) error {
	if ctx.IsJSON() || !isatty.IsTerminal(os.Stdout.Fd()) {
		return runStatus(cmd, args)
	}

	horizon := 48 * time.Hour
	if agendaFlagHorizon != "" {
		res := parser.ParseDuration(agendaFlagHorizon)
		if res.Error != nil {
			return res.Error
		}
		horizon = res.Duration
	}

	return tui.Run(tui.DashboardConfig{
		EventRepo:    ctx.EventRepo,
		TaskRepo:     ctx.TaskRepo,
		CalendarRepo: ctx.CalendarRepo,
		ActivityRepo: ctx.ActivityRepo,
		Horizon:      horizon,
	})
}
