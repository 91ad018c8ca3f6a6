package cmd

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/manav03panchal/projecthub/internal/parser"
)

// defaultEventSpan is the range shown when neither --from nor --to is set.
const defaultEventSpan = 7 * 24 * time.Hour

// Events command flags.
var (
	eventsFlagFrom     string
	eventsFlagTo       string
	eventsFlagCalendar string
)

// eventsCmd lists synced events.
var eventsCmd = &cobra.Command{
	Use:     "events",
	Aliases: []string{"ev", "upcoming"},
	Short:   "List synced calendar events",
	Long: `List events from synced calendars. Recurring events are shown as
individual occurrences. Without flags the next seven days are shown.

Examples:
  projecthub events
  projecthub events --from today --to "next friday"
  projecthub events --from "this week"
  projecthub events --calendar work --to tomorrow`,
	Args: cobra.NoArgs,
	RunE: runEvents,
}

func init() {
	eventsCmd.Flags().StringVar(&eventsFlagFrom, "from", "", "Range start (\"today\", \"this week\", \"2026-01-15\")")
	eventsCmd.Flags().StringVar(&eventsFlagTo, "to", "", "Range end (inclusive when it names a day)")
	eventsCmd.Flags().StringVarP(&eventsFlagCalendar, "calendar", "c", "", "Only this calendar")
	eventsCmd.RegisterFlagCompletionFunc("calendar", completeCalendarArgs)
	rootCmd.AddCommand(eventsCmd)
}

func runEvents(cmd *cobra.Command, args []string) error {
	now := time.Now()
	r, err := parser.ParseRange(eventsFlagFrom, eventsFlagTo, now, defaultEventSpan)
	if err != nil {
		return err
	}

	syncID := ""
	if eventsFlagCalendar != "" {
		cal, err := ctx.CalendarRepo.Find(eventsFlagCalendar)
		if err != nil {
			return err
		}
		syncID = cal.ID
	}

	events, err := ctx.EventRepo.ListRange(syncID, r.Start, r.End)
	if err != nil {
		return err
	}
	names, err := calendarNames()
	if err != nil {
		return err
	}

	if ctx.IsJSON() {
		return ctx.JSONFormatter().PrintEvents(events, names, r.Start, r.End)
	}
	ctx.CLIFormatter().PrintEvents(events, names, now)
	return nil
}
