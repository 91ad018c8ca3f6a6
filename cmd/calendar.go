package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/manav03panchal/projecthub/internal/calsync"
	"github.com/manav03panchal/projecthub/internal/errors"
	"github.com/manav03panchal/projecthub/internal/logging"
	"github.com/manav03panchal/projecthub/internal/output"
	"github.com/manav03panchal/projecthub/internal/parser"
)

// minCalendarInterval is the shortest sync interval the daemon can honour.
const minCalendarInterval = 5 * time.Minute

// Calendar command flags.
var (
	calendarAddFlagProject  string
	calendarAddFlagInterval string
	calendarAddFlagNoSync   bool
	calendarSyncFlagAll     bool
	calendarRemoveFlagForce bool
)

// calendarCmd represents the calendar command.
var calendarCmd = &cobra.Command{
	Use:     "calendar [command]",
	Aliases: []string{"cal", "calendars"},
	Short:   "Subscribe to iCalendar feeds",
	Long: `Subscribe to iCalendar (.ics) feeds from Google Calendar, Outlook,
iCloud or any other provider. Events are expanded, stored locally and
kept fresh by the daemon.

Examples:
  projecthub calendar add work https://calendar.google.com/.../basic.ics
  projecthub calendar add team webcal://example.com/team.ics --project client-work --interval 1h
  projecthub calendar list
  projecthub calendar sync --all
  projecthub calendar import work ~/Downloads/export.ics
  projecthub calendar disable work`,
	RunE: runCalendarList,
}

// calendarAddCmd registers a feed.
var calendarAddCmd = &cobra.Command{
	Use:   "add NAME URL",
	Short: "Subscribe to a calendar feed",
	Args:  cobra.ExactArgs(2),
	RunE:  runCalendarAdd,
}

// calendarListCmd lists feeds.
var calendarListCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List calendar feeds",
	Args:    cobra.NoArgs,
	RunE:    runCalendarList,
}

// calendarSyncCmd syncs one or all feeds.
var calendarSyncCmd = &cobra.Command{
	Use:               "sync [CALENDAR]",
	Short:             "Sync a calendar now",
	Args:              cobra.MaximumNArgs(1),
	ValidArgsFunction: completeCalendarArgs,
	RunE:              runCalendarSync,
}

// calendarImportCmd applies a local .ics file.
var calendarImportCmd = &cobra.Command{
	Use:   "import CALENDAR FILE",
	Short: "Import events from a local .ics file",
	Long: `Import events from a local .ics file into a calendar. Events in the
calendar that are not in the file are removed, as with a network sync.
Use "-" to read from stdin.`,
	Args: cobra.ExactArgs(2),
	RunE: runCalendarImport,
}

// calendarEnableCmd enables a feed.
var calendarEnableCmd = &cobra.Command{
	Use:               "enable CALENDAR",
	Short:             "Resume syncing a calendar",
	Args:              cobra.ExactArgs(1),
	ValidArgsFunction: completeCalendarArgs,
	RunE:              runCalendarEnable,
}

// calendarDisableCmd disables a feed.
var calendarDisableCmd = &cobra.Command{
	Use:               "disable CALENDAR",
	Short:             "Pause syncing a calendar",
	Args:              cobra.ExactArgs(1),
	ValidArgsFunction: completeCalendarArgs,
	RunE:              runCalendarDisable,
}

// calendarRemoveCmd removes a feed and its events.
var calendarRemoveCmd = &cobra.Command{
	Use:               "remove CALENDAR",
	Aliases:           []string{"rm", "delete"},
	Short:             "Unsubscribe and delete the calendar's events",
	Args:              cobra.ExactArgs(1),
	ValidArgsFunction: completeCalendarArgs,
	RunE:              runCalendarRemove,
}

func init() {
	calendarAddCmd.Flags().StringVarP(&calendarAddFlagProject, "project", "p", "", "Link events to a project")
	calendarAddCmd.Flags().StringVarP(&calendarAddFlagInterval, "interval", "i", "", "Sync interval (default from config, minimum 5m)")
	calendarAddCmd.Flags().BoolVar(&calendarAddFlagNoSync, "no-sync", false, "Do not sync right away")
	calendarAddCmd.RegisterFlagCompletionFunc("project", completeProjects)

	calendarSyncCmd.Flags().BoolVarP(&calendarSyncFlagAll, "all", "a", false, "Sync every enabled calendar")
	calendarRemoveCmd.Flags().BoolVar(&calendarRemoveFlagForce, "force", false, "Skip confirmation")

	calendarCmd.AddCommand(calendarAddCmd)
	calendarCmd.AddCommand(calendarListCmd)
	calendarCmd.AddCommand(calendarSyncCmd)
	calendarCmd.AddCommand(calendarImportCmd)
	calendarCmd.AddCommand(calendarEnableCmd)
	calendarCmd.AddCommand(calendarDisableCmd)
	calendarCmd.AddCommand(calendarRemoveCmd)
	rootCmd.AddCommand(calendarCmd)
}

// commandContext returns a request-scoped context for one command run.
func commandContext() context.Context {
	return logging.NewRequestContext(context.Background())
}

func runCalendarAdd(cmd *cobra.Command, args []string) error {
	c := commandContext()

	var interval time.Duration
	if calendarAddFlagInterval != "" {
		res := parser.ParseDuration(calendarAddFlagInterval)
		if res.Error != nil {
			return res.Error
		}
		if res.Duration < minCalendarInterval {
			return errors.NewUserErrorWithField("interval", calendarAddFlagInterval,
				"Sync interval too short",
				fmt.Sprintf("Use at least %s", parser.FormatDuration(minCalendarInterval)))
		}
		interval = res.Duration
	}

	projectSID := ""
	if calendarAddFlagProject != "" {
		projectSID = parser.NormalizeSID(calendarAddFlagProject)
	}

	svc, err := ctx.SyncService(c)
	if err != nil {
		return err
	}
	cal, err := svc.Add(c, args[0], args[1], projectSID, interval)
	if err != nil {
		return err
	}

	var res *calsync.Result
	if !calendarAddFlagNoSync {
		res, err = svc.Sync(c, cal.ID)
		if err != nil {
			res = &calsync.Result{SyncID: cal.ID, Name: cal.Name, Err: err}
		}
		if updated, gerr := ctx.CalendarRepo.Get(cal.ID); gerr == nil {
			cal = updated
		}
	}

	if ctx.IsJSON() {
		out := map[string]any{"calendar": output.NewCalendarOutput(cal)}
		if res != nil {
			out["sync"] = output.NewSyncResultOutput(res)
		}
		return ctx.Formatter.JSON(out)
	}

	cli := ctx.CLIFormatter()
	cli.Success(fmt.Sprintf("Subscribed to %s (%s)", cal.Name, cal.ShortID()))
	if res != nil {
		cli.PrintSyncResult(res)
		if res.Err != nil {
			cli.Muted("The calendar was kept; retry with 'projecthub calendar sync " + cal.ShortID() + "'")
		}
	}
	return nil
}

func runCalendarList(cmd *cobra.Command, args []string) error {
	cals, err := ctx.CalendarRepo.List()
	if err != nil {
		return err
	}
	if ctx.IsJSON() {
		return ctx.JSONFormatter().PrintCalendars(cals)
	}
	ctx.CLIFormatter().PrintCalendars(cals)
	return nil
}

func runCalendarSync(cmd *cobra.Command, args []string) error {
	c := commandContext()

	if len(args) == 0 && !calendarSyncFlagAll {
		return errors.NewUserError("No calendar given", "Name a calendar or pass --all")
	}

	svc, err := ctx.SyncService(c)
	if err != nil {
		return err
	}

	if calendarSyncFlagAll {
		results, err := svc.SyncAll(c)
		if err != nil {
			return err
		}
		if ctx.IsJSON() {
			return ctx.JSONFormatter().PrintSyncResults(results)
		}
		cli := ctx.CLIFormatter()
		if len(results) == 0 {
			cli.Muted("No enabled calendars.")
			return nil
		}
		for _, r := range results {
			cli.PrintSyncResult(r)
		}
		return nil
	}

	cal, err := ctx.CalendarRepo.Find(args[0])
	if err != nil {
		return err
	}
	res, err := svc.Sync(c, cal.ID)
	if err != nil {
		return err
	}
	if ctx.IsJSON() {
		return ctx.JSONFormatter().PrintSyncResults([]*calsync.Result{res})
	}
	ctx.CLIFormatter().PrintSyncResult(res)
	return nil
}

func runCalendarImport(cmd *cobra.Command, args []string) error {
	c := commandContext()

	cal, err := ctx.CalendarRepo.Find(args[0])
	if err != nil {
		return err
	}

	in := os.Stdin
	if args[1] != "-" {
		f, err := os.Open(args[1])
		if err != nil {
			if os.IsNotExist(err) {
				return errors.NewUserErrorWithField("file", args[1], "File not found", "Check the path to the .ics file")
			}
			return err
		}
		defer f.Close()
		in = f
	}

	svc, err := ctx.SyncService(c)
	if err != nil {
		return err
	}
	res, err := svc.Import(c, cal.ID, in)
	if err != nil {
		return err
	}
	if ctx.IsJSON() {
		return ctx.JSONFormatter().PrintSyncResults([]*calsync.Result{res})
	}
	ctx.CLIFormatter().PrintSyncResult(res)
	return nil
}

func runCalendarEnable(cmd *cobra.Command, args []string) error {
	return setCalendarEnabled(args[0], true)
}

func runCalendarDisable(cmd *cobra.Command, args []string) error {
	return setCalendarEnabled(args[0], false)
}

func setCalendarEnabled(ref string, enabled bool) error {
	cal, err := ctx.CalendarRepo.Find(ref)
	if err != nil {
		return err
	}
	cal, err = ctx.CalendarRepo.SetEnabled(cal.ID, enabled)
	if err != nil {
		return err
	}

	if ctx.IsJSON() {
		return ctx.Formatter.JSON(output.NewCalendarOutput(cal))
	}
	verb := "Disabled"
	if enabled {
		verb = "Enabled"
	}
	ctx.CLIFormatter().Success(fmt.Sprintf("%s calendar %s", verb, cal.Name))
	return nil
}

func runCalendarRemove(cmd *cobra.Command, args []string) error {
	c := commandContext()

	cal, err := ctx.CalendarRepo.Find(args[0])
	if err != nil {
		return err
	}
	if !calendarRemoveFlagForce && !confirm(fmt.Sprintf("Remove calendar %q and its events?", cal.Name)) {
		ctx.Formatter.Println("Cancelled.")
		return nil
	}

	svc, err := ctx.SyncService(c)
	if err != nil {
		return err
	}
	removed, err := svc.Remove(c, cal.ID)
	if err != nil {
		return err
	}

	if ctx.IsJSON() {
		return ctx.Formatter.JSON(map[string]any{
			"status":         "removed",
			"calendar":       cal.ID,
			"events_removed": removed,
		})
	}
	ctx.CLIFormatter().Success(fmt.Sprintf("Removed calendar %s (%d events)", cal.Name, removed))
	return nil
}
