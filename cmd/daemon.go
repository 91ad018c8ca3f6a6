package cmd

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/manav03panchal/projecthub/internal/daemon"
	"github.com/manav03panchal/projecthub/internal/output"
)

// Daemon command flags.
var (
	daemonStartFlagForeground bool
	daemonLogsFlagTail        int
)

// daemonCmd represents the daemon command.
var daemonCmd = &cobra.Command{
	Use:     "daemon [command]",
	Aliases: []string{"d", "bg", "service"},
	Short:   "Manage the background daemon",
	Long: `Manage the ProjectHub background daemon. It syncs calendars on their
intervals and sends webhook notifications for upcoming events, tasks
falling due, the daily agenda and failed syncs.

Examples:
  projecthub daemon start
  projecthub daemon status
  projecthub daemon stop
  projecthub daemon logs --tail 50`,
	Annotations: map[string]string{annotationNoRuntime: ""},
	RunE:        runDaemonStatus,
}

// daemonStartCmd starts the daemon.
var daemonStartCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the background daemon",
	Long: `Start the ProjectHub background daemon.

Examples:
  projecthub daemon start                # Start in background
  projecthub daemon start --foreground   # Start in foreground (for debugging)`,
	Args: cobra.NoArgs,
	RunE: runDaemonStart,
}

// daemonStopCmd stops the daemon.
var daemonStopCmd = &cobra.Command{
	Use:         "stop",
	Short:       "Stop the background daemon",
	Args:        cobra.NoArgs,
	Annotations: map[string]string{annotationNoRuntime: ""},
	RunE:        runDaemonStop,
}

// daemonStatusCmd shows daemon status.
var daemonStatusCmd = &cobra.Command{
	Use:         "status",
	Short:       "Show daemon status, health and metrics",
	Args:        cobra.NoArgs,
	Annotations: map[string]string{annotationNoRuntime: ""},
	RunE:        runDaemonStatus,
}

// daemonLogsCmd shows daemon logs.
var daemonLogsCmd = &cobra.Command{
	Use:         "logs",
	Short:       "View daemon logs",
	Args:        cobra.NoArgs,
	Annotations: map[string]string{annotationNoRuntime: ""},
	RunE:        runDaemonLogs,
}

func init() {
	daemonStartCmd.Flags().BoolVar(&daemonStartFlagForeground, "foreground", false,
		"Run in foreground (don't daemonize)")
	daemonLogsCmd.Flags().IntVarP(&daemonLogsFlagTail, "tail", "n", 20,
		"Number of lines to show")

	daemonCmd.AddCommand(daemonStartCmd)
	daemonCmd.AddCommand(daemonStopCmd)
	daemonCmd.AddCommand(daemonStatusCmd)
	daemonCmd.AddCommand(daemonLogsCmd)

	rootCmd.AddCommand(daemonCmd)
}

// isJSONFlag reports --format json for commands that run without a runtime.
func isJSONFlag() bool {
	return output.ParseFormat(flagFormat) == output.FormatJSON
}

// printJSON writes v to stdout as indented JSON.
func printJSON(v any) error {
	f := output.NewFormatter()
	f.Format = output.FormatJSON
	return f.JSON(v)
}

// runDaemonStart handles the daemon start command.
func runDaemonStart(cmd *cobra.Command, args []string) error {
	// Background mode: ctx is nil so the child can take the database lock.
	if !daemonStartFlagForeground {
		d := daemon.NewDaemon(nil)
		d.SetDebug(flagDebug)

		if d.IsRunning() {
			status := d.GetStatus()
			return fmt.Errorf("daemon is already running (PID: %d)", status.PID)
		}

		pid, err := d.StartBackground()
		if err != nil {
			return err
		}

		if isJSONFlag() {
			return printJSON(map[string]any{"status": "started", "pid": pid})
		}
		fmt.Printf("Daemon started (PID: %d)\n", pid)
		fmt.Printf("Logs: %s\n", daemon.GetLogPath())
		return nil
	}

	d := daemon.NewDaemon(ctx)
	d.SetDebug(ctx.Debug)
	d.SetVersion(Version)

	if d.IsRunning() {
		status := d.GetStatus()
		if ctx.IsJSON() {
			return ctx.Formatter.JSON(map[string]any{
				"status": "already_running",
				"pid":    status.PID,
			})
		}
		return fmt.Errorf("daemon is already running (PID: %d)", status.PID)
	}

	if ctx.Dispatcher().CountEnabledWebhooks() == 0 && !ctx.IsJSON() {
		ctx.CLIFormatter().Warning("No webhooks configured. Add one with: projecthub webhook add")
	}
	if !ctx.IsJSON() {
		ctx.Formatter.Println("Starting projecthub daemon (foreground mode)...")
	}
	return d.Start(context.Background())
}

// runDaemonStop handles the daemon stop command.
func runDaemonStop(cmd *cobra.Command, args []string) error {
	d := daemon.NewDaemon(nil)

	if !d.IsRunning() {
		if isJSONFlag() {
			return printJSON(map[string]any{"status": "not_running"})
		}
		fmt.Println("Daemon is not running")
		return nil
	}

	pid := d.GetStatus().PID
	if err := d.Stop(); err != nil {
		return err
	}

	if isJSONFlag() {
		return printJSON(map[string]any{"status": "stopped", "pid": pid})
	}
	fmt.Printf("Daemon stopped (was PID: %d)\n", pid)
	return nil
}

// runDaemonStatus handles the daemon status command.
func runDaemonStatus(cmd *cobra.Command, args []string) error {
	status := daemon.NewDaemon(nil).GetStatus()

	if isJSONFlag() {
		return printJSON(status)
	}

	fmt.Println("ProjectHub Daemon Status")
	fmt.Println("")

	if !status.Running {
		fmt.Printf("  Status:    stopped\n")
		fmt.Println("")
		fmt.Println("Start with: projecthub daemon start")
		return nil
	}

	fmt.Printf("  Status:    running\n")
	fmt.Printf("  PID:       %d\n", status.PID)
	if status.Uptime != "" {
		fmt.Printf("  Uptime:    %s\n", status.Uptime)
	}
	if !status.NextRun.IsZero() {
		fmt.Printf("  Next run:  %s\n", status.NextRun.Local().Format(time.Kitchen))
	}
	fmt.Printf("  Logs:      %s\n", status.LogPath)

	if h := status.Health; h != nil {
		fmt.Println("")
		fmt.Printf("  Health:    %s\n", h.Status)
		for _, c := range h.Checks {
			state := "ok"
			if !c.Healthy {
				state = "failing"
			}
			line := fmt.Sprintf("    %-10s %s", c.Name, state)
			if c.Error != "" {
				line += "  (" + c.Error + ")"
			}
			fmt.Println(line)
		}
		if h.PendingNotifications > 0 {
			fmt.Printf("    queued     %d notifications\n", h.PendingNotifications)
		}
	}

	if m := status.Metrics; m != nil {
		fmt.Println("")
		fmt.Printf("  Syncs:         %d (%d failed, %d events changed)\n",
			m.SyncsTotal, m.SyncsFailedTotal, m.EventsChangedTotal)
		fmt.Printf("  Notifications: %d sent, %d failed, %d queued\n",
			m.NotificationsSentTotal, m.NotificationsFailedTotal, m.NotificationsQueuedTotal)
		if m.LastError != "" {
			fmt.Printf("  Last error:    %s\n", m.LastError)
		}
	}
	return nil
}

// runDaemonLogs handles the daemon logs command.
func runDaemonLogs(cmd *cobra.Command, args []string) error {
	logPath := daemon.GetLogPath()

	if _, err := os.Stat(logPath); os.IsNotExist(err) {
		fmt.Println("No log file found.")
		fmt.Printf("Log path: %s\n", logPath)
		return nil
	}

	lines, err := tailFile(logPath, daemonLogsFlagTail)
	if err != nil {
		return err
	}
	fmt.Println(strings.Join(lines, "\n"))
	return nil
}

// tailFile reads the last n lines from a file.
func tailFile(path string, n int) ([]string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	var lines []string
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
		if len(lines) > n {
			lines = lines[1:]
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, err
	}

	return lines, nil
}
