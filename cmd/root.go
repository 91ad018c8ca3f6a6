// Package cmd provides the CLI commands for ProjectHub.
//
// This software is a derivative work based on Zeit (https://github.com/mrusme/zeit)
// Original work copyright (c) マリウス (mrusme)
// Modifications copyright (c) Manav Panchal
//
// Licensed under the SEGV License, Version 1.0
// See LICENSE file for full license text.
package cmd

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/manav03panchal/projecthub/internal/config"
	"github.com/manav03panchal/projecthub/internal/logging"
	"github.com/manav03panchal/projecthub/internal/model"
	"github.com/manav03panchal/projecthub/internal/output"
	"github.com/manav03panchal/projecthub/internal/runtime"
	"github.com/manav03panchal/projecthub/internal/storage"
)

// Version information (set at build time via ldflags).
var (
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
)

// Global flags.
var (
	flagFormat string
	flagColor  string
	flagDebug  bool
	flagConfig string
)

// ctx is the shared runtime context.
var ctx *runtime.Context

// annotationNoRuntime marks commands that must not open the database.
const annotationNoRuntime = "no-runtime"

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "projecthub",
	Short: "Projects, tasks and synced calendars from the terminal",
	Long: `ProjectHub keeps your projects, kanban tasks and subscribed calendars
in one local store, and a background daemon reminds you before events
start and tasks fall due.

Examples:
  projecthub project create "Client Work"
  projecthub task add client-work "Draft proposal" --due "friday 5pm"
  projecthub calendar add work https://example.com/work.ics --project client-work
  projecthub events --from today --to "next friday"
  projecthub agenda`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Skip initialization for completion and help commands (but allow __complete for dynamic completions)
		if cmd.Name() == "completion" || cmd.Name() == "help" {
			return nil
		}

		path := flagConfig
		if path == "" {
			path = config.DefaultPath()
		}
		if err := config.Load(path); err != nil {
			return err
		}

		if flagDebug {
			logging.InitDebug()
		}

		if !needsRuntime(cmd) {
			return nil
		}

		opts := runtime.DefaultOptions()
		opts.Format = output.ParseFormat(flagFormat)
		opts.ColorMode = output.ParseColorMode(flagColor)
		opts.Debug = flagDebug

		var err error
		ctx, err = runtime.New(opts)
		if err != nil {
			return err
		}

		return nil
	},
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		if ctx != nil {
			return ctx.Close()
		}
		return nil
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		// Default behavior: show what is coming up
		return runStatus(cmd, args)
	},
}

// needsRuntime reports whether cmd works on the database. A background
// daemon start must leave the Badger lock to the child it spawns.
func needsRuntime(cmd *cobra.Command) bool {
	if cmd == daemonStartCmd {
		return daemonStartFlagForeground
	}
	_, skip := cmd.Annotations[annotationNoRuntime]
	return !skip
}

// statusHorizon is how far ahead the default view looks.
const statusHorizon = 24 * time.Hour

// runStatus shows upcoming events and open tasks due soon.
func runStatus(cmd *cobra.Command, args []string) error {
	now := time.Now()

	events, err := ctx.EventRepo.ListRange("", now, now.Add(statusHorizon))
	if err != nil {
		return err
	}
	calNames, err := calendarNames()
	if err != nil {
		return err
	}

	open, err := ctx.TaskRepo.ListFiltered(storage.TaskFilter{})
	if err != nil {
		return err
	}
	var due []*model.Task
	for _, t := range open {
		if t.DueDate != nil && t.DueDate.Before(now.Add(statusHorizon)) {
			due = append(due, t)
		}
	}

	if ctx.IsJSON() {
		tasks := make([]*output.TaskOutput, len(due))
		for i, t := range due {
			tasks[i] = output.NewTaskOutput(t, now)
		}
		evs := make([]*output.EventOutput, len(events))
		for i, e := range events {
			evs[i] = output.NewEventOutput(e, calNames[e.SyncID])
		}
		return ctx.Formatter.JSON(map[string]any{
			"events": evs,
			"tasks":  tasks,
		})
	}

	cli := ctx.CLIFormatter()
	cli.Title("Next 24 hours")
	cli.PrintEvents(events, calNames, now)
	ctx.Formatter.Println("")
	cli.Title("Due soon")
	if len(due) == 0 {
		cli.Muted("No tasks due")
		return nil
	}
	cli.PrintTasks(due, now)
	return nil
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().StringVarP(&flagFormat, "format", "f", "cli",
		"Output format: cli, json, plain")
	rootCmd.PersistentFlags().StringVar(&flagColor, "color", "auto",
		"Color output: auto, always, never")
	rootCmd.PersistentFlags().BoolVar(&flagDebug, "debug", false,
		"Enable debug output")
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "",
		"Config file (default $XDG_CONFIG_HOME/projecthub/config.yaml)")

	rootCmd.AddCommand(versionCmd)
}

// versionCmd shows version information.
var versionCmd = &cobra.Command{
	Use:         "version",
	Short:       "Print version information",
	Annotations: map[string]string{annotationNoRuntime: ""},
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Printf("projecthub %s\n", Version)
		cmd.Printf("  commit: %s\n", Commit)
		cmd.Printf("  built: %s\n", BuildTime)
		cmd.Println("")
		cmd.Println("Based on Zeit (https://github.com/mrusme/zeit)")
		cmd.Println("Licensed under SEGV License v1.0")
	},
}

// Die prints an error and exits.
func Die(err error) {
	printError(os.Stdout, os.Stderr, err)
	os.Exit(1)
}

// printError writes err as a JSON envelope to stdout when JSON output is
// selected and as text to stderr otherwise.
func printError(stdout, stderr io.Writer, err error) {
	if (ctx != nil && ctx.IsJSON()) || (ctx == nil && isJSONFlag()) {
		f := output.NewFormatter()
		f.Format = output.FormatJSON
		f.Writer = stdout
		output.NewJSONFormatter(f).PrintError("error", logging.MaskString(err.Error()), runtime.GetSuggestion(err))
		return
	}
	fmt.Fprintf(stderr, "Error: %s\n", runtime.FormatError(err))
}
