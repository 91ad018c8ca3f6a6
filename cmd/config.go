package cmd

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/manav03panchal/projecthub/internal/config"
	"github.com/manav03panchal/projecthub/internal/errors"
	"github.com/manav03panchal/projecthub/internal/logging"
	"github.com/manav03panchal/projecthub/internal/model"
)

// configInitFlagForce overwrites an existing config file.
var configInitFlagForce bool

// configCmd represents the config command.
var configCmd = &cobra.Command{
	Use:     "config",
	Aliases: []string{"cfg", "settings"},
	Short:   "Manage notification preferences and settings",
	Long: `View and modify notification preferences. Runtime settings (HTTP,
sync, scheduler and backends) live in the YAML config file and
PROJECTHUB_* environment variables.

Examples:
  projecthub config show
  projecthub config set event_lead_times 10m,1h
  projecthub config set task_lead_times 24h,2h
  projecthub config set daily_agenda_at 07:30
  projecthub config set daily_agenda off
  projecthub config init`,
	RunE: runConfigShow,
}

// configShowCmd shows all settings.
var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show notification preferences and runtime settings",
	Args:  cobra.NoArgs,
	RunE:  runConfigShow,
}

// configSetCmd sets a notification preference.
var configSetCmd = &cobra.Command{
	Use:   "set KEY VALUE",
	Short: "Set a notification preference",
	Long: `Set a notification preference.

Keys and values:
  event_lead_times LIST   Reminders before events start (e.g. 15m or 10m,1h)
  task_lead_times LIST    Reminders before tasks fall due (e.g. 24h,1h)
  daily_agenda_at TIME    Time of the daily agenda (HH:MM, 24-hour)
  <type> on|off           Enable or disable a notification type

Lead times run from 1m to 168h.
Notification types: event_reminder, task_due, daily_agenda, sync_failed`,
	Args: cobra.ExactArgs(2),
	ValidArgsFunction: func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		if len(args) > 0 {
			return nil, cobra.ShellCompDirectiveNoFileComp
		}
		return configKeys(), cobra.ShellCompDirectiveNoFileComp
	},
	RunE: runConfigSet,
}

// configInitCmd writes the default config file.
var configInitCmd = &cobra.Command{
	Use:         "init",
	Short:       "Write the runtime config file with current values",
	Args:        cobra.NoArgs,
	Annotations: map[string]string{annotationNoRuntime: ""},
	RunE:        runConfigInit,
}

// configPathCmd prints the config file path.
var configPathCmd = &cobra.Command{
	Use:         "path",
	Short:       "Print the config file path",
	Args:        cobra.NoArgs,
	Annotations: map[string]string{annotationNoRuntime: ""},
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Println(configPath())
	},
}

func init() {
	configInitCmd.Flags().BoolVar(&configInitFlagForce, "force", false, "Overwrite an existing file")

	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configPathCmd)
	rootCmd.AddCommand(configCmd)
}

// configPath is the file named by --config, or the default location.
func configPath() string {
	if flagConfig != "" {
		return flagConfig
	}
	return config.DefaultPath()
}

// configKeys lists the keys accepted by config set.
func configKeys() []string {
	keys := []string{"event_lead_times", "task_lead_times", "daily_agenda_at"}
	for _, t := range model.NotificationTypes() {
		keys = append(keys, string(t))
	}
	return keys
}

// maskedRuntimeConfig returns a copy of the runtime config safe to print.
func maskedRuntimeConfig() config.RuntimeConfig {
	rc := *config.Global
	if rc.Backends.RedisURL != "" {
		rc.Backends.RedisURL = logging.MaskURL(rc.Backends.RedisURL)
	}
	if rc.Backends.PostgresURL != "" {
		rc.Backends.PostgresURL = logging.MaskURL(rc.Backends.PostgresURL)
	}
	return rc
}

// runConfigShow handles the config show command.
func runConfigShow(cmd *cobra.Command, args []string) error {
	notifyCfg, err := ctx.NotifyConfigRepo.Get()
	if err != nil {
		return err
	}
	install, err := ctx.ConfigRepo.Get()
	if err != nil {
		return err
	}
	runtimeCfg := maskedRuntimeConfig()

	if ctx.IsJSON() {
		return ctx.Formatter.JSON(map[string]any{
			"notify":      notifyCfg,
			"runtime":     runtimeCfg,
			"config_file": configPath(),
			"owner_key":   install.OwnerKey,
		})
	}

	cli := ctx.CLIFormatter()
	cli.PrintNotifyConfig(notifyCfg)
	ctx.Formatter.Println("")

	data, err := yaml.Marshal(runtimeCfg)
	if err != nil {
		return err
	}
	cli.Title("Runtime")
	cli.Muted("# " + configPath())
	for _, line := range strings.Split(strings.TrimRight(string(data), "\n"), "\n") {
		ctx.Formatter.Println("  " + line)
	}
	return nil
}

// runConfigSet handles the config set command.
func runConfigSet(cmd *cobra.Command, args []string) error {
	key := strings.TrimPrefix(strings.ToLower(args[0]), "notify.")
	key = strings.ReplaceAll(key, "-", "_")
	value := strings.TrimSpace(args[1])

	cfg, err := ctx.NotifyConfigRepo.Get()
	if err != nil {
		return err
	}

	switch key {
	case "event_lead_times":
		cfg.EventLeadTimes = splitLeadTimes(value)
	case "task_lead_times":
		cfg.TaskLeadTimes = splitLeadTimes(value)
	case "daily_agenda_at":
		t, err := parseTimeOfDay(value)
		if err != nil {
			return err
		}
		cfg.DailyAgendaAt = t.Format("15:04")
	default:
		nt, ok := notificationType(key)
		if !ok {
			return errors.NewUserErrorWithField("key", args[0],
				"Unknown config key",
				"Use one of: "+strings.Join(configKeys(), ", "))
		}
		enabled, err := parseEnabled(value)
		if err != nil {
			return err
		}
		cfg.SetTypeEnabled(nt, enabled)
	}

	if err := cfg.Validate(); err != nil {
		return errors.NewUserError(err.Error(), "Lead times use Go duration syntax (15m, 1h, 24h)")
	}
	if err := ctx.NotifyConfigRepo.Set(cfg); err != nil {
		return err
	}

	if ctx.IsJSON() {
		return ctx.Formatter.JSON(map[string]any{
			"status": "updated",
			"key":    key,
			"value":  value,
			"notify": cfg,
		})
	}

	ctx.CLIFormatter().Success(fmt.Sprintf("Updated %s = %s", key, value))
	return nil
}

// runConfigInit writes config.Global, which already carries defaults, the
// current file and the environment, to the config file.
func runConfigInit(cmd *cobra.Command, args []string) error {
	path := configPath()
	if _, err := os.Stat(path); err == nil && !configInitFlagForce {
		return errors.NewUserError("Config file already exists: "+path, "Pass --force to overwrite it")
	}
	if err := config.Global.Save(path); err != nil {
		return err
	}
	cmd.Printf("Wrote %s\n", path)
	return nil
}

// splitLeadTimes parses "10m, 1h" into its parts; validation happens in
// NotifyConfig.Validate.
func splitLeadTimes(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// notificationType maps a config key to a toggleable notification type.
func notificationType(key string) (model.NotificationType, bool) {
	for _, t := range model.NotificationTypes() {
		if string(t) == key {
			return t, true
		}
	}
	return "", false
}

// parseTimeOfDay parses a time string in HH:MM format.
func parseTimeOfDay(s string) (time.Time, error) {
	for _, layout := range []string{"15:04", "3:04pm", "3pm"} {
		if t, err := time.Parse(layout, strings.ToLower(s)); err == nil {
			return t, nil
		}
	}
	return time.Time{}, errors.NewUserErrorWithField("time", s, "Invalid time of day", "Use HH:MM, e.g. 08:00 or 17:30")
}

// parseEnabled parses an enabled/disabled value.
func parseEnabled(s string) (bool, error) {
	switch strings.ToLower(s) {
	case "enabled", "on", "true", "yes", "1":
		return true, nil
	case "disabled", "off", "false", "no", "0":
		return false, nil
	default:
		return false, errors.NewUserErrorWithField("value", s, "Invalid value", "Use on or off")
	}
}
