package cmd

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/manav03panchal/projecthub/internal/errors"
	"github.com/manav03panchal/projecthub/internal/model"
	"github.com/manav03panchal/projecthub/internal/notify"
	"github.com/manav03panchal/projecthub/internal/output"
	"github.com/manav03panchal/projecthub/internal/validate"
)

// Webhook command flags.
var (
	webhookAddFlagType     string
	webhookAddFlagTemplate string
	webhookRemoveFlagForce bool
	webhookTestFlagAll     bool
)

// webhookTestTimeout bounds one test delivery.
const webhookTestTimeout = 30 * time.Second

// webhookCmd represents the webhook command.
var webhookCmd = &cobra.Command{
	Use:     "webhook [command]",
	Aliases: []string{"w", "wh", "hook"},
	Short:   "Configure notification webhooks",
	Long: `Configure webhooks for Discord, Slack, Teams, or custom endpoints.

Webhooks receive event reminders, task due reminders, the daily agenda
and calendar sync failures.

Examples:
  projecthub webhook add discord https://discord.com/api/webhooks/...
  projecthub webhook add slack https://hooks.slack.com/services/...
  projecthub webhook list
  projecthub webhook test discord
  projecthub webhook disable slack
  projecthub webhook remove discord`,
	RunE: runWebhookList,
}

// webhookAddCmd adds a new webhook.
var webhookAddCmd = &cobra.Command{
	Use:   "add NAME URL",
	Short: "Add a new webhook",
	Long: `Add a webhook for receiving notifications.

The webhook type is auto-detected from the URL:
  - Discord: discord.com/api/webhooks/...
  - Slack:   hooks.slack.com/services/...
  - Teams:   outlook.office.com/webhook/...
  - Generic: Any other URL

Generic webhooks accept a Go template for the request body. The template
sees .Type, .Title, .Message, .Fields, .Timestamp and .Color, and the json
function quotes a value for JSON bodies.

Examples:
  projecthub webhook add discord https://discord.com/api/webhooks/123/abc
  projecthub webhook add ntfy https://ntfy.sh/my-topic --type generic --template '{"text": {{json .Title}}}'`,
	Args: cobra.ExactArgs(2),
	RunE: runWebhookAdd,
}

// webhookListCmd lists all webhooks.
var webhookListCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List all webhooks",
	RunE:    runWebhookList,
}

// webhookTestCmd tests a webhook.
var webhookTestCmd = &cobra.Command{
	Use:   "test [NAME]",
	Short: "Test a webhook by sending a test notification",
	Long: `Send a test notification to verify webhook configuration.

Examples:
  projecthub webhook test discord
  projecthub webhook test --all`,
	Args: cobra.MaximumNArgs(1),
	RunE: runWebhookTest,
}

// webhookRemoveCmd removes a webhook.
var webhookRemoveCmd = &cobra.Command{
	Use:     "remove NAME",
	Aliases: []string{"rm", "delete"},
	Short:   "Remove a webhook",
	Args:    cobra.ExactArgs(1),
	RunE:    runWebhookRemove,
}

// webhookEnableCmd enables a webhook.
var webhookEnableCmd = &cobra.Command{
	Use:   "enable NAME",
	Short: "Enable a webhook",
	Args:  cobra.ExactArgs(1),
	RunE:  runWebhookEnable,
}

// webhookDisableCmd disables a webhook.
var webhookDisableCmd = &cobra.Command{
	Use:   "disable NAME",
	Short: "Disable a webhook",
	Args:  cobra.ExactArgs(1),
	RunE:  runWebhookDisable,
}

func init() {
	// Add flags
	webhookAddCmd.Flags().StringVarP(&webhookAddFlagType, "type", "t", "",
		"Webhook type: discord, slack, teams, generic (auto-detected from URL if not specified)")
	webhookAddCmd.Flags().StringVar(&webhookAddFlagTemplate, "template", "",
		"Custom payload template (generic webhooks only)")

	webhookRemoveCmd.Flags().BoolVar(&webhookRemoveFlagForce, "force", false,
		"Skip confirmation")

	webhookTestCmd.Flags().BoolVarP(&webhookTestFlagAll, "all", "a", false,
		"Test all enabled webhooks")

	// Dynamic completion for webhook names
	webhookTestCmd.ValidArgsFunction = completeWebhookArgs
	webhookRemoveCmd.ValidArgsFunction = completeWebhookArgs
	webhookEnableCmd.ValidArgsFunction = completeWebhookArgs
	webhookDisableCmd.ValidArgsFunction = completeWebhookArgs

	// Add subcommands
	webhookCmd.AddCommand(webhookAddCmd)
	webhookCmd.AddCommand(webhookListCmd)
	webhookCmd.AddCommand(webhookTestCmd)
	webhookCmd.AddCommand(webhookRemoveCmd)
	webhookCmd.AddCommand(webhookEnableCmd)
	webhookCmd.AddCommand(webhookDisableCmd)

	rootCmd.AddCommand(webhookCmd)
}

// runWebhookAdd handles the webhook add command.
func runWebhookAdd(cmd *cobra.Command, args []string) error {
	name := args[0]
	webhookURL := strings.TrimSpace(args[1])

	if !model.IsValidWebhookName(name) {
		return errors.NewUserErrorWithField("name", name,
			"Invalid webhook name",
			"Use letters, digits, dash or underscore (max 50 characters)")
	}
	if err := validate.URL(webhookURL); err != nil {
		return err
	}

	exists, err := ctx.WebhookRepo.Exists(name)
	if err != nil {
		return err
	}
	if exists {
		return errors.NewUserErrorWithField("name", name,
			fmt.Sprintf("Webhook %q already exists", name),
			"Remove it first or pick another name")
	}

	webhookType := webhookAddFlagType
	if webhookType == "" {
		webhookType = model.DetectWebhookType(webhookURL)
	}
	if !model.IsValidWebhookType(webhookType) {
		return errors.NewUserErrorWithField("type", webhookType,
			"Invalid webhook type",
			"Use one of: "+strings.Join(model.ValidWebhookTypes(), ", "))
	}

	if webhookAddFlagTemplate != "" {
		if webhookType != model.WebhookTypeGeneric {
			return errors.NewUserError("Templates only apply to generic webhooks", "Add --type generic")
		}
		if err := notify.ValidateTemplate(webhookAddFlagTemplate); err != nil {
			return err
		}
	}

	webhook := model.NewWebhook(name, webhookType, webhookURL)
	webhook.Template = webhookAddFlagTemplate

	if err := ctx.WebhookRepo.Create(webhook); err != nil {
		return err
	}

	if ctx.IsJSON() {
		return ctx.Formatter.JSON(output.NewWebhookOutput(webhook))
	}

	cli := ctx.CLIFormatter()
	cli.Success("Added webhook: " + name)
	ctx.Formatter.Printf("  Type: %s\n", webhook.Type)
	ctx.Formatter.Printf("  URL:  %s\n", webhook.MaskedURL())
	ctx.Formatter.Println("")
	ctx.Formatter.Printf("Test with: projecthub webhook test %s\n", name)

	return nil
}

// runWebhookList handles the webhook list command.
func runWebhookList(cmd *cobra.Command, args []string) error {
	webhooks, err := ctx.WebhookRepo.List()
	if err != nil {
		return err
	}

	if ctx.IsJSON() {
		return ctx.JSONFormatter().PrintWebhooks(webhooks)
	}
	ctx.CLIFormatter().PrintWebhooks(webhooks)
	return nil
}

// webhookTestOutput is the JSON form of one test delivery.
type webhookTestOutput struct {
	Webhook    string `json:"webhook"`
	Success    bool   `json:"success"`
	StatusCode int    `json:"status_code,omitempty"`
	DurationMs int64  `json:"duration_ms"`
	Error      string `json:"error,omitempty"`
}

func newWebhookTestOutput(r notify.DispatchResult) webhookTestOutput {
	return webhookTestOutput{
		Webhook:    r.WebhookName,
		Success:    r.Success,
		StatusCode: r.StatusCode,
		DurationMs: r.Duration.Milliseconds(),
		Error:      errorString(r.Error),
	}
}

// runWebhookTest handles the webhook test command.
func runWebhookTest(cmd *cobra.Command, args []string) error {
	dispatcher := ctx.Dispatcher()
	c, cancel := context.WithTimeout(commandContext(), webhookTestTimeout)
	defer cancel()

	var names []string
	switch {
	case webhookTestFlagAll:
		webhooks, err := ctx.WebhookRepo.ListEnabled()
		if err != nil {
			return err
		}
		if len(webhooks) == 0 {
			return errors.NewUserError("No enabled webhooks to test", "Add one with 'projecthub webhook add'")
		}
		for _, wh := range webhooks {
			names = append(names, wh.Name)
		}
	case len(args) == 1:
		if _, err := ctx.WebhookRepo.Get(args[0]); err != nil {
			return err
		}
		names = []string{args[0]}
	default:
		return errors.NewUserError("Webhook name required", "Name a webhook or pass --all")
	}

	if !ctx.IsJSON() {
		ctx.Formatter.Println("Sending test notification...")
	}

	results := make([]webhookTestOutput, 0, len(names))
	cli := ctx.CLIFormatter()
	for _, name := range names {
		result := dispatcher.TestWebhook(c, name)
		results = append(results, newWebhookTestOutput(result))
		if ctx.IsJSON() {
			continue
		}
		if result.Success {
			cli.Success(fmt.Sprintf("%s: delivered in %dms", name, result.Duration.Milliseconds()))
		} else {
			cli.Error(fmt.Sprintf("%s: %v", name, result.Error))
		}
	}

	if ctx.IsJSON() {
		return ctx.Formatter.JSON(map[string]any{"results": results})
	}
	return nil
}

// runWebhookRemove handles the webhook remove command.
func runWebhookRemove(cmd *cobra.Command, args []string) error {
	name := args[0]

	if _, err := ctx.WebhookRepo.Get(name); err != nil {
		return err
	}

	if !webhookRemoveFlagForce && !confirm(fmt.Sprintf("Remove webhook %q?", name)) {
		ctx.Formatter.Println("Cancelled.")
		return nil
	}

	if err := ctx.WebhookRepo.Delete(name); err != nil {
		return err
	}

	if ctx.IsJSON() {
		return ctx.Formatter.JSON(map[string]any{
			"status":  "removed",
			"webhook": name,
		})
	}

	ctx.CLIFormatter().Success("Removed webhook: " + name)
	return nil
}

// runWebhookEnable handles the webhook enable command.
func runWebhookEnable(cmd *cobra.Command, args []string) error {
	return setWebhookEnabled(args[0], true)
}

// runWebhookDisable handles the webhook disable command.
func runWebhookDisable(cmd *cobra.Command, args []string) error {
	return setWebhookEnabled(args[0], false)
}

func setWebhookEnabled(name string, enabled bool) error {
	if err := ctx.WebhookRepo.SetEnabled(name, enabled); err != nil {
		return err
	}

	status := "disabled"
	if enabled {
		status = "enabled"
	}

	if ctx.IsJSON() {
		return ctx.Formatter.JSON(map[string]any{
			"status":  status,
			"webhook": name,
		})
	}

	ctx.CLIFormatter().Success(fmt.Sprintf("Webhook %s %s", name, status))
	return nil
}
