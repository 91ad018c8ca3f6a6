package cmd

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/manav03panchal/projecthub/internal/runtime"
)

// completionContext opens the runtime for dynamic completions, which run
// without the root pre-run hook. The returned func closes what it opened.
func completionContext() (func(), bool) {
	if ctx != nil {
		return func() {}, true
	}
	rt, err := runtime.New(runtime.DefaultOptions())
	if err != nil {
		return nil, false
	}
	ctx = rt
	return func() {
		rt.Close()
		ctx = nil
	}, true
}

// completeProjects returns a completion function for project SIDs.
func completeProjects(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	done, ok := completionContext()
	if !ok {
		return nil, cobra.ShellCompDirectiveError
	}
	defer done()

	projects, err := ctx.ProjectRepo.List()
	if err != nil {
		return nil, cobra.ShellCompDirectiveNoFileComp
	}

	var completions []string
	for _, p := range projects {
		if strings.HasPrefix(p.SID, toComplete) {
			completions = append(completions, p.SID+"\t"+p.DisplayName)
		}
	}
	return completions, cobra.ShellCompDirectiveNoFileComp
}

// completeProjectArgs handles completion for commands that take a project SID.
func completeProjectArgs(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	// Only complete first argument
	if len(args) > 0 {
		return nil, cobra.ShellCompDirectiveNoFileComp
	}
	return completeProjects(cmd, args, toComplete)
}

// completeCalendarArgs completes calendar IDs, described by name.
func completeCalendarArgs(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	if len(args) > 0 {
		return nil, cobra.ShellCompDirectiveNoFileComp
	}
	done, ok := completionContext()
	if !ok {
		return nil, cobra.ShellCompDirectiveError
	}
	defer done()

	cals, err := ctx.CalendarRepo.List()
	if err != nil {
		return nil, cobra.ShellCompDirectiveNoFileComp
	}

	var completions []string
	for _, c := range cals {
		if strings.HasPrefix(c.ID, toComplete) || strings.HasPrefix(c.Name, toComplete) {
			completions = append(completions, c.ID+"\t"+c.Name)
		}
	}
	return completions, cobra.ShellCompDirectiveNoFileComp
}

// completeWebhookArgs provides completion for webhook names.
func completeWebhookArgs(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	if len(args) != 0 {
		return nil, cobra.ShellCompDirectiveNoFileComp
	}
	done, ok := completionContext()
	if !ok {
		return nil, cobra.ShellCompDirectiveError
	}
	defer done()

	webhooks, err := ctx.WebhookRepo.List()
	if err != nil {
		return nil, cobra.ShellCompDirectiveError
	}

	var names []string
	for _, wh := range webhooks {
		if strings.HasPrefix(wh.Name, toComplete) {
			names = append(names, wh.Name)
		}
	}
	return names, cobra.ShellCompDirectiveNoFileComp
}

// completeTaskStatus completes kanban status names for the second argument.
func completeTaskStatus(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	if len(args) != 1 {
		return nil, cobra.ShellCompDirectiveNoFileComp
	}
	var out []string
	for _, st := range taskStatusNames() {
		if strings.HasPrefix(st, toComplete) {
			out = append(out, st)
		}
	}
	return out, cobra.ShellCompDirectiveNoFileComp
}
