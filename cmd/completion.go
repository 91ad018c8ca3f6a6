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
	"github.com/spf13/cobra"
)

// completionCmd represents the completion command.
var completionCmd = &cobra.Command{
	Use:   "completion [bash|zsh|fish]",
	Short: "Generate shell completion scripts",
	Long: `Generate shell completion scripts for projecthub.

To load completions:

Bash:
  $ source <(projecthub completion bash)

  # To load completions for each session, execute once:
  # Linux:
  $ projecthub completion bash > /etc/bash_completion.d/projecthub
  # macOS:
  $ projecthub completion bash > $(brew --prefix)/etc/bash_completion.d/projecthub

Zsh:
  # If shell completion is not already enabled in your environment,
  # you will need to enable it. You can execute the following once:
  $ echo "autoload -U compinit; compinit" >> ~/.zshrc

  # To load completions for each session, execute once:
  $ projecthub completion zsh > "${fpath[1]}/_projecthub"

  # You will need to start a new shell for this setup to take effect.

Fish:
  $ projecthub completion fish | source

  # To load completions for each session, execute once:
  $ projecthub completion fish > ~/.config/fish/completions/projecthub.fish
`,
	DisableFlagsInUseLine: true,
	Annotations:           map[string]string{annotationNoRuntime: ""},
	ValidArgs:             []string{"bash", "zsh", "fish"},
	Args:                  cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		switch args[0] {
		case "bash":
			return rootCmd.GenBashCompletionV2(out, true)
		case "zsh":
			return rootCmd.GenZshCompletion(out)
		case "fish":
			return rootCmd.GenFishCompletion(out, true)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(completionCmd)
}
