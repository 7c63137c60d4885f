package main

import (
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/webzook/wintail/internal/config"
	"github.com/webzook/wintail/internal/source"
)

var completionCmd = &cobra.Command{
	Use:   "completion [bash|zsh|fish|powershell]",
	Short: "Generate shell completion scripts",
	Long: `Generate shell completion scripts for wintail.

To load completions:

Bash:
  $ source <(wintail completion bash)

  # To load completions for each session, execute once:
  # Linux:
  $ wintail completion bash > /etc/bash_completion.d/wintail
  # macOS:
  $ wintail completion bash > $(brew --prefix)/etc/bash_completion.d/wintail

Zsh:
  # If shell completion is not already enabled in your environment,
  # you will need to enable it. You can execute the following once:
  $ echo "autoload -U compinit; compinit" >> ~/.zshrc

  # To load completions for each session, execute once:
  $ wintail completion zsh > "${fpath[1]}/_wintail"

  # You will need to start a new shell for this setup to take effect.

Fish:
  $ wintail completion fish | source

  # To load completions for each session, execute once:
  $ wintail completion fish > ~/.config/fish/completions/wintail.fish

PowerShell:
  PS> wintail completion powershell | Out-String | Invoke-Expression

  # To load completions for every new session, run:
  PS> wintail completion powershell > wintail.ps1
  # and source this file from your PowerShell profile.
`,
	DisableFlagsInUseLine: true,
	ValidArgs:             []string{"bash", "zsh", "fish", "powershell"},
	Args:                  cobra.MatchAll(cobra.MaximumNArgs(1), cobra.OnlyValidArgs),
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(args) == 0 {
			return cmd.Usage()
		}

		root := cmd.Root()
		out := cmd.OutOrStdout()

		switch args[0] {
		case "bash":
			return root.GenBashCompletionV2(out, true)
		case "zsh":
			return root.GenZshCompletion(out)
		case "fish":
			return root.GenFishCompletion(out, true)
		case "powershell":
			return root.GenPowerShellCompletionWithDesc(out)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(completionCmd)
}

// sourceIDs returns the configured source IDs, or nil when the config
// cannot be loaded. Completion must never fail loudly.
func sourceIDs() []string {
	cfg, _, _, err := config.Load(configPath)
	if err != nil {
		return nil
	}
	return source.New(cfg.Sources).IDs()
}

// completeSources completes the optional [source] argument with configured
// source IDs. Only the first positional argument is completed.
func completeSources(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	if len(args) > 0 {
		return nil, cobra.ShellCompDirectiveNoFileComp
	}
	return filterPrefix(sourceIDs(), toComplete), cobra.ShellCompDirectiveNoFileComp
}

// filterPrefix returns the candidates starting with toComplete, compared
// case-insensitively.
func filterPrefix(candidates []string, toComplete string) []string {
	current := strings.ToLower(strings.TrimSpace(toComplete))
	var out []string
	for _, c := range candidates {
		if strings.HasPrefix(strings.ToLower(c), current) {
			out = append(out, c)
		}
	}
	return out
}

// completeFormats completes output format flags.
func completeFormats(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	formats := make([]string, 0, len(ValidFormats))
	for f := range ValidFormats {
		formats = append(formats, f)
	}
	sort.Strings(formats)
	return filterPrefix(formats, toComplete), cobra.ShellCompDirectiveNoFileComp
}

// registerFormatCompletion registers completion for an output format flag.
func registerFormatCompletion(cmd *cobra.Command, flagName string) {
	_ = cmd.RegisterFlagCompletionFunc(flagName, completeFormats)
}
