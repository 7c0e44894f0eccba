package cli

import (
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Dev-derah/simple-content-ai/internal/core/repurpose"
)

var completionCmd = &cobra.Command{
	Use:   "completion [bash|zsh|fish|powershell]",
	Short: "Generate shell completion script",
	Long: `Generate shell completion script for contentai.

Bash:
  source <(contentai completion bash)

Zsh:
  contentai completion zsh > "${fpath[1]}/_contentai"

Fish:
  contentai completion fish > ~/.config/fish/completions/contentai.fish

PowerShell:
  contentai completion powershell >> $PROFILE
`,
	Args:      cobra.ExactArgs(1),
	ValidArgs: []string{"bash", "zsh", "fish", "powershell"},
	RunE: func(cmd *cobra.Command, args []string) error {
		switch args[0] {
		case "bash":
			return rootCmd.GenBashCompletion(os.Stdout)
		case "zsh":
			return rootCmd.GenZshCompletion(os.Stdout)
		case "fish":
			return rootCmd.GenFishCompletion(os.Stdout, true)
		case "powershell":
			return rootCmd.GenPowerShellCompletion(os.Stdout)
		default:
			return cmd.Help()
		}
	},
}

func init() {
	rootCmd.AddCommand(completionCmd)
}

// completePlatforms completes the comma separated --platforms flag.
func completePlatforms(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	done := ""
	current := toComplete
	if i := strings.LastIndex(toComplete, ","); i >= 0 {
		done = toComplete[:i+1]
		current = toComplete[i+1:]
	}

	var completions []string
	for _, name := range repurpose.AllPlatformNames() {
		if strings.HasPrefix(name, strings.ToLower(current)) && !strings.Contains(","+done, ","+name+",") {
			completions = append(completions, done+name)
		}
	}
	return completions, cobra.ShellCompDirectiveNoFileComp | cobra.ShellCompDirectiveNoSpace
}
