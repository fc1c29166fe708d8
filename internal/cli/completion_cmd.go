package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"
)

var completionCmd = &cobra.Command{
	Use:   "completion [bash|zsh|fish|powershell]",
	Short: "Generate shell completion script",
	Long: `Generate shell completion script for tunneldeck.

Bash:
  $ source <(tunneldeck completion bash)
  # To load completions for each session, execute once:
  $ tunneldeck completion bash > /etc/bash_completion.d/tunneldeck

Zsh:
  $ tunneldeck completion zsh > "${fpath[1]}/_tunneldeck"
  # You will need to start a new shell for this setup to take effect.

Fish:
  $ tunneldeck completion fish > ~/.config/fish/completions/tunneldeck.fish

Connection names are completed by asking the backend, so it has to be reachable.
`,
	DisableFlagsInUseLine: true,
	ValidArgs:             []string{"bash", "zsh", "fish", "powershell"},
	Args:                  cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
	PersistentPreRunE:     skipAppInit,
	RunE: func(cmd *cobra.Command, args []string) error {
		return genCompletion(cmd.Root(), cmd.OutOrStdout(), args[0])
	},
}

func genCompletion(root *cobra.Command, w io.Writer, shell string) error {
	switch shell {
	case "bash":
		return root.GenBashCompletionV2(w, true)
	case "zsh":
		return root.GenZshCompletion(w)
	case "fish":
		return root.GenFishCompletion(w, true)
	case "powershell":
		return root.GenPowerShellCompletionWithDesc(w)
	}
	return fmt.Errorf("unsupported shell %q", shell)
}

func init() {
	rootCmd.AddCommand(completionCmd)
}
