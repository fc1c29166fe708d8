package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"tunneldeck/internal/storage"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show recent actions",
	Long:  "List the toggles issued from the panel and the CLI, newest first.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")
		kind, _ := cmd.Flags().GetString("kind")
		failed, _ := cmd.Flags().GetBool("failed")

		actions, err := appInstance.Storage.ListActions(cmd.Context(), storage.ActionFilter{
			Kind:       kind,
			FailedOnly: failed,
			Limit:      limit,
		})
		if err != nil {
			return fmt.Errorf("failed to list actions: %w", err)
		}

		out := cmd.OutOrStdout()
		if len(actions) == 0 {
			fmt.Fprintln(out, "No actions recorded.")
			return nil
		}

		w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "TIME\tACTION\tTARGET\tRESULT")
		fmt.Fprintln(w, "----\t------\t------\t------")

		for _, a := range actions {
			target := a.Target
			if target == "" {
				target = "-"
			}
			result := "✓"
			if !a.Success {
				result = "✗ " + a.ErrorMessage
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\n",
				a.CreatedAt.Local().Format("2006-01-02 15:04:05"), a.Verb(), target, result)
		}

		return w.Flush()
	},
}

var historyPruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Delete old actions",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		keep, _ := cmd.Flags().GetInt("keep")
		if keep < 0 {
			return fmt.Errorf("--keep must not be negative")
		}
		if err := appInstance.Storage.PruneActions(cmd.Context(), keep); err != nil {
			return fmt.Errorf("failed to prune actions: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Kept the %d most recent actions\n", keep)
		return nil
	},
}

func init() {
	historyCmd.Flags().IntP("limit", "n", 20, "maximum number of actions to show (0 for all)")
	historyCmd.Flags().String("kind", "", "only show one kind (connection, ipv6, openvpn)")
	historyCmd.Flags().Bool("failed", false, "only show failed actions")

	historyPruneCmd.Flags().Int("keep", 100, "number of recent actions to keep")

	historyCmd.AddCommand(historyPruneCmd)
	rootCmd.AddCommand(historyCmd)
}
