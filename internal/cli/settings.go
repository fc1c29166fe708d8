package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"tunneldeck/internal/config"
	"tunneldeck/internal/storage"
	tderrors "tunneldeck/pkg/errors"
)

// settingKeys lists the stored intervals in display order.
var settingKeys = []string{
	storage.SettingIdleInterval,
	storage.SettingDebounceDelay,
	storage.SettingCoalesceDelay,
	storage.SettingReloadInterval,
}

var settingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "Manage stored settings",
	Long:  "Show and change the intervals saved in the database. Stored values override the config file.",
}

var settingsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List settings with their effective values",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		stored, err := appInstance.Storage.GetAllSettings(cmd.Context())
		if err != nil {
			return fmt.Errorf("failed to get settings: %w", err)
		}

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "KEY\tEFFECTIVE\tSTORED")
		fmt.Fprintln(w, "---\t---------\t------")

		for _, key := range settingKeys {
			value, ok := stored[key]
			if !ok {
				value = "-"
			}
			fmt.Fprintf(w, "%s\t%s\t%s\n", key, appInstance.Viper.GetDuration(key), value)
		}

		return w.Flush()
	},
}

var settingsSetCmd = &cobra.Command{
	Use:               "set <key> <duration>",
	Short:             "Store an interval",
	Args:              cobra.ExactArgs(2),
	ValidArgsFunction: completeSettingKeys,
	RunE: func(cmd *cobra.Command, args []string) error {
		key, value := args[0], args[1]
		if !config.IsOverridable(key) {
			return fmt.Errorf("%w: %s", tderrors.ErrSettingNotFound, key)
		}
		if _, err := config.ParseSetting(value); err != nil {
			return fmt.Errorf("invalid value for %s: %w", key, err)
		}

		if err := appInstance.Storage.SetSetting(cmd.Context(), key, value); err != nil {
			return fmt.Errorf("failed to save setting: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Saved %s = %s\n", key, value)
		return nil
	},
}

func init() {
	settingsCmd.AddCommand(settingsListCmd)
	settingsCmd.AddCommand(settingsSetCmd)
	rootCmd.AddCommand(settingsCmd)
}
