package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"tunneldeck/internal/storage"
	"tunneldeck/internal/tui"
)

var tuiCmd = &cobra.Command{
	Use:   "tui",
	Short: "Open the interactive terminal UI",
	Long:  `Launch the full-screen panel for switching connections and watching network status.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		session, err := appInstance.NewSession()
		if err != nil {
			return err
		}
		defer session.Close()

		cfg := appInstance.Config
		deps := tui.Deps{
			Session: session,
			Storage: appInstance.Storage,
			Logger:  appInstance.Logger.Named("tui"),
			Defaults: map[string]string{
				storage.SettingIdleInterval:   cfg.Refresh.IdleInterval.String(),
				storage.SettingDebounceDelay:  cfg.Refresh.DebounceDelay.String(),
				storage.SettingCoalesceDelay:  cfg.Refresh.CoalesceDelay.String(),
				storage.SettingReloadInterval: cfg.Registry.ReloadInterval.String(),
			},
		}

		if err := tui.Run(deps); err != nil {
			return fmt.Errorf("TUI error: %w", err)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(tuiCmd)
}
