package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"tunneldeck/internal/app"
)

var (
	appInstance *app.App
	version     = "dev"
)

// flagBindings maps persistent flags to configuration keys.
var flagBindings = map[string]string{
	"backend-url": "backend.url",
	"log-level":   "logging.level",
	"log-format":  "logging.format",
	"db":          "db",
}

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "tunneldeck",
	Short: "TunnelDeck - a NetworkManager VPN panel",
	Long: `TunnelDeck - a NetworkManager VPN panel

  Watch network reachability and switch VPN connections from your terminal.

  Quick start:
    tunneldeck status
    tunneldeck list
    tunneldeck up office
    tunneldeck tui

  The backend service performs every change; TunnelDeck talks to it over
  HTTP or a unix socket (--backend-url).`,
	Version:      version,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Initialize app
		configPath, _ := cmd.Flags().GetString("config")
		var err error
		appInstance, err = app.New(app.Options{
			ConfigPath: configPath,
			Bind:       bindFlags(cmd.Flags()),
			LogToFile:  cmd == tuiCmd,
		})
		if err != nil {
			return fmt.Errorf("failed to initialize application: %w", err)
		}
		return nil
	},
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		return closeApp()
	},
}

// bindFlags returns a binder that lets explicitly set flags override config keys.
func bindFlags(flags *pflag.FlagSet) func(v *viper.Viper) error {
	return func(v *viper.Viper) error {
		for name, key := range flagBindings {
			f := flags.Lookup(name)
			if f == nil || !f.Changed {
				continue
			}
			if err := v.BindPFlag(key, f); err != nil {
				return err
			}
		}
		return nil
	}
}

// skipAppInit replaces the root hook for commands that need neither the
// database nor the backend.
func skipAppInit(cmd *cobra.Command, args []string) error {
	return nil
}

func closeApp() error {
	if appInstance == nil {
		return nil
	}
	err := appInstance.Close()
	appInstance = nil
	return err
}

// Execute executes the root command
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := rootCmd.ExecuteContext(ctx)
	// PersistentPostRunE is skipped when a command fails.
	_ = closeApp()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().StringP("config", "c", "", "config file path")
	rootCmd.PersistentFlags().String("backend-url", "", "backend address (http://host:port or unix:///path)")
	rootCmd.PersistentFlags().String("log-level", "", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().String("log-format", "", "log format (json, console)")
	rootCmd.PersistentFlags().String("db", "", "database path")

	// Add subcommands
	rootCmd.AddCommand(versionCmd)
}

var versionCmd = &cobra.Command{
	Use:               "version",
	Short:             "Print version information",
	PersistentPreRunE: skipAppInit,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "TunnelDeck %s\n", version)
	},
}
