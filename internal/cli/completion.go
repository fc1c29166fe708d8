package cli

import (
	"strings"

	"github.com/spf13/cobra"

	"tunneldeck/internal/app"
)

// ensureApp lazily initializes appInstance for shell completion.
// Cobra may invoke ValidArgsFunction without running PersistentPreRunE.
func ensureApp(cmd *cobra.Command) error {
	if appInstance != nil {
		return nil
	}
	configPath, _ := cmd.Flags().GetString("config")
	var err error
	appInstance, err = app.New(app.Options{
		ConfigPath: configPath,
		Bind:       bindFlags(cmd.Flags()),
		LogToFile:  true,
	})
	return err
}

// completeConnectionNames provides shell completion for connection names.
func completeConnectionNames(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	if len(args) > 0 {
		return nil, cobra.ShellCompDirectiveNoFileComp
	}

	if err := ensureApp(cmd); err != nil {
		return nil, cobra.ShellCompDirectiveError
	}

	session, err := appInstance.NewSession()
	if err != nil {
		return nil, cobra.ShellCompDirectiveError
	}
	defer session.Close()

	if err := session.Registry().Load(cmd.Context()); err != nil {
		return nil, cobra.ShellCompDirectiveError
	}

	var completions []string
	for _, c := range session.State().Connections {
		if strings.HasPrefix(strings.ToLower(c.Name), strings.ToLower(toComplete)) {
			completions = append(completions, c.Name)
		}
	}

	return completions, cobra.ShellCompDirectiveNoFileComp
}

// completeSettingKeys provides shell completion for stored setting keys.
func completeSettingKeys(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	if len(args) > 0 {
		return nil, cobra.ShellCompDirectiveNoFileComp
	}

	var completions []string
	for _, key := range settingKeys {
		if strings.HasPrefix(key, toComplete) {
			completions = append(completions, key)
		}
	}
	return completions, cobra.ShellCompDirectiveNoFileComp
}
