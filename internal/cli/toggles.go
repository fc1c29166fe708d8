package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	tderrors "tunneldeck/pkg/errors"
)

var ipv6Cmd = &cobra.Command{
	Use:       "ipv6 <enable|disable>",
	Short:     "Enable or disable IPv6 on the active connection",
	ValidArgs: []string{"enable", "disable"},
	Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		disable := args[0] == "disable"

		session, err := appInstance.NewSession()
		if err != nil {
			return err
		}
		defer session.Close()

		if err := session.Registry().Load(ctx); err != nil {
			return err
		}
		if !session.State().HasActiveConnection {
			return tderrors.ErrNoActiveConnection
		}

		if err := session.OnToggleIPv6(ctx, disable); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "IPv6 %s\n", onOff(disable, "disabled", "enabled"))
		return nil
	},
}

var openvpnCmd = &cobra.Command{
	Use:       "openvpn <enable|disable>",
	Short:     "Enable or disable NetworkManager OpenVPN support",
	ValidArgs: []string{"enable", "disable"},
	Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		enable := args[0] == "enable"

		session, err := appInstance.NewSession()
		if err != nil {
			return err
		}
		defer session.Close()

		if err := session.Registry().Load(ctx); err != nil {
			return err
		}
		if st := session.State(); st.OpenVPN.Disabled {
			return tderrors.ErrOpenVPNNotInstalled
		}

		if err := session.OnToggleOpenVPN(ctx, enable); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "OpenVPN %s\n", onOff(enable, "enabled", "disabled"))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(ipv6Cmd)
	rootCmd.AddCommand(openvpnCmd)
}
