package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"tunneldeck/internal/panel"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show network status",
	Long:  `Run one refresh cycle against the backend and print the network facts.`,
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		session, err := appInstance.NewSession()
		if err != nil {
			return err
		}
		defer session.Close()

		if err := session.FetchOnce(cmd.Context()); err != nil {
			return fmt.Errorf("failed to fetch status: %w", err)
		}

		printStatus(cmd.OutOrStdout(), session.State())
		return nil
	},
}

func printStatus(w io.Writer, st panel.State) {
	snap := st.Snapshot

	fmt.Fprintln(w, "Network Status")
	fmt.Fprintln(w, "══════════════")
	fmt.Fprintln(w)
	fmt.Fprintf(w, "Interface:  %s\n", snap.PriorityInterface)
	fmt.Fprintf(w, "LAN IP:     %s\n", snap.LANIP)
	fmt.Fprintf(w, "Gateway:    %s\n", snap.GatewayReachable)
	fmt.Fprintf(w, "Internet:   %s\n", snap.InternetReachable)

	up := 0
	for _, c := range st.Connections {
		if c.Connected {
			up++
		}
	}
	fmt.Fprintf(w, "VPNs:       %d up, %d total\n", up, len(st.Connections))

	openvpn := "disabled"
	switch {
	case st.OpenVPN.Disabled:
		openvpn = "not installed"
	case st.OpenVPN.Enabled:
		openvpn = "enabled"
	}
	fmt.Fprintf(w, "OpenVPN:    %s\n", openvpn)
	if st.HasActiveConnection {
		fmt.Fprintf(w, "IPv6:       %s\n", onOff(!st.IPv6Disabled, "enabled", "disabled"))
	}

	fmt.Fprintln(w)
	fmt.Fprintln(w, "Diagnostics")
	fmt.Fprintln(w, "───────────")
	for _, line := range snap.DiagnosticLines {
		fmt.Fprintf(w, "  %s\n", line)
	}
}

func onOff(v bool, on, off string) string {
	if v {
		return on
	}
	return off
}

func init() {
	rootCmd.AddCommand(statusCmd)
}
