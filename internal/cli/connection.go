package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var listCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List VPN connections",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		session, err := appInstance.NewSession()
		if err != nil {
			return err
		}
		defer session.Close()

		if err := session.Registry().Load(cmd.Context()); err != nil {
			return err
		}
		conns := session.State().Connections

		out := cmd.OutOrStdout()
		if len(conns) == 0 {
			fmt.Fprintln(out, "No connections found.")
			return nil
		}

		// Print table
		w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "NAME\tTYPE\tDEVICE\tSTATE\tUUID")
		fmt.Fprintln(w, "----\t----\t------\t-----\t----")

		for _, c := range conns {
			device := c.Device
			if device == "" {
				device = "-"
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
				c.Name, c.Type, device, onOff(c.Connected, "● up", "○ down"), c.UUID)
		}

		w.Flush()

		fmt.Fprintf(out, "\nTotal: %d connections\n", len(conns))
		return nil
	},
}

var upCmd = &cobra.Command{
	Use:               "up <name-or-uuid>",
	Short:             "Bring a connection up",
	Args:              cobra.ExactArgs(1),
	ValidArgsFunction: completeConnectionNames,
	RunE: func(cmd *cobra.Command, args []string) error {
		return setConnection(cmd, args[0], true)
	},
}

var downCmd = &cobra.Command{
	Use:               "down <name-or-uuid>",
	Short:             "Bring a connection down",
	Args:              cobra.ExactArgs(1),
	ValidArgsFunction: completeConnectionNames,
	RunE: func(cmd *cobra.Command, args []string) error {
		return setConnection(cmd, args[0], false)
	},
}

func setConnection(cmd *cobra.Command, nameOrUUID string, desired bool) error {
	ctx := cmd.Context()

	session, err := appInstance.NewSession()
	if err != nil {
		return err
	}
	defer session.Close()

	if err := session.Registry().Load(ctx); err != nil {
		return err
	}
	conn, err := session.Registry().Find(nameOrUUID)
	if err != nil {
		return err
	}

	if conn.Connected == desired {
		fmt.Fprintf(cmd.OutOrStdout(), "%s is already %s\n", conn.Name, onOff(desired, "up", "down"))
		return nil
	}

	if err := session.OnToggleConnection(ctx, conn.UUID, desired); err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Requested %s for %s\n", onOff(desired, "up", "down"), conn.Name)
	return nil
}

func init() {
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(upCmd)
	rootCmd.AddCommand(downCmd)
}
