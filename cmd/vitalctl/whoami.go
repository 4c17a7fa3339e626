package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var whoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Show the active session, if any",
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := newPortal(false)
		if err != nil {
			return err
		}
		defer p.Close()

		user, ok := p.ctrl.CurrentUser()
		if !ok {
			fmt.Fprintln(cmd.OutOrStdout(), "Not logged in.")
			return nil
		}

		remote, _ := cmd.Flags().GetBool("remote")
		if remote {
			fresh, err := p.ctrl.RefreshUser(cmd.Context())
			if err != nil {
				return err
			}
			user = fresh
		}

		fmt.Fprintf(cmd.OutOrStdout(), "ID:    %d\n", user.ID)
		fmt.Fprintf(cmd.OutOrStdout(), "Email: %s\n", user.Email)
		fmt.Fprintf(cmd.OutOrStdout(), "Role:  %s\n", user.Role)
		if user.Name != "" {
			fmt.Fprintf(cmd.OutOrStdout(), "Name:  %s\n", user.Name)
		}
		return nil
	},
}

func init() {
	whoamiCmd.Flags().Bool("remote", false, "verify the session against the server")
	rootCmd.AddCommand(whoamiCmd)
}
