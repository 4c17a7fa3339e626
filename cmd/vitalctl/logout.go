package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "End the local session",
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := newPortal(false)
		if err != nil {
			return err
		}
		defer p.Close()

		if err := p.ctrl.Logout(cmd.Context()); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Logged out.")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(logoutCmd)
}
