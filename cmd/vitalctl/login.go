package main

import (
	"fmt"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/term"
)

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Authenticate and persist a local session",
	RunE: func(cmd *cobra.Command, args []string) error {
		email, _ := cmd.Flags().GetString("email")
		password, _ := cmd.Flags().GetString("password")

		if email == "" {
			return fmt.Errorf("--email is required")
		}
		if password == "" {
			fmt.Fprint(cmd.OutOrStdout(), "Password: ")
			raw, err := term.ReadPassword(int(syscall.Stdin))
			fmt.Fprintln(cmd.OutOrStdout())
			if err != nil {
				return fmt.Errorf("could not read password: %w", err)
			}
			password = string(raw)
		}

		p, err := newPortal(true)
		if err != nil {
			return err
		}
		defer p.Close()

		user, err := p.ctrl.Login(cmd.Context(), email, password)
		if err != nil {
			return err
		}

		fmt.Fprintf(cmd.OutOrStdout(), "Logged in as %s (%s)\n", user.Email, user.Role)
		return nil
	},
}

func init() {
	loginCmd.Flags().String("email", "", "account email")
	loginCmd.Flags().String("password", "", "account password (prompted when omitted)")
	rootCmd.AddCommand(loginCmd)
}
