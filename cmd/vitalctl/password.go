package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/keneth-urbizagastegui/vitalband"
)

var passwordCmd = &cobra.Command{
	Use:   "password",
	Short: "Password recovery operations",
	RunE: func(cmd *cobra.Command, args []string) error {
		return cmd.Help()
	},
}

var passwordForgotCmd = &cobra.Command{
	Use:   "forgot",
	Short: "Request a password reset email",
	RunE: func(cmd *cobra.Command, args []string) error {
		email, _ := cmd.Flags().GetString("email")
		if email == "" {
			return fmt.Errorf("--email is required")
		}

		p, err := newPortal(true)
		if err != nil {
			return err
		}
		defer p.Close()

		msg, err := p.client.ForgotPassword(cmd.Context(), email)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), msg.Message)
		return nil
	},
}

var passwordResetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Finalize a password reset with the emailed token",
	RunE: func(cmd *cobra.Command, args []string) error {
		token, _ := cmd.Flags().GetString("token")
		newPassword, _ := cmd.Flags().GetString("new-password")
		if token == "" {
			return fmt.Errorf("--token is required")
		}
		if newPassword == "" {
			return fmt.Errorf("--new-password is required")
		}

		p, err := newPortal(true)
		if err != nil {
			return err
		}
		defer p.Close()

		msg, err := p.client.ResetPassword(cmd.Context(), vitalband.ResetPasswordRequest{
			Token:              token,
			NewPassword:        newPassword,
			ConfirmNewPassword: newPassword,
		})
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), msg.Message)
		return nil
	},
}

func init() {
	passwordForgotCmd.Flags().String("email", "", "account email")
	passwordResetCmd.Flags().String("token", "", "reset token from the email link")
	passwordResetCmd.Flags().String("new-password", "", "new password")

	passwordCmd.AddCommand(passwordForgotCmd)
	passwordCmd.AddCommand(passwordResetCmd)
	rootCmd.AddCommand(passwordCmd)
}
