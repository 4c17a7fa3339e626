package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var chatCmd = &cobra.Command{
	Use:   "chat <message>",
	Short: "Ask the portal assistant a question",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := newPortal(false)
		if err != nil {
			return err
		}
		defer p.Close()

		if _, ok := p.ctrl.CurrentUser(); !ok {
			fmt.Fprintln(cmd.OutOrStdout(), "Not logged in.")
			return nil
		}

		reply, err := p.client.Chat(cmd.Context(), strings.Join(args, " "))
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), reply.Reply)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(chatCmd)
}
