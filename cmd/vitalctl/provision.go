package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/keneth-urbizagastegui/vitalband"
)

var provisionCmd = &cobra.Command{
	Use:   "provision",
	Short: "Administrative provisioning operations",
	RunE: func(cmd *cobra.Command, args []string) error {
		return cmd.Help()
	},
}

var provisionPatientCmd = &cobra.Command{
	Use:   "patient",
	Short: "Create a new end user together with their patient profile",
	Long: `Creates a login identity and then the linked patient profile.

The two steps are separate server calls. If the profile step fails the
identity stays behind; the error names the orphaned user id so an operator
can pick up where the run stopped.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := newPortal(false)
		if err != nil {
			return err
		}
		defer p.Close()

		user, ok := p.ctrl.CurrentUser()
		if !ok {
			return fmt.Errorf("provisioning requires an authenticated session; run 'vitalctl login' first")
		}
		if !user.Role.In(vitalband.RoleAdmin) {
			return fmt.Errorf("provisioning requires the %s role", vitalband.RoleAdmin)
		}

		msg := vitalband.ProvisionPatientMessage{}
		msg.Account.Name, _ = cmd.Flags().GetString("name")
		msg.Account.Email, _ = cmd.Flags().GetString("email")
		msg.Account.Password, _ = cmd.Flags().GetString("password")
		msg.Profile.FirstName, _ = cmd.Flags().GetString("first-name")
		msg.Profile.LastName, _ = cmd.Flags().GetString("last-name")
		msg.Profile.Phone, _ = cmd.Flags().GetString("phone")
		msg.Profile.Birthdate, _ = cmd.Flags().GetString("birthdate")
		msg.Profile.Sex, _ = cmd.Flags().GetString("sex")
		msg.Profile.HeightCM, _ = cmd.Flags().GetString("height-cm")
		msg.Profile.WeightKG, _ = cmd.Flags().GetString("weight-kg")

		handler := vitalband.NewProvisionPatientHandler(p.client).
			WithLogger(logrusAdapter{log: log}).
			WithPhoneRegion(viper.GetString("provisioning.phone_region"))

		result, err := handler.Execute(cmd.Context(), msg)
		if err != nil {
			return err
		}

		fmt.Fprintf(cmd.OutOrStdout(), "Created user %d", result.UserID)
		if result.Profile != nil {
			fmt.Fprintf(cmd.OutOrStdout(), " with patient profile %d", result.Profile.ID)
		}
		fmt.Fprintf(cmd.OutOrStdout(), " (correlation %s)\n", result.CorrelationID)
		return nil
	},
}

func init() {
	provisionPatientCmd.Flags().String("name", "", "display name for the login account")
	provisionPatientCmd.Flags().String("email", "", "login email for the new account")
	provisionPatientCmd.Flags().String("password", "", "initial password for the new account")
	provisionPatientCmd.Flags().String("first-name", "", "patient first name")
	provisionPatientCmd.Flags().String("last-name", "", "patient last name")
	provisionPatientCmd.Flags().String("phone", "", "contact phone number")
	provisionPatientCmd.Flags().String("birthdate", "", "birthdate (YYYY-MM-DD)")
	provisionPatientCmd.Flags().String("sex", "unknown", "one of male, female, other, unknown")
	provisionPatientCmd.Flags().String("height-cm", "", "height in centimeters")
	provisionPatientCmd.Flags().String("weight-kg", "", "weight in kilograms")

	provisionCmd.AddCommand(provisionPatientCmd)
	rootCmd.AddCommand(provisionCmd)
}
