package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/example/couture/internal/services"
	"github.com/example/couture/internal/utils"
)

var (
	staffEmail     string
	staffFirstName string
	staffLastName  string
	staffPassword  string
)

var staffCmd = &cobra.Command{
	Use:   "staff",
	Short: "Manage staff accounts",
}

var staffCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a verified staff account",
	Long: `Create a staff account that can administer custom orders.

The account is active and verified immediately; no email is sent.`,
	RunE: runStaffCreate,
}

func init() {
	staffCreateCmd.Flags().StringVar(&staffEmail, "email", "", "Email address (required)")
	staffCreateCmd.Flags().StringVar(&staffFirstName, "first-name", "", "First name (required)")
	staffCreateCmd.Flags().StringVar(&staffLastName, "last-name", "", "Last name (required)")
	staffCreateCmd.Flags().StringVar(&staffPassword, "password", "", "Password (required)")
	for _, name := range []string{"email", "first-name", "last-name", "password"} {
		_ = staffCreateCmd.MarkFlagRequired(name)
	}
	staffCmd.AddCommand(staffCreateCmd)
	rootCmd.AddCommand(staffCmd)
}

func runStaffCreate(cmd *cobra.Command, args []string) error {
	e, _, err := setup()
	if err != nil {
		return err
	}

	tokens := utils.NewJWTIssuer(e.cfg.JWTSecret, e.cfg.AccessTTL, e.cfg.RefreshTTL, e.cfg.ResetTokenTTL)
	accounts := services.NewAccountService(e.store, nil, tokens, e.log)
	user, err := accounts.CreateStaff(cmd.Context(), staffEmail, staffFirstName, staffLastName, staffPassword)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "created staff account %s (%s)\n", user.Email, user.ID)
	return nil
}
