package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kwachira/pesaflow/payments"
)

var (
	registerValidationURL   string
	registerConfirmationURL string
	registerResponseType    string
)

// registerCmd represents the register-urls command
var registerCmd = &cobra.Command{
	Use:   "register-urls",
	Short: "Register validation and confirmation callback URLs",
	Long: `Register the URLs the gateway calls back on customer-initiated
payments: the validation URL is consulted before a payment is accepted,
the confirmation URL is notified once it completes.`,
	RunE: runRegister,
}

func init() {
	rootCmd.AddCommand(registerCmd)

	registerCmd.Flags().StringVar(&registerValidationURL, "validation-url", "", "URL consulted to validate incoming payments")
	registerCmd.Flags().StringVar(&registerConfirmationURL, "confirmation-url", "", "URL notified of completed payments")
	registerCmd.Flags().StringVar(&registerResponseType, "response-type", "Completed", "default action when the validation URL is unreachable (Completed/Cancelled)")

	registerCmd.MarkFlagRequired("validation-url")
	registerCmd.MarkFlagRequired("confirmation-url")
}

func runRegister(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	resp, err := service.RegisterURLs(ctx, payments.RegisterURLsRequest{
		ValidationURL:   registerValidationURL,
		ConfirmationURL: registerConfirmationURL,
		ResponseType:    registerResponseType,
	})
	if err != nil {
		return fmt.Errorf("URL registration failed: %w", err)
	}

	fmt.Printf("✓ Callback URLs registered: %s\n", resp.ResponseDescription)
	return nil
}
