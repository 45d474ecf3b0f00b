package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kwachira/pesaflow/payments"
)

var (
	pushAmount      int64
	pushPhone       string
	pushReference   string
	pushDescription string
	pushCallbackURL string
)

// pushCmd represents the push command
var pushCmd = &cobra.Command{
	Use:   "push",
	Short: "Initiate a push payment to a customer's handset",
	Long: `Initiate a push payment: the customer receives a prompt on their
handset to authorize the amount. The final outcome is delivered to the
callback URL once the customer responds.`,
	RunE: runPush,
}

func init() {
	rootCmd.AddCommand(pushCmd)

	pushCmd.Flags().Int64Var(&pushAmount, "amount", 0, "amount to charge")
	pushCmd.Flags().StringVar(&pushPhone, "phone", "", "customer phone number")
	pushCmd.Flags().StringVar(&pushReference, "reference", "", "account reference")
	pushCmd.Flags().StringVar(&pushDescription, "description", "", "transaction description")
	pushCmd.Flags().StringVar(&pushCallbackURL, "callback-url", "", "URL the outcome is delivered to")

	pushCmd.MarkFlagRequired("amount")
	pushCmd.MarkFlagRequired("phone")
	pushCmd.MarkFlagRequired("reference")
	pushCmd.MarkFlagRequired("callback-url")
}

func runPush(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	resp, err := service.PushPayment(ctx, payments.PushPaymentRequest{
		Amount:      pushAmount,
		PhoneNumber: pushPhone,
		Reference:   pushReference,
		Description: pushDescription,
		CallbackURL: pushCallbackURL,
	})
	if err != nil {
		return fmt.Errorf("push payment failed: %w", err)
	}

	fmt.Printf("✓ Push payment initiated\n")
	fmt.Printf("  Checkout request: %s\n", resp.CheckoutRequestID)
	fmt.Printf("  Merchant request: %s\n", resp.MerchantRequestID)
	if resp.CustomerMessage != "" {
		fmt.Printf("  %s\n", resp.CustomerMessage)
	}
	return nil
}
