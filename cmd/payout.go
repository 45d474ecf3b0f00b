package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kwachira/pesaflow/payments"
)

var (
	payoutAmount    int64
	payoutPhone     string
	payoutReference string
	payoutRemarks   string
	payoutResultURL string
)

// payoutCmd represents the payout command
var payoutCmd = &cobra.Command{
	Use:   "payout",
	Short: "Disburse funds to a customer",
	RunE:  runPayout,
}

func init() {
	rootCmd.AddCommand(payoutCmd)

	payoutCmd.Flags().Int64Var(&payoutAmount, "amount", 0, "amount to disburse")
	payoutCmd.Flags().StringVar(&payoutPhone, "phone", "", "recipient phone number")
	payoutCmd.Flags().StringVar(&payoutReference, "reference", "", "originator reference")
	payoutCmd.Flags().StringVar(&payoutRemarks, "remarks", "", "remarks attached to the payout")
	payoutCmd.Flags().StringVar(&payoutResultURL, "result-url", "", "URL the result is delivered to")

	payoutCmd.MarkFlagRequired("amount")
	payoutCmd.MarkFlagRequired("phone")
	payoutCmd.MarkFlagRequired("reference")
	payoutCmd.MarkFlagRequired("result-url")
}

func runPayout(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	resp, err := service.Payout(ctx, payments.PayoutRequest{
		Amount:      payoutAmount,
		PhoneNumber: payoutPhone,
		Reference:   payoutReference,
		Remarks:     payoutRemarks,
		ResultURL:   payoutResultURL,
	})
	if err != nil {
		return fmt.Errorf("payout failed: %w", err)
	}

	fmt.Printf("✓ Payout initiated\n")
	fmt.Printf("  Conversation: %s\n", resp.ConversationID)
	fmt.Printf("  Originator conversation: %s\n", resp.OriginatorConversationID)
	return nil
}
