package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/kwachira/pesaflow/filter"
)

var (
	transactionsFilter string
)

// transactionsCmd represents the transactions command
var transactionsCmd = &cobra.Command{
	Use:   "transactions",
	Short: "List transactions, optionally filtered by an expression",
	Long: `List all transactions known to the gateway, following pagination.

An optional filter expression narrows the listing, e.g.:

  pesaflow transactions --filter 'Amount > 1000 && Status == "completed"'
  pesaflow transactions --filter 'Type == "payout" && daysSince(Created) < 7'`,
	RunE: runTransactions,
}

// statusCmd represents the status command
var statusCmd = &cobra.Command{
	Use:   "status <transaction-id>...",
	Short: "Query the status of one or more transactions",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runStatus,
}

func init() {
	rootCmd.AddCommand(transactionsCmd)
	rootCmd.AddCommand(statusCmd)

	transactionsCmd.Flags().StringVarP(&transactionsFilter, "filter", "f", "", "filter expression")
}

func runTransactions(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	transactions, err := service.ListTransactions(ctx)
	if err != nil {
		return fmt.Errorf("failed to list transactions: %w", err)
	}

	if transactionsFilter != "" {
		f, err := filter.Compile(transactionsFilter)
		if err != nil {
			return err
		}
		transactions, err = f.Apply(transactions)
		if err != nil {
			return err
		}
	}

	if len(transactions) == 0 {
		fmt.Println("No transactions found.")
		return nil
	}

	fmt.Println(strings.Repeat("━", 90))
	fmt.Printf("%-24s %-10s %-12s %-15s %-12s %s\n", "ID", "TYPE", "AMOUNT", "PHONE", "STATUS", "CREATED")
	fmt.Println(strings.Repeat("━", 90))
	for _, tx := range transactions {
		fmt.Printf("%-24s %-10s %-12d %-15s %-12s %s\n",
			tx.ID, tx.Type, tx.Amount, tx.PhoneNumber, tx.Status,
			tx.Created.Format("2006-01-02 15:04"))
	}
	fmt.Println(strings.Repeat("━", 90))
	fmt.Printf("%d transaction(s)\n", len(transactions))

	return nil
}

func runStatus(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	results, err := service.BatchQueryStatus(ctx, args)
	if err != nil {
		return fmt.Errorf("failed to query transaction status: %w", err)
	}

	for _, id := range args {
		status, found := results[id]
		if !found {
			fmt.Printf("✗ %s: lookup failed\n", id)
			continue
		}
		fmt.Printf("✓ %s: %s (%s)\n", id, status.Status, status.ResponseDescription)
	}

	return nil
}
