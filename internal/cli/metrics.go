package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

func newMetricsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "metrics",
		Short: "Show aggregated metrics across all accounts",
		RunE: func(cmd *cobra.Command, args []string) error {
			agg, err := apiClient.Dashboard().Metrics(context.Background())
			if err != nil {
				return fmt.Errorf("failed to fetch metrics: %w", err)
			}

			if getOutputFormat() != "table" {
				return printOutput(agg)
			}

			fmt.Printf("Accounts: %d   Listings: %d   Orders: %d   Revenue: %.2f\n\n",
				agg.Accounts, agg.ListingCount, agg.OrderCount, agg.Revenue)

			table := NewTable("ACCOUNT", "NICKNAME", "LISTINGS", "ORDERS", "REVENUE", "LAST SYNC")
			for _, row := range agg.Breakdown {
				lastSync := "-"
				if row.LastSyncAt != nil {
					lastSync = row.LastSyncAt.Local().Format("2006-01-02 15:04:05")
				}
				table.AddRow(
					row.AccountID,
					row.Nickname,
					fmt.Sprintf("%d", row.Metrics.ListingCount),
					fmt.Sprintf("%d", row.Metrics.OrderCount),
					fmt.Sprintf("%.2f", row.Metrics.Revenue),
					lastSync,
				)
			}
			table.Render()
			return nil
		},
	}
}
