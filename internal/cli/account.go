package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

func newAccountCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "accounts",
		Aliases: []string{"account"},
		Short:   "Manage linked marketplace accounts",
	}

	cmd.AddCommand(newAccountListCmd())
	cmd.AddCommand(newAccountConnectCmd())
	cmd.AddCommand(newAccountDisconnectCmd())
	cmd.AddCommand(newAccountDataCmd())

	return cmd
}

func newAccountListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List linked accounts",
		RunE: func(cmd *cobra.Command, args []string) error {
			accounts, err := apiClient.Accounts().List(context.Background())
			if err != nil {
				return fmt.Errorf("failed to list accounts: %w", err)
			}

			if getOutputFormat() != "table" {
				return printOutput(accounts)
			}

			table := NewTable("ACCOUNT", "NICKNAME", "ACTIVE", "TOKEN EXPIRES", "LINKED")
			for _, a := range accounts {
				table.AddRow(
					a.AccountID,
					a.Nickname,
					fmt.Sprintf("%t", a.Active),
					a.ExpiresAt.Local().Format(time.RFC3339),
					a.CreatedAt.Local().Format("2006-01-02"),
				)
			}
			table.Render()
			return nil
		},
	}
}

func newAccountConnectCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "connect",
		Short: "Link a new marketplace account",
		Long: `Starts the OAuth link flow. Open the printed URL in a browser,
authorize the account, then paste the code from the redirect back here.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()

			resp, err := apiClient.Accounts().Connect(ctx)
			if err != nil {
				return fmt.Errorf("failed to start link flow: %w", err)
			}

			fmt.Printf("Open this URL in your browser:\n\n  %s\n\n", resp.AuthorizationURL)
			code := promptInput("Authorization code: ")
			if code == "" {
				return fmt.Errorf("no authorization code provided")
			}

			account, err := apiClient.Accounts().Callback(ctx, code, resp.State)
			if err != nil {
				return fmt.Errorf("failed to link account: %w", err)
			}

			fmt.Printf("Linked account %s (%s)\n", account.AccountID, account.Nickname)
			return nil
		},
	}
}

func newAccountDisconnectCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "disconnect <account-id>",
		Short: "Unlink an account and remove its stored data",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := apiClient.Accounts().Disconnect(context.Background(), args[0]); err != nil {
				return fmt.Errorf("failed to disconnect account: %w", err)
			}
			fmt.Printf("Disconnected account %s\n", args[0])
			return nil
		},
	}
}

func newAccountDataCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "data <account-id>",
		Short: "Show the last synced snapshot for an account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			snap, err := apiClient.Accounts().Data(context.Background(), args[0])
			if err != nil {
				return fmt.Errorf("failed to fetch account data: %w", err)
			}
			return printOutput(snap)
		},
	}
}
