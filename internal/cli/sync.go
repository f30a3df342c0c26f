package cli

import (
	"context"
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/sellerhub/backend/pkg/client"
)

func newSyncCmd() *cobra.Command {
	var all bool

	cmd := &cobra.Command{
		Use:   "sync [account-id]",
		Short: "Run a sync for one account or for all accounts",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()

			if len(args) == 1 {
				state, err := apiClient.Accounts().Sync(ctx, args[0])
				if err != nil {
					return fmt.Errorf("sync failed: %w", err)
				}
				printSyncStates(map[string]client.SyncState{state.AccountID: *state})
				return nil
			}

			if !all {
				return fmt.Errorf("specify an account id or pass --all")
			}
			states, err := apiClient.Accounts().SyncAll(ctx)
			if err != nil {
				return fmt.Errorf("sync failed: %w", err)
			}
			printSyncStates(states)
			return nil
		},
	}

	cmd.Flags().BoolVar(&all, "all", false, "sync every linked account")
	return cmd
}

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status [account-id]",
		Short: "Show sync status",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()

			if len(args) == 1 {
				state, err := apiClient.Accounts().Status(ctx, args[0])
				if err != nil {
					return fmt.Errorf("failed to fetch status: %w", err)
				}
				printSyncStates(map[string]client.SyncState{state.AccountID: *state})
				return nil
			}

			states, err := apiClient.Accounts().Statuses(ctx)
			if err != nil {
				return fmt.Errorf("failed to fetch statuses: %w", err)
			}
			printSyncStates(states)
			return nil
		},
	}
}

func printSyncStates(states map[string]client.SyncState) {
	if getOutputFormat() != "table" {
		_ = printOutput(states)
		return
	}

	ids := make([]string, 0, len(states))
	for id := range states {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	table := NewTable("ACCOUNT", "STATUS", "PROGRESS", "LAST SYNC", "LAST ERROR")
	for _, id := range ids {
		state := states[id]
		lastSync := "-"
		if state.LastSyncAt != nil {
			lastSync = state.LastSyncAt.Local().Format("2006-01-02 15:04:05")
		}
		table.AddRow(
			state.AccountID,
			state.Status,
			fmt.Sprintf("%d%%", state.Progress),
			lastSync,
			state.LastError,
		)
	}
	table.Render()
}
