package cli

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/term"
)

func newAuthCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "auth",
		Short: "Authentication commands",
	}

	cmd.AddCommand(newAuthLoginCmd())
	cmd.AddCommand(newAuthLogoutCmd())

	return cmd
}

func newAuthLoginCmd() *cobra.Command {
	var password string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Login with the dashboard password",
		RunE: func(cmd *cobra.Command, args []string) error {
			if password == "" {
				password = promptPassword("Password: ")
			}

			resp, err := apiClient.Login(context.Background(), password)
			if err != nil {
				return fmt.Errorf("login failed: %w", err)
			}

			viper.Set("auth.token", resp.Token)
			if err := writeConfig(); err != nil {
				return fmt.Errorf("failed to save credentials: %w", err)
			}

			fmt.Println("Logged in")
			return nil
		},
	}

	cmd.Flags().StringVar(&password, "password", "", "dashboard password")
	return cmd
}

func newAuthLogoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Discard the stored session",
		RunE: func(cmd *cobra.Command, args []string) error {
			_ = apiClient.Logout(context.Background())

			viper.Set("auth.token", "")
			if err := writeConfig(); err != nil {
				return fmt.Errorf("failed to update config: %w", err)
			}
			fmt.Println("Logged out")
			return nil
		},
	}
}

func promptInput(prompt string) string {
	fmt.Print(prompt)
	reader := bufio.NewReader(os.Stdin)
	input, _ := reader.ReadString('\n')
	return strings.TrimSpace(input)
}

func promptPassword(prompt string) string {
	fmt.Print(prompt)
	password, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Println()
	if err != nil {
		return ""
	}
	return string(password)
}
