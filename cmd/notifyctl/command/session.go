package command

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

var loginCmd = &cobra.Command{
	Use:   "login [token]",
	Short: "Start the session with a ForkFinderz token",
	Long: `Start the notification session. The token is read from the argument or,
when omitted, from FORKFINDERZ_TOKEN.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		token := os.Getenv("FORKFINDERZ_TOKEN")
		if len(args) == 1 {
			token = args[0]
		}
		token = strings.TrimSpace(token)
		if token == "" {
			return fmt.Errorf("token is required: pass it as an argument or set FORKFINDERZ_TOKEN")
		}
		status, err := newClient().Login(cmd.Context(), token)
		if err != nil {
			return fmt.Errorf("failed to log in: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), "✓ Session started")
		printSession(cmd.OutOrStdout(), status)
		return nil
	},
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "End the session and disconnect",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if _, err := newClient().Logout(cmd.Context()); err != nil {
			return fmt.Errorf("failed to log out: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), "✓ Session ended")
		return nil
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the session and realtime connection",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		client := newClient()
		status, err := client.Session(cmd.Context())
		if err != nil {
			return fmt.Errorf("failed to get session: %w", err)
		}
		conn, err := client.Connection(cmd.Context())
		if err != nil {
			return fmt.Errorf("failed to get connection: %w", err)
		}
		printSession(cmd.OutOrStdout(), status)
		printConnection(cmd.OutOrStdout(), conn)
		return nil
	},
}

var restaurantCmd = &cobra.Command{
	Use:   "restaurant",
	Short: "Show the watched restaurant and its latest reviews",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		snap, err := newClient().Restaurant(cmd.Context())
		if err != nil {
			return fmt.Errorf("failed to get restaurant: %w", err)
		}
		printRestaurant(cmd.OutOrStdout(), snap)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(loginCmd)
	rootCmd.AddCommand(logoutCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(restaurantCmd)
}
