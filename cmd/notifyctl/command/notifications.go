package command

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

var listLimit int

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List loaded notifications, newest first",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		snap, meta, err := newClient().List(cmd.Context(), listLimit)
		if err != nil {
			return fmt.Errorf("failed to list notifications: %w", err)
		}
		printFeed(cmd.OutOrStdout(), snap)
		if meta != nil && meta.Total > len(snap.Items) {
			fmt.Fprintf(cmd.OutOrStdout(), "Showing %d of %d loaded (--limit 0 for all)\n", len(snap.Items), meta.Total)
		}
		return nil
	},
}

var unreadCmd = &cobra.Command{
	Use:   "unread",
	Short: "Show the unread badge count",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		count, err := newClient().UnreadCount(cmd.Context())
		if err != nil {
			return fmt.Errorf("failed to get unread count: %w", err)
		}
		printBadge(cmd.OutOrStdout(), count)
		return nil
	},
}

var moreCmd = &cobra.Command{
	Use:   "more",
	Short: "Load the next history page",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		snap, err := newClient().NextPage(cmd.Context())
		if err != nil {
			return fmt.Errorf("failed to load next page: %w", err)
		}
		printFeed(cmd.OutOrStdout(), snap)
		return nil
	},
}

var refreshCmd = &cobra.Command{
	Use:   "refresh",
	Short: "Reload every history page from the server",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		snap, err := newClient().Refresh(cmd.Context())
		if err != nil {
			return fmt.Errorf("failed to refresh: %w", err)
		}
		printFeed(cmd.OutOrStdout(), snap)
		return nil
	},
}

var readCmd = &cobra.Command{
	Use:   "read [notification-id]",
	Short: "Mark one notification read",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil || id <= 0 {
			return fmt.Errorf("invalid notification ID %q", args[0])
		}
		result, err := newClient().MarkRead(cmd.Context(), id)
		if err != nil {
			return fmt.Errorf("failed to mark notification %d read: %w", id, err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "✓ Notification %d marked read\n", id)
		printBadge(cmd.OutOrStdout(), result.UnreadCount)
		return nil
	},
}

var readAllCmd = &cobra.Command{
	Use:   "read-all",
	Short: "Mark every notification read",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		result, err := newClient().MarkAllRead(cmd.Context())
		if err != nil {
			return fmt.Errorf("failed to mark all read: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), "✓ All notifications marked read")
		printBadge(cmd.OutOrStdout(), result.UnreadCount)
		return nil
	},
}

func init() {
	listCmd.Flags().IntVar(&listLimit, "limit", 20, "maximum notifications to print (0 for all)")

	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(unreadCmd)
	rootCmd.AddCommand(moreCmd)
	rootCmd.AddCommand(refreshCmd)
	rootCmd.AddCommand(readCmd)
	rootCmd.AddCommand(readAllCmd)
}
