package command

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/angelmondragon/forkfinderz-realtime/pkg/env"
)

const defaultAddr = "http://127.0.0.1:7070"

var (
	apiAddr string
	timeout time.Duration
)

var rootCmd = &cobra.Command{
	Use:   "notifyctl",
	Short: "notifyctl - talk to a running notifyd",
	Long: `notifyctl reads and commands the notification feed of a running notifyd
through its local API. Use it to:
- start or end the session with a ForkFinderz token
- list notifications and the unread badge
- mark notifications read
- check the realtime connection and the watched restaurant`,
	SilenceUsage: true,
}

// Execute runs the root command and exits non-zero on failure.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&apiAddr, "addr", env.Get("NOTIFYCTL_ADDR", defaultAddr), "notifyd local API address")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 10*time.Second, "request timeout")
}

func newClient() *Client {
	return NewClient(apiAddr, timeout)
}
