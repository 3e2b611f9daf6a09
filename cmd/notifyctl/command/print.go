package command

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"

	"github.com/angelmondragon/forkfinderz-realtime/internal/notifications"
	"github.com/angelmondragon/forkfinderz-realtime/internal/restaurants"
	"github.com/angelmondragon/forkfinderz-realtime/internal/session"
)

const timeLayout = "2006-01-02 15:04"

var (
	unreadStyle = color.New(color.FgYellow, color.Bold)
	readStyle   = color.New(color.FgHiBlack)
	okStyle     = color.New(color.FgGreen, color.Bold)
	badStyle    = color.New(color.FgRed, color.Bold)
)

func printBadge(out io.Writer, count int) {
	if count == 0 {
		readStyle.Fprintln(out, "🔔 No unread notifications")
		return
	}
	unreadStyle.Fprintf(out, "🔔 %d unread\n", count)
}

func printFeed(out io.Writer, snap *notifications.FeedSnapshot) {
	if len(snap.Items) == 0 {
		fmt.Fprintln(out, "No notifications yet.")
	}
	for _, n := range snap.Items {
		style := readStyle
		marker := " "
		if !n.IsRead {
			style = unreadStyle
			marker = "•"
		}
		style.Fprintf(out, "%s %s [%d] %s\n", marker, n.Type.Icon(), n.ID, n.Title)
		if n.Message != "" {
			fmt.Fprintf(out, "    %s\n", n.Message)
		}
		if !n.CreatedAt.IsZero() {
			readStyle.Fprintf(out, "    %s\n", n.CreatedAt.Local().Format(timeLayout))
		}
	}
	printBadge(out, snap.UnreadCount)
	if snap.HasNextPage {
		readStyle.Fprintln(out, "More history available: notifyctl more")
	}
	if !snap.Connected {
		badStyle.Fprintf(out, "⚠ Realtime %s\n", strings.ToLower(string(snap.ConnectionState)))
	}
}

func printSession(out io.Writer, status session.Status) {
	if !status.Active {
		badStyle.Fprintln(out, "Session: inactive")
		return
	}
	okStyle.Fprintln(out, "Session: active")
	if status.Subject != "" {
		fmt.Fprintf(out, "User: %s\n", status.Subject)
	}
	if len(status.Roles) > 0 {
		fmt.Fprintf(out, "Roles: %s\n", strings.Join(status.Roles, ", "))
	}
	if status.ExpiresAt != nil {
		fmt.Fprintf(out, "Expires: %s\n", status.ExpiresAt.Local().Format(timeLayout))
	}
	if status.Opaque {
		fmt.Fprintln(out, "Token: opaque")
	}
}

func printConnection(out io.Writer, conn ConnectionStatus) {
	if conn.Connected {
		okStyle.Fprintf(out, "Realtime: %s\n", strings.ToLower(string(conn.State)))
		return
	}
	badStyle.Fprintf(out, "Realtime: %s\n", strings.ToLower(string(conn.State)))
}

func printRestaurant(out io.Writer, snap *restaurants.Snapshot) {
	if snap.Restaurant == nil {
		fmt.Fprintln(out, "Restaurant not loaded yet.")
		return
	}
	r := snap.Restaurant
	okStyle.Fprintf(out, "🍽  %s\n", r.Name)
	fmt.Fprintf(out, "Rating: %.1f (%d reviews)\n", r.AverageRating, r.ReviewCount)
	for _, review := range snap.Reviews {
		unreadStyle.Fprintf(out, "  %s", strings.Repeat("★", clampStars(review.Rating)))
		fmt.Fprintf(out, " %s\n", review.Comment)
	}
}

func clampStars(rating int) int {
	switch {
	case rating < 0:
		return 0
	case rating > 5:
		return 5
	}
	return rating
}
