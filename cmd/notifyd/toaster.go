package main

import (
	"context"
	"io"
	"sync"

	"github.com/fatih/color"

	"github.com/angelmondragon/forkfinderz-realtime/internal/notifications"
	"github.com/angelmondragon/forkfinderz-realtime/pkg/enums"
	"github.com/angelmondragon/forkfinderz-realtime/pkg/logger"
)

// terminalToaster prints toasts to the daemon's terminal.
type terminalToaster struct {
	mu   sync.Mutex
	out  io.Writer
	logg *logger.Logger
}

func newTerminalToaster(out io.Writer, logg *logger.Logger) *terminalToaster {
	return &terminalToaster{out: out, logg: logg}
}

func (t *terminalToaster) Toast(ctx context.Context, toast notifications.Toast) {
	t.mu.Lock()
	defer t.mu.Unlock()

	toastColor(enums.NotificationType(toast.Type)).Fprintf(t.out, "%s %s\n", toast.Icon, toast.Title)
	if toast.Message != "" {
		color.New(color.FgHiBlack).Fprintf(t.out, "   %s\n", toast.Message)
	}
	if t.logg != nil {
		t.logg.Debug(t.logg.WithNotificationID(ctx, toast.NotificationID), "toast shown")
	}
}

func toastColor(typ enums.NotificationType) *color.Color {
	switch typ {
	case enums.NotificationTypeRestaurantRejected, enums.NotificationTypeSystemAlert:
		return color.New(color.FgRed, color.Bold)
	case enums.NotificationTypeRestaurantApproved, enums.NotificationTypeWelcome:
		return color.New(color.FgGreen, color.Bold)
	case enums.NotificationTypeNewReview, enums.NotificationTypeNewComment:
		return color.New(color.FgYellow, color.Bold)
	}
	return color.New(color.FgCyan, color.Bold)
}
