package controllers

import (
	"context"
	"net/http"

	"github.com/angelmondragon/forkfinderz-realtime/api/responses"
	"github.com/angelmondragon/forkfinderz-realtime/api/validators"
	"github.com/angelmondragon/forkfinderz-realtime/internal/notifications"
	"github.com/angelmondragon/forkfinderz-realtime/pkg/logger"
	"github.com/angelmondragon/forkfinderz-realtime/pkg/types"
)

const maxListLimit = 500

// NotificationFeed is the consumer surface the API reads and commands.
type NotificationFeed interface {
	ConnectionReporter
	Snapshot() notifications.FeedSnapshot
	UnreadCount() int
	FetchNextPage(ctx context.Context) error
	Refresh(ctx context.Context) error
	MarkAsRead(ctx context.Context, id int64) error
	MarkAllAsRead(ctx context.Context) error
}

// ListNotifications returns the merged list. limit trims the items, not the
// unread count.
func ListNotifications(feed NotificationFeed, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit, err := validators.ParseQueryInt(r, "limit", 0, 0, maxListLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		snap := feed.Snapshot()
		if limit == 0 {
			responses.WriteSuccess(w, snap)
			return
		}
		total := len(snap.Items)
		if total > limit {
			snap.Items = snap.Items[:limit]
		}
		responses.WriteSuccessMeta(w, snap, types.Meta{Limit: limit, Total: total})
	}
}

func UnreadCount(feed NotificationFeed) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		responses.WriteSuccess(w, map[string]int{"unreadCount": feed.UnreadCount()})
	}
}

func FetchNextPage(feed NotificationFeed, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := feed.FetchNextPage(r.Context()); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, feed.Snapshot())
	}
}

func RefreshNotifications(feed NotificationFeed, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := feed.Refresh(r.Context()); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, feed.Snapshot())
	}
}

func MarkNotificationRead(feed NotificationFeed, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := validators.ParsePathID(r, "notificationId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		ctx := r.Context()
		if logg != nil {
			ctx = logg.WithNotificationID(ctx, id)
		}
		if err := feed.MarkAsRead(ctx, id); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"read": true, "unreadCount": feed.UnreadCount()})
	}
}

func MarkAllNotificationsRead(feed NotificationFeed, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := feed.MarkAllAsRead(r.Context()); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"read": true, "unreadCount": feed.UnreadCount()})
	}
}
