package notifications

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/angelmondragon/forkfinderz-realtime/pkg/enums"
	"github.com/angelmondragon/forkfinderz-realtime/pkg/pagination"
	"github.com/angelmondragon/forkfinderz-realtime/pkg/types"
)

var baseTime = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func newNotification(id int64) Notification {
	return Notification{
		ID:        id,
		Title:     "title",
		Message:   "message",
		Type:      enums.NotificationTypeSystemAlert,
		CreatedAt: types.NewTimestamp(baseTime.Add(time.Duration(id) * time.Minute)),
	}
}

func newReviewNotification(id int64, target string) Notification {
	n := newNotification(id)
	n.Type = enums.NotificationTypeNewReview
	n.TargetURL = &target
	return n
}

func pageOf(number, totalPages int, ids ...int64) pagination.Page[Notification] {
	content := make([]Notification, 0, len(ids))
	for _, id := range ids {
		content = append(content, newNotification(id))
	}
	return pagination.Page[Notification]{
		Content:    content,
		TotalPages: totalPages,
		Number:     number,
		Size:       10,
		Last:       number+1 >= totalPages,
	}
}

func ids(items []Notification) []int64 {
	out := make([]int64, 0, len(items))
	for _, n := range items {
		out = append(out, n.ID)
	}
	return out
}

func findNotification(t *testing.T, store *Store, id int64) Notification {
	t.Helper()
	for _, n := range store.Notifications() {
		if n.ID == id {
			return n
		}
	}
	t.Fatalf("notification %d not in the merged list", id)
	return Notification{}
}

type recordingToaster struct {
	mu     sync.Mutex
	toasts []Toast
}

func (r *recordingToaster) Toast(_ context.Context, t Toast) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.toasts = append(r.toasts, t)
}

func (r *recordingToaster) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.toasts)
}

func newTestStore(t *testing.T, toaster Toaster, invalidate func()) *Store {
	t.Helper()
	seen, err := NewMemorySeenSet(100)
	if err != nil {
		t.Fatalf("seen set: %v", err)
	}
	store, err := NewStore(StoreOptions{Seen: seen, Toaster: toaster, Invalidate: invalidate})
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	return store
}
