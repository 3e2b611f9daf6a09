package notifications

import (
	"context"
	"fmt"
	"sync"

	pkgerrors "github.com/angelmondragon/forkfinderz-realtime/pkg/errors"
	"github.com/angelmondragon/forkfinderz-realtime/pkg/logger"
	"github.com/angelmondragon/forkfinderz-realtime/pkg/metrics"
	"github.com/angelmondragon/forkfinderz-realtime/pkg/pagination"
	"go.uber.org/multierr"
)

// Toast is the user-visible announcement of a newly pushed notification.
type Toast struct {
	NotificationID int64
	Type           string
	Icon           string
	Title          string
	Message        string
}

// Toaster surfaces toasts to the user.
type Toaster interface {
	Toast(ctx context.Context, t Toast)
}

// ToasterFunc adapts a function to Toaster.
type ToasterFunc func(ctx context.Context, t Toast)

func (f ToasterFunc) Toast(ctx context.Context, t Toast) {
	f(ctx, t)
}

// Snapshot is an immutable view of the merged list.
type Snapshot struct {
	Items       []Notification `json:"items"`
	UnreadCount int            `json:"unreadCount"`
	HasNextPage bool           `json:"hasNextPage"`
	LoadedPages int            `json:"loadedPages"`
	Buffered    int            `json:"buffered"`
}

// StoreOptions wires the store's collaborators. Seen is required.
type StoreOptions struct {
	Seen       SeenSet
	Toaster    Toaster
	Invalidate func()
	Logger     *logger.Logger
	Metrics    *metrics.RealtimeMetrics
}

// Store merges pushed notifications with fetched history pages.
//
// The displayed list is the realtime buffer, minus ids present in any fetched
// page, followed by the flattened pages; an id never appears twice.
type Store struct {
	mu      sync.Mutex
	buffer  []Notification
	pages   [][]Notification
	hasNext bool
	// readIDs holds ids flipped to read here until a fetched page agrees.
	readIDs map[int64]struct{}

	seen       SeenSet
	toaster    Toaster
	invalidate func()
	logg       *logger.Logger
	metrics    *metrics.RealtimeMetrics

	subMu   sync.Mutex
	subs    map[uint64]chan Snapshot
	nextSub uint64
}

func NewStore(opts StoreOptions) (*Store, error) {
	if opts.Seen == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "seen set required")
	}
	logg := opts.Logger
	if logg == nil {
		logg = logger.Nop()
	}
	return &Store{
		seen:       opts.Seen,
		toaster:    opts.Toaster,
		invalidate: opts.Invalidate,
		logg:       logg,
		metrics:    opts.Metrics,
		readIDs:    make(map[int64]struct{}),
		subs:       make(map[uint64]chan Snapshot),
	}, nil
}

// Push records a notification delivered over the realtime channel. Ids already
// processed are ignored; otherwise the notification is buffered, toasted and
// a background history refresh is requested. It reports whether a toast fired.
//
// When the seen set fails the notification is still buffered, but not toasted.
func (s *Store) Push(ctx context.Context, n Notification) (bool, error) {
	s.mu.Lock()
	if s.holdsLocked(n.ID) {
		s.mu.Unlock()
		return false, nil
	}
	seen, err := s.seen.CheckAndMark(ctx, n.ID)
	if err == nil && seen {
		s.mu.Unlock()
		s.logg.Debug(s.logg.WithNotificationID(ctx, n.ID), "duplicate push ignored")
		return false, nil
	}
	s.buffer = append([]Notification{n}, s.buffer...)
	s.mu.Unlock()

	if err != nil {
		err = pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark notification seen")
	} else {
		s.toast(ctx, n)
	}
	if s.invalidate != nil {
		s.invalidate()
	}
	s.publish()
	return err == nil, err
}

// ApplyPage stores a fetched history page at index. Index 0 resets every
// later page; otherwise index may replace a loaded page (dropping the pages
// after it) or append right after the last one.
func (s *Store) ApplyPage(ctx context.Context, index int, page pagination.Page[Notification]) error {
	if index < 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "page index must be non-negative")
	}
	content := append([]Notification(nil), page.Content...)

	s.mu.Lock()
	if index > len(s.pages) {
		loaded := len(s.pages)
		s.mu.Unlock()
		return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("page %d applied before page %d", index, loaded))
	}
	markErr := s.absorbLocked(ctx, content)
	if index == 0 {
		s.pages = [][]Notification{content}
	} else {
		s.pages = append(s.pages[:index], content)
	}
	s.hasNext = page.HasNext()
	s.mu.Unlock()

	s.publish()
	return markErr
}

// ReplacePages swaps every fetched page for pages in one step. hasNext is the
// successor flag of the last page.
func (s *Store) ReplacePages(ctx context.Context, pages []pagination.Page[Notification]) error {
	fresh := make([][]Notification, 0, len(pages))
	for _, page := range pages {
		fresh = append(fresh, append([]Notification(nil), page.Content...))
	}

	s.mu.Lock()
	var markErr error
	for _, content := range fresh {
		markErr = multierr.Append(markErr, s.absorbLocked(ctx, content))
	}
	s.pages = fresh
	s.hasNext = len(pages) > 0 && pages[len(pages)-1].HasNext()
	s.mu.Unlock()

	s.publish()
	return markErr
}

// absorbLocked marks content seen, drops it from the realtime buffer and keeps
// local read flips that a stale page would undo.
func (s *Store) absorbLocked(ctx context.Context, content []Notification) error {
	var markErr error
	ids := make(map[int64]struct{}, len(content))
	for i := range content {
		n := &content[i]
		ids[n.ID] = struct{}{}
		if _, err := s.seen.CheckAndMark(ctx, n.ID); err != nil {
			markErr = multierr.Append(markErr, err)
		}
		if _, ok := s.readIDs[n.ID]; ok {
			if n.IsRead {
				delete(s.readIDs, n.ID)
			} else {
				n.IsRead = true
			}
		}
	}

	kept := s.buffer[:0]
	for _, n := range s.buffer {
		if _, ok := ids[n.ID]; !ok {
			kept = append(kept, n)
		}
	}
	s.buffer = kept

	if markErr != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, markErr, "mark fetched notifications seen")
	}
	return nil
}

// Notifications returns the merged, deduplicated list.
func (s *Store) Notifications() []Notification {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mergedLocked()
}

// UnreadCount counts unread entries of the merged list.
func (s *Store) UnreadCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return countUnread(s.mergedLocked())
}

// HasNextPage reports whether the last fetched page announced a successor.
func (s *Store) HasNextPage() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hasNext
}

// PageCount returns the number of fetched pages held; it is also the index
// of the next page to fetch.
func (s *Store) PageCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pages)
}

// MarkRead flips every copy of id to read and reports whether anything changed.
func (s *Store) MarkRead(id int64) bool {
	s.mu.Lock()
	changed := s.setReadLocked(map[int64]struct{}{id: {}}, true)
	if changed {
		s.readIDs[id] = struct{}{}
	}
	s.mu.Unlock()
	if changed {
		s.publish()
	}
	return changed
}

// MarkAllRead flips every unread entry and returns the ids it changed.
func (s *Store) MarkAllRead() []int64 {
	s.mu.Lock()
	var ids []int64
	targets := map[int64]struct{}{}
	for _, n := range s.mergedLocked() {
		if !n.IsRead {
			ids = append(ids, n.ID)
			targets[n.ID] = struct{}{}
			s.readIDs[n.ID] = struct{}{}
		}
	}
	s.setReadLocked(targets, true)
	s.mu.Unlock()
	if len(ids) > 0 {
		s.publish()
	}
	return ids
}

// RestoreUnread reverts an optimistic read flip for ids.
func (s *Store) RestoreUnread(ids ...int64) {
	if len(ids) == 0 {
		return
	}
	targets := make(map[int64]struct{}, len(ids))
	for _, id := range ids {
		targets[id] = struct{}{}
	}
	s.mu.Lock()
	for id := range targets {
		delete(s.readIDs, id)
	}
	changed := s.setReadLocked(targets, false)
	s.mu.Unlock()
	if changed {
		s.publish()
	}
}

// Reset forgets the buffer and fetched pages. Seen ids are kept.
func (s *Store) Reset() {
	s.mu.Lock()
	s.buffer = nil
	s.pages = nil
	s.hasNext = false
	s.readIDs = make(map[int64]struct{})
	s.mu.Unlock()
	s.publish()
}

func (s *Store) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// Subscribe returns a channel carrying the latest snapshot after every change.
// Slow readers only see the most recent snapshot. The returned function
// unsubscribes and closes the channel.
func (s *Store) Subscribe() (<-chan Snapshot, func()) {
	ch := make(chan Snapshot, 1)
	s.subMu.Lock()
	s.nextSub++
	id := s.nextSub
	s.subs[id] = ch
	s.subMu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			s.subMu.Lock()
			delete(s.subs, id)
			close(ch)
			s.subMu.Unlock()
		})
	}
}

func (s *Store) publish() {
	snap := s.Snapshot()
	s.subMu.Lock()
	defer s.subMu.Unlock()
	for _, ch := range s.subs {
		select {
		case ch <- snap:
		default:
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- snap:
			default:
			}
		}
	}
}

func (s *Store) toast(ctx context.Context, n Notification) {
	s.metrics.IncToasts(string(n.Type))
	if s.toaster == nil {
		return
	}
	s.toaster.Toast(ctx, Toast{
		NotificationID: n.ID,
		Type:           string(n.Type),
		Icon:           n.Type.Icon(),
		Title:          n.Title,
		Message:        n.Message,
	})
}

func (s *Store) snapshotLocked() Snapshot {
	items := s.mergedLocked()
	return Snapshot{
		Items:       items,
		UnreadCount: countUnread(items),
		HasNextPage: s.hasNext,
		LoadedPages: len(s.pages),
		Buffered:    len(s.buffer),
	}
}

func (s *Store) mergedLocked() []Notification {
	inPages := make(map[int64]struct{})
	total := 0
	for _, page := range s.pages {
		total += len(page)
		for _, n := range page {
			inPages[n.ID] = struct{}{}
		}
	}

	out := make([]Notification, 0, len(s.buffer)+total)
	emitted := make(map[int64]struct{}, len(s.buffer)+total)
	for _, n := range s.buffer {
		if _, ok := inPages[n.ID]; ok {
			continue
		}
		if _, ok := emitted[n.ID]; ok {
			continue
		}
		emitted[n.ID] = struct{}{}
		out = append(out, n)
	}
	for _, page := range s.pages {
		for _, n := range page {
			if _, ok := emitted[n.ID]; ok {
				continue
			}
			emitted[n.ID] = struct{}{}
			out = append(out, n)
		}
	}
	return out
}

func (s *Store) holdsLocked(id int64) bool {
	for _, n := range s.buffer {
		if n.ID == id {
			return true
		}
	}
	for _, page := range s.pages {
		for _, n := range page {
			if n.ID == id {
				return true
			}
		}
	}
	return false
}

func (s *Store) setReadLocked(ids map[int64]struct{}, read bool) bool {
	changed := false
	for i := range s.buffer {
		if _, ok := ids[s.buffer[i].ID]; ok && s.buffer[i].IsRead != read {
			s.buffer[i].IsRead = read
			changed = true
		}
	}
	for p := range s.pages {
		for i := range s.pages[p] {
			if _, ok := ids[s.pages[p][i].ID]; ok && s.pages[p][i].IsRead != read {
				s.pages[p][i].IsRead = read
				changed = true
			}
		}
	}
	return changed
}

func countUnread(items []Notification) int {
	count := 0
	for _, n := range items {
		if !n.IsRead {
			count++
		}
	}
	return count
}
