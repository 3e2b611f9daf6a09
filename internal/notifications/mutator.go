package notifications

import (
	"context"

	pkgerrors "github.com/angelmondragon/forkfinderz-realtime/pkg/errors"
	"github.com/angelmondragon/forkfinderz-realtime/pkg/logger"
)

// ReadMarker issues read-state commands to the backend.
type ReadMarker interface {
	MarkRead(ctx context.Context, id int64) error
	MarkAllRead(ctx context.Context) error
}

// Mutator applies read-state changes optimistically to the store and reverts
// them when the backend rejects the command.
type Mutator struct {
	store  *Store
	marker ReadMarker
	logg   *logger.Logger
}

func NewMutator(store *Store, marker ReadMarker, logg *logger.Logger) (*Mutator, error) {
	if store == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "notification store required")
	}
	if marker == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "read marker required")
	}
	if logg == nil {
		logg = logger.Nop()
	}
	return &Mutator{store: store, marker: marker, logg: logg}, nil
}

// MarkAsRead marks one notification read. Unknown and already-read ids are a
// no-op and issue no backend call.
func (m *Mutator) MarkAsRead(ctx context.Context, id int64) error {
	if id <= 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "notification id must be positive")
	}
	if !m.store.MarkRead(id) {
		return nil
	}
	if err := m.marker.MarkRead(ctx, id); err != nil {
		m.store.RestoreUnread(id)
		m.logg.Warn(m.logg.WithNotificationID(ctx, id), "mark read rejected, reverted")
		return err
	}
	return nil
}

// MarkAllAsRead marks every unread notification read as one operation. The
// backend is always called since history beyond the loaded pages may hold
// unread entries. On failure every flipped entry is reverted.
func (m *Mutator) MarkAllAsRead(ctx context.Context) error {
	ids := m.store.MarkAllRead()
	if err := m.marker.MarkAllRead(ctx); err != nil {
		m.store.RestoreUnread(ids...)
		m.logg.Warn(m.logg.WithField(ctx, "reverted", len(ids)), "mark all read rejected, reverted")
		return err
	}
	return nil
}
