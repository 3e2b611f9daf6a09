package session

import (
	"context"
	"sync"
	"time"

	"github.com/angelmondragon/forkfinderz-realtime/internal/restaurants"
	"github.com/angelmondragon/forkfinderz-realtime/pkg/auth"
	"github.com/angelmondragon/forkfinderz-realtime/pkg/logger"
	"github.com/angelmondragon/forkfinderz-realtime/pkg/security"
)

// TokenHolder receives the bearer token used for REST calls.
type TokenHolder interface {
	SetToken(token string)
}

// Feed is the part of the notification feed bound to a login.
type Feed interface {
	Start(ctx context.Context, token string) error
	Close() error
}

// SeenScope rebinds the processed-id set to the user of each login.
type SeenScope interface {
	Rescope(session string)
}

// Watcher re-attaches to review events after each login; logout clears every
// transport listener.
type Watcher interface {
	Watch(source restaurants.ReviewSource)
}

// Status describes the active session.
type Status struct {
	Active    bool       `json:"active"`
	Subject   string     `json:"subject,omitempty"`
	Roles     []string   `json:"roles,omitempty"`
	ExpiresAt *time.Time `json:"expiresAt,omitempty"`
	Opaque    bool       `json:"opaque,omitempty"`
	StartedAt *time.Time `json:"startedAt,omitempty"`
}

// Params wires a Manager.
type Params struct {
	Tokens  TokenHolder
	Feed    Feed
	Watcher Watcher
	Reviews restaurants.ReviewSource
	Seen    SeenScope
	// OnStart runs before every feed start, after logout cleared the
	// transport listeners.
	OnStart func()
	Logger  *logger.Logger
	Now     func() time.Time
}

// Manager maps login and logout onto feed start and close.
type Manager struct {
	tokens  TokenHolder
	feed    Feed
	watcher Watcher
	reviews restaurants.ReviewSource
	seen    SeenScope
	onStart func()
	logg    *logger.Logger
	now     func() time.Time

	op     sync.Mutex
	mu     sync.RWMutex
	status Status
}

// NewManager builds a session manager. Watcher and Reviews are optional but
// must be set together.
func NewManager(p Params) *Manager {
	logg := p.Logger
	if logg == nil {
		logg = logger.Nop()
	}
	now := p.Now
	if now == nil {
		now = time.Now
	}
	return &Manager{
		tokens:  p.Tokens,
		feed:    p.Feed,
		watcher: p.Watcher,
		reviews: p.Reviews,
		seen:    p.Seen,
		onStart: p.OnStart,
		logg:    logg,
		now:     now,
	}
}

// Login inspects token, ends any active session and starts the feed with it.
func (m *Manager) Login(ctx context.Context, token string) (Status, error) {
	m.op.Lock()
	defer m.op.Unlock()

	info, err := auth.InspectToken(token, m.now())
	if err != nil {
		return m.Status(), err
	}
	if m.Status().Active {
		if err := m.logout(ctx); err != nil {
			m.logg.Error(ctx, "closing previous session failed", err)
		}
	}

	if info.Subject != "" {
		ctx = m.logg.WithUserID(ctx, info.Subject)
	}
	if m.tokens != nil {
		m.tokens.SetToken(token)
	}
	if m.seen != nil {
		m.seen.Rescope(seenScope(token, info))
	}
	if m.onStart != nil {
		m.onStart()
	}
	if err := m.feed.Start(ctx, token); err != nil {
		if m.tokens != nil {
			m.tokens.SetToken("")
		}
		_ = m.feed.Close()
		return m.Status(), err
	}
	if m.watcher != nil && m.reviews != nil {
		m.watcher.Watch(m.reviews)
	}

	started := m.now()
	status := Status{
		Active:    true,
		Subject:   info.Subject,
		Roles:     append([]string(nil), info.Roles...),
		ExpiresAt: info.ExpiresAt,
		Opaque:    info.Opaque,
		StartedAt: &started,
	}
	m.mu.Lock()
	m.status = status
	m.mu.Unlock()

	logCtx := ctx
	if d := info.ExpiresIn(started); d > 0 {
		logCtx = m.logg.WithField(ctx, "expires_in", d.String())
	}
	m.logg.Info(logCtx, "session started")
	return status, nil
}

// Logout closes the feed and forgets the token. It is a no-op without an
// active session.
func (m *Manager) Logout(ctx context.Context) error {
	m.op.Lock()
	defer m.op.Unlock()
	if !m.Status().Active {
		return nil
	}
	return m.logout(ctx)
}

func (m *Manager) logout(ctx context.Context) error {
	err := m.feed.Close()
	if m.tokens != nil {
		m.tokens.SetToken("")
	}
	m.mu.Lock()
	m.status = Status{}
	m.mu.Unlock()
	m.logg.Info(ctx, "session ended")
	return err
}

// Status returns the active session summary.
func (m *Manager) Status() Status {
	m.mu.RLock()
	defer m.mu.RUnlock()
	status := m.status
	status.Roles = append([]string(nil), m.status.Roles...)
	return status
}

// seenScope keys processed ids by token subject, or by a fingerprint of an
// opaque token so the raw value never reaches Redis.
func seenScope(token string, info *auth.TokenInfo) string {
	if info != nil && info.Subject != "" {
		return info.Subject
	}
	return security.TokenFingerprint(token)
}
