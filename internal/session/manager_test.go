package session

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/angelmondragon/forkfinderz-realtime/internal/notifications"
	"github.com/angelmondragon/forkfinderz-realtime/internal/restaurants"
	"github.com/angelmondragon/forkfinderz-realtime/pkg/auth"
	pkgerrors "github.com/angelmondragon/forkfinderz-realtime/pkg/errors"
	"github.com/angelmondragon/forkfinderz-realtime/pkg/security"
)

type fakeTokens struct {
	history []string
}

func (f *fakeTokens) SetToken(token string) { f.history = append(f.history, token) }

func (f *fakeTokens) current() string {
	if len(f.history) == 0 {
		return ""
	}
	return f.history[len(f.history)-1]
}

type fakeFeed struct {
	startFn func(ctx context.Context, token string) error
	starts  []string
	closes  int
}

func (f *fakeFeed) Start(ctx context.Context, token string) error {
	f.starts = append(f.starts, token)
	if f.startFn != nil {
		return f.startFn(ctx, token)
	}
	return nil
}

func (f *fakeFeed) Close() error {
	f.closes++
	return nil
}

type fakeWatcher struct {
	watches int
}

func (f *fakeWatcher) Watch(restaurants.ReviewSource) { f.watches++ }

type fakeSeenScope struct {
	scopes []string
}

func (f *fakeSeenScope) Rescope(session string) { f.scopes = append(f.scopes, session) }

type fakeReviews struct{}

func (fakeReviews) OnReview(notifications.ReviewListener) func() { return func() {} }

func signedToken(t *testing.T, subject string, exp time.Time) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, auth.SessionClaims{
		Roles: []string{"ROLE_OWNER"},
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	})
	signed, err := token.SignedString([]byte("secret"))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return signed
}

func TestLoginStartsFeedAndWatcher(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	tokens := &fakeTokens{}
	feed := &fakeFeed{}
	watcher := &fakeWatcher{}
	hooks := 0
	m := NewManager(Params{
		Tokens:  tokens,
		Feed:    feed,
		Watcher: watcher,
		Reviews: fakeReviews{},
		OnStart: func() { hooks++ },
		Now:     func() time.Time { return now },
	})

	token := signedToken(t, "owner@forkfinderz.test", now.Add(time.Hour))
	status, err := m.Login(context.Background(), token)
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if !status.Active || status.Subject != "owner@forkfinderz.test" {
		t.Fatalf("unexpected status %+v", status)
	}
	if status.StartedAt == nil || !status.StartedAt.Equal(now) {
		t.Fatalf("unexpected start time %v", status.StartedAt)
	}
	if tokens.current() != token || len(feed.starts) != 1 || watcher.watches != 1 {
		t.Fatalf("unexpected wiring tokens=%v starts=%v watches=%d", tokens.history, feed.starts, watcher.watches)
	}

	// A second login replaces the first session.
	if _, err := m.Login(context.Background(), "opaque-token"); err != nil {
		t.Fatalf("second login: %v", err)
	}
	if feed.closes != 1 || len(feed.starts) != 2 || watcher.watches != 2 {
		t.Fatalf("expected previous session closed, closes=%d starts=%d", feed.closes, len(feed.starts))
	}
	if hooks != 2 {
		t.Fatalf("expected start hook per login, got %d", hooks)
	}
	if !m.Status().Opaque {
		t.Fatal("expected opaque status for non-jwt token")
	}

	if err := m.Logout(context.Background()); err != nil {
		t.Fatalf("logout: %v", err)
	}
	if m.Status().Active || tokens.current() != "" || feed.closes != 2 {
		t.Fatalf("logout did not reset state: %+v closes=%d", m.Status(), feed.closes)
	}
	if err := m.Logout(context.Background()); err != nil || feed.closes != 2 {
		t.Fatalf("second logout should be a no-op, err=%v closes=%d", err, feed.closes)
	}
}

func TestLoginRejectsExpiredToken(t *testing.T) {
	now := time.Now()
	feed := &fakeFeed{}
	m := NewManager(Params{Feed: feed, Now: func() time.Time { return now }})

	_, err := m.Login(context.Background(), signedToken(t, "x", now.Add(-time.Minute)))
	if !pkgerrors.IsCode(err, pkgerrors.CodeUnauthorized) {
		t.Fatalf("expected unauthorized, got %v", err)
	}
	if len(feed.starts) != 0 {
		t.Fatal("feed must not start with an expired token")
	}
}

func TestLoginFeedFailureClearsToken(t *testing.T) {
	tokens := &fakeTokens{}
	feed := &fakeFeed{startFn: func(context.Context, string) error {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "stomp connect rejected")
	}}
	watcher := &fakeWatcher{}
	m := NewManager(Params{Tokens: tokens, Feed: feed, Watcher: watcher, Reviews: fakeReviews{}})

	_, err := m.Login(context.Background(), "opaque")
	if !pkgerrors.IsCode(err, pkgerrors.CodeUnauthorized) {
		t.Fatalf("expected start error, got %v", err)
	}
	if tokens.current() != "" || m.Status().Active || watcher.watches != 0 {
		t.Fatalf("failed login left state behind: tokens=%v status=%+v", tokens.history, m.Status())
	}
	if feed.closes != 1 {
		t.Fatalf("expected feed cleanup after failed start, got %d closes", feed.closes)
	}
}

func TestLoginRescopesSeenSetPerUser(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	seen := &fakeSeenScope{}
	m := NewManager(Params{Feed: &fakeFeed{}, Seen: seen, Now: func() time.Time { return now }})

	if _, err := m.Login(context.Background(), signedToken(t, "owner@forkfinderz.test", now.Add(time.Hour))); err != nil {
		t.Fatalf("first login: %v", err)
	}
	if _, err := m.Login(context.Background(), "opaque-token"); err != nil {
		t.Fatalf("second login: %v", err)
	}

	want := []string{"owner@forkfinderz.test", security.TokenFingerprint("opaque-token")}
	if len(seen.scopes) != len(want) || seen.scopes[0] != want[0] || seen.scopes[1] != want[1] {
		t.Fatalf("expected scopes %v, got %v", want, seen.scopes)
	}
	if seen.scopes[0] == seen.scopes[1] {
		t.Fatal("two users must not share a seen scope")
	}
}
