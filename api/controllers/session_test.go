package controllers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/angelmondragon/forkfinderz-realtime/internal/session"
	pkgerrors "github.com/angelmondragon/forkfinderz-realtime/pkg/errors"
)

type testSessionManager struct {
	loginFn func(ctx context.Context, token string) (session.Status, error)
	logouts int
	status  session.Status
}

func (m *testSessionManager) Login(ctx context.Context, token string) (session.Status, error) {
	if m.loginFn != nil {
		return m.loginFn(ctx, token)
	}
	return session.Status{Active: true}, nil
}

func (m *testSessionManager) Logout(context.Context) error {
	m.logouts++
	m.status = session.Status{}
	return nil
}

func (m *testSessionManager) Status() session.Status { return m.status }

func TestSessionStart(t *testing.T) {
	var got string
	manager := &testSessionManager{loginFn: func(ctx context.Context, token string) (session.Status, error) {
		got = token
		return session.Status{Active: true, Subject: "diner"}, nil
	}}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/session", strings.NewReader(`{"token":"  Bearer abc  "}`))
	resp := httptest.NewRecorder()
	SessionStart(manager, testLogger())(resp, req)
	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d", resp.Code)
	}
	if got != "abc" {
		t.Fatalf("expected trimmed token, got %q", got)
	}
	if !strings.Contains(resp.Body.String(), `"subject":"diner"`) {
		t.Fatalf("unexpected body %s", resp.Body.String())
	}
}

func TestSessionStartValidation(t *testing.T) {
	resp := httptest.NewRecorder()
	SessionStart(&testSessionManager{}, testLogger())(resp, httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{}`)))
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}

	manager := &testSessionManager{loginFn: func(context.Context, string) (session.Status, error) {
		return session.Status{}, pkgerrors.New(pkgerrors.CodeUnauthorized, "session token expired")
	}}
	resp = httptest.NewRecorder()
	SessionStart(manager, testLogger())(resp, httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"token":"x"}`)))
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", resp.Code)
	}
}

func TestSessionEndAndStatus(t *testing.T) {
	manager := &testSessionManager{status: session.Status{Active: true}}
	resp := httptest.NewRecorder()
	SessionEnd(manager, testLogger())(resp, httptest.NewRequest(http.MethodDelete, "/", nil))
	if resp.Code != http.StatusOK || manager.logouts != 1 {
		t.Fatalf("unexpected logout result %d logouts=%d", resp.Code, manager.logouts)
	}

	resp = httptest.NewRecorder()
	SessionStatus(manager)(resp, httptest.NewRequest(http.MethodGet, "/", nil))
	if !strings.Contains(resp.Body.String(), `"active":false`) {
		t.Fatalf("unexpected status body %s", resp.Body.String())
	}
}
