package controllers

import (
	"context"
	"net/http"

	"github.com/angelmondragon/forkfinderz-realtime/api/responses"
	"github.com/angelmondragon/forkfinderz-realtime/api/validators"
	"github.com/angelmondragon/forkfinderz-realtime/internal/session"
	"github.com/angelmondragon/forkfinderz-realtime/pkg/logger"
)

// SessionManager starts and ends the notification session.
type SessionManager interface {
	Login(ctx context.Context, token string) (session.Status, error)
	Logout(ctx context.Context) error
	Status() session.Status
}

type sessionStartRequest struct {
	Token string `json:"token" validate:"required,max=8192,token"`
}

// SessionStart logs in with a backend-issued token and connects the feed.
func SessionStart(manager SessionManager, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body sessionStartRequest
		if err := validators.DecodeJSONBody(w, r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		status, err := manager.Login(r.Context(), validators.NormalizeToken(body.Token))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, status)
	}
}

// SessionEnd disconnects the feed and forgets the token.
func SessionEnd(manager SessionManager, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := manager.Logout(r.Context()); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, manager.Status())
	}
}

func SessionStatus(manager SessionManager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		responses.WriteSuccess(w, manager.Status())
	}
}
