package controllers

import (
	"context"
	"net/http"

	"github.com/giftlane/giftlane-backend/api/responses"
	pkgerrors "github.com/giftlane/giftlane-backend/pkg/errors"
	"github.com/giftlane/giftlane-backend/pkg/logger"
)

type guestSessionIssuer interface {
	Issue(ctx context.Context) (string, error)
}

type guestSessionResponse struct {
	SessionID string `json:"session_id"`
}

// CreateGuestSession mints an anonymous session ID for guest carts.
func CreateGuestSession(sessions guestSessionIssuer, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if sessions == nil {
			responses.WriteError(r.Context(), logg, w,
				pkgerrors.New(pkgerrors.CodeInternal, "session manager unavailable"))
			return
		}
		sessionID, err := sessions.Issue(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w,
				pkgerrors.Wrap(pkgerrors.CodeDependency, err, "issue guest session"))
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, guestSessionResponse{SessionID: sessionID})
	}
}
