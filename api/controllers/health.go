package controllers

import (
	"context"
	"net/http"

	"github.com/giftlane/giftlane-backend/api/responses"
)

// Pinger matches the db and redis clients.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Healthz reports liveness plus the state of the core dependencies.
func Healthz(db, cache Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		status := map[string]string{"status": "ok", "db": "ok", "redis": "ok"}
		code := http.StatusOK
		if db == nil || db.Ping(r.Context()) != nil {
			status["db"] = "unavailable"
			status["status"] = "degraded"
			code = http.StatusServiceUnavailable
		}
		if cache == nil || cache.Ping(r.Context()) != nil {
			status["redis"] = "unavailable"
			status["status"] = "degraded"
			code = http.StatusServiceUnavailable
		}
		responses.WriteSuccessStatus(w, code, status)
	}
}
