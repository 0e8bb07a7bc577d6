package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/giftlane/giftlane-backend/api/responses"
	pkgauth "github.com/giftlane/giftlane-backend/pkg/auth"
	"github.com/giftlane/giftlane-backend/pkg/auth/session"
	"github.com/giftlane/giftlane-backend/pkg/config"
	"github.com/giftlane/giftlane-backend/pkg/enums"
	pkgerrors "github.com/giftlane/giftlane-backend/pkg/errors"
	"github.com/giftlane/giftlane-backend/pkg/logger"
)

const guestSessionHeader = "X-Guest-Session"

// Auth requires a valid bearer token and seeds the request context with
// its claims.
func Auth(cfg config.JWTConfig, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, err := claimsFromRequest(cfg, r)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
			next.ServeHTTP(w, r.WithContext(contextWithClaims(r.Context(), logg, claims)))
		})
	}
}

// ShopperIdentity accepts either an authenticated customer or an
// anonymous guest session. Guest sessions arrive in the X-Guest-Session
// header and must be live in Redis.
func ShopperIdentity(cfg config.JWTConfig, sessions session.Checker, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if bearerToken(r) != "" {
				claims, err := claimsFromRequest(cfg, r)
				if err != nil {
					responses.WriteError(r.Context(), logg, w, err)
					return
				}
				next.ServeHTTP(w, r.WithContext(contextWithClaims(r.Context(), logg, claims)))
				return
			}

			sessionID := strings.TrimSpace(r.Header.Get(guestSessionHeader))
			if sessionID == "" {
				responses.WriteError(r.Context(), logg, w,
					pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials"))
				return
			}
			if sessions != nil {
				if err := sessions.Validate(r.Context(), sessionID); err != nil {
					responses.WriteError(r.Context(), logg, w,
						pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid guest session"))
					return
				}
			}

			ctx := WithGuestSession(r.Context(), sessionID)
			if logg != nil {
				ctx = logg.WithSessionID(ctx, sessionID)
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequirePartner gates partner-facing routes on a partner-role token.
func RequirePartner(logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			role := RoleFromContext(r.Context())
			if role != string(enums.RolePartner) && role != string(enums.RoleAdmin) {
				responses.WriteError(r.Context(), logg, w,
					pkgerrors.New(pkgerrors.CodeForbidden, "partner access required"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func bearerToken(r *http.Request) string {
	raw := strings.TrimSpace(r.Header.Get("Authorization"))
	if raw == "" {
		return ""
	}
	if strings.HasPrefix(strings.ToLower(raw), "bearer ") {
		return strings.TrimSpace(raw[7:])
	}
	return raw
}

func claimsFromRequest(cfg config.JWTConfig, r *http.Request) (*pkgauth.AccessTokenClaims, error) {
	token := bearerToken(r)
	if token == "" {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials")
	}
	claims, err := pkgauth.ParseAccessToken(cfg, token)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid token")
	}
	return claims, nil
}

func contextWithClaims(ctx context.Context, logg *logger.Logger, claims *pkgauth.AccessTokenClaims) context.Context {
	ctx = context.WithValue(ctx, ctxUserID, claims.UserID.String())
	ctx = context.WithValue(ctx, ctxRole, string(claims.Role))
	if claims.PartnerID != nil {
		ctx = context.WithValue(ctx, ctxPartnerID, claims.PartnerID.String())
	}
	if logg != nil {
		ctx = logg.WithUserID(ctx, claims.UserID.String())
		if claims.PartnerID != nil {
			ctx = logg.WithPartnerID(ctx, claims.PartnerID.String())
		}
	}
	return ctx
}
