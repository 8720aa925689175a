package middleware

import (
	"net/http"
	"strings"

	"github.com/roomhive/allotment-backend/api/responses"
	pkgauth "github.com/roomhive/allotment-backend/pkg/auth"
	"github.com/roomhive/allotment-backend/pkg/config"
	pkgerrors "github.com/roomhive/allotment-backend/pkg/errors"
	"github.com/roomhive/allotment-backend/pkg/logger"
)

// Auth validates a bearer token and seeds the request context with the claims.
func Auth(cfg config.JWTConfig, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := strings.TrimSpace(r.Header.Get("Authorization"))
			if raw == "" {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials"))
				return
			}

			token := raw
			if strings.HasPrefix(strings.ToLower(token), "bearer ") {
				token = strings.TrimSpace(token[7:])
			}
			if token == "" {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials"))
				return
			}

			claims, err := pkgauth.ParseAccessToken(cfg, token)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid token"))
				return
			}
			if !claims.Role.IsValid() {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "unknown role"))
				return
			}

			ctx := WithActorID(r.Context(), claims.ActorID.String())
			ctx = WithRole(ctx, string(claims.Role))
			if claims.HotelID != nil {
				ctx = WithHotelID(ctx, claims.HotelID.String())
			}

			if logg != nil {
				fields := map[string]any{
					"actor_id":   claims.ActorID.String(),
					"actor_role": string(claims.Role),
				}
				if claims.HotelID != nil {
					fields["hotel_id"] = claims.HotelID.String()
				}
				ctx = logg.WithFields(ctx, fields)
			}

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireHotelAccess rejects manager tokens that target another hotel. Admin
// and service tokens pass through.
func RequireHotelAccess(logg *logger.Logger, hotelIDParam func(r *http.Request) string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			role := RoleFromContext(ctx)
			if role != string(pkgauth.RoleManager) {
				next.ServeHTTP(w, r)
				return
			}
			claimed := HotelIDFromContext(ctx)
			requested := strings.TrimSpace(hotelIDParam(r))
			if requested == "" || claimed == "" || requested != claimed {
				responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeForbidden, "hotel access denied"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
