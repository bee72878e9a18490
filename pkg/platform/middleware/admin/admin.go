package admin

import (
	"log/slog"
	"net/http"

	dErrors "healthnet/pkg/domain-errors"
	"healthnet/pkg/platform/httputil"
	"healthnet/pkg/platform/middleware/auth"
	request "healthnet/pkg/platform/middleware/request"
	"healthnet/pkg/requestcontext"
)

// RoleAdmin is the role claim required on operator endpoints.
const RoleAdmin = "admin"

// RequireAdmin must run after auth.RequireAuth.
func RequireAdmin(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			if auth.GetRole(ctx) != RoleAdmin {
				logger.WarnContext(ctx, "admin role required",
					"request_id", request.GetRequestID(ctx),
					"actor_id", requestcontext.ActorID(ctx),
				)
				httputil.WriteError(w, dErrors.New(dErrors.CodeForbidden, "admin role required"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
