// Package requesttime captures one "now" per request so that every timestamp
// written while serving it agrees.
package requesttime

import (
	"net/http"
	"time"

	"healthnet/pkg/requestcontext"
)

// Middleware stores the request start time in the context. Services read it
// with requestcontext.Now.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := requestcontext.WithTime(r.Context(), time.Now())
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
