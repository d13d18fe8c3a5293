package middleware

import (
	"encoding/json"
	"fmt"
	"net/http"
	"runtime/debug"

	"calltrack.pro/license/internal/logger"
	"github.com/getsentry/sentry-go"
)

// Recoverer turns a panic into the standard server_error body and reports it
// to Sentry when a client is configured.
func Recoverer(l *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rvr := recover()
				if rvr == nil {
					return
				}
				if rvr == http.ErrAbortHandler {
					panic(rvr)
				}

				l.Error("panic recovered", map[string]interface{}{
					"request_id": GetRequestID(r.Context()),
					"panic":      fmt.Sprint(rvr),
					"stack":      string(debug.Stack()),
				})

				hub := sentry.GetHubFromContext(r.Context())
				if hub == nil {
					hub = sentry.CurrentHub()
				}
				hub.RecoverWithContext(r.Context(), rvr)

				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusInternalServerError)
				_ = json.NewEncoder(w).Encode(map[string]interface{}{
					"ok":     false,
					"error":  "server_error",
					"detail": fmt.Sprint(rvr),
				})
			}()

			next.ServeHTTP(w, r)
		})
	}
}
