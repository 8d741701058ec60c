package server

import (
	"log/slog"
	"net/http"
	"runtime/debug"

	"github.com/go-chi/chi/v5/middleware"

	httpapi "github.com/fedutinova/skeo/internal/transport/http"
)

// recoverer turns a handler panic into the generic JSON 500 answer.
func recoverer(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rec := recover()
				if rec == nil {
					return
				}
				if rec == http.ErrAbortHandler {
					panic(rec)
				}
				logger.Error("panic recovered",
					"request_id", middleware.GetReqID(r.Context()),
					"path", r.URL.Path,
					"panic", rec,
					"stack", string(debug.Stack()))
				httpapi.WriteError(w, http.StatusInternalServerError, httpapi.MsgInternal)
			}()
			next.ServeHTTP(w, r)
		})
	}
}
