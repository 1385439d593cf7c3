package middleware

import (
	"net/http"
	"runtime/debug"

	"distill/internal/gateway/handlers"
	"distill/pkg/logger"
)

// headerTracker notes whether the response has started.
type headerTracker struct {
	http.ResponseWriter
	started bool
}

func (h *headerTracker) WriteHeader(code int) {
	h.started = true
	h.ResponseWriter.WriteHeader(code)
}

func (h *headerTracker) Write(b []byte) (int, error) {
	h.started = true
	return h.ResponseWriter.Write(b)
}

// Recovery turns a panic in the next handler into an INTERNAL_ERROR
// response. A response that has already started is left as is; the client
// sees a truncated body.
func Recovery(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tw := &headerTracker{ResponseWriter: w}
		defer func() {
			if err := recover(); err != nil {
				logger.Error().
					Interface("error", err).
					Str("method", r.Method).
					Str("path", r.URL.Path).
					Bool("response_started", tw.started).
					Bytes("stack", debug.Stack()).
					Msg("panic recovered")

				if tw.started {
					return
				}
				handlers.SendError(w, http.StatusInternalServerError, handlers.ErrCodeInternalError,
					"internal error handling "+r.Method+" "+r.URL.Path)
			}
		}()

		next.ServeHTTP(tw, r)
	})
}
