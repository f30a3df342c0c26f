package middleware

import (
	"fmt"
	"net/http"
	"runtime/debug"

	"github.com/sellerhub/backend/internal/pkg/errors"
	"github.com/sellerhub/backend/internal/pkg/logger"
	"github.com/sellerhub/backend/internal/pkg/utils"
)

// Recovery returns a middleware that turns handler panics into 500s
func Recovery(log *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					log.WithFields(map[string]interface{}{
						"error":      rec,
						"stack":      string(debug.Stack()),
						"method":     r.Method,
						"path":       r.URL.Path,
						"request_id": GetRequestID(r),
					}).Error("Panic recovered")

					utils.WriteError(w, errors.Internal(
						"internal server error",
						fmt.Errorf("panic: %v", rec),
					))
				}
			}()

			next.ServeHTTP(w, r)
		})
	}
}
