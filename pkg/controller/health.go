package controller

import (
	"context"
	"net/http"
	"time"
	"xssdawn/pkg/logger"

	"go.uber.org/zap"
)

// Health returns a handler answering 200 when check succeeds within timeout
// and 503 otherwise. A nil check always succeeds.
func Health(check func(ctx context.Context) error, timeout time.Duration) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")

		if check != nil {
			ctx, cancel := context.WithTimeout(r.Context(), timeout)
			defer cancel()

			if err := check(ctx); err != nil {
				logger.Warn(ctx, "health check failed", zap.Error(err))
				w.WriteHeader(http.StatusServiceUnavailable)
				_, _ = w.Write([]byte("unavailable\n"))

				return
			}
		}

		_, _ = w.Write([]byte("ok\n"))
	})
}
