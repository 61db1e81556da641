package http

import (
	"net/http"

	"github.com/getsentry/sentry-go"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/jacespedes2019/ElSol-Challenge/pkg/utils/logging"
)

// RoleHeader carries the caller's role when a gateway in front of the
// service has authenticated it. It is logged, never enforced.
const RoleHeader = "X-Elsol-Role"

// requestContext attaches a request scoped logger and Sentry hub to the context
func requestContext(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		logger := logging.Default().With("request_id", middleware.GetReqID(ctx))
		if role := r.Header.Get(RoleHeader); role != "" {
			logger = logger.With("role", role)
		}
		ctx = logging.With(ctx, logger)

		hub := sentry.CurrentHub().Clone()
		hub.Scope().SetRequest(r)
		hub.Scope().SetTag("request_id", middleware.GetReqID(ctx))
		ctx = sentry.SetHubOnContext(ctx, hub)

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
