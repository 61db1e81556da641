package async

import (
	"context"
	"time"

	"github.com/jacespedes2019/ElSol-Challenge/pkg/utils/logging"
	"github.com/m-mizutani/goerr/v2"
)

// Dispatch runs handler in a new goroutine, detached from the caller's
// cancellation but keeping its logger. A zero timeout means no deadline.
// The returned channel is closed when handler has finished.
func Dispatch(ctx context.Context, name string, timeout time.Duration, handler func(ctx context.Context) error) <-chan struct{} {
	logger := logging.From(ctx).With("task", name)
	bgCtx := logging.With(context.WithoutCancel(ctx), logger)

	done := make(chan struct{})
	go func() {
		defer close(done)
		defer func() {
			if r := recover(); r != nil {
				logger.Error("panic in async task", "panic", r)
			}
		}()

		runCtx := bgCtx
		if timeout > 0 {
			var cancel context.CancelFunc
			runCtx, cancel = context.WithTimeout(bgCtx, timeout)
			defer cancel()
		}

		start := time.Now()
		if err := handler(runCtx); err != nil {
			logger.Warn("async task failed", "error", goerr.Unwrap(err), "duration", time.Since(start))
			return
		}
		logger.Info("async task completed", "duration", time.Since(start))
	}()

	return done
}
