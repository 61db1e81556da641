package async_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jacespedes2019/ElSol-Challenge/pkg/utils/async"
	"github.com/m-mizutani/gt"
)

func TestDispatch(t *testing.T) {
	t.Run("runs after caller context is cancelled", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		var ran bool
		done := async.Dispatch(ctx, "test", 0, func(ctx context.Context) error {
			ran = ctx.Err() == nil
			return nil
		})
		<-done
		gt.Bool(t, ran).True()
	})

	t.Run("applies timeout", func(t *testing.T) {
		var hadDeadline bool
		done := async.Dispatch(context.Background(), "test", time.Second, func(ctx context.Context) error {
			_, hadDeadline = ctx.Deadline()
			return errors.New("ignored")
		})
		<-done
		gt.Bool(t, hadDeadline).True()
	})

	t.Run("recovers panic", func(t *testing.T) {
		done := async.Dispatch(context.Background(), "test", 0, func(ctx context.Context) error {
			panic("boom")
		})
		<-done
	})
}
