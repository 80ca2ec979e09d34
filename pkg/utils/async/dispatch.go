package async

import (
	"context"
	"runtime/debug"

	"github.com/getsentry/sentry-go"
	"github.com/m-mizutani/ctxlog"
	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/upwatch/pkg/utils/errutil"
)

// Dispatch runs handler in a new goroutine under a context detached from ctx: cancelling ctx
// (e.g. the end of an HTTP request) does not stop the task. The logger and the Sentry hub of
// ctx are carried over. A returned error or a panic is reported through errutil with task as
// label.
func Dispatch(ctx context.Context, task string, handler func(ctx context.Context) error) {
	taskCtx := detach(ctx, task)

	go func() {
		defer func() {
			if r := recover(); r != nil {
				ctxlog.From(taskCtx).Error("panic in async handler",
					"recover", r,
					"stack", string(debug.Stack()))
				errutil.Capture(taskCtx, "panic in async handler",
					goerr.New("panic recovered", goerr.V("recover", r), goerr.V("task", task)))
			}
		}()

		if err := handler(taskCtx); err != nil {
			errutil.Handle(taskCtx, "error in async handler", err)
		}
	}()
}

func detach(ctx context.Context, task string) context.Context {
	newCtx := context.Background()
	newCtx = ctxlog.With(newCtx, ctxlog.From(ctx).With("task", task))

	if hub := sentry.GetHubFromContext(ctx); hub != nil {
		newCtx = sentry.SetHubOnContext(newCtx, hub.Clone())
	}
	return newCtx
}
