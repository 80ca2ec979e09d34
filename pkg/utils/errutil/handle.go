package errutil

import (
	"context"
	"errors"

	"github.com/getsentry/sentry-go"
	"github.com/m-mizutani/ctxlog"
	"github.com/m-mizutani/goerr/v2"
)

// Handle reports an error that has no caller left to return to. The error is logged and, when
// a Sentry client is configured, captured together with its goerr values.
func Handle(ctx context.Context, msg string, err error) {
	if err == nil {
		return
	}

	ctxlog.From(ctx).Error(msg, "error", err)
	Capture(ctx, msg, err)
}

// Capture sends err to Sentry without logging it. It is a no-op when no Sentry client is
// configured.
func Capture(ctx context.Context, msg string, err error) {
	if err == nil {
		return
	}

	hub := sentry.GetHubFromContext(ctx)
	if hub == nil {
		hub = sentry.CurrentHub()
	}
	if hub.Client() == nil {
		return
	}

	hub.WithScope(func(scope *sentry.Scope) {
		scope.SetTag("message", msg)
		if values := Values(err); len(values) > 0 {
			scope.SetContext("values", sentry.Context(values))
		}
		hub.CaptureException(err)
	})
}

// Values collects the goerr values attached anywhere in the chain of err
func Values(err error) map[string]any {
	var gerr *goerr.Error
	if !errors.As(err, &gerr) {
		return nil
	}
	return gerr.Values()
}
