package interfaces

import (
	"context"

	"github.com/m-mizutani/upwatch/pkg/domain/model"
)

// ProgressReporter receives the outcome of every target while a scan runs. It is called
// from multiple workers concurrently.
type ProgressReporter interface {
	Progress(target *model.Target, outcome model.Outcome)
}

// ScanSink receives the report of every finished scan, e.g. a chat notifier or a report archive
type ScanSink interface {
	PublishScan(ctx context.Context, report *model.ScanReport) error
}
