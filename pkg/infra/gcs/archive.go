package gcs

import (
	"context"
	"encoding/json"
	"path"

	"cloud.google.com/go/storage"
	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/upwatch/pkg/domain/interfaces"
	"github.com/m-mizutani/upwatch/pkg/domain/model"
	"google.golang.org/api/option"
)

// Archive stores every finished scan report as a JSON object in a Cloud Storage bucket
type Archive struct {
	client *storage.Client
	bucket string
	prefix string
}

var _ interfaces.ScanSink = (*Archive)(nil)

type Option func(*Archive)

// WithPrefix sets the object name prefix, e.g. "upwatch/reports"
func WithPrefix(prefix string) Option {
	return func(a *Archive) {
		a.prefix = prefix
	}
}

func New(ctx context.Context, bucket string, opts []Option, clientOpts ...option.ClientOption) (*Archive, error) {
	client, err := storage.NewClient(ctx, clientOpts...)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create storage client")
	}

	a := &Archive{client: client, bucket: bucket}
	for _, opt := range opts {
		opt(a)
	}
	return a, nil
}

func (a *Archive) Close() error {
	if err := a.client.Close(); err != nil {
		return goerr.Wrap(err, "failed to close storage client")
	}
	return nil
}

// ObjectName returns the object name of a scan report
func ObjectName(prefix string, id model.ScanID) string {
	return path.Join(prefix, id.String()+".json")
}

func (a *Archive) PublishScan(ctx context.Context, report *model.ScanReport) error {
	name := ObjectName(a.prefix, report.ID)

	w := a.client.Bucket(a.bucket).Object(name).NewWriter(ctx)
	w.ContentType = "application/json"

	if err := json.NewEncoder(w).Encode(report); err != nil {
		_ = w.Close()
		return goerr.Wrap(err, "failed to write scan report",
			goerr.V("bucket", a.bucket),
			goerr.V("object", name),
		)
	}
	if err := w.Close(); err != nil {
		return goerr.Wrap(err, "failed to upload scan report",
			goerr.V("bucket", a.bucket),
			goerr.V("object", name),
		)
	}
	return nil
}
