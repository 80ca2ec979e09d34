package config

import (
	"context"

	"github.com/m-mizutani/upwatch/pkg/infra/gcs"
	"github.com/urfave/cli/v3"
)

// Report holds scan report archive configuration
type Report struct {
	Bucket string
	Prefix string
}

// Flags returns CLI flags for report archive configuration
func (c *Report) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "report-bucket",
			Usage:       "Cloud Storage bucket to store JSON scan reports",
			Destination: &c.Bucket,
			Sources:     cli.EnvVars("UPWATCH_REPORT_BUCKET"),
		},
		&cli.StringFlag{
			Name:        "report-prefix",
			Usage:       "Object name prefix of scan reports",
			Value:       "reports",
			Destination: &c.Prefix,
			Sources:     cli.EnvVars("UPWATCH_REPORT_PREFIX"),
		},
	}
}

// Archive opens the report archive, or returns nil when no bucket is configured
func (c *Report) Archive(ctx context.Context) (*gcs.Archive, error) {
	if c.Bucket == "" {
		return nil, nil
	}
	return gcs.New(ctx, c.Bucket, []gcs.Option{gcs.WithPrefix(c.Prefix)})
}
