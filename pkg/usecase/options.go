package usecase

import (
	"time"

	"github.com/m-mizutani/upwatch/pkg/domain/interfaces"
	"github.com/m-mizutani/upwatch/pkg/domain/model"
)

const (
	DefaultWorkers      = 8
	DefaultFetchTimeout = 5 * time.Minute
)

type config struct {
	workers      int
	fetchTimeout time.Duration
	progress     interfaces.ProgressReporter
	sinks        []interfaces.ScanSink
	now          func() time.Time
}

func newConfig(opts []Option) *config {
	cfg := &config{
		workers:      DefaultWorkers,
		fetchTimeout: DefaultFetchTimeout,
		progress:     nopProgress{},
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}

// Option is a functional option of the scan and refresh use cases
type Option func(*config)

// WithWorkers sets the size of the scan worker pool. Values below 1 are ignored.
func WithWorkers(n int) Option {
	return func(c *config) {
		if n >= 1 {
			c.workers = n
		}
	}
}

// WithFetchTimeout bounds every backend fetch. Zero disables the timeout.
func WithFetchTimeout(d time.Duration) Option {
	return func(c *config) {
		c.fetchTimeout = d
	}
}

// WithProgress sets the per-target progress reporter
func WithProgress(p interfaces.ProgressReporter) Option {
	return func(c *config) {
		if p != nil {
			c.progress = p
		}
	}
}

// WithSink adds a receiver of finished scan reports
func WithSink(s interfaces.ScanSink) Option {
	return func(c *config) {
		if s != nil {
			c.sinks = append(c.sinks, s)
		}
	}
}

// WithClock replaces time.Now
func WithClock(now func() time.Time) Option {
	return func(c *config) {
		c.now = now
	}
}

type nopProgress struct{}

func (nopProgress) Progress(*model.Target, model.Outcome) {}
