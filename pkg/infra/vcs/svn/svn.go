package svn

import (
	"bytes"
	"context"
	"encoding/xml"
	"errors"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/upwatch/pkg/domain/interfaces"
	"github.com/m-mizutani/upwatch/pkg/domain/model"
	"github.com/m-mizutani/upwatch/pkg/domain/types"
)

// Runner executes a command and returns its standard output
type Runner func(ctx context.Context, name string, args ...string) ([]byte, error)

// Backend resolves the latest revision of a subversion repository with `svn log`. Only the
// default branch (trunk / HEAD) and explicit revision numbers can be tracked.
type Backend struct {
	binary string
	run    Runner
}

var _ interfaces.VCSBackend = (*Backend)(nil)

type Option func(*Backend)

// WithBinary sets the path of the svn client
func WithBinary(path string) Option {
	return func(b *Backend) {
		if path != "" {
			b.binary = path
		}
	}
}

// WithRunner replaces command execution, mainly for tests
func WithRunner(run Runner) Option {
	return func(b *Backend) {
		if run != nil {
			b.run = run
		}
	}
}

func New(opts ...Option) *Backend {
	b := &Backend{
		binary: "svn",
		run:    execRunner,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

func execRunner(ctx context.Context, name string, args ...string) ([]byte, error) {
	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stderr = &stderr

	out, err := cmd.Output()
	if err != nil {
		return nil, goerr.Wrap(err, "command failed",
			goerr.V("command", name),
			goerr.V("stderr", strings.TrimSpace(stderr.String())),
		)
	}
	return out, nil
}

type logEntry struct {
	Revision int64  `xml:"revision,attr"`
	Author   string `xml:"author"`
	Date     string `xml:"date"`
	Message  string `xml:"msg"`
}

type logOutput struct {
	Entries []logEntry `xml:"logentry"`
}

func (b *Backend) FetchLatest(ctx context.Context, rev model.RevisionDescriptor, location string) (*model.Observation, error) {
	revRange := "HEAD:1"
	switch {
	case rev.IsDefaultBranch():
	case rev.Kind() == model.RevisionNumber:
		value, _ := rev.Value()
		revRange = value + ":1"
	default:
		return nil, goerr.Wrap(types.ErrUnsupportedDescriptorKind, "subversion tracks trunk or revision numbers only",
			goerr.V("revision", rev.String()),
			goerr.V("location", location),
		)
	}

	out, err := b.run(ctx, b.binary, "log", "--xml", "--non-interactive", "-l", "1", "-r", revRange, location)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			err = errors.Join(ctxErr, err)
		}
		return nil, goerr.Wrap(types.Classify(types.ErrNetworkFailure, err), "failed to read subversion log",
			goerr.V("revision", rev.String()),
			goerr.V("location", location),
		)
	}

	commit, err := parseLog(out)
	if err != nil {
		return nil, goerr.Wrap(types.Classify(types.ErrResolutionFailure, err), "failed to resolve revision",
			goerr.V("revision", rev.String()),
			goerr.V("location", location),
		)
	}

	return &model.Observation{
		Disposition: model.DispositionCompare,
		Commit:      commit,
	}, nil
}

func parseLog(raw []byte) (*model.CommitInfo, error) {
	var log logOutput
	if err := xml.Unmarshal(raw, &log); err != nil {
		return nil, goerr.Wrap(err, "invalid svn log output")
	}
	if len(log.Entries) == 0 {
		return nil, goerr.New("no log entry")
	}

	entry := log.Entries[0]
	ts, err := time.Parse(time.RFC3339Nano, entry.Date)
	if err != nil {
		return nil, goerr.Wrap(err, "invalid log date", goerr.V("date", entry.Date))
	}

	return &model.CommitInfo{
		Timestamp:  ts.UTC(),
		Summary:    model.FirstLine(strings.TrimLeft(entry.Message, "\r\n")),
		Identifier: "r" + strconv.FormatInt(entry.Revision, 10),
	}, nil
}
