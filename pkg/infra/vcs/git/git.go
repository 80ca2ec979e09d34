package git

import (
	"context"
	"errors"
	"os"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/plumbing/transport"
	"github.com/m-mizutani/ctxlog"
	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/upwatch/pkg/domain/interfaces"
	"github.com/m-mizutani/upwatch/pkg/domain/model"
	"github.com/m-mizutani/upwatch/pkg/domain/types"
)

const shortHashLength = 7

// Backend resolves the latest commit of a git repository from a temporary clone without a
// working tree. Every fetch uses its own clone directory, so one Backend serves concurrent
// workers.
type Backend struct {
	tempDir string
	depth   int
}

var _ interfaces.VCSBackend = (*Backend)(nil)

type Option func(*Backend)

// WithTempDir sets the parent directory of temporary clones. Empty means os.TempDir().
func WithTempDir(dir string) Option {
	return func(b *Backend) {
		b.tempDir = dir
	}
}

// WithDepth sets the history depth of branch and tag clones. Commit lookups always fetch the
// full history.
func WithDepth(depth int) Option {
	return func(b *Backend) {
		if depth >= 0 {
			b.depth = depth
		}
	}
}

func New(opts ...Option) *Backend {
	b := &Backend{depth: 1}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

func (b *Backend) FetchLatest(ctx context.Context, rev model.RevisionDescriptor, location string) (*model.Observation, error) {
	if rev.Kind() == model.RevisionNumber {
		return nil, goerr.Wrap(types.ErrUnsupportedDescriptorKind, "git has no revision numbers",
			goerr.V("revision", rev.String()),
			goerr.V("location", location),
		)
	}

	dir, err := os.MkdirTemp(b.tempDir, "upwatch-clone-*")
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create clone directory", goerr.V("temp_dir", b.tempDir))
	}
	defer func() {
		if err := os.RemoveAll(dir); err != nil {
			ctxlog.From(ctx).Warn("Failed to remove clone directory", "dir", dir, "error", err)
		}
	}()

	repo, err := git.PlainCloneContext(ctx, dir, false, b.cloneOptions(rev, location))
	if err != nil {
		return nil, classifyCloneError(err, rev, location)
	}

	commit, err := resolve(repo, rev)
	if err != nil {
		return nil, goerr.Wrap(types.Classify(types.ErrResolutionFailure, err), "failed to resolve revision",
			goerr.V("revision", rev.String()),
			goerr.V("location", location),
		)
	}

	return &model.Observation{
		Disposition: model.DispositionCompare,
		Commit: &model.CommitInfo{
			Timestamp:  commit.Committer.When.UTC(),
			Summary:    model.FirstLine(commit.Message),
			Identifier: commit.Hash.String()[:shortHashLength],
		},
	}, nil
}

func (b *Backend) cloneOptions(rev model.RevisionDescriptor, location string) *git.CloneOptions {
	opts := &git.CloneOptions{
		URL:        location,
		NoCheckout: true,
	}

	value, _ := rev.Value()
	switch rev.Kind() {
	case model.RevisionBranch:
		opts.Depth = b.depth
		opts.SingleBranch = true
		opts.Tags = git.NoTags
		if !rev.IsDefaultBranch() {
			opts.ReferenceName = plumbing.NewBranchReferenceName(value)
		}
	case model.RevisionTag:
		opts.Depth = b.depth
		opts.SingleBranch = true
		opts.Tags = git.NoTags
		opts.ReferenceName = plumbing.NewTagReferenceName(value)
	case model.RevisionCommit:
		opts.Tags = git.NoTags
	}
	return opts
}

func resolve(repo *git.Repository, rev model.RevisionDescriptor) (*object.Commit, error) {
	value, _ := rev.Value()

	switch rev.Kind() {
	case model.RevisionBranch:
		var ref *plumbing.Reference
		var err error
		if rev.IsDefaultBranch() {
			ref, err = repo.Head()
		} else {
			ref, err = repo.Reference(plumbing.NewRemoteReferenceName(git.DefaultRemoteName, value), true)
		}
		if err != nil {
			return nil, goerr.Wrap(err, "branch not found", goerr.V("branch", value))
		}
		return repo.CommitObject(ref.Hash())

	case model.RevisionTag:
		ref, err := repo.Reference(plumbing.NewTagReferenceName(value), true)
		if err != nil {
			return nil, goerr.Wrap(err, "tag not found", goerr.V("tag", value))
		}
		tag, err := repo.TagObject(ref.Hash())
		switch {
		case err == nil:
			return tag.Commit()
		case errors.Is(err, plumbing.ErrObjectNotFound):
			// lightweight tag
			return repo.CommitObject(ref.Hash())
		default:
			return nil, goerr.Wrap(err, "failed to read tag", goerr.V("tag", value))
		}

	case model.RevisionCommit:
		if !plumbing.IsHash(value) {
			return nil, goerr.New("not a full commit hash", goerr.V("commit", value))
		}
		return repo.CommitObject(plumbing.NewHash(value))

	default:
		return nil, goerr.New("unknown revision kind", goerr.V("kind", rev.Kind().String()))
	}
}

func classifyCloneError(err error, rev model.RevisionDescriptor, location string) error {
	var noMatch git.NoMatchingRefSpecError
	if errors.Is(err, plumbing.ErrReferenceNotFound) ||
		errors.Is(err, transport.ErrEmptyRemoteRepository) ||
		errors.As(err, &noMatch) {
		return goerr.Wrap(types.Classify(types.ErrResolutionFailure, err), "revision not found in remote",
			goerr.V("revision", rev.String()),
			goerr.V("location", location),
		)
	}
	return goerr.Wrap(types.Classify(types.ErrNetworkFailure, err), "failed to clone repository",
		goerr.V("revision", rev.String()),
		goerr.V("location", location),
	)
}
