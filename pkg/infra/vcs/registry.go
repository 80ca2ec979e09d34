package vcs

import (
	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/upwatch/pkg/domain/interfaces"
	"github.com/m-mizutani/upwatch/pkg/domain/model"
	"github.com/m-mizutani/upwatch/pkg/domain/types"
	"github.com/m-mizutani/upwatch/pkg/infra/vcs/git"
	"github.com/m-mizutani/upwatch/pkg/infra/vcs/svn"
)

// Registry dispatches a vcs kind to its backend
type Registry struct {
	backends map[model.VCSKind]interfaces.VCSBackend
}

var _ interfaces.BackendResolver = (*Registry)(nil)

type Option func(*Registry)

// WithBackend replaces the backend of kind. VCSUnrecognized can not be registered.
func WithBackend(kind model.VCSKind, backend interfaces.VCSBackend) Option {
	return func(r *Registry) {
		if kind == model.VCSUnrecognized || backend == nil {
			return
		}
		r.backends[kind] = backend
	}
}

// NewRegistry creates a registry holding the git, subversion and static backends
func NewRegistry(opts ...Option) *Registry {
	r := &Registry{
		backends: map[model.VCSKind]interfaces.VCSBackend{
			model.VCSGit:        git.New(),
			model.VCSSubversion: svn.New(),
			model.VCSNone:       NewUnversioned(),
			model.VCSManual:     NewManual(),
			model.VCSArchived:   NewArchived(),
		},
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *Registry) Backend(kind model.VCSKind) (interfaces.VCSBackend, error) {
	backend, ok := r.backends[kind]
	if !ok {
		return nil, goerr.Wrap(types.ErrUnrecognizedBackend, "no backend for vcs", goerr.V("vcs", kind))
	}
	return backend, nil
}
