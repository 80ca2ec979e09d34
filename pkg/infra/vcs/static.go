package vcs

import (
	"context"

	"github.com/m-mizutani/upwatch/pkg/domain/interfaces"
	"github.com/m-mizutani/upwatch/pkg/domain/model"
)

// staticBackend answers without touching the network
type staticBackend struct {
	disposition model.Disposition
}

var _ interfaces.VCSBackend = (*staticBackend)(nil)

func (b *staticBackend) FetchLatest(ctx context.Context, rev model.RevisionDescriptor, location string) (*model.Observation, error) {
	return &model.Observation{Disposition: b.disposition}, nil
}

// NewUnversioned returns the backend of sources without version control. There is nothing to
// compare, so they are always reported as updated.
func NewUnversioned() interfaces.VCSBackend {
	return &staticBackend{disposition: model.DispositionForceUpdate}
}

// NewManual returns the backend of sources that have to be checked by a human
func NewManual() interfaces.VCSBackend {
	return &staticBackend{disposition: model.DispositionManual}
}

// NewArchived returns the backend of sources that are no longer watched
func NewArchived() interfaces.VCSBackend {
	return &staticBackend{disposition: model.DispositionSkip}
}
