package interfaces

import (
	"context"

	"github.com/m-mizutani/upwatch/pkg/domain/model"
)

// VCSBackend fetches the latest relevant commit metadata of a repository
type VCSBackend interface {
	FetchLatest(ctx context.Context, rev model.RevisionDescriptor, location string) (*model.Observation, error)
}

// BackendResolver dispatches a vcs kind to its backend. Unknown kinds fail with
// types.ErrUnrecognizedBackend.
type BackendResolver interface {
	Backend(kind model.VCSKind) (VCSBackend, error)
}
