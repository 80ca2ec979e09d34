package types

import (
	"fmt"

	"github.com/m-mizutani/goerr/v2"
)

var (
	// ErrUnsupportedDescriptorKind means the backend cannot resolve this kind of revision
	// descriptor, e.g. a revision number under git.
	ErrUnsupportedDescriptorKind = goerr.New("unsupported revision descriptor kind")

	// ErrNetworkFailure means a clone or remote query failed.
	ErrNetworkFailure = goerr.New("network failure")

	// ErrResolutionFailure means the descriptor did not resolve to a real commit.
	ErrResolutionFailure = goerr.New("revision resolution failure")

	// ErrUnrecognizedBackend means the vcs tag of a target is not in the known set.
	ErrUnrecognizedBackend = goerr.New("unrecognized version control backend")

	// ErrLedgerPrepare aborts a scan before any worker starts.
	ErrLedgerPrepare = goerr.New("failed to prepare update ledger")

	ErrInvalidDescriptor = goerr.New("invalid revision descriptor")
	ErrTargetNotFound    = goerr.New("target not found")
	ErrNotRefreshable    = goerr.New("target has no commit metadata to refresh from")
)

// Classify marks cause with kind. Both errors.Is(err, kind) and errors.Is(err, cause) hold
// for the result.
func Classify(kind, cause error) error {
	if cause == nil {
		return kind
	}
	return fmt.Errorf("%w: %w", kind, cause)
}
