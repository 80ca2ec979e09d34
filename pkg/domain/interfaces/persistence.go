package interfaces

import (
	"context"
	"time"

	"github.com/m-mizutani/upwatch/pkg/domain/model"
)

// PersistenceGateway is the storage collaborator of the scan engine. Implementations are not
// required to be safe for concurrent use: the scan serializes every call through one lock.
type PersistenceGateway interface {
	// ListTrackedTargets returns every target that should be scanned
	ListTrackedTargets(ctx context.Context) ([]*model.Target, error)

	// GetTarget returns one target or an error wrapping types.ErrTargetNotFound
	GetTarget(ctx context.Context, id model.TargetID) (*model.Target, error)

	// LatestBaseline returns the last known commit time of a target. A zero time means no
	// baseline is stored yet.
	LatestBaseline(ctx context.Context, id model.TargetID) (time.Time, error)

	// BeginUpdateLedger prepares the transient store of "has update" markers for one scan
	BeginUpdateLedger(ctx context.Context) error
	RecordUpdate(ctx context.Context, id model.TargetID) error
	// SummarizeLedger returns ledger entries grouped by target and ordered by target name
	SummarizeLedger(ctx context.Context) ([]model.LedgerEntry, error)
	EndUpdateLedger(ctx context.Context) error

	SetBaseline(ctx context.Context, id model.TargetID, ts time.Time) error
	SetNote(ctx context.Context, id model.TargetID, note string) error
}
