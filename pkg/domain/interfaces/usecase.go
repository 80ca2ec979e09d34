package interfaces

import (
	"context"

	"github.com/m-mizutani/upwatch/pkg/domain/model"
)

// ScanUseCase runs bulk update scans
type ScanUseCase interface {
	// RunScan scans every tracked target of the persistence gateway
	RunScan(ctx context.Context) (*model.ScanReport, error)

	// ScanTargets scans the given targets
	ScanTargets(ctx context.Context, targets []*model.Target) (*model.ScanReport, error)
}

// RefreshUseCase pulls fresh commit metadata into a single tracked target
type RefreshUseCase interface {
	Refresh(ctx context.Context, target *model.Target) error
	RefreshByID(ctx context.Context, id model.TargetID) error
}
