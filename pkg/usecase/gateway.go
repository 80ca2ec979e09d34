package usecase

import (
	"context"
	"sync"
	"time"

	"github.com/m-mizutani/upwatch/pkg/domain/interfaces"
	"github.com/m-mizutani/upwatch/pkg/domain/model"
)

// lockedGateway serializes every call to the wrapped gateway. Each call is one critical
// section; network I/O never happens while the lock is held.
type lockedGateway struct {
	mu      sync.Mutex
	gateway interfaces.PersistenceGateway
}

func newLockedGateway(gateway interfaces.PersistenceGateway) *lockedGateway {
	return &lockedGateway{gateway: gateway}
}

func (g *lockedGateway) ListTrackedTargets(ctx context.Context) ([]*model.Target, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.gateway.ListTrackedTargets(ctx)
}

func (g *lockedGateway) GetTarget(ctx context.Context, id model.TargetID) (*model.Target, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.gateway.GetTarget(ctx, id)
}

func (g *lockedGateway) LatestBaseline(ctx context.Context, id model.TargetID) (time.Time, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.gateway.LatestBaseline(ctx, id)
}

func (g *lockedGateway) BeginUpdateLedger(ctx context.Context) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.gateway.BeginUpdateLedger(ctx)
}

func (g *lockedGateway) RecordUpdate(ctx context.Context, id model.TargetID) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.gateway.RecordUpdate(ctx, id)
}

func (g *lockedGateway) SummarizeLedger(ctx context.Context) ([]model.LedgerEntry, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.gateway.SummarizeLedger(ctx)
}

func (g *lockedGateway) EndUpdateLedger(ctx context.Context) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.gateway.EndUpdateLedger(ctx)
}

func (g *lockedGateway) SetBaseline(ctx context.Context, id model.TargetID, ts time.Time) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.gateway.SetBaseline(ctx, id, ts)
}

func (g *lockedGateway) SetNote(ctx context.Context, id model.TargetID, note string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.gateway.SetNote(ctx, id, note)
}
