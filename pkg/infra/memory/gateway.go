package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/upwatch/pkg/domain/interfaces"
	"github.com/m-mizutani/upwatch/pkg/domain/model"
	"github.com/m-mizutani/upwatch/pkg/domain/types"
)

type record struct {
	target   *model.Target
	baseline time.Time
	note     string
}

// Gateway is an in-process PersistenceGateway. Baselines are kept as full timestamps.
type Gateway struct {
	mu      sync.Mutex
	records map[model.TargetID]*record

	ledgerActive bool
	ledger       map[model.TargetID]struct{}
}

var _ interfaces.PersistenceGateway = (*Gateway)(nil)

// New creates an empty gateway
func New() *Gateway {
	return &Gateway{
		records: make(map[model.TargetID]*record),
	}
}

// PutTarget adds or replaces a target. A zero baseline means none is known yet.
func (g *Gateway) PutTarget(target *model.Target, baseline time.Time) {
	g.mu.Lock()
	defer g.mu.Unlock()

	copied := *target
	rec, ok := g.records[target.ID]
	if !ok {
		rec = &record{}
		g.records[target.ID] = rec
	}
	rec.target = &copied
	rec.baseline = baseline
}

// Baseline returns the stored baseline of a target
func (g *Gateway) Baseline(id model.TargetID) (time.Time, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	rec, ok := g.records[id]
	if !ok {
		return time.Time{}, false
	}
	return rec.baseline, true
}

// Note returns the stored note of a target
func (g *Gateway) Note(id model.TargetID) (string, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	rec, ok := g.records[id]
	if !ok {
		return "", false
	}
	return rec.note, true
}

func (g *Gateway) ListTrackedTargets(ctx context.Context) ([]*model.Target, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	targets := make([]*model.Target, 0, len(g.records))
	for _, rec := range g.records {
		copied := *rec.target
		targets = append(targets, &copied)
	}
	sort.Slice(targets, func(i, j int) bool {
		if targets[i].Name != targets[j].Name {
			return targets[i].Name < targets[j].Name
		}
		return targets[i].ID < targets[j].ID
	})
	return targets, nil
}

func (g *Gateway) GetTarget(ctx context.Context, id model.TargetID) (*model.Target, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	rec, err := g.lookup(id)
	if err != nil {
		return nil, err
	}
	copied := *rec.target
	return &copied, nil
}

func (g *Gateway) LatestBaseline(ctx context.Context, id model.TargetID) (time.Time, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	rec, err := g.lookup(id)
	if err != nil {
		return time.Time{}, err
	}
	return rec.baseline, nil
}

func (g *Gateway) BeginUpdateLedger(ctx context.Context) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.ledgerActive {
		return goerr.New("update ledger already exists")
	}
	g.ledgerActive = true
	g.ledger = make(map[model.TargetID]struct{})
	return nil
}

func (g *Gateway) RecordUpdate(ctx context.Context, id model.TargetID) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if !g.ledgerActive {
		return goerr.New("update ledger is not prepared", goerr.V("target_id", id))
	}
	if _, err := g.lookup(id); err != nil {
		return err
	}
	g.ledger[id] = struct{}{}
	return nil
}

func (g *Gateway) SummarizeLedger(ctx context.Context) ([]model.LedgerEntry, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if !g.ledgerActive {
		return nil, goerr.New("update ledger is not prepared")
	}

	seen := make(map[model.LedgerEntry]struct{})
	entries := make([]model.LedgerEntry, 0, len(g.ledger))
	for id := range g.ledger {
		t := g.records[id].target
		entry := model.LedgerEntry{Name: t.Name, Location: t.Location, VCS: t.VCSTag}
		if _, ok := seen[entry]; ok {
			continue
		}
		seen[entry] = struct{}{}
		entries = append(entries, entry)
	}
	sortEntries(entries)
	return entries, nil
}

func (g *Gateway) EndUpdateLedger(ctx context.Context) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.ledgerActive = false
	g.ledger = nil
	return nil
}

func (g *Gateway) SetBaseline(ctx context.Context, id model.TargetID, ts time.Time) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	rec, err := g.lookup(id)
	if err != nil {
		return err
	}
	rec.baseline = ts.UTC()
	return nil
}

func (g *Gateway) SetNote(ctx context.Context, id model.TargetID, note string) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	rec, err := g.lookup(id)
	if err != nil {
		return err
	}
	rec.note = note
	return nil
}

// lookup must be called with g.mu held
func (g *Gateway) lookup(id model.TargetID) (*record, error) {
	rec, ok := g.records[id]
	if !ok {
		return nil, goerr.Wrap(types.ErrTargetNotFound, "no such target", goerr.V("target_id", id))
	}
	return rec, nil
}

func sortEntries(entries []model.LedgerEntry) {
	sort.Slice(entries, func(i, j int) bool {
		a, b := entries[i], entries[j]
		if a.Name != b.Name {
			return a.Name < b.Name
		}
		if a.Location != b.Location {
			return a.Location < b.Location
		}
		return a.VCS < b.VCS
	})
}
