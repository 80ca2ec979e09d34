package usecase_test

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/m-mizutani/gt"
	"github.com/m-mizutani/upwatch/pkg/domain/interfaces"
	"github.com/m-mizutani/upwatch/pkg/domain/model"
	"github.com/m-mizutani/upwatch/pkg/infra/memory"
	"github.com/m-mizutani/upwatch/pkg/infra/vcs"
)

type mockBackend struct {
	fetchLatestFunc func(ctx context.Context, rev model.RevisionDescriptor, location string) (*model.Observation, error)

	mu    sync.Mutex
	calls map[string]int
}

func (m *mockBackend) FetchLatest(ctx context.Context, rev model.RevisionDescriptor, location string) (*model.Observation, error) {
	m.mu.Lock()
	if m.calls == nil {
		m.calls = make(map[string]int)
	}
	m.calls[location]++
	m.mu.Unlock()

	return m.fetchLatestFunc(ctx, rev, location)
}

func (m *mockBackend) callCount(location string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[location]
}

func (m *mockBackend) totalCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	total := 0
	for _, n := range m.calls {
		total += n
	}
	return total
}

// commitAt returns a backend that reports the same commit for every location
func commitAt(ts time.Time) *mockBackend {
	return &mockBackend{
		fetchLatestFunc: func(ctx context.Context, rev model.RevisionDescriptor, location string) (*model.Observation, error) {
			return &model.Observation{
				Disposition: model.DispositionCompare,
				Commit: &model.CommitInfo{
					Timestamp:  ts,
					Summary:    "bump version",
					Identifier: "abc1234",
				},
			}, nil
		},
	}
}

// newResolver routes git and subversion to backend, keeping the static backends of the registry
func newResolver(backend interfaces.VCSBackend) interfaces.BackendResolver {
	return vcs.NewRegistry(
		vcs.WithBackend(model.VCSGit, backend),
		vcs.WithBackend(model.VCSSubversion, backend),
	)
}

func newTarget(t *testing.T, id, name, vcsTag string) *model.Target {
	t.Helper()
	rev, err := model.NewRevisionDescriptor(id, model.RevisionBranch, "")
	gt.NoError(t, err)
	return &model.Target{
		ID:       model.TargetID(id),
		Name:     name,
		VCSTag:   vcsTag,
		Location: "https://example.com/" + name,
		Revision: rev,
	}
}

// checkingGateway wraps a memory gateway, records the highest number of concurrent calls and
// lets tests inject failures
type checkingGateway struct {
	*memory.Gateway

	inFlight    atomic.Int32
	maxInFlight atomic.Int32

	beginErr  error
	recordErr error
	begun     atomic.Int32
	ended     atomic.Int32
}

func newCheckingGateway() *checkingGateway {
	return &checkingGateway{Gateway: memory.New()}
}

func (g *checkingGateway) enter() func() {
	n := g.inFlight.Add(1)
	for {
		cur := g.maxInFlight.Load()
		if n <= cur || g.maxInFlight.CompareAndSwap(cur, n) {
			break
		}
	}
	time.Sleep(50 * time.Microsecond)
	return func() { g.inFlight.Add(-1) }
}

func (g *checkingGateway) ListTrackedTargets(ctx context.Context) ([]*model.Target, error) {
	defer g.enter()()
	return g.Gateway.ListTrackedTargets(ctx)
}

func (g *checkingGateway) GetTarget(ctx context.Context, id model.TargetID) (*model.Target, error) {
	defer g.enter()()
	return g.Gateway.GetTarget(ctx, id)
}

func (g *checkingGateway) LatestBaseline(ctx context.Context, id model.TargetID) (time.Time, error) {
	defer g.enter()()
	return g.Gateway.LatestBaseline(ctx, id)
}

func (g *checkingGateway) BeginUpdateLedger(ctx context.Context) error {
	defer g.enter()()
	if g.beginErr != nil {
		return g.beginErr
	}
	g.begun.Add(1)
	return g.Gateway.BeginUpdateLedger(ctx)
}

func (g *checkingGateway) RecordUpdate(ctx context.Context, id model.TargetID) error {
	defer g.enter()()
	if g.recordErr != nil {
		return g.recordErr
	}
	return g.Gateway.RecordUpdate(ctx, id)
}

func (g *checkingGateway) SummarizeLedger(ctx context.Context) ([]model.LedgerEntry, error) {
	defer g.enter()()
	return g.Gateway.SummarizeLedger(ctx)
}

func (g *checkingGateway) EndUpdateLedger(ctx context.Context) error {
	defer g.enter()()
	g.ended.Add(1)
	return g.Gateway.EndUpdateLedger(ctx)
}

func (g *checkingGateway) SetBaseline(ctx context.Context, id model.TargetID, ts time.Time) error {
	defer g.enter()()
	return g.Gateway.SetBaseline(ctx, id, ts)
}

func (g *checkingGateway) SetNote(ctx context.Context, id model.TargetID, note string) error {
	defer g.enter()()
	return g.Gateway.SetNote(ctx, id, note)
}

type recordingProgress struct {
	mu       sync.Mutex
	outcomes map[model.TargetID]model.Outcome
	count    int
}

func (p *recordingProgress) Progress(target *model.Target, outcome model.Outcome) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.outcomes == nil {
		p.outcomes = make(map[model.TargetID]model.Outcome)
	}
	p.outcomes[target.ID] = outcome
	p.count++
}

type mockSink struct {
	publishScanFunc func(ctx context.Context, report *model.ScanReport) error
	reports         []*model.ScanReport
}

func (m *mockSink) PublishScan(ctx context.Context, report *model.ScanReport) error {
	m.reports = append(m.reports, report)
	if m.publishScanFunc != nil {
		return m.publishScanFunc(ctx, report)
	}
	return nil
}
