package usecase

import (
	"context"
	"errors"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/m-mizutani/ctxlog"
	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/upwatch/pkg/domain/interfaces"
	"github.com/m-mizutani/upwatch/pkg/domain/model"
	"github.com/m-mizutani/upwatch/pkg/domain/types"
	"github.com/m-mizutani/upwatch/pkg/utils/errutil"
	"golang.org/x/sync/errgroup"
)

type scanUseCase struct {
	gateway  interfaces.PersistenceGateway
	backends interfaces.BackendResolver
	cfg      *config
}

// NewScan creates a new instance of ScanUseCase
func NewScan(gateway interfaces.PersistenceGateway, backends interfaces.BackendResolver, opts ...Option) interfaces.ScanUseCase {
	return &scanUseCase{
		gateway:  gateway,
		backends: backends,
		cfg:      newConfig(opts),
	}
}

// RunScan scans every tracked target of the gateway
func (uc *scanUseCase) RunScan(ctx context.Context) (*model.ScanReport, error) {
	targets, err := uc.gateway.ListTrackedTargets(ctx)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to list tracked targets")
	}
	return uc.ScanTargets(ctx, targets)
}

// scanState is shared by the workers of one scan
type scanState struct {
	targets []*model.Target
	cursor  atomic.Int64
	gateway *lockedGateway

	updated atomic.Int64
	skipped atomic.Int64

	mu       sync.Mutex
	manual   []model.LedgerEntry
	failures []model.ScanFailure
}

// claim returns the next unclaimed target, or nil when the list is exhausted
func (s *scanState) claim() *model.Target {
	idx := s.cursor.Add(1) - 1
	if idx >= int64(len(s.targets)) {
		return nil
	}
	return s.targets[idx]
}

func (s *scanState) addManual(target *model.Target) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.manual = append(s.manual, model.LedgerEntry{
		Name:     target.Name,
		Location: target.Location,
		VCS:      target.VCSTag,
	})
}

func (s *scanState) addFailure(target *model.Target, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures = append(s.failures, model.ScanFailure{
		TargetID: target.ID,
		Name:     target.Name,
		Error:    err.Error(),
	})
}

// ScanTargets fans the targets out over the worker pool and returns the scan report
func (uc *scanUseCase) ScanTargets(ctx context.Context, targets []*model.Target) (*model.ScanReport, error) {
	scanID := model.NewScanID()
	logger := ctxlog.From(ctx).With("scan_id", scanID.String())
	ctx = ctxlog.With(ctx, logger)

	report := &model.ScanReport{
		ID:          scanID,
		StartedAt:   uc.cfg.now(),
		TargetCount: len(targets),
	}

	state := &scanState{
		targets: targets,
		gateway: newLockedGateway(uc.gateway),
	}

	if err := state.gateway.BeginUpdateLedger(ctx); err != nil {
		return nil, goerr.Wrap(types.Classify(types.ErrLedgerPrepare, err), "scan aborted",
			goerr.V("scan_id", scanID))
	}

	workers := min(uc.cfg.workers, max(len(targets), 1))
	logger.Info("Starting update scan",
		"targets", len(targets),
		"workers", workers,
	)

	var eg errgroup.Group
	for i := 0; i < workers; i++ {
		eg.Go(func() error {
			return uc.work(ctx, state)
		})
	}
	err := eg.Wait()

	// Teardown must run even when ctx is already cancelled.
	cleanupCtx := context.WithoutCancel(ctx)

	if err != nil {
		if endErr := state.gateway.EndUpdateLedger(cleanupCtx); endErr != nil {
			logger.Error("Failed to drop update ledger", "error", endErr)
		}
		return nil, goerr.Wrap(err, "scan cancelled",
			goerr.V("scan_id", scanID),
			goerr.V("claimed", min(state.cursor.Load(), int64(len(targets)))),
		)
	}

	entries, summarizeErr := state.gateway.SummarizeLedger(cleanupCtx)
	endErr := state.gateway.EndUpdateLedger(cleanupCtx)
	if summarizeErr != nil {
		return nil, goerr.Wrap(summarizeErr, "failed to summarize update ledger", goerr.V("scan_id", scanID))
	}
	if endErr != nil {
		return nil, goerr.Wrap(endErr, "failed to drop update ledger", goerr.V("scan_id", scanID))
	}

	sort.Slice(state.manual, func(i, j int) bool { return state.manual[i].Name < state.manual[j].Name })
	sort.Slice(state.failures, func(i, j int) bool { return state.failures[i].Name < state.failures[j].Name })

	report.FinishedAt = uc.cfg.now()
	report.UpdateCount = int(state.updated.Load())
	report.Updated = entries
	report.Manual = state.manual
	report.Failures = state.failures
	report.Skipped = int(state.skipped.Load())

	logger.Info("Update scan finished",
		"updated", report.UpdateCount,
		"manual", len(report.Manual),
		"failed", len(report.Failures),
		"skipped", report.Skipped,
		"duration", report.Duration().String(),
	)

	for _, sink := range uc.cfg.sinks {
		if err := sink.PublishScan(ctx, report); err != nil {
			errutil.Handle(ctx, "Failed to publish scan report", err)
		}
	}

	return report, nil
}

// work claims targets until the list is exhausted or ctx is cancelled. Target failures are
// recorded in state; only cancellation is returned.
func (uc *scanUseCase) work(ctx context.Context, state *scanState) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		target := state.claim()
		if target == nil {
			return nil
		}

		outcome := uc.processTarget(ctx, state, target)
		uc.cfg.progress.Progress(target, outcome)
	}
}

// processTarget runs one worker step. Errors never leave this function: they are logged,
// recorded as failures and the worker moves on.
func (uc *scanUseCase) processTarget(ctx context.Context, state *scanState, target *model.Target) model.Outcome {
	logger := ctxlog.From(ctx).With(target.LogValues()...)

	backend, err := uc.backends.Backend(target.VCS())
	if err != nil {
		logger.Warn("Skipping target with unexpected vcs", "error", err)
		state.skipped.Add(1)
		return model.OutcomeSkipped
	}

	obs, err := fetchWithTimeout(ctx, backend, target, uc.cfg.fetchTimeout)
	if err != nil {
		logger.Warn("Failed to fetch latest commit", "error", err)
		state.addFailure(target, err)
		return model.OutcomeFailed
	}

	switch obs.Disposition {
	case model.DispositionForceUpdate:
		return uc.markUpdated(ctx, state, target)

	case model.DispositionManual:
		logger.Debug("Target needs a manual check")
		state.addManual(target)
		return model.OutcomeManual

	case model.DispositionSkip:
		logger.Warn("Skipping target that is not watched")
		state.skipped.Add(1)
		return model.OutcomeSkipped

	case model.DispositionCompare:
		if obs.Commit == nil {
			err := goerr.Wrap(types.ErrResolutionFailure, "backend returned no commit")
			logger.Warn("Failed to fetch latest commit", "error", err)
			state.addFailure(target, err)
			return model.OutcomeFailed
		}

		baseline, err := state.gateway.LatestBaseline(ctx, target.ID)
		if err != nil {
			logger.Warn("Failed to read baseline", "error", err)
			state.addFailure(target, err)
			return model.OutcomeFailed
		}

		if !obs.Commit.Timestamp.After(baseline) {
			logger.Debug("Target is current",
				"commit_time", obs.Commit.Timestamp,
				"baseline", baseline,
			)
			return model.OutcomeCurrent
		}

		logger.Debug("Target has newer activity",
			"commit", obs.Commit.Identifier,
			"commit_time", obs.Commit.Timestamp,
			"baseline", baseline,
		)
		return uc.markUpdated(ctx, state, target)

	default:
		err := goerr.New("unknown disposition", goerr.V("disposition", obs.Disposition.String()))
		logger.Warn("Failed to interpret observation", "error", err)
		state.addFailure(target, err)
		return model.OutcomeFailed
	}
}

func (uc *scanUseCase) markUpdated(ctx context.Context, state *scanState, target *model.Target) model.Outcome {
	if err := state.gateway.RecordUpdate(ctx, target.ID); err != nil {
		ctxlog.From(ctx).Warn("Failed to record update", append(target.LogValues(), "error", err)...)
		state.addFailure(target, err)
		return model.OutcomeFailed
	}
	state.updated.Add(1)
	return model.OutcomeUpdated
}

// fetchWithTimeout calls the backend outside of any lock, bounded by timeout when positive
func fetchWithTimeout(ctx context.Context, backend interfaces.VCSBackend, target *model.Target, timeout time.Duration) (*model.Observation, error) {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	obs, err := backend.FetchLatest(ctx, target.Revision, target.Location)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, goerr.Wrap(types.Classify(types.ErrNetworkFailure, err), "fetch timed out",
				goerr.V("timeout", timeout.String()))
		}
		return nil, err
	}
	if obs == nil {
		return nil, goerr.Wrap(types.ErrResolutionFailure, "backend returned no observation")
	}
	return obs, nil
}
