package usecase

import (
	"context"

	"github.com/m-mizutani/ctxlog"
	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/upwatch/pkg/domain/interfaces"
	"github.com/m-mizutani/upwatch/pkg/domain/model"
	"github.com/m-mizutani/upwatch/pkg/domain/types"
)

type refreshUseCase struct {
	gateway  *lockedGateway
	backends interfaces.BackendResolver
	cfg      *config
}

// NewRefresh creates a new instance of RefreshUseCase
func NewRefresh(gateway interfaces.PersistenceGateway, backends interfaces.BackendResolver, opts ...Option) interfaces.RefreshUseCase {
	return &refreshUseCase{
		gateway:  newLockedGateway(gateway),
		backends: backends,
		cfg:      newConfig(opts),
	}
}

// RefreshByID looks the target up in the gateway and refreshes it
func (uc *refreshUseCase) RefreshByID(ctx context.Context, id model.TargetID) error {
	target, err := uc.gateway.GetTarget(ctx, id)
	if err != nil {
		return goerr.Wrap(err, "failed to get target", goerr.V("target_id", id))
	}
	return uc.Refresh(ctx, target)
}

// Refresh overwrites the stored baseline and note of target with its latest commit. It does
// not compare with the old baseline. Nothing is written when the fetch fails. Concurrent
// refreshes share one gateway lock.
func (uc *refreshUseCase) Refresh(ctx context.Context, target *model.Target) error {
	logger := ctxlog.From(ctx).With(target.LogValues()...)

	backend, err := uc.backends.Backend(target.VCS())
	if err != nil {
		return goerr.Wrap(err, "failed to dispatch target", goerr.V("target_id", target.ID))
	}

	obs, err := fetchWithTimeout(ctx, backend, target, uc.cfg.fetchTimeout)
	if err != nil {
		return goerr.Wrap(err, "failed to fetch latest commit",
			goerr.V("target_id", target.ID),
			goerr.V("location", target.Location),
		)
	}

	if obs.Disposition != model.DispositionCompare || obs.Commit == nil {
		return goerr.Wrap(types.ErrNotRefreshable, "sources without version control cannot be refreshed",
			goerr.V("target_id", target.ID),
			goerr.V("vcs", target.VCSTag),
		)
	}

	if err := uc.gateway.SetBaseline(ctx, target.ID, obs.Commit.Timestamp); err != nil {
		return goerr.Wrap(err, "failed to update baseline", goerr.V("target_id", target.ID))
	}

	note := obs.Commit.Note()
	if err := uc.gateway.SetNote(ctx, target.ID, note); err != nil {
		return goerr.Wrap(err, "failed to update note", goerr.V("target_id", target.ID))
	}

	logger.Info("Refreshed target",
		"commit", obs.Commit.Identifier,
		"commit_time", obs.Commit.Timestamp,
		"note", note,
	)
	return nil
}
