package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/m-mizutani/ctxlog"
	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/upwatch/pkg/cli/config"
	"github.com/m-mizutani/upwatch/pkg/domain/model"
	"github.com/m-mizutani/upwatch/pkg/usecase"
	"github.com/urfave/cli/v3"
)

func cmdRefresh() *cli.Command {
	var (
		storeCfg config.Store
		scanCfg  config.Scan
	)

	return &cli.Command{
		Name:      "refresh",
		Usage:     "Store the latest commit time and summary of targets as their baseline",
		ArgsUsage: "<target-id>...",
		Flags:     append(storeCfg.Flags(), scanCfg.Flags()...),
		Action: func(ctx context.Context, c *cli.Command) error {
			if c.Args().Len() == 0 {
				return goerr.New("at least one target id is required")
			}
			if err := scanCfg.Validate(); err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
			defer stop()

			gateway, closeGateway, err := storeCfg.Build(ctx)
			if err != nil {
				return goerr.Wrap(err, "failed to open store")
			}
			defer closeGateway()

			refreshUC := usecase.NewRefresh(gateway, scanCfg.Registry(), scanCfg.Options()...)
			logger := ctxlog.From(ctx)

			var errs []error
			for _, id := range c.Args().Slice() {
				if err := refreshUC.RefreshByID(ctx, model.TargetID(id)); err != nil {
					logger.Error("Failed to refresh target", "target_id", id, "error", err)
					errs = append(errs, err)
					continue
				}
				fmt.Fprintf(os.Stdout, "refreshed %s\n", id)
			}

			if len(errs) > 0 {
				return goerr.Wrap(errors.Join(errs...), "refresh failed",
					goerr.V("failed", len(errs)),
					goerr.V("requested", c.Args().Len()),
				)
			}
			return nil
		},
	}
}
