package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/m-mizutani/ctxlog"
	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/upwatch/pkg/cli/config"
	"github.com/m-mizutani/upwatch/pkg/domain/model"
	"github.com/m-mizutani/upwatch/pkg/infra/console"
	"github.com/m-mizutani/upwatch/pkg/usecase"
	"github.com/urfave/cli/v3"
)

func cmdScan() *cli.Command {
	var (
		storeCfg  config.Store
		scanCfg   config.Scan
		slackCfg  config.Slack
		reportCfg config.Report
	)

	var flags []cli.Flag
	flags = append(flags, storeCfg.Flags()...)
	flags = append(flags, scanCfg.Flags()...)
	flags = append(flags, slackCfg.Flags()...)
	flags = append(flags, reportCfg.Flags()...)

	return &cli.Command{
		Name:      "scan",
		Usage:     "Check every tracked target for upstream activity newer than its baseline",
		ArgsUsage: "[target-id...]",
		Flags:     flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			if err := scanCfg.Validate(); err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
			defer stop()

			logger := ctxlog.From(ctx)
			logger.Debug("Scan configuration",
				"store", storeCfg,
				"scan", scanCfg,
				"slack", slackCfg,
				"report", reportCfg,
			)

			gateway, closeGateway, err := storeCfg.Build(ctx)
			if err != nil {
				return goerr.Wrap(err, "failed to open store")
			}
			defer closeGateway()

			printer := console.New(os.Stdout)
			opts := append(scanCfg.Options(),
				usecase.WithProgress(printer),
				usecase.WithSink(printer),
				usecase.WithSink(slackCfg.Sink()),
			)

			archive, err := reportCfg.Archive(ctx)
			if err != nil {
				return goerr.Wrap(err, "failed to open report archive")
			}
			if archive != nil {
				defer archive.Close()
				opts = append(opts, usecase.WithSink(archive))
			}

			scanUC := usecase.NewScan(gateway, scanCfg.Registry(), opts...)

			if c.Args().Len() == 0 {
				_, err = scanUC.RunScan(ctx)
				return err
			}

			var targets []*model.Target
			for _, id := range c.Args().Slice() {
				target, err := gateway.GetTarget(ctx, model.TargetID(id))
				if err != nil {
					return goerr.Wrap(err, "failed to get target", goerr.V("target_id", id))
				}
				targets = append(targets, target)
			}
			_, err = scanUC.ScanTargets(ctx, targets)
			return err
		},
	}
}
