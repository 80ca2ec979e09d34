package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/m-mizutani/ctxlog"
	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/upwatch/pkg/cli/config"
	controller "github.com/m-mizutani/upwatch/pkg/controller/http"
	"github.com/m-mizutani/upwatch/pkg/usecase"
	"github.com/urfave/cli/v3"
)

func cmdServe() *cli.Command {
	var (
		serverCfg config.Server
		storeCfg  config.Store
		scanCfg   config.Scan
		slackCfg  config.Slack
		reportCfg config.Report
	)

	var flags []cli.Flag
	flags = append(flags, serverCfg.Flags()...)
	flags = append(flags, storeCfg.Flags()...)
	flags = append(flags, scanCfg.Flags()...)
	flags = append(flags, slackCfg.Flags()...)
	flags = append(flags, reportCfg.Flags()...)

	return &cli.Command{
		Name:    "serve",
		Aliases: []string{"s"},
		Usage:   "Start HTTP server that runs scans on request",
		Flags:   flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			if err := scanCfg.Validate(); err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
			defer stop()

			ctxlog.From(ctx).Info("Starting upwatch server",
				"server", serverCfg,
				"store", storeCfg,
				"scan", scanCfg,
			)

			gateway, closeGateway, err := storeCfg.Build(ctx)
			if err != nil {
				return goerr.Wrap(err, "failed to open store")
			}
			defer closeGateway()

			opts := append(scanCfg.Options(), usecase.WithSink(slackCfg.Sink()))
			archive, err := reportCfg.Archive(ctx)
			if err != nil {
				return goerr.Wrap(err, "failed to open report archive")
			}
			if archive != nil {
				defer archive.Close()
				opts = append(opts, usecase.WithSink(archive))
			}

			server, err := controller.NewServer(ctx,
				usecase.NewScan(gateway, scanCfg.Registry(), opts...),
				controller.WithAddr(serverCfg.Addr),
				controller.WithScanToken(serverCfg.ScanToken),
			)
			if err != nil {
				return goerr.Wrap(err, "failed to create HTTP server")
			}

			return server.Run(ctx)
		},
	}
}
