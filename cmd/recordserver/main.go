package main

import (
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v2"

	"github.com/ruteri/record-store/cmd/flags"
	"github.com/ruteri/record-store/common"
	"github.com/ruteri/record-store/httpserver"
	"github.com/ruteri/record-store/metrics"
)

func main() {
	app := &cli.App{
		Name:  "recordserver",
		Usage: "Serve a record store over HTTP",
		Flags: append(append(append([]cli.Flag{flags.LogServiceFlagFn("recordserver")}, flags.LogFlags...), flags.StorageFlags...), flags.ServerFlags...),
		Action: func(cCtx *cli.Context) error {
			logger := flags.SetupLogger(cCtx)

			metricsSrv, err := metrics.New(common.PackageName, cCtx.String(flags.MetricsAddrFlag.Name))
			if err != nil {
				logger.Error("Failed to create metrics server", "err", err)
				return err
			}

			manager, release, err := flags.NewManager(cCtx, logger, metricsSrv.Recorder())
			if err != nil {
				logger.Error("Failed to configure record manager", "err", err)
				return err
			}
			defer release()

			logger.Info("Record manager configured", "mode", manager.Mode().String())

			handler := httpserver.NewHandler(manager, metricsSrv.Recorder(), logger)
			server, err := httpserver.New(flags.ConfigureServer(cCtx, logger, metricsSrv), handler)
			if err != nil {
				logger.Error("Failed to create server", "err", err)
				return err
			}

			server.RunInBackground()

			// Wait for termination signal
			exit := make(chan os.Signal, 1)
			signal.Notify(exit, os.Interrupt, syscall.SIGTERM)

			logger.Info("Server is running, press Ctrl+C to stop")
			<-exit
			logger.Info("Shutdown signal received")

			server.Shutdown()
			logger.Info("Server shutdown complete")

			return nil
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}
