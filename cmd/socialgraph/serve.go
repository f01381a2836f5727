package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/efebarandurmaz/socialgraph/internal/server"
)

func newServeCmd(a *app) *cobra.Command {
	var (
		addr       string
		saveOnExit bool
	)
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the network over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if addr == "" {
				addr = a.cfg.Server.Addr
			}
			srv := server.New(a.svc, server.Config{
				Addr:    addr,
				Version: version,
				Backend: a.cfg.Storage.Backend,
			}, server.WithLogger(a.logger),
				server.WithMetrics(a.metrics),
				server.WithEvents(a.events))

			shutdown := server.NewShutdownHandler(&server.ShutdownConfig{
				Timeout: a.cfg.Server.ShutdownTimeout,
				Signals: server.DefaultShutdownConfig().Signals,
				Logger:  a.logger,
			})
			shutdown.Register(server.HTTPServerShutdownHook(srv.Shutdown))
			if saveOnExit {
				shutdown.Register(server.NetworkSaveHook(a.svc.Save))
			}
			shutdown.Register(server.TracingShutdownHook(a.tracer.Shutdown))
			shutdown.Register(server.RepositoryShutdownHook(a.svc.Close))
			shutdown.Register(server.AuditLoggerShutdownHook(a.audit.Close))
			a.handedOff = true

			shutdown.Start()
			errs := srv.Start()
			a.logger.Info("serving network",
				zap.String("addr", addr),
				zap.String("backend", a.cfg.Storage.Backend))

			return waitForShutdown(shutdown, errs)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (default from config)")
	cmd.Flags().BoolVar(&saveOnExit, "save-on-exit", true, "Save the network when shutting down")
	return cmd
}

// waitForShutdown blocks until the handler has run its hooks, either after a
// signal or because the listener failed. A failed hook, such as the final
// save, is returned so the process exits non-zero.
func waitForShutdown(shutdown *server.ShutdownHandler, errs <-chan error) error {
	select {
	case <-shutdown.Done():
	case err, ok := <-errs:
		shutdown.Shutdown()
		shutdown.Wait()
		if ok && err != nil {
			return errors.Join(fmt.Errorf("http server: %w", err), shutdown.Err())
		}
	}
	if err := shutdown.Err(); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}
