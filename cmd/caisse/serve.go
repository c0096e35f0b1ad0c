package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"caisse/internal/cli"
	httpapi "caisse/internal/http"
	"caisse/internal/log"
	"caisse/internal/screens"
	"caisse/internal/services"
	"caisse/internal/terminal"
)

const shutdownTimeout = 30 * time.Second

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the till and its HTTP API",
		RunE:  runServe,
	}
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()
	a.caches.StartCleanup(ctx, cfg.HistoryCacheTTL)

	till, err := terminal.Open(ctx, terminal.Deps{
		Store:   a.store,
		Catalog: a.catalog,
		Keyword: cfg.LedgerKeyword,
		Logger:  logger,
	})
	if err != nil {
		return err
	}
	// Today is served from the till, never from a ledger being rewritten.
	a.follow(till)

	closing, release, err := a.closing(ctx)
	if err != nil {
		return err
	}
	defer release()

	opts := httpapi.Options{
		Addr:     ":" + cfg.Port,
		Terminal: till,
		History:  a.history,
		Methods:  cfg.PaymentMethods,
		Actions: screens.Actions{
			SendTicketZ: closing.SendTicketZ,
			Export:      closing.Export,
		},
		Logger: logger,
	}
	if p, ok := a.store.(httpapi.Pinger); ok {
		opts.Pinger = p
	}
	srv := httpapi.NewServer(opts)

	var closer *services.AutoCloser
	if cfg.AutoCloseAt != "" {
		closer, err = services.NewAutoCloser(closing, a.store, services.AutoCloseConfig{
			At:           cfg.AutoCloseAt,
			PollInterval: cfg.AutoCloseInterval,
		}, logger)
		if err != nil {
			return err
		}
		if err := closer.Start(ctx); err != nil {
			return err
		}
	}

	shutdownCtx, done := cli.GracefulShutdown(logger, shutdownTimeout, func(ctx context.Context) {
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("Server shutdown error", log.FieldError, err)
		}
		if closer != nil {
			if err := closer.Stop(ctx); err != nil {
				logger.Error("Auto closer shutdown error", log.FieldError, err)
			}
		}
		// Flush the writes of the last operation.
		if err := till.Close(ctx); err != nil {
			logger.Error("Closing till failed", log.FieldError, err)
		}
	})

	logger.Info("Starting caisse server",
		"port", cfg.Port,
		"backend", cfg.DataBackend,
		"ledger_keyword", cfg.LedgerKeyword,
		log.FieldOperation, log.OpStartup)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Server error", log.FieldError, err, "port", cfg.Port)
		return err
	}

	cli.WaitForShutdown(shutdownCtx, done)
	logger.Info("Server stopped gracefully")
	return nil
}
