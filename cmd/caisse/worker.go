package main

import (
	"errors"
	"time"

	"github.com/spf13/cobra"

	"caisse/internal/log"
	"caisse/internal/worker"
)

func workerCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "worker",
		Short: "Export each day whose Z-ticket arrives on the message broker to Google Sheets",
		Args:  cobra.NoArgs,
		RunE:  runWorker,
	}
}

func runWorker(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	if !cfg.AMQPEnabled() {
		return errors.New("AMQP_URL is not set")
	}
	if !cfg.SheetsEnabled() {
		return errors.New("GOOGLE_SPREADSHEET_ID is not set")
	}

	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	writer, err := googleWriter(ctx)
	if err != nil {
		return err
	}
	client, err := broker()
	if err != nil {
		return err
	}
	defer client.Close()

	w := worker.NewExportWorker(a.history, a.catalog, writer, logger)
	a.caches.Register(w.Seen())
	a.caches.StartCleanup(ctx, time.Hour)

	logger.Info("Starting caisse worker", "queue", cfg.AMQPQueue, log.FieldOperation, log.OpStartup)
	return w.Run(ctx, client)
}
