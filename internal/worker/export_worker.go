// Package worker consumes Z-ticket messages and exports the day they close.
package worker

import (
	"context"
	"fmt"
	"time"

	"caisse/internal/amqp"
	"caisse/internal/cache"
	"caisse/internal/catalog"
	"caisse/internal/core"
	"caisse/internal/ledger"
	"caisse/internal/log"
	"caisse/internal/services"
	"caisse/internal/sheets"
)

const (
	seenSize = 256
	seenTTL  = 24 * time.Hour
)

// Consumer delivers Z-ticket messages until ctx is done.
type Consumer interface {
	Run(ctx context.Context, handler func(context.Context, *amqp.ZTicketMessage) error) error
}

// ExportWorker writes the tables of each closed day through a workbook
// writer. A message delivered twice is exported once.
type ExportWorker struct {
	days    services.DayLoader
	catalog catalog.Provider
	writer  sheets.WorkbookWriter
	seen    *cache.LRUCache[string]
	logger  *log.Logger
}

func NewExportWorker(days services.DayLoader, provider catalog.Provider, writer sheets.WorkbookWriter, logger *log.Logger) *ExportWorker {
	if logger == nil {
		logger = log.Discard()
	}
	return &ExportWorker{
		days:    days,
		catalog: provider,
		writer:  writer,
		seen:    cache.NewLRUCache[string](seenSize, seenTTL),
		logger:  logger.WithComponent(log.ComponentWorker),
	}
}

// Seen exposes the dedup cache so it can join a cache.Manager sweep.
func (w *ExportWorker) Seen() *cache.LRUCache[string] { return w.seen }

// HandleZTicket exports the day named by msg.
func (w *ExportWorker) HandleZTicket(ctx context.Context, msg *amqp.ZTicketMessage) error {
	if ref, ok := w.seen.Get(msg.ID); ok {
		w.logger.InfoContext(ctx, "Z-ticket already exported",
			log.FieldMessageID, msg.ID, log.FieldDate, msg.Date, "ref", ref)
		return nil
	}
	if _, err := core.ParseDay(msg.Date); err != nil {
		// Requeueing cannot fix a bad date; drop it.
		w.logger.ErrorContext(ctx, "Z-ticket with invalid date dropped",
			log.FieldMessageID, msg.ID, log.FieldDate, msg.Date, log.FieldError, err)
		return nil
	}

	txs := w.ledgerOf(ctx, msg)
	ref, err := w.writer.WriteTables(ctx, msg.Date, services.Tables(txs, w.catalog))
	if err != nil {
		return fmt.Errorf("export %s: %w", msg.Date, err)
	}
	if msg.ID != "" {
		w.seen.Set(msg.ID, ref)
	}
	w.logger.InfoContext(ctx, "Day exported",
		log.FieldMessageID, msg.ID,
		log.FieldDate, msg.Date,
		log.FieldOperation, log.OpExport,
		"transactions", len(txs),
		"ref", ref)
	return nil
}

// ledgerOf prefers the ledger carried by msg. Older messages, or one whose
// ledger does not decode, fall back to the stored day.
func (w *ExportWorker) ledgerOf(ctx context.Context, msg *amqp.ZTicketMessage) []core.Transaction {
	if msg.Ledger != "" {
		txs, err := ledger.Decode(msg.Ledger)
		if err == nil {
			return txs
		}
		w.logger.WarnContext(ctx, "Z-ticket ledger unreadable, loading stored day",
			log.FieldMessageID, msg.ID, log.FieldDate, msg.Date, log.FieldError, err)
	}
	return w.days.Load(ctx, msg.Date)
}

// Run consumes until ctx is cancelled.
func (w *ExportWorker) Run(ctx context.Context, consumer Consumer) error {
	w.logger.InfoContext(ctx, "Export worker started", log.FieldOperation, log.OpStartup)
	err := consumer.Run(ctx, w.HandleZTicket)
	if ctx.Err() != nil {
		w.logger.InfoContext(ctx, "Export worker stopped", log.FieldOperation, log.OpShutdown)
		return nil
	}
	return err
}
