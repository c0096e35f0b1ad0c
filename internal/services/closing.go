// Package services runs the end-of-day closing: the Z-ticket and the
// workbook export of a day.
package services

import (
	"context"
	"errors"
	"fmt"

	"caisse/internal/amqp"
	"caisse/internal/catalog"
	"caisse/internal/core"
	"caisse/internal/ledger"
	"caisse/internal/log"
	"caisse/internal/report"
	"caisse/internal/sheets"
)

// DayLoader returns the ledger of a date.
type DayLoader interface {
	Load(ctx context.Context, date string) []core.Transaction
}

// Publisher sends Z-ticket messages.
type Publisher interface {
	PublishTicketZ(ctx context.Context, msg *amqp.ZTicketMessage) error
}

var ErrInvalidDate = errors.New("invalid date")

// DayReport is the settled activity of one day, one summary per currency.
type DayReport struct {
	Date         string
	Transactions []core.Transaction
	Summaries    []report.Summary
}

// Lines renders the summaries one after the other, a blank line between
// two currencies.
func (r DayReport) Lines() []string {
	var out []string
	for i, s := range r.Summaries {
		if i > 0 {
			out = append(out, "")
		}
		out = append(out, s.Title())
		out = append(out, s.Lines()...)
	}
	return out
}

type Closing struct {
	days      DayLoader
	catalog   catalog.Provider
	publisher Publisher
	writers   []sheets.WorkbookWriter
	logger    *log.Logger
}

// NewClosing builds the closing service. publisher may be nil, the
// Z-ticket is then only logged.
func NewClosing(days DayLoader, provider catalog.Provider, publisher Publisher, logger *log.Logger, writers ...sheets.WorkbookWriter) *Closing {
	if logger == nil {
		logger = log.Discard()
	}
	return &Closing{
		days:      days,
		catalog:   provider,
		publisher: publisher,
		writers:   writers,
		logger:    logger.WithComponent(log.ComponentClosing),
	}
}

// Report summarizes the settled transactions of date in each currency they
// use. A day without sales gets one empty summary in the first currency.
func (c *Closing) Report(ctx context.Context, date string) (DayReport, error) {
	if _, err := core.ParseDay(date); err != nil {
		return DayReport{}, fmt.Errorf("%w %q", ErrInvalidDate, date)
	}
	txs := report.Settled(c.days.Load(ctx, date))
	currencies := report.Currencies(txs)
	if len(currencies) == 0 {
		if all := c.catalog.Currencies(); len(all) > 0 {
			currencies = all[:1]
		}
	}
	r := DayReport{Date: date, Transactions: txs}
	for _, cur := range currencies {
		r.Summaries = append(r.Summaries, report.Summarize(txs, c.catalog.Inventory(), cur))
	}
	return r, nil
}

// TicketZ builds the Z-ticket message of date, carrying the settled
// transactions it reports on.
func (c *Closing) TicketZ(ctx context.Context, date string) (*amqp.ZTicketMessage, error) {
	r, err := c.Report(ctx, date)
	if err != nil {
		return nil, err
	}
	msg := amqp.NewZTicketMessage(date, "Ticket Z "+date, report.ZTicketBody(date, r.Lines()))
	if len(r.Transactions) > 0 {
		if msg.Ledger, err = ledger.Encode(r.Transactions); err != nil {
			return nil, fmt.Errorf("encode z-ticket %s: %w", date, err)
		}
	}
	return msg, nil
}

// SendTicketZ publishes the Z-ticket of date.
func (c *Closing) SendTicketZ(ctx context.Context, date string) error {
	msg, err := c.TicketZ(ctx, date)
	if err != nil {
		return err
	}
	if c.publisher == nil {
		c.logger.WarnContext(ctx, "No message broker configured, Z-ticket not sent",
			log.FieldDate, date, log.FieldMessageID, msg.ID)
		return nil
	}
	if err := c.publisher.PublishTicketZ(ctx, msg); err != nil {
		return fmt.Errorf("send z-ticket %s: %w", date, err)
	}
	c.logger.InfoContext(ctx, "Z-ticket sent", log.FieldDate, date, log.FieldMessageID, msg.ID,
		log.FieldOperation, log.OpPublish)
	return nil
}

// Tables lays out the settled transactions of txs for export.
func Tables(txs []core.Transaction, provider catalog.Provider) []report.Table {
	return report.ExportTables(report.Settled(txs), provider.Inventory(), provider.Currencies())
}

// ExportDay writes the tables of date through every writer and returns
// where they landed. Each writer is tried even when another fails.
func (c *Closing) ExportDay(ctx context.Context, date string) ([]string, error) {
	if _, err := core.ParseDay(date); err != nil {
		return nil, fmt.Errorf("%w %q", ErrInvalidDate, date)
	}
	if len(c.writers) == 0 {
		return nil, errors.New("no workbook writer configured")
	}
	tables := Tables(c.days.Load(ctx, date), c.catalog)

	var (
		refs []string
		errs []error
	)
	for _, w := range c.writers {
		ref, err := w.WriteTables(ctx, date, tables)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		refs = append(refs, ref)
	}
	c.logger.InfoContext(ctx, "Day exported", log.FieldDate, date, log.FieldOperation, log.OpExport,
		"written", len(refs), "failed", len(errs))
	if err := errors.Join(errs...); err != nil {
		return refs, fmt.Errorf("export %s: %w", date, err)
	}
	return refs, nil
}

// Export is ExportDay for callers that only care about failure.
func (c *Closing) Export(ctx context.Context, date string) error {
	_, err := c.ExportDay(ctx, date)
	return err
}
