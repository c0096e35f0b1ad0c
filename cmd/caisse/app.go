package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"caisse/internal/amqp"
	"caisse/internal/cache"
	"caisse/internal/catalog"
	"caisse/internal/cli"
	"caisse/internal/core"
	"caisse/internal/history"
	"caisse/internal/log"
	"caisse/internal/services"
	"caisse/internal/sheets"
	gsheet "caisse/internal/sheets/google"
	"caisse/internal/sheets/xlsx"
)

// app holds what every command opens: the store, the catalog and the
// history of ledgers.
type app struct {
	store   cli.Store
	catalog catalog.Provider
	history *history.Index
	ledgers *cache.LRUCache[[]core.Transaction]
	caches  *cache.Manager
}

func today() core.Day { return core.DayOf(time.Now()) }

func openApp() (*app, error) {
	provider, err := catalog.LoadFile(cfg.CatalogFile)
	if err != nil {
		return nil, err
	}
	store, err := cli.OpenStore(logger, cfg)
	if err != nil {
		return nil, err
	}

	ledgers := cache.NewLRUCache[[]core.Transaction](cfg.HistoryCacheSize, cfg.HistoryCacheTTL)
	caches := cache.NewManager(logger)
	caches.Register(ledgers)

	a := &app{store: store, catalog: provider, ledgers: ledgers, caches: caches}
	a.history = a.newHistory()
	return a, nil
}

func (a *app) newHistory(opts ...history.Option) *history.Index {
	return history.New(a.store, cfg.LedgerKeyword, append([]history.Option{
		history.WithCache(a.ledgers),
		history.WithToday(today),
		history.WithLogger(logger),
	}, opts...)...)
}

// follow makes the history read the live day from the till instead of
// storage. Call it before anything reads the history.
func (a *app) follow(live history.Live) {
	a.history = a.newHistory(history.WithLive(live))
}

func (a *app) Close() {
	a.caches.Stop()
	if err := a.store.Close(); err != nil {
		logger.Error("Closing store failed", log.FieldError, err)
	}
}

// writers returns the local workbook writer, plus Google Sheets when
// configured.
func (a *app) writers(ctx context.Context) ([]sheets.WorkbookWriter, error) {
	out := []sheets.WorkbookWriter{xlsx.New(cfg.ExportDir, logger)}
	if !cfg.SheetsEnabled() {
		return out, nil
	}
	g, err := googleWriter(ctx)
	if err != nil {
		return nil, err
	}
	return append(out, g), nil
}

func googleWriter(ctx context.Context) (*gsheet.Client, error) {
	g, err := gsheet.New(ctx, gsheet.Config{
		SpreadsheetID:   cfg.GoogleSpreadsheetID,
		CredentialsJSON: cfg.GoogleServiceAccountJSON,
		CredentialsFile: cfg.GoogleServiceAccountFile,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("google sheets: %w", err)
	}
	logger.Info("Google Sheets export enabled", "spreadsheet_id", cfg.GoogleSpreadsheetID)
	return g, nil
}

// broker connects to AMQP when configured. A nil client means Z-tickets
// are only logged.
func broker() (*amqp.Client, error) {
	if !cfg.AMQPEnabled() {
		return nil, nil
	}
	c, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, logger)
	if err != nil {
		return nil, fmt.Errorf("amqp: %w", err)
	}
	return c, nil
}

// closing wires the closing service. The returned func releases the broker.
func (a *app) closing(ctx context.Context) (*services.Closing, func(), error) {
	writers, err := a.writers(ctx)
	if err != nil {
		return nil, nil, err
	}
	client, err := broker()
	if err != nil {
		return nil, nil, err
	}
	release := func() {}
	var publisher services.Publisher
	if client != nil {
		publisher = client
		release = func() { _ = client.Close() }
	}
	return services.NewClosing(a.history, a.catalog, publisher, logger, writers...), release, nil
}

// dateArg is the optional date argument, today by default.
func dateArg(args []string) (string, error) {
	if len(args) == 0 {
		return today().String(), nil
	}
	if _, err := core.ParseDay(args[0]); err != nil {
		return "", fmt.Errorf("invalid date %q: want YYYY-MM-DD", args[0])
	}
	return args[0], nil
}

var optionalDate = cobra.MaximumNArgs(1)
