package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"caisse/internal/core"
	"caisse/internal/log"
	"caisse/internal/storage"
)

// LastClosedKey holds the date of the last automatic closing.
const LastClosedKey = "Closing last"

// AutoCloseConfig holds configuration for the daily closing
type AutoCloseConfig struct {
	// At is the closing time of day, "HH:MM".
	At string

	// PollInterval is how often the clock is checked (default: 1m)
	PollInterval time.Duration

	// Clock defaults to time.Now.
	Clock func() time.Time
}

// Closer is the part of Closing run at the end of the day.
type Closer interface {
	SendTicketZ(ctx context.Context, date string) error
	Export(ctx context.Context, date string) error
}

// AutoCloser sends the Z-ticket and exports the workbook of the day once
// the closing time has passed, at most once per day.
type AutoCloser struct {
	closer   Closer
	kv       storage.KV
	hour     int
	minute   int
	interval time.Duration
	now      func() time.Time
	logger   *log.Logger

	// Lifecycle management
	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

func NewAutoCloser(closer Closer, kv storage.KV, cfg AutoCloseConfig, logger *log.Logger) (*AutoCloser, error) {
	at, err := time.Parse("15:04", cfg.At)
	if err != nil {
		return nil, fmt.Errorf("closing time %q: %w", cfg.At, err)
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = time.Minute
	}
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}
	if logger == nil {
		logger = log.Discard()
	}
	return &AutoCloser{
		closer:   closer,
		kv:       kv,
		hour:     at.Hour(),
		minute:   at.Minute(),
		interval: cfg.PollInterval,
		now:      cfg.Clock,
		logger:   logger.WithComponent(log.ComponentClosing),
	}, nil
}

// Start begins the closing loop. Returns an error if already running.
func (a *AutoCloser) Start(ctx context.Context) error {
	a.mu.Lock()
	if a.running {
		a.mu.Unlock()
		return errors.New("auto closer is already running")
	}
	a.running = true
	a.stopCh = make(chan struct{})
	a.doneCh = make(chan struct{})
	a.mu.Unlock()

	go a.runLoop(ctx)

	a.logger.InfoContext(ctx, "Auto closer started",
		"at", fmt.Sprintf("%02d:%02d", a.hour, a.minute),
		"poll_interval", a.interval)
	return nil
}

// Stop gracefully stops the loop and waits for a running closing.
func (a *AutoCloser) Stop(ctx context.Context) error {
	a.mu.Lock()
	if !a.running {
		a.mu.Unlock()
		return nil
	}
	stopCh, doneCh := a.stopCh, a.doneCh
	a.running = false
	a.mu.Unlock()

	close(stopCh)

	select {
	case <-doneCh:
		a.logger.InfoContext(ctx, "Auto closer stopped gracefully")
		return nil
	case <-ctx.Done():
		a.logger.WarnContext(ctx, "Auto closer stop timed out")
		return ctx.Err()
	}
}

// IsRunning returns whether the loop is currently running
func (a *AutoCloser) IsRunning() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.running
}

func (a *AutoCloser) runLoop(ctx context.Context) {
	defer close(a.doneCh)

	ticker := time.NewTicker(a.interval)
	defer ticker.Stop()

	a.Tick(ctx)

	for {
		select {
		case <-a.stopCh:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			a.Tick(ctx)
		}
	}
}

// Tick closes today when the closing time has passed and today was not
// closed yet. It reports whether a closing ran.
func (a *AutoCloser) Tick(ctx context.Context) bool {
	now := a.now()
	closeAt := time.Date(now.Year(), now.Month(), now.Day(), a.hour, a.minute, 0, 0, now.Location())
	if now.Before(closeAt) {
		return false
	}
	date := core.DayOf(now).String()

	last, err := a.kv.Get(ctx, LastClosedKey)
	switch {
	case errors.Is(err, storage.ErrNotFound):
	case err != nil:
		a.logger.ErrorContext(ctx, "Reading last closing failed", log.FieldError, err)
		return false
	case last == date:
		return false
	}

	// Failures are logged, not retried: the operator can still close by hand.
	if err := a.closer.SendTicketZ(ctx, date); err != nil {
		a.logger.ErrorContext(ctx, "Automatic Z-ticket failed", log.FieldDate, date, log.FieldError, err)
	}
	if err := a.closer.Export(ctx, date); err != nil {
		a.logger.ErrorContext(ctx, "Automatic export failed", log.FieldDate, date, log.FieldError, err)
	}
	if err := a.kv.Put(ctx, LastClosedKey, date); err != nil {
		a.logger.ErrorContext(ctx, "Recording closing failed", log.FieldDate, date, log.FieldError, err)
	}
	a.logger.InfoContext(ctx, "Day closed", log.FieldDate, date)
	return true
}
