// Package history enumerates and loads past ledgers.
package history

import (
	"context"
	"fmt"
	"slices"
	"sort"

	"golang.org/x/sync/singleflight"

	"caisse/internal/cache"
	"caisse/internal/core"
	"caisse/internal/ledger"
	"caisse/internal/log"
	"caisse/internal/storage"
)

// Live is the owner of the ledger being written. Published must be safe
// for concurrent use.
type Live interface {
	Published() (core.Day, []core.Transaction)
}

// Index reads ledgers by date. Past days are cached. Today's ledger comes
// from the live owner when there is one: storage holds it only between two
// writes, and reading it mid-write would see a cleared day.
type Index struct {
	kv      storage.KV
	keyword string
	cache   *cache.LRUCache[[]core.Transaction]
	group   singleflight.Group
	today   func() core.Day
	live    Live
	logger  *log.Logger
}

type Option func(*Index)

// WithCache caches loaded past ledgers.
func WithCache(c *cache.LRUCache[[]core.Transaction]) Option {
	return func(x *Index) { x.cache = c }
}

// WithToday sets the function that tells which day is live.
func WithToday(today func() core.Day) Option {
	return func(x *Index) { x.today = today }
}

// WithLive serves the live owner's day from its published ledger.
func WithLive(l Live) Option {
	return func(x *Index) { x.live = l }
}

func WithLogger(l *log.Logger) Option {
	return func(x *Index) { x.logger = l }
}

func New(kv storage.KV, keyword string, opts ...Option) *Index {
	x := &Index{kv: kv, keyword: keyword, logger: log.Discard()}
	for _, o := range opts {
		o(x)
	}
	x.logger = x.logger.WithComponent(log.ComponentHistory)
	return x
}

// ListDates returns the ISO dates of every stored ledger, most recent
// first. Keys whose date is not ISO-8601 are logged and left out.
func (x *Index) ListDates(ctx context.Context) ([]string, error) {
	keys, err := x.kv.Keys(ctx, x.keyword+" ")
	if err != nil {
		return nil, fmt.Errorf("list ledger keys: %w", err)
	}
	dates := make([]string, 0, len(keys))
	for _, k := range keys {
		date, err := ledger.ParseKey(x.keyword, k)
		if err == nil {
			_, err = core.ParseDay(date)
		}
		if err != nil {
			x.logger.WarnContext(ctx, "Skipping ledger key", log.FieldLedgerKey, k, log.FieldError, err)
			continue
		}
		dates = append(dates, date)
	}
	if x.live != nil {
		day, txs := x.live.Published()
		if len(txs) > 0 && !slices.Contains(dates, day.String()) {
			dates = append(dates, day.String())
		}
	}
	sort.Sort(sort.Reverse(sort.StringSlice(dates)))
	return dates, nil
}

// Load returns the ledger of date. Missing or malformed ledgers are empty.
func (x *Index) Load(ctx context.Context, date string) []core.Transaction {
	if x.live != nil {
		if day, txs := x.live.Published(); day.String() == date {
			return txs
		}
	}
	key := x.keyword + " " + date
	live := x.today != nil && x.today().String() == date
	if !live && x.cache != nil {
		if txs, ok := x.cache.Get(key); ok {
			return core.CloneAll(txs)
		}
	}
	v, _, _ := x.group.Do(key, func() (any, error) {
		txs := ledger.Load(ctx, x.kv, key, x.logger)
		if !live && x.cache != nil {
			x.cache.Set(key, txs)
		}
		return txs, nil
	})
	return core.CloneAll(v.([]core.Transaction))
}

// Invalidate forgets a cached ledger.
func (x *Index) Invalidate(date string) {
	if x.cache != nil {
		x.cache.Delete(x.keyword + " " + date)
	}
}
