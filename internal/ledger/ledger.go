// Package ledger keeps one day's committed transactions, newest first, and
// persists them wholesale.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"caisse/internal/cart"
	"caisse/internal/core"
	"caisse/internal/log"
	"caisse/internal/storage"
	"caisse/internal/turn"
)

// Ledger is owned by a single terminal. Every mutation removes the stored
// value immediately and writes the new sequence on a later turn.
type Ledger struct {
	kv      storage.KV
	queue   *turn.Queue
	logger  *log.Logger
	keyword string
	day     core.Day
	txs     []core.Transaction
	gen     uint64
}

// Load reads the ledger stored under key. A missing entry is empty; a
// malformed one is logged and treated as empty.
func Load(ctx context.Context, kv storage.KV, key string, logger *log.Logger) []core.Transaction {
	data, err := kv.Get(ctx, key)
	if errors.Is(err, storage.ErrNotFound) {
		return nil
	}
	if err != nil {
		logger.WarnContext(ctx, "Ledger unreadable, starting empty", log.FieldLedgerKey, key, log.FieldError, err)
		return nil
	}
	txs, err := Decode(data)
	if err != nil {
		logger.WarnContext(ctx, "Ledger malformed, starting empty", log.FieldLedgerKey, key, log.FieldError, err)
		return nil
	}
	return txs
}

// Open loads the ledger of day.
func Open(ctx context.Context, kv storage.KV, q *turn.Queue, keyword string, day core.Day, logger *log.Logger) *Ledger {
	if logger == nil {
		logger = log.Discard()
	}
	logger = logger.WithComponent(log.ComponentLedger)
	l := &Ledger{kv: kv, queue: q, logger: logger, keyword: keyword, day: day}
	l.txs = Load(ctx, kv, l.Key(), logger)
	logger.DebugContext(ctx, "Ledger opened", log.FieldLedgerKey, l.Key(), "transactions", len(l.txs))
	return l
}

func (l *Ledger) Day() core.Day { return l.day }

func (l *Ledger) Key() string { return Key(l.keyword, l.day) }

func (l *Ledger) Len() int { return len(l.txs) }

// Transactions returns a deep copy, newest first.
func (l *Ledger) Transactions() []core.Transaction {
	return core.CloneAll(l.txs)
}

// Transaction returns a copy of the transaction at i.
func (l *Ledger) Transaction(i int) (core.Transaction, bool) {
	if i < 0 || i >= len(l.txs) {
		return core.Transaction{}, false
	}
	return l.txs[i].Clone(), true
}

// Commit inserts tx first and persists.
func (l *Ledger) Commit(ctx context.Context, tx core.Transaction) error {
	tx = tx.Clone()
	if !tx.Recompute().IsPositive() {
		return cart.ErrEmptyCart
	}
	l.txs = append([]core.Transaction{tx}, l.txs...)
	l.logger.InfoContext(ctx, "Transaction committed",
		log.NewFields().WithSale(tx.Method, tx.Amount, tx.Currency.Symbol, len(tx.Products)).
			WithOperation(log.OpCommit).ToSlice()...)
	return l.persist(ctx)
}

// Pay flushes c into a transaction paid with method and commits it.
func (l *Ledger) Pay(ctx context.Context, c *cart.Cart, method string, currency core.Currency, at time.Time) (core.Transaction, error) {
	tx, err := c.Flush(method, currency, at)
	if err != nil {
		return core.Transaction{}, err
	}
	return tx, l.Commit(ctx, tx)
}

// Park sets the cart aside as a waiting ticket.
func (l *Ledger) Park(ctx context.Context, c *cart.Cart, currency core.Currency, at time.Time) (core.Transaction, error) {
	return l.Pay(ctx, c, core.WaitingMethod, currency, at)
}

// EditBack removes the transaction at i and puts its lines back into c.
// Out-of-range indexes are ignored.
func (l *Ledger) EditBack(ctx context.Context, i int, c *cart.Cart) (bool, error) {
	if i < 0 || i >= len(l.txs) {
		return false, nil
	}
	tx := l.txs[i]
	l.txs = append(l.txs[:i:i], l.txs[i+1:]...)
	for _, p := range tx.Products {
		c.AddLine(p.Category, p.Label, p.Amount, p.Quantity, p.Currency)
	}
	l.logger.InfoContext(ctx, "Transaction reopened",
		log.FieldTransactionIndex, i, log.FieldPaymentMethod, tx.Method, log.FieldOperation, log.OpEdit)
	return true, l.persist(ctx)
}

// DeleteLine removes one line from the transaction at t. A transaction left
// without value is removed. Out-of-range indexes are ignored.
func (l *Ledger) DeleteLine(ctx context.Context, t, line int) (bool, error) {
	if t < 0 || t >= len(l.txs) || line < 0 || line >= len(l.txs[t].Products) {
		return false, nil
	}
	tx := l.txs[t].Clone()
	removed := tx.Products[line]
	tx.Products = append(tx.Products[:line:line], tx.Products[line+1:]...)
	fields := log.NewFields().
		WithLine(removed.Category, removed.Label, removed.Amount, removed.Quantity).
		WithOperation(log.OpDelete)
	fields[log.FieldTransactionIndex] = t
	fields[log.FieldLineIndex] = line

	if tx.Recompute().IsPositive() {
		l.txs[t] = tx
	} else {
		l.txs = append(l.txs[:t:t], l.txs[t+1:]...)
		fields["transaction_removed"] = true
	}
	l.logger.InfoContext(ctx, "Line deleted", fields.ToSlice()...)
	return true, l.persist(ctx)
}

// Flush writes whatever is pending. Used at teardown.
func (l *Ledger) Flush() int {
	return l.queue.Drain()
}

// persist deletes the stored value now and schedules the write of the
// current sequence for the next turn. Only the latest schedule writes.
func (l *Ledger) persist(ctx context.Context) error {
	key := l.Key()
	l.gen++
	if err := l.kv.Delete(ctx, key); err != nil {
		return fmt.Errorf("clear %s: %w", key, err)
	}
	if len(l.txs) == 0 {
		return nil
	}
	data, err := Encode(l.txs)
	if err != nil {
		return err
	}
	gen := l.gen
	wctx := context.WithoutCancel(ctx)
	l.queue.Defer(func() {
		if gen != l.gen {
			return
		}
		if err := l.kv.Put(wctx, key, data); err != nil {
			l.logger.ErrorContext(wctx, "Ledger write failed",
				log.FieldLedgerKey, key, log.FieldOperation, log.OpPersist, log.FieldError, err)
		}
	})
	return nil
}

// Entry is a transaction with its position in the ledger.
type Entry struct {
	Index int
	core.Transaction
}

// Split separates waiting tickets from settled sales, keeping ledger order
// and indexes.
func Split(txs []core.Transaction) (waiting, settled []Entry) {
	for i, tx := range txs {
		e := Entry{Index: i, Transaction: tx}
		if tx.IsWaiting() {
			waiting = append(waiting, e)
		} else {
			settled = append(settled, e)
		}
	}
	return waiting, settled
}
