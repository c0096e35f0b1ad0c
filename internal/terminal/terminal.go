// Package terminal is the till session: the draft cart, today's ledger and
// the keypad, wired together and owned by one operator.
package terminal

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/shopspring/decimal"

	"caisse/internal/cart"
	"caisse/internal/catalog"
	"caisse/internal/core"
	"caisse/internal/ledger"
	"caisse/internal/log"
	"caisse/internal/pricing"
	"caisse/internal/storage"
	"caisse/internal/turn"
)

var (
	ErrCartNotEmpty    = errors.New("cart is not empty")
	ErrUnknownCurrency = errors.New("unknown currency")
	ErrNoMethod        = errors.New("payment method required")
)

// DefaultKeyword prefixes ledger keys.
const DefaultKeyword = "Transactions"

// Deps are the collaborators of a terminal.
type Deps struct {
	Store   storage.KV
	Catalog catalog.Provider
	Keyword string
	Clock   func() time.Time
	Queue   *turn.Queue
	Logger  *log.Logger
}

// Terminal is not safe for concurrent use. Every operation ends its turn,
// running the writes scheduled by the previous one.
type Terminal struct {
	store         storage.KV
	catalog       catalog.Provider
	keyword       string
	clock         func() time.Time
	queue         *turn.Queue
	logger        *log.Logger
	currencies    []core.Currency
	currencyIndex int
	cart          *cart.Cart
	ledger        *ledger.Ledger
	published     atomic.Pointer[snapshot]
}

// snapshot is the ledger as the last finished operation left it.
type snapshot struct {
	day core.Day
	txs []core.Transaction
}

// Open starts a session with an empty cart and today's ledger.
func Open(ctx context.Context, d Deps) (*Terminal, error) {
	if d.Store == nil {
		return nil, errors.New("terminal: store is required")
	}
	if d.Catalog == nil {
		d.Catalog = catalog.Default()
	}
	currencies := d.Catalog.Currencies()
	if len(currencies) == 0 {
		return nil, catalog.ErrNoCurrency
	}
	if d.Keyword == "" {
		d.Keyword = DefaultKeyword
	}
	if d.Clock == nil {
		d.Clock = time.Now
	}
	if d.Queue == nil {
		d.Queue = turn.New()
	}
	if d.Logger == nil {
		d.Logger = log.Discard()
	}
	t := &Terminal{
		store:      d.Store,
		catalog:    d.Catalog,
		keyword:    d.Keyword,
		clock:      d.Clock,
		queue:      d.Queue,
		logger:     d.Logger.WithComponent(log.ComponentTerminal),
		currencies: currencies,
		cart:       cart.New(currencies[0]),
	}
	t.ledger = ledger.Open(ctx, t.store, t.queue, t.keyword, t.today(), d.Logger)
	t.publish()
	t.logger.InfoContext(ctx, "Terminal opened",
		log.FieldDate, t.ledger.Day().String(), "transactions", t.ledger.Len(), log.FieldCurrency, currencies[0].Symbol)
	return t, nil
}

// Close writes every pending ledger snapshot.
func (t *Terminal) Close(ctx context.Context) error {
	n := t.queue.Drain()
	t.publish()
	t.logger.InfoContext(ctx, "Terminal closed", "flushed", n, log.FieldOperation, log.OpShutdown)
	return nil
}

func (t *Terminal) today() core.Day { return core.DayOf(t.clock()) }

// Today is the day of the live ledger.
func (t *Terminal) Today() core.Day { return t.ledger.Day() }

func (t *Terminal) Keyword() string { return t.keyword }

func (t *Terminal) pad() *pricing.Pad { return t.cart.Draft().Pad }

// endTurn runs the writes of the operation, then publishes the ledger.
func (t *Terminal) endTurn() {
	t.queue.Yield()
	t.publish()
}

func (t *Terminal) publish() {
	t.published.Store(&snapshot{day: t.ledger.Day(), txs: t.ledger.Transactions()})
}

// Published returns the live day and its ledger as of the last finished
// operation. Unlike the other methods it is safe to call from any
// goroutine, and never sees an operation half done.
func (t *Terminal) Published() (core.Day, []core.Transaction) {
	p := t.published.Load()
	return p.day, core.CloneAll(p.txs)
}

// rollover switches to a new ledger when the calendar day changed.
func (t *Terminal) rollover(ctx context.Context) {
	day := t.today()
	if day.Equal(t.ledger.Day()) {
		return
	}
	t.logger.InfoContext(ctx, "Day changed, opening new ledger",
		log.FieldDate, day.String(), "previous", t.ledger.Day().String())
	t.ledger = ledger.Open(ctx, t.store, t.queue, t.keyword, day, t.logger)
}

// Press feeds a keypad key to the field being edited.
func (t *Terminal) Press(key string) bool {
	defer t.endTurn()
	return t.pad().Press(key)
}

func (t *Terminal) Backspace() {
	defer t.endTurn()
	t.pad().Backspace()
}

// ClearEntry abandons the draft line.
func (t *Terminal) ClearEntry() {
	defer t.endTurn()
	t.cart.Draft().Clear()
}

// ClearCart drops the cart and the draft.
func (t *Terminal) ClearCart() {
	defer t.endTurn()
	t.cart.Clear()
}

// Multiply starts quantity entry.
func (t *Terminal) Multiply() {
	defer t.endTurn()
	t.pad().Multiply()
}

// SetMercurial picks the bulk pricing scheme and starts quantity entry if
// it was not already.
func (t *Terminal) SetMercurial(kind pricing.Kind) {
	defer t.endTurn()
	t.pad().SetMercurial(pricing.NewMercurial(kind))
	if !t.pad().EditingQuantity() {
		t.pad().Multiply()
	}
}

// Select chooses the category and product of the draft. A product with a
// price in the current currency loads it into the keypad.
func (t *Terminal) Select(category, label string) bool {
	defer t.endTurn()
	item, ok := catalog.Find(t.catalog, core.Selection{Category: category, Label: label})
	if !ok {
		return false
	}
	t.cart.Draft().Selection = core.Selection{Category: item.Category, Label: label}
	if label != "" {
		if price := item.Price(t.currencyIndex); price.IsPositive() {
			t.pad().SetAmount(price)
		}
	}
	return true
}

// AddToCart turns the draft into a cart line.
func (t *Terminal) AddToCart() bool {
	defer t.endTurn()
	ok := t.cart.AddDraft()
	if ok {
		l := t.cart.Lines()[0]
		t.logger.Debug("Line added", log.NewFields().WithLine(l.Category, l.Label, l.Amount, l.Quantity).
			ToSlice()...)
	}
	return ok
}

// DeleteLine removes a cart line.
func (t *Terminal) DeleteLine(i int) bool {
	defer t.endTurn()
	return t.cart.Delete(i)
}

func (t *Terminal) canAddDraft() bool {
	d := t.cart.Draft()
	return d.Selection.Category != "" && d.Pad.Amount().IsPositive()
}

// Pay commits the cart, including a pending draft, paid with method.
func (t *Terminal) Pay(ctx context.Context, method string) (core.Transaction, error) {
	defer t.endTurn()
	if method == "" {
		return core.Transaction{}, ErrNoMethod
	}
	return t.commit(ctx, method)
}

// Park sets the cart aside as a waiting ticket.
func (t *Terminal) Park(ctx context.Context) (core.Transaction, error) {
	defer t.endTurn()
	return t.commit(ctx, core.WaitingMethod)
}

func (t *Terminal) commit(ctx context.Context, method string) (core.Transaction, error) {
	t.rollover(ctx)
	if t.canAddDraft() {
		t.cart.AddDraft()
	}
	tx, err := t.ledger.Pay(ctx, t.cart, method, t.Currency(), t.clock())
	if err != nil && !errors.Is(err, cart.ErrEmptyCart) {
		t.logger.ErrorContext(ctx, "Ledger persist failed", log.FieldLedgerKey, t.ledger.Key(), log.FieldError, err)
	}
	return tx, err
}

// EditTransaction reopens a committed transaction: it leaves the ledger and
// its lines go back into the cart.
func (t *Terminal) EditTransaction(ctx context.Context, i int) (bool, error) {
	defer t.endTurn()
	t.rollover(ctx)
	tx, ok := t.ledger.Transaction(i)
	if !ok {
		return false, nil
	}
	if tx.Currency.Symbol != t.Currency().Symbol {
		if t.cart.Len() > 0 {
			return false, ErrCartNotEmpty
		}
		if idx := t.indexOf(tx.Currency.Symbol); idx >= 0 {
			t.useCurrency(idx)
		}
	}
	ok, err := t.ledger.EditBack(ctx, i, t.cart)
	if err != nil {
		t.logger.ErrorContext(ctx, "Ledger persist failed", log.FieldLedgerKey, t.ledger.Key(), log.FieldError, err)
	}
	return ok, err
}

// DeleteTransactionLine removes a line from a committed transaction.
func (t *Terminal) DeleteTransactionLine(ctx context.Context, tx, line int) (bool, error) {
	defer t.endTurn()
	t.rollover(ctx)
	ok, err := t.ledger.DeleteLine(ctx, tx, line)
	if err != nil {
		t.logger.ErrorContext(ctx, "Ledger persist failed", log.FieldLedgerKey, t.ledger.Key(), log.FieldError, err)
	}
	return ok, err
}

// SwitchCurrency changes the working currency. It is refused while the
// cart holds a sale.
func (t *Terminal) SwitchCurrency(i int) error {
	defer t.endTurn()
	if i < 0 || i >= len(t.currencies) {
		return fmt.Errorf("%w: %d", ErrUnknownCurrency, i)
	}
	if i == t.currencyIndex {
		return nil
	}
	if !t.cart.Total().IsZero() {
		return ErrCartNotEmpty
	}
	t.useCurrency(i)
	return nil
}

func (t *Terminal) useCurrency(i int) {
	d := t.cart.Draft()
	sel, hadAmount := d.Selection, d.Pad.Amount().IsPositive()
	mercurial := d.Pad.Mercurial()
	t.currencyIndex = i
	d.Pad.SetCurrency(t.currencies[i])
	d.Pad.SetMercurial(mercurial)
	if hadAmount && sel.Label != "" {
		d.Pad.SetAmount(catalog.PriceOf(t.catalog, sel, i))
	}
}

func (t *Terminal) indexOf(symbol string) int {
	for i, c := range t.currencies {
		if c.Symbol == symbol {
			return i
		}
	}
	return -1
}

func (t *Terminal) Currency() core.Currency { return t.currencies[t.currencyIndex] }

func (t *Terminal) CurrencyIndex() int { return t.currencyIndex }

func (t *Terminal) Currencies() []core.Currency {
	return append([]core.Currency(nil), t.currencies...)
}

func (t *Terminal) Inventory() []core.CatalogItem { return t.catalog.Inventory() }

// Transactions is a snapshot of today's ledger.
func (t *Terminal) Transactions() []core.Transaction { return t.ledger.Transactions() }

func (t *Terminal) CartLines() []core.LineItem { return t.cart.Lines() }

func (t *Terminal) CartTotal() decimal.Decimal { return t.cart.Total() }

// State is a read-only snapshot of the session.
type State struct {
	Day           string
	Currency      core.Currency
	CurrencyIndex int
	Amount        string
	Buffer        string
	Quantity      int
	Mercurial     pricing.Kind
	EntryTotal    decimal.Decimal
	Selection     core.Selection
	Lines         []core.LineItem
	CartTotal     decimal.Decimal
	Total         decimal.Decimal
	Version       uint64
	Transactions  []core.Transaction
	PendingWrites int
}

func (t *Terminal) State() State {
	p := t.pad()
	entry := p.Total()
	s := State{
		Day:           t.ledger.Day().String(),
		Currency:      t.Currency(),
		CurrencyIndex: t.currencyIndex,
		Amount:        p.Display(),
		Buffer:        p.Buffer(),
		Quantity:      p.Quantity(),
		Mercurial:     p.Mercurial().Kind,
		EntryTotal:    entry,
		Selection:     t.cart.Draft().Selection,
		Lines:         t.cart.Lines(),
		CartTotal:     t.cart.Total(),
		Version:       t.cart.Version(),
		Transactions:  t.ledger.Transactions(),
		PendingWrites: t.queue.Pending(),
	}
	s.Total = s.CartTotal.Add(entry)
	return s
}
