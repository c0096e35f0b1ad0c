// Package screens holds the till's popup flows. Each flow builds a Choice
// and hands it to a Presenter; going back is driven by a nav.Stack.
package screens

import (
	"context"

	"github.com/shopspring/decimal"

	"caisse/internal/core"
	"caisse/internal/nav"
	"caisse/internal/pricing"
)

// Destructive is the secondary action offered on an option, confirmed by
// the presenter before Action runs.
type Destructive struct {
	ConfirmTitle func(index int) string
	// MaxIndex bounds the options the action applies to. Zero means all.
	MaxIndex int
	Action   func(index int)
}

// Allows reports whether the action applies to option index.
func (d *Destructive) Allows(index int) bool {
	if d == nil || index < 0 {
		return false
	}
	return d.MaxIndex == 0 || index < d.MaxIndex
}

// Choice is one popup. OnSelect receives -1 when the popup is dismissed.
type Choice struct {
	Title       string
	Options     []nav.Option
	OnSelect    func(index int, option nav.Option)
	KeepOpen    bool
	Destructive *Destructive
}

// Presenter shows choices to the operator.
type Presenter interface {
	PresentChoice(c Choice)
	Close()
}

// Till is the part of the terminal the flows drive.
type Till interface {
	Today() core.Day
	Transactions() []core.Transaction
	CartLines() []core.LineItem
	CartTotal() decimal.Decimal
	Currency() core.Currency
	Currencies() []core.Currency
	CurrencyIndex() int
	Inventory() []core.CatalogItem
	DeleteLine(i int) bool
	ClearCart()
	Pay(ctx context.Context, method string) (core.Transaction, error)
	Park(ctx context.Context) (core.Transaction, error)
	EditTransaction(ctx context.Context, i int) (bool, error)
	DeleteTransactionLine(ctx context.Context, t, line int) (bool, error)
	SwitchCurrency(i int) error
	SetMercurial(kind pricing.Kind)
}

// History lists and loads past ledgers.
type History interface {
	ListDates(ctx context.Context) ([]string, error)
	Load(ctx context.Context, date string) []core.Transaction
}

// Actions are the side effects of the Z-ticket menu.
type Actions struct {
	SendTicketZ func(ctx context.Context, date string) error
	Export      func(ctx context.Context, date string) error
}
