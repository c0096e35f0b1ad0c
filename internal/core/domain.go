package core

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// WaitingMethod marks a parked ticket: a cart set aside in the ledger so it
// can be resumed later. It is not a payment.
const WaitingMethod = "En attente"

type (
	Currency struct {
		Symbol      string
		Label       string
		MaxValue    decimal.Decimal
		MaxDecimals int32
	}

	// CatalogItem is one sellable product. Prices is parallel to the
	// currency list supplied by the catalog.
	CatalogItem struct {
		Category string
		Label    string
		Prices   []decimal.Decimal
		Rate     decimal.Decimal // tax rate in percent, 0 allowed
	}

	// Selection identifies what the operator is about to add.
	Selection struct {
		Category string
		Label    string
	}

	LineItem struct {
		Category string
		Label    string
		Amount   decimal.Decimal // unit amount
		Quantity int
		Currency Currency
	}

	Transaction struct {
		Method   string
		Amount   decimal.Decimal
		Currency Currency
		Date     string // hour of sale, e.g. "9h05"
		Products []LineItem
	}

	// Day is the calendar day a ledger belongs to.
	Day struct {
		time.Time
	}
)

var (
	ErrEmptyCategory   = errors.New("empty category")
	ErrInvalidAmount   = errors.New("invalid amount")
	ErrInvalidQuantity = errors.New("invalid quantity")
	ErrEmptySymbol     = errors.New("empty currency symbol")
	ErrInvalidMaxValue = errors.New("invalid currency max value")
)

const dayLayout = "2006-01-02"

// NewDay creates a Day from year, month, day.
func NewDay(year, month, day int) Day {
	return Day{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// DayOf truncates t to its calendar day in t's location.
func DayOf(t time.Time) Day {
	return NewDay(t.Year(), int(t.Month()), t.Day())
}

// ParseDay parses an ISO-8601 date (YYYY-MM-DD).
func ParseDay(s string) (Day, error) {
	t, err := time.Parse(dayLayout, strings.TrimSpace(s))
	if err != nil {
		return Day{}, fmt.Errorf("parse day %q: %w", s, err)
	}
	return Day{Time: t}, nil
}

// String returns the ISO-8601 form used in ledger keys.
func (d Day) String() string {
	return d.Format(dayLayout)
}

// Equal reports whether both values denote the same calendar day.
func (d Day) Equal(o Day) bool {
	return d.String() == o.String()
}

// FormatHour renders the time of a sale the way tickets print it.
func FormatHour(t time.Time) string {
	return fmt.Sprintf("%dh%02d", t.Hour(), t.Minute())
}

func (c Currency) Validate() error {
	if strings.TrimSpace(c.Symbol) == "" {
		return ErrEmptySymbol
	}
	if !c.MaxValue.IsPositive() {
		return ErrInvalidMaxValue
	}
	if c.MaxDecimals < 0 {
		return fmt.Errorf("invalid currency decimals %d", c.MaxDecimals)
	}
	return nil
}

// Price returns the item's price in the currency at index, zero when the
// catalog has none.
func (i CatalogItem) Price(currencyIndex int) decimal.Decimal {
	if currencyIndex < 0 || currencyIndex >= len(i.Prices) {
		return decimal.Zero
	}
	return i.Prices[currencyIndex]
}

// Total is the line amount: unit amount times quantity.
func (l LineItem) Total() decimal.Decimal {
	return l.Amount.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

func (l LineItem) Validate() error {
	if strings.TrimSpace(l.Category) == "" {
		return ErrEmptyCategory
	}
	if !l.Amount.IsPositive() {
		return ErrInvalidAmount
	}
	if l.Quantity < 1 {
		return ErrInvalidQuantity
	}
	return nil
}

// SumLines adds up the totals of lines.
func SumLines(lines []LineItem) decimal.Decimal {
	total := decimal.Zero
	for _, l := range lines {
		total = total.Add(l.Total())
	}
	return total
}

// Recompute sets Amount from the transaction's lines and returns it.
func (t *Transaction) Recompute() decimal.Decimal {
	t.Amount = SumLines(t.Products)
	return t.Amount
}

// IsWaiting reports whether the transaction is a parked ticket.
func (t Transaction) IsWaiting() bool {
	return t.Method == WaitingMethod
}

// Clone returns a copy that shares no line storage with t.
func (t Transaction) Clone() Transaction {
	c := t
	c.Products = append([]LineItem(nil), t.Products...)
	return c
}

// CloneAll deep-copies a transaction slice.
func CloneAll(txs []Transaction) []Transaction {
	if txs == nil {
		return nil
	}
	out := make([]Transaction, len(txs))
	for i, t := range txs {
		out[i] = t.Clone()
	}
	return out
}
