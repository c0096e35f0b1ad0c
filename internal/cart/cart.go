// Package cart holds the sale being rung up: priced lines plus the draft
// line still being typed.
package cart

import (
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"caisse/internal/core"
	"caisse/internal/pricing"
)

var ErrEmptyCart = errors.New("cart total is zero")

// Draft is the line being edited: what was selected and what was typed.
type Draft struct {
	Selection core.Selection
	Pad       *pricing.Pad
}

// Clear abandons the draft.
func (d *Draft) Clear() {
	d.Selection = core.Selection{}
	d.Pad.Clear()
}

// Cart is an ordered list of lines, newest first. No two lines share the
// same label and unit amount. Version increases on every change.
type Cart struct {
	lines   []core.LineItem
	version uint64
	draft   Draft
}

func New(c core.Currency) *Cart {
	return &Cart{draft: Draft{Pad: pricing.NewPad(c)}}
}

// Draft returns the line being edited.
func (c *Cart) Draft() *Draft { return &c.draft }

// Version is bumped on every mutation of the lines.
func (c *Cart) Version() uint64 { return c.version }

func (c *Cart) Len() int { return len(c.lines) }

// Lines returns a copy of the lines, newest first.
func (c *Cart) Lines() []core.LineItem {
	return append([]core.LineItem(nil), c.lines...)
}

// Total is the sum of unit amount times quantity over all lines.
func (c *Cart) Total() decimal.Decimal {
	return core.SumLines(c.lines)
}

// AddLine adds quantity units of (label, unitAmount). A line with the same
// label and unit amount absorbs the quantity; otherwise the line goes first.
// Empty categories and zero amounts or quantities are ignored.
func (c *Cart) AddLine(category, label string, unitAmount decimal.Decimal, quantity int, currency core.Currency) bool {
	if strings.TrimSpace(category) == "" || !unitAmount.IsPositive() || quantity < 1 {
		return false
	}
	defer c.draft.Clear()
	c.version++
	for i := range c.lines {
		if c.lines[i].Label == label && c.lines[i].Amount.Equal(unitAmount) {
			c.lines[i].Quantity += quantity
			return true
		}
	}
	line := core.LineItem{Category: category, Label: label, Amount: unitAmount, Quantity: quantity, Currency: currency}
	c.lines = append([]core.LineItem{line}, c.lines...)
	return true
}

// AddDraft turns the draft into a cart line.
func (c *Cart) AddDraft() bool {
	sel := c.draft.Selection
	unit, q := c.draft.Pad.Line()
	label := sel.Label
	if label == "" {
		label = sel.Category
	}
	return c.AddLine(sel.Category, label, unit, q, c.draft.Pad.Currency())
}

// Delete removes the line at i. Out-of-range indexes are ignored.
func (c *Cart) Delete(i int) bool {
	if i < 0 || i >= len(c.lines) {
		return false
	}
	c.lines = append(c.lines[:i:i], c.lines[i+1:]...)
	c.version++
	c.draft.Clear()
	return true
}

// Clear empties the cart and the draft.
func (c *Cart) Clear() {
	if len(c.lines) > 0 {
		c.version++
	}
	c.lines = nil
	c.draft.Clear()
}

// Flush hands the lines over to a new transaction and empties the cart.
// A zero total yields ErrEmptyCart and leaves the cart as is.
func (c *Cart) Flush(method string, currency core.Currency, at time.Time) (core.Transaction, error) {
	total := c.Total()
	if !total.IsPositive() {
		return core.Transaction{}, ErrEmptyCart
	}
	tx := core.Transaction{
		Method:   method,
		Amount:   total,
		Currency: currency,
		Date:     core.FormatHour(at),
		Products: c.lines,
	}
	c.lines = nil
	c.version++
	c.draft.Clear()
	return tx, nil
}
