// Package pricing turns keypad input into a bounded amount and an effective
// quantity.
package pricing

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"caisse/internal/core"
)

// AwaitingQuantity is the quantity held after Multiply, before the first
// digit is typed.
const AwaitingQuantity = -1

var (
	leadingZeros = regexp.MustCompile(`^0{2,}`)
	leadingZero  = regexp.MustCompile(`^0+(\d)`)
)

// Pad holds the amount buffer and quantity being typed. A buffer without a
// separator is read in minor units ("12345" is 123.45 with two decimals).
type Pad struct {
	currency  core.Currency
	pattern   *regexp.Regexp
	buffer    string
	quantity  int
	mercurial Mercurial
}

func NewPad(c core.Currency) *Pad {
	p := &Pad{mercurial: NewMercurial(KindNone)}
	p.SetCurrency(c)
	return p
}

// SetCurrency switches the bounds and resets the entry.
func (p *Pad) SetCurrency(c core.Currency) {
	p.currency = c
	p.pattern = regexp.MustCompile(`^\d*([.,]\d{0,` + strconv.Itoa(int(c.MaxDecimals)) + `})?$`)
	p.Clear()
}

func (p *Pad) Currency() core.Currency { return p.currency }

func (p *Pad) SetMercurial(m Mercurial) { p.mercurial = m }

func (p *Pad) Mercurial() Mercurial { return p.mercurial }

// Clear resets both the amount and the quantity.
func (p *Pad) Clear() {
	p.buffer = "0"
	p.quantity = 0
}

// Buffer returns the raw amount buffer.
func (p *Pad) Buffer() string { return p.buffer }

// Quantity returns the raw quantity: 0 when not editing, AwaitingQuantity
// right after Multiply, the typed count otherwise.
func (p *Pad) Quantity() int { return p.quantity }

// EditingQuantity reports whether digits go to the quantity.
func (p *Pad) EditingQuantity() bool { return p.quantity != 0 }

// Multiply enters quantity mode.
func (p *Pad) Multiply() {
	p.quantity = AwaitingQuantity
}

// Press feeds one key ("0".."9", "00", "." or ","). Keys that would make the
// entry invalid are ignored and Press reports false.
func (p *Pad) Press(key string) bool {
	if p.EditingQuantity() {
		return p.pressQuantity(key)
	}
	return p.pressAmount(key)
}

func (p *Pad) pressAmount(key string) bool {
	if !isKey(key) {
		return false
	}
	if isSeparator(key) && p.currency.MaxDecimals == 0 {
		return false
	}
	v := leadingZeros.ReplaceAllString(strings.TrimSpace(p.buffer+key), "0")
	if v == "" {
		return false
	}
	if isSeparator(v[:1]) {
		v = "0" + v
	} else {
		v = leadingZero.ReplaceAllString(v, "$1")
	}
	if !p.pattern.MatchString(v) {
		return false
	}
	if strings.ContainsAny(v, ".,") {
		if parseLiteral(v).GreaterThan(p.currency.MaxValue) {
			v = p.currency.MaxValue.StringFixed(p.currency.MaxDecimals)
		}
	} else if limit := p.maxMinor(); decimal.RequireFromString(v).GreaterThan(limit) {
		v = limit.String()
	}
	p.buffer = v
	return true
}

func (p *Pad) pressQuantity(key string) bool {
	if key == "" || strings.Trim(key, "0123456789") != "" {
		return false
	}
	s := key
	if p.quantity > 0 {
		s = strconv.Itoa(p.quantity) + key
	}
	n, err := strconv.Atoi(leadingZeros.ReplaceAllString(s, "0"))
	if err != nil || n < 1 {
		return false
	}
	p.quantity = p.clampQuantity(n)
	return true
}

// clampQuantity keeps the effective total within the currency's max value.
// Over the limit, q becomes max(floor(maxValue / (transform(n) * amount)), 1).
func (p *Pad) clampQuantity(n int) int {
	total := p.Amount().Mul(p.mercurial.Transform(n))
	if total.LessThanOrEqual(p.currency.MaxValue) {
		return n
	}
	q := p.currency.MaxValue.Div(total).Floor().IntPart()
	return int(max(q, 1))
}

// Backspace removes the last typed character of the field being edited.
func (p *Pad) Backspace() {
	switch {
	case p.quantity > 9:
		p.quantity /= 10
	case p.quantity > 0:
		p.quantity = AwaitingQuantity
	case p.quantity == AwaitingQuantity:
		p.quantity = 0
	default:
		if len(p.buffer) <= 1 {
			p.buffer = "0"
			return
		}
		p.buffer = p.buffer[:len(p.buffer)-1]
	}
}

// SetAmount loads a price into the buffer, clamped to the currency bounds.
func (p *Pad) SetAmount(d decimal.Decimal) {
	if !d.IsPositive() {
		p.buffer = "0"
		return
	}
	if d.GreaterThan(p.currency.MaxValue) {
		d = p.currency.MaxValue
	}
	p.buffer = d.Mul(core.Pow10(p.currency.MaxDecimals)).Truncate(0).String()
}

// Amount is the unit amount typed so far.
func (p *Pad) Amount() decimal.Decimal {
	if strings.ContainsAny(p.buffer, ".,") {
		return parseLiteral(p.buffer)
	}
	d, err := decimal.NewFromString(p.buffer)
	if err != nil {
		return decimal.Zero
	}
	return d.Shift(-p.currency.MaxDecimals)
}

// Display renders Amount with the currency's decimals, without symbol.
func (p *Pad) Display() string {
	return p.Amount().StringFixed(p.currency.MaxDecimals)
}

// Multiplier is the mercurial transform of the quantity, at least one.
func (p *Pad) Multiplier() decimal.Decimal {
	m := p.mercurial.Transform(p.quantity)
	if m.LessThan(decimal.NewFromInt(1)) {
		return decimal.NewFromInt(1)
	}
	return m
}

// Total is the effective amount of the entry: Amount times Multiplier.
func (p *Pad) Total() decimal.Decimal {
	return p.Amount().Mul(p.Multiplier())
}

// Line returns the unit amount and quantity to put in the cart. With a
// non-linear mercurial the unit amount absorbs the transform so that
// unit*quantity matches Total at the currency's precision.
func (p *Pad) Line() (decimal.Decimal, int) {
	amount := p.Amount()
	if p.quantity < 1 {
		return amount, 1
	}
	q := decimal.NewFromInt(int64(p.quantity))
	if p.mercurial.Kind == KindNone || p.mercurial.Kind == "" {
		return amount, p.quantity
	}
	unit := amount.Mul(p.mercurial.Transform(p.quantity)).DivRound(q, p.currency.MaxDecimals)
	return unit, p.quantity
}

func (p *Pad) maxMinor() decimal.Decimal {
	return p.currency.MaxValue.Shift(p.currency.MaxDecimals).Truncate(0)
}

func parseLiteral(s string) decimal.Decimal {
	s = strings.TrimRight(strings.ReplaceAll(s, ",", "."), ".")
	if s == "" {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}

func isSeparator(s string) bool { return s == "." || s == "," }

func isKey(k string) bool {
	if isSeparator(k) || k == "00" {
		return true
	}
	return len(k) == 1 && k[0] >= '0' && k[0] <= '9'
}
