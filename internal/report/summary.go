package report

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"caisse/internal/core"
)

// TaxHeader heads the bracket block of the summary text.
const TaxHeader = " TAUX \n HT \n TVA \n TTC "

// Summary is the day report for one currency.
type Summary struct {
	Currency   core.Currency
	Products   int
	Sales      int
	Amount     decimal.Decimal
	Categories []Row
	Brackets   []Bracket
	Taxes      []TaxRow
	TaxTotal   TaxRow
	Payments   []Row
}

// Summarize builds the report of the settled transactions paid in currency.
func Summarize(txs []core.Transaction, inventory []core.CatalogItem, currency core.Currency) Summary {
	txs = FilterCurrency(Settled(txs), currency.Symbol)
	s := Summary{
		Currency:   currency,
		Sales:      len(txs),
		Amount:     Amount(txs),
		Categories: ByCategory(txs),
		Brackets:   TaxBrackets(inventory),
		Payments:   ByPaymentMethod(txs),
	}
	s.Products = Quantity(s.Categories)
	s.Taxes, s.TaxTotal = TaxSummary(s.Brackets, s.Categories)
	return s
}

// Empty reports whether there is nothing to summarize.
func (s Summary) Empty() bool { return s.Sales == 0 }

func (s Summary) money(d decimal.Decimal) string {
	return core.FormatCurrency(d, s.Currency)
}

// Title is the headline: products, sales and takings.
func (s Summary) Title() string {
	return fmt.Sprintf("%d %s | %d %s : %s",
		s.Products, plural(s.Products, "produit"),
		s.Sales, plural(s.Sales, "vente"),
		s.money(s.Amount))
}

// CategoryLine renders a category row, prefixed with its tax bracket.
func (s Summary) CategoryLine(r Row) string {
	line := RowLine(r, s.Currency)
	if b, ok := BracketFor(s.Brackets, r.Key); ok {
		line = "[T" + strconv.Itoa(b.Index) + "] " + line
	}
	return line
}

// Lines renders the summary text: category rows, a blank line, the tax
// block, a blank line and the payment rows.
func (s Summary) Lines() []string {
	var out []string
	for _, r := range s.Categories {
		out = append(out, s.CategoryLine(r))
	}
	out = append(out, "", TaxHeader)
	for _, t := range s.Taxes {
		out = append(out, fmt.Sprintf("T%d %s%%\n%s\n%s\n%s",
			t.Index, t.Rate.String(), s.money(t.HT), s.money(t.TVA), s.money(t.Total)))
	}
	out = append(out, fmt.Sprintf("TOTAL\n%s\n%s\n%s",
		s.money(s.TaxTotal.HT), s.money(s.TaxTotal.TVA), s.money(s.TaxTotal.Total)))
	out = append(out, "")
	for _, r := range s.Payments {
		out = append(out, RowLine(r, s.Currency))
	}
	return out
}

// Detail is the drill-down of one category, by product label.
type Detail struct {
	Category Row
	Products []Row
	Currency core.Currency
}

// CategoryDetail drills into category for the transactions paid in currency.
func CategoryDetail(txs []core.Transaction, category string, currency core.Currency) Detail {
	txs = FilterCurrency(Settled(txs), currency.Symbol)
	d := Detail{Category: Row{Key: category, Amount: decimal.Zero}, Currency: currency, Products: ProductDetail(txs, category)}
	for _, p := range d.Products {
		d.Category.Quantity += p.Quantity
		d.Category.Amount = d.Category.Amount.Add(p.Amount)
	}
	return d
}

// Title reads "<category> x<quantity>: <amount>".
func (d Detail) Title() string {
	return fmt.Sprintf("%s x%d: %s", d.Category.Key, d.Category.Quantity, core.FormatCurrency(d.Category.Amount, d.Currency))
}

func (d Detail) Lines() []string {
	out := make([]string, 0, len(d.Products))
	for _, p := range d.Products {
		out = append(out, RowLine(p, d.Currency))
	}
	return out
}

// RowLine renders "<key> x <quantity> ==> <amount>".
func RowLine(r Row, c core.Currency) string {
	return r.Key + " x " + strconv.Itoa(r.Quantity) + " ==> " + core.FormatCurrency(r.Amount, c)
}

// LedgerTitle summarizes a ledger as "<n> vente(s) : <amount per currency>".
func LedgerTitle(txs []core.Transaction) string {
	var parts []string
	for _, c := range Currencies(txs) {
		parts = append(parts, core.FormatCurrency(Amount(FilterCurrency(txs, c.Symbol)), c))
	}
	if len(parts) == 0 {
		parts = []string{"0"}
	}
	return fmt.Sprintf("%d %s : %s", len(txs), plural(len(txs), "vente"), strings.Join(parts, " + "))
}

func plural(n int, word string) string {
	if n > 1 {
		return word + "s"
	}
	return word
}
