// Package report derives category, tax and payment summaries from
// transactions. Nothing here mutates its input.
package report

import (
	"github.com/shopspring/decimal"

	"caisse/internal/core"
)

// Row is one folded key with its accumulated quantity and amount.
type Row struct {
	Key      string
	Quantity int
	Amount   decimal.Decimal
}

type fold struct {
	rows  []Row
	index map[string]int
}

func (f *fold) add(key string, quantity int, amount decimal.Decimal) {
	if f.index == nil {
		f.index = map[string]int{}
	}
	if i, ok := f.index[key]; ok {
		f.rows[i].Quantity += quantity
		f.rows[i].Amount = f.rows[i].Amount.Add(amount)
		return
	}
	f.index[key] = len(f.rows)
	f.rows = append(f.rows, Row{Key: key, Quantity: quantity, Amount: amount})
}

// ByCategory folds every line by category, in first-seen order.
func ByCategory(txs []core.Transaction) []Row {
	var f fold
	for _, tx := range txs {
		for _, p := range tx.Products {
			f.add(p.Category, p.Quantity, p.Total())
		}
	}
	return f.rows
}

// ByPaymentMethod counts transactions and sums their amounts per method.
func ByPaymentMethod(txs []core.Transaction) []Row {
	var f fold
	for _, tx := range txs {
		if len(tx.Products) == 0 {
			continue
		}
		f.add(tx.Method, 1, tx.Amount)
	}
	return f.rows
}

// ProductDetail folds the lines of one category by label.
func ProductDetail(txs []core.Transaction, category string) []Row {
	var f fold
	for _, tx := range txs {
		for _, p := range tx.Products {
			if p.Category == category {
				f.add(p.Label, p.Quantity, p.Total())
			}
		}
	}
	return f.rows
}

// FilterCurrency keeps the transactions paid in the currency with symbol.
func FilterCurrency(txs []core.Transaction, symbol string) []core.Transaction {
	var out []core.Transaction
	for _, tx := range txs {
		if tx.Currency.Symbol == symbol {
			out = append(out, tx)
		}
	}
	return out
}

// Settled drops waiting tickets.
func Settled(txs []core.Transaction) []core.Transaction {
	var out []core.Transaction
	for _, tx := range txs {
		if !tx.IsWaiting() {
			out = append(out, tx)
		}
	}
	return out
}

// Currencies lists the currencies used by txs, first-seen order.
func Currencies(txs []core.Transaction) []core.Currency {
	seen := map[string]bool{}
	var out []core.Currency
	for _, tx := range txs {
		if seen[tx.Currency.Symbol] {
			continue
		}
		seen[tx.Currency.Symbol] = true
		out = append(out, tx.Currency)
	}
	return out
}

// Amount sums transaction amounts.
func Amount(txs []core.Transaction) decimal.Decimal {
	total := decimal.Zero
	for _, tx := range txs {
		total = total.Add(tx.Amount)
	}
	return total
}

// Quantity sums row quantities.
func Quantity(rows []Row) int {
	n := 0
	for _, r := range rows {
		n += r.Quantity
	}
	return n
}
