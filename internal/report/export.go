package report

import (
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"caisse/internal/core"
)

// Table names of the end-of-day workbook.
const (
	TableTransactions = "Transactions"
	TableProducts     = "Products"
	TableTax          = "Tax"
)

// Table is a named sheet: a header row and string cells.
type Table struct {
	Name   string
	Header []string
	Rows   [][]string
}

// ExportTables lays txs out as the Transactions, Products and Tax tables.
// The Tax table has one row per catalog category with sales, per currency.
func ExportTables(txs []core.Transaction, inventory []core.CatalogItem, currencies []core.Currency) []Table {
	transactions := Table{Name: TableTransactions, Header: []string{"ID", "Amount", "Method", "Time"}}
	products := Table{Name: TableProducts, Header: []string{"TransactionID", "Category", "Label", "UnitPrice", "Quantity", "Total"}}
	for i, tx := range txs {
		id := strconv.Itoa(i)
		transactions.Rows = append(transactions.Rows, []string{id, core.FormatCurrency(tx.Amount, tx.Currency), tx.Method, tx.Date})
		for _, p := range tx.Products {
			products.Rows = append(products.Rows, []string{
				id, p.Category, p.Label,
				core.FormatCurrency(p.Amount, p.Currency),
				strconv.Itoa(p.Quantity),
				core.FormatCurrency(p.Total(), p.Currency),
			})
		}
	}

	tax := Table{Name: TableTax, Header: []string{"Category", "Rate", "HT", "TVA", "TTC"}}
	seen := map[string]bool{}
	for _, it := range inventory {
		if seen[it.Category] {
			continue
		}
		seen[it.Category] = true
		for _, c := range distinctSymbols(currencies) {
			total := decimal.Zero
			for _, r := range ByCategory(FilterCurrency(txs, c.Symbol)) {
				if r.Key == it.Category {
					total = total.Add(r.Amount)
				}
			}
			if total.IsZero() {
				continue
			}
			ht, tva := Split(total, it.Rate)
			tax.Rows = append(tax.Rows, []string{
				it.Category, it.Rate.String() + "%",
				core.FormatCurrency(ht, c), core.FormatCurrency(tva, c), core.FormatCurrency(total, c),
			})
		}
	}
	return []Table{transactions, products, tax}
}

func distinctSymbols(currencies []core.Currency) []core.Currency {
	seen := map[string]bool{}
	var out []core.Currency
	for _, c := range currencies {
		if seen[c.Symbol] {
			continue
		}
		seen[c.Symbol] = true
		out = append(out, c)
	}
	return out
}

// ZTicketBody is the end-of-day mail: a greeting then the summary lines,
// multi-line cells flattened and blank lines drawn as rules.
func ZTicketBody(date string, lines []string) string {
	var b strings.Builder
	b.WriteString("Bonjour,\n\nCi-joint le Ticket Z du " + date + " :\n\n")
	for i, l := range lines {
		if i > 0 {
			b.WriteByte('\n')
		}
		if strings.TrimSpace(l) == "" {
			b.WriteString(strings.Repeat("_", 50))
			continue
		}
		b.WriteString(strings.ReplaceAll(l, "\n", "     "))
	}
	return b.String()
}
