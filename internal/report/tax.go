package report

import (
	"github.com/shopspring/decimal"

	"caisse/internal/core"
)

var hundred = decimal.NewFromInt(100)

// Bracket is a tax rate with the categories it applies to. Index is the
// position of the rate among the catalog's distinct rates.
type Bracket struct {
	Index      int
	Rate       decimal.Decimal
	Categories []string
}

// TaxRow is the tax breakdown of one bracket, or of the grand total.
type TaxRow struct {
	Index int
	Rate  decimal.Decimal
	HT    decimal.Decimal
	TVA   decimal.Decimal
	Total decimal.Decimal
}

// TaxBrackets groups catalog categories by rate, in catalog order.
func TaxBrackets(inventory []core.CatalogItem) []Bracket {
	var out []Bracket
	seenCat := map[string]bool{}
	for _, it := range inventory {
		i := bracketOf(out, it.Rate)
		if i < 0 {
			out = append(out, Bracket{Index: len(out), Rate: it.Rate})
			i = len(out) - 1
		}
		if !seenCat[it.Category] {
			seenCat[it.Category] = true
			out[i].Categories = append(out[i].Categories, it.Category)
		}
	}
	return out
}

func bracketOf(brackets []Bracket, rate decimal.Decimal) int {
	for i, b := range brackets {
		if b.Rate.Equal(rate) {
			return i
		}
	}
	return -1
}

// BracketFor returns the bracket holding category.
func BracketFor(brackets []Bracket, category string) (Bracket, bool) {
	for _, b := range brackets {
		for _, c := range b.Categories {
			if c == category {
				return b, true
			}
		}
	}
	return Bracket{}, false
}

// Split returns the tax-exclusive part and the tax of a tax-inclusive total.
func Split(total, rate decimal.Decimal) (ht, tva decimal.Decimal) {
	ht = total.Div(decimal.NewFromInt(1).Add(rate.Div(hundred)))
	return ht, total.Sub(ht)
}

// TaxSummary computes one row per bracket with sales, skipping brackets
// whose total is zero, plus the grand total row.
func TaxSummary(brackets []Bracket, categories []Row) ([]TaxRow, TaxRow) {
	amounts := make(map[string]decimal.Decimal, len(categories))
	for _, r := range categories {
		amounts[r.Key] = amounts[r.Key].Add(r.Amount)
	}
	var rows []TaxRow
	grand := TaxRow{Index: -1}
	for _, b := range brackets {
		total := decimal.Zero
		for _, c := range b.Categories {
			total = total.Add(amounts[c])
		}
		if total.IsZero() {
			continue
		}
		ht, tva := Split(total, b.Rate)
		rows = append(rows, TaxRow{Index: b.Index, Rate: b.Rate, HT: ht, TVA: tva, Total: total})
		grand.HT = grand.HT.Add(ht)
		grand.TVA = grand.TVA.Add(tva)
		grand.Total = grand.Total.Add(total)
	}
	return rows, grand
}
