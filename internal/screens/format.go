package screens

import (
	"strconv"

	"caisse/internal/core"
)

// ProductLine renders "<label> : <unit>", followed by " x <q> = <total>"
// when more than one unit was sold.
func ProductLine(l core.LineItem) string {
	s := l.Label + " : " + core.FormatCurrency(l.Amount, l.Currency)
	if l.Quantity > 1 {
		s += " x " + strconv.Itoa(l.Quantity) + " = " + core.FormatCurrency(l.Total(), l.Currency)
	}
	return s
}

// TransactionLine renders "<hour> <method> <amount>".
func TransactionLine(tx core.Transaction) string {
	return tx.Date + " " + tx.Method + " " + core.FormatCurrency(tx.Amount, tx.Currency)
}

func productLines(lines []core.LineItem) []string {
	out := make([]string, len(lines))
	for i, l := range lines {
		out[i] = ProductLine(l)
	}
	return out
}
