package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/shopspring/decimal"

	"caisse/internal/cart"
	"caisse/internal/core"
	"caisse/internal/ledger"
	"caisse/internal/log"
	"caisse/internal/nav"
	"caisse/internal/report"
	"caisse/internal/screens"
	"caisse/internal/terminal"
)

// Amounts travel twice: as a plain decimal rounded to the currency and as
// the till's display text.
type (
	currencyView struct {
		Symbol      string `json:"symbol"`
		Label       string `json:"label"`
		MaxValue    string `json:"max_value"`
		MaxDecimals int32  `json:"max_decimals"`
	}

	lineView struct {
		Category string `json:"category"`
		Label    string `json:"label,omitempty"`
		Amount   string `json:"amount"`
		Quantity int    `json:"quantity"`
		Total    string `json:"total"`
		Text     string `json:"text"`
	}

	transactionView struct {
		Index    int        `json:"index"`
		Method   string     `json:"method"`
		Amount   string     `json:"amount"`
		Currency string     `json:"currency"`
		Date     string     `json:"date"`
		Waiting  bool       `json:"waiting"`
		Text     string     `json:"text"`
		Products []lineView `json:"products"`
	}

	selectionView struct {
		Category string `json:"category"`
		Label    string `json:"label"`
	}

	stateView struct {
		Day           string        `json:"day"`
		Currency      currencyView  `json:"currency"`
		CurrencyIndex int           `json:"currency_index"`
		Amount        string        `json:"amount"`
		Buffer        string        `json:"buffer"`
		Quantity      int           `json:"quantity"`
		Mercurial     string        `json:"mercurial"`
		EntryTotal    string        `json:"entry_total"`
		Selection     selectionView `json:"selection"`
		Lines         []lineView    `json:"lines"`
		CartTotal     string        `json:"cart_total"`
		Total         string        `json:"total"`
		TotalText     string        `json:"total_text"`
		Version       uint64        `json:"version"`
		Sales         int           `json:"sales"`
		LedgerTitle   string        `json:"ledger_title"`
		PendingWrites int           `json:"pending_writes"`
	}

	ledgerView struct {
		Day     string            `json:"day"`
		Title   string            `json:"title"`
		Waiting []transactionView `json:"waiting"`
		Settled []transactionView `json:"settled"`
	}

	rowView struct {
		Key      string `json:"key"`
		Quantity int    `json:"quantity"`
		Amount   string `json:"amount"`
		Text     string `json:"text"`
	}

	taxView struct {
		Index int    `json:"index"`
		Rate  string `json:"rate"`
		HT    string `json:"ht"`
		TVA   string `json:"tva"`
		Total string `json:"total"`
	}

	summaryView struct {
		Currency   currencyView `json:"currency"`
		Title      string       `json:"title"`
		Lines      []string     `json:"lines"`
		Categories []rowView    `json:"categories"`
		Taxes      []taxView    `json:"taxes"`
		TaxTotal   taxView      `json:"tax_total"`
		Payments   []rowView    `json:"payments"`
	}

	daySummaryView struct {
		Date      string        `json:"date"`
		Summaries []summaryView `json:"summaries"`
	}

	detailView struct {
		Date     string    `json:"date"`
		Title    string    `json:"title"`
		Products []rowView `json:"products"`
	}

	optionView struct {
		Text        string `json:"text"`
		Custom      bool   `json:"custom,omitempty"`
		Blank       bool   `json:"blank,omitempty"`
		Destructive bool   `json:"destructive,omitempty"`
	}

	popupView struct {
		Open     bool         `json:"open"`
		Title    string       `json:"title,omitempty"`
		Options  []optionView `json:"options,omitempty"`
		KeepOpen bool         `json:"keep_open,omitempty"`
		Path     []string     `json:"path"`
	}

	payResponse struct {
		Transaction transactionView `json:"transaction"`
		State       stateView       `json:"state"`
	}

	keysResponse struct {
		Accepted int       `json:"accepted"`
		Rejected int       `json:"rejected"`
		State    stateView `json:"state"`
	}

	errorResponse struct {
		Error string `json:"error"`
	}
)

func money(d decimal.Decimal, c core.Currency) string {
	return d.StringFixed(c.MaxDecimals)
}

func newCurrencyView(c core.Currency) currencyView {
	return currencyView{Symbol: c.Symbol, Label: c.Label, MaxValue: money(c.MaxValue, c), MaxDecimals: c.MaxDecimals}
}

func newLineViews(lines []core.LineItem) []lineView {
	out := make([]lineView, 0, len(lines))
	for _, l := range lines {
		out = append(out, lineView{
			Category: l.Category,
			Label:    l.Label,
			Amount:   money(l.Amount, l.Currency),
			Quantity: l.Quantity,
			Total:    money(l.Total(), l.Currency),
			Text:     screens.ProductLine(l),
		})
	}
	return out
}

func newTransactionView(i int, tx core.Transaction) transactionView {
	return transactionView{
		Index:    i,
		Method:   tx.Method,
		Amount:   money(tx.Amount, tx.Currency),
		Currency: tx.Currency.Symbol,
		Date:     tx.Date,
		Waiting:  tx.IsWaiting(),
		Text:     screens.TransactionLine(tx),
		Products: newLineViews(tx.Products),
	}
}

func newEntryViews(entries []ledger.Entry) []transactionView {
	out := make([]transactionView, 0, len(entries))
	for _, e := range entries {
		out = append(out, newTransactionView(e.Index, e.Transaction))
	}
	return out
}

func newLedgerView(day string, txs []core.Transaction) ledgerView {
	waiting, settled := ledger.Split(txs)
	return ledgerView{
		Day:     day,
		Title:   report.LedgerTitle(txs),
		Waiting: newEntryViews(waiting),
		Settled: newEntryViews(settled),
	}
}

func newStateView(st terminal.State) stateView {
	c := st.Currency
	return stateView{
		Day:           st.Day,
		Currency:      newCurrencyView(c),
		CurrencyIndex: st.CurrencyIndex,
		Amount:        st.Amount,
		Buffer:        st.Buffer,
		Quantity:      st.Quantity,
		Mercurial:     string(st.Mercurial),
		EntryTotal:    money(st.EntryTotal, c),
		Selection:     selectionView{Category: st.Selection.Category, Label: st.Selection.Label},
		Lines:         newLineViews(st.Lines),
		CartTotal:     money(st.CartTotal, c),
		Total:         money(st.Total, c),
		TotalText:     core.FormatCurrency(st.Total, c),
		Version:       st.Version,
		Sales:         len(st.Transactions),
		LedgerTitle:   report.LedgerTitle(st.Transactions),
		PendingWrites: st.PendingWrites,
	}
}

func newRowViews(rows []report.Row, c core.Currency) []rowView {
	out := make([]rowView, 0, len(rows))
	for _, r := range rows {
		out = append(out, rowView{Key: r.Key, Quantity: r.Quantity, Amount: money(r.Amount, c), Text: report.RowLine(r, c)})
	}
	return out
}

func newTaxView(t report.TaxRow, c core.Currency) taxView {
	return taxView{Index: t.Index, Rate: t.Rate.String(), HT: money(t.HT, c), TVA: money(t.TVA, c), Total: money(t.Total, c)}
}

func newSummaryView(s report.Summary) summaryView {
	c := s.Currency
	v := summaryView{
		Currency:   newCurrencyView(c),
		Title:      s.Title(),
		Lines:      s.Lines(),
		Categories: newRowViews(s.Categories, c),
		Payments:   newRowViews(s.Payments, c),
		TaxTotal:   newTaxView(s.TaxTotal, c),
	}
	v.Taxes = make([]taxView, 0, len(s.Taxes))
	for _, t := range s.Taxes {
		v.Taxes = append(v.Taxes, newTaxView(t, c))
	}
	return v
}

func newPopupView(p *popupPresenter, path []string) popupView {
	if path == nil {
		path = []string{}
	}
	if !p.open {
		return popupView{Path: path}
	}
	c := p.current
	v := popupView{Open: true, Title: c.Title, KeepOpen: c.KeepOpen, Path: path}
	for i, o := range c.Options {
		v.Options = append(v.Options, optionView{
			Text:        o.String(),
			Custom:      o.Kind == nav.KindCustom,
			Blank:       o.IsBlank(),
			Destructive: c.Destructive.Allows(i) && !o.IsBlank(),
		})
	}
	return v
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

// errorStatus maps domain errors to HTTP statuses.
func errorStatus(err error) int {
	switch {
	case errors.Is(err, errBadRequest),
		errors.Is(err, errUnknownMethod),
		errors.Is(err, terminal.ErrNoMethod),
		errors.Is(err, terminal.ErrUnknownCurrency):
		return http.StatusBadRequest
	case errors.Is(err, cart.ErrEmptyCart),
		errors.Is(err, terminal.ErrCartNotEmpty),
		errors.Is(err, errNothingToShow):
		return http.StatusConflict
	case errors.Is(err, errNotFound):
		return http.StatusNotFound
	case errors.Is(err, errRejected):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

// fail logs server side failures and answers with the mapped status.
func fail(w http.ResponseWriter, r *http.Request, err error) {
	status := errorStatus(err)
	if status >= http.StatusInternalServerError {
		log.FromContext(r.Context()).ErrorContext(r.Context(), "Request failed", log.FieldError, err)
		writeError(w, status, "internal error")
		return
	}
	writeError(w, status, err.Error())
}
