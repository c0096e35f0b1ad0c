package http

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"slices"

	"caisse/internal/core"
	"caisse/internal/log"
	"caisse/internal/pricing"
	"caisse/internal/report"
	"caisse/internal/terminal"
)

var (
	errUnknownMethod = errors.New("unknown payment method")
	errNotFound      = errors.New("not found")
	errRejected      = errors.New("rejected")
	errNothingToShow = errors.New("nothing to show")
)

// maxBackspaces bounds one keys request.
const maxBackspaces = 64

func (s *Server) writeState(w http.ResponseWriter, status int, t *terminal.Terminal) {
	writeJSON(w, status, newStateView(t.State()))
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	s.withTill(func(t *terminal.Terminal) {
		s.writeState(w, http.StatusOK, t)
	})
}

// handleKeys applies, in order: clear, backspaces, then each typed key.
func (s *Server) handleKeys(w http.ResponseWriter, r *http.Request) {
	var req keysRequest
	if err := decodeJSON(w, r, &req); err != nil {
		fail(w, r, err)
		return
	}
	if req.Backspace < 0 || req.Backspace > maxBackspaces {
		fail(w, r, fmt.Errorf("%w: backspace must be between 0 and %d", errBadRequest, maxBackspaces))
		return
	}
	s.withTill(func(t *terminal.Terminal) {
		if req.Clear {
			t.ClearEntry()
		}
		for i := 0; i < req.Backspace; i++ {
			t.Backspace()
		}
		var resp keysResponse
		for _, k := range req.Keys {
			if t.Press(string(k)) {
				resp.Accepted++
			} else {
				resp.Rejected++
			}
		}
		resp.State = newStateView(t.State())
		writeJSON(w, http.StatusOK, resp)
	})
}

func (s *Server) handleMultiply(w http.ResponseWriter, r *http.Request) {
	s.withTill(func(t *terminal.Terminal) {
		t.Multiply()
		s.writeState(w, http.StatusOK, t)
	})
}

func (s *Server) handleMercurial(w http.ResponseWriter, r *http.Request) {
	var req mercurialRequest
	if err := decodeJSON(w, r, &req); err != nil {
		fail(w, r, err)
		return
	}
	kind, err := pricing.ParseKind(sanitizeInput(req.Kind))
	if err != nil {
		fail(w, r, fmt.Errorf("%w: %v", errBadRequest, err))
		return
	}
	s.withTill(func(t *terminal.Terminal) {
		t.SetMercurial(kind)
		s.writeState(w, http.StatusOK, t)
	})
}

func (s *Server) handleSelect(w http.ResponseWriter, r *http.Request) {
	var req selectRequest
	if err := decodeJSON(w, r, &req); err != nil {
		fail(w, r, err)
		return
	}
	category, label := sanitizeInput(req.Category), sanitizeInput(req.Label)
	s.withTill(func(t *terminal.Terminal) {
		if !t.Select(category, label) {
			fail(w, r, fmt.Errorf("%w: product %q in %q", errNotFound, label, category))
			return
		}
		s.writeState(w, http.StatusOK, t)
	})
}

func (s *Server) handleAddLine(w http.ResponseWriter, r *http.Request) {
	s.withTill(func(t *terminal.Terminal) {
		if !t.AddToCart() {
			fail(w, r, fmt.Errorf("%w: the entry needs a category and an amount", errRejected))
			return
		}
		s.writeState(w, http.StatusCreated, t)
	})
}

func (s *Server) handleDeleteLine(w http.ResponseWriter, r *http.Request) {
	i, err := pathIndex(r, "i")
	if err != nil {
		fail(w, r, err)
		return
	}
	s.withTill(func(t *terminal.Terminal) {
		if !t.DeleteLine(i) {
			fail(w, r, fmt.Errorf("%w: cart line %d", errNotFound, i))
			return
		}
		s.writeState(w, http.StatusOK, t)
	})
}

func (s *Server) handleClearCart(w http.ResponseWriter, r *http.Request) {
	s.withTill(func(t *terminal.Terminal) {
		t.ClearCart()
		s.writeState(w, http.StatusOK, t)
	})
}

func (s *Server) handlePay(w http.ResponseWriter, r *http.Request) {
	var req payRequest
	if err := decodeJSON(w, r, &req); err != nil {
		fail(w, r, err)
		return
	}
	method := sanitizeInput(req.Method)
	if method == "" {
		fail(w, r, terminal.ErrNoMethod)
		return
	}
	if !slices.Contains(s.methods, method) {
		fail(w, r, fmt.Errorf("%w: %q", errUnknownMethod, method))
		return
	}
	s.commit(w, r, func(ctx context.Context, t *terminal.Terminal) (core.Transaction, error) {
		return t.Pay(ctx, method)
	})
}

func (s *Server) handlePark(w http.ResponseWriter, r *http.Request) {
	s.commit(w, r, func(ctx context.Context, t *terminal.Terminal) (core.Transaction, error) {
		return t.Park(ctx)
	})
}

func (s *Server) commit(w http.ResponseWriter, r *http.Request, op func(context.Context, *terminal.Terminal) (core.Transaction, error)) {
	ctx := context.WithoutCancel(r.Context())
	s.withTill(func(t *terminal.Terminal) {
		tx, err := op(ctx, t)
		if err != nil {
			if tx.Amount.IsZero() {
				fail(w, r, err)
				return
			}
			// The sale is in the ledger; the next change rewrites the stored day.
			log.FromContext(ctx).WarnContext(ctx, "Sale not stored yet", log.FieldError, err)
		}
		// Commits insert at the head of the ledger.
		writeJSON(w, http.StatusCreated, payResponse{
			Transaction: newTransactionView(0, tx),
			State:       newStateView(t.State()),
		})
	})
}

func (s *Server) handleCurrency(w http.ResponseWriter, r *http.Request) {
	var req currencyRequest
	if err := decodeJSON(w, r, &req); err != nil {
		fail(w, r, err)
		return
	}
	s.withTill(func(t *terminal.Terminal) {
		if err := t.SwitchCurrency(req.Index); err != nil {
			fail(w, r, err)
			return
		}
		s.writeState(w, http.StatusOK, t)
	})
}

func (s *Server) handleTransactions(w http.ResponseWriter, r *http.Request) {
	s.withTill(func(t *terminal.Terminal) {
		writeJSON(w, http.StatusOK, newLedgerView(t.Today().String(), t.Transactions()))
	})
}

func (s *Server) handleEditTransaction(w http.ResponseWriter, r *http.Request) {
	i, err := pathIndex(r, "i")
	if err != nil {
		fail(w, r, err)
		return
	}
	ctx := context.WithoutCancel(r.Context())
	s.withTill(func(t *terminal.Terminal) {
		ok, err := t.EditTransaction(ctx, i)
		if err != nil && !ok {
			fail(w, r, err)
			return
		}
		if !ok {
			fail(w, r, fmt.Errorf("%w: transaction %d", errNotFound, i))
			return
		}
		s.writeState(w, http.StatusOK, t)
	})
}

func (s *Server) handleDeleteTransactionLine(w http.ResponseWriter, r *http.Request) {
	ti, err := pathIndex(r, "t")
	if err != nil {
		fail(w, r, err)
		return
	}
	li, err := pathIndex(r, "l")
	if err != nil {
		fail(w, r, err)
		return
	}
	ctx := context.WithoutCancel(r.Context())
	s.withTill(func(t *terminal.Terminal) {
		ok, err := t.DeleteTransactionLine(ctx, ti, li)
		if err != nil && !ok {
			fail(w, r, err)
			return
		}
		if !ok {
			fail(w, r, fmt.Errorf("%w: line %d of transaction %d", errNotFound, li, ti))
			return
		}
		writeJSON(w, http.StatusOK, newLedgerView(t.Today().String(), t.Transactions()))
	})
}

// day is a ledger with the catalog context needed to report on it.
type day struct {
	date       string
	txs        []core.Transaction
	current    core.Currency
	inventory  []core.CatalogItem
	currencies []core.Currency
}

// loadDay returns the ledger of date, today's when date is empty. Today's
// ledger comes straight from the terminal.
func (s *Server) loadDay(ctx context.Context, date string) (day, error) {
	if date != "" {
		if _, err := core.ParseDay(date); err != nil {
			return day{}, fmt.Errorf("%w: invalid date %q", errBadRequest, date)
		}
	}
	d := day{date: date}
	live := false
	s.withTill(func(t *terminal.Terminal) {
		today := t.Today().String()
		d.current, d.inventory, d.currencies = t.Currency(), t.Inventory(), t.Currencies()
		if date == "" || date == today {
			d.date, d.txs, live = today, t.Transactions(), true
		}
	})
	if !live && s.history != nil {
		d.txs = s.history.Load(ctx, date)
	}
	return d, nil
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	d, err := s.loadDay(r.Context(), sanitizeInput(r.URL.Query().Get("date")))
	if err != nil {
		fail(w, r, err)
		return
	}

	currencies := report.Currencies(report.Settled(d.txs))
	if len(currencies) == 0 {
		currencies = []core.Currency{d.current}
	}
	view := daySummaryView{Date: d.date}
	for _, c := range currencies {
		view.Summaries = append(view.Summaries, newSummaryView(report.Summarize(d.txs, d.inventory, c)))
	}
	writeJSON(w, http.StatusOK, view)
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	if s.history == nil {
		writeJSON(w, http.StatusOK, []string{})
		return
	}
	dates, err := s.history.ListDates(r.Context())
	if err != nil {
		fail(w, r, err)
		return
	}
	if dates == nil {
		dates = []string{}
	}
	writeJSON(w, http.StatusOK, dates)
}

// handleCategoryDetail drills into one category of a day. The currency
// query parameter picks the currency by symbol, the till's by default.
func (s *Server) handleCategoryDetail(w http.ResponseWriter, r *http.Request) {
	date := sanitizeInput(r.PathValue("date"))
	if date == "" {
		fail(w, r, fmt.Errorf("%w: missing date", errBadRequest))
		return
	}
	category := sanitizeInput(r.PathValue("category"))
	d, err := s.loadDay(r.Context(), date)
	if err != nil {
		fail(w, r, err)
		return
	}
	currency := d.current
	if symbol := sanitizeInput(r.URL.Query().Get("currency")); symbol != "" {
		i := slices.IndexFunc(d.currencies, func(c core.Currency) bool { return c.Symbol == symbol })
		if i < 0 {
			fail(w, r, fmt.Errorf("%w: %q", terminal.ErrUnknownCurrency, symbol))
			return
		}
		currency = d.currencies[i]
	}
	detail := report.CategoryDetail(d.txs, category, currency)
	writeJSON(w, http.StatusOK, detailView{
		Date:     d.date,
		Title:    detail.Title(),
		Products: newRowViews(detail.Products, currency),
	})
}
