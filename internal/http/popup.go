package http

import (
	"context"
	"fmt"
	"net/http"

	"caisse/internal/nav"
	"caisse/internal/screens"
	"caisse/internal/terminal"
)

// popupPresenter keeps the choice on screen until the client acts on it.
type popupPresenter struct {
	current screens.Choice
	open    bool
}

func (p *popupPresenter) PresentChoice(c screens.Choice) {
	p.current = c
	p.open = true
}

func (p *popupPresenter) Close() {
	p.current = screens.Choice{}
	p.open = false
}

func (s *Server) writePopup(w http.ResponseWriter, status int) {
	writeJSON(w, status, newPopupView(s.popup, s.flows.Path()))
}

func (s *Server) handlePopup(w http.ResponseWriter, r *http.Request) {
	s.withTill(func(*terminal.Terminal) {
		s.writePopup(w, http.StatusOK)
	})
}

// handlePopupOpen starts a flow. The flows outlive the request, so they
// get a context that is never cancelled.
func (s *Server) handlePopupOpen(w http.ResponseWriter, r *http.Request) {
	ctx := context.WithoutCancel(r.Context())
	flow := r.PathValue("flow")
	s.withTill(func(*terminal.Terminal) {
		s.flows.Reset()
		shown := true
		switch flow {
		case "summary":
			s.flows.SummaryMenu(ctx)
		case "history":
			s.flows.HistoricalPicker(ctx, nil)
			shown = s.popup.open
		case "cart":
			shown = s.flows.CartReview(ctx, nil)
		case "ledger":
			shown = s.flows.LedgerReview(ctx, nil)
		case "currency":
			shown = s.flows.CurrencySwitch(ctx)
		case "mercurial":
			s.flows.MercurialChooser()
		case "clear":
			s.flows.ConfirmClear()
		default:
			fail(w, r, fmt.Errorf("%w: popup %q", errNotFound, flow))
			return
		}
		if !shown {
			fail(w, r, fmt.Errorf("%w: %s", errNothingToShow, flow))
			return
		}
		s.writePopup(w, http.StatusOK)
	})
}

func (s *Server) handlePopupSelect(w http.ResponseWriter, r *http.Request) {
	s.actOnPopup(w, r, func(c screens.Choice, i int, o nav.Option) error {
		if i < 0 || i >= len(c.Options) || o.IsBlank() {
			return fmt.Errorf("%w: option %d", errBadRequest, i)
		}
		c.OnSelect(i, o)
		return nil
	})
}

// handlePopupDestroy runs the option's secondary action. The client has
// already asked the operator to confirm.
func (s *Server) handlePopupDestroy(w http.ResponseWriter, r *http.Request) {
	s.actOnPopup(w, r, func(c screens.Choice, i int, o nav.Option) error {
		if !c.Destructive.Allows(i) || i >= len(c.Options) || o.IsBlank() {
			return fmt.Errorf("%w: option %d cannot be removed", errBadRequest, i)
		}
		c.Destructive.Action(i)
		return nil
	})
}

func (s *Server) handlePopupDismiss(w http.ResponseWriter, r *http.Request) {
	s.withTill(func(*terminal.Terminal) {
		if s.popup.open {
			s.popup.current.OnSelect(-1, nav.Option{})
		}
		s.writePopup(w, http.StatusOK)
	})
}

func (s *Server) actOnPopup(w http.ResponseWriter, r *http.Request, act func(screens.Choice, int, nav.Option) error) {
	var req popupRequest
	if err := decodeJSON(w, r, &req); err != nil {
		fail(w, r, err)
		return
	}
	s.withTill(func(*terminal.Terminal) {
		if !s.popup.open {
			fail(w, r, fmt.Errorf("%w: no popup open", errNothingToShow))
			return
		}
		c := s.popup.current
		var o nav.Option
		if req.Index >= 0 && req.Index < len(c.Options) {
			o = c.Options[req.Index]
		}
		if err := act(c, req.Index, o); err != nil {
			fail(w, r, err)
			return
		}
		s.writePopup(w, http.StatusOK)
	})
}
