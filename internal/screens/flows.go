package screens

import (
	"context"
	"strconv"

	"caisse/internal/core"
	"caisse/internal/ledger"
	"caisse/internal/log"
	"caisse/internal/nav"
	"caisse/internal/pricing"
	"caisse/internal/report"
)

// Menu and popup labels.
const (
	MenuEmail       = "Email"
	MenuSpreadsheet = "Feuille de calcul"
	MenuHistory     = "Historique"
	MenuShow        = "Afficher"

	PayLabel         = "Payer"
	ParkLabel        = "Mettre en attente"
	ClearTicketLabel = "Effacer le ticket"
	PayTicketLabel   = "Payer le ticket"
	DeleteConfirm    = "Effacer ?"
	EditConfirm      = "Modifier ?"
	ResumeConfirm    = "Reprendre ?"
	Yes              = "Oui"
	No               = "Non"
)

// DefaultMethods are offered when no payment method is configured.
var DefaultMethods = []string{"Espèces", "Carte", "Chèque"}

type Config struct {
	Till      Till
	History   History
	Presenter Presenter
	Methods   []string
	Actions   Actions
	Logger    *log.Logger
}

// Flows drives the popups of one till. Like the till, it is owned by a
// single goroutine.
type Flows struct {
	till      Till
	history   History
	presenter Presenter
	methods   []string
	actions   Actions
	logger    *log.Logger
	stack     nav.Stack
}

func New(cfg Config) *Flows {
	if len(cfg.Methods) == 0 {
		cfg.Methods = DefaultMethods
	}
	if cfg.Logger == nil {
		cfg.Logger = log.Discard()
	}
	return &Flows{
		till:      cfg.Till,
		history:   cfg.History,
		presenter: cfg.Presenter,
		methods:   cfg.Methods,
		actions:   cfg.Actions,
		logger:    cfg.Logger.WithComponent(log.ComponentScreens),
	}
}

// Path lists the open views, outermost first.
func (f *Flows) Path() []string { return f.stack.Names() }

func (f *Flows) enter(name string, back nav.Continuation) {
	f.stack.Push(name, back)
}

// back leaves the current view for the one recorded beneath it.
func (f *Flows) back() {
	frame, ok := f.stack.Pop()
	if !ok || frame.Resume == nil {
		f.close()
		return
	}
	frame.Resume()
}

func (f *Flows) close() {
	f.stack.Reset()
	f.presenter.Close()
}

// Reset closes whatever flow is open.
func (f *Flows) Reset() { f.close() }

func (f *Flows) show(c Choice) { f.presenter.PresentChoice(c) }

// SummaryMenu is the Z-ticket menu of today.
func (f *Flows) SummaryMenu(ctx context.Context) {
	f.stack.Reset()
	f.enter("menu", f.close)
	f.renderMenu(ctx)
}

func (f *Flows) renderMenu(ctx context.Context) {
	date := f.till.Today().String()
	f.show(Choice{
		Title:    "TicketZ " + date,
		Options:  nav.Labels(MenuEmail, MenuSpreadsheet, MenuHistory, MenuShow),
		KeepOpen: true,
		OnSelect: func(i int, _ nav.Option) {
			switch i {
			case 0:
				f.run(ctx, "ticketz", f.actions.SendTicketZ, date)
				f.close()
			case 1:
				f.run(ctx, log.OpExport, f.actions.Export, date)
				f.close()
			case 2:
				f.HistoricalPicker(ctx, func() { f.renderMenu(ctx) })
			case 3:
				f.DaySummary(ctx, date, f.till.Transactions(), func() { f.renderMenu(ctx) })
			default:
				f.back()
			}
		},
	})
}

func (f *Flows) run(ctx context.Context, op string, action func(context.Context, string) error, date string) {
	if action == nil {
		f.logger.WarnContext(ctx, "Action not configured", log.FieldOperation, op)
		return
	}
	if err := action(ctx, date); err != nil {
		f.logger.ErrorContext(ctx, "Action failed", log.FieldOperation, op, log.FieldDate, date, log.FieldError, err)
	}
}

// HistoricalPicker lists stored days. Without any, back runs at once.
func (f *Flows) HistoricalPicker(ctx context.Context, back nav.Continuation) {
	dates, err := f.history.ListDates(ctx)
	if err != nil {
		f.logger.ErrorContext(ctx, "Listing history failed", log.FieldError, err)
	}
	if len(dates) == 0 {
		if back != nil {
			back()
		}
		return
	}
	f.enter("history", back)
	f.renderHistory(ctx, dates)
}

func (f *Flows) renderHistory(ctx context.Context, dates []string) {
	f.show(Choice{
		Title:    MenuHistory,
		Options:  nav.Labels(dates...),
		KeepOpen: true,
		OnSelect: func(i int, _ nav.Option) {
			if i < 0 || i >= len(dates) {
				f.back()
				return
			}
			date := dates[i]
			f.DaySummary(ctx, date, f.history.Load(ctx, date), func() { f.renderHistory(ctx, dates) })
		},
	})
}

// DaySummary shows the report of txs. Selecting a category drills into it.
func (f *Flows) DaySummary(ctx context.Context, date string, txs []core.Transaction, back nav.Continuation) {
	f.enter("summary "+date, back)
	f.renderSummary(ctx, date, txs)
}

func (f *Flows) renderSummary(ctx context.Context, date string, txs []core.Transaction) {
	s := report.Summarize(txs, f.till.Inventory(), f.till.Currency())
	f.show(Choice{
		Title:    s.Title(),
		Options:  nav.Labels(s.Lines()...),
		KeepOpen: true,
		OnSelect: func(i int, _ nav.Option) {
			if i < 0 {
				f.back()
				return
			}
			if i < len(s.Categories) {
				f.CategoryDetail(ctx, txs, s.Categories[i].Key, func() { f.renderSummary(ctx, date, txs) })
			}
		},
	})
}

// CategoryDetail lists the products sold in category.
func (f *Flows) CategoryDetail(ctx context.Context, txs []core.Transaction, category string, back nav.Continuation) {
	f.enter("category "+category, back)
	d := report.CategoryDetail(txs, category, f.till.Currency())
	f.show(Choice{
		Title:   d.Title(),
		Options: nav.Labels(d.Lines()...),
		OnSelect: func(int, nav.Option) {
			f.back()
		},
	})
}

// CartReview lists the cart lines with a pay entry. It reports false when
// the cart is empty.
func (f *Flows) CartReview(ctx context.Context, back nav.Continuation) bool {
	if len(f.till.CartLines()) == 0 {
		return false
	}
	f.enter("cart", back)
	f.renderCart(ctx)
	return true
}

func (f *Flows) renderCart(ctx context.Context) {
	lines := f.till.CartLines()
	currency := f.till.Currency()
	if len(lines) > 0 {
		currency = lines[0].Currency
	}
	payAt := len(lines) + 1
	f.show(Choice{
		Title:    strconv.Itoa(len(lines)) + " produits : " + core.FormatCurrency(f.till.CartTotal(), currency),
		Options:  nav.Labels(append(productLines(lines), "", PayLabel)...),
		KeepOpen: true,
		OnSelect: func(i int, _ nav.Option) {
			switch {
			case i < 0:
				f.back()
			case i == payAt:
				f.PaymentChooser(ctx, func() { f.renderCart(ctx) })
			}
		},
		Destructive: &Destructive{
			ConfirmTitle: func(int) string { return DeleteConfirm },
			MaxIndex:     len(lines),
			Action: func(i int) {
				f.till.DeleteLine(i)
				if len(f.till.CartLines()) > 0 {
					f.renderCart(ctx)
				} else {
					f.close()
				}
			},
		},
	})
}

// PaymentChooser offers the payment methods and parking the ticket.
func (f *Flows) PaymentChooser(ctx context.Context, back nav.Continuation) {
	f.enter("payment", back)
	parkAt := len(f.methods) + 1
	f.show(Choice{
		Title:   PayLabel + " " + core.FormatCurrency(f.till.CartTotal(), f.till.Currency()),
		Options: nav.Labels(append(append([]string(nil), f.methods...), "", ParkLabel)...),
		OnSelect: func(i int, _ nav.Option) {
			var err error
			switch {
			case i >= 0 && i < len(f.methods):
				_, err = f.till.Pay(ctx, f.methods[i])
			case i == parkAt:
				_, err = f.till.Park(ctx)
			default:
				f.back()
				return
			}
			if err != nil {
				f.logger.WarnContext(ctx, "Payment not recorded", log.FieldError, err)
			}
			f.close()
		},
	})
}

// LedgerReview lists today's transactions, waiting tickets first. It
// reports false when the ledger is empty.
func (f *Flows) LedgerReview(ctx context.Context, back nav.Continuation) bool {
	if len(f.till.Transactions()) == 0 {
		return false
	}
	f.enter("ledger", back)
	f.renderLedger(ctx)
	return true
}

func (f *Flows) renderLedger(ctx context.Context) {
	txs := f.till.Transactions()
	if len(txs) == 0 {
		f.close()
		return
	}
	waiting, settled := ledger.Split(txs)
	var (
		options []nav.Option
		indexes []int
	)
	for _, e := range waiting {
		options = append(options, nav.Custom(e.Transaction, TransactionLine(e.Transaction)))
		indexes = append(indexes, e.Index)
	}
	if len(waiting) > 0 && len(settled) > 0 {
		options = append(options, nav.Label(""))
		indexes = append(indexes, -1)
	}
	for _, e := range settled {
		options = append(options, nav.Custom(e.Transaction, TransactionLine(e.Transaction)))
		indexes = append(indexes, e.Index)
	}
	at := func(i int) int {
		if i < 0 || i >= len(indexes) {
			return -1
		}
		return indexes[i]
	}

	f.show(Choice{
		Title:    report.LedgerTitle(txs),
		Options:  options,
		KeepOpen: true,
		OnSelect: func(i int, _ nav.Option) {
			if i < 0 {
				f.back()
				return
			}
			if idx := at(i); idx >= 0 {
				f.BoughtProducts(ctx, idx, func() { f.renderLedger(ctx) })
			}
		},
		Destructive: &Destructive{
			ConfirmTitle: func(i int) string {
				if idx := at(i); idx >= 0 && txs[idx].IsWaiting() {
					return ResumeConfirm
				}
				return EditConfirm
			},
			Action: func(i int) {
				idx := at(i)
				if idx < 0 {
					return
				}
				if _, err := f.till.EditTransaction(ctx, idx); err != nil {
					f.logger.WarnContext(ctx, "Transaction not reopened",
						log.FieldTransactionIndex, idx, log.FieldError, err)
				}
				f.close()
			},
		},
	})
}

// BoughtProducts lists the lines of transaction index. Deleting the last
// valued line removes the transaction and goes back.
func (f *Flows) BoughtProducts(ctx context.Context, index int, back nav.Continuation) {
	txs := f.till.Transactions()
	if index < 0 || index >= len(txs) || !txs[index].Amount.IsPositive() {
		return
	}
	f.enter("products", back)
	f.renderProducts(ctx, index)
}

func (f *Flows) renderProducts(ctx context.Context, index int) {
	txs := f.till.Transactions()
	if index >= len(txs) {
		f.back()
		return
	}
	tx := txs[index]
	f.show(Choice{
		Title:    core.FormatCurrency(tx.Amount, tx.Currency) + " en " + tx.Method,
		Options:  nav.Labels(productLines(tx.Products)...),
		KeepOpen: true,
		OnSelect: func(i int, _ nav.Option) {
			if i < 0 {
				f.back()
			}
		},
		Destructive: &Destructive{
			ConfirmTitle: func(int) string { return DeleteConfirm },
			Action: func(line int) {
				before := len(f.till.Transactions())
				if _, err := f.till.DeleteTransactionLine(ctx, index, line); err != nil {
					f.logger.WarnContext(ctx, "Line not deleted", log.FieldLineIndex, line, log.FieldError, err)
				}
				if len(f.till.Transactions()) < before {
					f.back()
					return
				}
				f.renderProducts(ctx, index)
			},
		},
	})
}

// CurrencySwitch offers the other currencies. A pending sale must be
// cleared or paid first.
func (f *Flows) CurrencySwitch(ctx context.Context) bool {
	if len(f.till.Currencies()) < 2 {
		return false
	}
	f.stack.Reset()
	f.enter("currency", f.close)
	f.renderCurrencies(ctx)
	return true
}

func (f *Flows) renderCurrencies(ctx context.Context) {
	current := f.till.CurrencyIndex()
	var (
		labels  []string
		targets []int
	)
	for i, c := range f.till.Currencies() {
		if i != current {
			labels = append(labels, c.Label)
			targets = append(targets, i)
		}
	}
	f.show(Choice{
		Title:    "Changer " + f.till.Currency().Label,
		Options:  nav.Labels(labels...),
		KeepOpen: true,
		OnSelect: func(i int, _ nav.Option) {
			if i < 0 || i >= len(targets) {
				f.back()
				return
			}
			target := targets[i]
			if !f.till.CartTotal().IsZero() {
				f.enter("pending", func() { f.renderCurrencies(ctx) })
				f.renderPending(ctx, target)
				return
			}
			f.switchTo(ctx, target)
			f.close()
		},
	})
}

func (f *Flows) renderPending(ctx context.Context, target int) {
	f.show(Choice{
		Title:   "Ticket en cours...",
		Options: nav.Labels(ClearTicketLabel, PayTicketLabel),
		OnSelect: func(i int, _ nav.Option) {
			switch i {
			case 0:
				f.till.ClearCart()
				f.switchTo(ctx, target)
				f.close()
			case 1:
				f.PaymentChooser(ctx, func() { f.renderPending(ctx, target) })
			default:
				f.back()
			}
		},
	})
}

func (f *Flows) switchTo(ctx context.Context, target int) {
	if err := f.till.SwitchCurrency(target); err != nil {
		f.logger.WarnContext(ctx, "Currency not switched", log.FieldError, err)
	}
}

// MercurialChooser picks the bulk pricing scheme.
func (f *Flows) MercurialChooser() {
	labels := make([]string, len(pricing.Kinds))
	for i, k := range pricing.Kinds {
		labels[i] = string(k)
	}
	f.stack.Reset()
	f.show(Choice{
		Title:   "Mercuriale quadratique",
		Options: nav.Labels(labels...),
		OnSelect: func(i int, _ nav.Option) {
			if i >= 0 && i < len(pricing.Kinds) {
				f.till.SetMercurial(pricing.Kinds[i])
			}
			f.close()
		},
	})
}

// ConfirmClear asks before dropping the cart.
func (f *Flows) ConfirmClear() {
	f.stack.Reset()
	f.show(Choice{
		Title:   "Supprimer Total ?",
		Options: nav.Labels(Yes, No),
		OnSelect: func(i int, _ nav.Option) {
			if i == 0 {
				f.till.ClearCart()
			}
			f.close()
		},
	})
}
