package screens

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"caisse/internal/catalog"
	"caisse/internal/core"
	"caisse/internal/history"
	"caisse/internal/ledger"
	"caisse/internal/nav"
	"caisse/internal/pricing"
	"caisse/internal/storage"
	"caisse/internal/terminal"
)

type fakePresenter struct {
	last   Choice
	shown  int
	closed int
}

func (p *fakePresenter) PresentChoice(c Choice) {
	p.last = c
	p.shown++
}

func (p *fakePresenter) Close() { p.closed++ }

func (p *fakePresenter) pick(i int) {
	var opt nav.Option
	if i >= 0 && i < len(p.last.Options) {
		opt = p.last.Options[i]
	}
	p.last.OnSelect(i, opt)
}

func (p *fakePresenter) labels() []string {
	out := make([]string, len(p.last.Options))
	for i, o := range p.last.Options {
		out[i] = o.String()
	}
	return out
}

type fixture struct {
	kv    storage.KV
	till  *terminal.Terminal
	p     *fakePresenter
	flows *Flows
	sent  []string
}

func setup(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	fx := &fixture{kv: storage.NewMemoryStore(), p: &fakePresenter{}}
	now := func() time.Time { return time.Date(2024, 1, 9, 9, 5, 0, 0, time.Local) }
	till, err := terminal.Open(ctx, terminal.Deps{Store: fx.kv, Catalog: catalog.Default(), Clock: now})
	require.NoError(t, err)
	fx.till = till
	fx.flows = New(Config{
		Till:      till,
		History:   history.New(fx.kv, terminal.DefaultKeyword),
		Presenter: fx.p,
		Actions: Actions{
			SendTicketZ: func(_ context.Context, date string) error {
				fx.sent = append(fx.sent, "ticketz "+date)
				return nil
			},
			Export: func(_ context.Context, date string) error {
				fx.sent = append(fx.sent, "export "+date)
				return nil
			},
		},
	})
	return fx
}

func (fx *fixture) sell(t *testing.T, label string, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		require.True(t, fx.selectProduct(label))
		require.True(t, fx.till.AddToCart())
	}
}

func (fx *fixture) selectProduct(label string) bool {
	for _, item := range fx.till.Inventory() {
		if item.Label == label {
			return fx.till.Select(item.Category, label)
		}
	}
	return false
}

func seedDay(t *testing.T, kv storage.KV, date string) {
	t.Helper()
	euro := catalog.Default().Currencies()[0]
	tx := core.Transaction{Method: "Carte", Currency: euro, Date: "10h00", Products: []core.LineItem{
		{Category: "Boissons", Label: "Cola", Amount: decimal.RequireFromString("2.50"), Quantity: 2, Currency: euro},
	}}
	tx.Recompute()
	data, err := ledger.Encode([]core.Transaction{tx})
	require.NoError(t, err)
	require.NoError(t, kv.Put(context.Background(), "Transactions "+date, data))
}

func TestProductLine(t *testing.T) {
	euro := catalog.Default().Currencies()[0]
	l := core.LineItem{Label: "Cola", Amount: decimal.RequireFromString("2.5"), Quantity: 2, Currency: euro}
	assert.Equal(t, "Cola : 2.50 € x 2 = 5.00 €", ProductLine(l))
	l.Quantity = 1
	assert.Equal(t, "Cola : 2.50 €", ProductLine(l))

	tx := core.Transaction{Method: "Carte", Date: "9h05", Amount: decimal.RequireFromString("5"), Currency: euro}
	assert.Equal(t, "9h05 Carte 5.00 €", TransactionLine(tx))
}

func TestDestructiveAllows(t *testing.T) {
	var none *Destructive
	assert.False(t, none.Allows(0))
	d := &Destructive{MaxIndex: 2}
	assert.True(t, d.Allows(1))
	assert.False(t, d.Allows(2))
	assert.False(t, d.Allows(-1))
	assert.True(t, (&Destructive{}).Allows(9))
}

func TestCartReviewAndPay(t *testing.T) {
	fx := setup(t)
	ctx := context.Background()
	assert.False(t, fx.flows.CartReview(ctx, nil), "empty cart")

	fx.sell(t, "Cola", 1)
	fx.sell(t, "Pain", 1)
	require.True(t, fx.flows.CartReview(ctx, nil))
	assert.Equal(t, "2 produits : 3.70 €", fx.p.last.Title)
	assert.Equal(t, []string{"Pain : 1.20 €", "Cola : 2.50 €", "", PayLabel}, fx.p.labels())
	require.NotNil(t, fx.p.last.Destructive)
	assert.Equal(t, DeleteConfirm, fx.p.last.Destructive.ConfirmTitle(0))
	assert.False(t, fx.p.last.Destructive.Allows(3))

	fx.p.last.Destructive.Action(0)
	assert.Equal(t, "1 produits : 2.50 €", fx.p.last.Title)
	assert.Len(t, fx.till.CartLines(), 1)

	fx.p.pick(2)
	assert.Equal(t, []string{"cart", "payment"}, fx.flows.Path())
	assert.Equal(t, []string{"Espèces", "Carte", "Chèque", "", ParkLabel}, fx.p.labels())

	fx.p.pick(-1)
	assert.Equal(t, []string{"cart"}, fx.flows.Path(), "dismissal goes back to the cart")
	fx.p.pick(2)
	fx.p.pick(1)
	assert.Equal(t, 1, fx.p.closed)
	assert.Empty(t, fx.flows.Path())
	txs := fx.till.Transactions()
	require.Len(t, txs, 1)
	assert.Equal(t, "Carte", txs[0].Method)
}

func TestCartReviewDeleteLastCloses(t *testing.T) {
	fx := setup(t)
	fx.sell(t, "Cola", 1)
	require.True(t, fx.flows.CartReview(context.Background(), nil))
	fx.p.last.Destructive.Action(0)
	assert.Equal(t, 1, fx.p.closed)
	assert.Empty(t, fx.till.CartLines())
}

func TestParkFromPaymentChooser(t *testing.T) {
	fx := setup(t)
	fx.sell(t, "Pain", 1)
	fx.flows.PaymentChooser(context.Background(), nil)
	fx.p.pick(4)
	txs := fx.till.Transactions()
	require.Len(t, txs, 1)
	assert.True(t, txs[0].IsWaiting())
}

func TestLedgerReview(t *testing.T) {
	fx := setup(t)
	ctx := context.Background()
	assert.False(t, fx.flows.LedgerReview(ctx, nil))

	fx.sell(t, "Pain", 1)
	_, err := fx.till.Park(ctx)
	require.NoError(t, err)
	fx.sell(t, "Cola", 1)
	_, err = fx.till.Pay(ctx, "Carte")
	require.NoError(t, err)

	require.True(t, fx.flows.LedgerReview(ctx, nil))
	assert.Equal(t, "2 ventes : 3.70 €", fx.p.last.Title)
	assert.Equal(t, []string{"9h05 En attente 1.20 €", "", "9h05 Carte 2.50 €"}, fx.p.labels())
	assert.Equal(t, nav.KindCustom, fx.p.last.Options[0].Kind)
	assert.Equal(t, ResumeConfirm, fx.p.last.Destructive.ConfirmTitle(0))
	assert.Equal(t, EditConfirm, fx.p.last.Destructive.ConfirmTitle(2))

	fx.p.pick(1)
	assert.Equal(t, []string{"ledger"}, fx.flows.Path(), "separator does nothing")

	fx.p.pick(2)
	assert.Equal(t, []string{"ledger", "products"}, fx.flows.Path())
	assert.Equal(t, "2.50 € en Carte", fx.p.last.Title)

	fx.p.last.Destructive.Action(0)
	assert.Equal(t, []string{"ledger"}, fx.flows.Path(), "removed transaction goes back")
	assert.Equal(t, []string{"9h05 En attente 1.20 €"}, fx.p.labels())

	fx.p.last.Destructive.Action(0)
	assert.Equal(t, 1, fx.p.closed)
	assert.Empty(t, fx.till.Transactions())
	require.Len(t, fx.till.CartLines(), 1)
	assert.Equal(t, "Pain", fx.till.CartLines()[0].Label)
}

func TestBoughtProductsDeleteKeepsTransaction(t *testing.T) {
	fx := setup(t)
	ctx := context.Background()
	fx.sell(t, "Cola", 1)
	fx.sell(t, "Pain", 1)
	_, err := fx.till.Pay(ctx, "Espèces")
	require.NoError(t, err)

	var backs int
	fx.flows.BoughtProducts(ctx, 0, func() { backs++ })
	assert.Equal(t, "3.70 € en Espèces", fx.p.last.Title)
	fx.p.last.Destructive.Action(0)
	assert.Equal(t, "2.50 € en Espèces", fx.p.last.Title, "re-rendered from a fresh read")
	assert.Zero(t, backs)

	fx.p.last.Destructive.Action(0)
	assert.Equal(t, 1, backs)
	assert.Empty(t, fx.till.Transactions())
}

func TestSummaryMenuNavigation(t *testing.T) {
	fx := setup(t)
	ctx := context.Background()
	seedDay(t, fx.kv, "2024-01-08")
	seedDay(t, fx.kv, "2024-01-07")

	fx.flows.SummaryMenu(ctx)
	assert.Equal(t, "TicketZ 2024-01-09", fx.p.last.Title)
	assert.Equal(t, []string{MenuEmail, MenuSpreadsheet, MenuHistory, MenuShow}, fx.p.labels())

	fx.p.pick(2)
	assert.Equal(t, []string{"2024-01-08", "2024-01-07"}, fx.p.labels())
	fx.p.pick(0)
	assert.Equal(t, []string{"menu", "history", "summary 2024-01-08"}, fx.flows.Path())
	assert.Equal(t, "2 produits | 1 vente : 5.00 €", fx.p.last.Title)
	assert.Equal(t, "[T0] Boissons x 2 ==> 5.00 €", fx.p.labels()[0])

	fx.p.pick(0)
	assert.Equal(t, "Boissons x2: 5.00 €", fx.p.last.Title)
	assert.Equal(t, []string{"Cola x 2 ==> 5.00 €"}, fx.p.labels())

	fx.p.pick(-1)
	assert.Equal(t, "2 produits | 1 vente : 5.00 €", fx.p.last.Title)
	fx.p.pick(-1)
	assert.Equal(t, []string{"2024-01-08", "2024-01-07"}, fx.p.labels())
	fx.p.pick(-1)
	assert.Equal(t, "TicketZ 2024-01-09", fx.p.last.Title)
	assert.Equal(t, []string{"menu"}, fx.flows.Path())
	fx.p.pick(-1)
	assert.Equal(t, 1, fx.p.closed)
	assert.Empty(t, fx.flows.Path())
}

func TestSummaryMenuActions(t *testing.T) {
	fx := setup(t)
	ctx := context.Background()
	fx.flows.SummaryMenu(ctx)
	fx.p.pick(0)
	fx.flows.SummaryMenu(ctx)
	fx.p.pick(1)
	assert.Equal(t, []string{"ticketz 2024-01-09", "export 2024-01-09"}, fx.sent)
	assert.Equal(t, 2, fx.p.closed)

	fx.flows.SummaryMenu(ctx)
	fx.p.pick(2)
	assert.Equal(t, "TicketZ 2024-01-09", fx.p.last.Title, "no history falls back to the menu")
}

func TestCurrencySwitch(t *testing.T) {
	fx := setup(t)
	ctx := context.Background()
	require.True(t, fx.flows.CurrencySwitch(ctx))
	assert.Equal(t, "Changer Euro", fx.p.last.Title)
	assert.Equal(t, []string{"June"}, fx.p.labels())
	fx.p.pick(0)
	assert.Equal(t, "Ğ1", fx.till.Currency().Symbol)

	fx.sell(t, "Cola", 1)
	fx.flows.CurrencySwitch(ctx)
	fx.p.pick(0)
	assert.Equal(t, "Ticket en cours...", fx.p.last.Title)
	assert.Equal(t, []string{"currency", "pending"}, fx.flows.Path())

	fx.p.pick(-1)
	assert.Equal(t, "Changer June", fx.p.last.Title)
	fx.p.pick(0)
	fx.p.pick(0)
	assert.Equal(t, "€", fx.till.Currency().Symbol)
	assert.Empty(t, fx.till.CartLines())
}

func TestCurrencySwitchPayFirst(t *testing.T) {
	fx := setup(t)
	ctx := context.Background()
	fx.sell(t, "Cola", 1)
	fx.flows.CurrencySwitch(ctx)
	fx.p.pick(0)
	fx.p.pick(1)
	assert.Equal(t, []string{"currency", "pending", "payment"}, fx.flows.Path())
	fx.p.pick(0)
	require.Len(t, fx.till.Transactions(), 1)
	assert.Equal(t, "Espèces", fx.till.Transactions()[0].Method)
}

func TestMercurialChooser(t *testing.T) {
	fx := setup(t)
	fx.flows.MercurialChooser()
	assert.Equal(t, "Mercuriale quadratique", fx.p.last.Title)
	fx.p.pick(1)
	s := fx.till.State()
	assert.Equal(t, pricing.KindQuadratic, s.Mercurial)
	assert.Equal(t, pricing.AwaitingQuantity, s.Quantity)
}

func TestConfirmClear(t *testing.T) {
	fx := setup(t)
	fx.sell(t, "Cola", 2)
	fx.flows.ConfirmClear()
	fx.p.pick(1)
	assert.Len(t, fx.till.CartLines(), 1)
	fx.flows.ConfirmClear()
	fx.p.pick(0)
	assert.Empty(t, fx.till.CartLines())
	assert.Equal(t, 2, fx.p.closed)
}

func TestResetClosesOpenFlow(t *testing.T) {
	fx := setup(t)
	ctx := context.Background()
	seedDay(t, fx.kv, "2024-01-08")

	fx.flows.SummaryMenu(ctx)
	fx.p.pick(2)
	require.Equal(t, []string{"menu", "history"}, fx.flows.Path())

	fx.flows.Reset()
	assert.Empty(t, fx.flows.Path())
	assert.Equal(t, 1, fx.p.closed)
}
