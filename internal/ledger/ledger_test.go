package ledger

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"caisse/internal/cart"
	"caisse/internal/core"
	"caisse/internal/log"
	"caisse/internal/storage"
	"caisse/internal/turn"
)

var (
	euro  = core.Currency{Symbol: "€", Label: "Euro", MaxValue: decimal.RequireFromString("999.99"), MaxDecimals: 2}
	today = core.NewDay(2024, 6, 1)
	noon  = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func open(t *testing.T, kv storage.KV) (*Ledger, *turn.Queue) {
	t.Helper()
	q := turn.New()
	return Open(context.Background(), kv, q, "Transactions", today, log.Discard()), q
}

func stored(t *testing.T, kv storage.KV) ([]core.Transaction, bool) {
	t.Helper()
	data, err := kv.Get(context.Background(), Key("Transactions", today))
	if errors.Is(err, storage.ErrNotFound) {
		return nil, false
	}
	require.NoError(t, err)
	txs, err := Decode(data)
	require.NoError(t, err)
	return txs, true
}

func colaCart() *cart.Cart {
	c := cart.New(euro)
	c.AddLine("Boissons", "Cola", dec("2.50"), 1, euro)
	c.AddLine("Boissons", "Cola", dec("2.50"), 1, euro)
	return c
}

func TestPayCommitsTransaction(t *testing.T) {
	kv := storage.NewMemoryStore()
	l, q := open(t, kv)

	tx, err := l.Pay(context.Background(), colaCart(), "Carte", euro, noon)
	require.NoError(t, err)
	assert.Equal(t, "12h00", tx.Date)

	require.Equal(t, 1, l.Len())
	got := l.Transactions()[0]
	assert.Equal(t, "Carte", got.Method)
	assert.True(t, got.Amount.Equal(dec("5.00")))

	_, ok := stored(t, kv)
	assert.False(t, ok, "write waits for the next turn")
	q.Yield()
	saved, ok := stored(t, kv)
	require.True(t, ok)
	require.Len(t, saved, 1)
	assert.True(t, saved[0].Amount.Equal(dec("5")))
}

func TestPayEmptyCartIsRefused(t *testing.T) {
	l, q := open(t, storage.NewMemoryStore())
	_, err := l.Pay(context.Background(), cart.New(euro), "Carte", euro, noon)
	assert.ErrorIs(t, err, cart.ErrEmptyCart)
	assert.Zero(t, l.Len())
	assert.Zero(t, q.Pending())
}

func TestCommitRecomputesAmount(t *testing.T) {
	l, q := open(t, storage.NewMemoryStore())
	ctx := context.Background()

	empty := core.Transaction{Method: "Carte", Currency: euro, Amount: dec("3")}
	assert.ErrorIs(t, l.Commit(ctx, empty), cart.ErrEmptyCart)
	assert.Zero(t, q.Pending())

	tx := core.Transaction{Method: "Carte", Currency: euro, Amount: dec("99"), Products: []core.LineItem{
		{Category: "A", Label: "a", Amount: dec("1.50"), Quantity: 2, Currency: euro},
	}}
	require.NoError(t, l.Commit(ctx, tx))
	assert.True(t, l.Transactions()[0].Amount.Equal(dec("3")))
	assert.True(t, tx.Amount.Equal(dec("99")), "the caller's transaction is left alone")
}

func TestCommitNewestFirst(t *testing.T) {
	l, _ := open(t, storage.NewMemoryStore())
	ctx := context.Background()
	for _, m := range []string{"Espèces", "Carte"} {
		c := cart.New(euro)
		c.AddLine("A", "a", dec("1"), 1, euro)
		_, err := l.Pay(ctx, c, m, euro, noon)
		require.NoError(t, err)
	}
	assert.Equal(t, "Carte", l.Transactions()[0].Method)
}

func TestDeleteSoleLineRemovesTransaction(t *testing.T) {
	kv := storage.NewMemoryStore()
	l, q := open(t, kv)
	ctx := context.Background()
	_, err := l.Pay(ctx, colaCart(), "Carte", euro, noon)
	require.NoError(t, err)
	q.Yield()

	ok, err := l.DeleteLine(ctx, 0, 0)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Zero(t, l.Len())

	_, found := stored(t, kv)
	assert.False(t, found, "value cleared immediately")
	q.Drain()
	_, found = stored(t, kv)
	assert.False(t, found, "empty ledger is not written back")
}

func TestStaleWriteIsSkipped(t *testing.T) {
	kv := storage.NewMemoryStore()
	l, q := open(t, kv)
	ctx := context.Background()

	_, err := l.Pay(ctx, colaCart(), "Carte", euro, noon)
	require.NoError(t, err)
	_, err = l.DeleteLine(ctx, 0, 0)
	require.NoError(t, err)

	q.Drain()
	_, found := stored(t, kv)
	assert.False(t, found)
}

func TestDeleteLineRecomputes(t *testing.T) {
	kv := storage.NewMemoryStore()
	l, q := open(t, kv)
	ctx := context.Background()

	c := cart.New(euro)
	c.AddLine("Boissons", "Cola", dec("2.50"), 2, euro)
	c.AddLine("Épicerie", "Pain", dec("1.20"), 1, euro)
	_, err := l.Pay(ctx, c, "Carte", euro, noon)
	require.NoError(t, err)

	ok, err := l.DeleteLine(ctx, 0, 0)
	require.NoError(t, err)
	require.True(t, ok)
	tx := l.Transactions()[0]
	require.Len(t, tx.Products, 1)
	assert.Equal(t, "Cola", tx.Products[0].Label)
	assert.True(t, tx.Amount.Equal(core.SumLines(tx.Products)))
	assert.True(t, tx.Amount.Equal(dec("5")))

	q.Drain()
	saved, _ := stored(t, kv)
	require.Len(t, saved, 1)
	assert.True(t, saved[0].Amount.Equal(dec("5")))

	for _, idx := range [][2]int{{1, 0}, {0, 1}, {-1, 0}, {0, -1}} {
		ok, err := l.DeleteLine(ctx, idx[0], idx[1])
		assert.NoError(t, err)
		assert.False(t, ok)
	}
}

func TestEditBack(t *testing.T) {
	kv := storage.NewMemoryStore()
	l, q := open(t, kv)
	ctx := context.Background()

	_, err := l.Pay(ctx, colaCart(), "Carte", euro, noon)
	require.NoError(t, err)
	q.Yield()

	c := cart.New(euro)
	c.AddLine("Boissons", "Cola", dec("2.50"), 1, euro)
	ok, err := l.EditBack(ctx, 0, c)
	require.NoError(t, err)
	require.True(t, ok)

	assert.Zero(t, l.Len())
	require.Equal(t, 1, c.Len(), "lines merge into the cart")
	assert.Equal(t, 3, c.Lines()[0].Quantity)

	ok, err = l.EditBack(ctx, 0, c)
	assert.NoError(t, err)
	assert.False(t, ok)
}

func TestParkAndSplit(t *testing.T) {
	l, _ := open(t, storage.NewMemoryStore())
	ctx := context.Background()
	_, err := l.Pay(ctx, colaCart(), "Carte", euro, noon)
	require.NoError(t, err)
	_, err = l.Park(ctx, colaCart(), euro, noon)
	require.NoError(t, err)

	waiting, settled := Split(l.Transactions())
	require.Len(t, waiting, 1)
	require.Len(t, settled, 1)
	assert.Equal(t, 0, waiting[0].Index)
	assert.Equal(t, core.WaitingMethod, waiting[0].Method)
	assert.Equal(t, 1, settled[0].Index)
}

func TestOpenReloadsAndToleratesCorruption(t *testing.T) {
	kv := storage.NewMemoryStore()
	l, q := open(t, kv)
	_, err := l.Pay(context.Background(), colaCart(), "Carte", euro, noon)
	require.NoError(t, err)
	l.Flush()
	assert.Zero(t, q.Pending())

	again, _ := open(t, kv)
	assert.Equal(t, 1, again.Len())

	require.NoError(t, kv.Put(context.Background(), Key("Transactions", today), "{not json"))
	broken, _ := open(t, kv)
	assert.Zero(t, broken.Len())
}

func TestTransactionsIsSnapshot(t *testing.T) {
	l, _ := open(t, storage.NewMemoryStore())
	_, err := l.Pay(context.Background(), colaCart(), "Carte", euro, noon)
	require.NoError(t, err)

	snap := l.Transactions()
	snap[0].Products[0].Quantity = 99
	_, err = l.DeleteLine(context.Background(), 0, 0)
	require.NoError(t, err)
	assert.Len(t, snap, 1, "snapshot survives mutation of the ledger")
	assert.Zero(t, l.Len())
}

type failingKV struct{ storage.KV }

func (failingKV) Delete(context.Context, string) error { return errors.New("disk gone") }

func TestPersistErrorIsReturned(t *testing.T) {
	l, _ := open(t, failingKV{storage.NewMemoryStore()})
	_, err := l.Pay(context.Background(), colaCart(), "Carte", euro, noon)
	assert.Error(t, err)
	assert.Equal(t, 1, l.Len(), "in-memory ledger keeps the sale")
}
