package services

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"caisse/internal/amqp"
	"caisse/internal/catalog"
	"caisse/internal/core"
	"caisse/internal/history"
	"caisse/internal/ledger"
	"caisse/internal/report"
	"caisse/internal/sheets/memory"
	"caisse/internal/storage"
)

var euro = core.Currency{Symbol: "€", Label: "Euro", MaxValue: decimal.RequireFromString("999.99"), MaxDecimals: 2}

func sale(method, date string, lines ...core.LineItem) core.Transaction {
	tx := core.Transaction{Method: method, Date: date, Currency: euro, Products: lines}
	tx.Recompute()
	return tx
}

func line(category, label, amount string, qty int) core.LineItem {
	return core.LineItem{Category: category, Label: label, Amount: decimal.RequireFromString(amount), Quantity: qty, Currency: euro}
}

func seededHistory(t *testing.T) *history.Index {
	t.Helper()
	kv := storage.NewMemoryStore()
	data, err := ledger.Encode([]core.Transaction{
		sale(core.WaitingMethod, "11h00", line("Livres", "Livre", "12.00", 1)),
		sale("Espèces", "10h30", line("Épicerie", "Pain", "1.20", 1)),
		sale("Carte", "9h05", line("Boissons", "Cola", "2.50", 2)),
	})
	require.NoError(t, err)
	require.NoError(t, kv.Put(context.Background(), "Transactions 2024-01-09", data))
	return history.New(kv, "Transactions")
}

type fakePublisher struct {
	sent []*amqp.ZTicketMessage
	err  error
}

func (p *fakePublisher) PublishTicketZ(_ context.Context, msg *amqp.ZTicketMessage) error {
	if p.err != nil {
		return p.err
	}
	p.sent = append(p.sent, msg)
	return nil
}

func TestReportSkipsWaitingTickets(t *testing.T) {
	c := NewClosing(seededHistory(t), catalog.Default(), nil, nil)

	r, err := c.Report(context.Background(), "2024-01-09")
	require.NoError(t, err)
	assert.Len(t, r.Transactions, 2)
	require.Len(t, r.Summaries, 1)
	assert.Equal(t, 2, r.Summaries[0].Sales)

	lines := r.Lines()
	require.NotEmpty(t, lines)
	assert.Equal(t, "3 produits | 2 ventes : 6.20 €", lines[0])
	assert.Contains(t, lines, "Carte x 1 ==> 5.00 €")
}

func TestReportEmptyDay(t *testing.T) {
	c := NewClosing(seededHistory(t), catalog.Default(), nil, nil)

	r, err := c.Report(context.Background(), "2024-01-10")
	require.NoError(t, err)
	require.Len(t, r.Summaries, 1)
	assert.True(t, r.Summaries[0].Empty())
	assert.Equal(t, "€", r.Summaries[0].Currency.Symbol)

	_, err = c.Report(context.Background(), "10/01/2024")
	assert.ErrorIs(t, err, ErrInvalidDate)
}

func TestSendTicketZ(t *testing.T) {
	ctx := context.Background()
	pub := &fakePublisher{}
	c := NewClosing(seededHistory(t), catalog.Default(), pub, nil)

	require.NoError(t, c.SendTicketZ(ctx, "2024-01-09"))
	require.Len(t, pub.sent, 1)
	msg := pub.sent[0]
	assert.Equal(t, "2024-01-09", msg.Date)
	assert.Equal(t, "Ticket Z 2024-01-09", msg.Subject)
	assert.True(t, strings.HasPrefix(msg.Body, "Bonjour,\n\nCi-joint le Ticket Z du 2024-01-09 :\n\n3 produits | 2 ventes : 6.20 €\n"), msg.Body)
	assert.Contains(t, msg.Body, strings.Repeat("_", 50))
	assert.NotEmpty(t, msg.ID)

	pub.err = errors.New("broker down")
	err := c.SendTicketZ(ctx, "2024-01-09")
	assert.ErrorIs(t, err, pub.err)

	assert.NoError(t, NewClosing(seededHistory(t), catalog.Default(), nil, nil).SendTicketZ(ctx, "2024-01-09"))
}

func TestExportDayTriesEveryWriter(t *testing.T) {
	ctx := context.Background()
	broken := memory.New()
	broken.Err = errors.New("quota exceeded")
	store := memory.New()
	c := NewClosing(seededHistory(t), catalog.Default(), nil, nil, broken, store)

	refs, err := c.ExportDay(ctx, "2024-01-09")
	assert.ErrorIs(t, err, broken.Err)
	assert.Equal(t, []string{"mem:2024-01-09"}, refs)

	tables, ok := store.Tables("2024-01-09")
	require.True(t, ok)
	require.Len(t, tables, 3)
	assert.Equal(t, report.TableTransactions, tables[0].Name)
	assert.Len(t, tables[0].Rows, 2, "waiting tickets are not exported")
	assert.Len(t, tables[1].Rows, 2)

	assert.NoError(t, NewClosing(seededHistory(t), catalog.Default(), nil, nil, store).Export(ctx, "2024-01-09"))
	assert.Error(t, NewClosing(seededHistory(t), catalog.Default(), nil, nil).Export(ctx, "2024-01-09"))
}
