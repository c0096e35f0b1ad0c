package core

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var euro = Currency{Symbol: "€", Label: "Euro", MaxValue: decimal.RequireFromString("999.99"), MaxDecimals: 2}

func TestLineItemTotalAndValidate(t *testing.T) {
	l := LineItem{Category: "Boissons", Label: "Cola", Amount: decimal.RequireFromString("2.50"), Quantity: 3, Currency: euro}
	assert.True(t, l.Total().Equal(decimal.RequireFromString("7.50")))
	require.NoError(t, l.Validate())

	tests := []struct {
		name string
		mut  func(*LineItem)
		want error
	}{
		{"empty category", func(l *LineItem) { l.Category = " " }, ErrEmptyCategory},
		{"zero amount", func(l *LineItem) { l.Amount = decimal.Zero }, ErrInvalidAmount},
		{"zero quantity", func(l *LineItem) { l.Quantity = 0 }, ErrInvalidQuantity},
		{"sentinel quantity", func(l *LineItem) { l.Quantity = -1 }, ErrInvalidQuantity},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := l
			tt.mut(&c)
			assert.ErrorIs(t, c.Validate(), tt.want)
		})
	}
}

func TestTransactionRecomputeAndClone(t *testing.T) {
	tx := Transaction{
		Method:   "Carte",
		Currency: euro,
		Products: []LineItem{
			{Category: "A", Label: "a", Amount: decimal.RequireFromString("1.10"), Quantity: 2},
			{Category: "B", Label: "b", Amount: decimal.RequireFromString("0.30"), Quantity: 1},
		},
	}
	assert.True(t, tx.Recompute().Equal(decimal.RequireFromString("2.50")))

	c := tx.Clone()
	c.Products[0].Quantity = 9
	assert.Equal(t, 2, tx.Products[0].Quantity)
	assert.False(t, tx.IsWaiting())
	tx.Method = WaitingMethod
	assert.True(t, tx.IsWaiting())
	assert.Nil(t, CloneAll(nil))
}

func TestDay(t *testing.T) {
	d, err := ParseDay("2024-03-09")
	require.NoError(t, err)
	assert.Equal(t, "2024-03-09", d.String())
	assert.True(t, d.Equal(NewDay(2024, 3, 9)))
	assert.True(t, DayOf(time.Date(2024, 3, 9, 23, 59, 0, 0, time.Local)).Equal(d))

	_, err = ParseDay("09/03/2024")
	assert.Error(t, err)
}

func TestFormatHour(t *testing.T) {
	assert.Equal(t, "9h05", FormatHour(time.Date(2024, 1, 1, 9, 5, 0, 0, time.UTC)))
	assert.Equal(t, "17h30", FormatHour(time.Date(2024, 1, 1, 17, 30, 0, 0, time.UTC)))
}

func TestCurrencyValidate(t *testing.T) {
	require.NoError(t, euro.Validate())
	assert.ErrorIs(t, Currency{MaxValue: decimal.NewFromInt(1)}.Validate(), ErrEmptySymbol)
	assert.ErrorIs(t, Currency{Symbol: "€"}.Validate(), ErrInvalidMaxValue)
}

func TestCatalogItemPrice(t *testing.T) {
	i := CatalogItem{Prices: []decimal.Decimal{decimal.NewFromInt(2)}}
	assert.True(t, i.Price(0).Equal(decimal.NewFromInt(2)))
	assert.True(t, i.Price(1).IsZero())
	assert.True(t, i.Price(-1).IsZero())
}
