package catalog

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"caisse/internal/core"
)

const sample = `{
  "currencies": [{"symbol": "€", "label": "Euro", "maxValue": 999.99, "maxDecimals": 2}],
  "inventory": [
    {"category": "Boissons", "rate": 20, "products": [
      {"label": "Cola", "prices": [2.5]},
      {"label": "Eau", "prices": ["1.00"]}
    ]},
    {"category": "Divers", "rate": 0}
  ]
}`

func TestParseFlattensGroups(t *testing.T) {
	c, err := Parse([]byte(sample))
	require.NoError(t, err)

	require.Len(t, c.Currencies(), 1)
	inv := c.Inventory()
	require.Len(t, inv, 3)
	assert.Equal(t, "Cola", inv[0].Label)
	assert.True(t, inv[1].Rate.Equal(decimal.NewFromInt(20)))
	assert.Equal(t, "Divers", inv[2].Category)
	assert.Empty(t, inv[2].Label)

	assert.Equal(t, []string{"Boissons", "Divers"}, Categories(c))
	assert.True(t, PriceOf(c, core.Selection{Category: "Boissons", Label: "Eau"}, 0).Equal(decimal.NewFromInt(1)))
	assert.True(t, PriceOf(c, core.Selection{Category: "Boissons", Label: "Eau"}, 3).IsZero())
	assert.True(t, PriceOf(c, core.Selection{Category: "Nope"}, 0).IsZero())
	assert.True(t, RateOf(c, "Divers").IsZero())
}

func TestParseErrors(t *testing.T) {
	_, err := Parse([]byte(`{"currencies": []}`))
	assert.ErrorIs(t, err, ErrNoCurrency)

	_, err = Parse([]byte(`{"currencies": [{"symbol": "", "maxValue": 1}]}`))
	assert.ErrorIs(t, err, core.ErrEmptySymbol)

	_, err = Parse([]byte(`not json`))
	assert.Error(t, err)
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()

	c, err := LoadFile(filepath.Join(dir, "missing.json"))
	require.NoError(t, err)
	assert.NotEmpty(t, c.Inventory(), "missing file falls back to the built-in catalog")

	path := filepath.Join(dir, "catalog.json")
	require.NoError(t, os.WriteFile(path, []byte(sample), 0o644))
	c, err = LoadFile(path)
	require.NoError(t, err)
	assert.Len(t, c.Inventory(), 3)
}

func TestStaticReturnsCopies(t *testing.T) {
	c := Default()
	inv := c.Inventory()
	inv[0].Label = "changed"
	assert.NotEqual(t, "changed", c.Inventory()[0].Label)
	assert.Equal(t, "2.50 €", FormatCurrency(decimal.RequireFromString("2.5"), c.Currencies()[0]))
}
