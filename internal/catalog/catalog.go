// Package catalog supplies the read-only currency and inventory definitions
// consumed by the till.
package catalog

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/shopspring/decimal"

	"caisse/internal/core"
)

var ErrNoCurrency = errors.New("catalog defines no currency")

// Provider is the catalog collaborator.
type Provider interface {
	Currencies() []core.Currency
	Inventory() []core.CatalogItem
}

// Static is an in-memory Provider.
type Static struct {
	currencies []core.Currency
	inventory  []core.CatalogItem
}

func New(currencies []core.Currency, inventory []core.CatalogItem) *Static {
	return &Static{
		currencies: append([]core.Currency(nil), currencies...),
		inventory:  append([]core.CatalogItem(nil), inventory...),
	}
}

func (s *Static) Currencies() []core.Currency {
	return append([]core.Currency(nil), s.currencies...)
}

func (s *Static) Inventory() []core.CatalogItem {
	return append([]core.CatalogItem(nil), s.inventory...)
}

// FormatCurrency formats amount in c.
func FormatCurrency(amount decimal.Decimal, c core.Currency) string {
	return core.FormatCurrency(amount, c)
}

// Find returns the catalog item for sel. An empty label matches the first
// item of the category.
func Find(p Provider, sel core.Selection) (core.CatalogItem, bool) {
	for _, it := range p.Inventory() {
		if it.Category != sel.Category {
			continue
		}
		if sel.Label == "" || it.Label == sel.Label {
			return it, true
		}
	}
	return core.CatalogItem{}, false
}

// PriceOf returns the price of sel in the currency at currencyIndex.
func PriceOf(p Provider, sel core.Selection, currencyIndex int) decimal.Decimal {
	it, ok := Find(p, sel)
	if !ok {
		return decimal.Zero
	}
	return it.Price(currencyIndex)
}

// Categories returns the distinct categories in inventory order.
func Categories(p Provider) []string {
	seen := map[string]struct{}{}
	var out []string
	for _, it := range p.Inventory() {
		if _, ok := seen[it.Category]; ok {
			continue
		}
		seen[it.Category] = struct{}{}
		out = append(out, it.Category)
	}
	return out
}

// RateOf returns the tax rate of a category, zero when unknown.
func RateOf(p Provider, category string) decimal.Decimal {
	for _, it := range p.Inventory() {
		if it.Category == category {
			return it.Rate
		}
	}
	return decimal.Zero
}

type (
	fileCurrency struct {
		Symbol      string          `json:"symbol"`
		Label       string          `json:"label"`
		MaxValue    decimal.Decimal `json:"maxValue"`
		MaxDecimals int32           `json:"maxDecimals"`
	}

	fileProduct struct {
		Label  string            `json:"label"`
		Prices []decimal.Decimal `json:"prices"`
	}

	fileCategory struct {
		Category string          `json:"category"`
		Rate     decimal.Decimal `json:"rate"`
		Products []fileProduct   `json:"products"`
	}

	fileCatalog struct {
		Currencies []fileCurrency `json:"currencies"`
		Inventory  []fileCategory `json:"inventory"`
	}
)

// Parse decodes the grouped JSON catalog and flattens it into items.
func Parse(data []byte) (*Static, error) {
	var fc fileCatalog
	if err := json.Unmarshal(data, &fc); err != nil {
		return nil, fmt.Errorf("decode catalog: %w", err)
	}
	if len(fc.Currencies) == 0 {
		return nil, ErrNoCurrency
	}
	currencies := make([]core.Currency, 0, len(fc.Currencies))
	for i, c := range fc.Currencies {
		cur := core.Currency{Symbol: c.Symbol, Label: c.Label, MaxValue: c.MaxValue, MaxDecimals: c.MaxDecimals}
		if err := cur.Validate(); err != nil {
			return nil, fmt.Errorf("currency %d: %w", i, err)
		}
		currencies = append(currencies, cur)
	}
	var items []core.CatalogItem
	for _, g := range fc.Inventory {
		cat := strings.TrimSpace(g.Category)
		if cat == "" {
			return nil, core.ErrEmptyCategory
		}
		if len(g.Products) == 0 {
			items = append(items, core.CatalogItem{Category: cat, Rate: g.Rate})
			continue
		}
		for _, p := range g.Products {
			items = append(items, core.CatalogItem{
				Category: cat,
				Label:    strings.TrimSpace(p.Label),
				Prices:   p.Prices,
				Rate:     g.Rate,
			})
		}
	}
	return New(currencies, items), nil
}

// LoadFile reads a catalog from path. A missing file yields the built-in
// catalog; a malformed one is an error.
func LoadFile(path string) (*Static, error) {
	if strings.TrimSpace(path) == "" {
		return Default(), nil
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return Default(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("read catalog %s: %w", path, err)
	}
	return Parse(data)
}

// Default is the built-in catalog used when no file is configured.
func Default() *Static {
	d := decimal.RequireFromString
	euro := core.Currency{Symbol: "€", Label: "Euro", MaxValue: d("999.99"), MaxDecimals: 2}
	june := core.Currency{Symbol: "Ğ1", Label: "June", MaxValue: d("9999.99"), MaxDecimals: 2}
	return New(
		[]core.Currency{euro, june},
		[]core.CatalogItem{
			{Category: "Boissons", Label: "Cola", Prices: []decimal.Decimal{d("2.50"), d("2.50")}, Rate: d("20")},
			{Category: "Boissons", Label: "Eau", Prices: []decimal.Decimal{d("1.00"), d("1.00")}, Rate: d("20")},
			{Category: "Épicerie", Label: "Pain", Prices: []decimal.Decimal{d("1.20"), d("1.20")}, Rate: d("5.5")},
			{Category: "Épicerie", Label: "Fromage", Prices: []decimal.Decimal{d("4.80"), d("4.80")}, Rate: d("5.5")},
			{Category: "Livres", Label: "Livre", Prices: []decimal.Decimal{d("12.00"), d("12.00")}, Rate: d("5.5")},
			{Category: "Adhésion", Label: "Adhésion", Prices: []decimal.Decimal{d("10.00"), d("10.00")}, Rate: d("0")},
		},
	)
}
