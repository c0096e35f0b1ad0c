package ledger

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"caisse/internal/core"
)

var ErrMalformedKey = errors.New("malformed ledger key")

type (
	currencyRecord struct {
		Symbol      string  `json:"symbol"`
		Label       string  `json:"label"`
		MaxValue    float64 `json:"maxValue"`
		MaxDecimals int32   `json:"maxDecimals"`
	}

	productRecord struct {
		Category string         `json:"category"`
		Label    string         `json:"label"`
		Amount   float64        `json:"amount"`
		Quantity int            `json:"quantity"`
		Total    float64        `json:"total"`
		Currency currencyRecord `json:"currency"`
	}

	transactionRecord struct {
		Method   string          `json:"method"`
		Amount   float64         `json:"amount"`
		Currency currencyRecord  `json:"currency"`
		Date     string          `json:"date"`
		Products []productRecord `json:"products"`
	}
)

// Key returns the storage key of the ledger for day.
func Key(keyword string, day core.Day) string {
	return keyword + " " + day.String()
}

// ParseKey returns the date part of a ledger key.
func ParseKey(keyword, key string) (string, error) {
	prefix := keyword + " "
	if !strings.HasPrefix(key, prefix) {
		return "", fmt.Errorf("%w: %q", ErrMalformedKey, key)
	}
	date := strings.TrimSpace(strings.TrimPrefix(key, prefix))
	if date == "" || strings.Contains(date, " ") {
		return "", fmt.Errorf("%w: %q", ErrMalformedKey, key)
	}
	return date, nil
}

func toCurrencyRecord(c core.Currency) currencyRecord {
	return currencyRecord{Symbol: c.Symbol, Label: c.Label, MaxValue: c.MaxValue.InexactFloat64(), MaxDecimals: c.MaxDecimals}
}

func (r currencyRecord) toCurrency() core.Currency {
	return core.Currency{Symbol: r.Symbol, Label: r.Label, MaxValue: decimal.NewFromFloat(r.MaxValue), MaxDecimals: r.MaxDecimals}
}

// Encode serializes transactions as the persisted JSON array.
func Encode(txs []core.Transaction) (string, error) {
	records := make([]transactionRecord, 0, len(txs))
	for _, tx := range txs {
		rec := transactionRecord{
			Method:   tx.Method,
			Amount:   tx.Amount.InexactFloat64(),
			Currency: toCurrencyRecord(tx.Currency),
			Date:     tx.Date,
			Products: make([]productRecord, 0, len(tx.Products)),
		}
		for _, p := range tx.Products {
			rec.Products = append(rec.Products, productRecord{
				Category: p.Category,
				Label:    p.Label,
				Amount:   p.Amount.InexactFloat64(),
				Quantity: p.Quantity,
				Total:    p.Total().InexactFloat64(),
				Currency: toCurrencyRecord(p.Currency),
			})
		}
		records = append(records, rec)
	}
	data, err := json.Marshal(records)
	if err != nil {
		return "", fmt.Errorf("encode ledger: %w", err)
	}
	return string(data), nil
}

// Decode parses a persisted ledger. Transaction amounts are recomputed from
// their lines; lines with a zero quantity or amount are dropped, and so are
// transactions left without value.
func Decode(data string) ([]core.Transaction, error) {
	var records []transactionRecord
	if err := json.Unmarshal([]byte(data), &records); err != nil {
		return nil, fmt.Errorf("decode ledger: %w", err)
	}
	txs := make([]core.Transaction, 0, len(records))
	for _, rec := range records {
		tx := core.Transaction{
			Method:   rec.Method,
			Currency: rec.Currency.toCurrency(),
			Date:     rec.Date,
		}
		for _, p := range rec.Products {
			line := core.LineItem{
				Category: p.Category,
				Label:    p.Label,
				Amount:   decimal.NewFromFloat(p.Amount),
				Quantity: p.Quantity,
				Currency: p.Currency.toCurrency(),
			}
			if line.Quantity < 1 || !line.Amount.IsPositive() {
				continue
			}
			tx.Products = append(tx.Products, line)
		}
		if tx.Recompute().IsPositive() {
			txs = append(txs, tx)
		}
	}
	return txs, nil
}
