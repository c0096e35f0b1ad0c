package ledger

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"caisse/internal/core"
)

func TestKey(t *testing.T) {
	k := Key("Transactions", core.NewDay(2024, 1, 31))
	assert.Equal(t, "Transactions 2024-01-31", k)

	date, err := ParseKey("Transactions", k)
	require.NoError(t, err)
	assert.Equal(t, "2024-01-31", date)

	for _, bad := range []string{"Other 2024-01-31", "Transactions ", "Transactions a b"} {
		_, err := ParseKey("Transactions", bad)
		assert.ErrorIs(t, err, ErrMalformedKey, bad)
	}
}

func TestEncodeShape(t *testing.T) {
	tx := core.Transaction{
		Method:   "Carte",
		Currency: euro,
		Date:     "9h05",
		Products: []core.LineItem{{Category: "Boissons", Label: "Cola", Amount: dec("2.5"), Quantity: 2, Currency: euro}},
	}
	tx.Recompute()
	data, err := Encode([]core.Transaction{tx})
	require.NoError(t, err)

	var raw []map[string]any
	require.NoError(t, json.Unmarshal([]byte(data), &raw))
	require.Len(t, raw, 1)
	assert.Equal(t, "Carte", raw[0]["method"])
	assert.Equal(t, 5.0, raw[0]["amount"])
	assert.Equal(t, "9h05", raw[0]["date"])
	cur := raw[0]["currency"].(map[string]any)
	assert.Equal(t, "€", cur["symbol"])
	assert.Equal(t, 999.99, cur["maxValue"])
	assert.Equal(t, 2.0, cur["maxDecimals"])
	p := raw[0]["products"].([]any)[0].(map[string]any)
	assert.Equal(t, 5.0, p["total"])
	assert.Equal(t, 2.0, p["quantity"])
}

func TestDecodeNormalizes(t *testing.T) {
	data := `[
	  {"method":"Carte","amount":123,"currency":{"symbol":"€","label":"Euro","maxValue":999.99,"maxDecimals":2},"date":"9h05",
	   "products":[{"category":"A","label":"a","amount":1.1,"quantity":3,"total":3.3,"currency":{"symbol":"€"}},
	               {"category":"B","label":"b","amount":2,"quantity":0,"total":0,"currency":{"symbol":"€"}}]},
	  {"method":"Espèces","amount":0,"currency":{"symbol":"€"},"date":"9h06","products":[]}
	]`
	txs, err := Decode(data)
	require.NoError(t, err)
	require.Len(t, txs, 1, "valueless transaction dropped")
	require.Len(t, txs[0].Products, 1, "zero-quantity line dropped")
	assert.True(t, txs[0].Amount.Equal(dec("3.3")))

	txs, err = Decode("null")
	require.NoError(t, err)
	assert.Empty(t, txs)

	_, err = Decode("{")
	assert.Error(t, err)
}
