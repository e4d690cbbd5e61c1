package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWallet_UpdateSnapshot(t *testing.T) {
	w := NewWallet()

	// "ws" body: list of [type, currency, amount, available] rows
	w.Update([]interface{}{
		[]interface{}{"exchange", "BTC", 1.5, 1.5},
		[]interface{}{"exchange", "USD", 1000.0, 900.0},
		[]interface{}{"trading", "USD", 500.0, 500.0},
	})

	state := w.GetState().(*WalletSnapshot)
	assert.Len(t, state.Balances, 3, "all balances should be present")
	assert.Equal(t, WalletBalance{Type: "exchange", Currency: "BTC", Amount: 1.5, Available: 1.5}, state.Balances[0])
}

func TestWallet_UpdateSingleRow(t *testing.T) {
	w := NewWallet()

	w.Update([]interface{}{
		[]interface{}{"exchange", "USD", 1000.0, 900.0},
	})

	// "wu" body: one row, overwrites the same (type, currency) slot
	w.Update([]interface{}{"exchange", "USD", 1100.0, 1000.0})

	state := w.GetState().(*WalletSnapshot)
	assert.Len(t, state.Balances, 1, "update should overwrite, not append")
	assert.Equal(t, 1100.0, state.Balances[0].Amount, "Amount should reflect the update")
}

func TestWallet_Parse(t *testing.T) {
	w := NewWallet()

	parsed := w.Parse([]interface{}{"exchange", "USD", 1000.0, 900.0}).([]WalletBalance)
	assert.Equal(t, []WalletBalance{{Type: "exchange", Currency: "USD", Amount: 1000, Available: 900}}, parsed)

	state := w.GetState().(*WalletSnapshot)
	assert.Empty(t, state.Balances, "Parse should not touch state")
}

func TestWallet_MalformedRowsAreSkipped(t *testing.T) {
	w := NewWallet()

	w.Update([]interface{}{
		[]interface{}{"exchange", "BTC", "not-a-number"},
		[]interface{}{"exchange", "USD", 1000.0},
	})

	state := w.GetState().(*WalletSnapshot)
	assert.Len(t, state.Balances, 1, "only the valid row should be applied")
	assert.Equal(t, "USD", state.Balances[0].Currency)
}
