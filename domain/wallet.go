package domain

import (
	"sort"
	"sync"

	"github.com/spooky-finn/go-bitfinex-bridge/helpers"
)

// WalletBalance is one row of the account wallet stream:
// [walletType, currency, amount, available].
type WalletBalance struct {
	Type      string  `json:"type"`
	Currency  string  `json:"currency"`
	Amount    float64 `json:"amount"`
	Available float64 `json:"available"`
}

type WalletSnapshot struct {
	Balances []WalletBalance `json:"balances"`
}

type walletKey struct {
	walletType string
	currency   string
}

type Wallet struct {
	mu       sync.Mutex
	balances map[walletKey]WalletBalance
}

func NewWallet() *Wallet {
	return &Wallet{
		balances: make(map[walletKey]WalletBalance),
	}
}

// Update applies a wallet snapshot ("ws" body, list of rows) or a single
// wallet update ("wu" body, one row).
func (w *Wallet) Update(raw interface{}) {
	rows := parseWalletPayload(raw)

	w.mu.Lock()
	defer w.mu.Unlock()

	for _, row := range rows {
		w.balances[walletKey{row.Type, row.Currency}] = row
	}
}

// Parse converts a raw wallet payload to its typed rows without touching state.
func (w *Wallet) Parse(raw interface{}) interface{} {
	return parseWalletPayload(raw)
}

func (w *Wallet) GetState() interface{} {
	w.mu.Lock()
	defer w.mu.Unlock()

	balances := make([]WalletBalance, 0, len(w.balances))
	for _, b := range w.balances {
		balances = append(balances, b)
	}

	sort.Slice(balances, func(i, j int) bool {
		if balances[i].Type != balances[j].Type {
			return balances[i].Type < balances[j].Type
		}
		return balances[i].Currency < balances[j].Currency
	})

	return &WalletSnapshot{Balances: balances}
}

func parseWalletPayload(raw interface{}) []WalletBalance {
	rows, ok := raw.([]interface{})
	if !ok || len(rows) == 0 {
		return nil
	}

	if _, ok := rows[0].([]interface{}); !ok {
		rows = []interface{}{rows}
	}

	balances := make([]WalletBalance, 0, len(rows))
	for _, row := range rows {
		if b, ok := parseWalletRow(row); ok {
			balances = append(balances, b)
		}
	}

	return balances
}

func parseWalletRow(row interface{}) (WalletBalance, bool) {
	fields, ok := row.([]interface{})
	if !ok || len(fields) < 3 {
		return WalletBalance{}, false
	}

	walletType, okT := fields[0].(string)
	currency, okC := fields[1].(string)
	amount, okA := helpers.ToFloat64(fields[2])
	if !okT || !okC || !okA {
		return WalletBalance{}, false
	}

	balance := WalletBalance{
		Type:     walletType,
		Currency: currency,
		Amount:   amount,
	}

	if len(fields) > 3 {
		if available, ok := helpers.ToFloat64(fields[3]); ok {
			balance.Available = available
		}
	}

	return balance, true
}
