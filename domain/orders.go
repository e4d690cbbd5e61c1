package domain

import (
	"sort"
	"sync"

	"github.com/spooky-finn/go-bitfinex-bridge/helpers"
)

// Order is one row of the account order stream:
// [id, gid, cid, symbol, amount, origAmount, type, status, price, avgPrice].
type Order struct {
	ID         int64   `json:"id"`
	Symbol     string  `json:"symbol"`
	Amount     float64 `json:"amount"`
	OrigAmount float64 `json:"origAmount"`
	Type       string  `json:"type"`
	Status     string  `json:"status"`
	Price      float64 `json:"price"`
	AvgPrice   float64 `json:"avgPrice"`
}

// Orders accumulates the open order set from "os" snapshots and
// "on"/"ou"/"oc" updates. Update takes the whole account-info message
// [0, code, body] so the two-letter code can drive the transition.
type Orders struct {
	mu    sync.Mutex
	keyed bool
	byID  map[int64]Order
}

func NewOrders(opts StateOptions) *Orders {
	return &Orders{
		keyed: opts.Keyed,
		byID:  make(map[int64]Order),
	}
}

func (o *Orders) Update(raw interface{}) {
	msg, ok := raw.([]interface{})
	if !ok || len(msg) < 3 {
		return
	}

	code, _ := msg[1].(string)
	orders := parseOrderPayload(msg[2])

	o.mu.Lock()
	defer o.mu.Unlock()

	switch code {
	case "os":
		o.byID = make(map[int64]Order)
		for _, order := range orders {
			o.byID[order.ID] = order
		}
	case "on", "ou":
		for _, order := range orders {
			o.byID[order.ID] = order
		}
	case "oc":
		for _, order := range orders {
			delete(o.byID, order.ID)
		}
	}
}

// Parse converts the message body to typed orders without touching state.
func (o *Orders) Parse(raw interface{}) interface{} {
	if msg, ok := raw.([]interface{}); ok && len(msg) >= 3 {
		if _, isCode := msg[1].(string); isCode {
			return parseOrderPayload(msg[2])
		}
	}

	return parseOrderPayload(raw)
}

// GetState returns the open orders: a map keyed by order id when the
// component was built with Keyed, a price-time ordered list otherwise.
func (o *Orders) GetState() interface{} {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.keyed {
		byID := make(map[int64]Order, len(o.byID))
		for id, order := range o.byID {
			byID[id] = order
		}
		return byID
	}

	orders := make([]Order, 0, len(o.byID))
	for _, order := range o.byID {
		orders = append(orders, order)
	}

	sort.Slice(orders, func(i, j int) bool {
		return orders[i].ID < orders[j].ID
	})

	return orders
}

func parseOrderPayload(raw interface{}) []Order {
	rows, ok := raw.([]interface{})
	if !ok || len(rows) == 0 {
		return nil
	}

	if _, ok := rows[0].([]interface{}); !ok {
		rows = []interface{}{rows}
	}

	orders := make([]Order, 0, len(rows))
	for _, row := range rows {
		if order, ok := parseOrderRow(row); ok {
			orders = append(orders, order)
		}
	}

	return orders
}

func parseOrderRow(row interface{}) (Order, bool) {
	fields, ok := row.([]interface{})
	if !ok || len(fields) < 4 {
		return Order{}, false
	}

	id, okID := helpers.ToInt64(fields[0])
	symbol, okSym := fields[3].(string)
	if !okID || !okSym {
		return Order{}, false
	}

	order := Order{ID: id, Symbol: symbol}

	if len(fields) > 4 {
		order.Amount, _ = helpers.ToFloat64(fields[4])
	}
	if len(fields) > 5 {
		order.OrigAmount, _ = helpers.ToFloat64(fields[5])
	}
	if len(fields) > 6 {
		order.Type, _ = fields[6].(string)
	}
	if len(fields) > 7 {
		order.Status, _ = fields[7].(string)
	}
	if len(fields) > 8 {
		order.Price, _ = helpers.ToFloat64(fields[8])
	}
	if len(fields) > 9 {
		order.AvgPrice, _ = helpers.ToFloat64(fields[9])
	}

	return order, true
}
