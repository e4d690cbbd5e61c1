package domain

import (
	"sort"
	"sync"
	"time"

	"github.com/spooky-finn/go-bitfinex-bridge/helpers"
)

type OrderBookSource string

const (
	OrderBookSource_Provider       OrderBookSource = "Provider"
	OrderBookSource_LocalOrderBook OrderBookSource = "LocalOrderBook"
)

// BookEntry is one price level of a bitfinex book: [price, count, amount].
// A positive amount is a bid, a negative one is an ask. A zero count removes
// the price level from the book.
type BookEntry struct {
	Price  float64
	Count  float64
	Amount float64
}

type OrderBookSnapshot struct {
	Source         OrderBookSource `json:"source"`
	Pair           string          `json:"pair"`
	Bids           []BookEntry     `json:"bids"`
	Asks           []BookEntry     `json:"asks"`
	LastUpdateTime int64           `json:"lastUpdateTime"`
}

type OrderBook struct {
	Symbol *MarketSymbol

	bids []BookEntry
	asks []BookEntry

	lastUpdateTime int64
	updateMx       *sync.Mutex
}

func NewOrderBook(symbol *MarketSymbol) *OrderBook {
	return &OrderBook{
		Symbol:   symbol,
		bids:     []BookEntry{},
		asks:     []BookEntry{},
		updateMx: &sync.Mutex{},
	}
}

// Update applies a raw book payload: either a snapshot (list of rows) or a
// single delta row. Payloads of any other shape are ignored.
func (ob *OrderBook) Update(raw interface{}) {
	entries := parseBookPayload(raw)
	if len(entries) == 0 {
		return
	}

	ob.updateMx.Lock()
	defer ob.updateMx.Unlock()

	for _, entry := range entries {
		ob.applyEntry(entry)
	}

	sort.Slice(ob.bids, func(i, j int) bool {
		return ob.bids[i].Price > ob.bids[j].Price
	})
	sort.Slice(ob.asks, func(i, j int) bool {
		return ob.asks[i].Price < ob.asks[j].Price
	})

	ob.lastUpdateTime = time.Now().Unix()
}

// Parse converts a raw book payload to its typed rows without touching state.
func (ob *OrderBook) Parse(raw interface{}) interface{} {
	return parseBookPayload(raw)
}

// GetState returns the full accumulated book.
func (ob *OrderBook) GetState() interface{} {
	return ob.TakeSnapshot(0)
}

func (ob *OrderBook) TakeSnapshot(limit int) *OrderBookSnapshot {
	ob.updateMx.Lock()
	defer ob.updateMx.Unlock()

	bids := make([]BookEntry, len(ob.bids))
	asks := make([]BookEntry, len(ob.asks))

	copy(bids, ob.bids)
	copy(asks, ob.asks)

	return &OrderBookSnapshot{
		Source:         OrderBookSource_LocalOrderBook,
		Pair:           ob.Symbol.Pair(),
		Bids:           ob.limitDepth(bids, limit),
		Asks:           ob.limitDepth(asks, limit),
		LastUpdateTime: ob.lastUpdateTime,
	}
}

func (ob *OrderBook) limitDepth(depth []BookEntry, limit int) []BookEntry {
	if limit > 0 && len(depth) > limit {
		return depth[:limit]
	}

	return depth
}

func (ob *OrderBook) applyEntry(entry BookEntry) {
	isBid := entry.Amount >= 0

	var depth []BookEntry
	if isBid {
		depth = ob.bids
	} else {
		depth = ob.asks
	}

	if entry.Count == 0 {
		// remove price level
		for i, level := range depth {
			if level.Price == entry.Price {
				depth[i] = depth[len(depth)-1]
				depth = depth[:len(depth)-1]
				break
			}
		}
	} else {
		// if price level exists, update it, otherwise add it
		updated := false
		for i, level := range depth {
			if level.Price == entry.Price {
				depth[i] = entry
				updated = true
				break
			}
		}

		if !updated {
			depth = append(depth, entry)
		}
	}

	if isBid {
		ob.bids = depth
	} else {
		ob.asks = depth
	}
}

func parseBookPayload(raw interface{}) []BookEntry {
	rows, ok := raw.([]interface{})
	if !ok || len(rows) == 0 {
		return nil
	}

	// a snapshot is a list of rows, a delta is a single row
	if _, ok := rows[0].([]interface{}); !ok {
		rows = []interface{}{rows}
	}

	entries := make([]BookEntry, 0, len(rows))
	for _, row := range rows {
		if entry, ok := parseBookEntry(row); ok {
			entries = append(entries, entry)
		}
	}

	return entries
}

func parseBookEntry(row interface{}) (BookEntry, bool) {
	fields, ok := row.([]interface{})
	if !ok || len(fields) < 3 {
		return BookEntry{}, false
	}

	price, okP := helpers.ToFloat64(fields[0])
	count, okC := helpers.ToFloat64(fields[1])
	amount, okA := helpers.ToFloat64(fields[2])
	if !okP || !okC || !okA {
		return BookEntry{}, false
	}

	return BookEntry{Price: price, Count: count, Amount: amount}, true
}
