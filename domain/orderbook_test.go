package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func bookSymbol(t *testing.T) *MarketSymbol {
	t.Helper()

	symbol, err := NewMarketSymbol("BTC", "USD")
	if err != nil {
		t.Fatal(err)
	}
	return symbol
}

func TestOrderBook_UpdateSnapshot(t *testing.T) {
	ob := NewOrderBook(bookSymbol(t))

	// snapshot payload: list of [price, count, amount] rows
	ob.Update([]interface{}{
		[]interface{}{10000.0, 2.0, 1.5},
		[]interface{}{9900.0, 1.0, 2.0},
		[]interface{}{10100.0, 1.0, -1.0},
		[]interface{}{10200.0, 3.0, -2.5},
	})

	snapshot := ob.GetState().(*OrderBookSnapshot)

	assert.Equal(t, "BTCUSD", snapshot.Pair, "Pair should match")
	assert.Equal(t, []BookEntry{{10000, 2, 1.5}, {9900, 1, 2}}, snapshot.Bids, "Bids should be sorted best first")
	assert.Equal(t, []BookEntry{{10100, 1, -1}, {10200, 3, -2.5}}, snapshot.Asks, "Asks should be sorted best first")
}

func TestOrderBook_UpdateDelta(t *testing.T) {
	ob := NewOrderBook(bookSymbol(t))

	ob.Update([]interface{}{
		[]interface{}{10000.0, 2.0, 1.5},
		[]interface{}{10100.0, 1.0, -1.0},
	})

	// single delta row: replace the bid level
	ob.Update([]interface{}{10000.0, 3.0, 2.5})
	// zero count removes the ask level
	ob.Update([]interface{}{10100.0, 0.0, -1.0})
	// new bid level
	ob.Update([]interface{}{9900.0, 1.0, 1.0})

	snapshot := ob.GetState().(*OrderBookSnapshot)

	assert.Equal(t, []BookEntry{{10000, 3, 2.5}, {9900, 1, 1}}, snapshot.Bids, "Bids should match")
	assert.Empty(t, snapshot.Asks, "Asks should be empty after removal")
}

func TestOrderBook_UpdateIgnoresMalformedPayload(t *testing.T) {
	ob := NewOrderBook(bookSymbol(t))

	ob.Update("hb")
	ob.Update(nil)
	ob.Update([]interface{}{})

	snapshot := ob.GetState().(*OrderBookSnapshot)
	assert.Empty(t, snapshot.Bids, "Bids should stay empty")
	assert.Empty(t, snapshot.Asks, "Asks should stay empty")
}

func TestOrderBook_Parse(t *testing.T) {
	ob := NewOrderBook(bookSymbol(t))

	parsed := ob.Parse([]interface{}{10000.0, 2.0, 1.5})
	assert.Equal(t, []BookEntry{{10000, 2, 1.5}}, parsed, "Parse should return the typed rows")

	// Parse must not touch the accumulated state
	snapshot := ob.GetState().(*OrderBookSnapshot)
	assert.Empty(t, snapshot.Bids, "Bids should stay empty after Parse")
}

func TestOrderBook_TakeSnapshotLimit(t *testing.T) {
	ob := NewOrderBook(bookSymbol(t))

	ob.Update([]interface{}{
		[]interface{}{10000.0, 1.0, 1.0},
		[]interface{}{9900.0, 1.0, 1.0},
		[]interface{}{9800.0, 1.0, 1.0},
	})

	snapshot := ob.TakeSnapshot(2)
	assert.Len(t, snapshot.Bids, 2, "Bids should be limited to 2")
	assert.Equal(t, 10000.0, snapshot.Bids[0].Price, "Best bid should survive the limit")
}
