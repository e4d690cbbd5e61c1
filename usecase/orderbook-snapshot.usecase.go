package usecase

import (
	"log"
	"os"

	"github.com/spooky-finn/go-bitfinex-bridge/domain"
)

var logger = log.New(os.Stdout, "[orderbook-snapshot-usecase] ", log.LstdFlags)

// ManagedBookSource exposes the live managed books of a stream session.
type ManagedBookSource interface {
	ManagedOrderBook(symbol *domain.MarketSymbol) (domain.StateManager, bool)
}

// OrderBookSnapshotUseCase serves order book snapshots: from the live
// managed book when the symbol has an active subscription, from the rest
// api otherwise.
type OrderBookSnapshotUseCase struct {
	stream  ManagedBookSource
	syncAPI domain.SnapshotProvider
}

func NewOrderBookSnapshotUseCase(stream ManagedBookSource, syncAPI domain.SnapshotProvider) *OrderBookSnapshotUseCase {
	return &OrderBookSnapshotUseCase{
		stream:  stream,
		syncAPI: syncAPI,
	}
}

func (o *OrderBookSnapshotUseCase) GetOrderBookSnapshot(symbol *domain.MarketSymbol, limit int) (*domain.OrderBookSnapshot, error) {
	book, ok := o.stream.ManagedOrderBook(symbol)
	if !ok {
		logger.Printf("no live orderbook for %s, falling back to the provider snapshot", symbol.String())
		return o.syncAPI.OrderBookSnapshot(symbol, limit)
	}

	if ob, ok := book.(*domain.OrderBook); ok {
		return ob.TakeSnapshot(limit), nil
	}

	// a caller-supplied book component: its state is the snapshot
	if snapshot, ok := book.GetState().(*domain.OrderBookSnapshot); ok {
		return snapshot, nil
	}

	return o.syncAPI.OrderBookSnapshot(symbol, limit)
}
