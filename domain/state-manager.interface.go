package domain

// StateManager is the contract between the stream dispatcher and an entity
// state component (wallet, orders, positions, order book). The dispatcher
// never touches entity internals, only this surface.
//
// Update applies a raw feed payload to the accumulated state.
// Parse converts a raw payload to its typed view without touching state.
// GetState returns a copy of the accumulated state.
type StateManager interface {
	Update(raw interface{})
	Parse(raw interface{}) interface{}
	GetState() interface{}
}

// StateOptions is forwarded to state component constructors.
type StateOptions struct {
	// Keyed selects a map-shaped snapshot (keyed by id/symbol) instead of a list.
	Keyed bool
}

// SnapshotProvider serves on-demand order book snapshots outside of the
// streaming channel, e.g. from the venue`s rest api.
type SnapshotProvider interface {
	OrderBookSnapshot(symbol *MarketSymbol, limit int) (*OrderBookSnapshot, error)
}
