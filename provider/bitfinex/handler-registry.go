package bitfinex

import "sync"

// RawHandler receives the per-message delta/view of a single event.
type RawHandler func(msg interface{})

// ManagedHandler receives the accumulated entity state after an update.
type ManagedHandler func(state interface{})

type handlerFamily string

const (
	familyBook         handlerFamily = "book"
	familyPublicTrade  handlerFamily = "public-trade"
	familyPrivateTrade handlerFamily = "private-trade"
	familyOrder        handlerFamily = "order"
	familyWallet       handlerFamily = "wallet"
)

type managedEntity string

const (
	entityOrderbook managedEntity = "orderbook"
	entityWallet    managedEntity = "wallet"
	entityOrders    managedEntity = "orders"
	entityPositions managedEntity = "positions"
)

type rawKey struct {
	family handlerFamily
	pair   string
}

type managedKey struct {
	entity managedEntity
	pair   string
}

// HandlerRegistry holds the two independent handler namespaces: raw
// (per family, per pair) and managed (per entity, per pair for books).
// Each key holds at most one handler, the last registration wins.
type HandlerRegistry struct {
	mu      sync.Mutex
	raw     map[rawKey]RawHandler
	managed map[managedKey]ManagedHandler
}

func NewHandlerRegistry() *HandlerRegistry {
	return &HandlerRegistry{
		raw:     make(map[rawKey]RawHandler),
		managed: make(map[managedKey]ManagedHandler),
	}
}

func (r *HandlerRegistry) setRaw(family handlerFamily, pair string, h RawHandler) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.raw[rawKey{family, pair}] = h
}

func (r *HandlerRegistry) getRaw(family handlerFamily, pair string) (RawHandler, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	h, ok := r.raw[rawKey{family, pair}]
	return h, ok
}

func (r *HandlerRegistry) setManaged(entity managedEntity, pair string, h ManagedHandler) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.managed[managedKey{entity, pair}] = h
}

func (r *HandlerRegistry) getManaged(entity managedEntity, pair string) (ManagedHandler, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	h, ok := r.managed[managedKey{entity, pair}]
	return h, ok
}

// removePair drops the book-scoped handlers of a pair. Called from the
// unsubscribe path together with registry and book slot removal.
func (r *HandlerRegistry) removePair(pair string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.raw, rawKey{familyBook, pair})
	delete(r.managed, managedKey{entityOrderbook, pair})
}
