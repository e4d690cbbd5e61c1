package domain

import (
	"errors"
	"sync"
)

var ErrOrderBookNotFound = errors.New("order book not found")

// OrderBookStorage holds the managed book state component of every
// subscribed symbol. Books are created lazily on the first delta and removed
// together with the channel mapping on unsubscribe.
type OrderBookStorage struct {
	mu      sync.Mutex
	storage map[string]StateManager
}

func NewOrderBookStorage() *OrderBookStorage {
	return &OrderBookStorage{
		storage: make(map[string]StateManager),
	}
}

func (o *OrderBookStorage) Add(pair string, book StateManager) {
	o.mu.Lock()
	defer o.mu.Unlock()

	o.storage[pair] = book
}

func (o *OrderBookStorage) Get(pair string) (StateManager, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	book, ok := o.storage[pair]
	if !ok {
		return nil, ErrOrderBookNotFound
	}

	return book, nil
}

// GetOrCreate returns the book for the pair, creating it with the factory
// when absent.
func (o *OrderBookStorage) GetOrCreate(pair string, factory func() StateManager) StateManager {
	o.mu.Lock()
	defer o.mu.Unlock()

	if book, ok := o.storage[pair]; ok {
		return book
	}

	book := factory()
	o.storage[pair] = book
	return book
}

func (o *OrderBookStorage) Remove(pair string) {
	o.mu.Lock()
	defer o.mu.Unlock()

	delete(o.storage, pair)
}

func (o *OrderBookStorage) OrderBookCount() int {
	o.mu.Lock()
	defer o.mu.Unlock()

	return len(o.storage)
}
