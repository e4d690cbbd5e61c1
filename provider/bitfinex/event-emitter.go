package bitfinex

import (
	"log"
	"os"
	"sync"

	"github.com/spooky-finn/go-bitfinex-bridge/config"
)

var emitterLogger = log.New(os.Stdout, "[event-emitter] ", log.LstdFlags)

// Disposer detaches one listener.
type Disposer func()

type listenerEntry struct {
	id int
	fn func(payload interface{})
}

// EventEmitter is an explicit observer list per event name, used for the
// connection lifecycle events (open, close, error) and the generic
// "message" event. Every registration returns a disposer so listeners can
// be torn down cleanly on reconnect.
type EventEmitter struct {
	mu        sync.Mutex
	nextID    int
	listeners map[string][]listenerEntry
}

func NewEventEmitter() *EventEmitter {
	return &EventEmitter{
		listeners: make(map[string][]listenerEntry),
	}
}

func (e *EventEmitter) On(event string, fn func(payload interface{})) Disposer {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.nextID++
	id := e.nextID
	e.listeners[event] = append(e.listeners[event], listenerEntry{id: id, fn: fn})

	return func() {
		e.mu.Lock()
		defer e.mu.Unlock()

		entries := e.listeners[event]
		for i, entry := range entries {
			if entry.id == id {
				e.listeners[event] = append(entries[:i], entries[i+1:]...)
				break
			}
		}
	}
}

// Emit invokes every listener of the event. A panicking listener is
// isolated so it cannot abort the dispatch of the current frame.
func (e *EventEmitter) Emit(event string, payload interface{}) {
	e.mu.Lock()
	entries := make([]listenerEntry, len(e.listeners[event]))
	copy(entries, e.listeners[event])
	e.mu.Unlock()

	for _, entry := range entries {
		invokeGuarded(event, func() {
			entry.fn(payload)
		})
	}
}

func invokeGuarded(tag string, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			if config.DebugMode {
				emitterLogger.Printf("recovered from panicking handler: event=%s err=%v", tag, r)
			}
		}
	}()

	fn()
}
