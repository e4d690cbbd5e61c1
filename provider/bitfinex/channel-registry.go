package bitfinex

import "sync"

// ChannelType is the logical stream kind named in subscribe requests and acks.
type ChannelType string

const (
	ChannelBook   ChannelType = "book"
	ChannelTrades ChannelType = "trades"
	ChannelTicker ChannelType = "ticker"
)

// ChannelSubscription binds a transport-assigned numeric channel id to the
// logical subscription that produced it.
type ChannelSubscription struct {
	ChannelType ChannelType
	Pair        string
	ChanID      int64
	Ack         map[string]interface{}
}

// ChannelRegistry tracks which channel id the feed assigned to each
// (channel type, pair) subscription. Entries exist only after a
// "subscribed" control ack; a data frame referencing an id that is not here
// is dropped by the dispatcher.
type ChannelRegistry struct {
	mu       sync.Mutex
	channels map[ChannelType]map[int64]*ChannelSubscription
}

func NewChannelRegistry() *ChannelRegistry {
	return &ChannelRegistry{
		channels: make(map[ChannelType]map[int64]*ChannelSubscription),
	}
}

// RecordSubscriptionAck stores the mapping confirmed by a "subscribed"
// control message. A duplicate ack for the same channel id overwrites.
func (r *ChannelRegistry) RecordSubscriptionAck(chanType ChannelType, chanID int64, ack map[string]interface{}) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.channels[chanType]; !ok {
		r.channels[chanType] = make(map[int64]*ChannelSubscription)
	}

	r.channels[chanType][chanID] = &ChannelSubscription{
		ChannelType: chanType,
		Pair:        ackPair(ack),
		ChanID:      chanID,
		Ack:         ack,
	}
}

func (r *ChannelRegistry) Lookup(chanType ChannelType, chanID int64) (*ChannelSubscription, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	byID, ok := r.channels[chanType]
	if !ok {
		return nil, false
	}

	sub, ok := byID[chanID]
	return sub, ok
}

// LookupPair resolves the channel id that must accompany an unsubscribe
// request for the given pair.
func (r *ChannelRegistry) LookupPair(chanType ChannelType, pair string) (int64, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, sub := range r.channels[chanType] {
		if sub.Pair == pair {
			return sub.ChanID, true
		}
	}

	return 0, false
}

// Remove drops the registry entry for the pair. Removing an unknown pair is
// a no-op, so double-unsubscribe cannot fail.
func (r *ChannelRegistry) Remove(chanType ChannelType, pair string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for chanID, sub := range r.channels[chanType] {
		if sub.Pair == pair {
			delete(r.channels[chanType], chanID)
		}
	}
}

func ackPair(ack map[string]interface{}) string {
	if pair, ok := ack["pair"].(string); ok {
		return pair
	}
	if symbol, ok := ack["symbol"].(string); ok {
		return symbol
	}
	return ""
}
