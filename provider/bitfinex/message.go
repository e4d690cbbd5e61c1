package bitfinex

import (
	"encoding/json"

	"github.com/spooky-finn/go-bitfinex-bridge/helpers"
)

// MessageKind is the closed set of inbound frame variants. Every frame is
// decoded and classified exactly once, then dispatched by kind.
type MessageKind int

const (
	KindUnrecognized MessageKind = iota
	// KindControl is a keyed record carrying an "event" field.
	KindControl
	// KindAccountInfo is an array frame on the distinguished channel zero.
	KindAccountInfo
	// KindMarketData is an array frame on any other channel.
	KindMarketData
)

// InboundMessage is one classified frame.
type InboundMessage struct {
	Kind MessageKind
	Raw  []byte

	// Payload is the whole decoded frame, regardless of kind.
	Payload interface{}

	// Control holds the decoded record for KindControl.
	Control map[string]interface{}

	// Array holds the decoded sequence for KindAccountInfo and KindMarketData.
	Array []interface{}
}

// classifyFrame decodes a raw frame and assigns it a kind. A json failure
// is returned as *DecodeError; a decodable frame that matches no variant
// comes back as KindUnrecognized.
func classifyFrame(raw []byte) (*InboundMessage, error) {
	var payload interface{}
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, &DecodeError{Raw: raw, Err: err}
	}

	msg := &InboundMessage{
		Kind:    KindUnrecognized,
		Raw:     raw,
		Payload: payload,
	}

	switch frame := payload.(type) {
	case map[string]interface{}:
		if _, ok := frame["event"]; ok {
			msg.Kind = KindControl
			msg.Control = frame
		}
	case []interface{}:
		if len(frame) == 0 {
			break
		}
		if isChannelZero(frame[0]) {
			msg.Kind = KindAccountInfo
			msg.Array = frame
		} else if _, ok := helpers.ToInt64(frame[0]); ok {
			msg.Kind = KindMarketData
			msg.Array = frame
		}
	}

	return msg, nil
}

// The feed identifies the account-info stream by a leading literal zero,
// numeric or string.
func isChannelZero(v interface{}) bool {
	switch t := v.(type) {
	case float64:
		return t == 0
	case string:
		return t == "0"
	}
	return false
}
