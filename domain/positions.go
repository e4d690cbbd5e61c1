package domain

import (
	"sort"
	"sync"

	"github.com/spooky-finn/go-bitfinex-bridge/helpers"
)

// Position is one row of the account position stream:
// [symbol, status, amount, basePrice, marginFunding, fundingType, pl].
type Position struct {
	Symbol    string  `json:"symbol"`
	Status    string  `json:"status"`
	Amount    float64 `json:"amount"`
	BasePrice float64 `json:"basePrice"`
	PL        float64 `json:"pl"`
}

// Positions accumulates open positions from "ps" snapshots and
// "pn"/"pu"/"pc" updates. Update takes the whole account-info message
// [0, code, body].
type Positions struct {
	mu       sync.Mutex
	bySymbol map[string]Position
}

func NewPositions() *Positions {
	return &Positions{
		bySymbol: make(map[string]Position),
	}
}

func (p *Positions) Update(raw interface{}) {
	msg, ok := raw.([]interface{})
	if !ok || len(msg) < 3 {
		return
	}

	code, _ := msg[1].(string)
	positions := parsePositionPayload(msg[2])

	p.mu.Lock()
	defer p.mu.Unlock()

	switch code {
	case "ps":
		p.bySymbol = make(map[string]Position)
		for _, pos := range positions {
			p.bySymbol[pos.Symbol] = pos
		}
	case "pn", "pu":
		for _, pos := range positions {
			p.bySymbol[pos.Symbol] = pos
		}
	case "pc":
		for _, pos := range positions {
			delete(p.bySymbol, pos.Symbol)
		}
	}
}

// Parse converts the message body to typed positions without touching state.
func (p *Positions) Parse(raw interface{}) interface{} {
	if msg, ok := raw.([]interface{}); ok && len(msg) >= 3 {
		if _, isCode := msg[1].(string); isCode {
			return parsePositionPayload(msg[2])
		}
	}

	return parsePositionPayload(raw)
}

func (p *Positions) GetState() interface{} {
	p.mu.Lock()
	defer p.mu.Unlock()

	positions := make([]Position, 0, len(p.bySymbol))
	for _, pos := range p.bySymbol {
		positions = append(positions, pos)
	}

	sort.Slice(positions, func(i, j int) bool {
		return positions[i].Symbol < positions[j].Symbol
	})

	return positions
}

func parsePositionPayload(raw interface{}) []Position {
	rows, ok := raw.([]interface{})
	if !ok || len(rows) == 0 {
		return nil
	}

	if _, ok := rows[0].([]interface{}); !ok {
		rows = []interface{}{rows}
	}

	positions := make([]Position, 0, len(rows))
	for _, row := range rows {
		if pos, ok := parsePositionRow(row); ok {
			positions = append(positions, pos)
		}
	}

	return positions
}

func parsePositionRow(row interface{}) (Position, bool) {
	fields, ok := row.([]interface{})
	if !ok || len(fields) < 2 {
		return Position{}, false
	}

	symbol, okSym := fields[0].(string)
	status, okStatus := fields[1].(string)
	if !okSym || !okStatus {
		return Position{}, false
	}

	pos := Position{Symbol: symbol, Status: status}

	if len(fields) > 2 {
		pos.Amount, _ = helpers.ToFloat64(fields[2])
	}
	if len(fields) > 3 {
		pos.BasePrice, _ = helpers.ToFloat64(fields[3])
	}
	if len(fields) > 6 {
		pos.PL, _ = helpers.ToFloat64(fields[6])
	}

	return pos, true
}
