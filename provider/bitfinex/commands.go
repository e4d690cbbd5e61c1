package bitfinex

type subscribeRequest struct {
	Event   string `json:"event"`
	Channel string `json:"channel"`
	Pair    string `json:"pair,omitempty"`
}

type unsubscribeRequest struct {
	Event  string `json:"event"`
	ChanID int64  `json:"chanId"`
}

// Trading-action commands are not part of this adapter; they are stubs so
// the call surface exists for callers that wire their own signing layer.

func (s *BitfinexStreamAPI) Auth(apiKey, apiSecret string) error {
	return ErrNotImplemented
}

func (s *BitfinexStreamAPI) SubmitOrder(symbol string, amount, price float64, side, orderType string) error {
	return ErrNotImplemented
}

func (s *BitfinexStreamAPI) CancelOrder(orderID int64) error {
	return ErrNotImplemented
}

func (s *BitfinexStreamAPI) Withdraw(currency string, amount float64, address string) error {
	return ErrNotImplemented
}
