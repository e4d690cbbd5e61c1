package bitfinex

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/spooky-finn/go-bitfinex-bridge/config"
	"github.com/spooky-finn/go-bitfinex-bridge/domain"
	"github.com/spooky-finn/go-bitfinex-bridge/helpers"
)

// BitfinexSyncAPI wraps the venue`s rest api for the request/response
// operations that do not flow over the stream, currently the on-demand
// order book snapshot.
type BitfinexSyncAPI struct {
	httpClient *http.Client
}

type restBookLevel struct {
	Price  string `json:"price"`
	Amount string `json:"amount"`
}

type restBookResponse struct {
	Bids []restBookLevel `json:"bids"`
	Asks []restBookLevel `json:"asks"`
}

func NewBitfinexSyncAPI() *BitfinexSyncAPI {
	return &BitfinexSyncAPI{
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

func (api *BitfinexSyncAPI) OrderBookSnapshot(symbol *domain.MarketSymbol, limit int) (*domain.OrderBookSnapshot, error) {
	url := fmt.Sprintf("%s/book/%s?limit_bids=%d&limit_asks=%d",
		config.RestEndpoint, strings.ToLower(symbol.Pair()), limit, limit)

	resp, err := api.httpClient.Get(url)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("book snapshot request failed: status=%d pair=%s", resp.StatusCode, symbol.Pair())
	}

	var book restBookResponse
	if err := json.NewDecoder(resp.Body).Decode(&book); err != nil {
		return nil, err
	}

	return &domain.OrderBookSnapshot{
		Source:         domain.OrderBookSource_Provider,
		Pair:           symbol.Pair(),
		Bids:           parseRestLevels(book.Bids, 1),
		Asks:           parseRestLevels(book.Asks, -1),
		LastUpdateTime: time.Now().Unix(),
	}, nil
}

func parseRestLevels(levels []restBookLevel, side float64) []domain.BookEntry {
	entries := make([]domain.BookEntry, 0, len(levels))
	for _, level := range levels {
		price, okP := helpers.ToFloat64(level.Price)
		amount, okA := helpers.ToFloat64(level.Amount)
		if !okP || !okA {
			continue
		}

		entries = append(entries, domain.BookEntry{
			Price:  price,
			Count:  1,
			Amount: side * amount,
		})
	}

	return entries
}
