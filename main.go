package main

import (
	"fmt"
	"os"
	"os/signal"

	"github.com/spooky-finn/go-bitfinex-bridge/config"
	"github.com/spooky-finn/go-bitfinex-bridge/domain"
	promclient "github.com/spooky-finn/go-bitfinex-bridge/infrastructure/prometheus"
	"github.com/spooky-finn/go-bitfinex-bridge/provider/bitfinex"
)

func main() {
	config.Load()

	client := bitfinex.NewBitfinexStreamClient()
	api := bitfinex.NewBitfinexStreamAPI(client, nil)

	if err := api.Start(); err != nil {
		fmt.Printf("Error connecting to the bitfinex stream: %s", err)
		return
	}

	go promclient.StartPromClientServer()

	symbol, err := domain.NewMarketSymbol("btc", "usd")
	if err != nil {
		panic(err)
	}

	api.On("error", func(payload interface{}) {
		fmt.Printf("stream error: %v\n", payload)
	})

	api.OnManagedOrderbookUpdate(symbol, func(state interface{}) {
		snapshot := state.(*domain.OrderBookSnapshot)
		fmt.Printf("book %s: %d bids / %d asks\n", snapshot.Pair, len(snapshot.Bids), len(snapshot.Asks))
	})

	if err := api.SubscribeOrderBook(symbol); err != nil {
		fmt.Printf("Error subscribing to the order book: %s", err)
	}

	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt)
	<-interrupt

	api.Close()
}
