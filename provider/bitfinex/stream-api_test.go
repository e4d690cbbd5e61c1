package bitfinex

import (
	"testing"

	"github.com/spooky-finn/go-bitfinex-bridge/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeStreamConn struct {
	out  chan []byte
	sent []interface{}

	onOpen  func()
	onClose func(err error)
	onError func(err error)
}

func newFakeStreamConn() *fakeStreamConn {
	return &fakeStreamConn{
		out: make(chan []byte),
	}
}

func (f *fakeStreamConn) Connect() error {
	if f.onOpen != nil {
		f.onOpen()
	}
	return nil
}

func (f *fakeStreamConn) Close() error {
	if f.onClose != nil {
		f.onClose(nil)
	}
	return nil
}

func (f *fakeStreamConn) WriteJSON(v interface{}) error {
	f.sent = append(f.sent, v)
	return nil
}

func (f *fakeStreamConn) Messages() <-chan []byte { return f.out }

func (f *fakeStreamConn) OnOpen(fn func()) { f.onOpen = fn }

func (f *fakeStreamConn) OnClose(fn func(err error)) { f.onClose = fn }

func (f *fakeStreamConn) OnError(fn func(err error)) { f.onError = fn }

// recordingStateManager logs the order of contract calls so update/parse
// sequencing can be asserted.
type recordingStateManager struct {
	calls []string
}

func (r *recordingStateManager) Update(raw interface{}) {
	r.calls = append(r.calls, "update")
}

func (r *recordingStateManager) Parse(raw interface{}) interface{} {
	r.calls = append(r.calls, "parse")
	return raw
}

func (r *recordingStateManager) GetState() interface{} {
	r.calls = append(r.calls, "getState")
	return "state"
}

func newTestAPI(t *testing.T, opts *Options) (*BitfinexStreamAPI, *fakeStreamConn) {
	t.Helper()

	conn := newFakeStreamConn()
	api := NewBitfinexStreamAPI(conn, opts)

	// connect directly so frames can be fed synchronously via handleFrame
	require.NoError(t, conn.Connect())
	return api, conn
}

func mustSymbol(t *testing.T, base, quote string) *domain.MarketSymbol {
	t.Helper()

	symbol, err := domain.NewMarketSymbol(base, quote)
	require.NoError(t, err)
	return symbol
}

func TestSubscribeOrderBook_AckThenDelta(t *testing.T) {
	api, conn := newTestAPI(t, nil)
	btc := mustSymbol(t, "btc", "usd")

	require.NoError(t, api.SubscribeOrderBook(btc))
	require.Len(t, conn.sent, 1, "subscribe should go out immediately")
	assert.Equal(t, subscribeRequest{Event: "subscribe", Channel: "book", Pair: "BTCUSD"}, conn.sent[0])

	var managedState *domain.OrderBookSnapshot
	require.NoError(t, api.OnManagedOrderbookUpdate(btc, func(state interface{}) {
		managedState = state.(*domain.OrderBookSnapshot)
	}))

	var rawDelta []domain.BookEntry
	require.NoError(t, api.OnOrderBook(btc, func(msg interface{}) {
		rawDelta = msg.([]domain.BookEntry)
	}))

	api.handleFrame([]byte(`{"event":"subscribed","channel":"book","chanId":5,"pair":"BTCUSD"}`))
	api.handleFrame([]byte(`[5,[[10000,2,1.5],[10100,1,-1]]]`))

	require.NotNil(t, managedState, "the managed handler should fire")
	assert.Equal(t, []domain.BookEntry{{Price: 10000, Count: 2, Amount: 1.5}}, managedState.Bids)
	assert.Equal(t, []domain.BookEntry{{Price: 10100, Count: 1, Amount: -1}}, managedState.Asks)

	require.NotNil(t, rawDelta, "the raw handler should fire")
	assert.Len(t, rawDelta, 2, "the raw handler sees the delta rows, not the accumulated book")

	book, ok := api.ManagedOrderBook(btc)
	require.True(t, ok, "the book slot should exist after the first delta")
	assert.NotNil(t, book)
}

func TestMarketData_UnknownChannelIsDropped(t *testing.T) {
	api, _ := newTestAPI(t, nil)
	btc := mustSymbol(t, "btc", "usd")

	called := false
	require.NoError(t, api.OnOrderBook(btc, func(interface{}) { called = true }))

	// no ack recorded for channel 5
	assert.NotPanics(t, func() {
		api.handleFrame([]byte(`[5,[[10000,2,1.5]]]`))
	})

	assert.False(t, called, "a frame for an unknown channel id must not reach handlers")
	_, ok := api.ManagedOrderBook(btc)
	assert.False(t, ok, "no book slot should be created for an unknown channel")
}

func TestUnsubscribeOrderBook_RemovesMappingAndSlot(t *testing.T) {
	api, conn := newTestAPI(t, nil)
	btc := mustSymbol(t, "btc", "usd")

	api.handleFrame([]byte(`{"event":"subscribed","channel":"book","chanId":5,"pair":"BTCUSD"}`))
	api.handleFrame([]byte(`[5,[[10000,2,1.5]]]`))

	_, ok := api.ManagedOrderBook(btc)
	require.True(t, ok)

	require.NoError(t, api.UnsubscribeOrderBook(btc))
	assert.Equal(t, unsubscribeRequest{Event: "unsubscribe", ChanID: 5}, conn.sent[len(conn.sent)-1])

	_, ok = api.ManagedOrderBook(btc)
	assert.False(t, ok, "the managed slot should be removed with the channel mapping")

	called := false
	require.NoError(t, api.OnOrderBook(btc, func(interface{}) { called = true }))
	api.handleFrame([]byte(`[5,[[10000,2,1.5]]]`))
	assert.False(t, called, "a data frame for the removed channel id must be dropped")

	// double-unsubscribe is a no-op
	require.NoError(t, api.UnsubscribeOrderBook(btc))
}

func TestOnOrderBook_RequiresSymbol(t *testing.T) {
	api, _ := newTestAPI(t, nil)

	err := api.OnOrderBook(nil, func(interface{}) {})
	var confErr *ConfigurationError
	require.ErrorAs(t, err, &confErr, "registration without a symbol must fail")
	assert.Equal(t, "missing required filter: symbol", err.Error())

	err = api.OnManagedOrderbookUpdate(nil, func(interface{}) {})
	require.ErrorAs(t, err, &confErr)

	err = api.OnPublicTradeUpdate(nil, func(interface{}) {})
	require.ErrorAs(t, err, &confErr)
}

func TestOnOrderBook_LastRegistrationWins(t *testing.T) {
	api, _ := newTestAPI(t, nil)
	btc := mustSymbol(t, "btc", "usd")

	firstCalls, secondCalls := 0, 0
	require.NoError(t, api.OnOrderBook(btc, func(interface{}) { firstCalls++ }))
	require.NoError(t, api.OnOrderBook(btc, func(interface{}) { secondCalls++ }))

	api.handleFrame([]byte(`{"event":"subscribed","channel":"book","chanId":5,"pair":"BTCUSD"}`))
	api.handleFrame([]byte(`[5,[[10000,2,1.5]]]`))

	assert.Equal(t, 0, firstCalls, "the replaced handler must not fire")
	assert.Equal(t, 1, secondCalls, "the last registered handler wins")
}

func TestPublicTrades_RoutedBySymbol(t *testing.T) {
	api, _ := newTestAPI(t, nil)
	btc := mustSymbol(t, "btc", "usd")
	eth := mustSymbol(t, "eth", "usd")

	var btcTrades, ethTrades int
	require.NoError(t, api.OnPublicTradeUpdate(btc, func(interface{}) { btcTrades++ }))
	require.NoError(t, api.OnPublicTradeUpdate(eth, func(interface{}) { ethTrades++ }))

	api.handleFrame([]byte(`{"event":"subscribed","channel":"trades","chanId":17,"pair":"BTCUSD"}`))
	api.handleFrame([]byte(`[17,"te",1234,1610000000,10000,0.5]`))
	api.handleFrame([]byte(`[17,"tu",1234,1610000000,10000,0.5]`))

	assert.Equal(t, 2, btcTrades, "both trade markers should reach the symbol`s handler")
	assert.Equal(t, 0, ethTrades, "the other symbol`s handler must stay silent")
}

func TestHeartbeatFrameIsIgnored(t *testing.T) {
	api, _ := newTestAPI(t, nil)
	btc := mustSymbol(t, "btc", "usd")

	called := false
	require.NoError(t, api.OnOrderBook(btc, func(interface{}) { called = true }))

	api.handleFrame([]byte(`{"event":"subscribed","channel":"book","chanId":5,"pair":"BTCUSD"}`))
	assert.NotPanics(t, func() {
		api.handleFrame([]byte(`[5,"hb"]`))
	})

	assert.False(t, called, "a heartbeat is not a book delta")
}

func TestWalletInfo_ParseBeforeUpdateOrdering(t *testing.T) {
	wallet := &recordingStateManager{}
	api, _ := newTestAPI(t, &Options{Wallet: wallet})

	var rawSeen, managedSeen bool
	api.OnWalletUpdate(func(interface{}) {
		rawSeen = true
		assert.NotContains(t, wallet.calls, "update", "the raw handler must see pre-update state")
	})
	api.OnManagedWalletUpdate(func(state interface{}) {
		managedSeen = true
		assert.Contains(t, wallet.calls, "update", "the managed handler must see post-update state")
		assert.Equal(t, "state", state)
	})

	api.handleFrame([]byte(`[0,"wu",["exchange","USD",1000,900]]`))

	assert.True(t, rawSeen, "the raw wallet handler should fire")
	assert.True(t, managedSeen, "the managed wallet handler should fire")
	assert.Equal(t, []string{"parse", "update", "getState"}, wallet.calls, "contract call order must be parse, update, getState")
}

func TestWalletInfo_NoHandlersStillUpdatesState(t *testing.T) {
	wallet := domain.NewWallet()
	api, _ := newTestAPI(t, &Options{Wallet: wallet})

	assert.NotPanics(t, func() {
		api.handleFrame([]byte(`[0,"ws",[["exchange","BTC",1.5,1.5]]]`))
	})

	state := wallet.GetState().(*domain.WalletSnapshot)
	require.Len(t, state.Balances, 1, "the wallet slot is updated even with no handlers registered")
	assert.Equal(t, "BTC", state.Balances[0].Currency)
}

func TestOrderInfo_GeneralAndFilteredHandlersBothFire(t *testing.T) {
	api, _ := newTestAPI(t, nil)
	btc := mustSymbol(t, "btc", "usd")
	eth := mustSymbol(t, "eth", "usd")

	var general, filtered, other int
	api.OnOrderUpdate(nil, func(msg interface{}) { general++ })
	api.OnOrderUpdate(btc, func(msg interface{}) { filtered++ })
	api.OnOrderUpdate(eth, func(msg interface{}) { other++ })

	// order body carries the pair in its fourth field
	api.handleFrame([]byte(`[0,"on",[42,null,null,"BTCUSD",0.5,0.5,"LIMIT","ACTIVE",10000,0]]`))

	assert.Equal(t, 1, general, "the general handler fires once per order message")
	assert.Equal(t, 1, filtered, "the matching filtered handler fires once")
	assert.Equal(t, 0, other, "a non-matching filtered handler stays silent")
}

func TestOrderInfo_UpdatesManagedOrders(t *testing.T) {
	orders := domain.NewOrders(domain.StateOptions{})
	api, _ := newTestAPI(t, &Options{Orders: orders})

	var managed []domain.Order
	api.OnManagedOrdersUpdate(func(state interface{}) {
		managed = state.([]domain.Order)
	})

	api.handleFrame([]byte(`[0,"on",[42,null,null,"BTCUSD",0.5,0.5,"LIMIT","ACTIVE",10000,0]]`))

	require.Len(t, managed, 1, "the managed handler should observe the new order")
	assert.Equal(t, int64(42), managed[0].ID)
}

func TestPositionsInfo_ManagedOnly(t *testing.T) {
	positions := &recordingStateManager{}
	api, _ := newTestAPI(t, &Options{Positions: positions})

	var managedSeen bool
	api.OnManagedPositionsUpdate(func(state interface{}) {
		managedSeen = true
	})

	api.handleFrame([]byte(`[0,"pu",["BTCUSD","ACTIVE",0.5,10000,0,"",0]]`))

	assert.True(t, managedSeen, "the managed positions handler should fire")
	assert.Equal(t, []string{"update", "getState"}, positions.calls, "positions delegate entirely to the managed slot")
}

func TestPrivateTradeInfo_RawOnly(t *testing.T) {
	api, _ := newTestAPI(t, nil)

	var seen interface{}
	api.OnPrivateTradeUpdate(func(msg interface{}) { seen = msg })

	api.handleFrame([]byte(`[0,"tu",[1234,"BTCUSD",1610000000,5678,0.5,10000]]`))

	require.NotNil(t, seen, "the raw private-trade handler should fire")
	arr := seen.([]interface{})
	assert.Equal(t, "tu", arr[1], "the handler receives the whole raw message")
}

func TestUnknownInfoCode_PassesThroughQuietly(t *testing.T) {
	wallet := &recordingStateManager{}
	orders := &recordingStateManager{}
	positions := &recordingStateManager{}
	api, _ := newTestAPI(t, &Options{Wallet: wallet, Orders: orders, Positions: positions})

	var messages int
	api.On("message", func(interface{}) { messages++ })

	assert.NotPanics(t, func() {
		api.handleFrame([]byte(`[0,"xx",[1,2,3]]`))
	})

	assert.Equal(t, 1, messages, "the generic message event still fires")
	assert.Empty(t, wallet.calls, "no semantic tier may run for an unknown code")
	assert.Empty(t, orders.calls)
	assert.Empty(t, positions.calls)
}

func TestDecodeError_EmittedAndProcessingContinues(t *testing.T) {
	api, _ := newTestAPI(t, nil)

	var errPayload interface{}
	api.On("error", func(payload interface{}) { errPayload = payload })

	api.handleFrame([]byte(`{"event":`))

	decodeErr, ok := errPayload.(*DecodeError)
	require.True(t, ok, "the error event should carry a DecodeError")
	assert.Equal(t, []byte(`{"event":`), decodeErr.Raw)

	// the session keeps working after a bad frame
	api.handleFrame([]byte(`{"event":"subscribed","channel":"book","chanId":5,"pair":"BTCUSD"}`))
	_, ok = api.channels.Lookup(ChannelBook, 5)
	assert.True(t, ok, "a later ack should still be processed")
}

func TestGenericMessageEvent_FiresBeforeDispatch(t *testing.T) {
	api, _ := newTestAPI(t, nil)

	var order []string
	api.On("message", func(interface{}) { order = append(order, "message") })
	require.NoError(t, api.OnManagedOrderbookUpdate(mustSymbol(t, "btc", "usd"), func(interface{}) {
		order = append(order, "managed")
	}))

	api.handleFrame([]byte(`{"event":"subscribed","channel":"book","chanId":5,"pair":"BTCUSD"}`))
	api.handleFrame([]byte(`[5,[[10000,2,1.5]]]`))

	require.Len(t, order, 3, "two message events and one managed update")
	assert.Equal(t, []string{"message", "message", "managed"}, order, "the message event precedes family handling")
}

func TestPanickingHandler_DoesNotAbortDispatch(t *testing.T) {
	api, _ := newTestAPI(t, nil)
	btc := mustSymbol(t, "btc", "usd")

	rawCalled := false
	require.NoError(t, api.OnManagedOrderbookUpdate(btc, func(interface{}) { panic("bad handler") }))
	require.NoError(t, api.OnOrderBook(btc, func(interface{}) { rawCalled = true }))

	api.handleFrame([]byte(`{"event":"subscribed","channel":"book","chanId":5,"pair":"BTCUSD"}`))
	assert.NotPanics(t, func() {
		api.handleFrame([]byte(`[5,[[10000,2,1.5]]]`))
	})

	assert.True(t, rawCalled, "a panicking managed handler must not starve the raw tier")
}

func TestSubscribe_RequiresOpenConnection(t *testing.T) {
	conn := newFakeStreamConn()
	api := NewBitfinexStreamAPI(conn, nil)

	err := api.SubscribeOrderBook(mustSymbol(t, "btc", "usd"))
	assert.ErrorIs(t, err, ErrConnectionNotOpen, "subscribing before open must fail")

	require.NoError(t, conn.Connect())
	assert.NoError(t, api.SubscribeOrderBook(mustSymbol(t, "btc", "usd")))
}

func TestLifecycleEvents(t *testing.T) {
	conn := newFakeStreamConn()
	api := NewBitfinexStreamAPI(conn, nil)

	var events []string
	api.On("open", func(interface{}) { events = append(events, "open") })
	api.On("close", func(interface{}) { events = append(events, "close") })

	require.NoError(t, conn.Connect())
	require.NoError(t, api.Close())

	assert.Equal(t, []string{"open", "close"}, events)
}
