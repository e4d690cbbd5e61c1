package bitfinex

import (
	"strings"
	"sync"
	"time"

	"github.com/gammazero/deque"
	"github.com/spooky-finn/go-bitfinex-bridge/config"
	"github.com/spooky-finn/go-bitfinex-bridge/domain"
	"github.com/spooky-finn/go-bitfinex-bridge/helpers"
	promclient "github.com/spooky-finn/go-bitfinex-bridge/infrastructure/prometheus"
)

// Options selects the state components of a session. Nil fields fall back
// to the default implementations in the domain package.
type Options struct {
	Wallet    domain.StateManager
	Orders    domain.StateManager
	Positions domain.StateManager

	// NewOrderBook builds the managed book of a pair; called lazily on the
	// first delta of the pair.
	NewOrderBook func(pair string) domain.StateManager

	// State is forwarded to the default component constructors.
	State domain.StateOptions
}

// BitfinexStreamAPI multiplexes the feed`s single websocket into
// per-channel subscriptions: it tracks which numeric channel id belongs to
// which subscription, classifies every inbound frame, updates the managed
// entity state and fans the result out to the registered handlers.
type BitfinexStreamAPI struct {
	conn StreamConn

	channels *ChannelRegistry
	handlers *HandlerRegistry
	emitter  *EventEmitter
	books    *domain.OrderBookStorage

	wallet    domain.StateManager
	orders    domain.StateManager
	positions domain.StateManager
	newBook   func(pair string) domain.StateManager

	// frames are buffered between the transport reader and the single
	// dispatch goroutine so a slow handler does not stall the socket read
	// loop; one frame is always dispatched to completion before the next.
	frameQueue deque.Deque[[]byte]
	mu         sync.Mutex

	done chan struct{}
	once sync.Once

	openMu sync.Mutex
	open   bool
}

func NewBitfinexStreamAPI(conn StreamConn, opts *Options) *BitfinexStreamAPI {
	if opts == nil {
		opts = &Options{}
	}

	s := &BitfinexStreamAPI{
		conn:     conn,
		channels: NewChannelRegistry(),
		handlers: NewHandlerRegistry(),
		emitter:  NewEventEmitter(),
		books:    domain.NewOrderBookStorage(),

		wallet:    opts.Wallet,
		orders:    opts.Orders,
		positions: opts.Positions,
		newBook:   opts.NewOrderBook,

		done: make(chan struct{}),
	}

	if s.wallet == nil {
		s.wallet = domain.NewWallet()
	}
	if s.orders == nil {
		s.orders = domain.NewOrders(opts.State)
	}
	if s.positions == nil {
		s.positions = domain.NewPositions()
	}
	if s.newBook == nil {
		s.newBook = defaultOrderBookFactory
	}

	conn.OnOpen(func() {
		s.setOpen(true)
		s.emitter.Emit("open", nil)
	})
	conn.OnClose(func(err error) {
		s.setOpen(false)
		s.emitter.Emit("close", err)
	})
	conn.OnError(func(err error) {
		s.emitter.Emit("error", err)
	})

	return s
}

// Start connects the transport and runs the dispatch loop until Close.
func (s *BitfinexStreamAPI) Start() error {
	if err := s.conn.Connect(); err != nil {
		return err
	}

	go s.streamReader()
	go s.queueReader()
	return nil
}

func (s *BitfinexStreamAPI) Close() error {
	s.once.Do(func() {
		close(s.done)
	})

	return s.conn.Close()
}

// On attaches a listener to one of the generic events: "open", "close",
// "error", "message". The returned disposer detaches it.
func (s *BitfinexStreamAPI) On(event string, fn func(payload interface{})) Disposer {
	return s.emitter.On(event, fn)
}

// ---- subscriptions ----

func (s *BitfinexStreamAPI) SubscribeOrderBook(symbol *domain.MarketSymbol) error {
	return s.sendSubscribe(ChannelBook, symbol)
}

// UnsubscribeOrderBook removes the channel mapping, the managed book slot
// and the book handlers of the pair in one step, so a later data frame for
// the old channel id finds nothing and is dropped. Unsubscribing a pair
// with no known channel id is a no-op.
func (s *BitfinexStreamAPI) UnsubscribeOrderBook(symbol *domain.MarketSymbol) error {
	pair := symbol.Pair()

	chanID, ok := s.channels.LookupPair(ChannelBook, pair)
	if !ok {
		return nil
	}

	err := s.conn.WriteJSON(unsubscribeRequest{Event: "unsubscribe", ChanID: chanID})

	s.channels.Remove(ChannelBook, pair)
	s.books.Remove(pair)
	s.handlers.removePair(pair)
	promclient.OpenBookSubscriptionsGauge.Dec()

	return err
}

func (s *BitfinexStreamAPI) SubscribePublicTrades(symbol *domain.MarketSymbol) error {
	return s.sendSubscribe(ChannelTrades, symbol)
}

func (s *BitfinexStreamAPI) UnsubscribePublicTrades(symbol *domain.MarketSymbol) error {
	pair := symbol.Pair()

	chanID, ok := s.channels.LookupPair(ChannelTrades, pair)
	if !ok {
		return nil
	}

	err := s.conn.WriteJSON(unsubscribeRequest{Event: "unsubscribe", ChanID: chanID})
	s.channels.Remove(ChannelTrades, pair)

	return err
}

func (s *BitfinexStreamAPI) sendSubscribe(chanType ChannelType, symbol *domain.MarketSymbol) error {
	if !s.isOpen() {
		return ErrConnectionNotOpen
	}

	return s.conn.WriteJSON(subscribeRequest{
		Event:   "subscribe",
		Channel: string(chanType),
		Pair:    symbol.Pair(),
	})
}

// ---- raw handler registration ----

func (s *BitfinexStreamAPI) OnOrderBook(symbol *domain.MarketSymbol, h RawHandler) error {
	if symbol == nil {
		return &ConfigurationError{Missing: "symbol"}
	}

	s.handlers.setRaw(familyBook, symbol.Pair(), h)
	return nil
}

// OnOrderUpdate registers a handler for account order updates. A nil symbol
// registers the general variant that fires for every order message.
func (s *BitfinexStreamAPI) OnOrderUpdate(symbol *domain.MarketSymbol, h RawHandler) {
	pair := ""
	if symbol != nil {
		pair = symbol.Pair()
	}

	s.handlers.setRaw(familyOrder, pair, h)
}

func (s *BitfinexStreamAPI) OnPublicTradeUpdate(symbol *domain.MarketSymbol, h RawHandler) error {
	if symbol == nil {
		return &ConfigurationError{Missing: "symbol"}
	}

	s.handlers.setRaw(familyPublicTrade, symbol.Pair(), h)
	return nil
}

func (s *BitfinexStreamAPI) OnPrivateTradeUpdate(h RawHandler) {
	s.handlers.setRaw(familyPrivateTrade, "", h)
}

func (s *BitfinexStreamAPI) OnWalletUpdate(h RawHandler) {
	s.handlers.setRaw(familyWallet, "", h)
}

// ---- managed handler registration ----

func (s *BitfinexStreamAPI) OnManagedOrderbookUpdate(symbol *domain.MarketSymbol, h ManagedHandler) error {
	if symbol == nil {
		return &ConfigurationError{Missing: "symbol"}
	}

	s.handlers.setManaged(entityOrderbook, symbol.Pair(), h)
	return nil
}

func (s *BitfinexStreamAPI) OnManagedWalletUpdate(h ManagedHandler) {
	s.handlers.setManaged(entityWallet, "", h)
}

func (s *BitfinexStreamAPI) OnManagedOrdersUpdate(h ManagedHandler) {
	s.handlers.setManaged(entityOrders, "", h)
}

func (s *BitfinexStreamAPI) OnManagedPositionsUpdate(h ManagedHandler) {
	s.handlers.setManaged(entityPositions, "", h)
}

// ManagedOrderBook returns the live managed book of a pair, if one exists.
func (s *BitfinexStreamAPI) ManagedOrderBook(symbol *domain.MarketSymbol) (domain.StateManager, bool) {
	book, err := s.books.Get(symbol.Pair())
	if err != nil {
		return nil, false
	}

	return book, true
}

// ---- dispatch ----

func (s *BitfinexStreamAPI) streamReader() {
	for msg := range s.conn.Messages() {
		s.mu.Lock()
		s.frameQueue.PushBack(msg)
		s.mu.Unlock()
	}
}

func (s *BitfinexStreamAPI) queueReader() {
	for {
		select {
		case <-s.done:
			return
		default:
		}

		s.mu.Lock()
		if s.frameQueue.Len() > 0 {
			raw := s.frameQueue.PopFront()
			s.mu.Unlock()
			s.handleFrame(raw)
		} else {
			s.mu.Unlock()
			time.Sleep(10 * time.Millisecond)
		}
	}
}

func (s *BitfinexStreamAPI) handleFrame(raw []byte) {
	msg, err := classifyFrame(raw)
	if err != nil {
		promclient.DroppedFramesCounter.Inc()
		s.emitter.Emit("error", err)
		return
	}

	promclient.DispatchedFramesCounter.Inc()

	// observability tap: every decoded frame, before any
	// classification-specific handling
	s.emitter.Emit("message", msg.Payload)

	switch msg.Kind {
	case KindControl:
		s.handleControl(msg.Control)
	case KindAccountInfo:
		s.handleAccountInfo(msg.Array)
	case KindMarketData:
		s.handleMarketData(msg.Array)
	case KindUnrecognized:
	}
}

func (s *BitfinexStreamAPI) handleControl(fields map[string]interface{}) {
	event, _ := fields["event"].(string)

	// only "subscribed" mutates state; other control events flow through
	// the generic message event
	if event != "subscribed" {
		return
	}

	chanID, ok := helpers.ToInt64(fields["chanId"])
	if !ok {
		return
	}

	channel, _ := fields["channel"].(string)
	chanType := ChannelType(channel)

	s.channels.RecordSubscriptionAck(chanType, chanID, fields)

	if chanType == ChannelBook {
		promclient.OpenBookSubscriptionsGauge.Inc()
	}

	if config.DebugMode {
		logger.Printf("subscription confirmed: channel=%s chanId=%d pair=%s", channel, chanID, ackPair(fields))
	}
}

func (s *BitfinexStreamAPI) handleMarketData(arr []interface{}) {
	if len(arr) < 2 {
		return
	}

	chanID, _ := helpers.ToInt64(arr[0])

	if marker, ok := arr[1].(string); ok {
		if marker == "te" || marker == "tu" {
			s.handlePublicTrade(chanID, arr)
		}
		// any other string payload (e.g. a heartbeat) carries no book data
		return
	}

	s.handleBookDelta(chanID, arr[1])
}

func (s *BitfinexStreamAPI) handlePublicTrade(chanID int64, arr []interface{}) {
	sub, ok := s.channels.Lookup(ChannelTrades, chanID)
	if !ok {
		promclient.DroppedFramesCounter.Inc()
		return
	}

	if h, ok := s.handlers.getRaw(familyPublicTrade, sub.Pair); ok {
		invokeGuarded("public-trade", func() { h(arr) })
	}
}

func (s *BitfinexStreamAPI) handleBookDelta(chanID int64, payload interface{}) {
	sub, ok := s.channels.Lookup(ChannelBook, chanID)
	if !ok {
		promclient.DroppedFramesCounter.Inc()
		return
	}

	book := s.books.GetOrCreate(sub.Pair, func() domain.StateManager {
		return s.newBook(sub.Pair)
	})

	// state first, handlers after: both tiers observe post-update state
	// for the current delta
	book.Update(payload)

	if mh, ok := s.handlers.getManaged(entityOrderbook, sub.Pair); ok {
		invokeGuarded("managed-orderbook", func() { mh(book.GetState()) })
	}
	if rh, ok := s.handlers.getRaw(familyBook, sub.Pair); ok {
		invokeGuarded("orderbook", func() { rh(book.Parse(payload)) })
	}
}

func (s *BitfinexStreamAPI) handleAccountInfo(arr []interface{}) {
	if len(arr) < 2 {
		return
	}

	code, ok := arr[1].(string)
	if !ok {
		return
	}

	switch infoCodeCategory(code) {
	case CategoryWallet:
		s.handleWalletInfo(arr)
	case CategoryOrders:
		s.handleOrderInfo(arr)
	case CategoryPrivateTrades:
		if h, ok := s.handlers.getRaw(familyPrivateTrade, ""); ok {
			invokeGuarded("private-trade", func() { h(arr) })
		}
	case CategoryPositions:
		s.positions.Update(arr)
		if mh, ok := s.handlers.getManaged(entityPositions, ""); ok {
			invokeGuarded("managed-positions", func() { mh(s.positions.GetState()) })
		}
	default:
		// passthrough category: nothing beyond the generic message event
	}
}

func (s *BitfinexStreamAPI) handleWalletInfo(arr []interface{}) {
	if len(arr) < 3 {
		return
	}
	body := arr[2]

	// the raw handler sees the delta framed against the prior state, so it
	// runs before the update is applied; the managed handler sees the new
	// state afterwards
	if h, ok := s.handlers.getRaw(familyWallet, ""); ok {
		invokeGuarded("wallet", func() { h(s.wallet.Parse(body)) })
	}

	s.wallet.Update(body)

	if mh, ok := s.handlers.getManaged(entityWallet, ""); ok {
		invokeGuarded("managed-wallet", func() { mh(s.wallet.GetState()) })
	}
}

func (s *BitfinexStreamAPI) handleOrderInfo(arr []interface{}) {
	if h, ok := s.handlers.getRaw(familyOrder, ""); ok {
		invokeGuarded("order", func() { h(arr) })
	}

	if pair := orderPair(arr); pair != "" {
		if h, ok := s.handlers.getRaw(familyOrder, pair); ok {
			invokeGuarded("order", func() { h(arr) })
		}
	}

	s.orders.Update(arr)

	if mh, ok := s.handlers.getManaged(entityOrders, ""); ok {
		invokeGuarded("managed-orders", func() { mh(s.orders.GetState()) })
	}
}

// orderPair extracts the pair carried in the fourth field of a single order
// update body. Snapshot bodies (lists of rows) have no single pair.
func orderPair(arr []interface{}) string {
	if len(arr) < 3 {
		return ""
	}

	body, ok := arr[2].([]interface{})
	if !ok || len(body) < 4 {
		return ""
	}

	pair, _ := body[3].(string)
	return pair
}

func (s *BitfinexStreamAPI) setOpen(open bool) {
	s.openMu.Lock()
	defer s.openMu.Unlock()

	s.open = open
}

func (s *BitfinexStreamAPI) isOpen() bool {
	s.openMu.Lock()
	defer s.openMu.Unlock()

	return s.open
}

func defaultOrderBookFactory(pair string) domain.StateManager {
	symbol, err := domain.NewMarketSymbolFromPair(pair)
	if err != nil {
		symbol = &domain.MarketSymbol{BaseAsset: strings.ToLower(pair)}
	}

	return domain.NewOrderBook(symbol)
}
