package bitfinex

import (
	"log"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/recws-org/recws"
	"github.com/spooky-finn/go-bitfinex-bridge/config"
)

var logger = log.New(os.Stdout, "[bitfinex] ", log.LstdFlags)

// StreamConn is the transport surface the stream api depends on. The
// production implementation is BitfinexStreamClient; tests inject a fake.
type StreamConn interface {
	Connect() error
	Close() error
	WriteJSON(v interface{}) error
	Messages() <-chan []byte
	OnOpen(fn func())
	OnClose(fn func(err error))
	OnError(fn func(err error))
}

// BitfinexStreamClient is the websocket transport of the feed, built on an
// auto-reconnecting connection. It only moves frames; all protocol logic
// lives in BitfinexStreamAPI.
type BitfinexStreamClient struct {
	conn *recws.RecConn

	out  chan []byte
	done chan struct{}
	once sync.Once

	onOpen  func()
	onClose func(err error)
	onError func(err error)
}

func NewBitfinexStreamClient() *BitfinexStreamClient {
	return &BitfinexStreamClient{
		conn: nil,
		out:  make(chan []byte),
		done: make(chan struct{}),
	}
}

func (c *BitfinexStreamClient) OnOpen(fn func()) { c.onOpen = fn }

func (c *BitfinexStreamClient) OnClose(fn func(err error)) { c.onClose = fn }

func (c *BitfinexStreamClient) OnError(fn func(err error)) { c.onError = fn }

func (c *BitfinexStreamClient) Connect() error {
	conn := &recws.RecConn{
		Proxy:            http.ProxyFromEnvironment,
		HandshakeTimeout: 5 * time.Second,
		NonVerbose:       false,
	}

	conn.Dial(config.WebsocketEndpoint, nil)
	c.conn = conn

	if config.DebugMode {
		logger.Println("connected to the bitfinex stream websocket")
	}
	if c.onOpen != nil {
		c.onOpen()
	}

	go c.read()
	return nil
}

func (c *BitfinexStreamClient) Close() error {
	c.once.Do(func() {
		close(c.done)
	})

	c.conn.Close()

	if c.onClose != nil {
		c.onClose(nil)
	}
	return nil
}

func (c *BitfinexStreamClient) WriteJSON(v interface{}) error {
	return c.conn.WriteJSON(v)
}

func (c *BitfinexStreamClient) Messages() <-chan []byte {
	return c.out
}

func (c *BitfinexStreamClient) read() {
	defer close(c.out)

	for {
		select {
		case <-c.done:
			return
		default:
		}

		msgType, msg, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return
			}
			if c.onError != nil {
				c.onError(err)
			}
			continue
		}

		if msgType != websocket.TextMessage {
			continue
		}

		select {
		case c.out <- msg:
		case <-c.done:
			return
		}
	}
}
