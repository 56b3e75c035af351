// Package feed brings external data into the journal: live token prices over
// WebSocket and trade history files dropped into object storage.
package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/shopspring/decimal"

	"github.com/alanyoungcy/tradejournal/internal/domain"
)

const (
	// writeWait is the time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// pongWait is the time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// pingPeriod sends pings to the peer at this interval. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// reconnectDelay is the base delay before attempting to reconnect.
	reconnectDelay = 2 * time.Second

	// maxReconnectDelay caps the exponential backoff for reconnection.
	maxReconnectDelay = 60 * time.Second
)

// tickerMessage is the wire format of one price update. Exchanges that speak
// a different shape can be adapted upstream; the feed only needs symbol,
// price, and an optional timestamp.
type tickerMessage struct {
	Symbol string `json:"symbol"`
	Price  string `json:"price"`
	TsMs   int64  `json:"ts,omitempty"`
}

// subscribeCommand is sent after connecting to select the symbols to stream.
type subscribeCommand struct {
	Type    string   `json:"type"`
	Symbols []string `json:"symbols"`
}

// PriceWSFeed streams live ticker prices for the configured symbols into the
// price cache, which backs unrealized P&L on open positions. It reconnects
// with exponential backoff on disconnect.
type PriceWSFeed struct {
	wsURL   string
	symbols []string
	prices  domain.PriceCache
	logger  *slog.Logger

	closeOnce sync.Once
	done      chan struct{}
}

// NewPriceWSFeed creates a feed that subscribes to the given symbols.
func NewPriceWSFeed(wsURL string, symbols []string, prices domain.PriceCache, logger *slog.Logger) *PriceWSFeed {
	return &PriceWSFeed{
		wsURL:   wsURL,
		symbols: symbols,
		prices:  prices,
		logger:  logger.With(slog.String("component", "price_ws_feed")),
		done:    make(chan struct{}),
	}
}

// Run connects, subscribes, and streams prices until ctx is cancelled or
// Close is called. Transient disconnects trigger reconnection with backoff.
func (f *PriceWSFeed) Run(ctx context.Context) error {
	if len(f.symbols) == 0 {
		f.logger.Info("no symbols to subscribe, exiting")
		return nil
	}

	delay := reconnectDelay
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-f.done:
			return nil
		default:
		}

		err := f.runConnection(ctx)
		if err == nil {
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}

		f.logger.Warn("price ws disconnected, reconnecting",
			slog.String("error", err.Error()),
			slog.Duration("delay", delay))

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-f.done:
			return nil
		case <-time.After(delay):
		}

		delay *= 2
		if delay > maxReconnectDelay {
			delay = maxReconnectDelay
		}
	}
}

// runConnection dials, subscribes, and reads until the connection drops or
// the context ends. A clean shutdown returns nil.
func (f *PriceWSFeed) runConnection(ctx context.Context) error {
	dialer := websocket.Dialer{HandshakeTimeout: 15 * time.Second}
	conn, _, err := dialer.DialContext(ctx, f.wsURL, nil)
	if err != nil {
		return fmt.Errorf("feed: connect %s: %w", f.wsURL, err)
	}
	defer conn.Close()

	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	sub := subscribeCommand{Type: "subscribe", Symbols: f.symbols}
	conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := conn.WriteJSON(sub); err != nil {
		return fmt.Errorf("feed: subscribe: %w", err)
	}
	f.logger.Info("price ws subscribed", slog.Int("symbols", len(f.symbols)))

	// Ping loop and context watcher; closing the connection unblocks the
	// read loop below.
	stop := make(chan struct{})
	defer close(stop)
	go func() {
		ticker := time.NewTicker(pingPeriod)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ctx.Done():
				conn.Close()
				return
			case <-f.done:
				conn.Close()
				return
			case <-ticker.C:
				conn.SetWriteDeadline(time.Now().Add(writeWait))
				if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
					return
				}
			}
		}
	}()

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-f.done:
				return nil
			default:
			}
			return fmt.Errorf("feed: read: %w", err)
		}
		f.handleMessage(ctx, raw)
	}
}

// handleMessage parses one ticker update and writes it to the price cache.
// Unparseable messages are dropped silently; the stream carries frames we do
// not care about (subscription acks, heartbeats).
func (f *PriceWSFeed) handleMessage(ctx context.Context, raw []byte) {
	var msg tickerMessage
	if err := json.Unmarshal(raw, &msg); err != nil {
		return
	}
	if msg.Symbol == "" || msg.Price == "" {
		return
	}

	price, err := decimal.NewFromString(msg.Price)
	if err != nil {
		f.logger.Debug("dropping unparseable price",
			slog.String("symbol", msg.Symbol), slog.String("price", msg.Price))
		return
	}

	ts := time.Now()
	if msg.TsMs > 0 {
		ts = time.UnixMilli(msg.TsMs)
	}

	if err := f.prices.SetPrice(ctx, msg.Symbol, price, ts); err != nil {
		f.logger.Warn("failed to cache price",
			slog.String("symbol", msg.Symbol), slog.String("error", err.Error()))
	}
}

// Close stops the feed.
func (f *PriceWSFeed) Close() {
	f.closeOnce.Do(func() { close(f.done) })
}
