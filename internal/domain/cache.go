package domain

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// PriceCache provides fast access to the latest USD prices per token symbol.
// It is the backing store for the price lookup injected into the engine;
// symbols with no cached price simply report zero unrealized P&L.
type PriceCache interface {
	SetPrice(ctx context.Context, symbol string, price decimal.Decimal, ts time.Time) error
	GetPrice(ctx context.Context, symbol string) (decimal.Decimal, time.Time, error)
	GetPrices(ctx context.Context, symbols []string) (map[string]decimal.Decimal, error)
}

// LockManager provides distributed locking. The recompute path takes a lock
// per wallet so at most one recomputation is in flight per key.
type LockManager interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (unlock func(), err error)
}

// SignalBus provides pub/sub for journal events (trades imported, positions
// recomputed) consumed by the presentation layer.
type SignalBus interface {
	Publish(ctx context.Context, channel string, payload []byte) error
	Subscribe(ctx context.Context, channel string) (<-chan []byte, error)
}
