package redisclient

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/sonrisadental/booking-api/internal/appointment"
)

const occupiedSlotsKey = "cache:occupied-slots"

// SlotCache keeps a short-lived copy of the occupied (date, slot) list.
// The list is advisory; the partial unique index in Postgres remains the
// authority, so every cache failure degrades to a database read.
type SlotCache struct {
	client *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

func NewSlotCache(client *redis.Client, ttl time.Duration, logger *zap.Logger) *SlotCache {
	return &SlotCache{
		client: client,
		ttl:    ttl,
		logger: logger,
	}
}

type cachedSlot struct {
	Date string `json:"date"`
	Slot string `json:"slot"`
}

func (c *SlotCache) Get(ctx context.Context) ([]appointment.SlotRef, bool) {
	raw, err := c.client.Get(ctx, occupiedSlotsKey).Bytes()
	if err != nil {
		if err != redis.Nil {
			c.logger.Warn("slot cache read failed", zap.Error(err))
		}
		return nil, false
	}

	var cached []cachedSlot
	if err := json.Unmarshal(raw, &cached); err != nil {
		c.logger.Warn("slot cache entry corrupt, dropping", zap.Error(err))
		_ = c.client.Del(ctx, occupiedSlotsKey).Err()
		return nil, false
	}

	refs := make([]appointment.SlotRef, 0, len(cached))
	for _, s := range cached {
		date, err := time.Parse("2006-01-02", s.Date)
		if err != nil {
			continue
		}
		refs = append(refs, appointment.SlotRef{Date: date, Slot: s.Slot})
	}
	return refs, true
}

func (c *SlotCache) Set(ctx context.Context, refs []appointment.SlotRef) {
	cached := make([]cachedSlot, 0, len(refs))
	for _, r := range refs {
		cached = append(cached, cachedSlot{
			Date: r.Date.Format("2006-01-02"),
			Slot: r.Slot,
		})
	}

	raw, err := json.Marshal(cached)
	if err != nil {
		c.logger.Warn("slot cache encode failed", zap.Error(err))
		return
	}

	if err := c.client.Set(ctx, occupiedSlotsKey, raw, c.ttl).Err(); err != nil {
		c.logger.Warn("slot cache write failed", zap.Error(err))
	}
}

// Invalidate drops the cached list. Called after every reserve and
// cancel so the advisory list never lags a write by more than one read.
func (c *SlotCache) Invalidate(ctx context.Context) {
	if err := c.client.Del(ctx, occupiedSlotsKey).Err(); err != nil {
		c.logger.Warn("slot cache invalidation failed", zap.Error(err))
	}
}
