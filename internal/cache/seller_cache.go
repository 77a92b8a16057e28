package cache

import (
	"context"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"simplecrm/internal/sales"
)

const sellerViewKeyPrefix = "seller:view:"

// SellerCache caches seller views by id. It satisfies sales.SellerCache.
type SellerCache struct {
	views *ViewCache[sales.SellerView]
}

// NewSellerCache returns a SellerCache whose entries and tombstones live for ttl.
func NewSellerCache(client *redis.Client, ttl time.Duration, logger *zap.Logger) *SellerCache {
	return &SellerCache{views: NewViewCache[sales.SellerView](client, ttl, logger)}
}

// Get returns the cached view for id, if any.
func (c *SellerCache) Get(ctx context.Context, id int64) (*sales.SellerView, bool) {
	return c.views.Get(ctx, sellerKey(id))
}

// Store caches view unless a same or newer version of the seller is held.
func (c *SellerCache) Store(ctx context.Context, view *sales.SellerView) {
	c.views.Store(ctx, sellerKey(view.ID), view.Version, view)
}

// Tombstone records that seller id was deleted as of version.
func (c *SellerCache) Tombstone(ctx context.Context, id, version int64) {
	c.views.Tombstone(ctx, sellerKey(id), version)
}

func sellerKey(id int64) string {
	return sellerViewKeyPrefix + strconv.FormatInt(id, 10)
}
