package cache

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	// InventoryCacheTTL bounds how long a record survives without a newer write.
	InventoryCacheTTL = 10 * time.Minute

	inventoryCacheKeyPrefix = "inventory"
)

// setIfNewerScript replaces the hash only when the incoming version is newer
// than the cached one, so concurrent writers can never move the cache backwards.
// ARGV: version, ttl in milliseconds, then field/value pairs.
var setIfNewerScript = redis.NewScript(`
local key = KEYS[1]
local incoming = tonumber(ARGV[1])

local current = redis.call('HGET', key, 'version')
if current and tonumber(current) >= incoming then
	return 0
end

redis.call('DEL', key)
redis.call('HSET', key, unpack(ARGV, 3))
redis.call('PEXPIRE', key, ARGV[2])
return 1
`)

// CachedInventory is the read model stored in Redis as a hash.
type CachedInventory struct {
	ID               int64
	ProductID        int64
	Quantity         int
	ReservedQuantity int
	ReorderLevel     int
	Version          int
	LastUpdated      time.Time
}

// InventoryCache provides read-through storage for single inventory records.
// Key format: "inventory:{productID}"
type InventoryCache struct {
	client *RedisClient
	ttl    time.Duration
}

// NewInventoryCache creates a new InventoryCache backed by the given RedisClient.
// A nil client yields a nil cache, which callers treat as caching disabled.
func NewInventoryCache(r *RedisClient) *InventoryCache {
	if r == nil {
		return nil
	}
	return &InventoryCache{client: r, ttl: InventoryCacheTTL}
}

// Get returns redis.Nil when the key does not exist or has expired.
func (c *InventoryCache) Get(ctx context.Context, productID int64) (*CachedInventory, error) {
	vals, err := c.client.Client().HGetAll(ctx, c.key(productID)).Result()
	if err != nil {
		return nil, fmt.Errorf("cache get: %w", err)
	}
	if len(vals) == 0 {
		return nil, redis.Nil
	}
	return decodeInventory(vals)
}

// Set stores inv unless the cache already holds the same or a newer Version.
// It reports whether the entry was written.
func (c *InventoryCache) Set(ctx context.Context, inv *CachedInventory) (bool, error) {
	args := append([]any{inv.Version, c.ttl.Milliseconds()}, encodeInventory(inv)...)
	stored, err := setIfNewerScript.Run(ctx, c.client.Client(), []string{c.key(inv.ProductID)}, args...).Int()
	if err != nil {
		return false, fmt.Errorf("cache set: %w", err)
	}
	return stored == 1, nil
}

// Delete evicts a product's record.
func (c *InventoryCache) Delete(ctx context.Context, productID int64) error {
	if err := c.client.Client().Del(ctx, c.key(productID)).Err(); err != nil {
		return fmt.Errorf("cache delete: %w", err)
	}
	return nil
}

func (c *InventoryCache) key(productID int64) string {
	return fmt.Sprintf("%s:%d", inventoryCacheKeyPrefix, productID)
}

func encodeInventory(inv *CachedInventory) []any {
	return []any{
		"id", strconv.FormatInt(inv.ID, 10),
		"product_id", strconv.FormatInt(inv.ProductID, 10),
		"quantity", strconv.Itoa(inv.Quantity),
		"reserved_quantity", strconv.Itoa(inv.ReservedQuantity),
		"reorder_level", strconv.Itoa(inv.ReorderLevel),
		"version", strconv.Itoa(inv.Version),
		"last_updated", inv.LastUpdated.UTC().Format(time.RFC3339Nano),
	}
}

func decodeInventory(vals map[string]string) (*CachedInventory, error) {
	var (
		inv CachedInventory
		err error
	)
	parseInt := func(field string, dst *int) {
		if err != nil {
			return
		}
		if *dst, err = strconv.Atoi(vals[field]); err != nil {
			err = fmt.Errorf("cache parse %s: %w", field, err)
		}
	}
	parseInt64 := func(field string, dst *int64) {
		if err != nil {
			return
		}
		if *dst, err = strconv.ParseInt(vals[field], 10, 64); err != nil {
			err = fmt.Errorf("cache parse %s: %w", field, err)
		}
	}

	parseInt64("id", &inv.ID)
	parseInt64("product_id", &inv.ProductID)
	parseInt("quantity", &inv.Quantity)
	parseInt("reserved_quantity", &inv.ReservedQuantity)
	parseInt("reorder_level", &inv.ReorderLevel)
	parseInt("version", &inv.Version)
	if err != nil {
		return nil, err
	}

	if inv.LastUpdated, err = time.Parse(time.RFC3339Nano, vals["last_updated"]); err != nil {
		return nil, fmt.Errorf("cache parse last_updated: %w", err)
	}
	return &inv, nil
}
