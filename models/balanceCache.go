package models

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"bitbucket.org/mmdatafocus/books_ledger/config"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// BalanceCache holds derived stock balances for reads. It is never trusted
// for the negative-stock check, which always sums the ledger.
//
// Each item carries a generation that Invalidate bumps. Readers take the
// generation before summing the ledger and pass it to Set, which drops the
// write when an append has landed in between.
type BalanceCache interface {
	Get(ctx context.Context, businessId string, itemId int, warehouseId *int) (decimal.Decimal, bool)
	// Generation returns the item's current generation, or a negative value
	// when it cannot be read; Set ignores negative generations.
	Generation(ctx context.Context, businessId string, itemId int) int64
	Set(ctx context.Context, businessId string, itemId int, warehouseId *int, generation int64, balance decimal.Decimal)
	Invalidate(ctx context.Context, businessId string, keys ...StockKey)
}

type RedisBalanceCache struct {
	client *redis.Client
	ttl    time.Duration
	logger *logrus.Logger
}

func NewRedisBalanceCache(client *redis.Client, ttl time.Duration, logger *logrus.Logger) *RedisBalanceCache {
	return &RedisBalanceCache{client: client, ttl: ttl, logger: logger}
}

func balanceCacheKey(businessId string, itemId int, warehouseId *int) string {
	if warehouseId == nil {
		return fmt.Sprintf("StockBalance:%s:%d:all", businessId, itemId)
	}
	return fmt.Sprintf("StockBalance:%s:%d:%d", businessId, itemId, *warehouseId)
}

func balanceGenerationKey(businessId string, itemId int) string {
	return fmt.Sprintf("StockBalanceGen:%s:%d", businessId, itemId)
}

// KEYS[1] generation, KEYS[2] balance; ARGV generation, balance, ttl ms.
var setIfGeneration = redis.NewScript(`
local current = redis.call('GET', KEYS[1]) or '0'
if current ~= ARGV[1] then
	return 0
end
if tonumber(ARGV[3]) > 0 then
	redis.call('SET', KEYS[2], ARGV[2], 'PX', ARGV[3])
else
	redis.call('SET', KEYS[2], ARGV[2])
end
return 1
`)

func (c *RedisBalanceCache) Get(ctx context.Context, businessId string, itemId int, warehouseId *int) (decimal.Decimal, bool) {
	val, err := c.client.Get(ctx, balanceCacheKey(businessId, itemId, warehouseId)).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			config.LogError(c.logger, "balanceCache.go", "Get", "reading cached balance", nil, err)
		}
		return decimal.Zero, false
	}
	balance, err := decimal.NewFromString(val)
	if err != nil {
		return decimal.Zero, false
	}
	return balance, true
}

func (c *RedisBalanceCache) Generation(ctx context.Context, businessId string, itemId int) int64 {
	gen, err := c.client.Get(ctx, balanceGenerationKey(businessId, itemId)).Int64()
	if errors.Is(err, redis.Nil) {
		return 0
	}
	if err != nil {
		config.LogError(c.logger, "balanceCache.go", "Generation", "reading balance generation", nil, err)
		return -1
	}
	return gen
}

func (c *RedisBalanceCache) Set(ctx context.Context, businessId string, itemId int, warehouseId *int, generation int64, balance decimal.Decimal) {
	if generation < 0 {
		return
	}
	keys := []string{balanceGenerationKey(businessId, itemId), balanceCacheKey(businessId, itemId, warehouseId)}
	err := setIfGeneration.Run(ctx, c.client, keys,
		strconv.FormatInt(generation, 10), balance.String(), c.ttl.Milliseconds()).Err()
	if err != nil {
		config.LogError(c.logger, "balanceCache.go", "Set", "caching balance", nil, err)
	}
}

// Invalidate bumps the generation of every touched item, then drops its
// per-warehouse entries and its all-warehouse total.
func (c *RedisBalanceCache) Invalidate(ctx context.Context, businessId string, keys ...StockKey) {
	if len(keys) == 0 {
		return
	}
	redisKeys := make([]string, 0, len(keys)*2)
	bumped := make(map[int]bool, len(keys))
	_, err := c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, k := range keys {
			if !bumped[k.ItemId] {
				bumped[k.ItemId] = true
				pipe.Incr(ctx, balanceGenerationKey(businessId, k.ItemId))
			}
			wh := k.WarehouseId
			redisKeys = append(redisKeys,
				balanceCacheKey(businessId, k.ItemId, &wh),
				balanceCacheKey(businessId, k.ItemId, nil))
		}
		pipe.Del(ctx, redisKeys...)
		return nil
	})
	if err != nil {
		config.LogError(c.logger, "balanceCache.go", "Invalidate", "dropping cached balances", redisKeys, err)
	}
}
