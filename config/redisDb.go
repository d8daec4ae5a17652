package config

import (
	"context"
	"log"
	"os"
	"strings"
	"time"

	"github.com/bsm/redislock"
	"github.com/redis/go-redis/v9"
)

var (
	rdb    *redis.Client
	locker *redislock.Client
)

func GetRedisDB() *redis.Client {
	return rdb
}

func GetRedisLock() *redislock.Client {
	return locker
}

// redisOptions reads REDIS_ADDRESS (default localhost:6379), REDIS_PASSWORD,
// REDIS_DB and REDIS_POOL_SIZE (default 100).
func redisOptions() *redis.Options {
	addr := strings.TrimSpace(os.Getenv("REDIS_ADDRESS"))
	if addr == "" {
		addr = "localhost:6379"
	}
	return &redis.Options{
		Addr:     addr,
		Password: os.Getenv("REDIS_PASSWORD"),
		DB:       intFromEnv("REDIS_DB", 0),
		PoolSize: intFromEnv("REDIS_POOL_SIZE", 100),
	}
}

// ConnectRedisWithRetry pings until Redis answers or ctx ends, then
// publishes the client and the lock client built on it. It returns nil when
// ctx ends first.
func ConnectRedisWithRetry(ctx context.Context) *redis.Client {
	opts := redisOptions()
	for attempt := 1; ; attempt++ {
		client := redis.NewClient(opts)
		err := client.Ping(ctx).Err()
		if err == nil {
			rdb, locker = client, redislock.New(client)
			log.Printf("connected to redis %s (attempt=%d)", opts.Addr, attempt)
			return client
		}
		_ = client.Close()

		wait := retryDelay(attempt)
		log.Printf("redis %s unavailable (attempt=%d): %v", opts.Addr, attempt, err)
		select {
		case <-ctx.Done():
			log.Printf("giving up on redis %s: %v", opts.Addr, ctx.Err())
			return nil
		case <-time.After(wait):
		}
	}
}
