package db

import (
	"context"

	"github.com/redis/go-redis/v9"

	"github.com/adamskt/Coalesce/internal/logger"
)

var RDB *redis.Client

// InitRedis takes the address explicitly (not via os.Getenv). An empty
// address leaves RDB nil and callers fall back to in-process caching.
func InitRedis(addr string) {
	if addr == "" {
		logger.Warn("redis_disabled", nil)
		return
	}

	RDB = redis.NewClient(&redis.Options{
		Addr: addr,
	})
}

func PingRedis() error {
	if RDB == nil {
		return nil
	}
	return RDB.Ping(context.Background()).Err()
}
