package database

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// ConnectRedis подключается к Redis (с поддержкой Sentinel)
// Если указаны sentinelAddrs и masterName, используется Sentinel
// Иначе используется прямое подключение через redisURL
func ConnectRedis(redisURL string, sentinelAddrs []string, masterName string) (*redis.Client, error) {
	if len(sentinelAddrs) > 0 && masterName != "" {
		return ConnectRedisWithSentinel(sentinelAddrs, masterName, "")
	}

	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	// Pub/Sub инвалидации кэша дерева держит по соединению на инстанс,
	// остальное — короткие операции с токенами
	opt.PoolSize = 100
	opt.MinIdleConns = 10
	opt.MaxRetries = 3

	client := redis.NewClient(opt)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	log.Println("✅ Redis connected successfully (direct connection)")
	return client, nil
}

// ConnectRedisWithSentinel подключается к Redis через Sentinel
func ConnectRedisWithSentinel(sentinelAddrs []string, masterName, password string) (*redis.Client, error) {
	var addrs []string
	if len(sentinelAddrs) == 1 && strings.Contains(sentinelAddrs[0], ",") {
		addrs = strings.Split(sentinelAddrs[0], ",")
		for i := range addrs {
			addrs[i] = strings.TrimSpace(addrs[i])
		}
	} else {
		addrs = sentinelAddrs
	}

	if len(addrs) == 0 {
		return nil, fmt.Errorf("no Sentinel addresses provided")
	}

	opt := &redis.FailoverOptions{
		MasterName:    masterName,
		SentinelAddrs: addrs,
		Password:      password,
		PoolSize:      100,
		MinIdleConns:  10,
		MaxRetries:    3,
		DialTimeout:   5 * time.Second,
		ReadTimeout:   3 * time.Second,
		WriteTimeout:  3 * time.Second,
	}

	client := redis.NewFailoverClient(opt)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis Sentinel: %w", err)
	}

	log.Printf("✅ Redis Sentinel connected successfully (master: %s, sentinels: %v)", masterName, addrs)
	return client, nil
}

// CloseRedis закрывает подключение к Redis
func CloseRedis(client *redis.Client) error {
	if client != nil {
		return client.Close()
	}
	return nil
}
