package app

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Cooldown gates repeated code sends per identifier.
type Cooldown interface {
	// Acquire returns true when no cooldown was active. On success a new
	// cooldown of ttl starts.
	Acquire(key string, ttl time.Duration) (bool, error)
}

const cooldownKeyPrefix = "clauseease:otp:cooldown"

// RedisCooldown implements Cooldown with SET NX so concurrent resends
// race safely across replicas.
type RedisCooldown struct {
	client *redis.Client
}

// NewRedisCooldown builds a Redis-backed cooldown gate.
func NewRedisCooldown(addr, password string) *RedisCooldown {
	return &RedisCooldown{
		client: redis.NewClient(&redis.Options{
			Addr:     addr,
			Password: password,
		}),
	}
}

// Acquire attempts to start a cooldown for key.
func (c *RedisCooldown) Acquire(key string, ttl time.Duration) (bool, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	ok, err := c.client.SetNX(ctx, fmt.Sprintf("%s:%s", cooldownKeyPrefix, key), "1", ttl).Result()
	if err != nil {
		return false, err
	}
	return ok, nil
}
