// Package redisclient carries the export queue: a ready list of job ids, a
// delayed set for retries and one JSON status record per job.
package redisclient

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

type Client struct {
	redisdb *redis.Client
}

type Config struct {
	Addr     string
	Password string
	DB       int
	// Name is reported to the server with CLIENT SETNAME, e.g. "eventform-worker".
	Name string
	// PoolSize defaults to go-redis' 10 per CPU.
	PoolSize int
}

func New(cfg Config) *Client {
	redisdb := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		ClientName:   cfg.Name,
		PoolSize:     cfg.PoolSize,
		DialTimeout:  2 * time.Second,
		ReadTimeout:  2 * time.Second,
		WriteTimeout: 2 * time.Second,
	})

	return &Client{redisdb: redisdb}
}

// Open prefers a redis://[:password@]host:port/db url when set and falls back
// to cfg. cfg.Name applies either way.
func Open(url string, cfg Config) (*Client, error) {
	if url == "" {
		return New(cfg), nil
	}
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	if cfg.Name != "" {
		opts.ClientName = cfg.Name
	}
	return &Client{redisdb: redis.NewClient(opts)}, nil
}

func (c *Client) Ping(ctx context.Context) error {
	if err := c.redisdb.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping: %w", err)
	}
	return nil
}

func (c *Client) Close() error {
	return c.redisdb.Close()
}

func (c *Client) Raw() *redis.Client {
	return c.redisdb
}
