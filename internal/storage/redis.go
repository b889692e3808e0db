package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"comment-scout/pkg/models"
)

// RedisOptions configures the Redis list mirror
type RedisOptions struct {
	URL      string
	Password string
	DB       int
	Key      string
	Timeout  time.Duration
}

// RedisSink appends each record as a JSON document to a Redis list
type RedisSink struct {
	client  *redis.Client
	key     string
	timeout time.Duration
}

// NewRedisSink connects and pings the server
func NewRedisSink(ctx context.Context, opts RedisOptions) (*RedisSink, error) {
	ropts, err := redis.ParseURL(opts.URL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}
	if opts.Password != "" {
		ropts.Password = opts.Password
	}
	if opts.DB != 0 {
		ropts.DB = opts.DB
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 5 * time.Second
	}
	ropts.DialTimeout = opts.Timeout
	ropts.ReadTimeout = opts.Timeout
	ropts.WriteTimeout = opts.Timeout

	if opts.Key == "" {
		opts.Key = "comment-scout:comments"
	}

	client := redis.NewClient(ropts)
	pingCtx, cancel := context.WithTimeout(ctx, opts.Timeout)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	return &RedisSink{client: client, key: opts.Key, timeout: opts.Timeout}, nil
}

func (r *RedisSink) Name() string { return "redis" }

// Publish RPUSHes the batch in one round trip
func (r *RedisSink) Publish(ctx context.Context, records []models.CommentRecord) error {
	values := make([]interface{}, 0, len(records))
	for _, rec := range records {
		data, err := json.Marshal(rec)
		if err != nil {
			return err
		}
		values = append(values, data)
	}

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()
	return r.client.RPush(ctx, r.key, values...).Err()
}

func (r *RedisSink) Close() error {
	return r.client.Close()
}
