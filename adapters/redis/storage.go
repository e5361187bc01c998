package redis

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

// Config holds Redis connection configuration
type Config struct {
	Addr         string        `json:"addr" env:"ACHIEVEKIT_REDIS_ADDR"`
	Password     string        `json:"password,omitempty" env:"ACHIEVEKIT_REDIS_PASSWORD"`
	DB           int           `json:"db" env:"ACHIEVEKIT_REDIS_DB"`
	PoolSize     int           `json:"pool_size" env:"ACHIEVEKIT_REDIS_POOL_SIZE"`
	MinIdleConns int           `json:"min_idle_conns" env:"ACHIEVEKIT_REDIS_MIN_IDLE_CONNS"`
	DialTimeout  time.Duration `json:"dial_timeout" env:"ACHIEVEKIT_REDIS_DIAL_TIMEOUT"`
	ReadTimeout  time.Duration `json:"read_timeout" env:"ACHIEVEKIT_REDIS_READ_TIMEOUT"`
	WriteTimeout time.Duration `json:"write_timeout" env:"ACHIEVEKIT_REDIS_WRITE_TIMEOUT"`
	// OpTimeout bounds each Get/Set/Remove; the engine calls are synchronous.
	OpTimeout time.Duration `json:"op_timeout" env:"ACHIEVEKIT_REDIS_OP_TIMEOUT"`
}

// DefaultConfig returns sensible defaults for Redis configuration
func DefaultConfig() Config {
	return Config{
		Addr:         "localhost:6379",
		Password:     "",
		DB:           0,
		PoolSize:     10,
		MinIdleConns: 2,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		OpTimeout:    2 * time.Second,
	}
}

// Store is a key/value achievement store on Redis. Each engine key maps to
// one Redis string key. Errors are logged and swallowed: a failed Get reads
// as absent, a failed Set or Remove leaves Redis unchanged.
type Store struct {
	client    *redis.Client
	opTimeout time.Duration
	logger    *slog.Logger
}

// New creates a new Redis-backed storage with the provided configuration
func New(config Config) (*Store, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         config.Addr,
		Password:     config.Password,
		DB:           config.DB,
		PoolSize:     config.PoolSize,
		MinIdleConns: config.MinIdleConns,
		DialTimeout:  config.DialTimeout,
		ReadTimeout:  config.ReadTimeout,
		WriteTimeout: config.WriteTimeout,
	})

	// Test connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	s := NewWithClient(client)
	if config.OpTimeout > 0 {
		s.opTimeout = config.OpTimeout
	}
	return s, nil
}

// NewWithClient creates a Store using an existing Redis client (useful for testing)
func NewWithClient(client *redis.Client) *Store {
	return &Store{client: client, opTimeout: 2 * time.Second, logger: slog.Default()}
}

// WithLogger replaces the logger used for swallowed errors.
func (s *Store) WithLogger(l *slog.Logger) *Store {
	if l != nil {
		s.logger = l
	}
	return s
}

// Close closes the Redis connection
func (s *Store) Close() error {
	return s.client.Close()
}

// Ping reports whether Redis is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func (s *Store) Get(key string) (string, bool) {
	ctx, cancel := context.WithTimeout(context.Background(), s.opTimeout)
	defer cancel()
	v, err := s.client.Get(ctx, key).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			s.logger.Error("redis get failed", "key", key, "error", err)
		}
		return "", false
	}
	return v, true
}

func (s *Store) Set(key, value string) {
	ctx, cancel := context.WithTimeout(context.Background(), s.opTimeout)
	defer cancel()
	if err := s.client.Set(ctx, key, value, 0).Err(); err != nil {
		s.logger.Error("redis set failed", "key", key, "error", err)
	}
}

func (s *Store) Remove(key string) {
	ctx, cancel := context.WithTimeout(context.Background(), s.opTimeout)
	defer cancel()
	if err := s.client.Del(ctx, key).Err(); err != nil {
		s.logger.Error("redis del failed", "key", key, "error", err)
	}
}
