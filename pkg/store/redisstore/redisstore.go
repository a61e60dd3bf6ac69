// Package redisstore implements store.Store on Redis, for hosts that keep
// session state off-device (for example a desktop or test harness sharing
// state between processes).
package redisstore

import (
	"context"
	stderrors "errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/go-drift/grant/pkg/diagnostics"
	"github.com/go-drift/grant/pkg/errors"
	"github.com/go-drift/grant/pkg/store"
)

// DefaultTimeout bounds each Redis command.
const DefaultTimeout = 2 * time.Second

// Config holds all configuration for the Redis store.
type Config struct {
	Addr      string
	Password  string
	DB        int
	KeyPrefix string        // Prepended to every key; "grant:" when empty.
	TTL       time.Duration // Expiry for saved keys; zero keeps them forever.
	Timeout   time.Duration // Per-command timeout; DefaultTimeout when zero.
}

// Store implements store.Store backed by Redis strings.
type Store struct {
	client  redis.UniversalClient
	sink    diagnostics.Sink
	prefix  string
	ttl     time.Duration
	timeout time.Duration
}

var _ store.Store = (*Store)(nil)

// Open connects to Redis and verifies the connection with PING.
func Open(ctx context.Context, cfg Config, sink diagnostics.Sink) (*Store, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}
	return New(rdb, cfg, sink), nil
}

// New wraps an existing client.
func New(client redis.UniversalClient, cfg Config, sink diagnostics.Sink) *Store {
	prefix := cfg.KeyPrefix
	if prefix == "" {
		prefix = "grant:"
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Store{
		client:  client,
		sink:    diagnostics.OrNop(sink),
		prefix:  prefix,
		ttl:     cfg.TTL,
		timeout: timeout,
	}
}

func (s *Store) SaveState(key, value string) {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()
	s.report("store.redis.save", key, s.client.Set(ctx, s.prefix+key, value, s.ttl).Err())
}

func (s *Store) RestoreState(key string) (string, bool) {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()
	v, err := s.client.Get(ctx, s.prefix+key).Result()
	if err != nil {
		if !stderrors.Is(err, redis.Nil) {
			s.report("store.redis.restore", key, err)
		}
		return "", false
	}
	return v, true
}

func (s *Store) Clear(key string) {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()
	s.report("store.redis.clear", key, s.client.Del(ctx, s.prefix+key).Err())
}

// Close gracefully closes the Redis connection.
func (s *Store) Close() error {
	return s.client.Close()
}

func (s *Store) report(op, key string, err error) {
	if err == nil {
		return
	}
	errors.Report(s.sink, &errors.GrantError{
		Op:   op,
		Kind: errors.KindStore,
		Err:  fmt.Errorf("key %q: %w", key, err),
	})
}
