package storage

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/redis/go-redis/v9/maintnotifications"

	"blogdesk/internal/observability"
)

// Redis stores keys under "<namespace>:<key>" in a Redis database.
type Redis struct {
	client    *redis.Client
	namespace string
}

type metricsHook struct{}

func (h metricsHook) DialHook(next redis.DialHook) redis.DialHook {
	return next
}

func (h metricsHook) ProcessHook(next redis.ProcessHook) redis.ProcessHook {
	return func(ctx context.Context, cmd redis.Cmder) error {
		err := next(ctx, cmd)
		if err != nil && !errors.Is(err, redis.Nil) {
			observability.StorageErrors.WithLabelValues("redis_" + cmd.Name()).Inc()
		}
		return err
	}
}

func (h metricsHook) ProcessPipelineHook(next redis.ProcessPipelineHook) redis.ProcessPipelineHook {
	return next
}

// ParseRedisURL accepts either a plain `host:port` or a `redis://`/`rediss://`
// URL and returns the address, password, database and whether TLS is used.
func ParseRedisURL(raw string) (addr, password string, db int, useTLS bool) {
	if raw == "" {
		raw = "redis:6379"
	}
	addr = raw
	if strings.HasPrefix(raw, "redis://") || strings.HasPrefix(raw, "rediss://") {
		useTLS = strings.HasPrefix(raw, "rediss://")
		if u, err := url.Parse(raw); err == nil {
			addr = u.Host
			if u.User != nil {
				if pw, ok := u.User.Password(); ok {
					password = pw
				}
			}
			if p := strings.Trim(u.Path, "/"); p != "" {
				if n, err := strconv.Atoi(p); err == nil {
					db = n
				}
			}
		}
	}
	return addr, password, db, useTLS
}

// NewRedisClient builds a go-redis client from a REDIS_URL-like string. It
// disables maintnotifications to avoid handshake attempts on servers that
// don't implement the subcommand.
func NewRedisClient(raw string) *redis.Client {
	addr, password, db, useTLS := ParseRedisURL(raw)
	opts := &redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	}
	if useTLS {
		opts.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}
	opts.MaintNotificationsConfig = &maintnotifications.Config{Mode: maintnotifications.ModeDisabled}

	client := redis.NewClient(opts)
	client.AddHook(metricsHook{})
	return client
}

// OpenRedis connects to Redis and verifies the connection.
func OpenRedis(ctx context.Context, raw, namespace string) (*Redis, error) {
	client := NewRedisClient(raw)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return NewRedis(client, namespace), nil
}

// NewRedis wraps an existing client.
func NewRedis(client *redis.Client, namespace string) *Redis {
	if namespace == "" {
		namespace = "blogdesk"
	}
	return &Redis{client: client, namespace: namespace}
}

func (r *Redis) key(k string) string {
	return r.namespace + ":" + k
}

func (r *Redis) Get(ctx context.Context, key string) (string, bool, error) {
	v, err := r.client.Get(ctx, r.key(key)).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return v, true, nil
}

func (r *Redis) Set(ctx context.Context, key, value string) error {
	return r.client.Set(ctx, r.key(key), value, 0).Err()
}

func (r *Redis) Remove(ctx context.Context, key string) error {
	return r.client.Del(ctx, r.key(key)).Err()
}

func (r *Redis) Close() error {
	return r.client.Close()
}

var _ Storage = (*Redis)(nil)
