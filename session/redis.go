package session

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v7"
	"github.com/sirupsen/logrus"
)

const (
	DefaultRedisNetworkTimeout = 5 * time.Second
	DefaultRedisIdleTimeout    = 30 * time.Second
)

// RedisOpts configures DialRedis.
type RedisOpts struct {
	Addr     string
	Username string
	Password string
	DB       int
}

// DialRedis connects to Redis and verifies the connection with a PING.
func DialRedis(opts RedisOpts) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         opts.Addr,
		Username:     opts.Username,
		Password:     opts.Password,
		DB:           opts.DB,
		DialTimeout:  DefaultRedisNetworkTimeout,
		ReadTimeout:  DefaultRedisNetworkTimeout,
		WriteTimeout: DefaultRedisNetworkTimeout,
		IdleTimeout:  DefaultRedisIdleTimeout,
	})
	if err := client.Ping().Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis at addr[%s]: %w", opts.Addr, err)
	}
	return client, nil
}

// Redis keeps each session key as a Redis hash whose TTL is reset on
// every access.
type Redis struct {
	client *redis.Client
	prefix string
	log    logrus.FieldLogger
}

// RedisOption configures a Redis store.
type RedisOption func(*Redis)

// WithKeyPrefix namespaces every key, e.g. "bot:".
func WithKeyPrefix(prefix string) RedisOption {
	return func(r *Redis) {
		r.prefix = prefix
	}
}

// WithRedisLogger sets the logger used for debug output.
func WithRedisLogger(l logrus.FieldLogger) RedisOption {
	return func(r *Redis) {
		r.log = l
	}
}

// NewRedis returns a Store backed by client.
func NewRedis(client *redis.Client, opts ...RedisOption) *Redis {
	r := &Redis{client: client, log: logrus.StandardLogger()}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *Redis) key(key string) string { return r.prefix + key }

func (r *Redis) GetField(ctx context.Context, key, field string, ttl time.Duration) (string, bool, error) {
	if err := checkArgs(key, ttl); err != nil {
		return "", false, err
	}
	k := r.key(key)
	var get *redis.StringCmd
	_, err := r.client.WithContext(ctx).TxPipelined(func(pipe redis.Pipeliner) error {
		get = pipe.HGet(k, field)
		pipe.Expire(k, ttl)
		return nil
	})
	if err != nil && err != redis.Nil {
		return "", false, fmt.Errorf("failed to get field[%s] of key[%s]: %w", field, k, err)
	}
	value, err := get.Result()
	if err == redis.Nil {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to get field[%s] of key[%s]: %w", field, k, err)
	}
	r.log.Debugf("get key[%s] field[%s]", k, field)
	return value, true, nil
}

func (r *Redis) UpdateFields(ctx context.Context, key string, fields map[string]string, ttl time.Duration) error {
	if err := checkArgs(key, ttl); err != nil {
		return err
	}
	k := r.key(key)
	values := make([]interface{}, 0, len(fields)*2)
	for f, v := range fields {
		values = append(values, f, v)
	}
	_, err := r.client.WithContext(ctx).TxPipelined(func(pipe redis.Pipeliner) error {
		if len(values) > 0 {
			pipe.HSet(k, values...)
		}
		pipe.Expire(k, ttl)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to set key[%s]: %w", k, err)
	}
	r.log.Debugf("set %d fields on key[%s]", len(fields), k)
	return nil
}

func (r *Redis) DeleteFields(ctx context.Context, key string, ttl time.Duration, fields ...string) error {
	if err := checkArgs(key, ttl); err != nil {
		return err
	}
	k := r.key(key)
	_, err := r.client.WithContext(ctx).TxPipelined(func(pipe redis.Pipeliner) error {
		if len(fields) > 0 {
			pipe.HDel(k, fields...)
		}
		pipe.Expire(k, ttl)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to delete fields of key[%s]: %w", k, err)
	}
	return nil
}

func (r *Redis) DeleteKey(ctx context.Context, key string) error {
	if key == "" {
		return ErrEmptyKey
	}
	k := r.key(key)
	if err := r.client.WithContext(ctx).Del(k).Err(); err != nil {
		return fmt.Errorf("failed to delete key[%s]: %w", k, err)
	}
	r.log.Debugf("deleted key[%s]", k)
	return nil
}

func (r *Redis) Snapshot(ctx context.Context, key string, ttl time.Duration) (map[string]string, error) {
	if err := checkArgs(key, ttl); err != nil {
		return nil, err
	}
	k := r.key(key)
	var all *redis.StringStringMapCmd
	_, err := r.client.WithContext(ctx).TxPipelined(func(pipe redis.Pipeliner) error {
		all = pipe.HGetAll(k)
		pipe.Expire(k, ttl)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to read key[%s]: %w", k, err)
	}
	fields, err := all.Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read key[%s]: %w", k, err)
	}
	if fields == nil {
		fields = make(map[string]string)
	}
	return fields, nil
}

var _ Store = (*Redis)(nil)
