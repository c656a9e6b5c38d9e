package store

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/redis/go-redis/v9"
)

const (
	defaultKeyPrefix = "mcptoolbox:"
	scanBatch        = 200
)

// Redis stores values under "<prefix><namespace>:<key>".
type Redis struct {
	client    *redis.Client
	keyPrefix string
}

// NewRedis wraps client. An empty keyPrefix selects the default prefix.
func NewRedis(client *redis.Client, keyPrefix string) (*Redis, error) {
	if client == nil {
		return nil, errors.New("redis client is required")
	}
	if keyPrefix == "" {
		keyPrefix = defaultKeyPrefix
	}
	return &Redis{client: client, keyPrefix: keyPrefix}, nil
}

func (r *Redis) buildKey(ns Namespace, key string) string {
	return r.keyPrefix + ns.String() + ":" + key
}

func (r *Redis) Get(ctx context.Context, ns Namespace, key string) ([]byte, error) {
	data, err := r.client.Get(ctx, r.buildKey(ns, key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get key %s: %w", key, err)
	}
	return data, nil
}

func (r *Redis) Set(ctx context.Context, ns Namespace, key string, data []byte) error {
	if err := r.client.Set(ctx, r.buildKey(ns, key), data, 0).Err(); err != nil {
		return fmt.Errorf("failed to set key %s: %w", key, err)
	}
	return nil
}

func (r *Redis) Delete(ctx context.Context, ns Namespace, key string) error {
	n, err := r.client.Del(ctx, r.buildKey(ns, key)).Result()
	if err != nil {
		return fmt.Errorf("failed to delete key %s: %w", key, err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *Redis) List(ctx context.Context, ns Namespace, prefix string) ([][]byte, error) {
	pattern := escapePattern(r.buildKey(ns, prefix)) + "*"

	var keys []string
	iter := r.client.Scan(ctx, 0, pattern, scanBatch).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("failed to scan %s: %w", pattern, err)
	}
	if len(keys) == 0 {
		return [][]byte{}, nil
	}
	sort.Strings(keys)

	values, err := r.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read %d keys: %w", len(keys), err)
	}

	out := make([][]byte, 0, len(values))
	for _, v := range values {
		// nil when the key was deleted between SCAN and MGET
		if s, ok := v.(string); ok {
			out = append(out, []byte(s))
		}
	}
	return out, nil
}

func (r *Redis) Close() error {
	return r.client.Close()
}

// escapePattern quotes the glob metacharacters understood by SCAN MATCH.
func escapePattern(s string) string {
	var sb strings.Builder
	for _, c := range s {
		switch c {
		case '*', '?', '[', ']', '\\':
			sb.WriteRune('\\')
		}
		sb.WriteRune(c)
	}
	return sb.String()
}
