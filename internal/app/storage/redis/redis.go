// Package redis backs the cache and mutation stores with Redis so queued
// work and cached responses survive gateway restarts.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"

	"github.com/R3E-Network/offline_gateway/internal/app/domain/cache"
	"github.com/R3E-Network/offline_gateway/internal/app/domain/mutation"
	"github.com/R3E-Network/offline_gateway/internal/app/storage"
)

const (
	domainSetKey  = "gw:domains"
	cacheKeyFmt   = "gw:cache:%s"
	queueKey      = "gw:mutations:queue"
	mutationFmt   = "gw:mutations:item:%s"
	connectWindow = 5 * time.Second
)

// Store implements the storage interfaces on a Redis connection.
type Store struct {
	client *redis.Client
}

var _ storage.CacheStore = (*Store)(nil)
var _ storage.MutationStore = (*Store)(nil)

// Options configures the Redis connection.
type Options struct {
	Addr     string
	Password string
	DB       int
}

// New connects to Redis and verifies the connection.
func New(opts Options) (*Store, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), connectWindow)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return &Store{client: client}, nil
}

// Close releases the underlying connection pool.
func (s *Store) Close() error {
	return s.client.Close()
}

func (s *Store) OpenDomain(ctx context.Context, name string) error {
	return s.client.SAdd(ctx, domainSetKey, name).Err()
}

func (s *Store) GetEntry(ctx context.Context, domain, key string) (cache.Entry, bool, error) {
	data, err := s.client.HGet(ctx, fmt.Sprintf(cacheKeyFmt, domain), key).Bytes()
	if errors.Is(err, redis.Nil) {
		return cache.Entry{}, false, nil
	}
	if err != nil {
		return cache.Entry{}, false, fmt.Errorf("redis hget: %w", err)
	}

	var entry cache.Entry
	if err := json.Unmarshal(data, &entry); err != nil {
		return cache.Entry{}, false, fmt.Errorf("decode cache entry: %w", err)
	}
	return entry, true, nil
}

func (s *Store) PutEntry(ctx context.Context, domain, key string, entry cache.Entry) error {
	entry.Key = key
	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("encode cache entry: %w", err)
	}
	pipe := s.client.TxPipeline()
	pipe.SAdd(ctx, domainSetKey, domain)
	pipe.HSet(ctx, fmt.Sprintf(cacheKeyFmt, domain), key, data)
	_, err = pipe.Exec(ctx)
	return err
}

func (s *Store) ListDomains(ctx context.Context) ([]string, error) {
	return s.client.SMembers(ctx, domainSetKey).Result()
}

func (s *Store) DeleteDomainsExcept(ctx context.Context, active []string) ([]string, error) {
	keep := make(map[string]bool, len(active))
	for _, name := range active {
		keep[name] = true
	}

	names, err := s.client.SMembers(ctx, domainSetKey).Result()
	if err != nil {
		return nil, fmt.Errorf("redis smembers: %w", err)
	}

	var purged []string
	for _, name := range names {
		if keep[name] {
			continue
		}
		pipe := s.client.TxPipeline()
		pipe.Del(ctx, fmt.Sprintf(cacheKeyFmt, name))
		pipe.SRem(ctx, domainSetKey, name)
		if _, err := pipe.Exec(ctx); err != nil {
			return purged, fmt.Errorf("purge domain %s: %w", name, err)
		}
		purged = append(purged, name)
	}
	return purged, nil
}

func (s *Store) EnqueueMutation(ctx context.Context, m mutation.Pending) (mutation.Pending, error) {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	if m.EnqueuedAt.IsZero() {
		m.EnqueuedAt = time.Now().UTC()
	}
	if m.State == "" {
		m.State = mutation.StatePending
	}

	data, err := json.Marshal(m)
	if err != nil {
		return mutation.Pending{}, fmt.Errorf("encode mutation: %w", err)
	}
	pipe := s.client.TxPipeline()
	pipe.Set(ctx, fmt.Sprintf(mutationFmt, m.ID), data, 0)
	pipe.RPush(ctx, queueKey, m.ID)
	if _, err := pipe.Exec(ctx); err != nil {
		return mutation.Pending{}, fmt.Errorf("enqueue mutation: %w", err)
	}
	return m, nil
}

func (s *Store) ListPendingMutations(ctx context.Context) ([]mutation.Pending, error) {
	ids, err := s.client.LRange(ctx, queueKey, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("redis lrange: %w", err)
	}

	out := make([]mutation.Pending, 0, len(ids))
	for _, id := range ids {
		m, ok, err := s.getMutation(ctx, id)
		if err != nil {
			return nil, err
		}
		if ok && m.State == mutation.StatePending {
			out = append(out, m)
		}
	}
	return out, nil
}

func (s *Store) UpdateMutation(ctx context.Context, m mutation.Pending) (mutation.Pending, error) {
	if _, ok, err := s.getMutation(ctx, m.ID); err != nil {
		return mutation.Pending{}, err
	} else if !ok {
		return mutation.Pending{}, fmt.Errorf("mutation %s not found", m.ID)
	}

	data, err := json.Marshal(m)
	if err != nil {
		return mutation.Pending{}, fmt.Errorf("encode mutation: %w", err)
	}
	if err := s.client.Set(ctx, fmt.Sprintf(mutationFmt, m.ID), data, 0).Err(); err != nil {
		return mutation.Pending{}, fmt.Errorf("update mutation: %w", err)
	}
	return m, nil
}

func (s *Store) DeleteMutation(ctx context.Context, id string) error {
	pipe := s.client.TxPipeline()
	removed := pipe.LRem(ctx, queueKey, 1, id)
	pipe.Del(ctx, fmt.Sprintf(mutationFmt, id))
	if _, err := pipe.Exec(ctx); err != nil {
		return err
	}
	if removed.Val() == 0 {
		return fmt.Errorf("mutation %s not found", id)
	}
	return nil
}

func (s *Store) FindMutationByOpKey(ctx context.Context, opKey string) (mutation.Pending, bool, error) {
	if opKey == "" {
		return mutation.Pending{}, false, nil
	}

	pending, err := s.ListPendingMutations(ctx)
	if err != nil {
		return mutation.Pending{}, false, err
	}
	for _, m := range pending {
		if m.OpKey == opKey {
			return m, true, nil
		}
	}
	return mutation.Pending{}, false, nil
}

func (s *Store) getMutation(ctx context.Context, id string) (mutation.Pending, bool, error) {
	data, err := s.client.Get(ctx, fmt.Sprintf(mutationFmt, id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return mutation.Pending{}, false, nil
	}
	if err != nil {
		return mutation.Pending{}, false, fmt.Errorf("redis get: %w", err)
	}
	var m mutation.Pending
	if err := json.Unmarshal(data, &m); err != nil {
		return mutation.Pending{}, false, fmt.Errorf("decode mutation: %w", err)
	}
	return m, true, nil
}
