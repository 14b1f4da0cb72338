// Package session keeps small per-session values, such as the file a user is
// currently scanning against. A session is identified by the auth token.
package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// KeyLatestFile holds the id of the file scans default to.
const KeyLatestFile = "latest_file_id"

const DefaultTTL = 14 * 24 * time.Hour

type Store interface {
	Get(ctx context.Context, sid, key string) (string, bool, error)
	Set(ctx context.Context, sid, key, value string) error
	Ping(ctx context.Context) error
}

// New returns a redis backed store for a non empty url, an in-memory one
// otherwise.
func New(redisURL string, ttl time.Duration) (Store, error) {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if redisURL == "" {
		return NewMemoryStore(ttl), nil
	}
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, err
	}
	return NewRedisStore(redis.NewClient(opts), ttl), nil
}

type memoryEntry struct {
	value   string
	expires time.Time
}

// MemoryStore keeps sessions in the process. Expired entries are dropped on
// read and swept at most once per ttl on write, so abandoned sessions don't
// pile up.
type MemoryStore struct {
	ttl  time.Duration
	data sync.Map
	now  func() time.Time

	mu        sync.Mutex
	nextSweep time.Time
}

func NewMemoryStore(ttl time.Duration) *MemoryStore {
	return &MemoryStore{ttl: ttl, now: time.Now}
}

func memoryKey(sid, key string) string {
	return sid + "\x00" + key
}

func (s *MemoryStore) Get(_ context.Context, sid, key string) (string, bool, error) {
	v, ok := s.data.Load(memoryKey(sid, key))
	if !ok {
		return "", false, nil
	}
	e := v.(memoryEntry)
	if s.now().After(e.expires) {
		s.data.Delete(memoryKey(sid, key))
		return "", false, nil
	}
	return e.value, true, nil
}

func (s *MemoryStore) Set(_ context.Context, sid, key, value string) error {
	now := s.now()
	s.data.Store(memoryKey(sid, key), memoryEntry{value: value, expires: now.Add(s.ttl)})
	s.sweep(now)
	return nil
}

func (s *MemoryStore) sweep(now time.Time) {
	s.mu.Lock()
	if now.Before(s.nextSweep) {
		s.mu.Unlock()
		return
	}
	s.nextSweep = now.Add(s.ttl)
	s.mu.Unlock()

	s.data.Range(func(k, v any) bool {
		if now.After(v.(memoryEntry).expires) {
			s.data.Delete(k)
		}
		return true
	})
}

// Ping always succeeds, the store lives in the process.
func (s *MemoryStore) Ping(context.Context) error {
	return nil
}

// RedisStore keeps a session as a hash that expires ttl after its last write.
type RedisStore struct {
	client redis.UniversalClient
	ttl    time.Duration
}

func NewRedisStore(client redis.UniversalClient, ttl time.Duration) *RedisStore {
	return &RedisStore{client: client, ttl: ttl}
}

func redisKey(sid string) string {
	return "warehouse:session:" + sid
}

func (s *RedisStore) Get(ctx context.Context, sid, key string) (string, bool, error) {
	v, err := s.client.HGet(ctx, redisKey(sid), key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return v, true, nil
}

func (s *RedisStore) Set(ctx context.Context, sid, key, value string) error {
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, redisKey(sid), key, value)
		pipe.Expire(ctx, redisKey(sid), s.ttl)
		return nil
	})
	return err
}

// Ping reports whether the redis server answers.
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}
