package notifications

import (
	"context"
	"errors"
	"strconv"
	"sync"

	"github.com/angelmondragon/forkfinderz-realtime/pkg/idempotency"
	lru "github.com/hashicorp/golang-lru/v2"
)

// DefaultSeenCapacity bounds the in-memory set of processed notification ids.
const DefaultSeenCapacity = 1000

const seenConsumer = "notifications-seen"

// SeenSet remembers notification ids already surfaced to the user.
type SeenSet interface {
	// CheckAndMark reports whether id was already marked and marks it.
	CheckAndMark(ctx context.Context, id int64) (bool, error)
}

// MemorySeenSet keeps the most recently marked ids, evicting the oldest.
type MemorySeenSet struct {
	mu    sync.Mutex
	cache *lru.Cache[int64, struct{}]
}

func NewMemorySeenSet(capacity int) (*MemorySeenSet, error) {
	if capacity <= 0 {
		capacity = DefaultSeenCapacity
	}
	cache, err := lru.New[int64, struct{}](capacity)
	if err != nil {
		return nil, err
	}
	return &MemorySeenSet{cache: cache}, nil
}

func (s *MemorySeenSet) CheckAndMark(_ context.Context, id int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cache.Contains(id) {
		s.cache.Get(id)
		return true, nil
	}
	s.cache.Add(id, struct{}{})
	return false, nil
}

// Len returns the number of remembered ids.
func (s *MemorySeenSet) Len() int {
	return s.cache.Len()
}

// RedisSeenSet stores marks through the idempotency manager so they survive
// daemon restarts until the manager's TTL elapses. Marks are kept per user.
type RedisSeenSet struct {
	manager *idempotency.Manager

	mu    sync.RWMutex
	scope string
}

// NewRedisSeenSet scopes marks by session (typically the token subject).
func NewRedisSeenSet(manager *idempotency.Manager, session string) (*RedisSeenSet, error) {
	if manager == nil {
		return nil, errors.New("idempotency manager required")
	}
	s := &RedisSeenSet{manager: manager}
	s.Rescope(session)
	return s, nil
}

// Rescope moves later marks to the given session.
func (s *RedisSeenSet) Rescope(session string) {
	scope := seenConsumer
	if session != "" {
		scope = seenConsumer + ":" + session
	}
	s.mu.Lock()
	s.scope = scope
	s.mu.Unlock()
}

// Scope returns the idempotency consumer marks are recorded under.
func (s *RedisSeenSet) Scope() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.scope
}

func (s *RedisSeenSet) CheckAndMark(ctx context.Context, id int64) (bool, error) {
	return s.manager.CheckAndMarkProcessed(ctx, s.Scope(), strconv.FormatInt(id, 10))
}
