package cache

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"golang.org/x/sync/singleflight"
)

// Query keys shared by the components that read and invalidate them
const (
	KeyLimits           = "limits"
	KeyHistoryFirstPage = "history:firstPage"
	KeyBanks            = "banks"

	historyPagePrefix = "history:page:"

	maxLoadTime = 30 * time.Second
)

// HistoryPrefix matches every cached history page
const HistoryPrefix = "history:"

// HistoryPageKey names a history page other than the default first page
func HistoryPageKey(page, perPage int, status string) string {
	return fmt.Sprintf("%s%d:%d:%s", historyPagePrefix, page, perPage, status)
}

// Cache holds query results by key. Concurrent loads of one key are collapsed
// and a load that finishes after its key was invalidated is not stored.
type Cache struct {
	c     *gocache.Cache
	group singleflight.Group

	mu          sync.Mutex
	generations map[string]uint64
}

func New(ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = 2 * time.Minute
	}
	return &Cache{
		c:           gocache.New(ttl, 2*ttl),
		generations: make(map[string]uint64),
	}
}

// Loader produces the value for a key on a miss
type Loader func(ctx context.Context) (interface{}, error)

func (cm *Cache) Fetch(ctx context.Context, key string, load Loader) (interface{}, error) {
	if val, found := cm.c.Get(key); found {
		return val, nil
	}

	cm.mu.Lock()
	gen := cm.generations[key]
	// registered so prefix invalidation sees keys still loading
	cm.generations[key] = gen
	cm.mu.Unlock()

	// the load runs detached from its callers; a caller that gives up only stops waiting
	ch := cm.group.DoChan(cacheCallKey(key, gen), func() (interface{}, error) {
		loadCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), maxLoadTime)
		defer cancel()

		val, err := load(loadCtx)
		if err != nil {
			return nil, err
		}

		cm.mu.Lock()
		if cm.generations[key] == gen {
			cm.c.Set(key, val, gocache.DefaultExpiration)
		}
		cm.mu.Unlock()
		return val, nil
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		return res.Val, res.Err
	}
}

// Peek returns the cached value without loading
func (cm *Cache) Peek(key string) (interface{}, bool) {
	return cm.c.Get(key)
}

// Invalidate drops keys; in-flight loads for them are discarded on arrival
func (cm *Cache) Invalidate(keys ...string) {
	cm.mu.Lock()
	defer cm.mu.Unlock()

	for _, key := range keys {
		cm.generations[key]++
		cm.c.Delete(key)
	}
}

func (cm *Cache) InvalidatePrefix(prefix string) {
	cm.mu.Lock()
	seen := make(map[string]struct{})
	for key := range cm.generations {
		seen[key] = struct{}{}
	}
	cm.mu.Unlock()
	for key := range cm.c.Items() {
		seen[key] = struct{}{}
	}

	var keys []string
	for key := range seen {
		if strings.HasPrefix(key, prefix) {
			keys = append(keys, key)
		}
	}
	cm.Invalidate(keys...)
}

func cacheCallKey(key string, gen uint64) string {
	return fmt.Sprintf("%s#%d", key, gen)
}

// Get is Fetch with the value asserted to T
func Get[T any](ctx context.Context, cm *Cache, key string, load func(ctx context.Context) (T, error)) (T, error) {
	val, err := cm.Fetch(ctx, key, func(ctx context.Context) (interface{}, error) {
		v, err := load(ctx)
		if err != nil {
			return nil, err
		}
		return v, nil
	})
	if err != nil {
		var zero T
		return zero, err
	}

	typed, ok := val.(T)
	if !ok {
		var zero T
		return zero, fmt.Errorf("cache: unexpected type %T for key %s", val, key)
	}
	return typed, nil
}
