package llm

import (
	"container/list"
	"context"
	"crypto/sha256"
	"strconv"
	"sync"
	"time"
)

const DefaultCacheMaxEntries = 256

type cacheKey [sha256.Size]byte

type cachedText struct {
	key      cacheKey
	text     string
	storedAt time.Time
}

// Cached memoises successful generations by prompt. Entries live for ttl and the
// least recently used one goes first when maxEntries is reached. A non-positive
// ttl or maxEntries turns the cache off.
type Cached struct {
	next       Generator
	ttl        time.Duration
	maxEntries int
	now        func() time.Time

	mu      sync.Mutex
	byKey   map[cacheKey]*list.Element
	recency *list.List // front is the most recently used
}

func NewCached(next Generator, ttl time.Duration, maxEntries int) *Cached {
	return &Cached{
		next:       next,
		ttl:        ttl,
		maxEntries: maxEntries,
		now:        time.Now,
		byKey:      make(map[cacheKey]*list.Element),
		recency:    list.New(),
	}
}

func (c *Cached) Generate(ctx context.Context, req Request) (string, error) {
	if c.ttl <= 0 || c.maxEntries <= 0 {
		return c.next.Generate(ctx, req)
	}

	key := promptKey(req)

	if text, ok := c.lookup(key, c.now()); ok {
		return text, nil
	}

	text, err := c.next.Generate(ctx, req)
	if err != nil {
		return "", err
	}

	c.store(key, text, c.now())

	return text, nil
}

func promptKey(req Request) cacheKey {
	h := sha256.New()
	h.Write([]byte(req.Instructions))
	h.Write([]byte{0})
	h.Write([]byte(req.Input))
	h.Write([]byte{0})
	h.Write(strconv.AppendInt(nil, req.MaxOutputTokens, 10))

	var key cacheKey
	h.Sum(key[:0])

	return key
}

func (c *Cached) expired(item *cachedText, now time.Time) bool {
	return now.Sub(item.storedAt) >= c.ttl
}

func (c *Cached) lookup(key cacheKey, now time.Time) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	elem, ok := c.byKey[key]
	if !ok {
		return "", false
	}

	item := elem.Value.(*cachedText) //nolint:forcetypeassert // Only *cachedText is pushed.
	if c.expired(item, now) {
		c.drop(elem)
		return "", false
	}

	c.recency.MoveToFront(elem)

	return item.text, true
}

func (c *Cached) store(key cacheKey, text string, now time.Time) {
	if text == "" {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, ok := c.byKey[key]; ok {
		item := elem.Value.(*cachedText) //nolint:forcetypeassert // Only *cachedText is pushed.
		item.text = text
		item.storedAt = now
		c.recency.MoveToFront(elem)

		return
	}

	c.byKey[key] = c.recency.PushFront(&cachedText{key: key, text: text, storedAt: now})

	// Trim from the cold end: expired entries first, then whatever exceeds the limit.
	for back := c.recency.Back(); back != nil; back = c.recency.Back() {
		item := back.Value.(*cachedText) //nolint:forcetypeassert // Only *cachedText is pushed.
		if !c.expired(item, now) && c.recency.Len() <= c.maxEntries {
			break
		}
		c.drop(back)
	}
}

func (c *Cached) drop(elem *list.Element) {
	delete(c.byKey, elem.Value.(*cachedText).key) //nolint:forcetypeassert // Only *cachedText is pushed.
	c.recency.Remove(elem)
}

func (c *Cached) size() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.recency.Len()
}
