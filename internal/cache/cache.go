// Package cache is the result cache in front of the search pipeline.
//
// Entries are immutable payloads keyed by a structured Key and expire by TTL
// only; writes to the listing stores never evict anything.
package cache

import (
	"container/list"
	"crypto/sha256"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"hash/fnv"
	"sync"
	"time"
)

// Class is the query class that decides an entry's TTL.
type Class string

const (
	// ClassInitial is a full map/list load.
	ClassInitial Class = "initial"
	// ClassPan is an incremental viewport move.
	ClassPan Class = "pan"
	// ClassFacets is a filter-option count lookup.
	ClassFacets Class = "facets"
	// ClassReference is rarely-changing reference data.
	ClassReference Class = "reference"
)

// DefaultTTLs is the TTL policy per query class.
var DefaultTTLs = map[Class]time.Duration{
	ClassInitial:   30 * time.Minute,
	ClassPan:       3 * time.Minute,
	ClassFacets:    10 * time.Minute,
	ClassReference: time.Hour,
}

// Key identifies one cached response. Digest covers the request body
// (viewport, filters, shapes, mode flags); paging and zoom stay explicit.
type Key struct {
	Class     Class
	Digest    [sha256.Size]byte
	Page      int
	PageSize  int
	Zoom      int
	CountOnly bool
}

// Digest hashes the canonical JSON of v. encoding/json sorts map keys, so
// maps with equal contents digest equally.
func Digest(v any) ([sha256.Size]byte, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return [sha256.Size]byte{}, fmt.Errorf("failed to encode cache key: %w", err)
	}
	return sha256.Sum256(b), nil
}

// DefaultShards is the number of independently locked LRU shards.
const DefaultShards = 16

// Cache is a sharded, TTL-bounded LRU. It is safe for concurrent use.
type Cache struct {
	shards []*shard
	ttls   map[Class]time.Duration
	nowFn  func() time.Time
}

type shard struct {
	mu       sync.Mutex
	capacity int
	entries  map[Key]*list.Element
	order    *list.List
}

type cacheEntry struct {
	key       Key
	payload   []byte
	expiresAt time.Time
}

// New creates a cache holding up to capacity entries in total. Classes missing
// from ttls fall back to DefaultTTLs.
func New(capacity int, ttls map[Class]time.Duration) *Cache {
	if capacity < DefaultShards {
		capacity = DefaultShards
	}
	merged := make(map[Class]time.Duration, len(DefaultTTLs))
	for class, ttl := range DefaultTTLs {
		merged[class] = ttl
	}
	for class, ttl := range ttls {
		if ttl > 0 {
			merged[class] = ttl
		}
	}

	c := &Cache{
		shards: make([]*shard, DefaultShards),
		ttls:   merged,
		nowFn:  time.Now,
	}
	for i := range c.shards {
		c.shards[i] = &shard{
			capacity: capacity / DefaultShards,
			entries:  make(map[Key]*list.Element),
			order:    list.New(),
		}
	}
	return c
}

// WithClock replaces the time source, for tests.
func (c *Cache) WithClock(nowFn func() time.Time) *Cache {
	c.nowFn = nowFn
	return c
}

// TTL returns the policy TTL of a class.
func (c *Cache) TTL(class Class) time.Duration {
	return c.ttls[class]
}

// Get returns a copy of the payload stored under key if it has not expired.
func (c *Cache) Get(key Key) ([]byte, bool) {
	s := c.shardFor(key)
	s.mu.Lock()
	defer s.mu.Unlock()

	elem, exists := s.entries[key]
	if !exists {
		return nil, false
	}
	entry := elem.Value.(*cacheEntry)
	if !c.nowFn().Before(entry.expiresAt) {
		delete(s.entries, key)
		s.order.Remove(elem)
		return nil, false
	}

	s.order.MoveToFront(elem)
	return append([]byte(nil), entry.payload...), true
}

// Set stores a copy of payload for ttl, replacing any previous entry. A
// non-positive ttl uses the key's class policy.
func (c *Cache) Set(key Key, payload []byte, ttl time.Duration) {
	if ttl <= 0 {
		ttl = c.TTL(key.Class)
	}
	entry := &cacheEntry{
		key:       key,
		payload:   append([]byte(nil), payload...),
		expiresAt: c.nowFn().Add(ttl),
	}

	s := c.shardFor(key)
	s.mu.Lock()
	defer s.mu.Unlock()

	if elem, exists := s.entries[key]; exists {
		elem.Value = entry
		s.order.MoveToFront(elem)
		return
	}

	if s.order.Len() >= s.capacity {
		if oldest := s.order.Back(); oldest != nil {
			delete(s.entries, oldest.Value.(*cacheEntry).key)
			s.order.Remove(oldest)
		}
	}
	s.entries[key] = s.order.PushFront(entry)
}

// Len counts stored entries, expired or not.
func (c *Cache) Len() int {
	n := 0
	for _, s := range c.shards {
		s.mu.Lock()
		n += s.order.Len()
		s.mu.Unlock()
	}
	return n
}

// shardFor picks a shard with FNV-32a over the digest and paging fields.
func (c *Cache) shardFor(key Key) *shard {
	h := fnv.New32a()
	h.Write([]byte(key.Class))
	h.Write(key.Digest[:])
	var buf [8]byte
	binary.LittleEndian.PutUint32(buf[:4], uint32(key.Page))
	binary.LittleEndian.PutUint32(buf[4:], uint32(key.PageSize))
	h.Write(buf[:])
	return c.shards[h.Sum32()%uint32(len(c.shards))]
}
