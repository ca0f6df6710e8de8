package cache

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newTestCache(capacity int) (*Cache, *clock) {
	clk := &clock{now: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
	return New(capacity, nil).WithClock(clk.Now), clk
}

func key(t *testing.T, class Class, v any) Key {
	t.Helper()
	d, err := Digest(v)
	require.NoError(t, err)
	return Key{Class: class, Digest: d, Page: 1, PageSize: 50}
}

func TestCache_GetSet(t *testing.T) {
	c, _ := newTestCache(100)
	k := key(t, ClassInitial, map[string]any{"city": "Austin"})

	_, ok := c.Get(k)
	require.False(t, ok)

	c.Set(k, []byte(`{"total":2}`), 0)
	got, ok := c.Get(k)
	require.True(t, ok)
	require.Equal(t, []byte(`{"total":2}`), got)
}

func TestCache_PayloadIsCopied(t *testing.T) {
	c, _ := newTestCache(100)
	k := key(t, ClassPan, "x")

	payload := []byte("abc")
	c.Set(k, payload, 0)
	payload[0] = 'z'

	got, _ := c.Get(k)
	require.Equal(t, "abc", string(got))
	got[1] = 'z'

	again, _ := c.Get(k)
	require.Equal(t, "abc", string(again))
}

func TestCache_ClassTTL(t *testing.T) {
	c, clk := newTestCache(100)
	pan := key(t, ClassPan, "same")
	initial := key(t, ClassInitial, "same")

	c.Set(pan, []byte("p"), 0)
	c.Set(initial, []byte("i"), 0)

	clk.Advance(3*time.Minute - time.Second)
	_, ok := c.Get(pan)
	require.True(t, ok)

	clk.Advance(time.Second)
	_, ok = c.Get(pan)
	require.False(t, ok, "pan entries live 3 minutes")

	_, ok = c.Get(initial)
	require.True(t, ok)
	clk.Advance(27 * time.Minute)
	_, ok = c.Get(initial)
	require.False(t, ok, "initial loads live 30 minutes")
}

func TestCache_ExplicitTTLAndOverride(t *testing.T) {
	clk := &clock{now: time.Unix(0, 0)}
	c := New(100, map[Class]time.Duration{ClassFacets: time.Minute}).WithClock(clk.Now)
	require.Equal(t, time.Minute, c.TTL(ClassFacets))
	require.Equal(t, time.Hour, c.TTL(ClassReference))

	k := key(t, ClassReference, "glossary")
	c.Set(k, []byte("g"), 5*time.Second)
	clk.Advance(5 * time.Second)
	_, ok := c.Get(k)
	require.False(t, ok)
}

func TestCache_KeyFieldsDistinguishEntries(t *testing.T) {
	c, _ := newTestCache(100)
	base := key(t, ClassInitial, map[string]any{"a": 1})
	page2 := base
	page2.Page = 2
	count := base
	count.CountOnly = true

	c.Set(base, []byte("1"), 0)
	c.Set(page2, []byte("2"), 0)
	c.Set(count, []byte("3"), 0)

	for k, want := range map[Key]string{base: "1", page2: "2", count: "3"} {
		got, ok := c.Get(k)
		require.True(t, ok)
		require.Equal(t, want, string(got))
	}
}

func TestDigest_MapOrderIndependent(t *testing.T) {
	a, err := Digest(map[string]any{"city": "Austin", "pool": true})
	require.NoError(t, err)
	b, err := Digest(map[string]any{"pool": true, "city": "Austin"})
	require.NoError(t, err)
	require.Equal(t, a, b)

	_, err = Digest(func() {})
	require.Error(t, err)
}

func TestCache_EvictsLeastRecentlyUsed(t *testing.T) {
	c, _ := newTestCache(DefaultShards)
	// One slot per shard: writing many keys keeps the total bounded.
	for i := 0; i < 200; i++ {
		c.Set(key(t, ClassInitial, i), []byte(fmt.Sprint(i)), 0)
	}
	require.LessOrEqual(t, c.Len(), DefaultShards)
}

func TestCache_Concurrent(t *testing.T) {
	c, _ := newTestCache(1000)
	var wg sync.WaitGroup
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < 100; i++ {
				k := Key{Class: ClassPan, Page: i % 10, Zoom: w}
				c.Set(k, []byte{byte(i)}, 0)
				c.Get(k)
			}
		}(w)
	}
	wg.Wait()
	require.LessOrEqual(t, c.Len(), 1000)
}
