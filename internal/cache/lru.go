package cache

import (
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// LRU holds at most capacity entries. With a positive ttl an entry also
// expires once it has gone ttl without a Put; Get does not extend it.
type LRU[K comparable, V any] struct {
	mu       sync.Mutex
	capacity int
	ttl      time.Duration
	nodes    map[K]*node[K, V]
	head     *node[K, V] // most recently used
	tail     *node[K, V]
	now      func() time.Time

	loads singleflight.Group
}

type node[K comparable, V any] struct {
	key        K
	val        V
	deadline   time.Time
	prev, next *node[K, V]
}

func NewLRU[K comparable, V any](capacity int, ttl time.Duration) *LRU[K, V] {
	if capacity < 1 {
		capacity = 1
	}
	return &LRU[K, V]{
		capacity: capacity,
		ttl:      ttl,
		nodes:    make(map[K]*node[K, V], capacity),
		now:      time.Now,
	}
}

func (c *LRU[K, V]) Get(key K) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	n, ok := c.nodes[key]
	if !ok {
		var zero V
		return zero, false
	}
	if c.expired(n) {
		c.remove(n)
		var zero V
		return zero, false
	}
	c.promote(n)
	return n.val, true
}

func (c *LRU[K, V]) Put(key K, val V) {
	c.mu.Lock()
	defer c.mu.Unlock()

	deadline := c.now().Add(c.ttl)
	if n, ok := c.nodes[key]; ok {
		n.val, n.deadline = val, deadline
		c.promote(n)
		return
	}
	for len(c.nodes) >= c.capacity && c.tail != nil {
		c.remove(c.tail)
	}
	n := &node[K, V]{key: key, val: val, deadline: deadline}
	c.nodes[key] = n
	c.pushFront(n)
}

// GetOrLoad returns the cached value or the result of load. Concurrent
// misses on the same key share one load call. Errors are not cached.
func (c *LRU[K, V]) GetOrLoad(key K, load func() (V, error)) (V, error) {
	if v, ok := c.Get(key); ok {
		return v, nil
	}
	res, err, _ := c.loads.Do(fmt.Sprint(key), func() (any, error) {
		v, err := load()
		if err != nil {
			return nil, err
		}
		c.Put(key, v)
		return v, nil
	})
	if err != nil {
		var zero V
		return zero, err
	}
	return res.(V), nil
}

func (c *LRU[K, V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.nodes)
}

func (c *LRU[K, V]) expired(n *node[K, V]) bool {
	return c.ttl > 0 && c.now().After(n.deadline)
}

func (c *LRU[K, V]) promote(n *node[K, V]) {
	if c.head == n {
		return
	}
	c.unlink(n)
	c.pushFront(n)
}

func (c *LRU[K, V]) pushFront(n *node[K, V]) {
	n.prev, n.next = nil, c.head
	if c.head != nil {
		c.head.prev = n
	}
	c.head = n
	if c.tail == nil {
		c.tail = n
	}
}

func (c *LRU[K, V]) unlink(n *node[K, V]) {
	if n.prev != nil {
		n.prev.next = n.next
	} else {
		c.head = n.next
	}
	if n.next != nil {
		n.next.prev = n.prev
	} else {
		c.tail = n.prev
	}
	n.prev, n.next = nil, nil
}

func (c *LRU[K, V]) remove(n *node[K, V]) {
	c.unlink(n)
	delete(c.nodes, n.key)
}
