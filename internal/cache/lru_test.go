package cache

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLRU_CapacityEvictsColdestBlock(t *testing.T) {
	c := NewLRU[uint64, string](3, 0)
	for _, b := range []uint64{100, 101, 102} {
		c.Put(b, "ts")
	}
	// Touch the oldest so 101 becomes the coldest.
	_, ok := c.Get(100)
	require.True(t, ok)

	c.Put(103, "ts")
	_, ok = c.Get(101)
	assert.False(t, ok)
	for _, b := range []uint64{100, 102, 103} {
		_, ok := c.Get(b)
		assert.True(t, ok, "block %d", b)
	}
	assert.Equal(t, 3, c.Len())
}

func TestLRU_PutOverwritesInPlace(t *testing.T) {
	c := NewLRU[string, int](2, 0)
	c.Put("a", 1)
	c.Put("b", 2)
	c.Put("a", 10)
	c.Put("c", 3)

	v, ok := c.Get("a")
	require.True(t, ok)
	assert.Equal(t, 10, v)
	_, ok = c.Get("b")
	assert.False(t, ok)
}

func TestLRU_SingleSlot(t *testing.T) {
	c := NewLRU[int, int](0, 0)
	c.Put(1, 1)
	c.Put(2, 2)
	assert.Equal(t, 1, c.Len())
	_, ok := c.Get(1)
	assert.False(t, ok)
}

func TestLRU_IdleEntriesExpire(t *testing.T) {
	clock := time.Unix(1_700_000_000, 0)
	c := NewLRU[string, int](8, 10*time.Minute)
	c.now = func() time.Time { return clock }

	c.Put("203.0.113.9", 1)
	clock = clock.Add(9 * time.Minute)
	_, ok := c.Get("203.0.113.9")
	assert.True(t, ok)

	// Get alone does not refresh the deadline.
	clock = clock.Add(2 * time.Minute)
	_, ok = c.Get("203.0.113.9")
	assert.False(t, ok)
	assert.Zero(t, c.Len())
}

func TestLRU_GetOrLoadCachesSuccessOnly(t *testing.T) {
	c := NewLRU[uint64, time.Time](4, 0)
	want := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	calls := 0
	load := func() (time.Time, error) {
		calls++
		return want, nil
	}

	for i := 0; i < 2; i++ {
		got, err := c.GetOrLoad(42, load)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
	assert.Equal(t, 1, calls)

	_, err := c.GetOrLoad(43, func() (time.Time, error) { return time.Time{}, errors.New("header not found") })
	require.Error(t, err)
	_, ok := c.Get(43)
	assert.False(t, ok)
}

func TestLRU_GetOrLoadSharesConcurrentMisses(t *testing.T) {
	c := NewLRU[uint64, int](4, 0)
	release := make(chan struct{})
	var calls atomic.Int32

	var wg sync.WaitGroup
	results := make([]int, 5)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			v, err := c.GetOrLoad(7, func() (int, error) {
				calls.Add(1)
				<-release
				return 99, nil
			})
			assert.NoError(t, err)
			results[i] = v
		}(i)
	}

	assert.Eventually(t, func() bool { return calls.Load() == 1 }, time.Second, time.Millisecond)
	time.Sleep(10 * time.Millisecond)
	close(release)
	wg.Wait()

	for _, v := range results {
		assert.Equal(t, 99, v)
	}
	assert.LessOrEqual(t, calls.Load(), int32(5))
}
