package queue

import (
	"sort"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBlocking_FIFO(t *testing.T) {
	q := New[int](4)
	for i := 1; i <= 4; i++ {
		require.True(t, q.Push(i))
	}
	assert.Equal(t, 4, q.Size())

	for want := 1; want <= 4; want++ {
		got, ok := q.Pop()
		require.True(t, ok)
		assert.Equal(t, want, got)
	}
	assert.Equal(t, 0, q.Size())
}

func TestBlocking_PushBlocksWhenFull(t *testing.T) {
	q := New[int](1)
	require.True(t, q.Push(1))

	pushed := make(chan bool)
	go func() { pushed <- q.Push(2) }()

	got, ok := q.Pop()
	require.True(t, ok)
	assert.Equal(t, 1, got)

	assert.True(t, <-pushed)
	got, ok = q.Pop()
	require.True(t, ok)
	assert.Equal(t, 2, got)
}

func TestBlocking_PopBlocksUntilPush(t *testing.T) {
	q := New[string](2)
	popped := make(chan string)
	go func() {
		v, _ := q.Pop()
		popped <- v
	}()
	require.True(t, q.Push("x"))
	assert.Equal(t, "x", <-popped)
}

func TestBlocking_CloseDrainsThenEnds(t *testing.T) {
	q := New[int](3)
	q.Push(1)
	q.Push(2)
	q.Close()

	assert.False(t, q.Push(3), "push after close must be refused")
	assert.True(t, q.Closed())

	v, ok := q.Pop()
	assert.True(t, ok)
	assert.Equal(t, 1, v)
	v, ok = q.Pop()
	assert.True(t, ok)
	assert.Equal(t, 2, v)
	_, ok = q.Pop()
	assert.False(t, ok)
	_, ok = q.Pop()
	assert.False(t, ok, "end is sticky")
}

func TestBlocking_CloseWakesBlockedPop(t *testing.T) {
	q := New[int](1)
	done := make(chan bool)
	go func() {
		_, ok := q.Pop()
		done <- ok
	}()
	q.Close()
	assert.False(t, <-done)
}

func TestBlocking_KillAbortsBlockedPush(t *testing.T) {
	q := New[int](1)
	require.True(t, q.Push(1))

	refused := make(chan bool)
	go func() { refused <- q.Push(2) }()

	q.SignalForKill()
	assert.False(t, <-refused)

	v, ok := q.Pop()
	require.True(t, ok, "queued items survive a kill")
	assert.Equal(t, 1, v)
	_, ok = q.Pop()
	assert.False(t, ok)
}

func TestBlocking_KillIdempotent(t *testing.T) {
	q := New[int](1)
	q.SignalForKill()
	q.SignalForKill()
	q.Close()
	assert.Equal(t, 0, q.Size())
}

func TestBlocking_Unbounded(t *testing.T) {
	q := New[int](0)
	for i := 0; i < 1000; i++ {
		require.True(t, q.Push(i))
	}
	assert.Equal(t, 1000, q.Size())
	assert.Equal(t, 0, q.Capacity())
	for i := 0; i < 1000; i++ {
		v, ok := q.Pop()
		require.True(t, ok)
		require.Equal(t, i, v)
	}
}

func TestBlocking_ConcurrentProducersConsumers(t *testing.T) {
	const producers, perProducer, consumers = 4, 500, 3
	q := New[int](8)

	var pwg sync.WaitGroup
	for p := 0; p < producers; p++ {
		pwg.Add(1)
		go func(base int) {
			defer pwg.Done()
			for i := 0; i < perProducer; i++ {
				q.Push(base*perProducer + i)
			}
		}(p)
	}

	var (
		mu  sync.Mutex
		got []int
		cwg sync.WaitGroup
	)
	for c := 0; c < consumers; c++ {
		cwg.Add(1)
		go func() {
			defer cwg.Done()
			for {
				v, ok := q.Pop()
				if !ok {
					return
				}
				assert.LessOrEqual(t, q.Size(), q.Capacity())
				mu.Lock()
				got = append(got, v)
				mu.Unlock()
			}
		}()
	}

	pwg.Wait()
	q.Close()
	cwg.Wait()

	require.Len(t, got, producers*perProducer)
	sort.Ints(got)
	for i, v := range got {
		require.Equal(t, i, v)
	}
}

func TestBlocking_CompactsBackingSlice(t *testing.T) {
	q := New[int](0)
	for i := 0; i < 100; i++ {
		q.Push(i)
	}
	for i := 0; i < 60; i++ {
		v, _ := q.Pop()
		require.Equal(t, i, v)
	}
	q.Push(100)
	for i := 60; i <= 100; i++ {
		v, ok := q.Pop()
		require.True(t, ok)
		require.Equal(t, i, v)
	}
}
