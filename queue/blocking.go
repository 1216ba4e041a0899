package queue

import "sync"

// Blocking is a bounded blocking queue safe for concurrent use.
type Blocking[T any] struct {
	mu       sync.Mutex
	notEmpty *sync.Cond
	notFull  *sync.Cond

	items    []T
	head     int
	capacity int

	closed bool
	killed bool

	waitingPush int
	waitingPop  int
}

// New creates a queue holding at most capacity items.
func New[T any](capacity int) *Blocking[T] {
	q := &Blocking[T]{capacity: capacity}
	q.notEmpty = sync.NewCond(&q.mu)
	q.notFull = sync.NewCond(&q.mu)
	return q
}

// Push appends v, blocking while the queue is full. It returns false without
// enqueueing when the queue has been closed or killed.
func (q *Blocking[T]) Push(v T) bool {
	q.mu.Lock()
	q.waitingPush++
	for !q.closed && !q.killed && q.full() {
		q.notFull.Wait()
	}
	q.waitingPush--
	if q.closed || q.killed {
		q.mu.Unlock()
		return false
	}
	q.items = append(q.items, v)
	notify := q.waitingPop > 0
	q.mu.Unlock()

	if notify {
		q.notEmpty.Signal()
	}
	return true
}

// Pop removes the oldest item, blocking while the queue is empty and still
// open. It returns false once the queue is closed or killed and drained.
func (q *Blocking[T]) Pop() (T, bool) {
	q.mu.Lock()
	q.waitingPop++
	for !q.closed && !q.killed && q.len() == 0 {
		q.notEmpty.Wait()
	}
	q.waitingPop--
	if q.len() == 0 {
		q.mu.Unlock()
		var zero T
		return zero, false
	}
	v := q.take()
	notify := q.waitingPush > 0
	q.mu.Unlock()

	if notify {
		q.notFull.Signal()
	}
	return v, true
}

// Close stops accepting items. Blocked consumers drain the remaining items
// and then observe the end of the queue. Close is idempotent.
func (q *Blocking[T]) Close() {
	q.mu.Lock()
	q.closed = true
	q.mu.Unlock()
	q.notEmpty.Broadcast()
	q.notFull.Broadcast()
}

// SignalForKill wakes every blocked Push and Pop. Subsequent pushes are
// refused. Idempotent.
func (q *Blocking[T]) SignalForKill() {
	q.mu.Lock()
	q.killed = true
	q.mu.Unlock()
	q.notEmpty.Broadcast()
	q.notFull.Broadcast()
}

// Size returns the number of queued items.
func (q *Blocking[T]) Size() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.len()
}

// Capacity returns the configured bound (0 means unbounded).
func (q *Blocking[T]) Capacity() int {
	return q.capacity
}

// Closed reports whether Close or SignalForKill has been called.
func (q *Blocking[T]) Closed() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.closed || q.killed
}

func (q *Blocking[T]) len() int {
	return len(q.items) - q.head
}

func (q *Blocking[T]) full() bool {
	return q.capacity > 0 && q.len() >= q.capacity
}

// take pops the head under q.mu, compacting the backing slice once the
// consumed prefix dominates it.
func (q *Blocking[T]) take() T {
	var zero T
	v := q.items[q.head]
	q.items[q.head] = zero
	q.head++
	if q.head == len(q.items) {
		q.items = q.items[:0]
		q.head = 0
	} else if q.head > 32 && q.head*2 >= len(q.items) {
		n := copy(q.items, q.items[q.head:])
		clear(q.items[n:])
		q.items = q.items[:n]
		q.head = 0
	}
	return v
}
