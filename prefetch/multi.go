package prefetch

import (
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/kbukum/prefetchkit/errors"
	"github.com/kbukum/prefetchkit/logger"
	"github.com/kbukum/prefetchkit/queue"
)

// TransformFunc turns one upstream item into an output item on a worker.
//
// cell is a recycled output cell, or nil when the function must allocate.
// worker is the index of the calling worker in [0, workers). The function
// must return a non-nil cell.
type TransformFunc[T, S any] func(cell *T, src *S, worker int) *T

// pair keeps an output with the upstream item it was built from, so the
// upstream cell stays alive until the output is consumed.
type pair[T, S any] struct {
	out *T
	src *S
}

// MultiIter transforms the items of an upstream Iter on a pool of workers.
type MultiIter[T, S any] struct {
	id       string
	log      *logger.Logger
	metrics  *Metrics
	upstream *Iter[S]
	workers  int
	capacity int

	transform TransformFunc[T, S]
	reset     func()

	queue    *queue.Blocking[pair[T, S]]
	wg       sync.WaitGroup
	stopped  atomic.Bool
	finished atomic.Int32
	fault    atomic.Pointer[errors.AppError]

	freeMu  sync.Mutex
	free    []*T
	release func(*T)

	out         *T
	ended       bool
	initialized atomic.Bool
	destroyed   atomic.Bool
	destroyOnce sync.Once
}

// NewMulti creates a worker pool over upstream. Workers below 1 selects one
// worker; a capacity below 1 selects DefaultCapacity. It panics with
// NIL_UPSTREAM when upstream is nil.
func NewMulti[T, S any](upstream *Iter[S], workers, capacity int, opts ...Option) *MultiIter[T, S] {
	o := buildOptions(opts)
	if upstream == nil {
		fail(o.log, errors.NilUpstream())
	}
	if workers < 1 {
		workers = 1
	}
	if capacity < 1 {
		capacity = DefaultCapacity
	}
	id := uuid.NewString()
	log := o.log.WithFields(logger.Fields(
		logger.FieldPipelineID, id,
		logger.FieldPipelineKind, "multi",
		logger.FieldWorkers, workers,
		logger.FieldCapacity, capacity,
		"upstream_id", upstream.ID(),
	))
	return &MultiIter[T, S]{
		id:       id,
		log:      log,
		metrics:  newPipelineMetrics(o.meter, "multi", log),
		upstream: upstream,
		workers:  workers,
		capacity: capacity,
	}
}

// ID returns the identifier attached to this pipeline's log lines.
func (m *MultiIter[T, S]) ID() string { return m.id }

// Workers returns the size of the worker pool.
func (m *MultiIter[T, S]) Workers() int { return m.workers }

// OnRelease registers fn to receive every output cell the pipeline still
// holds when it is destroyed. Upstream cells are released by the upstream's
// own hook. Must be called before Init.
func (m *MultiIter[T, S]) OnRelease(fn func(*T)) {
	m.freeMu.Lock()
	defer m.freeMu.Unlock()
	m.release = fn
}

// Init starts the workers. reset runs on every Reset before the upstream is
// rewound and may be nil.
func (m *MultiIter[T, S]) Init(transform TransformFunc[T, S], reset func()) {
	if m.destroyed.Load() {
		return
	}
	if !m.initialized.CompareAndSwap(false, true) {
		fail(m.log, errors.AlreadyInitialized(m.id))
	}
	m.transform = transform
	m.reset = reset
	m.spawn()
	m.log.Debug("workers started")
}

func (m *MultiIter[T, S]) spawn() {
	q := queue.New[pair[T, S]](m.capacity)
	m.queue = q
	m.finished.Store(0)

	live := new(atomic.Int32)
	live.Store(int32(m.workers))
	m.wg.Add(m.workers)
	for w := 0; w < m.workers; w++ {
		go m.work(w, q, live)
	}
}

// work runs one worker until the upstream ends, a stop is requested or the
// output queue is killed. The last worker of an epoch closes its queue.
func (m *MultiIter[T, S]) work(worker int, q *queue.Blocking[pair[T, S]], live *atomic.Int32) {
	defer func() {
		m.finished.Add(1)
		if live.Add(-1) == 0 {
			q.Close()
		}
		m.wg.Done()
	}()

	for {
		src, ok := m.upstream.Next()
		if !ok {
			return
		}
		if m.stopped.Load() {
			m.upstream.Recycle(&src)
			return
		}

		cell := m.takeFree()
		if cell == nil {
			m.metrics.recordAllocated()
		}
		out := m.transform(cell, src, worker)
		if out == nil {
			m.fault.CompareAndSwap(nil, errors.ProducerContract("transform returned no cell").
				WithDetail(logger.FieldWorker, worker))
			m.upstream.Recycle(&src)
			return
		}

		if !q.Push(pair[T, S]{out: out, src: src}) {
			m.putFree(out)
			m.upstream.Recycle(&src)
			return
		}
		m.metrics.recordProduced()
	}
}

func (m *MultiIter[T, S]) takeFree() *T {
	m.freeMu.Lock()
	defer m.freeMu.Unlock()
	n := len(m.free)
	if n == 0 {
		return nil
	}
	cell := m.free[n-1]
	m.free[n-1] = nil
	m.free = m.free[:n-1]
	return cell
}

func (m *MultiIter[T, S]) putFree(cell *T) {
	m.freeMu.Lock()
	m.free = append(m.free, cell)
	m.freeMu.Unlock()
}

// Next blocks until a transformed item is ready and hands it to the caller,
// or returns false once every worker has finished. The upstream cell the
// item was built from is recycled before Next returns.
func (m *MultiIter[T, S]) Next() (*T, bool) {
	if !m.initialized.Load() {
		fail(m.log, errors.NotInitialized("Next"))
	}
	if f := m.fault.Load(); f != nil {
		fail(m.log, f)
	}
	if m.ended || m.destroyed.Load() {
		return nil, false
	}

	p, ok := m.queue.Pop()
	if !ok {
		if f := m.fault.Load(); f != nil {
			fail(m.log, f)
		}
		m.ended = true
		return nil, false
	}
	m.upstream.Recycle(&p.src)
	m.metrics.recordConsumed()
	return p.out, true
}

// Recycle returns an output cell to the free list and clears the caller's
// reference. A nil cell is ignored.
func (m *MultiIter[T, S]) Recycle(cell **T) {
	if cell == nil || *cell == nil {
		return
	}
	c := *cell
	*cell = nil

	if m.destroyed.Load() {
		m.freeMu.Lock()
		release := m.release
		m.freeMu.Unlock()
		if release != nil {
			release(c)
		}
		return
	}
	m.putFree(c)
	m.metrics.recordRecycled()
}

// Reset stops the workers, drains their output, rewinds the upstream and
// starts a fresh set of workers. Reset on a destroyed pipeline does nothing.
func (m *MultiIter[T, S]) Reset() {
	if m.destroyed.Load() {
		m.Recycle(&m.out)
		return
	}
	if !m.initialized.Load() {
		fail(m.log, errors.NotInitialized("Reset"))
	}

	m.stopped.Store(true)
	m.Recycle(&m.out)
	drained := 0
	for {
		cell, ok := m.Next()
		if !ok {
			break
		}
		m.Recycle(&cell)
		drained++
	}
	m.wg.Wait()

	if m.reset != nil {
		m.reset()
	}
	m.upstream.Reset()

	m.stopped.Store(false)
	m.ended = false
	m.spawn()

	m.metrics.recordReset()
	m.log.Debug("reset acknowledged", logger.Fields("drained", drained))
}

// Finished returns how many workers of the current pass have exited.
func (m *MultiIter[T, S]) Finished() int {
	return int(m.finished.Load())
}

// Destroy stops the workers, destroys the upstream and releases every cell
// the pipeline holds. It is safe to call more than once and on a pipeline
// that was never initialized. It must not run concurrently with the cursor
// methods.
func (m *MultiIter[T, S]) Destroy() {
	m.destroyOnce.Do(m.destroy)
}

func (m *MultiIter[T, S]) destroy() {
	m.stopped.Store(true)
	q := m.queue
	if q != nil {
		q.SignalForKill()
	}
	m.wg.Wait()

	if q != nil {
		discarded := 0
		for {
			p, ok := q.Pop()
			if !ok {
				break
			}
			m.putFree(p.out)
			m.upstream.Recycle(&p.src)
			discarded++
		}
		m.metrics.recordDiscarded(discarded)
	}
	m.upstream.Destroy()

	m.freeMu.Lock()
	m.destroyed.Store(true)
	cells := m.free
	m.free = nil
	if m.out != nil {
		cells = append(cells, m.out)
		m.out = nil
	}
	release := m.release
	m.freeMu.Unlock()

	if release != nil {
		for _, c := range cells {
			release(c)
		}
	}
	m.log.Debug("pipeline destroyed", logger.Fields("released", len(cells)))
}

// Advance recycles the current item and moves to the next one.
func (m *MultiIter[T, S]) Advance() bool {
	m.Recycle(&m.out)
	cell, ok := m.Next()
	m.out = cell
	return ok
}

// Value returns the item Advance moved to. It panics before the first
// Advance and after the end of the stream.
func (m *MultiIter[T, S]) Value() *T {
	if m.out == nil {
		fail(m.log, errors.NoCurrentItem())
	}
	return m.out
}
