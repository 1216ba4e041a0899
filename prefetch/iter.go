package prefetch

import (
	"io"
	"sync"

	"github.com/google/uuid"

	"github.com/kbukum/prefetchkit/errors"
	"github.com/kbukum/prefetchkit/logger"
)

type signal int

const (
	signalProduce signal = iota
	signalReset
	signalDestroy
)

// Stats is a point-in-time snapshot of a pipeline's buffers.
type Stats struct {
	Queued   int
	Free     int
	Capacity int
	Ended    bool
}

// Iter prefetches items from a single producer on a background goroutine.
type Iter[T any] struct {
	id      string
	log     *logger.Logger
	metrics *Metrics

	mu           sync.Mutex
	producerCond *sync.Cond
	consumerCond *sync.Cond
	resetMu      sync.Mutex

	signal        signal
	processed     bool
	produceEnd    bool
	fault         *errors.AppError
	maxCapacity   int
	queue         []*T
	free          []*T
	nwaitProducer int
	nwaitConsumer int

	out         *T
	reset       func()
	owned       io.Closer
	release     func(*T)
	initialized bool
	torn        bool
	done        chan struct{}
	destroyOnce sync.Once
}

// New creates a pipeline whose ready queue holds at most capacity items.
// A capacity below 1 selects DefaultCapacity.
func New[T any](capacity int, opts ...Option) *Iter[T] {
	if capacity < 1 {
		capacity = DefaultCapacity
	}
	o := buildOptions(opts)
	id := uuid.NewString()
	log := o.log.WithFields(logger.Fields(
		logger.FieldPipelineID, id,
		logger.FieldPipelineKind, "single",
		logger.FieldCapacity, capacity,
	))
	it := &Iter[T]{
		id:          id,
		log:         log,
		metrics:     newPipelineMetrics(o.meter, "single", log),
		maxCapacity: capacity,
	}
	it.producerCond = sync.NewCond(&it.mu)
	it.consumerCond = sync.NewCond(&it.mu)
	return it
}

// ID returns the identifier attached to this pipeline's log lines.
func (it *Iter[T]) ID() string { return it.id }

// OnRelease registers fn to receive every cell the pipeline still holds when
// it is destroyed. Must be called before Init.
func (it *Iter[T]) OnRelease(fn func(*T)) {
	it.mu.Lock()
	defer it.mu.Unlock()
	it.release = fn
}

// Init starts the producer goroutine. produce fills cells; reset rewinds the
// source and runs once on the producer goroutine before the first produce.
// A nil reset makes Reset panic with RESET_UNSUPPORTED.
func (it *Iter[T]) Init(produce ProduceFunc[T], reset func()) {
	it.mu.Lock()
	if it.initialized {
		it.mu.Unlock()
		fail(it.log, errors.AlreadyInitialized(it.id))
	}
	if it.signal == signalDestroy {
		it.mu.Unlock()
		return
	}
	it.initialized = true
	it.reset = reset
	it.done = make(chan struct{})
	it.mu.Unlock()

	go it.run(produce, reset)
	it.log.Debug("producer started")
}

// InitProducer starts the pipeline on p. The rewind action is taken from p
// when it implements Resetter. When owned is true and p implements
// io.Closer, Destroy closes it.
func (it *Iter[T]) InitProducer(p Producer[T], owned bool) {
	var reset func()
	if r, ok := p.(Resetter); ok {
		reset = r.Reset
	}
	if owned {
		if c, ok := p.(io.Closer); ok {
			it.mu.Lock()
			it.owned = c
			it.mu.Unlock()
		}
	}
	it.Init(p.Produce, reset)
}

func (it *Iter[T]) run(produce ProduceFunc[T], reset func()) {
	defer close(it.done)
	if reset != nil {
		reset()
	}

	for {
		it.mu.Lock()
		it.nwaitProducer++
		for it.signal == signalProduce && !it.canProduce() {
			it.producerCond.Wait()
		}
		it.nwaitProducer--

		switch it.signal {
		case signalReset:
			it.mu.Unlock()
			reset()
			it.mu.Lock()
			discarded := len(it.queue)
			for i, cell := range it.queue {
				it.free = append(it.free, cell)
				it.queue[i] = nil
			}
			it.queue = it.queue[:0]
			it.produceEnd = false
			it.processed = true
			// Destroy may have superseded the reset while it ran.
			if it.signal == signalReset {
				it.signal = signalProduce
			}
			it.mu.Unlock()
			it.metrics.recordDiscarded(discarded)
			it.consumerCond.Broadcast()
			continue
		case signalDestroy:
			it.processed = true
			it.produceEnd = true
			it.mu.Unlock()
			it.consumerCond.Broadcast()
			return
		}

		var cell *T
		if n := len(it.free); n > 0 {
			cell = it.free[n-1]
			it.free[n-1] = nil
			it.free = it.free[:n-1]
		}
		it.mu.Unlock()

		if cell == nil {
			it.metrics.recordAllocated()
		}
		next, ok := produce(cell)

		it.mu.Lock()
		switch {
		case ok && next == nil:
			it.fault = errors.ProducerContract("produce reported an item but returned no cell")
			it.produceEnd = true
		case ok:
			it.queue = append(it.queue, next)
			it.metrics.recordProduced()
		default:
			it.produceEnd = true
			if next != nil {
				it.free = append(it.free, next)
			}
		}
		notify := it.nwaitConsumer > 0 || it.produceEnd
		it.mu.Unlock()
		if notify {
			it.consumerCond.Broadcast()
		}
	}
}

// canProduce reports whether the producer may fill another cell.
// Callers must hold mu.
func (it *Iter[T]) canProduce() bool {
	return !it.produceEnd && len(it.queue) < it.maxCapacity
}

// Next blocks until an item is ready and hands it to the caller, or returns
// false once the producer has reached the end of the stream. Ownership of
// the cell passes to the caller until it is given back with Recycle.
func (it *Iter[T]) Next() (*T, bool) {
	it.mu.Lock()
	switch {
	case it.signal == signalDestroy:
		it.mu.Unlock()
		return nil, false
	case !it.initialized:
		it.mu.Unlock()
		fail(it.log, errors.NotInitialized("Next"))
	case it.signal == signalReset:
		it.mu.Unlock()
		fail(it.log, errors.ConcurrentReset())
	}

	it.nwaitConsumer++
	for len(it.queue) == 0 && !it.produceEnd && it.signal != signalDestroy {
		it.consumerCond.Wait()
	}
	it.nwaitConsumer--

	if len(it.queue) == 0 {
		fault := it.fault
		it.mu.Unlock()
		if fault != nil {
			fail(it.log, fault)
		}
		return nil, false
	}

	cell := it.queue[0]
	it.queue[0] = nil
	it.queue = it.queue[1:]
	notify := it.nwaitProducer > 0 && !it.produceEnd
	it.mu.Unlock()

	if notify {
		it.producerCond.Signal()
	}
	it.metrics.recordConsumed()
	return cell, true
}

// Recycle returns a cell obtained from Next to the free list and clears the
// caller's reference. A nil cell is ignored.
func (it *Iter[T]) Recycle(cell **T) {
	if cell == nil || *cell == nil {
		return
	}
	c := *cell
	*cell = nil

	it.mu.Lock()
	if it.torn {
		release := it.release
		it.mu.Unlock()
		if release != nil {
			release(c)
		}
		return
	}
	it.free = append(it.free, c)
	notify := it.nwaitProducer > 0 && !it.produceEnd
	it.mu.Unlock()

	if notify {
		it.producerCond.Signal()
	}
	it.metrics.recordRecycled()
}

// Reset rewinds the pipeline to the start of the stream and returns once the
// producer has acknowledged the request. Queued items and the cursor's
// current item go back to the free list. Reset on a destroyed pipeline does
// nothing.
func (it *Iter[T]) Reset() {
	it.resetMu.Lock()
	defer it.resetMu.Unlock()

	it.mu.Lock()
	out := it.out
	it.out = nil
	if it.signal == signalDestroy {
		it.mu.Unlock()
		it.Recycle(&out)
		return
	}
	if out != nil {
		it.free = append(it.free, out)
	}
	switch {
	case !it.initialized:
		it.mu.Unlock()
		fail(it.log, errors.NotInitialized("Reset"))
	case it.reset == nil:
		it.mu.Unlock()
		fail(it.log, errors.ResetUnsupported())
	case it.signal != signalProduce || it.processed:
		it.mu.Unlock()
		fail(it.log, errors.ResetUnacknowledged())
	}

	it.signal = signalReset
	it.producerCond.Signal()
	for !it.processed {
		it.consumerCond.Wait()
	}
	it.processed = false
	it.mu.Unlock()

	it.metrics.recordReset()
	it.log.Debug("reset acknowledged")
}

// Destroy stops the producer, waits for its goroutine to exit and releases
// every cell the pipeline holds. It is safe to call more than once and on a
// pipeline that was never initialized.
func (it *Iter[T]) Destroy() {
	it.destroyOnce.Do(it.destroy)
}

func (it *Iter[T]) destroy() {
	it.mu.Lock()
	it.signal = signalDestroy
	done := it.done
	if done == nil {
		it.produceEnd = true
		it.processed = true
	}
	it.mu.Unlock()
	it.producerCond.Signal()
	it.consumerCond.Broadcast()

	if done != nil {
		<-done
	}

	it.mu.Lock()
	it.torn = true
	cells := make([]*T, 0, len(it.free)+len(it.queue)+1)
	cells = append(cells, it.free...)
	cells = append(cells, it.queue...)
	if it.out != nil {
		cells = append(cells, it.out)
	}
	it.free, it.queue, it.out = nil, nil, nil
	release := it.release
	owned := it.owned
	it.owned = nil
	it.mu.Unlock()

	if release != nil {
		for _, c := range cells {
			release(c)
		}
	}
	if owned != nil {
		if err := owned.Close(); err != nil {
			it.log.Warn("closing producer failed", logger.ErrorFields("destroy", err))
		}
	}
	it.log.Debug("pipeline destroyed", logger.Fields("released", len(cells)))
}

// SetMaxCapacity changes the ready queue bound. Values below 1 are raised to 1.
func (it *Iter[T]) SetMaxCapacity(n int) {
	if n < 1 {
		n = 1
	}
	it.mu.Lock()
	it.maxCapacity = n
	it.mu.Unlock()
	it.producerCond.Signal()
}

// Stats returns a snapshot of the pipeline's buffers.
func (it *Iter[T]) Stats() Stats {
	it.mu.Lock()
	defer it.mu.Unlock()
	return Stats{
		Queued:   len(it.queue),
		Free:     len(it.free),
		Capacity: it.maxCapacity,
		Ended:    it.produceEnd && len(it.queue) == 0,
	}
}

// Advance recycles the current item and moves to the next one.
func (it *Iter[T]) Advance() bool {
	it.mu.Lock()
	out := it.out
	it.out = nil
	it.mu.Unlock()
	it.Recycle(&out)

	cell, ok := it.Next()
	it.mu.Lock()
	it.out = cell
	it.mu.Unlock()
	return ok
}

// Value returns the item Advance moved to. It panics before the first
// Advance and after the end of the stream.
func (it *Iter[T]) Value() *T {
	it.mu.Lock()
	out := it.out
	it.mu.Unlock()
	if out == nil {
		fail(it.log, errors.NoCurrentItem())
	}
	return out
}

// fail logs a usage-contract violation and panics with it.
func fail(log *logger.Logger, err *errors.AppError) {
	log.Error(err.Message, logger.Fields(logger.FieldCode, string(err.Code)))
	panic(err)
}
