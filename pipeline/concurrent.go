package pipeline

import (
	"context"

	"github.com/kbukum/prefetchkit/prefetch"
)

// item is a pipeline value in flight through a prefetch pipeline.
type item[T any] struct {
	val T
	err error
}

// fill returns a produce function that pulls from source. An error from
// source is delivered as one item and ends the stream.
func fill[T any](ctx context.Context, source Iterator[T]) prefetch.ProduceFunc[item[T]] {
	failed := false
	return func(cell *item[T]) (*item[T], bool) {
		if failed {
			return cell, false
		}
		val, ok, err := source.Next(ctx)
		if err == nil && !ok {
			return cell, false
		}
		if cell == nil {
			cell = new(item[T])
		}
		cell.val, cell.err = val, err
		failed = err != nil
		return cell, true
	}
}

// Prefetch reads ahead of the consumer on a background goroutine, keeping
// up to capacity values ready. Order is preserved. An error from the source
// is returned in stream order and ends the pipeline.
//
// Next does not return early on context cancellation unless the source does.
func Prefetch[T any](p *Pipeline[T], capacity int, opts ...prefetch.Option) *Pipeline[T] {
	return &Pipeline[T]{
		create: func(ctx context.Context) Iterator[T] {
			source := p.create(ctx)
			fetchCtx, cancel := context.WithCancel(ctx)
			it := prefetch.New[item[T]](capacity, opts...)
			it.Init(fill(fetchCtx, source), nil)
			return &prefetchIter[T, item[T]]{
				next:    it.Next,
				recycle: it.Recycle,
				closer: func() error {
					cancel()
					it.Destroy()
					return source.Close()
				},
				value: func(c *item[T]) (T, error) { return c.val, c.err },
			}
		},
	}
}

// Parallel applies fn to each value concurrently with n workers, reading
// the source ahead on its own goroutine. Order is NOT preserved. The first
// error cancels the workers' context and ends the pipeline.
func Parallel[I, O any](p *Pipeline[I], n int, fn func(context.Context, I) (O, error), opts ...prefetch.Option) *Pipeline[O] {
	if n <= 0 {
		n = 1
	}
	return &Pipeline[O]{
		create: func(ctx context.Context) Iterator[O] {
			source := p.create(ctx)
			workerCtx, cancel := context.WithCancel(ctx)

			upstream := prefetch.New[item[I]](n, opts...)
			upstream.Init(fill(workerCtx, source), nil)

			m := prefetch.NewMulti[item[O], item[I]](upstream, n, n, opts...)
			m.Init(func(cell *item[O], src *item[I], _ int) *item[O] {
				if cell == nil {
					cell = new(item[O])
				}
				if src.err != nil {
					var zero O
					cell.val, cell.err = zero, src.err
					return cell
				}
				cell.val, cell.err = fn(workerCtx, src.val)
				if cell.err != nil {
					cancel()
				}
				return cell
			}, nil)

			return &prefetchIter[O, item[O]]{
				next:    m.Next,
				recycle: m.Recycle,
				closer: func() error {
					cancel()
					m.Destroy()
					return source.Close()
				},
				value: func(c *item[O]) (O, error) { return c.val, c.err },
			}
		},
	}
}

// prefetchIter adapts a prefetch pipeline of cells C to an Iterator[T].
type prefetchIter[T, C any] struct {
	next    func() (*C, bool)
	recycle func(**C)
	value   func(*C) (T, error)
	closer  func() error
	done    bool
}

func (it *prefetchIter[T, C]) Next(ctx context.Context) (T, bool, error) {
	var zero T
	if it.done {
		return zero, false, nil
	}
	if err := ctx.Err(); err != nil {
		return zero, false, err
	}
	cell, ok := it.next()
	if !ok {
		it.done = true
		return zero, false, nil
	}
	val, err := it.value(cell)
	it.recycle(&cell)
	if err != nil {
		it.done = true
		return zero, false, err
	}
	return val, true, nil
}

func (it *prefetchIter[T, C]) Close() error {
	return it.closer()
}
