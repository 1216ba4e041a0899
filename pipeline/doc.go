// Package pipeline provides composable, pull-based data pipeline operators.
//
// Pipelines are lazy: no work happens until values are pulled via Collect,
// Drain, or ForEach. Each stage pulls from the previous stage on demand,
// providing natural backpressure without explicit flow control.
//
// # Operators
//
// Synchronous (single-goroutine):
//
//   - Map: transform each value
//   - Filter: keep values matching a predicate
//   - Tap: side-effect without altering the value
//   - Reduce: accumulate all values into one result
//
// Concurrent, built on the prefetch package:
//
//   - Prefetch: read ahead on a background goroutine (order preserved)
//   - Parallel: concurrent Map with a worker pool (order NOT preserved)
//
// FromCursor bridges an existing prefetch.Iter or prefetch.MultiIter into a
// pipeline without taking ownership of it.
//
// # Usage
//
//	src := pipeline.FromSlice(paths)
//	loaded := pipeline.Prefetch(pipeline.Map(src, load), 4)
//	hashed := pipeline.Parallel(loaded, 8, hash)
//	results, err := pipeline.Collect(ctx, hashed)
package pipeline
