// Package prefetch turns a slow, pull-one-item-at-a-time source into a
// pipelined stream.
//
// Iter runs one background goroutine that calls a produce function ahead of
// demand and parks the results in a bounded ready queue. Cells handed back
// with Recycle are reused by the producer, so a steady-state stream performs
// no allocation. Reset rewinds the source as a rendezvous with the producer:
// queued cells are returned to the free list, the source's reset function
// runs, and the stream starts over.
//
// MultiIter uses an Iter as its upstream and fans the raw items out to a
// fixed pool of workers that transform them in parallel into a shared
// bounded queue. Output order follows whichever worker finishes first.
//
// # Usage
//
//	it := prefetch.New[Batch](8)
//	it.Init(func(cell *Batch) (*Batch, bool) {
//	    if cell == nil {
//	        cell = new(Batch)
//	    }
//	    return cell, reader.ReadInto(cell)
//	}, reader.Rewind)
//	defer it.Destroy()
//
//	for {
//	    b, ok := it.Next()
//	    if !ok {
//	        break
//	    }
//	    process(b)
//	    it.Recycle(&b)
//	}
//
// # Contract
//
// Next and Recycle on an Iter are safe for concurrent use. Reset must not
// run concurrently with Next; a read that observes a reset in flight panics.
// All usage-contract violations panic with an *errors.AppError. Reaching
// the end of the stream is reported by Next returning false, never by an
// error.
package prefetch
