// Package queue provides a bounded, blocking, multi-producer multi-consumer
// FIFO queue.
//
// Push blocks while the queue is full and Pop blocks while it is empty.
// Two shutdown paths exist:
//
//   - Close stops accepting new items. Consumers keep draining what is
//     queued and Pop reports false once the queue is empty.
//   - SignalForKill aborts every blocked Push and Pop. Pending pushes are
//     refused so the caller keeps ownership of the item; Pop still hands out
//     whatever is queued and reports false once drained.
//
// A zero or negative capacity means the queue is unbounded.
package queue
