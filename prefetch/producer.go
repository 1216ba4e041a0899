package prefetch

// ProduceFunc fills the next item of a stream.
//
// cell is a recycled cell, or nil when none is free and the function must
// allocate. It returns the filled cell (which may be cell itself or a
// replacement) and true, or false at the end of the stream. A cell returned
// together with false is kept for reuse.
type ProduceFunc[T any] func(cell *T) (*T, bool)

// Producer is the object form of a ProduceFunc.
type Producer[T any] interface {
	Produce(cell *T) (*T, bool)
}

// Resetter is implemented by producers that can rewind to the first item.
type Resetter interface {
	Reset()
}

// Cursor traverses a sequence: Reset rewinds to before the first item,
// Advance moves to the next item and reports whether one exists, and Value
// returns the current item.
type Cursor[T any] interface {
	Reset()
	Advance() bool
	Value() *T
}

var (
	_ Cursor[int] = (*Iter[int])(nil)
	_ Cursor[int] = (*MultiIter[int, int])(nil)
)
