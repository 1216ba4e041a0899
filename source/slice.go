package source

// Slice produces the elements of a slice in order.
type Slice[T any] struct {
	items []T
	pos   int
}

// NewSlice returns a producer over items. The slice is not copied.
func NewSlice[T any](items []T) *Slice[T] {
	return &Slice[T]{items: items}
}

// Produce copies the next element into cell, allocating when cell is nil.
func (s *Slice[T]) Produce(cell *T) (*T, bool) {
	if s.pos >= len(s.items) {
		return cell, false
	}
	if cell == nil {
		cell = new(T)
	}
	*cell = s.items[s.pos]
	s.pos++
	return cell, true
}

// Reset rewinds to the first element.
func (s *Slice[T]) Reset() { s.pos = 0 }

// Len returns the number of elements.
func (s *Slice[T]) Len() int { return len(s.items) }
