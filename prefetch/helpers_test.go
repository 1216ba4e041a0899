package prefetch

import (
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kbukum/prefetchkit/errors"
	"github.com/kbukum/prefetchkit/logger"
)

var quiet = WithLogger(logger.Nop())

// intSource is a deterministic producer over a fixed slice that counts the
// cells it allocates. pos is only touched on the producer goroutine.
type intSource struct {
	values    []int
	pos       int
	allocated atomic.Int64
	released  atomic.Int64
}

func newIntSource(values []int) *intSource {
	return &intSource{values: values}
}

func (s *intSource) Produce(cell *int) (*int, bool) {
	if s.pos >= len(s.values) {
		return cell, false
	}
	if cell == nil {
		cell = new(int)
		s.allocated.Add(1)
	}
	*cell = s.values[s.pos]
	s.pos++
	return cell, true
}

func (s *intSource) Reset() { s.pos = 0 }

func (s *intSource) release(*int) { s.released.Add(1) }

// seq returns [from, to].
func seq(from, to int) []int {
	out := make([]int, 0, to-from+1)
	for i := from; i <= to; i++ {
		out = append(out, i)
	}
	return out
}

type intStream interface {
	Next() (*int, bool)
	Recycle(cell **int)
}

// drain reads s to the end, recycling every cell.
func drain(s intStream) []int {
	var got []int
	for {
		cell, ok := s.Next()
		if !ok {
			return got
		}
		got = append(got, *cell)
		s.Recycle(&cell)
	}
}

func requirePanicCode(t *testing.T, code errors.ErrorCode, fn func()) {
	t.Helper()
	defer func() {
		r := recover()
		require.NotNil(t, r, "expected panic with %s", code)
		appErr, ok := errors.FromPanic(r)
		require.True(t, ok, "panic value %v is not an AppError", r)
		assert.Equal(t, code, appErr.Code)
	}()
	fn()
}
