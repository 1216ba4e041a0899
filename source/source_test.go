package source

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kbukum/prefetchkit/logger"
	"github.com/kbukum/prefetchkit/prefetch"
)

func encode(t *testing.T, c Compression, plain []byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	switch c {
	case CompressionGzip:
		w := gzip.NewWriter(&buf)
		_, err := w.Write(plain)
		require.NoError(t, err)
		require.NoError(t, w.Close())
	case CompressionZstd:
		w, err := zstd.NewWriter(&buf)
		require.NoError(t, err)
		_, err = w.Write(plain)
		require.NoError(t, err)
		require.NoError(t, w.Close())
	default:
		buf.Write(plain)
	}
	return buf.Bytes()
}

func readAll(r *Records) []string {
	var out []string
	var cell *Record
	for {
		next, ok := r.Produce(cell)
		if !ok {
			return out
		}
		out = append(out, string(next.Data))
		cell = next
	}
}

func TestSlice(t *testing.T) {
	s := NewSlice([]string{"a", "b", "c"})
	assert.Equal(t, 3, s.Len())

	var got []string
	var cell *string
	for {
		next, ok := s.Produce(cell)
		if !ok {
			break
		}
		got = append(got, *next)
		cell = next
	}
	assert.Equal(t, []string{"a", "b", "c"}, got)

	s.Reset()
	first, ok := s.Produce(cell)
	require.True(t, ok)
	assert.Same(t, cell, first, "the given cell is reused")
	assert.Equal(t, "a", *first)
}

func TestRecords_Compressions(t *testing.T) {
	plain := []byte("alpha\nbeta\n\ngamma\n")
	want := []string{"alpha", "beta", "", "gamma"}

	for _, c := range []Compression{CompressionNone, CompressionGzip, CompressionZstd} {
		t.Run(string(c), func(t *testing.T) {
			r, err := NewRecords(bytes.NewReader(encode(t, c, plain)), c)
			require.NoError(t, err)
			defer r.Close()

			assert.Equal(t, want, readAll(r))
			assert.NoError(t, r.Err())

			r.Reset()
			assert.Equal(t, want, readAll(r), "reset replays the stream")
		})
	}
}

func TestRecords_LastLineWithoutNewline(t *testing.T) {
	r, err := NewRecords(strings.NewReader("one\ntwo"), CompressionNone)
	require.NoError(t, err)
	assert.Equal(t, []string{"one", "two"}, readAll(r))
}

func TestRecords_Offsets(t *testing.T) {
	r, err := NewRecords(strings.NewReader("ab\ncde\nf\n"), CompressionNone)
	require.NoError(t, err)

	var offsets []int64
	for {
		rec, ok := r.Produce(nil)
		if !ok {
			break
		}
		offsets = append(offsets, rec.Offset)
	}
	assert.Equal(t, []int64{0, 3, 7}, offsets)
	assert.EqualValues(t, 9, r.Offset())
}

func TestRecords_LongRecord(t *testing.T) {
	long := strings.Repeat("x", 3*readBufferSize+17)
	r, err := NewRecords(strings.NewReader(long+"\nshort\n"), CompressionNone)
	require.NoError(t, err)

	got := readAll(r)
	require.Len(t, got, 2)
	assert.Equal(t, long, got[0])
	assert.Equal(t, "short", got[1])
}

func TestRecords_ReusesBuffer(t *testing.T) {
	r, err := NewRecords(strings.NewReader("hello world\nhi\n"), CompressionNone)
	require.NoError(t, err)

	cell, ok := r.Produce(nil)
	require.True(t, ok)
	capBefore := cap(cell.Data)

	next, ok := r.Produce(cell)
	require.True(t, ok)
	assert.Same(t, cell, next)
	assert.Equal(t, "hi", string(next.Data))
	assert.Equal(t, capBefore, cap(next.Data))
}

func TestRecords_InvalidGzipHeader(t *testing.T) {
	_, err := NewRecords(strings.NewReader("not gzip"), CompressionGzip)
	assert.Error(t, err)
}

type failingReader struct {
	*bytes.Reader
	failAt int64
}

func (f *failingReader) Read(p []byte) (int, error) {
	pos, _ := f.Seek(0, io.SeekCurrent)
	if pos >= f.failAt {
		return 0, fmt.Errorf("disk on fire")
	}
	if rest := f.failAt - pos; int64(len(p)) > rest {
		p = p[:rest]
	}
	return f.Reader.Read(p)
}

func TestRecords_ReadErrorEndsStream(t *testing.T) {
	data := []byte("aaaa\nbbbb\ncccc\n")
	r, err := NewRecords(&failingReader{Reader: bytes.NewReader(data), failAt: 7}, CompressionNone)
	require.NoError(t, err)

	got := readAll(r)
	assert.Equal(t, []string{"aaaa"}, got)
	assert.ErrorContains(t, r.Err(), "disk on fire")

	_, ok := r.Produce(nil)
	assert.False(t, ok, "the stream stays ended")
}

func TestParseCompression(t *testing.T) {
	tests := []struct {
		in      string
		want    Compression
		wantErr bool
	}{
		{"", CompressionNone, false},
		{"none", CompressionNone, false},
		{"gzip", CompressionGzip, false},
		{"zstd", CompressionZstd, false},
		{"lz4", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseCompression(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestOpenRecords_FeedsPipeline(t *testing.T) {
	var plain strings.Builder
	for i := 0; i < 100; i++ {
		fmt.Fprintf(&plain, "record-%03d\n", i)
	}
	path := filepath.Join(t.TempDir(), "records.zst")
	require.NoError(t, os.WriteFile(path, encode(t, CompressionZstd, []byte(plain.String())), 0o600))

	r, err := OpenRecords(path, CompressionZstd)
	require.NoError(t, err)

	it := prefetch.New[Record](4, prefetch.WithLogger(logger.Nop()))
	it.InitProducer(r, true)

	for pass := 0; pass < 2; pass++ {
		n := 0
		for it.Advance() {
			assert.Equal(t, fmt.Sprintf("record-%03d", n), string(it.Value().Data))
			n++
		}
		assert.Equal(t, 100, n)
		it.Reset()
	}
	it.Destroy()
	assert.NoError(t, r.Err())
}

func TestOpenRecords_MissingFile(t *testing.T) {
	_, err := OpenRecords(filepath.Join(t.TempDir(), "missing"), CompressionNone)
	assert.Error(t, err)
}
