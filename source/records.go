package source

import (
	"bufio"
	"fmt"
	"io"
	"os"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
)

// Compression names the encoding of a record stream.
type Compression string

const (
	CompressionNone Compression = "none"
	CompressionGzip Compression = "gzip"
	CompressionZstd Compression = "zstd"
)

// ParseCompression maps a configuration value to a Compression. The empty
// string selects CompressionNone.
func ParseCompression(s string) (Compression, error) {
	switch c := Compression(s); c {
	case "", CompressionNone:
		return CompressionNone, nil
	case CompressionGzip, CompressionZstd:
		return c, nil
	default:
		return "", fmt.Errorf("unknown compression %q", s)
	}
}

const readBufferSize = 64 << 10

// Record is one line of a record stream without its trailing newline.
type Record struct {
	Data []byte
	// Offset is the position of the record in the decoded stream.
	Offset int64
}

// Records produces newline-delimited records from a seekable stream.
//
// Records is not safe for concurrent use; a prefetch pipeline calls it from
// its single producer goroutine. The first read or decode error ends the
// stream and is reported by Err.
type Records struct {
	rs          io.ReadSeeker
	closer      io.Closer
	compression Compression

	gz  *gzip.Reader
	zd  *zstd.Decoder
	br  *bufio.Reader
	off int64
	eof bool
	err error
}

// OpenRecords opens the file at path. Close closes the file.
func OpenRecords(path string, c Compression) (*Records, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening records: %w", err)
	}
	r, err := NewRecords(f, c)
	if err != nil {
		f.Close()
		return nil, err
	}
	r.closer = f
	return r, nil
}

// NewRecords reads records from rs, which is rewound on Reset.
func NewRecords(rs io.ReadSeeker, c Compression) (*Records, error) {
	r := &Records{rs: rs, compression: c}
	if err := r.open(); err != nil {
		r.closeDecoder()
		return nil, err
	}
	return r, nil
}

// open positions the stream at its start and (re)builds the decoder chain.
func (r *Records) open() error {
	if _, err := r.rs.Seek(0, io.SeekStart); err != nil {
		return fmt.Errorf("rewinding records: %w", err)
	}

	var dec io.Reader
	switch r.compression {
	case CompressionNone, "":
		dec = r.rs
	case CompressionGzip:
		if r.gz == nil {
			gz, err := gzip.NewReader(r.rs)
			if err != nil {
				return fmt.Errorf("creating gzip reader: %w", err)
			}
			r.gz = gz
		} else if err := r.gz.Reset(r.rs); err != nil {
			return fmt.Errorf("resetting gzip reader: %w", err)
		}
		dec = r.gz
	case CompressionZstd:
		if r.zd == nil {
			zd, err := zstd.NewReader(r.rs, zstd.WithDecoderConcurrency(1))
			if err != nil {
				return fmt.Errorf("creating zstd reader: %w", err)
			}
			r.zd = zd
		} else if err := r.zd.Reset(r.rs); err != nil {
			return fmt.Errorf("resetting zstd reader: %w", err)
		}
		dec = r.zd
	default:
		return fmt.Errorf("unknown compression %q", r.compression)
	}

	if r.br == nil {
		r.br = bufio.NewReaderSize(dec, readBufferSize)
	} else {
		r.br.Reset(dec)
	}
	r.off = 0
	r.eof = false
	r.err = nil
	return nil
}

// Produce reads the next record into cell, reusing its Data buffer.
func (r *Records) Produce(cell *Record) (*Record, bool) {
	if r.eof || r.err != nil {
		return cell, false
	}
	if cell == nil {
		cell = &Record{}
	}
	cell.Data = cell.Data[:0]
	cell.Offset = r.off

	for {
		chunk, err := r.br.ReadSlice('\n')
		cell.Data = append(cell.Data, chunk...)
		switch err {
		case nil:
			r.off += int64(len(cell.Data))
			cell.Data = cell.Data[:len(cell.Data)-1]
			return cell, true
		case bufio.ErrBufferFull:
			continue
		case io.EOF:
			r.eof = true
			if len(cell.Data) == 0 {
				return cell, false
			}
			r.off += int64(len(cell.Data))
			return cell, true
		default:
			r.err = err
			return cell, false
		}
	}
}

// Reset rewinds to the first record. A rewind failure ends the stream and
// is reported by Err.
func (r *Records) Reset() {
	if err := r.open(); err != nil {
		r.err = err
	}
}

// Err returns the error that ended the stream, if any.
func (r *Records) Err() error {
	return r.err
}

// Offset returns the decoded byte offset of the next record.
func (r *Records) Offset() int64 {
	return r.off
}

// Close releases the decoder and closes the underlying file when Records
// opened it.
func (r *Records) Close() error {
	r.closeDecoder()
	if r.closer != nil {
		err := r.closer.Close()
		r.closer = nil
		return err
	}
	return nil
}

func (r *Records) closeDecoder() {
	if r.gz != nil {
		r.gz.Close()
		r.gz = nil
	}
	if r.zd != nil {
		r.zd.Close()
		r.zd = nil
	}
}
