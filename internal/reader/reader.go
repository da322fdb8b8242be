// Package reader implements the Binary Reader component (spec §4.1): a
// positioned big-endian reader over a byte source with bounded reads. It
// has no buffering contract beyond correctness — the whole class file is
// assumed materialized in memory before decompilation begins, per the
// single-threaded, non-blocking-mid-instruction concurrency model (spec §5).
package reader

import (
	"math"

	javaerrors "github.com/javadec/javadec/internal/errors"
)

// Reader is a positioned cursor over an in-memory byte slice.
type Reader struct {
	buf []byte
	at  int
}

// New wraps buf for positioned reads starting at offset 0.
func New(buf []byte) *Reader {
	return &Reader{buf: buf}
}

// Pos returns the current cursor position.
func (r *Reader) Pos() int { return r.at }

// Len returns the total number of bytes available.
func (r *Reader) Len() int { return len(r.buf) }

// Seek repositions the cursor; it does not validate pos against Len so
// callers can seek to the exact end (a valid "no more data" position).
func (r *Reader) Seek(pos int) { r.at = pos }

func (r *Reader) bounded(n int) ([]byte, error) {
	if r.at < 0 || n < 0 || r.at+n > len(r.buf) {
		return nil, javaerrors.New(javaerrors.KindUnexpectedEOF,
			"need %d bytes at offset %d, have %d", n, r.at, len(r.buf)-r.at)
	}
	b := r.buf[r.at : r.at+n]
	r.at += n
	return b, nil
}

// Bytes returns a borrowed slice of n bytes at the current position,
// advancing the cursor. The returned slice aliases the reader's backing
// array and must not be retained past the reader's lifetime if the caller
// intends to mutate it.
func (r *Reader) Bytes(n int) ([]byte, error) { return r.bounded(n) }

// U8 reads one unsigned byte.
func (r *Reader) U8() (uint8, error) {
	b, err := r.bounded(1)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

// I8 reads one signed byte.
func (r *Reader) I8() (int8, error) {
	v, err := r.U8()
	return int8(v), err
}

// U16 reads a big-endian uint16.
func (r *Reader) U16() (uint16, error) {
	b, err := r.bounded(2)
	if err != nil {
		return 0, err
	}
	return uint16(b[0])<<8 | uint16(b[1]), nil
}

// I16 reads a big-endian int16.
func (r *Reader) I16() (int16, error) {
	v, err := r.U16()
	return int16(v), err
}

// U32 reads a big-endian uint32.
func (r *Reader) U32() (uint32, error) {
	b, err := r.bounded(4)
	if err != nil {
		return 0, err
	}
	return uint32(b[0])<<24 | uint32(b[1])<<16 | uint32(b[2])<<8 | uint32(b[3]), nil
}

// I32 reads a big-endian int32.
func (r *Reader) I32() (int32, error) {
	v, err := r.U32()
	return int32(v), err
}

// U64 reads a big-endian uint64.
func (r *Reader) U64() (uint64, error) {
	hi, err := r.U32()
	if err != nil {
		return 0, err
	}
	lo, err := r.U32()
	if err != nil {
		return 0, err
	}
	return uint64(hi)<<32 | uint64(lo), nil
}

// I64 reads a big-endian int64.
func (r *Reader) I64() (int64, error) {
	v, err := r.U64()
	return int64(v), err
}

// F32 reads an IEEE-754 single-precision float from its u32 bit pattern.
func (r *Reader) F32() (float32, error) {
	bits, err := r.U32()
	if err != nil {
		return 0, err
	}
	return math.Float32frombits(bits), nil
}

// F64 reads an IEEE-754 double-precision float from its u64 bit pattern.
func (r *Reader) F64() (float64, error) {
	bits, err := r.U64()
	if err != nil {
		return 0, err
	}
	return math.Float64frombits(bits), nil
}
