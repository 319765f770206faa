package persistence

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/hupe1980/lshgo/internal/conv"
)

// Encoder appends little-endian values to a growing buffer.
type Encoder struct {
	buf []byte
}

// NewEncoder creates an encoder with the given initial capacity.
func NewEncoder(capacity int) *Encoder {
	return &Encoder{buf: make([]byte, 0, capacity)}
}

// Bytes returns the encoded bytes.
func (e *Encoder) Bytes() []byte {
	return e.buf
}

// Len returns the number of encoded bytes.
func (e *Encoder) Len() int {
	return len(e.buf)
}

func (e *Encoder) PutUint8(v uint8) {
	e.buf = append(e.buf, v)
}

func (e *Encoder) PutBool(v bool) {
	if v {
		e.buf = append(e.buf, 1)
		return
	}
	e.buf = append(e.buf, 0)
}

func (e *Encoder) PutUint32(v uint32) {
	e.buf = binary.LittleEndian.AppendUint32(e.buf, v)
}

func (e *Encoder) PutUint64(v uint64) {
	e.buf = binary.LittleEndian.AppendUint64(e.buf, v)
}

func (e *Encoder) PutFloat32(v float32) {
	e.PutUint32(math.Float32bits(v))
}

// PutInt stores a non-negative int as uint64.
func (e *Encoder) PutInt(v int) error {
	u, err := conv.IntToUint64(v)
	if err != nil {
		return err
	}
	e.PutUint64(u)
	return nil
}

// PutFloat32s stores the values without a length prefix.
func (e *Encoder) PutFloat32s(vs []float32) {
	for _, v := range vs {
		e.PutUint32(math.Float32bits(v))
	}
}

// PutBytes stores a uint64 length prefix followed by b.
func (e *Encoder) PutBytes(b []byte) {
	e.PutUint64(uint64(len(b)))
	e.buf = append(e.buf, b...)
}

// Decoder reads little-endian values from a byte slice. The first failure is
// sticky: later reads return zero values and Err reports the failure.
type Decoder struct {
	buf []byte
	off int
	err error
}

// NewDecoder creates a decoder over data.
func NewDecoder(data []byte) *Decoder {
	return &Decoder{buf: data}
}

// Err returns the first decoding error.
func (d *Decoder) Err() error {
	return d.err
}

// Remaining returns the number of unread bytes.
func (d *Decoder) Remaining() int {
	return len(d.buf) - d.off
}

func (d *Decoder) next(n int) []byte {
	if d.err != nil {
		return nil
	}
	if n < 0 || d.Remaining() < n {
		d.err = fmt.Errorf("%w: need %d bytes at offset %d, have %d", ErrCorrupt, n, d.off, d.Remaining())
		return nil
	}
	b := d.buf[d.off : d.off+n]
	d.off += n
	return b
}

func (d *Decoder) Uint8() uint8 {
	b := d.next(1)
	if b == nil {
		return 0
	}
	return b[0]
}

func (d *Decoder) Bool() bool {
	return d.Uint8() != 0
}

func (d *Decoder) Uint32() uint32 {
	b := d.next(4)
	if b == nil {
		return 0
	}
	return binary.LittleEndian.Uint32(b)
}

func (d *Decoder) Uint64() uint64 {
	b := d.next(8)
	if b == nil {
		return 0
	}
	return binary.LittleEndian.Uint64(b)
}

func (d *Decoder) Float32() float32 {
	return math.Float32frombits(d.Uint32())
}

// Int reads a value written by PutInt.
func (d *Decoder) Int() int {
	u := d.Uint64()
	if d.err != nil {
		return 0
	}
	v, err := conv.Uint64ToInt(u)
	if err != nil {
		d.err = fmt.Errorf("%w: %w", ErrCorrupt, err)
		return 0
	}
	return v
}

// Float32s reads n values written by PutFloat32s.
func (d *Decoder) Float32s(n int) []float32 {
	if n > d.Remaining()/4 {
		d.next(n * 4)
		return nil
	}
	b := d.next(n * 4)
	if b == nil {
		return nil
	}
	out := make([]float32, n)
	for i := range out {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:]))
	}
	return out
}

// Bytes reads a value written by PutBytes. The result aliases the input.
func (d *Decoder) Bytes() []byte {
	n := d.Uint64()
	if d.err != nil {
		return nil
	}
	if n > uint64(d.Remaining()) {
		d.err = fmt.Errorf("%w: section of %d bytes exceeds remaining %d", ErrCorrupt, n, d.Remaining())
		return nil
	}
	return d.next(int(n))
}
