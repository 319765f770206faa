package dataset

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"os"

	"github.com/edsrzf/mmap-go"
)

var (
	// ErrTruncated is returned when a file holds fewer values than requested.
	ErrTruncated = errors.New("dataset: truncated file")

	// ErrInvalidArgument is returned for non-positive dimensions or negative counts.
	ErrInvalidArgument = errors.New("dataset: invalid argument")
)

const float32Size = 4

// LoadVectors reads n vectors of dimension d from a raw little-endian float32
// file. n == 0 loads every complete row in the file; a trailing partial row is
// then reported as ErrTruncated. The file is memory mapped and decoded into
// freshly allocated rows, so the mapping does not outlive the call.
func LoadVectors(path string, n, d int) ([][]float32, error) {
	if d <= 0 || n < 0 {
		return nil, fmt.Errorf("%w: n=%d d=%d", ErrInvalidArgument, n, d)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()

	fi, err := f.Stat()
	if err != nil {
		return nil, err
	}

	rowBytes := d * float32Size
	size := fi.Size()

	if n == 0 {
		if size%int64(rowBytes) != 0 {
			return nil, fmt.Errorf("%w: %s: %d bytes is not a multiple of %d", ErrTruncated, path, size, rowBytes)
		}
		n = int(size / int64(rowBytes))
	}
	if need := int64(n) * int64(rowBytes); size < need {
		return nil, fmt.Errorf("%w: %s: need %d bytes, have %d", ErrTruncated, path, need, size)
	}
	if n == 0 {
		return [][]float32{}, nil
	}

	m, err := mmap.Map(f, mmap.RDONLY, 0)
	if err != nil {
		return nil, fmt.Errorf("dataset: map %s: %w", path, err)
	}
	defer func() { _ = m.Unmap() }()

	return decodeRows(m, n, d), nil
}

// ReadVectors reads exactly n vectors of dimension d from r.
func ReadVectors(r io.Reader, n, d int) ([][]float32, error) {
	if d <= 0 || n < 0 {
		return nil, fmt.Errorf("%w: n=%d d=%d", ErrInvalidArgument, n, d)
	}

	br := bufio.NewReader(r)
	buf := make([]byte, d*float32Size)
	out := make([][]float32, n)
	for i := range out {
		if _, err := io.ReadFull(br, buf); err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
				return nil, fmt.Errorf("%w: row %d of %d", ErrTruncated, i, n)
			}
			return nil, err
		}
		out[i] = decodeRows(buf, 1, d)[0]
	}
	return out, nil
}

// WriteVectors writes vecs as raw little-endian float32 rows.
func WriteVectors(w io.Writer, vecs [][]float32) error {
	bw := bufio.NewWriter(w)
	var scratch [float32Size]byte
	for _, v := range vecs {
		for _, x := range v {
			binary.LittleEndian.PutUint32(scratch[:], math.Float32bits(x))
			if _, err := bw.Write(scratch[:]); err != nil {
				return err
			}
		}
	}
	return bw.Flush()
}

// SaveVectors writes vecs to path, creating or truncating it.
func SaveVectors(path string, vecs [][]float32) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := WriteVectors(f, vecs); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

func decodeRows(data []byte, n, d int) [][]float32 {
	flat := make([]float32, n*d)
	for i := range flat {
		flat[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[i*float32Size:]))
	}

	out := make([][]float32, n)
	for i := range out {
		out[i] = flat[i*d : (i+1)*d : (i+1)*d]
	}
	return out
}
