package persistence

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/google/uuid"
	"github.com/hupe1980/lshgo/internal/conv"
)

// Blob is the decoded content of a saved index.
type Blob struct {
	Kind      HasherKind
	Dimension int
	SigDim    int
	Count     int // number of indexed objects
	BuildID   uuid.UUID
	Settings  []byte // index settings owned by the caller
	Hasher    []byte // hasher state as produced by its MarshalBinary
	Engine    []byte // engine state as produced by its MarshalBinary
}

// Write encodes b to w using compression c.
func Write(w io.Writer, b *Blob, c Compression) error {
	if b.Kind != HasherRandomProjection && b.Kind != HasherPivot {
		return fmt.Errorf("%w: %v", ErrInvalidHasher, b.Kind)
	}

	dim, err := conv.IntToUint32(b.Dimension)
	if err != nil {
		return fmt.Errorf("dimension: %w", err)
	}
	sigDim, err := conv.IntToUint32(b.SigDim)
	if err != nil {
		return fmt.Errorf("signature length: %w", err)
	}

	count, err := conv.IntToUint64(b.Count)
	if err != nil {
		return fmt.Errorf("count: %w", err)
	}

	enc := NewEncoder(24 + len(b.Settings) + len(b.Hasher) + len(b.Engine))
	enc.PutBytes(b.Settings)
	enc.PutBytes(b.Hasher)
	enc.PutBytes(b.Engine)
	raw := enc.Bytes()

	payload, applied, err := compress(raw, c)
	if err != nil {
		return fmt.Errorf("compress payload: %w", err)
	}

	header := Header{
		Magic:         MagicNumber,
		Version:       Version,
		HasherKind:    b.Kind,
		Compression:   applied,
		Dimension:     dim,
		SigDim:        sigDim,
		PayloadLength: uint64(len(payload)),
		RawLength:     uint64(len(raw)),
		BuildID:       [16]byte(b.BuildID),
		Count:         count,
	}
	if header.Checksum, err = header.checksum(payload); err != nil {
		return err
	}

	if err := binary.Write(w, binary.LittleEndian, &header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	if _, err := w.Write(payload); err != nil {
		return fmt.Errorf("write payload: %w", err)
	}

	return nil
}

// Marshal encodes b into a new byte slice.
func Marshal(b *Blob, c Compression) ([]byte, error) {
	var buf bytes.Buffer
	if err := Write(&buf, b, c); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// ReadHeader reads and validates the header.
func ReadHeader(r io.Reader) (*Header, error) {
	var header Header
	if err := binary.Read(r, binary.LittleEndian, &header); err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	if header.Magic != MagicNumber {
		return nil, fmt.Errorf("%w: got 0x%08x", ErrInvalidMagic, header.Magic)
	}
	if header.Version != Version {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidVersion, header.Version)
	}
	if header.HasherKind != HasherRandomProjection && header.HasherKind != HasherPivot {
		return nil, fmt.Errorf("%w: %v", ErrInvalidHasher, header.HasherKind)
	}
	return &header, nil
}

// Read decodes a blob from r, verifying the checksum before decompression.
func Read(r io.Reader) (*Blob, error) {
	header, err := ReadHeader(r)
	if err != nil {
		return nil, err
	}
	return readBody(r, header)
}

// Unmarshal decodes a blob from data.
func Unmarshal(data []byte) (*Blob, error) {
	r := bytes.NewReader(data)

	header, err := ReadHeader(r)
	if err != nil {
		return nil, err
	}
	if header.PayloadLength > uint64(r.Len()) {
		return nil, fmt.Errorf("%w: header declares %d payload bytes, %d available", ErrCorrupt, header.PayloadLength, r.Len())
	}

	return readBody(r, header)
}

func readBody(r io.Reader, header *Header) (*Blob, error) {
	payloadLen, err := conv.Uint64ToInt(header.PayloadLength)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCorrupt, err)
	}
	rawLen, err := conv.Uint64ToInt(header.RawLength)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCorrupt, err)
	}

	// The declared length is untrusted until the checksum passes.
	payload, err := io.ReadAll(io.LimitReader(r, int64(payloadLen)))
	if err != nil {
		return nil, fmt.Errorf("read payload: %w", err)
	}
	if len(payload) != payloadLen {
		return nil, fmt.Errorf("%w: payload has %d bytes, header declares %d: %w", ErrCorrupt, len(payload), payloadLen, io.ErrUnexpectedEOF)
	}

	if err := header.verify(payload); err != nil {
		return nil, err
	}

	raw, err := decompress(payload, header.Compression, rawLen)
	if err != nil {
		return nil, err
	}

	count, err := conv.Uint64ToInt(header.Count)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCorrupt, err)
	}

	dec := NewDecoder(raw)
	settings := dec.Bytes()
	hasher := dec.Bytes()
	engine := dec.Bytes()
	if err := dec.Err(); err != nil {
		return nil, err
	}

	return &Blob{
		Kind:      header.HasherKind,
		Dimension: int(header.Dimension),
		SigDim:    int(header.SigDim),
		Count:     count,
		BuildID:   uuid.UUID(header.BuildID),
		Settings:  settings,
		Hasher:    hasher,
		Engine:    engine,
	}, nil
}
