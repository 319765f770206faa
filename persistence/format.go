package persistence

import (
	"errors"
	"fmt"
)

const (
	// MagicNumber identifies lshgo index blobs (ASCII: "LSH1").
	MagicNumber = 0x3148534C
	// Version is the current blob format version.
	Version = 1

	// HeaderSize is the encoded size of Header.
	HeaderSize = 64
)

var (
	ErrInvalidMagic       = errors.New("invalid magic number")
	ErrInvalidVersion     = errors.New("unsupported version")
	ErrChecksumMismatch   = errors.New("checksum mismatch")
	ErrInvalidHasher      = errors.New("invalid hasher kind")
	ErrUnknownCompression = errors.New("unknown compression")
	ErrCorrupt            = errors.New("corrupt data")
)

// HasherKind identifies the signature hasher stored in a blob.
type HasherKind uint8

const (
	HasherRandomProjection HasherKind = 1
	HasherPivot            HasherKind = 2
)

func (k HasherKind) String() string {
	switch k {
	case HasherRandomProjection:
		return "projection"
	case HasherPivot:
		return "pivot"
	default:
		return fmt.Sprintf("Unknown(%d)", uint8(k))
	}
}

// Header is the 64-byte header at the start of every index blob.
type Header struct {
	Magic         uint32 // 0x3148534C ("LSH1")
	Version       uint32
	HasherKind    HasherKind
	Compression   Compression
	Padding1      [2]byte
	Dimension     uint32
	SigDim        uint32
	Checksum      uint32 // CRC32 of the header (this field zeroed) and the stored payload
	PayloadLength uint64 // stored (possibly compressed) payload bytes
	RawLength     uint64 // payload bytes after decompression
	BuildID       [16]byte
	Count         uint64 // number of indexed objects
}

