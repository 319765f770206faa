package persistence

import (
	"encoding/binary"
	"fmt"
	"hash/crc32"
)

// CRC32 (IEEE) detects accidental corruption only; it is not tamper proof.

// CRC32Table is the IEEE polynomial table for checksum computation.
var CRC32Table = crc32.MakeTable(crc32.IEEE)

// checksum returns the CRC32 of h, with its Checksum field zeroed, followed
// by payload. Every header field is covered, so a flipped length or
// dimension is caught before it is used.
func (h Header) checksum(payload []byte) (uint32, error) {
	h.Checksum = 0

	var buf [HeaderSize]byte
	if _, err := binary.Encode(buf[:], binary.LittleEndian, &h); err != nil {
		return 0, fmt.Errorf("encode header: %w", err)
	}

	crc := crc32.Update(0, CRC32Table, buf[:])
	return crc32.Update(crc, CRC32Table, payload), nil
}

// verify returns ErrChecksumMismatch when h and payload do not hash to
// h.Checksum.
func (h Header) verify(payload []byte) error {
	actual, err := h.checksum(payload)
	if err != nil {
		return err
	}
	if actual != h.Checksum {
		return fmt.Errorf("%w: expected 0x%08x, got 0x%08x", ErrChecksumMismatch, h.Checksum, actual)
	}
	return nil
}
