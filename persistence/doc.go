// Package persistence provides the binary format of a saved LSH index.
//
// A blob starts with a fixed 64-byte little-endian header followed by the
// payload. The payload holds length-prefixed sections (settings, hasher state
// and engine state) and may be compressed with LZ4 or ZSTD. The header carries
// a CRC32 over the header itself and the stored payload bytes, and declared
// lengths are bounded by the input before anything is allocated.
//
//	+----------------------+
//	| Header (64 bytes)    |  magic "LSH1", version, hasher kind, compression,
//	|                      |  dimension, signature length, build id, lengths, CRC32
//	+----------------------+
//	| Payload              |  [u64 len][settings][u64 len][hasher][u64 len][engine]
//	+----------------------+
//
// Encoder and Decoder are the primitives used by the hashers and bucket engines
// to produce their section bytes.
package persistence
