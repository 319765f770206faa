// Package blobstore provides storage abstraction for persisted lshgo indexes.
//
// Store is the interface for reading and writing whole blobs.
// Implementations must be safe for concurrent use.
//
// # Built-in Implementations
//
//   - MemoryStore: in-process map, for tests
//   - LocalStore: local filesystem with atomic rename on Put
//   - minio.Store: MinIO and S3-compatible object storage
//   - s3.Store: Amazon S3 with multipart uploads
//   - RateLimited: bandwidth limit around any other Store
//
// # Custom Implementations
//
// Implement the Store interface to support custom storage backends:
//
//	type Store interface {
//	    Put(ctx, name, data) error
//	    Get(ctx, name) ([]byte, error)
//	    Delete(ctx, name) error
//	    List(ctx, prefix) ([]string, error)
//	}
//
// Missing blobs must be reported with an error matching ErrNotFound.
package blobstore
