// Package signature converts vectors into fixed-length LSH signatures.
//
// Two hashers are provided:
//
//   - RandomProjection: component k is floor((v·p_k + b_k) / r) for a random
//     standard-normal direction p_k and an offset b_k uniform in [0, r).
//   - Pivot: the signature holds the indices of the sigdim pivots nearest to v,
//     where the pivots are rows sampled from the build dataset.
//
// Every component leaving Sign is masked to 15 bits, so it lies in [0, 32767].
// For the pivot hasher the pivot count is validated to stay within that range.
// For random projection the mask is a modular bucketing of the raw value;
// WithStrictRange turns a raw value outside [0, 32767] into ErrSignatureOverflow.
//
// Hashers are immutable after construction and safe for concurrent use.
package signature
