// Package lshgo provides locality-sensitive hashing for approximate nearest
// neighbour search over float32 vectors.
//
// Vectors are turned into short integer signatures, a bucket engine returns
// the objects whose signatures collide most with a query's, and the
// candidates are refined into exact top-k results.
//
// # Quick Start
//
//	ctx := context.Background()
//	idx, _ := lshgo.New(128,
//	    lshgo.WithSignatureLength(32),
//	    lshgo.WithRadius(4),
//	    lshgo.WithK(10),
//	)
//	_ = idx.Build(ctx, data)
//
//	results, _ := idx.Search(ctx, queries, data)
//	for _, r := range results[0] {
//	    fmt.Println(r.ID, r.Distance)
//	}
//
// # Hashers
//
// Two hashers are available:
//
//   - HasherProjection: floor((a·v + b) / r) per projection line, masked to 15 bits
//   - HasherPivot: ids of the SigDim nearest pivots sampled from the dataset
//
// # Raw Candidates
//
// Query streams (query id, candidate id) pairs to any batch.Sink without
// refinement. topk.Selector is the Sink used by Search.
//
//	err := idx.Query(ctx, queries, batch.SinkFunc(func(q, c int) error {
//	    counts[q]++
//	    return nil
//	}))
//
// # Persistence
//
// Save and Load move an index through any blobstore.Store:
//
//	store := blobstore.NewLocalStore("./indexes")
//	_ = idx.Save(ctx, store, "sift.lsh")
//	idx, _ = lshgo.Load(ctx, store, "sift.lsh")
//
// The blob is versioned, CRC32 checked and optionally LZ4 or ZSTD compressed.
//
// # Sharding
//
// WithShards splits the build set into contiguous ranges with independent
// engines that are queried in parallel; results are merged with global ids.
package lshgo
