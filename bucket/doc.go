// Package bucket defines the bucket index engine contract and ships two
// in-memory engines.
//
// An Engine is built once from the signatures of a dataset and then answers
// batched lookups: for every query signature it returns candidate ids that
// reference positions of the build input.
//
// Inverted keeps one roaring posting list per (signature position, value). A
// query counts, per object, how many positions collide and returns the ids with
// the highest counts.
//
// Sharded splits the build signatures into contiguous shards, builds one engine
// per shard and queries the shards in parallel, shifting ids by the shard offset.
package bucket
