// Package topk refines candidate ids into the exact k nearest neighbours.
//
// A Selector keeps one bounded max-heap per query. Push computes the exact
// distance between a query and a candidate and admits the pair when the heap
// is not full or when it is strictly closer than the current worst entry.
// Results drains every heap into ascending order; draining is destructive.
//
// Push may be called concurrently for distinct query ids. Calls for the same
// query id must not overlap.
package topk
