// Package batch drives a bucket engine over a query set in fixed-size batches.
//
// For every batch the orchestrator signs the queries, asks the engine for
// candidate lists and hands each (global query id, candidate id) pair to a
// Sink, in query-then-candidate order. Batches run strictly in input order, so
// the pairs seen by the sink do not depend on the batch size.
//
//	sel, _ := topk.New(10, queries, data)
//	o, _ := batch.New(hasher, engine, batch.WithQueryPerBatch(512))
//	if err := o.Run(ctx, queries, sel); err != nil { ... }
//	results := sel.Results()
package batch
