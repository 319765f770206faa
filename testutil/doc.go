// Package testutil provides deterministic data generators and a brute-force
// reference search for tests and benchmarks.
//
//	rng := testutil.NewRNG(4711)
//	data := rng.ClusteredVectors(1000, 32, 10, 0.05)
//	truth := testutil.BruteForceKNN(queries, data, 10, distance.L2)
//	recall := testutil.ComputeRecall(truth[0], approx)
package testutil
