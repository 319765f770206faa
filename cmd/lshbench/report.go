package main

import (
	"github.com/hupe1980/lshgo/internal/dataset"
	"github.com/hupe1980/lshgo/topk"
	"gonum.org/v1/gonum/stat"
)

// summary is the recall of one evaluation.
type summary struct {
	Recalls []float64
	Mean    float64
	StdDev  float64
}

// summarize computes per-query recall of results against the first k
// ground-truth distances.
func summarize(results [][]topk.Result, gt *dataset.GroundTruth, k int) summary {
	recalls := make([]float64, len(results))
	for q, res := range results {
		got := make([]float64, len(res))
		for i, r := range res {
			got[i] = float64(r.Distance)
		}
		recalls[q] = dataset.Recall(got, gt.Distances(q, k), dataset.DefaultRecallEpsilon)
	}

	s := summary{Recalls: recalls}
	switch len(recalls) {
	case 0:
	case 1:
		s.Mean = recalls[0]
	default:
		s.Mean, s.StdDev = stat.MeanStdDev(recalls, nil)
	}
	return s
}
