package dataset

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"slices"
)

// Neighbor is one ground-truth entry.
type Neighbor struct {
	ID       int
	Distance float32
}

// GroundTruth holds the exact neighbours of every query.
type GroundTruth struct {
	MaxK int
	Rows [][]Neighbor
}

// Distances returns the first k distances of query q in file order.
func (g *GroundTruth) Distances(q, k int) []float64 {
	row := g.Rows[q]
	k = min(k, len(row))
	out := make([]float64, k)
	for i := range out {
		out[i] = float64(row[i].Distance)
	}
	return out
}

// ReadGroundTruth parses the text ground-truth format: a header line
// "qn maxk" followed by qn lines of maxk "id dist" pairs. Only the first qn
// rows are read; a file with fewer rows is ErrTruncated.
func ReadGroundTruth(r io.Reader, qn int) (*GroundTruth, error) {
	if qn < 0 {
		return nil, fmt.Errorf("%w: qn=%d", ErrInvalidArgument, qn)
	}

	br := bufio.NewReader(r)

	var fileQN, maxK int
	if _, err := fmt.Fscan(br, &fileQN, &maxK); err != nil {
		return nil, fmt.Errorf("dataset: ground truth header: %w", err)
	}
	if maxK < 0 || fileQN < 0 {
		return nil, fmt.Errorf("%w: ground truth header %d %d", ErrInvalidArgument, fileQN, maxK)
	}
	if fileQN < qn {
		return nil, fmt.Errorf("%w: ground truth has %d queries, need %d", ErrTruncated, fileQN, qn)
	}

	gt := &GroundTruth{MaxK: maxK, Rows: make([][]Neighbor, qn)}
	for i := range gt.Rows {
		row := make([]Neighbor, maxK)
		for j := range row {
			if _, err := fmt.Fscan(br, &row[j].ID, &row[j].Distance); err != nil {
				if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
					return nil, fmt.Errorf("%w: ground truth row %d entry %d", ErrTruncated, i, j)
				}
				return nil, fmt.Errorf("dataset: ground truth row %d entry %d: %w", i, j, err)
			}
		}
		gt.Rows[i] = row
	}
	return gt, nil
}

// LoadGroundTruth opens path and calls ReadGroundTruth.
func LoadGroundTruth(path string, qn int) (*GroundTruth, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()
	return ReadGroundTruth(f, qn)
}

// WriteGroundTruth writes rows in the format read by ReadGroundTruth.
// Every row must have the same length.
func WriteGroundTruth(w io.Writer, rows [][]Neighbor) error {
	maxK := 0
	if len(rows) > 0 {
		maxK = len(rows[0])
	}

	bw := bufio.NewWriter(w)
	if _, err := fmt.Fprintf(bw, "%d %d\n", len(rows), maxK); err != nil {
		return err
	}
	for i, row := range rows {
		if len(row) != maxK {
			return fmt.Errorf("%w: row %d has %d entries, want %d", ErrInvalidArgument, i, len(row), maxK)
		}
		for _, nb := range row {
			if _, err := fmt.Fprintf(bw, "%d %g ", nb.ID, nb.Distance); err != nil {
				return err
			}
		}
		if err := bw.WriteByte('\n'); err != nil {
			return err
		}
	}
	return bw.Flush()
}

// DefaultRecallEpsilon is the tolerance added to the largest ground-truth
// distance when matching results.
const DefaultRecallEpsilon = 1e-6

// Recall returns the fraction of the ground-truth distances matched by the
// result distances: among the smallest min(len(result), len(truth)) results,
// those not larger than max(truth)+eps are counted, divided by len(truth).
// Empty ground truth yields 0. Neither input is modified.
func Recall(result, truth []float64, eps float64) float64 {
	if len(truth) == 0 {
		return 0
	}

	res := slices.Clone(result)
	slices.Sort(res)
	limit := slices.Max(truth) + eps

	n := min(len(res), len(truth))
	hits := 0
	for _, d := range res[:n] {
		if d > limit {
			break
		}
		hits++
	}
	return float64(hits) / float64(len(truth))
}

// WriteResults writes one line per query with its result distances.
func WriteResults(w io.Writer, distances [][]float32) error {
	bw := bufio.NewWriter(w)
	for _, row := range distances {
		for j, d := range row {
			if j > 0 {
				if err := bw.WriteByte(' '); err != nil {
					return err
				}
			}
			if _, err := fmt.Fprintf(bw, "%g", d); err != nil {
				return err
			}
		}
		if err := bw.WriteByte('\n'); err != nil {
			return err
		}
	}
	return bw.Flush()
}
