package voiceprint

import "fmt"

// DefaultTargetCount is the number of samples the aggregate mean is taken
// over. Smaller batches are replicated as a whole until they reach it.
const DefaultTargetCount = 50

// Aggregator combines per-recording embeddings into one template embedding.
//
// # Algorithm
//
// The aggregate is the element-wise arithmetic mean. When fewer than
// TargetCount embeddings are available, the batch is replicated as a whole
// R = ceil(TargetCount/N) times, concatenated in order, and the mean is
// taken over the concatenation. For N=10 and TargetCount=50 this gives R=5.
//
// In exact arithmetic replication does not change the mean. It does change
// floating-point summation order, and reference template values depend on
// it, so the concatenation is materialized and summed sequentially.
type Aggregator struct {
	// TargetCount is the replication target. Zero or negative disables
	// replication (R=1).
	TargetCount int
}

// NewAggregator returns an Aggregator with DefaultTargetCount.
func NewAggregator() *Aggregator {
	return &Aggregator{TargetCount: DefaultTargetCount}
}

// Replication returns the number of times a batch of n embeddings is
// replicated before averaging.
func (a *Aggregator) Replication(n int) int {
	if a == nil || a.TargetCount <= 0 || n <= 0 || n >= a.TargetCount {
		return 1
	}
	return (a.TargetCount + n - 1) / n
}

// Aggregate returns the mean embedding of embs after replication.
//
// It fails with ErrNoValidEmbeddings for an empty input and with a
// *DimensionMismatchError when the embeddings do not share one dimension.
// The input embeddings are not modified.
func (a *Aggregator) Aggregate(embs []Embedding) (Embedding, error) {
	if len(embs) == 0 {
		return nil, ErrNoValidEmbeddings
	}
	dim := len(embs[0])
	if dim == 0 {
		return nil, fmt.Errorf("%w: embedding 0 is empty", ErrNoValidEmbeddings)
	}
	for i, e := range embs {
		if len(e) != dim {
			return nil, fmt.Errorf("embedding %d: %w", i, &DimensionMismatchError{Expected: dim, Actual: len(e)})
		}
	}

	r := a.Replication(len(embs))
	batch := make([]Embedding, 0, r*len(embs))
	for range r {
		batch = append(batch, embs...)
	}

	sum := make([]float64, dim)
	for _, e := range batch {
		for j, v := range e {
			sum[j] += float64(v)
		}
	}
	n := float64(len(batch))
	mean := make(Embedding, dim)
	for j := range sum {
		mean[j] = float32(sum[j] / n)
	}
	return mean, nil
}
