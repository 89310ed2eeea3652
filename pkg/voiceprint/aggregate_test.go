package voiceprint

import (
	"errors"
	"math"
	"math/rand/v2"
	"testing"
)

func randEmbedding(dim int, rng *rand.Rand) Embedding {
	v := make(Embedding, dim)
	for i := range v {
		v[i] = float32(rng.NormFloat64())
	}
	return v
}

func TestReplication(t *testing.T) {
	a := NewAggregator()
	cases := []struct{ n, want int }{
		{1, 50},
		{3, 17},
		{10, 5},
		{49, 2},
		{50, 1},
		{64, 1},
	}
	for _, c := range cases {
		if got := a.Replication(c.n); got != c.want {
			t.Errorf("Replication(%d) = %d, want %d", c.n, got, c.want)
		}
	}
	if got := (&Aggregator{}).Replication(10); got != 1 {
		t.Errorf("disabled Replication(10) = %d, want 1", got)
	}
}

func TestAggregateSingle(t *testing.T) {
	rng := rand.New(rand.NewPCG(7, 0))
	e := randEmbedding(192, rng)
	for _, target := range []int{0, 1, 50, 1000} {
		a := &Aggregator{TargetCount: target}
		got, err := a.Aggregate([]Embedding{e})
		if err != nil {
			t.Fatalf("target=%d: %v", target, err)
		}
		for i := range e {
			if math.Abs(float64(got[i]-e[i])) > 1e-6 {
				t.Fatalf("target=%d: got[%d] = %v, want %v", target, i, got[i], e[i])
			}
		}
	}
}

func TestAggregateIdentical(t *testing.T) {
	e := Embedding{1, 0, 0}
	embs := make([]Embedding, 10)
	for i := range embs {
		embs[i] = e
	}
	got, err := NewAggregator().Aggregate(embs)
	if err != nil {
		t.Fatal(err)
	}
	for i := range e {
		if got[i] != e[i] {
			t.Fatalf("got = %v, want %v", got, e)
		}
	}
}

func TestAggregateReplicationDrift(t *testing.T) {
	rng := rand.New(rand.NewPCG(42, 0))
	embs := make([]Embedding, 10)
	for i := range embs {
		embs[i] = randEmbedding(192, rng)
	}

	replicated, err := NewAggregator().Aggregate(embs)
	if err != nil {
		t.Fatal(err)
	}
	plain, err := (&Aggregator{}).Aggregate(embs)
	if err != nil {
		t.Fatal(err)
	}
	for i := range plain {
		if d := math.Abs(float64(replicated[i] - plain[i])); d > 1e-6 {
			t.Fatalf("drift at %d: %v vs %v (|d|=%g)", i, replicated[i], plain[i], d)
		}
	}
}

func TestAggregateMean(t *testing.T) {
	embs := []Embedding{{1, 2}, {3, 4}, {5, 9}}
	got, err := NewAggregator().Aggregate(embs)
	if err != nil {
		t.Fatal(err)
	}
	want := Embedding{3, 5}
	for i := range want {
		if math.Abs(float64(got[i]-want[i])) > 1e-6 {
			t.Fatalf("got = %v, want %v", got, want)
		}
	}
}

func TestAggregateDoesNotMutateInput(t *testing.T) {
	embs := []Embedding{{1, 2, 3}, {4, 5, 6}}
	if _, err := NewAggregator().Aggregate(embs); err != nil {
		t.Fatal(err)
	}
	if embs[0][0] != 1 || embs[1][2] != 6 {
		t.Fatalf("input mutated: %v", embs)
	}
}

func TestAggregateEmpty(t *testing.T) {
	_, err := NewAggregator().Aggregate(nil)
	if !errors.Is(err, ErrNoValidEmbeddings) {
		t.Fatalf("err = %v, want ErrNoValidEmbeddings", err)
	}
}

func TestAggregateDimensionMismatch(t *testing.T) {
	_, err := NewAggregator().Aggregate([]Embedding{{1, 0, 0}, {1, 0}})
	if !errors.Is(err, ErrDimensionMismatch) {
		t.Fatalf("err = %v, want ErrDimensionMismatch", err)
	}
	var dm *DimensionMismatchError
	if !errors.As(err, &dm) {
		t.Fatalf("err = %T, want *DimensionMismatchError", err)
	}
	if dm.Expected != 3 || dm.Actual != 2 {
		t.Fatalf("mismatch = %+v, want expected=3 actual=2", dm)
	}
}
