package normalize

import (
	"math"
	"testing"

	"github.com/tsawler/go-imageset/sampler"
	"github.com/tsawler/go-imageset/transform"
)

// fixedSource returns copies of the same synthetic batch on every draw and
// counts how many times it is consulted.
type fixedSource struct {
	shape transform.Shape
	base  []float32
	n     int
	calls int
}

func newFixedSource(shape transform.Shape, n int) *fixedSource {
	size := shape.Size()
	base := make([]float32, n*size)
	plane := shape.Height * shape.Width
	for i := 0; i < n; i++ {
		for c := 0; c < shape.Channels; c++ {
			for j := 0; j < plane; j++ {
				// Per-channel offset plus spread so std is non-trivial.
				base[i*size+c*plane+j] = float32(c)*0.3 + float32((i+j)%7)*0.05
			}
		}
	}
	return &fixedSource{shape: shape, base: base, n: n}
}

func (f *fixedSource) batch() *sampler.Batch {
	data := make([]float32, len(f.base))
	copy(data, f.base)
	return &sampler.Batch{
		Data:   data,
		Labels: make([]int32, f.n),
		Paths:  make([]string, f.n),
		Shape:  f.shape,
	}
}

func (f *fixedSource) Sample(batchSize, samplesPerImage int) (*sampler.Batch, error) {
	f.calls++
	return f.batch(), nil
}

func TestFitApplyRoundTrip(t *testing.T) {
	shape := transform.Shape{Channels: 3, Height: 4, Width: 4}
	src := newFixedSource(shape, 16)

	var n Normalizer
	stats, err := n.Fit(src, FitOptions{TargetImages: 16, BatchSize: 16, SamplesPerImage: 1})
	if err != nil {
		t.Fatalf("Fit failed: %v", err)
	}
	if len(stats.Mean) != 3 || len(stats.Std) != 3 {
		t.Fatalf("stats have %d/%d channels, want 3", len(stats.Mean), len(stats.Std))
	}

	// Normalizing the batch the stats were fitted on yields ~0 mean, ~1 std.
	b := n.Apply(src.batch())
	size := shape.Size()
	plane := shape.Height * shape.Width
	for c := 0; c < 3; c++ {
		var sum, sumSq float64
		count := 0
		for i := 0; i < b.N(); i++ {
			p := b.Data[i*size+c*plane : i*size+(c+1)*plane]
			for _, v := range p {
				sum += float64(v)
				sumSq += float64(v) * float64(v)
				count++
			}
		}
		mean := sum / float64(count)
		std := math.Sqrt(sumSq/float64(count) - mean*mean)
		if math.Abs(mean) > 0.01 {
			t.Errorf("channel %d mean %.4f after normalization, want ~0", c, mean)
		}
		if math.Abs(std-1) > 0.05 {
			t.Errorf("channel %d std %.4f after normalization, want ~1", c, std)
		}
	}
}

func TestFitIsIdempotent(t *testing.T) {
	shape := transform.Shape{Channels: 1, Height: 2, Width: 2}
	src := newFixedSource(shape, 4)

	var n Normalizer
	first, err := n.Fit(src, FitOptions{TargetImages: 4, BatchSize: 4})
	if err != nil {
		t.Fatal(err)
	}
	callsAfterFirst := src.calls

	second, err := n.Fit(src, FitOptions{TargetImages: 4, BatchSize: 4})
	if err != nil {
		t.Fatal(err)
	}
	if first != second {
		t.Error("second Fit did not return the cached stats")
	}
	if src.calls != callsAfterFirst {
		t.Errorf("second Fit drew %d extra batches, want 0", src.calls-callsAfterFirst)
	}
}

func TestFitAccumulatesUntilTarget(t *testing.T) {
	shape := transform.Shape{Channels: 1, Height: 2, Width: 2}
	src := newFixedSource(shape, 8) // 8 samples per draw

	var n Normalizer
	if _, err := n.Fit(src, FitOptions{TargetImages: 20, BatchSize: 8}); err != nil {
		t.Fatal(err)
	}
	if src.calls != 3 { // 8+8+8 >= 20
		t.Errorf("Fit drew %d batches, want 3", src.calls)
	}
}

func TestApplyUnfittedIsNoOp(t *testing.T) {
	shape := transform.Shape{Channels: 1, Height: 2, Width: 2}
	src := newFixedSource(shape, 2)

	var n Normalizer
	if n.Stats() != nil {
		t.Fatal("fresh normalizer has stats")
	}
	b := src.batch()
	before := make([]float32, len(b.Data))
	copy(before, b.Data)

	n.Apply(b)
	for i := range before {
		if b.Data[i] != before[i] {
			t.Fatal("Apply without stats modified the batch")
		}
	}
}

func TestApplyZeroStdGuard(t *testing.T) {
	shape := transform.Shape{Channels: 1, Height: 1, Width: 2}
	b := &sampler.Batch{
		Data:   []float32{0.5, 0.5},
		Labels: make([]int32, 1),
		Paths:  make([]string, 1),
		Shape:  shape,
	}
	Apply(b, &Stats{Mean: []float32{0.5}, Std: []float32{0}})
	for _, v := range b.Data {
		if math.IsInf(float64(v), 0) || math.IsNaN(float64(v)) {
			t.Fatal("zero std produced a non-finite value")
		}
	}
}
