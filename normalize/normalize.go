// Package normalize fits per-channel mean/std statistics from a bounded
// random subsample and applies them in place to batches.
package normalize

import (
	"fmt"
	"sync"

	"gonum.org/v1/gonum/stat"

	"github.com/tsawler/go-imageset/sampler"
)

// Stats holds fitted per-channel statistics.
type Stats struct {
	Mean []float32
	Std  []float32
}

// Source is anything that can produce balanced sample batches; in practice a
// *sampler.Sampler.
type Source interface {
	Sample(batchSize, samplesPerImage int) (*sampler.Batch, error)
}

// FitOptions bound the estimation pass. Zero fields take the defaults.
type FitOptions struct {
	TargetImages    int // stop once this many samples were observed; default 10000
	BatchSize       int // images per draw; default 128
	SamplesPerImage int // crops per image; default 2
}

func (o *FitOptions) setDefaults() {
	if o.TargetImages <= 0 {
		o.TargetImages = 10000
	}
	if o.BatchSize <= 0 {
		o.BatchSize = 128
	}
	if o.SamplesPerImage <= 0 {
		o.SamplesPerImage = 2
	}
}

// Normalizer computes statistics once and applies them thereafter. Fit is
// guarded: concurrent callers serialize and all observe the same cached
// result. The expected lifecycle is still fit-before-workers-start.
type Normalizer struct {
	mu    sync.Mutex
	stats *Stats
}

// Stats returns the fitted statistics, or nil before Fit has run.
func (n *Normalizer) Stats() *Stats {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.stats
}

// Fit draws balanced batches from src until roughly opt.TargetImages samples
// have been observed and estimates per-channel mean and standard deviation
// as the batch-size-weighted arithmetic mean of per-batch statistics. That
// is an approximation of the exact global moments; the bias is small and
// accepted. Fit is idempotent: once statistics exist they are returned
// without recomputation.
func (n *Normalizer) Fit(src Source, opt FitOptions) (*Stats, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.stats != nil {
		return n.stats, nil
	}
	opt.setDefaults()

	var (
		channels   int
		batchMeans [][]float64 // per channel, one entry per batch
		batchStds  [][]float64
		weights    []float64
		seen       int
	)
	for seen < opt.TargetImages {
		b, err := src.Sample(opt.BatchSize, opt.SamplesPerImage)
		if err != nil {
			return nil, fmt.Errorf("normalize: drawing fit batch: %w", err)
		}
		if b.N() == 0 {
			continue
		}
		if channels == 0 {
			channels = b.Shape.Channels
			batchMeans = make([][]float64, channels)
			batchStds = make([][]float64, channels)
		}
		for c := 0; c < channels; c++ {
			vals := channelValues(b, c)
			m, sd := stat.MeanStdDev(vals, nil)
			batchMeans[c] = append(batchMeans[c], m)
			batchStds[c] = append(batchStds[c], sd)
		}
		weights = append(weights, float64(b.N()))
		seen += b.N()
	}

	s := &Stats{
		Mean: make([]float32, channels),
		Std:  make([]float32, channels),
	}
	for c := 0; c < channels; c++ {
		s.Mean[c] = float32(stat.Mean(batchMeans[c], weights))
		s.Std[c] = float32(stat.Mean(batchStds[c], weights))
	}
	n.stats = s
	return s, nil
}

// Apply normalizes a batch in place: per channel (x - mean) / std. Before
// Fit has run it is a no-op that returns the batch unchanged; skipping
// normalization is never an error.
func (n *Normalizer) Apply(b *sampler.Batch) *sampler.Batch {
	return Apply(b, n.Stats())
}

// Apply normalizes a batch in place with explicit statistics. Nil stats
// leaves the batch unchanged.
func Apply(b *sampler.Batch, s *Stats) *sampler.Batch {
	if s == nil {
		return b
	}
	size := b.Shape.Size()
	plane := b.Shape.Height * b.Shape.Width
	for i := 0; i < b.N(); i++ {
		data := b.Data[i*size : (i+1)*size]
		for c := 0; c < b.Shape.Channels && c < len(s.Mean); c++ {
			mean, std := s.Mean[c], s.Std[c]
			if std == 0 {
				std = 1
			}
			p := data[c*plane : (c+1)*plane]
			for j := range p {
				p[j] = (p[j] - mean) / std
			}
		}
	}
	return b
}

// channelValues gathers every value of channel c across the batch.
func channelValues(b *sampler.Batch, c int) []float64 {
	size := b.Shape.Size()
	plane := b.Shape.Height * b.Shape.Width
	out := make([]float64, 0, b.N()*plane)
	for i := 0; i < b.N(); i++ {
		p := b.Data[i*size+c*plane : i*size+(c+1)*plane]
		for _, v := range p {
			out = append(out, float64(v))
		}
	}
	return out
}
