// Package sampler reads samples out of a built path index. It offers the two
// access protocols training needs: deterministic indexed access for ordered
// epoch traversal, and class-balanced random sampling for long-tailed data.
package sampler

import (
	"errors"
	"fmt"
	"math/rand"

	"github.com/tsawler/go-imageset/store"
	"github.com/tsawler/go-imageset/transform"
)

// Batch is the result of one Index or Sample call: flat sample data plus the
// parallel label and path slices.
type Batch struct {
	Data   []float32 // N() * Shape.Size() values, sample-major
	Labels []int32
	Paths  []string
	Shape  transform.Shape
}

// N returns the number of samples in the batch.
func (b *Batch) N() int { return len(b.Labels) }

// Sample returns the data slice of the i-th sample.
func (b *Batch) Sample(i int) []float32 {
	size := b.Shape.Size()
	return b.Data[i*size : (i+1)*size]
}

// ExhaustedError reports a balanced draw that hit the retry ceiling without
// producing a decodable, croppable image. It usually means the dataset is
// mostly corrupt or mostly smaller than the crop target.
type ExhaustedError struct {
	Attempts int
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("sampler: draw exhausted after %d attempts", e.Attempts)
}

// DefaultMaxRetries bounds the attempts of a single balanced draw. Retrying
// forever on a pathological dataset would stall training silently.
const DefaultMaxRetries = 100

// Sampler reads from an immutable PathStore through a transform pipeline.
// The store and pipeline are shared and read-only, but each Sampler owns a
// private random generator, so a single Sampler must not be used from
// multiple goroutines: give each worker its own via Clone.
type Sampler struct {
	store      *store.PathStore
	pipe       *transform.Pipeline
	rng        *rand.Rand
	maxRetries int
}

// Option configures a Sampler.
type Option func(*Sampler)

// WithSeed seeds the sampler's generator for reproducible draws.
func WithSeed(seed int64) Option {
	return func(s *Sampler) { s.rng = rand.New(rand.NewSource(seed)) }
}

// WithMaxRetries sets the per-draw attempt ceiling. Zero disables the bound,
// restoring retry-forever behavior.
func WithMaxRetries(n int) Option {
	return func(s *Sampler) { s.maxRetries = n }
}

// New creates a Sampler over a built index.
func New(ps *store.PathStore, pipe *transform.Pipeline, opts ...Option) *Sampler {
	s := &Sampler{
		store:      ps,
		pipe:       pipe,
		rng:        rand.New(rand.NewSource(rand.Int63())),
		maxRetries: DefaultMaxRetries,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Clone returns a sampler sharing the same store and pipeline but owning an
// independent generator seeded with seed. This is how concurrent workers get
// contention-free, per-worker-deterministic sampling.
func (s *Sampler) Clone(seed int64) *Sampler {
	return &Sampler{
		store:      s.store,
		pipe:       s.pipe,
		rng:        rand.New(rand.NewSource(seed)),
		maxRetries: s.maxRetries,
	}
}

// Store returns the underlying path store.
func (s *Sampler) Store() *store.PathStore { return s.store }

// Index materializes the samples at the given store positions, one crop per
// position, in the order given. A sample that cannot be produced (decode
// failure, source smaller than the crop) leaves its slot zero-filled rather
// than aborting the batch; labels and paths are filled regardless, so the
// caller can spot and count degraded slots.
func (s *Sampler) Index(indices []int) (*Batch, error) {
	cfg := s.pipe.Config()
	size := cfg.Shape.Size()
	b := &Batch{
		Data:   make([]float32, len(indices)*size),
		Labels: make([]int32, len(indices)),
		Paths:  make([]string, len(indices)),
		Shape:  cfg.Shape,
	}
	for i, idx := range indices {
		if idx < 0 || idx >= s.store.Len() {
			return nil, fmt.Errorf("sampler: index %d out of range [0, %d)", idx, s.store.Len())
		}
		b.Labels[i] = int32(s.store.Label(idx))
		b.Paths[i] = s.store.Path(idx)

		img, err := s.pipe.Load(b.Paths[i])
		if err != nil {
			continue // zero-filled slot
		}
		crop, err := s.pipe.Crop(img, cfg.PolicyFor(0), s.rng)
		if err != nil {
			continue
		}
		copy(b.Data[i*size:(i+1)*size], crop.Pix)
	}
	return b, nil
}

// Sample draws batchSize images class-balanced: a class uniformly at random,
// then one path uniformly at random within that class, so every class is
// equally likely per draw regardless of its population. Each successful
// image contributes samplesPerImage crops, scattered across a pre-shuffled
// permutation of the batchSize*samplesPerImage output slots so crops of one
// image do not cluster. Failed draws are retried with a fresh class and path
// and never occupy a slot; the batch returned is always full.
//
// samplesPerImage <= 0 means the pipeline's configured value.
func (s *Sampler) Sample(batchSize, samplesPerImage int) (*Batch, error) {
	if batchSize <= 0 {
		return nil, errors.New("sampler: batch size must be positive")
	}
	cfg := s.pipe.Config()
	spi := samplesPerImage
	if spi <= 0 {
		spi = cfg.SamplesPerImage
	}

	total := batchSize * spi
	size := cfg.Shape.Size()
	b := &Batch{
		Data:   make([]float32, total*size),
		Labels: make([]int32, total),
		Paths:  make([]string, total),
		Shape:  cfg.Shape,
	}
	perm := s.rng.Perm(total)

	for d := 0; d < batchSize; d++ {
		attempts := 0
		for {
			attempts++
			if s.maxRetries > 0 && attempts > s.maxRetries {
				return nil, &ExhaustedError{Attempts: attempts - 1}
			}

			c := s.rng.Intn(s.store.NumClasses())
			k := s.rng.Intn(s.store.ClassLen(c))
			idx := s.store.ClassIndex(c, k)
			path := s.store.Path(idx)

			img, err := s.pipe.Load(path)
			if err != nil {
				continue // decode failure, fresh draw
			}
			crops := make([][]float32, 0, spi)
			for j := 0; j < spi; j++ {
				crop, err := s.pipe.Crop(img, cfg.PolicyFor(j), s.rng)
				if err != nil {
					break // undersized source, fresh draw
				}
				crops = append(crops, crop.Pix)
			}
			if len(crops) < spi {
				continue
			}
			for j, pix := range crops {
				slot := perm[d*spi+j]
				copy(b.Data[slot*size:(slot+1)*size], pix)
				b.Labels[slot] = int32(c)
				b.Paths[slot] = path
			}
			break
		}
	}
	return b, nil
}
