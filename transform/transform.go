// Package transform turns decoded rasters into fixed-shape training samples:
// color conversion, crop extraction, and the multi-crop evaluation variant.
package transform

import (
	"errors"
	"fmt"

	"github.com/tsawler/go-imageset/decode"
)

// Shape is the target sample shape in CHW order.
type Shape struct {
	Channels int
	Height   int
	Width    int
}

// Size returns the number of float32 values in one sample.
func (s Shape) Size() int { return s.Channels * s.Height * s.Width }

func (s Shape) String() string {
	return fmt.Sprintf("%dx%dx%d", s.Channels, s.Height, s.Width)
}

// Variant selects the crop regime. The set is closed: each variant binds one
// crop-origin policy per crop position at configuration time.
type Variant int

const (
	// Default draws every crop origin uniformly at random.
	Default Variant = iota
	// TrainCenterFirst makes the first crop of each image deterministic
	// center, remaining crops random.
	TrainCenterFirst
	// TestCenterFirst is TrainCenterFirst for evaluation configs.
	TestCenterFirst
)

func (v Variant) String() string {
	switch v {
	case Default:
		return "default"
	case TrainCenterFirst:
		return "train-center"
	case TestCenterFirst:
		return "test-center"
	default:
		return fmt.Sprintf("Variant(%d)", int(v))
	}
}

// Config fixes the sample shape and crop regime for a Pipeline.
type Config struct {
	Shape           Shape
	SamplesPerImage int // crops drawn per image, >= 1
	Variant         Variant
}

// PolicyFor returns the crop-origin policy for the cropIdx-th crop of an
// image under this config.
func (c Config) PolicyFor(cropIdx int) CropPolicy {
	if cropIdx == 0 && (c.Variant == TrainCenterFirst || c.Variant == TestCenterFirst) {
		return CropCenter
	}
	return CropRandom
}

// ErrUndersized reports a source raster smaller than the crop target. It is
// a soft failure: the sampler retries with a fresh draw, never aborts.
var ErrUndersized = errors.New("transform: source smaller than crop target")

// ShapeError reports a source that the ten-crop path cannot use. Unlike
// ErrUndersized it is fatal for the call: ten-crop assumes pre-validated
// inputs.
type ShapeError struct {
	SrcChannels, SrcHeight, SrcWidth int
	Want                             Shape
}

func (e *ShapeError) Error() string {
	return fmt.Sprintf("transform: source %dx%dx%d incompatible with target %s",
		e.SrcChannels, e.SrcHeight, e.SrcWidth, e.Want)
}

// Pipeline loads paths through a decoder and produces samples of a fixed
// shape. It holds no mutable state and is safe for concurrent use; random
// crop origins come from the caller-supplied generator.
type Pipeline struct {
	dec decode.Decoder
	cfg Config
}

// New validates cfg and builds a pipeline over dec.
func New(dec decode.Decoder, cfg Config) (*Pipeline, error) {
	if dec == nil {
		return nil, errors.New("transform: nil decoder")
	}
	if cfg.Shape.Channels != 1 && cfg.Shape.Channels != 3 {
		return nil, fmt.Errorf("transform: target channels must be 1 or 3, got %d", cfg.Shape.Channels)
	}
	if cfg.Shape.Height <= 0 || cfg.Shape.Width <= 0 {
		return nil, fmt.Errorf("transform: invalid target shape %s", cfg.Shape)
	}
	if cfg.SamplesPerImage < 1 {
		cfg.SamplesPerImage = 1
	}
	return &Pipeline{dec: dec, cfg: cfg}, nil
}

// Config returns the pipeline configuration.
func (p *Pipeline) Config() Config { return p.cfg }

// Load decodes path and normalizes its representation: grayscale sources are
// replicated to 3 channels, the raster is converted to luma/chroma, and if
// the target shape wants a single channel only luma is kept. The result has
// the target channel count but the source spatial size; cropping is separate.
func (p *Pipeline) Load(path string) (*decode.Raster, error) {
	src, err := p.dec.Decode(path)
	if err != nil {
		return nil, err
	}
	return p.convert(src), nil
}

// Luma/chroma conversion uses the full-range BT.601 coefficients on [0,1]
// values, chroma offset to 0.5 so every channel stays in [0,1].
func (p *Pipeline) convert(src *decode.Raster) *decode.Raster {
	h, w := src.Height, src.Width
	n := h * w
	out := decode.NewRaster(p.cfg.Shape.Channels, h, w)

	if src.Channels == 1 {
		// Replicated gray has equal RGB, so luma is the gray value and both
		// chroma planes sit at the 0.5 offset.
		copy(out.Pix[:n], src.Pix[:n])
		if p.cfg.Shape.Channels == 3 {
			for i := n; i < 3*n; i++ {
				out.Pix[i] = 0.5
			}
		}
		return out
	}

	rp, gp, bp := src.Pix[:n], src.Pix[n:2*n], src.Pix[2*n:3*n]
	for i := 0; i < n; i++ {
		r, g, b := rp[i], gp[i], bp[i]
		out.Pix[i] = 0.299*r + 0.587*g + 0.114*b
	}
	if p.cfg.Shape.Channels == 3 {
		cb, cr := out.Pix[n:2*n], out.Pix[2*n:3*n]
		for i := 0; i < n; i++ {
			r, g, b := rp[i], gp[i], bp[i]
			cb[i] = 0.5 - 0.168736*r - 0.331264*g + 0.5*b
			cr[i] = 0.5 + 0.5*r - 0.418688*g - 0.081312*b
		}
	}
	return out
}
