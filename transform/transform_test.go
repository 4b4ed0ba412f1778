package transform

import (
	"errors"
	"math/rand"
	"testing"

	"github.com/tsawler/go-imageset/decode"
)

// gradientDecoder fabricates a deterministic RGB raster for any path:
// channel c at (y, x) gets a value derived from its coordinates.
type gradientDecoder struct {
	channels, height, width int
}

func (d *gradientDecoder) Decode(path string) (*decode.Raster, error) {
	r := decode.NewRaster(d.channels, d.height, d.width)
	for c := 0; c < d.channels; c++ {
		for y := 0; y < d.height; y++ {
			for x := 0; x < d.width; x++ {
				r.Set(c, y, x, float32(c*10000+y*100+x)/100000.0)
			}
		}
	}
	return r, nil
}

func testPipeline(t *testing.T, dec decode.Decoder, cfg Config) *Pipeline {
	t.Helper()
	p, err := New(dec, cfg)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	return p
}

func gradient(c, h, w int) *decode.Raster {
	r, _ := (&gradientDecoder{channels: c, height: h, width: w}).Decode("")
	return r
}

func shape3(h, w int) Config {
	return Config{Shape: Shape{Channels: 3, Height: h, Width: w}, SamplesPerImage: 1}
}

func TestCenterCropDeterminism(t *testing.T) {
	p := testPipeline(t, &gradientDecoder{3, 10, 12}, shape3(4, 4))
	src := gradient(3, 10, 12)

	a, err := p.Crop(src, CropCenter, nil)
	if err != nil {
		t.Fatalf("Crop failed: %v", err)
	}
	b, err := p.Crop(src, CropCenter, nil)
	if err != nil {
		t.Fatalf("Crop failed: %v", err)
	}
	for i := range a.Pix {
		if a.Pix[i] != b.Pix[i] {
			t.Fatalf("center crops differ at %d: %v vs %v", i, a.Pix[i], b.Pix[i])
		}
	}

	// Origin is floor((source-target)/2): (3, 4) for 10x12 -> 4x4.
	if want := src.At(0, 3, 4); a.At(0, 0, 0) != want {
		t.Errorf("center crop origin value %v, want %v", a.At(0, 0, 0), want)
	}
}

func TestRandomCropSeededReproducibility(t *testing.T) {
	p := testPipeline(t, &gradientDecoder{3, 64, 64}, shape3(8, 8))
	src := gradient(3, 64, 64)

	a, _ := p.Crop(src, CropRandom, rand.New(rand.NewSource(7)))
	b, _ := p.Crop(src, CropRandom, rand.New(rand.NewSource(7)))
	for i := range a.Pix {
		if a.Pix[i] != b.Pix[i] {
			t.Fatal("same seed produced different random crops")
		}
	}

	c, _ := p.Crop(src, CropRandom, rand.New(rand.NewSource(8)))
	same := true
	for i := range a.Pix {
		if a.Pix[i] != c.Pix[i] {
			same = false
			break
		}
	}
	if same {
		t.Error("different seeds produced identical crops on a 64x64 source")
	}
}

func TestCropUndersizedIsSoft(t *testing.T) {
	p := testPipeline(t, &gradientDecoder{3, 4, 4}, shape3(8, 8))
	src := gradient(3, 4, 4)

	_, err := p.Crop(src, CropCenter, nil)
	if !errors.Is(err, ErrUndersized) {
		t.Fatalf("got %v, want ErrUndersized", err)
	}
}

func TestTenCrop(t *testing.T) {
	p := testPipeline(t, &gradientDecoder{3, 10, 12}, shape3(4, 4))
	src := gradient(3, 10, 12)

	crops, err := p.TenCrop(src)
	if err != nil {
		t.Fatalf("TenCrop failed: %v", err)
	}
	if len(crops) != 10 {
		t.Fatalf("got %d crops, want 10", len(crops))
	}
	for i, c := range crops {
		if c.Channels != 3 || c.Height != 4 || c.Width != 4 {
			t.Fatalf("crop %d has shape %dx%dx%d, want 3x4x4", i, c.Channels, c.Height, c.Width)
		}
	}

	// Even positions are the plain crops, odd their horizontal mirrors.
	for pair := 0; pair < 5; pair++ {
		plain, mirrored := crops[2*pair], crops[2*pair+1]
		for y := 0; y < 4; y++ {
			for x := 0; x < 4; x++ {
				if plain.At(0, y, x) != mirrored.At(0, y, 3-x) {
					t.Fatalf("pair %d is not a horizontal mirror at (%d,%d)", pair, y, x)
				}
			}
		}
	}

	// First pair is the center crop, second pair the top-left corner.
	if crops[0].At(0, 0, 0) != src.At(0, 3, 4) {
		t.Error("first crop is not the center crop")
	}
	if crops[2].At(0, 0, 0) != src.At(0, 0, 0) {
		t.Error("second pair is not the top-left corner")
	}
	if crops[8].At(0, 0, 0) != src.At(0, 6, 8) {
		t.Error("last pair is not the bottom-right corner")
	}
}

func TestTenCropUndersizedIsHard(t *testing.T) {
	p := testPipeline(t, &gradientDecoder{3, 2, 2}, shape3(4, 4))
	src := gradient(3, 2, 2)

	_, err := p.TenCrop(src)
	var serr *ShapeError
	if !errors.As(err, &serr) {
		t.Fatalf("got %v, want *ShapeError", err)
	}
}

func TestLoadLumaOnly(t *testing.T) {
	dec := &gradientDecoder{channels: 3, height: 6, width: 6}
	p := testPipeline(t, dec, Config{Shape: Shape{Channels: 1, Height: 4, Width: 4}, SamplesPerImage: 1})

	r, err := p.Load("any")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if r.Channels != 1 {
		t.Fatalf("got %d channels, want 1 (luma only)", r.Channels)
	}
	src, _ := dec.Decode("any")
	want := 0.299*src.At(0, 0, 0) + 0.587*src.At(1, 0, 0) + 0.114*src.At(2, 0, 0)
	if diff := r.At(0, 0, 0) - want; diff > 1e-6 || diff < -1e-6 {
		t.Errorf("luma value %v, want %v", r.At(0, 0, 0), want)
	}
}

func TestLoadReplicatesGray(t *testing.T) {
	p := testPipeline(t, &gradientDecoder{channels: 1, height: 6, width: 6}, shape3(4, 4))

	r, err := p.Load("any")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if r.Channels != 3 {
		t.Fatalf("got %d channels, want 3", r.Channels)
	}
	// Equal RGB means luma equals the gray value and chroma sits at 0.5.
	if r.At(1, 2, 2) != 0.5 || r.At(2, 2, 2) != 0.5 {
		t.Errorf("chroma = (%v, %v), want (0.5, 0.5)", r.At(1, 2, 2), r.At(2, 2, 2))
	}
}

func TestPolicyFor(t *testing.T) {
	cases := []struct {
		variant Variant
		crop0   CropPolicy
	}{
		{Default, CropRandom},
		{TrainCenterFirst, CropCenter},
		{TestCenterFirst, CropCenter},
	}
	for _, tc := range cases {
		cfg := Config{Shape: Shape{3, 4, 4}, SamplesPerImage: 3, Variant: tc.variant}
		if got := cfg.PolicyFor(0); got != tc.crop0 {
			t.Errorf("%s: PolicyFor(0) = %d, want %d", tc.variant, got, tc.crop0)
		}
		if got := cfg.PolicyFor(1); got != CropRandom {
			t.Errorf("%s: PolicyFor(1) = %d, want CropRandom", tc.variant, got)
		}
	}
}
