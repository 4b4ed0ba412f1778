package transform

import (
	"math/rand"

	"github.com/tsawler/go-imageset/decode"
)

// CropPolicy selects how the crop origin is chosen.
type CropPolicy int

const (
	// CropCenter places the window at floor((source-target)/2) on each axis.
	CropCenter CropPolicy = iota
	// CropRandom draws each axis origin uniformly over [0, source-target].
	CropRandom
)

// Crop extracts one target-shaped window from src. The source must already
// have the target channel count (Load guarantees this). Sources smaller than
// the target on either axis yield ErrUndersized, which callers treat as "no
// sample" rather than a failure. rng is only consulted for CropRandom.
func (p *Pipeline) Crop(src *decode.Raster, policy CropPolicy, rng *rand.Rand) (*decode.Raster, error) {
	th, tw := p.cfg.Shape.Height, p.cfg.Shape.Width
	if src.Height < th || src.Width < tw {
		return nil, ErrUndersized
	}
	var oy, ox int
	switch policy {
	case CropCenter:
		oy = (src.Height - th) / 2
		ox = (src.Width - tw) / 2
	case CropRandom:
		oy = rng.Intn(src.Height - th + 1)
		ox = rng.Intn(src.Width - tw + 1)
	}
	return window(src, oy, ox, th, tw), nil
}

// TenCrop produces the 10-crop evaluation set: center and the four corners,
// each paired with its horizontal mirror, in that pair order. Undersized or
// channel-mismatched sources are a hard error here; this path assumes
// pre-validated inputs.
func (p *Pipeline) TenCrop(src *decode.Raster) ([]*decode.Raster, error) {
	th, tw := p.cfg.Shape.Height, p.cfg.Shape.Width
	if src.Channels != p.cfg.Shape.Channels || src.Height < th || src.Width < tw {
		return nil, &ShapeError{
			SrcChannels: src.Channels,
			SrcHeight:   src.Height,
			SrcWidth:    src.Width,
			Want:        p.cfg.Shape,
		}
	}
	origins := [5][2]int{
		{(src.Height - th) / 2, (src.Width - tw) / 2}, // center
		{0, 0},                                        // top-left
		{0, src.Width - tw},                           // top-right
		{src.Height - th, 0},                          // bottom-left
		{src.Height - th, src.Width - tw},             // bottom-right
	}
	out := make([]*decode.Raster, 0, 10)
	for _, o := range origins {
		c := window(src, o[0], o[1], th, tw)
		out = append(out, c, mirror(c))
	}
	return out, nil
}

// window copies a th x tw region of src starting at row oy, column ox.
func window(src *decode.Raster, oy, ox, th, tw int) *decode.Raster {
	dst := decode.NewRaster(src.Channels, th, tw)
	for c := 0; c < src.Channels; c++ {
		sp := src.Plane(c)
		dp := dst.Plane(c)
		for y := 0; y < th; y++ {
			srow := sp[(oy+y)*src.Width+ox : (oy+y)*src.Width+ox+tw]
			copy(dp[y*tw:(y+1)*tw], srow)
		}
	}
	return dst
}

// mirror returns a horizontally flipped copy of r.
func mirror(r *decode.Raster) *decode.Raster {
	dst := decode.NewRaster(r.Channels, r.Height, r.Width)
	for c := 0; c < r.Channels; c++ {
		sp := r.Plane(c)
		dp := dst.Plane(c)
		for y := 0; y < r.Height; y++ {
			row := sp[y*r.Width : (y+1)*r.Width]
			drow := dp[y*r.Width : (y+1)*r.Width]
			for x, v := range row {
				drow[r.Width-1-x] = v
			}
		}
	}
	return dst
}
