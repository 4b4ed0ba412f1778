// Package decode turns image files into float32 rasters. It defines the
// decoder boundary the sampling engine depends on: anything that can produce
// a channels-height-width raster from a path is a usable backend.
package decode

// Raster is a decoded image in CHW layout with values in [0, 1].
type Raster struct {
	Channels int
	Height   int
	Width    int
	Pix      []float32 // len == Channels*Height*Width
}

// NewRaster allocates a zeroed raster of the given shape.
func NewRaster(channels, height, width int) *Raster {
	return &Raster{
		Channels: channels,
		Height:   height,
		Width:    width,
		Pix:      make([]float32, channels*height*width),
	}
}

// At returns the value of channel c at row y, column x.
func (r *Raster) At(c, y, x int) float32 {
	return r.Pix[(c*r.Height+y)*r.Width+x]
}

// Set assigns the value of channel c at row y, column x.
func (r *Raster) Set(c, y, x int, v float32) {
	r.Pix[(c*r.Height+y)*r.Width+x] = v
}

// Plane returns the pixel slice of a single channel.
func (r *Raster) Plane(c int) []float32 {
	n := r.Height * r.Width
	return r.Pix[c*n : (c+1)*n]
}
