package decode

import (
	"fmt"
	"image"
	"os"

	"github.com/disintegration/imaging"

	_ "golang.org/x/image/bmp"
	_ "image/jpeg"
	_ "image/png"
)

// Decoder is the capability the sampling engine needs from an image backend.
// Implementations must be safe for concurrent use.
type Decoder interface {
	Decode(path string) (*Raster, error)
}

// Error wraps any failure to decode a single file. It is recoverable: the
// sampler retries a fresh draw, the indexed path zero-fills the slot.
type Error struct {
	Path string
	Err  error
}

func (e *Error) Error() string { return fmt.Sprintf("decode %s: %v", e.Path, e.Err) }
func (e *Error) Unwrap() error { return e.Err }

// ImageDecoder decodes with the registered stdlib codecs plus bmp and ppm.
// The zero value is ready to use.
type ImageDecoder struct {
	// MinSide, when positive, scales the decoded image so its shorter side
	// equals MinSide before conversion, preserving aspect ratio. Useful when
	// source images are much larger than the crop target.
	MinSide int
}

// Decode implements Decoder.
func (d *ImageDecoder) Decode(path string) (*Raster, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &Error{Path: path, Err: err}
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, &Error{Path: path, Err: err}
	}

	if d.MinSide > 0 {
		b := img.Bounds()
		w, h := b.Dx(), b.Dy()
		if w < h {
			img = imaging.Resize(img, d.MinSide, h*d.MinSide/w, imaging.Lanczos)
		} else {
			img = imaging.Resize(img, w*d.MinSide/h, d.MinSide, imaging.Lanczos)
		}
	}
	return fromImage(img), nil
}

// fromImage converts an image.Image to a raster. Grayscale sources stay
// single-channel; everything else becomes 3-channel RGB.
func fromImage(img image.Image) *Raster {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()

	switch m := img.(type) {
	case *image.Gray:
		r := NewRaster(1, h, w)
		for y := 0; y < h; y++ {
			row := m.Pix[y*m.Stride : y*m.Stride+w]
			for x, v := range row {
				r.Pix[y*w+x] = float32(v) / 255.0
			}
		}
		return r
	case *image.Gray16:
		r := NewRaster(1, h, w)
		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				v, _, _, _ := m.At(b.Min.X+x, b.Min.Y+y).RGBA()
				r.Pix[y*w+x] = float32(v) / 65535.0
			}
		}
		return r
	}

	r := NewRaster(3, h, w)
	plane := h * w
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			cr, cg, cb, _ := img.At(b.Min.X+x, b.Min.Y+y).RGBA()
			idx := y*w + x
			r.Pix[idx] = float32(cr) / 65535.0
			r.Pix[plane+idx] = float32(cg) / 65535.0
			r.Pix[2*plane+idx] = float32(cb) / 65535.0
		}
	}
	return r
}
