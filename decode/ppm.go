package decode

import (
	"bufio"
	"fmt"
	"image"
	"image/color"
	"io"
)

// Netpbm support: the stdlib and x/image ship no ppm codec, so binary P5/P6
// are registered here. Ascii variants and 16-bit maxval are not handled.

func init() {
	image.RegisterFormat("ppm", "P6", decodePNM, decodePNMConfig)
	image.RegisterFormat("pgm", "P5", decodePNM, decodePNMConfig)
}

// readPNMHeader parses "P5"/"P6", width, height and maxval, skipping
// whitespace and # comments. It leaves r positioned at the first pixel byte.
func readPNMHeader(r *bufio.Reader) (format string, w, h, maxval int, err error) {
	magic := make([]byte, 2)
	if _, err = io.ReadFull(r, magic); err != nil {
		return
	}
	format = string(magic)
	if format != "P5" && format != "P6" {
		err = fmt.Errorf("unsupported netpbm format %q", format)
		return
	}
	fields := [3]int{}
	for i := 0; i < 3; i++ {
		fields[i], err = readPNMInt(r)
		if err != nil {
			return
		}
	}
	w, h, maxval = fields[0], fields[1], fields[2]
	if w <= 0 || h <= 0 || maxval <= 0 || maxval > 255 {
		err = fmt.Errorf("unsupported netpbm geometry %dx%d maxval %d", w, h, maxval)
	}
	return
}

// readPNMInt reads one whitespace-delimited decimal, honoring # comments.
// Exactly one trailing whitespace byte is consumed after the number.
func readPNMInt(r *bufio.Reader) (int, error) {
	n := -1
	for {
		b, err := r.ReadByte()
		if err != nil {
			return 0, err
		}
		switch {
		case b == '#':
			if _, err := r.ReadString('\n'); err != nil {
				return 0, err
			}
		case b >= '0' && b <= '9':
			if n < 0 {
				n = 0
			}
			n = n*10 + int(b-'0')
		case b == ' ' || b == '\t' || b == '\n' || b == '\r':
			if n >= 0 {
				return n, nil
			}
		default:
			return 0, fmt.Errorf("unexpected byte %q in netpbm header", b)
		}
	}
}

func decodePNM(rd io.Reader) (image.Image, error) {
	r := bufio.NewReader(rd)
	format, w, h, maxval, err := readPNMHeader(r)
	if err != nil {
		return nil, err
	}
	// Rescale per value: maxval rarely divides 255, so a precomputed integer
	// factor would truncate and darken the image.
	scale := func(v byte) uint8 { return uint8(int(v) * 255 / maxval) }

	if format == "P5" {
		img := image.NewGray(image.Rect(0, 0, w, h))
		buf := make([]byte, w)
		for y := 0; y < h; y++ {
			if _, err := io.ReadFull(r, buf); err != nil {
				return nil, err
			}
			for x, v := range buf {
				img.SetGray(x, y, color.Gray{Y: scale(v)})
			}
		}
		return img, nil
	}

	img := image.NewRGBA(image.Rect(0, 0, w, h))
	buf := make([]byte, 3*w)
	for y := 0; y < h; y++ {
		if _, err := io.ReadFull(r, buf); err != nil {
			return nil, err
		}
		for x := 0; x < w; x++ {
			img.SetRGBA(x, y, color.RGBA{
				R: scale(buf[3*x]),
				G: scale(buf[3*x+1]),
				B: scale(buf[3*x+2]),
				A: 255,
			})
		}
	}
	return img, nil
}

func decodePNMConfig(rd io.Reader) (image.Config, error) {
	r := bufio.NewReader(rd)
	format, w, h, _, err := readPNMHeader(r)
	if err != nil {
		return image.Config{}, err
	}
	model := color.RGBAModel
	if format == "P5" {
		model = color.GrayModel
	}
	return image.Config{ColorModel: model, Width: w, Height: h}, nil
}
