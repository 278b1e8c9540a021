package camera

import (
	"encoding/binary"
	"fmt"
	"image"
)

// Frame is the host-side image buffer handed to consumers.  Pixels are
// row-major, little endian for multi-byte depths
type Frame struct {
	Width, Height, BytesPerPixel int
	Pix                          []byte
}

// Size is the number of bytes a frame of this geometry occupies
func (f *Frame) Size() int {
	return f.Width * f.Height * f.BytesPerPixel
}

// Resize changes the geometry, reusing the backing array when it is large
// enough
func (f *Frame) Resize(width, height, bytesPerPixel int) {
	f.Width, f.Height, f.BytesPerPixel = width, height, bytesPerPixel
	n := f.Size()
	if cap(f.Pix) >= n {
		f.Pix = f.Pix[:n]
		return
	}
	f.Pix = make([]byte, n)
}

// Image wraps the frame as a grayscale image.  One byte pixels become
// image.Gray, two byte pixels image.Gray16 (which is big endian, so the
// data is copied)
func (f *Frame) Image() (image.Image, error) {
	rect := image.Rect(0, 0, f.Width, f.Height)
	switch f.BytesPerPixel {
	case 1:
		return &image.Gray{Pix: f.Pix, Stride: f.Width, Rect: rect}, nil
	case 2:
		im := image.NewGray16(rect)
		for i := 0; i+1 < len(f.Pix); i += 2 {
			im.Pix[i] = f.Pix[i+1]
			im.Pix[i+1] = f.Pix[i]
		}
		return im, nil
	default:
		return nil, fmt.Errorf("%d bytes per pixel cannot be displayed", f.BytesPerPixel)
	}
}

// Uint16 widens the frame to 16 bit samples
func (f *Frame) Uint16() ([]uint16, error) {
	n := f.Width * f.Height
	out := make([]uint16, n)
	switch f.BytesPerPixel {
	case 1:
		for i := 0; i < n; i++ {
			out[i] = uint16(f.Pix[i])
		}
	case 2:
		for i := 0; i < n; i++ {
			out[i] = binary.LittleEndian.Uint16(f.Pix[2*i:])
		}
	default:
		return nil, fmt.Errorf("%d bytes per pixel cannot be represented as uint16", f.BytesPerPixel)
	}
	return out, nil
}
