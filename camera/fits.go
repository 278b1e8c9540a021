package camera

import (
	"errors"
	"io"

	"github.com/astrogo/fitsio"
)

// WriteFits streams a fits file to w.  Multiple frames of equal geometry are
// written as a cube.  Samples are stored as BITPIX 16 with BZERO 32768
func WriteFits(w io.Writer, metadata []fitsio.Card, frames ...*Frame) error {
	if len(frames) == 0 {
		return errors.New("no frames to write")
	}
	metadata = append(metadata, fitsio.Card{Name: "BZERO", Value: 32768}, fitsio.Card{Name: "BSCALE", Value: 1.0})
	width, height := frames[0].Width, frames[0].Height
	fits, err := fitsio.Create(w)
	if err != nil {
		return err
	}
	defer fits.Close()
	dims := []int{width, height}
	if len(frames) > 1 {
		dims = append(dims, len(frames))
	}
	im := fitsio.NewImage(16, dims)
	defer im.Close()
	err = im.Header().Append(metadata...)
	if err != nil {
		return err
	}

	ints := make([]int16, 0, width*height*len(frames))
	for _, f := range frames {
		if f.Width != width || f.Height != height {
			return errors.New("frames in a cube must share one geometry")
		}
		uints, err := f.Uint16()
		if err != nil {
			return err
		}
		for _, u := range uints {
			ints = append(ints, int16(int32(u)-32768))
		}
	}
	err = im.Write(ints)
	if err != nil {
		return err
	}
	return fits.Write(im)
}
