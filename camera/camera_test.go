package camera_test

import (
	"bytes"
	"errors"
	"image"
	"testing"

	"github.com/astrogo/fitsio"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nasa-jpl/saperacam/camera"
)

func TestFrameResizeReusesBacking(t *testing.T) {
	f := &camera.Frame{}
	f.Resize(10, 10, 2)
	assert.Equal(t, 200, len(f.Pix))
	base := &f.Pix[0]
	f.Resize(5, 5, 2)
	assert.Equal(t, 50, len(f.Pix))
	assert.Same(t, base, &f.Pix[0])
	f.Resize(20, 20, 1)
	assert.Equal(t, 400, f.Size())
}

func TestFrameImage(t *testing.T) {
	f := &camera.Frame{Width: 2, Height: 1, BytesPerPixel: 2, Pix: []byte{0x01, 0x02, 0xff, 0x00}}
	im, err := f.Image()
	require.NoError(t, err)
	g, ok := im.(*image.Gray16)
	require.True(t, ok)
	assert.Equal(t, uint16(0x0201), g.Gray16At(0, 0).Y)
	assert.Equal(t, uint16(0x00ff), g.Gray16At(1, 0).Y)

	f = &camera.Frame{Width: 1, Height: 1, BytesPerPixel: 4, Pix: make([]byte, 4)}
	_, err = f.Image()
	assert.Error(t, err)
}

func TestROI(t *testing.T) {
	assert.True(t, camera.ROI{}.Empty())
	assert.True(t, camera.ROI{X: 10, Y: 10, Width: 100, Height: 50}.Within(640, 480))
	assert.False(t, camera.ROI{X: 600, Y: 10, Width: 100, Height: 50}.Within(640, 480))
	assert.False(t, camera.ROI{X: -1, Y: 0, Width: 1, Height: 1}.Within(640, 480))
}

func TestCircularBufferOverflow(t *testing.T) {
	c := camera.NewCircularBuffer(2)
	pix := []byte{1, 2, 3, 4}
	require.NoError(t, c.InsertFrame(pix, 2, 2, 1))
	require.NoError(t, c.InsertFrame(pix, 2, 2, 1))
	err := c.InsertFrame(pix, 2, 2, 1)
	assert.True(t, errors.Is(err, camera.ErrBufferOverflow))
	assert.Equal(t, 2, c.Len())

	f := c.Pop()
	require.NotNil(t, f)
	assert.Equal(t, pix, f.Pix)
	require.NoError(t, c.InsertFrame([]byte{9, 9, 9, 9}, 2, 2, 1))
	assert.Equal(t, uint64(3), c.Total())

	c.Clear()
	assert.Equal(t, 0, c.Len())
	assert.Nil(t, c.Pop())
}

func TestCircularBufferCopiesInput(t *testing.T) {
	c := camera.NewCircularBuffer(1)
	pix := []byte{1, 2}
	require.NoError(t, c.InsertFrame(pix, 2, 1, 1))
	pix[0] = 42
	assert.Equal(t, byte(1), c.Pop().Pix[0])
}

func TestWriteFits(t *testing.T) {
	f := &camera.Frame{Width: 4, Height: 2, BytesPerPixel: 2, Pix: make([]byte, 16)}
	var buf bytes.Buffer
	err := camera.WriteFits(&buf, []fitsio.Card{{Name: "EXPTIME", Value: 0.01}}, f, f)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(buf.Bytes(), []byte("SIMPLE")))
	assert.Equal(t, 0, buf.Len()%2880)

	err = camera.WriteFits(&buf, nil)
	assert.Error(t, err)
}
