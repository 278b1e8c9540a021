package sapera

import (
	"fmt"

	"github.com/nasa-jpl/saperacam/camera"
)

// roiView is a rectangular window on the buffer ring.  It is rebuilt with
// the buffers, so any change of geometry clears the ROI
type roiView struct {
	bufs Buffers
	full camera.ROI
	rect camera.ROI
}

func newROIView(bufs Buffers) (*roiView, error) {
	w, h := bufs.Width(), bufs.Height()
	if w <= 0 || h <= 0 {
		return nil, fmt.Errorf("buffers are %dx%d", w, h)
	}
	full := camera.ROI{Width: w, Height: h}
	return &roiView{bufs: bufs, full: full, rect: full}, nil
}

func (v *roiView) set(r camera.ROI) error {
	if !r.Within(v.full.Width, v.full.Height) {
		return fmt.Errorf("%w: ROI %+v outside %dx%d", ErrInvalidPropertyValue, r, v.full.Width, v.full.Height)
	}
	v.rect = r
	return nil
}

func (v *roiView) reset() { v.rect = v.full }

func (v *roiView) active() bool { return v.rect != v.full }

func (v *roiView) bounds() camera.ROI { return v.rect }

// read copies the window of the last filled buffer into dst
func (v *roiView) read(dst []byte) error {
	r := v.rect
	return v.bufs.ReadRect(r.X, r.Y, r.Width, r.Height, dst)
}

// SetROI restricts the frames returned by ImageBuffer to r.  An empty ROI
// clears the restriction.  The ROI is applied on the host; the sensor still
// reads out the full frame
func (c *Camera) SetROI(r camera.ROI) error {
	if c.busy() {
		return ErrDeviceBusy
	}
	if err := c.needROI(); err != nil {
		return err
	}
	if r.Empty() {
		return c.ClearROI()
	}
	if err := c.roi.set(r); err != nil {
		return err
	}
	c.resizeImage()
	return nil
}

// ClearROI restores the full frame
func (c *Camera) ClearROI() error {
	if c.busy() {
		return ErrDeviceBusy
	}
	if err := c.needROI(); err != nil {
		return err
	}
	c.roi.reset()
	c.resizeImage()
	return nil
}

// needROI rebuilds the pipeline if a failed rebuild left the camera
// without one
func (c *Camera) needROI() error {
	if !c.initialized {
		return ErrNotInitialized
	}
	if c.roi == nil {
		return c.synchronize(syncOptions{})
	}
	return nil
}

// GetROI returns the current ROI.  Without one it spans the full frame; a
// camera without buffers returns the zero ROI
func (c *Camera) GetROI() camera.ROI {
	if c.roi == nil {
		return camera.ROI{}
	}
	return c.roi.bounds()
}
