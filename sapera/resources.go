package sapera

import (
	"fmt"

	"github.com/nasa-jpl/saperacam/feature"
	"github.com/nasa-jpl/saperacam/mathx"
	"github.com/nasa-jpl/saperacam/util"
)

// syncOptions are the pipeline-shaping writes made during a rebuild.  An
// empty format and non-positive numbers leave the feature alone
type syncOptions struct {
	pixelFormat   string
	width, height int64
	timeout       float64
}

// synchronize tears down the buffers, transfer and ROI view, applies o, and
// builds them again for the current geometry.  On failure every handle,
// including the device, is destroyed before the error is returned; the next
// synchronize reopens the device
func (c *Camera) synchronize(o syncOptions) (err error) {
	defer func() { c.Metrics.RecordRebuild(err) }()

	if derr := c.destroyPipeline(); derr != nil {
		c.Logger.Printf("destroying acquisition pipeline: %v", derr)
	}
	if err = c.open(); err != nil {
		return err
	}

	if o.pixelFormat != "" {
		if werr := c.feats.Write(featPixelFormat, feature.StringValue(o.pixelFormat)); werr != nil {
			c.Logger.Printf("failed to set pixel format '%s': %v", o.pixelFormat, werr)
		}
	}
	if o.width > 0 {
		if err = c.feats.Write(featWidth, feature.IntValue(o.width)); err != nil {
			return c.abortSync(err)
		}
	}
	if o.height > 0 {
		if err = c.feats.Write(featHeight, feature.IntValue(o.height)); err != nil {
			return c.abortSync(err)
		}
	}
	if o.timeout > 0 {
		if werr := c.feats.Write(featImageTimeout, feature.FloatValue(o.timeout)); werr != nil {
			c.Logger.Printf("failed to set image timeout %v: %v", o.timeout, werr)
		}
	}

	if bits, rerr := c.feats.ReadInt(featPixelSize); rerr == nil && bits > 0 {
		c.bitsPerPixel = int(bits)
		c.bytesPerPixel = mathx.CeilDiv(int(bits), 8)
	} else if rerr != nil {
		c.Logger.Printf("pixel size unknown, keeping %d bits: %v", c.bitsPerPixel, rerr)
	}

	bufs := c.sdk.NewBuffers(c.device, ringDepth)
	if cerr := bufs.Create(); cerr != nil {
		return c.abortSync(fmt.Errorf("%w: buffers: %w", ErrResourceAllocation, cerr))
	}
	c.buffers = bufs

	xfer := c.sdk.NewTransfer(c.device, c.buffers, c.onTransfer)
	if cerr := xfer.Create(); cerr != nil {
		return c.abortSync(fmt.Errorf("%w: transfer: %w", ErrResourceAllocation, cerr))
	}
	c.xfer = xfer

	roi, rerr := newROIView(c.buffers)
	if rerr != nil {
		return c.abortSync(fmt.Errorf("%w: roi: %w", ErrResourceAllocation, rerr))
	}
	c.roi = roi
	c.resizeImage()
	return nil
}

func (c *Camera) abortSync(err error) error {
	return util.MergeErrors([]error{err, c.freeHandles()})
}

// destroyPipeline releases the ROI view, the transfer, and the buffers, in
// that order.  The fields are cleared even if a Destroy fails
func (c *Camera) destroyPipeline() error {
	var errs []error
	c.roi = nil
	if c.xfer != nil {
		if err := c.xfer.Destroy(); err != nil {
			errs = append(errs, fmt.Errorf("transfer: %w", err))
		}
		c.xfer = nil
	}
	if c.buffers != nil {
		if err := c.buffers.Destroy(); err != nil {
			errs = append(errs, fmt.Errorf("buffers: %w", err))
		}
		c.buffers = nil
	}
	return util.MergeErrors(errs)
}

// freeHandles destroys everything the camera holds.  Calling it again is a
// no-op that returns nil
func (c *Camera) freeHandles() error {
	if c.device == nil && c.meta == nil && c.xfer == nil && c.buffers == nil {
		return nil
	}
	c.Logger.Println("destroy Sapera buffers and devices")
	errs := []error{c.destroyPipeline()}
	if c.meta != nil {
		if err := c.meta.Destroy(); err != nil {
			errs = append(errs, fmt.Errorf("feature metadata: %w", err))
		}
		c.meta = nil
	}
	if c.device != nil {
		if err := c.device.Destroy(); err != nil {
			errs = append(errs, fmt.Errorf("device: %w", err))
		}
		c.device = nil
	}
	c.feats = nil
	return util.MergeErrors(errs)
}

// resizeImage sizes the host frame to the ROI, or to the full frame when no
// ROI is set
func (c *Camera) resizeImage() {
	w, h := 0, 0
	if c.roi != nil {
		r := c.roi.bounds()
		w, h = r.Width, r.Height
	} else if c.feats != nil {
		if v, err := c.feats.ReadInt(featWidth); err == nil {
			w = int(v)
		}
		if v, err := c.feats.ReadInt(featHeight); err == nil {
			h = int(v)
		}
	}
	c.img.Resize(w, h, c.bytesPerPixel)
}

// onTransfer is the transfer callback.  It runs on an SDK thread and must
// not touch the pipeline
func (c *Camera) onTransfer(ev TransferEvent) {
	if ev.Trash {
		c.Logger.Printf("frames acquired in trash buffer: %d", ev.Count)
		c.Metrics.RecordTrash()
	}
}
