package sapera

import (
	"fmt"
	"time"

	"github.com/nasa-jpl/saperacam/metrics"
	"github.com/nasa-jpl/saperacam/sequence"
)

// busy is true while a sequence goroutine exists
func (c *Camera) busy() bool {
	return c.seq.State() != sequence.Idle
}

// SnapImage acquires one frame into the buffer ring.  It fails fast with
// ErrDeviceBusy during a sequence, without touching the hardware
func (c *Camera) SnapImage() error {
	if c.busy() {
		c.Metrics.RecordError(metrics.ModeSnap, "busy")
		return ErrDeviceBusy
	}
	if !c.initialized {
		return ErrNotInitialized
	}
	if c.xfer == nil {
		if err := c.synchronize(syncOptions{}); err != nil {
			return err
		}
	}
	start := time.Now()
	if err := c.snap(metrics.ModeSnap); err != nil {
		return err
	}
	c.Metrics.RecordSnap(time.Since(start))
	return nil
}

// snap triggers one frame and waits for it to land
func (c *Camera) snap(mode string) error {
	c.xfer.SetCommandTimeout(commandTimeout)
	if err := c.xfer.Snap(1); err != nil {
		c.Logger.Printf("failed to snap: %v", err)
		c.Metrics.RecordError(mode, "trigger")
		return fmt.Errorf("%w: snap: %w", ErrCaptureFailed, err)
	}
	if err := c.xfer.Wait(c.SnapTimeout); err != nil {
		c.Logger.Printf("snap timed out after %v: %v", c.SnapTimeout, err)
		c.Metrics.RecordError(mode, "timeout")
		return fmt.Errorf("%w: wait: %w", ErrCaptureFailed, err)
	}
	return nil
}

// ImageBuffer copies the ROI of the last frame into the host frame and
// returns its pixels.  The slice is reused by the next call
func (c *Camera) ImageBuffer() ([]byte, error) {
	if c.busy() {
		return nil, ErrDeviceBusy
	}
	if !c.initialized || c.roi == nil {
		return nil, ErrNotInitialized
	}
	if err := c.roi.read(c.img.Pix); err != nil {
		return nil, fmt.Errorf("%w: read buffer: %w", ErrCaptureFailed, err)
	}
	return c.img.Pix, nil
}
