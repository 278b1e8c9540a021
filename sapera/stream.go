package sapera

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/nasa-jpl/saperacam/camera"
	"github.com/nasa-jpl/saperacam/metrics"
	"github.com/nasa-jpl/saperacam/sequence"
)

// ErrNoSink is generated when a sequence is started without a Sink
var ErrNoSink = errors.New("no sink to receive the sequence")

// StartSequence streams numImages frames into Sink, 0 for unbounded, spaced
// by at least intervalMs.  With stopOnOverflow a refused frame ends the
// sequence; otherwise a sink that can be cleared is cleared and offered the
// frame again, and one that cannot drops it
func (c *Camera) StartSequence(numImages int, intervalMs float64, stopOnOverflow bool) error {
	if !c.initialized {
		return ErrNotInitialized
	}
	if c.busy() {
		return ErrDeviceBusy
	}
	if c.Sink == nil {
		return ErrNoSink
	}
	if c.roi == nil {
		if err := c.synchronize(syncOptions{}); err != nil {
			return err
		}
	}
	if numImages < 0 {
		numImages = 0
	}
	r := c.roi.bounds()
	c.seqImg.Resize(r.Width, r.Height, c.bytesPerPixel)
	c.stopOnOverflow = stopOnOverflow

	cfg := sequence.Config{
		Frames:   numImages,
		Interval: time.Duration(intervalMs * float64(time.Millisecond)),
		OnExit: func(err error) {
			c.Metrics.SetStreaming(false)
			if err != nil {
				c.Logger.Printf("sequence ended: %v", err)
			}
		},
	}
	// raised before the goroutine exists so its OnExit always comes after
	c.Metrics.SetStreaming(true)
	if err := c.seq.Start(cfg, c.step); err != nil {
		return ErrDeviceBusy
	}
	c.Logger.Printf("sequence started: %d frames, %v ms apart", numImages, intervalMs)
	return nil
}

// step acquires frame i and hands it to the sink
func (c *Camera) step(ctx context.Context, i int) error {
	if err := c.snap(metrics.ModeStream); err != nil {
		return err
	}
	if err := c.roi.read(c.seqImg.Pix); err != nil {
		c.Metrics.RecordError(metrics.ModeStream, "read")
		return fmt.Errorf("%w: read buffer: %w", ErrCaptureFailed, err)
	}
	err := c.deliver(c.seqImg)
	if err == nil {
		c.Metrics.RecordFrame(metrics.ModeStream)
		return nil
	}
	if !errors.Is(err, camera.ErrBufferOverflow) {
		c.Metrics.RecordError(metrics.ModeStream, "sink")
		return err
	}
	c.Metrics.RecordError(metrics.ModeStream, "overflow")
	if c.stopOnOverflow {
		return err
	}
	if cl, ok := c.Sink.(camera.Clearer); ok {
		cl.Clear()
		if err := c.deliver(c.seqImg); err != nil {
			return err
		}
		c.Metrics.RecordFrame(metrics.ModeStream)
		return nil
	}
	c.Logger.Printf("sink full, frame %d dropped", i)
	return nil
}

func (c *Camera) deliver(f camera.Frame) error {
	return c.Sink.InsertFrame(f.Pix, f.Width, f.Height, f.BytesPerPixel)
}

// StopSequence ends a sequence and waits for its goroutine.  The error that
// ended the sequence, if any, is returned
func (c *Camera) StopSequence() error {
	if !c.busy() {
		return nil
	}
	c.seq.Stop()
	return c.seq.Wait()
}

// IsCapturing is true while a sequence goroutine exists
func (c *Camera) IsCapturing() bool {
	return c.busy()
}

// SequenceCount is the number of frames the current or last sequence
// delivered
func (c *Camera) SequenceCount() int {
	return c.seq.Count()
}
