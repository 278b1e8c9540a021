/*Package camera describes a standard set of interfaces for control of cameras
and a few image sinks that consume the frames they produce

The Minimal type contains the basics, PictureTaker the single-frame path, and
Sequencer the streaming path.  A concrete camera typically implements all
three.

*/
package camera

import "github.com/astrogo/fitsio"

// Minimal describes a minimal camera interface with only the basics.
type Minimal interface {
	// Initialize opens the device, builds the acquisition resources, and
	// populates the properties of the camera
	Initialize() error

	// Shutdown stops any acquisition and releases every resource.  Calling it
	// more than once is harmless
	Shutdown() error

	// Name returns the device name
	Name() string
}

// PictureTaker describes an interface to a camera which can capture images
type PictureTaker interface {
	// SnapImage captures one frame into the acquisition buffer
	SnapImage() error

	// ImageBuffer returns the pixels of the most recent frame, narrowed to
	// the ROI.  The slice is valid until the next snap or geometry change
	ImageBuffer() ([]byte, error)

	// ImageWidth is the width of the frame returned by ImageBuffer
	ImageWidth() int

	// ImageHeight is the height of the frame returned by ImageBuffer
	ImageHeight() int

	// ImageBytesPerPixel is the size of one pixel in the frame
	ImageBytesPerPixel() int

	// Exposure gets the exposure time in milliseconds
	Exposure() (float64, error)

	// SetExposure sets the exposure time in milliseconds
	SetExposure(ms float64) error

	// GetROI returns the region of interest, in full frame coordinates
	GetROI() ROI

	// SetROI restricts readout to a rectangle.  A zero size clears the ROI
	SetROI(ROI) error

	// ClearROI restores the full frame
	ClearROI() error

	// Binning returns the scalar binning factor
	Binning() (int, error)

	// SetBinning sets the binning factor
	SetBinning(int) error
}

// Sequencer describes a camera which can stream frames into a Sink
type Sequencer interface {
	// StartSequence begins streaming numImages frames (0 for unbounded)
	// spaced by at least intervalMs
	StartSequence(numImages int, intervalMs float64, stopOnOverflow bool) error

	// StopSequence asks the stream to end and waits for it
	StopSequence() error

	// IsCapturing reports if a stream is running
	IsCapturing() bool
}

// Sink consumes finished frames
type Sink interface {
	// InsertFrame accepts one frame.  pix is only valid for the duration of
	// the call.  An error tells the producer the frame was not taken
	InsertFrame(pix []byte, width, height, bytesPerPixel int) error
}

// MetadataMaker can produce an array of FITS cards
type MetadataMaker interface {
	// CollectHeaderMetadata produces an array of FITS cards
	CollectHeaderMetadata() []fitsio.Card
}

// ROI describes a region of interest on the camera
type ROI struct {
	// X is the left pixel index.  0-based
	X int `json:"x"`

	// Y is the top pixel index.  0-based
	Y int `json:"y"`

	// Width is the width in pixels
	Width int `json:"width"`

	// Height is the height in pixels
	Height int `json:"height"`
}

// Empty is true for the zero-size ROI, which means "full frame"
func (r ROI) Empty() bool {
	return r.Width == 0 && r.Height == 0
}

// Within reports if r lies inside a frame of size w x h
func (r ROI) Within(w, h int) bool {
	return r.X >= 0 && r.Y >= 0 && r.Width > 0 && r.Height > 0 &&
		r.X+r.Width <= w && r.Y+r.Height <= h
}
