/*Package sapera adapts Teledyne DALSA GigE cameras, reached through the
Sapera LT SDK, to the property model and camera interfaces of this module.

The Camera keeps the device, its feature metadata, a buffer ring, a transfer,
and a ROI view consistent with the hardware.  Any write that changes the pixel
format, the image size, or the image timeout tears the buffers and transfer
down and builds them again.

Camera is not safe for concurrent use.  Callers serialize access to it; the
only concurrency inside is the sequence acquisition goroutine, which is
mutually exclusive with snaps and with anything that reshapes the pipeline.
*/
package sapera

import (
	"fmt"
	"log"
	"os"
	"sort"
	"strconv"
	"time"

	"github.com/cenkalti/backoff"

	"github.com/nasa-jpl/saperacam/camera"
	"github.com/nasa-jpl/saperacam/feature"
	"github.com/nasa-jpl/saperacam/metrics"
	"github.com/nasa-jpl/saperacam/property"
	"github.com/nasa-jpl/saperacam/sequence"
	"github.com/nasa-jpl/saperacam/util"
)

const (
	// DeviceName is the name of the adapter
	DeviceName = "SaperaGigE"

	// DefaultSnapTimeout bounds the wait for a single frame
	DefaultSnapTimeout = 16 * time.Second

	// DefaultShutdownTimeout bounds the wait for the transfer to quiesce
	DefaultShutdownTimeout = 5 * time.Second

	// commandTimeout bounds the acknowledgement of a snap command
	commandTimeout = time.Second

	// ringDepth is the number of buffers in the ring, excluding trash
	ringDepth = 3
)

// Camera is a Sapera GigE camera
type Camera struct {
	// Logger receives diagnostics.  Never nil after New
	Logger *log.Logger

	// Metrics is optional instrumentation
	Metrics *metrics.Camera

	// Sink receives frames during a sequence acquisition
	Sink camera.Sink

	// SnapTimeout bounds the wait for a single frame
	SnapTimeout time.Duration

	// ShutdownTimeout bounds the wait for the transfer to stop on Shutdown
	ShutdownTimeout time.Duration

	sdk     SDK
	props   *property.Registry
	servers []string
	active  string

	initialized bool

	device  Device
	meta    Metadata
	feats   *feature.Registry
	buffers Buffers
	xfer    Transfer
	roi     *roiView

	bitsPerPixel  int
	bytesPerPixel int
	img           camera.Frame

	seq            sequence.Thread
	seqImg         camera.Frame
	stopOnOverflow bool
}

// ListCameras returns the servers with an acquisition device.  The caller
// owns the count
func ListCameras(sdk SDK) ([]string, error) {
	servers, err := sdk.Servers()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", feature.ErrHardwareCommunication, err)
	}
	if len(servers) == 0 {
		return nil, ErrNoCameras
	}
	return servers, nil
}

// New creates a camera over an SDK.  props is the host property registry;
// if nil a private one is made.
//
// No hardware is touched beyond server enumeration.  The Name and
// AcquisitionDevice properties exist after New; every other property is
// created by Initialize
func New(sdk SDK, props *property.Registry) *Camera {
	if props == nil {
		props = property.NewRegistry()
	}
	c := &Camera{
		Logger:          log.New(os.Stderr, "sapera: ", log.LstdFlags),
		SnapTimeout:     DefaultSnapTimeout,
		ShutdownTimeout: DefaultShutdownTimeout,
		sdk:             sdk,
		props:           props,
		bitsPerPixel:    8,
		bytesPerPixel:   1,
	}
	c.props.Create(PropName, property.String, DeviceName, true, nil)

	servers, err := ListCameras(sdk)
	if err != nil {
		c.Logger.Printf("no Sapera camera found: %v", err)
		return c
	}
	c.servers = util.UniqueString(servers)
	c.active = c.servers[0]
	c.props.Create(PropServer, property.String, c.active, false, c.onServer)
	c.props.SetAllowedValues(PropServer, servers)
	return c
}

// Name returns the name of the adapter
func (c *Camera) Name() string {
	return DeviceName
}

// Server returns the server the camera is bound to
func (c *Camera) Server() string {
	return c.active
}

// Properties returns the property registry of the camera
func (c *Camera) Properties() *property.Registry {
	return c.props
}

// Initialized reports if Initialize has completed
func (c *Camera) Initialized() bool {
	return c.initialized
}

// Initialize opens the device, creates the properties, and builds the
// acquisition pipeline.  It is a no-op on an initialized camera
func (c *Camera) Initialize() error {
	if c.initialized {
		return nil
	}
	if c.active == "" {
		return ErrNoCameras
	}
	c.Logger.Printf("initialize device '%s'", c.active)
	if err := c.open(); err != nil {
		return err
	}
	if err := c.initProperties(); err != nil {
		return c.abortInit(err)
	}
	if err := c.initBinning(); err != nil {
		return c.abortInit(err)
	}
	c.Logger.Println("setting up buffers")
	if err := c.synchronize(syncOptions{}); err != nil {
		return c.abortInit(err)
	}
	c.initLimits()
	c.initialized = true
	return nil
}

func (c *Camera) abortInit(err error) error {
	return util.MergeErrors([]error{err, c.freeHandles()})
}

// open creates the device and metadata handles if they do not exist.
// Device creation is retried briefly; GigE devices can refuse a connection
// for a moment after another process lets go of them
func (c *Camera) open() error {
	if c.device != nil && c.meta != nil {
		return nil
	}
	if c.device == nil {
		dev := c.sdk.NewDevice(c.active)
		err := backoff.Retry(dev.Create, backoff.WithMaxRetries(&backoff.ExponentialBackOff{
			InitialInterval:     25 * time.Millisecond,
			RandomizationFactor: 0.,
			Multiplier:          2.,
			MaxInterval:         250 * time.Millisecond,
			MaxElapsedTime:      time.Second,
			Clock:               backoff.SystemClock}, 2))
		if err != nil {
			return fmt.Errorf("%w: device on %s: %w", ErrResourceAllocation, c.active, err)
		}
		c.device = dev
	}
	if c.meta == nil {
		meta := c.sdk.NewMetadata(c.active)
		if err := meta.Create(); err != nil {
			destroyErr := c.freeHandles()
			return util.MergeErrors([]error{fmt.Errorf("%w: feature metadata on %s: %w", ErrResourceAllocation, c.active, err), destroyErr})
		}
		c.meta = meta
	}
	c.feats = feature.NewRegistry(c.device, c.meta)
	return nil
}

// initLimits bounds Gain and Exposure by their feature range
func (c *Camera) initLimits() {
	if d, err := c.feats.Describe(featGain); err == nil && c.props.Has(PropGain) {
		c.props.SetLimits(PropGain, d.Min, d.Max)
	}
	if d, err := c.feats.Describe(featExposure); err == nil && c.props.Has(PropExposure) {
		c.props.SetLimits(PropExposure, d.Min/1000, d.Max/1000) // us to ms
	}
}

// Shutdown stops any sequence, waits for the transfer to quiesce, and frees
// every handle.  It is a no-op on a camera that is not initialized.
//
// If the transfer does not quiesce within ShutdownTimeout the handles are
// kept, the camera stays initialized, and ErrShutdownTimeout is returned so
// that Shutdown can be tried again
func (c *Camera) Shutdown() error {
	if !c.initialized {
		return nil
	}
	c.Logger.Printf("shutting down device '%s'", c.active)
	var errs []error
	if err := c.StopSequence(); err != nil {
		errs = append(errs, err)
	}
	if c.xfer != nil {
		if err := c.quiesce(); err != nil {
			return util.MergeErrors(append(errs, err))
		}
	}
	c.initialized = false
	errs = append(errs, c.freeHandles())
	return util.MergeErrors(errs)
}

// quiesce freezes the transfer and polls until it reports idle
func (c *Camera) quiesce() error {
	if err := c.xfer.Freeze(); err != nil {
		c.Logger.Printf("failed to freeze transfer: %v", err)
	}
	wait := c.ShutdownTimeout / 10
	err := backoff.Retry(func() error {
		return c.xfer.Wait(wait)
	}, &backoff.ExponentialBackOff{
		InitialInterval:     10 * time.Millisecond,
		RandomizationFactor: 0.,
		Multiplier:          2.,
		MaxInterval:         wait,
		MaxElapsedTime:      c.ShutdownTimeout,
		Clock:               backoff.SystemClock})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrShutdownTimeout, err)
	}
	return nil
}

// onServer handles the AcquisitionDevice property.  Choosing another server
// shuts the camera down; Initialize must be called again
func (c *Camera) onServer(p *property.Property, act property.ActionType) error {
	if act != property.AfterSet {
		return nil
	}
	name := p.Value()
	if name == c.active {
		return nil
	}
	if err := c.Shutdown(); err != nil {
		return err
	}
	c.active = name
	return nil
}

// Configure sets many properties at once, in name order.  Every entry is
// attempted; the errors are merged
func (c *Camera) Configure(settings map[string]interface{}) error {
	keys := make([]string, 0, len(settings))
	for k := range settings {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	var errs []error
	for _, k := range keys {
		if err := c.props.Set(k, configText(settings[k])); err != nil {
			errs = append(errs, err)
		}
	}
	return util.MergeErrors(errs)
}

func configText(v interface{}) string {
	switch t := v.(type) {
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'g', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	default:
		return fmt.Sprint(t)
	}
}

// Exposure returns the exposure time in milliseconds
func (c *Camera) Exposure() (float64, error) {
	return c.getFloat(PropExposure)
}

// SetExposure sets the exposure time in milliseconds
func (c *Camera) SetExposure(ms float64) error {
	return c.setFloat(PropExposure, ms)
}

// Gain returns the vendor-scaled gain
func (c *Camera) Gain() (float64, error) {
	return c.getFloat(PropGain)
}

// SetGain sets the vendor-scaled gain
func (c *Camera) SetGain(g float64) error {
	return c.setFloat(PropGain, g)
}

// Binning returns the binning factor, 1 for a camera without binning
func (c *Camera) Binning() (int, error) {
	if !c.props.Has(PropBinning) {
		return 1, nil
	}
	s, err := c.props.Get(PropBinning)
	if err != nil {
		return 1, err
	}
	return strconv.Atoi(s)
}

// SetBinning sets the binning factor in both directions
func (c *Camera) SetBinning(b int) error {
	if !c.props.Has(PropBinning) {
		if b == 1 {
			return nil
		}
		return &feature.Error{Feature: featBinningH, Op: "write", Err: feature.ErrFeatureUnavailable}
	}
	return c.props.Set(PropBinning, strconv.Itoa(b))
}

func (c *Camera) getFloat(name string) (float64, error) {
	if !c.initialized {
		return 0, ErrNotInitialized
	}
	s, err := c.props.Get(name)
	if err != nil {
		return 0, err
	}
	return strconv.ParseFloat(s, 64)
}

func (c *Camera) setFloat(name string, f float64) error {
	if !c.initialized {
		return ErrNotInitialized
	}
	if !feature.Finite(f) {
		return fmt.Errorf("%w: %s: %v is not finite", ErrInvalidPropertyValue, name, f)
	}
	return c.props.Set(name, strconv.FormatFloat(f, 'g', -1, 64))
}

// ImageWidth is the width of the frame returned by ImageBuffer
func (c *Camera) ImageWidth() int { return c.img.Width }

// ImageHeight is the height of the frame returned by ImageBuffer
func (c *Camera) ImageHeight() int { return c.img.Height }

// ImageBytesPerPixel is the size of one pixel
func (c *Camera) ImageBytesPerPixel() int { return c.img.BytesPerPixel }

// BitDepth is the number of significant bits per pixel
func (c *Camera) BitDepth() int { return c.bitsPerPixel }

// ImageBufferSize is the size of the frame in bytes
func (c *Camera) ImageBufferSize() int { return c.img.Size() }
