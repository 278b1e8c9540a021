package sapera

import (
	"errors"
	"sync"
	"time"

	"github.com/nasa-jpl/saperacam/feature"
)

// Handle is the two-phase lifecycle of every Sapera++ object: construct,
// then Create to allocate the native resource, and Destroy to release it
type Handle interface {
	Create() error
	Destroy() error
}

// Device is an acquisition device (SapAcqDevice) and its feature values
type Device interface {
	Handle
	feature.Device
}

// Metadata is the feature metadata handle (SapFeature) of a server
type Metadata interface {
	Handle
	feature.Describer
}

// Buffers is a ring of frame buffers plus one trash buffer
// (SapBufferWithTrash).  Geometry is taken from the device at Create time
type Buffers interface {
	Handle

	// Width, Height, and BytesPerPixel describe one buffer
	Width() int
	Height() int
	BytesPerPixel() int

	// ReadRect copies a rectangle of the most recently filled buffer to dst,
	// which must hold w*h*BytesPerPixel bytes
	ReadRect(x, y, w, h int, dst []byte) error
}

// TransferEvent is delivered to the transfer callback once per frame
type TransferEvent struct {
	// Trash is true if the frame landed in the trash buffer
	Trash bool

	// Count is the number of frames transferred since the transfer was
	// created
	Count int
}

// Transfer moves frames from a device into buffers (SapAcqDeviceToBuf)
type Transfer interface {
	Handle

	// SetCommandTimeout bounds the time the SDK waits for a command to be
	// acknowledged
	SetCommandTimeout(time.Duration)

	// Snap acquires n frames and returns without waiting for them
	Snap(n int) error

	// Freeze stops the transfer at the end of the current frame
	Freeze() error

	// Wait blocks until the transfer is idle or the timeout elapses.  A
	// timeout is an error
	Wait(timeout time.Duration) error
}

// SDK is the entry point of the vendor library (SapManager and the object
// constructors)
type SDK interface {
	// Servers lists the servers which own an acquisition device
	Servers() ([]string, error)

	NewDevice(server string) Device
	NewMetadata(server string) Metadata
	NewBuffers(dev Device, count int) Buffers
	NewTransfer(dev Device, bufs Buffers, cb func(TransferEvent)) Transfer
}

// ErrNoNativeSDK is generated by Native when no binding to the vendor library
// was compiled in
var ErrNoNativeSDK = errors.New("no native Sapera binding registered")

var (
	nativeMu sync.Mutex
	native   SDK
)

// RegisterNative makes a binding to the vendor library available through
// Native.  It is meant to be called from the init function of the binding
// package
func RegisterNative(sdk SDK) {
	nativeMu.Lock()
	defer nativeMu.Unlock()
	native = sdk
}

// Native returns the registered binding to the vendor library
func Native() (SDK, error) {
	nativeMu.Lock()
	defer nativeMu.Unlock()
	if native == nil {
		return nil, ErrNoNativeSDK
	}
	return native, nil
}
