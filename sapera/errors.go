package sapera

import (
	"errors"
	"net/http"

	"github.com/nasa-jpl/saperacam/feature"
	"github.com/nasa-jpl/saperacam/property"
)

var (
	// ErrResourceAllocation is generated when the buffer pool, transfer, or
	// ROI view cannot be built.  Everything is torn down before it is returned
	ErrResourceAllocation = errors.New("acquisition resource allocation failed")

	// ErrDeviceBusy is generated when an operation conflicts with a running
	// sequence acquisition
	ErrDeviceBusy = errors.New("camera busy acquiring a sequence")

	// ErrCaptureFailed is generated when a snap cannot be triggered or does
	// not complete in time
	ErrCaptureFailed = errors.New("image capture failed")

	// ErrInvalidPropertyValue is generated when a value is rejected
	ErrInvalidPropertyValue = property.ErrInvalidValue

	// ErrNotInitialized is generated when an operation needs the hardware and
	// the camera is not initialized
	ErrNotInitialized = errors.New("camera not initialized")

	// ErrNoCameras is generated when no server with an acquisition device is
	// detected
	ErrNoCameras = errors.New("no Sapera camera servers detected")

	// ErrShutdownTimeout is generated when the transfer does not quiesce
	// within ShutdownTimeout
	ErrShutdownTimeout = errors.New("transfer did not stop in time")
)

// HTTPStatus maps an error from a Camera to an HTTP status code
func HTTPStatus(err error) int {
	switch {
	case errors.Is(err, ErrDeviceBusy):
		return http.StatusConflict
	case errors.Is(err, ErrInvalidPropertyValue),
		errors.Is(err, property.ErrUnknownProperty),
		errors.Is(err, feature.ErrFeatureUnavailable):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
