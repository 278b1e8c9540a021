// Package camera provides a generic HTTP interface to a scientific camera
package camera

import (
	"encoding/json"
	"errors"
	"image"
	"image/jpeg"
	"image/png"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/astrogo/fitsio"

	cam "github.com/nasa-jpl/saperacam/camera"
	"github.com/nasa-jpl/saperacam/generichttp"
	"github.com/nasa-jpl/saperacam/imgrec"
	"github.com/nasa-jpl/saperacam/server"
	"github.com/nasa-jpl/saperacam/util"
)

// Camera is what the HTTP interface needs from a camera
type Camera interface {
	cam.PictureTaker
	cam.Sequencer
}

// Gainer is a camera with an analog gain
type Gainer interface {
	// Gain gets the gain
	Gain() (float64, error)

	// SetGain sets the gain
	SetGain(float64) error
}

// StreamRequest is the body of POST /stream/start
type StreamRequest struct {
	// Frames is the number of frames, 0 for unbounded
	Frames int `json:"frames"`

	// IntervalMs is the minimum spacing of frames in milliseconds
	IntervalMs float64 `json:"intervalMs"`

	// StopOnOverflow ends the stream when the sink refuses a frame
	StopOnOverflow bool `json:"stopOnOverflow"`
}

// HTTPCamera wraps a camera in an HTTP interface.  Every call into the
// camera is serialized by one mutex
type HTTPCamera struct {
	// Camera is the camera being served
	Camera Camera

	// Recorder, if not nil and enabled, receives a copy of every FITS image
	// served by /image
	Recorder *imgrec.Recorder

	// Buffer, if not nil, is the stream sink drained by /stream/frame
	Buffer *cam.CircularBuffer

	// Classify maps a camera error to an HTTP status.  nil means 500
	Classify func(error) int

	// MinInterval is the smallest frame interval a stream may request
	MinInterval time.Duration

	mu sync.Mutex

	// RouteTable maps routes to handlers
	RouteTable server.RouteTable
}

// NewHTTPCamera returns a new HTTP wrapper around a camera.  rec and buf may
// be nil
func NewHTTPCamera(c Camera, rec *imgrec.Recorder, buf *cam.CircularBuffer, classify func(error) int) *HTTPCamera {
	h := &HTTPCamera{Camera: c, Recorder: rec, Buffer: buf, Classify: classify}
	rt := server.RouteTable{
		{Method: http.MethodGet, Path: "/image"}:         h.GetFrame,
		{Method: http.MethodGet, Path: "/exposure"}:      generichttp.GetFloat(h.exposure),
		{Method: http.MethodPost, Path: "/exposure"}:     generichttp.SetFloat(h.setExposure),
		{Method: http.MethodGet, Path: "/binning"}:       generichttp.GetInt(h.binning),
		{Method: http.MethodPost, Path: "/binning"}:      generichttp.SetInt(h.setBinning),
		{Method: http.MethodGet, Path: "/roi"}:           h.GetROI,
		{Method: http.MethodPost, Path: "/roi"}:          h.SetROI,
		{Method: http.MethodDelete, Path: "/roi"}:        h.ClearROI,
		{Method: http.MethodPost, Path: "/stream/start"}: h.StartStream,
		{Method: http.MethodPost, Path: "/stream/stop"}:  h.StopStream,
		{Method: http.MethodGet, Path: "/stream"}:        generichttp.GetBool(h.capturing),
	}
	if g, ok := c.(Gainer); ok {
		rt[server.MethodPath{Method: http.MethodGet, Path: "/gain"}] = generichttp.GetFloat(func() (float64, error) {
			var f float64
			err := h.Do(func() (err error) { f, err = g.Gain(); return })
			return f, err
		})
		rt[server.MethodPath{Method: http.MethodPost, Path: "/gain"}] = generichttp.SetFloat(func(f float64) error {
			return h.Do(func() error { return g.SetGain(f) })
		})
	}
	if buf != nil {
		rt[server.MethodPath{Method: http.MethodGet, Path: "/stream/frame"}] = h.PopFrame
	}
	h.RouteTable = rt
	if rec != nil {
		imgrec.NewHTTPWrapper(rec).Inject(h)
	}
	return h
}

// RT satisfies server.HTTPer
func (h *HTTPCamera) RT() server.RouteTable {
	return h.RouteTable
}

// Do runs fn with the camera lock held.  An error from fn is given the
// status chosen by Classify, unless it already carries one
func (h *HTTPCamera) Do(fn func() error) error {
	h.mu.Lock()
	err := fn()
	h.mu.Unlock()
	if err == nil {
		return nil
	}
	var sc server.StatusCoder
	if errors.As(err, &sc) {
		return err
	}
	code := http.StatusInternalServerError
	if h.Classify != nil {
		code = h.Classify(err)
	}
	return server.WithStatus(err, code)
}

func (h *HTTPCamera) exposure() (ms float64, err error) {
	err = h.Do(func() (err error) { ms, err = h.Camera.Exposure(); return })
	return
}

func (h *HTTPCamera) setExposure(ms float64) error {
	return h.Do(func() error { return h.Camera.SetExposure(ms) })
}

func (h *HTTPCamera) binning() (b int, err error) {
	err = h.Do(func() (err error) { b, err = h.Camera.Binning(); return })
	return
}

func (h *HTTPCamera) setBinning(b int) error {
	return h.Do(func() error { return h.Camera.SetBinning(b) })
}

func (h *HTTPCamera) capturing() (bool, error) {
	var on bool
	h.Do(func() error { on = h.Camera.IsCapturing(); return nil })
	return on, nil
}

// GetROI replies with the ROI as JSON {x, y, width, height}
func (h *HTTPCamera) GetROI(w http.ResponseWriter, r *http.Request) {
	var roi cam.ROI
	h.Do(func() error { roi = h.Camera.GetROI(); return nil })
	server.WriteJSON(w, roi)
}

// SetROI sets the ROI from a JSON {x, y, width, height} body.  A zero size
// clears it
func (h *HTTPCamera) SetROI(w http.ResponseWriter, r *http.Request) {
	roi := cam.ROI{}
	err := json.NewDecoder(r.Body).Decode(&roi)
	defer r.Body.Close()
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	err = h.Do(func() error { return h.Camera.SetROI(roi) })
	if err != nil {
		server.Error(w, err)
		return
	}
	w.WriteHeader(http.StatusOK)
}

// ClearROI restores the full frame
func (h *HTTPCamera) ClearROI(w http.ResponseWriter, r *http.Request) {
	err := h.Do(h.Camera.ClearROI)
	if err != nil {
		server.Error(w, err)
		return
	}
	w.WriteHeader(http.StatusOK)
}

// StartStream starts a sequence from a StreamRequest body
func (h *HTTPCamera) StartStream(w http.ResponseWriter, r *http.Request) {
	req := StreamRequest{}
	err := json.NewDecoder(r.Body).Decode(&req)
	defer r.Body.Close()
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if req.Frames < 0 {
		http.Error(w, "frames must not be negative", http.StatusBadRequest)
		return
	}
	if floor := float64(h.MinInterval) / float64(time.Millisecond); req.IntervalMs < floor {
		req.IntervalMs = floor
	}
	err = h.Do(func() error { return h.Camera.StartSequence(req.Frames, req.IntervalMs, req.StopOnOverflow) })
	if err != nil {
		server.Error(w, err)
		return
	}
	w.WriteHeader(http.StatusOK)
}

// StopStream stops a sequence and waits for it to end
func (h *HTTPCamera) StopStream(w http.ResponseWriter, r *http.Request) {
	err := h.Do(h.Camera.StopSequence)
	if err != nil {
		server.Error(w, err)
		return
	}
	w.WriteHeader(http.StatusOK)
}

// PopFrame replies with the oldest streamed frame, or 204 No Content if
// there is none.  The fmt query parameter is as for GetFrame
func (h *HTTPCamera) PopFrame(w http.ResponseWriter, r *http.Request) {
	f := h.Buffer.Pop()
	if f == nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	var cards []fitsio.Card
	if mm, ok := h.Camera.(cam.MetadataMaker); ok {
		h.Do(func() error { cards = mm.CollectHeaderMetadata(); return nil })
	}
	h.encode(w, r.URL.Query().Get("fmt"), f, cards, false)
}

// GetFrame takes a picture and returns it on a GET request.
//
// the image format may be specified in a query parameter; default to jpg
//
// the exposure time may be specified as a query parameter in any time-looking
// format, such as "25ms" or "10us".  Strictly speaking, it must be a valid
// input to golang time.ParseDuration.
//
// if no unit is appended, an s (seconds) is added.
//
// if no exposure time is provided, it is not updated and the existing value is used.
func (h *HTTPCamera) GetFrame(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	var (
		frame *cam.Frame
		cards []fitsio.Card
	)
	err := h.Do(func() error {
		if texp := q.Get("exposureTime"); texp != "" {
			if util.AllElementsNumbers(texp) {
				texp = texp + "s"
			}
			T, err := time.ParseDuration(texp)
			if err != nil {
				return server.WithStatus(err, http.StatusBadRequest)
			}
			err = h.Camera.SetExposure(float64(T) / float64(time.Millisecond))
			if err != nil {
				return err
			}
		}
		if err := h.Camera.SnapImage(); err != nil {
			return err
		}
		pix, err := h.Camera.ImageBuffer()
		if err != nil {
			return err
		}
		frame = &cam.Frame{
			Width:         h.Camera.ImageWidth(),
			Height:        h.Camera.ImageHeight(),
			BytesPerPixel: h.Camera.ImageBytesPerPixel(),
			Pix:           append([]byte(nil), pix...)}
		if mm, ok := h.Camera.(cam.MetadataMaker); ok {
			cards = mm.CollectHeaderMetadata()
		}
		return nil
	})
	if err != nil {
		server.Error(w, err)
		return
	}
	h.encode(w, q.Get("fmt"), frame, cards, true)
}

// encode writes a frame as jpg, png, or fits.  record copies fits output to
// the recorder
func (h *HTTPCamera) encode(w http.ResponseWriter, format string, f *cam.Frame, cards []fitsio.Card, record bool) {
	if format == "" {
		format = "jpg"
	}
	switch format {
	case "jpg":
		w.Header().Set("Content-Type", "image/jpeg")
		w.WriteHeader(http.StatusOK)
		jpeg.Encode(w, to8bit(f), nil)
	case "png":
		im, err := f.Image()
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "image/png")
		w.WriteHeader(http.StatusOK)
		png.Encode(w, im)
	case "fits":
		// declare a writer to use to stream the file to
		var w2 io.Writer = w
		rec := h.Recorder
		if record && rec != nil && rec.Active() {
			w2 = io.MultiWriter(w, rec)
			defer rec.Incr()
		}
		hdr := w.Header()
		hdr.Set("Content-Type", "image/fits")
		hdr.Set("Content-Disposition", "attachment; filename=image.fits")
		err := cam.WriteFits(w2, cards, f)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
		}
	default:
		http.Error(w, "format "+format+" is not one of jpg, png, fits", http.StatusBadRequest)
	}
}

// to8bit keeps the high byte of each sample
func to8bit(f *cam.Frame) *image.Gray {
	rect := image.Rect(0, 0, f.Width, f.Height)
	if f.BytesPerPixel == 1 {
		return &image.Gray{Pix: f.Pix, Stride: f.Width, Rect: rect}
	}
	im := image.NewGray(rect)
	for i := range im.Pix {
		im.Pix[i] = f.Pix[i*f.BytesPerPixel+f.BytesPerPixel-1] // scale 16 to 8 bits
	}
	return im
}
