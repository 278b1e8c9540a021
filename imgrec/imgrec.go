// Package imgrec contains an image recorder used to automatically save images to disk.
package imgrec

import (
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/astrogo/fitsio"

	"github.com/nasa-jpl/saperacam/camera"
	"github.com/nasa-jpl/saperacam/generichttp"
	"github.com/nasa-jpl/saperacam/server"
)

// Recorder records image sequences with incrementing filenames in yyyy-mm-dd
// subfolders.  It is safe for concurrent use, but one FITS file must be
// streamed through Write and closed with Incr before the next is started
type Recorder struct {
	mu sync.Mutex

	// counter is the internally incrementing counter
	counter int

	// Root is the root path
	Root string

	// Prefix is the prefix for the filenames
	Prefix string

	// timeFldr is the subfolder with yyyy-mm-dd format.
	timeFldr string

	// Enabled is a flag that allows consumers to disable recording.
	// InsertFrame drops frames while it is false
	Enabled bool

	// Header is written into every file made by InsertFrame
	Header []fitsio.Card
}

// updateFolder checks the current time and updates the folder as needed
func (r *Recorder) updateFolder() {
	now := time.Now()
	y, m, d := now.Year(), now.Month(), now.Day()
	r.timeFldr = fmt.Sprintf("%04d-%02d-%02d", y, m, d)
}

// mkDir makes the folder and returns it
func (r *Recorder) mkDir() (string, error) {
	fldr := filepath.Join(r.Root, r.timeFldr)
	err := os.MkdirAll(fldr, 0777)
	return fldr, err
}

// Write implements io.Writer and appends to the current fits file on disk
func (r *Recorder) Write(p []byte) (n int, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.write(p)
}

func (r *Recorder) write(p []byte) (n int, err error) {
	// make sure the folder exists
	r.updateFolder()
	fldr, err := r.mkDir()
	if err != nil {
		return 0, err
	}
	if r.counter == 0 {
		r.incr()
	}

	fn := filepath.Join(fldr, r.filename(r.counter))
	fid, err := os.OpenFile(fn, os.O_APPEND|os.O_WRONLY|os.O_CREATE, 0666)
	if err != nil {
		return 0, err
	}
	defer fid.Close()
	return fid.Write(p)
}

func (r *Recorder) filename(n int) string {
	return fmt.Sprintf("%s%06d.fits", r.Prefix, n)
}

// Incr moves on to the next file; it scans the folder to do so.  If there is
// an error, the counter is not incremented
func (r *Recorder) Incr() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.incr()
}

func (r *Recorder) incr() {
	r.updateFolder()
	dn, _ := r.mkDir()
	files, err := os.ReadDir(dn)
	if err != nil {
		return
	}
	count := 0
	for _, file := range files {
		// skip directories, non-fits, and wrong prefix
		if file.IsDir() {
			continue
		}
		fn := file.Name()
		if !strings.HasSuffix(fn, ".fits") || !strings.HasPrefix(fn, r.Prefix) {
			continue
		}
		bit := strings.TrimSuffix(strings.TrimPrefix(fn, r.Prefix), ".fits")
		n, err := strconv.Atoi(bit)
		if err != nil {
			continue
		}
		if count < n {
			count = n
		}
	}
	r.counter = count + 1
}

// Counter is the number of the file the next Write goes to, 0 before the
// folder has been scanned
func (r *Recorder) Counter() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.counter
}

// Active reports if the recorder is enabled and has somewhere to write
func (r *Recorder) Active() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.Enabled && r.Root != ""
}

type writerFunc func([]byte) (int, error)

func (f writerFunc) Write(p []byte) (int, error) { return f(p) }

// InsertFrame satisfies camera.Sink by writing each frame to its own FITS file
func (r *Recorder) InsertFrame(pix []byte, width, height, bytesPerPixel int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.Enabled || r.Root == "" {
		return nil
	}
	f := &camera.Frame{Width: width, Height: height, BytesPerPixel: bytesPerPixel, Pix: pix}
	cards := append([]fitsio.Card(nil), r.Header...)
	if err := camera.WriteFits(writerFunc(r.write), cards, f); err != nil {
		return err
	}
	r.incr()
	return nil
}

// setRoot points the recorder at a new root folder, creating today's
// subfolder.  Numbering restarts from a scan of the new folder
func (r *Recorder) setRoot(root string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Root = root
	r.counter = 0
	r.updateFolder()
	if _, err := r.mkDir(); err != nil {
		return server.WithStatus(err, http.StatusBadRequest)
	}
	return nil
}

func (r *Recorder) setPrefix(prefix string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Prefix = prefix
	r.counter = 0
	return nil
}

func (r *Recorder) setEnabled(on bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Enabled = on
	return nil
}

// locked reads a field of the recorder under its lock
func locked[T any](r *Recorder, field func() T) func() (T, error) {
	return func() (T, error) {
		r.mu.Lock()
		defer r.mu.Unlock()
		return field(), nil
	}
}

// HTTPWrapper is an HTTP wrapper around an image recorder that allows the
// folder, prefix, and enable flag to be changed on the fly.
//
// it does not implement server.HTTPer, offering an Inject method allowing it to be injected
// into another HTTPer
type HTTPWrapper struct {
	*Recorder
}

// NewHTTPWrapper returns an HTTP wrapper around a recorder
func NewHTTPWrapper(r *Recorder) HTTPWrapper {
	return HTTPWrapper{r}
}

// Inject adds GET and POST routes for /autowrite/root, /autowrite/prefix, and
// /autowrite/enabled to the HTTPer which manipulate this wrapper's recorder
func (h HTTPWrapper) Inject(other server.HTTPer) {
	r := h.Recorder
	rt := other.RT()
	rt[server.MethodPath{Method: http.MethodPost, Path: "/autowrite/root"}] = generichttp.SetString(r.setRoot)
	rt[server.MethodPath{Method: http.MethodGet, Path: "/autowrite/root"}] = generichttp.GetString(locked(r, func() string { return r.Root }))
	rt[server.MethodPath{Method: http.MethodPost, Path: "/autowrite/prefix"}] = generichttp.SetString(r.setPrefix)
	rt[server.MethodPath{Method: http.MethodGet, Path: "/autowrite/prefix"}] = generichttp.GetString(locked(r, func() string { return r.Prefix }))
	rt[server.MethodPath{Method: http.MethodPost, Path: "/autowrite/enabled"}] = generichttp.SetBool(r.setEnabled)
	rt[server.MethodPath{Method: http.MethodGet, Path: "/autowrite/enabled"}] = generichttp.GetBool(locked(r, func() bool { return r.Enabled }))
}
