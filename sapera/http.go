package sapera

import (
	"net/http"

	"github.com/go-chi/chi"

	"github.com/nasa-jpl/saperacam/camera"
	"github.com/nasa-jpl/saperacam/generichttp"
	gcam "github.com/nasa-jpl/saperacam/generichttp/camera"
	"github.com/nasa-jpl/saperacam/imgrec"
	"github.com/nasa-jpl/saperacam/server"
)

// PropertyInfo is the JSON view of one property
type PropertyInfo struct {
	Name     string    `json:"name"`
	Type     string    `json:"type"`
	Value    string    `json:"value"`
	ReadOnly bool      `json:"readOnly"`
	Allowed  []string  `json:"allowed,omitempty"`
	Limits   []float64 `json:"limits,omitempty"`
}

// HTTPWrapper serves a Camera: the generic camera routes plus the property
// registry
type HTTPWrapper struct {
	*gcam.HTTPCamera

	cam *Camera
}

// NewHTTPWrapper returns an HTTP wrapper around a camera.  rec and buf may be
// nil
func NewHTTPWrapper(c *Camera, rec *imgrec.Recorder, buf *camera.CircularBuffer) HTTPWrapper {
	h := HTTPWrapper{HTTPCamera: gcam.NewHTTPCamera(c, rec, buf, HTTPStatus), cam: c}
	rt := h.RT()
	rt[server.MethodPath{Method: http.MethodGet, Path: "/properties"}] = h.ListProperties
	rt[server.MethodPath{Method: http.MethodGet, Path: "/property/{name}"}] = h.GetProperty
	rt[server.MethodPath{Method: http.MethodPost, Path: "/property/{name}"}] = h.SetProperty
	rt[server.MethodPath{Method: http.MethodPost, Path: "/initialize"}] = h.lifecycle(c.Initialize)
	rt[server.MethodPath{Method: http.MethodPost, Path: "/shutdown"}] = h.lifecycle(c.Shutdown)
	return h
}

// ListProperties replies with every property, values refreshed from the
// hardware
func (h HTTPWrapper) ListProperties(w http.ResponseWriter, r *http.Request) {
	var out []PropertyInfo
	err := h.Do(func() error {
		reg := h.cam.Properties()
		for _, name := range reg.Names() {
			p, err := reg.Property(name)
			if err != nil {
				return err
			}
			v, err := reg.Get(name)
			if err != nil {
				v = p.Value()
			}
			info := PropertyInfo{Name: name, Type: p.Type().String(), Value: v, ReadOnly: p.ReadOnly(), Allowed: p.Allowed()}
			if lo, hi, ok := p.Limits(); ok {
				info.Limits = []float64{lo, hi}
			}
			out = append(out, info)
		}
		return nil
	})
	if err != nil {
		server.Error(w, err)
		return
	}
	server.WriteJSON(w, out)
}

// GetProperty replies with {"str": value}
func (h HTTPWrapper) GetProperty(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	generichttp.GetString(func() (v string, err error) {
		err = h.Do(func() (err error) {
			v, err = h.cam.Properties().Get(name)
			return
		})
		return
	})(w, r)
}

// SetProperty sets a property from a {"str": value} body
func (h HTTPWrapper) SetProperty(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	generichttp.SetString(func(v string) error {
		return h.Do(func() error { return h.cam.Properties().Set(name, v) })
	})(w, r)
}

func (h HTTPWrapper) lifecycle(fn func() error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := h.Do(fn); err != nil {
			server.Error(w, err)
			return
		}
		w.WriteHeader(http.StatusOK)
	}
}
