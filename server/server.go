// Package server contains misc server utilities: route tables that bind to a
// chi router, the small JSON payloads used by every endpoint, and error
// replies that carry an HTTP status.
package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"sort"
	"strings"

	"github.com/go-chi/chi"
)

// BoolT is a struct with a single Bool field
type BoolT struct {
	Bool bool `json:"bool"`
}

// IntT is a struct with a single Int field
type IntT struct {
	Int int `json:"int"`
}

// FloatT is a struct with a single F64 field
type FloatT struct {
	F64 float64 `json:"f64"`
}

// StrT is a struct with a single Str field
type StrT struct {
	Str string `json:"str"`
}

// WriteJSON replies with v as JSON and status 200
func WriteJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	err := json.NewEncoder(w).Encode(v)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

// StatusCoder is an error that knows which HTTP status it should produce
type StatusCoder interface {
	StatusCode() int
}

type statusError struct {
	err  error
	code int
}

func (e statusError) Error() string   { return e.err.Error() }
func (e statusError) Unwrap() error   { return e.err }
func (e statusError) StatusCode() int { return e.code }

// WithStatus attaches an HTTP status to an error.  nil stays nil
func WithStatus(err error, code int) error {
	if err == nil {
		return nil
	}
	return statusError{err: err, code: code}
}

// Error replies with the error text and its status, 500 when err carries none
func Error(w http.ResponseWriter, err error) {
	code := http.StatusInternalServerError
	var sc StatusCoder
	if errors.As(err, &sc) {
		code = sc.StatusCode()
	}
	http.Error(w, err.Error(), code)
}

// MethodPath is a struct containing an HTTP method and a path
type MethodPath struct {
	Method, Path string
}

// RouteTable maps method/path pairs to handlers
type RouteTable map[MethodPath]http.HandlerFunc

// Endpoints lists the endpoints in a RouteTable as "METHOD /path", sorted
func (rt RouteTable) Endpoints() []string {
	routes := make([]string, 0, len(rt))
	for k := range rt {
		routes = append(routes, k.Method+" "+k.Path)
	}
	sort.Strings(routes)
	return routes
}

// Bind binds every route of the table to a chi router
func (rt RouteTable) Bind(r chi.Router) {
	for k, v := range rt {
		r.MethodFunc(k.Method, k.Path, v)
	}
}

// HTTPer is an object which exposes a route table
type HTTPer interface {
	RT() RouteTable
}

// SubMuxSanitize converts a submux "/thing/" into "/thing" suitable for
// chi Mount.  The root collapses to "/"
func SubMuxSanitize(str string) string {
	str = strings.TrimSuffix(str, "/")
	if !strings.HasPrefix(str, "/") {
		str = "/" + str
	}
	return str
}
