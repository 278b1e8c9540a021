// Package generichttp builds HTTP handlers around typed getter and setter
// functions.  Errors from the functions are replied with server.Error, so an
// error carrying a status (server.WithStatus) keeps it
package generichttp

import (
	"encoding/json"
	"net/http"

	"github.com/nasa-jpl/saperacam/server"
)

// getter replies with the value of fcn wrapped in its single-field payload
func getter[T, P any](fcn func() (T, error), wrap func(T) P) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		v, err := fcn()
		if err != nil {
			server.Error(w, err)
			return
		}
		server.WriteJSON(w, wrap(v))
	}
}

// setter decodes a single-field payload from the body and calls fcn with it.
// A body that does not decode is a 400
func setter[T, P any](fcn func(T) error, unwrap func(P) T) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var p P
		err := json.NewDecoder(r.Body).Decode(&p)
		defer r.Body.Close()
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		if err = fcn(unwrap(p)); err != nil {
			server.Error(w, err)
			return
		}
		w.WriteHeader(http.StatusOK)
	}
}

// GetFloat replies with {"f64": value}
func GetFloat(fcn func() (float64, error)) http.HandlerFunc {
	return getter(fcn, func(f float64) server.FloatT { return server.FloatT{F64: f} })
}

// SetFloat calls fcn with the value of a {"f64": value} body
func SetFloat(fcn func(float64) error) http.HandlerFunc {
	return setter(fcn, func(p server.FloatT) float64 { return p.F64 })
}

// GetInt replies with {"int": value}
func GetInt(fcn func() (int, error)) http.HandlerFunc {
	return getter(fcn, func(i int) server.IntT { return server.IntT{Int: i} })
}

// SetInt calls fcn with the value of a {"int": value} body
func SetInt(fcn func(int) error) http.HandlerFunc {
	return setter(fcn, func(p server.IntT) int { return p.Int })
}

// GetString replies with {"str": value}
func GetString(fcn func() (string, error)) http.HandlerFunc {
	return getter(fcn, func(s string) server.StrT { return server.StrT{Str: s} })
}

// SetString calls fcn with the value of a {"str": value} body
func SetString(fcn func(string) error) http.HandlerFunc {
	return setter(fcn, func(p server.StrT) string { return p.Str })
}

// GetBool replies with {"bool": value}
func GetBool(fcn func() (bool, error)) http.HandlerFunc {
	return getter(fcn, func(b bool) server.BoolT { return server.BoolT{Bool: b} })
}

// SetBool calls fcn with the value of a {"bool": value} body
func SetBool(fcn func(bool) error) http.HandlerFunc {
	return setter(fcn, func(p server.BoolT) bool { return p.Bool })
}
