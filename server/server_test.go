package server_test

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi"
	"github.com/stretchr/testify/assert"

	"github.com/nasa-jpl/saperacam/server"
)

func TestSubMuxSanitize(t *testing.T) {
	cases := map[string]string{
		"/":         "/",
		"":          "/",
		"camera":    "/camera",
		"/camera/":  "/camera",
		"/omc/nkt/": "/omc/nkt",
	}
	for in, want := range cases {
		assert.Equal(t, want, server.SubMuxSanitize(in), "input %q", in)
	}
}

func TestRouteTableBind(t *testing.T) {
	rt := server.RouteTable{
		{Method: http.MethodGet, Path: "/gain"}: func(w http.ResponseWriter, r *http.Request) {
			server.WriteJSON(w, server.FloatT{F64: 2.5})
		},
		{Method: http.MethodPost, Path: "/gain"}: func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
		},
	}
	assert.Equal(t, []string{"GET /gain", "POST /gain"}, rt.Endpoints())

	r := chi.NewRouter()
	rt.Bind(r)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/gain", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"f64": 2.5}`, rec.Body.String())

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/gain", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestErrorStatus(t *testing.T) {
	rec := httptest.NewRecorder()
	server.Error(rec, errors.New("plain"))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)

	rec = httptest.NewRecorder()
	base := errors.New("busy")
	err := server.WithStatus(base, http.StatusConflict)
	server.Error(rec, err)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.True(t, errors.Is(err, base))
	assert.Nil(t, server.WithStatus(nil, http.StatusConflict))
}
