package generichttp_test

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/nasa-jpl/saperacam/generichttp"
	"github.com/nasa-jpl/saperacam/server"
)

func TestGetSetFloat(t *testing.T) {
	var stored float64
	set := generichttp.SetFloat(func(f float64) error { stored = f; return nil })
	w := httptest.NewRecorder()
	set(w, httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"f64": 2.5}`)))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 2.5, stored)

	get := generichttp.GetFloat(func() (float64, error) { return stored, nil })
	w = httptest.NewRecorder()
	get(w, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.JSONEq(t, `{"f64": 2.5}`, w.Body.String())
}

func TestBadBodyIs400(t *testing.T) {
	set := generichttp.SetInt(func(int) error { return nil })
	w := httptest.NewRecorder()
	set(w, httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{`)))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestErrorStatusIsKept(t *testing.T) {
	busy := server.WithStatus(errors.New("busy"), http.StatusConflict)
	set := generichttp.SetString(func(string) error { return busy })
	w := httptest.NewRecorder()
	set(w, httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"str": "Mono12"}`)))
	assert.Equal(t, http.StatusConflict, w.Code)

	get := generichttp.GetBool(func() (bool, error) { return false, errors.New("boom") })
	w = httptest.NewRecorder()
	get(w, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}
