package locker_test

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi"
	"github.com/stretchr/testify/assert"

	"github.com/nasa-jpl/saperacam/server"
	"github.com/nasa-jpl/saperacam/server/middleware/locker"
)

type table server.RouteTable

func (t table) RT() server.RouteTable { return server.RouteTable(t) }

func TestLockBouncesWrites(t *testing.T) {
	rt := table{
		{Method: http.MethodPost, Path: "/gain"}: func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) },
		{Method: http.MethodGet, Path: "/gain"}:  func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) },
	}
	l := locker.New()
	locker.Inject(rt, l)

	r := chi.NewRouter()
	r.Use(l.Check)
	rt.RT().Bind(r)

	do := func(method, path, body string) int {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(method, path, strings.NewReader(body)))
		return rec.Code
	}

	assert.Equal(t, http.StatusOK, do(http.MethodPost, "/gain", ""))
	assert.Equal(t, http.StatusOK, do(http.MethodPost, "/lock", `{"bool": true}`))
	assert.True(t, l.Locked())
	assert.Equal(t, http.StatusLocked, do(http.MethodPost, "/gain", ""))
	assert.Equal(t, http.StatusOK, do(http.MethodGet, "/gain", ""))
	assert.Equal(t, http.StatusOK, do(http.MethodPost, "/lock", `{"bool": false}`))
	assert.Equal(t, http.StatusOK, do(http.MethodPost, "/gain", ""))
	assert.Equal(t, http.StatusBadRequest, do(http.MethodPost, "/lock", `nope`))
}

func TestLockExemptUnderMount(t *testing.T) {
	l := locker.New()
	l.Set(true)
	inner := chi.NewRouter()
	inner.Use(l.Check)
	inner.Post("/lock", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })
	inner.Post("/roi", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })
	root := chi.NewRouter()
	root.Mount("/nano", inner)

	rec := httptest.NewRecorder()
	root.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/nano/lock", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	rec = httptest.NewRecorder()
	root.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/nano/roi", nil))
	assert.Equal(t, http.StatusLocked, rec.Code)
}
