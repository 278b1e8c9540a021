package imgrec_test

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/astrogo/fitsio"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nasa-jpl/saperacam/imgrec"
	"github.com/nasa-jpl/saperacam/server"
)

func today() string {
	return time.Now().Format("2006-01-02")
}

func TestInsertFrameWritesNumberedFiles(t *testing.T) {
	root := t.TempDir()
	rec := &imgrec.Recorder{Root: root, Prefix: "nano", Enabled: true,
		Header: []fitsio.Card{{Name: "OBSERVER", Value: "bench"}}}
	pix := []byte{1, 2, 3, 4, 5, 6}
	require.NoError(t, rec.InsertFrame(pix, 3, 2, 1))
	require.NoError(t, rec.InsertFrame(pix, 3, 2, 1))

	dir := filepath.Join(root, today())
	for _, name := range []string{"nano000001.fits", "nano000002.fits"} {
		b, err := os.ReadFile(filepath.Join(dir, name))
		require.NoError(t, err, name)
		assert.True(t, bytes.HasPrefix(b, []byte("SIMPLE")), name)
		assert.Equal(t, 0, len(b)%2880, "fits files are made of 2880 byte blocks")
	}
	assert.Equal(t, 3, rec.Counter())
}

func TestInsertFrameFileIsReadable(t *testing.T) {
	root := t.TempDir()
	rec := &imgrec.Recorder{Root: root, Prefix: "f", Enabled: true}
	require.NoError(t, rec.InsertFrame([]byte{0, 1, 2, 3}, 2, 2, 1))

	fid, err := os.Open(filepath.Join(root, today(), "f000001.fits"))
	require.NoError(t, err)
	defer fid.Close()
	f, err := fitsio.Open(fid)
	require.NoError(t, err)
	defer f.Close()
	hdu := f.HDU(0)
	assert.Equal(t, []int{2, 2}, hdu.Header().Axes())
}

func TestDisabledDropsFrames(t *testing.T) {
	root := t.TempDir()
	rec := &imgrec.Recorder{Root: root, Prefix: "x"}
	require.NoError(t, rec.InsertFrame([]byte{1}, 1, 1, 1))
	_, err := os.Stat(filepath.Join(root, today()))
	assert.True(t, os.IsNotExist(err))
}

func TestResumesAfterExistingFiles(t *testing.T) {
	root := t.TempDir()
	dir := filepath.Join(root, today())
	require.NoError(t, os.MkdirAll(dir, 0777))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "p000007.fits"), []byte("old"), 0666))
	rec := &imgrec.Recorder{Root: root, Prefix: "p", Enabled: true}
	require.NoError(t, rec.InsertFrame([]byte{1}, 1, 1, 1))
	_, err := os.Stat(filepath.Join(dir, "p000008.fits"))
	assert.NoError(t, err)
	b, _ := os.ReadFile(filepath.Join(dir, "p000007.fits"))
	assert.Equal(t, "old", string(b))
}

type table server.RouteTable

func (t table) RT() server.RouteTable { return server.RouteTable(t) }

func TestHTTPWrapper(t *testing.T) {
	rec := &imgrec.Recorder{Root: t.TempDir()}
	rt := table{}
	imgrec.NewHTTPWrapper(rec).Inject(rt)
	assert.Len(t, rt, 6)

	post := rt[server.MethodPath{Method: http.MethodPost, Path: "/autowrite/prefix"}]
	w := httptest.NewRecorder()
	post(w, httptest.NewRequest(http.MethodPost, "/autowrite/prefix", strings.NewReader(`{"str": "run1_"}`)))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "run1_", rec.Prefix)

	get := rt[server.MethodPath{Method: http.MethodGet, Path: "/autowrite/prefix"}]
	w = httptest.NewRecorder()
	get(w, httptest.NewRequest(http.MethodGet, "/autowrite/prefix", nil))
	assert.JSONEq(t, `{"str": "run1_"}`, w.Body.String())

	en := rt[server.MethodPath{Method: http.MethodPost, Path: "/autowrite/enabled"}]
	w = httptest.NewRecorder()
	en(w, httptest.NewRequest(http.MethodPost, "/autowrite/enabled", strings.NewReader(`{"bool": true}`)))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.True(t, rec.Enabled)

	w = httptest.NewRecorder()
	en(w, httptest.NewRequest(http.MethodPost, "/autowrite/enabled", strings.NewReader(`nope`)))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
