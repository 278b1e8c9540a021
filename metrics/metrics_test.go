package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCameraMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m, err := NewCamera(reg, "genie")
	require.NoError(t, err)

	m.RecordSnap(20 * time.Millisecond)
	m.RecordFrame(ModeStream)
	m.RecordFrame(ModeStream)
	m.RecordError(ModeSnap, "timeout")
	m.RecordTrash()
	m.RecordRebuild(nil)
	m.RecordRebuild(errors.New("alloc"))
	m.SetStreaming(true)

	assert.Equal(t, 1., testutil.ToFloat64(m.framesTotal.WithLabelValues(ModeSnap)))
	assert.Equal(t, 2., testutil.ToFloat64(m.framesTotal.WithLabelValues(ModeStream)))
	assert.Equal(t, 1., testutil.ToFloat64(m.errorsTotal.WithLabelValues(ModeSnap, "timeout")))
	assert.Equal(t, 1., testutil.ToFloat64(m.trashTotal))
	assert.Equal(t, 1., testutil.ToFloat64(m.resyncsTotal.WithLabelValues("error")))
	assert.Equal(t, 1., testutil.ToFloat64(m.streaming))
	assert.Equal(t, 1, testutil.CollectAndCount(m.snapDuration))
}

func TestDuplicateRegistrationFails(t *testing.T) {
	reg := prometheus.NewRegistry()
	_, err := NewCamera(reg, "genie")
	require.NoError(t, err)
	_, err = NewCamera(reg, "genie")
	assert.Error(t, err)
}

func TestNilIsSafe(t *testing.T) {
	var m *Camera
	m.RecordSnap(time.Second)
	m.RecordFrame(ModeStream)
	m.RecordError(ModeSnap, "busy")
	m.RecordTrash()
	m.RecordRebuild(nil)
	m.SetStreaming(false)
}
