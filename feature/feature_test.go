package feature_test

import (
	"errors"
	"fmt"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nasa-jpl/saperacam/feature"
)

// dev is a minimal in-memory feature.Device / feature.Describer
type dev struct {
	info   map[string]feature.Info
	ints   map[string]int64
	floats map[string]float64
	strs   map[string]string
	fail   error
	reads  int
}

func newDev() *dev {
	return &dev{
		info: map[string]feature.Info{
			"Width":       {Type: feature.TypeInt64, Writable: true, Min: 64, Max: 1920, Inc: 16},
			"Gain":        {Type: feature.TypeDouble, Writable: true, Min: 1, Max: 8, Inc: 0.1},
			"PixelFormat": {Type: feature.TypeEnum, Writable: true, EnumStrings: []string{"Mono8", "Mono16"}},
			"DeviceName":  {Type: feature.TypeString},
			"Broken":      {Type: feature.TypeInt32, Min: 10, Max: 1},
		},
		ints:   map[string]int64{"Width": 1920, "Broken": 5},
		floats: map[string]float64{"Gain": 1},
		strs:   map[string]string{"PixelFormat": "Mono8", "DeviceName": "Genie"},
	}
}

func (d *dev) IsFeatureAvailable(name string) bool { _, ok := d.info[name]; return ok }
func (d *dev) FeatureInfo(name string) (feature.Info, error) {
	if d.fail != nil {
		return feature.Info{}, d.fail
	}
	return d.info[name], nil
}
func (d *dev) GetFeatureString(name string) (string, error) { d.reads++; return d.strs[name], d.fail }
func (d *dev) GetFeatureInt(name string) (int64, error)     { d.reads++; return d.ints[name], d.fail }
func (d *dev) GetFeatureFloat(name string) (float64, error) { d.reads++; return d.floats[name], d.fail }
func (d *dev) SetFeatureString(name, v string) error        { d.strs[name] = v; return d.fail }
func (d *dev) SetFeatureInt(name string, v int64) error     { d.ints[name] = v; return d.fail }
func (d *dev) SetFeatureFloat(name string, v float64) error { d.floats[name] = v; return d.fail }

func TestKindOf(t *testing.T) {
	cases := map[feature.Type]feature.Kind{
		feature.TypeString:    feature.String,
		feature.TypeEnum:      feature.Enum,
		feature.TypeInt32:     feature.Integer,
		feature.TypeInt64:     feature.Integer,
		feature.TypeFloat:     feature.Float,
		feature.TypeDouble:    feature.Float,
		feature.TypeBool:      feature.Unknown,
		feature.TypeUndefined: feature.Unknown,
	}
	for in, want := range cases {
		assert.Equal(t, want, feature.KindOf(in), "type %d", in)
	}
}

func TestDescribe(t *testing.T) {
	d := newDev()
	r := feature.NewRegistry(d, d)

	desc, err := r.Describe("Width")
	require.NoError(t, err)
	assert.Equal(t, feature.Integer, desc.Kind)
	assert.False(t, desc.ReadOnly)
	assert.Equal(t, 64., desc.Min)
	assert.Equal(t, 1920., desc.Max)
	assert.Equal(t, 16., desc.Step)

	desc, err = r.Describe("PixelFormat")
	require.NoError(t, err)
	assert.Equal(t, feature.Enum, desc.Kind)
	assert.Equal(t, []string{"Mono8", "Mono16"}, desc.EnumValues)

	desc, err = r.Describe("DeviceName")
	require.NoError(t, err)
	assert.True(t, desc.ReadOnly)
}

func TestDescribeUnavailable(t *testing.T) {
	d := newDev()
	r := feature.NewRegistry(d, d)
	_, err := r.Describe("NoSuchFeature")
	require.Error(t, err)
	assert.True(t, errors.Is(err, feature.ErrFeatureUnavailable))
	var fe *feature.Error
	require.True(t, errors.As(err, &fe))
	assert.Equal(t, "NoSuchFeature", fe.Feature)
}

func TestDescribeInconsistent(t *testing.T) {
	d := newDev()
	r := feature.NewRegistry(d, d)
	_, err := r.Describe("Broken")
	assert.True(t, errors.Is(err, feature.ErrBadDescriptor))
}

func TestIsAvailableNeverFails(t *testing.T) {
	var r *feature.Registry
	assert.False(t, r.IsAvailable("Width"))
	assert.False(t, feature.NewRegistry(nil, nil).IsAvailable("Width"))
}

func TestReadIsNotCached(t *testing.T) {
	d := newDev()
	r := feature.NewRegistry(d, d)
	v, err := r.Read("Width")
	require.NoError(t, err)
	assert.Equal(t, int64(1920), v.Int)

	d.ints["Width"] = 640
	v, err = r.Read("Width")
	require.NoError(t, err)
	assert.Equal(t, int64(640), v.Int)
	assert.Equal(t, 2, d.reads)
}

func TestWriteByKind(t *testing.T) {
	d := newDev()
	r := feature.NewRegistry(d, d)
	require.NoError(t, r.Write("Width", feature.IntValue(512)))
	require.NoError(t, r.Write("Gain", feature.FloatValue(2.5)))
	require.NoError(t, r.Write("PixelFormat", feature.Value{Kind: feature.Enum, Str: "Mono16"}))
	assert.Equal(t, int64(512), d.ints["Width"])
	assert.Equal(t, 2.5, d.floats["Gain"])
	assert.Equal(t, "Mono16", d.strs["PixelFormat"])
}

func TestCommunicationFailure(t *testing.T) {
	d := newDev()
	r := feature.NewRegistry(d, d)
	d.fail = errors.New("link down")

	_, err := r.ReadInt("Width")
	assert.True(t, errors.Is(err, feature.ErrHardwareCommunication))

	err = r.Write("Width", feature.IntValue(1))
	assert.True(t, errors.Is(err, feature.ErrHardwareCommunication))

	_, err = r.Describe("Width")
	assert.True(t, errors.Is(err, feature.ErrHardwareCommunication))
}

func TestParseValue(t *testing.T) {
	v, err := feature.ParseValue(feature.Integer, "96")
	require.NoError(t, err)
	assert.Equal(t, int64(96), v.Int)

	v, err = feature.ParseValue(feature.Integer, "96.0")
	require.NoError(t, err)
	assert.Equal(t, int64(96), v.Int)

	_, err = feature.ParseValue(feature.Integer, "NaN")
	assert.Error(t, err)

	v, err = feature.ParseValue(feature.Float, "12.5")
	require.NoError(t, err)
	assert.Equal(t, "12.5", v.Text())
}

var width = feature.Descriptor{Name: "Width", Kind: feature.Integer, Min: 64, Max: 1920, Step: 16}

func TestCoerceWidth(t *testing.T) {
	out, corrected := feature.CoerceInt(width, 100)
	assert.Equal(t, int64(96), out)
	assert.True(t, corrected)

	out, corrected = feature.CoerceInt(width, 96)
	assert.Equal(t, int64(96), out)
	assert.False(t, corrected)

	out, _ = feature.CoerceInt(width, 10)
	assert.Equal(t, int64(64), out)

	out, _ = feature.CoerceInt(width, 5000)
	assert.Equal(t, int64(1920), out)
}

func TestCoerceNoStepPassesThrough(t *testing.T) {
	d := feature.Descriptor{Min: 0, Max: 10, Step: 0}
	out, corrected := feature.Coerce(d, 123.4)
	assert.Equal(t, 123.4, out)
	assert.False(t, corrected)
}

func TestCoerceMaxOffLattice(t *testing.T) {
	d := feature.Descriptor{Min: 0, Max: 100, Step: 16}
	out, _ := feature.Coerce(d, 1000)
	assert.Equal(t, 96., out)
}

func TestCoerceIdempotentAndBounded(t *testing.T) {
	descs := []feature.Descriptor{
		width,
		{Min: 1, Max: 8, Step: 0.1},
		{Min: 0, Max: 100, Step: 16},
		{Min: 16, Max: 4096, Step: 4},
		{Min: 0.01, Max: 100, Step: 0.01},
	}
	rng := rand.New(rand.NewSource(1))
	for _, d := range descs {
		for i := 0; i < 2000; i++ {
			v := d.Min - 10 + rng.Float64()*(d.Max-d.Min+20)
			once, _ := feature.Coerce(d, v)
			twice, corrected := feature.Coerce(d, once)
			if twice != once || corrected {
				t.Fatalf("coerce(%v) = %v, coerce again = %v (descriptor %+v)", v, once, twice, d)
			}
			if once < d.Min || once > d.Max {
				t.Fatalf("coerce(%v) = %v outside [%v, %v]", v, once, d.Min, d.Max)
			}
		}
	}
}

func ExampleCoerce() {
	v, corrected := feature.Coerce(width, 100)
	fmt.Println(v, corrected)
	v, corrected = feature.Coerce(width, 5000)
	fmt.Println(v, corrected)
	// Output:
	// 96 true
	// 1920 true
}
