package sapera

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/nasa-jpl/saperacam/feature"
	"github.com/nasa-jpl/saperacam/mathx"
)

// MockServer is the server name the mock reports
const MockServer = "Nano-M1920_1"

// MockFaults injects failures into a MockSDK.  Counters fail that many
// Create calls and then succeed
type MockFaults struct {
	DeviceCreate   int
	MetadataCreate int
	BuffersCreate  int
	TransferCreate int

	// WidthWrite, HeightWrite, PixelFormatWrite and ImageTimeoutWrite make
	// every write of that feature fail
	WidthWrite        bool
	HeightWrite       bool
	PixelFormatWrite  bool
	ImageTimeoutWrite bool

	// Snap makes Snap fail
	Snap bool

	// HangSnap makes snapped frames never arrive, so Wait times out
	HangSnap bool

	// StuckTransfer makes Wait time out once the transfer is frozen
	StuckTransfer bool

	// TransferDestroy makes Destroy of a transfer report an error
	TransferDestroy bool

	// TrashEvery sends every n-th frame to the trash buffer, 0 for never
	TrashEvery int
}

// MockStats counts what a MockSDK was asked to do, and the handles alive
type MockStats struct {
	Snaps         int
	FeatureReads  int
	FeatureWrites int

	Devices   int
	Metadata  int
	Buffers   int
	Transfers int
}

type mockFeature struct {
	info feature.Info
	str  string
	i    int64
	f    float64
}

// MockSDK simulates a monochrome Genie Nano on one server.  Feature values
// live in the SDK, not the device handle, so they survive a reopen the way
// they survive on a real camera.  It is safe for concurrent use
type MockSDK struct {
	mu       sync.Mutex
	servers  []string
	features map[string]*mockFeature
	faults   MockFaults
	stats    MockStats
	frame    int
}

// NewMockSDK returns a mock with the default feature set
func NewMockSDK() *MockSDK {
	m := &MockSDK{servers: []string{MockServer}, features: map[string]*mockFeature{}}
	rw, ro := true, false
	m.enum("PixelFormat", rw, "Mono8", "Mono8", "Mono10", "Mono12", "Mono16")
	m.integer("PixelSize", ro, 8, 8, 16, 0)
	m.double("ExposureTime", rw, 10000, 10, 1e7, 1)
	m.double("Gain", rw, 1, 1, 8, 0)
	m.integer("Width", rw, 1920, 64, 1920, 16)
	m.integer("Height", rw, 1080, 2, 1080, 2)
	m.integer("OffsetX", rw, 0, 0, 1856, 16)
	m.integer("OffsetY", rw, 0, 0, 1078, 2)
	m.integer("SensorWidth", ro, 1920, 1920, 1920, 0)
	m.integer("SensorHeight", ro, 1080, 1080, 1080, 0)
	m.double("ImageTimeout", rw, 3000, 1, 60000, 0)
	m.integer("BinningHorizontal", rw, 1, 1, 4, 1)
	m.integer("BinningVertical", rw, 1, 1, 4, 1)
	m.enum("binningMode", rw, "Sum", "Sum", "Average")
	m.enum("SensorShutterMode", rw, "Global", "Global", "Rolling")
	m.str("DeviceVendorName", "Teledyne DALSA")
	m.str("DeviceFamilyName", "Genie Nano")
	m.str("DeviceModelName", "Nano-M1920")
	m.str("DeviceVersion", "1.00")
	m.str("DeviceManufacturerInfo", "mock")
	m.str("deviceManufacturerPartNumber", "G3-GM11-M1920")
	m.str("DeviceFirmwareVersion", "1.08.00.0000")
	m.str("DeviceSerialNumber", "S1234567")
	m.str("DeviceUserID", "bench")
	m.integer("deviceMacAddress", ro, 0x00012a3b4c5d, 0, 1<<48-1, 0)
	m.enum("sensorColorType", ro, "Monochrome", "Monochrome")
	m.enum("PixelCoding", ro, "Mono", "Mono")
	m.integer("BlackLevel", ro, 0, 0, 255, 1)
	m.integer("pixelSizeInput", ro, 12, 8, 12, 0)
	m.features["turboTransferEnable"] = &mockFeature{info: feature.Info{Type: feature.TypeBool}, str: "false"}
	m.double("DeviceTemperature", ro, 41.5, -40, 125, 0)
	return m
}

func (m *MockSDK) enum(name string, writable bool, initial string, values ...string) {
	m.features[name] = &mockFeature{info: feature.Info{Type: feature.TypeEnum, Writable: writable, EnumStrings: values}, str: initial}
}

func (m *MockSDK) integer(name string, writable bool, initial, min, max, inc int64) {
	m.features[name] = &mockFeature{info: feature.Info{Type: feature.TypeInt64, Writable: writable, Min: float64(min), Max: float64(max), Inc: float64(inc)}, i: initial}
}

func (m *MockSDK) double(name string, writable bool, initial, min, max, inc float64) {
	m.features[name] = &mockFeature{info: feature.Info{Type: feature.TypeDouble, Writable: writable, Min: min, Max: max, Inc: inc}, f: initial}
}

func (m *MockSDK) str(name, initial string) {
	m.features[name] = &mockFeature{info: feature.Info{Type: feature.TypeString}, str: initial}
}

// SetFaults replaces the injected failures
func (m *MockSDK) SetFaults(f MockFaults) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.faults = f
}

// Stats returns a snapshot of the counters
func (m *MockSDK) Stats() MockStats {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.stats
}

// RemoveFeature makes a feature unavailable
func (m *MockSDK) RemoveFeature(name string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.features, name)
}

// SetServers replaces the reported servers
func (m *MockSDK) SetServers(names ...string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.servers = append([]string(nil), names...)
}

// Feature returns the value of a feature as text, bypassing the counters
func (m *MockSDK) Feature(name string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	f, ok := m.features[name]
	if !ok {
		return ""
	}
	switch feature.KindOf(f.info.Type) {
	case feature.Integer:
		return fmt.Sprint(f.i)
	case feature.Float:
		return fmt.Sprint(f.f)
	default:
		return f.str
	}
}

// Servers satisfies SDK
func (m *MockSDK) Servers() ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.servers...), nil
}

// NewDevice satisfies SDK
func (m *MockSDK) NewDevice(server string) Device {
	return &mockDevice{sdk: m, server: server}
}

// NewMetadata satisfies SDK
func (m *MockSDK) NewMetadata(server string) Metadata {
	return &mockMetadata{sdk: m}
}

// NewBuffers satisfies SDK
func (m *MockSDK) NewBuffers(dev Device, count int) Buffers {
	return &mockBuffers{sdk: m, count: count}
}

// NewTransfer satisfies SDK
func (m *MockSDK) NewTransfer(dev Device, bufs Buffers, cb func(TransferEvent)) Transfer {
	b, _ := bufs.(*mockBuffers)
	return &mockTransfer{sdk: m, bufs: b, cb: cb}
}

func (m *MockSDK) lookup(name string) (*mockFeature, error) {
	f, ok := m.features[name]
	if !ok {
		return nil, fmt.Errorf("no feature %s", name)
	}
	return f, nil
}

// failOnce consumes one failure from a counter
func failOnce(n *int) bool {
	if *n > 0 {
		*n--
		return true
	}
	return false
}

var errMockCreate = errors.New("mock: create refused")

type mockDevice struct {
	sdk    *MockSDK
	server string
	alive  bool
}

func (d *mockDevice) Create() error {
	d.sdk.mu.Lock()
	defer d.sdk.mu.Unlock()
	if failOnce(&d.sdk.faults.DeviceCreate) {
		return errMockCreate
	}
	d.alive = true
	d.sdk.stats.Devices++
	return nil
}

func (d *mockDevice) Destroy() error {
	d.sdk.mu.Lock()
	defer d.sdk.mu.Unlock()
	if d.alive {
		d.alive = false
		d.sdk.stats.Devices--
	}
	return nil
}

func (d *mockDevice) IsFeatureAvailable(name string) bool {
	d.sdk.mu.Lock()
	defer d.sdk.mu.Unlock()
	_, ok := d.sdk.features[name]
	return ok
}

func (d *mockDevice) read(name string) (*mockFeature, error) {
	d.sdk.stats.FeatureReads++
	if !d.alive {
		return nil, errors.New("mock: device not created")
	}
	return d.sdk.lookup(name)
}

func (d *mockDevice) GetFeatureString(name string) (string, error) {
	d.sdk.mu.Lock()
	defer d.sdk.mu.Unlock()
	f, err := d.read(name)
	if err != nil {
		return "", err
	}
	return f.str, nil
}

func (d *mockDevice) GetFeatureInt(name string) (int64, error) {
	d.sdk.mu.Lock()
	defer d.sdk.mu.Unlock()
	f, err := d.read(name)
	if err != nil {
		return 0, err
	}
	return f.i, nil
}

func (d *mockDevice) GetFeatureFloat(name string) (float64, error) {
	d.sdk.mu.Lock()
	defer d.sdk.mu.Unlock()
	f, err := d.read(name)
	if err != nil {
		return 0, err
	}
	return f.f, nil
}

// refused reports if the faults reject writes of name.  The lock is held
func (m *MockSDK) refused(name string) bool {
	switch name {
	case featWidth:
		return m.faults.WidthWrite
	case featHeight:
		return m.faults.HeightWrite
	case featPixelFormat:
		return m.faults.PixelFormatWrite
	case featImageTimeout:
		return m.faults.ImageTimeoutWrite
	}
	return false
}

func (d *mockDevice) write(name string) (*mockFeature, error) {
	d.sdk.stats.FeatureWrites++
	if !d.alive {
		return nil, errors.New("mock: device not created")
	}
	if d.sdk.refused(name) {
		return nil, fmt.Errorf("mock: %s write refused", name)
	}
	f, err := d.sdk.lookup(name)
	if err != nil {
		return nil, err
	}
	if !f.info.Writable {
		return nil, fmt.Errorf("mock: %s is read-only", name)
	}
	return f, nil
}

func (d *mockDevice) SetFeatureString(name, value string) error {
	d.sdk.mu.Lock()
	defer d.sdk.mu.Unlock()
	f, err := d.write(name)
	if err != nil {
		return err
	}
	if f.info.Type == feature.TypeEnum {
		found := false
		for _, s := range f.info.EnumStrings {
			if s == value {
				found = true
			}
		}
		if !found {
			return fmt.Errorf("mock: %s is not a value of %s", value, name)
		}
	}
	f.str = value
	if name == featPixelFormat {
		bits := map[string]int64{"Mono8": 8, "Mono10": 10, "Mono12": 12, "Mono16": 16}
		d.sdk.features[featPixelSize].i = bits[value]
	}
	return nil
}

func (d *mockDevice) SetFeatureInt(name string, value int64) error {
	d.sdk.mu.Lock()
	defer d.sdk.mu.Unlock()
	f, err := d.write(name)
	if err != nil {
		return err
	}
	if float64(value) < f.info.Min || float64(value) > f.info.Max {
		return fmt.Errorf("mock: %s=%d outside [%v, %v]", name, value, f.info.Min, f.info.Max)
	}
	f.i = value
	return nil
}

func (d *mockDevice) SetFeatureFloat(name string, value float64) error {
	d.sdk.mu.Lock()
	defer d.sdk.mu.Unlock()
	f, err := d.write(name)
	if err != nil {
		return err
	}
	if value < f.info.Min || value > f.info.Max {
		return fmt.Errorf("mock: %s=%v outside [%v, %v]", name, value, f.info.Min, f.info.Max)
	}
	if f.info.Inc > 0 {
		value = mathx.Round(value, f.info.Inc)
	}
	f.f = value
	return nil
}

type mockMetadata struct {
	sdk   *MockSDK
	alive bool
}

func (md *mockMetadata) Create() error {
	md.sdk.mu.Lock()
	defer md.sdk.mu.Unlock()
	if failOnce(&md.sdk.faults.MetadataCreate) {
		return errMockCreate
	}
	md.alive = true
	md.sdk.stats.Metadata++
	return nil
}

func (md *mockMetadata) Destroy() error {
	md.sdk.mu.Lock()
	defer md.sdk.mu.Unlock()
	if md.alive {
		md.alive = false
		md.sdk.stats.Metadata--
	}
	return nil
}

func (md *mockMetadata) FeatureInfo(name string) (feature.Info, error) {
	md.sdk.mu.Lock()
	defer md.sdk.mu.Unlock()
	f, err := md.sdk.lookup(name)
	if err != nil {
		return feature.Info{}, err
	}
	info := f.info
	info.EnumStrings = append([]string(nil), f.info.EnumStrings...)
	return info, nil
}

type mockBuffers struct {
	sdk           *MockSDK
	count         int
	alive         bool
	width, height int
	bpp           int
	ring          [][]byte
	last          int
}

func (b *mockBuffers) Create() error {
	b.sdk.mu.Lock()
	defer b.sdk.mu.Unlock()
	if failOnce(&b.sdk.faults.BuffersCreate) {
		return errMockCreate
	}
	w, _ := b.sdk.lookup(featWidth)
	h, _ := b.sdk.lookup(featHeight)
	px, _ := b.sdk.lookup(featPixelSize)
	b.width, b.height, b.bpp = int(w.i), int(h.i), mathx.CeilDiv(int(px.i), 8)
	b.ring = make([][]byte, b.count+1) // the last one is trash
	for i := range b.ring {
		b.ring[i] = make([]byte, b.width*b.height*b.bpp)
	}
	b.alive = true
	b.sdk.stats.Buffers++
	return nil
}

func (b *mockBuffers) Destroy() error {
	b.sdk.mu.Lock()
	defer b.sdk.mu.Unlock()
	if b.alive {
		b.alive = false
		b.ring = nil
		b.sdk.stats.Buffers--
	}
	return nil
}

func (b *mockBuffers) Width() int         { return b.width }
func (b *mockBuffers) Height() int        { return b.height }
func (b *mockBuffers) BytesPerPixel() int { return b.bpp }

func (b *mockBuffers) ReadRect(x, y, w, h int, dst []byte) error {
	b.sdk.mu.Lock()
	defer b.sdk.mu.Unlock()
	if !b.alive {
		return errors.New("mock: buffers not created")
	}
	if x < 0 || y < 0 || x+w > b.width || y+h > b.height {
		return fmt.Errorf("mock: rect %d,%d %dx%d outside %dx%d", x, y, w, h, b.width, b.height)
	}
	if len(dst) < w*h*b.bpp {
		return fmt.Errorf("mock: destination holds %d bytes, need %d", len(dst), w*h*b.bpp)
	}
	src := b.ring[b.last]
	row := w * b.bpp
	for r := 0; r < h; r++ {
		off := ((y+r)*b.width + x) * b.bpp
		copy(dst[r*row:(r+1)*row], src[off:off+row])
	}
	return nil
}

// fill paints frame n into buffer idx; each pixel holds x+y+n
func (b *mockBuffers) fill(idx, n int) {
	buf := b.ring[idx]
	for y := 0; y < b.height; y++ {
		for x := 0; x < b.width; x++ {
			v := x + y + n
			off := (y*b.width + x) * b.bpp
			buf[off] = byte(v)
			if b.bpp > 1 {
				buf[off+1] = byte(v >> 8)
			}
		}
	}
}

type mockTransfer struct {
	sdk     *MockSDK
	bufs    *mockBuffers
	cb      func(TransferEvent)
	alive   bool
	frozen  bool
	pending bool
	count   int
	timeout time.Duration
}

func (t *mockTransfer) Create() error {
	t.sdk.mu.Lock()
	defer t.sdk.mu.Unlock()
	if failOnce(&t.sdk.faults.TransferCreate) {
		return errMockCreate
	}
	t.alive = true
	t.sdk.stats.Transfers++
	return nil
}

func (t *mockTransfer) Destroy() error {
	t.sdk.mu.Lock()
	defer t.sdk.mu.Unlock()
	if t.alive {
		t.alive = false
		t.sdk.stats.Transfers--
	}
	if t.sdk.faults.TransferDestroy {
		return errors.New("mock: transfer destroy failed")
	}
	return nil
}

func (t *mockTransfer) SetCommandTimeout(d time.Duration) {
	t.sdk.mu.Lock()
	defer t.sdk.mu.Unlock()
	t.timeout = d
}

func (t *mockTransfer) Snap(n int) error {
	t.sdk.mu.Lock()
	t.sdk.stats.Snaps++
	if !t.alive || t.bufs == nil || !t.bufs.alive {
		t.sdk.mu.Unlock()
		return errors.New("mock: transfer not created")
	}
	if t.sdk.faults.Snap {
		t.sdk.mu.Unlock()
		return errors.New("mock: snap refused")
	}
	t.frozen = false
	t.pending = t.sdk.faults.HangSnap
	if t.pending {
		t.sdk.mu.Unlock()
		return nil
	}
	var events []TransferEvent
	for i := 0; i < n; i++ {
		t.count++
		t.sdk.frame++
		trash := t.sdk.faults.TrashEvery > 0 && t.count%t.sdk.faults.TrashEvery == 0
		if trash {
			t.bufs.fill(len(t.bufs.ring)-1, t.sdk.frame)
		} else {
			idx := (t.count - 1) % (len(t.bufs.ring) - 1)
			t.bufs.fill(idx, t.sdk.frame)
			t.bufs.last = idx
		}
		events = append(events, TransferEvent{Trash: trash, Count: t.count})
	}
	cb := t.cb
	t.sdk.mu.Unlock()
	if cb != nil {
		for _, ev := range events {
			cb(ev)
		}
	}
	return nil
}

func (t *mockTransfer) Freeze() error {
	t.sdk.mu.Lock()
	defer t.sdk.mu.Unlock()
	t.frozen = true
	t.pending = false
	return nil
}

func (t *mockTransfer) Wait(timeout time.Duration) error {
	t.sdk.mu.Lock()
	stuck := t.pending || (t.frozen && t.sdk.faults.StuckTransfer)
	t.sdk.mu.Unlock()
	if stuck {
		time.Sleep(timeout)
		return fmt.Errorf("mock: transfer still busy after %v", timeout)
	}
	return nil
}
