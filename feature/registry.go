package feature

import "fmt"

// Device is the value side of a vendor acquisition device.  Each call is a
// synchronous round-trip to the hardware
type Device interface {
	// IsFeatureAvailable reports if the device supports the named feature
	IsFeatureAvailable(name string) bool

	GetFeatureString(name string) (string, error)
	GetFeatureInt(name string) (int64, error)
	GetFeatureFloat(name string) (float64, error)

	SetFeatureString(name, value string) error
	SetFeatureInt(name string, value int64) error
	SetFeatureFloat(name string, value float64) error
}

// Describer fetches the metadata of a feature.  In the Sapera SDK this is a
// separate handle from the device
type Describer interface {
	FeatureInfo(name string) (Info, error)
}

// Registry is a read-through catalog of the features of one device
type Registry struct {
	dev  Device
	meta Describer
}

// NewRegistry returns a registry over a device and its metadata handle
func NewRegistry(dev Device, meta Describer) *Registry {
	return &Registry{dev: dev, meta: meta}
}

// IsAvailable reports if the device supports the named feature.  It never
// fails; a registry with no device supports nothing
func (r *Registry) IsAvailable(name string) bool {
	if r == nil || r.dev == nil {
		return false
	}
	return r.dev.IsFeatureAvailable(name)
}

// Describe fetches the descriptor of a feature from the hardware
func (r *Registry) Describe(name string) (Descriptor, error) {
	if !r.IsAvailable(name) {
		return Descriptor{}, &Error{Feature: name, Op: "describe", Err: ErrFeatureUnavailable}
	}
	info, err := r.meta.FeatureInfo(name)
	if err != nil {
		return Descriptor{}, commErr(name, "describe", err)
	}
	d := Descriptor{
		Name:     name,
		Kind:     KindOf(info.Type),
		ReadOnly: !info.Writable,
		Min:      info.Min,
		Max:      info.Max,
		Step:     info.Inc,
	}
	if d.Kind == Enum {
		d.EnumValues = append([]string(nil), info.EnumStrings...)
	}
	if err := d.Validate(); err != nil {
		return d, &Error{Feature: name, Op: "describe", Err: err}
	}
	return d, nil
}

// Read gets the current value of a feature in its native kind
func (r *Registry) Read(name string) (Value, error) {
	d, err := r.Describe(name)
	if err != nil {
		return Value{}, err
	}
	return r.ReadAs(name, d.Kind)
}

// ReadAs gets the current value of a feature, assuming it is of kind k.
// This saves the metadata round-trip when the caller knows the kind
func (r *Registry) ReadAs(name string, k Kind) (Value, error) {
	if !r.IsAvailable(name) {
		return Value{}, &Error{Feature: name, Op: "read", Err: ErrFeatureUnavailable}
	}
	var (
		v   = Value{Kind: k}
		err error
	)
	switch k {
	case Integer:
		v.Int, err = r.dev.GetFeatureInt(name)
	case Float:
		v.Float, err = r.dev.GetFeatureFloat(name)
	default:
		v.Str, err = r.dev.GetFeatureString(name)
	}
	if err != nil {
		return Value{}, commErr(name, "read", err)
	}
	return v, nil
}

// Write sets a feature to v, dispatching on v.Kind
func (r *Registry) Write(name string, v Value) error {
	if !r.IsAvailable(name) {
		return &Error{Feature: name, Op: "write", Err: ErrFeatureUnavailable}
	}
	var err error
	switch v.Kind {
	case Integer:
		err = r.dev.SetFeatureInt(name, v.Int)
	case Float:
		err = r.dev.SetFeatureFloat(name, v.Float)
	default:
		err = r.dev.SetFeatureString(name, v.Str)
	}
	if err != nil {
		return commErr(name, "write", err)
	}
	return nil
}

// ReadInt is shorthand for ReadAs(name, Integer)
func (r *Registry) ReadInt(name string) (int64, error) {
	v, err := r.ReadAs(name, Integer)
	return v.Int, err
}

// ReadFloat is shorthand for ReadAs(name, Float)
func (r *Registry) ReadFloat(name string) (float64, error) {
	v, err := r.ReadAs(name, Float)
	return v.Float, err
}

// ReadString is shorthand for ReadAs(name, String)
func (r *Registry) ReadString(name string) (string, error) {
	v, err := r.ReadAs(name, String)
	return v.Str, err
}

func commErr(name, op string, cause error) error {
	return &Error{Feature: name, Op: op, Err: fmt.Errorf("%w: %w", ErrHardwareCommunication, cause)}
}
