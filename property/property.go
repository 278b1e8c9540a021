/*Package property is a small host property model: named, typed, string
valued settings with optional allowed values, limits, and a handler invoked
around reads and writes.

Values are stored as text.  A handler observes BeforeGet before a read is
served, which lets it refresh the value from hardware, and AfterSet after a
validated write is stored, which lets it push the value to hardware and
replace it with what the hardware accepted.
*/
package property

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"sync"
)

var (
	// ErrUnknownProperty is generated when a property name is not registered
	ErrUnknownProperty = errors.New("unknown property")

	// ErrInvalidValue is generated when a value is rejected: the property is
	// read-only, the text does not parse as the property's type, it is not
	// one of the allowed values, or it lies outside the limits
	ErrInvalidValue = errors.New("invalid property value")
)

// Type is the storage type of a property
type Type int

const (
	// String is free text, or one of a set of allowed values
	String Type = iota

	// Integer is a base 10 integer
	Integer

	// Float is a finite floating point number
	Float
)

func (t Type) String() string {
	switch t {
	case Integer:
		return "Integer"
	case Float:
		return "Float"
	default:
		return "String"
	}
}

// ActionType tells a handler why it is being called
type ActionType int

const (
	// BeforeGet is delivered before a value is returned by Registry.Get
	BeforeGet ActionType = iota

	// AfterSet is delivered after Registry.Set has stored a new value
	AfterSet
)

// Handler reacts to reads and writes of a property
type Handler func(p *Property, act ActionType) error

// Property is one named setting
type Property struct {
	name     string
	typ      Type
	value    string
	allowed  []string
	limited  bool
	lo, hi   float64
	readOnly bool
	handler  Handler
}

// Name returns the name of the property
func (p *Property) Name() string { return p.name }

// Type returns the storage type of the property
func (p *Property) Type() Type { return p.typ }

// ReadOnly is true if Registry.Set refuses the property
func (p *Property) ReadOnly() bool { return p.readOnly }

// Allowed returns a copy of the allowed values, nil if any value is allowed
func (p *Property) Allowed() []string {
	if p.allowed == nil {
		return nil
	}
	return append([]string(nil), p.allowed...)
}

// Limits returns the numeric limits and if they are in force
func (p *Property) Limits() (lo, hi float64, ok bool) {
	return p.lo, p.hi, p.limited
}

// Value returns the stored text without invoking the handler
func (p *Property) Value() string { return p.value }

// Int parses the stored value as an integer
func (p *Property) Int() (int64, error) {
	i, err := strconv.ParseInt(p.value, 10, 64)
	if err != nil {
		f, ferr := strconv.ParseFloat(p.value, 64)
		if ferr != nil {
			return 0, err
		}
		if f < math.MinInt64 || f >= math.MaxInt64 {
			return 0, fmt.Errorf("%w: %s: %q overflows int64", ErrInvalidValue, p.name, p.value)
		}
		i = int64(f)
	}
	return i, nil
}

// Float parses the stored value as a float
func (p *Property) Float() (float64, error) {
	return strconv.ParseFloat(p.value, 64)
}

// SetValue stores text without validation.  Handlers use it to record what
// the hardware reports
func (p *Property) SetValue(s string) { p.value = s }

// SetInt stores an integer without validation
func (p *Property) SetInt(i int64) { p.value = strconv.FormatInt(i, 10) }

// SetFloat stores a float without validation
func (p *Property) SetFloat(f float64) { p.value = strconv.FormatFloat(f, 'g', -1, 64) }

// validate checks s against the type, allowed values, and limits
func (p *Property) validate(s string) error {
	switch p.typ {
	case Integer:
		i, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			f, ferr := strconv.ParseFloat(s, 64)
			if ferr != nil || math.IsNaN(f) || math.IsInf(f, 0) || f != math.Trunc(f) {
				return fmt.Errorf("%w: %s: %q is not an integer", ErrInvalidValue, p.name, s)
			}
			// float64(math.MaxInt64) rounds up to 2^63, which does not fit
			if f < math.MinInt64 || f >= math.MaxInt64 {
				return fmt.Errorf("%w: %s: %q overflows int64", ErrInvalidValue, p.name, s)
			}
			i = int64(f)
		}
		if p.limited && (float64(i) < p.lo || float64(i) > p.hi) {
			return fmt.Errorf("%w: %s: %d outside [%v, %v]", ErrInvalidValue, p.name, i, p.lo, p.hi)
		}
	case Float:
		f, err := strconv.ParseFloat(s, 64)
		if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
			return fmt.Errorf("%w: %s: %q is not a finite number", ErrInvalidValue, p.name, s)
		}
		if p.limited && (f < p.lo || f > p.hi) {
			return fmt.Errorf("%w: %s: %v outside [%v, %v]", ErrInvalidValue, p.name, f, p.lo, p.hi)
		}
	}
	if p.allowed != nil {
		for _, a := range p.allowed {
			if a == s {
				return nil
			}
		}
		return fmt.Errorf("%w: %s: %q is not one of %v", ErrInvalidValue, p.name, s, p.allowed)
	}
	return nil
}

// Registry holds the properties of one device.  The map is safe for
// concurrent use; handlers are invoked without the registry lock held
type Registry struct {
	mu    sync.RWMutex
	props map[string]*Property
	order []string
}

// NewRegistry returns an empty registry
func NewRegistry() *Registry {
	return &Registry{props: map[string]*Property{}}
}

// Create defines a property, replacing any existing definition of the same
// name.  The initial value is not validated
func (r *Registry) Create(name string, typ Type, initial string, readOnly bool, h Handler) *Property {
	p := &Property{name: name, typ: typ, value: initial, readOnly: readOnly, handler: h}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.props[name]; !exists {
		r.order = append(r.order, name)
	}
	r.props[name] = p
	return p
}

// Property looks up a property by name
func (r *Registry) Property(name string) (*Property, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.props[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownProperty, name)
	}
	return p, nil
}

// Has reports if a property is registered
func (r *Registry) Has(name string) bool {
	_, err := r.Property(name)
	return err == nil
}

// Names returns the property names in creation order
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]string(nil), r.order...)
}

// SetAllowedValues restricts a property to a set of values.  An empty slice
// clears the restriction
func (r *Registry) SetAllowedValues(name string, values []string) error {
	p, err := r.Property(name)
	if err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(values) == 0 {
		p.allowed = nil
		return nil
	}
	p.allowed = append([]string(nil), values...)
	return nil
}

// SetLimits bounds a numeric property to [lo, hi]
func (r *Registry) SetLimits(name string, lo, hi float64) error {
	p, err := r.Property(name)
	if err != nil {
		return err
	}
	if p.typ == String {
		return fmt.Errorf("%w: %s: limits on a string property", ErrInvalidValue, name)
	}
	if lo > hi {
		return fmt.Errorf("%w: %s: limits [%v, %v] are inverted", ErrInvalidValue, name, lo, hi)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	p.limited, p.lo, p.hi = true, lo, hi
	return nil
}

// Get returns the value of a property after giving its handler a chance to
// refresh it
func (r *Registry) Get(name string) (string, error) {
	p, err := r.Property(name)
	if err != nil {
		return "", err
	}
	if p.handler != nil {
		if err := p.handler(p, BeforeGet); err != nil {
			return "", err
		}
	}
	return p.value, nil
}

// Set validates and stores a value, then hands it to the property's
// handler.  If the handler fails the previous value is restored
func (r *Registry) Set(name, value string) error {
	p, err := r.Property(name)
	if err != nil {
		return err
	}
	if p.readOnly {
		return fmt.Errorf("%w: %s is read-only", ErrInvalidValue, name)
	}
	if err := p.validate(value); err != nil {
		return err
	}
	prev := p.value
	p.value = value
	if p.handler != nil {
		if err := p.handler(p, AfterSet); err != nil {
			p.value = prev
			return err
		}
	}
	return nil
}
