/*Package feature describes the hardware-introspectable capabilities of a
GenICam style camera and gives uniform, uncached access to their values.

A feature is looked up by name on every call.  Availability of one feature can
depend on the value of another (the pixel format decides which bit depth
features exist, for example), so nothing here is remembered between calls.

*/
package feature

import (
	"errors"
	"fmt"
	"math"
	"strconv"
)

var (
	// ErrFeatureUnavailable is generated when the connected device does not
	// support a feature
	ErrFeatureUnavailable = errors.New("feature not supported by the device")

	// ErrHardwareCommunication is generated when a read or write round-trip
	// to the device fails
	ErrHardwareCommunication = errors.New("hardware communication failed")

	// ErrBadDescriptor is generated when the device reports metadata that
	// violates min <= max, or an enumeration without alternatives
	ErrBadDescriptor = errors.New("feature metadata is inconsistent")
)

// Error records the feature and the operation that failed
type Error struct {
	// Feature is the hardware name of the feature
	Feature string

	// Op is the operation, one of describe, read, write
	Op string

	// Err is the underlying error
	Err error
}

// Error satisfies the error interface
func (e *Error) Error() string {
	return fmt.Sprintf("feature %s: %s: %v", e.Feature, e.Op, e.Err)
}

// Unwrap allows errors.Is to see the sentinel inside
func (e *Error) Unwrap() error {
	return e.Err
}

// Kind is the data kind of a feature, as exposed to the application
type Kind int

const (
	// Unknown is any vendor type without a better mapping
	Unknown Kind = iota

	// String is a free text feature
	String

	// Enum is a feature with an ordered set of string alternatives
	Enum

	// Integer is an integral feature with min, max, and increment
	Integer

	// Float is a floating point feature with min, max, and increment
	Float
)

func (k Kind) String() string {
	switch k {
	case String:
		return "String"
	case Enum:
		return "Enum"
	case Integer:
		return "Integer"
	case Float:
		return "Float"
	default:
		return "Unknown"
	}
}

// Type is the type tag reported by the vendor SDK
type Type int

const (
	// TypeUndefined is reported for features the SDK cannot classify
	TypeUndefined Type = iota
	TypeInt32
	TypeInt64
	TypeFloat
	TypeDouble
	TypeBool
	TypeEnum
	TypeString
)

// KindOf maps a vendor type tag to a Kind
func KindOf(t Type) Kind {
	switch t {
	case TypeString:
		return String
	case TypeEnum:
		return Enum
	case TypeInt32, TypeInt64:
		return Integer
	case TypeFloat, TypeDouble:
		return Float
	default:
		return Unknown
	}
}

// Info is the raw metadata the SDK reports for a feature
type Info struct {
	// Type is the SDK type tag
	Type Type

	// Writable is false for read-only features
	Writable bool

	// Min, Max, and Inc are the numeric bounds and increment.  They are
	// zero for non-numeric features
	Min, Max, Inc float64

	// EnumStrings are the alternatives of an enumeration, in SDK order
	EnumStrings []string
}

// Descriptor is the application-facing view of a feature
type Descriptor struct {
	// Name is the hardware name of the feature
	Name string

	// Kind is the data kind
	Kind Kind

	// ReadOnly is true if the feature cannot be written
	ReadOnly bool

	// Min, Max, and Step bound numeric features
	Min, Max, Step float64

	// EnumValues are the alternatives for Kind == Enum
	EnumValues []string
}

// Validate checks min <= max and that an Enum has alternatives
func (d Descriptor) Validate() error {
	if d.Min > d.Max {
		return fmt.Errorf("%w: min %v > max %v", ErrBadDescriptor, d.Min, d.Max)
	}
	if d.Kind == Enum && len(d.EnumValues) == 0 {
		return fmt.Errorf("%w: enumeration has no values", ErrBadDescriptor)
	}
	return nil
}

// Value is a raw feature value.  Only the field matching Kind is meaningful;
// Unknown and Enum values travel as strings
type Value struct {
	Kind  Kind
	Str   string
	Int   int64
	Float float64
}

// StringValue makes a string Value
func StringValue(s string) Value {
	return Value{Kind: String, Str: s}
}

// IntValue makes an integer Value
func IntValue(i int64) Value {
	return Value{Kind: Integer, Int: i}
}

// FloatValue makes a floating point Value
func FloatValue(f float64) Value {
	return Value{Kind: Float, Float: f}
}

// Text formats the value the way the property model stores it
func (v Value) Text() string {
	switch v.Kind {
	case Integer:
		return strconv.FormatInt(v.Int, 10)
	case Float:
		return strconv.FormatFloat(v.Float, 'g', -1, 64)
	default:
		return v.Str
	}
}

// ParseValue converts text into a Value of kind k
func ParseValue(k Kind, s string) (Value, error) {
	switch k {
	case Integer:
		i, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			// accept "96.0" and similar from float-typed clients
			f, ferr := strconv.ParseFloat(s, 64)
			if ferr != nil || math.IsNaN(f) || math.IsInf(f, 0) {
				return Value{}, err
			}
			i = int64(f)
		}
		return IntValue(i), nil
	case Float:
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return Value{}, err
		}
		return FloatValue(f), nil
	default:
		return Value{Kind: k, Str: s}, nil
	}
}
