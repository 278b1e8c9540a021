package feature

import "math"

// epsilon absorbs float noise in v/step so that coercing a value which is
// already on the lattice leaves it there
const epsilon = 1e-9

// Coerce snaps v onto the lattice {Min + k*Step} and clamps it to the
// descriptor bounds.  The lattice is anchored at Min; when Min is a multiple
// of Step this is floor(v/Step)*Step.  Max is replaced by the highest lattice
// point not above it.  A descriptor with Step <= 0 performs no coercion and v
// is returned as-is.
//
// The bool is true if the returned value differs from v
func Coerce(d Descriptor, v float64) (float64, bool) {
	if d.Step <= 0 || math.IsNaN(v) || math.IsInf(v, 0) {
		return v, false
	}
	top := d.Min + math.Floor((d.Max-d.Min)/d.Step+epsilon)*d.Step
	if top > d.Max {
		top = d.Max
	}
	var out float64
	switch {
	case v <= d.Min:
		out = d.Min
	case v >= top:
		out = top
	default:
		n := math.Floor((v-d.Min)/d.Step + epsilon)
		out = d.Min + n*d.Step
		if out > top {
			out = top
		}
	}
	return out, out != v
}

// CoerceInt is Coerce for integer features
func CoerceInt(d Descriptor, v int64) (int64, bool) {
	f, _ := Coerce(d, float64(v))
	out := int64(math.Round(f))
	return out, out != v
}

// Finite reports if f is neither NaN nor infinite
func Finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
