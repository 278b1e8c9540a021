package sapera

import (
	"fmt"
	"strconv"

	"github.com/nasa-jpl/saperacam/feature"
	"github.com/nasa-jpl/saperacam/mathx"
	"github.com/nasa-jpl/saperacam/property"
	"github.com/nasa-jpl/saperacam/util"
)

// propertyType maps a feature kind to the type of the property mirroring it
func propertyType(k feature.Kind) property.Type {
	switch k {
	case feature.Integer:
		return property.Integer
	case feature.Float:
		return property.Float
	default:
		return property.String
	}
}

// initProperties creates a property for every available feature of the
// binding table.  A feature that is available but cannot be described or
// read is a hard failure
func (c *Camera) initProperties() error {
	for i := range bindings {
		b := &bindings[i]
		if !c.feats.IsAvailable(b.feature) {
			c.Logger.Printf("Feature '%s' is not supported", b.feature)
			continue
		}
		c.Logger.Printf("adding feature '%s' as property '%s'", b.feature, b.exposed)
		d, err := c.feats.Describe(b.feature)
		if err != nil {
			return err
		}
		v, err := c.feats.ReadAs(b.feature, d.Kind)
		if err != nil {
			return err
		}
		typ := propertyType(d.Kind)
		initial := v.Text()
		if b.scale != 0 && typ == property.Float {
			initial = strconv.FormatFloat(v.Float/b.scale, 'g', -1, 64)
		}
		c.props.Create(b.exposed, typ, initial, b.readOnly || d.ReadOnly, c.handler(*b))
		if d.Kind == feature.Enum {
			if err := c.props.SetAllowedValues(b.exposed, d.EnumValues); err != nil {
				return err
			}
		}
	}
	return nil
}

// handler builds the property handler of a binding
func (c *Camera) handler(b binding) property.Handler {
	scale := b.scale
	if scale == 0 {
		scale = 1
	}
	return func(p *property.Property, act property.ActionType) error {
		if err := c.ready(); err != nil {
			return err
		}
		switch act {
		case property.BeforeGet:
			if b.cached {
				return nil
			}
			return c.refresh(p, b.feature, scale)
		case property.AfterSet:
			return c.apply(p, b, scale)
		}
		return nil
	}
}

// refresh re-reads a feature into its property
func (c *Camera) refresh(p *property.Property, name string, scale float64) error {
	switch p.Type() {
	case property.Integer:
		i, err := c.feats.ReadInt(name)
		if err != nil {
			return err
		}
		p.SetInt(i)
	case property.Float:
		f, err := c.feats.ReadFloat(name)
		if err != nil {
			return err
		}
		p.SetFloat(f / scale)
	default:
		s, err := c.feats.ReadString(name)
		if err != nil {
			return err
		}
		p.SetValue(s)
	}
	return nil
}

// apply pushes a validated property value to the hardware: coerce onto the
// feature lattice, then write, or resynchronize for features that reshape
// the pipeline
func (c *Camera) apply(p *property.Property, b binding, scale float64) error {
	if b.resync != syncNone && c.busy() {
		return ErrDeviceBusy
	}
	switch p.Type() {
	case property.Integer:
		req, err := p.Int()
		if err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidPropertyValue, err)
		}
		d, err := c.feats.Describe(b.feature)
		if err != nil {
			return err
		}
		v, corrected := feature.CoerceInt(d, req)
		if corrected {
			c.Logger.Printf("Encountered invalid value for '%s': corrected %d to %d", b.feature, req, v)
		}
		switch b.resync {
		case syncWidth:
			err = c.synchronize(syncOptions{width: v})
		case syncHeight:
			err = c.synchronize(syncOptions{height: v})
		default:
			err = c.feats.Write(b.feature, feature.IntValue(v))
		}
		if err != nil {
			return err
		}
		p.SetInt(v)
	case property.Float:
		req, err := p.Float()
		if err != nil || !feature.Finite(req) {
			return fmt.Errorf("%w: %s: %q", ErrInvalidPropertyValue, p.Name(), p.Value())
		}
		d, err := c.feats.Describe(b.feature)
		if err != nil {
			return err
		}
		hw := req * scale
		v, corrected := feature.Coerce(d, hw)
		if corrected {
			c.Logger.Printf("Encountered invalid value for '%s': corrected %v to %v", b.feature, hw, v)
		}
		if b.resync == syncTimeout {
			if v <= 0 {
				return fmt.Errorf("%w: %s: %v is not positive", ErrInvalidPropertyValue, p.Name(), req)
			}
			// a failed timeout write is tolerated, so store what the device kept
			if err = c.synchronize(syncOptions{timeout: v}); err != nil {
				return err
			}
			return c.refresh(p, b.feature, scale)
		}
		if err = c.feats.Write(b.feature, feature.FloatValue(v)); err != nil {
			return err
		}
		p.SetFloat(v / scale)
	default:
		s := p.Value()
		if b.resync == syncPixelFormat {
			cur, err := c.feats.ReadString(b.feature)
			if err != nil {
				return err
			}
			if cur == s {
				return nil
			}
			if err := c.synchronize(syncOptions{pixelFormat: s}); err != nil {
				return err
			}
			return c.refresh(p, b.feature, scale)
		}
		return c.feats.Write(b.feature, feature.StringValue(s))
	}
	return nil
}

// ready reopens the device if a failed rebuild closed it.  Hardware access
// outside Initialize requires an initialized camera
func (c *Camera) ready() error {
	if !c.initialized {
		return ErrNotInitialized
	}
	return c.open()
}

// binningAxes are the binning features, in the order they are written
var binningAxes = []string{featBinningV, featBinningH}

// initBinning creates the Binning property when the device bins in at least
// one direction.  The legal values are the union of the lattices of the
// directions it supports
func (c *Camera) initBinning() error {
	var (
		axes    []string
		lattice [][]int
	)
	for _, name := range binningAxes {
		if !c.feats.IsAvailable(name) {
			c.Logger.Printf("Feature '%s' is not supported", name)
			continue
		}
		if err := c.feats.Write(name, feature.IntValue(1)); err != nil {
			c.Logger.Printf("Failed to set '%s'", name)
			return fmt.Errorf("%w: %v", ErrInvalidPropertyValue, err)
		}
		d, err := c.feats.Describe(name)
		if err != nil {
			return err
		}
		axes = append(axes, name)
		lattice = append(lattice, mathx.Lattice(int(d.Min), int(d.Max), int(d.Step)))
	}
	if len(axes) == 0 {
		return nil
	}
	c.Logger.Println("set up binning properties")
	values := util.UnionInts(lattice...)
	allowed := make([]string, len(values))
	for i, v := range values {
		allowed[i] = strconv.Itoa(v)
	}
	c.props.Create(PropBinning, property.Integer, "1", false, c.onBinning(axes))
	return c.props.SetAllowedValues(PropBinning, allowed)
}

// onBinning writes the factor to every supported direction and
// resynchronizes.  Gets are served from the property
func (c *Camera) onBinning(axes []string) property.Handler {
	return func(p *property.Property, act property.ActionType) error {
		if act != property.AfterSet {
			return nil
		}
		if err := c.ready(); err != nil {
			return err
		}
		if c.busy() {
			return ErrDeviceBusy
		}
		bin, err := p.Int()
		if err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidPropertyValue, err)
		}
		for _, name := range axes {
			if err := c.feats.Write(name, feature.IntValue(bin)); err != nil {
				return err
			}
		}
		return c.synchronize(syncOptions{})
	}
}
