package sapera

import (
	"fmt"
	"time"

	"github.com/astrogo/fitsio"

	"github.com/nasa-jpl/saperacam/util"
)

// HeaderVersion tags the layout of the FITS header
const HeaderVersion = "SAPGIGE-1"

// CollectHeaderMetadata satisfies generichttp/camera and makes a stack of FITS cards
func (c *Camera) CollectHeaderMetadata() []fitsio.Card {
	// plow through errors, no need to bail early
	var (
		errs               []error
		model, sn, pixfmt  string
		texp, gain, temper float64
	)
	if c.feats != nil {
		var err error
		model, err = c.feats.ReadString(featModel)
		errs = append(errs, err)
		sn, err = c.feats.ReadString(featSerial)
		errs = append(errs, err)
		pixfmt, err = c.feats.ReadString(featPixelFormat)
		errs = append(errs, err)
		texp, err = c.feats.ReadFloat(featExposure)
		errs = append(errs, err)
		if c.feats.IsAvailable(featGain) {
			gain, err = c.feats.ReadFloat(featGain)
			errs = append(errs, err)
		}
		if c.feats.IsAvailable(featTemperature) {
			temper, err = c.feats.ReadFloat(featTemperature)
			errs = append(errs, err)
		}
	} else {
		errs = append(errs, ErrNotInitialized)
	}
	bin := 1
	if c.props.Has(PropBinning) {
		if p, err := c.props.Property(PropBinning); err == nil {
			if i, err := p.Int(); err == nil {
				bin = int(i)
			}
		}
	}
	roi := c.GetROI()

	var metaerr string
	if err := util.MergeErrors(errs); err != nil {
		metaerr = err.Error()
	}
	now := time.Now()
	ts := fmt.Sprintf("%d-%02d-%02dT%02d:%02d:%02d",
		now.Year(),
		now.Month(),
		now.Day(),
		now.Hour(),
		now.Minute(),
		now.Second())

	return []fitsio.Card{
		// header to the header
		{Name: "HDRVER", Value: HeaderVersion, Comment: "header version"},
		{Name: "METAERR", Value: metaerr, Comment: "error encountered gathering metadata"},
		{Name: "CAMMODL", Value: model, Comment: "camera model"},
		{Name: "CAMSN", Value: sn, Comment: "camera serial number"},
		{Name: "PIXFMT", Value: pixfmt, Comment: "sensor pixel format"},
		{Name: "BITDEPTH", Value: c.bitsPerPixel, Comment: "2^BITDEPTH is the maximum possible DN"},

		{Name: "DATE", Value: ts},

		// exposure parameters
		{Name: "EXPTIME", Value: texp / 1e6, Comment: "exposure time, seconds"},
		{Name: "GAIN", Value: gain, Comment: "vendor scaled gain"},

		{Name: "TEMPER", Value: temper, Comment: "device temperature (Celcius)"},

		// roi parameters
		{Name: "ROIL", Value: roi.X + 1, Comment: "1-based left pixel of the ROI"},
		{Name: "ROIT", Value: roi.Y + 1, Comment: "1-based top pixel of the ROI"},
		{Name: "ROIW", Value: roi.Width, Comment: "ROI width, px"},
		{Name: "ROIH", Value: roi.Height, Comment: "ROI height, px"},
		{Name: "BINNING", Value: bin, Comment: "binning factor, both directions"}}
}
