package translate

import (
	"fmt"

	"image-bridge/internal/models"
)

// LegacyCreator builds a legacy image from a Dataset.
type LegacyCreator struct {
	tk *Toolkit
}

func NewLegacyCreator(tk *Toolkit) *LegacyCreator {
	return &LegacyCreator{tk: tk}
}

// CreateLegacyImage builds a self-consistent legacy image from ds. When a
// display is given its color tables, position and name are applied too.
func (c *LegacyCreator) CreateLegacyImage(ds *models.Dataset, display *models.Display) (*models.LegacyImage, error) {
	if ds == nil || ds.Img() == nil {
		return nil, fmt.Errorf("create legacy image: %w", models.ErrNilImage)
	}
	if !DimensionsCompatible(ds) {
		return nil, fmt.Errorf("create legacy image from %q: %w", ds.Name(), ErrIncompatibleDimensions)
	}

	img := ds.Img()
	ld := LegacyDimsOf(ds)
	typ, signed := legacyPixelType(ds)
	shared := IsPlaneCompatible(ds)
	if shared {
		pt, _ := sharedPixelType(img.Element())
		shared = pt == typ
	}

	planes := make([]models.Plane, ld.Planes())
	for k := range planes {
		if shared {
			// Placeholder; the plane harmonizer puts each plane in stack order.
			planes[k] = img.Plane(k)
			continue
		}
		p, err := c.tk.alloc.NewLegacyPlane(typ, ld.Width*ld.Height)
		if err != nil {
			return nil, fmt.Errorf("create legacy image from %q: %w", ds.Name(), err)
		}
		planes[k] = p
	}

	stack, err := models.NewArrayStack(ld.Width, ld.Height, planes)
	if err != nil {
		return nil, err
	}
	imp, err := models.NewLegacyImage(ds.Name(), typ, stack, ld.Channels, ld.Slices, ld.Frames)
	if err != nil {
		return nil, err
	}
	cal := imp.Calibration()
	cal.Signed16 = signed
	imp.SetCalibration(cal)

	switch {
	case shared:
		c.tk.Planes.UpdateLegacyImage(ds, imp)
	case typ == models.ColorRGB:
		c.tk.Color.UpdateLegacyImage(ds, imp)
	default:
		c.tk.Gray.UpdateLegacyImage(ds, imp)
	}

	imp.SetProperty(AxisLayoutProperty, layoutOf(img))
	c.tk.Metadata.UpdateLegacyImage(ds, imp)
	resetDisplayRange(imp, img)

	if shouldBeComposite(ds, display, ld.Channels) {
		imp.SetComposite(true, models.CompositeBlend)
	}

	if display != nil {
		c.tk.ColorTables.UpdateLegacyImage(display, imp)
		c.tk.Position.UpdateLegacyImage(display, imp)
		c.tk.Name.UpdateLegacyImage(display, imp)
	}
	return imp, nil
}

// legacyPixelType maps the element type to a legacy pixel type and reports
// whether the signed 16-bit convention applies.
func legacyPixelType(ds *models.Dataset) (models.PixelType, bool) {
	if ds.RGBMerged() {
		return models.ColorRGB, false
	}
	e := ds.Img().Element()
	switch {
	case e.Integer && !e.Signed && e.Bits <= 8:
		return models.Gray8, false
	case e.Integer && e.Bits <= 16:
		return models.Gray16, e.Signed
	}
	return models.Gray32, false
}

// shouldBeComposite holds for 2 to 7 gray channels when composite display
// was asked for, either by the display's color mode or by the dataset's
// composite channel count.
func shouldBeComposite(ds *models.Dataset, display *models.Display, channels int) bool {
	if ds.RGBMerged() || channels < 2 || channels > 7 {
		return false
	}
	if display != nil && display.ColorMode() == models.ModeComposite {
		return true
	}
	return ds.Img().CompositeChannelCount() > 1
}

func layoutOf(img *models.Img) []AxisLayout {
	layout := make([]AxisLayout, img.NumDimensions())
	for i, a := range img.Axes() {
		layout[i] = AxisLayout{Type: a.Type, Size: img.Dim(i), Scale: a.Scale, Origin: a.Origin, Unit: a.Unit}
	}
	return layout
}

// resetDisplayRange applies the data range to 16 and 32-bit images; 8-bit
// and RGB images keep their full native range.
func resetDisplayRange(imp *models.LegacyImage, img *models.Img) {
	if imp.Type() == models.Gray8 || imp.Type() == models.ColorRGB {
		return
	}
	lo, hi := models.DataRange(img)
	if imp.Calibration().Signed16 {
		lo += models.Signed16Bias
		hi += models.Signed16Bias
	}
	if lo == hi {
		hi = lo + 1
	}
	imp.SetDisplayRange(lo, hi)
}
