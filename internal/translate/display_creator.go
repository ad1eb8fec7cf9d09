package translate

import (
	"fmt"
	"slices"

	"github.com/samber/lo"

	"image-bridge/internal/models"
)

// AxisLayoutProperty is the legacy property holding the axis layout of the
// dataset a legacy image was built from. It lets a later rebuild restore
// custom axes folded into the legacy channel dimension.
const AxisLayoutProperty = "bridge.axis-layout"

// AxisLayout is one entry of the stored layout. Calibration is kept for
// axes the legacy calibration has no field for.
type AxisLayout struct {
	Type   models.AxisType
	Size   int
	Scale  float64
	Origin float64
	Unit   string
}

// DisplayCreator builds a Dataset and Display from a legacy image.
type DisplayCreator struct {
	tk *Toolkit
}

func NewDisplayCreator(tk *Toolkit) *DisplayCreator {
	return &DisplayCreator{tk: tk}
}

// CreateDisplay builds a new Dataset and a Display over it. Every
// harmonizer has run by the time it returns.
func (c *DisplayCreator) CreateDisplay(imp *models.LegacyImage) (*models.Display, error) {
	return c.CreateDisplayWithAxes(imp, nil)
}

// CreateDisplayWithAxes is CreateDisplay with the dataset axes arranged in
// order. Axis types missing from order follow the listed ones in their
// usual order.
func (c *DisplayCreator) CreateDisplayWithAxes(imp *models.LegacyImage, order []models.AxisType) (*models.Display, error) {
	ds, err := c.createDataset(imp, order)
	if err != nil {
		return nil, err
	}

	display := models.NewDisplay(ds)
	c.tk.ColorTables.UpdateDisplay(display, imp)
	c.tk.Position.UpdateDisplay(display, imp)
	c.tk.Name.UpdateDisplay(display, imp)
	return display, nil
}

// CreateDataset builds the Dataset alone, with pixels, calibration and
// composite count in place.
func (c *DisplayCreator) CreateDataset(imp *models.LegacyImage) (*models.Dataset, error) {
	return c.createDataset(imp, nil)
}

func (c *DisplayCreator) createDataset(imp *models.LegacyImage, order []models.AxisType) (*models.Dataset, error) {
	if imp == nil {
		return nil, fmt.Errorf("create dataset: %w", models.ErrNilImage)
	}

	var (
		ds  *models.Dataset
		err error
	)
	if imp.Type() == models.ColorRGB && imp.Channels() == 1 {
		ds, err = c.colorDataset(imp, order)
	} else {
		ds, err = c.grayDataset(imp, order)
	}
	if err != nil {
		return nil, fmt.Errorf("create dataset for %q: %w", imp.Title(), err)
	}

	c.tk.Metadata.UpdateDataset(ds, imp)
	c.tk.Composite.UpdateDataset(ds, imp)
	return ds, nil
}

func (c *DisplayCreator) colorDataset(imp *models.LegacyImage, order []models.AxisType) (*models.Dataset, error) {
	dims, axes := c.layout(imp, 3, true)
	dims, axes = arrange(dims, axes, order)
	img, err := models.NewImgWithAllocator(models.Uint8, dims, axes, c.tk.alloc.NewPlane)
	if err != nil {
		return nil, err
	}

	ds := models.NewDataset(imp.Title(), img)
	ds.SetRGBMerged(true)
	c.tk.Color.UpdateDataset(ds, imp)
	return ds, nil
}

func (c *DisplayCreator) grayDataset(imp *models.LegacyImage, order []models.AxisType) (*models.Dataset, error) {
	elem := elementFor(imp)
	rgb := imp.Type() == models.ColorRGB

	channels := imp.Channels()
	if rgb {
		channels *= 3
	}
	dims, axes := c.layout(imp, channels, rgb)
	dims, axes = arrange(dims, axes, order)

	if c.canWrap(imp, elem, axes) {
		planes := make([]models.Plane, imp.Stack().Size())
		for k := range planes {
			planes[k] = imp.Stack().Plane(k)
		}
		img, err := models.NewImgFromPlanes(elem, dims, axes, planes)
		if err != nil {
			return nil, err
		}
		ds := models.NewDataset(imp.Title(), img)
		c.tk.Planes.UpdateDataset(ds, imp)
		return ds, nil
	}

	img, err := models.NewImgWithAllocator(elem, dims, axes, c.tk.alloc.NewPlane)
	if err != nil {
		return nil, err
	}
	ds := models.NewDataset(imp.Title(), img)
	if rgb {
		c.tk.Color.UpdateDataset(ds, imp)
	} else {
		c.tk.Gray.UpdateDataset(ds, imp)
	}
	return ds, nil
}

// canWrap reports whether the legacy planes can back the dataset directly.
func (c *DisplayCreator) canWrap(imp *models.LegacyImage, elem models.ElementType, axes []models.Axis) bool {
	if imp.Stack().Virtual() || imp.Calibration().Signed16 {
		return false
	}
	if axes[0].Type != models.AxisX || axes[1].Type != models.AxisY {
		return false
	}
	pt, ok := sharedPixelType(elem)
	return ok && pt == imp.Type()
}

// layout picks the axes of the new dataset: the stored layout when it still
// fits the legacy shape, otherwise X, Y, Channel, Z, Time with length-one
// axes dropped. keepChannel retains a length-one channel axis.
func (c *DisplayCreator) layout(imp *models.LegacyImage, channels int, keepChannel bool) ([]int, []models.Axis) {
	if dims, axes, ok := storedLayout(imp, channels); ok {
		return dims, axes
	}

	w, h, _, z, t := imp.Dimensions()
	dims := []int{w, h}
	axes := []models.Axis{models.NewAxis(models.AxisX), models.NewAxis(models.AxisY)}
	if channels > 1 || keepChannel {
		dims = append(dims, channels)
		axes = append(axes, models.NewAxis(models.AxisChannel))
	}
	if z > 1 {
		dims = append(dims, z)
		axes = append(axes, models.NewAxis(models.AxisZ))
	}
	if t > 1 {
		dims = append(dims, t)
		axes = append(axes, models.NewAxis(models.AxisTime))
	}
	return dims, axes
}

// arrange reorders dims and axes so the types listed in order come first.
// Axes folded into the legacy channel rank as Channel and keep their
// relative order, so legacy channel indices keep their meaning.
func arrange(dims []int, axes []models.Axis, order []models.AxisType) ([]int, []models.Axis) {
	if len(order) == 0 {
		return dims, axes
	}
	rank := func(t models.AxisType) int {
		if IsChannelLike(t) {
			t = models.AxisChannel
		}
		if i := lo.IndexOf(order, t); i >= 0 {
			return i
		}
		return len(order)
	}
	idx := lo.Range(len(axes))
	slices.SortStableFunc(idx, func(a, b int) int {
		return rank(axes[a].Type) - rank(axes[b].Type)
	})
	return lo.Map(idx, func(i, _ int) int { return dims[i] }),
		lo.Map(idx, func(i, _ int) models.Axis { return axes[i] })
}

func storedLayout(imp *models.LegacyImage, channels int) ([]int, []models.Axis, bool) {
	v, ok := imp.Property(AxisLayoutProperty)
	if !ok {
		return nil, nil, false
	}
	layout, ok := v.([]AxisLayout)
	if !ok || len(layout) < 2 {
		return nil, nil, false
	}

	dims := make([]int, len(layout))
	axes := make([]models.Axis, len(layout))
	types := make([]models.AxisType, len(layout))
	for i, l := range layout {
		dims[i] = l.Size
		axes[i] = models.Axis{Type: l.Type, Scale: l.Scale, Origin: l.Origin, Unit: l.Unit}
		if l.Scale == 0 {
			axes[i].Scale = 1
		}
		types[i] = l.Type
	}

	w, h, _, z, t := imp.Dimensions()
	lengthOf := func(at models.AxisType) int {
		for i, l := range layout {
			if types[i] == at {
				return l.Size
			}
		}
		return 0
	}
	if lengthOf(models.AxisX) != w || lengthOf(models.AxisY) != h {
		return nil, nil, false
	}
	if max(lengthOf(models.AxisZ), 1) != z || max(lengthOf(models.AxisTime), 1) != t {
		return nil, nil, false
	}
	if LegacyChannelCount(dims, types) != channels {
		return nil, nil, false
	}
	return dims, axes, true
}

// elementFor picks the dataset element type for a gray legacy image.
func elementFor(imp *models.LegacyImage) models.ElementType {
	switch imp.Type() {
	case models.Gray16:
		if imp.Calibration().Signed16 {
			return models.Int16
		}
		return models.Uint16
	case models.Gray32:
		return models.Float32
	}
	return models.Uint8
}
