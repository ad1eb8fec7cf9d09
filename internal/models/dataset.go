package models

import (
	"fmt"

	"github.com/samber/lo"
)

// AxisType names the semantic kind of an axis. Any label other than the
// predefined ones is a custom axis.
type AxisType string

const (
	AxisX       AxisType = "X"
	AxisY       AxisType = "Y"
	AxisChannel AxisType = "Channel"
	AxisZ       AxisType = "Z"
	AxisTime    AxisType = "Time"
)

// Axis is one calibrated dimension of an Img.
type Axis struct {
	Type   AxisType
	Scale  float64
	Origin float64
	Unit   string
}

// NewAxis returns an uncalibrated axis of the given type.
func NewAxis(t AxisType) Axis {
	return Axis{Type: t, Scale: 1}
}

// Img is the n-dimensional backing storage of a Dataset. Samples live in
// planes spanning the first two dimensions; planes are raster ordered over
// the remaining dimensions with the lowest axis varying fastest.
type Img struct {
	dims   []int
	axes   []Axis
	elem   ElementType
	planes []Plane

	compositeChannelCount int
	colorTables           []*ColorTable
}

// NewImg allocates zeroed storage.
func NewImg(elem ElementType, dims []int, axes []Axis) (*Img, error) {
	return NewImgWithAllocator(elem, dims, axes, func(e ElementType, n int) (Plane, error) {
		return NewPlane(e, n), nil
	})
}

// NewImgWithAllocator allocates each plane through alloc.
func NewImgWithAllocator(elem ElementType, dims []int, axes []Axis, alloc func(ElementType, int) (Plane, error)) (*Img, error) {
	img, err := newImgShape(elem, dims, axes)
	if err != nil {
		return nil, err
	}
	for i := range img.planes {
		p, err := alloc(elem, img.PlaneSize())
		if err != nil {
			return nil, fmt.Errorf("allocate plane %d: %w", i, err)
		}
		img.planes[i] = p
	}
	return img, nil
}

// NewImgFromPlanes wraps existing planes without copying them.
func NewImgFromPlanes(elem ElementType, dims []int, axes []Axis, planes []Plane) (*Img, error) {
	img, err := newImgShape(elem, dims, axes)
	if err != nil {
		return nil, err
	}
	if len(planes) != len(img.planes) {
		return nil, fmt.Errorf("got %d planes, want %d", len(planes), len(img.planes))
	}
	for i, p := range planes {
		if p.Len() != img.PlaneSize() {
			return nil, fmt.Errorf("plane %d holds %d samples, want %d", i, p.Len(), img.PlaneSize())
		}
	}
	copy(img.planes, planes)
	return img, nil
}

func newImgShape(elem ElementType, dims []int, axes []Axis) (*Img, error) {
	if len(dims) < 2 {
		return nil, fmt.Errorf("img needs at least two dimensions, got %d", len(dims))
	}
	if len(dims) != len(axes) {
		return nil, fmt.Errorf("%d dimensions but %d axes", len(dims), len(axes))
	}
	for i, d := range dims {
		if d < 1 {
			return nil, fmt.Errorf("dimension %d (%s) has length %d", i, axes[i].Type, d)
		}
	}
	count := lo.Reduce(dims[2:], func(acc, d, _ int) int { return acc * d }, 1)
	return &Img{
		dims:                  append([]int(nil), dims...),
		axes:                  append([]Axis(nil), axes...),
		elem:                  elem,
		planes:                make([]Plane, count),
		compositeChannelCount: 1,
	}, nil
}

func (m *Img) Dims() []int          { return append([]int(nil), m.dims...) }
func (m *Img) NumDimensions() int   { return len(m.dims) }
func (m *Img) Dim(i int) int        { return m.dims[i] }
func (m *Img) Element() ElementType { return m.elem }
func (m *Img) NumPlanes() int       { return len(m.planes) }
func (m *Img) PlaneSize() int       { return m.dims[0] * m.dims[1] }

func (m *Img) Axes() []Axis   { return append([]Axis(nil), m.axes...) }
func (m *Img) Axis(i int) Axis { return m.axes[i] }

func (m *Img) SetAxis(i int, axis Axis) { m.axes[i] = axis }

// AxisTypes lists the axis kinds in dimension order.
func (m *Img) AxisTypes() []AxisType {
	return lo.Map(m.axes, func(a Axis, _ int) AxisType { return a.Type })
}

// AxisIndex returns the dimension index of the axis type, or -1.
func (m *Img) AxisIndex(t AxisType) int {
	_, idx, ok := lo.FindIndexOf(m.axes, func(a Axis) bool { return a.Type == t })
	if !ok {
		return -1
	}
	return idx
}

// AxisLength returns the length of the axis type, or 1 when absent.
func (m *Img) AxisLength(t AxisType) int {
	if i := m.AxisIndex(t); i >= 0 {
		return m.dims[i]
	}
	return 1
}

// PlaneIndex maps the non-planar part of pos to a plane index.
func (m *Img) PlaneIndex(pos []int) int {
	idx, mult := 0, 1
	for d := 2; d < len(m.dims); d++ {
		idx += pos[d] * mult
		mult *= m.dims[d]
	}
	return idx
}

// PlanePosition fills pos[2:] for plane index i.
func (m *Img) PlanePosition(i int, pos []int) {
	for d := 2; d < len(m.dims); d++ {
		pos[d] = i % m.dims[d]
		i /= m.dims[d]
	}
}

func (m *Img) Plane(i int) Plane        { return m.planes[i] }
func (m *Img) SetPlane(i int, p Plane) { m.planes[i] = p }

// Get reads the sample at pos.
func (m *Img) Get(pos []int) float64 {
	return m.planes[m.PlaneIndex(pos)].Value(pos[0] + pos[1]*m.dims[0])
}

// Set writes the sample at pos. The value is stored as is.
func (m *Img) Set(pos []int, v float64) {
	m.planes[m.PlaneIndex(pos)].SetValue(pos[0]+pos[1]*m.dims[0], v)
}

func (m *Img) CompositeChannelCount() int { return m.compositeChannelCount }

func (m *Img) SetCompositeChannelCount(n int) {
	if n < 1 {
		n = 1
	}
	m.compositeChannelCount = n
}

func (m *Img) ColorTables() []*ColorTable { return m.colorTables }

// ColorTable returns table i or nil.
func (m *Img) ColorTable(i int) *ColorTable {
	if i < 0 || i >= len(m.colorTables) {
		return nil
	}
	return m.colorTables[i]
}

func (m *Img) SetColorTables(tables []*ColorTable) {
	m.colorTables = tables
}

// Dataset is the typed n-dimensional image. Its storage sits behind an
// indirection cell so that rebuilding replaces the Img without changing the
// Dataset's identity.
type Dataset struct {
	name      string
	source    string
	rgbMerged bool
	props     map[string]any
	img       *Img
}

func NewDataset(name string, img *Img) *Dataset {
	return &Dataset{name: name, img: img, props: make(map[string]any)}
}

func (d *Dataset) Name() string        { return d.name }
func (d *Dataset) SetName(name string) { d.name = name }
func (d *Dataset) Source() string      { return d.source }
func (d *Dataset) SetSource(s string)  { d.source = s }
func (d *Dataset) Img() *Img           { return d.img }

// SetImg swaps the backing storage.
func (d *Dataset) SetImg(img *Img) { d.img = img }

// RGBMerged reports whether the channel axis holds packed R, G and B.
func (d *Dataset) RGBMerged() bool        { return d.rgbMerged }
func (d *Dataset) SetRGBMerged(rgb bool) { d.rgbMerged = rgb }

func (d *Dataset) Property(key string) (any, bool) {
	v, ok := d.props[key]
	return v, ok
}

func (d *Dataset) SetProperty(key string, value any) {
	d.props[key] = value
}

func (d *Dataset) DeleteProperty(key string) {
	delete(d.props, key)
}
