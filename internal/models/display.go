package models

import (
	"gonum.org/v1/gonum/floats"
)

// ColorMode is how a Display combines channels.
type ColorMode int

const (
	ModeComposite ColorMode = iota
	ModeColor
	ModeGrayscale
)

func (m ColorMode) String() string {
	switch m {
	case ModeComposite:
		return "composite"
	case ModeColor:
		return "color"
	case ModeGrayscale:
		return "grayscale"
	}
	return "unknown"
}

// Display is a view over exactly one Dataset.
type Display struct {
	name    string
	dataset *Dataset

	position  []int
	colorMode ColorMode

	channelMin []float64
	channelMax []float64

	closed bool
}

// NewDisplay creates a view at the origin with ranges scaled to the data.
func NewDisplay(ds *Dataset) *Display {
	d := &Display{name: ds.Name(), dataset: ds, colorMode: ModeGrayscale}
	d.Reset()
	d.AutoScale()
	return d
}

func (d *Display) Name() string        { return d.name }
func (d *Display) SetName(name string) { d.name = name }
func (d *Display) Dataset() *Dataset   { return d.dataset }

// Reset resizes position and channel ranges after the dataset's storage
// changed shape. Coordinates still in range are kept.
func (d *Display) Reset() {
	img := d.dataset.Img()
	pos := make([]int, img.NumDimensions())
	for i := range pos {
		if i < len(d.position) && d.position[i] < img.Dim(i) {
			pos[i] = d.position[i]
		}
	}
	d.position = pos

	n := d.ChannelCount()
	if len(d.channelMin) != n {
		lo, hi := d.dataset.Img().Element().Min, d.dataset.Img().Element().Max
		if len(d.channelMin) > 0 {
			lo, hi = d.channelMin[0], d.channelMax[0]
		}
		d.channelMin = make([]float64, n)
		d.channelMax = make([]float64, n)
		for c := 0; c < n; c++ {
			d.channelMin[c], d.channelMax[c] = lo, hi
		}
	}
}

// ChannelCount is the length of the channel axis, or 1.
func (d *Display) ChannelCount() int {
	return d.dataset.Img().AxisLength(AxisChannel)
}

// Position returns a copy of the active n-D position.
func (d *Display) Position() []int { return append([]int(nil), d.position...) }

// SetPosition sets axis i of the active position.
func (d *Display) SetPosition(i, v int) {
	if i < 0 || i >= len(d.position) {
		return
	}
	d.position[i] = v
}

func (d *Display) ColorMode() ColorMode      { return d.colorMode }
func (d *Display) SetColorMode(m ColorMode) { d.colorMode = m }

// ChannelRange returns the display range of channel c.
func (d *Display) ChannelRange(c int) (float64, float64) {
	if c < 0 || c >= len(d.channelMin) {
		return 0, 0
	}
	return d.channelMin[c], d.channelMax[c]
}

func (d *Display) SetChannelRange(c int, min, max float64) {
	if c < 0 || c >= len(d.channelMin) {
		return
	}
	d.channelMin[c], d.channelMax[c] = min, max
}

// AutoScale sets every channel range to the data range of that channel.
func (d *Display) AutoScale() {
	img := d.dataset.Img()
	ci := img.AxisIndex(AxisChannel)
	pos := make([]int, img.NumDimensions())
	var values []float64
	for c := 0; c < d.ChannelCount(); c++ {
		lo, hi := 0.0, 0.0
		first := true
		for p := 0; p < img.NumPlanes(); p++ {
			img.PlanePosition(p, pos)
			if ci >= 2 && pos[ci] != c {
				continue
			}
			values = PlaneValues(img.Plane(p), values)
			pmin, pmax := floats.Min(values), floats.Max(values)
			if first || pmin < lo {
				lo = pmin
			}
			if first || pmax > hi {
				hi = pmax
			}
			first = false
		}
		if ci >= 0 && ci < 2 {
			lo, hi = DataRange(img)
		}
		d.channelMin[c], d.channelMax[c] = lo, hi
	}
}

// DataRange is the minimum and maximum over every sample of img.
func DataRange(img *Img) (float64, float64) {
	var values []float64
	lo, hi := 0.0, 0.0
	for p := 0; p < img.NumPlanes(); p++ {
		values = PlaneValues(img.Plane(p), values)
		pmin, pmax := floats.Min(values), floats.Max(values)
		if p == 0 || pmin < lo {
			lo = pmin
		}
		if p == 0 || pmax > hi {
			hi = pmax
		}
	}
	return lo, hi
}

// Close marks the display as discarded.
func (d *Display) Close()       { d.closed = true }
func (d *Display) Closed() bool { return d.closed }
