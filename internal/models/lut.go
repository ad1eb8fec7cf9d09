package models

// LUT is a 256-entry legacy lookup table with the display range it applies to.
type LUT struct {
	Reds   [256]uint8
	Greens [256]uint8
	Blues  [256]uint8
	Min    float64
	Max    float64
}

// NewLUT builds a linear ramp from black to the given color.
func NewLUT(r, g, b uint8) *LUT {
	lut := &LUT{Max: 255}
	for i := 0; i < 256; i++ {
		lut.Reds[i] = uint8(i * int(r) / 255)
		lut.Greens[i] = uint8(i * int(g) / 255)
		lut.Blues[i] = uint8(i * int(b) / 255)
	}
	return lut
}

// GrayLUT returns the identity gray ramp.
func GrayLUT() *LUT { return NewLUT(255, 255, 255) }

// IsGray reports whether every entry is the identity gray ramp.
func (l *LUT) IsGray() bool {
	for i := 0; i < 256; i++ {
		v := uint8(i)
		if l.Reds[i] != v || l.Greens[i] != v || l.Blues[i] != v {
			return false
		}
	}
	return true
}

// Clone returns a copy that shares nothing with l.
func (l *LUT) Clone() *LUT {
	c := *l
	return &c
}

// Equal compares colors and range.
func (l *LUT) Equal(o *LUT) bool {
	if l == nil || o == nil {
		return l == o
	}
	return *l == *o
}

// CompositeMode is the display sub-mode of a composite legacy image.
type CompositeMode int

const (
	CompositeBlend CompositeMode = iota
	CompositeColor
	CompositeGrayscale
)

func (m CompositeMode) String() string {
	switch m {
	case CompositeBlend:
		return "composite"
	case CompositeColor:
		return "color"
	case CompositeGrayscale:
		return "grayscale"
	}
	return "unknown"
}
