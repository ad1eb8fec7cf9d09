package models

import (
	"errors"
	"fmt"
	"image"
	"math"
)

var (
	ErrNilImage   = errors.New("nil image")
	ErrEmptyStack = errors.New("empty stack")
)

// PixelType is the sample layout of a LegacyImage.
type PixelType int

const (
	Gray8 PixelType = iota
	Gray16
	Gray32
	ColorRGB
)

// BitDepth matches the legacy convention: packed RGB reports 24.
func (t PixelType) BitDepth() int {
	switch t {
	case Gray8:
		return 8
	case Gray16:
		return 16
	case Gray32:
		return 32
	case ColorRGB:
		return 24
	}
	return 0
}

// Range is the native sample range of the legacy buffer.
func (t PixelType) Range() (float64, float64) {
	switch t {
	case Gray8, ColorRGB:
		return 0, 255
	case Gray16:
		return 0, 65535
	}
	return Float32.Min, Float32.Max
}

// Clamp limits v to the range of t. Float images keep NaN.
func (t PixelType) Clamp(v float64) float64 {
	if t == Gray32 && math.IsNaN(v) {
		return v
	}
	lo, hi := t.Range()
	return Clamp(v, lo, hi)
}

func (t PixelType) String() string {
	switch t {
	case Gray8:
		return "gray8"
	case Gray16:
		return "gray16"
	case Gray32:
		return "gray32"
	case ColorRGB:
		return "rgb"
	}
	return fmt.Sprintf("pixeltype(%d)", int(t))
}

// Signed16Bias is added to signed 16-bit samples before they are stored in
// an unsigned legacy buffer.
const Signed16Bias = 32768

// Calibration holds the legacy per-axis scale, origin and unit.
type Calibration struct {
	PixelWidth    float64
	PixelHeight   float64
	PixelDepth    float64
	FrameInterval float64
	XOrigin       float64
	YOrigin       float64
	ZOrigin       float64
	XUnit         string
	YUnit         string
	ZUnit         string
	TimeUnit      string
	// Signed16 marks 16-bit data stored with Signed16Bias.
	Signed16 bool
}

// DefaultCalibration is the uncalibrated state.
func DefaultCalibration() Calibration {
	return Calibration{
		PixelWidth:  1,
		PixelHeight: 1,
		PixelDepth:  1,
		XUnit:       "pixel",
		YUnit:       "pixel",
		ZUnit:       "pixel",
		TimeUnit:    "sec",
	}
}

// LegacyImage is the flat plane-indexed image. Planes are ordered with the
// channel varying fastest, then slice, then frame. Cursor coordinates are
// zero based.
type LegacyImage struct {
	title string
	typ   PixelType
	stack Stack

	channels, slices, frames int
	c, z, t                  int

	composite     bool
	compositeMode CompositeMode
	lut           *LUT
	channelLUTs   []*LUT

	displayMin, displayMax float64

	cal   Calibration
	roi   *image.Rectangle
	props map[string]any

	locked bool
	closed bool
}

// NewLegacyImage validates the stack against the requested dimensions.
func NewLegacyImage(title string, typ PixelType, stack Stack, channels, slices, frames int) (*LegacyImage, error) {
	if stack == nil || stack.Size() == 0 {
		return nil, fmt.Errorf("legacy image %q: %w", title, ErrEmptyStack)
	}
	if channels < 1 || slices < 1 || frames < 1 {
		return nil, fmt.Errorf("legacy image %q: invalid dimensions c=%d z=%d t=%d", title, channels, slices, frames)
	}
	if channels*slices*frames != stack.Size() {
		return nil, fmt.Errorf("legacy image %q: c*z*t=%d does not match stack size %d",
			title, channels*slices*frames, stack.Size())
	}

	imp := &LegacyImage{
		title:    title,
		typ:      typ,
		stack:    stack,
		channels: channels,
		slices:   slices,
		frames:   frames,
		lut:      GrayLUT(),
		cal:      DefaultCalibration(),
		props:    make(map[string]any),
	}
	imp.displayMin, imp.displayMax = defaultRange(typ)
	return imp, nil
}

func defaultRange(t PixelType) (float64, float64) {
	if t == Gray32 {
		return 0, 1
	}
	return t.Range()
}

func (l *LegacyImage) Title() string         { return l.title }
func (l *LegacyImage) SetTitle(title string) { l.title = title }
func (l *LegacyImage) Type() PixelType       { return l.typ }
func (l *LegacyImage) BitDepth() int         { return l.typ.BitDepth() }
func (l *LegacyImage) Stack() Stack          { return l.stack }
func (l *LegacyImage) Width() int            { return l.stack.Width() }
func (l *LegacyImage) Height() int           { return l.stack.Height() }
func (l *LegacyImage) Channels() int         { return l.channels }
func (l *LegacyImage) Slices() int           { return l.slices }
func (l *LegacyImage) Frames() int           { return l.frames }

// Dimensions returns width, height, channels, slices and frames.
func (l *LegacyImage) Dimensions() (int, int, int, int, int) {
	return l.Width(), l.Height(), l.channels, l.slices, l.frames
}

// StackIndex maps (c, z, t) to a plane index.
func (l *LegacyImage) StackIndex(c, z, t int) int {
	return c + z*l.channels + t*l.channels*l.slices
}

// Position returns the cursor (c, z, t).
func (l *LegacyImage) Position() (int, int, int) { return l.c, l.z, l.t }

// SetPosition moves the cursor, clamping each coordinate into range.
func (l *LegacyImage) SetPosition(c, z, t int) {
	l.c = clampIndex(c, l.channels)
	l.z = clampIndex(z, l.slices)
	l.t = clampIndex(t, l.frames)
}

func clampIndex(i, n int) int {
	if i < 0 {
		return 0
	}
	if i >= n {
		return n - 1
	}
	return i
}

// CurrentIndex is the plane index under the cursor.
func (l *LegacyImage) CurrentIndex() int { return l.StackIndex(l.c, l.z, l.t) }

// CurrentPlane returns the plane under the cursor.
func (l *LegacyImage) CurrentPlane() Plane { return l.stack.Plane(l.CurrentIndex()) }

// IsComposite reports whether the image carries one LUT per channel.
func (l *LegacyImage) IsComposite() bool { return l.composite }

// IsCompositeCapable reports whether the image could be shown as a composite.
func (l *LegacyImage) IsCompositeCapable() bool {
	return l.typ != ColorRGB && l.channels >= 2 && l.channels <= 7
}

func (l *LegacyImage) CompositeMode() CompositeMode { return l.compositeMode }

// SetComposite switches between a single LUT and per-channel LUTs. Turning
// composite on seeds every channel with the current single LUT.
func (l *LegacyImage) SetComposite(composite bool, mode CompositeMode) {
	if composite && !l.composite {
		l.channelLUTs = make([]*LUT, l.channels)
		for i := range l.channelLUTs {
			lut := l.lut.Clone()
			lut.Min, lut.Max = l.displayMin, l.displayMax
			l.channelLUTs[i] = lut
		}
	}
	if !composite {
		l.channelLUTs = nil
	}
	l.composite = composite
	l.compositeMode = mode
}

// LUT returns the single LUT of a non-composite image, or the LUT of the
// current channel of a composite one.
func (l *LegacyImage) LUT() *LUT {
	if l.composite {
		return l.channelLUTs[l.c]
	}
	return l.lut
}

func (l *LegacyImage) SetLUT(lut *LUT) {
	if lut == nil {
		lut = GrayLUT()
	}
	l.lut = lut
}

// ChannelLUTs returns the per-channel LUTs of a composite image.
func (l *LegacyImage) ChannelLUTs() []*LUT { return l.channelLUTs }

// SetChannelLUT replaces the LUT of channel c on a composite image.
func (l *LegacyImage) SetChannelLUT(c int, lut *LUT) {
	if !l.composite || c < 0 || c >= len(l.channelLUTs) {
		return
	}
	l.channelLUTs[c] = lut
}

func (l *LegacyImage) DisplayRange() (float64, float64) { return l.displayMin, l.displayMax }

func (l *LegacyImage) SetDisplayRange(min, max float64) {
	l.displayMin, l.displayMax = min, max
}

// ChannelDisplayRange returns the range of channel c; non-composite images
// share one range.
func (l *LegacyImage) ChannelDisplayRange(c int) (float64, float64) {
	if l.composite && c >= 0 && c < len(l.channelLUTs) {
		return l.channelLUTs[c].Min, l.channelLUTs[c].Max
	}
	return l.displayMin, l.displayMax
}

func (l *LegacyImage) SetChannelDisplayRange(c int, min, max float64) {
	if l.composite && c >= 0 && c < len(l.channelLUTs) {
		l.channelLUTs[c].Min, l.channelLUTs[c].Max = min, max
		return
	}
	l.SetDisplayRange(min, max)
}

func (l *LegacyImage) Calibration() Calibration        { return l.cal }
func (l *LegacyImage) SetCalibration(cal Calibration) { l.cal = cal }

// ROI returns the attached region of interest, or nil.
func (l *LegacyImage) ROI() *image.Rectangle       { return l.roi }
func (l *LegacyImage) SetROI(roi *image.Rectangle) { l.roi = roi }

func (l *LegacyImage) Property(key string) (any, bool) {
	v, ok := l.props[key]
	return v, ok
}

func (l *LegacyImage) SetProperty(key string, value any) {
	if value == nil {
		delete(l.props, key)
		return
	}
	l.props[key] = value
}

func (l *LegacyImage) Lock()          { l.locked = true }
func (l *LegacyImage) Unlock()        { l.locked = false }
func (l *LegacyImage) IsLocked() bool { return l.locked }

// MarkClosed records that the window owning the image is gone.
func (l *LegacyImage) MarkClosed()   { l.closed = true }
func (l *LegacyImage) Closed() bool { return l.closed }

// Adopt takes over the pixel content of src: type, stack, dimensions,
// composite state, LUTs and the signed 16-bit flag. Title, properties, lock
// and window state stay with l.
func (l *LegacyImage) Adopt(src *LegacyImage) {
	l.typ = src.typ
	l.stack = src.stack
	l.channels, l.slices, l.frames = src.channels, src.slices, src.frames
	l.composite = src.composite
	l.compositeMode = src.compositeMode
	l.lut = src.lut
	l.channelLUTs = src.channelLUTs
	l.displayMin, l.displayMax = src.displayMin, src.displayMax
	l.cal.Signed16 = src.cal.Signed16
	for k, v := range src.props {
		l.props[k] = v
	}
	l.SetPosition(l.c, l.z, l.t)
}
