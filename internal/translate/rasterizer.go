package translate

import (
	"math"

	"github.com/samber/lo"

	"image-bridge/internal/models"
)

// MaxLegacyIndex is the largest plane size or plane count a legacy image
// can address.
const MaxLegacyIndex = math.MaxInt32

// IsChannelLike reports whether an axis folds into the legacy channel
// dimension: everything except X, Y, Z and Time does.
func IsChannelLike(t models.AxisType) bool {
	switch t {
	case models.AxisX, models.AxisY, models.AxisZ, models.AxisTime:
		return false
	}
	return true
}

// ChannelIndexToPosition writes the channel-like coordinates of the legacy
// channel index into pos. Channel-like axes are mixed-radix digits, the
// lowest axis index being least significant. Other entries of pos are left
// untouched.
func ChannelIndexToPosition(dims []int, axes []models.AxisType, channel int, pos []int) {
	working := channel
	for i, d := range dims {
		if !IsChannelLike(axes[i]) {
			continue
		}
		pos[i] = working % d
		working /= d
	}
}

// PositionToChannelIndex is the inverse of ChannelIndexToPosition.
func PositionToChannelIndex(dims []int, axes []models.AxisType, pos []int) int {
	index, mult := 0, 1
	for i, d := range dims {
		if !IsChannelLike(axes[i]) {
			continue
		}
		index += mult * pos[i]
		mult *= d
	}
	return index
}

// LegacyChannelCount is the product of the channel-like axis lengths.
func LegacyChannelCount(dims []int, axes []models.AxisType) int {
	return lo.Reduce(lo.Range(len(dims)), func(acc, i, _ int) int {
		if IsChannelLike(axes[i]) {
			return acc * dims[i]
		}
		return acc
	}, 1)
}

// LegacyDims describes how a Dataset lays out as a legacy image.
type LegacyDims struct {
	Width, Height            int
	Channels, Slices, Frames int

	XIndex, YIndex, ZIndex, TIndex int
}

// Planes is the legacy plane count.
func (d LegacyDims) Planes() int {
	return d.Channels * d.Slices * d.Frames
}

// LegacyDimsOf computes the legacy shape of ds. RGB-merged datasets count
// one legacy channel per three modern channels.
func LegacyDimsOf(ds *models.Dataset) LegacyDims {
	img := ds.Img()
	dims, axes := img.Dims(), img.AxisTypes()
	ld := LegacyDims{
		Width:    img.AxisLength(models.AxisX),
		Height:   img.AxisLength(models.AxisY),
		Channels: LegacyChannelCount(dims, axes),
		Slices:   img.AxisLength(models.AxisZ),
		Frames:   img.AxisLength(models.AxisTime),
		XIndex:   img.AxisIndex(models.AxisX),
		YIndex:   img.AxisIndex(models.AxisY),
		ZIndex:   img.AxisIndex(models.AxisZ),
		TIndex:   img.AxisIndex(models.AxisTime),
	}
	if ds.RGBMerged() {
		ld.Channels /= 3
	}
	return ld
}

// DimensionsCompatible reports whether ds can be represented legacy-side.
func DimensionsCompatible(ds *models.Dataset) bool {
	if ds == nil || ds.Img() == nil {
		return false
	}
	img := ds.Img()
	if img.AxisIndex(models.AxisX) < 0 || img.AxisIndex(models.AxisY) < 0 {
		return false
	}
	if ds.RGBMerged() && !IsColorCompatible(ds) {
		return false
	}
	ld := LegacyDimsOf(ds)
	if int64(ld.Width)*int64(ld.Height) > MaxLegacyIndex {
		return false
	}
	if ld.Channels < 1 {
		return false
	}
	planes := int64(ld.Channels) * int64(ld.Slices) * int64(ld.Frames)
	return planes <= MaxLegacyIndex
}

// IsColorCompatible reports whether ds maps onto a packed RGB legacy image:
// RGB-merged with a channel axis whose length is a multiple of three.
func IsColorCompatible(ds *models.Dataset) bool {
	if !ds.RGBMerged() {
		return false
	}
	img := ds.Img()
	ci := img.AxisIndex(models.AxisChannel)
	return ci >= 0 && img.Dim(ci)%3 == 0
}

// IsPlaneCompatible reports whether the Dataset's planes can be shared with
// a legacy stack: X and Y lead, the element type has a native legacy buffer
// and the channel axis is not packed RGB.
func IsPlaneCompatible(ds *models.Dataset) bool {
	img := ds.Img()
	if ds.RGBMerged() || img.Axis(0).Type != models.AxisX || img.Axis(1).Type != models.AxisY {
		return false
	}
	_, ok := sharedPixelType(img.Element())
	return ok
}

// sharedPixelType is the legacy pixel type whose buffer has the same Go
// representation as the element type.
func sharedPixelType(e models.ElementType) (models.PixelType, bool) {
	switch e.Kind {
	case models.KindUint8:
		return models.Gray8, true
	case models.KindUint16:
		return models.Gray16, true
	case models.KindFloat32:
		return models.Gray32, true
	}
	return 0, false
}

// legacyPosition fills pos for legacy plane (c, z, t) with x = y = 0.
func legacyPosition(img *models.Img, ld LegacyDims, c, z, t int, pos []int) {
	for i := range pos {
		pos[i] = 0
	}
	ChannelIndexToPosition(img.Dims(), img.AxisTypes(), c, pos)
	if ld.ZIndex >= 0 {
		pos[ld.ZIndex] = z
	}
	if ld.TIndex >= 0 {
		pos[ld.TIndex] = t
	}
}

// planeCoords splits a legacy plane index into (c, z, t).
func planeCoords(index, channels, slices int) (int, int, int) {
	return index % channels, (index / channels) % slices, index / (channels * slices)
}
