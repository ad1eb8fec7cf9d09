package translate

import (
	"image-bridge/internal/models"
)

// PositionHarmonizer syncs the legacy (c, z, t) cursor with the display's
// n-D position. The channel coordinate goes through the rasterizer.
type PositionHarmonizer struct{}

func (PositionHarmonizer) UpdateDisplay(display *models.Display, imp *models.LegacyImage) {
	ds := display.Dataset()
	img := ds.Img()
	ld := LegacyDimsOf(ds)
	c, z, t := imp.Position()

	pos := display.Position()
	if ds.RGBMerged() {
		if ci := img.AxisIndex(models.AxisChannel); ci >= 0 {
			pos[ci] = 3 * c
		}
	} else {
		ChannelIndexToPosition(img.Dims(), img.AxisTypes(), c, pos)
	}
	if ld.ZIndex >= 0 {
		pos[ld.ZIndex] = z
	}
	if ld.TIndex >= 0 {
		pos[ld.TIndex] = t
	}

	current := display.Position()
	for i, v := range pos {
		if current[i] != v {
			display.SetPosition(i, v)
		}
	}
}

func (PositionHarmonizer) UpdateLegacyImage(display *models.Display, imp *models.LegacyImage) {
	ds := display.Dataset()
	img := ds.Img()
	ld := LegacyDimsOf(ds)
	pos := display.Position()

	var c, z, t int
	if ds.RGBMerged() {
		if ci := img.AxisIndex(models.AxisChannel); ci >= 0 {
			c = pos[ci] / 3
		}
	} else {
		c = PositionToChannelIndex(img.Dims(), img.AxisTypes(), pos)
	}
	if ld.ZIndex >= 0 {
		z = pos[ld.ZIndex]
	}
	if ld.TIndex >= 0 {
		t = pos[ld.TIndex]
	}

	if ic, iz, it := imp.Position(); ic != c || iz != z || it != t {
		imp.SetPosition(c, z, t)
	}
}
