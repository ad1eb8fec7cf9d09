package translate

import (
	"image-bridge/internal/models"
)

// GrayPixelHarmonizer copies scalar samples between a legacy stack and a
// Dataset.
type GrayPixelHarmonizer struct {
	planeCopier
}

func NewGrayPixelHarmonizer(workers int) *GrayPixelHarmonizer {
	return &GrayPixelHarmonizer{planeCopier: newPlaneCopier(workers)}
}

// UpdateDataset writes every legacy sample into ds. Signed 16-bit data
// loses its storage bias and values are clamped to the element type.
func (h *GrayPixelHarmonizer) UpdateDataset(ds *models.Dataset, imp *models.LegacyImage) {
	img := ds.Img()
	ld := LegacyDimsOf(ds)
	mustMatch("gray pixels to dataset", imp, ld.Width, ld.Height, ld.Channels, ld.Slices, ld.Frames)

	elem := img.Element()
	signed := imp.Calibration().Signed16
	stack := imp.Stack()

	h.run(stack.Size(), stack.Virtual(), func(k int) {
		read := h.source(stack, k)
		c, z, t := planeCoords(k, ld.Channels, ld.Slices)
		pos := make([]int, img.NumDimensions())
		legacyPosition(img, ld, c, z, t, pos)
		for y := 0; y < ld.Height; y++ {
			pos[ld.YIndex] = y
			for x := 0; x < ld.Width; x++ {
				pos[ld.XIndex] = x
				v := read(x + y*ld.Width)
				if signed {
					v -= models.Signed16Bias
				}
				img.Set(pos, elem.Clamp(v))
			}
		}
	})
}

// UpdateLegacyImage writes every Dataset sample into the legacy stack,
// clamped to the legacy buffer's native range.
func (h *GrayPixelHarmonizer) UpdateLegacyImage(ds *models.Dataset, imp *models.LegacyImage) {
	img := ds.Img()
	ld := LegacyDimsOf(ds)
	mustMatch("gray pixels to legacy", imp, ld.Width, ld.Height, ld.Channels, ld.Slices, ld.Frames)

	bit := img.Element().Kind == models.KindBit
	signed := imp.Calibration().Signed16
	typ := imp.Type()
	stack := imp.Stack()

	h.run(stack.Size(), stack.Virtual(), func(k int) {
		plane := stack.Plane(k)
		c, z, t := planeCoords(k, ld.Channels, ld.Slices)
		pos := make([]int, img.NumDimensions())
		legacyPosition(img, ld, c, z, t, pos)
		for y := 0; y < ld.Height; y++ {
			pos[ld.YIndex] = y
			for x := 0; x < ld.Width; x++ {
				pos[ld.XIndex] = x
				v := img.Get(pos)
				if bit && v > 0 {
					v = 255
				}
				if signed {
					v += models.Signed16Bias
				}
				plane.SetValue(x+y*ld.Width, typ.Clamp(v))
			}
		}
	})
}
