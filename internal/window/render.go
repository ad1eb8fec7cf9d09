package window

import (
	"image"
	"image/color"

	"image-bridge/internal/models"
)

// Render draws the plane under the legacy cursor. Composite images in blend
// mode add every channel at the current slice and frame, each through its
// own LUT and range.
func Render(imp *models.LegacyImage) *image.RGBA {
	w, h := imp.Width(), imp.Height()
	out := image.NewRGBA(image.Rect(0, 0, w, h))

	switch {
	case imp.Type() == models.ColorRGB:
		renderRGB(out, imp.CurrentPlane(), w, h)
	case imp.IsComposite() && imp.CompositeMode() == models.CompositeBlend:
		_, z, t := imp.Position()
		for c, lut := range imp.ChannelLUTs() {
			plane := imp.Stack().Plane(imp.StackIndex(c, z, t))
			blend(out, plane, lut, lut.Min, lut.Max, w, h)
		}
	case imp.IsComposite():
		c, _, _ := imp.Position()
		lut := imp.ChannelLUTs()[c]
		if imp.CompositeMode() == models.CompositeGrayscale {
			lut = gray(lut)
		}
		blend(out, imp.CurrentPlane(), lut, lut.Min, lut.Max, w, h)
	default:
		min, max := imp.DisplayRange()
		blend(out, imp.CurrentPlane(), imp.LUT(), min, max, w, h)
	}
	return out
}

func gray(lut *models.LUT) *models.LUT {
	g := models.GrayLUT()
	g.Min, g.Max = lut.Min, lut.Max
	return g
}

func renderRGB(out *image.RGBA, plane models.Plane, w, h int) {
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			v := uint32(plane.Value(x + y*w))
			out.SetRGBA(x, y, color.RGBA{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v), A: 0xff})
		}
	}
}

// blend adds the LUT color of each sample to out, saturating at 255.
func blend(out *image.RGBA, plane models.Plane, lut *models.LUT, min, max float64, w, h int) {
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			idx := LUTIndex(plane.Value(x+y*w), min, max)
			px := out.RGBAAt(x, y)
			out.SetRGBA(x, y, color.RGBA{
				R: addSat(px.R, lut.Reds[idx]),
				G: addSat(px.G, lut.Greens[idx]),
				B: addSat(px.B, lut.Blues[idx]),
				A: 0xff,
			})
		}
	}
}

// LUTIndex scales v from [min, max] to a LUT entry.
func LUTIndex(v, min, max float64) int {
	if max <= min {
		if v >= max {
			return 255
		}
		return 0
	}
	idx := int((v - min) / (max - min) * 256)
	if idx < 0 {
		return 0
	}
	if idx > 255 {
		return 255
	}
	return idx
}

func addSat(a, b uint8) uint8 {
	s := int(a) + int(b)
	if s > 255 {
		return 255
	}
	return uint8(s)
}
