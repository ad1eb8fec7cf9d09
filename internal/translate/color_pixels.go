package translate

import (
	"fmt"

	"image-bridge/internal/models"
)

// ColorPixelHarmonizer moves packed RGB legacy samples to and from a
// Dataset whose channel axis holds R, G and B of legacy channel c at
// positions 3c, 3c+1 and 3c+2.
type ColorPixelHarmonizer struct {
	planeCopier
}

func NewColorPixelHarmonizer(workers int) *ColorPixelHarmonizer {
	return &ColorPixelHarmonizer{planeCopier: newPlaneCopier(workers)}
}

type colorLayout struct {
	width, height            int
	channels, slices, frames int
	x, y, ch, z, t           int
}

func colorLayoutOf(img *models.Img, imp *models.LegacyImage) colorLayout {
	cl := colorLayout{
		width:  img.AxisLength(models.AxisX),
		height: img.AxisLength(models.AxisY),
		slices: img.AxisLength(models.AxisZ),
		frames: img.AxisLength(models.AxisTime),
		x:      img.AxisIndex(models.AxisX),
		y:      img.AxisIndex(models.AxisY),
		ch:     img.AxisIndex(models.AxisChannel),
		z:      img.AxisIndex(models.AxisZ),
		t:      img.AxisIndex(models.AxisTime),
	}
	if cl.ch < 0 {
		panic(fmt.Sprintf("color pixels: dataset for %q has no channel axis", imp.Title()))
	}
	if img.Dim(cl.ch)%3 != 0 {
		panic(fmt.Sprintf("color pixels: channel axis length %d is not a multiple of 3", img.Dim(cl.ch)))
	}
	cl.channels = img.Dim(cl.ch) / 3
	mustMatch("color pixels", imp, cl.width, cl.height, cl.channels, cl.slices, cl.frames)
	return cl
}

func (cl colorLayout) position(n, z, t int) []int {
	pos := make([]int, n)
	if cl.z >= 0 {
		pos[cl.z] = z
	}
	if cl.t >= 0 {
		pos[cl.t] = t
	}
	return pos
}

// UpdateDataset unpacks every legacy pixel into three channel samples.
func (h *ColorPixelHarmonizer) UpdateDataset(ds *models.Dataset, imp *models.LegacyImage) {
	img := ds.Img()
	cl := colorLayoutOf(img, imp)
	elem := img.Element()
	stack := imp.Stack()

	h.run(stack.Size(), stack.Virtual(), func(k int) {
		read := h.source(stack, k)
		c, z, t := planeCoords(k, cl.channels, cl.slices)
		pos := cl.position(img.NumDimensions(), z, t)
		for y := 0; y < cl.height; y++ {
			pos[cl.y] = y
			for x := 0; x < cl.width; x++ {
				pos[cl.x] = x
				rgb := uint32(read(x + y*cl.width))
				pos[cl.ch] = 3 * c
				img.Set(pos, elem.Clamp(float64((rgb>>16)&0xff)))
				pos[cl.ch] = 3*c + 1
				img.Set(pos, elem.Clamp(float64((rgb>>8)&0xff)))
				pos[cl.ch] = 3*c + 2
				img.Set(pos, elem.Clamp(float64(rgb&0xff)))
			}
		}
	})
}

// UpdateLegacyImage packs three channel samples into each legacy pixel.
func (h *ColorPixelHarmonizer) UpdateLegacyImage(ds *models.Dataset, imp *models.LegacyImage) {
	img := ds.Img()
	cl := colorLayoutOf(img, imp)
	stack := imp.Stack()

	h.run(stack.Size(), stack.Virtual(), func(k int) {
		plane := stack.Plane(k)
		c, z, t := planeCoords(k, cl.channels, cl.slices)
		pos := cl.position(img.NumDimensions(), z, t)
		for y := 0; y < cl.height; y++ {
			pos[cl.y] = y
			for x := 0; x < cl.width; x++ {
				pos[cl.x] = x
				pos[cl.ch] = 3 * c
				r := uint32(models.Clamp(img.Get(pos), 0, 255))
				pos[cl.ch] = 3*c + 1
				g := uint32(models.Clamp(img.Get(pos), 0, 255))
				pos[cl.ch] = 3*c + 2
				b := uint32(models.Clamp(img.Get(pos), 0, 255))
				plane.SetValue(x+y*cl.width, float64(0xff<<24|r<<16|g<<8|b))
			}
		}
	})
}
