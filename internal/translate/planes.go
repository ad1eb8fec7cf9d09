package translate

import (
	"image-bridge/internal/models"
)

// PlaneHarmonizer shares plane buffers by reference between a legacy stack
// and a Dataset when both use the same storage layout.
type PlaneHarmonizer struct{}

// Compatible reports whether ds and imp can share planes.
func (PlaneHarmonizer) Compatible(ds *models.Dataset, imp *models.LegacyImage) bool {
	if !IsPlaneCompatible(ds) || imp.Stack().Virtual() || imp.Calibration().Signed16 {
		return false
	}
	pt, _ := sharedPixelType(ds.Img().Element())
	if pt != imp.Type() {
		return false
	}
	ld := LegacyDimsOf(ds)
	w, h, c, z, t := imp.Dimensions()
	return ld.Width == w && ld.Height == h && ld.Channels == c && ld.Slices == z && ld.Frames == t
}

// UpdateDataset points every Dataset plane at the matching legacy plane.
func (PlaneHarmonizer) UpdateDataset(ds *models.Dataset, imp *models.LegacyImage) {
	img := ds.Img()
	ld := LegacyDimsOf(ds)
	mustMatch("shared planes to dataset", imp, ld.Width, ld.Height, ld.Channels, ld.Slices, ld.Frames)

	pos := make([]int, img.NumDimensions())
	stack := imp.Stack()
	for k := 0; k < stack.Size(); k++ {
		c, z, t := planeCoords(k, ld.Channels, ld.Slices)
		legacyPosition(img, ld, c, z, t, pos)
		idx := img.PlaneIndex(pos)
		if img.Plane(idx) != stack.Plane(k) {
			img.SetPlane(idx, stack.Plane(k))
		}
	}
}

// UpdateLegacyImage points every legacy plane at the matching Dataset plane.
func (PlaneHarmonizer) UpdateLegacyImage(ds *models.Dataset, imp *models.LegacyImage) {
	img := ds.Img()
	ld := LegacyDimsOf(ds)
	mustMatch("shared planes to legacy", imp, ld.Width, ld.Height, ld.Channels, ld.Slices, ld.Frames)

	pos := make([]int, img.NumDimensions())
	stack := imp.Stack()
	for k := 0; k < stack.Size(); k++ {
		c, z, t := planeCoords(k, ld.Channels, ld.Slices)
		legacyPosition(img, ld, c, z, t, pos)
		plane := img.Plane(img.PlaneIndex(pos))
		if stack.Plane(k) != plane {
			stack.SetPlane(k, plane)
		}
	}
}
