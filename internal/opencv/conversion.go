package opencv

import (
	"fmt"

	"image-bridge/internal/models"

	"gocv.io/x/gocv"
)

// PlaneToMat copies stack plane index of imp into a new mat. Gray planes
// become CV_32FC1 holding the raw stored values; RGB planes become CV_8UC3
// in BGR order.
func PlaneToMat(imp *models.LegacyImage, index int) (*Mat, error) {
	if imp == nil {
		return nil, models.ErrNilImage
	}
	if index < 0 || index >= imp.Stack().Size() {
		return nil, fmt.Errorf("plane %d out of range [0, %d)", index, imp.Stack().Size())
	}

	w, h := imp.Width(), imp.Height()
	plane := imp.Stack().Plane(index)

	if imp.Type() == models.ColorRGB {
		m, err := NewMat(h, w, gocv.MatTypeCV8UC3)
		if err != nil {
			return nil, err
		}
		raw := m.Raw()
		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				rgb := uint32(plane.Value(y*w + x))
				raw.SetUCharAt3(y, x, 0, uint8(rgb))
				raw.SetUCharAt3(y, x, 1, uint8(rgb>>8))
				raw.SetUCharAt3(y, x, 2, uint8(rgb>>16))
			}
		}
		return m, nil
	}

	m, err := NewMat(h, w, gocv.MatTypeCV32FC1)
	if err != nil {
		return nil, err
	}
	raw := m.Raw()
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			raw.SetFloatAt(y, x, float32(plane.Value(y*w+x)))
		}
	}
	return m, nil
}

// MatToPlane writes src back into stack plane index of imp, clamping gray
// values to the legacy range of the image type.
func MatToPlane(src *Mat, imp *models.LegacyImage, index int) error {
	if err := ValidateMat(src, "mat to plane"); err != nil {
		return err
	}
	w, h := imp.Width(), imp.Height()
	if src.Cols() != w || src.Rows() != h {
		return fmt.Errorf("mat is %dx%d, image is %dx%d", src.Cols(), src.Rows(), w, h)
	}

	plane := imp.Stack().Plane(index)
	raw := src.Raw()

	if imp.Type() == models.ColorRGB {
		if src.Channels() != 3 {
			return fmt.Errorf("RGB plane needs 3 channels, got %d", src.Channels())
		}
		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				b := uint32(raw.GetUCharAt3(y, x, 0))
				g := uint32(raw.GetUCharAt3(y, x, 1))
				r := uint32(raw.GetUCharAt3(y, x, 2))
				plane.SetValue(y*w+x, float64(0xff<<24|r<<16|g<<8|b))
			}
		}
		imp.Stack().SetPlane(index, plane)
		return nil
	}

	if src.Channels() != 1 {
		return fmt.Errorf("gray plane needs 1 channel, got %d", src.Channels())
	}
	lo, hi := imp.Type().Range()
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			v := float64(raw.GetFloatAt(y, x))
			plane.SetValue(y*w+x, models.Clamp(v, lo, hi))
		}
	}
	imp.Stack().SetPlane(index, plane)
	return nil
}
