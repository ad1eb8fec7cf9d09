package opencv

import (
	"fmt"
	"image"

	"image-bridge/internal/models"

	"gocv.io/x/gocv"
)

// Filter names accepted by ApplyFilter.
const (
	FilterGaussian = "gaussian"
	FilterMedian   = "median"
)

// ApplyFilter runs the named filter in place on stack plane index of imp.
// size is the odd kernel width.
func ApplyFilter(imp *models.LegacyImage, index int, name string, size int) error {
	if size < 3 || size%2 == 0 {
		return fmt.Errorf("kernel size must be odd and at least 3, got %d", size)
	}

	src, err := PlaneToMat(imp, index)
	if err != nil {
		return fmt.Errorf("%s filter: %w", name, err)
	}
	defer src.Close()

	dst, err := NewMat(src.Rows(), src.Cols(), src.Raw().Type())
	if err != nil {
		return fmt.Errorf("%s filter: %w", name, err)
	}
	defer dst.Close()

	switch name {
	case FilterGaussian:
		gocv.GaussianBlur(*src.Raw(), dst.Raw(), image.Point{X: size, Y: size}, 0, 0, gocv.BorderDefault)
	case FilterMedian:
		if src.Channels() == 1 && size > 5 {
			// Float mats only support median kernels of 3 and 5.
			size = 5
		}
		gocv.MedianBlur(*src.Raw(), dst.Raw(), size)
	default:
		return fmt.Errorf("unknown filter %q", name)
	}

	if err := MatToPlane(dst, imp, index); err != nil {
		return fmt.Errorf("%s filter: %w", name, err)
	}
	return nil
}

// BlurCurrentPlane applies a Gaussian blur to the plane under the cursor.
func BlurCurrentPlane(imp *models.LegacyImage, size int) error {
	return ApplyFilter(imp, imp.CurrentIndex(), FilterGaussian, size)
}
