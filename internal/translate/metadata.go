package translate

import (
	"image"

	"image-bridge/internal/models"
)

// ROIProperty is the dataset property holding the legacy region of interest.
const ROIProperty = "bridge.roi"

// MetadataHarmonizer keeps axis calibration, the dataset name and the
// region of interest in step with the legacy image.
type MetadataHarmonizer struct{}

func (MetadataHarmonizer) UpdateDataset(ds *models.Dataset, imp *models.LegacyImage) {
	img := ds.Img()
	cal := imp.Calibration()
	for i, a := range img.Axes() {
		switch a.Type {
		case models.AxisX:
			a.Scale, a.Origin, a.Unit = cal.PixelWidth, cal.XOrigin, cal.XUnit
		case models.AxisY:
			a.Scale, a.Origin, a.Unit = cal.PixelHeight, cal.YOrigin, cal.YUnit
		case models.AxisZ:
			a.Scale, a.Origin, a.Unit = cal.PixelDepth, cal.ZOrigin, cal.ZUnit
		case models.AxisTime:
			a.Scale, a.Unit = cal.FrameInterval, cal.TimeUnit
		default:
			continue
		}
		if img.Axis(i) != a {
			img.SetAxis(i, a)
		}
	}
	if ds.Name() != imp.Title() {
		ds.SetName(imp.Title())
	}
	if roi := imp.ROI(); roi != nil {
		ds.SetProperty(ROIProperty, *roi)
	} else {
		ds.DeleteProperty(ROIProperty)
	}
}

func (MetadataHarmonizer) UpdateLegacyImage(ds *models.Dataset, imp *models.LegacyImage) {
	cal := imp.Calibration()
	for _, a := range ds.Img().Axes() {
		switch a.Type {
		case models.AxisX:
			cal.PixelWidth, cal.XOrigin, cal.XUnit = a.Scale, a.Origin, a.Unit
		case models.AxisY:
			cal.PixelHeight, cal.YOrigin, cal.YUnit = a.Scale, a.Origin, a.Unit
		case models.AxisZ:
			cal.PixelDepth, cal.ZOrigin, cal.ZUnit = a.Scale, a.Origin, a.Unit
		case models.AxisTime:
			cal.FrameInterval, cal.TimeUnit = a.Scale, a.Unit
		}
	}
	if cal != imp.Calibration() {
		imp.SetCalibration(cal)
	}
	if imp.Title() != ds.Name() {
		imp.SetTitle(ds.Name())
	}
	imp.SetROI(roiOf(ds, imp))
}

// roiOf returns the dataset's region of interest clipped to the legacy
// plane, or nil when there is none left.
func roiOf(ds *models.Dataset, imp *models.LegacyImage) *image.Rectangle {
	v, ok := ds.Property(ROIProperty)
	if !ok {
		return nil
	}
	r, ok := v.(image.Rectangle)
	if !ok {
		return nil
	}
	w, h, _, _, _ := imp.Dimensions()
	r = r.Intersect(image.Rect(0, 0, w, h))
	if r.Empty() {
		return nil
	}
	return &r
}
