package translate

import (
	"image-bridge/internal/models"
)

// CompositeHarmonizer maps the legacy composite state onto the dataset's
// composite channel count and back. Only legacy images with 2 to 7
// channels are ever promoted to composite.
type CompositeHarmonizer struct{}

func (CompositeHarmonizer) UpdateDataset(ds *models.Dataset, imp *models.LegacyImage) {
	img := ds.Img()
	count := 1
	if img.AxisIndex(models.AxisChannel) >= 0 {
		switch {
		case imp.IsComposite() && imp.CompositeMode() == models.CompositeBlend:
			count = imp.Channels()
		case imp.Type() == models.ColorRGB && imp.Channels() == 1:
			count = 3
		}
	}
	if img.CompositeChannelCount() != count {
		img.SetCompositeChannelCount(count)
	}
}

func (CompositeHarmonizer) UpdateLegacyImage(ds *models.Dataset, imp *models.LegacyImage) {
	if !imp.IsCompositeCapable() || ds.Img().CompositeChannelCount() <= 1 {
		return
	}
	if !imp.IsComposite() || imp.CompositeMode() != models.CompositeBlend {
		imp.SetComposite(true, models.CompositeBlend)
	}
}
