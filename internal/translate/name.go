package translate

import "image-bridge/internal/models"

// NameHarmonizer syncs the display name with the legacy title.
type NameHarmonizer struct{}

func (NameHarmonizer) UpdateDisplay(display *models.Display, imp *models.LegacyImage) {
	if display.Name() != imp.Title() {
		display.SetName(imp.Title())
	}
}

func (NameHarmonizer) UpdateLegacyImage(display *models.Display, imp *models.LegacyImage) {
	if imp.Title() != display.Name() {
		imp.SetTitle(display.Name())
	}
}
