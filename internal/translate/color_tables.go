package translate

import (
	"fmt"

	"image-bridge/internal/logger"
	"image-bridge/internal/models"
)

// ColorTableHarmonizer converts legacy LUTs to dataset color tables and
// back, and keeps display ranges and the composite sub-mode consistent.
type ColorTableHarmonizer struct {
	log logger.Logger
}

func NewColorTableHarmonizer(log logger.Logger) *ColorTableHarmonizer {
	return &ColorTableHarmonizer{log: log}
}

// UpdateDisplay pushes LUTs, color mode and display ranges to the display.
func (h *ColorTableHarmonizer) UpdateDisplay(display *models.Display, imp *models.LegacyImage) {
	img := display.Dataset().Img()

	tables := legacyColorTables(imp)
	if !sameTables(img.ColorTables(), tables) {
		img.SetColorTables(tables)
	}

	mode := models.ModeGrayscale
	switch {
	case imp.IsComposite():
		mode = displayMode(imp.CompositeMode())
	case imp.Type() == models.ColorRGB:
		mode = models.ModeComposite
	case !imp.LUT().IsGray():
		mode = models.ModeColor
	}
	if display.ColorMode() != mode {
		display.SetColorMode(mode)
	}

	h.updateDisplayRanges(display, imp)
}

func (h *ColorTableHarmonizer) updateDisplayRanges(display *models.Display, imp *models.LegacyImage) {
	elem := display.Dataset().Img().Element()
	signed := imp.Calibration().Signed16

	for c := 0; c < display.ChannelCount(); c++ {
		min, max := imp.DisplayRange()
		if imp.IsComposite() && c < imp.Channels() {
			min, max = imp.ChannelDisplayRange(c)
		}
		if signed {
			min -= models.Signed16Bias
			max -= models.Signed16Bias
		}
		if min > max {
			h.log.Error("ColorTableHarmonizer", fmt.Errorf("display range min %g exceeds max %g", min, max), map[string]interface{}{
				"image":   imp.Title(),
				"channel": c,
			})
			continue
		}
		min, max = elem.Clamp(min), elem.Clamp(max)
		if cmin, cmax := display.ChannelRange(c); cmin != min || cmax != max {
			display.SetChannelRange(c, min, max)
		}
	}
}

// UpdateLegacyImage pushes color tables, composite sub-mode and display
// ranges to the legacy image.
func (h *ColorTableHarmonizer) UpdateLegacyImage(display *models.Display, imp *models.LegacyImage) {
	img := display.Dataset().Img()
	tables := img.ColorTables()

	switch {
	case imp.Type() == models.ColorRGB:
	case imp.IsComposite():
		channels := imp.Channels()
		for c, current := range imp.ChannelLUTs() {
			table := tableFor(tables, c)
			if table == nil {
				table = models.DefaultColorTable(c)
			}
			lut := tableToLUT(table)
			lut.Min, lut.Max = current.Min, current.Max
			if !lut.Equal(current) {
				imp.SetChannelLUT(c, lut)
			}
		}

		missing := len(tables) == 0 || (len(tables) > 1 && len(tables) < channels)
		mode := models.CompositeColor
		switch {
		case img.CompositeChannelCount() > 1 || missing:
			mode = models.CompositeBlend
		case allGray(imp.ChannelLUTs()):
			mode = models.CompositeGrayscale
		}
		if imp.CompositeMode() != mode {
			imp.SetComposite(true, mode)
		}
	default:
		table := tableFor(tables, 0)
		if table == nil {
			table = models.GrayTable
		}
		lut := tableToLUT(table)
		current := imp.LUT()
		lut.Min, lut.Max = current.Min, current.Max
		if !lut.Equal(current) {
			imp.SetLUT(lut)
		}
	}

	h.updateLegacyRanges(display, imp)
}

func (h *ColorTableHarmonizer) updateLegacyRanges(display *models.Display, imp *models.LegacyImage) {
	bias := 0.0
	if imp.Calibration().Signed16 {
		bias = models.Signed16Bias
	}

	if imp.IsComposite() {
		for c := 0; c < imp.Channels() && c < display.ChannelCount(); c++ {
			min, max := display.ChannelRange(c)
			min, max = min+bias, max+bias
			if cmin, cmax := imp.ChannelDisplayRange(c); cmin != min || cmax != max {
				imp.SetChannelDisplayRange(c, min, max)
			}
		}
		return
	}

	min, max := display.ChannelRange(0)
	min, max = min+bias, max+bias
	if cmin, cmax := imp.DisplayRange(); cmin != min || cmax != max {
		imp.SetDisplayRange(min, max)
	}
}

// legacyColorTables builds the tables implied by the legacy LUTs: three
// ramps per packed RGB channel, one per composite channel, or the single
// LUT.
func legacyColorTables(imp *models.LegacyImage) []*models.ColorTable {
	switch {
	case imp.Type() == models.ColorRGB:
		tables := make([]*models.ColorTable, 0, 3*imp.Channels())
		for c := 0; c < imp.Channels(); c++ {
			tables = append(tables, models.RedTable, models.GreenTable, models.BlueTable)
		}
		return tables
	case imp.IsComposite():
		luts := imp.ChannelLUTs()
		tables := make([]*models.ColorTable, len(luts))
		for i, lut := range luts {
			tables[i] = lutToTable(lut)
		}
		return tables
	}
	return []*models.ColorTable{lutToTable(imp.LUT())}
}

// tableFor returns the table of channel c: a single table is shared by all
// channels.
func tableFor(tables []*models.ColorTable, c int) *models.ColorTable {
	if len(tables) == 1 {
		return tables[0]
	}
	if c < len(tables) {
		return tables[c]
	}
	return nil
}

func lutToTable(lut *models.LUT) *models.ColorTable {
	t := &models.ColorTable{
		Name:  "lut",
		Red:   make([]uint8, 256),
		Green: make([]uint8, 256),
		Blue:  make([]uint8, 256),
	}
	copy(t.Red, lut.Reds[:])
	copy(t.Green, lut.Greens[:])
	copy(t.Blue, lut.Blues[:])
	return t
}

// tableToLUT resamples a table of any length to 256 entries.
func tableToLUT(t *models.ColorTable) *models.LUT {
	lut := &models.LUT{}
	n := t.Len()
	for i := 0; i < 256; i++ {
		j := 0
		if n > 1 {
			j = i * (n - 1) / 255
		}
		lut.Reds[i], lut.Greens[i], lut.Blues[i] = t.Red[j], t.Green[j], t.Blue[j]
	}
	return lut
}

func sameTables(a, b []*models.ColorTable) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !a[i].Equal(b[i]) {
			return false
		}
	}
	return true
}

func allGray(luts []*models.LUT) bool {
	for _, lut := range luts {
		if !lut.IsGray() {
			return false
		}
	}
	return len(luts) > 0
}

func displayMode(m models.CompositeMode) models.ColorMode {
	switch m {
	case models.CompositeColor:
		return models.ModeColor
	case models.CompositeGrayscale:
		return models.ModeGrayscale
	}
	return models.ModeComposite
}
