package translate

import (
	"fmt"
	"sync"

	"image-bridge/internal/logger"
	"image-bridge/internal/models"
)

// ScratchPool recycles the buffers used to save the current plane.
type ScratchPool interface {
	Get(n int) []float64
	Put(buf []float64) bool
}

type noPool struct{}

func (noPool) Get(n int) []float64 { return make([]float64, n) }
func (noPool) Put([]float64) bool  { return false }

// Harmonizer propagates changes between paired legacy images and displays.
type Harmonizer struct {
	tk      *Toolkit
	display *DisplayCreator
	legacy  *LegacyCreator
	scratch ScratchPool
	log     logger.Logger

	mu        sync.Mutex
	bitDepths map[*models.LegacyImage]int
}

// NewHarmonizer wires the orchestrator around a shared toolkit. A nil pool
// allocates a fresh buffer per save.
func NewHarmonizer(tk *Toolkit, scratch ScratchPool, log logger.Logger) *Harmonizer {
	if scratch == nil {
		scratch = noPool{}
	}
	return &Harmonizer{
		tk:        tk,
		display:   NewDisplayCreator(tk),
		legacy:    NewLegacyCreator(tk),
		scratch:   scratch,
		log:       log,
		bitDepths: make(map[*models.LegacyImage]int),
	}
}

func (h *Harmonizer) DisplayCreator() *DisplayCreator { return h.display }
func (h *Harmonizer) LegacyCreator() *LegacyCreator   { return h.legacy }

// UpdateLegacyImage rebuilds the legacy stack from the display's dataset
// and reapplies metadata, color tables, position and name. The identity of
// imp is preserved.
func (h *Harmonizer) UpdateLegacyImage(display *models.Display, imp *models.LegacyImage) error {
	if display == nil || imp == nil {
		return fmt.Errorf("update legacy image: %w", models.ErrNilImage)
	}
	fresh, err := h.legacy.CreateLegacyImage(display.Dataset(), display)
	if err != nil {
		return fmt.Errorf("update legacy image %q: %w", imp.Title(), err)
	}
	wasComposite, mode := imp.IsComposite(), imp.CompositeMode()
	imp.Adopt(fresh)
	// Color and Grayscale composites leave a composite channel count of one
	// on the dataset, so the rebuild alone cannot tell them from a plain
	// multichannel image.
	if wasComposite && !imp.IsComposite() && imp.IsCompositeCapable() {
		imp.SetComposite(true, mode)
	}

	ds := display.Dataset()
	h.tk.Metadata.UpdateLegacyImage(ds, imp)
	h.tk.Composite.UpdateLegacyImage(ds, imp)
	h.tk.ColorTables.UpdateLegacyImage(display, imp)
	h.tk.Position.UpdateLegacyImage(display, imp)
	h.tk.Name.UpdateLegacyImage(display, imp)

	h.log.Debug("Harmonizer", "legacy image updated", map[string]interface{}{
		"image":  imp.Title(),
		"planes": imp.Stack().Size(),
	})
	return nil
}

// UpdateDisplay pushes legacy changes into the display's dataset. A changed
// bit depth or shape rebuilds the dataset's storage in place; otherwise
// pixels are copied or shared plane by plane.
func (h *Harmonizer) UpdateDisplay(display *models.Display, imp *models.LegacyImage) error {
	if display == nil || imp == nil {
		return fmt.Errorf("update display: %w", models.ErrNilImage)
	}
	ds := display.Dataset()

	h.saveCurrentPlane(imp)
	defer h.releaseSavedPlane()

	if h.typeChanged(imp) || !h.shapeMatches(ds, imp) {
		fresh, err := h.display.CreateDataset(imp)
		if err != nil {
			return fmt.Errorf("update display %q: %w", display.Name(), err)
		}
		ds.SetImg(fresh.Img())
		ds.SetRGBMerged(fresh.RGBMerged())
		display.Reset()
		h.RegisterType(imp)
		h.log.Info("Harmonizer", "dataset rebuilt", map[string]interface{}{
			"image":     imp.Title(),
			"bit_depth": imp.BitDepth(),
		})
	} else {
		switch {
		case imp.Type() == models.ColorRGB:
			h.tk.Color.UpdateDataset(ds, imp)
		case h.tk.Planes.Compatible(ds, imp):
			h.tk.Planes.UpdateDataset(ds, imp)
		default:
			h.tk.Gray.UpdateDataset(ds, imp)
		}
	}

	h.tk.Metadata.UpdateDataset(ds, imp)
	h.tk.Composite.UpdateDataset(ds, imp)
	h.tk.ColorTables.UpdateDisplay(display, imp)
	h.tk.Position.UpdateDisplay(display, imp)
	h.tk.Name.UpdateDisplay(display, imp)
	return nil
}

// RegisterType records the current bit depth of imp.
func (h *Harmonizer) RegisterType(imp *models.LegacyImage) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.bitDepths[imp] = imp.BitDepth()
}

// ResetTypeTracking forgets every recorded bit depth.
func (h *Harmonizer) ResetTypeTracking() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.bitDepths = make(map[*models.LegacyImage]int)
}

// TrackedBitDepth returns the bit depth recorded for imp.
func (h *Harmonizer) TrackedBitDepth(imp *models.LegacyImage) (int, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	depth, ok := h.bitDepths[imp]
	return depth, ok
}

// Forget drops the bit depth recorded for imp.
func (h *Harmonizer) Forget(imp *models.LegacyImage) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.bitDepths, imp)
}

func (h *Harmonizer) typeChanged(imp *models.LegacyImage) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	depth, ok := h.bitDepths[imp]
	return ok && depth != imp.BitDepth()
}

// shapeMatches reports whether ds already has the layout imp would produce.
func (h *Harmonizer) shapeMatches(ds *models.Dataset, imp *models.LegacyImage) bool {
	img := ds.Img()
	if img == nil || !DimensionsCompatible(ds) {
		return false
	}
	colorPath := imp.Type() == models.ColorRGB && imp.Channels() == 1
	if ds.RGBMerged() != colorPath {
		return false
	}

	w, hgt, c, z, t := imp.Dimensions()
	ld := LegacyDimsOf(ds)
	if imp.Type() == models.ColorRGB && !colorPath {
		c *= 3
	}
	if ld.Width != w || ld.Height != hgt || ld.Channels != c || ld.Slices != z || ld.Frames != t {
		return false
	}

	want := models.Uint8
	if imp.Type() != models.ColorRGB {
		want = elementFor(imp)
	}
	return img.Element().Kind == want.Kind
}

func (h *Harmonizer) saveCurrentPlane(imp *models.LegacyImage) {
	plane := imp.CurrentPlane()
	buf := models.PlaneValues(plane, h.scratch.Get(plane.Len()))
	h.tk.SavePlane(imp.CurrentIndex(), buf)
}

func (h *Harmonizer) releaseSavedPlane() {
	if buf := h.tk.ClearSavedPlane(); buf != nil {
		h.scratch.Put(buf)
	}
}
