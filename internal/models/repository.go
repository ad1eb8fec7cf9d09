package models

import (
	"sync"
)

// DisplayRepository tracks the open displays and the selection state the
// legacy side relies on: the active legacy image and a temporary active
// pointer set while a command runs against a specific image.
type DisplayRepository struct {
	mu              sync.RWMutex
	displays        []*Display
	activeDisplay   *Display
	activeLegacy    *LegacyImage
	temporaryActive *LegacyImage
}

// NewDisplayRepository creates an empty repository
func NewDisplayRepository() *DisplayRepository {
	return &DisplayRepository{
		displays: make([]*Display, 0),
	}
}

// Add registers a display and makes it active
func (r *DisplayRepository) Add(d *Display) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.displays {
		if existing == d {
			r.activeDisplay = d
			return
		}
	}
	r.displays = append(r.displays, d)
	r.activeDisplay = d
}

// Remove drops a display; the active display falls back to the last one left
func (r *DisplayRepository) Remove(d *Display) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i, existing := range r.displays {
		if existing == d {
			r.displays = append(r.displays[:i], r.displays[i+1:]...)
			break
		}
	}
	if r.activeDisplay == d {
		r.activeDisplay = nil
		if n := len(r.displays); n > 0 {
			r.activeDisplay = r.displays[n-1]
		}
	}
}

// Displays returns a snapshot of every registered display
func (r *DisplayRepository) Displays() []*Display {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*Display, len(r.displays))
	copy(out, r.displays)
	return out
}

func (r *DisplayRepository) ActiveDisplay() *Display {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.activeDisplay
}

func (r *DisplayRepository) SetActiveDisplay(d *Display) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.activeDisplay = d
}

// ActiveLegacyImage prefers the temporary pointer over the window selection
func (r *DisplayRepository) ActiveLegacyImage() *LegacyImage {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.temporaryActive != nil {
		return r.temporaryActive
	}
	return r.activeLegacy
}

func (r *DisplayRepository) SetActiveLegacyImage(imp *LegacyImage) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.activeLegacy = imp
}

func (r *DisplayRepository) TemporaryActive() *LegacyImage {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.temporaryActive
}

func (r *DisplayRepository) SetTemporaryActive(imp *LegacyImage) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.temporaryActive = imp
}

// Forget clears every selection pointer referring to imp
func (r *DisplayRepository) Forget(imp *LegacyImage) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.temporaryActive == imp {
		r.temporaryActive = nil
	}
	if r.activeLegacy == imp {
		r.activeLegacy = nil
	}
}

// Stats summarizes the repository
func (r *DisplayRepository) Stats() RepositoryStats {
	r.mu.RLock()
	defer r.mu.RUnlock()

	stats := RepositoryStats{Displays: len(r.displays)}
	for _, d := range r.displays {
		img := d.Dataset().Img()
		stats.Planes += img.NumPlanes()
		stats.Bytes += int64(img.NumPlanes()) * int64(img.PlaneSize()) * int64(img.Element().BytesPerSample())
	}
	return stats
}

// RepositoryStats contains statistics about the open displays
type RepositoryStats struct {
	Displays int
	Planes   int
	Bytes    int64
}

// Shutdown closes every display
func (r *DisplayRepository) Shutdown() {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, d := range r.displays {
		d.Close()
	}
	r.displays = nil
	r.activeDisplay = nil
	r.activeLegacy = nil
	r.temporaryActive = nil
}
