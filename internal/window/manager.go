// Package window owns the lifecycle of legacy image windows.
package window

import (
	"errors"
	"sync"

	"image-bridge/internal/models"
)

var ErrWindowClosed = errors.New("window already closed")

// Manager creates, refreshes and disposes legacy windows. Dispose must run
// on the owner thread.
type Manager interface {
	Show(imp *models.LegacyImage) error
	Refresh(imp *models.LegacyImage)
	Dispose(imp *models.LegacyImage) error
	IsOpen(imp *models.LegacyImage) bool
}

// Headless tracks windows without drawing them.
type Headless struct {
	mu       sync.Mutex
	open     map[*models.LegacyImage]bool
	rendered map[*models.LegacyImage]int
	render   bool
}

// NewHeadless creates a manager; with render set, Show and Refresh draw the
// current plane so callers can count renders.
func NewHeadless(render bool) *Headless {
	return &Headless{
		open:     make(map[*models.LegacyImage]bool),
		rendered: make(map[*models.LegacyImage]int),
		render:   render,
	}
}

func (h *Headless) Show(imp *models.LegacyImage) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.open[imp] = true
	h.draw(imp)
	return nil
}

func (h *Headless) Refresh(imp *models.LegacyImage) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.open[imp] {
		h.draw(imp)
	}
}

func (h *Headless) draw(imp *models.LegacyImage) {
	if h.render {
		Render(imp)
	}
	h.rendered[imp]++
}

// Dispose closes the window and marks imp closed.
func (h *Headless) Dispose(imp *models.LegacyImage) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if !h.open[imp] {
		return ErrWindowClosed
	}
	delete(h.open, imp)
	imp.MarkClosed()
	return nil
}

// Close simulates the user closing the window.
func (h *Headless) Close(imp *models.LegacyImage) {
	h.mu.Lock()
	defer h.mu.Unlock()

	delete(h.open, imp)
	imp.MarkClosed()
}

func (h *Headless) IsOpen(imp *models.LegacyImage) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.open[imp]
}

// Renders reports how many times imp was drawn.
func (h *Headless) Renders(imp *models.LegacyImage) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.rendered[imp]
}
