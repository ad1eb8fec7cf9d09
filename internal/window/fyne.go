package window

import (
	"fmt"
	"sync"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/widget"

	"image-bridge/internal/models"
)

// ClosedFunc is told when the user closes a legacy window.
type ClosedFunc func(imp *models.LegacyImage)

type legacyWindow struct {
	window fyne.Window
	image  *canvas.Image
	status *widget.Label
}

// FyneManager shows each legacy image in its own fyne window. All methods
// must be called on the fyne main goroutine.
type FyneManager struct {
	app      fyne.App
	size     fyne.Size
	onClosed ClosedFunc

	mu      sync.Mutex
	windows map[*models.LegacyImage]*legacyWindow
}

func NewFyneManager(app fyne.App, width, height float32, onClosed ClosedFunc) *FyneManager {
	return &FyneManager{
		app:      app,
		size:     fyne.NewSize(width, height),
		onClosed: onClosed,
		windows:  make(map[*models.LegacyImage]*legacyWindow),
	}
}

func (m *FyneManager) Show(imp *models.LegacyImage) error {
	m.mu.Lock()
	if lw, ok := m.windows[imp]; ok {
		m.mu.Unlock()
		lw.window.Show()
		m.Refresh(imp)
		return nil
	}
	m.mu.Unlock()

	img := canvas.NewImageFromImage(Render(imp))
	img.FillMode = canvas.ImageFillContain
	img.ScaleMode = canvas.ImageScalePixels
	img.SetMinSize(m.size)

	status := widget.NewLabel(statusText(imp))
	w := m.app.NewWindow(imp.Title())
	w.SetContent(container.NewBorder(nil, status, nil, nil, img))
	w.Resize(m.size)

	lw := &legacyWindow{window: w, image: img, status: status}
	w.SetOnClosed(func() {
		m.mu.Lock()
		delete(m.windows, imp)
		m.mu.Unlock()
		imp.MarkClosed()
		if m.onClosed != nil {
			m.onClosed(imp)
		}
	})

	m.mu.Lock()
	m.windows[imp] = lw
	m.mu.Unlock()

	w.Show()
	return nil
}

func (m *FyneManager) Refresh(imp *models.LegacyImage) {
	m.mu.Lock()
	lw, ok := m.windows[imp]
	m.mu.Unlock()
	if !ok {
		return
	}

	lw.window.SetTitle(imp.Title())
	lw.image.Image = Render(imp)
	lw.image.Refresh()
	lw.status.SetText(statusText(imp))
}

func (m *FyneManager) Dispose(imp *models.LegacyImage) error {
	m.mu.Lock()
	lw, ok := m.windows[imp]
	delete(m.windows, imp)
	m.mu.Unlock()
	if !ok {
		return ErrWindowClosed
	}

	lw.window.SetOnClosed(nil)
	lw.window.Close()
	imp.MarkClosed()
	return nil
}

func (m *FyneManager) IsOpen(imp *models.LegacyImage) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.windows[imp]
	return ok
}

func statusText(imp *models.LegacyImage) string {
	c, z, t := imp.Position()
	return fmt.Sprintf("%dx%d %s  c %d/%d  z %d/%d  t %d/%d",
		imp.Width(), imp.Height(), imp.Type(),
		c+1, imp.Channels(), z+1, imp.Slices(), t+1, imp.Frames())
}
