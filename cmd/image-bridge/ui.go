package main

import (
	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/widget"
)

// controlWindow is the main window: one button per bridge action and a
// status line.
type controlWindow struct {
	window fyne.Window
	status *widget.Label
	mode   *widget.Button
	b      *bridge
}

func newControlWindow(a fyne.App, b *bridge) *controlWindow {
	cw := &controlWindow{
		window: a.NewWindow(AppName),
		status: widget.NewLabel(""),
		b:      b,
	}

	cw.mode = widget.NewButton(cw.modeLabel(), cw.onToggleMode)
	buttons := container.NewGridWithColumns(5,
		widget.NewButton("New dataset", cw.onAddDataset),
		cw.mode,
		widget.NewButton("Next slice", cw.run(func() error { b.nextSlice(); return nil })),
		widget.NewButton("Blur", cw.run(b.blurActive)),
		widget.NewButton("Sweep", cw.run(func() error { b.sweep(); return nil })),
	)

	cw.window.SetContent(container.NewVBox(buttons, widget.NewSeparator(), cw.status))
	cw.window.Resize(fyne.NewSize(b.cfg.Window.Width, 120))
	cw.refreshStatus()
	return cw
}

func (cw *controlWindow) modeLabel() string {
	return "Mode: " + cw.b.session.Mode().String()
}

func (cw *controlWindow) run(action func() error) func() {
	return func() {
		if err := action(); err != nil {
			cw.b.log.Error("ControlWindow", err, nil)
			dialog.ShowError(err, cw.window)
		}
		cw.refreshStatus()
	}
}

func (cw *controlWindow) onAddDataset() {
	cw.run(func() error {
		_, err := cw.b.addDataset()
		return err
	})()
}

func (cw *controlWindow) onToggleMode() {
	cw.run(func() error {
		_, err := cw.b.toggleMode()
		return err
	})()
	cw.mode.SetText(cw.modeLabel())
}

func (cw *controlWindow) refreshStatus() {
	cw.status.SetText(cw.b.status())
}
