package main

import (
	"fmt"
	"io"
	"math"

	"image-bridge/internal/eventbus"
	"image-bridge/internal/imagemap"
	"image-bridge/internal/models"
	"image-bridge/internal/opencv"
)

const (
	demoSize     = 128
	demoChannels = 2
	demoSlices   = 3
	blurKernel   = 5
)

// newDemoDataset builds an X, Y, Channel, Z uint16 dataset with one ring
// pattern per channel and slice.
func newDemoDataset(name string) (*models.Dataset, error) {
	dims := []int{demoSize, demoSize, demoChannels, demoSlices}
	axes := []models.Axis{
		models.NewAxis(models.AxisX),
		models.NewAxis(models.AxisY),
		models.NewAxis(models.AxisChannel),
		models.NewAxis(models.AxisZ),
	}
	img, err := models.NewImg(models.Uint16, dims, axes)
	if err != nil {
		return nil, err
	}

	pos := make([]int, len(dims))
	center := float64(demoSize) / 2
	for k := 0; k < img.NumPlanes(); k++ {
		img.PlanePosition(k, pos)
		c, z := pos[2], pos[3]
		period := 6 + 4*float64(z) + 3*float64(c)
		plane := img.Plane(k)
		for y := 0; y < demoSize; y++ {
			for x := 0; x < demoSize; x++ {
				r := math.Hypot(float64(x)-center, float64(y)-center)
				v := (math.Sin(r/period) + 1) * 20000 * float64(c+1)
				plane.SetValue(y*demoSize+x, models.Uint16.Clamp(v))
			}
		}
	}

	ds := models.NewDataset(name, img)
	img.SetCompositeChannelCount(demoChannels)
	img.SetColorTables([]*models.ColorTable{models.DefaultColorTable(0), models.DefaultColorTable(1)})
	return ds, nil
}

// addDataset registers a fresh demo dataset with the current mode.
func (b *bridge) addDataset() (*models.Display, error) {
	ds, err := newDemoDataset(fmt.Sprintf("rings-%d", len(b.displays.Displays())+1))
	if err != nil {
		return nil, err
	}
	display, _, err := b.session.RegisterDataset(ds)
	if err != nil {
		return nil, err
	}
	display.SetColorMode(models.ModeComposite)
	b.displays.SetActiveDisplay(display)
	b.bus.Publish(eventbus.Event{Type: eventbus.DisplayUpdated, Display: display})
	return display, nil
}

// nextSlice advances Z on the authoritative side of the active pairing.
func (b *bridge) nextSlice() {
	display := b.displays.ActiveDisplay()
	if display == nil {
		return
	}

	if b.session.Mode() == imagemap.ModeLegacy {
		imp := b.session.LookupLegacyImage(display)
		if imp == nil {
			return
		}
		c, z, t := imp.Position()
		imp.SetPosition(c, (z+1)%imp.Slices(), t)
		b.bus.Publish(eventbus.Event{Type: eventbus.LegacyChanged, Legacy: imp})
		return
	}

	img := display.Dataset().Img()
	zi := img.AxisIndex(models.AxisZ)
	if zi < 0 {
		return
	}
	display.SetPosition(zi, (display.Position()[zi]+1)%img.Dim(zi))
	b.bus.Publish(eventbus.Event{Type: eventbus.DisplayUpdated, Display: display})
}

// blurActive blurs the current legacy plane of the active display and
// pushes the result back to the dataset.
func (b *bridge) blurActive() error {
	display := b.displays.ActiveDisplay()
	if display == nil {
		return nil
	}
	imp, err := b.session.RegisterDisplay(display)
	if err != nil {
		return err
	}
	if err := opencv.BlurCurrentPlane(imp, blurKernel); err != nil {
		return err
	}
	b.bus.Publish(eventbus.Event{Type: eventbus.LegacyChanged, Legacy: imp})
	return nil
}

func (b *bridge) sweep() int {
	return b.session.Map().Sweep()
}

func (b *bridge) toggleMode() (imagemap.Mode, error) {
	return b.session.ToggleMode()
}

// runDemo walks one dataset through both modes.
func runDemo(b *bridge, out io.Writer) error {
	if _, err := b.addDataset(); err != nil {
		return err
	}
	b.bus.Flush()
	fmt.Fprintln(out, b.status())

	steps := []struct {
		name string
		run  func() error
	}{
		{"enter legacy mode", func() error { _, err := b.toggleMode(); return err }},
		{"next slice", func() error { b.nextSlice(); return nil }},
		{"blur", b.blurActive},
		{"leave legacy mode", func() error { _, err := b.toggleMode(); return err }},
		{"sweep", func() error { b.sweep(); return nil }},
	}
	for _, step := range steps {
		if err := step.run(); err != nil {
			return fmt.Errorf("%s: %w", step.name, err)
		}
		b.bus.Flush()
		b.queue.Join()
		fmt.Fprintf(out, "%-18s %s\n", step.name+":", b.status())
	}
	return b.session.Map().Validate()
}
