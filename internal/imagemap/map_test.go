package imagemap

import (
	"errors"
	"testing"

	"image-bridge/internal/dispatch"
	"image-bridge/internal/eventbus"
	"image-bridge/internal/logger"
	"image-bridge/internal/models"
	"image-bridge/internal/translate"
	"image-bridge/internal/window"
)

type fixture struct {
	m        *Map
	windows  *window.Headless
	displays *models.DisplayRepository
	hooks    *hookedDisplays
	queue    *dispatch.Queue
}

// hookedDisplays runs onAdd after a display joins the repository, while the
// map is between the two halves of a registration.
type hookedDisplays struct {
	*models.DisplayRepository
	onAdd func(d *models.Display)
}

func (h *hookedDisplays) Add(d *models.Display) {
	h.DisplayRepository.Add(d)
	if h.onAdd != nil {
		h.onAdd(d)
	}
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	log := logger.NewNop()
	tk := translate.NewToolkit(log, 2, nil)

	f := &fixture{
		windows:  window.NewHeadless(false),
		displays: models.NewDisplayRepository(),
		queue:    dispatch.NewQueue(8, dispatch.Inline, log),
	}
	f.hooks = &hookedDisplays{DisplayRepository: f.displays}
	go f.queue.Run()
	t.Cleanup(f.queue.Stop)

	f.m = New(Options{
		Harmonizer: translate.NewHarmonizer(tk, nil, log),
		Windows:    f.windows,
		Displays:   f.hooks,
		Disposer:   f.queue,
		Logger:     log,
	})
	return f
}

func newDataset(t *testing.T, elem models.ElementType, dims []int, types ...models.AxisType) *models.Dataset {
	t.Helper()
	axes := make([]models.Axis, len(types))
	for i, at := range types {
		axes[i] = models.NewAxis(at)
	}
	img, err := models.NewImg(elem, dims, axes)
	if err != nil {
		t.Fatal(err)
	}
	return models.NewDataset("sample", img)
}

func stackDataset(t *testing.T) *models.Dataset {
	return newDataset(t, models.Int16, []int{4, 4, 2, 3}, models.AxisX, models.AxisY, models.AxisChannel, models.AxisZ)
}

func TestRegisterDatasetPairsBothWays(t *testing.T) {
	f := newFixture(t)

	display, imp, err := f.m.RegisterDataset(ModeModern, stackDataset(t))
	if err != nil {
		t.Fatal(err)
	}
	if got := f.m.LookupLegacyImage(ModeModern, display); got != imp {
		t.Errorf("LookupLegacyImage() = %p, want %p", got, imp)
	}
	if got := f.m.LookupDisplay(ModeModern, imp); got != display {
		t.Errorf("LookupDisplay() = %p, want %p", got, display)
	}
	if got := f.m.LookupDisplay(ModeLegacy, imp); got != display {
		t.Error("lookup should fall back to the other table")
	}
	if f.windows.IsOpen(imp) {
		t.Error("modern registration should not open a legacy window")
	}
	if len(f.displays.Displays()) != 1 {
		t.Errorf("repository has %d displays, want 1", len(f.displays.Displays()))
	}

	again, err := f.m.RegisterDisplay(ModeModern, display)
	if err != nil {
		t.Fatal(err)
	}
	if again != imp {
		t.Error("registering a paired display should return the existing legacy image")
	}

	pairings := f.m.Pairings()
	if len(pairings) != 1 || pairings[0].Ownership != Owned {
		t.Fatalf("Pairings() = %+v, want one owned pairing", pairings)
	}
	if err := f.m.Validate(); err != nil {
		t.Error(err)
	}
}

func TestRegisterLegacyImageInLegacyMode(t *testing.T) {
	f := newFixture(t)
	plane := models.NewLegacyPlane(models.Gray8, 4)
	stack, err := models.NewArrayStack(2, 2, []models.Plane{plane})
	if err != nil {
		t.Fatal(err)
	}
	imp, err := models.NewLegacyImage("blobs", models.Gray8, stack, 1, 1, 1)
	if err != nil {
		t.Fatal(err)
	}

	display, err := f.m.RegisterLegacyImage(ModeLegacy, imp)
	if err != nil {
		t.Fatal(err)
	}
	if display.Dataset().Img().Element() != models.Uint8 {
		t.Errorf("element = %s, want uint8", display.Dataset().Img().Element())
	}
	if got := f.m.Pairings(); len(got) != 1 || got[0].Ownership != Observed {
		t.Errorf("Pairings() = %+v, want one observed pairing", got)
	}
	if again, _ := f.m.RegisterLegacyImage(ModeLegacy, imp); again != display {
		t.Error("registering a paired image should return the existing display")
	}
}

func TestRegisterIncompatibleDataset(t *testing.T) {
	f := newFixture(t)
	ds := newDataset(t, models.Uint8, []int{4, 4}, models.AxisX, models.AxisZ)

	_, _, err := f.m.RegisterDataset(ModeModern, ds)
	if !errors.Is(err, translate.ErrIncompatibleDimensions) {
		t.Fatalf("error = %v, want ErrIncompatibleDimensions", err)
	}
	if len(f.m.Pairings()) != 0 {
		t.Error("failed registration left a pairing behind")
	}
}

func grayImage(t *testing.T, title string) *models.LegacyImage {
	t.Helper()
	stack, err := models.NewArrayStack(2, 2, []models.Plane{models.NewLegacyPlane(models.Gray8, 4)})
	if err != nil {
		t.Fatal(err)
	}
	imp, err := models.NewLegacyImage(title, models.Gray8, stack, 1, 1, 1)
	if err != nil {
		t.Fatal(err)
	}
	return imp
}

func TestRegistrationCycle(t *testing.T) {
	t.Run("display", func(t *testing.T) {
		f := newFixture(t)
		display := models.NewDisplay(stackDataset(t))
		var nested error
		f.hooks.onAdd = func(d *models.Display) {
			_, nested = f.m.RegisterDisplay(ModeModern, d)
		}

		imp, err := f.m.RegisterDisplay(ModeModern, display)
		if err != nil {
			t.Fatal(err)
		}
		if !errors.Is(nested, ErrRegistrationCycle) {
			t.Fatalf("nested registration error = %v, want ErrRegistrationCycle", nested)
		}
		if got := f.m.LookupLegacyImage(ModeModern, display); got != imp {
			t.Error("outer registration did not pair the display")
		}

		f.hooks.onAdd = nil
		if again, err := f.m.RegisterDisplay(ModeModern, display); err != nil || again != imp {
			t.Errorf("registration after the first finished = %p, %v", again, err)
		}
	})

	t.Run("legacy image", func(t *testing.T) {
		f := newFixture(t)
		imp := grayImage(t, "cycle")
		var nestedLegacy, nestedDisplay error
		f.hooks.onAdd = func(d *models.Display) {
			_, nestedLegacy = f.m.RegisterLegacyImage(ModeModern, imp)
			_, nestedDisplay = f.m.RegisterDisplay(ModeModern, d)
		}

		display, err := f.m.RegisterLegacyImage(ModeModern, imp)
		if err != nil {
			t.Fatal(err)
		}
		if !errors.Is(nestedLegacy, ErrRegistrationCycle) || !errors.Is(nestedDisplay, ErrRegistrationCycle) {
			t.Fatalf("nested errors = %v, %v, want ErrRegistrationCycle", nestedLegacy, nestedDisplay)
		}
		if p := f.m.Pairings(); len(p) != 1 || p[0].Legacy != imp || p[0].Display != display {
			t.Errorf("Pairings() = %+v, want only the outer pairing", p)
		}
	})
}

func TestRegisterDuringModeSwitch(t *testing.T) {
	tests := []struct {
		name      string
		start     Mode
		switchTo  Mode
		legacy    bool
		want      Ownership
		wantShown bool
	}{
		{"display into legacy", ModeModern, ModeLegacy, false, Observed, true},
		{"display out of legacy", ModeLegacy, ModeModern, false, Owned, false},
		{"legacy image into legacy", ModeModern, ModeLegacy, true, Observed, true},
		{"legacy image out of legacy", ModeLegacy, ModeModern, true, Owned, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			if err := f.m.SetMode(tt.start); err != nil {
				t.Fatal(err)
			}
			var switchErr error
			f.hooks.onAdd = func(*models.Display) {
				f.hooks.onAdd = nil
				switchErr = f.m.SetMode(tt.switchTo)
			}

			var imp *models.LegacyImage
			if tt.legacy {
				imp = grayImage(t, "switching")
				if _, err := f.m.RegisterLegacyImage(tt.start, imp); err != nil {
					t.Fatal(err)
				}
			} else {
				var err error
				if imp, err = f.m.RegisterDisplay(tt.start, models.NewDisplay(stackDataset(t))); err != nil {
					t.Fatal(err)
				}
			}
			if switchErr != nil {
				t.Fatal(switchErr)
			}

			p := f.m.Pairings()
			if len(p) != 1 || p[0].Legacy != imp {
				t.Fatalf("Pairings() = %+v, want one pairing of the registered image", p)
			}
			if p[0].Ownership != tt.want {
				t.Errorf("pairing is %s after the switch, want %s", p[0].Ownership, tt.want)
			}
			if f.windows.IsOpen(imp) != tt.wantShown {
				t.Errorf("IsOpen() = %v, want %v", f.windows.IsOpen(imp), tt.wantShown)
			}
			if err := f.m.Validate(); err != nil {
				t.Error(err)
			}
		})
	}
}

func TestListings(t *testing.T) {
	f := newFixture(t)
	owned, ownedImp, err := f.m.RegisterDataset(ModeModern, stackDataset(t))
	if err != nil {
		t.Fatal(err)
	}
	observed, observedImp, err := f.m.RegisterDataset(ModeLegacy, stackDataset(t))
	if err != nil {
		t.Fatal(err)
	}

	if got := f.m.Displays(ModeModern); len(got) != 2 || got[0] != owned || got[1] != observed {
		t.Errorf("Displays(modern) = %v, want owned then observed", got)
	}
	if got := f.m.Displays(ModeLegacy); len(got) != 2 || got[0] != observed || got[1] != owned {
		t.Errorf("Displays(legacy) = %v, want observed then owned", got)
	}
	if got := f.m.LegacyImages(ModeLegacy); len(got) != 2 || got[0] != observedImp || got[1] != ownedImp {
		t.Errorf("LegacyImages(legacy) = %v, want observed then owned", got)
	}

	f.m.UnregisterDisplay(owned, false)
	if got := f.m.LegacyImages(ModeModern); len(got) != 1 || got[0] != observedImp {
		t.Errorf("LegacyImages(modern) = %v after unregistering, want only %p", got, observedImp)
	}
}

func TestEnterLegacyUnlocksImages(t *testing.T) {
	f := newFixture(t)
	_, imp, err := f.m.RegisterDataset(ModeModern, stackDataset(t))
	if err != nil {
		t.Fatal(err)
	}
	imp.Lock()

	if err := f.m.SetMode(ModeLegacy); err != nil {
		t.Fatal(err)
	}
	if imp.IsLocked() {
		t.Error("entering legacy mode left the legacy image locked")
	}
}

func TestEndCommand(t *testing.T) {
	f := newFixture(t)
	_, imp, err := f.m.RegisterDataset(ModeModern, stackDataset(t))
	if err != nil {
		t.Fatal(err)
	}
	h := f.m.Harmonizer()
	stray := grayImage(t, "stray")
	h.RegisterType(stray)

	f.m.EndCommand()
	if _, ok := h.TrackedBitDepth(stray); ok {
		t.Error("unpaired image is still tracked")
	}
	if depth, ok := h.TrackedBitDepth(imp); !ok || depth != 16 {
		t.Errorf("TrackedBitDepth() = %d, %v, want 16 for the paired image", depth, ok)
	}
}

func TestModeRoundTrip(t *testing.T) {
	f := newFixture(t)
	display, imp, err := f.m.RegisterDataset(ModeModern, stackDataset(t))
	if err != nil {
		t.Fatal(err)
	}

	if err := f.m.SetMode(ModeLegacy); err != nil {
		t.Fatal(err)
	}
	if got := f.m.LookupLegacyImage(ModeLegacy, display); got != imp {
		t.Error("entering legacy mode replaced the legacy image")
	}
	if !f.windows.IsOpen(imp) {
		t.Error("entering legacy mode should open the legacy window")
	}
	if p := f.m.Pairings(); len(p) != 1 || p[0].Ownership != Observed {
		t.Fatalf("Pairings() = %+v, want one observed pairing", p)
	}

	renders := f.windows.Renders(imp)
	if err := f.m.SetMode(ModeLegacy); err != nil {
		t.Fatal(err)
	}
	if f.windows.Renders(imp) != renders {
		t.Error("repeating SetMode(legacy) touched the window")
	}

	imp.Stack().Plane(imp.StackIndex(1, 2, 0)).SetValue(0, 32768+42)

	if err := f.m.SetMode(ModeModern); err != nil {
		t.Fatal(err)
	}
	if p := f.m.Pairings(); len(p) != 1 || p[0].Ownership != Owned || p[0].Display != display {
		t.Fatalf("Pairings() = %+v, want the same pairing owned", p)
	}
	if got := display.Dataset().Img().Get([]int{0, 0, 1, 2}); got != 42 {
		t.Errorf("dataset sample = %v, want 42", got)
	}
	if err := f.m.Validate(); err != nil {
		t.Error(err)
	}
}

func TestEnterLegacySkipsIncompatibleDisplays(t *testing.T) {
	f := newFixture(t)
	f.displays.Add(models.NewDisplay(newDataset(t, models.Uint8, []int{4, 4}, models.AxisX, models.AxisZ)))

	if err := f.m.SetMode(ModeLegacy); err != nil {
		t.Fatal(err)
	}
	if len(f.m.Pairings()) != 0 {
		t.Error("incompatible display should not be paired")
	}
}

func TestLeaveLegacyDropsClosedWindows(t *testing.T) {
	f := newFixture(t)
	display, imp, err := f.m.RegisterDataset(ModeLegacy, stackDataset(t))
	if err != nil {
		t.Fatal(err)
	}
	f.windows.Close(imp)

	if err := f.m.SetMode(ModeModern); err != nil {
		t.Fatal(err)
	}
	if len(f.m.Pairings()) != 0 {
		t.Error("pairing of a closed legacy window survived")
	}
	if !display.Closed() {
		t.Error("display of a closed legacy window should be closed")
	}
	if len(f.displays.Displays()) != 0 {
		t.Error("display should leave the repository")
	}
}

func TestSweep(t *testing.T) {
	f := newFixture(t)
	_, imp, err := f.m.RegisterDataset(ModeLegacy, stackDataset(t))
	if err != nil {
		t.Fatal(err)
	}
	_, open, err := f.m.RegisterDataset(ModeLegacy, stackDataset(t))
	if err != nil {
		t.Fatal(err)
	}

	f.windows.Close(imp)
	f.displays.SetActiveLegacyImage(imp)
	if n := f.m.Sweep(); n != 0 {
		t.Errorf("Sweep() = %d with the image still selected, want 0", n)
	}

	f.displays.SetActiveLegacyImage(nil)
	if n := f.m.Sweep(); n != 1 {
		t.Errorf("Sweep() = %d, want 1", n)
	}
	if f.m.LookupDisplay(ModeLegacy, imp) != nil {
		t.Error("swept pairing is still reachable")
	}
	if f.m.LookupDisplay(ModeLegacy, open) == nil {
		t.Error("pairing with an open window was swept")
	}
}

func TestSweepKeepsOwnedPairings(t *testing.T) {
	f := newFixture(t)
	_, imp, err := f.m.RegisterDataset(ModeModern, stackDataset(t))
	if err != nil {
		t.Fatal(err)
	}
	imp.MarkClosed()

	if n := f.m.Sweep(); n != 0 {
		t.Errorf("Sweep() = %d, want 0 for owned pairings", n)
	}
}

func TestUnregisterDisplay(t *testing.T) {
	tests := []struct {
		name         string
		closeFirst   bool
		deleteLegacy bool
	}{
		{"dispose open window", false, true},
		{"window already closed", true, true},
		{"keep legacy image", false, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			display, imp, err := f.m.RegisterDataset(ModeLegacy, stackDataset(t))
			if err != nil {
				t.Fatal(err)
			}
			f.displays.SetTemporaryActive(imp)
			if tt.closeFirst {
				f.windows.Close(imp)
			}

			f.m.UnregisterDisplay(display, tt.deleteLegacy)
			f.queue.Join()

			if f.m.LookupLegacyImage(ModeLegacy, display) != nil {
				t.Error("pairing survived UnregisterDisplay")
			}
			if f.displays.TemporaryActive() != nil {
				t.Error("temporary active image was not cleared")
			}
			wantOpen := !tt.closeFirst && !tt.deleteLegacy
			if f.windows.IsOpen(imp) != wantOpen {
				t.Errorf("IsOpen() = %v, want %v", f.windows.IsOpen(imp), wantOpen)
			}
		})
	}
}

func TestUnregisterLegacyImage(t *testing.T) {
	for _, deleteDisplay := range []bool{true, false} {
		f := newFixture(t)
		display, imp, err := f.m.RegisterDataset(ModeModern, stackDataset(t))
		if err != nil {
			t.Fatal(err)
		}

		f.m.UnregisterLegacyImage(imp, deleteDisplay)

		if f.m.LookupDisplay(ModeModern, imp) != nil {
			t.Errorf("delete=%v: pairing survived", deleteDisplay)
		}
		if display.Closed() != deleteDisplay {
			t.Errorf("delete=%v: display closed = %v", deleteDisplay, display.Closed())
		}
		if got := len(f.displays.Displays()); (got == 0) != deleteDisplay {
			t.Errorf("delete=%v: repository holds %d displays", deleteDisplay, got)
		}
	}
}

func TestSessionToggle(t *testing.T) {
	f := newFixture(t)
	s := NewSession(f.m, f.windows, ModeModern, logger.NewNop())
	_, imp, err := s.RegisterDataset(stackDataset(t))
	if err != nil {
		t.Fatal(err)
	}

	mode, err := s.ToggleMode()
	if err != nil {
		t.Fatal(err)
	}
	if mode != ModeLegacy || s.Mode() != ModeLegacy {
		t.Fatalf("ToggleMode() = %s, want legacy", mode)
	}
	if !f.windows.IsOpen(imp) {
		t.Error("legacy window not shown after toggling")
	}

	if mode, _ := s.ToggleMode(); mode != ModeModern {
		t.Errorf("second ToggleMode() = %s, want modern", mode)
	}
}

func TestSessionHandlers(t *testing.T) {
	f := newFixture(t)
	s := NewSession(f.m, f.windows, ModeLegacy, logger.NewNop())
	bus := eventbus.NewBus(16, dispatch.Inline, logger.NewNop())
	t.Cleanup(bus.Shutdown)
	s.Subscribe(bus)

	display, imp, err := s.RegisterDataset(stackDataset(t))
	if err != nil {
		t.Fatal(err)
	}

	display.Dataset().Img().Set([]int{2, 1, 0, 1}, -7)
	renders := f.windows.Renders(imp)
	bus.Publish(eventbus.Event{Type: eventbus.DisplayUpdated, Display: display})
	bus.Flush()
	if got := imp.Stack().Plane(imp.StackIndex(0, 1, 0)).Value(2 + 1*4); got != 32768-7 {
		t.Errorf("legacy sample = %v after DisplayUpdated, want %v", got, 32768-7)
	}
	if f.windows.Renders(imp) != renders+1 {
		t.Error("DisplayUpdated should refresh the legacy window")
	}

	imp.Stack().Plane(imp.StackIndex(1, 0, 0)).SetValue(0, 32768+9)
	bus.Publish(eventbus.Event{Type: eventbus.LegacyChanged, Legacy: imp})
	bus.Flush()
	if got := display.Dataset().Img().Get([]int{0, 0, 1, 0}); got != 9 {
		t.Errorf("dataset sample = %v after LegacyChanged, want 9", got)
	}

	bus.Publish(eventbus.Event{Type: eventbus.DisplayDeleted, Display: display})
	bus.Flush()
	f.queue.Join()
	if f.m.LookupLegacyImage(ModeLegacy, display) != nil {
		t.Error("DisplayDeleted left the pairing")
	}
	if f.windows.IsOpen(imp) {
		t.Error("DisplayDeleted should dispose the legacy window")
	}
}

func TestLegacyClosedInModernMode(t *testing.T) {
	f := newFixture(t)
	s := NewSession(f.m, f.windows, ModeModern, logger.NewNop())
	bus := eventbus.NewBus(4, dispatch.Inline, logger.NewNop())
	t.Cleanup(bus.Shutdown)
	s.Subscribe(bus)

	display, imp, err := s.RegisterDataset(stackDataset(t))
	if err != nil {
		t.Fatal(err)
	}
	imp.MarkClosed()
	bus.Publish(eventbus.Event{Type: eventbus.LegacyClosed, Legacy: imp})
	bus.Flush()

	if f.m.LookupDisplay(ModeModern, imp) != nil {
		t.Error("closed legacy image is still paired")
	}
	if display.Closed() {
		t.Error("display should survive its legacy window in modern mode")
	}
}

func TestLegacyEventsEndCommand(t *testing.T) {
	for _, typ := range []string{eventbus.LegacyChanged, eventbus.LegacyClosed} {
		t.Run(typ, func(t *testing.T) {
			f := newFixture(t)
			s := NewSession(f.m, f.windows, ModeModern, logger.NewNop())
			bus := eventbus.NewBus(4, dispatch.Inline, logger.NewNop())
			t.Cleanup(bus.Shutdown)
			s.Subscribe(bus)

			_, imp, err := s.RegisterDataset(stackDataset(t))
			if err != nil {
				t.Fatal(err)
			}
			stray := grayImage(t, "stray")
			f.m.Harmonizer().RegisterType(stray)

			bus.Publish(eventbus.Event{Type: typ, Legacy: imp})
			bus.Flush()
			if _, ok := f.m.Harmonizer().TrackedBitDepth(stray); ok {
				t.Errorf("%s did not reset type tracking", typ)
			}
		})
	}
}
