package translate

import (
	"errors"
	"math"
	"testing"

	"image-bridge/internal/logger"
	"image-bridge/internal/models"
)

func newTestHarmonizer() *Harmonizer {
	tk := NewToolkit(logger.NewNop(), 2, nil)
	return NewHarmonizer(tk, nil, logger.NewNop())
}

func TestTwoChannelThreeSliceRoundTrip(t *testing.T) {
	h := newTestHarmonizer()
	ds := newDataset(t, models.Uint16, []int{4, 3, 2, 3}, models.AxisX, models.AxisY, models.AxisChannel, models.AxisZ)
	ds.Img().Set([]int{1, 0, 1, 2}, 1234)
	ds.Img().SetCompositeChannelCount(2)

	imp, err := h.LegacyCreator().CreateLegacyImage(ds, nil)
	if err != nil {
		t.Fatal(err)
	}
	if imp.Type() != models.Gray16 {
		t.Errorf("Type() = %s, want 16-bit", imp.Type())
	}
	if w, hgt, c, z, fr := imp.Dimensions(); w != 4 || hgt != 3 || c != 2 || z != 3 || fr != 1 {
		t.Fatalf("Dimensions() = %d %d %d %d %d", w, hgt, c, z, fr)
	}
	if imp.Stack().Size() != 6 {
		t.Errorf("stack has %d planes, want 6", imp.Stack().Size())
	}
	if !imp.IsCompositeCapable() || !imp.IsComposite() || imp.CompositeMode() != models.CompositeBlend {
		t.Error("two-channel image with a composite count of 2 should be a blended composite")
	}
	if got := imp.Stack().Plane(imp.StackIndex(1, 2, 0)).Value(1); got != 1234 {
		t.Errorf("legacy sample = %v, want 1234", got)
	}
	for k := 0; k < 6; k++ {
		if imp.Stack().Plane(k) != ds.Img().Plane(k) {
			t.Errorf("plane %d is not shared", k)
		}
	}

	back, err := h.DisplayCreator().CreateDataset(imp)
	if err != nil {
		t.Fatal(err)
	}
	img := back.Img()
	if got := img.AxisIndex(models.AxisChannel); got != 2 || img.Dim(2) != 2 {
		t.Errorf("channel axis at %d with length %d, want index 2 length 2", got, img.Dim(2))
	}
	if got := img.AxisIndex(models.AxisZ); got != 3 || img.Dim(3) != 3 {
		t.Errorf("Z axis at %d with length %d, want index 3 length 3", got, img.Dim(3))
	}
	if got := img.Get([]int{1, 0, 1, 2}); got != 1234 {
		t.Errorf("round-tripped sample = %v, want 1234", got)
	}
	if img.CompositeChannelCount() != 2 {
		t.Errorf("CompositeChannelCount() = %d, want 2", img.CompositeChannelCount())
	}
}

func TestRGBRoundTrip(t *testing.T) {
	h := newTestHarmonizer()
	ds := newDataset(t, models.Uint8, []int{2, 2, 3}, models.AxisX, models.AxisY, models.AxisChannel)
	ds.SetRGBMerged(true)
	img := ds.Img()
	img.Set([]int{1, 1, 0}, 10)
	img.Set([]int{1, 1, 1}, 20)
	img.Set([]int{1, 1, 2}, 30)

	imp, err := h.LegacyCreator().CreateLegacyImage(ds, nil)
	if err != nil {
		t.Fatal(err)
	}
	if imp.Type() != models.ColorRGB || imp.Channels() != 1 {
		t.Fatalf("got %s with %d channels, want RGB with 1", imp.Type(), imp.Channels())
	}
	want := float64(uint32(0xff<<24 | 10<<16 | 20<<8 | 30))
	if got := imp.Stack().Plane(0).Value(3); got != want {
		t.Errorf("packed pixel = %#x, want %#x", uint32(got), uint32(want))
	}

	back, err := h.DisplayCreator().CreateDataset(imp)
	if err != nil {
		t.Fatal(err)
	}
	if !back.RGBMerged() {
		t.Error("dataset built from RGB is not RGB-merged")
	}
	if back.Img().CompositeChannelCount() != 3 {
		t.Errorf("CompositeChannelCount() = %d, want 3", back.Img().CompositeChannelCount())
	}
	for c, v := range []float64{10, 20, 30} {
		if got := back.Img().Get([]int{1, 1, c}); got != v {
			t.Errorf("channel %d = %v, want %v", c, got, v)
		}
	}
}

func TestSigned16RoundTrip(t *testing.T) {
	h := newTestHarmonizer()
	ds := newDataset(t, models.Int16, []int{2, 1}, models.AxisX, models.AxisY)
	ds.Img().Set([]int{0, 0}, -100)

	imp, err := h.LegacyCreator().CreateLegacyImage(ds, nil)
	if err != nil {
		t.Fatal(err)
	}
	if imp.Type() != models.Gray16 || !imp.Calibration().Signed16 {
		t.Fatalf("got %s signed=%v, want signed 16-bit", imp.Type(), imp.Calibration().Signed16)
	}
	if got := imp.Stack().Plane(0).Value(0); got != 32668 {
		t.Errorf("stored sample = %v, want 32668", got)
	}
	if min, max := imp.DisplayRange(); min != 32668 || max != 32768 {
		t.Errorf("DisplayRange() = [%v,%v], want [32668,32768]", min, max)
	}

	display, err := h.DisplayCreator().CreateDisplay(imp)
	if err != nil {
		t.Fatal(err)
	}
	img := display.Dataset().Img()
	if img.Element().Kind != models.KindInt16 {
		t.Errorf("element = %s, want int16", img.Element())
	}
	if got := img.Get([]int{0, 0}); got != -100 {
		t.Errorf("round-tripped sample = %v, want -100", got)
	}
	if min, max := display.ChannelRange(0); min != -100 || max != 0 {
		t.Errorf("ChannelRange(0) = [%v,%v], want [-100,0]", min, max)
	}
}

func TestBitDataBecomesFullScale(t *testing.T) {
	h := newTestHarmonizer()
	ds := newDataset(t, models.Bit, []int{2, 1}, models.AxisX, models.AxisY)
	ds.Img().Set([]int{1, 0}, 1)

	imp, err := h.LegacyCreator().CreateLegacyImage(ds, nil)
	if err != nil {
		t.Fatal(err)
	}
	if imp.Type() != models.Gray8 {
		t.Fatalf("Type() = %s, want 8-bit", imp.Type())
	}
	if got := imp.Stack().Plane(0).Value(1); got != 255 {
		t.Errorf("set bit stored as %v, want 255", got)
	}
	if got := imp.Stack().Plane(0).Value(0); got != 0 {
		t.Errorf("clear bit stored as %v, want 0", got)
	}
}

func TestNaNSamplesReachLegacyStack(t *testing.T) {
	tests := []struct {
		name    string
		typ     models.PixelType
		wantNaN bool
	}{
		{"8-bit", models.Gray8, false},
		{"16-bit", models.Gray16, false},
		{"float", models.Gray32, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newTestHarmonizer()
			ds := newDataset(t, models.Float64, []int{2, 1}, models.AxisX, models.AxisY)
			ds.Img().Set([]int{0, 0}, math.NaN())
			ds.Img().Set([]int{1, 0}, 7)

			stack, err := models.NewArrayStack(2, 1, []models.Plane{models.NewLegacyPlane(tt.typ, 2)})
			if err != nil {
				t.Fatal(err)
			}
			imp, err := models.NewLegacyImage("nan", tt.typ, stack, 1, 1, 1)
			if err != nil {
				t.Fatal(err)
			}
			h.tk.Gray.UpdateLegacyImage(ds, imp)

			got := imp.Stack().Plane(0).Value(0)
			if tt.wantNaN && !math.IsNaN(got) {
				t.Errorf("NaN stored as %v, want NaN", got)
			}
			if !tt.wantNaN && got != 0 {
				t.Errorf("NaN stored as %v, want 0", got)
			}
			if v := imp.Stack().Plane(0).Value(1); v != 7 {
				t.Errorf("sample stored as %v, want 7", v)
			}
		})
	}
}

func TestIncompatibleDatasetIsRejected(t *testing.T) {
	h := newTestHarmonizer()
	ds := newDataset(t, models.Uint8, []int{2, 2}, models.AxisX, models.AxisZ)

	_, err := h.LegacyCreator().CreateLegacyImage(ds, nil)
	if !errors.Is(err, ErrIncompatibleDimensions) {
		t.Fatalf("error = %v, want ErrIncompatibleDimensions", err)
	}
}

func TestCustomAxisLayoutHint(t *testing.T) {
	h := newTestHarmonizer()
	ds := newDataset(t, models.Uint8, []int{2, 2, 2, 3}, models.AxisX, models.AxisY, models.AxisChannel, "Lifetime")
	ds.Img().Set([]int{1, 1, 1, 2}, 7)

	imp, err := h.LegacyCreator().CreateLegacyImage(ds, nil)
	if err != nil {
		t.Fatal(err)
	}
	if imp.Channels() != 6 {
		t.Fatalf("Channels() = %d, want 6", imp.Channels())
	}
	if got := imp.Stack().Plane(1 + 2*2).Value(3); got != 7 {
		t.Errorf("legacy sample = %v, want 7", got)
	}

	withHint, err := h.DisplayCreator().CreateDataset(imp)
	if err != nil {
		t.Fatal(err)
	}
	if got := withHint.Img().AxisIndex("Lifetime"); got != 3 {
		t.Fatalf("Lifetime axis at %d, want 3", got)
	}
	if got := withHint.Img().Get([]int{1, 1, 1, 2}); got != 7 {
		t.Errorf("sample with hint = %v, want 7", got)
	}

	imp.SetProperty(AxisLayoutProperty, nil)
	plain, err := h.DisplayCreator().CreateDataset(imp)
	if err != nil {
		t.Fatal(err)
	}
	if plain.Img().NumDimensions() != 3 || plain.Img().Dim(2) != 6 {
		t.Errorf("without hint got dims %v, want [2 2 6]", plain.Img().Dims())
	}
	if got := plain.Img().Get([]int{1, 1, 5}); got != 7 {
		t.Errorf("sample without hint = %v, want 7", got)
	}
}

func TestStaleLayoutHintIsIgnored(t *testing.T) {
	h := newTestHarmonizer()
	ds := newDataset(t, models.Uint8, []int{2, 2, 3}, models.AxisX, models.AxisY, models.AxisZ)
	imp, err := h.LegacyCreator().CreateLegacyImage(ds, nil)
	if err != nil {
		t.Fatal(err)
	}
	imp.SetProperty(AxisLayoutProperty, []AxisLayout{
		{Type: models.AxisX, Size: 2},
		{Type: models.AxisY, Size: 2},
		{Type: models.AxisZ, Size: 5},
	})

	back, err := h.DisplayCreator().CreateDataset(imp)
	if err != nil {
		t.Fatal(err)
	}
	if got := back.Img().AxisLength(models.AxisZ); got != 3 {
		t.Errorf("Z length = %d, want 3", got)
	}
}

func TestUpdateDisplayIsIdempotent(t *testing.T) {
	h := newTestHarmonizer()
	ds := newDataset(t, models.Uint16, []int{3, 2, 2}, models.AxisX, models.AxisY, models.AxisChannel)
	ds.Img().Set([]int{2, 1, 1}, 500)
	display := models.NewDisplay(ds)

	imp, err := h.LegacyCreator().CreateLegacyImage(ds, display)
	if err != nil {
		t.Fatal(err)
	}
	h.RegisterType(imp)
	img := ds.Img()

	for i := 0; i < 2; i++ {
		if err := h.UpdateDisplay(display, imp); err != nil {
			t.Fatal(err)
		}
		if ds.Img() != img {
			t.Fatalf("update %d rebuilt the dataset", i)
		}
		if got := ds.Img().Get([]int{2, 1, 1}); got != 500 {
			t.Errorf("update %d: sample = %v, want 500", i, got)
		}
		if display.Name() != imp.Title() {
			t.Errorf("update %d: name %q, title %q", i, display.Name(), imp.Title())
		}
	}
}

func TestUpdateLegacyImageKeepsIdentity(t *testing.T) {
	h := newTestHarmonizer()
	ds := newDataset(t, models.Int16, []int{2, 2, 3}, models.AxisX, models.AxisY, models.AxisZ)
	display := models.NewDisplay(ds)
	imp, err := h.LegacyCreator().CreateLegacyImage(ds, display)
	if err != nil {
		t.Fatal(err)
	}

	ds.Img().Set([]int{0, 1, 2}, -5)
	display.SetPosition(2, 2)
	display.SetName("renamed")
	if err := h.UpdateLegacyImage(display, imp); err != nil {
		t.Fatal(err)
	}
	if got := imp.Stack().Plane(2).Value(2); got != -5+models.Signed16Bias {
		t.Errorf("stored sample = %v, want %v", got, -5+models.Signed16Bias)
	}
	if _, z, _ := imp.Position(); z != 2 {
		t.Errorf("slice = %d, want 2", z)
	}
	if imp.Title() != "renamed" {
		t.Errorf("Title() = %q, want renamed", imp.Title())
	}
}

func TestSavedPlaneWinsForVirtualStack(t *testing.T) {
	h := newTestHarmonizer()
	stack := models.NewVirtualStack(2, 1, 3, func(i int) models.Plane {
		return models.Wrap([]uint8{uint8(10 * i), uint8(10 * i)})
	})
	imp, err := models.NewLegacyImage("virtual", models.Gray8, stack, 1, 3, 1)
	if err != nil {
		t.Fatal(err)
	}

	display, err := h.DisplayCreator().CreateDisplay(imp)
	if err != nil {
		t.Fatal(err)
	}
	h.RegisterType(imp)
	if got := display.Dataset().Img().Get([]int{0, 0, 2}); got != 20 {
		t.Fatalf("initial sample = %v, want 20", got)
	}

	imp.SetPosition(0, 1, 0)
	imp.CurrentPlane().SetValue(0, 99)

	if err := h.UpdateDisplay(display, imp); err != nil {
		t.Fatal(err)
	}
	img := display.Dataset().Img()
	if got := img.Get([]int{0, 0, 1}); got != 99 {
		t.Errorf("edited sample = %v, want 99", got)
	}
	if got := img.Get([]int{1, 0, 1}); got != 10 {
		t.Errorf("untouched sample = %v, want 10", got)
	}
	if pos := display.Position(); pos[2] != 1 {
		t.Errorf("display slice = %d, want 1", pos[2])
	}
}

func TestTypeChangeRebuildsInPlace(t *testing.T) {
	h := newTestHarmonizer()
	ds := newDataset(t, models.Uint8, []int{2, 2}, models.AxisX, models.AxisY)
	display := models.NewDisplay(ds)
	imp, err := h.LegacyCreator().CreateLegacyImage(ds, display)
	if err != nil {
		t.Fatal(err)
	}
	h.RegisterType(imp)
	before := ds.Img()

	wide := models.NewLegacyPlane(models.Gray16, 4)
	wide.SetValue(3, 40000)
	stack, err := models.NewArrayStack(2, 2, []models.Plane{wide})
	if err != nil {
		t.Fatal(err)
	}
	converted, err := models.NewLegacyImage(imp.Title(), models.Gray16, stack, 1, 1, 1)
	if err != nil {
		t.Fatal(err)
	}
	imp.Adopt(converted)

	if err := h.UpdateDisplay(display, imp); err != nil {
		t.Fatal(err)
	}
	if display.Dataset() != ds {
		t.Fatal("dataset identity changed")
	}
	if ds.Img() == before {
		t.Fatal("storage was not rebuilt")
	}
	if ds.Img().Element().Kind != models.KindUint16 {
		t.Errorf("element = %s, want uint16", ds.Img().Element())
	}
	if got := ds.Img().Get([]int{1, 1}); got != 40000 {
		t.Errorf("sample = %v, want 40000", got)
	}

	h.Forget(imp)
	if h.typeChanged(imp) {
		t.Error("forgotten image still reports a type change")
	}
}

func TestCompositeSubMode(t *testing.T) {
	tests := []struct {
		name   string
		tables []*models.ColorTable
		count  int
		want   models.CompositeMode
	}{
		{"all gray", []*models.ColorTable{models.GrayTable, models.GrayTable, models.GrayTable}, 1, models.CompositeGrayscale},
		{"colored", []*models.ColorTable{models.RedTable, models.GreenTable, models.BlueTable}, 1, models.CompositeColor},
		{"too few tables", []*models.ColorTable{models.RedTable, models.GreenTable}, 1, models.CompositeBlend},
		{"no tables", nil, 1, models.CompositeBlend},
		{"blended count", []*models.ColorTable{models.RedTable, models.GreenTable, models.BlueTable}, 3, models.CompositeBlend},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newTestHarmonizer()
			ds := newDataset(t, models.Uint8, []int{2, 2, 3}, models.AxisX, models.AxisY, models.AxisChannel)
			ds.Img().SetColorTables(tt.tables)
			ds.Img().SetCompositeChannelCount(tt.count)
			display := models.NewDisplay(ds)
			display.SetColorMode(models.ModeComposite)

			imp, err := h.LegacyCreator().CreateLegacyImage(ds, display)
			if err != nil {
				t.Fatal(err)
			}
			if !imp.IsComposite() {
				t.Fatal("image is not composite")
			}
			if imp.CompositeMode() != tt.want {
				t.Errorf("CompositeMode() = %s, want %s", imp.CompositeMode(), tt.want)
			}
		})
	}
}

func TestColorTablesReachDisplay(t *testing.T) {
	h := newTestHarmonizer()
	ds := newDataset(t, models.Uint8, []int{2, 2, 2}, models.AxisX, models.AxisY, models.AxisChannel)
	ds.Img().SetColorTables([]*models.ColorTable{models.RedTable, models.GreenTable})
	ds.Img().SetCompositeChannelCount(2)
	display := models.NewDisplay(ds)

	imp, err := h.LegacyCreator().CreateLegacyImage(ds, display)
	if err != nil {
		t.Fatal(err)
	}
	imp.SetChannelDisplayRange(1, 5, 50)

	back, err := h.DisplayCreator().CreateDisplay(imp)
	if err != nil {
		t.Fatal(err)
	}
	tables := back.Dataset().Img().ColorTables()
	if len(tables) != 2 || !tables[0].Equal(models.RedTable) || !tables[1].Equal(models.GreenTable) {
		t.Error("channel tables did not survive the round trip")
	}
	if back.ColorMode() != models.ModeComposite {
		t.Errorf("ColorMode() = %s, want composite", back.ColorMode())
	}
	if min, max := back.ChannelRange(1); min != 5 || max != 50 {
		t.Errorf("ChannelRange(1) = [%v,%v], want [5,50]", min, max)
	}
}

func TestInvertedRangeIsSkipped(t *testing.T) {
	h := newTestHarmonizer()
	ds := newDataset(t, models.Uint16, []int{2, 2}, models.AxisX, models.AxisY)
	display := models.NewDisplay(ds)
	imp, err := h.LegacyCreator().CreateLegacyImage(ds, display)
	if err != nil {
		t.Fatal(err)
	}
	display.SetChannelRange(0, 3, 9)
	imp.SetDisplayRange(100, 10)

	h.tk.ColorTables.UpdateDisplay(display, imp)
	if min, max := display.ChannelRange(0); min != 3 || max != 9 {
		t.Errorf("ChannelRange(0) = [%v,%v], want [3,9] untouched", min, max)
	}
}

func TestMetadataRoundTrip(t *testing.T) {
	h := newTestHarmonizer()
	ds := newDataset(t, models.Uint8, []int{2, 2, 2, 3}, models.AxisX, models.AxisY, models.AxisZ, models.AxisTime)
	img := ds.Img()
	img.SetAxis(0, models.Axis{Type: models.AxisX, Scale: 0.5, Origin: 3, Unit: "um"})
	img.SetAxis(2, models.Axis{Type: models.AxisZ, Scale: 2, Unit: "um"})
	img.SetAxis(3, models.Axis{Type: models.AxisTime, Scale: 1.5, Unit: "s"})

	imp, err := h.LegacyCreator().CreateLegacyImage(ds, nil)
	if err != nil {
		t.Fatal(err)
	}
	cal := imp.Calibration()
	if cal.PixelWidth != 0.5 || cal.XOrigin != 3 || cal.XUnit != "um" {
		t.Errorf("X calibration = %v %v %q", cal.PixelWidth, cal.XOrigin, cal.XUnit)
	}
	if cal.PixelDepth != 2 || cal.FrameInterval != 1.5 || cal.TimeUnit != "s" {
		t.Errorf("Z/T calibration = %v %v %q", cal.PixelDepth, cal.FrameInterval, cal.TimeUnit)
	}

	back, err := h.DisplayCreator().CreateDataset(imp)
	if err != nil {
		t.Fatal(err)
	}
	if x := back.Img().Axis(0); x.Scale != 0.5 || x.Origin != 3 || x.Unit != "um" {
		t.Errorf("X axis = %+v", x)
	}
	if tAxis := back.Img().Axis(back.Img().AxisIndex(models.AxisTime)); tAxis.Scale != 1.5 {
		t.Errorf("Time axis = %+v", tAxis)
	}
}

func TestPositionSync(t *testing.T) {
	ds := newDataset(t, models.Uint8, []int{2, 2, 2, 3}, models.AxisX, models.AxisY, models.AxisChannel, models.AxisZ)
	display := models.NewDisplay(ds)
	imp, err := newTestHarmonizer().LegacyCreator().CreateLegacyImage(ds, display)
	if err != nil {
		t.Fatal(err)
	}

	imp.SetPosition(1, 2, 0)
	PositionHarmonizer{}.UpdateDisplay(display, imp)
	if pos := display.Position(); pos[2] != 1 || pos[3] != 2 {
		t.Errorf("display position = %v, want channel 1 slice 2", pos)
	}

	display.SetPosition(2, 0)
	display.SetPosition(3, 1)
	PositionHarmonizer{}.UpdateLegacyImage(display, imp)
	if c, z, _ := imp.Position(); c != 0 || z != 1 {
		t.Errorf("legacy position = (%d,%d), want (0,1)", c, z)
	}
}

func TestLayoutHintKeepsCalibration(t *testing.T) {
	h := newTestHarmonizer()
	ds := newDataset(t, models.Uint8, []int{2, 2, 2, 3}, models.AxisX, models.AxisY, models.AxisChannel, "Lifetime")
	ds.Img().SetAxis(2, models.Axis{Type: models.AxisChannel, Scale: 1, Origin: 1})
	ds.Img().SetAxis(3, models.Axis{Type: "Lifetime", Scale: 0.5, Unit: "ns"})

	imp, err := h.LegacyCreator().CreateLegacyImage(ds, nil)
	if err != nil {
		t.Fatal(err)
	}
	back, err := h.DisplayCreator().CreateDataset(imp)
	if err != nil {
		t.Fatal(err)
	}
	if got, want := back.Img().Axis(3), (models.Axis{Type: "Lifetime", Scale: 0.5, Unit: "ns"}); got != want {
		t.Errorf("Lifetime axis = %+v, want %+v", got, want)
	}
	if got := back.Img().Axis(2); got.Origin != 1 || got.Scale != 1 {
		t.Errorf("Channel axis = %+v, want origin 1 scale 1", got)
	}
}

func TestCreateDisplayWithAxes(t *testing.T) {
	planes := make([]models.Plane, 6)
	for k := range planes {
		planes[k] = models.NewLegacyPlane(models.Gray8, 4)
		for i := 0; i < 4; i++ {
			planes[k].SetValue(i, float64(10*k+i))
		}
	}
	stack, err := models.NewArrayStack(2, 2, planes)
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name  string
		order []models.AxisType
		want  []models.AxisType
		dims  []int
		// position of x=1, y=1, c=1, z=2
		pos []int
	}{
		{"default", nil, []models.AxisType{models.AxisX, models.AxisY, models.AxisChannel, models.AxisZ}, []int{2, 2, 2, 3}, []int{1, 1, 1, 2}},
		{"slices first", []models.AxisType{models.AxisX, models.AxisY, models.AxisZ, models.AxisChannel}, []models.AxisType{models.AxisX, models.AxisY, models.AxisZ, models.AxisChannel}, []int{2, 2, 3, 2}, []int{1, 1, 2, 1}},
		{"partial order", []models.AxisType{models.AxisZ}, []models.AxisType{models.AxisZ, models.AxisX, models.AxisY, models.AxisChannel}, []int{3, 2, 2, 2}, []int{2, 1, 1, 1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newTestHarmonizer()
			imp, err := models.NewLegacyImage("ordered", models.Gray8, stack, 2, 3, 1)
			if err != nil {
				t.Fatal(err)
			}

			display, err := h.DisplayCreator().CreateDisplayWithAxes(imp, tt.order)
			if err != nil {
				t.Fatal(err)
			}
			img := display.Dataset().Img()
			types := img.AxisTypes()
			if len(types) != len(tt.want) {
				t.Fatalf("axes = %v, want %v", types, tt.want)
			}
			for i := range tt.want {
				if types[i] != tt.want[i] || img.Dim(i) != tt.dims[i] {
					t.Fatalf("axes = %v dims = %v, want %v %v", types, img.Dims(), tt.want, tt.dims)
				}
			}
			want := float64(10*imp.StackIndex(1, 2, 0) + 3)
			if got := img.Get(tt.pos); got != want {
				t.Errorf("sample = %v, want %v", got, want)
			}
			if display.Name() != "ordered" || display.ChannelCount() != 2 {
				t.Errorf("display %q has %d channels", display.Name(), display.ChannelCount())
			}

			back, err := h.LegacyCreator().CreateLegacyImage(display.Dataset(), display)
			if err != nil {
				t.Fatal(err)
			}
			for k := 0; k < 6; k++ {
				if got := back.Stack().Plane(k).Value(3); got != float64(10*k+3) {
					t.Errorf("plane %d sample = %v, want %v", k, got, 10*k+3)
				}
			}
		})
	}
}

func TestResetTypeTracking(t *testing.T) {
	h := newTestHarmonizer()
	imp := newGray8Image(t, "tracked", 1)
	h.RegisterType(imp)
	if depth, ok := h.TrackedBitDepth(imp); !ok || depth != 8 {
		t.Fatalf("TrackedBitDepth() = %d, %v, want 8", depth, ok)
	}

	h.ResetTypeTracking()
	if _, ok := h.TrackedBitDepth(imp); ok {
		t.Error("image still tracked after reset")
	}
	if h.typeChanged(imp) {
		t.Error("untracked image reports a type change")
	}
}
