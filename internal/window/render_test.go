package window

import (
	"errors"
	"image/color"
	"testing"

	"image-bridge/internal/models"
)

func newImage(t *testing.T, typ models.PixelType, w, h, channels int, values ...[]float64) *models.LegacyImage {
	t.Helper()
	planes := make([]models.Plane, len(values))
	for i, vs := range values {
		planes[i] = models.NewLegacyPlane(typ, w*h)
		for j, v := range vs {
			planes[i].SetValue(j, v)
		}
	}
	stack, err := models.NewArrayStack(w, h, planes)
	if err != nil {
		t.Fatal(err)
	}
	imp, err := models.NewLegacyImage("render", typ, stack, channels, len(values)/channels, 1)
	if err != nil {
		t.Fatal(err)
	}
	return imp
}

func TestLUTIndex(t *testing.T) {
	tests := []struct {
		v, min, max float64
		want        int
	}{
		{0, 0, 255, 0},
		{255, 0, 255, 255},
		{128, 0, 256, 128},
		{-10, 0, 255, 0},
		{1000, 0, 255, 255},
		{5, 5, 5, 255},
		{4, 5, 5, 0},
	}
	for _, tt := range tests {
		if got := LUTIndex(tt.v, tt.min, tt.max); got != tt.want {
			t.Errorf("LUTIndex(%v, %v, %v) = %d, want %d", tt.v, tt.min, tt.max, got, tt.want)
		}
	}
}

func TestRenderGray(t *testing.T) {
	imp := newImage(t, models.Gray8, 2, 1, 1, []float64{0, 255})
	out := Render(imp)

	if got := out.RGBAAt(0, 0); got != (color.RGBA{A: 0xff}) {
		t.Errorf("pixel 0 = %v, want black", got)
	}
	if got := out.RGBAAt(1, 0); got != (color.RGBA{R: 255, G: 255, B: 255, A: 0xff}) {
		t.Errorf("pixel 1 = %v, want white", got)
	}
}

func TestRenderRGB(t *testing.T) {
	imp := newImage(t, models.ColorRGB, 1, 1, 1, []float64{float64(0xff<<24 | 0x10<<16 | 0x20<<8 | 0x30)})
	if got := Render(imp).RGBAAt(0, 0); got != (color.RGBA{R: 0x10, G: 0x20, B: 0x30, A: 0xff}) {
		t.Errorf("pixel = %v", got)
	}
}

func TestRenderCompositeBlend(t *testing.T) {
	imp := newImage(t, models.Gray8, 1, 1, 2, []float64{255}, []float64{255})
	imp.SetComposite(true, models.CompositeBlend)
	imp.SetChannelLUT(0, models.NewLUT(255, 0, 0))
	imp.SetChannelLUT(1, models.NewLUT(0, 255, 0))

	if got := Render(imp).RGBAAt(0, 0); got != (color.RGBA{R: 255, G: 255, A: 0xff}) {
		t.Errorf("pixel = %v, want yellow", got)
	}
}

func TestHeadlessLifecycle(t *testing.T) {
	h := NewHeadless(true)
	imp := newImage(t, models.Gray8, 2, 2, 1, []float64{1, 2, 3, 4})

	h.Refresh(imp)
	if h.Renders(imp) != 0 {
		t.Error("Refresh drew a window that is not open")
	}
	if err := h.Show(imp); err != nil {
		t.Fatal(err)
	}
	h.Refresh(imp)
	if !h.IsOpen(imp) || h.Renders(imp) != 2 {
		t.Errorf("open = %v renders = %d, want open with 2 renders", h.IsOpen(imp), h.Renders(imp))
	}

	if err := h.Dispose(imp); err != nil {
		t.Fatal(err)
	}
	if !imp.Closed() || h.IsOpen(imp) {
		t.Error("Dispose should close the window and mark the image closed")
	}
	if err := h.Dispose(imp); !errors.Is(err, ErrWindowClosed) {
		t.Errorf("second Dispose() = %v, want ErrWindowClosed", err)
	}
}
