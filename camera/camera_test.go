package camera

import (
	"math"
	"testing"

	"gonum.org/v1/gonum/spatial/r2"
)

func TestNew(t *testing.T) {
	cam := New(1280, 720, 100)

	if cam.Center != (r2.Vec{}) {
		t.Errorf("expected camera at origin, got %v", cam.Center)
	}
	if cam.Zoom != 1.0 {
		t.Errorf("expected zoom 1.0, got %f", cam.Zoom)
	}
	if math.Abs(cam.Scale()-7.2) > 1e-9 {
		t.Errorf("expected 7.2 px per unit, got %f", cam.Scale())
	}
}

func TestWorldToScreenCentered(t *testing.T) {
	cam := New(1280, 720, 100)

	// Origin maps to screen center
	sx, sy := cam.WorldToScreen(r2.Vec{})
	if math.Abs(float64(sx-640)) > 0.01 || math.Abs(float64(sy-360)) > 0.01 {
		t.Errorf("expected screen center (640, 360), got (%f, %f)", sx, sy)
	}

	// Top of the visible world is the top of the screen (+Y up)
	_, sy = cam.WorldToScreen(r2.Vec{Y: 50})
	if math.Abs(float64(sy)) > 0.01 {
		t.Errorf("expected y=50 at screen top, got %f", sy)
	}
}

func TestScreenToWorldRoundtrip(t *testing.T) {
	cam := New(1280, 720, 100)
	cam.Center = r2.Vec{X: 12, Y: -3}
	cam.SetZoom(1.5)

	testCases := []struct{ sx, sy float32 }{
		{640, 360},  // center
		{100, 100},  // top-left
		{1200, 600}, // near bottom-right
	}

	for _, tc := range testCases {
		w := cam.ScreenToWorld(tc.sx, tc.sy)
		sx, sy := cam.WorldToScreen(w)
		if math.Abs(float64(sx-tc.sx)) > 0.01 || math.Abs(float64(sy-tc.sy)) > 0.01 {
			t.Errorf("roundtrip failed: (%f,%f) -> %v -> (%f,%f)", tc.sx, tc.sy, w, sx, sy)
		}
	}
}

func TestCursorWorld(t *testing.T) {
	cam := New(1280, 720, 100)

	tests := []struct {
		name   string
		sx, sy float32
		ok     bool
		want   r2.Vec
	}{
		{"center", 640, 360, true, r2.Vec{}},
		{"top left", 0, 0, true, r2.Vec{X: -640.0 / 7.2, Y: 50}},
		{"left of window", -1, 360, false, r2.Vec{}},
		{"below window", 640, 720, false, r2.Vec{}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := cam.CursorWorld(tc.sx, tc.sy)
			if ok != tc.ok {
				t.Fatalf("ok = %v, want %v", ok, tc.ok)
			}
			if math.Abs(got.X-tc.want.X) > 1e-6 || math.Abs(got.Y-tc.want.Y) > 1e-6 {
				t.Errorf("world = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestIsVisible(t *testing.T) {
	cam := New(1280, 720, 100)

	if !cam.IsVisible(r2.Vec{X: 10, Y: 10}, 0) {
		t.Error("expected point near origin to be visible")
	}
	if cam.IsVisible(r2.Vec{Y: 60}, 1) {
		t.Error("expected point above the view to be culled")
	}
	if !cam.IsVisible(r2.Vec{Y: 50.5}, 1) {
		t.Error("expected circle overlapping the top edge to be visible")
	}
}

func TestZoomClamp(t *testing.T) {
	cam := New(1280, 720, 100)

	cam.SetZoom(100)
	if cam.Zoom != cam.MaxZoom {
		t.Errorf("expected zoom clamped to %f, got %f", cam.MaxZoom, cam.Zoom)
	}
	cam.ZoomBy(0.0001)
	if cam.Zoom != cam.MinZoom {
		t.Errorf("expected zoom clamped to %f, got %f", cam.MinZoom, cam.Zoom)
	}

	cam.Pan(72, 0)
	cam.Reset()
	if cam.Center != (r2.Vec{}) || cam.Zoom != 1 {
		t.Errorf("Reset() left camera at %v zoom %f", cam.Center, cam.Zoom)
	}
}

func TestPan(t *testing.T) {
	cam := New(1280, 720, 100)

	// 7.2 px per unit: 72 px right and 72 px down moves 10 units right and 10 down.
	cam.Pan(72, 72)
	if math.Abs(cam.Center.X-10) > 1e-9 || math.Abs(cam.Center.Y+10) > 1e-9 {
		t.Errorf("expected center (10, -10), got %v", cam.Center)
	}
}
