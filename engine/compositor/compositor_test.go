package compositor

import (
	"image"
	"image/color"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/Stifutina/three-svg-decals/engine/document"
)

// captureSlot records every texture write for inspection.
type captureSlot struct {
	frames chan *image.RGBA
}

func newCaptureSlot() *captureSlot {
	return &captureSlot{frames: make(chan *image.RGBA, 8)}
}

func (s *captureSlot) WriteTexture(img *image.RGBA) {
	s.frames <- img
}

func (s *captureSlot) wait(t *testing.T) *image.RGBA {
	t.Helper()
	select {
	case f := <-s.frames:
		return f
	case <-time.After(2 * time.Second):
		t.Fatal("no texture write arrived")
		return nil
	}
}

func TestRecompositeWritesFrame(t *testing.T) {
	slot := newCaptureSlot()
	doc := document.New(256, 256)
	doc.CreateDecal(document.KindIcon, document.CreateParams{
		IconPath: "M0 0 L64 0 L64 64 L0 64 Z",
		Color:    "#ff0000",
	}, document.Point{X: 128, Y: 128})

	c := New(slot, doc, nil, 256)
	if !c.RequestRecomposite(nil) {
		t.Fatal("first request should be accepted")
	}
	frame := slot.wait(t)

	if frame.Bounds().Dx() != 256 || frame.Bounds().Dy() != 256 {
		t.Fatalf("frame size = %v", frame.Bounds())
	}
	// Untouched corner stays the white base fill.
	if got := frame.RGBAAt(2, 2); got != (color.RGBA{0xff, 0xff, 0xff, 0xff}) {
		t.Errorf("corner = %v, want white", got)
	}
	// The icon square covers the center.
	if got := frame.RGBAAt(128, 128); got != (color.RGBA{0xff, 0x00, 0x00, 0xff}) {
		t.Errorf("center = %v, want red", got)
	}
}

// blockingSlot holds every texture write open until released, keeping a
// recomposite observably in flight.
type blockingSlot struct {
	wrote   chan struct{}
	release chan struct{}
}

func (s *blockingSlot) WriteTexture(img *image.RGBA) {
	s.wrote <- struct{}{}
	<-s.release
}

func TestRecompositeCoalescesWhileInFlight(t *testing.T) {
	slot := &blockingSlot{wrote: make(chan struct{}, 4), release: make(chan struct{})}
	c := New(slot, document.New(64, 64), nil, 64)

	if !c.RequestRecomposite(nil) {
		t.Fatal("first request should be accepted")
	}
	<-slot.wrote

	// The write is held open; further requests are refused immediately but
	// collapse into a single trailing recomposite.
	if c.RequestRecomposite(nil) {
		t.Error("request while in flight should not start a second write")
	}
	if c.RequestRecomposite(nil) {
		t.Error("request while in flight should not start a second write")
	}
	if !c.Updating() {
		t.Error("Updating should report the in-flight write")
	}

	close(slot.release)
	select {
	case <-slot.wrote:
	case <-time.After(2 * time.Second):
		t.Fatal("no trailing recomposite arrived")
	}
	select {
	case <-slot.wrote:
		t.Error("coalesced requests should produce exactly one trailing write")
	case <-time.After(50 * time.Millisecond):
	}

	deadline := time.Now().Add(2 * time.Second)
	for c.Updating() {
		if time.Now().After(deadline) {
			t.Fatal("compositor never settled")
		}
		time.Sleep(time.Millisecond)
	}

	if !c.RequestRecomposite(nil) {
		t.Error("request after settling should be accepted")
	}
	<-slot.wrote
}

// gateSlot holds each texture write until a token arrives, then records
// the frame.
type gateSlot struct {
	frames chan *image.RGBA
	gate   chan struct{}
}

func (s *gateSlot) WriteTexture(img *image.RGBA) {
	<-s.gate
	s.frames <- img
}

func (s *gateSlot) wait(t *testing.T) *image.RGBA {
	t.Helper()
	select {
	case f := <-s.frames:
		return f
	case <-time.After(2 * time.Second):
		t.Fatal("no texture write arrived")
		return nil
	}
}

func TestTrailingRecompositeSettlesOnFinalState(t *testing.T) {
	slot := &gateSlot{frames: make(chan *image.RGBA, 4), gate: make(chan struct{}, 4)}
	doc := document.New(256, 256)
	id := doc.CreateDecal(document.KindIcon, document.CreateParams{
		IconPath: "M0 0 L64 0 L64 64 L0 64 Z",
		Color:    "#ff0000",
	}, document.Point{X: 128, Y: 128})

	c := New(slot, doc, nil, 256)
	if !c.RequestRecomposite(nil) {
		t.Fatal("first request should be accepted")
	}

	// The first write is gated, so this mutation and request land while
	// the recomposite is in flight.
	if err := doc.UpdateDecal(id, document.Update{
		X: document.Float64(32),
		Y: document.Float64(32),
	}); err != nil {
		t.Fatal(err)
	}
	if c.RequestRecomposite(nil) {
		t.Fatal("request while in flight should coalesce")
	}

	slot.gate <- struct{}{}
	first := slot.wait(t)
	slot.gate <- struct{}{}
	final := slot.wait(t)

	red := color.RGBA{0xff, 0x00, 0x00, 0xff}
	if got := first.RGBAAt(128, 128); got != red {
		t.Errorf("first frame center = %v, want the pre-move position", got)
	}
	if got := final.RGBAAt(32, 32); got != red {
		t.Errorf("final frame = %v at the moved position, want red", got)
	}
	if got := final.RGBAAt(128, 128); got == red {
		t.Error("final frame still shows the stale position")
	}
}

func TestRecompositeRasterizesSnapshot(t *testing.T) {
	slot := newCaptureSlot()
	doc := document.New(256, 256)
	id := doc.CreateDecal(document.KindIcon, document.CreateParams{
		IconPath: "M0 0 L64 0 L64 64 L0 64 Z",
		Color:    "#ff0000",
	}, document.Point{X: 128, Y: 128})

	c := New(slot, doc, nil, 256)
	if !c.RequestRecomposite(nil) {
		t.Fatal("first request should be accepted")
	}
	// The snapshot is taken before the request returns; moving the decal
	// now must not leak into the in-flight frame.
	if err := doc.UpdateDecal(id, document.Update{
		X: document.Float64(32),
		Y: document.Float64(32),
	}); err != nil {
		t.Fatal(err)
	}
	frame := slot.wait(t)

	if got := frame.RGBAAt(128, 128); got != (color.RGBA{0xff, 0x00, 0x00, 0xff}) {
		t.Errorf("center = %v, want the position at request time", got)
	}
	if got := frame.RGBAAt(32, 32); got != (color.RGBA{0xff, 0xff, 0xff, 0xff}) {
		t.Errorf("new position = %v, want untouched white", got)
	}
}

func TestIdleGate(t *testing.T) {
	c := New(newCaptureSlot(), document.New(64, 64), nil, 64)
	c.SetIdleTimeout(30 * time.Millisecond)

	c.MarkDirty()
	if !c.AllowAnimation() {
		t.Error("animation should be allowed right after a change")
	}
	time.Sleep(60 * time.Millisecond)
	if c.AllowAnimation() {
		t.Error("animation should stop after the idle timeout")
	}
	c.MarkDirty()
	if !c.AllowAnimation() {
		t.Error("a new change should reopen the animation window")
	}
}

func TestDownload(t *testing.T) {
	base := document.New(512, 512)
	base.CreateDecal(document.KindText, document.CreateParams{Text: "base"}, document.Point{X: 100, Y: 100})
	overlay := document.New(512, 512)
	overlay.CreateDecal(document.KindText, document.CreateParams{Text: "top"}, document.Point{X: 200, Y: 200})

	c := New(newCaptureSlot(), overlay, base, 512)
	path := filepath.Join(t.TempDir(), "out.svg")
	if err := c.Download([]*document.Document{base, overlay}, path); err != nil {
		t.Fatalf("download: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	parsed, err := document.Parse(string(data))
	if err != nil {
		t.Fatalf("exported file does not parse: %v", err)
	}
	if len(parsed.Decals()) != 2 {
		t.Errorf("exported decal count = %d, want 2", len(parsed.Decals()))
	}

	if err := c.Download(nil, path); err == nil {
		t.Error("download of nothing should error")
	}
}

func TestParseColor(t *testing.T) {
	tests := []struct {
		in   string
		want color.RGBA
	}{
		{"#ff0000", color.RGBA{0xff, 0, 0, 0xff}},
		{"#1e90ff", color.RGBA{0x1e, 0x90, 0xff, 0xff}},
		{"", color.RGBA{A: 0xff}},
		{"none", color.RGBA{A: 0xff}},
		{"red", color.RGBA{A: 0xff}},
		{"#zzzzzz", color.RGBA{A: 0xff}},
	}
	for _, tt := range tests {
		if got := parseColor(tt.in); got != tt.want {
			t.Errorf("parseColor(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestParsePath(t *testing.T) {
	t.Run("triangle", func(t *testing.T) {
		subs := parsePath("M0 0 L10 0 L10 10 Z")
		if len(subs) != 1 {
			t.Fatalf("subpath count = %d, want 1", len(subs))
		}
		if len(subs[0]) != 3 {
			t.Errorf("vertex count = %d, want 3", len(subs[0]))
		}
	})

	t.Run("relative and shorthand", func(t *testing.T) {
		subs := parsePath("m10 10 l5 0 v5 h-5 z")
		if len(subs) != 1 {
			t.Fatalf("subpath count = %d, want 1", len(subs))
		}
		got := subs[0]
		want := []vertex{{10, 10}, {15, 10}, {15, 15}, {10, 15}}
		if len(got) != len(want) {
			t.Fatalf("vertices = %v, want %v", got, want)
		}
		for i := range want {
			if got[i] != want[i] {
				t.Errorf("vertex %d = %v, want %v", i, got[i], want[i])
			}
		}
	})

	t.Run("two subpaths", func(t *testing.T) {
		subs := parsePath("M0 0 L4 0 L4 4 Z M10 10 L14 10 L14 14 Z")
		if len(subs) != 2 {
			t.Fatalf("subpath count = %d, want 2", len(subs))
		}
	})

	t.Run("cubic flattening", func(t *testing.T) {
		subs := parsePath("M0 0 C0 10 10 10 10 0 L0 0 Z")
		if len(subs) != 1 {
			t.Fatalf("subpath count = %d, want 1", len(subs))
		}
		if len(subs[0]) < 10 {
			t.Errorf("cubic produced only %d vertices", len(subs[0]))
		}
	})

	t.Run("degenerate dropped", func(t *testing.T) {
		if subs := parsePath("M0 0 L1 1 Z"); len(subs) != 0 {
			t.Errorf("two-point subpath should be dropped, got %v", subs)
		}
	})
}

func TestFillPolygonStaysInBounds(t *testing.T) {
	dst := image.NewRGBA(image.Rect(0, 0, 16, 16))
	// Polygon reaching well outside the image must clip, not panic.
	fillPolygon(dst, []vertex{{-10, -10}, {30, -10}, {30, 30}, {-10, 30}}, color.RGBA{0, 0xff, 0, 0xff})
	if got := dst.RGBAAt(8, 8); got != (color.RGBA{0, 0xff, 0, 0xff}) {
		t.Errorf("interior = %v, want green", got)
	}
}
