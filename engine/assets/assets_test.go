package assets

import (
	"bytes"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"testing"
)

func TestDetermineAssetType(t *testing.T) {
	tests := []struct {
		path string
		want Type
	}{
		{"logo.png", TypeImage},
		{"photo.JPG", TypeImage},
		{"photo.jpeg", TypeImage},
		{"arrow.svg", TypeIcon},
		{"ubuntu.fnt", TypeFont},
		{"notes.txt", TypeNone},
		{"archive.tar.gz", TypeNone},
	}
	for _, tt := range tests {
		if got := determineAssetType(tt.path); got != tt.want {
			t.Errorf("determineAssetType(%q) = %v, want %v", tt.path, got, tt.want)
		}
	}
}

func writePNG(t *testing.T, dir string, name string, w, h int) string {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, w, h))); err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func newTestManager(t *testing.T, limits Limits) *Manager {
	t.Helper()
	am, err := NewManager(limits)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(am.Close)
	return am
}

func TestLoadImage(t *testing.T) {
	dir := t.TempDir()
	path := writePNG(t, dir, "ok.png", 8, 8)
	am := newTestManager(t, Limits{})

	img, err := am.LoadImage(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if img.Bounds().Dx() != 8 {
		t.Errorf("width = %d", img.Bounds().Dx())
	}

	// Second load comes from cache and must agree.
	again, err := am.LoadImage(path)
	if err != nil {
		t.Fatalf("cached load: %v", err)
	}
	if again != img {
		t.Error("cached load returned a different image")
	}
}

func TestLoadImageRejections(t *testing.T) {
	dir := t.TempDir()

	textPath := filepath.Join(dir, "notes.txt")
	os.WriteFile(textPath, []byte("not an image"), 0o644)
	fakePath := filepath.Join(dir, "fake.png")
	os.WriteFile(fakePath, []byte("not an image"), 0o644)
	bigPixels := writePNG(t, dir, "big.png", 64, 64)

	am := newTestManager(t, Limits{MaxPixels: 32})

	tests := []struct {
		name string
		path string
	}{
		{"wrong extension", textPath},
		{"corrupt payload", fakePath},
		{"oversized raster", bigPixels},
		{"missing file", filepath.Join(dir, "gone.png")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := am.LoadImage(tt.path); err == nil {
				t.Error("expected a rejection")
			}
		})
	}
}

func TestLoadImageByteLimit(t *testing.T) {
	dir := t.TempDir()
	path := writePNG(t, dir, "ok.png", 8, 8)

	am := newTestManager(t, Limits{MaxBytes: 10})
	if _, err := am.LoadImage(path); err == nil {
		t.Error("file over the byte limit should be rejected")
	}
}

func TestResolveImageMissIsNil(t *testing.T) {
	am := newTestManager(t, Limits{})
	if img := am.ResolveImage("nowhere.png"); img != nil {
		t.Error("resolve of a missing image should be nil, not an error")
	}
}

func TestLoadIconPath(t *testing.T) {
	dir := t.TempDir()
	iconPath := filepath.Join(dir, "arrow.svg")
	svg := `<svg xmlns="http://www.w3.org/2000/svg"><path d="M0 0 L10 0 L10 10 Z"/></svg>`
	os.WriteFile(iconPath, []byte(svg), 0o644)

	am := newTestManager(t, Limits{})
	d, err := am.LoadIconPath(iconPath)
	if err != nil {
		t.Fatalf("load icon: %v", err)
	}
	if d != "M0 0 L10 0 L10 10 Z" {
		t.Errorf("path data = %q", d)
	}
}

func TestLoadIconPathRejections(t *testing.T) {
	dir := t.TempDir()
	empty := filepath.Join(dir, "empty.svg")
	os.WriteFile(empty, []byte(`<svg xmlns="http://www.w3.org/2000/svg"><rect width="4" height="4"/></svg>`), 0o644)
	wrongExt := filepath.Join(dir, "icon.png")
	os.WriteFile(wrongExt, []byte("x"), 0o644)

	am := newTestManager(t, Limits{})
	if _, err := am.LoadIconPath(empty); err == nil {
		t.Error("svg without path data should be rejected")
	}
	if _, err := am.LoadIconPath(wrongExt); err == nil {
		t.Error("non-svg extension should be rejected")
	}
}

func TestManagerIndexesDirectory(t *testing.T) {
	dir := t.TempDir()
	writePNG(t, dir, "a.png", 4, 4)
	os.WriteFile(filepath.Join(dir, "b.svg"), []byte("<svg/>"), 0o644)
	os.WriteFile(filepath.Join(dir, "skip.txt"), []byte("x"), 0o644)

	am := newTestManager(t, Limits{})
	if err := am.Initialize(dir); err != nil {
		t.Fatalf("initialize: %v", err)
	}

	infos := am.Assets()
	if len(infos) != 2 {
		t.Fatalf("indexed %d assets, want 2", len(infos))
	}
	types := map[Type]bool{}
	for _, info := range infos {
		types[info.Type] = true
	}
	if !types[TypeImage] || !types[TypeIcon] {
		t.Errorf("indexed types = %+v", infos)
	}
}
