package engine

import (
	"image"
	"sync"
)

// TextureTarget is the live texture the compositor writes into. A GPU
// backend would upload Image whenever Generation advances; headless
// consumers read it directly.
type TextureTarget struct {
	mu         sync.Mutex
	img        *image.RGBA
	generation uint64
}

func NewTextureTarget() *TextureTarget {
	return &TextureTarget{}
}

// WriteTexture stores the composited frame and bumps the generation.
func (t *TextureTarget) WriteTexture(img *image.RGBA) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.img = img
	t.generation++
}

// Snapshot returns the latest frame and its generation counter. The
// image must not be mutated by the caller.
func (t *TextureTarget) Snapshot() (*image.RGBA, uint64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.img, t.generation
}
