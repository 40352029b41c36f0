package compositor

import "image"

// TextureSlot is the render host's texture binding. The compositor is the
// only writer; the host reads whole frames for shading.
type TextureSlot interface {
	// WriteTexture replaces the texture contents with the supplied frame.
	// The image is fully composed before the call; the slot must not
	// retain it past upload.
	WriteTexture(img *image.RGBA)
}

// ImageResolver turns a decal's image reference into decoded pixels.
// Returning nil means the reference is unknown; the compositor skips the
// decal and logs a warning.
type ImageResolver interface {
	ResolveImage(ref string) image.Image
}
