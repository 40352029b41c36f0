package assets

import (
	"encoding/xml"
	"fmt"
	"image"
	"io"
	"os"
	"strings"

	"github.com/Stifutina/three-svg-decals/engine/core"
)

// LoadImage validates and decodes a raster asset. Validation failures
// return a user-facing error and the asset never reaches the document.
func (am *Manager) LoadImage(path string) (image.Image, error) {
	am.mutex.RLock()
	cached, ok := am.images[path]
	am.mutex.RUnlock()
	if ok {
		return cached, nil
	}

	if t := determineAssetType(path); t != TypeImage {
		return nil, fmt.Errorf("%q is not a supported image type (png, jpg)", path)
	}
	if err := am.checkSize(path); err != nil {
		return nil, err
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("cannot open image %q: %w", path, err)
	}
	defer file.Close()

	img, _, err := image.Decode(file)
	if err != nil {
		return nil, fmt.Errorf("%q is not a valid image: %w", path, err)
	}
	b := img.Bounds()
	if b.Dx() > am.limits.MaxPixels || b.Dy() > am.limits.MaxPixels {
		return nil, fmt.Errorf("image %q is %dx%d, larger than the %dpx limit",
			path, b.Dx(), b.Dy(), am.limits.MaxPixels)
	}

	am.mutex.Lock()
	am.images[path] = img
	am.mutex.Unlock()
	return img, nil
}

// ResolveImage is the compositor's image lookup. A miss is a warning
// plus nil; the compositor skips the decal.
func (am *Manager) ResolveImage(ref string) image.Image {
	img, err := am.LoadImage(ref)
	if err != nil {
		core.LogWarn("resolve image %q: %v", ref, err)
		return nil
	}
	return img
}

// LoadIconPath validates an SVG asset and extracts its first path data
// string for use as a vector icon decal.
func (am *Manager) LoadIconPath(path string) (string, error) {
	if t := determineAssetType(path); t != TypeIcon {
		return "", fmt.Errorf("%q is not an svg icon", path)
	}
	if err := am.checkSize(path); err != nil {
		return "", err
	}

	file, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("cannot open icon %q: %w", path, err)
	}
	defer file.Close()

	dec := xml.NewDecoder(file)
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", fmt.Errorf("%q is not a valid svg: %w", path, err)
		}
		start, ok := tok.(xml.StartElement)
		if !ok || start.Name.Local != "path" {
			continue
		}
		for _, a := range start.Attr {
			if a.Name.Local == "d" && strings.TrimSpace(a.Value) != "" {
				return a.Value, nil
			}
		}
	}
	return "", fmt.Errorf("icon %q contains no path data", path)
}

func (am *Manager) checkSize(path string) error {
	fi, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("cannot stat asset %q: %w", path, err)
	}
	if fi.Size() > am.limits.MaxBytes {
		return fmt.Errorf("asset %q is %d bytes, larger than the %d byte limit",
			path, fi.Size(), am.limits.MaxBytes)
	}
	return nil
}
