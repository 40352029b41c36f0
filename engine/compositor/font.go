package compositor

import (
	"fmt"
	"image"
	"image/color"
	_ "image/png"
	"os"
	"path/filepath"

	"github.com/Stifutina/three-svg-decals/engine/core"
	"github.com/fzipp/bmfont"
)

// Font wraps a BMFont descriptor and its decoded page atlases for text
// decal rasterization.
type Font struct {
	face       string
	size       int
	lineHeight int
	base       int

	glyphs   map[rune]bmfont.Char
	kernings map[[2]rune]int
	pages    map[int]image.Image
}

// LoadFont reads a .fnt descriptor plus its page images from the same
// directory.
func LoadFont(fntPath string) (*Font, error) {
	font, err := bmfont.Load(fntPath)
	if err != nil {
		return nil, fmt.Errorf("load bitmap font %q: %w", fntPath, err)
	}

	f := &Font{
		face:       font.Descriptor.Info.Face,
		size:       int(font.Descriptor.Info.Size),
		lineHeight: int(font.Descriptor.Common.LineHeight),
		base:       int(font.Descriptor.Common.Base),
		glyphs:     make(map[rune]bmfont.Char),
		kernings:   make(map[[2]rune]int),
		pages:      make(map[int]image.Image),
	}
	for _, g := range font.Descriptor.Chars {
		f.glyphs[rune(g.ID)] = g
	}
	for pair, k := range font.Descriptor.Kerning {
		f.kernings[[2]rune{pair.First, pair.Second}] = k.Amount
	}

	dir := filepath.Dir(fntPath)
	for _, p := range font.Descriptor.Pages {
		img, err := loadPageImage(filepath.Join(dir, p.File))
		if err != nil {
			return nil, err
		}
		f.pages[int(p.ID)] = img
	}
	return f, nil
}

func loadPageImage(path string) (image.Image, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open font page %q: %w", path, err)
	}
	defer file.Close()
	img, _, err := image.Decode(file)
	if err != nil {
		return nil, fmt.Errorf("decode font page %q: %w", path, err)
	}
	return img, nil
}

// Measure returns the pixel width and height of a single line of text at
// the font's native size.
func (f *Font) Measure(text string) (int, int) {
	width := 0
	prev := rune(-1)
	for _, r := range text {
		g, ok := f.glyphs[r]
		if !ok {
			continue
		}
		if prev >= 0 {
			width += f.kernings[[2]rune{prev, r}]
		}
		width += int(g.XAdvance)
		prev = r
	}
	return width, f.lineHeight
}

// Render draws a single line of text into a fresh RGBA image at the
// font's native size, tinted with the supplied color. Glyph page alpha
// becomes coverage.
func (f *Font) Render(text string, tint color.Color) *image.RGBA {
	w, h := f.Measure(text)
	if w <= 0 || h <= 0 {
		return image.NewRGBA(image.Rect(0, 0, 1, 1))
	}
	dst := image.NewRGBA(image.Rect(0, 0, w, h))

	tr, tg, tb, _ := tint.RGBA()

	penX := 0
	prev := rune(-1)
	for _, r := range text {
		g, ok := f.glyphs[r]
		if !ok {
			core.LogDebug("font %q has no glyph for %q", f.face, r)
			continue
		}
		if prev >= 0 {
			penX += f.kernings[[2]rune{prev, r}]
		}
		page, ok := f.pages[int(g.Page)]
		if ok {
			blitGlyph(dst, page, g, penX, tr, tg, tb)
		}
		penX += int(g.XAdvance)
		prev = r
	}
	return dst
}

func blitGlyph(dst *image.RGBA, page image.Image, g bmfont.Char, penX int, tr, tg, tb uint32) {
	for y := 0; y < int(g.Height); y++ {
		for x := 0; x < int(g.Width); x++ {
			src := page.At(int(g.X)+x, int(g.Y)+y)
			_, _, _, sa := src.RGBA()
			if sa == 0 {
				continue
			}
			dx := penX + int(g.XOffset) + x
			dy := int(g.YOffset) + y
			dst.SetRGBA(dx, dy, color.RGBA{
				R: uint8((tr * sa / 0xffff) >> 8),
				G: uint8((tg * sa / 0xffff) >> 8),
				B: uint8((tb * sa / 0xffff) >> 8),
				A: uint8(sa >> 8),
			})
		}
	}
}
