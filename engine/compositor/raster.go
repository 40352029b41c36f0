package compositor

import (
	"image"
	"image/color"
	m "math"
	"sort"
	"strconv"
	"strings"
	"unicode"

	"github.com/Stifutina/three-svg-decals/engine/core"
	"github.com/Stifutina/three-svg-decals/engine/math"
	"golang.org/x/image/math/f64"
)

// Affine helpers over f64.Aff3 (row-major 2x3, dst = M * src).

func affTranslate(tx, ty float64) f64.Aff3 {
	return f64.Aff3{1, 0, tx, 0, 1, ty}
}

func affScale(s float64) f64.Aff3 {
	return f64.Aff3{s, 0, 0, 0, s, 0}
}

func affRotate(sin, cos float64) f64.Aff3 {
	return f64.Aff3{cos, -sin, 0, sin, cos, 0}
}

// affMul composes two affines; the right-hand transform applies first.
func affMul(m, n f64.Aff3) f64.Aff3 {
	return f64.Aff3{
		m[0]*n[0] + m[1]*n[3], m[0]*n[1] + m[1]*n[4], m[0]*n[2] + m[1]*n[5] + m[2],
		m[3]*n[0] + m[4]*n[3], m[3]*n[1] + m[4]*n[4], m[3]*n[2] + m[4]*n[5] + m[5],
	}
}

func affApply(m f64.Aff3, x, y float64) (float64, float64) {
	return m[0]*x + m[1]*y + m[2], m[3]*x + m[4]*y + m[5]
}

type vertex struct {
	X, Y float64
}

// fillPolygon rasterizes a closed polygon with even-odd scanline filling.
// Good enough for the flat-color shapes this compositor draws: bounding
// rects, control discs and flattened icon paths.
func fillPolygon(dst *image.RGBA, pts []vertex, col color.RGBA) {
	if len(pts) < 3 {
		return
	}
	minY, maxY := pts[0].Y, pts[0].Y
	for _, p := range pts[1:] {
		if p.Y < minY {
			minY = p.Y
		}
		if p.Y > maxY {
			maxY = p.Y
		}
	}
	bounds := dst.Bounds()
	y0 := math.Clamp(int(minY), bounds.Min.Y, bounds.Max.Y)
	y1 := math.Clamp(int(maxY+1), bounds.Min.Y, bounds.Max.Y)

	var xs []float64
	for y := y0; y < y1; y++ {
		scan := float64(y) + 0.5
		xs = xs[:0]
		for i := range pts {
			a := pts[i]
			b := pts[(i+1)%len(pts)]
			if (a.Y <= scan) == (b.Y <= scan) {
				continue
			}
			t := (scan - a.Y) / (b.Y - a.Y)
			xs = append(xs, a.X+t*(b.X-a.X))
		}
		sort.Float64s(xs)
		for i := 0; i+1 < len(xs); i += 2 {
			x0 := math.Clamp(int(xs[i]+0.5), bounds.Min.X, bounds.Max.X)
			x1 := math.Clamp(int(xs[i+1]+0.5), bounds.Min.X, bounds.Max.X)
			for x := x0; x < x1; x++ {
				blend(dst, x, y, col)
			}
		}
	}
}

// strokePolygon draws a thin outline by filling a quad per edge.
func strokePolygon(dst *image.RGBA, pts []vertex, width float64, col color.RGBA) {
	for i := range pts {
		a := pts[i]
		b := pts[(i+1)%len(pts)]
		dx, dy := b.X-a.X, b.Y-a.Y
		length := dx*dx + dy*dy
		if length == 0 {
			continue
		}
		// Unit normal scaled to half the stroke width.
		inv := width / 2 / m.Sqrt(length)
		nx, ny := -dy*inv, dx*inv
		fillPolygon(dst, []vertex{
			{a.X + nx, a.Y + ny},
			{b.X + nx, b.Y + ny},
			{b.X - nx, b.Y - ny},
			{a.X - nx, a.Y - ny},
		}, col)
	}
}

func blend(dst *image.RGBA, x, y int, col color.RGBA) {
	if col.A == 0xff {
		dst.SetRGBA(x, y, col)
		return
	}
	existing := dst.RGBAAt(x, y)
	a := uint32(col.A)
	inv := 255 - a
	dst.SetRGBA(x, y, color.RGBA{
		R: uint8((uint32(col.R)*a + uint32(existing.R)*inv) / 255),
		G: uint8((uint32(col.G)*a + uint32(existing.G)*inv) / 255),
		B: uint8((uint32(col.B)*a + uint32(existing.B)*inv) / 255),
		A: uint8(a + uint32(existing.A)*inv/255),
	})
}

// circlePolygon approximates a disc with a fixed-segment polygon.
func circlePolygon(cx, cy, r float64) []vertex {
	const segments = 32
	pts := make([]vertex, segments)
	for i := 0; i < segments; i++ {
		s, c := m.Sincos(2 * m.Pi * float64(i) / segments)
		pts[i] = vertex{X: cx + r*c, Y: cy + r*s}
	}
	return pts
}

// parsePath flattens an SVG path data string into polygons. Supported
// commands: M/m, L/l, H/h, V/v, C/c (subdivided), Z/z. Anything else is
// skipped with a warning, leaving the remaining geometry usable.
func parsePath(data string) [][]vertex {
	tokens := tokenizePath(data)
	var subpaths [][]vertex
	var current []vertex
	var cx, cy float64
	var startX, startY float64

	i := 0
	readFloat := func() (float64, bool) {
		if i >= len(tokens) {
			return 0, false
		}
		v, err := strconv.ParseFloat(tokens[i], 64)
		if err != nil {
			return 0, false
		}
		i++
		return v, true
	}

	closeCurrent := func() {
		if len(current) >= 3 {
			subpaths = append(subpaths, current)
		}
		current = nil
	}

	cmd := ""
	for i < len(tokens) {
		tok := tokens[i]
		if len(tok) == 1 && strings.ContainsAny(tok, "MmLlHhVvCcZz") {
			cmd = tok
			i++
			if cmd == "Z" || cmd == "z" {
				cx, cy = startX, startY
				closeCurrent()
				continue
			}
		} else if cmd == "" {
			core.LogWarn("icon path: unsupported command %q, geometry truncated", tok)
			break
		}

		relative := cmd == strings.ToLower(cmd)
		switch strings.ToUpper(cmd) {
		case "M", "L":
			x, okX := readFloat()
			y, okY := readFloat()
			if !okX || !okY {
				return subpaths
			}
			if relative {
				x, y = cx+x, cy+y
			}
			if strings.ToUpper(cmd) == "M" && len(current) > 0 {
				closeCurrent()
			}
			if len(current) == 0 {
				startX, startY = x, y
			}
			current = append(current, vertex{x, y})
			cx, cy = x, y
			// Subsequent coordinate pairs after M behave like L.
			if strings.ToUpper(cmd) == "M" {
				if relative {
					cmd = "l"
				} else {
					cmd = "L"
				}
			}
		case "H":
			x, ok := readFloat()
			if !ok {
				return subpaths
			}
			if relative {
				x = cx + x
			}
			current = append(current, vertex{x, cy})
			cx = x
		case "V":
			y, ok := readFloat()
			if !ok {
				return subpaths
			}
			if relative {
				y = cy + y
			}
			current = append(current, vertex{cx, y})
			cy = y
		case "C":
			var pt [6]float64
			for j := 0; j < 6; j++ {
				v, ok := readFloat()
				if !ok {
					return subpaths
				}
				pt[j] = v
			}
			if relative {
				for j := 0; j < 6; j += 2 {
					pt[j] += cx
					pt[j+1] += cy
				}
			}
			// Flatten the cubic with fixed subdivision.
			const steps = 12
			for s := 1; s <= steps; s++ {
				t := float64(s) / steps
				mt := 1 - t
				x := mt*mt*mt*cx + 3*mt*mt*t*pt[0] + 3*mt*t*t*pt[2] + t*t*t*pt[4]
				y := mt*mt*mt*cy + 3*mt*mt*t*pt[1] + 3*mt*t*t*pt[3] + t*t*t*pt[5]
				current = append(current, vertex{x, y})
			}
			cx, cy = pt[4], pt[5]
		default:
			core.LogWarn("icon path: unsupported command %q skipped", cmd)
			i++
		}
	}
	closeCurrent()
	return subpaths
}

func tokenizePath(data string) []string {
	var tokens []string
	var b strings.Builder
	flush := func() {
		if b.Len() > 0 {
			tokens = append(tokens, b.String())
			b.Reset()
		}
	}
	for _, r := range data {
		switch {
		case unicode.IsLetter(r):
			flush()
			tokens = append(tokens, string(r))
		case r == ',' || unicode.IsSpace(r):
			flush()
		case r == '-':
			// A minus both separates and signs.
			flush()
			b.WriteRune(r)
		default:
			b.WriteRune(r)
		}
	}
	flush()
	return tokens
}
