package compositor

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	m "math"
	"os"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Stifutina/three-svg-decals/engine/core"
	"github.com/Stifutina/three-svg-decals/engine/document"
	xdraw "golang.org/x/image/draw"
	"golang.org/x/image/math/f64"
)

// DefaultExportFilename is used by Download when the caller passes none.
const DefaultExportFilename = "decals.svg"

// DefaultIdleTimeout is how long after the last mutation the render loop
// keeps animating.
const DefaultIdleTimeout = time.Second

// Compositor rasterizes the base and decal documents into a fixed
// resolution bitmap and pushes it into the host's texture slot.
//
// Recomposite requests are fire-and-forget: rasterization happens off the
// caller's stack (standing in for asynchronous image decode) and a mutex
// serializes canvas writes so concurrent requests never interleave. The
// updating flag lets interaction code drop work while a write is in
// flight instead of queueing it.
type Compositor struct {
	texture    TextureSlot
	resolution int

	decalDoc *document.Document
	baseDoc  *document.Document

	font   *Font
	images ImageResolver
	// onFrame, when set, runs after every completed texture write.
	onFrame func()

	// canvasMu is the canvas ownership lock: one rasterize+write at a time.
	canvasMu sync.Mutex
	updating atomic.Bool
	// pending coalesces requests refused while a write was in flight into
	// one trailing recomposite, so the texture settles on the final state.
	pending atomic.Bool

	idleTimeout time.Duration
	// lastChange is unix nanoseconds of the last document mutation.
	lastChange atomic.Int64
}

// New creates a compositor over the decal document and an optional base
// layer document (nil for none).
func New(texture TextureSlot, decalDoc, baseDoc *document.Document, resolution int) *Compositor {
	c := &Compositor{
		texture:     texture,
		resolution:  resolution,
		decalDoc:    decalDoc,
		baseDoc:     baseDoc,
		idleTimeout: DefaultIdleTimeout,
	}
	c.MarkDirty()
	return c
}

func (c *Compositor) SetFont(font *Font)               { c.font = font }
func (c *Compositor) SetImageResolver(r ImageResolver) { c.images = r }
func (c *Compositor) SetIdleTimeout(d time.Duration)   { c.idleTimeout = d }

// SetOnFrame installs a completion hook invoked after every texture
// write. Set it before the first recomposite request.
func (c *Compositor) SetOnFrame(fn func()) { c.onFrame = fn }

// Updating reports whether a recomposite is currently in flight. The
// gesture machine consults this to drop pointer moves under load.
func (c *Compositor) Updating() bool {
	return c.updating.Load()
}

// MarkDirty resets the idle gate's rolling timeout. Called on every
// document mutation.
func (c *Compositor) MarkDirty() {
	c.lastChange.Store(time.Now().UnixNano())
}

// AllowAnimation reports whether the render loop should keep drawing.
// It closes idleTimeout after the last mutation; purely a resource
// conservation measure with no effect on document state.
func (c *Compositor) AllowAnimation() bool {
	last := time.Unix(0, c.lastChange.Load())
	return time.Since(last) < c.idleTimeout
}

// RequestRecomposite rasterizes the current documents into the texture
// slot. It returns false when a previous request is still in flight; the
// request is not started, but one trailing recomposite runs after the
// in-flight write completes so the texture never settles stale. The
// optional callback runs after this request's texture write completes.
func (c *Compositor) RequestRecomposite(done func()) bool {
	if c.texture == nil {
		core.LogWarn("recomposite requested before a texture slot was bound")
		return false
	}
	if !c.updating.CompareAndSwap(false, true) {
		c.pending.Store(true)
		return false
	}
	c.MarkDirty()

	// Snapshot on the caller's stack. The goroutine must never read the
	// live documents; callers keep mutating them while it runs.
	var decals, base *document.Document
	if c.decalDoc != nil {
		decals = c.decalDoc.Clone()
	}
	if c.baseDoc != nil {
		base = c.baseDoc.Clone()
	}

	go func() {
		c.canvasMu.Lock()
		frame := c.rasterize(decals, base)
		c.texture.WriteTexture(frame)
		c.canvasMu.Unlock()

		c.updating.Store(false)
		if c.onFrame != nil {
			c.onFrame()
		}
		if done != nil {
			done()
		}
		if c.pending.Swap(false) {
			c.RequestRecomposite(nil)
		}
	}()
	return true
}

// rasterize composes the base layer, then the decal layer, into a fresh
// frame.
func (c *Compositor) rasterize(decalDoc, baseDoc *document.Document) *image.RGBA {
	frame := image.NewRGBA(image.Rect(0, 0, c.resolution, c.resolution))
	draw.Draw(frame, frame.Bounds(), image.White, image.Point{}, draw.Src)

	if baseDoc != nil {
		c.renderDocument(frame, baseDoc)
	}
	if decalDoc != nil {
		c.renderDocument(frame, decalDoc)
	}
	return frame
}

func (c *Compositor) renderDocument(dst *image.RGBA, doc *document.Document) {
	if doc.Width == 0 || doc.Height == 0 {
		return
	}
	k := float64(c.resolution) / doc.Width
	for _, d := range doc.Decals() {
		c.renderDecal(dst, d, k)
	}
}

// renderDecal draws one decal's content, plus its selection chrome when
// active, applying the document's active-visibility styling in raster
// form.
func (c *Compositor) renderDecal(dst *image.RGBA, d *document.Decal, k float64) {
	theta := d.NormalizedRotation() * m.Pi / 180.0
	sin, cos := m.Sincos(theta)

	// Content-local (centered) doc units -> document pixels.
	base := affMul(
		affTranslate(d.Position.X*k, d.Position.Y*k),
		affMul(affRotate(sin, cos), affScale(d.Scale*k)),
	)

	switch d.Kind {
	case document.KindText:
		c.renderText(dst, d, base)
	case document.KindImage:
		c.renderImage(dst, d, base)
	case document.KindIcon:
		c.renderIcon(dst, d, base)
	}

	if d.Active {
		c.renderChrome(dst, d, k)
	}
}

func (c *Compositor) renderText(dst *image.RGBA, d *document.Decal, base f64.Aff3) {
	if c.font == nil {
		core.LogWarn("text decal %s skipped: no font configured", d.ID)
		return
	}
	line := c.font.Render(d.Text, parseColor(d.Color))
	src := line.Bounds()
	if src.Dx() == 0 || src.Dy() == 0 {
		return
	}
	// Fit the native-size line into the decal's content box.
	fit := affMul(
		affTranslate(-d.ContentWidth/2, -d.ContentHeight/2),
		scaleXY(d.ContentWidth/float64(src.Dx()), d.ContentHeight/float64(src.Dy())),
	)
	xdraw.ApproxBiLinear.Transform(dst, affMul(base, fit), line, src, xdraw.Over, nil)
}

func (c *Compositor) renderImage(dst *image.RGBA, d *document.Decal, base f64.Aff3) {
	if c.images == nil {
		core.LogWarn("image decal %s skipped: no image resolver configured", d.ID)
		return
	}
	src := c.images.ResolveImage(d.ImageRef)
	if src == nil {
		core.LogWarn("image decal %s skipped: unknown image %q", d.ID, d.ImageRef)
		return
	}
	sb := src.Bounds()
	if sb.Dx() == 0 || sb.Dy() == 0 {
		return
	}
	fit := affMul(
		affTranslate(-d.ContentWidth/2, -d.ContentHeight/2),
		scaleXY(d.ContentWidth/float64(sb.Dx()), d.ContentHeight/float64(sb.Dy())),
	)
	xdraw.ApproxBiLinear.Transform(dst, affMul(base, fit), src, sb, xdraw.Over, nil)
}

func (c *Compositor) renderIcon(dst *image.RGBA, d *document.Decal, base f64.Aff3) {
	if d.IconPath == "" {
		return
	}
	col := parseColor(d.Color)
	aff := affMul(base, affTranslate(-d.ContentWidth/2, -d.ContentHeight/2))
	for _, sub := range parsePath(d.IconPath) {
		pts := make([]vertex, len(sub))
		for i, p := range sub {
			x, y := affApply(aff, p.X, p.Y)
			pts[i] = vertex{x, y}
		}
		fillPolygon(dst, pts, col)
	}
}

// renderChrome draws the selection outline and control discs. Chrome is
// axis-aligned on the bounding box, mirroring the vector document.
func (c *Compositor) renderChrome(dst *image.RGBA, d *document.Decal, k float64) {
	b := d.Bounds()
	outline := []vertex{
		{b.X * k, b.Y * k},
		{(b.X + b.W) * k, b.Y * k},
		{(b.X + b.W) * k, (b.Y + b.H) * k},
		{b.X * k, (b.Y + b.H) * k},
	}
	accent := color.RGBA{R: 0x1e, G: 0x90, B: 0xff, A: 0xff}
	strokePolygon(dst, outline, 2, accent)

	for _, corner := range outline {
		fillPolygon(dst, circlePolygon(corner.X, corner.Y, document.ControlRadius*k/2), accent)
	}
}

// Download merges the children of the given documents into one exportable
// vector document and saves it client-side. An empty filename uses
// DefaultExportFilename.
func (c *Compositor) Download(docs []*document.Document, filename string) error {
	if len(docs) == 0 {
		return fmt.Errorf("nothing to download")
	}
	if filename == "" {
		filename = DefaultExportFilename
	}
	merged := document.Merge(docs...)
	if err := os.WriteFile(filename, []byte(merged.Serialize()), 0o644); err != nil {
		core.LogError("download failed: %v", err)
		return err
	}
	core.LogInfo("exported %d decal(s) to %s", len(merged.Decals()), filename)
	return nil
}

func scaleXY(sx, sy float64) f64.Aff3 {
	return f64.Aff3{sx, 0, 0, 0, sy, 0}
}

func parseColor(s string) color.RGBA {
	if len(s) == 7 && s[0] == '#' {
		r, err1 := strconv.ParseUint(s[1:3], 16, 8)
		g, err2 := strconv.ParseUint(s[3:5], 16, 8)
		b, err3 := strconv.ParseUint(s[5:7], 16, 8)
		if err1 == nil && err2 == nil && err3 == nil {
			return color.RGBA{R: uint8(r), G: uint8(g), B: uint8(b), A: 0xff}
		}
	}
	if s != "" && s != "none" {
		core.LogWarn("unparseable color %q, using black", s)
	}
	return color.RGBA{A: 0xff}
}
