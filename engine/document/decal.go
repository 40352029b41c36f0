package document

import (
	"github.com/Stifutina/three-svg-decals/engine/math"
)

// Kind is the content variant of a decal, fixed at creation.
type Kind int

const (
	KindText Kind = iota
	KindImage
	KindIcon
)

func (k Kind) String() string {
	switch k {
	case KindText:
		return "text"
	case KindImage:
		return "image"
	case KindIcon:
		return "icon"
	}
	return "unknown"
}

func kindFromString(s string) (Kind, bool) {
	switch s {
	case "text":
		return KindText, true
	case "image":
		return KindImage, true
	case "icon":
		return KindIcon, true
	}
	return 0, false
}

// Point is a position in document coordinate space.
type Point struct {
	X, Y float64
}

// Rect is an axis-aligned rectangle in document coordinate space.
type Rect struct {
	X, Y, W, H float64
}

func (r Rect) Contains(p Point) bool {
	return p.X >= r.X && p.X <= r.X+r.W && p.Y >= r.Y && p.Y <= r.Y+r.H
}

func (r Rect) Center() Point {
	return Point{X: r.X + r.W/2, Y: r.Y + r.H/2}
}

// Inflate grows the rectangle by d on every side.
func (r Rect) Inflate(d float64) Rect {
	return Rect{X: r.X - d, Y: r.Y - d, W: r.W + 2*d, H: r.H + 2*d}
}

// ControlAction tags a control affordance on an active decal.
type ControlAction int

const (
	ControlNone ControlAction = iota
	ControlRotate
	ControlScale
	ControlDelete
)

func (a ControlAction) String() string {
	switch a {
	case ControlRotate:
		return "rotate"
	case ControlScale:
		return "scale"
	case ControlDelete:
		return "delete"
	}
	return "none"
}

func controlActionFromString(s string) (ControlAction, bool) {
	switch s {
	case "rotate":
		return ControlRotate, true
	case "scale":
		return ControlScale, true
	case "delete":
		return ControlDelete, true
	}
	return ControlNone, false
}

// ControlRadius is the hit radius of a control affordance, in document
// units, before decal scaling.
const ControlRadius = 16.0

// Decal is one placed graphical object: a group node holding container,
// content and controls sub-groups.
type Decal struct {
	// ID is assigned at creation and immutable.
	ID string
	// Kind is fixed at creation.
	Kind Kind

	// Position is the content center, in document coordinates.
	Position Point
	// Rotation is stored as given; normalize on read.
	Rotation float64
	// Scale is a nonnegative multiplier around the content center.
	Scale float64
	// Color applies to text glyphs and icon paths with a non-"none"
	// fill/stroke. Meaningless for raster images.
	Color string
	// Text is present only for KindText.
	Text string
	// Active is the selection flag. At most one decal is active.
	Active bool

	// ContentWidth/ContentHeight are the unscaled intrinsic dimensions of
	// the content, set at creation.
	ContentWidth  float64
	ContentHeight float64

	// ImageRef is the asset reference for KindImage.
	ImageRef string
	// IconPath is the SVG path data for KindIcon.
	IconPath string
}

// NormalizedRotation returns the rotation wrapped into [0, 360).
func (d *Decal) NormalizedRotation() float64 {
	return math.NormalizeDegrees(d.Rotation)
}

// Bounds derives the on-document bounding box of the content from its
// intrinsic size, scale and position. Never stored; recomputed on demand.
func (d *Decal) Bounds() Rect {
	w := d.ContentWidth * d.Scale
	h := d.ContentHeight * d.Scale
	return Rect{X: d.Position.X - w/2, Y: d.Position.Y - h/2, W: w, H: h}
}

type controlPlacement struct {
	Action ControlAction
	Center Point
}

// controlCenters places the three control affordances on the corners of
// the current bounding box: delete top-left, rotate top-right, scale
// bottom-right. They track the box as the decal moves and scales. The
// order is fixed so hit-testing is deterministic when circles overlap.
func (d *Decal) controlCenters() [3]controlPlacement {
	b := d.Bounds()
	return [3]controlPlacement{
		{ControlDelete, Point{X: b.X, Y: b.Y}},
		{ControlRotate, Point{X: b.X + b.W, Y: b.Y}},
		{ControlScale, Point{X: b.X + b.W, Y: b.Y + b.H}},
	}
}

// HitControl reports which control affordance, if any, contains the point.
func (d *Decal) HitControl(p Point) ControlAction {
	for _, c := range d.controlCenters() {
		dx := p.X - c.Center.X
		dy := p.Y - c.Center.Y
		if dx*dx+dy*dy <= ControlRadius*ControlRadius {
			return c.Action
		}
	}
	return ControlNone
}

// HitBounds reports whether the point falls inside the decal's extended
// region: the content box inflated to cover the control affordances.
func (d *Decal) HitBounds(p Point) bool {
	return d.Bounds().Inflate(ControlRadius).Contains(p)
}

// HitContent reports whether the point falls inside the content box.
func (d *Decal) HitContent(p Point) bool {
	return d.Bounds().Contains(p)
}

// Properties is a read-only snapshot of a decal, handed to the host UI
// for data binding.
type Properties struct {
	ID       string
	Kind     Kind
	Position Point
	Rotation float64
	Scale    float64
	Color    string
	Text     string
	Active   bool
	Bounds   Rect
}

func (d *Decal) snapshot() *Properties {
	return &Properties{
		ID:       d.ID,
		Kind:     d.Kind,
		Position: d.Position,
		Rotation: d.NormalizedRotation(),
		Scale:    d.Scale,
		Color:    d.Color,
		Text:     d.Text,
		Active:   d.Active,
		Bounds:   d.Bounds(),
	}
}

// Update is a partial property set for UpdateDecal. Nil fields are left
// unchanged; a pointer to zero applies zero. This makes the
// "falsy but meaningful" trap structurally impossible.
type Update struct {
	X        *float64
	Y        *float64
	Rotation *float64
	Scale    *float64
	Color    *string
	Text     *string
}

// Float64 returns a pointer to v, for building Update literals.
func Float64(v float64) *float64 { return &v }

// String returns a pointer to v, for building Update literals.
func String(v string) *string { return &v }
