package gesture

import (
	m "math"

	"github.com/Stifutina/three-svg-decals/engine/compositor"
	"github.com/Stifutina/three-svg-decals/engine/core"
	"github.com/Stifutina/three-svg-decals/engine/document"
	"github.com/Stifutina/three-svg-decals/engine/geometry"
	"github.com/Stifutina/three-svg-decals/engine/math"
	"github.com/Stifutina/three-svg-decals/engine/scene"
)

// State is the machine's interaction mode. Exactly one holds at a time;
// the tagged enum makes the mutual exclusion structural instead of
// convention over a set of booleans.
type State int

const (
	StateIdle State = iota
	StateDragging
	StateRotating
	StateScaling
	// StateDeleting is a pending flag resolved on pointer release, not an
	// interactive mode: moves are ignored while it holds.
	StateDeleting
)

func (s State) String() string {
	switch s {
	case StateDragging:
		return "dragging"
	case StateRotating:
		return "rotating"
	case StateScaling:
		return "scaling"
	case StateDeleting:
		return "deleting"
	}
	return "idle"
}

// PointerEvent is a raw pointer sample in page coordinates.
type PointerEvent struct {
	ClientX float32
	ClientY float32
}

// snapshot is the ephemeral per-gesture state captured on pointer-down
// and consumed on every move. Discarded on pointer-up, never persisted.
type snapshot struct {
	// Pointer-to-decal offset in document coordinates at gesture start.
	offsetX, offsetY float64
	// Transform values at gesture start.
	startRotation float64
	startScale    float64
	// Angle, in degrees, from the content center to the pointer at start.
	startAngle float64
	// Projected decal center and the pointer's distance from it, in
	// physical screen pixels at start.
	centerX, centerY int
	startDistance    float64
}

// Notifier receives the machine's outward notifications. Implemented by
// the authoring API, which wraps them into subscriber events.
type Notifier interface {
	// NotifyUpdate fires after any decal mutation or selection change.
	NotifyUpdate(source string, props *document.Properties)
	// NotifyClick fires on every pointer-down hit test.
	NotifyClick(uv math.Vec2, props *document.Properties)
	// NotifyGesture fires on every interaction state transition.
	NotifyGesture(state State)
}

// Machine consumes raw pointer events, hit-tests the decal document at
// the ray-hit UV and drives document mutations, suppressing camera
// navigation while a gesture is active.
type Machine struct {
	mapper *geometry.Mapper
	doc    *document.Document
	comp   *compositor.Compositor
	nav    *scene.NavControls

	canvas   geometry.CanvasRect
	viewport scene.Viewport

	state    State
	snap     snapshot
	targetID string
	surface  *scene.Node
	notifier Notifier
}

func NewMachine(mapper *geometry.Mapper, doc *document.Document, comp *compositor.Compositor, nav *scene.NavControls) *Machine {
	return &Machine{
		mapper: mapper,
		doc:    doc,
		comp:   comp,
		nav:    nav,
		state:  StateIdle,
	}
}

func (g *Machine) SetNotifier(n Notifier)              { g.notifier = n }
func (g *Machine) SetCanvasRect(r geometry.CanvasRect) { g.canvas = r }
func (g *Machine) SetViewport(v scene.Viewport)        { g.viewport = v }

// State returns the current interaction mode.
func (g *Machine) State() State {
	return g.state
}

// Flags expands the state into the dragging/rotating/scaling triple the
// authoring event payload carries.
func (g *Machine) Flags() (dragging, rotating, scaling bool) {
	return g.state == StateDragging, g.state == StateRotating, g.state == StateScaling
}

// uvToDoc maps a surface UV to document coordinates. V runs up in UV
// space and down in the document.
func (g *Machine) uvToDoc(uv math.Vec2) document.Point {
	return document.Point{
		X: float64(uv.X) * g.doc.Width,
		Y: (1 - float64(uv.Y)) * g.doc.Height,
	}
}

func (g *Machine) docToUV(p document.Point) math.Vec2 {
	return math.Vec2{
		X: float32(p.X / g.doc.Width),
		Y: float32(1 - p.Y/g.doc.Height),
	}
}

// pointerPixels converts a pointer event to physical screen pixels
// relative to the canvas origin.
func (g *Machine) pointerPixels(e PointerEvent) (float64, float64) {
	return float64((e.ClientX - g.canvas.Left) * g.viewport.PixelRatio),
		float64((e.ClientY - g.canvas.Top) * g.viewport.PixelRatio)
}

// PointerDown classifies the hit and enters the matching gesture state.
func (g *Machine) PointerDown(e PointerEvent) {
	ndc := geometry.ScreenToNDC(e.ClientX, e.ClientY, g.canvas)
	hits := g.mapper.CastRay(ndc)
	if len(hits) == 0 {
		g.doc.ClearActive()
		g.toIdle()
		if g.notifier != nil {
			g.notifier.NotifyClick(math.NewVec2Zero(), nil)
		}
		g.comp.RequestRecomposite(nil)
		return
	}

	hit := hits[0]
	docPt := g.uvToDoc(hit.UV)
	res := g.doc.HitTest(docPt)

	if g.notifier != nil {
		var props *document.Properties
		if res.Decal != nil {
			props = g.doc.GetProperties(res.Decal.ID)
		}
		g.notifier.NotifyClick(hit.UV, props)
	}

	if !res.Intersected {
		g.doc.ClearActive()
		g.toIdle()
		g.comp.RequestRecomposite(nil)
		return
	}

	// Controls are hit-tested before selection moves, so they belong to
	// the decal that was already active.
	next := StateIdle
	switch {
	case res.Control == document.ControlRotate:
		next = StateRotating
	case res.Control == document.ControlScale:
		next = StateScaling
	case res.Control == document.ControlDelete:
		next = StateDeleting
	case res.Content:
		next = StateDragging
	}

	if err := g.doc.SetActive(res.Decal.ID); err != nil {
		return
	}
	g.targetID = res.Decal.ID
	g.surface = hit.Object

	if next != StateIdle {
		g.enterGesture(next, e, docPt)
	} else {
		g.state = StateIdle
	}

	if g.notifier != nil {
		g.notifier.NotifyUpdate("pointerdown", g.doc.GetProperties(g.targetID))
	}
	g.comp.RequestRecomposite(nil)
}

// enterGesture captures the gesture snapshot and suppresses camera
// navigation until release.
func (g *Machine) enterGesture(next State, e PointerEvent, docPt document.Point) {
	props := g.doc.GetProperties(g.targetID)
	if props == nil {
		return
	}

	g.snap = snapshot{
		offsetX:       docPt.X - props.Position.X,
		offsetY:       docPt.Y - props.Position.Y,
		startRotation: props.Rotation,
		startScale:    props.Scale,
		startAngle: m.Atan2(docPt.Y-props.Position.Y, docPt.X-props.Position.X) *
			180.0 / m.Pi,
	}

	// Project the content center to screen space for scale gestures.
	centerWorld := g.mapper.UVToWorldPoint(g.surface, g.docToUV(props.Position))
	if !centerWorld.IsZero() {
		g.snap.centerX, g.snap.centerY = g.mapper.WorldToScreenPoint(centerWorld, g.viewport)
		px, py := g.pointerPixels(e)
		dx := px - float64(g.snap.centerX)
		dy := py - float64(g.snap.centerY)
		g.snap.startDistance = m.Sqrt(dx*dx + dy*dy)
	}

	g.state = next
	g.nav.DisableAll()
	g.fireStateChange()
}

// PointerMove applies the active gesture. Moves arriving while a
// recomposite is in flight are dropped, not queued.
func (g *Machine) PointerMove(e PointerEvent) {
	if g.state == StateIdle || g.state == StateDeleting {
		return
	}
	if g.comp.Updating() {
		return
	}

	ndc := geometry.ScreenToNDC(e.ClientX, e.ClientY, g.canvas)
	hits := g.mapper.CastRay(ndc)
	if len(hits) == 0 {
		return
	}
	docPt := g.uvToDoc(hits[0].UV)

	props := g.doc.GetProperties(g.targetID)
	if props == nil {
		core.LogWarn("gesture target %q vanished mid-gesture", g.targetID)
		g.toIdle()
		return
	}

	switch g.state {
	case StateDragging:
		// Absolute semantics: subtract the offset captured at start from
		// the current pointer position. The offset is never reapplied
		// incrementally.
		x := docPt.X - g.snap.offsetX
		y := docPt.Y - g.snap.offsetY
		g.doc.UpdateDecal(g.targetID, document.Update{X: &x, Y: &y})

	case StateRotating:
		angle := m.Atan2(docPt.Y-props.Position.Y, docPt.X-props.Position.X) *
			180.0 / m.Pi
		rot := math.NormalizeDegrees(g.snap.startRotation + angle - g.snap.startAngle)
		g.doc.UpdateDecal(g.targetID, document.Update{Rotation: &rot})

	case StateScaling:
		// A zero start distance cannot produce a ratio; leave the scale
		// untouched instead of propagating Inf/NaN.
		if g.snap.startDistance == 0 {
			return
		}
		px, py := g.pointerPixels(e)
		dx := px - float64(g.snap.centerX)
		dy := py - float64(g.snap.centerY)
		scale := m.Sqrt(dx*dx+dy*dy) / g.snap.startDistance * g.snap.startScale
		g.doc.UpdateDecal(g.targetID, document.Update{Scale: &scale})
	}

	if g.notifier != nil {
		g.notifier.NotifyUpdate("pointermove", g.doc.GetProperties(g.targetID))
	}
	g.comp.RequestRecomposite(nil)
}

// PointerUp resolves a pending delete, resets to Idle and restores
// camera navigation.
func (g *Machine) PointerUp(e PointerEvent) {
	wasGesture := g.state != StateIdle

	if g.state == StateDeleting {
		if removed := g.doc.DeleteDecal(""); removed != nil {
			core.LogDebug("decal %s deleted by gesture", removed.ID)
		}
		g.targetID = ""
	}

	g.toIdle()

	if wasGesture {
		var props *document.Properties
		if g.targetID != "" {
			props = g.doc.GetProperties(g.targetID)
		}
		if g.notifier != nil {
			g.notifier.NotifyUpdate("pointerup", props)
		}
		g.comp.RequestRecomposite(nil)
	}
}

func (g *Machine) toIdle() {
	changed := g.state != StateIdle
	g.state = StateIdle
	g.snap = snapshot{}
	g.nav.EnableAll()
	if changed {
		g.fireStateChange()
	}
}

func (g *Machine) fireStateChange() {
	core.LogDebug("gesture state -> %s", g.state)
	if g.notifier != nil {
		g.notifier.NotifyGesture(g.state)
	}
}
