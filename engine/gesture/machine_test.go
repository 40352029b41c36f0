package gesture

import (
	"image"
	m "math"
	"testing"
	"time"

	"github.com/Stifutina/three-svg-decals/engine/compositor"
	"github.com/Stifutina/three-svg-decals/engine/document"
	"github.com/Stifutina/three-svg-decals/engine/geometry"
	"github.com/Stifutina/three-svg-decals/engine/math"
	"github.com/Stifutina/three-svg-decals/engine/scene"
)

type nullSlot struct{}

func (nullSlot) WriteTexture(*image.RGBA) {}

// testCube builds a cube where every face spans the full [0,1]² texture
// range, so UV and document coordinates map onto each face directly.
func testCube(size float32) *scene.Mesh {
	h := size / 2

	type face struct {
		normal  math.Vec3
		corners [4]math.Vec3
	}
	faces := []face{
		{math.NewVec3(0, 0, 1), [4]math.Vec3{{X: -h, Y: -h, Z: h}, {X: h, Y: -h, Z: h}, {X: h, Y: h, Z: h}, {X: -h, Y: h, Z: h}}},
		{math.NewVec3(0, 0, -1), [4]math.Vec3{{X: h, Y: -h, Z: -h}, {X: -h, Y: -h, Z: -h}, {X: -h, Y: h, Z: -h}, {X: h, Y: h, Z: -h}}},
		{math.NewVec3(1, 0, 0), [4]math.Vec3{{X: h, Y: -h, Z: h}, {X: h, Y: -h, Z: -h}, {X: h, Y: h, Z: -h}, {X: h, Y: h, Z: h}}},
		{math.NewVec3(-1, 0, 0), [4]math.Vec3{{X: -h, Y: -h, Z: -h}, {X: -h, Y: -h, Z: h}, {X: -h, Y: h, Z: h}, {X: -h, Y: h, Z: -h}}},
		{math.NewVec3(0, 1, 0), [4]math.Vec3{{X: -h, Y: h, Z: h}, {X: h, Y: h, Z: h}, {X: h, Y: h, Z: -h}, {X: -h, Y: h, Z: -h}}},
		{math.NewVec3(0, -1, 0), [4]math.Vec3{{X: -h, Y: -h, Z: -h}, {X: h, Y: -h, Z: -h}, {X: h, Y: -h, Z: h}, {X: -h, Y: -h, Z: h}}},
	}
	uvs := [4]math.Vec2{{X: 0, Y: 0}, {X: 1, Y: 0}, {X: 1, Y: 1}, {X: 0, Y: 1}}

	mesh := &scene.Mesh{Name: "cube"}
	for _, f := range faces {
		base := uint32(len(mesh.Vertices))
		for i, c := range f.corners {
			mesh.Vertices = append(mesh.Vertices, math.Vertex3D{
				Position: c,
				Normal:   f.normal,
				Texcoord: uvs[i],
			})
		}
		mesh.Indices = append(mesh.Indices,
			base, base+1, base+2,
			base, base+2, base+3,
		)
	}
	return mesh
}

type fixture struct {
	machine  *Machine
	doc      *document.Document
	comp     *compositor.Compositor
	mapper   *geometry.Mapper
	nav      *scene.NavControls
	cube     *scene.Node
	viewport scene.Viewport
}

func newFixture(t *testing.T, slot compositor.TextureSlot) *fixture {
	t.Helper()

	root := scene.NewNode("root")
	cube := scene.NewMeshNode("cube", testCube(2))
	root.AddChild(cube)
	camera := scene.NewCamera(45, 800.0/600.0, 0.1, 100)
	mapper := geometry.NewMapper(root, camera)

	doc := document.New(1024, 1024)
	comp := compositor.New(slot, doc, nil, 64)
	nav := scene.NewNavControls()

	machine := NewMachine(mapper, doc, comp, nav)
	machine.SetCanvasRect(geometry.CanvasRect{Left: 0, Top: 0, Width: 800, Height: 600})
	viewport := scene.Viewport{Width: 800, Height: 600, PixelRatio: 1}
	machine.SetViewport(viewport)

	return &fixture{
		machine:  machine,
		doc:      doc,
		comp:     comp,
		mapper:   mapper,
		nav:      nav,
		cube:     cube,
		viewport: viewport,
	}
}

func (f *fixture) settle(t *testing.T) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for f.comp.Updating() {
		if time.Now().After(deadline) {
			t.Fatal("compositor never settled")
		}
		time.Sleep(time.Millisecond)
	}
}

// pointerAt projects a document point back through the surface to a
// pointer event aimed at it.
func (f *fixture) pointerAt(t *testing.T, p document.Point) PointerEvent {
	t.Helper()
	uv := math.NewVec2(float32(p.X/f.doc.Width), float32(1-p.Y/f.doc.Height))
	world := f.mapper.UVToWorldPoint(f.cube, uv)
	if world.IsZero() {
		t.Fatalf("document point %+v does not land on the surface", p)
	}
	x, y := f.mapper.WorldToScreenPoint(world, f.viewport)
	return PointerEvent{ClientX: float32(x), ClientY: float32(y)}
}

// docPointAt recomputes the document point an event resolves to, the
// same way the machine does.
func (f *fixture) docPointAt(t *testing.T, e PointerEvent) document.Point {
	t.Helper()
	hits := f.mapper.CastRay(geometry.ScreenToNDC(e.ClientX, e.ClientY, f.machine.canvas))
	if len(hits) == 0 {
		t.Fatalf("event %+v misses the surface", e)
	}
	return f.machine.uvToDoc(hits[0].UV)
}

func (f *fixture) newDecal(t *testing.T) string {
	t.Helper()
	return f.doc.CreateDecal(document.KindText, document.CreateParams{Text: "hi"}, document.Point{X: 512, Y: 512})
}

type recorder struct {
	clicks  []clickRecord
	updates []string
	states  []State
}

type clickRecord struct {
	uv    math.Vec2
	props *document.Properties
}

func (r *recorder) NotifyUpdate(source string, props *document.Properties) {
	r.updates = append(r.updates, source)
}

func (r *recorder) NotifyClick(uv math.Vec2, props *document.Properties) {
	r.clicks = append(r.clicks, clickRecord{uv: uv, props: props})
}

func (r *recorder) NotifyGesture(state State) {
	r.states = append(r.states, state)
}

func TestPointerDownOnContentStartsDrag(t *testing.T) {
	f := newFixture(t, nullSlot{})
	id := f.newDecal(t)
	rec := &recorder{}
	f.machine.SetNotifier(rec)

	// The screen center projects to the middle of the front face, which
	// maps to the document center where the decal sits.
	f.machine.PointerDown(PointerEvent{ClientX: 400, ClientY: 300})

	if f.machine.State() != StateDragging {
		t.Fatalf("state = %v, want dragging", f.machine.State())
	}
	if props := f.doc.GetProperties(id); !props.Active {
		t.Error("decal should be active after a content hit")
	}
	if f.nav.EnableRotate || f.nav.EnablePan || f.nav.EnableZoom {
		t.Error("camera navigation should be suppressed during a gesture")
	}
	if len(rec.clicks) != 1 || rec.clicks[0].props == nil {
		t.Fatalf("clicks = %+v, want one hit with properties", rec.clicks)
	}
	if !rec.clicks[0].uv.Compare(math.NewVec2(0.5, 0.5), 1e-3) {
		t.Errorf("click uv = %+v", rec.clicks[0].uv)
	}

	f.settle(t)
	f.machine.PointerUp(PointerEvent{ClientX: 400, ClientY: 300})

	if f.machine.State() != StateIdle {
		t.Errorf("state after release = %v, want idle", f.machine.State())
	}
	if !f.nav.EnableRotate || !f.nav.EnablePan || !f.nav.EnableZoom {
		t.Error("camera navigation should be restored on release")
	}
	if props := f.doc.GetProperties(id); !props.Active {
		t.Error("selection should survive the release")
	}
	if len(rec.states) != 2 || rec.states[0] != StateDragging || rec.states[1] != StateIdle {
		t.Errorf("state transitions = %v, want [dragging idle]", rec.states)
	}
	if len(rec.updates) != 2 || rec.updates[0] != "pointerdown" || rec.updates[1] != "pointerup" {
		t.Errorf("update sources = %v, want [pointerdown pointerup]", rec.updates)
	}
}

func TestDragUsesAbsoluteOffset(t *testing.T) {
	f := newFixture(t, nullSlot{})
	id := f.newDecal(t)

	down := PointerEvent{ClientX: 400, ClientY: 300}
	f.machine.PointerDown(down)
	f.settle(t)

	move := PointerEvent{ClientX: 424, ClientY: 312}
	downDoc := f.docPointAt(t, down)
	moveDoc := f.docPointAt(t, move)
	wantX := moveDoc.X - (downDoc.X - 512)
	wantY := moveDoc.Y - (downDoc.Y - 512)

	f.machine.PointerMove(move)

	props := f.doc.GetProperties(id)
	if m.Abs(props.Position.X-wantX) > 1e-9 || m.Abs(props.Position.Y-wantY) > 1e-9 {
		t.Errorf("position = %+v, want (%v, %v)", props.Position, wantX, wantY)
	}
}

func TestPointerDownMissDeselects(t *testing.T) {
	f := newFixture(t, nullSlot{})
	id := f.newDecal(t)
	if err := f.doc.SetActive(id); err != nil {
		t.Fatal(err)
	}
	rec := &recorder{}
	f.machine.SetNotifier(rec)

	// Top-left window corner, well off the cube.
	f.machine.PointerDown(PointerEvent{ClientX: 5, ClientY: 5})

	if f.machine.State() != StateIdle {
		t.Errorf("state = %v, want idle", f.machine.State())
	}
	if props := f.doc.GetProperties(id); props.Active {
		t.Error("miss should clear the selection")
	}
	if len(rec.clicks) != 1 || rec.clicks[0].props != nil {
		t.Fatalf("clicks = %+v, want one empty hit", rec.clicks)
	}
	if !rec.clicks[0].uv.Compare(math.NewVec2Zero(), 1e-9) {
		t.Errorf("miss click uv = %+v, want zero", rec.clicks[0].uv)
	}
}

func TestDeleteControlRemovesDecal(t *testing.T) {
	f := newFixture(t, nullSlot{})
	id := f.newDecal(t)
	if err := f.doc.SetActive(id); err != nil {
		t.Fatal(err)
	}
	props := f.doc.GetProperties(id)

	// Delete sits on the top-left corner of the bounding box.
	e := f.pointerAt(t, document.Point{X: props.Bounds.X, Y: props.Bounds.Y})
	f.machine.PointerDown(e)

	if f.machine.State() != StateDeleting {
		t.Fatalf("state = %v, want deleting", f.machine.State())
	}
	f.settle(t)
	f.machine.PointerUp(e)

	if f.doc.GetProperties(id) != nil {
		t.Error("decal should be removed on release")
	}
	if len(f.doc.Decals()) != 0 {
		t.Errorf("decal count = %d, want 0", len(f.doc.Decals()))
	}
	if f.machine.State() != StateIdle {
		t.Errorf("state after delete = %v, want idle", f.machine.State())
	}
}

func TestRotateControlGesture(t *testing.T) {
	f := newFixture(t, nullSlot{})
	id := f.newDecal(t)
	if err := f.doc.SetActive(id); err != nil {
		t.Fatal(err)
	}
	props := f.doc.GetProperties(id)

	// Rotate sits on the top-right corner of the bounding box.
	down := f.pointerAt(t, document.Point{X: props.Bounds.X + props.Bounds.W, Y: props.Bounds.Y})
	f.machine.PointerDown(down)
	if f.machine.State() != StateRotating {
		t.Fatalf("state = %v, want rotating", f.machine.State())
	}
	f.settle(t)

	// Swing the pointer straight below the content center.
	move := f.pointerAt(t, document.Point{X: 512, Y: 560})
	downDoc := f.docPointAt(t, down)
	moveDoc := f.docPointAt(t, move)
	startAngle := m.Atan2(downDoc.Y-512, downDoc.X-512) * 180 / m.Pi
	angle := m.Atan2(moveDoc.Y-512, moveDoc.X-512) * 180 / m.Pi
	want := math.NormalizeDegrees(angle - startAngle)

	f.machine.PointerMove(move)

	got := f.doc.GetProperties(id).Rotation
	if m.Abs(got-want) > 1e-9 {
		t.Errorf("rotation = %v, want %v", got, want)
	}
	if got < 0 || got >= 360 {
		t.Errorf("rotation %v outside [0,360)", got)
	}
}

func TestScaleControlGesture(t *testing.T) {
	f := newFixture(t, nullSlot{})
	id := f.newDecal(t)
	if err := f.doc.SetActive(id); err != nil {
		t.Fatal(err)
	}
	props := f.doc.GetProperties(id)

	// Scale sits on the bottom-right corner of the bounding box.
	corner := document.Point{
		X: props.Bounds.X + props.Bounds.W,
		Y: props.Bounds.Y + props.Bounds.H,
	}
	down := f.pointerAt(t, corner)
	f.machine.PointerDown(down)
	if f.machine.State() != StateScaling {
		t.Fatalf("state = %v, want scaling", f.machine.State())
	}
	if f.machine.snap.startDistance == 0 {
		t.Fatal("start distance should be captured from the projected center")
	}
	f.settle(t)

	// Pull the corner twice as far from the center.
	move := f.pointerAt(t, document.Point{
		X: 512 + 2*(corner.X-512),
		Y: 512 + 2*(corner.Y-512),
	})
	dx := float64(move.ClientX) - float64(f.machine.snap.centerX)
	dy := float64(move.ClientY) - float64(f.machine.snap.centerY)
	want := m.Sqrt(dx*dx+dy*dy) / f.machine.snap.startDistance

	f.machine.PointerMove(move)

	got := f.doc.GetProperties(id).Scale
	if m.Abs(got-want) > 1e-9 {
		t.Errorf("scale = %v, want %v", got, want)
	}
	if got <= 1.2 {
		t.Errorf("scale = %v, want a clear enlargement", got)
	}
}

func TestScaleZeroStartDistanceLeavesScale(t *testing.T) {
	f := newFixture(t, nullSlot{})
	id := f.newDecal(t)
	if err := f.doc.SetActive(id); err != nil {
		t.Fatal(err)
	}

	f.machine.targetID = id
	f.machine.surface = f.cube
	f.machine.state = StateScaling
	f.machine.snap = snapshot{startScale: 1, startDistance: 0}

	f.machine.PointerMove(PointerEvent{ClientX: 400, ClientY: 300})

	if got := f.doc.GetProperties(id).Scale; got != 1 {
		t.Errorf("scale = %v, want untouched 1", got)
	}
}

// heldSlot keeps a recomposite observably in flight until released.
type heldSlot struct {
	wrote   chan struct{}
	release chan struct{}
}

func (s *heldSlot) WriteTexture(*image.RGBA) {
	s.wrote <- struct{}{}
	<-s.release
}

func TestMoveDroppedWhileRecomposing(t *testing.T) {
	slot := &heldSlot{wrote: make(chan struct{}, 4), release: make(chan struct{})}
	f := newFixture(t, slot)
	id := f.newDecal(t)

	f.machine.PointerDown(PointerEvent{ClientX: 400, ClientY: 300})
	<-slot.wrote

	// The texture write is held open; the move must be dropped whole, not
	// deferred.
	f.machine.PointerMove(PointerEvent{ClientX: 424, ClientY: 312})
	props := f.doc.GetProperties(id)
	if props.Position.X != 512 || props.Position.Y != 512 {
		t.Errorf("position = %+v, want unchanged center", props.Position)
	}

	close(slot.release)
	f.settle(t)

	f.machine.PointerMove(PointerEvent{ClientX: 424, ClientY: 312})
	props = f.doc.GetProperties(id)
	if props.Position.X == 512 && props.Position.Y == 512 {
		t.Error("move after settling should apply")
	}
}
