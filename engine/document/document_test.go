package document

import (
	"strings"
	"testing"
)

func newTestDoc() *Document {
	return New(1024, 1024)
}

func TestCreateDecalDefaults(t *testing.T) {
	doc := newTestDoc()
	id := doc.CreateDecal(KindText, CreateParams{Text: "hi"}, Point{X: 100, Y: 200})

	props := doc.GetProperties(id)
	if props == nil {
		t.Fatal("created decal not found")
	}
	if props.Scale != 1 {
		t.Errorf("default scale = %v, want 1", props.Scale)
	}
	if props.Rotation != 0 {
		t.Errorf("default rotation = %v, want 0", props.Rotation)
	}
	if props.Color != "#000000" {
		t.Errorf("default color = %q, want #000000", props.Color)
	}
	if props.Active {
		t.Error("new decal should not be active")
	}
	if props.Position.X != 100 || props.Position.Y != 200 {
		t.Errorf("position = %+v", props.Position)
	}
}

func TestUpdateDecalPartial(t *testing.T) {
	doc := newTestDoc()
	id := doc.CreateDecal(KindText, CreateParams{Text: "hi", Color: "#ff0000"}, Point{X: 100, Y: 100})

	// Only X set; everything else untouched.
	if err := doc.UpdateDecal(id, Update{X: Float64(250)}); err != nil {
		t.Fatal(err)
	}
	props := doc.GetProperties(id)
	if props.Position.X != 250 || props.Position.Y != 100 {
		t.Errorf("position = %+v, want {250 100}", props.Position)
	}
	if props.Color != "#ff0000" {
		t.Errorf("color changed to %q", props.Color)
	}
}

func TestUpdateDecalZeroValuesApply(t *testing.T) {
	doc := newTestDoc()
	id := doc.CreateDecal(KindText, CreateParams{Text: "hi"}, Point{X: 100, Y: 100})
	doc.UpdateDecal(id, Update{Rotation: Float64(45), Scale: Float64(2)})

	// A pointer to zero is a real request, not an absent field.
	if err := doc.UpdateDecal(id, Update{Rotation: Float64(0), Scale: Float64(0)}); err != nil {
		t.Fatal(err)
	}
	props := doc.GetProperties(id)
	if props.Rotation != 0 {
		t.Errorf("rotation = %v, want 0", props.Rotation)
	}
	if props.Scale != 0 {
		t.Errorf("scale = %v, want 0", props.Scale)
	}
}

func TestUpdateDecalNegativeScaleIgnored(t *testing.T) {
	doc := newTestDoc()
	id := doc.CreateDecal(KindText, CreateParams{Text: "hi"}, Point{X: 100, Y: 100})
	doc.UpdateDecal(id, Update{Scale: Float64(-2)})

	if props := doc.GetProperties(id); props.Scale != 1 {
		t.Errorf("scale = %v, want 1 after rejected negative", props.Scale)
	}
}

func TestUpdateDecalUnknownID(t *testing.T) {
	doc := newTestDoc()
	if err := doc.UpdateDecal("missing", Update{X: Float64(1)}); err == nil {
		t.Error("updating an unknown id should error")
	}
}

func TestRotationNormalizedOnRead(t *testing.T) {
	doc := newTestDoc()
	id := doc.CreateDecal(KindText, CreateParams{Text: "hi"}, Point{X: 100, Y: 100})

	tests := []struct {
		in   float64
		want float64
	}{
		{400, 40},
		{-20, 340},
		{720, 0},
	}
	for _, tt := range tests {
		doc.UpdateDecal(id, Update{Rotation: Float64(tt.in)})
		if got := doc.GetProperties(id).Rotation; got != tt.want {
			t.Errorf("rotation %v reads back as %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestAtMostOneActive(t *testing.T) {
	doc := newTestDoc()
	a := doc.CreateDecal(KindText, CreateParams{Text: "a"}, Point{X: 100, Y: 100})
	b := doc.CreateDecal(KindText, CreateParams{Text: "b"}, Point{X: 500, Y: 500})

	doc.SetActive(a)
	doc.SetActive(b)

	activeCount := 0
	for _, d := range doc.Decals() {
		if d.Active {
			activeCount++
			if d.ID != b {
				t.Errorf("active decal is %s, want %s", d.ID, b)
			}
		}
	}
	if activeCount != 1 {
		t.Errorf("active count = %d, want 1", activeCount)
	}

	doc.ClearActive()
	if doc.GetProperties("") != nil {
		t.Error("ClearActive left a selection")
	}
}

func TestDeleteDecal(t *testing.T) {
	doc := newTestDoc()
	a := doc.CreateDecal(KindText, CreateParams{Text: "a"}, Point{X: 100, Y: 100})
	doc.SetActive(a)

	// Empty id deletes the active decal.
	removed := doc.DeleteDecal("")
	if removed == nil || removed.ID != a {
		t.Fatalf("removed = %+v, want decal %s", removed, a)
	}
	if len(doc.Decals()) != 0 {
		t.Errorf("decal count = %d, want 0", len(doc.Decals()))
	}

	// Deleting with nothing selected is a nil no-op, not a panic or error.
	if removed := doc.DeleteDecal(""); removed != nil {
		t.Errorf("delete with no selection = %+v, want nil", removed)
	}
	if removed := doc.DeleteDecal("missing"); removed != nil {
		t.Errorf("delete of unknown id = %+v, want nil", removed)
	}
}

func TestHitTestTopmost(t *testing.T) {
	doc := newTestDoc()
	bottom := doc.CreateDecal(KindText, CreateParams{Text: "under"}, Point{X: 500, Y: 500})
	top := doc.CreateDecal(KindText, CreateParams{Text: "over"}, Point{X: 500, Y: 500})

	res := doc.HitTest(Point{X: 500, Y: 500})
	if !res.Intersected || res.Decal == nil {
		t.Fatal("expected a hit at the shared center")
	}
	if res.Decal.ID != top {
		t.Errorf("hit %s, want topmost %s (bottom is %s)", res.Decal.ID, top, bottom)
	}
	if !res.Content {
		t.Error("center point should be a content hit")
	}
}

func TestHitTestControlsOnlyOnActive(t *testing.T) {
	doc := newTestDoc()
	id := doc.CreateDecal(KindText, CreateParams{Text: "hi"}, Point{X: 500, Y: 500})

	d := doc.find(id)
	corner := d.Bounds() // delete control sits at the top-left corner
	probe := Point{X: corner.X, Y: corner.Y}

	res := doc.HitTest(probe)
	if res.Control != ControlNone {
		t.Errorf("inactive decal reported control %v", res.Control)
	}

	doc.SetActive(id)
	res = doc.HitTest(probe)
	if res.Control != ControlDelete {
		t.Errorf("control = %v, want delete", res.Control)
	}
}

func TestHitTestMiss(t *testing.T) {
	doc := newTestDoc()
	doc.CreateDecal(KindText, CreateParams{Text: "hi"}, Point{X: 500, Y: 500})

	res := doc.HitTest(Point{X: 10, Y: 10})
	if res.Intersected || res.Decal != nil {
		t.Errorf("expected a miss, got %+v", res)
	}
}

func TestScaleUpdateIdempotentInSerializedOutput(t *testing.T) {
	doc := newTestDoc()
	id := doc.CreateDecal(KindText, CreateParams{Text: "hi"}, Point{X: 500, Y: 500})

	doc.UpdateDecal(id, Update{Scale: Float64(1.5)})
	first := doc.Serialize()
	doc.UpdateDecal(id, Update{Scale: Float64(1.5)})
	second := doc.Serialize()

	if first != second {
		t.Error("re-applying the same scale changed the serialized document")
	}
	if !strings.Contains(first, `data-scale="1.5"`) {
		t.Error("serialized document missing the applied scale")
	}
}

func TestCloneIsIsolated(t *testing.T) {
	doc := newTestDoc()
	id := doc.CreateDecal(KindText, CreateParams{Text: "hi"}, Point{X: 100, Y: 100})
	if err := doc.SetActive(id); err != nil {
		t.Fatal(err)
	}
	before := doc.Serialize()

	clone := doc.Clone()
	if clone.Decals()[0] == doc.Decals()[0] {
		t.Fatal("clone shares decal nodes with the original")
	}
	if clone.Serialize() != before {
		t.Error("clone does not serialize identically to the original")
	}

	// Mutating the original must leave the clone on the old state.
	if err := doc.UpdateDecal(id, Update{X: Float64(900)}); err != nil {
		t.Fatal(err)
	}
	doc.ClearActive()
	if clone.Serialize() != before {
		t.Error("mutating the original changed the clone")
	}
}
