package document

import (
	"fmt"

	"github.com/Stifutina/three-svg-decals/engine/core"
	"github.com/google/uuid"
	"golang.org/x/exp/slices"
)

// activeStyle hides the control affordances of every decal that is not
// selected. It ships in every serialized document so the exported SVG
// behaves the same way standalone.
const activeStyle = `.decal[data-active="false"] .controls{display:none}.decal[data-active="false"] .container{display:none}`

// Default intrinsic content sizes, in document units.
const (
	defaultTextSize   = 32.0
	defaultIconSize   = 64.0
	defaultImageSize  = 128.0
	textAdvanceFactor = 0.6
)

// Document is the vector scene graph holding one group per decal plus the
// shared selection stylesheet. Children are kept in insertion order so
// serialization is deterministic.
type Document struct {
	Width  float64
	Height float64

	// Style is the embedded stylesheet text, preserved exactly through
	// serialize/parse round trips.
	Style string

	decals []*Decal
}

func New(width, height float64) *Document {
	return &Document{
		Width:  width,
		Height: height,
		Style:  activeStyle,
	}
}

// nextID issues a globally unique decal id. Id generation belongs to the
// document, not to ambient package state.
func (doc *Document) nextID() string {
	return uuid.New().String()
}

// CreateParams carries the kind-specific content of a new decal.
type CreateParams struct {
	Text     string
	Color    string
	ImageRef string
	// ImageWidth/ImageHeight are the intrinsic pixel dimensions of a
	// raster image, used for the initial bounding box.
	ImageWidth  float64
	ImageHeight float64
	IconPath    string
}

// CreateDecal appends a new decal with a default transform at the given
// position and returns its id.
func (doc *Document) CreateDecal(kind Kind, params CreateParams, position Point) string {
	d := &Decal{
		ID:       doc.nextID(),
		Kind:     kind,
		Position: position,
		Rotation: 0,
		Scale:    1,
		Color:    params.Color,
	}
	if d.Color == "" {
		d.Color = "#000000"
	}

	switch kind {
	case KindText:
		d.Text = params.Text
		d.ContentWidth = float64(len([]rune(params.Text))) * defaultTextSize * textAdvanceFactor
		if d.ContentWidth == 0 {
			d.ContentWidth = defaultTextSize
		}
		d.ContentHeight = defaultTextSize
	case KindImage:
		d.ImageRef = params.ImageRef
		d.ContentWidth = params.ImageWidth
		d.ContentHeight = params.ImageHeight
		if d.ContentWidth == 0 || d.ContentHeight == 0 {
			d.ContentWidth = defaultImageSize
			d.ContentHeight = defaultImageSize
		}
	case KindIcon:
		d.IconPath = params.IconPath
		d.ContentWidth = defaultIconSize
		d.ContentHeight = defaultIconSize
	}

	doc.decals = append(doc.decals, d)
	return d.ID
}

// Decals returns the decals in insertion order. The slice is shared;
// callers must not mutate it.
func (doc *Document) Decals() []*Decal {
	return doc.decals
}

// Clone returns a deep copy sharing no decal nodes with the receiver.
// The compositor rasterizes clones so in-flight frames never read a
// document the caller keeps mutating.
func (doc *Document) Clone() *Document {
	out := &Document{
		Width:  doc.Width,
		Height: doc.Height,
		Style:  doc.Style,
		decals: make([]*Decal, len(doc.decals)),
	}
	for i, d := range doc.decals {
		c := *d
		out.decals[i] = &c
	}
	return out
}

func (doc *Document) find(id string) *Decal {
	for _, d := range doc.decals {
		if d.ID == id {
			return d
		}
	}
	return nil
}

// active returns the currently selected decal, or nil.
func (doc *Document) active() *Decal {
	for _, d := range doc.decals {
		if d.Active {
			return d
		}
	}
	return nil
}

// UpdateDecal applies the non-nil fields of the update to the decal.
// Unknown ids are a warning plus no-op, never an error that propagates.
func (doc *Document) UpdateDecal(id string, update Update) error {
	d := doc.find(id)
	if d == nil {
		core.LogWarn("UpdateDecal: no decal with id %q", id)
		return fmt.Errorf("no decal with id %q", id)
	}
	if update.X != nil {
		d.Position.X = *update.X
	}
	if update.Y != nil {
		d.Position.Y = *update.Y
	}
	if update.Rotation != nil {
		d.Rotation = *update.Rotation
	}
	if update.Scale != nil {
		if *update.Scale < 0 {
			core.LogWarn("UpdateDecal: negative scale %v ignored for %q", *update.Scale, id)
		} else {
			d.Scale = *update.Scale
		}
	}
	if update.Color != nil {
		d.Color = *update.Color
	}
	if update.Text != nil && d.Kind == KindText {
		d.Text = *update.Text
		d.ContentWidth = float64(len([]rune(d.Text))) * defaultTextSize * textAdvanceFactor
		if d.ContentWidth == 0 {
			d.ContentWidth = defaultTextSize
		}
	}
	return nil
}

// SetActive marks the decal selected, clearing any other selection so at
// most one decal is ever active.
func (doc *Document) SetActive(id string) error {
	target := doc.find(id)
	if target == nil {
		core.LogWarn("SetActive: no decal with id %q", id)
		return fmt.Errorf("no decal with id %q", id)
	}
	for _, d := range doc.decals {
		d.Active = d == target
	}
	return nil
}

// ClearActive deselects every decal.
func (doc *Document) ClearActive() {
	for _, d := range doc.decals {
		d.Active = false
	}
}

// DeleteDecal removes the decal with the given id, or the active decal
// when id is empty. It returns the removed decal's snapshot, or nil when
// there was nothing to delete.
func (doc *Document) DeleteDecal(id string) *Properties {
	var target *Decal
	if id == "" {
		target = doc.active()
	} else {
		target = doc.find(id)
	}
	if target == nil {
		core.LogWarn("DeleteDecal: nothing to delete (id=%q)", id)
		return nil
	}
	snapshot := target.snapshot()
	doc.decals = slices.DeleteFunc(doc.decals, func(d *Decal) bool { return d == target })
	return snapshot
}

// GetProperties returns a snapshot of the decal with the given id, or of
// the active decal when id is empty. Nil when no such decal exists.
func (doc *Document) GetProperties(id string) *Properties {
	var target *Decal
	if id == "" {
		target = doc.active()
	} else {
		target = doc.find(id)
	}
	if target == nil {
		return nil
	}
	return target.snapshot()
}

// HitResult is the outcome of a document-space hit test.
type HitResult struct {
	Decal *Decal
	// Intersected is true when the point fell inside the decal's extended
	// bounding region.
	Intersected bool
	// Content is true when the point fell inside the content box.
	Content bool
	// Control is the affordance hit, if any. Controls are only live on
	// the active decal since they are hidden otherwise.
	Control ControlAction
}

// HitTest finds the topmost decal whose extended region contains the
// point. Later children sit on top, so the scan runs back to front.
func (doc *Document) HitTest(p Point) HitResult {
	for i := len(doc.decals) - 1; i >= 0; i-- {
		d := doc.decals[i]
		if !d.HitBounds(p) {
			continue
		}
		res := HitResult{Decal: d, Intersected: true, Content: d.HitContent(p)}
		if d.Active {
			res.Control = d.HitControl(p)
		}
		return res
	}
	return HitResult{}
}
