package authoring

import (
	"fmt"

	"github.com/Stifutina/three-svg-decals/engine/assets"
	"github.com/Stifutina/three-svg-decals/engine/compositor"
	"github.com/Stifutina/three-svg-decals/engine/core"
	"github.com/Stifutina/three-svg-decals/engine/document"
	"github.com/Stifutina/three-svg-decals/engine/geometry"
	"github.com/Stifutina/three-svg-decals/engine/gesture"
	"github.com/Stifutina/three-svg-decals/engine/math"
	"github.com/Stifutina/three-svg-decals/engine/scene"
)

// UpdatePayload is delivered with core.EventDecalUpdated on every
// visually relevant mutation.
type UpdatePayload struct {
	// Source names the operation that caused the mutation.
	Source string
	// Document is the serialized decal document after the mutation.
	Document string
	// Active interaction flags at the time of the event.
	Dragging bool
	Rotating bool
	Scaling  bool
	// Decal is the affected decal's snapshot, nil when it was removed.
	Decal *document.Properties
}

// ClickPayload is delivered with core.EventDecalClicked on every
// pointer-down hit test.
type ClickPayload struct {
	UV math.Vec2
	// Decal is the hit decal's snapshot, nil on a miss.
	Decal *document.Properties
}

// GesturePayload is delivered with core.EventGestureChanged on every
// interaction state transition.
type GesturePayload struct {
	State    string
	Dragging bool
	Rotating bool
	Scaling  bool
}

// PutParams describes the decal to create.
type PutParams struct {
	Kind  document.Kind
	Text  string
	Color string
	// ImagePath and IconPath are asset paths resolved (and validated)
	// through the asset manager.
	ImagePath string
	IconPath  string
}

// API is the public authoring surface: a thin façade over the document,
// mapper and compositor used by the host UI to add decals and read state
// back for binding. Every mutating call triggers a recomposite and
// notifies bus subscribers.
type API struct {
	doc     *document.Document
	baseDoc *document.Document
	mapper  *geometry.Mapper
	comp    *compositor.Compositor
	machine *gesture.Machine
	bus     *core.Bus
	assets  *assets.Manager
	// model is the node random surface placement samples.
	model *scene.Node
}

func New(
	doc, baseDoc *document.Document,
	mapper *geometry.Mapper,
	comp *compositor.Compositor,
	machine *gesture.Machine,
	bus *core.Bus,
	assetManager *assets.Manager,
	model *scene.Node,
) *API {
	api := &API{
		doc:     doc,
		baseDoc: baseDoc,
		mapper:  mapper,
		comp:    comp,
		machine: machine,
		bus:     bus,
		assets:  assetManager,
		model:   model,
	}
	machine.SetNotifier(api)
	comp.SetOnFrame(func() {
		bus.Fire(core.Event{Code: core.EventRecomposited, Sender: api})
	})
	return api
}

// Close tears down the subscriber registrations this API owns.
func (api *API) Close() {
	api.bus.Close()
}

// OnUpdate subscribes to mutation events.
func (api *API) OnUpdate(fn func(UpdatePayload)) core.ListenerHandle {
	return api.bus.Register(core.EventDecalUpdated, func(e core.Event) bool {
		if p, ok := e.Payload.(UpdatePayload); ok {
			fn(p)
		}
		return false
	})
}

// OnClick subscribes to pointer-down hit test events.
func (api *API) OnClick(fn func(ClickPayload)) core.ListenerHandle {
	return api.bus.Register(core.EventDecalClicked, func(e core.Event) bool {
		if p, ok := e.Payload.(ClickPayload); ok {
			fn(p)
		}
		return false
	})
}

// OnRecomposite subscribes to texture frame completions. The callback
// runs on the compositor's goroutine.
func (api *API) OnRecomposite(fn func()) core.ListenerHandle {
	return api.bus.Register(core.EventRecomposited, func(e core.Event) bool {
		fn()
		return false
	})
}

// OnGesture subscribes to interaction state transitions.
func (api *API) OnGesture(fn func(GesturePayload)) core.ListenerHandle {
	return api.bus.Register(core.EventGestureChanged, func(e core.Event) bool {
		if p, ok := e.Payload.(GesturePayload); ok {
			fn(p)
		}
		return false
	})
}

// Put creates a decal at the given document position, or at a randomly
// sampled point on the model surface when position is nil.
func (api *API) Put(position *document.Point, params PutParams) (string, error) {
	create := document.CreateParams{Text: params.Text, Color: params.Color}

	switch params.Kind {
	case document.KindImage:
		if api.assets == nil {
			return "", fmt.Errorf("no asset manager configured for image decals")
		}
		img, err := api.assets.LoadImage(params.ImagePath)
		if err != nil {
			return "", err
		}
		create.ImageRef = params.ImagePath
		create.ImageWidth = float64(img.Bounds().Dx())
		create.ImageHeight = float64(img.Bounds().Dy())
	case document.KindIcon:
		if api.assets == nil {
			return "", fmt.Errorf("no asset manager configured for icon decals")
		}
		pathData, err := api.assets.LoadIconPath(params.IconPath)
		if err != nil {
			return "", err
		}
		create.IconPath = pathData
	}

	var at document.Point
	if position != nil {
		at = *position
	} else {
		hit, ok := api.mapper.RandomSurfaceRay(api.model)
		if !ok {
			return "", fmt.Errorf("no visible surface point found for placement")
		}
		at = document.Point{
			X: float64(hit.UV.X) * api.doc.Width,
			Y: (1 - float64(hit.UV.Y)) * api.doc.Height,
		}
	}

	id := api.doc.CreateDecal(params.Kind, create, at)
	api.mutated("put", id)
	return id, nil
}

// Update applies a partial property set to the decal.
func (api *API) Update(id string, update document.Update) error {
	if err := api.doc.UpdateDecal(id, update); err != nil {
		return err
	}
	api.mutated("update", id)
	return nil
}

// Select makes the decal the active one.
func (api *API) Select(id string) error {
	if err := api.doc.SetActive(id); err != nil {
		return err
	}
	api.mutated("select", id)
	return nil
}

// Delete removes the decal with the given id, or the active one when id
// is empty. Nil result means there was nothing to delete.
func (api *API) Delete(id string) *document.Properties {
	removed := api.doc.DeleteDecal(id)
	if removed == nil {
		return nil
	}
	api.notify("delete", nil)
	api.comp.RequestRecomposite(nil)
	return removed
}

// GetProperties returns the decal snapshot, defaulting to the active
// decal when id is empty. Nil when no such decal exists.
func (api *API) GetProperties(id string) *document.Properties {
	return api.doc.GetProperties(id)
}

// DeactivateAll clears the selection.
func (api *API) DeactivateAll() {
	api.doc.ClearActive()
	api.notify("deactivate", nil)
	api.comp.RequestRecomposite(nil)
}

// Export merges the base and decal documents and saves them as a single
// SVG file. An empty filename uses the compositor default.
func (api *API) Export(filename string) error {
	docs := []*document.Document{}
	if api.baseDoc != nil {
		docs = append(docs, api.baseDoc)
	}
	docs = append(docs, api.doc)
	return api.comp.Download(docs, filename)
}

// Serialize returns the current decal document as an SVG string.
func (api *API) Serialize() string {
	return api.doc.Serialize()
}

func (api *API) mutated(source, id string) {
	api.notify(source, api.doc.GetProperties(id))
	api.comp.RequestRecomposite(nil)
}

func (api *API) notify(source string, props *document.Properties) {
	dragging, rotating, scaling := api.machine.Flags()
	api.bus.Fire(core.Event{
		Code:   core.EventDecalUpdated,
		Sender: api,
		Payload: UpdatePayload{
			Source:   source,
			Document: api.doc.Serialize(),
			Dragging: dragging,
			Rotating: rotating,
			Scaling:  scaling,
			Decal:    props,
		},
	})
}

// NotifyUpdate implements gesture.Notifier.
func (api *API) NotifyUpdate(source string, props *document.Properties) {
	api.notify(source, props)
}

// NotifyClick implements gesture.Notifier.
func (api *API) NotifyClick(uv math.Vec2, props *document.Properties) {
	api.bus.Fire(core.Event{
		Code:    core.EventDecalClicked,
		Sender:  api,
		Payload: ClickPayload{UV: uv, Decal: props},
	})
}

// NotifyGesture implements gesture.Notifier.
func (api *API) NotifyGesture(state gesture.State) {
	dragging, rotating, scaling := api.machine.Flags()
	api.bus.Fire(core.Event{
		Code:   core.EventGestureChanged,
		Sender: api,
		Payload: GesturePayload{
			State:    state.String(),
			Dragging: dragging,
			Rotating: rotating,
			Scaling:  scaling,
		},
	})
}

var _ gesture.Notifier = (*API)(nil)
