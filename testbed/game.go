package testbed

import (
	"fmt"

	"github.com/Stifutina/three-svg-decals/engine"
	"github.com/Stifutina/three-svg-decals/engine/authoring"
	"github.com/Stifutina/three-svg-decals/engine/core"
	"github.com/Stifutina/three-svg-decals/engine/document"
	"github.com/Stifutina/three-svg-decals/engine/math"
	"github.com/Stifutina/three-svg-decals/engine/scene"
)

type TestGame struct {
	*engine.Game
}

type gameState struct {
	width  uint32
	height uint32

	cube *scene.Node

	// Generation of the last texture frame we saw, for change logging.
	lastGeneration uint64
}

func NewTestGame() (*TestGame, error) {
	tg := &TestGame{
		Game: &engine.Game{
			ApplicationConfig: &engine.ApplicationConfig{
				StartPosX:   100,
				StartPosY:   100,
				StartWidth:  1280,
				StartHeight: 720,
				Name:        "Decal Testbed",
				ConfigPath:  "testbed.toml",
			},
			State: &gameState{},
		},
	}

	tg.FnInitialize = tg.Initialize
	tg.FnUpdate = tg.Update
	tg.FnOnResize = tg.OnResize
	tg.FnShutdown = tg.Shutdown

	return tg, nil
}

func (g *TestGame) Initialize() error {
	core.LogDebug("TestGame Initialize fn....")

	if g.Services == nil {
		return fmt.Errorf("the engine has not wired the decal pipeline yet")
	}

	state := g.State.(*gameState)

	s := g.Services
	s.Camera.Position = math.NewVec3(0, 2.0, 6.0)
	s.Camera.Target = math.NewVec3Zero()
	s.Camera.IsDirty = true

	state.cube = scene.NewMeshNode("demo_cube", generateCube(2.0))
	s.Model.AddChild(state.cube)
	s.Mapper.Accelerated = true

	s.Authoring.OnUpdate(func(p authoring.UpdatePayload) {
		if p.Decal != nil {
			core.LogDebug("decal %s changed by %s", p.Decal.ID, p.Source)
		}
	})
	s.Authoring.OnClick(func(p authoring.ClickPayload) {
		if p.Decal == nil {
			core.LogDebug("clicked empty surface at uv [%.3f, %.3f]", p.UV.X, p.UV.Y)
			return
		}
		core.LogDebug("clicked decal %s", p.Decal.ID)
	})
	s.Authoring.OnGesture(func(p authoring.GesturePayload) {
		core.LogDebug("gesture: %s", p.State)
	})

	// A text decal at the document center and a second one placed at a
	// random visible surface point.
	center := document.Point{X: s.Document.Width / 2, Y: s.Document.Height / 2}
	if _, err := s.Authoring.Put(&center, authoring.PutParams{
		Kind:  document.KindText,
		Text:  "hello",
		Color: "#222222",
	}); err != nil {
		return err
	}
	if _, err := s.Authoring.Put(nil, authoring.PutParams{
		Kind:  document.KindText,
		Text:  "drag me",
		Color: "#b03030",
	}); err != nil {
		core.LogWarn("random placement failed: %v", err)
	}

	return nil
}

func (g *TestGame) Update(deltaTime float64) error {
	state := g.State.(*gameState)

	_, generation := g.Services.Texture.Snapshot()
	if generation != state.lastGeneration {
		state.lastGeneration = generation
		fps, frameTime := g.Services.Metrics.Frame()
		core.LogDebug("texture frame %d ready (%.1f fps, %.2fms)", generation, fps, frameTime)
	}

	return nil
}

func (g *TestGame) OnResize(width uint32, height uint32) error {
	state := g.State.(*gameState)
	state.width = width
	state.height = height
	return nil
}

func (g *TestGame) Shutdown() error {
	// Keep whatever was authored during the session.
	if err := g.Services.Authoring.Export(""); err != nil {
		core.LogWarn("export on shutdown failed: %v", err)
	}
	return nil
}

// generateCube builds a unit-UV cube mesh of the given edge length. Each
// face spans the full texture, so a decal landing on any face maps onto
// the document without seams.
func generateCube(size float32) *scene.Mesh {
	h := size / 2

	type face struct {
		normal math.Vec3
		// Corner order is bottom-left, bottom-right, top-right, top-left
		// looking at the face from outside.
		corners [4]math.Vec3
	}
	faces := []face{
		{math.NewVec3(0, 0, 1), [4]math.Vec3{{-h, -h, h}, {h, -h, h}, {h, h, h}, {-h, h, h}}},
		{math.NewVec3(0, 0, -1), [4]math.Vec3{{h, -h, -h}, {-h, -h, -h}, {-h, h, -h}, {h, h, -h}}},
		{math.NewVec3(1, 0, 0), [4]math.Vec3{{h, -h, h}, {h, -h, -h}, {h, h, -h}, {h, h, h}}},
		{math.NewVec3(-1, 0, 0), [4]math.Vec3{{-h, -h, -h}, {-h, -h, h}, {-h, h, h}, {-h, h, -h}}},
		{math.NewVec3(0, 1, 0), [4]math.Vec3{{-h, h, h}, {h, h, h}, {h, h, -h}, {-h, h, -h}}},
		{math.NewVec3(0, -1, 0), [4]math.Vec3{{-h, -h, -h}, {h, -h, -h}, {h, -h, h}, {-h, -h, h}}},
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
