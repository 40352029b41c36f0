package geometry

import (
	"sort"
	"time"

	"github.com/Stifutina/three-svg-decals/engine/core"
	"github.com/Stifutina/three-svg-decals/engine/math"
	"github.com/Stifutina/three-svg-decals/engine/scene"
	"golang.org/x/exp/rand"
)

// CanvasRect is the on-page rectangle of the render surface, in logical
// pixels, as reported by the host.
type CanvasRect struct {
	Left, Top     float32
	Width, Height float32
}

// Intersection is a single ray/surface hit.
type Intersection struct {
	// Object is the scene node whose mesh was hit.
	Object *scene.Node
	// Point is the world-space hit position.
	Point math.Vec3
	// Normal is the world-space surface normal at the hit.
	Normal math.Vec3
	// UV is the interpolated texture coordinate at the hit, in [0,1]².
	UV math.Vec2
	// Distance is the world-space distance from the ray origin.
	Distance float32
}

// randomSurfaceAttempts bounds how many rays RandomSurfaceRay fires before
// reporting a miss.
const randomSurfaceAttempts = 10

// Mapper converts between screen, UV and world coordinates for one scene
// root and camera. It holds no mutable state beyond the injected scene
// reference and a lazily built triangle index per mesh.
type Mapper struct {
	root   *scene.Node
	camera *scene.Camera

	// Accelerated is on by default. The naive path visits every triangle
	// per cast and is a performance risk on dense meshes; it exists as a
	// fallback and as the reference the index is validated against.
	Accelerated bool

	index map[*scene.Mesh]*bvh
	rng   *rand.Rand
}

func NewMapper(root *scene.Node, camera *scene.Camera) *Mapper {
	return &Mapper{
		root:        root,
		camera:      camera,
		Accelerated: true,
		index:       make(map[*scene.Mesh]*bvh),
		rng:         rand.New(rand.NewSource(uint64(time.Now().UnixNano()))),
	}
}

// Seed makes RandomSurfaceRay deterministic, for tests.
func (mp *Mapper) Seed(seed uint64) {
	mp.rng = rand.New(rand.NewSource(seed))
}

// ScreenToNDC maps a pointer position in page coordinates to normalized
// device coordinates in [-1,1]². The transform is independent of the
// device pixel ratio: both inputs are logical pixels.
func ScreenToNDC(clientX, clientY float32, rect CanvasRect) math.Vec2 {
	return math.Vec2{
		X: ((clientX-rect.Left)/rect.Width)*2.0 - 1.0,
		Y: -(((clientY - rect.Top) / rect.Height) * 2.0) + 1.0,
	}
}

// CastRay fires a ray through the NDC position and returns every mesh hit
// under the scene root, nearest first. An empty slice means the ray
// missed; callers must check for it.
func (mp *Mapper) CastRay(ndc math.Vec2) []Intersection {
	origin, direction, ok := mp.unproject(ndc)
	if !ok {
		return nil
	}

	var hits []Intersection
	mp.root.Walk(func(node *scene.Node) {
		if node.Mesh == nil {
			return
		}
		hits = append(hits, mp.castNode(node, origin, direction)...)
	})
	sort.Slice(hits, func(i, j int) bool { return hits[i].Distance < hits[j].Distance })
	return hits
}

// unproject builds a world-space ray from an NDC position using the
// camera's inverse view-projection.
func (mp *Mapper) unproject(ndc math.Vec2) (origin, direction math.Vec3, ok bool) {
	inv := mp.camera.ViewProjection().Inverse()

	near := math.Vec4{X: ndc.X, Y: ndc.Y, Z: -1, W: 1}.Transform(inv)
	far := math.Vec4{X: ndc.X, Y: ndc.Y, Z: 1, W: 1}.Transform(inv)
	if near.W == 0 || far.W == 0 {
		return math.NewVec3Zero(), math.NewVec3Zero(), false
	}
	np := near.ToVec3().MulScalar(1.0 / near.W)
	fp := far.ToVec3().MulScalar(1.0 / far.W)

	dir := fp.Sub(np)
	if dir.LengthSquared() == 0 {
		return math.NewVec3Zero(), math.NewVec3Zero(), false
	}
	return np, dir.Normalized(), true
}

func (mp *Mapper) castNode(node *scene.Node, origin, direction math.Vec3) []Intersection {
	world := node.WorldTransform()
	invWorld := world.Inverse()

	// Bring the ray into object space. Direction uses w=0 and is left
	// unnormalized so the object-space t maps back through the hit point.
	localOrigin := origin.Transform(invWorld)
	localDir := direction.ToVec4(0).Transform(invWorld).ToVec3()
	if localDir.LengthSquared() == 0 {
		return nil
	}

	var hits []Intersection
	record := func(tri int, _ float32, weights math.Barycentric) {
		va, vb, vc := node.Mesh.Triangle(tri)
		localPoint := math.BarycentricInterpolate(weights, va.Position, vb.Position, vc.Position)
		worldPoint := localPoint.Transform(world)

		localNormal := vb.Position.Sub(va.Position).Cross(vc.Position.Sub(va.Position))
		worldNormal := localNormal.ToVec4(0).Transform(invWorld.Transposed()).ToVec3().Normalized()

		uv := va.Texcoord.MulScalar(weights.U).
			Add(vb.Texcoord.MulScalar(weights.V)).
			Add(vc.Texcoord.MulScalar(weights.W))

		hits = append(hits, Intersection{
			Object:   node,
			Point:    worldPoint,
			Normal:   worldNormal,
			UV:       uv,
			Distance: worldPoint.Distance(origin),
		})
	}

	if mp.Accelerated {
		b, exists := mp.index[node.Mesh]
		if !exists {
			b = buildBVH(node.Mesh)
			mp.index[node.Mesh] = b
		}
		b.cast(localOrigin, localDir, record)
		return hits
	}

	for i := 0; i < node.Mesh.TriangleCount(); i++ {
		va, vb, vc := node.Mesh.Triangle(i)
		if t, w, ok := math.RayTriangle(localOrigin, localDir, va.Position, vb.Position, vc.Position); ok {
			record(i, t, w)
		}
	}
	return hits
}

// UVToWorldPoint maps a UV coordinate back onto the mesh surface. It scans
// the mesh for the first triangle whose planar UV barycentrics contain the
// target (degenerate triangles skipped), interpolates the corresponding
// vertex positions and transforms them to world space.
//
// A zero vector means "no containing triangle"; callers must treat it as
// no result, not as the origin.
func (mp *Mapper) UVToWorldPoint(node *scene.Node, uv math.Vec2) math.Vec3 {
	if node == nil || node.Mesh == nil {
		core.LogWarn("UVToWorldPoint: no mesh on target node")
		return math.NewVec3Zero()
	}
	mesh := node.Mesh
	for i := 0; i < mesh.TriangleCount(); i++ {
		va, vb, vc := mesh.Triangle(i)
		weights, ok := math.BarycentricUV(uv, va.Texcoord, vb.Texcoord, vc.Texcoord)
		if !ok || !weights.Inside() {
			continue
		}
		local := math.BarycentricInterpolate(weights, va.Position, vb.Position, vc.Position)
		return local.Transform(node.WorldTransform())
	}
	return math.NewVec3Zero()
}

// WorldToScreenPoint projects a world-space point into integer pixel
// coordinates on the render surface.
func (mp *Mapper) WorldToScreenPoint(point math.Vec3, viewport scene.Viewport) (int, int) {
	clip := point.ToVec4(1).Transform(mp.camera.ViewProjection())
	if clip.W == 0 {
		return 0, 0
	}
	ndcX := clip.X / clip.W
	ndcY := clip.Y / clip.W

	x := (ndcX + 1.0) / 2.0 * viewport.Width * viewport.PixelRatio
	y := (1.0 - ndcY) / 2.0 * viewport.Height * viewport.PixelRatio
	return int(x + 0.5), int(y + 0.5)
}

// RandomSurfaceRay casts rays from random positions outside the model's
// bounding box toward its center until one lands on the model itself,
// giving up after a fixed attempt budget. Used for decal placement when
// the caller supplies no position.
func (mp *Mapper) RandomSurfaceRay(model *scene.Node) (Intersection, bool) {
	bounds, ok := model.WorldExtents()
	if !ok {
		core.LogWarn("RandomSurfaceRay: model subtree holds no geometry")
		return Intersection{}, false
	}
	center := bounds.Min.Add(bounds.Max).MulScalar(0.5)
	diagonal := bounds.Max.Sub(bounds.Min).Length()
	if diagonal == 0 {
		return Intersection{}, false
	}

	for attempt := 0; attempt < randomSurfaceAttempts; attempt++ {
		origin := center
		// Displace along two distinct random axes, pushed outside the box
		// by the diagonal length.
		first := mp.rng.Intn(3)
		second := (first + 1 + mp.rng.Intn(2)) % 3
		for _, axis := range []int{first, second} {
			sign := float32(1)
			if mp.rng.Intn(2) == 0 {
				sign = -1
			}
			offset := sign * (diagonal + diagonal*mp.rng.Float32())
			switch axis {
			case 0:
				origin.X += offset
			case 1:
				origin.Y += offset
			case 2:
				origin.Z += offset
			}
		}

		direction := center.Sub(origin).Normalized()
		hits := mp.castFrom(origin, direction)
		for _, hit := range hits {
			if hit.Object.IsDescendantOf(model) {
				return hit, true
			}
		}
	}
	core.LogWarn("RandomSurfaceRay: no surface hit after %d attempts", randomSurfaceAttempts)
	return Intersection{}, false
}

// castFrom casts an explicit world-space ray, nearest hit first.
func (mp *Mapper) castFrom(origin, direction math.Vec3) []Intersection {
	var hits []Intersection
	mp.root.Walk(func(node *scene.Node) {
		if node.Mesh == nil {
			return
		}
		hits = append(hits, mp.castNode(node, origin, direction)...)
	})
	sort.Slice(hits, func(i, j int) bool { return hits[i].Distance < hits[j].Distance })
	return hits
}
