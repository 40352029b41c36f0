package geometry

import (
	"sort"

	"github.com/Stifutina/three-svg-decals/engine/math"
	"github.com/Stifutina/three-svg-decals/engine/scene"
)

// bvh is a bounding volume hierarchy over one mesh's triangles, built in
// object space so it survives node transform changes. Rays are brought
// into object space before traversal.
type bvh struct {
	mesh  *scene.Mesh
	nodes []bvhNode
	// Triangle indices into the mesh, reordered during the build so each
	// leaf owns a contiguous range.
	tris []int
}

type bvhNode struct {
	bounds math.Extents3D
	// Interior: left/right are child node indices. Leaf: left is the first
	// index into tris, right is the count, negated marker in isLeaf.
	left, right int
	isLeaf      bool
}

const bvhLeafSize = 4

func buildBVH(mesh *scene.Mesh) *bvh {
	count := mesh.TriangleCount()
	b := &bvh{
		mesh: mesh,
		tris: make([]int, count),
	}
	centroids := make([]math.Vec3, count)
	boxes := make([]math.Extents3D, count)
	for i := 0; i < count; i++ {
		b.tris[i] = i
		va, vb, vc := mesh.Triangle(i)
		boxes[i] = triangleBounds(va.Position, vb.Position, vc.Position)
		centroids[i] = va.Position.Add(vb.Position).Add(vc.Position).MulScalar(1.0 / 3.0)
	}
	if count > 0 {
		b.buildRange(0, count, centroids, boxes)
	}
	return b
}

// buildRange builds the subtree for tris[start:end] and returns its node index.
func (b *bvh) buildRange(start, end int, centroids []math.Vec3, boxes []math.Extents3D) int {
	bounds := boxes[b.tris[start]]
	for i := start + 1; i < end; i++ {
		bounds = mergeBounds(bounds, boxes[b.tris[i]])
	}

	idx := len(b.nodes)
	b.nodes = append(b.nodes, bvhNode{bounds: bounds})

	if end-start <= bvhLeafSize {
		b.nodes[idx].isLeaf = true
		b.nodes[idx].left = start
		b.nodes[idx].right = end - start
		return idx
	}

	axis := longestAxis(bounds)
	sub := b.tris[start:end]
	sort.Slice(sub, func(i, j int) bool {
		return axisValue(centroids[sub[i]], axis) < axisValue(centroids[sub[j]], axis)
	})
	mid := start + (end-start)/2

	left := b.buildRange(start, mid, centroids, boxes)
	right := b.buildRange(mid, end, centroids, boxes)
	b.nodes[idx].left = left
	b.nodes[idx].right = right
	return idx
}

// cast walks the hierarchy and reports every triangle hit by the
// object-space ray through the visit callback.
func (b *bvh) cast(origin, direction math.Vec3, visit func(tri int, t float32, weights math.Barycentric)) {
	if len(b.nodes) == 0 {
		return
	}
	invDir := math.Vec3{
		X: safeInv(direction.X),
		Y: safeInv(direction.Y),
		Z: safeInv(direction.Z),
	}

	stack := []int{0}
	for len(stack) > 0 {
		idx := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		node := &b.nodes[idx]
		if !rayBoxIntersects(origin, invDir, node.bounds) {
			continue
		}
		if node.isLeaf {
			for i := node.left; i < node.left+node.right; i++ {
				tri := b.tris[i]
				va, vb, vc := b.mesh.Triangle(tri)
				if t, w, ok := math.RayTriangle(origin, direction, va.Position, vb.Position, vc.Position); ok {
					visit(tri, t, w)
				}
			}
			continue
		}
		stack = append(stack, node.left, node.right)
	}
}

func safeInv(v float32) float32 {
	if v == 0 {
		return math.K_INFINITY
	}
	return 1.0 / v
}

// rayBoxIntersects is the standard slab test against an AABB.
func rayBoxIntersects(origin, invDir math.Vec3, box math.Extents3D) bool {
	t1 := (box.Min.X - origin.X) * invDir.X
	t2 := (box.Max.X - origin.X) * invDir.X
	tmin := minf(t1, t2)
	tmax := maxf(t1, t2)

	t1 = (box.Min.Y - origin.Y) * invDir.Y
	t2 = (box.Max.Y - origin.Y) * invDir.Y
	tmin = maxf(tmin, minf(t1, t2))
	tmax = minf(tmax, maxf(t1, t2))

	t1 = (box.Min.Z - origin.Z) * invDir.Z
	t2 = (box.Max.Z - origin.Z) * invDir.Z
	tmin = maxf(tmin, minf(t1, t2))
	tmax = minf(tmax, maxf(t1, t2))

	return tmax >= maxf(tmin, 0)
}

func triangleBounds(a, b, c math.Vec3) math.Extents3D {
	return math.Extents3D{
		Min: math.Vec3{X: minf(a.X, minf(b.X, c.X)), Y: minf(a.Y, minf(b.Y, c.Y)), Z: minf(a.Z, minf(b.Z, c.Z))},
		Max: math.Vec3{X: maxf(a.X, maxf(b.X, c.X)), Y: maxf(a.Y, maxf(b.Y, c.Y)), Z: maxf(a.Z, maxf(b.Z, c.Z))},
	}
}

func mergeBounds(a, b math.Extents3D) math.Extents3D {
	return math.Extents3D{
		Min: math.Vec3{X: minf(a.Min.X, b.Min.X), Y: minf(a.Min.Y, b.Min.Y), Z: minf(a.Min.Z, b.Min.Z)},
		Max: math.Vec3{X: maxf(a.Max.X, b.Max.X), Y: maxf(a.Max.Y, b.Max.Y), Z: maxf(a.Max.Z, b.Max.Z)},
	}
}

func longestAxis(box math.Extents3D) int {
	size := box.Max.Sub(box.Min)
	if size.X >= size.Y && size.X >= size.Z {
		return 0
	}
	if size.Y >= size.Z {
		return 1
	}
	return 2
}

func axisValue(v math.Vec3, axis int) float32 {
	switch axis {
	case 0:
		return v.X
	case 1:
		return v.Y
	default:
		return v.Z
	}
}

func minf(a, b float32) float32 {
	if a < b {
		return a
	}
	return b
}

func maxf(a, b float32) float32 {
	if a > b {
		return a
	}
	return b
}
