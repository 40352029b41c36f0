package scene

import (
	"github.com/Stifutina/three-svg-decals/engine/math"
)

// Mesh is an indexed triangle list with a UV parameterization. Positions
// are object-local; a mesh becomes world-positioned through the transform
// of the Node that carries it.
type Mesh struct {
	Name     string
	Vertices []math.Vertex3D
	Indices  []uint32
}

// TriangleCount returns the number of whole triangles in the index list.
func (m *Mesh) TriangleCount() int {
	return len(m.Indices) / 3
}

// Triangle returns the three vertices of triangle i.
func (m *Mesh) Triangle(i int) (a, b, c math.Vertex3D) {
	i0 := m.Indices[i*3+0]
	i1 := m.Indices[i*3+1]
	i2 := m.Indices[i*3+2]
	return m.Vertices[i0], m.Vertices[i1], m.Vertices[i2]
}

// LocalExtents computes the object-local bounding box of the mesh.
func (m *Mesh) LocalExtents() math.Extents3D {
	ext := math.Extents3D{
		Min: math.NewVec3(math.K_INFINITY, math.K_INFINITY, math.K_INFINITY),
		Max: math.NewVec3(-math.K_INFINITY, -math.K_INFINITY, -math.K_INFINITY),
	}
	for _, v := range m.Vertices {
		p := v.Position
		if p.X < ext.Min.X {
			ext.Min.X = p.X
		}
		if p.Y < ext.Min.Y {
			ext.Min.Y = p.Y
		}
		if p.Z < ext.Min.Z {
			ext.Min.Z = p.Z
		}
		if p.X > ext.Max.X {
			ext.Max.X = p.X
		}
		if p.Y > ext.Max.Y {
			ext.Max.Y = p.Y
		}
		if p.Z > ext.Max.Z {
			ext.Max.Z = p.Z
		}
	}
	return ext
}

// Node is an element of the host's scene hierarchy. Group nodes carry no
// mesh. The decal engine never owns or disposes nodes; it only traverses
// them for ray casting and ancestor filtering.
type Node struct {
	Name      string
	Mesh      *Mesh
	Transform math.Mat4
	Parent    *Node
	Children  []*Node
}

// NewNode creates a group node with an identity transform.
func NewNode(name string) *Node {
	return &Node{Name: name, Transform: math.NewMat4Identity()}
}

// NewMeshNode creates a leaf node carrying the supplied mesh.
func NewMeshNode(name string, mesh *Mesh) *Node {
	n := NewNode(name)
	n.Mesh = mesh
	return n
}

// AddChild attaches child to n and wires its parent pointer.
func (n *Node) AddChild(child *Node) {
	child.Parent = n
	n.Children = append(n.Children, child)
}

// WorldTransform composes the local transforms from n up to the root.
func (n *Node) WorldTransform() math.Mat4 {
	if n.Parent == nil {
		return n.Transform
	}
	return n.Transform.Mul(n.Parent.WorldTransform())
}

// IsDescendantOf reports whether root appears in n's ancestor chain
// (a node is considered a descendant of itself).
func (n *Node) IsDescendantOf(root *Node) bool {
	for cur := n; cur != nil; cur = cur.Parent {
		if cur == root {
			return true
		}
	}
	return false
}

// Walk visits n and every node below it, depth first.
func (n *Node) Walk(visit func(*Node)) {
	visit(n)
	for _, c := range n.Children {
		c.Walk(visit)
	}
}

// WorldExtents computes the world-space bounding box of every mesh at or
// below n. The second return value is false when the subtree holds no
// geometry.
func (n *Node) WorldExtents() (math.Extents3D, bool) {
	ext := math.Extents3D{
		Min: math.NewVec3(math.K_INFINITY, math.K_INFINITY, math.K_INFINITY),
		Max: math.NewVec3(-math.K_INFINITY, -math.K_INFINITY, -math.K_INFINITY),
	}
	found := false
	n.Walk(func(node *Node) {
		if node.Mesh == nil {
			return
		}
		world := node.WorldTransform()
		for _, v := range node.Mesh.Vertices {
			p := v.Position.Transform(world)
			found = true
			if p.X < ext.Min.X {
				ext.Min.X = p.X
			}
			if p.Y < ext.Min.Y {
				ext.Min.Y = p.Y
			}
			if p.Z < ext.Min.Z {
				ext.Min.Z = p.Z
			}
			if p.X > ext.Max.X {
				ext.Max.X = p.X
			}
			if p.Y > ext.Max.Y {
				ext.Max.Y = p.Y
			}
			if p.Z > ext.Max.Z {
				ext.Max.Z = p.Z
			}
		}
	})
	return ext, found
}
