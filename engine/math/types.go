package math

// Vec2 represents a 2D vector
type Vec2 struct {
	X, Y float32
}

// Vec3 represents a 3D vector
type Vec3 struct {
	X, Y, Z float32
}

// Vec4 represents a 4D vector
type Vec4 struct {
	X, Y, Z, W float32
}

/** @brief a 4x4 matrix, typically used to represent object transformations. */
type Mat4 struct {
	/** @brief The matrix elements */
	Data [16]float32
}

/**
 * @brief Represents the extents of a 3d object.
 */
type Extents3D struct {
	/** @brief The minimum extents of the object. */
	Min Vec3
	/** @brief The maximum extents of the object. */
	Max Vec3
}

/**
 * @brief Represents a single vertex in 3D space.
 */
type Vertex3D struct {
	/** @brief The position of the vertex */
	Position Vec3
	/** @brief The normal of the vertex. */
	Normal Vec3
	/** @brief The texture coordinate of the vertex. */
	Texcoord Vec2
}

/**
 * @brief Barycentric weights (U,V,W) expressing a point as a combination
 * of a triangle's three vertices. The weights sum to 1 when the point is
 * expressed exactly.
 */
type Barycentric struct {
	U, V, W float32
}

// Inside reports whether the weights place the point within the triangle,
// boundary included.
func (b Barycentric) Inside() bool {
	return b.U >= 0 && b.U <= 1 &&
		b.V >= 0 && b.V <= 1 &&
		b.W >= 0 && b.W <= 1
}
