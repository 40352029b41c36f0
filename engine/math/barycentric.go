package math

/**
 * @brief Computes the barycentric weights of point p with respect to the
 * 2D triangle (a, b, c) using the edge-function form.
 *
 * The second return value is false for a degenerate triangle (zero double
 * area), in which case the weights are meaningless and must be ignored.
 */
func BarycentricUV(p, a, b, c Vec2) (Barycentric, bool) {
	// Twice the signed area of the whole triangle.
	area2 := (b.X-a.X)*(c.Y-a.Y) - (c.X-a.X)*(b.Y-a.Y)
	if kabs(area2) <= K_FLOAT_EPSILON {
		return Barycentric{}, false
	}

	u := ((b.X-p.X)*(c.Y-p.Y) - (c.X-p.X)*(b.Y-p.Y)) / area2
	v := ((c.X-p.X)*(a.Y-p.Y) - (a.X-p.X)*(c.Y-p.Y)) / area2
	return Barycentric{U: u, V: v, W: 1.0 - u - v}, true
}

/**
 * @brief Interpolates the 3D positions (a, b, c) by the supplied
 * barycentric weights.
 */
func BarycentricInterpolate(weights Barycentric, a, b, c Vec3) Vec3 {
	return a.MulScalar(weights.U).
		Add(b.MulScalar(weights.V)).
		Add(c.MulScalar(weights.W))
}

/**
 * @brief Möller–Trumbore ray/triangle intersection.
 *
 * Returns the distance along the ray and the barycentric weights of the
 * hit, or ok=false when the ray misses or the triangle is degenerate.
 * The weights are ordered so that U belongs to vertex a.
 */
func RayTriangle(origin, direction, a, b, c Vec3) (t float32, weights Barycentric, ok bool) {
	edge1 := b.Sub(a)
	edge2 := c.Sub(a)
	pvec := direction.Cross(edge2)
	det := edge1.Dot(pvec)
	if kabs(det) <= K_FLOAT_EPSILON {
		return 0, Barycentric{}, false
	}
	invDet := 1.0 / det

	tvec := origin.Sub(a)
	v := tvec.Dot(pvec) * invDet
	if v < 0 || v > 1 {
		return 0, Barycentric{}, false
	}

	qvec := tvec.Cross(edge1)
	w := direction.Dot(qvec) * invDet
	if w < 0 || v+w > 1 {
		return 0, Barycentric{}, false
	}

	t = edge2.Dot(qvec) * invDet
	if t <= K_FLOAT_EPSILON {
		return 0, Barycentric{}, false
	}
	return t, Barycentric{U: 1.0 - v - w, V: v, W: w}, true
}
