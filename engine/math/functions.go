package math

import (
	m "math"
)

const (
	/** @brief An approximate representation of PI. */
	K_PI float32 = 3.14159265358979323846
	/** @brief An approximate representation of PI multiplied by 2. */
	K_PI_2 float32 = 2.0 * K_PI
	/** @brief A multiplier used to convert degrees to radians. */
	K_DEG2RAD_MULTIPLIER float32 = K_PI / 180.0
	/** @brief A multiplier used to convert radians to degrees. */
	K_RAD2DEG_MULTIPLIER float32 = 180.0 / K_PI
	/** @brief A huge number that should be larger than any valid number used. */
	K_INFINITY float32 = 1e30
	/** @brief Smallest positive number where 1.0 + FLOAT_EPSILON != 0 */
	K_FLOAT_EPSILON float32 = 1.192092896e-07
)

/**
 * Thin float32 wrappers to avoid importing <math> at every call site.
 */
func ktan(x float32) float32 {
	return float32(m.Tan(float64(x)))
}

func ksqrt(x float32) float32 {
	return float32(m.Sqrt(float64(x)))
}

func kabs(x float32) float32 {
	return float32(m.Abs(float64(x)))
}

// DegToRad converts the supplied degrees to radians.
func DegToRad(degrees float32) float32 {
	return degrees * K_DEG2RAD_MULTIPLIER
}

// RadToDeg converts the supplied radians to degrees.
func RadToDeg(radians float32) float32 {
	return radians * K_RAD2DEG_MULTIPLIER
}

// NormalizeDegrees wraps any real angle into [0, 360).
func NormalizeDegrees(degrees float64) float64 {
	d := m.Mod(degrees, 360.0)
	if d < 0 {
		d += 360.0
	}
	return d
}

// ------------------------------------------
// Vector 2
// ------------------------------------------

/**
 * @brief Creates and returns a new 2-element vector using the supplied values.
 */
func NewVec2(x, y float32) Vec2 {
	return Vec2{X: x, Y: y}
}

/**
 * @brief Creates and returns a 2-component vector with all components set to 0.0f.
 */
func NewVec2Zero() Vec2 {
	return Vec2{X: 0.0, Y: 0.0}
}

/**
 *  Adds other to v and returns a copy of the result.
 */
func (v Vec2) Add(other Vec2) Vec2 {
	return Vec2{v.X + other.X, v.Y + other.Y}
}

/**
 * Subtracts other from v and returns a copy of the result.
 */
func (v Vec2) Sub(other Vec2) Vec2 {
	return Vec2{v.X - other.X, v.Y - other.Y}
}

/**
 * Multiplies each component of v by the scalar and returns a copy.
 */
func (v Vec2) MulScalar(scalar float32) Vec2 {
	return Vec2{v.X * scalar, v.Y * scalar}
}

/**
 * Returns the squared length of the provided vector.
 */
func (v Vec2) LengthSquared() float32 {
	return v.X*v.X + v.Y*v.Y
}

/**
 * @brief Returns the length of the provided vector.
 */
func (v Vec2) Length() float32 {
	return ksqrt(v.LengthSquared())
}

/**
 * @brief Returns the distance between v and other.
 */
func (v Vec2) Distance(other Vec2) float32 {
	return v.Sub(other).Length()
}

/**
 * @brief Compares all elements of v and other and ensures the difference
 * is less than the tolerance.
 */
func (v Vec2) Compare(other Vec2, tolerance float32) bool {
	return kabs(v.X-other.X) <= tolerance && kabs(v.Y-other.Y) <= tolerance
}

// ------------------------------------------
// Vector 3
// ------------------------------------------

/**
 * @brief Creates and returns a new 3-element vector using the supplied values.
 */
func NewVec3(x, y, z float32) Vec3 {
	return Vec3{X: x, Y: y, Z: z}
}

/**
 * @brief Creates and returns a 3-component vector with all components set to 0.0f.
 */
func NewVec3Zero() Vec3 {
	return Vec3{X: 0.0, Y: 0.0, Z: 0.0}
}

/**
 * @brief Creates and returns a 3-component vector pointing up (0, 1, 0).
 */
func NewVec3Up() Vec3 {
	return Vec3{0.0, 1.0, 0.0}
}

/**
 *  Adds other to v and returns a copy of the result.
 */
func (v Vec3) Add(other Vec3) Vec3 {
	return Vec3{v.X + other.X, v.Y + other.Y, v.Z + other.Z}
}

/**
 * Subtracts other from v and returns a copy of the result.
 */
func (v Vec3) Sub(other Vec3) Vec3 {
	return Vec3{v.X - other.X, v.Y - other.Y, v.Z - other.Z}
}

/**
 * Multiplies each component of v by the scalar and returns a copy.
 */
func (v Vec3) MulScalar(scalar float32) Vec3 {
	return Vec3{v.X * scalar, v.Y * scalar, v.Z * scalar}
}

/**
 * Returns the squared length of the provided vector.
 */
func (v Vec3) LengthSquared() float32 {
	return v.X*v.X + v.Y*v.Y + v.Z*v.Z
}

/**
 * @brief Returns the length of the provided vector.
 */
func (v Vec3) Length() float32 {
	return ksqrt(v.LengthSquared())
}

/**
 * @brief Returns a normalized copy of the supplied vector.
 */
func (v Vec3) Normalized() Vec3 {
	length := v.Length()
	if length == 0 {
		return NewVec3Zero()
	}
	return Vec3{v.X / length, v.Y / length, v.Z / length}
}

/**
 * @brief Returns the dot product between v and other.
 */
func (v Vec3) Dot(other Vec3) float32 {
	return v.X*other.X + v.Y*other.Y + v.Z*other.Z
}

/**
 * @brief Calculates and returns the cross product of v and other.
 */
func (v Vec3) Cross(other Vec3) Vec3 {
	return Vec3{
		v.Y*other.Z - v.Z*other.Y,
		v.Z*other.X - v.X*other.Z,
		v.X*other.Y - v.Y*other.X,
	}
}

/**
 * @brief Returns the distance between v and other.
 */
func (v Vec3) Distance(other Vec3) float32 {
	return v.Sub(other).Length()
}

/**
 * @brief Compares all elements of v and other and ensures the difference
 * is less than the tolerance.
 */
func (v Vec3) Compare(other Vec3, tolerance float32) bool {
	return kabs(v.X-other.X) <= tolerance &&
		kabs(v.Y-other.Y) <= tolerance &&
		kabs(v.Z-other.Z) <= tolerance
}

// IsZero reports whether every component is exactly zero. The geometry
// mapper uses the zero vector as its "no result" sentinel.
func (v Vec3) IsZero() bool {
	return v.X == 0 && v.Y == 0 && v.Z == 0
}

/**
 * @brief Transforms v by the supplied matrix, assuming w = 1.
 */
func (v Vec3) Transform(mt Mat4) Vec3 {
	d := mt.Data
	return Vec3{
		v.X*d[0] + v.Y*d[4] + v.Z*d[8] + d[12],
		v.X*d[1] + v.Y*d[5] + v.Z*d[9] + d[13],
		v.X*d[2] + v.Y*d[6] + v.Z*d[10] + d[14],
	}
}

/**
 * @brief Converts v to a 4-component vector with the supplied w.
 */
func (v Vec3) ToVec4(w float32) Vec4 {
	return Vec4{v.X, v.Y, v.Z, w}
}

// ------------------------------------------
// Vector 4
// ------------------------------------------

/**
 * @brief Returns a Vec3 containing the x, y and z components of v.
 */
func (v Vec4) ToVec3() Vec3 {
	return Vec3{v.X, v.Y, v.Z}
}

/**
 * @brief Transforms v by the supplied matrix.
 */
func (v Vec4) Transform(mt Mat4) Vec4 {
	d := mt.Data
	return Vec4{
		v.X*d[0] + v.Y*d[4] + v.Z*d[8] + v.W*d[12],
		v.X*d[1] + v.Y*d[5] + v.Z*d[9] + v.W*d[13],
		v.X*d[2] + v.Y*d[6] + v.Z*d[10] + v.W*d[14],
		v.X*d[3] + v.Y*d[7] + v.Z*d[11] + v.W*d[15],
	}
}

// ------------------------------------------
// Matrix 4x4
// ------------------------------------------

/**
 * @brief Creates and returns an identity matrix.
 */
func NewMat4Identity() Mat4 {
	out_matrix := Mat4{}
	out_matrix.Data[0] = 1.0
	out_matrix.Data[5] = 1.0
	out_matrix.Data[10] = 1.0
	out_matrix.Data[15] = 1.0
	return out_matrix
}

/**
 * @brief Returns the result of multiplying mt and other.
 */
func (mt Mat4) Mul(other Mat4) Mat4 {
	out_matrix := NewMat4Identity()
	for row := 0; row < 4; row++ {
		for col := 0; col < 4; col++ {
			sum := float32(0)
			for i := 0; i < 4; i++ {
				sum += mt.Data[row*4+i] * other.Data[i*4+col]
			}
			out_matrix.Data[row*4+col] = sum
		}
	}
	return out_matrix
}

/**
 * @brief Creates and returns a perspective matrix. Typically used to render 3d scenes.
 *
 * @param fov_radians The field of view in radians.
 * @param aspect_ratio The aspect ratio.
 * @param near_clip The near clipping plane distance.
 * @param far_clip The far clipping plane distance.
 * @return A new perspective matrix.
 */
func NewMat4Perspective(fov_radians, aspect_ratio, near_clip, far_clip float32) Mat4 {
	half_tan_fov := ktan(fov_radians * 0.5)
	out_matrix := Mat4{}
	out_matrix.Data[0] = 1.0 / (aspect_ratio * half_tan_fov)
	out_matrix.Data[5] = 1.0 / half_tan_fov
	out_matrix.Data[10] = -((far_clip + near_clip) / (far_clip - near_clip))
	out_matrix.Data[11] = -1.0
	out_matrix.Data[14] = -((2.0 * far_clip * near_clip) / (far_clip - near_clip))
	return out_matrix
}

/**
 * @brief Creates and returns a look-at matrix, or a matrix looking
 * at target from the perspective of position.
 *
 * @param position The position of the matrix.
 * @param target The position to "look at".
 * @param up The up vector.
 * @return A matrix looking at target from the perspective of position.
 */
func NewMat4LookAt(position, target, up Vec3) Mat4 {
	out_matrix := Mat4{}
	z_axis := target.Sub(position).Normalized()
	x_axis := z_axis.Cross(up.Normalized()).Normalized()
	y_axis := x_axis.Cross(z_axis)

	out_matrix.Data[0] = x_axis.X
	out_matrix.Data[1] = y_axis.X
	out_matrix.Data[2] = -z_axis.X
	out_matrix.Data[3] = 0
	out_matrix.Data[4] = x_axis.Y
	out_matrix.Data[5] = y_axis.Y
	out_matrix.Data[6] = -z_axis.Y
	out_matrix.Data[7] = 0
	out_matrix.Data[8] = x_axis.Z
	out_matrix.Data[9] = y_axis.Z
	out_matrix.Data[10] = -z_axis.Z
	out_matrix.Data[11] = 0
	out_matrix.Data[12] = -x_axis.Dot(position)
	out_matrix.Data[13] = -y_axis.Dot(position)
	out_matrix.Data[14] = z_axis.Dot(position)
	out_matrix.Data[15] = 1.0

	return out_matrix
}

/**
 * @brief Creates and returns a translation matrix from the given position.
 */
func NewMat4Translation(position Vec3) Mat4 {
	out_matrix := NewMat4Identity()
	out_matrix.Data[12] = position.X
	out_matrix.Data[13] = position.Y
	out_matrix.Data[14] = position.Z
	return out_matrix
}

/**
 * @brief Returns a scale matrix using the provided scale.
 */
func NewMat4Scale(scale Vec3) Mat4 {
	out_matrix := NewMat4Identity()
	out_matrix.Data[0] = scale.X
	out_matrix.Data[5] = scale.Y
	out_matrix.Data[10] = scale.Z
	return out_matrix
}

/**
 * @brief Returns a transposed copy of the provided matrix (rows->columns).
 */
func (mt Mat4) Transposed() Mat4 {
	out_matrix := Mat4{}
	for row := 0; row < 4; row++ {
		for col := 0; col < 4; col++ {
			out_matrix.Data[col*4+row] = mt.Data[row*4+col]
		}
	}
	return out_matrix
}

/**
 * @brief Creates and returns an inverse of the provided matrix.
 */
func (mt Mat4) Inverse() Mat4 {
	m := mt.Data

	t0 := m[10] * m[15]
	t1 := m[14] * m[11]
	t2 := m[6] * m[15]
	t3 := m[14] * m[7]
	t4 := m[6] * m[11]
	t5 := m[10] * m[7]
	t6 := m[2] * m[15]
	t7 := m[14] * m[3]
	t8 := m[2] * m[11]
	t9 := m[10] * m[3]
	t10 := m[2] * m[7]
	t11 := m[6] * m[3]
	t12 := m[8] * m[13]
	t13 := m[12] * m[9]
	t14 := m[4] * m[13]
	t15 := m[12] * m[5]
	t16 := m[4] * m[9]
	t17 := m[8] * m[5]
	t18 := m[0] * m[13]
	t19 := m[12] * m[1]
	t20 := m[0] * m[9]
	t21 := m[8] * m[1]
	t22 := m[0] * m[5]
	t23 := m[4] * m[1]

	out_matrix := Mat4{}
	o := &out_matrix.Data

	o[0] = (t0*m[5] + t3*m[9] + t4*m[13]) - (t1*m[5] + t2*m[9] + t5*m[13])
	o[1] = (t1*m[1] + t6*m[9] + t9*m[13]) - (t0*m[1] + t7*m[9] + t8*m[13])
	o[2] = (t2*m[1] + t7*m[5] + t10*m[13]) - (t3*m[1] + t6*m[5] + t11*m[13])
	o[3] = (t5*m[1] + t8*m[5] + t11*m[9]) - (t4*m[1] + t9*m[5] + t10*m[9])

	d := 1.0 / (m[0]*o[0] + m[4]*o[1] + m[8]*o[2] + m[12]*o[3])

	o[0] = d * o[0]
	o[1] = d * o[1]
	o[2] = d * o[2]
	o[3] = d * o[3]
	o[4] = d * ((t1*m[4] + t2*m[8] + t5*m[12]) - (t0*m[4] + t3*m[8] + t4*m[12]))
	o[5] = d * ((t0*m[0] + t7*m[8] + t8*m[12]) - (t1*m[0] + t6*m[8] + t9*m[12]))
	o[6] = d * ((t3*m[0] + t6*m[4] + t11*m[12]) - (t2*m[0] + t7*m[4] + t10*m[12]))
	o[7] = d * ((t4*m[0] + t9*m[4] + t10*m[8]) - (t5*m[0] + t8*m[4] + t11*m[8]))
	o[8] = d * ((t12*m[7] + t15*m[11] + t16*m[15]) - (t13*m[7] + t14*m[11] + t17*m[15]))
	o[9] = d * ((t13*m[3] + t18*m[11] + t21*m[15]) - (t12*m[3] + t19*m[11] + t20*m[15]))
	o[10] = d * ((t14*m[3] + t19*m[7] + t22*m[15]) - (t15*m[3] + t18*m[7] + t23*m[15]))
	o[11] = d * ((t17*m[3] + t20*m[7] + t23*m[11]) - (t16*m[3] + t21*m[7] + t22*m[11]))
	o[12] = d * ((t14*m[10] + t17*m[14] + t13*m[6]) - (t16*m[14] + t12*m[6] + t15*m[10]))
	o[13] = d * ((t20*m[14] + t12*m[2] + t19*m[10]) - (t18*m[10] + t21*m[14] + t13*m[2]))
	o[14] = d * ((t18*m[6] + t23*m[14] + t15*m[2]) - (t22*m[14] + t14*m[2] + t19*m[6]))
	o[15] = d * ((t22*m[10] + t16*m[2] + t21*m[6]) - (t20*m[6] + t23*m[10] + t17*m[2]))

	return out_matrix
}
