package scene

import (
	"github.com/Stifutina/three-svg-decals/engine/math"
)

/**
 * @brief A perspective camera supplied by the render host. The view and
 * projection matrices are rebuilt lazily when their inputs change.
 */
type Camera struct {
	/** @brief The position of this camera. Use SetPosition so the view matrix is rebuilt. */
	Position math.Vec3
	/** @brief The point the camera looks at. Use SetTarget so the view matrix is rebuilt. */
	Target math.Vec3
	/** @brief Vertical field of view, in degrees. */
	FOV float32
	/** @brief Viewport aspect ratio (width / height). */
	Aspect float32
	/** @brief Near clipping plane distance. */
	Near float32
	/** @brief Far clipping plane distance. */
	Far float32

	/** @brief Internal flag used to determine when the matrices need to be rebuilt. */
	IsDirty bool

	viewMatrix       math.Mat4
	projectionMatrix math.Mat4
}

func NewCamera(fov, aspect, near, far float32) *Camera {
	c := &Camera{
		Target:  math.NewVec3Zero(),
		FOV:     fov,
		Aspect:  aspect,
		Near:    near,
		Far:     far,
		IsDirty: true,
	}
	c.Position = math.NewVec3(0, 0, 5)
	return c
}

func (c *Camera) SetPosition(position math.Vec3) {
	c.Position = position
	c.IsDirty = true
}

func (c *Camera) SetTarget(target math.Vec3) {
	c.Target = target
	c.IsDirty = true
}

func (c *Camera) SetAspect(aspect float32) {
	c.Aspect = aspect
	c.IsDirty = true
}

func (c *Camera) rebuild() {
	if c.IsDirty {
		c.viewMatrix = math.NewMat4LookAt(c.Position, c.Target, math.NewVec3Up())
		c.projectionMatrix = math.NewMat4Perspective(
			math.DegToRad(c.FOV), c.Aspect, c.Near, c.Far)
		c.IsDirty = false
	}
}

func (c *Camera) GetView() math.Mat4 {
	c.rebuild()
	return c.viewMatrix
}

func (c *Camera) GetProjection() math.Mat4 {
	c.rebuild()
	return c.projectionMatrix
}

// ViewProjection returns view * projection, the full world-to-clip matrix.
func (c *Camera) ViewProjection() math.Mat4 {
	c.rebuild()
	return c.viewMatrix.Mul(c.projectionMatrix)
}
