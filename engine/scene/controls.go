package scene

// NavControls is the host's camera navigation switchboard. The gesture
// machine flips all three flags off while a gesture is active so pointer
// movement manipulates the decal instead of the camera.
type NavControls struct {
	EnablePan    bool
	EnableZoom   bool
	EnableRotate bool
}

func NewNavControls() *NavControls {
	return &NavControls{EnablePan: true, EnableZoom: true, EnableRotate: true}
}

func (c *NavControls) DisableAll() {
	c.EnablePan = false
	c.EnableZoom = false
	c.EnableRotate = false
}

func (c *NavControls) EnableAll() {
	c.EnablePan = true
	c.EnableZoom = true
	c.EnableRotate = true
}

// Viewport describes the render surface the host draws into.
type Viewport struct {
	// Width and Height are CSS-style logical pixels.
	Width  float32
	Height float32
	// PixelRatio is the device pixel ratio of the surface.
	PixelRatio float32
}
