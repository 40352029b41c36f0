package engine

// Game is the application hosted by the engine. The engine owns the
// window, the decal pipeline and the loop; the game fills the scene and
// reacts to per-frame updates through the callbacks.
type Game struct {
	ApplicationConfig *ApplicationConfig
	// Services is populated by engine.New before FnInitialize runs.
	Services     *Services
	State        interface{}
	FnInitialize Initialize
	FnUpdate     Update
	FnOnResize   OnResize
	FnShutdown   Shutdown
}

type Initialize func() error
type Update func(deltaTime float64) error
type OnResize func(width uint32, height uint32) error
type Shutdown func() error
