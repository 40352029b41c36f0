package engine

import (
	"path/filepath"
	"time"

	"github.com/Stifutina/three-svg-decals/engine/assets"
	"github.com/Stifutina/three-svg-decals/engine/authoring"
	"github.com/Stifutina/three-svg-decals/engine/compositor"
	"github.com/Stifutina/three-svg-decals/engine/config"
	"github.com/Stifutina/three-svg-decals/engine/core"
	"github.com/Stifutina/three-svg-decals/engine/document"
	"github.com/Stifutina/three-svg-decals/engine/geometry"
	"github.com/Stifutina/three-svg-decals/engine/gesture"
	"github.com/Stifutina/three-svg-decals/engine/platform"
	"github.com/Stifutina/three-svg-decals/engine/scene"
)

type Stage uint8

const (
	// Engine is in an uninitialized state
	EngineStageUninitialized Stage = iota
	// Engine is currently initializing
	EngineStageInitializing
	// Engine initialization is complete
	EngineStageInitialized
	// Engine is currently running
	EngineStageRunning
	// Engine is in the process of shutting down
	EngineStageShuttingDown
)

// Services exposes the wired decal pipeline to the hosted game.
type Services struct {
	Root   *scene.Node
	Model  *scene.Node
	Camera *scene.Camera
	Nav    *scene.NavControls

	Document     *document.Document
	BaseDocument *document.Document
	Compositor   *compositor.Compositor
	Mapper       *geometry.Mapper
	Gesture      *gesture.Machine
	Authoring    *authoring.API
	Assets       *assets.Manager
	Texture      *TextureTarget
	Bus          *core.Bus
	Metrics      *core.Metrics
}

// Engine owns the platform window, the decal pipeline and the main loop.
type Engine struct {
	currentStage Stage
	gameInstance *Game
	isRunning    bool
	isSuspended  bool
	platform     *platform.Platform
	cfg          *config.Config
	services     *Services
	width        uint32
	height       uint32
	clock        *core.Clock
	lastTime     float64
}

func New(g *Game) (*Engine, error) {
	cfg, err := config.Load(g.ApplicationConfig.ConfigPath)
	if err != nil {
		core.LogError(err.Error())
		return nil, err
	}
	cfg.ApplyLogLevel()

	p, err := platform.New()
	if err != nil {
		core.LogError(err.Error())
		return nil, err
	}

	am, err := assets.NewManager(assets.Limits{
		MaxBytes:  cfg.Assets.MaxBytes,
		MaxPixels: cfg.Assets.MaxPixels,
	})
	if err != nil {
		core.LogError(err.Error())
		return nil, err
	}

	width := g.ApplicationConfig.StartWidth
	height := g.ApplicationConfig.StartHeight
	if width == 0 {
		width = cfg.Window.Width
	}
	if height == 0 {
		height = cfg.Window.Height
	}

	root := scene.NewNode("root")
	model := scene.NewNode("model")
	root.AddChild(model)

	camera := scene.NewCamera(45.0, float32(width)/float32(height), 0.1, 1000.0)

	decalDoc := document.New(cfg.Document.Size, cfg.Document.Size)
	baseDoc := document.New(cfg.Document.Size, cfg.Document.Size)

	texture := NewTextureTarget()
	comp := compositor.New(texture, decalDoc, baseDoc, cfg.Texture.Resolution)
	comp.SetImageResolver(am)
	if cfg.Texture.IdleTimeoutMS > 0 {
		comp.SetIdleTimeout(time.Duration(cfg.Texture.IdleTimeoutMS) * time.Millisecond)
	}

	mapper := geometry.NewMapper(root, camera)
	nav := scene.NewNavControls()
	machine := gesture.NewMachine(mapper, decalDoc, comp, nav)

	bus := core.NewBus()
	api := authoring.New(decalDoc, baseDoc, mapper, comp, machine, bus, am, model)

	services := &Services{
		Root:         root,
		Model:        model,
		Camera:       camera,
		Nav:          nav,
		Document:     decalDoc,
		BaseDocument: baseDoc,
		Compositor:   comp,
		Mapper:       mapper,
		Gesture:      machine,
		Authoring:    api,
		Assets:       am,
		Texture:      texture,
		Bus:          bus,
		Metrics:      core.NewMetrics(),
	}
	g.Services = services

	return &Engine{
		currentStage: EngineStageUninitialized,
		gameInstance: g,
		clock:        &core.Clock{},
		platform:     p,
		cfg:          cfg,
		services:     services,
		isRunning:    true,
		isSuspended:  false,
		width:        width,
		height:       height,
		lastTime:     0,
	}, nil
}

func (e *Engine) Initialize() error {
	e.currentStage = EngineStageInitializing

	if err := e.platform.Startup(e.gameInstance.ApplicationConfig.Name,
		e.gameInstance.ApplicationConfig.StartPosX,
		e.gameInstance.ApplicationConfig.StartPosY,
		e.width,
		e.height); err != nil {
		return err
	}

	if err := e.services.Assets.Initialize(e.cfg.Assets.Dir); err != nil {
		// A missing asset directory leaves image and icon decals
		// unavailable but the rest of the pipeline working.
		core.LogWarn("asset directory %q unavailable: %v", e.cfg.Assets.Dir, err)
	}

	if e.cfg.Assets.Font != "" {
		font, err := compositor.LoadFont(filepath.Join(e.cfg.Assets.Dir, e.cfg.Assets.Font))
		if err != nil {
			core.LogWarn("font %q unavailable, text decals render as boxes: %v", e.cfg.Assets.Font, err)
		} else {
			e.services.Compositor.SetFont(font)
		}
	}

	e.services.Gesture.SetCanvasRect(e.platform.CanvasRect())
	e.services.Gesture.SetViewport(e.platform.Viewport())
	e.platform.SetPointerHandler(e.services.Gesture)
	e.platform.SetResizeHandler(e.onResized)

	if err := e.gameInstance.FnInitialize(); err != nil {
		return err
	}
	if e.gameInstance.FnOnResize != nil {
		if err := e.gameInstance.FnOnResize(e.width, e.height); err != nil {
			return err
		}
	}

	// First frame so the texture is valid before any interaction.
	e.services.Compositor.RequestRecomposite(nil)

	e.currentStage = EngineStageInitialized
	return nil
}

func (e *Engine) Run() error {
	e.currentStage = EngineStageRunning
	e.clock.Start()
	e.clock.Update()
	e.lastTime = e.clock.ElapsedTime

	for e.isRunning && !e.platform.ShouldClose() {
		e.platform.PumpMessages()

		if e.isSuspended {
			time.Sleep(100 * time.Millisecond)
			continue
		}

		e.clock.Update()
		currentTime := e.clock.ElapsedTime
		delta := currentTime - e.lastTime

		if err := e.gameInstance.FnUpdate(delta); err != nil {
			core.LogFatal("game update failed, shutting down.")
			e.isRunning = false
			break
		}
		e.services.Metrics.Update(delta)

		// Outside the post-change window there is nothing to animate;
		// give the cycles back to the OS.
		if !e.services.Compositor.AllowAnimation() {
			time.Sleep(16 * time.Millisecond)
		}

		e.lastTime = currentTime
	}

	return nil
}

func (e *Engine) Shutdown() error {
	e.currentStage = EngineStageShuttingDown
	e.isRunning = false

	if e.gameInstance.FnShutdown != nil {
		if err := e.gameInstance.FnShutdown(); err != nil {
			core.LogError(err.Error())
		}
	}
	e.services.Authoring.Close()
	e.services.Assets.Close()
	if err := e.platform.Shutdown(); err != nil {
		return err
	}
	return nil
}

// GetFramebufferSize returns the width and height (in this order) of the
// application framebuffer.
func (e *Engine) GetFramebufferSize() (uint32, uint32) {
	return e.width, e.height
}

func (e *Engine) onResized(width, height int) {
	if width == 0 || height == 0 {
		core.LogInfo("window minimized, suspending application.")
		e.isSuspended = true
		return
	}
	if e.isSuspended {
		core.LogInfo("window restored, resuming application.")
		e.isSuspended = false
	}
	if uint32(width) == e.width && uint32(height) == e.height {
		return
	}
	e.width = uint32(width)
	e.height = uint32(height)
	core.LogDebug("window resize: %d, %d", width, height)

	e.services.Camera.Aspect = float32(width) / float32(height)
	e.services.Camera.IsDirty = true
	e.services.Gesture.SetCanvasRect(e.platform.CanvasRect())
	e.services.Gesture.SetViewport(e.platform.Viewport())

	if e.gameInstance.FnOnResize != nil {
		if err := e.gameInstance.FnOnResize(e.width, e.height); err != nil {
			core.LogError(err.Error())
		}
	}
}
