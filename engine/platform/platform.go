package platform

import (
	"runtime"

	"github.com/Stifutina/three-svg-decals/engine/containers"
	"github.com/Stifutina/three-svg-decals/engine/core"
	"github.com/Stifutina/three-svg-decals/engine/geometry"
	"github.com/Stifutina/three-svg-decals/engine/gesture"
	"github.com/Stifutina/three-svg-decals/engine/scene"
	"github.com/go-gl/glfw/v3.3/glfw"
)

// pointerQueueSize bounds samples buffered between two pumps. A full
// queue drops the sample; pointer moves are coalescible.
const pointerQueueSize = 256

type sampleKind uint8

const (
	sampleDown sampleKind = iota
	sampleMove
	sampleUp
)

type pointerSample struct {
	kind  sampleKind
	event gesture.PointerEvent
}

func init() {
	// GLFW event handling must run on the main OS thread
	runtime.LockOSThread()
}

// PointerHandler receives the window's pointer stream. Satisfied by
// gesture.Machine.
type PointerHandler interface {
	PointerDown(e gesture.PointerEvent)
	PointerMove(e gesture.PointerEvent)
	PointerUp(e gesture.PointerEvent)
}

// Platform owns the OS window and turns its raw input callbacks into
// pointer events for the interaction layer.
type Platform struct {
	Window *glfw.Window

	handler PointerHandler
	samples *containers.RingQueue[pointerSample]
	// pressed tracks the primary button so cursor motion only counts as a
	// drag while it is held.
	pressed        bool
	cursorX        float64
	cursorY        float64
	onScroll       func(xoff, yoff float64)
	onResize       func(width, height int)
	startTime      float64
	contentScaleX  float32
	contentScaleY  float32
	windowWidth    int
	windowHeight   int
	framebufWidth  int
	framebufHeight int
}

func New() (*Platform, error) {
	return &Platform{
		samples: containers.NewRingQueue[pointerSample](pointerQueueSize),
	}, nil
}

func (p *Platform) Startup(applicationName string, x uint32, y uint32, width uint32, height uint32) error {
	if err := glfw.Init(); err != nil {
		core.LogFatal("failed to initialize glfw: %s", err)
		return err
	}

	glfw.WindowHint(glfw.Visible, glfw.False)
	glfw.WindowHint(glfw.Resizable, glfw.True)
	glfw.WindowHint(glfw.ClientAPI, glfw.NoAPI)

	window, err := glfw.CreateWindow(int(width), int(height), applicationName, nil, nil)
	if err != nil {
		core.LogFatal("failed to create window: %s", err)
		return err
	}
	p.Window = window

	p.windowWidth, p.windowHeight = window.GetSize()
	p.framebufWidth, p.framebufHeight = window.GetFramebufferSize()
	p.contentScaleX, p.contentScaleY = window.GetContentScale()

	p.Window.SetMouseButtonCallback(p.mouseButtonCallback)
	p.Window.SetCursorPosCallback(p.cursorPosCallback)
	p.Window.SetScrollCallback(p.scrollCallback)
	p.Window.SetFramebufferSizeCallback(p.framebufferSizeCallback)
	p.Window.SetPos(int(x), int(y))
	p.Window.Show()

	p.startTime = glfw.GetTime()

	return nil
}

func (p *Platform) Shutdown() error {
	glfw.Terminate()
	return nil
}

// PumpMessages polls the window and delivers the buffered pointer
// samples to the handler, in arrival order.
func (p *Platform) PumpMessages() {
	glfw.PollEvents()
	for !p.samples.IsEmpty() {
		s, err := p.samples.Dequeue()
		if err != nil {
			return
		}
		if p.handler == nil {
			continue
		}
		switch s.kind {
		case sampleDown:
			p.handler.PointerDown(s.event)
		case sampleMove:
			p.handler.PointerMove(s.event)
		case sampleUp:
			p.handler.PointerUp(s.event)
		}
	}
}

func (p *Platform) ShouldClose() bool {
	return p.Window.ShouldClose()
}

// Elapsed returns seconds since Startup.
func (p *Platform) Elapsed() float64 {
	return glfw.GetTime() - p.startTime
}

func (p *Platform) SetPointerHandler(h PointerHandler)     { p.handler = h }
func (p *Platform) SetScrollHandler(fn func(x, y float64)) { p.onScroll = fn }
func (p *Platform) SetResizeHandler(fn func(w, h int))     { p.onResize = fn }

// CanvasRect describes the interactive surface in window client
// coordinates. The whole window is the canvas.
func (p *Platform) CanvasRect() geometry.CanvasRect {
	return geometry.CanvasRect{
		Left:   0,
		Top:    0,
		Width:  float32(p.windowWidth),
		Height: float32(p.windowHeight),
	}
}

// Viewport describes the physical render target backing the window.
func (p *Platform) Viewport() scene.Viewport {
	return scene.Viewport{
		Width:      float32(p.windowWidth),
		Height:     float32(p.windowHeight),
		PixelRatio: p.contentScaleX,
	}
}

func (p *Platform) enqueue(kind sampleKind, e gesture.PointerEvent) {
	if err := p.samples.Enqueue(pointerSample{kind: kind, event: e}); err != nil {
		core.LogWarn("pointer queue full, sample dropped")
	}
}

func (p *Platform) mouseButtonCallback(w *glfw.Window, button glfw.MouseButton, action glfw.Action, mods glfw.ModifierKey) {
	if button != glfw.MouseButtonLeft {
		return
	}
	e := gesture.PointerEvent{ClientX: float32(p.cursorX), ClientY: float32(p.cursorY)}
	switch action {
	case glfw.Press:
		p.pressed = true
		p.enqueue(sampleDown, e)
	case glfw.Release:
		p.pressed = false
		p.enqueue(sampleUp, e)
	}
}

func (p *Platform) cursorPosCallback(w *glfw.Window, xpos, ypos float64) {
	p.cursorX = xpos
	p.cursorY = ypos
	if p.pressed {
		p.enqueue(sampleMove, gesture.PointerEvent{ClientX: float32(xpos), ClientY: float32(ypos)})
	}
}

func (p *Platform) scrollCallback(w *glfw.Window, xoff, yoff float64) {
	if p.onScroll != nil {
		p.onScroll(xoff, yoff)
	}
}

func (p *Platform) framebufferSizeCallback(w *glfw.Window, width, height int) {
	p.framebufWidth = width
	p.framebufHeight = height
	p.windowWidth, p.windowHeight = w.GetSize()
	if p.onResize != nil {
		p.onResize(width, height)
	}
}
