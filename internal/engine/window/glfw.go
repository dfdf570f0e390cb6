package window

import (
	"fmt"

	"github.com/go-gl/glfw/v3.3/glfw"
	"go.uber.org/zap"

	"github.com/Faultbox/quadtemplate/internal/engine/input"
	"github.com/Faultbox/quadtemplate/internal/engine/touch"
	"github.com/Faultbox/quadtemplate/internal/logger"
)

// multiTapInterval is the longest gap in seconds between presses counted as one multi-tap.
const multiTapInterval = 0.4

// glfwWindow is a GLFW window whose callbacks queue input events.
type glfwWindow struct {
	window *glfw.Window
	events []input.Event

	pressed   bool
	taps      uint
	lastPress float64
}

func newGLFW(cfg Config) (*glfwWindow, error) {
	if err := glfw.Init(); err != nil {
		return nil, fmt.Errorf("glfw init failed: %w", err)
	}

	glfw.WindowHint(glfw.ContextVersionMajor, 4)
	glfw.WindowHint(glfw.ContextVersionMinor, 1)
	glfw.WindowHint(glfw.OpenGLProfile, glfw.OpenGLCoreProfile)
	glfw.WindowHint(glfw.OpenGLForwardCompatible, glfw.True)
	glfw.WindowHint(glfw.DepthBits, 0)
	glfw.WindowHint(glfw.Resizable, glfw.True)

	var monitor *glfw.Monitor
	width, height := cfg.Width, cfg.Height
	if cfg.Fullscreen {
		monitor = glfw.GetPrimaryMonitor()
		if mode := monitor.GetVideoMode(); mode != nil {
			width, height = mode.Width, mode.Height
		}
	}

	win, err := glfw.CreateWindow(width, height, cfg.Title, monitor, nil)
	if err != nil {
		glfw.Terminate()
		return nil, fmt.Errorf("glfw create window failed: %w", err)
	}
	win.MakeContextCurrent()

	if cfg.VSync {
		glfw.SwapInterval(1)
	} else {
		glfw.SwapInterval(0)
	}

	w := &glfwWindow{
		window: win,
		events: make([]input.Event, 0, 16),
	}

	win.SetFramebufferSizeCallback(w.framebufferSizeCallback)
	win.SetKeyCallback(w.keyCallback)
	win.SetMouseButtonCallback(w.mouseButtonCallback)
	win.SetCursorPosCallback(w.cursorPosCallback)

	fbWidth, fbHeight := w.Size()
	logger.Info("GLFW window created", zap.Int("drawable_width", fbWidth), zap.Int("drawable_height", fbHeight))
	return w, nil
}

func (w *glfwWindow) Poll() []input.Event {
	w.events = w.events[:0]
	glfw.PollEvents()
	if w.window.ShouldClose() {
		w.events = append(w.events, input.Event{Type: input.EventQuit})
	}
	return w.events
}

func (w *glfwWindow) SwapBuffers() {
	w.window.SwapBuffers()
}

func (w *glfwWindow) Size() (int, int) {
	return w.window.GetFramebufferSize()
}

func (w *glfwWindow) Close() {
	logger.Info("closing window")
	w.window.Destroy()
	glfw.Terminate()
}

func (w *glfwWindow) framebufferSizeCallback(_ *glfw.Window, width, height int) {
	w.events = append(w.events, input.Event{
		Type:   input.EventWindowResize,
		Width:  width,
		Height: height,
	})
}

func (w *glfwWindow) keyCallback(_ *glfw.Window, key glfw.Key, _ int, action glfw.Action, _ glfw.ModifierKey) {
	if action != glfw.Press {
		return
	}
	switch key {
	case glfw.KeyEscape:
		w.window.SetShouldClose(true)
	case glfw.KeyF5:
		w.events = append(w.events, input.Event{Type: input.EventReload})
	case glfw.KeyF12:
		w.events = append(w.events, input.Event{Type: input.EventScreenshot})
	}
}

func (w *glfwWindow) mouseButtonCallback(_ *glfw.Window, button glfw.MouseButton, action glfw.Action, _ glfw.ModifierKey) {
	if button != glfw.MouseButtonLeft {
		return
	}

	x, y := w.cursorPixels()
	switch action {
	case glfw.Press:
		now := glfw.GetTime()
		if now-w.lastPress <= multiTapInterval {
			w.taps++
		} else {
			w.taps = 1
		}
		w.lastPress = now
		w.pressed = true
		w.touch(touch.Began, x, y)
	case glfw.Release:
		w.pressed = false
		w.touch(touch.Ended, x, y)
	}
}

func (w *glfwWindow) cursorPosCallback(_ *glfw.Window, _, _ float64) {
	if !w.pressed {
		return
	}
	x, y := w.cursorPixels()
	w.touch(touch.Moved, x, y)
}

// cursorPixels returns the cursor position in framebuffer pixels.
func (w *glfwWindow) cursorPixels() (float32, float32) {
	cx, cy := w.window.GetCursorPos()
	winW, winH := w.window.GetSize()
	fbW, fbH := w.window.GetFramebufferSize()
	return touch.ToPixels(float32(cx), float32(cy), winW, winH, fbW, fbH)
}

func (w *glfwWindow) touch(phase touch.Phase, x, y float32) {
	w.events = append(w.events, input.Event{
		Type:  input.EventTouch,
		Touch: touch.Event{Phase: phase, X: x, Y: y, Taps: w.taps},
	})
}
