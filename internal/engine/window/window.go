// Package window creates the native window and OpenGL context.
package window

import (
	"fmt"
	"runtime"

	"go.uber.org/zap"

	"github.com/Faultbox/quadtemplate/internal/engine/input"
	"github.com/Faultbox/quadtemplate/internal/logger"
)

func init() {
	// OpenGL calls must be made from the main thread
	runtime.LockOSThread()
}

// Backends.
const (
	BackendSDL  = "sdl"
	BackendGLFW = "glfw"
)

// Config holds window configuration.
type Config struct {
	Title      string
	Width      int
	Height     int
	Fullscreen bool
	VSync      bool
	Backend    string
}

// Platform is an open window with a current OpenGL 4.1 core context.
type Platform interface {
	// Poll returns the events received since the last call.
	Poll() []input.Event
	SwapBuffers()
	// Size returns the drawable size in pixels.
	Size() (int, int)
	Close()
}

// Open creates a window on the configured backend.
func Open(cfg Config) (Platform, error) {
	logger.Info("opening window",
		zap.String("backend", cfg.Backend),
		zap.String("title", cfg.Title),
		zap.Int("width", cfg.Width),
		zap.Int("height", cfg.Height),
		zap.Bool("fullscreen", cfg.Fullscreen),
		zap.Bool("vsync", cfg.VSync),
	)

	switch cfg.Backend {
	case BackendSDL, "":
		return newSDL(cfg)
	case BackendGLFW:
		return newGLFW(cfg)
	default:
		return nil, fmt.Errorf("unknown window backend %q", cfg.Backend)
	}
}
