// Package main runs the quad template: a window with one colored quad and
// touch logging.
package main

import (
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/Faultbox/quadtemplate/internal/app"
	"github.com/Faultbox/quadtemplate/internal/assets"
	"github.com/Faultbox/quadtemplate/internal/assets/shaders"
	"github.com/Faultbox/quadtemplate/internal/config"
	"github.com/Faultbox/quadtemplate/internal/engine/gpu/gldevice"
	"github.com/Faultbox/quadtemplate/internal/engine/input"
	"github.com/Faultbox/quadtemplate/internal/engine/screenshot"
	"github.com/Faultbox/quadtemplate/internal/engine/touch"
	"github.com/Faultbox/quadtemplate/internal/engine/window"
	"github.com/Faultbox/quadtemplate/internal/logger"
)

func main() {
	config.ParseFlags()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Config error: %v\n", err)
		os.Exit(app.ExitFailure)
	}

	if err := logger.Init(cfg.Logging.Level, cfg.Logging.LogFile); err != nil {
		fmt.Fprintf(os.Stderr, "Logger error: %v\n", err)
		os.Exit(app.ExitFailure)
	}

	code := run(cfg)
	logger.Sync()
	os.Exit(code)
}

// run owns every resource so deferred cleanup finishes before the process exits.
func run(cfg *config.Config) int {
	logger.Info("=== Quad Template ===")
	logger.Sugar.Debugf("Config: %+v", cfg)

	if config.SaveRequested() {
		if err := cfg.Save(); err != nil {
			logger.Warn("failed to save config", zap.Error(err))
		} else {
			logger.Info("config saved", zap.String("dir", config.ConfigDir()))
		}
	}

	win, err := window.Open(window.Config{
		Title:      cfg.Window.Title,
		Width:      cfg.Window.Width,
		Height:     cfg.Window.Height,
		Fullscreen: cfg.Window.Fullscreen,
		VSync:      cfg.Window.VSync,
		Backend:    cfg.Window.Backend,
	})
	if err != nil {
		logger.Error("failed to open window", zap.Error(err))
		return app.ExitFailure
	}
	defer win.Close()

	dev, err := gldevice.New()
	if err != nil {
		logger.Error("failed to initialize OpenGL", zap.Error(err))
		return app.ExitFailure
	}
	defer dev.Close()

	// Files in the shader directory override the embedded defaults.
	sources := assets.NewManager(assets.FSLoader{FS: shaders.FS})
	if cfg.Shaders.Dir != "" {
		sources.Add(assets.DirLoader{Dir: cfg.Shaders.Dir})
	}
	defer sources.Close()
	defer func() {
		hits, misses := sources.Stats()
		logger.Debug("shader source cache", zap.Int("hits", hits), zap.Int("misses", misses))
	}()

	a := app.New(dev, sources, app.Config{
		VertexShader:   cfg.Shaders.Vertex,
		FragmentShader: cfg.Shaders.Fragment,
		DebugShaders:   cfg.Shaders.Debug,
	})
	defer a.Exit()

	width, height := win.Size()
	if err := a.Init(width, height); err != nil {
		logger.Error("startup failed", zap.Error(err), zap.Int("exit_code", app.ExitCode(err)))
		return app.ExitCode(err)
	}

	shots := screenshot.New(cfg.Screenshots.Dir, "quadtemplate")

	for {
		capture := false
		for _, ev := range win.Poll() {
			switch ev.Type {
			case input.EventQuit:
				logger.Info("quit requested")
				return app.ExitOK
			case input.EventWindowResize:
				a.Resize(ev.Width, ev.Height)
			case input.EventReload:
				sources.Invalidate()
				// Reload logs a rejected build itself and keeps the running program.
				a.Reload()
			case input.EventScreenshot:
				capture = true
			case input.EventTouch:
				touch.Dispatch(a, ev.Touch)
			}
		}

		a.Draw()
		if capture {
			pixels, w, h := a.ReadFrame()
			if path, err := shots.Save(pixels, w, h); err != nil {
				logger.Warn("screenshot failed", zap.Error(err))
			} else {
				logger.Info("screenshot saved", zap.String("path", path))
			}
		}
		win.SwapBuffers()
	}
}
