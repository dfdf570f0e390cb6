// Package app is the template application: it owns the shader program and
// the transient source buffer, sets up the 2D surface, draws the quad and
// receives touch input.
package app

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/Faultbox/quadtemplate/internal/assets"
	"github.com/Faultbox/quadtemplate/internal/engine/gpu"
	"github.com/Faultbox/quadtemplate/internal/engine/shader"
	"github.com/Faultbox/quadtemplate/internal/engine/transform"
	"github.com/Faultbox/quadtemplate/internal/logger"
)

// Names the shaders must declare.
const (
	UniformModelviewProjection = "MODELVIEWPROJECTIONMATRIX"
	AttributePosition          = "POSITION"
	AttributeColor             = "COLOR"
)

// Quad geometry: unit square in strip order, one RGBA color per vertex.
var (
	quadPositions = [8]float32{
		0, 0, // bottom left (pivot)
		1, 0, // bottom right
		0, 1, // top left
		1, 1, // top right
	}
	quadColors = [16]float32{
		1, 0, 0, 1, // red
		0, 1, 0, 1, // green
		0, 0, 1, 1, // blue
		1, 1, 0, 1, // yellow
	}
)

const quadSize = 100 // pixels

// Config holds the shader sources the app builds its program from.
type Config struct {
	VertexShader   string
	FragmentShader string
	// DebugShaders logs compiler and linker diagnostics on failure.
	DebugShaders bool
}

// App is the application context. It is driven from the rendering thread only.
type App struct {
	cfg    Config
	dev    gpu.Device
	loader assets.Loader
	log    *zap.Logger

	stack   *transform.Stack
	program *shader.Program
	pending []byte // source being compiled

	width, height int
	warnedUnready bool
	exited        bool
}

// Option configures an App.
type Option func(*App)

// WithLogger routes app and shader diagnostics to l.
func WithLogger(l *zap.Logger) Option {
	return func(a *App) {
		if l != nil {
			a.log = l
		}
	}
}

// New creates an app drawing through dev and reading sources from loader.
func New(dev gpu.Device, loader assets.Loader, cfg Config, opts ...Option) *App {
	a := &App{
		cfg:    cfg,
		dev:    dev,
		loader: loader,
		log:    logger.L(),
		stack:  transform.New(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Init sets up the surface and builds the shader program. A returned
// *StartupError names the failing phase; whatever was allocated before the
// failure stays owned by the app and is released by Exit.
func (a *App) Init(width, height int) error {
	a.exited = false
	a.Resize(width, height)
	a.dev.DisableDepth()

	// Re-initialization replaces the previous program.
	a.program.Free()
	a.program = shader.NewProgram(a.dev, "default", shader.WithLogger(a.log))

	if err := a.build(a.program); err != nil {
		return err
	}

	a.log.Info("app initialized",
		zap.String("program", a.program.Name()),
		zap.Int("width", width),
		zap.Int("height", height),
	)
	return nil
}

// Reload builds a fresh program from the current sources and swaps it in
// only when it links. On failure the running program is kept.
func (a *App) Reload() error {
	candidate := shader.NewProgram(a.dev, "default", shader.WithLogger(a.log))
	if err := a.build(candidate); err != nil {
		candidate.Free()
		a.log.Warn("shader reload failed, keeping current program", zap.Error(err))
		return err
	}

	a.program.Free()
	a.program = candidate
	a.warnedUnready = false
	a.log.Info("shaders reloaded")
	return nil
}

// build compiles both stages into p and links it.
func (a *App) build(p *shader.Program) error {
	vertex := shader.NewUnit(a.dev, gpu.StageVertex, shader.WithLogger(a.log))
	fragment := shader.NewUnit(a.dev, gpu.StageFragment, shader.WithLogger(a.log))
	if err := p.SetVertexShader(vertex); err != nil {
		return err
	}
	if err := p.SetFragmentShader(fragment); err != nil {
		return err
	}

	if err := a.compile(vertex, a.cfg.VertexShader, PhaseLoadVertex, PhaseCompileVertex); err != nil {
		return err
	}
	if err := a.compile(fragment, a.cfg.FragmentShader, PhaseLoadFragment, PhaseCompileFragment); err != nil {
		return err
	}

	if p.Link(a.cfg.DebugShaders) != shader.Linked {
		return &StartupError{Phase: PhaseLink, Err: p.Err()}
	}
	return nil
}

func (a *App) compile(u *shader.Unit, name string, loadPhase, compilePhase Phase) error {
	data, err := a.loader.Load(name)
	if err != nil {
		return &StartupError{Phase: loadPhase, Err: err}
	}

	a.pending = data
	status := u.Compile(string(a.pending), a.cfg.DebugShaders)
	a.pending = nil

	if status != shader.CompileSucceeded {
		return &StartupError{Phase: compilePhase, Err: fmt.Errorf("%s: %w: %s", name, u.Err(), u.InfoLog())}
	}
	return nil
}

// Resize sets the viewport and a pixel-space orthographic projection with
// the origin in the bottom left corner.
func (a *App) Resize(width, height int) {
	a.width, a.height = width, height
	a.dev.Viewport(0, 0, width, height)

	halfW := float32(width) / 2
	halfH := float32(height) / 2

	a.stack.SetMode(transform.Projection)
	a.stack.LoadIdentity()
	a.stack.Ortho2D(-halfW, halfW, -halfH, halfH)
	a.stack.Translate(-halfW, -halfH, 0)
	a.stack.SetMode(transform.Modelview)
}

// Draw renders one frame. Without a linked program the frame is only cleared.
func (a *App) Draw() {
	a.dev.ClearColor(0.5, 0.5, 0.5, 1)
	a.dev.ClearColorBuffer()

	a.stack.SetMode(transform.Modelview)
	a.stack.LoadIdentity()

	if a.program != nil && a.program.Use() {
		a.stack.Push()
		a.stack.Scale(quadSize, quadSize, 1)
		a.drawQuad()
		a.stack.Pop()
	} else if !a.warnedUnready {
		a.warnedUnready = true
		a.log.Warn("no linked program, drawing nothing")
	}

	if err := a.dev.Err(); err != nil {
		a.log.Warn("gpu error", zap.Error(err))
	}
}

func (a *App) drawQuad() {
	// Locations are resolved every frame; each one may be absent.
	if loc := a.program.UniformLocation(UniformModelviewProjection); loc.Valid() {
		mvp := a.stack.ModelviewProjection()
		a.dev.UniformMatrix4(loc, mvp.Array())
	}
	if loc := a.program.AttributeLocation(AttributePosition); loc.Valid() {
		a.dev.VertexAttrib(loc, 2, quadPositions[:])
	}
	if loc := a.program.AttributeLocation(AttributeColor); loc.Valid() {
		a.dev.VertexAttrib(loc, 4, quadColors[:])
	}
	a.dev.DrawTriangleStrip(0, 4)
}

// ReadFrame returns the drawn surface as RGBA pixels, bottom row first.
// Call it after Draw and before the buffers are swapped.
func (a *App) ReadFrame() ([]byte, int, int) {
	return a.dev.ReadPixels(0, 0, a.width, a.height), a.width, a.height
}

// TouchBegan logs the start of a touch.
func (a *App) TouchBegan(x, y float32, taps uint) {
	logger.Printf("touch began: %f,%f tap: %d", x, y, taps)
}

// TouchMoved logs a touch moving.
func (a *App) TouchMoved(x, y float32, taps uint) {
	logger.Printf("touch moved: %f,%f tap: %d", x, y, taps)
}

// TouchEnded logs the end of a touch.
func (a *App) TouchEnded(x, y float32, taps uint) {
	logger.Printf("touch ended: %f,%f tap: %d", x, y, taps)
}

// Exit releases the pending source buffer and the program. Only the first
// call after Init does any work.
func (a *App) Exit() {
	if a.exited {
		return
	}
	a.exited = true

	a.pending = nil
	a.program.Free()
	a.program = nil

	a.log.Info("app exited")
}

// Program returns the current shader program, or nil.
func (a *App) Program() *shader.Program {
	return a.program
}

// Size returns the surface size given to Init or Resize.
func (a *App) Size() (int, int) {
	return a.width, a.height
}
