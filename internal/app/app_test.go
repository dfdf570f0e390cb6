package app

import (
	"errors"
	"strings"
	"testing"
	"testing/fstest"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/Faultbox/quadtemplate/internal/assets"
	"github.com/Faultbox/quadtemplate/internal/assets/shaders"
	"github.com/Faultbox/quadtemplate/internal/engine/gpu"
	"github.com/Faultbox/quadtemplate/internal/engine/gpu/gputest"
	"github.com/Faultbox/quadtemplate/internal/engine/shader"
	"github.com/Faultbox/quadtemplate/internal/engine/touch"
	"github.com/Faultbox/quadtemplate/internal/engine/transform"
	"github.com/Faultbox/quadtemplate/internal/logger"
	"github.com/Faultbox/quadtemplate/pkg/math"
)

var _ touch.Handler = (*App)(nil)

var defaultConfig = Config{
	VertexShader:   shaders.Vertex,
	FragmentShader: shaders.Fragment,
	DebugShaders:   true,
}

const brokenSrc = "void main() { gl_Position = vec4(1.0; }"

// apply returns the affine transform m applied to p.
func apply(m math.Mat4, p [3]float32) [3]float32 {
	r := m.Mul(math.Translate(p[0], p[1], p[2]))
	return [3]float32{r[12], r[13], r[14]}
}

// sources returns a mutable copy of the embedded shader sources.
func sources(t *testing.T) fstest.MapFS {
	t.Helper()
	fsys := fstest.MapFS{}
	embedded := assets.FSLoader{FS: shaders.FS}
	for _, name := range []string{shaders.Vertex, shaders.Fragment} {
		data, err := embedded.Load(name)
		if err != nil {
			t.Fatalf("loading embedded %s: %v", name, err)
		}
		fsys[name] = &fstest.MapFile{Data: data}
	}
	return fsys
}

func newApp(t *testing.T, fsys fstest.MapFS) (*App, *gputest.Device, *observer.ObservedLogs) {
	t.Helper()
	dev := gputest.New()
	core, logs := observer.New(zapcore.DebugLevel)
	a := New(dev, assets.FSLoader{FS: fsys}, defaultConfig, WithLogger(zap.New(core)))
	return a, dev, logs
}

func TestInitAndDraw(t *testing.T) {
	a, dev, _ := newApp(t, sources(t))
	defer a.Exit()

	if err := a.Init(640, 480); err != nil {
		t.Fatalf("Init: %v", err)
	}
	if a.Program().Status() != shader.Linked {
		t.Fatalf("expected linked program, got %s", a.Program().Status())
	}
	if dev.ViewportRect() != [4]int{0, 0, 640, 480} {
		t.Errorf("unexpected viewport %v", dev.ViewportRect())
	}
	if !dev.DepthDisabled() {
		t.Error("expected depth testing to be disabled")
	}

	a.Draw()

	if dev.ClearColorValue() != [4]float32{0.5, 0.5, 0.5, 1} {
		t.Errorf("unexpected clear color %v", dev.ClearColorValue())
	}
	draws := dev.Draws()
	if len(draws) != 1 {
		t.Fatalf("expected 1 draw, got %d", len(draws))
	}
	if draws[0].Program != a.Program().Handle() || draws[0].First != 0 || draws[0].Count != 4 {
		t.Errorf("unexpected draw %+v", draws[0])
	}

	p := a.Program()
	pos, ok := dev.Attrib(p.AttributeLocation(AttributePosition))
	if !ok || len(pos) != 8 {
		t.Errorf("expected 8 position values, got %v", pos)
	}
	col, ok := dev.Attrib(p.AttributeLocation(AttributeColor))
	if !ok || len(col) != 16 {
		t.Errorf("expected 16 color values, got %v", col)
	}

	m, ok := dev.Matrix(p.UniformLocation(UniformModelviewProjection))
	if !ok {
		t.Fatal("expected the modelview-projection matrix to be uploaded")
	}
	// The top right corner of the unit quad lands at pixel (100, 100).
	got := apply(math.Mat4(m), [3]float32{1, 1, 0})
	want := [3]float32{100.0/320 - 1, 100.0/240 - 1, 0}
	for i := range got {
		if d := got[i] - want[i]; d < -1e-5 || d > 1e-5 {
			t.Fatalf("quad corner: got %v, want %v", got, want)
		}
	}

	if dev.NotFoundUses() != 0 {
		t.Errorf("%d GPU calls received NotFound", dev.NotFoundUses())
	}
	if m := dev.Misuse(); len(m) != 0 {
		t.Errorf("unexpected misuse: %v", m)
	}
}

func TestExitReleasesEverything(t *testing.T) {
	a, dev, _ := newApp(t, sources(t))

	if err := a.Init(320, 240); err != nil {
		t.Fatalf("Init: %v", err)
	}
	if dev.Live() != 3 {
		t.Fatalf("expected program and two shaders live, got %d", dev.Live())
	}

	a.Exit()
	a.Exit()

	if dev.Live() != 0 {
		t.Errorf("expected 0 live objects, got %d", dev.Live())
	}
	if dev.Created() != dev.Deleted() {
		t.Errorf("created %d, deleted %d", dev.Created(), dev.Deleted())
	}
	if m := dev.Misuse(); len(m) != 0 {
		t.Errorf("unexpected misuse: %v", m)
	}
	if a.Program() != nil {
		t.Error("program still held after Exit")
	}

	// Drawing after exit only clears.
	a.Draw()
	if len(dev.Draws()) != 0 {
		t.Error("drew after Exit")
	}
}

func TestStartupFailures(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(fstest.MapFS, *gputest.Device)
		phase  Phase
		code   int
		cause  error
	}{
		{
			name:   "missing vertex",
			mutate: func(fs fstest.MapFS, _ *gputest.Device) { delete(fs, shaders.Vertex) },
			phase:  PhaseLoadVertex,
			code:   ExitLoadVertex,
			cause:  assets.ErrNotFound,
		},
		{
			name:   "missing fragment",
			mutate: func(fs fstest.MapFS, _ *gputest.Device) { delete(fs, shaders.Fragment) },
			phase:  PhaseLoadFragment,
			code:   ExitLoadFragment,
			cause:  assets.ErrNotFound,
		},
		{
			name: "broken vertex",
			mutate: func(fs fstest.MapFS, _ *gputest.Device) {
				fs[shaders.Vertex] = &fstest.MapFile{Data: []byte(brokenSrc)}
			},
			phase: PhaseCompileVertex,
			code:  ExitCompileVertex,
			cause: shader.ErrCompileFailed,
		},
		{
			name: "broken fragment",
			mutate: func(fs fstest.MapFS, _ *gputest.Device) {
				fs[shaders.Fragment] = &fstest.MapFile{Data: []byte(brokenSrc)}
			},
			phase: PhaseCompileFragment,
			code:  ExitCompileFragment,
			cause: shader.ErrCompileFailed,
		},
		{
			name:   "link rejected",
			mutate: func(_ fstest.MapFS, dev *gputest.Device) { dev.RejectLink = true },
			phase:  PhaseLink,
			code:   ExitLink,
			cause:  shader.ErrLinkFailed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fsys := sources(t)
			a, dev, _ := newApp(t, fsys)
			tt.mutate(fsys, dev)

			err := a.Init(640, 480)
			var se *StartupError
			if !errors.As(err, &se) {
				t.Fatalf("expected *StartupError, got %v", err)
			}
			if se.Phase != tt.phase {
				t.Errorf("expected phase %s, got %s", tt.phase, se.Phase)
			}
			if code := ExitCode(err); code != tt.code {
				t.Errorf("expected exit code %d, got %d", tt.code, code)
			}
			if !errors.Is(err, tt.cause) {
				t.Errorf("expected cause %v, got %v", tt.cause, err)
			}
			if tt.cause == shader.ErrCompileFailed && !strings.Contains(err.Error(), "syntax error") {
				t.Errorf("expected the compiler log in %q", err)
			}

			a.Exit()
			if dev.Live() != 0 {
				t.Errorf("leaked %d GPU objects", dev.Live())
			}
			if a.pending != nil {
				t.Error("source buffer still held after Exit")
			}
			if m := dev.Misuse(); len(m) != 0 {
				t.Errorf("unexpected misuse: %v", m)
			}
		})
	}
}

func TestMissingVertexNeverCompiles(t *testing.T) {
	fsys := sources(t)
	delete(fsys, shaders.Vertex)
	a, dev, _ := newApp(t, fsys)

	if err := a.Init(640, 480); ExitCode(err) != ExitLoadVertex {
		t.Fatalf("expected load-vertex failure, got %v", err)
	}
	if dev.Compiles() != 0 || dev.Links() != 0 {
		t.Errorf("expected no GPU work, got %d compiles and %d links", dev.Compiles(), dev.Links())
	}
	a.Exit()
	if dev.Live() != 0 {
		t.Errorf("leaked %d GPU objects", dev.Live())
	}
}

func TestDrawWithoutProgram(t *testing.T) {
	a, dev, logs := newApp(t, sources(t))

	a.Draw()
	a.Draw()

	if dev.Clears() != 2 {
		t.Errorf("expected 2 clears, got %d", dev.Clears())
	}
	if len(dev.Draws()) != 0 {
		t.Errorf("expected no draws, got %d", len(dev.Draws()))
	}
	if n := logs.FilterMessage("no linked program, drawing nothing").Len(); n != 1 {
		t.Errorf("expected the unready warning once, got %d", n)
	}
}

func TestDrawAfterFailedLink(t *testing.T) {
	a, dev, _ := newApp(t, sources(t))
	dev.RejectLink = true
	defer a.Exit()

	if err := a.Init(640, 480); err == nil {
		t.Fatal("expected Init to fail")
	}
	a.Draw()

	if len(dev.Draws()) != 0 {
		t.Errorf("expected no draws with a failed program, got %d", len(dev.Draws()))
	}
	if dev.Clears() != 1 {
		t.Errorf("expected the frame to be cleared, got %d clears", dev.Clears())
	}
}

func TestDrawMissingLocations(t *testing.T) {
	fsys := sources(t)
	// No COLOR input and a misspelled transform uniform.
	fsys[shaders.Vertex] = &fstest.MapFile{Data: []byte(`#version 410 core
uniform mat4 MVP;
in vec2 POSITION;
out vec4 color;
void main() {
	color = vec4(1.0);
	gl_Position = MVP * vec4(POSITION, 0.0, 1.0);
}
`)}

	a, dev, _ := newApp(t, fsys)
	defer a.Exit()

	if err := a.Init(640, 480); err != nil {
		t.Fatalf("Init: %v", err)
	}
	p := a.Program()
	if p.UniformLocation(UniformModelviewProjection) != gpu.NotFound {
		t.Fatal("expected the transform uniform to be absent")
	}
	if p.AttributeLocation(AttributeColor) != gpu.NotFound {
		t.Fatal("expected the color attribute to be absent")
	}

	a.Draw()
	a.Draw()

	if dev.NotFoundUses() != 0 {
		t.Errorf("%d GPU calls received NotFound", dev.NotFoundUses())
	}
	if len(dev.Draws()) != 2 {
		t.Errorf("expected 2 draws, got %d", len(dev.Draws()))
	}
	if _, ok := dev.Attrib(p.AttributeLocation(AttributePosition)); !ok {
		t.Error("expected positions to be uploaded")
	}
	if m := dev.Misuse(); len(m) != 0 {
		t.Errorf("unexpected misuse: %v", m)
	}
}

func TestDrawLogsDeviceError(t *testing.T) {
	a, dev, logs := newApp(t, sources(t))
	defer a.Exit()
	if err := a.Init(640, 480); err != nil {
		t.Fatalf("Init: %v", err)
	}

	dev.PendingErr = errors.New("gl error 0x0502")
	a.Draw()
	a.Draw()

	if n := logs.FilterMessage("gpu error").Len(); n != 1 {
		t.Errorf("expected 1 gpu error entry, got %d", n)
	}
}

func TestReload(t *testing.T) {
	fsys := sources(t)
	a, dev, logs := newApp(t, fsys)
	defer a.Exit()

	if err := a.Init(640, 480); err != nil {
		t.Fatalf("Init: %v", err)
	}
	original := a.Program()

	good := fsys[shaders.Fragment]
	fsys[shaders.Fragment] = &fstest.MapFile{Data: []byte(brokenSrc)}

	err := a.Reload()
	if ExitCode(err) != ExitCompileFragment {
		t.Fatalf("expected compile-fragment failure, got %v", err)
	}
	if a.Program() != original || original.Status() != shader.Linked {
		t.Fatal("failed reload replaced the running program")
	}
	if n := logs.FilterMessage("shader reload failed, keeping current program").Len(); n != 1 {
		t.Errorf("expected the rejected reload to be logged once, got %d", n)
	}
	if dev.Live() != 3 {
		t.Errorf("failed reload leaked objects: %d live", dev.Live())
	}

	fsys[shaders.Fragment] = good
	if err := a.Reload(); err != nil {
		t.Fatalf("Reload: %v", err)
	}
	if a.Program() == original {
		t.Fatal("reload kept the old program")
	}
	if original.Handle() != 0 {
		t.Error("old program not freed")
	}
	if dev.Live() != 3 {
		t.Errorf("expected 3 live objects after reload, got %d", dev.Live())
	}

	a.Draw()
	if draws := dev.Draws(); len(draws) != 1 || draws[0].Program != a.Program().Handle() {
		t.Errorf("expected a draw with the reloaded program, got %+v", draws)
	}
}

func TestResize(t *testing.T) {
	a, dev, _ := newApp(t, sources(t))
	defer a.Exit()
	if err := a.Init(640, 480); err != nil {
		t.Fatalf("Init: %v", err)
	}

	a.Resize(1024, 768)
	if w, h := a.Size(); w != 1024 || h != 768 {
		t.Errorf("expected size 1024x768, got %dx%d", w, h)
	}
	if dev.ViewportRect() != [4]int{0, 0, 1024, 768} {
		t.Errorf("unexpected viewport %v", dev.ViewportRect())
	}

	a.Draw()
	m, _ := dev.Matrix(a.Program().UniformLocation(UniformModelviewProjection))
	got := apply(math.Mat4(m), [3]float32{0, 0, 0})
	if d0, d1 := got[0]+1, got[1]+1; d0 < -1e-5 || d0 > 1e-5 || d1 < -1e-5 || d1 > 1e-5 {
		t.Errorf("quad pivot should sit at the bottom left corner, got %v", got)
	}
}

func TestReadFrame(t *testing.T) {
	a, _, _ := newApp(t, sources(t))
	defer a.Exit()
	if err := a.Init(4, 2); err != nil {
		t.Fatalf("Init: %v", err)
	}
	a.Draw()

	pixels, w, h := a.ReadFrame()
	if w != 4 || h != 2 {
		t.Fatalf("expected 4x2 frame, got %dx%d", w, h)
	}
	if len(pixels) != 4*2*4 {
		t.Fatalf("expected %d bytes, got %d", 4*2*4, len(pixels))
	}
	for i := 0; i < len(pixels); i += 4 {
		if px := [4]byte(pixels[i : i+4]); px != [4]byte{128, 128, 128, 255} {
			t.Fatalf("pixel %d: expected the gray clear color, got %v", i/4, px)
		}
	}
}

func TestDrawRestoresModelview(t *testing.T) {
	a, _, _ := newApp(t, sources(t))
	defer a.Exit()
	if err := a.Init(640, 480); err != nil {
		t.Fatalf("Init: %v", err)
	}

	a.Draw()
	a.Draw()
	if a.stack.Top(transform.Modelview) != math.Identity() {
		t.Errorf("quad transform leaked into the modelview: %v", a.stack.Top(transform.Modelview))
	}
	if a.stack.Pop() {
		t.Error("Draw left a pushed modelview matrix behind")
	}
}

func TestTouchLogging(t *testing.T) {
	a, _, _ := newApp(t, sources(t))

	core, logs := observer.New(zapcore.DebugLevel)
	logger.Set(zap.New(core))
	t.Cleanup(func() { logger.Set(nil) })

	touch.Dispatch(a, touch.Event{Phase: touch.Began, X: 10, Y: 20, Taps: 1})
	touch.Dispatch(a, touch.Event{Phase: touch.Moved, X: 11, Y: 21, Taps: 1})
	touch.Dispatch(a, touch.Event{Phase: touch.Ended, X: 12, Y: 22, Taps: 2})

	want := []string{
		"touch began: 10.000000,20.000000 tap: 1",
		"touch moved: 11.000000,21.000000 tap: 1",
		"touch ended: 12.000000,22.000000 tap: 2",
	}
	entries := logs.All()
	if len(entries) != len(want) {
		t.Fatalf("expected %d entries, got %d", len(want), len(entries))
	}
	for i, e := range entries {
		if e.Message != want[i] {
			t.Errorf("entry %d: got %q, want %q", i, e.Message, want[i])
		}
		if e.Level != zapcore.InfoLevel {
			t.Errorf("entry %d: expected info level, got %s", i, e.Level)
		}
	}
}

func TestExitCode(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{nil, ExitOK},
		{errors.New("window"), ExitFailure},
		{&StartupError{Phase: PhaseLink, Err: shader.ErrIncompleteProgram}, ExitLink},
		{&StartupError{Phase: Phase("bogus")}, ExitFailure},
	}
	for _, tt := range tests {
		if got := ExitCode(tt.err); got != tt.want {
			t.Errorf("ExitCode(%v): got %d, want %d", tt.err, got, tt.want)
		}
	}
}
