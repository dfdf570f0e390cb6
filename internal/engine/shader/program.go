package shader

import (
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/Faultbox/quadtemplate/internal/engine/gpu"
)

var (
	// ErrIncompleteProgram is reported when Link runs without two compiled stages.
	// The GPU linker is never invoked in that case.
	ErrIncompleteProgram = errors.New("incomplete program")

	// ErrLinkFailed is reported when the GPU linker rejects the program.
	ErrLinkFailed = errors.New("program link failed")

	// ErrStageMismatch is returned when a unit is set into the wrong slot.
	ErrStageMismatch = errors.New("shader stage mismatch")
)

// LinkStatus is the state of a Program.
type LinkStatus int

const (
	Unlinked LinkStatus = iota
	Linked
	LinkFailed
)

func (s LinkStatus) String() string {
	switch s {
	case Unlinked:
		return "unlinked"
	case Linked:
		return "linked"
	case LinkFailed:
		return "link failed"
	default:
		return "unknown"
	}
}

// Program owns a vertex unit, a fragment unit and the GPU program object
// they link into. A program links at most once; a failed program is
// discarded and rebuilt, never relinked in place.
type Program struct {
	dev    gpu.ShaderCompiler
	log    *zap.Logger
	name   string
	handle gpu.Handle
	status LinkStatus
	err    error

	vertex   *Unit
	fragment *Unit
}

// NewProgram allocates an empty program object named name.
func NewProgram(dev gpu.ShaderCompiler, name string, opts ...Option) *Program {
	o := applyOptions(opts)
	p := &Program{
		dev:    dev,
		log:    o.log.With(zap.String("program", name)),
		name:   name,
		handle: dev.CreateProgram(),
	}
	if p.handle == 0 {
		p.log.Error("program allocation failed")
	}
	return p
}

// SetVertexShader hands u to the program. A previously set unit is freed first.
func (p *Program) SetVertexShader(u *Unit) error {
	return p.set(&p.vertex, u, gpu.StageVertex)
}

// SetFragmentShader hands u to the program. A previously set unit is freed first.
func (p *Program) SetFragmentShader(u *Unit) error {
	return p.set(&p.fragment, u, gpu.StageFragment)
}

func (p *Program) set(slot **Unit, u *Unit, stage gpu.Stage) error {
	if u != nil && u.Stage() != stage {
		return fmt.Errorf("%w: %s unit in %s slot", ErrStageMismatch, u.Stage(), stage)
	}
	if *slot == u {
		return nil
	}
	(*slot).Free()
	*slot = u
	return nil
}

// VertexShader returns the owned vertex unit, if any.
func (p *Program) VertexShader() *Unit { return p.vertex }

// FragmentShader returns the owned fragment unit, if any.
func (p *Program) FragmentShader() *Unit { return p.fragment }

// Link attaches both compiled stages and links them. Only an unlinked
// program is linked; otherwise the current status is returned unchanged.
// With debug set, an incomplete program or the linker log of a rejected one
// is written to the logger.
func (p *Program) Link(debug bool) LinkStatus {
	if p.status != Unlinked {
		return p.status
	}

	if !p.complete() {
		p.status = LinkFailed
		p.err = ErrIncompleteProgram
		if debug {
			p.log.Error("program incomplete",
				zap.Stringer("vertex", unitStatus(p.vertex)),
				zap.Stringer("fragment", unitStatus(p.fragment)),
			)
		}
		return p.status
	}

	p.dev.AttachShader(p.handle, p.vertex.Handle())
	p.dev.AttachShader(p.handle, p.fragment.Handle())

	if !p.dev.LinkProgram(p.handle) {
		infoLog := p.dev.ProgramInfoLog(p.handle)
		p.status = LinkFailed
		p.err = fmt.Errorf("%w: %s", ErrLinkFailed, infoLog)
		if debug {
			p.log.Error("program link failed", zap.String("log", infoLog))
		}
		return p.status
	}

	p.status = Linked
	p.log.Debug("program linked", zap.Uint32("handle", uint32(p.handle)))
	return p.status
}

func (p *Program) complete() bool {
	return p.handle != 0 && linkable(p.vertex) && linkable(p.fragment)
}

// linkable reports whether u holds a live compiled object.
func linkable(u *Unit) bool {
	return u != nil && u.Status() == CompileSucceeded && u.Handle() != 0
}

func unitStatus(u *Unit) CompileStatus {
	if u == nil {
		return CompilePending
	}
	return u.Status()
}

// ready reports whether the program is linked and not yet freed.
func (p *Program) ready() bool {
	return p.status == Linked && p.handle != 0
}

// UniformLocation resolves a uniform by exact name. It returns gpu.NotFound
// when the program is not linked or the uniform is absent or inactive.
func (p *Program) UniformLocation(name string) gpu.Location {
	if !p.ready() {
		return gpu.NotFound
	}
	return p.dev.UniformLocation(p.handle, name)
}

// AttributeLocation resolves a vertex attribute by exact name, with the same
// contract as UniformLocation.
func (p *Program) AttributeLocation(name string) gpu.Location {
	if !p.ready() {
		return gpu.NotFound
	}
	return p.dev.AttribLocation(p.handle, name)
}

// Use binds the program for drawing. It reports false, binding nothing,
// when the program is not linked or has been freed.
func (p *Program) Use() bool {
	if !p.ready() {
		return false
	}
	p.dev.UseProgram(p.handle)
	return true
}

// Free releases the vertex unit, the fragment unit and then the program
// object. Safe to call repeatedly and on programs that never linked.
func (p *Program) Free() {
	if p == nil {
		return
	}
	p.vertex.Free()
	p.vertex = nil
	p.fragment.Free()
	p.fragment = nil

	if p.handle != 0 {
		p.dev.DeleteProgram(p.handle)
		p.handle = 0
		p.log.Debug("program freed")
	}
}

// Name returns the diagnostic name.
func (p *Program) Name() string { return p.name }

// Status returns the link status.
func (p *Program) Status() LinkStatus { return p.status }

// Handle returns the GPU program object, or 0 once freed.
func (p *Program) Handle() gpu.Handle { return p.handle }

// Err explains a LinkFailed status. It matches ErrIncompleteProgram or ErrLinkFailed.
func (p *Program) Err() error { return p.err }
