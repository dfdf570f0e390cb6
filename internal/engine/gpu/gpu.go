// Package gpu defines the narrow GPU surface the shader and app packages draw through.
package gpu

import "fmt"

// Handle is an opaque GPU object name. Zero is never a valid object.
type Handle uint32

// Location is a uniform or vertex attribute slot in a linked program.
type Location int32

// NotFound is returned for names the linked program does not expose.
// Every GPU call taking a Location must treat it as a no-op.
const NotFound Location = -1

// Valid reports whether l refers to a real slot.
func (l Location) Valid() bool {
	return l >= 0
}

// Stage identifies a programmable pipeline stage.
type Stage int

const (
	StageVertex Stage = iota
	StageFragment
)

func (s Stage) String() string {
	switch s {
	case StageVertex:
		return "vertex"
	case StageFragment:
		return "fragment"
	default:
		return fmt.Sprintf("stage(%d)", int(s))
	}
}

// ShaderCompiler is the part of a device that owns shader and program objects.
type ShaderCompiler interface {
	// CreateShader allocates a shader object for stage. Returns 0 on failure.
	CreateShader(stage Stage) Handle
	// CompileShader submits source and compiles it, reporting success.
	CompileShader(shader Handle, source string) bool
	ShaderInfoLog(shader Handle) string
	DeleteShader(shader Handle)

	// CreateProgram allocates a program object. Returns 0 on failure.
	CreateProgram() Handle
	AttachShader(program, shader Handle)
	// LinkProgram links the attached shaders, reporting success.
	LinkProgram(program Handle) bool
	ProgramInfoLog(program Handle) string
	DeleteProgram(program Handle)

	UniformLocation(program Handle, name string) Location
	AttribLocation(program Handle, name string) Location
	UseProgram(program Handle)
}

// Device is the full rendering surface used by the frame driver.
type Device interface {
	ShaderCompiler

	Viewport(x, y, width, height int)
	ClearColor(r, g, b, a float32)
	ClearColorBuffer()
	// DisableDepth turns off depth testing and depth writes.
	DisableDepth()

	UniformMatrix4(loc Location, m *[16]float32)
	// VertexAttrib uploads data as a float attribute array of the given
	// component size and enables it at loc.
	VertexAttrib(loc Location, size int, data []float32)
	DrawTriangleStrip(first, count int)

	// ReadPixels returns the RGBA8 contents of a framebuffer rectangle,
	// bottom row first.
	ReadPixels(x, y, width, height int) []byte

	// Err returns the first pending device error, if any.
	Err() error
}
