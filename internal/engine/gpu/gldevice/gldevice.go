// Package gldevice implements gpu.Device on OpenGL 4.1 core.
package gldevice

import (
	"fmt"
	"strings"

	"github.com/go-gl/gl/v4.1-core/gl"
	"go.uber.org/zap"

	"github.com/Faultbox/quadtemplate/internal/engine/gpu"
	"github.com/Faultbox/quadtemplate/internal/logger"
)

// Device draws through the current OpenGL context.
// IMPORTANT: must be created AFTER the context is made current.
type Device struct {
	vao     uint32
	buffers map[gpu.Location]uint32
}

var _ gpu.Device = (*Device)(nil)

// New initializes the GL function pointers and the vertex array state.
func New() (*Device, error) {
	if err := gl.Init(); err != nil {
		return nil, fmt.Errorf("failed to initialize OpenGL: %w", err)
	}

	logger.Info("OpenGL initialized",
		zap.String("version", gl.GoStr(gl.GetString(gl.VERSION))),
		zap.String("renderer", gl.GoStr(gl.GetString(gl.RENDERER))),
		zap.String("glsl", gl.GoStr(gl.GetString(gl.SHADING_LANGUAGE_VERSION))),
	)

	// Core profile refuses attribute pointers without a bound VAO.
	d := &Device{buffers: make(map[gpu.Location]uint32)}
	gl.GenVertexArrays(1, &d.vao)
	gl.BindVertexArray(d.vao)

	return d, nil
}

// Close releases the vertex array and attribute buffers.
func (d *Device) Close() {
	for loc, vbo := range d.buffers {
		gl.DeleteBuffers(1, &vbo)
		delete(d.buffers, loc)
	}
	if d.vao != 0 {
		gl.BindVertexArray(0)
		gl.DeleteVertexArrays(1, &d.vao)
		d.vao = 0
	}
}

func stageEnum(stage gpu.Stage) uint32 {
	if stage == gpu.StageFragment {
		return gl.FRAGMENT_SHADER
	}
	return gl.VERTEX_SHADER
}

func (d *Device) CreateShader(stage gpu.Stage) gpu.Handle {
	return gpu.Handle(gl.CreateShader(stageEnum(stage)))
}

func (d *Device) CompileShader(shader gpu.Handle, source string) bool {
	csource, free := gl.Strs(source + "\x00")
	gl.ShaderSource(uint32(shader), 1, csource, nil)
	free()
	gl.CompileShader(uint32(shader))

	var status int32
	gl.GetShaderiv(uint32(shader), gl.COMPILE_STATUS, &status)
	return status != gl.FALSE
}

func (d *Device) ShaderInfoLog(shader gpu.Handle) string {
	var logLen int32
	gl.GetShaderiv(uint32(shader), gl.INFO_LOG_LENGTH, &logLen)
	if logLen <= 0 {
		return ""
	}
	log := make([]byte, logLen)
	gl.GetShaderInfoLog(uint32(shader), logLen, nil, &log[0])
	return strings.TrimRight(string(log), "\x00\n")
}

func (d *Device) DeleteShader(shader gpu.Handle) {
	gl.DeleteShader(uint32(shader))
}

func (d *Device) CreateProgram() gpu.Handle {
	return gpu.Handle(gl.CreateProgram())
}

func (d *Device) AttachShader(program, shader gpu.Handle) {
	gl.AttachShader(uint32(program), uint32(shader))
}

func (d *Device) LinkProgram(program gpu.Handle) bool {
	gl.LinkProgram(uint32(program))

	var status int32
	gl.GetProgramiv(uint32(program), gl.LINK_STATUS, &status)
	return status != gl.FALSE
}

func (d *Device) ProgramInfoLog(program gpu.Handle) string {
	var logLen int32
	gl.GetProgramiv(uint32(program), gl.INFO_LOG_LENGTH, &logLen)
	if logLen <= 0 {
		return ""
	}
	log := make([]byte, logLen)
	gl.GetProgramInfoLog(uint32(program), logLen, nil, &log[0])
	return strings.TrimRight(string(log), "\x00\n")
}

func (d *Device) DeleteProgram(program gpu.Handle) {
	gl.DeleteProgram(uint32(program))
}

func (d *Device) UniformLocation(program gpu.Handle, name string) gpu.Location {
	return gpu.Location(gl.GetUniformLocation(uint32(program), gl.Str(name+"\x00")))
}

func (d *Device) AttribLocation(program gpu.Handle, name string) gpu.Location {
	return gpu.Location(gl.GetAttribLocation(uint32(program), gl.Str(name+"\x00")))
}

func (d *Device) UseProgram(program gpu.Handle) {
	gl.UseProgram(uint32(program))
}

func (d *Device) Viewport(x, y, width, height int) {
	gl.Viewport(int32(x), int32(y), int32(width), int32(height))
}

func (d *Device) ClearColor(r, g, b, a float32) {
	gl.ClearColor(r, g, b, a)
}

func (d *Device) ClearColorBuffer() {
	gl.Clear(gl.COLOR_BUFFER_BIT)
}

func (d *Device) DisableDepth() {
	gl.Disable(gl.DEPTH_TEST)
	gl.DepthMask(false)
}

func (d *Device) UniformMatrix4(loc gpu.Location, m *[16]float32) {
	if !loc.Valid() {
		return
	}
	gl.UniformMatrix4fv(int32(loc), 1, false, &m[0])
}

func (d *Device) VertexAttrib(loc gpu.Location, size int, data []float32) {
	if !loc.Valid() || len(data) == 0 {
		return
	}

	vbo, ok := d.buffers[loc]
	if !ok {
		gl.GenBuffers(1, &vbo)
		d.buffers[loc] = vbo
	}

	gl.BindBuffer(gl.ARRAY_BUFFER, vbo)
	gl.BufferData(gl.ARRAY_BUFFER, len(data)*4, gl.Ptr(data), gl.STREAM_DRAW)
	gl.EnableVertexAttribArray(uint32(loc))
	gl.VertexAttribPointerWithOffset(uint32(loc), int32(size), gl.FLOAT, false, 0, 0)
	gl.BindBuffer(gl.ARRAY_BUFFER, 0)
}

func (d *Device) DrawTriangleStrip(first, count int) {
	gl.DrawArrays(gl.TRIANGLE_STRIP, int32(first), int32(count))
}

func (d *Device) ReadPixels(x, y, width, height int) []byte {
	if width <= 0 || height <= 0 {
		return nil
	}
	pixels := make([]byte, width*height*4)
	gl.PixelStorei(gl.PACK_ALIGNMENT, 1)
	gl.ReadPixels(int32(x), int32(y), int32(width), int32(height), gl.RGBA, gl.UNSIGNED_BYTE, gl.Ptr(pixels))
	return pixels
}

// Err drains the GL error queue and reports the first code.
func (d *Device) Err() error {
	first := gl.GetError()
	if first == gl.NO_ERROR {
		return nil
	}
	for gl.GetError() != gl.NO_ERROR {
	}
	return fmt.Errorf("gl error 0x%04x", first)
}
