// Package gputest provides a resource-accounting gpu.Device for tests.
//
// The fake "compiles" GLSL by checking the source is structurally sound
// (a main function, balanced brackets, no #error directive) and collects
// uniform and vertex input declarations so linked programs can answer
// location queries the way a driver would.
package gputest

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/Faultbox/quadtemplate/internal/engine/gpu"
)

type objectKind int

const (
	kindShader objectKind = iota
	kindProgram
)

type object struct {
	kind   objectKind
	stage  gpu.Stage
	log    string
	ok     bool
	source string

	// program only
	attached   []gpu.Handle
	uniforms   map[string]gpu.Location
	attributes map[string]gpu.Location
}

// Draw records one DrawTriangleStrip call.
type Draw struct {
	Program gpu.Handle
	First   int
	Count   int
}

// Device is an in-memory gpu.Device. Not safe for concurrent use.
type Device struct {
	// RejectLink makes every LinkProgram call fail.
	RejectLink bool
	// FailCreate makes CreateShader and CreateProgram return 0.
	FailCreate bool
	// PendingErr is returned once by the next Err call.
	PendingErr error

	next    gpu.Handle
	objects map[gpu.Handle]*object
	calls   []string
	misuse  []string

	created int
	deleted int

	compiles int
	links    int

	current    gpu.Handle
	viewport   [4]int
	clearColor [4]float32
	clears     int
	depthOff   bool
	matrices   map[gpu.Location][16]float32
	attribs    map[gpu.Location][]float32
	draws      []Draw
	notFound   int
}

var _ gpu.Device = (*Device)(nil)

// New returns an empty device.
func New() *Device {
	return &Device{
		objects:  make(map[gpu.Handle]*object),
		matrices: make(map[gpu.Location][16]float32),
		attribs:  make(map[gpu.Location][]float32),
	}
}

func (d *Device) record(format string, args ...any) {
	d.calls = append(d.calls, fmt.Sprintf(format, args...))
}

func (d *Device) misused(format string, args ...any) {
	d.misuse = append(d.misuse, fmt.Sprintf(format, args...))
}

func (d *Device) alloc(o *object) gpu.Handle {
	if d.FailCreate {
		return 0
	}
	d.next++
	d.objects[d.next] = o
	d.created++
	return d.next
}

func (d *Device) lookup(h gpu.Handle, kind objectKind, op string) *object {
	o, ok := d.objects[h]
	if !ok || o.kind != kind {
		d.misused("%s on invalid handle %d", op, h)
		return nil
	}
	return o
}

func (d *Device) CreateShader(stage gpu.Stage) gpu.Handle {
	h := d.alloc(&object{kind: kindShader, stage: stage})
	d.record("CreateShader %s -> %d", stage, h)
	return h
}

func (d *Device) CompileShader(shader gpu.Handle, source string) bool {
	d.record("CompileShader %d", shader)
	d.compiles++
	o := d.lookup(shader, kindShader, "CompileShader")
	if o == nil {
		return false
	}
	o.source = source
	o.log = check(source)
	o.ok = o.log == ""
	return o.ok
}

func (d *Device) ShaderInfoLog(shader gpu.Handle) string {
	if o := d.lookup(shader, kindShader, "ShaderInfoLog"); o != nil {
		return o.log
	}
	return ""
}

func (d *Device) DeleteShader(shader gpu.Handle) {
	d.record("DeleteShader %d", shader)
	if d.lookup(shader, kindShader, "DeleteShader") == nil {
		return
	}
	delete(d.objects, shader)
	d.deleted++
}

func (d *Device) CreateProgram() gpu.Handle {
	h := d.alloc(&object{kind: kindProgram})
	d.record("CreateProgram -> %d", h)
	return h
}

func (d *Device) AttachShader(program, shader gpu.Handle) {
	d.record("AttachShader %d %d", program, shader)
	p := d.lookup(program, kindProgram, "AttachShader")
	s := d.lookup(shader, kindShader, "AttachShader")
	if p == nil || s == nil {
		return
	}
	p.attached = append(p.attached, shader)
}

func (d *Device) LinkProgram(program gpu.Handle) bool {
	d.record("LinkProgram %d", program)
	d.links++
	p := d.lookup(program, kindProgram, "LinkProgram")
	if p == nil {
		return false
	}

	var vertex, fragment *object
	for _, h := range p.attached {
		s, ok := d.objects[h]
		if !ok || !s.ok {
			p.log = fmt.Sprintf("ERROR: shader %d is not compiled", h)
			return false
		}
		switch s.stage {
		case gpu.StageVertex:
			vertex = s
		case gpu.StageFragment:
			fragment = s
		}
	}

	switch {
	case d.RejectLink:
		p.log = "ERROR: Linking failed."
		return false
	case vertex == nil:
		p.log = "ERROR: no vertex shader attached"
		return false
	case fragment == nil:
		p.log = "ERROR: no fragment shader attached"
		return false
	}

	p.uniforms = make(map[string]gpu.Location)
	for _, src := range []string{vertex.source, fragment.source} {
		for _, name := range declared(src, "uniform") {
			if _, ok := p.uniforms[name]; !ok {
				p.uniforms[name] = gpu.Location(len(p.uniforms))
			}
		}
	}
	p.attributes = make(map[string]gpu.Location)
	for _, name := range append(declared(vertex.source, "attribute"), declared(vertex.source, "in")...) {
		if _, ok := p.attributes[name]; !ok {
			p.attributes[name] = gpu.Location(len(p.attributes))
		}
	}
	p.ok = true
	p.log = ""
	return true
}

func (d *Device) ProgramInfoLog(program gpu.Handle) string {
	if p := d.lookup(program, kindProgram, "ProgramInfoLog"); p != nil {
		return p.log
	}
	return ""
}

func (d *Device) DeleteProgram(program gpu.Handle) {
	d.record("DeleteProgram %d", program)
	if d.lookup(program, kindProgram, "DeleteProgram") == nil {
		return
	}
	delete(d.objects, program)
	d.deleted++
	if d.current == program {
		d.current = 0
	}
}

func (d *Device) location(program gpu.Handle, name string, attribute bool) gpu.Location {
	p := d.lookup(program, kindProgram, "location query")
	if p == nil || !p.ok {
		return gpu.NotFound
	}
	table := p.uniforms
	if attribute {
		table = p.attributes
	}
	if loc, ok := table[name]; ok {
		return loc
	}
	return gpu.NotFound
}

func (d *Device) UniformLocation(program gpu.Handle, name string) gpu.Location {
	return d.location(program, name, false)
}

func (d *Device) AttribLocation(program gpu.Handle, name string) gpu.Location {
	return d.location(program, name, true)
}

func (d *Device) UseProgram(program gpu.Handle) {
	d.record("UseProgram %d", program)
	if program != 0 && d.lookup(program, kindProgram, "UseProgram") == nil {
		return
	}
	d.current = program
}

func (d *Device) Viewport(x, y, width, height int) {
	d.viewport = [4]int{x, y, width, height}
}

func (d *Device) ClearColor(r, g, b, a float32) {
	d.clearColor = [4]float32{r, g, b, a}
}

func (d *Device) ClearColorBuffer() {
	d.clears++
}

func (d *Device) DisableDepth() {
	d.depthOff = true
}

func (d *Device) UniformMatrix4(loc gpu.Location, m *[16]float32) {
	if !loc.Valid() {
		d.notFound++
		return
	}
	if d.current == 0 {
		d.misused("UniformMatrix4 with no program bound")
		return
	}
	d.matrices[loc] = *m
}

func (d *Device) VertexAttrib(loc gpu.Location, size int, data []float32) {
	if !loc.Valid() {
		d.notFound++
		return
	}
	if size <= 0 || len(data)%size != 0 {
		d.misused("VertexAttrib size %d does not divide %d values", size, len(data))
		return
	}
	d.attribs[loc] = append([]float32(nil), data...)
}

func (d *Device) DrawTriangleStrip(first, count int) {
	if d.current == 0 {
		d.misused("DrawTriangleStrip with no program bound")
		return
	}
	d.draws = append(d.draws, Draw{Program: d.current, First: first, Count: count})
}

// ReadPixels returns the rectangle filled with the last clear color, or
// zeroes if the buffer was never cleared.
func (d *Device) ReadPixels(x, y, width, height int) []byte {
	if width <= 0 || height <= 0 {
		return nil
	}
	pixels := make([]byte, width*height*4)
	if d.clears == 0 {
		return pixels
	}
	var px [4]byte
	for i, c := range d.clearColor {
		px[i] = byte(c*255 + 0.5)
	}
	for i := 0; i < len(pixels); i += 4 {
		copy(pixels[i:i+4], px[:])
	}
	return pixels
}

func (d *Device) Err() error {
	err := d.PendingErr
	d.PendingErr = nil
	return err
}

// Live is the number of shader and program objects not yet deleted.
func (d *Device) Live() int { return len(d.objects) }

// Created is the number of objects ever allocated.
func (d *Device) Created() int { return d.created }

// Deleted is the number of objects released.
func (d *Device) Deleted() int { return d.deleted }

// Compiles is the number of CompileShader calls.
func (d *Device) Compiles() int { return d.compiles }

// Links is the number of LinkProgram calls.
func (d *Device) Links() int { return d.links }

// Calls returns the journal of object lifecycle calls in order.
func (d *Device) Calls() []string { return append([]string(nil), d.calls...) }

// Misuse lists calls made against invalid handles or unbound state.
func (d *Device) Misuse() []string { return append([]string(nil), d.misuse...) }

// NotFoundUses counts GPU calls that received gpu.NotFound and were ignored.
func (d *Device) NotFoundUses() int { return d.notFound }

// ViewportRect returns the last viewport rectangle.
func (d *Device) ViewportRect() [4]int { return d.viewport }

// ClearColorValue returns the last clear color.
func (d *Device) ClearColorValue() [4]float32 { return d.clearColor }

// Clears counts color buffer clears.
func (d *Device) Clears() int { return d.clears }

// DepthDisabled reports whether DisableDepth was called.
func (d *Device) DepthDisabled() bool { return d.depthOff }

// Matrix returns the last matrix uploaded at loc.
func (d *Device) Matrix(loc gpu.Location) ([16]float32, bool) {
	m, ok := d.matrices[loc]
	return m, ok
}

// Attrib returns the last data uploaded at loc.
func (d *Device) Attrib(loc gpu.Location) ([]float32, bool) {
	a, ok := d.attribs[loc]
	return a, ok
}

// Draws returns every recorded draw call.
func (d *Device) Draws() []Draw { return append([]Draw(nil), d.draws...) }

var (
	errorDirective = regexp.MustCompile(`(?m)^\s*#error\b(.*)$`)
	mainFunc       = regexp.MustCompile(`\bvoid\s+main\s*\(\s*(void)?\s*\)`)
)

// check returns a driver-style info log, empty when source compiles.
func check(source string) string {
	if strings.TrimSpace(source) == "" {
		return "ERROR: 0:1: empty shader source"
	}
	if m := errorDirective.FindStringSubmatch(source); m != nil {
		return fmt.Sprintf("ERROR: 0:%d: '#error' :%s", lineOf(source, m[0]), m[1])
	}

	pairs := map[rune]rune{'}': '{', ')': '(', ']': '['}
	var stack []rune
	line := 1
	for _, r := range source {
		switch r {
		case '\n':
			line++
		case '{', '(', '[':
			stack = append(stack, r)
		case '}', ')', ']':
			if len(stack) == 0 || stack[len(stack)-1] != pairs[r] {
				return fmt.Sprintf("ERROR: 0:%d: '%c' : syntax error", line, r)
			}
			stack = stack[:len(stack)-1]
		}
	}
	if len(stack) > 0 {
		return fmt.Sprintf("ERROR: 0:%d: '%c' : unexpected end of file", line, stack[len(stack)-1])
	}

	if !mainFunc.MatchString(source) {
		return "ERROR: 0:1: 'main' : function not found"
	}
	return ""
}

func lineOf(source, fragment string) int {
	i := strings.Index(source, fragment)
	if i < 0 {
		return 1
	}
	return strings.Count(source[:i], "\n") + 1
}

// declared returns names declared at global scope with the given qualifier,
// e.g. "uniform mat4 MVP;" or "layout(location = 0) in vec2 POSITION;".
func declared(source, qualifier string) []string {
	re := regexp.MustCompile(`(?m)^\s*(?:layout\s*\([^)]*\)\s*)?(?:(?:highp|mediump|lowp)\s+)?` +
		qualifier + `\s+(?:(?:highp|mediump|lowp)\s+)?\w+\s+(\w+)\s*(?:\[[^\]]*\])?\s*;`)
	var names []string
	for _, m := range re.FindAllStringSubmatch(source, -1) {
		names = append(names, m[1])
	}
	return names
}
