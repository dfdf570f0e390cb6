// Package transform keeps the projection and modelview matrix stacks the
// frame driver composes into a single modelview-projection uniform.
package transform

import (
	"github.com/Faultbox/quadtemplate/pkg/math"
)

// Mode selects the stack that matrix operations apply to.
type Mode int

const (
	Projection Mode = iota
	Modelview
)

const maxDepth = 32

// Stack holds one matrix stack per mode. Operations post-multiply the top
// of the selected stack, so the last operation applied is the first one a
// vertex sees.
type Stack struct {
	mode   Mode
	stacks [2][]math.Mat4
}

// New returns stacks holding identity matrices, with Modelview selected.
func New() *Stack {
	s := &Stack{mode: Modelview}
	s.stacks[Projection] = []math.Mat4{math.Identity()}
	s.stacks[Modelview] = []math.Mat4{math.Identity()}
	return s
}

// SetMode selects the stack subsequent operations affect.
func (s *Stack) SetMode(m Mode) {
	s.mode = m
}

// Mode returns the selected stack.
func (s *Stack) Mode() Mode {
	return s.mode
}

func (s *Stack) top() *math.Mat4 {
	st := s.stacks[s.mode]
	return &st[len(st)-1]
}

// LoadIdentity resets the top of the selected stack.
func (s *Stack) LoadIdentity() {
	*s.top() = math.Identity()
}

// Load replaces the top of the selected stack.
func (s *Stack) Load(m math.Mat4) {
	*s.top() = m
}

// Multiply post-multiplies the top of the selected stack by m.
func (s *Stack) Multiply(m math.Mat4) {
	t := s.top()
	*t = t.Mul(m)
}

// Ortho2D applies an orthographic projection with depth range [-1, 1].
func (s *Stack) Ortho2D(left, right, bottom, top float32) {
	s.Multiply(math.Ortho2D(left, right, bottom, top))
}

// Translate applies a translation.
func (s *Stack) Translate(x, y, z float32) {
	s.Multiply(math.Translate(x, y, z))
}

// Scale applies a scale.
func (s *Stack) Scale(x, y, z float32) {
	s.Multiply(math.Scale(x, y, z))
}

// Push duplicates the top of the selected stack. It reports false when the
// stack is full.
func (s *Stack) Push() bool {
	st := s.stacks[s.mode]
	if len(st) >= maxDepth {
		return false
	}
	s.stacks[s.mode] = append(st, st[len(st)-1])
	return true
}

// Pop discards the top of the selected stack. The bottom matrix is never
// popped; Pop reports false instead.
func (s *Stack) Pop() bool {
	st := s.stacks[s.mode]
	if len(st) <= 1 {
		return false
	}
	s.stacks[s.mode] = st[:len(st)-1]
	return true
}

// Top returns the current matrix of mode.
func (s *Stack) Top(m Mode) math.Mat4 {
	st := s.stacks[m]
	return st[len(st)-1]
}

// ModelviewProjection returns projection * modelview.
func (s *Stack) ModelviewProjection() math.Mat4 {
	return s.Top(Projection).Mul(s.Top(Modelview))
}
