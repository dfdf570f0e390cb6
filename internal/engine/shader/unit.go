// Package shader manages the lifecycle of GPU shader stages and linked programs.
//
// Nothing in this package panics or returns early errors on GPU rejection:
// compile and link report a status, and the caller decides whether a failure
// is fatal. Every GPU object acquired here is released exactly once by Free.
package shader

import (
	"errors"

	"go.uber.org/zap"

	"github.com/Faultbox/quadtemplate/internal/engine/gpu"
	"github.com/Faultbox/quadtemplate/internal/logger"
)

// ErrCompileFailed is reported for a stage the GPU compiler rejected.
var ErrCompileFailed = errors.New("shader compile failed")

// CompileStatus is the outcome of compiling a Unit.
type CompileStatus int

const (
	CompilePending CompileStatus = iota
	CompileSucceeded
	CompileFailed
	// CompileReleased is a unit whose compiled object was freed.
	CompileReleased
)

func (s CompileStatus) String() string {
	switch s {
	case CompilePending:
		return "pending"
	case CompileSucceeded:
		return "succeeded"
	case CompileFailed:
		return "failed"
	case CompileReleased:
		return "released"
	default:
		return "unknown"
	}
}

// Unit is one compiled shader stage. The GPU handle is non-zero exactly
// while the status is CompileSucceeded; Free moves a compiled unit to
// CompileReleased.
type Unit struct {
	dev     gpu.ShaderCompiler
	log     *zap.Logger
	stage   gpu.Stage
	handle  gpu.Handle
	status  CompileStatus
	infoLog string
}

// NewUnit returns an empty, pending unit bound to stage.
func NewUnit(dev gpu.ShaderCompiler, stage gpu.Stage, opts ...Option) *Unit {
	o := applyOptions(opts)
	return &Unit{dev: dev, log: o.log, stage: stage}
}

// Compile submits source to the GPU compiler. It runs at most once; later
// calls return the existing status. With debug set, a rejected source has
// its compiler log written to the logger.
func (u *Unit) Compile(source string, debug bool) CompileStatus {
	if u.status != CompilePending {
		return u.status
	}

	if source == "" {
		u.status = CompileFailed
		u.infoLog = "empty source"
		if debug {
			u.log.Error("shader compile failed",
				zap.Stringer("stage", u.stage),
				zap.String("log", u.infoLog),
			)
		}
		return u.status
	}

	h := u.dev.CreateShader(u.stage)
	if h == 0 {
		u.status = CompileFailed
		u.infoLog = "could not allocate shader object"
		u.log.Error("shader allocation failed", zap.Stringer("stage", u.stage))
		return u.status
	}

	if !u.dev.CompileShader(h, source) {
		u.infoLog = u.dev.ShaderInfoLog(h)
		u.dev.DeleteShader(h)
		u.status = CompileFailed
		if debug {
			u.log.Error("shader compile failed",
				zap.Stringer("stage", u.stage),
				zap.String("log", u.infoLog),
			)
		}
		return u.status
	}

	u.handle = h
	u.status = CompileSucceeded
	u.log.Debug("shader compiled",
		zap.Stringer("stage", u.stage),
		zap.Uint32("handle", uint32(h)),
	)
	return u.status
}

// Free releases the GPU shader object. Safe to call repeatedly and on units
// that never compiled. A freed unit can no longer be linked.
func (u *Unit) Free() {
	if u == nil || u.handle == 0 {
		return
	}
	u.dev.DeleteShader(u.handle)
	u.handle = 0
	u.status = CompileReleased
}

// Stage returns the pipeline stage the unit was created for.
func (u *Unit) Stage() gpu.Stage { return u.stage }

// Status returns the compile status.
func (u *Unit) Status() CompileStatus { return u.status }

// Handle returns the compiled shader object, or 0.
func (u *Unit) Handle() gpu.Handle { return u.handle }

// InfoLog returns the compiler diagnostics of a failed compile.
func (u *Unit) InfoLog() string { return u.infoLog }

// Err returns ErrCompileFailed for a failed unit, nil otherwise.
func (u *Unit) Err() error {
	if u.status == CompileFailed {
		return ErrCompileFailed
	}
	return nil
}

// Option configures units and programs.
type Option func(*options)

type options struct {
	log *zap.Logger
}

// WithLogger routes diagnostics to l instead of the global logger.
func WithLogger(l *zap.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.log = l
		}
	}
}

func applyOptions(opts []Option) options {
	o := options{log: logger.L()}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}
