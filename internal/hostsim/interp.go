package hostsim

import (
	"context"
	"sync"
	"time"

	"github.com/sourcepawn-tools/remote-debug/internal/debug/inspect"
)

// Step is one executed source line of the simulated script.
type Step struct {
	Func  string
	Line  int
	Depth int
	// Error, when set, raises an uncaught script error at this step
	// instead of the line hook.
	Error string
}

// BreakFunc is invoked at every executed line. Returning false aborts the
// run, mirroring a debugger that declared the context dead.
type BreakFunc func(cip, frm uint32) bool

// ErrorFunc is invoked for uncaught script errors with the stack at the
// point of failure.
type ErrorFunc func(report inspect.ErrorReport, frames inspect.FrameIterator)

// Interp replays a fixed step sequence through the debug hooks, maintaining
// a plausible call stack and frame pointer as the depth changes.
type Interp struct {
	image   *Image
	steps   []Step
	pace    time.Duration
	breakFn BreakFunc
	errorFn ErrorFunc

	base uint32

	// The stack is read by stopped-session inspection on the network
	// goroutine while stepping states keep this goroutine running.
	mu    sync.Mutex
	stack []Frame
}

// frameSpan is how far the frame pointer moves per call. Stacks grow down.
const frameSpan = 0x40

// NewInterp creates an interpreter over image replaying steps.
func NewInterp(image *Image, steps []Step) *Interp {
	in := &Interp{
		image: image,
		steps: steps,
		base:  0x8000,
	}
	image.SetFrames(func() inspect.FrameIterator { return in.snapshot() })
	return in
}

// SetPace inserts a delay between steps so a human can drive a client
// against the simulation.
func (in *Interp) SetPace(d time.Duration) {
	in.pace = d
}

// OnBreak installs the line hook.
func (in *Interp) OnBreak(fn BreakFunc) {
	in.breakFn = fn
}

// OnError installs the uncaught-error hook.
func (in *Interp) OnError(fn ErrorFunc) {
	in.errorFn = fn
}

// Frame pointer for the current depth.
func (in *Interp) frm() uint32 {
	in.mu.Lock()
	defer in.mu.Unlock()
	return in.base - uint32(len(in.stack))*frameSpan
}

// snapshot returns the current stack innermost first.
func (in *Interp) snapshot() *FrameIter {
	in.mu.Lock()
	defer in.mu.Unlock()
	frames := make([]Frame, len(in.stack))
	for i, f := range in.stack {
		frames[len(in.stack)-1-i] = f
	}
	return &FrameIter{Stack: frames}
}

// Run replays every step or stops early when ctx is cancelled or the break
// hook asks for abandonment.
func (in *Interp) Run(ctx context.Context) {
	for _, step := range in.steps {
		if ctx.Err() != nil {
			return
		}
		in.adjustStack(step)

		if step.Error != "" {
			if in.errorFn != nil {
				in.errorFn(Report{Text: step.Error}, in.snapshot())
			}
			continue
		}
		if in.breakFn != nil {
			if !in.breakFn(LineAddr(step.Line), in.frm()) {
				return
			}
		}
		if in.pace > 0 {
			select {
			case <-time.After(in.pace):
			case <-ctx.Done():
				return
			}
		}
	}
}

func (in *Interp) adjustStack(step Step) {
	in.mu.Lock()
	defer in.mu.Unlock()
	depth := step.Depth + 1
	for len(in.stack) > depth {
		in.stack = in.stack[:len(in.stack)-1]
	}
	for len(in.stack) < depth {
		in.stack = append(in.stack, Frame{File: in.image.File})
	}
	top := &in.stack[len(in.stack)-1]
	top.Function = step.Func
	top.File = in.image.File
	top.Line = step.Line
}
