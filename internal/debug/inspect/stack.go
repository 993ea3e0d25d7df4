package inspect

import (
	"github.com/sourcepawn-tools/remote-debug/internal/debug/protocol"
)

// BuildFrames snapshots iter into wire frames. Native frames carry only a
// function name; scripted frame paths go through resolve to map them onto
// the session's attached display paths.
func BuildFrames(iter FrameIterator, resolve func(string) string) []protocol.StackFrame {
	frames := []protocol.StackFrame{}
	if iter == nil {
		return frames
	}

	for ; !iter.Done(); iter.Next() {
		switch {
		case iter.IsNative():
			frames = append(frames, protocol.StackFrame{
				Function: iter.FunctionName(),
			})
		case iter.IsScripted():
			file := iter.FilePath()
			if resolve != nil {
				file = resolve(file)
			}
			frames = append(frames, protocol.StackFrame{
				Function: iter.FunctionName(),
				File:     file,
				Line:     int32(iter.LineNumber()),
			})
		}
	}
	return frames
}
