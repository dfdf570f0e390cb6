// Package touch defines the pointer events platforms deliver to the app.
package touch

// Phase is the stage of a touch gesture.
type Phase int

const (
	Began Phase = iota
	Moved
	Ended
)

func (p Phase) String() string {
	switch p {
	case Began:
		return "began"
	case Moved:
		return "moved"
	case Ended:
		return "ended"
	default:
		return "unknown"
	}
}

// Event is one touch sample in drawable pixels, origin top-left.
type Event struct {
	Phase Phase
	X, Y  float32
	Taps  uint
}

// ToPixels converts a position in window points to drawable pixels. On
// HiDPI displays the drawable is larger than the window; a zero window size
// leaves the position unchanged.
func ToPixels(x, y float32, winW, winH, pixW, pixH int) (float32, float32) {
	if winW <= 0 || winH <= 0 {
		return x, y
	}
	return x * float32(pixW) / float32(winW), y * float32(pixH) / float32(winH)
}

// Handler receives touch events.
type Handler interface {
	TouchBegan(x, y float32, taps uint)
	TouchMoved(x, y float32, taps uint)
	TouchEnded(x, y float32, taps uint)
}

// Dispatch routes ev to the handler method for its phase.
func Dispatch(h Handler, ev Event) {
	switch ev.Phase {
	case Began:
		h.TouchBegan(ev.X, ev.Y, ev.Taps)
	case Moved:
		h.TouchMoved(ev.X, ev.Y, ev.Taps)
	case Ended:
		h.TouchEnded(ev.X, ev.Y, ev.Taps)
	}
}
