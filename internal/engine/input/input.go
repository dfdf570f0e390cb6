// Package input turns platform events into application events.
package input

import (
	"github.com/veandco/go-sdl2/sdl"

	"github.com/Faultbox/quadtemplate/internal/engine/touch"
)

// EventType identifies what an Event carries.
type EventType int

const (
	EventNone EventType = iota
	EventQuit
	EventWindowResize
	EventTouch
	EventReload
	EventScreenshot
)

// Event is a platform-neutral input event.
type Event struct {
	Type   EventType
	Width  int
	Height int
	Touch  touch.Event
}

const (
	// touchMouseID is SDL_TOUCH_MOUSEID, the device of mouse events synthesized from touches.
	touchMouseID = 0xFFFFFFFF
	// leftButtonMask is SDL_BUTTON_LMASK.
	leftButtonMask = 1
)

// Input polls SDL2 events for one window.
type Input struct {
	window *sdl.Window
	events []Event

	// Touch-capable devices also synthesize mouse events; this keeps
	// one gesture from being reported twice.
	fingerDown bool
}

// New creates an SDL2 input handler for window. Sizes and positions in
// the events it produces are drawable pixels.
func New(window *sdl.Window) *Input {
	return &Input{
		window: window,
		events: make([]Event, 0, 16),
	}
}

func (i *Input) drawableSize() (int, int) {
	w, h := i.window.GLGetDrawableSize()
	return int(w), int(h)
}

// pixels converts a mouse position in window points to drawable pixels.
func (i *Input) pixels(x, y int32) (float32, float32) {
	winW, winH := i.window.GetSize()
	pixW, pixH := i.drawableSize()
	return touch.ToPixels(float32(x), float32(y), int(winW), int(winH), pixW, pixH)
}

// Update polls SDL events and converts them to app events.
// Returns true if the app should quit.
func (i *Input) Update() bool {
	i.events = i.events[:0]

	for event := sdl.PollEvent(); event != nil; event = sdl.PollEvent() {
		switch e := event.(type) {
		case *sdl.QuitEvent:
			i.events = append(i.events, Event{Type: EventQuit})
			return true

		case *sdl.WindowEvent:
			if e.Event == sdl.WINDOWEVENT_RESIZED || e.Event == sdl.WINDOWEVENT_SIZE_CHANGED {
				// Data1/Data2 are in points; the viewport needs pixels.
				width, height := i.drawableSize()
				i.events = append(i.events, Event{
					Type:   EventWindowResize,
					Width:  width,
					Height: height,
				})
			}

		case *sdl.KeyboardEvent:
			if e.Type != sdl.KEYDOWN || e.Repeat != 0 {
				break
			}
			switch e.Keysym.Scancode {
			case sdl.SCANCODE_ESCAPE:
				i.events = append(i.events, Event{Type: EventQuit})
				return true
			case sdl.SCANCODE_F5:
				i.events = append(i.events, Event{Type: EventReload})
			case sdl.SCANCODE_F12:
				i.events = append(i.events, Event{Type: EventScreenshot})
			}

		case *sdl.MouseButtonEvent:
			if e.Button != sdl.BUTTON_LEFT || e.Which == touchMouseID || i.fingerDown {
				break
			}
			phase := touch.Began
			if e.Type == sdl.MOUSEBUTTONUP {
				phase = touch.Ended
			}
			x, y := i.pixels(e.X, e.Y)
			i.touch(phase, x, y, uint(e.Clicks))

		case *sdl.MouseMotionEvent:
			if e.State&leftButtonMask == 0 || e.Which == touchMouseID || i.fingerDown {
				break
			}
			x, y := i.pixels(e.X, e.Y)
			i.touch(touch.Moved, x, y, 1)

		case *sdl.TouchFingerEvent:
			// Finger coordinates are normalized to [0, 1].
			width, height := i.drawableSize()
			x := e.X * float32(width)
			y := e.Y * float32(height)
			switch e.Type {
			case sdl.FINGERDOWN:
				i.fingerDown = true
				i.touch(touch.Began, x, y, 1)
			case sdl.FINGERMOTION:
				i.touch(touch.Moved, x, y, 1)
			case sdl.FINGERUP:
				i.fingerDown = false
				i.touch(touch.Ended, x, y, 1)
			}
		}
	}

	return false
}

func (i *Input) touch(phase touch.Phase, x, y float32, taps uint) {
	i.events = append(i.events, Event{
		Type:  EventTouch,
		Touch: touch.Event{Phase: phase, X: x, Y: y, Taps: taps},
	})
}

// Events returns the events from the last Update.
func (i *Input) Events() []Event {
	return i.events
}
