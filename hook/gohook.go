package hook

import (
	gohook "github.com/robotn/gohook"
)

// gohookBackend drives the process-wide gohook hook.
type gohookBackend struct{}

func (gohookBackend) start() <-chan gohook.Event { return gohook.Start() }
func (gohookBackend) end()                      { gohook.End() }

// Mouse button numbers as reported by the hook.
var buttonNames = map[uint16]string{
	1: "left",
	2: "right",
	3: "middle",
	4: "x1",
	5: "x2",
}

// fromHook converts a gohook event. Only physical presses and releases are
// kept. gohook's Kind values are libuiohook event ids, so KeyDown and
// MouseDown are the presses, KeyUp and MouseHold the releases, while KeyHold
// (typed) and MouseUp (clicked) are synthesized and dropped.
func fromHook(ev gohook.Event) (Event, bool) {
	var out Event
	switch ev.Kind {
	case gohook.KeyDown:
		out.Kind = KeyPress
	case gohook.KeyUp:
		out.Kind = KeyRelease
	case gohook.MouseDown:
		out.Kind = MousePress
	case gohook.MouseHold:
		out.Kind = MouseRelease
	default:
		return Event{}, false
	}

	if out.IsMouse() {
		name, ok := buttonNames[ev.Button]
		if !ok {
			return Event{}, false
		}
		out.Name = name
	} else {
		out.Name = keyName(ev.Keycode)
	}
	out.When = ev.When
	return out, true
}
