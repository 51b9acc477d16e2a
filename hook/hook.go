// Package hook provides global keyboard and mouse events shared by every
// listener in the process.
//
// The OS-level hook is a process-wide singleton, so a single Hub owns it and
// fans events out to independent subscriptions (recorder, trigger listener,
// assignment wizard). Each subscription runs its handler on its own goroutine
// and can be stopped without affecting the others.
package hook

import (
	"errors"
	"time"

	"go.aimuz.me/kzmacro/internal/types"
)

// ErrUnavailable is returned when the OS-level hook cannot be started
// (missing permission, no display server, unsupported platform).
var ErrUnavailable = errors.New("input hook unavailable")

// Kind is the kind of an input event.
type Kind uint8

const (
	KeyPress Kind = iota + 1
	KeyRelease
	MousePress
	MouseRelease
)

func (k Kind) String() string {
	switch k {
	case KeyPress:
		return "key-press"
	case KeyRelease:
		return "key-release"
	case MousePress:
		return "mouse-press"
	case MouseRelease:
		return "mouse-release"
	}
	return "unknown"
}

// Event is a single keyboard or mouse event.
type Event struct {
	Kind Kind
	Name string // Key name ("a", "f1", "space") or mouse button ("left", "x1")
	When time.Time
}

// IsMouse reports whether the event comes from a mouse button.
func (e Event) IsMouse() bool {
	return e.Kind == MousePress || e.Kind == MouseRelease
}

// IsPress reports whether the event is a key or button press.
func (e Event) IsPress() bool {
	return e.Kind == KeyPress || e.Kind == MousePress
}

// Identifier returns the raw identifier used for trigger matching:
// the key name for keys, "Button.<name>" for mouse buttons.
func (e Event) Identifier() string {
	if e.IsMouse() {
		return types.MouseIdentifier(e.Name)
	}
	return e.Name
}

// Source delivers input events to subscribers.
type Source interface {
	// Subscribe registers fn for every event until the returned
	// subscription is stopped. fn runs on a goroutine owned by the
	// subscription, one event at a time.
	Subscribe(fn func(Event)) (Subscription, error)
}

// Subscription is a live registration on a Source.
type Subscription interface {
	// Stop unregisters the handler and waits until it is no longer
	// running. It must not be called from inside the handler itself.
	Stop()
}
