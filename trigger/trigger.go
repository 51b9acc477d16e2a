// Package trigger watches the global input stream for the key or mouse
// button bound to the active profile.
package trigger

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"go.aimuz.me/kzmacro/hook"
	"go.aimuz.me/kzmacro/internal/types"
)

// ErrListenerUnavailable is returned by Rebind when the hook cannot be
// subscribed to. The listener is left unbound.
var ErrListenerUnavailable = errors.New("trigger listener unavailable")

// releaseSuffix marks a trigger that fires on release instead of press.
const releaseSuffix = " Up"

// Listener fires a callback when its bound trigger is pressed. At most one
// binding is active at a time.
type Listener struct {
	src       hook.Source
	onTrigger func(types.TriggerSpec)

	mu   sync.Mutex
	spec *types.TriggerSpec
	sub  hook.Subscription
}

// New creates an unbound listener. onTrigger runs on the hook subscription
// goroutine and should return quickly.
func New(src hook.Source, onTrigger func(types.TriggerSpec)) *Listener {
	return &Listener{src: src, onTrigger: onTrigger}
}

// Rebind replaces the current binding. The previous subscription is fully
// stopped before the new one starts, so two bindings never run at once.
// A nil spec leaves the listener unbound.
func (l *Listener) Rebind(spec *types.TriggerSpec) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.sub != nil {
		l.sub.Stop()
		l.sub = nil
	}
	l.spec = nil

	if spec == nil || spec.Raw == "" {
		slog.Debug("trigger unbound")
		return nil
	}

	bound := *spec
	m := newMatcher(bound.Raw)
	sub, err := l.src.Subscribe(func(ev hook.Event) {
		if m.match(ev) && l.onTrigger != nil {
			l.onTrigger(bound)
		}
	})
	if err != nil {
		return fmt.Errorf("%w: %w", ErrListenerUnavailable, err)
	}

	l.sub = sub
	l.spec = &bound
	slog.Info("trigger bound", "trigger", bound.Raw)
	return nil
}

// Spec returns a copy of the bound trigger, or nil.
func (l *Listener) Spec() *types.TriggerSpec {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.spec == nil {
		return nil
	}
	s := *l.spec
	return &s
}

// Close stops listening.
func (l *Listener) Close() {
	_ = l.Rebind(nil)
}

// matcher decides which events fire a trigger. It is owned by a single
// subscription goroutine.
type matcher struct {
	id        string
	onRelease bool
	held      bool
}

func newMatcher(raw string) *matcher {
	if id, ok := strings.CutSuffix(raw, releaseSuffix); ok {
		return &matcher{id: id, onRelease: true}
	}
	return &matcher{id: raw}
}

// match reports whether ev fires the trigger. Auto-repeat presses are
// collapsed so one physical press fires once.
func (m *matcher) match(ev hook.Event) bool {
	if ev.Identifier() != m.id {
		return false
	}

	if ev.IsPress() {
		first := !m.held
		m.held = true
		return first && !m.onRelease
	}

	m.held = false
	return m.onRelease
}
