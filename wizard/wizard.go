// Package wizard captures the next key or mouse button press and turns it
// into a trigger binding.
package wizard

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"go.aimuz.me/kzmacro/hook"
	"go.aimuz.me/kzmacro/internal/types"
)

// Sentinel errors.
var (
	// ErrActive is returned when a wizard is already waiting for input.
	ErrActive = errors.New("assignment already in progress")
	// ErrUnavailable is returned when the hook cannot be subscribed to.
	ErrUnavailable = errors.New("assignment listener unavailable")
)

// Wizard listens for exactly one press per Begin.
type Wizard struct {
	src hook.Source

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// New creates an idle wizard.
func New(src hook.Source) *Wizard {
	return &Wizard{src: src}
}

// Active reports whether the wizard is waiting for input.
func (w *Wizard) Active() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.cancel != nil
}

// Begin starts waiting for the next key press or mouse button press. When
// one arrives the wizard stops listening and calls onCaptured with the
// derived trigger. Cancelling ctx or calling Cancel ends the wizard without
// calling onCaptured.
func (w *Wizard) Begin(ctx context.Context, onCaptured func(types.TriggerSpec)) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.cancel != nil {
		return ErrActive
	}

	captured := make(chan hook.Event, 1)
	sub, err := w.src.Subscribe(func(ev hook.Event) {
		if !ev.IsPress() {
			return
		}
		select {
		case captured <- ev:
		default:
		}
	})
	if err != nil {
		return fmt.Errorf("%w: %w", ErrUnavailable, err)
	}

	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	w.cancel = cancel
	w.done = done

	go w.wait(ctx, sub, captured, done, onCaptured)
	slog.Info("waiting for trigger key or mouse button")
	return nil
}

func (w *Wizard) wait(ctx context.Context, sub hook.Subscription, captured <-chan hook.Event, done chan struct{}, onCaptured func(types.TriggerSpec)) {
	defer close(done)

	var (
		ev hook.Event
		ok bool
	)
	select {
	case ev = <-captured:
		ok = true
	case <-ctx.Done():
	}
	sub.Stop()

	w.mu.Lock()
	w.cancel = nil
	w.done = nil
	w.mu.Unlock()

	if !ok {
		slog.Info("trigger assignment cancelled")
		return
	}

	spec := types.NewTriggerSpec(ev.Identifier())
	slog.Info("trigger captured", "raw", spec.Raw, "label", spec.Display)
	if onCaptured != nil {
		onCaptured(spec)
	}
}

// Cancel aborts a pending wizard and waits until it has stopped listening.
func (w *Wizard) Cancel() {
	w.mu.Lock()
	cancel, done := w.cancel, w.done
	w.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
}
