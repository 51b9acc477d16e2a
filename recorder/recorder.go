// Package recorder turns global input events into timed blocks on the active
// profile.
package recorder

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"go.aimuz.me/kzmacro/hook"
	"go.aimuz.me/kzmacro/internal/types"
	"go.aimuz.me/kzmacro/profile"
)

// ErrCaptureUnavailable is returned by Start when the input hook cannot be
// subscribed to.
var ErrCaptureUnavailable = errors.New("capture unavailable")

// Options configures a Recorder.
type Options struct {
	// OnBlock is called after each block is appended.
	OnBlock func(profile, index int, b types.Block)
	// Suppress, when it returns true, drops incoming events (used while a
	// macro is playing so synthetic input is never recorded).
	Suppress func() bool
	// Now overrides the clock, for tests.
	Now func() time.Time
}

// Recorder captures input into the active profile of a store while armed.
type Recorder struct {
	src   hook.Source
	store *profile.Store
	opts  Options

	mu    sync.Mutex
	sub   hook.Subscription
	armed bool
	last  time.Time
}

// New creates a recorder. It does not touch the hook until Start.
func New(src hook.Source, store *profile.Store, opts Options) *Recorder {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Recorder{src: src, store: store, opts: opts}
}

// Start clears the active profile and arms the recorder. The first block's
// wait is measured from this call.
func (r *Recorder) Start() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.sub == nil {
		sub, err := r.src.Subscribe(r.handle)
		if err != nil {
			return fmt.Errorf("%w: %w", ErrCaptureUnavailable, err)
		}
		r.sub = sub
	}

	idx := r.store.ClearActive()
	r.armed = true
	r.last = r.opts.Now()

	slog.Info("recording started", "profile", idx)
	return nil
}

// Stop disarms the recorder. Events arriving afterwards are ignored.
func (r *Recorder) Stop() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.armed {
		slog.Info("recording stopped")
	}
	r.armed = false
}

// Armed reports whether the recorder is capturing.
func (r *Recorder) Armed() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.armed
}

// Close disarms the recorder and releases its hook subscription.
func (r *Recorder) Close() {
	r.mu.Lock()
	sub := r.sub
	r.sub = nil
	r.armed = false
	r.mu.Unlock()

	if sub != nil {
		sub.Stop()
	}
}

func (r *Recorder) handle(ev hook.Event) {
	label, ok := labelFor(ev)
	if !ok {
		return
	}
	if r.opts.Suppress != nil && r.opts.Suppress() {
		return
	}

	r.mu.Lock()
	if !r.armed {
		r.mu.Unlock()
		return
	}
	now := r.opts.Now()
	wait := now.Sub(r.last).Round(time.Millisecond).Milliseconds()
	r.last = now
	b := types.Block{Label: label, WaitMS: max(wait, 0)}
	p, i := r.store.AppendActive(b)
	r.mu.Unlock()

	slog.Debug("block recorded", "label", b.Label, "wait", b.WaitMS)
	if r.opts.OnBlock != nil {
		r.opts.OnBlock(p, i, b)
	}
}

// labelFor maps an event to a block label. Key releases are not recorded.
func labelFor(ev hook.Event) (string, bool) {
	switch ev.Kind {
	case hook.KeyPress:
		return types.KeyLabel(ev.Name), true
	case hook.MousePress:
		return types.MouseLabel(ev.Name, types.PhaseDown), true
	case hook.MouseRelease:
		return types.MouseLabel(ev.Name, types.PhaseUp), true
	}
	return "", false
}
