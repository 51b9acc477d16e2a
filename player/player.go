// Package player replays a profile's blocks as synthetic keyboard and mouse
// input, honouring the recorded waits.
package player

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"go.aimuz.me/kzmacro/internal/types"
)

// Sentinel errors.
var (
	// ErrEmptyMacro is returned when playing a profile without blocks.
	// It is informational: nothing was dispatched.
	ErrEmptyMacro = errors.New("macro has no blocks")
	// ErrUnrecognizedBlock marks a block whose label cannot be replayed.
	ErrUnrecognizedBlock = errors.New("unrecognized block")
	// ErrBusy is returned when a macro is already playing.
	ErrBusy = errors.New("a macro is already playing")
	// ErrCancelled is returned when playback is stopped before the end.
	ErrCancelled = errors.New("playback cancelled")
)

// DefaultSettleDelay is the pause between a synthesized press and its release.
const DefaultSettleDelay = 20 * time.Millisecond

// Synthesizer produces OS-level input.
type Synthesizer interface {
	KeyDown(key string) error
	KeyUp(key string) error
	MouseDown(button string) error
	MouseUp(button string) error
}

// Options configures a Player.
type Options struct {
	SettleDelay time.Duration // Defaults to DefaultSettleDelay
	// Sleep overrides the wait between blocks, for tests. It must return
	// ctx.Err() when ctx is done before d elapses.
	Sleep func(ctx context.Context, d time.Duration) error
}

// Result summarizes a playback.
type Result struct {
	Dispatched int // Blocks replayed
	Skipped    int // Unrecognized blocks
	Failed     int // Blocks the synthesizer rejected
	Elapsed    time.Duration
}

// Player replays blocks sequentially. Only one playback runs at a time.
type Player struct {
	synth  Synthesizer
	settle time.Duration
	sleep  func(ctx context.Context, d time.Duration) error

	mu      sync.Mutex
	cancel  context.CancelFunc
	playing atomic.Bool
}

// New creates a player that dispatches through synth.
func New(synth Synthesizer, opts Options) *Player {
	if opts.SettleDelay <= 0 {
		opts.SettleDelay = DefaultSettleDelay
	}
	if opts.Sleep == nil {
		opts.Sleep = sleep
	}
	return &Player{synth: synth, settle: opts.SettleDelay, sleep: opts.Sleep}
}

// Playing reports whether a macro is being replayed.
func (p *Player) Playing() bool {
	return p.playing.Load()
}

// Stop cancels the current playback, if any. The block being dispatched
// completes; no further block starts.
func (p *Player) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cancel != nil {
		p.cancel()
	}
}

// Play replays blocks in order on the calling goroutine. The first block's
// wait is not slept; every later block waits its recorded delay first.
// Cancelling ctx or calling Stop aborts with ErrCancelled.
func (p *Player) Play(ctx context.Context, blocks []types.Block) (Result, error) {
	if len(blocks) == 0 {
		return Result{}, ErrEmptyMacro
	}

	ctx, cancel := context.WithCancel(ctx)

	p.mu.Lock()
	if p.playing.Load() {
		p.mu.Unlock()
		cancel()
		return Result{}, ErrBusy
	}
	p.cancel = cancel
	p.playing.Store(true)
	p.mu.Unlock()

	defer func() {
		cancel()
		p.mu.Lock()
		p.cancel = nil
		p.playing.Store(false)
		p.mu.Unlock()
	}()

	var res Result
	start := time.Now()

	for i, b := range blocks {
		if i > 0 && b.WaitMS > 0 {
			if err := p.sleep(ctx, time.Duration(b.WaitMS)*time.Millisecond); err != nil {
				res.Elapsed = time.Since(start)
				return res, fmt.Errorf("%w after %d of %d blocks", ErrCancelled, i, len(blocks))
			}
		}
		if ctx.Err() != nil {
			res.Elapsed = time.Since(start)
			return res, fmt.Errorf("%w after %d of %d blocks", ErrCancelled, i, len(blocks))
		}

		switch err := p.dispatch(b); {
		case err == nil:
			res.Dispatched++
		case errors.Is(err, ErrUnrecognizedBlock):
			res.Skipped++
			slog.Warn("skip block", "index", i, "label", b.Label)
		default:
			res.Failed++
			slog.Warn("dispatch block", "index", i, "label", b.Label, "error", err)
		}
	}

	res.Elapsed = time.Since(start)
	return res, nil
}

// dispatch synthesizes the input for one block.
func (p *Player) dispatch(b types.Block) error {
	action, ok := types.ParseLabel(b.Label)
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnrecognizedBlock, b.Label)
	}

	down, up := p.synth.KeyDown, p.synth.KeyUp
	if action.Kind == types.ActionMouse {
		down, up = p.synth.MouseDown, p.synth.MouseUp
	}

	switch action.Phase {
	case types.PhaseDown:
		return down(action.Name)
	case types.PhaseUp:
		return up(action.Name)
	}

	if err := down(action.Name); err != nil {
		return err
	}
	// The settle pause is not cancellable so a pressed key is always released.
	_ = p.sleep(context.Background(), p.settle)
	return up(action.Name)
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
