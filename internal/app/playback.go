package app

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"go.aimuz.me/kzmacro/internal/types"
	"go.aimuz.me/kzmacro/player"
)

// PlaybackAdapter runs macros in the background with proper synchronization.
type PlaybackAdapter struct {
	mu      sync.Mutex
	player  *player.Player
	running bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// Start replays blocks on a new goroutine and reports progress via emit.
// It returns player.ErrEmptyMacro or player.ErrBusy without starting.
func (pa *PlaybackAdapter) Start(ctx context.Context, profile int, blocks []types.Block, emit func(name string, data any)) error {
	if len(blocks) == 0 {
		return player.ErrEmptyMacro
	}

	pa.mu.Lock()
	if pa.running {
		pa.mu.Unlock()
		return player.ErrBusy
	}
	// The context exists before Start returns so a Stop issued right away
	// is not lost while the goroutine is still being scheduled.
	ctx, cancel := context.WithCancel(ctx)
	pa.running = true
	pa.cancel = cancel
	pa.wg.Add(1)
	pa.mu.Unlock()

	emit(EventPlaybackState, types.PlaybackState{Playing: true, Profile: profile})
	slog.Info("playback started", "profile", profile, "blocks", len(blocks))

	go func() {
		defer pa.wg.Done()
		res, err := pa.player.Play(ctx, blocks)

		pa.mu.Lock()
		cancel()
		pa.running = false
		pa.cancel = nil
		pa.mu.Unlock()

		state := types.PlaybackState{
			Profile:    profile,
			Dispatched: res.Dispatched,
			Skipped:    res.Skipped,
			ElapsedMS:  res.Elapsed.Milliseconds(),
		}
		switch {
		case err == nil:
			slog.Info("playback finished", "profile", profile, "dispatched", res.Dispatched,
				"skipped", res.Skipped, "failed", res.Failed, "elapsed", res.Elapsed)
		case errors.Is(err, player.ErrCancelled):
			state.Error = err.Error()
			slog.Info("playback cancelled", "profile", profile, "dispatched", res.Dispatched)
		default:
			state.Error = err.Error()
			slog.Error("playback", "profile", profile, "error", err)
		}
		emit(EventPlaybackState, state)
	}()
	return nil
}

// Stop cancels the running playback, if any.
func (pa *PlaybackAdapter) Stop() {
	pa.mu.Lock()
	defer pa.mu.Unlock()
	if pa.cancel != nil {
		pa.cancel()
	}
}

// Playing reports whether a playback goroutine is active.
func (pa *PlaybackAdapter) Playing() bool {
	pa.mu.Lock()
	defer pa.mu.Unlock()
	return pa.running
}

// Wait blocks until the current playback, if any, has finished.
func (pa *PlaybackAdapter) Wait() {
	pa.wg.Wait()
}
