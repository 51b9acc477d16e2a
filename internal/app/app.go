// Package app provides the core application service for the UI collaborators.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"go.aimuz.me/kzmacro/config"
	"go.aimuz.me/kzmacro/hook"
	"go.aimuz.me/kzmacro/internal/types"
	"go.aimuz.me/kzmacro/player"
	"go.aimuz.me/kzmacro/profile"
	"go.aimuz.me/kzmacro/recorder"
	"go.aimuz.me/kzmacro/trigger"
	"go.aimuz.me/kzmacro/wizard"
)

// Options wires a Service to its collaborators.
type Options struct {
	Config *config.Config
	// Source delivers global input events. If it has a Stop method it is
	// called on Shutdown.
	Source hook.Source
	Synth  player.Synthesizer
	// Notify receives every event. It must not block.
	Notify func(name string, data any)
	// Sleep overrides the player's wait, for tests.
	Sleep func(ctx context.Context, d time.Duration) error
	// Headless services, such as one-shot CLI commands, never rewrite the
	// configured profiles path.
	Headless bool
}

// Service exposes the macro engine as commands and notifications.
// This struct focuses on orchestration; the engine lives in sub-components.
type Service struct {
	cfg      *config.Config
	src      hook.Source
	notify   func(name string, data any)
	headless bool

	store    *profile.Store
	recorder *recorder.Recorder
	trigger  *trigger.Listener
	wizard   *wizard.Wizard
	playback PlaybackAdapter

	// mu serializes commands that change the active profile or the
	// trigger binding.
	mu sync.Mutex
}

// New creates a Service. Call Init before issuing commands.
func New(opts Options) *Service {
	cfg := opts.Config
	if cfg == nil {
		cfg = config.Default()
	}

	s := &Service{
		cfg:      cfg,
		src:      opts.Source,
		notify:   opts.Notify,
		headless: opts.Headless,
		store:    profile.NewStore(),
		wizard:   wizard.New(opts.Source),
	}
	s.playback.player = player.New(opts.Synth, player.Options{
		SettleDelay: cfg.SettleDelay(),
		Sleep:       opts.Sleep,
	})
	s.recorder = recorder.New(opts.Source, s.store, recorder.Options{
		OnBlock: func(p, i int, b types.Block) {
			s.emit(EventBlockAdded, types.BlockEvent{Profile: p, Index: i, Block: b})
		},
		Suppress: s.playback.Playing,
	})
	s.trigger = trigger.New(opts.Source, s.onTrigger)
	return s
}

// Init loads the configured profiles file when autoload is enabled.
func (s *Service) Init() {
	if !s.cfg.Autoload || s.cfg.ProfilesPath == "" {
		return
	}
	if err := s.Load(s.cfg.ProfilesPath); err != nil {
		slog.Warn("autoload profiles", "path", s.cfg.ProfilesPath, "error", err)
		return
	}
	slog.Info("profiles loaded", "path", s.cfg.ProfilesPath)
}

// Shutdown stops every listener and any running playback.
func (s *Service) Shutdown() {
	s.wizard.Cancel()
	s.playback.Stop()
	s.playback.Wait()

	s.mu.Lock()
	s.recorder.Close()
	s.trigger.Close()
	s.mu.Unlock()

	if h, ok := s.src.(interface{ Stop() }); ok {
		h.Stop()
	}
	slog.Info("service stopped")
}

// emit is a safe wrapper around the notifier.
func (s *Service) emit(name string, data any) {
	if s.notify != nil {
		s.notify(name, data)
	}
}

// fail logs err, reports it to the UI and returns it.
func (s *Service) fail(op string, err error) error {
	kind := Classify(err)
	if kind == types.KindEmptyMacro || kind == types.KindPlaybackBusy {
		slog.Info(op, "error", err)
	} else {
		slog.Error(op, "error", err)
	}
	s.emit(EventError, types.ErrorEvent{Kind: kind, Message: err.Error()})
	return err
}

// Classify maps an engine error to the kind reported to the UI.
func Classify(err error) types.ErrorKind {
	switch {
	case errors.Is(err, recorder.ErrCaptureUnavailable):
		return types.KindCaptureUnavailable
	case errors.Is(err, trigger.ErrListenerUnavailable), errors.Is(err, wizard.ErrUnavailable):
		return types.KindListenerUnavailable
	case errors.Is(err, player.ErrEmptyMacro):
		return types.KindEmptyMacro
	case errors.Is(err, player.ErrUnrecognizedBlock):
		return types.KindUnrecognizedBlock
	case errors.Is(err, player.ErrBusy):
		return types.KindPlaybackBusy
	case errors.Is(err, player.ErrCancelled):
		return types.KindPlaybackCancelled
	case errors.Is(err, profile.ErrPersistence):
		return types.KindPersistence
	case errors.Is(err, profile.ErrLastProfile), errors.Is(err, profile.ErrIndex),
		errors.Is(err, profile.ErrEmptyName), errors.Is(err, wizard.ErrActive):
		return types.KindInvariantViolation
	default:
		return types.KindInternal
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// Profiles
// ─────────────────────────────────────────────────────────────────────────────

// Profiles returns a copy of every profile.
func (s *Service) Profiles() []types.Profile {
	return s.store.Profiles()
}

// Status returns a snapshot of the engine state.
func (s *Service) Status() types.Status {
	idx, p := s.store.Active()
	return types.Status{
		Recording:     s.recorder.Armed(),
		Playing:       s.playback.Playing(),
		Assigning:     s.wizard.Active(),
		ActiveProfile: idx,
		Trigger:       p.TriggerLabel(),
	}
}

// NewProfile appends a profile and makes it active. An empty name picks
// "Macro <n>".
func (s *Service) NewProfile(name string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx, err := s.store.Add(name)
	if err != nil {
		return 0, s.fail("new profile", err)
	}
	s.emit(EventProfilesChanged, s.store.Profiles())
	s.activateLocked()
	return idx, nil
}

// RenameProfile renames the profile at index.
func (s *Service) RenameProfile(index int, name string) error {
	if err := s.store.Rename(index, name); err != nil {
		return s.fail("rename profile", err)
	}
	s.emit(EventProfilesChanged, s.store.Profiles())
	return nil
}

// DeleteProfile removes the profile at index. The first profile becomes
// active afterwards.
func (s *Service) DeleteProfile(index int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.store.Delete(index); err != nil {
		return s.fail("delete profile", err)
	}
	s.emit(EventProfilesChanged, s.store.Profiles())
	s.activateLocked()
	return nil
}

// SwitchProfile makes the profile at index active and binds its trigger.
func (s *Service) SwitchProfile(index int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.store.Switch(index); err != nil {
		return s.fail("switch profile", err)
	}
	s.activateLocked()
	return nil
}

// activateLocked disarms recording and binds the active profile's trigger.
// The caller holds s.mu.
func (s *Service) activateLocked() {
	s.stopRecordingLocked()

	idx, p := s.store.Active()
	// A pending assignment owns input until it completes or is cancelled;
	// both paths bind the active trigger afterwards.
	if !s.wizard.Active() {
		if err := s.trigger.Rebind(p.Trigger); err != nil {
			_ = s.fail("bind trigger", err)
		}
	}
	s.emit(EventProfileSwitched, types.ProfileSwitched{
		Index:   idx,
		Name:    p.Name,
		Trigger: p.TriggerLabel(),
	})
}

// ─────────────────────────────────────────────────────────────────────────────
// Recording
// ─────────────────────────────────────────────────────────────────────────────

// StartRecording clears the active profile and captures input into it.
func (s *Service) StartRecording() error {
	if s.wizard.Active() {
		s.CancelAssign()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.store.ActiveIndex()
	if err := s.recorder.Start(); err != nil {
		return s.fail("start recording", err)
	}
	s.emit(EventBlocksCleared, BlocksCleared{Profile: idx})
	s.emit(EventRecordingState, RecordingState{Recording: true, Profile: idx})
	return nil
}

// StopRecording stops capturing input.
func (s *Service) StopRecording() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopRecordingLocked()
}

func (s *Service) stopRecordingLocked() {
	if !s.recorder.Armed() {
		return
	}
	s.recorder.Stop()
	s.emit(EventRecordingState, RecordingState{Profile: s.store.ActiveIndex()})
}

// RemoveBlock deletes one block of a profile.
func (s *Service) RemoveBlock(profileIndex, index int) error {
	b, err := s.store.RemoveBlock(profileIndex, index)
	if err != nil {
		return s.fail("remove block", err)
	}
	s.emit(EventBlockRemoved, types.BlockEvent{Profile: profileIndex, Index: index, Block: b})
	return nil
}

// ClearBlocks deletes every block of a profile.
func (s *Service) ClearBlocks(profileIndex int) error {
	blocks, err := s.store.Blocks(profileIndex)
	if err != nil {
		return s.fail("clear blocks", err)
	}
	if err := s.store.ClearBlocks(profileIndex); err != nil {
		return s.fail("clear blocks", err)
	}
	s.emit(EventBlocksCleared, BlocksCleared{Profile: profileIndex, Removed: len(blocks)})
	return nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Trigger Assignment
// ─────────────────────────────────────────────────────────────────────────────

// AssignTrigger waits for the next key or mouse press and binds it to the
// profile active now. Recording stops and the current trigger is unbound
// while the wizard waits.
func (s *Service) AssignTrigger() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.wizard.Active() {
		return s.fail("assign trigger", wizard.ErrActive)
	}
	s.stopRecordingLocked()
	if err := s.trigger.Rebind(nil); err != nil {
		return s.fail("unbind trigger", err)
	}

	_, active := s.store.Active()
	target := active.ID
	err := s.wizard.Begin(context.Background(), func(spec types.TriggerSpec) {
		s.assigned(target, spec)
	})
	if err != nil {
		s.rebindActiveLocked()
		return s.fail("assign trigger", err)
	}
	return nil
}

// assigned runs on the wizard goroutine once a trigger is captured. The
// target is a profile ID, so profiles deleted or added meanwhile do not
// shift the assignment onto another profile.
func (s *Service) assigned(target string, spec types.TriggerSpec) {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx, err := s.store.SetTriggerByID(target, &spec)
	if err != nil {
		// The profile was deleted or replaced while the wizard waited.
		_ = s.fail("store trigger", err)
		s.rebindActiveLocked()
		return
	}
	s.rebindActiveLocked()
	s.emit(EventTriggerAssigned, types.TriggerAssigned{Profile: idx, Label: spec.Display})
	s.emit(EventProfilesChanged, s.store.Profiles())
}

// CancelAssign aborts a pending assignment and restores the active
// profile's trigger.
func (s *Service) CancelAssign() {
	s.wizard.Cancel()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.rebindActiveLocked()
}

func (s *Service) rebindActiveLocked() {
	_, p := s.store.Active()
	if err := s.trigger.Rebind(p.Trigger); err != nil {
		_ = s.fail("bind trigger", err)
	}
}

// onTrigger runs on the trigger subscription goroutine.
func (s *Service) onTrigger(spec types.TriggerSpec) {
	slog.Info("assigned button pressed", "trigger", spec.Display)
	if s.playback.Playing() {
		slog.Debug("trigger ignored while playing", "trigger", spec.Display)
		return
	}
	// Play must not run on this goroutine: commands holding s.mu wait for
	// it to exit when they rebind.
	go func() {
		_ = s.Play(s.store.ActiveIndex())
	}()
}

// ─────────────────────────────────────────────────────────────────────────────
// Playback
// ─────────────────────────────────────────────────────────────────────────────

// Play replays the profile at index in the background. Progress is reported
// through EventPlaybackState.
func (s *Service) Play(index int) error {
	blocks, err := s.store.Blocks(index)
	if err != nil {
		return s.fail("play", err)
	}
	if err := s.playback.Start(context.Background(), index, blocks, s.emit); err != nil {
		return s.fail("play", fmt.Errorf("profile %d: %w", index, err))
	}
	return nil
}

// StopPlayback cancels the running macro before its next block.
func (s *Service) StopPlayback() {
	s.playback.Stop()
}

// WaitPlayback blocks until the running macro, if any, has finished.
func (s *Service) WaitPlayback() {
	s.playback.Wait()
}

// ─────────────────────────────────────────────────────────────────────────────
// Persistence
// ─────────────────────────────────────────────────────────────────────────────

// Save writes every profile to path and, unless the service is headless,
// remembers it as the profiles file.
// It returns the path actually written.
func (s *Service) Save(path string) (string, error) {
	written, err := s.store.Save(path)
	if err != nil {
		return "", s.fail("save profiles", err)
	}
	slog.Info("profiles saved", "path", written)
	s.rememberPath(written)
	return written, nil
}

// Load replaces every profile with the contents of path. On failure the
// current profiles are kept.
func (s *Service) Load(path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.stopRecordingLocked()
	if err := s.store.Load(path); err != nil {
		return s.fail("load profiles", err)
	}
	s.emit(EventProfilesChanged, s.store.Profiles())
	s.activateLocked()
	s.rememberPath(path)
	return nil
}

func (s *Service) rememberPath(path string) {
	if s.headless || s.cfg.ProfilesPath == path {
		return
	}
	s.cfg.ProfilesPath = path
	if err := s.cfg.Save(); err != nil {
		slog.Warn("save config", "error", err)
	}
}
