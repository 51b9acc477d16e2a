// Package tray runs the system tray front end of the macro engine.
package tray

import (
	"fmt"
	"log/slog"

	"github.com/wailsapp/wails/v3/pkg/application"

	"go.aimuz.me/kzmacro/config"
	appsvc "go.aimuz.me/kzmacro/internal/app"
	"go.aimuz.me/kzmacro/internal/types"
)

// Options configures the tray application.
type Options struct {
	Version string
	Config  *config.Config
	// Service options; Config and Notify are filled in by Run.
	Service appsvc.Options
}

// Tray owns the Wails application and keeps the menu in sync with the
// engine state.
type Tray struct {
	cfg  *config.Config
	svc  *appsvc.Service
	app  *application.App
	tray *application.SystemTray

	dirty chan struct{}
	quit  chan struct{}
}

// Run starts the tray application and blocks until the user quits.
func Run(opts Options) error {
	t := &Tray{
		cfg:   opts.Config,
		dirty: make(chan struct{}, 1),
		quit:  make(chan struct{}),
	}

	svcOpts := opts.Service
	svcOpts.Config = opts.Config
	svcOpts.Notify = t.notify
	t.svc = appsvc.New(svcOpts)

	t.app = application.New(application.Options{
		Name:        "KzMacro",
		Description: "Keyboard and mouse macro recorder",
		Services: []application.Service{
			application.NewService(t.svc),
		},
		Mac: application.MacOptions{
			// No windows: the tray is the whole UI
			ApplicationShouldTerminateAfterLastWindowClosed: false,
		},
	})

	t.svc.Init()

	t.tray = t.app.SystemTray.New()
	t.tray.SetLabel(statusLabel(t.svc.Status()))
	t.tray.SetMenu(t.buildMenu())

	go t.refreshLoop()
	defer close(t.quit)

	slog.Info("tray started", "version", opts.Version)
	if err := t.app.Run(); err != nil {
		return fmt.Errorf("run app: %w", err)
	}
	return nil
}

// notify forwards engine events to the frontend and schedules a menu refresh.
func (t *Tray) notify(name string, data any) {
	if t.app != nil {
		t.app.Event.Emit(name, data)
	}
	if name == appsvc.EventError {
		if e, ok := data.(types.ErrorEvent); ok {
			slog.Warn("engine error", "kind", e.Kind, "message", e.Message)
		}
	}
	if needsRefresh(name) {
		select {
		case t.dirty <- struct{}{}:
		default:
		}
	}
}

func needsRefresh(event string) bool {
	switch event {
	case appsvc.EventBlockAdded, appsvc.EventBlockRemoved, appsvc.EventError:
		return false
	}
	return true
}

// refreshLoop rebuilds the menu outside of engine callbacks.
func (t *Tray) refreshLoop() {
	for {
		select {
		case <-t.quit:
			return
		case <-t.dirty:
			if t.tray == nil {
				continue
			}
			t.tray.SetLabel(statusLabel(t.svc.Status()))
			t.tray.SetMenu(t.buildMenu())
		}
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// Menu
// ─────────────────────────────────────────────────────────────────────────────

func (t *Tray) buildMenu() *application.Menu {
	status := t.svc.Status()
	profiles := t.svc.Profiles()

	menu := t.app.NewMenu()

	if status.Recording {
		menu.Add("Stop Recording").OnClick(func(ctx *application.Context) {
			t.svc.StopRecording()
		})
	} else {
		menu.Add("Start Recording").OnClick(func(ctx *application.Context) {
			_ = t.svc.StartRecording()
		})
	}

	if status.Playing {
		menu.Add("Stop Playback").OnClick(func(ctx *application.Context) {
			t.svc.StopPlayback()
		})
	} else {
		menu.Add("Play").OnClick(func(ctx *application.Context) {
			_ = t.svc.Play(t.svc.Status().ActiveProfile)
		})
	}

	if status.Assigning {
		menu.Add("Cancel Trigger Assignment").OnClick(func(ctx *application.Context) {
			t.svc.CancelAssign()
		})
	} else {
		menu.Add(fmt.Sprintf("Assign Trigger (%s)", status.Trigger)).OnClick(func(ctx *application.Context) {
			_ = t.svc.AssignTrigger()
		})
	}

	menu.Add("Clear Blocks").OnClick(func(ctx *application.Context) {
		_ = t.svc.ClearBlocks(t.svc.Status().ActiveProfile)
	})

	profileMenu := menu.AddSubmenu("Profiles")
	for i, p := range profiles {
		profileMenu.AddRadio(profileLabel(p), i == status.ActiveProfile).OnClick(func(ctx *application.Context) {
			_ = t.svc.SwitchProfile(i)
		})
	}
	profileMenu.AddSeparator()
	profileMenu.Add("New Profile").OnClick(func(ctx *application.Context) {
		_, _ = t.svc.NewProfile("")
	})
	profileMenu.Add("Delete Active Profile").OnClick(func(ctx *application.Context) {
		_ = t.svc.DeleteProfile(t.svc.Status().ActiveProfile)
	})

	menu.AddSeparator()
	menu.Add("Save").
		SetAccelerator("CmdOrCtrl+S").
		OnClick(func(ctx *application.Context) {
			path, err := t.cfg.ProfilesFile()
			if err != nil {
				slog.Error("profiles path", "error", err)
				return
			}
			_, _ = t.svc.Save(path)
		})
	menu.Add("Reload").OnClick(func(ctx *application.Context) {
		path, err := t.cfg.ProfilesFile()
		if err != nil {
			slog.Error("profiles path", "error", err)
			return
		}
		_ = t.svc.Load(path)
	})

	menu.AddSeparator()
	menu.Add("Quit").
		SetAccelerator("CmdOrCtrl+Q").
		OnClick(func(ctx *application.Context) {
			t.svc.Shutdown()
			t.app.Quit()
		})

	return menu
}

// statusLabel is the text shown next to the tray icon.
func statusLabel(s types.Status) string {
	switch {
	case s.Recording:
		return "KzMacro ● REC"
	case s.Playing:
		return "KzMacro ▶"
	case s.Assigning:
		return "KzMacro: press a key…"
	case s.Trigger != "" && s.Trigger != types.NoTriggerLabel:
		return "KzMacro [" + s.Trigger + "]"
	default:
		return "KzMacro"
	}
}

func profileLabel(p types.Profile) string {
	return fmt.Sprintf("%s (%d blocks, %s)", p.Name, len(p.Blocks), p.TriggerLabel())
}
