package trigger

import (
	"errors"
	"testing"

	"go.aimuz.me/kzmacro/hook"
	"go.aimuz.me/kzmacro/hook/hooktest"
	"go.aimuz.me/kzmacro/internal/types"
)

func specPtr(raw string) *types.TriggerSpec {
	s := types.NewTriggerSpec(raw)
	return &s
}

func TestKeyTriggerFiresOncePerPress(t *testing.T) {
	src := hooktest.New()
	var fired []string
	l := New(src, func(s types.TriggerSpec) { fired = append(fired, s.Raw) })
	defer l.Close()

	if err := l.Rebind(specPtr("f1")); err != nil {
		t.Fatal(err)
	}

	src.Press("f1")
	src.Press("f1") // auto-repeat
	src.Press("f1")
	src.Release("f1")
	src.Press("f2")
	src.Press("f1")
	src.Release("f1")

	if len(fired) != 2 {
		t.Errorf("fired %d times, want 2: %v", len(fired), fired)
	}
}

func TestMouseTrigger(t *testing.T) {
	src := hooktest.New()
	count := 0
	l := New(src, func(types.TriggerSpec) { count++ })
	defer l.Close()

	if err := l.Rebind(specPtr("Button.x1")); err != nil {
		t.Fatal(err)
	}
	src.Click("x1")
	src.Click("left")
	src.Press("x1") // a key named x1 is not the mouse button

	if count != 1 {
		t.Errorf("fired %d times, want 1", count)
	}
}

func TestReleaseTrigger(t *testing.T) {
	src := hooktest.New()
	count := 0
	l := New(src, func(types.TriggerSpec) { count++ })
	defer l.Close()

	if err := l.Rebind(specPtr("Button.middle Up")); err != nil {
		t.Fatal(err)
	}
	src.Emit(hook.Event{Kind: hook.MousePress, Name: "middle"})
	if count != 0 {
		t.Fatalf("fired on press")
	}
	src.Emit(hook.Event{Kind: hook.MouseRelease, Name: "middle"})
	if count != 1 {
		t.Errorf("fired %d times, want 1", count)
	}
}

func TestRebindTwiceKeepsOnlyLatest(t *testing.T) {
	src := hooktest.New()
	var fired []string
	l := New(src, func(s types.TriggerSpec) { fired = append(fired, s.Raw) })
	defer l.Close()

	if err := l.Rebind(specPtr("a")); err != nil {
		t.Fatal(err)
	}
	if err := l.Rebind(specPtr("b")); err != nil {
		t.Fatal(err)
	}

	if src.Active() != 1 {
		t.Fatalf("%d active subscriptions, want 1", src.Active())
	}

	src.Press("a")
	src.Release("a")
	if len(fired) != 0 {
		t.Fatalf("old trigger fired: %v", fired)
	}

	src.Press("b")
	if len(fired) != 1 || fired[0] != "b" {
		t.Errorf("fired = %v, want [b]", fired)
	}
	if got := l.Spec(); got == nil || got.Raw != "b" {
		t.Errorf("Spec() = %+v, want b", got)
	}
}

func TestRebindSameSpecIsCleanRestart(t *testing.T) {
	src := hooktest.New()
	count := 0
	l := New(src, func(types.TriggerSpec) { count++ })
	defer l.Close()

	for i := 0; i < 3; i++ {
		if err := l.Rebind(specPtr("f5")); err != nil {
			t.Fatal(err)
		}
	}
	if src.Active() != 1 {
		t.Fatalf("%d active subscriptions, want 1", src.Active())
	}
	src.Press("f5")
	if count != 1 {
		t.Errorf("fired %d times, want 1", count)
	}
}

func TestRebindNilStopsListening(t *testing.T) {
	src := hooktest.New()
	count := 0
	l := New(src, func(types.TriggerSpec) { count++ })

	if err := l.Rebind(specPtr("a")); err != nil {
		t.Fatal(err)
	}
	if err := l.Rebind(nil); err != nil {
		t.Fatal(err)
	}
	src.Press("a")

	if count != 0 {
		t.Errorf("fired after unbind")
	}
	if src.Active() != 0 || l.Spec() != nil {
		t.Errorf("listener still bound: active=%d spec=%v", src.Active(), l.Spec())
	}
}

func TestRebindFailure(t *testing.T) {
	src := hooktest.New()
	l := New(src, func(types.TriggerSpec) {})

	if err := l.Rebind(specPtr("a")); err != nil {
		t.Fatal(err)
	}
	src.SetFailing(true)

	err := l.Rebind(specPtr("b"))
	if !errors.Is(err, ErrListenerUnavailable) {
		t.Fatalf("Rebind error = %v, want ErrListenerUnavailable", err)
	}
	if l.Spec() != nil || src.Active() != 0 {
		t.Errorf("listener left bound after failure: spec=%v active=%d", l.Spec(), src.Active())
	}
}
