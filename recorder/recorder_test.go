package recorder

import (
	"errors"
	"testing"
	"time"

	"go.aimuz.me/kzmacro/hook"
	"go.aimuz.me/kzmacro/hook/hooktest"
	"go.aimuz.me/kzmacro/internal/types"
	"go.aimuz.me/kzmacro/profile"
)

// fakeClock is advanced manually by the test.
type fakeClock struct{ t time.Time }

func newClock() *fakeClock { return &fakeClock{t: time.Unix(1700000000, 0)} }

func (c *fakeClock) Now() time.Time { return c.t }

func (c *fakeClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

func blocksOf(t *testing.T, s *profile.Store) []types.Block {
	t.Helper()
	b, err := s.Blocks(s.ActiveIndex())
	if err != nil {
		t.Fatal(err)
	}
	return b
}

func TestRecordingSession(t *testing.T) {
	src := hooktest.New()
	store := profile.NewStore()
	clock := newClock()
	r := New(src, store, Options{Now: clock.Now})
	defer r.Close()

	if err := r.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	src.Press("a")
	clock.Advance(150 * time.Millisecond)
	src.Press("b")
	r.Stop()

	got := blocksOf(t, store)
	want := []types.Block{{Label: "Key a", WaitMS: 0}, {Label: "Key b", WaitMS: 150}}
	if len(got) != len(want) {
		t.Fatalf("blocks = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("block %d = %+v, want %+v", i, got[i], want[i])
		}
	}
}

func TestFirstWaitMeasuredFromStart(t *testing.T) {
	src := hooktest.New()
	store := profile.NewStore()
	clock := newClock()
	r := New(src, store, Options{Now: clock.Now})
	defer r.Close()

	if err := r.Start(); err != nil {
		t.Fatal(err)
	}
	clock.Advance(1234567 * time.Microsecond)
	src.Press("a")

	if got := blocksOf(t, store)[0].WaitMS; got != 1235 {
		t.Errorf("first wait = %d, want 1235 (rounded)", got)
	}
}

func TestMouseAndKeyLabels(t *testing.T) {
	src := hooktest.New()
	store := profile.NewStore()
	r := New(src, store, Options{Now: newClock().Now})
	defer r.Close()

	if err := r.Start(); err != nil {
		t.Fatal(err)
	}
	src.Click("right")
	src.Press("f1")
	src.Release("f1")

	got := blocksOf(t, store)
	want := []string{"Button.right Down", "Button.right Up", "Key f1"}
	if len(got) != len(want) {
		t.Fatalf("blocks = %v, want labels %v", got, want)
	}
	for i := range want {
		if got[i].Label != want[i] {
			t.Errorf("block %d label = %q, want %q", i, got[i].Label, want[i])
		}
	}
}

func TestRecordedKeyLabelsArePlayable(t *testing.T) {
	src := hooktest.New()
	store := profile.NewStore()
	r := New(src, store, Options{Now: newClock().Now})
	defer r.Close()

	if err := r.Start(); err != nil {
		t.Fatal(err)
	}
	keys := hook.KeyNames()
	for _, k := range keys {
		src.Press(k)
	}
	r.Stop()

	got := blocksOf(t, store)
	if len(got) != len(keys) {
		t.Fatalf("%d blocks for %d keys", len(got), len(keys))
	}
	for i, b := range got {
		a, ok := types.ParseLabel(b.Label)
		if !ok || a.Kind != types.ActionKey || a.Name != keys[i] || a.Phase != types.PhaseFull {
			t.Errorf("block %q parses as %+v (ok=%v), want full press of %q", b.Label, a, ok, keys[i])
		}
	}
}

func TestStartClearsActiveProfile(t *testing.T) {
	src := hooktest.New()
	store := profile.NewStore()
	store.AppendActive(types.Block{Label: "Key old"})
	r := New(src, store, Options{})
	defer r.Close()

	if err := r.Start(); err != nil {
		t.Fatal(err)
	}
	if got := blocksOf(t, store); len(got) != 0 {
		t.Errorf("blocks after Start = %v, want none", got)
	}
}

func TestIgnoresEventsWhileDisarmed(t *testing.T) {
	src := hooktest.New()
	store := profile.NewStore()
	var added int
	r := New(src, store, Options{OnBlock: func(int, int, types.Block) { added++ }})
	defer r.Close()

	if err := r.Start(); err != nil {
		t.Fatal(err)
	}
	src.Press("a")
	r.Stop()
	src.Press("b")
	src.Click("left")

	if got := blocksOf(t, store); len(got) != 1 {
		t.Errorf("blocks = %v, want only the armed press", got)
	}
	if added != 1 {
		t.Errorf("OnBlock called %d times, want 1", added)
	}
	if r.Armed() {
		t.Error("recorder still armed after Stop")
	}
}

func TestSuppressDropsEvents(t *testing.T) {
	src := hooktest.New()
	store := profile.NewStore()
	playing := true
	r := New(src, store, Options{Suppress: func() bool { return playing }})
	defer r.Close()

	if err := r.Start(); err != nil {
		t.Fatal(err)
	}
	src.Press("a")
	playing = false
	src.Press("b")

	got := blocksOf(t, store)
	if len(got) != 1 || got[0].Label != "Key b" {
		t.Errorf("blocks = %v, want only Key b", got)
	}
}

func TestStartFailsWhenCaptureUnavailable(t *testing.T) {
	src := hooktest.New()
	src.SetFailing(true)
	store := profile.NewStore()
	store.AppendActive(types.Block{Label: "Key keep"})
	r := New(src, store, Options{})

	err := r.Start()
	if !errors.Is(err, ErrCaptureUnavailable) || !errors.Is(err, hook.ErrUnavailable) {
		t.Fatalf("Start error = %v, want ErrCaptureUnavailable wrapping hook.ErrUnavailable", err)
	}
	if r.Armed() {
		t.Error("recorder armed after failed start")
	}
	if got := blocksOf(t, store); len(got) != 1 {
		t.Errorf("profile cleared by failed start: %v", got)
	}

	src.SetFailing(false)
	if err := r.Start(); err != nil {
		t.Fatalf("retry Start: %v", err)
	}
}

func TestSubscribesOnce(t *testing.T) {
	src := hooktest.New()
	r := New(src, profile.NewStore(), Options{})

	for i := 0; i < 3; i++ {
		if err := r.Start(); err != nil {
			t.Fatal(err)
		}
		r.Stop()
	}
	if src.Subscribed != 1 {
		t.Errorf("subscribed %d times, want 1", src.Subscribed)
	}

	r.Close()
	if src.Active() != 0 {
		t.Errorf("%d subscriptions left after Close", src.Active())
	}
}
