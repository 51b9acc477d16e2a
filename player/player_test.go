package player

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"go.aimuz.me/kzmacro/internal/types"
)

// mockSynth records synthesized input with the virtual time it happened at.
type mockSynth struct {
	mu      sync.Mutex
	clock   *virtualClock
	actions []string
	at      []time.Duration
	failOn  string
}

func (m *mockSynth) record(s string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s == m.failOn {
		return fmt.Errorf("cannot synthesize %s", s)
	}
	m.actions = append(m.actions, s)
	if m.clock != nil {
		m.at = append(m.at, m.clock.now())
	}
	return nil
}

func (m *mockSynth) KeyDown(k string) error   { return m.record("kd:" + k) }
func (m *mockSynth) KeyUp(k string) error     { return m.record("ku:" + k) }
func (m *mockSynth) MouseDown(b string) error { return m.record("md:" + b) }
func (m *mockSynth) MouseUp(b string) error   { return m.record("mu:" + b) }

// virtualClock advances only when the player sleeps.
type virtualClock struct {
	mu      sync.Mutex
	elapsed time.Duration
}

func (c *virtualClock) now() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.elapsed
}

func (c *virtualClock) sleep(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.mu.Lock()
	c.elapsed += d
	c.mu.Unlock()
	return nil
}

func newVirtual() (*mockSynth, *Player, *virtualClock) {
	clock := &virtualClock{}
	synth := &mockSynth{clock: clock}
	p := New(synth, Options{SettleDelay: 20 * time.Millisecond, Sleep: clock.sleep})
	return synth, p, clock
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestPlayDispatchRules(t *testing.T) {
	tests := []struct {
		label string
		want  []string
	}{
		{"Key a", []string{"kd:a", "ku:a"}},
		{"Key shift Down", []string{"kd:shift"}},
		{"Key shift Up", []string{"ku:shift"}},
		{"Button.left Down", []string{"md:left"}},
		{"Button.left Up", []string{"mu:left"}},
		{"Button.right", []string{"md:right", "mu:right"}},
		{"Button.x2", []string{"md:x2", "mu:x2"}},
	}

	for _, tt := range tests {
		t.Run(tt.label, func(t *testing.T) {
			synth, p, _ := newVirtual()
			res, err := p.Play(context.Background(), []types.Block{{Label: tt.label}})
			if err != nil {
				t.Fatalf("Play: %v", err)
			}
			if res.Dispatched != 1 {
				t.Errorf("Dispatched = %d, want 1", res.Dispatched)
			}
			if !equalStrings(synth.actions, tt.want) {
				t.Errorf("actions = %v, want %v", synth.actions, tt.want)
			}
		})
	}
}

func TestPlayTimingMatchesRecordedWaits(t *testing.T) {
	synth, p, clock := newVirtual()
	blocks := []types.Block{
		{Label: "Button.left Down", WaitMS: 500}, // first wait is not slept
		{Label: "Button.left Up", WaitMS: 120},
		{Label: "Button.middle Down", WaitMS: 35},
		{Label: "Button.middle Up", WaitMS: 0},
		{Label: "Button.right Down", WaitMS: 1000},
	}

	res, err := p.Play(context.Background(), blocks)
	if err != nil {
		t.Fatal(err)
	}
	if res.Dispatched != len(blocks) {
		t.Fatalf("Dispatched = %d, want %d", res.Dispatched, len(blocks))
	}

	want := []time.Duration{0, 120, 155, 155, 1155}
	for i, w := range want {
		if synth.at[i] != w*time.Millisecond {
			t.Errorf("action %d at %v, want %v", i, synth.at[i], w*time.Millisecond)
		}
	}
	if clock.now() != 1155*time.Millisecond {
		t.Errorf("total = %v, want 1155ms", clock.now())
	}
}

func TestPlayOrderIsPreserved(t *testing.T) {
	synth, p, _ := newVirtual()
	var blocks []types.Block
	var want []string
	for i := 0; i < 20; i++ {
		k := fmt.Sprintf("k%d", i)
		blocks = append(blocks, types.Block{Label: types.KeyLabel(k) + " Down", WaitMS: int64(i)})
		want = append(want, "kd:"+k)
	}

	if _, err := p.Play(context.Background(), blocks); err != nil {
		t.Fatal(err)
	}
	if !equalStrings(synth.actions, want) {
		t.Errorf("actions = %v, want %v", synth.actions, want)
	}
}

func TestPlayEmptyMacro(t *testing.T) {
	synth, p, _ := newVirtual()
	res, err := p.Play(context.Background(), nil)
	if !errors.Is(err, ErrEmptyMacro) {
		t.Fatalf("Play error = %v, want ErrEmptyMacro", err)
	}
	if res.Dispatched != 0 || len(synth.actions) != 0 {
		t.Errorf("dispatched %d actions for an empty macro", len(synth.actions))
	}
}

func TestPlaySkipsUnrecognizedAndFailedBlocks(t *testing.T) {
	synth, p, _ := newVirtual()
	synth.failOn = "md:x1"
	blocks := []types.Block{
		{Label: "Key a"},
		{Label: "Scroll down 3"},
		{Label: "Button.x1"},
		{Label: "Key b"},
	}

	res, err := p.Play(context.Background(), blocks)
	if err != nil {
		t.Fatal(err)
	}
	if res.Dispatched != 2 || res.Skipped != 1 || res.Failed != 1 {
		t.Errorf("result = %+v, want 2 dispatched, 1 skipped, 1 failed", res)
	}
	if !equalStrings(synth.actions, []string{"kd:a", "ku:a", "kd:b", "ku:b"}) {
		t.Errorf("actions = %v", synth.actions)
	}
}

func TestPlayCancelledByContext(t *testing.T) {
	synth, p, _ := newVirtual()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res, err := p.Play(ctx, []types.Block{{Label: "Key a"}, {Label: "Key b", WaitMS: 10}})
	if !errors.Is(err, ErrCancelled) {
		t.Fatalf("Play error = %v, want ErrCancelled", err)
	}
	if res.Dispatched != 0 || len(synth.actions) != 0 {
		t.Errorf("actions after cancel = %v", synth.actions)
	}
}

func TestStopInterruptsWait(t *testing.T) {
	synth := &mockSynth{}
	p := New(synth, Options{SettleDelay: time.Millisecond})

	done := make(chan error, 1)
	go func() {
		_, err := p.Play(context.Background(), []types.Block{
			{Label: "Key a"},
			{Label: "Key b", WaitMS: 10_000},
		})
		done <- err
	}()

	deadline := time.Now().Add(time.Second)
	for !p.Playing() && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	time.Sleep(20 * time.Millisecond)
	p.Stop()

	select {
	case err := <-done:
		if !errors.Is(err, ErrCancelled) {
			t.Fatalf("Play error = %v, want ErrCancelled", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Stop did not interrupt the wait")
	}

	synth.mu.Lock()
	defer synth.mu.Unlock()
	if !equalStrings(synth.actions, []string{"kd:a", "ku:a"}) {
		t.Errorf("actions = %v, want only the first block", synth.actions)
	}
	if p.Playing() {
		t.Error("still playing after cancel")
	}
}

func TestPlayRejectsConcurrentPlayback(t *testing.T) {
	release := make(chan struct{})
	started := make(chan struct{}, 1)
	p := New(&mockSynth{}, Options{Sleep: func(ctx context.Context, d time.Duration) error {
		select {
		case started <- struct{}{}:
		default:
		}
		<-release
		return nil
	}})

	done := make(chan error, 1)
	go func() {
		_, err := p.Play(context.Background(), []types.Block{{Label: "Key a"}, {Label: "Key b", WaitMS: 5}})
		done <- err
	}()
	<-started

	if _, err := p.Play(context.Background(), []types.Block{{Label: "Key c"}}); !errors.Is(err, ErrBusy) {
		t.Errorf("second Play error = %v, want ErrBusy", err)
	}

	close(release)
	if err := <-done; err != nil {
		t.Errorf("first Play: %v", err)
	}
}

func TestPlayRealTiming(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping timing test in short mode")
	}

	p := New(&mockSynth{}, Options{SettleDelay: time.Millisecond})
	blocks := []types.Block{
		{Label: "Key a", WaitMS: 0},
		{Label: "Key b", WaitMS: 40},
		{Label: "Key c", WaitMS: 60},
	}

	res, err := p.Play(context.Background(), blocks)
	if err != nil {
		t.Fatal(err)
	}
	if res.Elapsed < 100*time.Millisecond {
		t.Errorf("elapsed %v shorter than recorded 100ms", res.Elapsed)
	}
	if res.Elapsed > 400*time.Millisecond {
		t.Errorf("elapsed %v far beyond recorded 100ms", res.Elapsed)
	}
}
