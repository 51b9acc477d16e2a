package hook

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	gohook "github.com/robotn/gohook"
)

// queueSize is the per-subscription event buffer.
const queueSize = 64

// backend abstracts the OS hook so the hub can be driven in tests.
type backend interface {
	start() <-chan gohook.Event
	end()
}

// Hub owns the OS-level hook and fans its events out to subscriptions.
type Hub struct {
	mu      sync.Mutex
	backend backend
	timeout time.Duration

	running bool
	quit    chan struct{}
	done    chan struct{}

	subs   map[uint64]*subscription
	nextID uint64
}

// NewHub creates a hub backed by the global gohook hook. startTimeout bounds
// how long Start waits for the hook to report itself enabled; zero means do
// not wait.
func NewHub(startTimeout time.Duration) *Hub {
	return newHub(gohookBackend{}, startTimeout)
}

func newHub(b backend, startTimeout time.Duration) *Hub {
	return &Hub{
		backend: b,
		timeout: startTimeout,
		subs:    make(map[uint64]*subscription),
	}
}

// Start starts the OS hook. It is a no-op when the hook is already running.
func (h *Hub) Start() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.startLocked()
}

func (h *Hub) startLocked() error {
	if h.running {
		return nil
	}

	events := h.backend.start()
	if err := waitEnabled(events, h.timeout); err != nil {
		h.backend.end()
		return err
	}

	h.running = true
	h.quit = make(chan struct{})
	h.done = make(chan struct{})
	go h.run(events, h.quit, h.done)

	slog.Info("input hook started")
	return nil
}

// waitEnabled blocks until the hook reports itself enabled.
func waitEnabled(events <-chan gohook.Event, timeout time.Duration) error {
	if timeout <= 0 {
		return nil
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	for {
		select {
		case ev, ok := <-events:
			if !ok {
				return fmt.Errorf("%w: event stream closed", ErrUnavailable)
			}
			if ev.Kind == gohook.HookEnabled {
				return nil
			}
		case <-timer.C:
			return fmt.Errorf("%w: not enabled after %s", ErrUnavailable, timeout)
		}
	}
}

// Stop stops the OS hook and every subscription.
func (h *Hub) Stop() {
	h.mu.Lock()
	if !h.running {
		h.mu.Unlock()
		return
	}
	h.running = false
	close(h.quit)
	done := h.done
	subs := make([]*subscription, 0, len(h.subs))
	for id, s := range h.subs {
		subs = append(subs, s)
		delete(h.subs, id)
	}
	h.mu.Unlock()

	h.backend.end()
	<-done

	for _, s := range subs {
		s.shutdown()
	}
	slog.Info("input hook stopped")
}

// Running reports whether the OS hook is active.
func (h *Hub) Running() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.running
}

// Subscribe registers fn, starting the OS hook if needed.
func (h *Hub) Subscribe(fn func(Event)) (Subscription, error) {
	if fn == nil {
		return nil, fmt.Errorf("subscribe: nil handler")
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if err := h.startLocked(); err != nil {
		return nil, err
	}

	h.nextID++
	s := &subscription{
		hub:  h,
		id:   h.nextID,
		fn:   fn,
		ch:   make(chan Event, queueSize),
		quit: make(chan struct{}),
		done: make(chan struct{}),
	}
	h.subs[s.id] = s
	go s.run()
	return s, nil
}

func (h *Hub) remove(id uint64) {
	h.mu.Lock()
	delete(h.subs, id)
	h.mu.Unlock()
}

func (h *Hub) run(events <-chan gohook.Event, quit, done chan struct{}) {
	defer close(done)

	for {
		select {
		case <-quit:
			return
		case raw, ok := <-events:
			if !ok {
				slog.Warn("input hook event stream closed")
				h.mu.Lock()
				h.running = false
				h.mu.Unlock()
				return
			}
			if raw.Kind == gohook.HookDisabled {
				slog.Warn("input hook disabled by the system")
				continue
			}
			if ev, ok := fromHook(raw); ok {
				h.dispatch(ev)
			}
		}
	}
}

func (h *Hub) dispatch(ev Event) {
	h.mu.Lock()
	subs := make([]*subscription, 0, len(h.subs))
	for _, s := range h.subs {
		subs = append(subs, s)
	}
	h.mu.Unlock()

	for _, s := range subs {
		select {
		case s.ch <- ev:
		default:
			slog.Warn("subscriber queue full, dropping event", "kind", ev.Kind, "name", ev.Name)
		}
	}
}

// subscription is a Hub registration with its own delivery goroutine.
type subscription struct {
	hub  *Hub
	id   uint64
	fn   func(Event)
	ch   chan Event
	quit chan struct{}
	done chan struct{}
	once sync.Once
}

func (s *subscription) run() {
	defer close(s.done)
	for {
		select {
		case <-s.quit:
			return
		case ev := <-s.ch:
			select {
			case <-s.quit:
				return
			default:
			}
			s.fn(ev)
		}
	}
}

// Stop unregisters the subscription and waits for its goroutine to exit.
func (s *subscription) Stop() {
	s.hub.remove(s.id)
	s.shutdown()
}

func (s *subscription) shutdown() {
	s.once.Do(func() { close(s.quit) })
	<-s.done
}
