// Package hooktest provides an in-memory hook.Source for tests.
package hooktest

import (
	"errors"
	"sync"

	"go.aimuz.me/kzmacro/hook"
)

// ErrFailing is returned by Subscribe when the source is set to fail.
var ErrFailing = errors.New("hooktest: subscribe failed")

// Source is a hook.Source whose events are injected by the test.
// Handlers run synchronously inside Emit.
type Source struct {
	mu     sync.Mutex
	subs   map[int]func(hook.Event)
	nextID int
	fail   bool

	// Subscribed counts successful Subscribe calls.
	Subscribed int
}

// New returns an empty source.
func New() *Source {
	return &Source{subs: make(map[int]func(hook.Event))}
}

// SetFailing makes subsequent Subscribe calls fail with an error wrapping
// hook.ErrUnavailable.
func (s *Source) SetFailing(fail bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fail = fail
}

// Subscribe implements hook.Source.
func (s *Source) Subscribe(fn func(hook.Event)) (hook.Subscription, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.fail {
		return nil, errors.Join(hook.ErrUnavailable, ErrFailing)
	}

	s.nextID++
	id := s.nextID
	s.subs[id] = fn
	s.Subscribed++
	return &subscription{src: s, id: id}, nil
}

// Active returns the number of live subscriptions.
func (s *Source) Active() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.subs)
}

// Emit delivers ev to every live subscription.
func (s *Source) Emit(ev hook.Event) {
	s.mu.Lock()
	fns := make([]func(hook.Event), 0, len(s.subs))
	for _, fn := range s.subs {
		fns = append(fns, fn)
	}
	s.mu.Unlock()

	for _, fn := range fns {
		fn(ev)
	}
}

// Press emits a key press for name.
func (s *Source) Press(name string) { s.Emit(hook.Event{Kind: hook.KeyPress, Name: name}) }

// Release emits a key release for name.
func (s *Source) Release(name string) { s.Emit(hook.Event{Kind: hook.KeyRelease, Name: name}) }

// Click emits a mouse press followed by a release of button.
func (s *Source) Click(button string) {
	s.Emit(hook.Event{Kind: hook.MousePress, Name: button})
	s.Emit(hook.Event{Kind: hook.MouseRelease, Name: button})
}

type subscription struct {
	src  *Source
	id   int
	once sync.Once
}

func (sub *subscription) Stop() {
	sub.once.Do(func() {
		sub.src.mu.Lock()
		delete(sub.src.subs, sub.id)
		sub.src.mu.Unlock()
	})
}
