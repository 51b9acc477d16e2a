// Package profile holds the in-memory collection of macro profiles and
// persists it to and from the JSON profiles file.
package profile

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/google/uuid"
	"go.aimuz.me/kzmacro/internal/types"
)

// Sentinel errors.
var (
	// ErrLastProfile is returned when deleting the only remaining profile.
	ErrLastProfile = errors.New("cannot delete the last profile")
	// ErrIndex is returned for out-of-range profile or block indexes.
	ErrIndex = errors.New("index out of range")
	// ErrEmptyName is returned when a profile name is blank.
	ErrEmptyName = errors.New("profile name required")
	// ErrPersistence wraps every save/load failure.
	ErrPersistence = errors.New("profiles file")
)

// Store is an ordered list of profiles with exactly one active profile.
// All methods are safe for concurrent use; readers get deep copies.
type Store struct {
	mu       sync.RWMutex
	profiles []types.Profile
	active   int
}

// NewStore returns a store with one default profile.
func NewStore() *Store {
	return &Store{profiles: []types.Profile{newProfile(types.DefaultProfileName)}}
}

func newProfile(name string) types.Profile {
	return types.Profile{ID: uuid.New().String(), Name: name}
}

// Len returns the number of profiles.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.profiles)
}

// Profiles returns copies of all profiles in order.
func (s *Store) Profiles() []types.Profile {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]types.Profile, len(s.profiles))
	for i, p := range s.profiles {
		out[i] = p.Clone()
	}
	return out
}

// Get returns a copy of the profile at index.
func (s *Store) Get(index int) (types.Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if err := s.checkIndex(index); err != nil {
		return types.Profile{}, err
	}
	return s.profiles[index].Clone(), nil
}

// Active returns the active index and a copy of the active profile.
func (s *Store) Active() (int, types.Profile) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.active, s.profiles[s.active].Clone()
}

// ActiveIndex returns the index of the active profile.
func (s *Store) ActiveIndex() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.active
}

// Blocks returns a copy of the block sequence of the profile at index.
// The copy is taken under the store lock, so it never observes a
// half-applied mutation.
func (s *Store) Blocks(index int) ([]types.Block, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if err := s.checkIndex(index); err != nil {
		return nil, err
	}
	return slices.Clone(s.profiles[index].Blocks), nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Profile management
// ─────────────────────────────────────────────────────────────────────────────

// Add appends a new profile and makes it active. An empty name defaults to
// "Macro <n>". It returns the new index.
func (s *Store) Add(name string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	name = strings.TrimSpace(name)
	if name == "" {
		name = fmt.Sprintf("Macro %d", len(s.profiles)+1)
	}

	s.profiles = append(s.profiles, newProfile(name))
	s.active = len(s.profiles) - 1
	return s.active, nil
}

// Rename changes the name of the profile at index.
func (s *Store) Rename(index int, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkIndex(index); err != nil {
		return err
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return ErrEmptyName
	}
	s.profiles[index].Name = name
	return nil
}

// Delete removes the profile at index and resets the active profile to the
// first one. Deleting the last profile fails with ErrLastProfile.
func (s *Store) Delete(index int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkIndex(index); err != nil {
		return err
	}
	if len(s.profiles) <= 1 {
		return ErrLastProfile
	}

	s.profiles = slices.Delete(s.profiles, index, index+1)
	s.active = 0
	return nil
}

// Switch makes the profile at index active.
func (s *Store) Switch(index int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkIndex(index); err != nil {
		return err
	}
	s.active = index
	return nil
}

// SetTrigger sets (or clears, when spec is nil) the trigger of a profile.
func (s *Store) SetTrigger(index int, spec *types.TriggerSpec) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkIndex(index); err != nil {
		return err
	}
	if spec == nil {
		s.profiles[index].Trigger = nil
		return nil
	}
	t := *spec
	s.profiles[index].Trigger = &t
	return nil
}

// SetTriggerByID sets the trigger of the profile with the given ID and
// returns its current index. Unlike SetTrigger it is unaffected by profiles
// added or removed since the ID was read.
func (s *Store) SetTriggerByID(id string, spec *types.TriggerSpec) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := slices.IndexFunc(s.profiles, func(p types.Profile) bool { return p.ID == id })
	if i < 0 {
		return 0, fmt.Errorf("profile %s: %w", id, ErrIndex)
	}
	if spec == nil {
		s.profiles[i].Trigger = nil
		return i, nil
	}
	t := *spec
	s.profiles[i].Trigger = &t
	return i, nil
}

// Replace swaps the whole profile list, making the first profile active.
func (s *Store) Replace(profiles []types.Profile) error {
	if len(profiles) == 0 {
		return fmt.Errorf("replace: %w", ErrLastProfile)
	}

	next := make([]types.Profile, len(profiles))
	for i, p := range profiles {
		next[i] = p.Clone()
		if next[i].ID == "" {
			next[i].ID = uuid.New().String()
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.profiles = next
	s.active = 0
	return nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Block management
// ─────────────────────────────────────────────────────────────────────────────

// AppendActive appends a block to the active profile and returns the active
// profile index and the new block index.
func (s *Store) AppendActive(b types.Block) (profile, index int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if b.WaitMS < 0 {
		b.WaitMS = 0
	}
	p := &s.profiles[s.active]
	p.Blocks = append(p.Blocks, b)
	return s.active, len(p.Blocks) - 1
}

// ClearActive removes all blocks of the active profile and returns its index.
func (s *Store) ClearActive() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.profiles[s.active].Blocks = nil
	return s.active
}

// RemoveBlock removes one block and returns it.
func (s *Store) RemoveBlock(profile, index int) (types.Block, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkIndex(profile); err != nil {
		return types.Block{}, err
	}
	blocks := s.profiles[profile].Blocks
	if index < 0 || index >= len(blocks) {
		return types.Block{}, fmt.Errorf("block %d: %w", index, ErrIndex)
	}

	removed := blocks[index]
	s.profiles[profile].Blocks = slices.Delete(blocks, index, index+1)
	return removed, nil
}

// ClearBlocks removes all blocks of a profile.
func (s *Store) ClearBlocks(profile int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkIndex(profile); err != nil {
		return err
	}
	s.profiles[profile].Blocks = nil
	return nil
}

func (s *Store) checkIndex(i int) error {
	if i < 0 || i >= len(s.profiles) {
		return fmt.Errorf("profile %d: %w", i, ErrIndex)
	}
	return nil
}
