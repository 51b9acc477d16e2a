// Package types provides shared type definitions for the application.
package types

// DefaultProfileName is the name of the profile every new store starts with.
const DefaultProfileName = "Default Macro"

// NoTriggerLabel is the display label of a profile without a trigger.
const NoTriggerLabel = "None"

// Block is one recorded action plus the delay that precedes it.
type Block struct {
	Label  string `json:"text"`
	WaitMS int64  `json:"wait"` // Delay before this action, from the previous one
}

// TriggerSpec binds a profile to a single key or mouse button.
type TriggerSpec struct {
	Raw     string `json:"raw"`     // Identifier exactly as produced by the hook
	Display string `json:"display"` // Human-readable form
}

// Profile is a named, independently recorded and triggerable macro.
type Profile struct {
	ID      string       `json:"id"` // In-memory only, disambiguates duplicate names
	Name    string       `json:"name"`
	Blocks  []Block      `json:"blocks"`
	Trigger *TriggerSpec `json:"trigger,omitempty"`
}

// TriggerLabel returns the display label of the profile's trigger.
func (p Profile) TriggerLabel() string {
	if p.Trigger == nil {
		return NoTriggerLabel
	}
	return p.Trigger.Display
}

// Clone returns a deep copy of the profile.
func (p Profile) Clone() Profile {
	c := p
	c.Blocks = append([]Block(nil), p.Blocks...)
	if p.Trigger != nil {
		t := *p.Trigger
		c.Trigger = &t
	}
	return c
}

// ─────────────────────────────────────────────────────────────────────────────
// Notifications
// ─────────────────────────────────────────────────────────────────────────────

// ErrorKind classifies errors reported to the UI.
type ErrorKind string

const (
	KindCaptureUnavailable  ErrorKind = "CaptureUnavailable"
	KindListenerUnavailable ErrorKind = "ListenerUnavailable"
	KindEmptyMacro          ErrorKind = "EmptyMacro"
	KindUnrecognizedBlock   ErrorKind = "UnrecognizedBlock"
	KindPersistence         ErrorKind = "PersistenceError"
	KindInvariantViolation  ErrorKind = "InvariantViolation"
	KindPlaybackBusy        ErrorKind = "PlaybackBusy"
	KindPlaybackCancelled   ErrorKind = "PlaybackCancelled"
	KindInternal            ErrorKind = "Internal"
)

// ErrorEvent is emitted when a command fails.
type ErrorEvent struct {
	Kind    ErrorKind `json:"kind"`
	Message string    `json:"message"`
}

// BlockEvent is emitted when a block is added to or removed from a profile.
type BlockEvent struct {
	Profile int   `json:"profile"`
	Index   int   `json:"index"`
	Block   Block `json:"block"`
}

// TriggerAssigned is emitted when the wizard binds a new trigger.
type TriggerAssigned struct {
	Profile int    `json:"profile"`
	Label   string `json:"label"`
}

// ProfileSwitched is emitted when the active profile changes.
type ProfileSwitched struct {
	Index   int    `json:"index"`
	Name    string `json:"name"`
	Trigger string `json:"trigger"`
}

// PlaybackState is emitted when playback starts and finishes.
type PlaybackState struct {
	Playing    bool   `json:"playing"`
	Profile    int    `json:"profile"`
	Dispatched int    `json:"dispatched"`
	Skipped    int    `json:"skipped"`
	ElapsedMS  int64  `json:"elapsedMs"`
	Error      string `json:"error,omitempty"`
}

// Status is a snapshot of the engine state.
type Status struct {
	Recording     bool   `json:"recording"`
	Playing       bool   `json:"playing"`
	Assigning     bool   `json:"assigning"`
	ActiveProfile int    `json:"activeProfile"`
	Trigger       string `json:"trigger"`
}
