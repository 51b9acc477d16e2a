// Package app provides the core application service for the UI collaborators.
package app

// Event names for UI communication.
const (
	EventBlockAdded      = "block-added"
	EventBlockRemoved    = "block-removed"
	EventBlocksCleared   = "blocks-cleared"
	EventTriggerAssigned = "trigger-assigned"
	EventProfileSwitched = "profile-switched"
	EventProfilesChanged = "profiles-changed"
	EventRecordingState  = "recording-state"
	EventPlaybackState   = "playback-state"
	EventError           = "error"
)

// RecordingState is the payload of EventRecordingState.
type RecordingState struct {
	Recording bool `json:"recording"`
	Profile   int  `json:"profile"`
}

// BlocksCleared is the payload of EventBlocksCleared.
type BlocksCleared struct {
	Profile int `json:"profile"`
	Removed int `json:"removed"`
}
