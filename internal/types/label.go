package types

import (
	"slices"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Block label prefixes and half-press suffixes.
const (
	keyPrefix    = "Key "
	buttonPrefix = "Button."
	suffixDown   = "Down"
	suffixUp     = "Up"
)

// Mouse buttons understood by the recorder and player.
var mouseButtons = []string{"left", "right", "middle", "x1", "x2"}

// spacedKeyNames maps multi-word key names found in older profile files to
// the single-token names the recorder writes today.
var spacedKeyNames = map[string]string{
	"left arrow":    "left",
	"right arrow":   "right",
	"up arrow":      "up",
	"down arrow":    "down",
	"page up":       "pageup",
	"page down":     "pagedown",
	"caps lock":     "capslock",
	"num lock":      "num_lock",
	"scroll lock":   "scrolllock",
	"print screen":  "printscreen",
	"numpad 0":      "num0",
	"numpad 1":      "num1",
	"numpad 2":      "num2",
	"numpad 3":      "num3",
	"numpad 4":      "num4",
	"numpad 5":      "num5",
	"numpad 6":      "num6",
	"numpad 7":      "num7",
	"numpad 8":      "num8",
	"numpad 9":      "num9",
	"numpad period": "num.",
	"decimal point": "num.",
}

// ActionKind is the device an action targets.
type ActionKind int

const (
	ActionKey ActionKind = iota + 1
	ActionMouse
)

// Phase tells whether an action is a full press+release or one half of it.
type Phase int

const (
	PhaseFull Phase = iota
	PhaseDown
	PhaseUp
)

func (p Phase) suffix() string {
	switch p {
	case PhaseDown:
		return " " + suffixDown
	case PhaseUp:
		return " " + suffixUp
	}
	return ""
}

// Action is a decoded block label.
type Action struct {
	Kind  ActionKind
	Name  string // Key name or mouse button name (left, right, ...)
	Phase Phase
}

// KeyLabel returns the block label for a key press.
func KeyLabel(name string) string {
	return keyPrefix + name
}

// MouseIdentifier returns the raw identifier of a mouse button.
func MouseIdentifier(button string) string {
	return buttonPrefix + button
}

// MouseLabel returns the block label for a mouse button action.
func MouseLabel(button string, phase Phase) string {
	return MouseIdentifier(button) + phase.suffix()
}

// IsMouseButton reports whether name is a known mouse button.
func IsMouseButton(name string) bool {
	return slices.Contains(mouseButtons, name)
}

// ParseLabel decodes a block label. It returns false for labels the player
// cannot act on.
func ParseLabel(label string) (Action, bool) {
	label = strings.TrimSpace(label)

	switch {
	case strings.HasPrefix(label, keyPrefix):
		name, phase, ok := parseKeyName(strings.TrimSpace(label[len(keyPrefix):]))
		if !ok {
			return Action{}, false
		}
		return Action{Kind: ActionKey, Name: name, Phase: phase}, true

	case strings.HasPrefix(label, buttonPrefix):
		name, phase := splitPhase(label[len(buttonPrefix):])
		name = strings.ToLower(name)
		if !IsMouseButton(name) {
			return Action{}, false
		}
		return Action{Kind: ActionMouse, Name: name, Phase: phase}, true
	}

	return Action{}, false
}

// parseKeyName splits the key part of a label into a name and phase. A
// multi-word legacy name is matched whole before any Down/Up suffix is
// stripped, so "page up" stays a full press of pageup.
func parseKeyName(body string) (string, Phase, bool) {
	if name, ok := spacedKeyNames[strings.ToLower(body)]; ok {
		return name, PhaseFull, true
	}
	name, phase := splitPhase(body)
	if phase != PhaseFull {
		if spaced, ok := spacedKeyNames[strings.ToLower(name)]; ok {
			return spaced, phase, true
		}
	}
	if name == "" || strings.ContainsRune(name, ' ') {
		return "", PhaseFull, false
	}
	return name, phase, true
}

// splitPhase strips a trailing Down/Up word.
func splitPhase(s string) (string, Phase) {
	i := strings.LastIndexByte(s, ' ')
	if i < 0 {
		return s, PhaseFull
	}
	switch last := s[i+1:]; {
	case strings.EqualFold(last, suffixDown):
		return strings.TrimSpace(s[:i]), PhaseDown
	case strings.EqualFold(last, suffixUp):
		return strings.TrimSpace(s[:i]), PhaseUp
	}
	return s, PhaseFull
}

// NewTriggerSpec derives a trigger from a raw hook identifier.
func NewTriggerSpec(raw string) TriggerSpec {
	return TriggerSpec{Raw: raw, Display: DisplayLabel(raw)}
}

// DisplayLabel turns a raw identifier such as "Button.x1" or "Key.f1" into
// a label for the UI.
func DisplayLabel(raw string) string {
	s := strings.TrimPrefix(raw, "Key.")
	s = strings.TrimPrefix(s, buttonPrefix)
	if s == "" {
		return NoTriggerLabel
	}
	return cases.Title(language.Und).String(s)
}
