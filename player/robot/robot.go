// Package robot synthesizes keyboard and mouse input with robotgo.
package robot

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-vgo/robotgo"
)

// ErrUnsupportedButton is returned for mouse buttons robotgo cannot press.
var ErrUnsupportedButton = errors.New("unsupported mouse button")

// keyAliases maps hook and legacy key names to robotgo key names.
var keyAliases = map[string]string{
	"escape":       "esc",
	"return":       "enter",
	"control":      "ctrl",
	"option":       "alt",
	"meta":         "cmd",
	"super":        "cmd",
	"win":          "cmd",
	"command":      "cmd",
	"ctrl_l":       "lctrl",
	"ctrl_r":       "rctrl",
	"shift_l":      "lshift",
	"shift_r":      "rshift",
	"alt_l":        "lalt",
	"alt_r":        "ralt",
	"alt_gr":       "ralt",
	"cmd_l":        "lcmd",
	"cmd_r":        "rcmd",
	"page_up":      "pageup",
	"page_down":    "pagedown",
	"caps_lock":    "capslock",
	"print_screen": "printscreen",
	"spacebar":     "space",
	"l-super":      "lcmd",
	"r-super":      "rcmd",
	"altgr":        "ralt",
	"apps":         "menu",
	"pause/break":  "pause",
	"multiply":     "num*",
	"add":          "num+",
	"subtract":     "num-",
	"divide":       "num/",
}

var buttonNames = map[string]string{
	"left":   "left",
	"right":  "right",
	"middle": "center",
}

// Synth implements player.Synthesizer on top of robotgo.
type Synth struct{}

// New returns a robotgo synthesizer.
func New() *Synth {
	return &Synth{}
}

func (*Synth) KeyDown(key string) error {
	return robotgo.KeyToggle(KeyName(key), "down")
}

func (*Synth) KeyUp(key string) error {
	return robotgo.KeyToggle(KeyName(key), "up")
}

func (*Synth) MouseDown(button string) error {
	b, err := buttonName(button)
	if err != nil {
		return err
	}
	return robotgo.Toggle(b, "down")
}

func (*Synth) MouseUp(button string) error {
	b, err := buttonName(button)
	if err != nil {
		return err
	}
	return robotgo.Toggle(b, "up")
}

// KeyName normalizes a recorded key name for robotgo. Files written by
// older recorders use "Key.<name>" style names.
func KeyName(name string) string {
	name = strings.TrimPrefix(name, "Key.")
	if len([]rune(name)) > 1 {
		name = strings.ToLower(name)
	}
	if alias, ok := keyAliases[name]; ok {
		return alias
	}
	return name
}

func buttonName(button string) (string, error) {
	if b, ok := buttonNames[button]; ok {
		return b, nil
	}
	return "", fmt.Errorf("%w: %s", ErrUnsupportedButton, button)
}
