package hook

import (
	"fmt"
	"maps"
	"slices"
)

// keyNames maps libuiohook virtual key codes to robotgo key names. Keycodes
// are scancode based and identical on every platform, unlike rawcodes.
var keyNames = map[uint16]string{
	0x0001: "esc",
	0x003B: "f1",
	0x003C: "f2",
	0x003D: "f3",
	0x003E: "f4",
	0x003F: "f5",
	0x0040: "f6",
	0x0041: "f7",
	0x0042: "f8",
	0x0043: "f9",
	0x0044: "f10",
	0x0057: "f11",
	0x0058: "f12",
	0x005B: "f13",
	0x005C: "f14",
	0x005D: "f15",
	0x0063: "f16",
	0x0064: "f17",
	0x0065: "f18",
	0x0066: "f19",
	0x0067: "f20",
	0x0068: "f21",
	0x0069: "f22",
	0x006A: "f23",
	0x006B: "f24",

	0x0029: "`",
	0x0002: "1",
	0x0003: "2",
	0x0004: "3",
	0x0005: "4",
	0x0006: "5",
	0x0007: "6",
	0x0008: "7",
	0x0009: "8",
	0x000A: "9",
	0x000B: "0",
	0x000C: "-",
	0x000D: "=",
	0x000E: "backspace",

	0x000F: "tab",
	0x003A: "capslock",

	0x001E: "a",
	0x0030: "b",
	0x002E: "c",
	0x0020: "d",
	0x0012: "e",
	0x0021: "f",
	0x0022: "g",
	0x0023: "h",
	0x0017: "i",
	0x0024: "j",
	0x0025: "k",
	0x0026: "l",
	0x0032: "m",
	0x0031: "n",
	0x0018: "o",
	0x0019: "p",
	0x0010: "q",
	0x0013: "r",
	0x001F: "s",
	0x0014: "t",
	0x0016: "u",
	0x002F: "v",
	0x0011: "w",
	0x002D: "x",
	0x0015: "y",
	0x002C: "z",

	0x001A: "[",
	0x001B: "]",
	0x002B: "\\",
	0x0027: ";",
	0x0028: "'",
	0x001C: "enter",
	0x0033: ",",
	0x0034: ".",
	0x0035: "/",
	0x0039: "space",

	0x0E37: "printscreen",
	0x0046: "scrolllock",
	0x0E45: "pause",

	0x0E52: "insert",
	0x0E53: "delete",
	0x0E47: "home",
	0x0E4F: "end",
	0x0E49: "pageup",
	0x0E51: "pagedown",

	0xE048: "up",
	0xE04B: "left",
	0xE04D: "right",
	0xE050: "down",

	0x0045: "num_lock",
	0x0E35: "num/",
	0x0037: "num*",
	0x004A: "num-",
	0x0E0D: "num_equal",
	0x004E: "num+",
	0x0E1C: "num_enter",
	0x0053: "num.",
	0xE04C: "num_clear",
	0x0052: "num0",
	0x004F: "num1",
	0x0050: "num2",
	0x0051: "num3",
	0x004B: "num4",
	0x004C: "num5",
	0x004D: "num6",
	0x0047: "num7",
	0x0048: "num8",
	0x0049: "num9",

	0x002A: "lshift",
	0x0036: "rshift",
	0x001D: "lctrl",
	0x0E1D: "rctrl",
	0x0038: "lalt",
	0x0E38: "ralt",
	0x0E5B: "lcmd",
	0x0E5C: "rcmd",
	0x0E5D: "menu",
}

// KeyNames returns every key name the hook can report, sorted.
func KeyNames() []string {
	return slices.Sorted(maps.Values(keyNames))
}

// keyName names a key by its virtual key code. Unknown codes keep a
// stable, space-free name so they still round-trip through block labels.
func keyName(keycode uint16) string {
	if name, ok := keyNames[keycode]; ok {
		return name
	}
	return fmt.Sprintf("vc%d", keycode)
}
