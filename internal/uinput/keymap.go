package uinput

import "unicode"

// Linux input key codes used by the chatpad layout.
const (
	KEY_RESERVED   = 0
	KEY_ESC        = 1
	KEY_1          = 2
	KEY_2          = 3
	KEY_3          = 4
	KEY_4          = 5
	KEY_5          = 6
	KEY_6          = 7
	KEY_7          = 8
	KEY_8          = 9
	KEY_9          = 10
	KEY_0          = 11
	KEY_MINUS      = 12
	KEY_EQUAL      = 13
	KEY_BACKSPACE  = 14
	KEY_TAB        = 15
	KEY_Q          = 16
	KEY_W          = 17
	KEY_E          = 18
	KEY_R          = 19
	KEY_T          = 20
	KEY_Y          = 21
	KEY_U          = 22
	KEY_I          = 23
	KEY_O          = 24
	KEY_P          = 25
	KEY_LEFTBRACE  = 26
	KEY_RIGHTBRACE = 27
	KEY_ENTER      = 28
	KEY_LEFTCTRL   = 29
	KEY_A          = 30
	KEY_S          = 31
	KEY_D          = 32
	KEY_F          = 33
	KEY_G          = 34
	KEY_H          = 35
	KEY_J          = 36
	KEY_K          = 37
	KEY_L          = 38
	KEY_SEMICOLON  = 39
	KEY_APOSTROPHE = 40
	KEY_GRAVE      = 41
	KEY_LEFTSHIFT  = 42
	KEY_BACKSLASH  = 43
	KEY_Z          = 44
	KEY_X          = 45
	KEY_C          = 46
	KEY_V          = 47
	KEY_B          = 48
	KEY_N          = 49
	KEY_M          = 50
	KEY_COMMA      = 51
	KEY_DOT        = 52
	KEY_SLASH      = 53
	KEY_SPACE      = 57
	KEY_LEFT       = 105
	KEY_RIGHT      = 106
)

// Stroke is one key press on a US layout, optionally with shift held.
type Stroke struct {
	Code  uint16
	Shift bool
}

var letterKeys = [26]uint16{
	KEY_A, KEY_B, KEY_C, KEY_D, KEY_E, KEY_F, KEY_G, KEY_H, KEY_I, KEY_J, KEY_K, KEY_L, KEY_M,
	KEY_N, KEY_O, KEY_P, KEY_Q, KEY_R, KEY_S, KEY_T, KEY_U, KEY_V, KEY_W, KEY_X, KEY_Y, KEY_Z,
}

var digitKeys = [10]uint16{KEY_0, KEY_1, KEY_2, KEY_3, KEY_4, KEY_5, KEY_6, KEY_7, KEY_8, KEY_9}

// symbols reachable on the chatpad through its Green and Orange layers.
var symbolKeys = map[rune]Stroke{
	' ':  {KEY_SPACE, false},
	'\r': {KEY_ENTER, false},
	'\n': {KEY_ENTER, false},
	'\t': {KEY_TAB, false},
	0x08: {KEY_BACKSPACE, false},
	0x11: {KEY_LEFT, false},
	0x12: {KEY_RIGHT, false},
	0x1b: {KEY_ESC, false},

	'-': {KEY_MINUS, false}, '_': {KEY_MINUS, true},
	'=': {KEY_EQUAL, false}, '+': {KEY_EQUAL, true},
	'[': {KEY_LEFTBRACE, false}, '{': {KEY_LEFTBRACE, true},
	']': {KEY_RIGHTBRACE, false}, '}': {KEY_RIGHTBRACE, true},
	';': {KEY_SEMICOLON, false}, ':': {KEY_SEMICOLON, true},
	'\'': {KEY_APOSTROPHE, false}, '"': {KEY_APOSTROPHE, true},
	'`': {KEY_GRAVE, false}, '~': {KEY_GRAVE, true},
	'\\': {KEY_BACKSLASH, false}, '|': {KEY_BACKSLASH, true},
	',': {KEY_COMMA, false}, '<': {KEY_COMMA, true},
	'.': {KEY_DOT, false}, '>': {KEY_DOT, true},
	'/': {KEY_SLASH, false}, '?': {KEY_SLASH, true},

	'!': {KEY_1, true}, '@': {KEY_2, true}, '#': {KEY_3, true}, '$': {KEY_4, true},
	'%': {KEY_5, true}, '^': {KEY_6, true}, '&': {KEY_7, true}, '*': {KEY_8, true},
	'(': {KEY_9, true}, ')': {KEY_0, true},
}

// StrokeFor maps a character to the key press that types it.
func StrokeFor(r rune) (Stroke, bool) {
	switch {
	case r >= 'a' && r <= 'z':
		return Stroke{Code: letterKeys[r-'a']}, true
	case r >= 'A' && r <= 'Z':
		return Stroke{Code: letterKeys[unicode.ToLower(r)-'a'], Shift: true}, true
	case r >= '0' && r <= '9':
		return Stroke{Code: digitKeys[r-'0']}, true
	}
	s, ok := symbolKeys[r]
	return s, ok
}

// registeredKeys lists every code the virtual device has to announce.
func registeredKeys() []uint16 {
	seen := map[uint16]bool{KEY_LEFTSHIFT: true}
	keys := []uint16{KEY_LEFTSHIFT}
	add := func(c uint16) {
		if !seen[c] {
			seen[c] = true
			keys = append(keys, c)
		}
	}
	for _, c := range letterKeys {
		add(c)
	}
	for _, c := range digitKeys {
		add(c)
	}
	for _, s := range symbolKeys {
		add(s.Code)
	}
	return keys
}
