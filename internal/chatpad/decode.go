package chatpad

import (
	"strconv"
	"unicode"
)

type KeyKind int

const (
	KindUnknown KeyKind = iota
	KindChar
	KindSpecial
)

const unknownKey = "unknown"

// KeyEvent is a decoded key report.
type KeyEvent struct {
	Kind     KeyKind
	Char     rune   // set for KindChar
	Name     string // set for KindSpecial
	Modifier Modifier
	Code     KeyCode
}

func (e KeyEvent) String() string {
	switch e.Kind {
	case KindChar:
		return string(e.Char)
	case KindSpecial:
		return e.Name
	}
	return unknownKey
}

// Quoted is String in a form safe for log lines, escaping control runes.
func (e KeyEvent) Quoted() string {
	if e.Kind == KindChar {
		return strconv.QuoteRune(e.Char)
	}
	return e.String()
}

func (e KeyEvent) Unknown() bool { return e.Kind == KindUnknown }

// Idle reports whether the event carries neither a modifier nor a key.
func (e KeyEvent) Idle() bool { return e.Modifier == ModNone && e.Code == 0 }

var modifierNames = map[Modifier]string{
	ModShift:  "Shift",
	ModGreen:  "Green",
	ModOrange: "Orange",
	ModPeople: "People",
}

// Decode maps a scan code and modifier to a key event. It is defined for
// every input and reports misses as KindUnknown.
func Decode(code KeyCode, mod Modifier) KeyEvent {
	ev := KeyEvent{Kind: KindUnknown, Modifier: mod, Code: code}

	if base, ok := code.Base(); ok {
		switch mod {
		case ModOrange, ModGreen:
			if r, ok := mod.Layer(base); ok {
				ev.Kind, ev.Char = KindChar, r
			}
		case ModNone:
			ev.Kind, ev.Char = KindChar, base
			if unicode.IsPrint(base) {
				ev.Char = unicode.ToLower(base)
			}
		default:
			ev.Kind, ev.Char = KindChar, base
		}
		return ev
	}

	if code == 0 {
		if name, ok := modifierNames[mod]; ok {
			ev.Kind, ev.Name = KindSpecial, name
		}
	}
	return ev
}
