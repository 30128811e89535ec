package chatpad

import "fmt"

// Control runes stored in the key grid.
const (
	KeyBackspace rune = 0x08
	KeyEnter     rune = '\r'
	KeyLeft      rune = 0x11
	KeyRight     rune = 0x12
)

const (
	gridRows = 7
	gridCols = 7
)

// keyMap is indexed [row-1][col-1]. '?' marks positions with no legend.
var keyMap = [gridRows][gridCols]rune{
	{'7', '6', '5', '4', '3', '2', '1'},
	{'U', 'Y', 'T', 'R', 'E', 'W', 'Q'},
	{'J', 'H', 'G', 'F', 'D', 'S', 'A'},
	{'N', 'B', 'V', 'C', 'X', 'Z', '?'},
	{KeyRight, 'M', '.', ' ', KeyLeft, '?', '?'},
	{'?', ',', KeyEnter, 'P', '0', '9', '8'},
	{KeyBackspace, 'L', '?', '?', 'O', 'I', 'K'},
}

var orangeMap = map[rune]rune{
	'R': '$', 'P': '=', ',': ';', 'J': '"', 'H': '\\', 'V': '_', 'B': '+',
}

var greenMap = map[rune]rune{
	'Q': '!', 'W': '@', 'R': '#', 'T': '%', 'Y': '^', 'U': '&', 'I': '*', 'O': '(',
	'P': ')', 'A': '~', 'D': '{', 'F': '}', 'H': '/', 'J': '\'', 'K': '[', 'L': ']',
	',': ':', 'Z': '`', 'V': '-', 'B': '|', 'N': '<', 'M': '>', '.': '?',
}

// KeyCode is the scan code carried in byte 4 of a key report.
type KeyCode byte

func (c KeyCode) Row() int { return int(c >> 4) }
func (c KeyCode) Col() int { return int(c & 0xF) }

// Valid reports whether the code addresses a cell of the 7x7 matrix.
func (c KeyCode) Valid() bool {
	r, col := c.Row(), c.Col()
	return r >= 1 && r <= gridRows && col >= 1 && col <= gridCols
}

// Base returns the legend printed on the key, if the code is on the grid.
func (c KeyCode) Base() (rune, bool) {
	if !c.Valid() {
		return 0, false
	}
	return keyMap[c.Row()-1][c.Col()-1], true
}

// Modifier is the value carried in byte 3 of a key report. The pad reports a
// single modifier at a time, so it is compared by equality rather than as a mask.
type Modifier byte

const (
	ModNone   Modifier = 0
	ModShift  Modifier = 1
	ModGreen  Modifier = 2
	ModOrange Modifier = 4
	ModPeople Modifier = 8

	// modCapsLockChord is what the pad sends for Shift and Orange held together.
	modCapsLockChord Modifier = ModShift | ModOrange
)

func (m Modifier) String() string {
	switch m {
	case ModNone:
		return "None"
	case ModShift:
		return "Shift"
	case ModGreen:
		return "Green"
	case ModOrange:
		return "Orange"
	case ModPeople:
		return "People"
	}
	return fmt.Sprintf("Modifier(0x%02x)", byte(m))
}

// Layer looks up the symbol the modifier places on base. Only Green and Orange
// have layers; ok is false when no symbol is defined.
func (m Modifier) Layer(base rune) (r rune, ok bool) {
	switch m {
	case ModOrange:
		r, ok = orangeMap[base]
	case ModGreen:
		r, ok = greenMap[base]
	}
	return r, ok
}
