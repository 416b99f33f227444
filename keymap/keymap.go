// File: keymap/keymap.go
// Package keymap translates XKB keysyms into portable keyboard codes.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Keyboard codes follow the Windows virtual-key numbering, which is what most
// UI toolkits use as their portable key identifier.

package keymap

import "fmt"

// KeyboardCode is a portable (virtual-key) keyboard code.
type KeyboardCode uint16

const (
	VKEY_UNKNOWN   KeyboardCode = 0x00
	VKEY_BACK      KeyboardCode = 0x08
	VKEY_TAB       KeyboardCode = 0x09
	VKEY_RETURN    KeyboardCode = 0x0D
	VKEY_SHIFT     KeyboardCode = 0x10
	VKEY_CONTROL   KeyboardCode = 0x11
	VKEY_MENU      KeyboardCode = 0x12
	VKEY_PAUSE     KeyboardCode = 0x13
	VKEY_CAPITAL   KeyboardCode = 0x14
	VKEY_ESCAPE    KeyboardCode = 0x1B
	VKEY_SPACE     KeyboardCode = 0x20
	VKEY_PRIOR     KeyboardCode = 0x21
	VKEY_NEXT      KeyboardCode = 0x22
	VKEY_END       KeyboardCode = 0x23
	VKEY_HOME      KeyboardCode = 0x24
	VKEY_LEFT      KeyboardCode = 0x25
	VKEY_UP        KeyboardCode = 0x26
	VKEY_RIGHT     KeyboardCode = 0x27
	VKEY_DOWN      KeyboardCode = 0x28
	VKEY_PRINT     KeyboardCode = 0x2A
	VKEY_INSERT    KeyboardCode = 0x2D
	VKEY_DELETE    KeyboardCode = 0x2E
	VKEY_0         KeyboardCode = 0x30
	VKEY_1         KeyboardCode = 0x31
	VKEY_2         KeyboardCode = 0x32
	VKEY_3         KeyboardCode = 0x33
	VKEY_4         KeyboardCode = 0x34
	VKEY_5         KeyboardCode = 0x35
	VKEY_6         KeyboardCode = 0x36
	VKEY_7         KeyboardCode = 0x37
	VKEY_8         KeyboardCode = 0x38
	VKEY_9         KeyboardCode = 0x39
	VKEY_A         KeyboardCode = 0x41
	VKEY_Z         KeyboardCode = 0x5A
	VKEY_LWIN      KeyboardCode = 0x5B
	VKEY_RWIN      KeyboardCode = 0x5C
	VKEY_APPS      KeyboardCode = 0x5D
	VKEY_NUMPAD0   KeyboardCode = 0x60
	VKEY_MULTIPLY  KeyboardCode = 0x6A
	VKEY_ADD       KeyboardCode = 0x6B
	VKEY_SEPARATOR KeyboardCode = 0x6C
	VKEY_SUBTRACT  KeyboardCode = 0x6D
	VKEY_DECIMAL   KeyboardCode = 0x6E
	VKEY_DIVIDE    KeyboardCode = 0x6F
	VKEY_F1        KeyboardCode = 0x70
	VKEY_F24       KeyboardCode = 0x87
	VKEY_NUMLOCK   KeyboardCode = 0x90
	VKEY_SCROLL    KeyboardCode = 0x91
	VKEY_OEM_1     KeyboardCode = 0xBA
	VKEY_OEM_PLUS  KeyboardCode = 0xBB
	VKEY_OEM_COMMA KeyboardCode = 0xBC
	VKEY_OEM_MINUS KeyboardCode = 0xBD
	VKEY_OEM_PERIOD KeyboardCode = 0xBE
	VKEY_OEM_2     KeyboardCode = 0xBF
	VKEY_OEM_3     KeyboardCode = 0xC0
	VKEY_OEM_4     KeyboardCode = 0xDB
	VKEY_OEM_5     KeyboardCode = 0xDC
	VKEY_OEM_6     KeyboardCode = 0xDD
	VKEY_OEM_7     KeyboardCode = 0xDE
)

// XKB keysym ranges handled arithmetically.
const (
	xkLowerA  = 0x0061
	xkLowerZ  = 0x007a
	xkUpperA  = 0x0041
	xkUpperZ  = 0x005a
	xkDigit0  = 0x0030
	xkDigit9  = 0x0039
	xkKP0     = 0xffb0
	xkKP9     = 0xffb9
	xkF1      = 0xffbe
	xkF24     = 0xffd5
)

// fixed holds the keysyms that do not fall into a contiguous range.
var fixed = map[uint32]KeyboardCode{
	0xff08: VKEY_BACK,    // BackSpace
	0xff09: VKEY_TAB,     // Tab
	0xfe20: VKEY_TAB,     // ISO_Left_Tab
	0xff0d: VKEY_RETURN,  // Return
	0xff8d: VKEY_RETURN,  // KP_Enter
	0xff13: VKEY_PAUSE,   // Pause
	0xff14: VKEY_SCROLL,  // Scroll_Lock
	0xff1b: VKEY_ESCAPE,  // Escape
	0xffff: VKEY_DELETE,  // Delete
	0xff9f: VKEY_DELETE,  // KP_Delete
	0xff50: VKEY_HOME,    // Home
	0xff95: VKEY_HOME,    // KP_Home
	0xff51: VKEY_LEFT,    // Left
	0xff96: VKEY_LEFT,    // KP_Left
	0xff52: VKEY_UP,      // Up
	0xff97: VKEY_UP,      // KP_Up
	0xff53: VKEY_RIGHT,   // Right
	0xff98: VKEY_RIGHT,   // KP_Right
	0xff54: VKEY_DOWN,    // Down
	0xff99: VKEY_DOWN,    // KP_Down
	0xff55: VKEY_PRIOR,   // Page_Up
	0xff9a: VKEY_PRIOR,   // KP_Page_Up
	0xff56: VKEY_NEXT,    // Page_Down
	0xff9b: VKEY_NEXT,    // KP_Page_Down
	0xff57: VKEY_END,     // End
	0xff9c: VKEY_END,     // KP_End
	0xff63: VKEY_INSERT,  // Insert
	0xff9e: VKEY_INSERT,  // KP_Insert
	0xff61: VKEY_PRINT,   // Print
	0xff67: VKEY_APPS,    // Menu
	0xff7f: VKEY_NUMLOCK, // Num_Lock
	0xffe1: VKEY_SHIFT,   // Shift_L
	0xffe2: VKEY_SHIFT,   // Shift_R
	0xffe3: VKEY_CONTROL, // Control_L
	0xffe4: VKEY_CONTROL, // Control_R
	0xffe5: VKEY_CAPITAL, // Caps_Lock
	0xffe7: VKEY_MENU,    // Meta_L
	0xffe8: VKEY_MENU,    // Meta_R
	0xffe9: VKEY_MENU,    // Alt_L
	0xffea: VKEY_MENU,    // Alt_R
	0xffeb: VKEY_LWIN,    // Super_L
	0xffec: VKEY_RWIN,    // Super_R
	0xffaa: VKEY_MULTIPLY,
	0xffab: VKEY_ADD,
	0xffac: VKEY_SEPARATOR,
	0xffad: VKEY_SUBTRACT,
	0xffae: VKEY_DECIMAL,
	0xffaf: VKEY_DIVIDE,
	0x0020: VKEY_SPACE,

	// shifted digits share the digit key
	0x0021: VKEY_1, // exclam
	0x0040: VKEY_2, // at
	0x0023: VKEY_3, // numbersign
	0x0024: VKEY_4, // dollar
	0x0025: VKEY_5, // percent
	0x005e: VKEY_6, // asciicircum
	0x0026: VKEY_7, // ampersand
	0x002a: VKEY_8, // asterisk
	0x0028: VKEY_9, // parenleft
	0x0029: VKEY_0, // parenright

	0x003b: VKEY_OEM_1, 0x003a: VKEY_OEM_1, // semicolon colon
	0x003d: VKEY_OEM_PLUS, 0x002b: VKEY_OEM_PLUS, // equal plus
	0x002c: VKEY_OEM_COMMA, 0x003c: VKEY_OEM_COMMA, // comma less
	0x002d: VKEY_OEM_MINUS, 0x005f: VKEY_OEM_MINUS, // minus underscore
	0x002e: VKEY_OEM_PERIOD, 0x003e: VKEY_OEM_PERIOD, // period greater
	0x002f: VKEY_OEM_2, 0x003f: VKEY_OEM_2, // slash question
	0x0060: VKEY_OEM_3, 0x007e: VKEY_OEM_3, // grave asciitilde
	0x005b: VKEY_OEM_4, 0x007b: VKEY_OEM_4, // bracketleft braceleft
	0x005c: VKEY_OEM_5, 0x007c: VKEY_OEM_5, // backslash bar
	0x005d: VKEY_OEM_6, 0x007d: VKEY_OEM_6, // bracketright braceright
	0x0027: VKEY_OEM_7, 0x0022: VKEY_OEM_7, // apostrophe quotedbl
}

// FromKeysym maps an XKB keysym to a KeyboardCode, VKEY_UNKNOWN if unmapped.
func FromKeysym(sym uint32) KeyboardCode {
	switch {
	case sym >= xkLowerA && sym <= xkLowerZ:
		return VKEY_A + KeyboardCode(sym-xkLowerA)
	case sym >= xkUpperA && sym <= xkUpperZ:
		return VKEY_A + KeyboardCode(sym-xkUpperA)
	case sym >= xkDigit0 && sym <= xkDigit9:
		return VKEY_0 + KeyboardCode(sym-xkDigit0)
	case sym >= xkKP0 && sym <= xkKP9:
		return VKEY_NUMPAD0 + KeyboardCode(sym-xkKP0)
	case sym >= xkF1 && sym <= xkF24:
		return VKEY_F1 + KeyboardCode(sym-xkF1)
	}
	if code, ok := fixed[sym]; ok {
		return code
	}
	return VKEY_UNKNOWN
}

// String renders the code in hex, e.g. "VKEY(0x41)".
func (c KeyboardCode) String() string {
	return fmt.Sprintf("VKEY(0x%02X)", uint16(c))
}

// Translator adapts FromKeysym to the api.KeyTranslator contract.
type Translator struct{}

// Translate implements api.KeyTranslator.
func (Translator) Translate(code uint32) KeyboardCode {
	return FromKeysym(code)
}
