package keyboard

// Linux input event codes used by the translator.
const (
	evKey = 0x01

	keyLeftShift  = 42
	keyRightShift = 54

	keyReleased = 0
	keyPressed  = 1
)

type keyPair struct {
	plain   string
	shifted string
}

// usLayout maps evdev key codes to the characters a US keyboard produces.
// Badge scanners in keyboard-wedge mode emit through this layout.
var usLayout = map[uint16]keyPair{
	2: {"1", "!"}, 3: {"2", "@"}, 4: {"3", "#"}, 5: {"4", "$"}, 6: {"5", "%"},
	7: {"6", "^"}, 8: {"7", "&"}, 9: {"8", "*"}, 10: {"9", "("}, 11: {"0", ")"},
	12: {"-", "_"}, 13: {"=", "+"},
	15: {"\t", "\t"},
	16: {"q", "Q"}, 17: {"w", "W"}, 18: {"e", "E"}, 19: {"r", "R"}, 20: {"t", "T"},
	21: {"y", "Y"}, 22: {"u", "U"}, 23: {"i", "I"}, 24: {"o", "O"}, 25: {"p", "P"},
	26: {"[", "{"}, 27: {"]", "}"},
	28: {"\n", "\n"},
	30: {"a", "A"}, 31: {"s", "S"}, 32: {"d", "D"}, 33: {"f", "F"}, 34: {"g", "G"},
	35: {"h", "H"}, 36: {"j", "J"}, 37: {"k", "K"}, 38: {"l", "L"},
	39: {";", ":"}, 40: {"'", "\""}, 41: {"`", "~"}, 43: {"\\", "|"},
	44: {"z", "Z"}, 45: {"x", "X"}, 46: {"c", "C"}, 47: {"v", "V"}, 48: {"b", "B"},
	49: {"n", "N"}, 50: {"m", "M"},
	51: {",", "<"}, 52: {".", ">"}, 53: {"/", "?"},
	55: {"*", "*"}, 57: {" ", " "},
	71: {"7", "7"}, 72: {"8", "8"}, 73: {"9", "9"}, 74: {"-", "-"},
	75: {"4", "4"}, 76: {"5", "5"}, 77: {"6", "6"}, 78: {"+", "+"},
	79: {"1", "1"}, 80: {"2", "2"}, 81: {"3", "3"}, 82: {"0", "0"}, 83: {".", "."},
	96: {"\n", "\n"}, 98: {"/", "/"},
}

// translator tracks modifier state across events from one device.
type translator struct {
	leftShift  bool
	rightShift bool
}

// feed consumes one input event and returns the produced key, if any.
func (t *translator) feed(ev inputEvent) (string, bool) {
	if ev.Type != evKey {
		return "", false
	}
	switch ev.Code {
	case keyLeftShift:
		t.leftShift = ev.Value != keyReleased
		return "", false
	case keyRightShift:
		t.rightShift = ev.Value != keyReleased
		return "", false
	}
	if ev.Value != keyPressed {
		return "", false
	}
	pair, ok := usLayout[ev.Code]
	if !ok {
		return "", false
	}
	if t.leftShift || t.rightShift {
		return pair.shifted, true
	}
	return pair.plain, true
}
