package inspect

import (
	"fmt"
	"math"
	"strings"
	"unicode"
)

// FormatCell renders one cell value according to its display hint.
func FormatCell(value int32, hint Hint) string {
	switch hint {
	case HintFloat:
		return fmt.Sprintf("%f", math.Float32frombits(uint32(value)))
	case HintFixed:
		const multiplier = 1000
		ipart := value / multiplier
		frac := value - multiplier*ipart
		if frac < 0 {
			frac = -frac
		}
		return fmt.Sprintf("%d.%03d", ipart, frac)
	case HintHex:
		return fmt.Sprintf("%x", uint32(value))
	case HintBool:
		switch value {
		case 0:
			return "false"
		case 1:
			return "true"
		default:
			return fmt.Sprintf("%d (true)", value)
		}
	default:
		return fmt.Sprintf("%d", value)
	}
}

// cellAny converts a cell to the value placed into structured (JSON) output.
func cellAny(value int32, hint Hint) any {
	switch hint {
	case HintFloat:
		return math.Float32frombits(uint32(value))
	case HintBool:
		return value != 0
	case HintHex, HintFixed:
		return FormatCell(value, hint)
	default:
		return value
	}
}

// hintForTag maps declared tag names to display hints.
func hintForTag(tag string) (Hint, bool) {
	switch strings.ToLower(tag) {
	case "bool":
		return HintBool, true
	case "float":
		return HintFloat, true
	case "fixed":
		return HintFixed, true
	case "hex":
		return HintHex, true
	case "string", "char":
		return HintString, true
	default:
		return HintPlain, false
	}
}

// looksLikeString reports whether raw content of an untagged character array
// reads as text: printable throughout and starting with a letter.
func looksLikeString(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		if i == 0 && !unicode.IsLetter(r) {
			return false
		}
		if r < ' ' && r != '\n' && r != '\r' && r != '\t' {
			return false
		}
	}
	return true
}
