// Package literal coerces client-supplied value text into interpreter cells.
package literal

import (
	"math"
	"strconv"
	"strings"
)

// Unquote strips surrounding double quotes, matching how clients quote
// string values.
func Unquote(s string) string {
	return strings.ReplaceAll(s, `"`, "")
}

// Int parses a signed 32-bit decimal integer.
func Int(s string) (int32, bool) {
	v, err := strconv.ParseInt(s, 10, 32)
	if err != nil {
		return 0, false
	}
	return int32(v), true
}

// Float parses a 32-bit float.
func Float(s string) (float32, bool) {
	v, err := strconv.ParseFloat(s, 32)
	if err != nil {
		return 0, false
	}
	return float32(v), true
}

// Bool parses the literals true and false.
func Bool(s string) (bool, bool) {
	switch s {
	case "true":
		return true, true
	case "false":
		return false, true
	default:
		return false, false
	}
}

// Cell parses a set-variable value into a raw cell: integer first, then
// float (stored as its IEEE-754 bit pattern), then boolean.
func Cell(s string) (int32, bool) {
	if v, ok := Int(s); ok {
		return v, true
	}
	if v, ok := Float(s); ok {
		return int32(math.Float32bits(v)), true
	}
	if v, ok := Bool(s); ok {
		if v {
			return 1, true
		}
		return 0, true
	}
	return 0, false
}
