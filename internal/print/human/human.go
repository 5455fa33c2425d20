// Package human provides types that support parsing and formatting
// human-friendly representations of values in various units.
//
// The types implement the encoding and flag interfaces so they can be used
// directly in configuration structs and on the command line:
//
//	type storeConfig struct {
//		Location         Path
//		CompactThreshold Bytes
//	}
//	...
//	config := storeConfig{
//		Location:         "~/.stablefs/store.mem",
//		CompactThreshold: 64 * MiB,
//	}
package human

import (
	"strconv"
	"strings"
	"unicode"
)

// parseUnit splits s into its numeric head and the trailing unit letters.
func parseUnit(s string) (head, unit string) {
	s = strings.TrimSpace(s)
	i := strings.LastIndexFunc(s, func(r rune) bool {
		return !unicode.IsLetter(r)
	})
	return strings.TrimRightFunc(s[:i+1], unicode.IsSpace), s[i+1:]
}

// matchUnit reports whether s is a case insensitive prefix of unit.
func matchUnit(s, unit string) bool {
	return len(s) <= len(unit) && strings.EqualFold(s, unit[:len(s)])
}

// ftoa formats f with three significant digits at most, without trailing
// zeros.
func ftoa(f float64) string {
	prec := 2
	switch {
	case f >= 100:
		prec = 0
	case f >= 10:
		prec = 1
	}
	s := strconv.FormatFloat(f, 'f', prec, 64)
	if strings.Contains(s, ".") {
		s = strings.TrimRight(s, "0")
		s = strings.TrimSuffix(s, ".")
	}
	return s
}
