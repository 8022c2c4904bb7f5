package util

import (
	"regexp"
	"strings"
)

var pairingCodeRegex = regexp.MustCompile(`^[A-Z0-9]{6}$`)

// NormalizeCode trims whitespace and uppercases user-entered codes, so
// "  7k2m9x " matches the stored "7K2M9X".
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// IsValidPairingCode reports whether a normalized code has the exact shape
// issued codes have. Malformed codes are rejected before any store access.
func IsValidPairingCode(code string) bool {
	return pairingCodeRegex.MatchString(code)
}
