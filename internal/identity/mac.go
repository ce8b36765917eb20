package identity

import (
	"regexp"
	"strings"
)

// macPattern is the canonical form: six lowercase hex pairs joined by colons.
var macPattern = regexp.MustCompile(`^([0-9a-f]{2}:){5}[0-9a-f]{2}$`)

// zeroMAC is the all-zero sentinel some stacks report for unresolved
// neighbors. Never a real device.
const zeroMAC = "00:00:00:00:00:00"

// CanonicalMAC normalizes a MAC address candidate to lowercase colon-hex
// form. It accepts colon, dash and dot separators as well as bare hex.
// Returns ok=false for malformed input and for the all-zero sentinel.
func CanonicalMAC(s string) (string, bool) {
	raw := strings.ToLower(strings.TrimSpace(s))
	raw = strings.ReplaceAll(raw, ":", "")
	raw = strings.ReplaceAll(raw, "-", "")
	raw = strings.ReplaceAll(raw, ".", "")
	if len(raw) != 12 {
		return "", false
	}

	parts := make([]string, 0, 6)
	for i := 0; i < 12; i += 2 {
		parts = append(parts, raw[i:i+2])
	}
	mac := strings.Join(parts, ":")

	if !macPattern.MatchString(mac) || mac == zeroMAC {
		return "", false
	}
	return mac, true
}

// ValidMAC reports whether s is six hex pairs joined by colons, in either
// case, and not the all-zero sentinel. Unlike CanonicalMAC it does not
// tolerate other separator styles.
func ValidMAC(s string) bool {
	lower := strings.ToLower(s)
	return macPattern.MatchString(lower) && lower != zeroMAC
}
