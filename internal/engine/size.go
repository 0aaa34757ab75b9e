package engine

import (
	"strconv"
	"strings"
)

// Size thresholds used by the suggestion scorer.
const (
	sizeLarge  = 1024 * 1024 * 1024 // 1 GiB
	sizeMedium = 500 * 1024 * 1024  // 500 MiB
	sizeSmall  = 100 * 1024 * 1024  // 100 MiB
)

// ParseSize converts a human-readable CLI size string ("1.5GB", "500MB",
// "0B", "132kB (virtual 1.2GB)") to bytes. The leading numeric run (digits
// and at most one decimal point) is paired with the first alphabetic run as
// the unit. Units are case-insensitive powers of 1024; an unknown unit means
// the number is taken as raw bytes. This is deliberately lenient — scan rows
// must never fail on a size column.
func ParseSize(s string) uint64 {
	s = strings.TrimSpace(s)
	if s == "" || s == "0" || s == "0B" {
		return 0
	}

	var num, unit strings.Builder
	sawDot := false
	inUnit := false
	for _, c := range s {
		switch {
		case !inUnit && (c >= '0' && c <= '9'):
			num.WriteRune(c)
		case !inUnit && c == '.' && !sawDot:
			sawDot = true
			num.WriteRune(c)
		case c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z':
			inUnit = true
			unit.WriteRune(c)
		default:
			if inUnit {
				// Stop at the first thing after the unit, e.g.
				// " (virtual 1.2GB)".
				return applyUnit(num.String(), unit.String())
			}
		}
	}
	return applyUnit(num.String(), unit.String())
}

func applyUnit(num, unit string) uint64 {
	n, err := strconv.ParseFloat(num, 64)
	if err != nil {
		return 0
	}

	var mult float64
	switch strings.ToUpper(unit) {
	case "", "B":
		mult = 1
	case "KB", "K", "KIB":
		mult = 1024
	case "MB", "M", "MIB":
		mult = 1024 * 1024
	case "GB", "G", "GIB":
		mult = 1024 * 1024 * 1024
	case "TB", "T", "TIB":
		mult = 1024 * 1024 * 1024 * 1024
	default:
		mult = 1
	}
	return uint64(n * mult)
}

// FormatSize renders bytes in human-readable form for outcome messages and
// suggestion reasons.
func FormatSize(bytes uint64) string {
	const (
		kb = 1024
		mb = kb * 1024
		gb = mb * 1024
		tb = gb * 1024
	)
	switch {
	case bytes >= tb:
		return formatUnit(bytes, tb, "TB")
	case bytes >= gb:
		return formatUnit(bytes, gb, "GB")
	case bytes >= mb:
		return formatUnit(bytes, mb, "MB")
	case bytes >= kb:
		return formatUnit(bytes, kb, "KB")
	default:
		return strconv.FormatUint(bytes, 10) + " B"
	}
}

func formatUnit(bytes, unit uint64, suffix string) string {
	return strconv.FormatFloat(float64(bytes)/float64(unit), 'f', 1, 64) + " " + suffix
}

// parseReclaimedSpace extracts the freed byte count from a prune command's
// "Total reclaimed space: 1.5GB" style output line.
func parseReclaimedSpace(output string) uint64 {
	for _, line := range strings.Split(output, "\n") {
		lower := strings.ToLower(line)
		if !strings.Contains(lower, "reclaimed") && !strings.Contains(lower, "freed") {
			continue
		}
		if _, after, ok := strings.Cut(line, ":"); ok {
			if n := ParseSize(strings.TrimSpace(after)); n > 0 {
				return n
			}
		}
		// Fall back to any digit+unit word on the line.
		for _, word := range strings.Fields(line) {
			if strings.ContainsAny(word, "0123456789") && containsAlpha(word) {
				if n := ParseSize(word); n > 0 {
					return n
				}
			}
		}
	}
	return 0
}

// countDeletedItems counts deletion confirmations in prune output: lines
// starting with a "Deleted" marker or bare content-hash lines.
func countDeletedItems(output string) int {
	count := 0
	for _, line := range strings.Split(output, "\n") {
		if strings.HasPrefix(strings.ToLower(line), "deleted") ||
			strings.HasPrefix(line, "sha256:") {
			count++
		}
	}
	return count
}

func containsAlpha(s string) bool {
	for _, c := range s {
		if c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' {
			return true
		}
	}
	return false
}
