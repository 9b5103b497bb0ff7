package tags

import (
	"sort"
	"strings"
)

const maxTagLength = 32

func Normalize(tag string) string {
	return strings.ToLower(strings.TrimSpace(tag))
}

// IsValid accepts short lowercase labels: letters, digits, '-', '_',
// '.', and spaces inside the tag.
func IsValid(tag string) bool {
	if tag == "" || len(tag) > maxTagLength {
		return false
	}
	for _, r := range tag {
		switch {
		case r >= 'a' && r <= 'z':
		case r >= '0' && r <= '9':
		case r == '-' || r == '_' || r == '.' || r == ' ':
		default:
			return false
		}
	}
	return true
}

// NormalizeList lowercases, validates, de-duplicates, and sorts a tag
// list. Invalid entries are dropped rather than rejected as a whole.
func NormalizeList(raw []string) []string {
	if len(raw) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(raw))
	out := make([]string, 0, len(raw))
	for _, r := range raw {
		t := Normalize(r)
		if t == "" || !IsValid(t) {
			continue
		}
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}

// ParseList splits a comma-separated form value into a normalized tag
// list.
func ParseList(value string) []string {
	return NormalizeList(strings.Split(value, ","))
}
