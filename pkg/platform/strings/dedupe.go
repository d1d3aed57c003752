// Package strings holds small string helpers shared by config parsing.
package strings

import "strings"

// SplitList splits a comma-separated value, trimming each element and
// dropping empties and duplicates. Order of first occurrence is preserved.
func SplitList(value string) []string {
	return DedupeAndTrim(strings.Split(value, ","))
}

// DedupeAndTrim removes duplicates and blank entries after trimming whitespace.
func DedupeAndTrim(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	result := make([]string, 0, len(values))
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		if _, dup := seen[v]; dup {
			continue
		}
		seen[v] = struct{}{}
		result = append(result, v)
	}
	return result
}
