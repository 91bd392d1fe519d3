// Package strings normalizes the comma-separated lists this service is
// configured with: surfaces, broker addresses, domain deny and allow lists.
package strings

import "strings"

// DedupeAndTrim trims whitespace and drops empties and duplicates,
// keeping first-occurrence order.
func DedupeAndTrim(values []string) []string {
	return dedupe(values, strings.TrimSpace)
}

// DedupeAndTrimLower is DedupeAndTrim with case folded, for lists matched
// case-insensitively such as surfaces and host names.
func DedupeAndTrimLower(values []string) []string {
	return dedupe(values, func(v string) string {
		return strings.ToLower(strings.TrimSpace(v))
	})
}

func dedupe(values []string, normalize func(string) string) []string {
	if len(values) == 0 {
		return values
	}

	seen := make(map[string]struct{}, len(values))
	result := make([]string, 0, len(values))
	for _, v := range values {
		normalized := normalize(v)
		if normalized == "" {
			continue
		}
		if _, ok := seen[normalized]; ok {
			continue
		}
		seen[normalized] = struct{}{}
		result = append(result, normalized)
	}
	return result
}
