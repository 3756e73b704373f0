package skumap

import "strings"

// Normalize returns the registry key for a product code: trimmed and lower-cased.
func Normalize(code string) string {
	return strings.ToLower(strings.TrimSpace(code))
}

// normalizeSet normalizes codes, dropping blanks and duplicates while
// keeping first-seen order.
func normalizeSet(codes []string) []string {
	seen := make(map[string]struct{}, len(codes))
	out := make([]string, 0, len(codes))
	for _, c := range codes {
		n := Normalize(c)
		if n == "" {
			continue
		}
		if _, ok := seen[n]; ok {
			continue
		}
		seen[n] = struct{}{}
		out = append(out, n)
	}
	return out
}
