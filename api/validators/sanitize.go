package validators

import "strings"

// SanitizeString trims input and caps it at maxLen bytes.
func SanitizeString(input string, maxLen int) string {
	trimmed := strings.TrimSpace(input)
	if maxLen > 0 && len(trimmed) > maxLen {
		return trimmed[:maxLen]
	}
	return trimmed
}

// SanitizeAttributes trims option names and values and drops entries with an
// empty name. A nil or empty map yields nil.
func SanitizeAttributes(attrs map[string]string, maxLen int) map[string]string {
	if len(attrs) == 0 {
		return nil
	}
	out := make(map[string]string, len(attrs))
	for name, value := range attrs {
		name = SanitizeString(name, maxLen)
		if name == "" {
			continue
		}
		out[name] = SanitizeString(value, maxLen)
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
