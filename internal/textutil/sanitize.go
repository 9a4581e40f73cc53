package textutil

import "strings"

// SanitizeToken converts a string to a lowercase key-safe token.
// Letters are lowercased, digits, hyphens, underscores and dots are kept,
// everything else becomes an underscore. Returns "unknown" for empty input.
func SanitizeToken(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return "unknown"
	}
	var b strings.Builder
	for _, r := range value {
		switch {
		case r >= 'a' && r <= 'z':
			b.WriteRune(r)
		case r >= 'A' && r <= 'Z':
			b.WriteRune(r + ('a' - 'A'))
		case r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '-' || r == '_' || r == '.':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	out := strings.Trim(b.String(), "_-.")
	if out == "" {
		return "unknown"
	}
	return out
}

// SanitizePrefix sanitizes every segment of a slash separated key prefix and
// drops empty segments.
func SanitizePrefix(prefix string) string {
	parts := strings.Split(prefix, "/")
	out := parts[:0]
	for _, p := range parts {
		if strings.TrimSpace(p) == "" {
			continue
		}
		out = append(out, SanitizeToken(p))
	}
	return strings.Join(out, "/")
}
