package dom

import (
	"slices"
	"sort"
	"strconv"
	"strings"
)

// parseStyle splits an inline style attribute into lower-case properties.
func parseStyle(style string) map[string]string {
	decls := make(map[string]string)
	for _, decl := range strings.Split(style, ";") {
		prop, value, ok := strings.Cut(decl, ":")
		if !ok {
			continue
		}
		prop = strings.ToLower(strings.TrimSpace(prop))
		value = strings.TrimSpace(value)
		if prop != "" {
			decls[prop] = value
		}
	}
	return decls
}

// formatStyle renders declarations back into a style attribute.
// Properties named in keys come first in that order, the rest sorted.
func formatStyle(decls map[string]string, keys []string) string {
	order := slices.Clone(keys)
	rest := make([]string, 0, len(decls))
	for k := range decls {
		if !slices.Contains(keys, k) {
			rest = append(rest, k)
		}
	}
	sort.Strings(rest)
	order = append(order, rest...)

	var b strings.Builder
	for _, k := range order {
		v, ok := decls[k]
		if !ok {
			continue
		}
		if b.Len() > 0 {
			b.WriteString(" ")
		}
		b.WriteString(k)
		b.WriteString(": ")
		b.WriteString(v)
		b.WriteString(";")
	}
	return b.String()
}

// parsePixels parses "120", "120px" or "120.5px". Other units yield ok=false.
func parsePixels(s string) (float64, bool) {
	s = strings.TrimSpace(strings.ToLower(s))
	s = strings.TrimSuffix(s, "px")
	if s == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// formatPixels renders v as a CSS pixel length.
func formatPixels(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64) + "px"
}

// FormatPixels renders v as a CSS pixel length, e.g. "105px" or "12.5px".
func FormatPixels(v float64) string {
	return formatPixels(v)
}

// ParsePixels parses a CSS pixel length as written by FormatPixels.
func ParsePixels(s string) (float64, bool) {
	return parsePixels(s)
}
