package i18n

import "strings"

// Match returns the first entry of supported that matches the locale hint, or an
// empty string when none does. An entry matches when one of the two tags is a
// subtag prefix of the other: "en" matches "en-GB", and "fr" matches "fr_FR".
// Comparison is case-insensitive and treats "_" and "-" alike. The search walks
// supported in order, so the result only depends on that order.
func Match(hint string, supported []string) string {
	h := normalizeLanguageTag(hint)
	if h == "" {
		return ""
	}

	for _, lang := range supported {
		l := normalizeLanguageTag(lang)
		if l == "" {
			continue
		}
		if hasSubtagPrefix(h, l) || hasSubtagPrefix(l, h) {
			return lang
		}
	}

	return ""
}

func hasSubtagPrefix(tag, prefix string) bool {
	return tag == prefix || strings.HasPrefix(tag, prefix+"-")
}
