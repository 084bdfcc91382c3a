package i18n

import (
	"cmp"
	"slices"
	"strconv"
	"strings"
)

// maxAcceptLanguageLength prevents DoS attacks through oversized Accept-Language headers.
const maxAcceptLanguageLength = 4096

// languageTag represents a parsed language tag with quality value.
type languageTag struct {
	tag     string
	quality float64
}

// FromAcceptLanguage picks the supported language that best fits an
// Accept-Language header. Tags are tried in descending quality order; for each
// tag an exact match wins over a subtag prefix match (see Match).
// Returns an empty string when nothing fits, leaving the default to the caller.
//
// Example header: "en-US,en;q=0.9,pl;q=0.8"
// Available: ["pl", "en", "de"]
// Returns: "en"
func FromAcceptLanguage(header string, available []string) string {
	if len(available) == 0 || strings.TrimSpace(header) == "" {
		return ""
	}

	for _, tag := range parseLanguageTags(header) {
		for _, avail := range available {
			if normalizeLanguageTag(avail) == tag.tag {
				return avail
			}
		}
		if lang := Match(tag.tag, available); lang != "" {
			return lang
		}
	}

	return ""
}

// parseLanguageTags returns the header's tags by descending quality, keeping
// header order among equal qualities. Wildcards and q=0 tags are dropped.
func parseLanguageTags(header string) []languageTag {
	if len(header) > maxAcceptLanguageLength {
		header = header[:maxAcceptLanguageLength]
	}

	var tags []languageTag
	for part := range strings.SplitSeq(header, ",") {
		name, params, _ := strings.Cut(part, ";")
		name = normalizeLanguageTag(name)
		if name == "" || name == "*" {
			continue
		}

		q := quality(params)
		if q == 0 {
			continue
		}
		tags = append(tags, languageTag{tag: name, quality: q})
	}

	slices.SortStableFunc(tags, func(a, b languageTag) int {
		return cmp.Compare(b.quality, a.quality)
	})

	return tags
}

// quality parses a "q=0.8" parameter. Missing or out-of-range values count as 1.
func quality(params string) float64 {
	v, ok := strings.CutPrefix(strings.TrimSpace(params), "q=")
	if !ok {
		return 1
	}
	q, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
	if err != nil || q < 0 || q > 1 {
		return 1
	}
	return q
}

// normalizeLanguageTag lowercases a tag and uses "-" as the subtag separator,
// so "en_US" and "en-us" compare equal.
func normalizeLanguageTag(tag string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(tag)), "_", "-")
}
