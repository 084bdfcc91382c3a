package slug

import (
	"slices"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

const defaultSeparator = "-"

// Option configures slug generation.
type Option func(*options)

type options struct {
	replacements map[string]string
	separator    string
	maxLength    int
	lowercase    bool
}

// MaxLength limits the slug to n runes. Zero or negative means no limit.
func MaxLength(n int) Option {
	return func(o *options) {
		o.maxLength = n
	}
}

// Separator sets the string placed between words. Defaults to "-".
func Separator(sep string) Option {
	return func(o *options) {
		o.separator = sep
	}
}

// Lowercase controls whether the result is lowercased. Defaults to true.
func Lowercase(v bool) Option {
	return func(o *options) {
		o.lowercase = v
	}
}

// CustomReplace applies literal replacements before slugification.
// Keys are applied in lexical order so the output is deterministic.
func CustomReplace(r map[string]string) Option {
	return func(o *options) {
		o.replacements = r
	}
}

// Ligatures and letters that have no canonical decomposition.
var foldings = strings.NewReplacer(
	"ß", "ss", "ẞ", "SS",
	"æ", "ae", "Æ", "AE",
	"œ", "oe", "Œ", "OE",
	"ø", "o", "Ø", "O",
	"ł", "l", "Ł", "L",
	"đ", "d", "Đ", "D",
	"þ", "th", "Þ", "TH",
)

// Make converts s into a URL-safe slug.
func Make(s string, opts ...Option) string {
	o := &options{separator: defaultSeparator, lowercase: true}
	for _, opt := range opts {
		opt(o)
	}

	if len(o.replacements) > 0 {
		keys := make([]string, 0, len(o.replacements))
		for k := range o.replacements {
			if k != "" {
				keys = append(keys, k)
			}
		}
		slices.Sort(keys)
		for _, k := range keys {
			s = strings.ReplaceAll(s, k, " "+o.replacements[k]+" ")
		}
	}

	s = foldDiacritics(s)
	if o.lowercase {
		s = strings.ToLower(s)
	}

	var b strings.Builder
	b.Grow(len(s))
	pending := false
	for _, r := range s {
		if !isASCIIAlnum(r) {
			pending = true
			continue
		}
		if pending && b.Len() > 0 {
			b.WriteString(o.separator)
		}
		pending = false
		b.WriteRune(r)
	}

	out := b.String()
	if o.maxLength > 0 && utf8.RuneCountInString(out) > o.maxLength {
		out = string([]rune(out)[:o.maxLength])
		if o.separator != "" {
			out = strings.TrimSuffix(out, o.separator)
			// A truncated multi-rune separator can leave a partial tail.
			for i := len(o.separator) - 1; i > 0; i-- {
				out = strings.TrimSuffix(out, o.separator[:i])
			}
		}
	}

	return out
}

func foldDiacritics(s string) string {
	s = foldings.Replace(s)
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}

func isASCIIAlnum(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9')
}
