// Package sanitizer strips markup from untrusted text before it is stored.
package sanitizer

import (
	"html"
	"strings"
	"sync"

	"github.com/microcosm-cc/bluemonday"
)

var (
	strictPolicy *bluemonday.Policy
	initOnce     sync.Once
)

func initPolicy() {
	initOnce.Do(func() {
		strictPolicy = bluemonday.StrictPolicy()
	})
}

// PlainText removes all HTML from s and returns the visible text.
// Entities produced by the sanitizer are decoded back, so "Tom & Jerry"
// round-trips unchanged, and surrounding whitespace is trimmed.
func PlainText(s string) string {
	if s == "" {
		return ""
	}
	initPolicy()
	return strings.TrimSpace(html.UnescapeString(strictPolicy.Sanitize(s)))
}
