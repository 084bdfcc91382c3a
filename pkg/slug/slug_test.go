package slug_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/teamauth/pkg/slug"
)

func TestMake(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		input    string
		opts     []slug.Option
		expected string
	}{
		{name: "simple text", input: "Hello, World!", expected: "hello-world"},
		{name: "diacritics", input: "Café & Restaurant", expected: "cafe-restaurant"},
		{name: "german", input: "München straße", expected: "munchen-strasse"},
		{name: "french", input: "naïve résumé", expected: "naive-resume"},
		{name: "spanish", input: "Ñoño español", expected: "nono-espanol"},
		{name: "unsupported script", input: "Привет мир", expected: ""},
		{name: "leading and trailing punctuation", input: "--hello--", expected: "hello"},
		{name: "collapses separators", input: "a   b...c", expected: "a-b-c"},
		{name: "digits kept", input: "Version 2.0", expected: "version-2-0"},
		{name: "empty", input: "", expected: ""},
		{
			name:     "keeps case",
			input:    "Product Name",
			opts:     []slug.Option{slug.Lowercase(false)},
			expected: "Product-Name",
		},
		{
			name:     "custom separator",
			input:    "Product Name",
			opts:     []slug.Option{slug.Separator("_")},
			expected: "product_name",
		},
		{
			name:     "empty separator",
			input:    "Product Name",
			opts:     []slug.Option{slug.Separator("")},
			expected: "productname",
		},
		{
			name:     "max length on word boundary",
			input:    "Very long title",
			opts:     []slug.Option{slug.MaxLength(9)},
			expected: "very-long",
		},
		{
			name:     "max length trims dangling separator",
			input:    "Very long title",
			opts:     []slug.Option{slug.MaxLength(5)},
			expected: "very",
		},
		{
			name:     "zero max length means unlimited",
			input:    "Very long title",
			opts:     []slug.Option{slug.MaxLength(0)},
			expected: "very-long-title",
		},
		{
			name:     "custom replacements",
			input:    "Fish & Chips @ Home",
			opts:     []slug.Option{slug.CustomReplace(map[string]string{"&": "and", "@": "at"})},
			expected: "fish-and-chips-at-home",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			require.Equal(t, tt.expected, slug.Make(tt.input, tt.opts...))
		})
	}
}

func TestDomain(t *testing.T) {
	t.Parallel()

	tests := []struct {
		domain   string
		expected string
	}{
		{domain: "acme.com", expected: "acme"},
		{domain: "x.com", expected: "x"},
		{domain: "Acme.COM", expected: "acme"},
		{domain: "www.example.org", expected: "example"},
		{domain: "example.org.", expected: "example"},
		{domain: "eng.acme.co.uk", expected: "eng-acme"},
		{domain: "my_company.io", expected: "my-company"},
		{domain: "  acme.com  ", expected: "acme"},
		{domain: "", expected: ""},
		{domain: "   ", expected: ""},
	}

	for _, tt := range tests {
		t.Run(tt.domain, func(t *testing.T) {
			t.Parallel()
			require.Equal(t, tt.expected, slug.Domain(tt.domain))
		})
	}
}

func TestDomain_Deterministic(t *testing.T) {
	t.Parallel()

	first := slug.Domain("Sales.Acme-Corp.com")
	for range 10 {
		require.Equal(t, first, slug.Domain("Sales.Acme-Corp.com"))
	}
	require.Equal(t, "sales-acme-corp", first)
}
