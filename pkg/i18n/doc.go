// Package i18n resolves interface languages from locale hints.
//
// Two entry points are provided. [Match] maps a single locale hint, such as the
// one an identity provider reports for a user, onto a list of supported
// languages. [FromAcceptLanguage] does the same for a browser Accept-Language
// header, honoring quality values.
//
//	supported := []string{"en_US", "de_DE", "fr_FR"}
//
//	i18n.Match("fr", supported)     // "fr_FR"
//	i18n.Match("en-GB", []string{"en", "de"}) // "en"
//	i18n.Match("xx-ZZ", supported)  // ""
//
//	i18n.FromAcceptLanguage("de-CH,de;q=0.9,en;q=0.5", supported) // "de_DE"
//
// Both functions return an empty string when nothing matches; applying a default
// language is left to the caller.
package i18n
