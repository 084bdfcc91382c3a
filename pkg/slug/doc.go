// Package slug turns names and organization domains into URL-safe identifiers.
//
// [Make] folds Latin diacritics to ASCII ("München" becomes "munchen"), lowercases,
// and collapses every run of other characters into one separator:
//
//	slug.Make("Café & Restaurant")                                       // "cafe-restaurant"
//	slug.Make("Fish & Chips", slug.CustomReplace(map[string]string{"&": "and"})) // "fish-and-chips"
//	slug.Make("Product Name", slug.Separator("_"), slug.MaxLength(7))    // "product"
//
// Scripts without an ASCII folding (Cyrillic, CJK) are dropped.
//
// [Domain] derives a tenant subdomain from an organization domain. The public
// suffix is removed first, so registrable names under multi-label suffixes
// keep all their labels:
//
//	slug.Domain("acme.com")       // "acme"
//	slug.Domain("eng.acme.co.uk") // "eng-acme"
//	slug.Domain("")               // ""
package slug
