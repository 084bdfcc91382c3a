// Package hostrouter extracts tenant hints from the request Host header.
//
// A login that starts on a tenant-specific host such as "acme.example.com"
// carries an explicit reference to that tenant. [TenantSubdomain] returns it:
//
//	sub := hostrouter.TenantSubdomain(r, "example.com", "www", "app")
//	// Host "acme.example.com" -> "acme"
//	// Host "www.example.com"  -> "" (reserved)
//	// Host "example.com"      -> ""
//
// [GetSubdomain] is the lower-level building block without the tenant rules.
package hostrouter
