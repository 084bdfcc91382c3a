// Package provision resolves an external single-sign-on identity to a tenant, a
// user inside that tenant, and a linkage binding the provider account to the user.
//
// A login flows through four steps:
//
//  1. [Normalizer] canonicalizes the provider profile: lowercased email, markup-free
//     display name (2..255 characters or a default), larger avatar rendition, and a
//     language matched against the supported list.
//  2. [Resolver] picks a [TenantStrategy] and builds a [TenantCandidate]. An explicit
//     tenant from the request context wins; otherwise the organization domain is
//     slugified; otherwise the login gets a personal tenant with the default name.
//  3. [Provisioner] finds or creates the tenant, then the user, then upserts the
//     [Linkage], in one serializable transaction supplied by a [Store].
//  4. [Assemble] attaches the client descriptor and produces an [AuthenticationResult].
//
// [Service] runs all four steps:
//
//	svc := provision.NewService(cfg, store, provision.WithLogger(log))
//	res, err := svc.Authenticate(ctx, provision.Login{
//		Provider:    "google",
//		Profile:     provision.RawProfile{ID: "1234", Email: "a@acme.com", HostedDomain: "acme.com"},
//		Credentials: provision.Credentials{AccessToken: tok.AccessToken},
//		IP:          r.RemoteAddr,
//		Client:      provision.ClientWeb,
//	})
//
// # Invariants
//
// Repeated logins by the same external identity resolve to the same user. A
// profile without an organization domain is never attached to an existing tenant
// by guesswork: only an explicit tenant reference or an exact linkage match can
// reuse one. An email that already belongs to a user of another tenant yields a
// [ConflictError] instead of a merge.
//
// # Concurrency
//
// Two simultaneous first logins race on the store's uniqueness constraints. The
// loser's transaction fails with [ErrTransientStorage]; the provisioner retries
// once and then finds the winner's records.
//
// # Errors
//
//   - [ErrValidation] ([*ValidationError]): missing or malformed email, unknown tenant.
//   - [ErrConflict] ([*ConflictError]): cross-tenant email collision.
//   - [ErrTransientStorage]: storage race or outage that persisted after the retry.
package provision
