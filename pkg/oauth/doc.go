// Package oauth runs the authorization code flow against Google and GitHub and
// keeps the short-lived login state between redirect and callback.
//
// # Providers
//
// A Provider builds the consent URL, exchanges the code and fetches a verified
// Profile. Google requests offline access and always shows the account chooser,
// so a refresh token is issued and users with several accounts can pick one.
// Google Workspace accounts carry their organization domain in
// Profile.HostedDomain; consumer and GitHub accounts leave it empty.
//
//	google, err := oauth.NewGoogleProvider(cfg.Google)
//	if err != nil {
//		return err
//	}
//	providers := oauth.NewRegistry(google)
//
//	p, err := providers.Get("google")
//	tok, err := p.Exchange(ctx, code)
//	profile, err := p.FetchProfile(ctx, tok)
//	grant := oauth.GrantFromToken(tok, p.Scopes(), time.Now())
//
// # State
//
// NewStateToken creates an unguessable token. The StateStore remembers the
// provider, the tenant host and the client kind under it; Consume hands the
// state out at most once. Use MemoryStateStore for a single instance and
// RedisStateStore when callbacks may reach another instance.
//
// # Errors
//
// All sentinel errors carry the "oauth:" prefix. Use errors.Is:
//
//	if errors.Is(err, oauth.ErrEmailNotVerified) {
//		// ask the user to verify the email with the provider
//	}
package oauth
