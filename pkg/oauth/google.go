package oauth

import (
	"context"

	"golang.org/x/oauth2"
	googleOAuth "golang.org/x/oauth2/google"
)

const (
	// GoogleProviderName is the identifier for Google OAuth provider.
	GoogleProviderName = "google"
	googleUserInfoURL  = "https://www.googleapis.com/oauth2/v2/userinfo"
)

// GoogleDefaultScopes returns the default scopes for Google OAuth.
func GoogleDefaultScopes() []string {
	return []string{
		"https://www.googleapis.com/auth/userinfo.email",
		"https://www.googleapis.com/auth/userinfo.profile",
	}
}

// GoogleProvider implements Provider for Google OAuth.
// Workspace accounts report their organization domain in Profile.HostedDomain.
type GoogleProvider struct {
	base
}

// NewGoogleProvider creates a Google provider.
// Returns an error if ClientID or ClientSecret is empty.
func NewGoogleProvider(cfg GoogleConfig, opts ...Option) (*GoogleProvider, error) {
	scopes := cfg.Scopes
	if len(scopes) == 0 {
		scopes = GoogleDefaultScopes()
	}

	b, err := newBase(cfg.ClientID, cfg.ClientSecret, cfg.RedirectURL, scopes, googleOAuth.Endpoint, opts)
	if err != nil {
		return nil, err
	}

	return &GoogleProvider{base: b}, nil
}

// Name returns the provider identifier.
func (p *GoogleProvider) Name() string {
	return GoogleProviderName
}

// AuthCodeURL asks for offline access so a refresh token is issued, and always
// shows the account chooser and consent screen.
func (p *GoogleProvider) AuthCodeURL(state string) string {
	return p.config.AuthCodeURL(state,
		oauth2.AccessTypeOffline,
		oauth2.SetAuthURLParam("prompt", "select_account consent"),
	)
}

// FetchProfile retrieves the user's profile from Google.
// Returns ErrEmailNotVerified if the email is not verified.
func (p *GoogleProvider) FetchProfile(ctx context.Context, token *oauth2.Token) (*Profile, error) {
	var u googleUserInfo
	if err := p.getJSON(ctx, token, googleUserInfoURL, &u); err != nil {
		return nil, err
	}

	if !u.VerifiedEmail {
		return nil, ErrEmailNotVerified
	}

	return &Profile{
		ID:           u.ID,
		Email:        u.Email,
		Name:         u.Name,
		Picture:      u.Picture,
		HostedDomain: u.HostedDomain,
		Locale:       u.Locale,
	}, nil
}

type googleUserInfo struct {
	ID            string `json:"id"`
	Email         string `json:"email"`
	Name          string `json:"name"`
	Picture       string `json:"picture"`
	HostedDomain  string `json:"hd"`
	Locale        string `json:"locale"`
	VerifiedEmail bool   `json:"verified_email"`
}
