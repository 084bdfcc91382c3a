package oauth

import (
	"context"
	"strconv"

	"golang.org/x/oauth2"
	githubOAuth "golang.org/x/oauth2/github"
)

const (
	// GitHubProviderName is the identifier for GitHub OAuth provider.
	GitHubProviderName = "github"
	githubUserURL      = "https://api.github.com/user"
	githubEmailsURL    = "https://api.github.com/user/emails"
)

// GitHubDefaultScopes returns the default scopes for GitHub OAuth.
func GitHubDefaultScopes() []string {
	return []string{"read:user", "user:email"}
}

// GitHubProvider implements Provider for GitHub OAuth.
// GitHub has no organization domain, so its logins land in personal tenants
// unless they start on a tenant host.
type GitHubProvider struct {
	base
}

// NewGitHubProvider creates a GitHub provider.
// Returns an error if ClientID or ClientSecret is empty.
func NewGitHubProvider(cfg GitHubConfig, opts ...Option) (*GitHubProvider, error) {
	scopes := cfg.Scopes
	if len(scopes) == 0 {
		scopes = GitHubDefaultScopes()
	}

	b, err := newBase(cfg.ClientID, cfg.ClientSecret, cfg.RedirectURL, scopes, githubOAuth.Endpoint, opts)
	if err != nil {
		return nil, err
	}

	return &GitHubProvider{base: b}, nil
}

// Name returns the provider identifier.
func (p *GitHubProvider) Name() string {
	return GitHubProviderName
}

// AuthCodeURL builds the consent page URL.
func (p *GitHubProvider) AuthCodeURL(state string) string {
	return p.config.AuthCodeURL(state)
}

// FetchProfile retrieves the user and the primary verified email from GitHub,
// falling back to any verified email.
func (p *GitHubProvider) FetchProfile(ctx context.Context, token *oauth2.Token) (*Profile, error) {
	var u githubUser
	if err := p.getJSON(ctx, token, githubUserURL, &u); err != nil {
		return nil, err
	}

	var emails []githubEmail
	if err := p.getJSON(ctx, token, githubEmailsURL, &emails); err != nil {
		return nil, err
	}

	email := verifiedEmail(emails)
	if email == "" {
		return nil, ErrEmailNotVerified
	}

	name := u.Name
	if name == "" {
		name = u.Login
	}

	return &Profile{
		ID:      strconv.FormatInt(u.ID, 10),
		Email:   email,
		Name:    name,
		Picture: u.AvatarURL,
	}, nil
}

func verifiedEmail(emails []githubEmail) string {
	fallback := ""
	for _, e := range emails {
		if !e.Verified {
			continue
		}
		if e.Primary {
			return e.Email
		}
		if fallback == "" {
			fallback = e.Email
		}
	}
	return fallback
}

type githubUser struct {
	Login     string `json:"login"`
	Name      string `json:"name"`
	AvatarURL string `json:"avatar_url"`
	ID        int64  `json:"id"`
}

type githubEmail struct {
	Email    string `json:"email"`
	Primary  bool   `json:"primary"`
	Verified bool   `json:"verified"`
}
