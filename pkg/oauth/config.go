package oauth

// GoogleConfig holds Google OAuth configuration.
// The provider is enabled when ClientID is set.
type GoogleConfig struct {
	ClientID     string   `env:"GOOGLE_OAUTH_CLIENT_ID"`
	ClientSecret string   `env:"GOOGLE_OAUTH_CLIENT_SECRET"`
	RedirectURL  string   `env:"GOOGLE_OAUTH_REDIRECT_URL"`
	Scopes       []string `env:"GOOGLE_OAUTH_SCOPES" envSeparator:","`
}

// GitHubConfig holds GitHub OAuth configuration.
// The provider is enabled when ClientID is set.
type GitHubConfig struct {
	ClientID     string   `env:"GITHUB_OAUTH_CLIENT_ID"`
	ClientSecret string   `env:"GITHUB_OAUTH_CLIENT_SECRET"`
	RedirectURL  string   `env:"GITHUB_OAUTH_REDIRECT_URL"`
	Scopes       []string `env:"GITHUB_OAUTH_SCOPES" envSeparator:","`
}
