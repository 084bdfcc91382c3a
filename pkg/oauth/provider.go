package oauth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"golang.org/x/oauth2"
)

// Profile is the user profile reported by a provider.
// Empty fields mean the provider did not send them.
type Profile struct {
	ID           string // provider-scoped user id
	Email        string // always verified
	Name         string
	Picture      string
	HostedDomain string // organization domain, Google Workspace only
	Locale       string
}

// Provider abstracts the authorization code flow of one identity provider.
// Implementations must only return verified emails and report
// ErrEmailNotVerified otherwise.
type Provider interface {
	// Name returns the provider identifier, e.g. "google".
	Name() string

	// Scopes returns the scopes requested on the authorization URL.
	Scopes() []string

	// AuthCodeURL builds the consent page URL carrying state.
	AuthCodeURL(state string) string

	// Exchange trades an authorization code for tokens.
	Exchange(ctx context.Context, code string) (*oauth2.Token, error)

	// FetchProfile loads the signed-in user's profile with token.
	FetchProfile(ctx context.Context, token *oauth2.Token) (*Profile, error)
}

// Registry looks providers up by name.
type Registry map[string]Provider

// NewRegistry indexes providers by Name. Nil providers are skipped.
func NewRegistry(providers ...Provider) Registry {
	r := make(Registry, len(providers))
	for _, p := range providers {
		if p != nil {
			r[p.Name()] = p
		}
	}
	return r
}

// Get returns the provider registered under name or ErrUnknownProvider.
func (r Registry) Get(name string) (Provider, error) {
	p, ok := r[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownProvider, name)
	}
	return p, nil
}

// Option configures a provider.
type Option func(*options)

type options struct {
	httpClient *http.Client
}

// WithHTTPClient sets the HTTP client used for token and profile requests.
func WithHTTPClient(client *http.Client) Option {
	return func(o *options) {
		o.httpClient = client
	}
}

// base carries what every provider shares: the oauth2 config and an optional
// HTTP client override.
type base struct {
	config     *oauth2.Config
	httpClient *http.Client
}

func newBase(clientID, clientSecret, redirectURL string, scopes []string, endpoint oauth2.Endpoint, opts []Option) (base, error) {
	if clientID == "" {
		return base{}, ErrMissingClientID
	}
	if clientSecret == "" {
		return base{}, ErrMissingClientSecret
	}

	var o options
	for _, opt := range opts {
		opt(&o)
	}

	return base{
		config: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  redirectURL,
			Scopes:       scopes,
			Endpoint:     endpoint,
		},
		httpClient: o.httpClient,
	}, nil
}

func (b base) Scopes() []string {
	return append([]string(nil), b.config.Scopes...)
}

func (b base) Exchange(ctx context.Context, code string) (*oauth2.Token, error) {
	return b.config.Exchange(b.context(ctx), code)
}

func (b base) context(ctx context.Context) context.Context {
	if b.httpClient != nil {
		return context.WithValue(ctx, oauth2.HTTPClient, b.httpClient)
	}
	return ctx
}

// getJSON decodes the response of an authenticated GET into v.
func (b base) getJSON(ctx context.Context, token *oauth2.Token, url string, v any) error {
	client := b.config.Client(b.context(ctx), token)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return errors.Join(ErrFetchFailed, err)
	}

	resp, err := client.Do(req)
	if err != nil {
		return errors.Join(ErrFetchFailed, fmt.Errorf("get %s: %w", url, err))
	}
	if resp == nil {
		return errors.Join(ErrNilResponse, fmt.Errorf("get %s", url))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return errors.Join(ErrRequestFailed, fmt.Errorf("get %s: status=%d body=%s", url, resp.StatusCode, body))
	}

	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return errors.Join(ErrDecodeFailed, fmt.Errorf("decode %s: %w", url, err))
	}

	return nil
}
