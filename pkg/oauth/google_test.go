package oauth_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"

	"github.com/dmitrymomot/teamauth/pkg/oauth"
)

var _ oauth.Provider = (*oauth.GoogleProvider)(nil)

// rewriteTransport routes requests for hosts containing match to a local handler.
type rewriteTransport struct {
	match   string
	handler http.Handler
}

func (t *rewriteTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if !strings.Contains(req.URL.Host, t.match) {
		return http.DefaultTransport.RoundTrip(req)
	}
	rec := httptest.NewRecorder()
	t.handler.ServeHTTP(rec, req)
	return rec.Result(), nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func newGoogle(t *testing.T, h http.Handler) *oauth.GoogleProvider {
	t.Helper()
	p, err := oauth.NewGoogleProvider(
		oauth.GoogleConfig{
			ClientID:     "test-id",
			ClientSecret: "test-secret",
			RedirectURL:  "https://auth.example.com/auth/google.callback",
		},
		oauth.WithHTTPClient(&http.Client{Transport: &rewriteTransport{match: "google", handler: h}}),
	)
	require.NoError(t, err)
	return p
}

func TestNewGoogleProvider(t *testing.T) {
	t.Parallel()

	_, err := oauth.NewGoogleProvider(oauth.GoogleConfig{ClientSecret: "s"})
	require.ErrorIs(t, err, oauth.ErrMissingClientID)

	_, err = oauth.NewGoogleProvider(oauth.GoogleConfig{ClientID: "id"})
	require.ErrorIs(t, err, oauth.ErrMissingClientSecret)

	p, err := oauth.NewGoogleProvider(oauth.GoogleConfig{ClientID: "id", ClientSecret: "s", Scopes: []string{"openid"}})
	require.NoError(t, err)
	require.Equal(t, []string{"openid"}, p.Scopes())
	require.Equal(t, "google", p.Name())
}

func TestGoogleProvider_AuthCodeURL(t *testing.T) {
	t.Parallel()

	p := newGoogle(t, http.NotFoundHandler())

	u, err := url.Parse(p.AuthCodeURL("test-state"))
	require.NoError(t, err)

	q := u.Query()
	require.Equal(t, "test-state", q.Get("state"))
	require.Equal(t, "offline", q.Get("access_type"))
	require.Equal(t, "select_account consent", q.Get("prompt"))
	require.Equal(t, "https://auth.example.com/auth/google.callback", q.Get("redirect_uri"))
	require.Contains(t, q.Get("scope"), "userinfo.email")
	require.Contains(t, q.Get("scope"), "userinfo.profile")
}

func TestGoogleProvider_Exchange(t *testing.T) {
	t.Parallel()

	t.Run("success", func(t *testing.T) {
		t.Parallel()

		p := newGoogle(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			require.Equal(t, "test-code", r.FormValue("code"))
			writeJSON(w, http.StatusOK, map[string]any{
				"access_token":  "access",
				"refresh_token": "refresh",
				"token_type":    "Bearer",
				"expires_in":    3599,
				"scope":         "openid https://www.googleapis.com/auth/userinfo.email",
			})
		}))

		tok, err := p.Exchange(context.Background(), "test-code")
		require.NoError(t, err)
		require.Equal(t, "access", tok.AccessToken)
		require.Equal(t, "refresh", tok.RefreshToken)
	})

	t.Run("invalid code", func(t *testing.T) {
		t.Parallel()

		p := newGoogle(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid_grant"})
		}))

		_, err := p.Exchange(context.Background(), "bad-code")
		require.Error(t, err)
	})
}

func TestGoogleProvider_FetchProfile(t *testing.T) {
	t.Parallel()

	token := &oauth2.Token{AccessToken: "test-token"}

	t.Run("workspace account", func(t *testing.T) {
		t.Parallel()

		p := newGoogle(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			require.Equal(t, "Bearer test-token", r.Header.Get("Authorization"))
			writeJSON(w, http.StatusOK, map[string]any{
				"id":             "12345",
				"email":          "jane@acme.com",
				"name":           "Jane Doe",
				"picture":        "https://lh3.googleusercontent.com/a/abc=s96-c",
				"hd":             "acme.com",
				"locale":         "en-GB",
				"verified_email": true,
			})
		}))

		profile, err := p.FetchProfile(context.Background(), token)
		require.NoError(t, err)
		require.Equal(t, &oauth.Profile{
			ID:           "12345",
			Email:        "jane@acme.com",
			Name:         "Jane Doe",
			Picture:      "https://lh3.googleusercontent.com/a/abc=s96-c",
			HostedDomain: "acme.com",
			Locale:       "en-GB",
		}, profile)
	})

	t.Run("consumer account has no hosted domain", func(t *testing.T) {
		t.Parallel()

		p := newGoogle(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusOK, map[string]any{"id": "1", "email": "jane@gmail.com", "verified_email": true})
		}))

		profile, err := p.FetchProfile(context.Background(), token)
		require.NoError(t, err)
		require.Empty(t, profile.HostedDomain)
		require.Empty(t, profile.Locale)
	})

	tests := []struct {
		name    string
		handler http.HandlerFunc
		wantErr error
	}{
		{
			name: "unverified email",
			handler: func(w http.ResponseWriter, r *http.Request) {
				writeJSON(w, http.StatusOK, map[string]any{"id": "1", "email": "a@b.co", "verified_email": false})
			},
			wantErr: oauth.ErrEmailNotVerified,
		},
		{
			name: "non-OK status",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusForbidden)
			},
			wantErr: oauth.ErrRequestFailed,
		},
		{
			name: "bad JSON",
			handler: func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte("not-json"))
			},
			wantErr: oauth.ErrDecodeFailed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			profile, err := newGoogle(t, tt.handler).FetchProfile(context.Background(), token)
			require.ErrorIs(t, err, tt.wantErr)
			require.Nil(t, profile)
		})
	}
}
