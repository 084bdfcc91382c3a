package oauth_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"

	"github.com/dmitrymomot/teamauth/pkg/oauth"
)

func TestGrantFromToken(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	requested := []string{"read:user", "user:email"}

	tests := []struct {
		name string
		tok  *oauth2.Token
		want oauth.Grant
	}{
		{
			name: "nil token",
			want: oauth.Grant{},
		},
		{
			name: "expires_in and space separated scopes",
			tok: (&oauth2.Token{AccessToken: "a", RefreshToken: "r", ExpiresIn: 3599}).
				WithExtra(map[string]any{"scope": "openid email"}),
			want: oauth.Grant{AccessToken: "a", RefreshToken: "r", ExpiresIn: 3599, Scopes: []string{"openid", "email"}},
		},
		{
			name: "expiry and comma separated scopes",
			tok: (&oauth2.Token{AccessToken: "a", Expiry: now.Add(30 * time.Minute)}).
				WithExtra(map[string]any{"scope": "read:user,user:email"}),
			want: oauth.Grant{AccessToken: "a", ExpiresIn: 1800, Scopes: []string{"read:user", "user:email"}},
		},
		{
			name: "expired token",
			tok:  &oauth2.Token{AccessToken: "a", Expiry: now.Add(-time.Minute)},
			want: oauth.Grant{AccessToken: "a", Scopes: requested},
		},
		{
			name: "requested scopes when none reported",
			tok:  &oauth2.Token{AccessToken: "a"},
			want: oauth.Grant{AccessToken: "a", Scopes: requested},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			require.Equal(t, tt.want, oauth.GrantFromToken(tt.tok, requested, now))
		})
	}
}
