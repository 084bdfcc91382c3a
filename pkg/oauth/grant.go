package oauth

import (
	"strings"
	"time"

	"golang.org/x/oauth2"
)

// Grant is the token set of a completed exchange, flattened for storage.
type Grant struct {
	AccessToken  string
	RefreshToken string
	ExpiresIn    int // seconds, 0 when unknown
	Scopes       []string
}

// GrantFromToken flattens tok. Scopes come from the token response when the
// provider reports them (space or comma separated), otherwise requested is used.
func GrantFromToken(tok *oauth2.Token, requested []string, now time.Time) Grant {
	if tok == nil {
		return Grant{}
	}

	g := Grant{
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
	}

	switch {
	case tok.ExpiresIn > 0:
		g.ExpiresIn = int(tok.ExpiresIn)
	case !tok.Expiry.IsZero():
		g.ExpiresIn = max(int(tok.Expiry.Sub(now).Seconds()), 0)
	}

	if raw, ok := tok.Extra("scope").(string); ok && strings.TrimSpace(raw) != "" {
		g.Scopes = strings.FieldsFunc(raw, func(r rune) bool { return r == ' ' || r == ',' })
	} else {
		g.Scopes = append([]string(nil), requested...)
	}

	return g
}
