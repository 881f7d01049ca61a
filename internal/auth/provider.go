package auth

import (
	"context"
	"net/url"
)

// Profile is the identity asserted by the OAuth provider after a code
// exchange.
type Profile struct {
	Email    string
	GoogleID string
	Name     string
}

// Provider abstracts the external OAuth identity provider. The service only
// sees the consent redirect and the code exchange; token plumbing stays on
// the provider side.
type Provider interface {
	AuthCodeURL(state string) string
	Exchange(ctx context.Context, code string) (Profile, error)
}

const googleAuthURL = "https://accounts.google.com/o/oauth2/v2/auth"

// StaticProvider builds a faithful consent URL but simulates the code
// exchange. It backs development and tests; a live implementation plugs into
// the Provider seam without touching the handlers.
type StaticProvider struct {
	ClientID    string
	RedirectURI string
	Profile     Profile
	Err         error
}

func (p StaticProvider) AuthCodeURL(state string) string {
	q := url.Values{}
	q.Set("client_id", p.ClientID)
	q.Set("redirect_uri", p.RedirectURI)
	q.Set("response_type", "code")
	q.Set("scope", "openid email profile")
	q.Set("state", state)
	return googleAuthURL + "?" + q.Encode()
}

func (p StaticProvider) Exchange(_ context.Context, code string) (Profile, error) {
	if p.Err != nil {
		return Profile{}, p.Err
	}
	if p.Profile.Email != "" {
		return p.Profile, nil
	}
	// Deterministic dev identity derived from the code.
	return Profile{Email: code + "@dev.local", GoogleID: "dev-" + code, Name: code}, nil
}
