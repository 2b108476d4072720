package accounts

import (
	"context"
	"fmt"
	"time"

	"github.com/coreos/go-oidc/v3/oidc"
	"golang.org/x/oauth2"
)

// OIDCConfig holds the OpenID Connect provider settings
type OIDCConfig struct {
	IssuerURL    string
	ClientID     string
	ClientSecret string
	RedirectURL  string
	Scopes       []string
}

// OIDCAuthenticator runs the login flow against an OpenID Connect provider
// and turns verified identities into local users with sessions
type OIDCAuthenticator struct {
	verifier     *oidc.IDTokenVerifier
	oauth2Config *oauth2.Config
	store        Store
	sessions     *SessionStore
}

// NewOIDCAuthenticator discovers the provider and builds the verifier
func NewOIDCAuthenticator(ctx context.Context, cfg OIDCConfig, store Store, sessions *SessionStore) (*OIDCAuthenticator, error) {
	provider, err := oidc.NewProvider(ctx, cfg.IssuerURL)
	if err != nil {
		return nil, fmt.Errorf("failed to discover OIDC provider: %w", err)
	}

	scopes := cfg.Scopes
	if len(scopes) == 0 {
		scopes = []string{oidc.ScopeOpenID, "profile", "email"}
	}

	return &OIDCAuthenticator{
		verifier: provider.Verifier(&oidc.Config{ClientID: cfg.ClientID}),
		oauth2Config: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			Endpoint:     provider.Endpoint(),
			RedirectURL:  cfg.RedirectURL,
			Scopes:       scopes,
		},
		store:    store,
		sessions: sessions,
	}, nil
}

// LoginURL returns the authorization URL to redirect the browser to
func (a *OIDCAuthenticator) LoginURL(state string) string {
	return a.oauth2Config.AuthCodeURL(state)
}

// HandleCallback exchanges the authorization code, verifies the ID token,
// upserts the user, and opens a session. It returns the user and the session
// token to set as a cookie.
func (a *OIDCAuthenticator) HandleCallback(ctx context.Context, code string) (*User, string, error) {
	if code == "" {
		return nil, "", fmt.Errorf("missing authorization code")
	}

	token, err := a.oauth2Config.Exchange(ctx, code)
	if err != nil {
		return nil, "", fmt.Errorf("failed to exchange authorization code: %w", err)
	}

	rawIDToken, ok := token.Extra("id_token").(string)
	if !ok {
		return nil, "", fmt.Errorf("missing id_token in token response")
	}

	idToken, err := a.verifier.Verify(ctx, rawIDToken)
	if err != nil {
		return nil, "", fmt.Errorf("failed to verify ID token: %w", err)
	}

	var claims struct {
		Subject string `json:"sub"`
		Name    string `json:"name"`
		Email   string `json:"email"`
	}
	if err := idToken.Claims(&claims); err != nil {
		return nil, "", fmt.Errorf("failed to parse ID token claims: %w", err)
	}
	if claims.Subject == "" {
		return nil, "", fmt.Errorf("ID token has no subject")
	}

	user, err := a.store.UpsertByOpenID(ctx, UpsertParams{
		OpenID:       claims.Subject,
		Name:         claims.Name,
		Email:        claims.Email,
		LoginMethod:  "oidc",
		LastSignedIn: time.Now(),
	})
	if err != nil {
		return nil, "", err
	}

	sessionToken, err := a.sessions.Create(ctx, user.ID)
	if err != nil {
		return nil, "", err
	}
	return user, sessionToken, nil
}
