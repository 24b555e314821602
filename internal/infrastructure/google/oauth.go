package google

import (
	"context"
	"fmt"

	"golang.org/x/oauth2"
	googleoauth "golang.org/x/oauth2/google"

	"github.com/go-notes-api/internal/config"
	"github.com/go-notes-api/internal/domain"
)

// OAuth runs the authorization-code redirect flow and verifies the ID token
// returned by the token endpoint.
type OAuth struct {
	conf     *oauth2.Config
	verifier *Verifier
}

func NewOAuth(cfg *config.Config, verifier *Verifier) *OAuth {
	return &OAuth{
		conf: &oauth2.Config{
			ClientID:     cfg.GoogleClientID,
			ClientSecret: cfg.GoogleClientSecret,
			RedirectURL:  cfg.GoogleRedirectURL,
			Endpoint:     googleoauth.Endpoint,
			Scopes:       []string{"openid", "email", "profile"},
		},
		verifier: verifier,
	}
}

// AuthCodeURL returns the consent page URL carrying state.
func (o *OAuth) AuthCodeURL(state string) string {
	return o.conf.AuthCodeURL(state, oauth2.AccessTypeOnline)
}

// Exchange trades an authorization code for tokens and returns the verified
// claims of the accompanying ID token.
func (o *OAuth) Exchange(ctx context.Context, code string) (*Payload, error) {
	tok, err := o.conf.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("google code exchange: %w", domain.ErrUnauthorized)
	}
	raw, _ := tok.Extra("id_token").(string)
	if raw == "" {
		return nil, fmt.Errorf("google response has no id_token: %w", domain.ErrUnauthorized)
	}
	return o.verifier.Verify(ctx, raw)
}
