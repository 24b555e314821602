package google

import (
	"context"
	"errors"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/idtoken"

	"github.com/go-notes-api/internal/config"
	"github.com/go-notes-api/internal/domain"
)

func stubVerifier(p *idtoken.Payload, err error) *Verifier {
	return &Verifier{
		clientID: "client-1",
		validate: func(_ context.Context, _, audience string) (*idtoken.Payload, error) {
			if audience != "client-1" {
				return nil, errors.New("audience mismatch")
			}
			return p, err
		},
	}
}

func TestVerify_ExtractsIdentity(t *testing.T) {
	v := stubVerifier(&idtoken.Payload{
		Subject: "sub-1",
		Claims:  map[string]interface{}{"email": "a@x.io", "email_verified": true},
	}, nil)

	p, err := v.Verify(context.Background(), "token")
	require.NoError(t, err)
	assert.Equal(t, domain.ExternalIdentity{Provider: "google", ProviderID: "sub-1", Email: "a@x.io"}, p.Identity())
}

func TestVerify_InvalidToken(t *testing.T) {
	v := stubVerifier(nil, errors.New("bad signature"))
	_, err := v.Verify(context.Background(), "token")
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
}

func TestVerify_UnverifiedEmailRejected(t *testing.T) {
	v := stubVerifier(&idtoken.Payload{
		Subject: "sub-1",
		Claims:  map[string]interface{}{"email": "a@x.io", "email_verified": false},
	}, nil)
	_, err := v.Verify(context.Background(), "token")
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
}

func TestOAuth_AuthCodeURL(t *testing.T) {
	o := NewOAuth(&config.Config{
		GoogleClientID:     "client-1",
		GoogleClientSecret: "secret",
		GoogleRedirectURL:  "http://localhost:3000/api/auth/google/callback",
	}, NewVerifier("client-1"))

	u, err := url.Parse(o.AuthCodeURL("state-123"))
	require.NoError(t, err)
	q := u.Query()
	assert.Equal(t, "state-123", q.Get("state"))
	assert.Equal(t, "client-1", q.Get("client_id"))
	assert.Equal(t, "code", q.Get("response_type"))
	assert.Contains(t, q.Get("scope"), "email")
}
