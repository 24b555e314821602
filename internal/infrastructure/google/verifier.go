package google

import (
	"context"
	"fmt"

	"google.golang.org/api/idtoken"

	"github.com/go-notes-api/internal/domain"
)

// Provider is the name recorded on identities asserted by Google.
const Provider = "google"

// Payload holds the verified claims extracted from a Google ID token.
type Payload struct {
	Sub           string
	Email         string
	EmailVerified bool
}

// Identity converts the payload to a provider-neutral assertion.
func (p *Payload) Identity() domain.ExternalIdentity {
	return domain.ExternalIdentity{Provider: Provider, ProviderID: p.Sub, Email: p.Email}
}

type validateFunc func(ctx context.Context, token, audience string) (*idtoken.Payload, error)

// Verifier verifies Google ID tokens against a specific client ID.
type Verifier struct {
	clientID string
	validate validateFunc
}

func NewVerifier(clientID string) *Verifier {
	return &Verifier{clientID: clientID, validate: idtoken.Validate}
}

// Verify validates the Google ID token and returns the extracted payload.
// Tokens whose email Google has not verified are rejected, since the email
// is used to link accounts. Failures wrap domain.ErrUnauthorized.
func (v *Verifier) Verify(ctx context.Context, token string) (*Payload, error) {
	p, err := v.validate(ctx, token, v.clientID)
	if err != nil {
		return nil, fmt.Errorf("invalid google token: %w", domain.ErrUnauthorized)
	}
	email, _ := p.Claims["email"].(string)
	emailVerified, _ := p.Claims["email_verified"].(bool)
	if email != "" && !emailVerified {
		return nil, fmt.Errorf("google email not verified: %w", domain.ErrUnauthorized)
	}
	return &Payload{
		Sub:           p.Subject,
		Email:         email,
		EmailVerified: emailVerified,
	}, nil
}
