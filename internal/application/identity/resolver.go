// Package identity turns a password attempt or an external assertion into a user record.
package identity

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-notes-api/internal/domain"
	"github.com/go-notes-api/internal/pkg/id"
)

type userStore interface {
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	GetByExternalID(ctx context.Context, externalID string) (*domain.User, error)
	Create(ctx context.Context, u *domain.User) error
	Update(ctx context.Context, userID string, patch domain.UserPatch) (*domain.User, error)
}

type passwordComparer interface {
	Compare(plaintext, digest string) bool
}

// Resolver looks users up by credentials. It never issues codes or tokens.
type Resolver struct {
	users  userStore
	hasher passwordComparer
	now    func() time.Time
}

type ResolverDeps struct {
	UserRepo userStore
	Hasher   passwordComparer
	Now      func() time.Time
}

func NewResolver(deps ResolverDeps) *Resolver {
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	return &Resolver{users: deps.UserRepo, hasher: deps.Hasher, now: now}
}

// errInvalidCredentials is shared by every guessable failure so responses
// cannot be used to enumerate accounts.
var errInvalidCredentials = fmt.Errorf("invalid credentials: %w", domain.ErrUnauthorized)

// ResolvePassword checks, in order: account exists, account verified, account
// has a password, password matches.
func (r *Resolver) ResolvePassword(ctx context.Context, email, plaintext string) (*domain.User, error) {
	u, err := r.users.GetByEmail(ctx, domain.NormalizeEmail(email))
	if errors.Is(err, domain.ErrNotFound) {
		return nil, errInvalidCredentials
	}
	if err != nil {
		return nil, err
	}
	if !u.Verified {
		return nil, fmt.Errorf("please verify your email first: %w", domain.ErrUnverified)
	}
	if !u.HasPassword() {
		return nil, fmt.Errorf("please use Google login for this account: %w", domain.ErrExternalOnly)
	}
	if !r.hasher.Compare(plaintext, u.PasswordDigest) {
		return nil, errInvalidCredentials
	}
	return u, nil
}

// ResolveExternal finds the user for a provider assertion, linking an existing
// email account or creating a verified one as needed.
func (r *Resolver) ResolveExternal(ctx context.Context, ident domain.ExternalIdentity) (*domain.User, error) {
	email := domain.NormalizeEmail(ident.Email)
	if email == "" {
		return nil, domain.ErrMissingEmail
	}
	if ident.ProviderID == "" {
		return nil, fmt.Errorf("external identity has no subject: %w", domain.ErrBadRequest)
	}

	u, err := r.users.GetByExternalID(ctx, ident.ProviderID)
	if err == nil {
		return u, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}

	u, err = r.users.GetByEmail(ctx, email)
	switch {
	case err == nil:
		return r.link(ctx, u, ident.ProviderID)
	case !errors.Is(err, domain.ErrNotFound):
		return nil, err
	}

	now := r.now().UTC()
	u = &domain.User{
		UserID:     id.New(),
		Email:      email,
		ExternalID: ident.ProviderID,
		Verified:   true,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := r.users.Create(ctx, u); err != nil {
		if !errors.Is(err, domain.ErrDuplicateKey) {
			return nil, err
		}
		// Lost a race with a concurrent first login for the same identity.
		slog.Info("external user created concurrently, re-reading", "provider", ident.Provider)
		if existing, gerr := r.users.GetByExternalID(ctx, ident.ProviderID); gerr == nil {
			return existing, nil
		}
		existing, gerr := r.users.GetByEmail(ctx, email)
		if gerr != nil {
			return nil, gerr
		}
		return r.link(ctx, existing, ident.ProviderID)
	}
	return u, nil
}

// link attaches providerID to a user found by email. A user already linked to
// a different provider id is returned unchanged.
func (r *Resolver) link(ctx context.Context, u *domain.User, providerID string) (*domain.User, error) {
	if u.ExternalID != "" {
		return u, nil
	}
	return r.users.Update(ctx, u.UserID, domain.UserPatch{MarkVerified: true, ExternalID: &providerID})
}
