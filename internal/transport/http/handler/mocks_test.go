package handler

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/go-notes-api/internal/application/auth"
	"github.com/go-notes-api/internal/domain"
	"github.com/go-notes-api/internal/infrastructure/google"
	jwtinfra "github.com/go-notes-api/internal/infrastructure/jwt"
)

type mockAuthSvc struct{ mock.Mock }

func (m *mockAuthSvc) Signup(ctx context.Context, email, password string) (*auth.Pending, error) {
	args := m.Called(ctx, email, password)
	if p, _ := args.Get(0).(*auth.Pending); p != nil {
		return p, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockAuthSvc) VerifySignup(ctx context.Context, email, code string) (*auth.Session, error) {
	return sessionResult(m.Called(ctx, email, code))
}

func (m *mockAuthSvc) Login(ctx context.Context, email, password string) (*auth.Pending, error) {
	args := m.Called(ctx, email, password)
	if p, _ := args.Get(0).(*auth.Pending); p != nil {
		return p, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockAuthSvc) VerifyLogin(ctx context.Context, email, code string) (*auth.Session, error) {
	return sessionResult(m.Called(ctx, email, code))
}

func (m *mockAuthSvc) LoginExternal(ctx context.Context, ident domain.ExternalIdentity) (*auth.Session, error) {
	return sessionResult(m.Called(ctx, ident))
}

func (m *mockAuthSvc) WhoAmI(ctx context.Context, token string) (*domain.PublicUser, error) {
	args := m.Called(ctx, token)
	if u, _ := args.Get(0).(*domain.PublicUser); u != nil {
		return u, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockAuthSvc) Refresh(ctx context.Context, token string) (*auth.Session, error) {
	return sessionResult(m.Called(ctx, token))
}

func (m *mockAuthSvc) VerifyToken(token string) (*jwtinfra.Claims, error) {
	args := m.Called(token)
	if c, _ := args.Get(0).(*jwtinfra.Claims); c != nil {
		return c, args.Error(1)
	}
	return nil, args.Error(1)
}

func sessionResult(args mock.Arguments) (*auth.Session, error) {
	if s, _ := args.Get(0).(*auth.Session); s != nil {
		return s, args.Error(1)
	}
	return nil, args.Error(1)
}

type mockNoteSvc struct{ mock.Mock }

func (m *mockNoteSvc) List(ctx context.Context, userID string) ([]domain.Note, error) {
	args := m.Called(ctx, userID)
	notes, _ := args.Get(0).([]domain.Note)
	return notes, args.Error(1)
}

func (m *mockNoteSvc) Create(ctx context.Context, userID string, in domain.NoteInput) (*domain.Note, error) {
	args := m.Called(ctx, userID, in)
	if n, _ := args.Get(0).(*domain.Note); n != nil {
		return n, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockNoteSvc) Update(ctx context.Context, userID, noteID string, in domain.NoteInput) (*domain.Note, error) {
	args := m.Called(ctx, userID, noteID, in)
	if n, _ := args.Get(0).(*domain.Note); n != nil {
		return n, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockNoteSvc) Delete(ctx context.Context, userID, noteID string) error {
	return m.Called(ctx, userID, noteID).Error(0)
}

type mockGoogle struct{ mock.Mock }

func (m *mockGoogle) Verify(ctx context.Context, token string) (*google.Payload, error) {
	args := m.Called(ctx, token)
	if p, _ := args.Get(0).(*google.Payload); p != nil {
		return p, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockGoogle) AuthCodeURL(state string) string {
	return m.Called(state).String(0)
}

func (m *mockGoogle) Exchange(ctx context.Context, code string) (*google.Payload, error) {
	args := m.Called(ctx, code)
	if p, _ := args.Get(0).(*google.Payload); p != nil {
		return p, args.Error(1)
	}
	return nil, args.Error(1)
}
