// Package auth drives the signup, password-login and external-login flows and
// is the only place where OTPs, users and tokens meet.
package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-notes-api/internal/domain"
	jwtinfra "github.com/go-notes-api/internal/infrastructure/jwt"
	"github.com/go-notes-api/internal/pkg/id"
	"github.com/go-notes-api/internal/pkg/validate"
)

// FlowKind names the path by which a session was established.
type FlowKind int

const (
	FlowSignup FlowKind = iota
	FlowPasswordLogin
	FlowExternalLogin
	FlowRefresh
)

func (k FlowKind) String() string {
	switch k {
	case FlowSignup:
		return "signup"
	case FlowPasswordLogin:
		return "password_login"
	case FlowExternalLogin:
		return "external_login"
	case FlowRefresh:
		return "refresh"
	}
	return "unknown"
}

// Pending is returned when a flow is waiting for the emailed code.
type Pending struct {
	Email string
}

// Session is the postcondition shared by every successful flow.
type Session struct {
	Token string
	User  *domain.PublicUser
}

type CredentialsRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
}

type VerifyRequest struct {
	Email string `json:"email" validate:"required,email"`
	OTP   string `json:"otp" validate:"required"`
}

type Service interface {
	Signup(ctx context.Context, email, password string) (*Pending, error)
	VerifySignup(ctx context.Context, email, code string) (*Session, error)
	Login(ctx context.Context, email, password string) (*Pending, error)
	VerifyLogin(ctx context.Context, email, code string) (*Session, error)
	LoginExternal(ctx context.Context, ident domain.ExternalIdentity) (*Session, error)
	WhoAmI(ctx context.Context, token string) (*domain.PublicUser, error)
	Refresh(ctx context.Context, token string) (*Session, error)
	VerifyToken(token string) (*jwtinfra.Claims, error)
}

type userStore interface {
	Get(ctx context.Context, userID string) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	Create(ctx context.Context, u *domain.User) error
	Update(ctx context.Context, userID string, patch domain.UserPatch) (*domain.User, error)
}

type otpLedger interface {
	Issue(ctx context.Context, email string) (string, error)
	Consume(ctx context.Context, email, code string) error
}

type identityResolver interface {
	ResolvePassword(ctx context.Context, email, plaintext string) (*domain.User, error)
	ResolveExternal(ctx context.Context, ident domain.ExternalIdentity) (*domain.User, error)
}

type tokenIssuer interface {
	Sign(userID, email string) (string, error)
	Verify(token string) (*jwtinfra.Claims, error)
}

// Hasher produces password digests.
type Hasher interface {
	Hash(plaintext string) (string, error)
}

// CodeSender delivers a one-time code to an email address.
type CodeSender interface {
	SendCode(ctx context.Context, to, code string) error
}

type service struct {
	users    userStore
	ledger   otpLedger
	resolver identityResolver
	tokens   tokenIssuer
	hasher   Hasher
	sender   CodeSender
	now      func() time.Time
}

type ServiceDeps struct {
	UserRepo userStore
	Ledger   otpLedger
	Resolver identityResolver
	Tokens   tokenIssuer
	Hasher   Hasher
	Sender   CodeSender
	Now      func() time.Time
}

func NewService(deps ServiceDeps) Service {
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	return &service{
		users:    deps.UserRepo,
		ledger:   deps.Ledger,
		resolver: deps.Resolver,
		tokens:   deps.Tokens,
		hasher:   deps.Hasher,
		sender:   deps.Sender,
		now:      now,
	}
}

func (s *service) Signup(ctx context.Context, email, password string) (*Pending, error) {
	email = domain.NormalizeEmail(email)
	if err := validate.Struct(CredentialsRequest{Email: email, Password: password}); err != nil {
		return nil, err
	}

	_, err := s.users.GetByEmail(ctx, email)
	switch {
	case err == nil:
		return nil, fmt.Errorf("user already exists: %w", domain.ErrConflict)
	case !errors.Is(err, domain.ErrNotFound):
		return nil, s.internal("signup lookup", err)
	}

	if err := s.challenge(ctx, email); err != nil {
		return nil, err
	}

	digest, err := s.hasher.Hash(password)
	if err != nil {
		return nil, s.internal("hash password", err)
	}
	now := s.now().UTC()
	u := &domain.User{
		UserID:         id.New(),
		Email:          email,
		PasswordDigest: digest,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := s.users.Create(ctx, u); err != nil {
		if errors.Is(err, domain.ErrDuplicateKey) {
			return nil, fmt.Errorf("user already exists: %w", domain.ErrConflict)
		}
		return nil, s.internal("create user", err)
	}
	slog.Info("signup pending verification", "user_id", u.UserID)
	return &Pending{Email: email}, nil
}

func (s *service) VerifySignup(ctx context.Context, email, code string) (*Session, error) {
	email = domain.NormalizeEmail(email)
	if err := validate.Struct(VerifyRequest{Email: email, OTP: code}); err != nil {
		return nil, err
	}
	if err := s.consume(ctx, email, code); err != nil {
		return nil, err
	}
	u, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return nil, s.lookupErr("verify signup lookup", err)
	}
	if !u.Verified {
		u, err = s.users.Update(ctx, u.UserID, domain.UserPatch{MarkVerified: true})
		if err != nil {
			return nil, s.lookupErr("mark verified", err)
		}
	}
	return s.establish(ctx, FlowSignup, u)
}

func (s *service) Login(ctx context.Context, email, password string) (*Pending, error) {
	email = domain.NormalizeEmail(email)
	if err := validate.Struct(CredentialsRequest{Email: email, Password: password}); err != nil {
		return nil, err
	}
	if _, err := s.resolver.ResolvePassword(ctx, email, password); err != nil {
		if isCredentialErr(err) {
			return nil, err
		}
		return nil, s.internal("resolve password", err)
	}
	if err := s.challenge(ctx, email); err != nil {
		return nil, err
	}
	return &Pending{Email: email}, nil
}

func (s *service) VerifyLogin(ctx context.Context, email, code string) (*Session, error) {
	email = domain.NormalizeEmail(email)
	if err := validate.Struct(VerifyRequest{Email: email, OTP: code}); err != nil {
		return nil, err
	}
	if err := s.consume(ctx, email, code); err != nil {
		return nil, err
	}
	u, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return nil, s.lookupErr("verify login lookup", err)
	}
	if !u.Verified {
		return nil, fmt.Errorf("user not found or not verified: %w", domain.ErrNotFound)
	}
	return s.establish(ctx, FlowPasswordLogin, u)
}

func (s *service) LoginExternal(ctx context.Context, ident domain.ExternalIdentity) (*Session, error) {
	u, err := s.resolver.ResolveExternal(ctx, ident)
	if err != nil {
		if errors.Is(err, domain.ErrMissingEmail) || errors.Is(err, domain.ErrBadRequest) {
			return nil, err
		}
		return nil, s.internal("resolve external identity", err)
	}
	return s.establish(ctx, FlowExternalLogin, u)
}

func (s *service) WhoAmI(ctx context.Context, token string) (*domain.PublicUser, error) {
	u, err := s.userFromToken(ctx, token)
	if err != nil {
		return nil, err
	}
	return u.Public(), nil
}

// Refresh mints a fresh token for the holder of a still-valid one.
func (s *service) Refresh(ctx context.Context, token string) (*Session, error) {
	u, err := s.userFromToken(ctx, token)
	if err != nil {
		return nil, err
	}
	return s.establish(ctx, FlowRefresh, u)
}

func (s *service) VerifyToken(token string) (*jwtinfra.Claims, error) {
	return s.tokens.Verify(token)
}

func (s *service) userFromToken(ctx context.Context, token string) (*domain.User, error) {
	claims, err := s.tokens.Verify(token)
	if err != nil {
		return nil, err
	}
	u, err := s.users.Get(ctx, claims.UserID)
	if err != nil {
		return nil, s.lookupErr("token user lookup", err)
	}
	return u, nil
}

// establish mints the session token. Every flow ends here.
func (s *service) establish(_ context.Context, flow FlowKind, u *domain.User) (*Session, error) {
	token, err := s.tokens.Sign(u.UserID, u.Email)
	if err != nil {
		return nil, s.internal("sign token", err)
	}
	slog.Info("session established", "flow", flow.String(), "user_id", u.UserID)
	return &Session{Token: token, User: u.Public()}, nil
}

// challenge issues a fresh code for email and sends it.
func (s *service) challenge(ctx context.Context, email string) error {
	code, err := s.ledger.Issue(ctx, email)
	if err != nil {
		return s.internal("issue otp", err)
	}
	if err := s.sender.SendCode(ctx, email, code); err != nil {
		slog.Error("otp delivery failed", "err", err)
		return fmt.Errorf("failed to send OTP email: %w", domain.ErrDeliveryFailed)
	}
	return nil
}

func (s *service) consume(ctx context.Context, email, code string) error {
	err := s.ledger.Consume(ctx, email, code)
	if err == nil || errors.Is(err, domain.ErrInvalidOTP) {
		return err
	}
	return s.internal("consume otp", err)
}

func (s *service) lookupErr(op string, err error) error {
	if errors.Is(err, domain.ErrNotFound) {
		return fmt.Errorf("user not found: %w", domain.ErrNotFound)
	}
	return s.internal(op, err)
}

func (s *service) internal(op string, err error) error {
	slog.Error("auth failure", "op", op, "err", err)
	return domain.ErrInternal
}

func isCredentialErr(err error) bool {
	return errors.Is(err, domain.ErrUnauthorized) ||
		errors.Is(err, domain.ErrUnverified) ||
		errors.Is(err, domain.ErrExternalOnly)
}
