package jwtinfra

import (
	"crypto/rsa"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/go-notes-api/internal/config"
	"github.com/go-notes-api/internal/domain"
	"github.com/golang-jwt/jwt/v5"
)

// errInvalidToken is returned for every rejected token; the cause is only logged.
var errInvalidToken = fmt.Errorf("invalid or expired token: %w", domain.ErrInvalidToken)

// Claims holds the JWT payload fields.
type Claims struct {
	UserID string `json:"userId"`
	Email  string `json:"email"`
	jwt.RegisteredClaims
}

// Provider signs and verifies session JWTs. It uses RS256 when a key pair is
// configured and HS256 with a shared secret otherwise.
type Provider struct {
	method    jwt.SigningMethod
	signKey   interface{}
	verifyKey interface{}
	expiry    time.Duration
	now       func() time.Time
}

// NewProvider loads key material once. RS256 key files take precedence over JWT_SECRET.
func NewProvider(cfg *config.Config) (*Provider, error) {
	if cfg.JWTPrivateKeyPath != "" {
		privKey, pubKey, err := loadRSAKeys(cfg.JWTPrivateKeyPath, cfg.JWTPublicKeyPath)
		if err != nil {
			return nil, err
		}
		return &Provider{
			method:    jwt.SigningMethodRS256,
			signKey:   privKey,
			verifyKey: pubKey,
			expiry:    cfg.JWTExpiry,
			now:       time.Now,
		}, nil
	}
	if cfg.JWTSecret == "" {
		return nil, errors.New("no JWT signing key configured")
	}
	secret := []byte(cfg.JWTSecret)
	return &Provider{
		method:    jwt.SigningMethodHS256,
		signKey:   secret,
		verifyKey: secret,
		expiry:    cfg.JWTExpiry,
		now:       time.Now,
	}, nil
}

func loadRSAKeys(privPath, pubPath string) (*rsa.PrivateKey, *rsa.PublicKey, error) {
	privBytes, err := os.ReadFile(privPath)
	if err != nil {
		return nil, nil, fmt.Errorf("read private key: %w", err)
	}
	privKey, err := jwt.ParseRSAPrivateKeyFromPEM(privBytes)
	if err != nil {
		return nil, nil, fmt.Errorf("parse private key: %w", err)
	}
	if pubPath == "" {
		return privKey, &privKey.PublicKey, nil
	}

	pubBytes, err := os.ReadFile(pubPath)
	if err != nil {
		return nil, nil, fmt.Errorf("read public key: %w", err)
	}
	pubKey, err := jwt.ParseRSAPublicKeyFromPEM(pubBytes)
	if err != nil {
		return nil, nil, fmt.Errorf("parse public key: %w", err)
	}
	return privKey, pubKey, nil
}

// WithClock replaces the provider's time source. Intended for tests.
func (p *Provider) WithClock(now func() time.Time) *Provider {
	cp := *p
	cp.now = now
	return &cp
}

// Expiry returns the validity window of minted tokens.
func (p *Provider) Expiry() time.Duration { return p.expiry }

func (p *Provider) Sign(userID, email string) (string, error) {
	now := p.now()
	claims := Claims{
		UserID: userID,
		Email:  email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			ExpiresAt: jwt.NewNumericDate(now.Add(p.expiry)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}
	token := jwt.NewWithClaims(p.method, claims)
	return token.SignedString(p.signKey)
}

// Verify parses tokenStr and checks signature, algorithm and expiry. Every
// failure is reported as domain.ErrInvalidToken.
func (p *Provider) Verify(tokenStr string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if t.Method.Alg() != p.method.Alg() {
			return nil, errors.New("unexpected signing method")
		}
		return p.verifyKey, nil
	},
		jwt.WithTimeFunc(p.now),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		slog.Debug("token rejected", "err", err)
		return nil, errInvalidToken
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.UserID == "" {
		return nil, errInvalidToken
	}
	return claims, nil
}
