// Package otp issues and consumes short-lived, single-use numeric codes.
package otp

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/big"
	"time"

	"github.com/go-notes-api/internal/domain"
)

const (
	DefaultTTL    = 10 * time.Minute
	DefaultLength = 6
)

// Store persists OTP records. Implementations keep at most one record per email.
type Store interface {
	// Replace stores v, discarding every earlier record for v.Email in the
	// same operation.
	Replace(ctx context.Context, v *domain.OTP) error
	// Take deletes and returns the record matching both email and code.
	// It returns domain.ErrNotFound when there is no such record.
	Take(ctx context.Context, email, code string) (*domain.OTP, error)
}

// expiredDeleter is implemented by stores without native TTL.
type expiredDeleter interface {
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

// Ledger is the OTP lifecycle: issue, consume, sweep.
type Ledger struct {
	store  Store
	ttl    time.Duration
	length int
	now    func() time.Time
	rand   io.Reader
}

type Option func(*Ledger)

// WithTTL overrides the code lifetime.
func WithTTL(d time.Duration) Option { return func(l *Ledger) { l.ttl = d } }

// WithLength overrides the number of digits.
func WithLength(n int) Option { return func(l *Ledger) { l.length = n } }

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option { return func(l *Ledger) { l.now = now } }

// WithRand overrides the randomness source.
func WithRand(r io.Reader) Option { return func(l *Ledger) { l.rand = r } }

func NewLedger(store Store, opts ...Option) *Ledger {
	l := &Ledger{
		store:  store,
		ttl:    DefaultTTL,
		length: DefaultLength,
		now:    time.Now,
		rand:   rand.Reader,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// TTL returns how long an issued code stays valid.
func (l *Ledger) TTL() time.Duration { return l.ttl }

// Issue generates a new code for email, invalidating any previous one, and
// returns it for delivery.
func (l *Ledger) Issue(ctx context.Context, email string) (string, error) {
	code, err := l.generate()
	if err != nil {
		return "", err
	}
	v := &domain.OTP{
		Email:     email,
		Code:      code,
		ExpiresAt: l.now().Add(l.ttl).Unix(),
	}
	if err := l.store.Replace(ctx, v); err != nil {
		return "", fmt.Errorf("store otp: %w", err)
	}
	return code, nil
}

// Consume accepts code for email at most once. A missing, wrong or expired
// code all yield domain.ErrInvalidOTP. Stale records are removed on the way.
func (l *Ledger) Consume(ctx context.Context, email, code string) error {
	if code == "" {
		return domain.ErrInvalidOTP
	}
	v, err := l.store.Take(ctx, email, code)
	if errors.Is(err, domain.ErrNotFound) {
		return domain.ErrInvalidOTP
	}
	if err != nil {
		return fmt.Errorf("take otp: %w", err)
	}
	if v.Expired(l.now()) {
		return domain.ErrInvalidOTP
	}
	return nil
}

// Sweep deletes expired records when the store supports it. Stores with
// native expiry (DynamoDB TTL) report zero.
func (l *Ledger) Sweep(ctx context.Context) (int64, error) {
	d, ok := l.store.(expiredDeleter)
	if !ok {
		return 0, nil
	}
	return d.DeleteExpired(ctx, l.now())
}

// SweepsExpired reports whether Sweep does any work for the configured store.
func (l *Ledger) SweepsExpired() bool {
	_, ok := l.store.(expiredDeleter)
	return ok
}

// generate returns a uniformly random numeric code of l.length digits.
func (l *Ledger) generate() (string, error) {
	limit := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(l.length)), nil)
	n, err := rand.Int(l.rand, limit)
	if err != nil {
		return "", fmt.Errorf("generate otp: %w", err)
	}
	return fmt.Sprintf("%0*d", l.length, n.Int64()), nil
}

// logSweep runs one sweep and logs the outcome; errors are not propagated.
func (l *Ledger) logSweep(ctx context.Context) {
	n, err := l.Sweep(ctx)
	if err != nil {
		slog.Warn("otp sweep failed", "err", err)
		return
	}
	if n > 0 {
		slog.Info("otp sweep removed expired codes", "count", n)
	}
}
