package otp_test

import (
	"context"
	"errors"
	"regexp"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/go-notes-api/internal/application/otp"
	"github.com/go-notes-api/internal/domain"
	"github.com/go-notes-api/internal/infrastructure/memory"
)

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newLedger(t *testing.T) (*otp.Ledger, *memory.OTPStore, *clock) {
	t.Helper()
	store := memory.NewOTPStore()
	clk := &clock{now: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)}
	return otp.NewLedger(store, otp.WithClock(clk.Now)), store, clk
}

func TestIssue_CodeIsSixDigits(t *testing.T) {
	l, store, clk := newLedger(t)

	code, err := l.Issue(context.Background(), "a@x.io")
	require.NoError(t, err)
	assert.Regexp(t, regexp.MustCompile(`^[0-9]{6}$`), code)

	rec, ok := store.Get("a@x.io")
	require.True(t, ok)
	assert.Equal(t, code, rec.Code)
	assert.Equal(t, clk.Now().Add(10*time.Minute).Unix(), rec.ExpiresAt)
}

func TestIssue_CustomLengthKeepsLeadingZeros(t *testing.T) {
	store := memory.NewOTPStore()
	l := otp.NewLedger(store, otp.WithLength(8), otp.WithRand(zeroReader{}))

	code, err := l.Issue(context.Background(), "a@x.io")
	require.NoError(t, err)
	assert.Equal(t, "00000000", code)
}

func TestConsume_SingleUse(t *testing.T) {
	l, store, _ := newLedger(t)
	ctx := context.Background()
	code, err := l.Issue(ctx, "a@x.io")
	require.NoError(t, err)

	require.NoError(t, l.Consume(ctx, "a@x.io", code))
	assert.ErrorIs(t, l.Consume(ctx, "a@x.io", code), domain.ErrInvalidOTP)
	assert.Equal(t, 0, store.Len())
}

func TestConsume_ConcurrentCallersSucceedOnce(t *testing.T) {
	l, _, _ := newLedger(t)
	ctx := context.Background()
	code, err := l.Issue(ctx, "a@x.io")
	require.NoError(t, err)

	const callers = 16
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		success int
	)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if l.Consume(ctx, "a@x.io", code) == nil {
				mu.Lock()
				success++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, success)
}

func TestConsume_WrongCodeKeepsRecord(t *testing.T) {
	l, store, _ := newLedger(t)
	ctx := context.Background()
	code, err := l.Issue(ctx, "a@x.io")
	require.NoError(t, err)

	wrong := "000000"
	if code == wrong {
		wrong = "111111"
	}
	assert.ErrorIs(t, l.Consume(ctx, "a@x.io", wrong), domain.ErrInvalidOTP)
	assert.ErrorIs(t, l.Consume(ctx, "a@x.io", ""), domain.ErrInvalidOTP)
	assert.Equal(t, 1, store.Len())

	require.NoError(t, l.Consume(ctx, "a@x.io", code))
}

func TestConsume_UnknownEmail(t *testing.T) {
	l, _, _ := newLedger(t)
	assert.ErrorIs(t, l.Consume(context.Background(), "nobody@x.io", "123456"), domain.ErrInvalidOTP)
}

func TestIssue_ReissueInvalidatesPreviousCode(t *testing.T) {
	l, store, _ := newLedger(t)
	ctx := context.Background()

	first, err := l.Issue(ctx, "a@x.io")
	require.NoError(t, err)
	second, err := l.Issue(ctx, "a@x.io")
	require.NoError(t, err)

	assert.Equal(t, 1, store.Len())
	if first != second {
		assert.ErrorIs(t, l.Consume(ctx, "a@x.io", first), domain.ErrInvalidOTP)
	}
	require.NoError(t, l.Consume(ctx, "a@x.io", second))
}

func TestConsume_ExpiredCodeIsRemoved(t *testing.T) {
	l, store, clk := newLedger(t)
	ctx := context.Background()
	code, err := l.Issue(ctx, "a@x.io")
	require.NoError(t, err)

	clk.Advance(10*time.Minute + time.Second)

	assert.ErrorIs(t, l.Consume(ctx, "a@x.io", code), domain.ErrInvalidOTP)
	_, ok := store.Get("a@x.io")
	assert.False(t, ok)
}

func TestConsume_JustBeforeExpiry(t *testing.T) {
	l, _, clk := newLedger(t)
	ctx := context.Background()
	code, err := l.Issue(ctx, "a@x.io")
	require.NoError(t, err)

	clk.Advance(9*time.Minute + 59*time.Second)
	assert.NoError(t, l.Consume(ctx, "a@x.io", code))
}

func TestConsume_SubSecondIssueDoesNotExtendLifetime(t *testing.T) {
	l, _, clk := newLedger(t)
	ctx := context.Background()
	clk.Advance(900 * time.Millisecond)
	code, err := l.Issue(ctx, "a@x.io")
	require.NoError(t, err)

	// 50ms past issue+TTL, still inside the same wall-clock second.
	clk.Advance(10*time.Minute + 50*time.Millisecond)
	assert.ErrorIs(t, l.Consume(ctx, "a@x.io", code), domain.ErrInvalidOTP)
}

func TestIssue_ConcurrentLeavesExactlyOneRecord(t *testing.T) {
	l, store, _ := newLedger(t)
	ctx := context.Background()

	const issuers = 8
	codes := make([]string, issuers)
	var wg sync.WaitGroup
	for i := 0; i < issuers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			c, err := l.Issue(ctx, "a@x.io")
			assert.NoError(t, err)
			codes[i] = c
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 1, store.Len())
	rec, ok := store.Get("a@x.io")
	require.True(t, ok)
	assert.Contains(t, codes, rec.Code)
}

func TestSweep_RemovesOnlyExpired(t *testing.T) {
	l, store, clk := newLedger(t)
	ctx := context.Background()
	_, err := l.Issue(ctx, "old@x.io")
	require.NoError(t, err)
	clk.Advance(11 * time.Minute)
	_, err = l.Issue(ctx, "new@x.io")
	require.NoError(t, err)

	assert.True(t, l.SweepsExpired())
	n, err := l.Sweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	_, ok := store.Get("new@x.io")
	assert.True(t, ok)
}

func TestSweep_StoreWithoutDeleteExpired(t *testing.T) {
	l := otp.NewLedger(takeOnlyStore{})
	assert.False(t, l.SweepsExpired())
	n, err := l.Sweep(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestIssue_StoreFailure(t *testing.T) {
	l := otp.NewLedger(takeOnlyStore{err: errors.New("boom")})
	_, err := l.Issue(context.Background(), "a@x.io")
	assert.Error(t, err)
}

type zeroReader struct{}

func (zeroReader) Read(p []byte) (int, error) {
	for i := range p {
		p[i] = 0
	}
	return len(p), nil
}

type takeOnlyStore struct{ err error }

func (s takeOnlyStore) Replace(context.Context, *domain.OTP) error { return s.err }

func (s takeOnlyStore) Take(context.Context, string, string) (*domain.OTP, error) {
	return nil, domain.ErrNotFound
}
