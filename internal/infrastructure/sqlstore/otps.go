package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-notes-api/internal/domain"
)

// OTPRepo keeps one row per email. Expired rows are removed by DeleteExpired.
type OTPRepo struct {
	db *sql.DB
}

func NewOTPRepo(d *DB) *OTPRepo {
	return &OTPRepo{db: d.sqlDB}
}

func (r *OTPRepo) Replace(ctx context.Context, v *domain.OTP) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO otps (email, code, expires_at) VALUES ($1, $2, $3)
		 ON CONFLICT (email) DO UPDATE SET code = excluded.code, expires_at = excluded.expires_at`,
		v.Email, v.Code, v.ExpiresAt,
	)
	if err != nil {
		return fmt.Errorf("upsert otp: %w", err)
	}
	return nil
}

func (r *OTPRepo) Take(ctx context.Context, email, code string) (*domain.OTP, error) {
	var v domain.OTP
	err := r.db.QueryRowContext(ctx,
		`DELETE FROM otps WHERE email = $1 AND code = $2 RETURNING email, code, expires_at`,
		email, code,
	).Scan(&v.Email, &v.Code, &v.ExpiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("otp not found: %w", domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("take otp: %w", err)
	}
	return &v, nil
}

func (r *OTPRepo) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM otps WHERE expires_at <= $1`, now.Unix())
	if err != nil {
		return 0, fmt.Errorf("delete expired otps: %w", err)
	}
	return res.RowsAffected()
}
