package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-notes-api/internal/domain"
)

const userColumns = "id, email, password_digest, external_id, verified, created_at, updated_at"

type UserRepo struct {
	db  *sql.DB
	now func() time.Time
}

func NewUserRepo(d *DB) *UserRepo {
	return &UserRepo{db: d.sqlDB, now: time.Now}
}

func (r *UserRepo) Create(ctx context.Context, u *domain.User) error {
	if !u.HasPassword() && u.ExternalID == "" {
		return fmt.Errorf("user needs a password or external id: %w", domain.ErrBadRequest)
	}
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO users (`+userColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		u.UserID, u.Email, nullString(u.PasswordDigest), nullString(u.ExternalID),
		u.Verified, toMillis(u.CreatedAt), toMillis(u.UpdatedAt),
	)
	if err != nil {
		return mapWriteErr("insert user", err)
	}
	return nil
}

func (r *UserRepo) Get(ctx context.Context, userID string) (*domain.User, error) {
	return r.queryOne(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, userID)
}

func (r *UserRepo) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	return r.queryOne(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1`, email)
}

func (r *UserRepo) GetByExternalID(ctx context.Context, externalID string) (*domain.User, error) {
	return r.queryOne(ctx, `SELECT `+userColumns+` FROM users WHERE external_id = $1`, externalID)
}

// Update applies patch in a single statement and returns the stored row.
func (r *UserRepo) Update(ctx context.Context, userID string, patch domain.UserPatch) (*domain.User, error) {
	sets := []string{"updated_at = $1"}
	args := []interface{}{toMillis(r.now())}
	if patch.MarkVerified {
		sets = append(sets, "verified = TRUE")
	}
	if patch.ExternalID != nil {
		args = append(args, *patch.ExternalID)
		sets = append(sets, fmt.Sprintf("external_id = $%d", len(args)))
	}
	args = append(args, userID)
	query := fmt.Sprintf(`UPDATE users SET %s WHERE id = $%d RETURNING %s`,
		strings.Join(sets, ", "), len(args), userColumns)

	u, err := scanUser(r.db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("user %s: %w", userID, domain.ErrNotFound)
	}
	if err != nil {
		return nil, mapWriteErr("update user", err)
	}
	return u, nil
}

func (r *UserRepo) queryOne(ctx context.Context, query string, arg string) (*domain.User, error) {
	u, err := scanUser(r.db.QueryRowContext(ctx, query, arg))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("user not found: %w", domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("select user: %w", err)
	}
	return u, nil
}

func scanUser(s scanner) (*domain.User, error) {
	var (
		u                  domain.User
		digest, externalID sql.NullString
		created, updated   int64
	)
	if err := s.Scan(&u.UserID, &u.Email, &digest, &externalID, &u.Verified, &created, &updated); err != nil {
		return nil, err
	}
	u.PasswordDigest = digest.String
	u.ExternalID = externalID.String
	u.CreatedAt = fromMillis(created)
	u.UpdatedAt = fromMillis(updated)
	return &u, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
