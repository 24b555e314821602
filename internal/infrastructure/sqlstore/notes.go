package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/go-notes-api/internal/domain"
)

const noteColumns = "id, user_id, title, content, created_at, updated_at"

type NoteRepo struct {
	db *sql.DB
}

func NewNoteRepo(d *DB) *NoteRepo {
	return &NoteRepo{db: d.sqlDB}
}

// Put inserts the note or overwrites its title, content and updated_at.
func (r *NoteRepo) Put(ctx context.Context, n *domain.Note) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO notes (`+noteColumns+`) VALUES ($1, $2, $3, $4, $5, $6)
		 ON CONFLICT (id) DO UPDATE SET title = excluded.title, content = excluded.content, updated_at = excluded.updated_at
		 WHERE notes.user_id = excluded.user_id`,
		n.NoteID, n.UserID, n.Title, n.Content, toMillis(n.CreatedAt), toMillis(n.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("upsert note: %w", err)
	}
	return nil
}

func (r *NoteRepo) Get(ctx context.Context, userID, noteID string) (*domain.Note, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+noteColumns+` FROM notes WHERE id = $1 AND user_id = $2`, noteID, userID)
	n, err := scanNote(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("note not found: %w", domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("select note: %w", err)
	}
	return n, nil
}

func (r *NoteRepo) ListByUser(ctx context.Context, userID string) ([]domain.Note, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+noteColumns+` FROM notes WHERE user_id = $1 ORDER BY created_at DESC, id DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("list notes: %w", err)
	}
	defer rows.Close()

	notes := []domain.Note{}
	for rows.Next() {
		n, err := scanNote(rows)
		if err != nil {
			return nil, fmt.Errorf("scan note: %w", err)
		}
		notes = append(notes, *n)
	}
	return notes, rows.Err()
}

func (r *NoteRepo) Delete(ctx context.Context, userID, noteID string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM notes WHERE id = $1 AND user_id = $2`, noteID, userID)
	if err != nil {
		return fmt.Errorf("delete note: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("note not found: %w", domain.ErrNotFound)
	}
	return nil
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanNote(s scanner) (*domain.Note, error) {
	var (
		n                domain.Note
		created, updated int64
	)
	if err := s.Scan(&n.NoteID, &n.UserID, &n.Title, &n.Content, &created, &updated); err != nil {
		return nil, err
	}
	n.CreatedAt = fromMillis(created)
	n.UpdatedAt = fromMillis(updated)
	return &n, nil
}
