package note

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-notes-api/internal/domain"
	"github.com/go-notes-api/internal/pkg/id"
	"github.com/go-notes-api/internal/pkg/validate"
)

type Service interface {
	List(ctx context.Context, userID string) ([]domain.Note, error)
	Create(ctx context.Context, userID string, in domain.NoteInput) (*domain.Note, error)
	Update(ctx context.Context, userID, noteID string, in domain.NoteInput) (*domain.Note, error)
	Delete(ctx context.Context, userID, noteID string) error
}

// noteStore scopes every read and delete by owner; a note belonging to
// someone else is reported as domain.ErrNotFound.
type noteStore interface {
	Put(ctx context.Context, n *domain.Note) error
	Get(ctx context.Context, userID, noteID string) (*domain.Note, error)
	ListByUser(ctx context.Context, userID string) ([]domain.Note, error)
	Delete(ctx context.Context, userID, noteID string) error
}

type service struct {
	repo noteStore
	now  func() time.Time
}

func NewService(repo noteStore) Service {
	return &service{repo: repo, now: time.Now}
}

// List returns the user's notes, newest first.
func (s *service) List(ctx context.Context, userID string) ([]domain.Note, error) {
	return s.repo.ListByUser(ctx, userID)
}

func (s *service) Create(ctx context.Context, userID string, in domain.NoteInput) (*domain.Note, error) {
	in = trim(in)
	if err := validate.Struct(in); err != nil {
		return nil, err
	}
	now := s.now().UTC()
	n := &domain.Note{
		NoteID:    id.New(),
		UserID:    userID,
		Title:     in.Title,
		Content:   in.Content,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.repo.Put(ctx, n); err != nil {
		return nil, fmt.Errorf("put note: %w", err)
	}
	return n, nil
}

func (s *service) Update(ctx context.Context, userID, noteID string, in domain.NoteInput) (*domain.Note, error) {
	in = trim(in)
	if err := validate.Struct(in); err != nil {
		return nil, err
	}
	n, err := s.repo.Get(ctx, userID, noteID)
	if err != nil {
		return nil, err
	}
	n.Title = in.Title
	n.Content = in.Content
	n.UpdatedAt = s.now().UTC()
	if err := s.repo.Put(ctx, n); err != nil {
		return nil, fmt.Errorf("put note: %w", err)
	}
	return n, nil
}

func (s *service) Delete(ctx context.Context, userID, noteID string) error {
	return s.repo.Delete(ctx, userID, noteID)
}

func trim(in domain.NoteInput) domain.NoteInput {
	return domain.NoteInput{Title: strings.TrimSpace(in.Title), Content: strings.TrimSpace(in.Content)}
}
