// Package memory provides process-local stores for development and tests.
// All data is lost on restart.
package memory

import (
	"context"
	"crypto/subtle"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/go-notes-api/internal/domain"
)

// UserStore keeps users in a map and enforces email and external-id uniqueness.
type UserStore struct {
	mu         sync.RWMutex
	byID       map[string]domain.User
	byEmail    map[string]string
	byExternal map[string]string
}

func NewUserStore() *UserStore {
	return &UserStore{
		byID:       make(map[string]domain.User),
		byEmail:    make(map[string]string),
		byExternal: make(map[string]string),
	}
}

func (s *UserStore) Create(_ context.Context, u *domain.User) error {
	if !u.HasPassword() && u.ExternalID == "" {
		return fmt.Errorf("user needs a password or external id: %w", domain.ErrBadRequest)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byID[u.UserID]; ok {
		return fmt.Errorf("user id %s: %w", u.UserID, domain.ErrDuplicateKey)
	}
	if _, ok := s.byEmail[u.Email]; ok {
		return fmt.Errorf("email %s: %w", u.Email, domain.ErrDuplicateKey)
	}
	if u.ExternalID != "" {
		if _, ok := s.byExternal[u.ExternalID]; ok {
			return fmt.Errorf("external id: %w", domain.ErrDuplicateKey)
		}
		s.byExternal[u.ExternalID] = u.UserID
	}
	s.byID[u.UserID] = *u
	s.byEmail[u.Email] = u.UserID
	return nil
}

func (s *UserStore) Get(_ context.Context, userID string) (*domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lookup(userID, true)
}

func (s *UserStore) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.byEmail[email]
	return s.lookup(id, ok)
}

func (s *UserStore) GetByExternalID(_ context.Context, externalID string) (*domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.byExternal[externalID]
	return s.lookup(id, ok)
}

func (s *UserStore) Update(_ context.Context, userID string, patch domain.UserPatch) (*domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.byID[userID]
	if !ok {
		return nil, fmt.Errorf("user %s: %w", userID, domain.ErrNotFound)
	}
	if patch.ExternalID != nil && *patch.ExternalID != u.ExternalID {
		if owner, taken := s.byExternal[*patch.ExternalID]; taken && owner != userID {
			return nil, fmt.Errorf("external id: %w", domain.ErrDuplicateKey)
		}
		if u.ExternalID != "" {
			delete(s.byExternal, u.ExternalID)
		}
		s.byExternal[*patch.ExternalID] = userID
	}
	patch.Apply(&u, time.Now().UTC())
	s.byID[userID] = u
	return &u, nil
}

func (s *UserStore) lookup(id string, ok bool) (*domain.User, error) {
	if !ok {
		return nil, fmt.Errorf("user not found: %w", domain.ErrNotFound)
	}
	u, ok := s.byID[id]
	if !ok {
		return nil, fmt.Errorf("user not found: %w", domain.ErrNotFound)
	}
	return &u, nil
}

// OTPStore keeps one OTP per email.
type OTPStore struct {
	mu      sync.Mutex
	byEmail map[string]domain.OTP
}

func NewOTPStore() *OTPStore {
	return &OTPStore{byEmail: make(map[string]domain.OTP)}
}

func (s *OTPStore) Replace(_ context.Context, v *domain.OTP) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.byEmail[v.Email] = *v
	return nil
}

func (s *OTPStore) Take(_ context.Context, email, code string) (*domain.OTP, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.byEmail[email]
	if !ok || subtle.ConstantTimeCompare([]byte(v.Code), []byte(code)) != 1 {
		return nil, fmt.Errorf("otp not found: %w", domain.ErrNotFound)
	}
	delete(s.byEmail, email)
	return &v, nil
}

func (s *OTPStore) DeleteExpired(_ context.Context, now time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for email, v := range s.byEmail {
		if v.Expired(now) {
			delete(s.byEmail, email)
			n++
		}
	}
	return n, nil
}

// Get returns the outstanding record for email, if any.
func (s *OTPStore) Get(email string) (*domain.OTP, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.byEmail[email]
	return &v, ok
}

// Len returns the number of outstanding records.
func (s *OTPStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.byEmail)
}

// NoteStore keeps notes keyed by id.
type NoteStore struct {
	mu    sync.RWMutex
	notes map[string]domain.Note
}

func NewNoteStore() *NoteStore {
	return &NoteStore{notes: make(map[string]domain.Note)}
}

func (s *NoteStore) Put(_ context.Context, n *domain.Note) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.notes[n.NoteID] = *n
	return nil
}

func (s *NoteStore) Get(_ context.Context, userID, noteID string) (*domain.Note, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n, ok := s.notes[noteID]
	if !ok || n.UserID != userID {
		return nil, fmt.Errorf("note not found: %w", domain.ErrNotFound)
	}
	return &n, nil
}

func (s *NoteStore) ListByUser(_ context.Context, userID string) ([]domain.Note, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []domain.Note{}
	for _, n := range s.notes {
		if n.UserID == userID {
			out = append(out, n)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].NoteID > out[j].NoteID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (s *NoteStore) Delete(_ context.Context, userID, noteID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	n, ok := s.notes[noteID]
	if !ok || n.UserID != userID {
		return fmt.Errorf("note not found: %w", domain.ErrNotFound)
	}
	delete(s.notes, noteID)
	return nil
}
