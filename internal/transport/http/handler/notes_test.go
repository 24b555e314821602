package handler

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/go-notes-api/internal/domain"
	jwtinfra "github.com/go-notes-api/internal/infrastructure/jwt"
	"github.com/go-notes-api/internal/transport/http/middleware"
)

// withUser injects claims the way middleware.Auth does.
func withUser(userID string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := context.WithValue(r.Context(), middleware.ClaimsKey, &jwtinfra.Claims{UserID: userID})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func noteRouter(svc *mockNoteSvc) http.Handler {
	h := NewNoteHandler(svc)
	r := chi.NewRouter()
	r.Use(withUser("u1"))
	r.Get("/notes", h.List)
	r.Post("/notes", h.Create)
	r.Put("/notes/{id}", h.Update)
	r.Delete("/notes/{id}", h.Delete)
	return r
}

func TestNotes_List(t *testing.T) {
	svc := new(mockNoteSvc)
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	svc.On("List", mock.Anything, "u1").Return([]domain.Note{{NoteID: "n1", UserID: "u1", Title: "t", Content: "c", CreatedAt: now, UpdatedAt: now}}, nil)

	rec := httptest.NewRecorder()
	noteRouter(svc).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/notes", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	notes := decodeBody(t, rec)["notes"].([]interface{})
	require.Len(t, notes, 1)
	n := notes[0].(map[string]interface{})
	assert.Equal(t, "n1", n["id"])
	assert.NotContains(t, n, "userId")
}

func TestNotes_Create(t *testing.T) {
	svc := new(mockNoteSvc)
	in := domain.NoteInput{Title: "t", Content: "c"}
	svc.On("Create", mock.Anything, "u1", in).Return(&domain.Note{NoteID: "n1", Title: "t", Content: "c"}, nil)

	rec := httptest.NewRecorder()
	noteRouter(svc).ServeHTTP(rec, postJSON(t, "/notes", in))

	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "Note created successfully", decodeBody(t, rec)["message"])
}

func TestNotes_CreateValidation(t *testing.T) {
	svc := new(mockNoteSvc)
	svc.On("Create", mock.Anything, "u1", mock.Anything).Return(nil, fmt.Errorf("title is required: %w", domain.ErrBadRequest))

	rec := httptest.NewRecorder()
	noteRouter(svc).ServeHTTP(rec, postJSON(t, "/notes", domain.NoteInput{Content: "c"}))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "title is required", decodeBody(t, rec)["error"])
}

func TestNotes_UpdateUsesPathID(t *testing.T) {
	svc := new(mockNoteSvc)
	in := domain.NoteInput{Title: "new", Content: "body"}
	svc.On("Update", mock.Anything, "u1", "n9", in).Return(&domain.Note{NoteID: "n9", Title: "new", Content: "body"}, nil)

	req := postJSON(t, "/notes/n9", in)
	req.Method = http.MethodPut
	rec := httptest.NewRecorder()
	noteRouter(svc).ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Note updated successfully", decodeBody(t, rec)["message"])
	svc.AssertExpectations(t)
}

func TestNotes_DeleteNotFound(t *testing.T) {
	svc := new(mockNoteSvc)
	svc.On("Delete", mock.Anything, "u1", "nope").Return(fmt.Errorf("note not found: %w", domain.ErrNotFound))

	rec := httptest.NewRecorder()
	noteRouter(svc).ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/notes/nope", nil))

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "note not found", decodeBody(t, rec)["error"])
}

func TestNotes_RequiresClaims(t *testing.T) {
	h := NewNoteHandler(new(mockNoteSvc))

	rec := httptest.NewRecorder()
	h.List(rec, httptest.NewRequest(http.MethodGet, "/notes", nil))

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
