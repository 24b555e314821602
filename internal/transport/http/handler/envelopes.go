package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-notes-api/internal/domain"
)

// MessageEnvelope is the generic response wrapper.
type MessageEnvelope struct {
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
}

// SessionEnvelope wraps every response that carries a fresh token.
type SessionEnvelope struct {
	Message string             `json:"message,omitempty"`
	Token   string             `json:"token"`
	User    *domain.PublicUser `json:"user"`
}

// PendingEnvelope tells the client a code was emailed and must be submitted next.
type PendingEnvelope struct {
	Message     string `json:"message"`
	RequiresOTP bool   `json:"requiresOTP"`
	Email       string `json:"email"`
}

// UserEnvelope wraps the current-user response.
type UserEnvelope struct {
	User *domain.PublicUser `json:"user"`
}

// NoteEnvelope wraps a single note.
type NoteEnvelope struct {
	Message string       `json:"message,omitempty"`
	Note    *domain.Note `json:"note"`
}

// NotesEnvelope wraps a note list.
type NotesEnvelope struct {
	Notes []domain.Note `json:"notes"`
}

// HealthEnvelope is the liveness response.
type HealthEnvelope struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, MessageEnvelope{Error: msg})
}

// decodeJSON reads a JSON body into v, writing a 400 on failure.
func decodeJSON(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}
