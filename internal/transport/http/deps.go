package http

import (
	"github.com/go-notes-api/internal/application/auth"
	"github.com/go-notes-api/internal/application/note"
	"github.com/go-notes-api/internal/transport/http/handler"
	appmiddleware "github.com/go-notes-api/internal/transport/http/middleware"
)

// Deps holds the application services the router serves.
type Deps struct {
	AuthService auth.Service
	NoteService note.Service

	// Google sign-in; either may be nil when the client is not configured.
	GoogleIDTokens handler.IDTokenVerifier
	GoogleOAuth    handler.OAuthFlow

	// AuthLimiter throttles every /api route per client IP. The caller owns it
	// and must Stop it on shutdown.
	AuthLimiter *appmiddleware.RateLimiter
}
