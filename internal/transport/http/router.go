package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/go-notes-api/internal/config"
	"github.com/go-notes-api/internal/transport/http/handler"
	appmiddleware "github.com/go-notes-api/internal/transport/http/middleware"
)

// NewRouter builds and returns the application router.
func NewRouter(cfg *config.Config, deps *Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.RequestID)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	limit := func(next http.Handler) http.Handler { return next }
	if deps.AuthLimiter != nil {
		limit = deps.AuthLimiter.Limit
	}

	healthH := handler.NewHealthHandler()
	authH := handler.NewAuthHandler(handler.AuthHandlerDeps{
		Service:      deps.AuthService,
		IDTokens:     deps.GoogleIDTokens,
		OAuth:        deps.GoogleOAuth,
		FrontendURL:  cfg.FrontendURL,
		SecureCookie: cfg.IsProduction(),
	})
	noteH := handler.NewNoteHandler(deps.NoteService)

	r.Get("/health", healthH.Health)

	r.Route("/api", func(r chi.Router) {
		r.Use(limit)
		r.Get("/health", healthH.Health)

		r.Route("/auth", func(r chi.Router) {
			r.Post("/signup", authH.Signup)
			r.Post("/verify-otp", authH.VerifySignup)
			r.Post("/login", authH.Login)
			r.Post("/verify-login-otp", authH.VerifyLogin)
			r.Post("/google/token", authH.GoogleToken)
			r.Get("/google", authH.GoogleStart)
			r.Get("/google/callback", authH.GoogleCallback)
			r.Post("/refresh", authH.Refresh)
			r.Get("/me", authH.Me)
		})

		r.Route("/notes", func(r chi.Router) {
			r.Use(appmiddleware.Auth(deps.AuthService))
			r.Get("/", noteH.List)
			r.Post("/", noteH.Create)
			r.Put("/{id}", noteH.Update)
			r.Delete("/{id}", noteH.Delete)
		})
	})

	return r
}
