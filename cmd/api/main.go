package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/time/rate"

	"github.com/go-notes-api/internal/application/auth"
	"github.com/go-notes-api/internal/application/identity"
	"github.com/go-notes-api/internal/application/note"
	"github.com/go-notes-api/internal/application/otp"
	"github.com/go-notes-api/internal/config"
	"github.com/go-notes-api/internal/domain"
	"github.com/go-notes-api/internal/infrastructure/dynamo"
	"github.com/go-notes-api/internal/infrastructure/google"
	jwtinfra "github.com/go-notes-api/internal/infrastructure/jwt"
	"github.com/go-notes-api/internal/infrastructure/logsender"
	"github.com/go-notes-api/internal/infrastructure/memory"
	"github.com/go-notes-api/internal/infrastructure/smtp"
	"github.com/go-notes-api/internal/infrastructure/sns"
	"github.com/go-notes-api/internal/infrastructure/sqlstore"
	"github.com/go-notes-api/internal/pkg/password"
	transporthttp "github.com/go-notes-api/internal/transport/http"
	appmiddleware "github.com/go-notes-api/internal/transport/http/middleware"
)

type userRepo interface {
	Get(ctx context.Context, userID string) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	GetByExternalID(ctx context.Context, externalID string) (*domain.User, error)
	Create(ctx context.Context, u *domain.User) error
	Update(ctx context.Context, userID string, patch domain.UserPatch) (*domain.User, error)
}

type noteRepo interface {
	Put(ctx context.Context, n *domain.Note) error
	Get(ctx context.Context, userID, noteID string) (*domain.Note, error)
	ListByUser(ctx context.Context, userID string) ([]domain.Note, error)
	Delete(ctx context.Context, userID, noteID string) error
}

type stores struct {
	users userRepo
	otps  otp.Store
	notes noteRepo
	close func() error
}

func main() {
	if err := godotenv.Load(); err != nil {
		slog.Info("no .env file found, reading from environment")
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("load config", "err", err)
		os.Exit(1)
	}
	slog.SetDefault(newLogger(cfg))

	if err := run(cfg); err != nil {
		slog.Error("server exited", "err", err)
		os.Exit(1)
	}
}

func newLogger(cfg *config.Config) *slog.Logger {
	if cfg.IsProduction() {
		return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

func run(cfg *config.Config) error {
	ctx := context.Background()

	st, err := openStores(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := st.close(); err != nil {
			slog.Warn("close storage", "err", err)
		}
	}()

	tokens, err := jwtinfra.NewProvider(cfg)
	if err != nil {
		return fmt.Errorf("jwt provider: %w", err)
	}

	sender, err := newCodeSender(ctx, cfg)
	if err != nil {
		return err
	}

	ledger := otp.NewLedger(st.otps, otp.WithTTL(cfg.OTPTTL), otp.WithLength(cfg.OTPLength))
	if ledger.SweepsExpired() {
		sweeper, err := otp.NewSweeper(ledger, cfg.OTPSweepSchedule)
		if err != nil {
			return err
		}
		sweeper.Start()
		defer sweeper.Stop()
	}

	hasher := password.NewHasher(0)
	authSvc := auth.NewService(auth.ServiceDeps{
		UserRepo: st.users,
		Ledger:   ledger,
		Resolver: identity.NewResolver(identity.ResolverDeps{UserRepo: st.users, Hasher: hasher}),
		Tokens:   tokens,
		Hasher:   hasher,
		Sender:   sender,
	})

	limiter := appmiddleware.NewRateLimiter(rate.Limit(cfg.RateLimitRPS), cfg.RateLimitBurst)
	if cfg.TrustProxyHeaders {
		limiter.TrustProxyHeaders()
	}
	defer limiter.Stop()

	deps := &transporthttp.Deps{
		AuthService: authSvc,
		NoteService: note.NewService(st.notes),
		AuthLimiter: limiter,
	}
	if cfg.GoogleClientID != "" {
		verifier := google.NewVerifier(cfg.GoogleClientID)
		deps.GoogleIDTokens = verifier
		if cfg.GoogleEnabled() {
			deps.GoogleOAuth = google.NewOAuth(cfg, verifier)
		}
	} else {
		slog.Warn("google sign-in disabled: GOOGLE_CLIENT_ID not set")
	}

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.AppPort),
		Handler:      transporthttp.NewRouter(cfg, deps),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("server starting", "port", cfg.AppPort, "env", cfg.AppEnv, "storage", cfg.StorageDriver, "otp_delivery", cfg.OTPDelivery)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	case <-quit:
	}

	slog.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("forced shutdown: %w", err)
	}
	slog.Info("server stopped")
	return nil
}

func openStores(ctx context.Context, cfg *config.Config) (*stores, error) {
	switch cfg.StorageDriver {
	case config.StorageDynamo:
		client, err := dynamo.NewClient(ctx, cfg)
		if err != nil {
			return nil, fmt.Errorf("dynamodb client: %w", err)
		}
		dynamo.Bootstrap(ctx, client, cfg.DynamoTables)
		return &stores{
			users: dynamo.NewUserRepo(client, cfg.DynamoTables.Users, cfg.DynamoTables.UserKeys),
			otps:  dynamo.NewOTPRepo(client, cfg.DynamoTables.OTPs),
			notes: dynamo.NewNoteRepo(client, cfg.DynamoTables.Notes),
			close: func() error { return nil },
		}, nil
	case config.StoragePostgres, config.StorageSQLite:
		dialect, dsn := sqlstore.Postgres, cfg.DatabaseURL
		if cfg.StorageDriver == config.StorageSQLite {
			dialect, dsn = sqlstore.SQLite, cfg.SQLitePath
		}
		db, err := sqlstore.Open(ctx, dialect, dsn)
		if err != nil {
			return nil, err
		}
		return &stores{
			users: sqlstore.NewUserRepo(db),
			otps:  sqlstore.NewOTPRepo(db),
			notes: sqlstore.NewNoteRepo(db),
			close: db.Close,
		}, nil
	case config.StorageMemory:
		slog.Warn("using in-memory storage; data is lost on restart")
		return &stores{
			users: memory.NewUserStore(),
			otps:  memory.NewOTPStore(),
			notes: memory.NewNoteStore(),
			close: func() error { return nil },
		}, nil
	}
	return nil, fmt.Errorf("unknown storage driver %q", cfg.StorageDriver)
}

func newCodeSender(ctx context.Context, cfg *config.Config) (auth.CodeSender, error) {
	switch cfg.OTPDelivery {
	case config.DeliverySMTP:
		m, err := smtp.NewCodeMailer(cfg)
		if err != nil {
			return nil, fmt.Errorf("smtp mailer: %w", err)
		}
		return m, nil
	case config.DeliverySNS:
		p, err := sns.NewCodePublisher(ctx, cfg)
		if err != nil {
			return nil, fmt.Errorf("sns publisher: %w", err)
		}
		return p, nil
	case config.DeliveryLog:
		slog.Warn("OTP codes are written to the log; do not use outside development")
		return logsender.New(slog.Default()), nil
	}
	return nil, fmt.Errorf("unknown otp delivery %q", cfg.OTPDelivery)
}
