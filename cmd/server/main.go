package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/gospelpresentation/backend/internal/config"
	"github.com/gospelpresentation/backend/internal/content"
	"github.com/gospelpresentation/backend/internal/handlers"
	appMiddleware "github.com/gospelpresentation/backend/internal/middleware"
	"github.com/gospelpresentation/backend/internal/services"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := newLogger(cfg)
	if err != nil {
		log.Fatalf("Failed to build logger: %v", err)
	}
	defer logger.Sync()

	if err := run(cfg, logger); err != nil {
		logger.Fatal("server exited", zap.Error(err))
	}
}

func newLogger(cfg *config.Config) (*zap.Logger, error) {
	if cfg.IsDevelopment() {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

func run(cfg *config.Config, logger *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := newStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := store.Close(closeCtx); err != nil {
			logger.Warn("close store", zap.Error(err))
		}
	}()

	authz := services.NewAuthorizer(store)
	profileService := services.NewProfileService(store, authz, logger)
	userService := services.NewUserService(store, cfg.AdminEmails, logger)

	defaults, err := content.DefaultGospelData()
	if err != nil {
		return err
	}
	seedCtx, cancelSeed := context.WithTimeout(ctx, 15*time.Second)
	err = profileService.EnsureDefault(seedCtx, defaults)
	cancelSeed()
	if err != nil {
		return err
	}

	// Firebase Auth verifies ID tokens and, with SendGrid, delivers invites.
	var authenticator appMiddleware.Authenticator
	var inviter services.Inviter
	if cfg.FirebaseProjectID != "" {
		authClient, err := appMiddleware.NewFirebaseAuthClient(ctx, appMiddleware.FirebaseAuthConfig{
			ProjectID:       cfg.FirebaseProjectID,
			CredentialsJSON: cfg.FirebaseCredentialsJSON,
			CredentialsFile: cfg.FirebaseCredentialsFile,
		})
		if err != nil {
			logger.Warn("firebase auth unavailable", zap.Error(err))
		} else {
			authenticator = appMiddleware.NewFirebaseAuthenticator(authClient)

			var mailer *services.SendGridMailer
			if cfg.SendGridAPIKey != "" {
				mailer = services.NewSendGridMailer(cfg.SendGridAPIKey, cfg.InviteFromEmail, "Gospel Presentation")
			}
			inviter = services.NewFirebaseInviter(authClient, mailer, cfg.AppBaseURL, logger)
		}
	}
	if authenticator == nil && cfg.JWTSecret != "" {
		logger.Warn("using HMAC bearer tokens; Firebase is not configured")
		authenticator = appMiddleware.NewJWTAuthenticator(cfg.JWTSecret)
	}
	if authenticator == nil {
		logger.Warn("no authenticator configured; only anonymous routes will work")
	}

	accessService := services.NewAccessService(store, store, inviter, cfg.InviteTimeout, logger)
	defer accessService.Close()

	router := handlers.NewRouter(handlers.Dependencies{
		Profiles:       profileService,
		Access:         accessService,
		Progress:       services.NewProgressService(profileService),
		Users:          userService,
		Authz:          authz,
		Authenticator:  authenticator,
		AllowedOrigins: cfg.CORSAllowedOrigins,
		RequestTimeout: cfg.RequestTimeout,
		Logger:         logger,
	})

	srv := &http.Server{
		Addr:              cfg.ServerAddress,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("gospel presentation API starting", zap.String("addr", cfg.ServerAddress), zap.String("env", cfg.AppEnv))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func newStore(ctx context.Context, cfg *config.Config, logger *zap.Logger) (services.Store, error) {
	if cfg.MongoURI == "" {
		logger.Warn("MONGO_URI not set; using in-memory store")
		return services.NewMemoryStore(), nil
	}

	connectCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()
	return services.NewMongoStore(connectCtx, services.MongoOptions{
		URI:      cfg.MongoURI,
		Database: cfg.MongoDatabase,
		TLS:      cfg.MongoTLS,
	}, logger)
}
