package handlers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/gospelpresentation/backend/internal/middleware"
	"github.com/gospelpresentation/backend/internal/services"
)

// Dependencies is everything the HTTP surface needs. Authenticator may be nil,
// in which case only anonymous routes work.
type Dependencies struct {
	Profiles       *services.ProfileService
	Access         *services.AccessService
	Progress       *services.ProgressService
	Users          *services.UserService
	Authz          *services.Authorizer
	Authenticator  middleware.Authenticator
	AllowedOrigins []string
	RequestTimeout time.Duration
	Logger         *zap.Logger
}

func NewRouter(d Dependencies) http.Handler {
	logger := d.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	origins := d.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	profileHandler := NewProfileHandler(d.Profiles, d.Authz, d.RequestTimeout, logger)
	favoriteHandler := NewFavoriteHandler(d.Profiles, d.Authz, d.RequestTimeout, logger)
	accessHandler := NewAccessHandler(d.Profiles, d.Authz, d.Access, d.RequestTimeout, logger)
	progressHandler := NewProgressHandler(d.Profiles, d.Authz, d.Progress, d.RequestTimeout, logger)
	backupHandler := NewBackupHandler(d.Profiles, d.Authz, d.RequestTimeout, logger)
	userHandler := NewUserHandler(d.Users, d.RequestTimeout, logger)

	requireAuth := middleware.RequireAuth(d.Authenticator, d.Users, logger)
	optionalAuth := middleware.OptionalAuth(d.Authenticator, d.Users, logger)

	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.RequestLogger(logger))
	r.Use(chimw.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		ExposedHeaders:   []string{"Link", "Content-Disposition"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	r.Route("/api", func(r chi.Router) {
		// Public and optionally-authenticated routes
		r.Group(func(r chi.Router) {
			r.Use(optionalAuth)

			r.Get("/profiles", profileHandler.ListProfiles)
			r.Get("/profiles/{slug}", profileHandler.GetProfile)
			r.Post("/profiles/{slug}/visit", profileHandler.RecordVisit)
			r.Get("/profiles/{slug}/favorites", favoriteHandler.ListFavorites)
			r.Post("/profiles/{slug}/scripture-progress", progressHandler.TrackView)
			r.Delete("/profiles/{slug}/scripture-progress", progressHandler.ResetProgress)
		})

		// Protected routes
		r.Group(func(r chi.Router) {
			r.Use(requireAuth)

			r.Get("/me", userHandler.Me)

			r.Post("/profiles", profileHandler.CreateProfile)
			r.Get("/profiles/slug-suggestion", profileHandler.SlugSuggestion)
			r.Get("/profiles/slug-check", profileHandler.SlugCheck)

			r.Put("/profiles/{slug}", profileHandler.UpdateProfile)
			r.Delete("/profiles/{slug}", profileHandler.DeleteProfile)

			r.Get("/profiles/{slug}/access", accessHandler.ListAccess)
			r.Post("/profiles/{slug}/access", accessHandler.GrantAccess)
			r.Delete("/profiles/{slug}/access", accessHandler.RevokeAccess)

			r.Post("/profiles/{slug}/content/edits", favoriteHandler.ApplyEdits)

			r.Get("/profiles/{slug}/backup", backupHandler.Export)
			r.Post("/profiles/{slug}/restore", backupHandler.Restore)

			r.Get("/admin/users", userHandler.ListUsers)
			r.Put("/admin/users/{userId}", userHandler.UpdateUser)
		})
	})

	return r
}
