package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	firebase "firebase.google.com/go/v4"
	fbauth "firebase.google.com/go/v4/auth"
	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
	"google.golang.org/api/option"

	"github.com/gospelpresentation/backend/internal/models"
	"github.com/gospelpresentation/backend/internal/services"
)

type contextKey string

const (
	UserIDKey    contextKey = "userID"
	UserEmailKey contextKey = "userEmail"
	ActorKey     contextKey = "actor"
)

var ErrInvalidToken = errors.New("invalid or expired token")

// Identity is what a verified bearer token says about its holder.
type Identity struct {
	UserID string
	Email  string
}

// Authenticator verifies a bearer token.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (*Identity, error)
}

type FirebaseAuthConfig struct {
	ProjectID       string
	CredentialsJSON string
	CredentialsFile string
}

// NewFirebaseAuthClient builds a Firebase Auth admin client. Without explicit
// credentials the SDK falls back to application default credentials.
func NewFirebaseAuthClient(ctx context.Context, cfg FirebaseAuthConfig) (*fbauth.Client, error) {
	if cfg.ProjectID == "" {
		return nil, errors.New("FIREBASE_PROJECT_ID must be set")
	}

	var opts []option.ClientOption
	switch {
	case cfg.CredentialsJSON != "":
		opts = append(opts, option.WithCredentialsJSON([]byte(cfg.CredentialsJSON)))
	case cfg.CredentialsFile != "":
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}

	app, err := firebase.NewApp(ctx, &firebase.Config{ProjectID: cfg.ProjectID}, opts...)
	if err != nil {
		return nil, err
	}
	return app.Auth(ctx)
}

// FirebaseAuthenticator verifies Firebase ID tokens (issued by magic-link sign-in).
type FirebaseAuthenticator struct {
	client *fbauth.Client
}

func NewFirebaseAuthenticator(client *fbauth.Client) *FirebaseAuthenticator {
	return &FirebaseAuthenticator{client: client}
}

func (a *FirebaseAuthenticator) Authenticate(ctx context.Context, token string) (*Identity, error) {
	t, err := a.client.VerifyIDToken(ctx, token)
	if err != nil {
		return nil, ErrInvalidToken
	}
	id := &Identity{UserID: t.UID}
	if email, ok := t.Claims["email"].(string); ok {
		id.Email = email
	}
	return id, nil
}

// JWTAuthenticator validates HMAC-signed tokens carrying user_id and email
// claims. Used for local development and service-to-service calls.
type JWTAuthenticator struct {
	secret []byte
}

func NewJWTAuthenticator(secret string) *JWTAuthenticator {
	return &JWTAuthenticator{secret: []byte(secret)}
}

func (a *JWTAuthenticator) Authenticate(ctx context.Context, tokenString string) (*Identity, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return a.secret, nil
	})
	if err != nil || !token.Valid {
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, ErrInvalidToken
	}
	userID, ok := claims["user_id"].(string)
	if !ok || userID == "" {
		return nil, ErrInvalidToken
	}
	email, _ := claims["email"].(string)
	return &Identity{UserID: userID, Email: email}, nil
}

// RequireAuth rejects requests without a valid bearer token, then resolves the
// caller's role.
func RequireAuth(a Authenticator, users *services.UserService, logger *zap.Logger) func(http.Handler) http.Handler {
	return authenticate(a, users, logger, true)
}

// OptionalAuth lets anonymous requests through but still rejects a bad token.
func OptionalAuth(a Authenticator, users *services.UserService, logger *zap.Logger) func(http.Handler) http.Handler {
	return authenticate(a, users, logger, false)
}

func authenticate(a Authenticator, users *services.UserService, logger *zap.Logger, required bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				if required {
					writeJSON(w, http.StatusUnauthorized, models.NewErrorResponse("Authorization header required"))
					return
				}
				next.ServeHTTP(w, r)
				return
			}

			parts := strings.Split(authHeader, " ")
			if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
				writeJSON(w, http.StatusUnauthorized, models.NewErrorResponse("Invalid authorization header format"))
				return
			}
			if a == nil {
				writeJSON(w, http.StatusUnauthorized, models.NewErrorResponse("Authentication is not configured"))
				return
			}

			id, err := a.Authenticate(r.Context(), parts[1])
			if err != nil {
				writeJSON(w, http.StatusUnauthorized, models.NewErrorResponse("Invalid or expired token"))
				return
			}

			actor, err := users.ResolveActor(r.Context(), id.UserID, id.Email)
			if err != nil {
				logger.Error("resolve actor", zap.String("user_id", id.UserID), zap.Error(err))
				writeJSON(w, http.StatusInternalServerError, models.NewErrorResponse("Failed to load user"))
				return
			}

			ctx := context.WithValue(r.Context(), UserIDKey, id.UserID)
			ctx = context.WithValue(ctx, UserEmailKey, actor.Email)
			ctx = context.WithValue(ctx, ActorKey, actor)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetUserID extracts user ID from context
func GetUserID(ctx context.Context) string {
	userID, ok := ctx.Value(UserIDKey).(string)
	if !ok {
		return ""
	}
	return userID
}

func GetUserEmail(ctx context.Context) string {
	email, _ := ctx.Value(UserEmailKey).(string)
	return email
}

// GetActor returns the resolved caller, or nil for anonymous requests.
func GetActor(ctx context.Context) *models.Actor {
	actor, _ := ctx.Value(ActorKey).(*models.Actor)
	return actor
}

// WithActor is used by tests and internal callers to attach an actor.
func WithActor(ctx context.Context, actor *models.Actor) context.Context {
	ctx = context.WithValue(ctx, UserIDKey, actor.UserID)
	ctx = context.WithValue(ctx, UserEmailKey, actor.Email)
	return context.WithValue(ctx, ActorKey, actor)
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}
