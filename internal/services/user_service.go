package services

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/gospelpresentation/backend/internal/models"
)

type UserService struct {
	users       UserStore
	adminEmails map[string]struct{}
	logger      *zap.Logger
	now         func() time.Time
}

// NewUserService builds the service. Addresses in adminEmails are always
// treated as admins, which is how the first admin is bootstrapped.
func NewUserService(users UserStore, adminEmails []string, logger *zap.Logger) *UserService {
	admins := make(map[string]struct{}, len(adminEmails))
	for _, e := range adminEmails {
		if e = strings.ToLower(strings.TrimSpace(e)); e != "" {
			admins[e] = struct{}{}
		}
	}
	return &UserService{
		users:       users,
		adminEmails: admins,
		logger:      logger,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// ResolveActor turns an authenticated identity into an Actor with a role.
// Unknown users are recorded as counselees.
func (s *UserService) ResolveActor(ctx context.Context, userID, email string) (*models.Actor, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	u, err := s.users.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if u == nil {
		u = &models.UserProfile{ID: userID, Email: email, Role: models.RoleCounselee, UpdatedAt: s.now()}
		if err := s.users.UpsertUser(ctx, u); err != nil {
			s.logger.Warn("record new user", zap.String("user_id", userID), zap.Error(err))
		}
	}

	actor := &models.Actor{
		UserID:      userID,
		Email:       email,
		Role:        u.Role,
		DisplayName: u.DisplayName,
	}
	if actor.Email == "" {
		actor.Email = u.Email
	}
	if !actor.Role.Valid() {
		actor.Role = models.RoleCounselee
	}
	if _, ok := s.adminEmails[actor.Email]; ok {
		actor.Role = models.RoleAdmin
	}
	return actor, nil
}

func (s *UserService) List(ctx context.Context) ([]*models.UserProfile, error) {
	return s.users.ListUsers(ctx)
}

func (s *UserService) Update(ctx context.Context, userID string, req models.UpdateUserRequest) (*models.UserProfile, error) {
	if errs := req.Validate(); len(errs) > 0 {
		return nil, NewValidationError(errs)
	}

	u, err := s.users.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, ErrUserNotFound
	}
	if req.Role != nil {
		u.Role = *req.Role
	}
	if req.DisplayName != nil {
		u.DisplayName = strings.TrimSpace(*req.DisplayName)
	}
	u.UpdatedAt = s.now()

	if err := s.users.UpsertUser(ctx, u); err != nil {
		return nil, err
	}
	s.logger.Info("user updated", zap.String("user_id", userID), zap.String("role", string(u.Role)))
	return u, nil
}
