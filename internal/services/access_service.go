package services

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/gospelpresentation/backend/internal/models"
	"github.com/gospelpresentation/backend/internal/validation"
)

// InviteRequest describes one invitation sent after a grant.
type InviteRequest struct {
	Email     string
	Profile   *models.Profile
	InvitedBy string
}

// Inviter brings a granted email into the identity system. Implementations may
// send mail; callers treat every error as non-fatal.
type Inviter interface {
	Invite(ctx context.Context, req InviteRequest) error
}

type AccessService struct {
	grants        GrantStore
	profiles      ProfileStore
	inviter       Inviter
	inviteTimeout time.Duration
	logger        *zap.Logger
	now           func() time.Time

	wg sync.WaitGroup
}

// NewAccessService builds the service. inviter may be nil, in which case
// grants are stored without invitations.
func NewAccessService(grants GrantStore, profiles ProfileStore, inviter Inviter, inviteTimeout time.Duration, logger *zap.Logger) *AccessService {
	if inviteTimeout <= 0 {
		inviteTimeout = 30 * time.Second
	}
	return &AccessService{
		grants:        grants,
		profiles:      profiles,
		inviter:       inviter,
		inviteTimeout: inviteTimeout,
		logger:        logger,
		now:           func() time.Time { return time.Now().UTC() },
	}
}

// Grant normalizes each email, discards malformed ones and upserts one grant
// per valid address. Invitations are sent afterwards on their own goroutine;
// their outcome never affects the returned result.
func (s *AccessService) Grant(ctx context.Context, profileID string, emails []string, grantedBy string) (*models.GrantAccessResult, error) {
	valid := make([]string, 0, len(emails))
	seen := make(map[string]struct{}, len(emails))
	result := &models.GrantAccessResult{Granted: make([]models.AccessGrant, 0, len(emails))}

	for _, raw := range emails {
		email, ok := validation.NormalizeEmail(raw)
		if !ok {
			result.Invalid = append(result.Invalid, raw)
			continue
		}
		if _, dup := seen[email]; dup {
			continue
		}
		seen[email] = struct{}{}
		valid = append(valid, email)
	}
	if len(valid) == 0 {
		return nil, NewValidationError(map[string]string{"emails": "No valid email addresses provided"})
	}

	now := s.now()
	for _, email := range valid {
		g, err := s.grants.UpsertGrant(ctx, &models.AccessGrant{
			ProfileID: profileID,
			UserEmail: email,
			GrantedBy: grantedBy,
			GrantedAt: now,
		})
		if err != nil {
			return nil, err
		}
		result.Granted = append(result.Granted, *g)
	}

	s.logger.Info("access granted",
		zap.String("profile_id", profileID),
		zap.Int("granted", len(valid)),
		zap.Int("invalid", len(result.Invalid)),
		zap.String("granted_by", grantedBy))

	s.inviteAsync(profileID, valid, grantedBy)
	return result, nil
}

// Revoke deletes the grant if present. Revoking a missing grant succeeds.
func (s *AccessService) Revoke(ctx context.Context, profileID, email string) error {
	normalized, _ := validation.NormalizeEmail(email)
	if normalized == "" {
		return NewValidationError(map[string]string{"email": "Email is required"})
	}
	return s.grants.DeleteGrant(ctx, profileID, normalized)
}

func (s *AccessService) List(ctx context.Context, profileID string) ([]models.AccessGrant, error) {
	return s.grants.ListGrants(ctx, profileID)
}

// Close waits for in-flight invitations.
func (s *AccessService) Close() {
	s.wg.Wait()
}

func (s *AccessService) inviteAsync(profileID string, emails []string, invitedBy string) {
	if s.inviter == nil {
		return
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		ctx, cancel := context.WithTimeout(context.Background(), s.inviteTimeout)
		defer cancel()

		profile, err := s.profiles.GetProfileByID(ctx, profileID)
		if err != nil || profile == nil {
			s.logger.Warn("invite: load profile", zap.String("profile_id", profileID), zap.Error(err))
			return
		}
		for _, email := range emails {
			err := s.inviter.Invite(ctx, InviteRequest{Email: email, Profile: profile, InvitedBy: invitedBy})
			if err != nil {
				s.logger.Warn("invite failed",
					zap.String("profile_id", profileID),
					zap.String("email", email),
					zap.Error(err))
			}
		}
	}()
}
