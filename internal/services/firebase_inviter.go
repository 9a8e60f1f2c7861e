package services

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	fbauth "firebase.google.com/go/v4/auth"
	"go.uber.org/zap"
)

// identityClient is the subset of the Firebase Auth admin client used for invites.
type identityClient interface {
	GetUserByEmail(ctx context.Context, email string) (*fbauth.UserRecord, error)
	CreateUser(ctx context.Context, user *fbauth.UserToCreate) (*fbauth.UserRecord, error)
	EmailSignInLink(ctx context.Context, email string, settings *fbauth.ActionCodeSettings) (string, error)
}

type inviteMailer interface {
	SendInviteEmail(ctx context.Context, toEmail, profileSlug, profileTitle, signInLink string) error
}

// FirebaseInviter creates identity accounts for unknown emails and mails them
// a magic sign-in link to the shared profile. Known users are left alone.
type FirebaseInviter struct {
	auth    identityClient
	mailer  inviteMailer
	baseURL string
	logger  *zap.Logger
}

func NewFirebaseInviter(auth *fbauth.Client, mailer *SendGridMailer, baseURL string, logger *zap.Logger) *FirebaseInviter {
	inv := &FirebaseInviter{auth: auth, baseURL: strings.TrimRight(baseURL, "/"), logger: logger}
	if mailer != nil {
		inv.mailer = mailer
	}
	return inv
}

func (i *FirebaseInviter) Invite(ctx context.Context, req InviteRequest) error {
	_, err := i.auth.GetUserByEmail(ctx, req.Email)
	if err == nil {
		return nil
	}
	if !fbauth.IsUserNotFound(err) {
		return fmt.Errorf("lookup %s: %w", req.Email, err)
	}

	if _, err := i.auth.CreateUser(ctx, (&fbauth.UserToCreate{}).Email(req.Email).EmailVerified(false)); err != nil {
		return fmt.Errorf("create identity for %s: %w", req.Email, err)
	}

	link, err := i.auth.EmailSignInLink(ctx, req.Email, &fbauth.ActionCodeSettings{
		URL:             i.profileURL(req.Profile.Slug),
		HandleCodeInApp: true,
	})
	if err != nil {
		return fmt.Errorf("sign-in link for %s: %w", req.Email, err)
	}

	if i.mailer == nil {
		i.logger.Info("invite created without mailer", zap.String("email", req.Email))
		return nil
	}
	if err := i.mailer.SendInviteEmail(ctx, req.Email, req.Profile.Slug, req.Profile.Title, link); err != nil {
		return fmt.Errorf("send invite to %s: %w", req.Email, err)
	}
	i.logger.Info("invite sent", zap.String("email", req.Email), zap.String("profile", req.Profile.Slug))
	return nil
}

func (i *FirebaseInviter) profileURL(slug string) string {
	return i.baseURL + "/" + url.PathEscape(slug)
}
