package usersrv

import (
	"context"
	"strings"
	"time"

	"github.com/Abraxas-365/jobgrid/pkg/errx"
	"github.com/Abraxas-365/jobgrid/pkg/iam/user"
	"github.com/Abraxas-365/jobgrid/pkg/kernel"
	"github.com/Abraxas-365/jobgrid/pkg/logx"
)

// EnsureUserInput is a verified identity to reconcile with the local store
type EnsureUserInput struct {
	ExternalID kernel.ExternalID
	Email      string
	Name       string
	Type       user.AccountType
	AvatarURL  string
}

// EnsureResult reports what reconciliation did
type EnsureResult struct {
	UserID  kernel.UserID
	Created bool
	Updated bool
}

type UserService struct {
	repo user.Repository
	now  func() time.Time
}

func NewUserService(repo user.Repository) *UserService {
	return &UserService{repo: repo, now: time.Now}
}

// EnsureUser upserts by external id and returns the local user id.
func (s *UserService) EnsureUser(ctx context.Context, in EnsureUserInput) (kernel.UserID, error) {
	res, err := s.Reconcile(ctx, in)
	if err != nil {
		return "", err
	}
	return res.UserID, nil
}

// Reconcile is EnsureUser that also reports whether a row was created or
// enriched. Calling it again with the same input is a no-op.
func (s *UserService) Reconcile(ctx context.Context, in EnsureUserInput) (EnsureResult, error) {
	email := user.NormalizeEmail(in.Email)
	name := strings.TrimSpace(in.Name)
	avatar := strings.TrimSpace(in.AvatarURL)

	if in.ExternalID.IsEmpty() {
		return EnsureResult{}, user.ErrInvalidUser().WithDetail("reason", "external id is required")
	}

	existing, err := s.repo.FindByExternalID(ctx, in.ExternalID)
	if err != nil && !errx.IsCode(err, user.CodeUserNotFound) {
		return EnsureResult{}, err
	}

	if existing != nil {
		updated, err := s.enrich(ctx, existing, name, avatar)
		if err != nil {
			return EnsureResult{}, err
		}
		return EnsureResult{UserID: existing.ID, Updated: updated}, nil
	}

	return s.create(ctx, in.ExternalID, email, name, avatar, in.Type)
}

func (s *UserService) enrich(ctx context.Context, u *user.User, name, avatar string) (bool, error) {
	var upd user.ProfileUpdate

	if name != "" && name != u.Name && u.IsPlaceholderName() {
		upd.Name = &name
	}
	if avatar != "" && !u.HasAvatar() {
		upd.AvatarURL = &avatar
	}

	if upd.IsEmpty() {
		return false, nil
	}

	if err := s.repo.UpdateProfile(ctx, u.ID, upd); err != nil {
		return false, err
	}

	logx.WithContext(ctx).WithFields(logx.Fields{
		"user_id":        u.ID,
		"name_updated":   upd.Name != nil,
		"avatar_updated": upd.AvatarURL != nil,
	}).Info("user profile enriched")

	return true, nil
}

func (s *UserService) create(ctx context.Context, ext kernel.ExternalID, email, name, avatar string, t user.AccountType) (EnsureResult, error) {
	if email == "" {
		return EnsureResult{}, user.ErrInvalidUser().WithDetail("reason", "email is required")
	}
	if !t.IsValid() {
		return EnsureResult{}, user.ErrInvalidUser().WithDetail("reason", "unknown account type").WithDetail("type", t)
	}
	if name == "" {
		name = user.EmailLocalPart(email)
	}

	now := s.now()
	u := &user.User{
		ID:         kernel.NewUserID(),
		ExternalID: ext,
		Email:      email,
		Name:       name,
		Type:       t,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if avatar != "" {
		u.AvatarURL = &avatar
	}

	if err := s.repo.Create(ctx, u); err != nil {
		if !errx.IsCode(err, user.CodeUserAlreadyExists) {
			return EnsureResult{}, err
		}
		// a concurrent first login may have inserted the same external id
		winner, findErr := s.repo.FindByExternalID(ctx, ext)
		if findErr == nil && winner != nil {
			return EnsureResult{UserID: winner.ID}, nil
		}
		return EnsureResult{}, err
	}

	logx.WithContext(ctx).WithFields(logx.Fields{
		"user_id":     u.ID,
		"external_id": ext,
		"type":        t,
	}).Info("user created")

	return EnsureResult{UserID: u.ID, Created: true}, nil
}

// FindByExternalID returns the user linked to an identity provider subject
func (s *UserService) FindByExternalID(ctx context.Context, ext kernel.ExternalID) (*user.User, error) {
	return s.repo.FindByExternalID(ctx, ext)
}

func (s *UserService) FindByEmail(ctx context.Context, email string) (*user.User, error) {
	return s.repo.FindByEmail(ctx, user.NormalizeEmail(email))
}

// EmailExists reports whether a local account uses email
func (s *UserService) EmailExists(ctx context.Context, email string) (bool, error) {
	_, err := s.FindByEmail(ctx, email)
	if err == nil {
		return true, nil
	}
	if errx.IsCode(err, user.CodeUserNotFound) {
		return false, nil
	}
	return false, err
}
