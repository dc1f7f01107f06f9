package user

import (
	"context"

	"github.com/Abraxas-365/jobgrid/pkg/kernel"
)

// Repository persists users. Lookups return ErrUserNotFound when nothing
// matches; Create returns ErrUserAlreadyExists on a uniqueness violation
// of either the external id or the email.
type Repository interface {
	FindByExternalID(ctx context.Context, externalID kernel.ExternalID) (*User, error)
	FindByEmail(ctx context.Context, email string) (*User, error)
	Create(ctx context.Context, u *User) error
	UpdateProfile(ctx context.Context, id kernel.UserID, upd ProfileUpdate) error
}
