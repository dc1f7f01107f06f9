package user

import (
	"net/http"
	"strings"
	"time"

	"github.com/Abraxas-365/jobgrid/pkg/errx"
	"github.com/Abraxas-365/jobgrid/pkg/kernel"
)

// ============================================================================
// Error Registry
// ============================================================================

var ErrRegistry = errx.NewRegistry("USER")

var (
	CodeUserNotFound      = ErrRegistry.Register("NOT_FOUND", errx.TypeNotFound, http.StatusNotFound, "User not found")
	CodeUserAlreadyExists = ErrRegistry.Register("ALREADY_EXISTS", errx.TypeConflict, http.StatusConflict, "User already exists")
	CodeInvalidUser       = ErrRegistry.Register("INVALID", errx.TypeValidation, http.StatusBadRequest, "Invalid user data")
	CodeStore             = ErrRegistry.Register("STORE", errx.TypeInternal, http.StatusInternalServerError, "Could not access user records")
)

func ErrUserNotFound() *errx.Error      { return ErrRegistry.New(CodeUserNotFound) }
func ErrUserAlreadyExists() *errx.Error { return ErrRegistry.New(CodeUserAlreadyExists) }
func ErrInvalidUser() *errx.Error       { return ErrRegistry.New(CodeInvalidUser) }

// ErrStore wraps a storage failure; op names the failed operation and
// stays in Details.
func ErrStore(op string, cause error) *errx.Error {
	return ErrRegistry.NewWithCause(CodeStore, cause).WithDetail("op", op)
}

// ============================================================================
// Entity
// ============================================================================

type AccountType string

const (
	AccountTypeRecruiter AccountType = "recruiter"
	AccountTypeSeeker    AccountType = "seeker"
)

func (t AccountType) IsValid() bool {
	return t == AccountTypeRecruiter || t == AccountTypeSeeker
}

// ParseAccountType returns fallback for an empty or unknown value
func ParseAccountType(s string, fallback AccountType) AccountType {
	t := AccountType(strings.ToLower(strings.TrimSpace(s)))
	if t.IsValid() {
		return t
	}
	return fallback
}

type User struct {
	ID         kernel.UserID     `db:"id" json:"id"`
	ExternalID kernel.ExternalID `db:"external_id" json:"external_id"`
	Email      string            `db:"email" json:"email"`
	Name       string            `db:"name" json:"name"`
	AvatarURL  *string           `db:"avatar_url" json:"avatar_url,omitempty"`
	Type       AccountType       `db:"type" json:"type"`
	CreatedAt  time.Time         `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time         `db:"updated_at" json:"updated_at"`
}

// HasAvatar reports whether a non-empty avatar is stored
func (u *User) HasAvatar() bool {
	return u.AvatarURL != nil && *u.AvatarURL != ""
}

// IsPlaceholderName reports whether the stored name was derived from the
// email rather than given by a person: the email itself, the name when it
// equals the email, or the email's local part.
func (u *User) IsPlaceholderName() bool {
	placeholders := map[string]struct{}{
		u.Email:                 {},
		EmailLocalPart(u.Email): {},
	}
	if u.Name == u.Email {
		placeholders[u.Name] = struct{}{}
	}
	_, ok := placeholders[u.Name]
	return ok
}

// ProfileUpdate carries the fields enrichment may change. Nil means keep.
type ProfileUpdate struct {
	Name      *string
	AvatarURL *string
}

func (p ProfileUpdate) IsEmpty() bool {
	return p.Name == nil && p.AvatarURL == nil
}

// NormalizeEmail trims and lower-cases an email
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// EmailLocalPart returns the part before '@'
func EmailLocalPart(email string) string {
	if i := strings.IndexByte(email, '@'); i >= 0 {
		return email[:i]
	}
	return email
}
