package company

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

var ErrRegistry = errx.NewRegistry("COMPANY")

var (
	CodeDomainTaken      = ErrRegistry.Register("DOMAIN_TAKEN", errx.TypeConflict, http.StatusConflict, "Domain is already registered.")
	CodeMissingFields    = ErrRegistry.Register("MISSING_FIELDS", errx.TypeValidation, http.StatusBadRequest, "Missing required fields")
	CodeAccountNotFound  = ErrRegistry.Register("ACCOUNT_NOT_FOUND", errx.TypeNotFound, http.StatusNotFound, "Account not found")
	CodeMembershipFailed = ErrRegistry.Register("MEMBERSHIP_FAILED", errx.TypeInternal, http.StatusInternalServerError, "Could not link company owner")
	CodeStore            = ErrRegistry.Register("STORE", errx.TypeInternal, http.StatusInternalServerError, "Could not save company")
)

func ErrDomainTaken() *errx.Error      { return ErrRegistry.New(CodeDomainTaken) }
func ErrMissingFields() *errx.Error    { return ErrRegistry.New(CodeMissingFields) }
func ErrAccountNotFound() *errx.Error  { return ErrRegistry.New(CodeAccountNotFound) }
func ErrMembershipFailed() *errx.Error { return ErrRegistry.New(CodeMembershipFailed) }

// ErrStore wraps a storage failure; op stays in Details
func ErrStore(op string, cause error) *errx.Error {
	return ErrRegistry.NewWithCause(CodeStore, cause).WithDetail("op", op)
}

// ============================================================================
// Entities
// ============================================================================

type Role string

const (
	RoleOwner  Role = "owner"
	RoleMember Role = "member"
)

type Company struct {
	ID              kernel.CompanyID `db:"id" json:"id"`
	Name            string           `db:"name" json:"name"`
	Domain          string           `db:"domain" json:"domain"`
	Subdomain       string           `db:"subdomain" json:"subdomain"`
	ProfileImageURL *string          `db:"profile_image_url" json:"profile_image_url,omitempty"`
	FaviconURL      *string          `db:"favicon_url" json:"favicon_url,omitempty"`
	CreatedAt       time.Time        `db:"created_at" json:"created_at"`
}

// Membership links a user to a company
type Membership struct {
	CompanyID kernel.CompanyID `db:"company_id" json:"company_id"`
	UserID    kernel.UserID    `db:"user_id" json:"user_id"`
	Role      Role             `db:"role" json:"role"`
	CreatedAt time.Time        `db:"created_at" json:"created_at"`
}

// UserCompany is a company seen through one user's membership
type UserCompany struct {
	Company
	Role Role `db:"role" json:"role"`
}

// CreateResult reports a company creation. OwnerLinked is false when the
// company row exists but the owner membership could not be written.
type CreateResult struct {
	Company     *Company `json:"company"`
	OwnerLinked bool     `json:"owner_linked"`
}

// NormalizeDomain trims and lower-cases a domain
func NormalizeDomain(d string) string {
	return strings.ToLower(strings.TrimSpace(d))
}
