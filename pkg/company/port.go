package company

import (
	"context"

	"github.com/Abraxas-365/jobgrid/pkg/kernel"
)

// Repository persists companies and their memberships.
type Repository interface {
	DomainExists(ctx context.Context, domain string) (bool, error)

	// CreateWithOwner inserts the company and the owner membership. Stores
	// with transactions return an error and keep nothing when either
	// insert fails. ErrDomainTaken on a duplicate domain.
	CreateWithOwner(ctx context.Context, c *Company, owner kernel.UserID) (CreateResult, error)

	ListByExternalID(ctx context.Context, ext kernel.ExternalID) ([]UserCompany, error)
}
