package companyinfra

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/Abraxas-365/jobgrid/pkg/company"
	"github.com/Abraxas-365/jobgrid/pkg/kernel"
)

// UserIDResolver maps an external id to a local user id. An empty id
// with a nil error means no such user.
type UserIDResolver func(ctx context.Context, ext kernel.ExternalID) (kernel.UserID, error)

// MemoryCompanyRepository has no transactions: when the membership write
// fails the company stays and the result has OwnerLinked=false.
type MemoryCompanyRepository struct {
	mu          sync.RWMutex
	companies   map[kernel.CompanyID]*company.Company
	memberships []company.Membership
	resolve     UserIDResolver

	failMembership bool
}

// MemoryOption configures a MemoryCompanyRepository
type MemoryOption func(*MemoryCompanyRepository)

// WithMembershipFailure makes every owner membership write fail, leaving
// the company stored without an owner.
func WithMembershipFailure() MemoryOption {
	return func(r *MemoryCompanyRepository) { r.failMembership = true }
}

func NewMemoryCompanyRepository(resolve UserIDResolver, opts ...MemoryOption) *MemoryCompanyRepository {
	r := &MemoryCompanyRepository{
		companies: make(map[kernel.CompanyID]*company.Company),
		resolve:   resolve,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *MemoryCompanyRepository) DomainExists(ctx context.Context, domain string) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.domainExistsLocked(domain), nil
}

func (r *MemoryCompanyRepository) CreateWithOwner(ctx context.Context, c *company.Company, owner kernel.UserID) (company.CreateResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.domainExistsLocked(c.Domain) {
		return company.CreateResult{}, company.ErrDomainTaken().WithDetail("domain", c.Domain)
	}
	stored := *c
	r.companies[c.ID] = &stored

	if r.failMembership {
		return company.CreateResult{Company: c, OwnerLinked: false}, nil
	}

	r.memberships = append(r.memberships, company.Membership{
		CompanyID: c.ID,
		UserID:    owner,
		Role:      company.RoleOwner,
		CreatedAt: time.Now(),
	})
	return company.CreateResult{Company: c, OwnerLinked: true}, nil
}

func (r *MemoryCompanyRepository) ListByExternalID(ctx context.Context, ext kernel.ExternalID) ([]company.UserCompany, error) {
	if r.resolve == nil {
		return nil, errors.New("companyinfra: no user resolver configured")
	}
	userID, err := r.resolve(ctx, ext)
	if err != nil {
		return nil, err
	}
	out := []company.UserCompany{}
	if userID.IsEmpty() {
		return out, nil
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, m := range r.memberships {
		if m.UserID != userID {
			continue
		}
		if c, ok := r.companies[m.CompanyID]; ok {
			out = append(out, company.UserCompany{Company: *c, Role: m.Role})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

// Counts returns the number of companies and memberships stored
func (r *MemoryCompanyRepository) Counts() (companies, memberships int) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.companies), len(r.memberships)
}

func (r *MemoryCompanyRepository) domainExistsLocked(domain string) bool {
	for _, c := range r.companies {
		if c.Domain == domain {
			return true
		}
	}
	return false
}
