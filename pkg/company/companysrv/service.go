package companysrv

import (
	"context"
	"fmt"
	"mime/multipart"
	"strings"
	"time"

	"github.com/Abraxas-365/jobgrid/pkg/company"
	"github.com/Abraxas-365/jobgrid/pkg/errx"
	"github.com/Abraxas-365/jobgrid/pkg/fsx"
	"github.com/Abraxas-365/jobgrid/pkg/iam/user"
	"github.com/Abraxas-365/jobgrid/pkg/kernel"
	"github.com/Abraxas-365/jobgrid/pkg/logx"
)

// UserFinder resolves the session's external id to a local user
type UserFinder interface {
	FindByExternalID(ctx context.Context, ext kernel.ExternalID) (*user.User, error)
}

// CreateInput is a company creation request from an authenticated user
type CreateInput struct {
	ExternalID   kernel.ExternalID
	Name         string
	Domain       string
	Subdomain    string
	ProfileImage *multipart.FileHeader
	Favicon      *multipart.FileHeader
}

type CompanyService struct {
	repo   company.Repository
	users  UserFinder
	store  fsx.ObjectStore
	bucket string
	now    func() time.Time
}

func NewCompanyService(repo company.Repository, users UserFinder, store fsx.ObjectStore, bucket string) *CompanyService {
	if bucket == "" {
		bucket = "company_assets"
	}
	return &CompanyService{
		repo:   repo,
		users:  users,
		store:  store,
		bucket: bucket,
		now:    time.Now,
	}
}

// CreateCompany validates input, checks the domain before any upload,
// stores images best-effort and creates the company with its owner.
func (s *CompanyService) CreateCompany(ctx context.Context, in CreateInput) (company.CreateResult, error) {
	name := strings.TrimSpace(in.Name)
	domain := company.NormalizeDomain(in.Domain)
	subdomain := strings.ToLower(strings.TrimSpace(in.Subdomain))
	if name == "" || domain == "" || subdomain == "" {
		return company.CreateResult{}, company.ErrMissingFields()
	}

	owner, err := s.users.FindByExternalID(ctx, in.ExternalID)
	if err != nil {
		if errx.IsCode(err, user.CodeUserNotFound) {
			return company.CreateResult{}, company.ErrAccountNotFound().WithDetail("external_id", in.ExternalID)
		}
		return company.CreateResult{}, err
	}

	taken, err := s.repo.DomainExists(ctx, domain)
	if err != nil {
		return company.CreateResult{}, err
	}
	if taken {
		return company.CreateResult{}, company.ErrDomainTaken().WithDetail("domain", domain)
	}

	c := &company.Company{
		ID:        kernel.NewCompanyID(),
		Name:      name,
		Domain:    domain,
		Subdomain: subdomain,
		CreatedAt: s.now(),
	}
	c.ProfileImageURL = s.upload(ctx, "profile_images", "profile", in.ProfileImage)
	c.FaviconURL = s.upload(ctx, "favicons", "favicon", in.Favicon)

	res, err := s.repo.CreateWithOwner(ctx, c, owner.ID)
	if err != nil {
		return company.CreateResult{}, err
	}

	entry := logx.WithContext(ctx).WithFields(logx.Fields{
		"company_id": c.ID,
		"domain":     domain,
		"owner_id":   owner.ID,
	})
	if !res.OwnerLinked {
		entry.Warn("company created without owner membership")
	} else {
		entry.Info("company created")
	}
	return res, nil
}

// ListByExternalID returns the companies the user belongs to
func (s *CompanyService) ListByExternalID(ctx context.Context, ext kernel.ExternalID) ([]company.UserCompany, error) {
	return s.repo.ListByExternalID(ctx, ext)
}

func (s *CompanyService) upload(ctx context.Context, dir, fallbackName string, fh *multipart.FileHeader) *string {
	if fh == nil {
		return nil
	}
	name := fh.Filename
	if name == "" {
		name = fallbackName
	}
	key := fmt.Sprintf("%s/%d_%s", dir, s.now().UnixMilli(), name)

	url, err := fsx.PutFileHeader(ctx, s.store, s.bucket, key, fh)
	if err != nil {
		logx.WithContext(ctx).WithError(err).WithFields(logx.Fields{
			"bucket": s.bucket,
			"key":    key,
		}).Warn("company asset upload failed")
		return nil
	}
	return &url
}
