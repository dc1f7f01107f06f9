package companyinfra

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/Abraxas-365/jobgrid/pkg/company"
	"github.com/Abraxas-365/jobgrid/pkg/kernel"
	"github.com/Abraxas-365/jobgrid/pkg/logx"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

type PostgresCompanyRepository struct {
	db *sqlx.DB
}

func NewPostgresCompanyRepository(db *sqlx.DB) *PostgresCompanyRepository {
	return &PostgresCompanyRepository{db: db}
}

func (r *PostgresCompanyRepository) DomainExists(ctx context.Context, domain string) (bool, error) {
	var exists bool
	query := `SELECT EXISTS(SELECT 1 FROM companies WHERE domain = $1)`
	if err := r.db.GetContext(ctx, &exists, query, domain); err != nil {
		return false, company.ErrStore("check domain", err).
			WithDetail("domain", domain)
	}
	return exists, nil
}

// CreateWithOwner writes the company and its owner membership in one
// transaction.
func (r *PostgresCompanyRepository) CreateWithOwner(ctx context.Context, c *company.Company, owner kernel.UserID) (company.CreateResult, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return company.CreateResult{}, company.ErrStore("begin", err)
	}
	defer func() {
		if err := tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
			logx.WithContext(ctx).WithError(err).Warn("rollback failed")
		}
	}()

	insertCompany := `
		INSERT INTO companies (id, name, domain, subdomain, profile_image_url, favicon_url, created_at)
		VALUES (:id, :name, :domain, :subdomain, :profile_image_url, :favicon_url, :created_at)`
	if _, err := tx.NamedExecContext(ctx, insertCompany, c); err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" { // unique_violation
			return company.CreateResult{}, company.ErrDomainTaken().
				WithDetail("domain", c.Domain).
				WithCause(err)
		}
		return company.CreateResult{}, company.ErrStore("insert company", err).
			WithDetail("domain", c.Domain)
	}

	m := company.Membership{
		CompanyID: c.ID,
		UserID:    owner,
		Role:      company.RoleOwner,
		CreatedAt: time.Now(),
	}
	insertMember := `
		INSERT INTO company_users (company_id, user_id, role, created_at)
		VALUES (:company_id, :user_id, :role, :created_at)`
	if _, err := tx.NamedExecContext(ctx, insertMember, m); err != nil {
		return company.CreateResult{}, company.ErrMembershipFailed().
			WithDetail("company_id", c.ID).
			WithCause(err)
	}

	if err := tx.Commit(); err != nil {
		return company.CreateResult{}, company.ErrStore("commit", err)
	}
	return company.CreateResult{Company: c, OwnerLinked: true}, nil
}

func (r *PostgresCompanyRepository) ListByExternalID(ctx context.Context, ext kernel.ExternalID) ([]company.UserCompany, error) {
	query := `
		SELECT c.id, c.name, c.domain, c.subdomain, c.profile_image_url, c.favicon_url, c.created_at, cu.role
		FROM companies c
		JOIN company_users cu ON cu.company_id = c.id
		JOIN users u ON u.id = cu.user_id
		WHERE u.external_id = $1
		ORDER BY c.created_at`

	companies := []company.UserCompany{}
	if err := r.db.SelectContext(ctx, &companies, query, ext); err != nil {
		return nil, company.ErrStore("list by external id", err).
			WithDetail("external_id", ext)
	}
	return companies, nil
}
