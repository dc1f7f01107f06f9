package companysrv_test

import (
	"bytes"
	"context"
	"errors"
	"io"
	"mime/multipart"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/Abraxas-365/jobgrid/pkg/company"
	"github.com/Abraxas-365/jobgrid/pkg/company/companyinfra"
	"github.com/Abraxas-365/jobgrid/pkg/company/companysrv"
	"github.com/Abraxas-365/jobgrid/pkg/errx"
	"github.com/Abraxas-365/jobgrid/pkg/fsx"
	"github.com/Abraxas-365/jobgrid/pkg/fsx/fsxlocal"
	"github.com/Abraxas-365/jobgrid/pkg/iam/user"
	"github.com/Abraxas-365/jobgrid/pkg/iam/user/userinfra"
	"github.com/Abraxas-365/jobgrid/pkg/iam/user/usersrv"
	"github.com/Abraxas-365/jobgrid/pkg/kernel"
)

const owner = kernel.ExternalID("linkedin|owner")

// countingStore wraps a store and counts Put calls; fail makes every Put fail
type countingStore struct {
	fsx.ObjectStore
	puts atomic.Int32
	fail bool
}

func (s *countingStore) Put(ctx context.Context, bucket, key string, r io.Reader, size int64, contentType string) error {
	s.puts.Add(1)
	if s.fail {
		return fsx.ErrUploadFailed().WithCause(errors.New("disk full"))
	}
	return s.ObjectStore.Put(ctx, bucket, key, r, size, contentType)
}

type fixture struct {
	svc   *companysrv.CompanyService
	repo  *companyinfra.MemoryCompanyRepository
	store *countingStore
}

func newFixture(t *testing.T, opts ...companyinfra.MemoryOption) *fixture {
	t.Helper()
	ctx := context.Background()

	users := userinfra.NewMemoryUserRepository()
	if _, err := usersrv.NewUserService(users).EnsureUser(ctx, usersrv.EnsureUserInput{
		ExternalID: owner,
		Email:      "owner@acme.com",
		Name:       "Olive Owner",
		Type:       user.AccountTypeRecruiter,
	}); err != nil {
		t.Fatal(err)
	}

	repo := companyinfra.NewMemoryCompanyRepository(func(ctx context.Context, ext kernel.ExternalID) (kernel.UserID, error) {
		u, err := users.FindByExternalID(ctx, ext)
		if errx.IsCode(err, user.CodeUserNotFound) {
			return "", nil
		}
		if err != nil {
			return "", err
		}
		return u.ID, nil
	}, opts...)

	local, err := fsxlocal.NewLocalStore(t.TempDir(), "http://files.local")
	if err != nil {
		t.Fatal(err)
	}
	store := &countingStore{ObjectStore: local}

	return &fixture{
		svc:   companysrv.NewCompanyService(repo, users, store, ""),
		repo:  repo,
		store: store,
	}
}

func fileHeader(t *testing.T, field, filename, content string) *multipart.FileHeader {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	fw, err := w.CreateFormFile(field, filename)
	if err != nil {
		t.Fatal(err)
	}
	_, _ = fw.Write([]byte(content))
	_ = w.Close()

	form, err := multipart.NewReader(&buf, w.Boundary()).ReadForm(1 << 20)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = form.RemoveAll() })
	return form.File[field][0]
}

func acme(t *testing.T) companysrv.CreateInput {
	return companysrv.CreateInput{
		ExternalID:   owner,
		Name:         "Acme",
		Domain:       "acme.com",
		Subdomain:    "acme",
		ProfileImage: fileHeader(t, "profile_image", "logo.png", "png-bytes"),
	}
}

func TestCreateCompanyLinksOwner(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	res, err := f.svc.CreateCompany(ctx, acme(t))
	if err != nil {
		t.Fatal(err)
	}
	if !res.OwnerLinked || res.Company.Domain != "acme.com" {
		t.Fatalf("result = %+v", res)
	}
	if res.Company.ProfileImageURL == nil ||
		!strings.HasPrefix(*res.Company.ProfileImageURL, "http://files.local/company_assets/profile_images/") ||
		!strings.HasSuffix(*res.Company.ProfileImageURL, "_logo.png") {
		t.Fatalf("profile image url = %v", res.Company.ProfileImageURL)
	}
	if res.Company.FaviconURL != nil {
		t.Fatalf("favicon url = %v, want nil", *res.Company.FaviconURL)
	}

	list, err := f.svc.ListByExternalID(ctx, owner)
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 1 || list[0].Role != company.RoleOwner || list[0].ID != res.Company.ID {
		t.Fatalf("memberships = %+v", list)
	}
}

func TestCreateCompanyDuplicateDomainInsertsNothing(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	if _, err := f.svc.CreateCompany(ctx, acme(t)); err != nil {
		t.Fatal(err)
	}
	uploadsBefore := f.store.puts.Load()

	dup := acme(t)
	dup.Domain = "  ACME.com "
	_, err := f.svc.CreateCompany(ctx, dup)
	if !errx.IsCode(err, company.CodeDomainTaken) {
		t.Fatalf("err = %v, want domain taken", err)
	}
	if errx.HTTPStatus(err) != 409 {
		t.Fatalf("status = %d", errx.HTTPStatus(err))
	}

	companies, memberships := f.repo.Counts()
	if companies != 1 || memberships != 1 {
		t.Fatalf("counts = %d companies, %d memberships; want 1, 1", companies, memberships)
	}
	if f.store.puts.Load() != uploadsBefore {
		t.Fatal("assets uploaded for a rejected company")
	}
}

func TestCreateCompanyRejections(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*companysrv.CreateInput)
		code   *errx.ErrorCode
		status int
	}{
		{"missing name", func(in *companysrv.CreateInput) { in.Name = " " }, company.CodeMissingFields, 400},
		{"missing domain", func(in *companysrv.CreateInput) { in.Domain = "" }, company.CodeMissingFields, 400},
		{"missing subdomain", func(in *companysrv.CreateInput) { in.Subdomain = "" }, company.CodeMissingFields, 400},
		{"no local account", func(in *companysrv.CreateInput) { in.ExternalID = "linkedin|stranger" }, company.CodeAccountNotFound, 404},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			in := acme(t)
			tt.mutate(&in)

			_, err := f.svc.CreateCompany(context.Background(), in)
			if !errx.IsCode(err, tt.code) || errx.HTTPStatus(err) != tt.status {
				t.Fatalf("err = %v (status %d)", err, errx.HTTPStatus(err))
			}
			if c, m := f.repo.Counts(); c != 0 || m != 0 {
				t.Fatalf("counts = %d, %d", c, m)
			}
			if f.store.puts.Load() != 0 {
				t.Fatal("upload attempted for rejected input")
			}
		})
	}
}

func TestCreateCompanyReportsMissingOwnerLink(t *testing.T) {
	f := newFixture(t, companyinfra.WithMembershipFailure())

	res, err := f.svc.CreateCompany(context.Background(), acme(t))
	if err != nil {
		t.Fatal(err)
	}
	if res.OwnerLinked || res.Company == nil {
		t.Fatalf("result = %+v, want company without owner link", res)
	}
	if c, m := f.repo.Counts(); c != 1 || m != 0 {
		t.Fatalf("counts = %d, %d", c, m)
	}
}

func TestCreateCompanyUploadIsBestEffort(t *testing.T) {
	f := newFixture(t)
	f.store.fail = true

	in := acme(t)
	in.Favicon = fileHeader(t, "favicon", "favicon.ico", "ico")
	res, err := f.svc.CreateCompany(context.Background(), in)
	if err != nil {
		t.Fatal(err)
	}
	if res.Company.ProfileImageURL != nil || res.Company.FaviconURL != nil {
		t.Fatalf("urls should be empty after failed uploads: %+v", res.Company)
	}
	if f.store.puts.Load() != 2 {
		t.Fatalf("puts = %d, want 2", f.store.puts.Load())
	}
}
