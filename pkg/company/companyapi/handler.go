package companyapi

import (
	"context"
	"mime/multipart"

	"github.com/Abraxas-365/jobgrid/pkg/company"
	"github.com/Abraxas-365/jobgrid/pkg/company/companysrv"
	"github.com/Abraxas-365/jobgrid/pkg/iam/auth"
	"github.com/gofiber/fiber/v2"
)

const ownerNotLinkedWarning = "Company created, but the owner membership could not be recorded. Please contact support."

// Creator is the company service surface the handler needs
type Creator interface {
	CreateCompany(ctx context.Context, in companysrv.CreateInput) (company.CreateResult, error)
}

type CompanyHandlers struct {
	service Creator
}

func NewCompanyHandlers(service Creator) *CompanyHandlers {
	return &CompanyHandlers{service: service}
}

// RegisterRoutes mounts POST /companies behind the session middleware
func (h *CompanyHandlers) RegisterRoutes(router fiber.Router, sessions *auth.SessionMiddleware) {
	router.Post("/companies", sessions.Authenticate(), h.Create)
}

func (h *CompanyHandlers) Create(c *fiber.Ctx) error {
	ext, err := auth.SessionExternalID(c)
	if err != nil {
		return err
	}

	res, err := h.service.CreateCompany(c.UserContext(), companysrv.CreateInput{
		ExternalID:   ext,
		Name:         c.FormValue("name"),
		Domain:       c.FormValue("domain"),
		Subdomain:    c.FormValue("subdomain"),
		ProfileImage: optionalFile(c, "profile_image"),
		Favicon:      optionalFile(c, "favicon"),
	})
	if err != nil {
		return err
	}

	body := fiber.Map{"company": res.Company}
	if !res.OwnerLinked {
		body["warning"] = ownerNotLinkedWarning
	}
	return c.Status(fiber.StatusCreated).JSON(body)
}

func optionalFile(c *fiber.Ctx, field string) *multipart.FileHeader {
	fh, err := c.FormFile(field)
	if err != nil {
		return nil
	}
	return fh
}
