package notifx

import (
	"context"
	"embed"
	"io/fs"
)

//go:embed templates/*
var templateFS embed.FS

func builtinTemplates() fs.FS {
	sub, err := fs.Sub(templateFS, "templates")
	if err != nil {
		panic(err)
	}
	return sub
}

const TemplateWelcome = "welcome"

// WelcomeData fills the welcome template
type WelcomeData struct {
	Name        string
	Email       string
	AccountType string
	NextURL     string
}

// SendWelcome emails a newly registered user.
func (c *Client) SendWelcome(ctx context.Context, data WelcomeData) error {
	return c.SendTemplatedEmail(ctx, TemplateWelcome, data, EmailMessage{
		To:      []string{data.Email},
		Subject: "Welcome to JobGrid",
	})
}
