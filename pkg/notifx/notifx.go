package notifx

import (
	"context"
	"errors"
	"fmt"

	"github.com/Abraxas-365/jobgrid/pkg/errx"
)

// EmailSender delivers a single email.
type EmailSender interface {
	SendEmail(ctx context.Context, msg EmailMessage) error
}

// Client renders templates and hands messages to the configured provider.
type Client struct {
	provider  EmailSender
	from      string
	templates *TemplateRegistry
}

// NewClient creates a client sending as "fromName <fromAddress>". The
// built-in templates are registered up front.
func NewClient(provider EmailSender, fromAddress, fromName string) *Client {
	from := fromAddress
	if fromName != "" {
		from = fmt.Sprintf("%s <%s>", fromName, fromAddress)
	}

	c := &Client{
		provider:  provider,
		from:      from,
		templates: NewTemplateRegistry(),
	}
	if err := c.templates.LoadFS(builtinTemplates()); err != nil {
		panic(err)
	}
	return c
}

// SendEmail validates msg and sends it through the provider.
func (c *Client) SendEmail(ctx context.Context, msg EmailMessage) error {
	if len(msg.To) == 0 {
		return notifxErrors.New(ErrInvalidMessage).WithDetail("reason", "no recipients")
	}
	if msg.Subject == "" {
		return notifxErrors.New(ErrInvalidMessage).WithDetail("reason", "empty subject")
	}
	if msg.From == "" {
		msg.From = c.from
	}

	if err := c.provider.SendEmail(ctx, msg); err != nil {
		var e *errx.Error
		if errors.As(err, &e) {
			return err
		}
		return notifxErrors.NewWithCause(ErrSendFailed, err).WithDetail("to", msg.To)
	}
	return nil
}

// RegisterTemplate adds or replaces a named template.
func (c *Client) RegisterTemplate(name, htmlBody, textBody string) error {
	return c.templates.Register(name, htmlBody, textBody)
}

// SendTemplatedEmail renders a template into msg's bodies and sends. A text
// body already set on msg wins over the template's.
func (c *Client) SendTemplatedEmail(ctx context.Context, templateName string, data any, msg EmailMessage) error {
	html, text, err := c.templates.Render(templateName, data)
	if err != nil {
		return err
	}

	msg.HTMLBody = html
	if msg.TextBody == "" {
		msg.TextBody = text
	}
	return c.SendEmail(ctx, msg)
}
