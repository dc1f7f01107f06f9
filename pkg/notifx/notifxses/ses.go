package notifxses

import (
	"context"
	"errors"

	"github.com/Abraxas-365/jobgrid/pkg/notifx"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/ses/types"
	"github.com/aws/smithy-go"
)

// API is the subset of the SES client used here
type API interface {
	SendEmail(ctx context.Context, params *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error)
}

// SESProvider implements notifx.EmailSender using AWS SES.
type SESProvider struct {
	client API
}

func NewSESProvider(client API) *SESProvider {
	return &SESProvider{client: client}
}

// SendEmail sends a single email via SES.
func (p *SESProvider) SendEmail(ctx context.Context, msg notifx.EmailMessage) error {
	body := &types.Body{}
	if msg.TextBody != "" {
		body.Text = &types.Content{
			Data:    aws.String(msg.TextBody),
			Charset: aws.String("UTF-8"),
		}
	}
	if msg.HTMLBody != "" {
		body.Html = &types.Content{
			Data:    aws.String(msg.HTMLBody),
			Charset: aws.String("UTF-8"),
		}
	}

	input := &ses.SendEmailInput{
		Source:      aws.String(msg.From),
		Destination: &types.Destination{ToAddresses: msg.To},
		Message: &types.Message{
			Subject: &types.Content{
				Data:    aws.String(msg.Subject),
				Charset: aws.String("UTF-8"),
			},
			Body: body,
		},
	}
	if msg.ReplyTo != "" {
		input.ReplyToAddresses = []string{msg.ReplyTo}
	}

	if _, err := p.client.SendEmail(ctx, input); err != nil {
		code := ErrSendFailed
		var apiErr smithy.APIError
		if errors.As(err, &apiErr) && rejectionCodes[apiErr.ErrorCode()] {
			code = ErrRejected
		}
		return sesErrors.NewWithCause(code, err).
			WithDetail("to", msg.To).
			WithDetail("subject", msg.Subject)
	}
	return nil
}

var rejectionCodes = map[string]bool{
	"MessageRejected":                    true,
	"MailFromDomainNotVerifiedException": true,
	"ConfigurationSetDoesNotExist":       true,
}
