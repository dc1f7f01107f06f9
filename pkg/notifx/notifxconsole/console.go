package notifxconsole

import (
	"context"
	"strings"

	"github.com/Abraxas-365/jobgrid/pkg/logx"
	"github.com/Abraxas-365/jobgrid/pkg/notifx"
)

// ConsoleProvider logs emails instead of sending them. Intended for
// development and testing.
type ConsoleProvider struct{}

func NewConsoleProvider() *ConsoleProvider {
	return &ConsoleProvider{}
}

func (p *ConsoleProvider) SendEmail(ctx context.Context, msg notifx.EmailMessage) error {
	logx.WithContext(ctx).WithFields(logx.Fields{
		"from":    msg.From,
		"to":      strings.Join(msg.To, ", "),
		"subject": msg.Subject,
	}).Info("notifx/console: email sent (dev mode)")

	if msg.TextBody != "" {
		logx.Debugf("notifx/console: text body:\n%s", msg.TextBody)
	}
	return nil
}
