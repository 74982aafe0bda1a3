package mailxconsole

import (
	"context"
	"strings"

	"github.com/clientela/clientela/pkg/logx"
	"github.com/clientela/clientela/pkg/mailx"
)

// ConsoleProvider prints emails to the terminal via logx. Intended for development and testing.
type ConsoleProvider struct{}

// NewConsoleProvider creates a new console email provider.
func NewConsoleProvider() *ConsoleProvider {
	return &ConsoleProvider{}
}

// Send logs the email details instead of sending it.
func (p *ConsoleProvider) Send(_ context.Context, msg mailx.EmailMessage) error {
	logx.WithFields(logx.Fields{
		"from":    msg.From,
		"to":      strings.Join(msg.To, ", "),
		"subject": msg.Subject,
	}).Info("mailx/console: email sent (dev mode)")

	if msg.TextBody != "" {
		logx.Debugf("mailx/console: text body:\n%s", msg.TextBody)
	}
	if msg.HTMLBody != "" {
		logx.Debugf("mailx/console: html body:\n%s", msg.HTMLBody)
	}

	return nil
}
