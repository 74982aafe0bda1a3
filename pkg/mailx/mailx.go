package mailx

import (
	"context"
	"time"

	"github.com/clientela/clientela/pkg/errx"
)

// EmailMessage represents an email to be sent.
type EmailMessage struct {
	From     string   `json:"from"`
	To       []string `json:"to"`
	ReplyTo  string   `json:"reply_to,omitempty"`
	Subject  string   `json:"subject"`
	TextBody string   `json:"text_body,omitempty"`
	HTMLBody string   `json:"html_body,omitempty"`
}

// Sender delivers a single email through a concrete provider.
type Sender interface {
	Send(ctx context.Context, msg EmailMessage) error
}

// Enqueuer places an email in the outbox for asynchronous delivery.
type Enqueuer interface {
	Enqueue(ctx context.Context, msg EmailMessage) (string, error)
}

// Envelope is the outbox representation of a pending email.
type Envelope struct {
	ID         string       `json:"id"`
	Message    EmailMessage `json:"message"`
	Attempts   int          `json:"attempts"`
	MaxRetries int          `json:"max_retries"`
	LastError  string       `json:"last_error,omitempty"`
	CreatedAt  time.Time    `json:"created_at"`
	UpdatedAt  time.Time    `json:"updated_at"`
}

// Client is the main entry point for composing and sending email.
type Client struct {
	provider  Sender
	templates *TemplateRegistry
}

// NewClient creates a new mail client.
func NewClient(provider Sender) *Client {
	return &Client{
		provider:  provider,
		templates: NewTemplateRegistry(),
	}
}

// Send sends an email through the configured provider.
func (c *Client) Send(ctx context.Context, msg EmailMessage) error {
	if len(msg.To) == 0 {
		return mailxErrors.New(ErrInvalidMessage).WithDetail("reason", "no recipients")
	}
	if msg.Subject == "" {
		return mailxErrors.New(ErrInvalidMessage).WithDetail("reason", "empty subject")
	}
	return c.provider.Send(ctx, msg)
}

// RegisterTemplate parses and stores a named template for later use.
func (c *Client) RegisterTemplate(name, tmplString string) error {
	return c.templates.Register(name, tmplString)
}

// SendTemplated renders a template and sends the resulting email.
func (c *Client) SendTemplated(ctx context.Context, templateName string, data interface{}, msg EmailMessage) error {
	body, err := c.templates.Render(templateName, data)
	if err != nil {
		return err
	}

	msg.HTMLBody = body
	return c.Send(ctx, msg)
}

var mailxErrors = errx.NewRegistry("MAILX")

var (
	ErrSendFailed       = mailxErrors.Register("SEND_FAILED", errx.TypeExternal, 502, "Failed to send email")
	ErrInvalidMessage   = mailxErrors.Register("INVALID_MESSAGE", errx.TypeValidation, 400, "Invalid email message")
	ErrTemplateNotFound = mailxErrors.Register("TEMPLATE_NOT_FOUND", errx.TypeNotFound, 404, "Email template not found")
	ErrTemplateParse    = mailxErrors.Register("TEMPLATE_PARSE", errx.TypeValidation, 400, "Failed to parse email template")
	ErrTemplateRender   = mailxErrors.Register("TEMPLATE_RENDER", errx.TypeInternal, 500, "Failed to render email template")
)
