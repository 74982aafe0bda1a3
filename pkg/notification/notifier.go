package notification

import (
	"context"
	"fmt"
	"time"

	"github.com/clientela/clientela/pkg/mailx"
)

const (
	tmplInvitation   = "invitation-code"
	tmplVerification = "verification-resend"
)

const invitationTemplate = `
<html>
  <body style="font-family: sans-serif;">
    <h2>Te invitaron a Clientela</h2>
    <p>Usá este código para crear tu cuenta:</p>
    <p style="font-size: 24px; letter-spacing: 3px; font-weight: bold;">{{.Code}}</p>
    {{if .ExpiresAt}}<p>El código vence el {{.ExpiresAt}}.</p>{{end}}
    <p>Si no esperabas esta invitación, ignorá este correo.</p>
  </body>
</html>`

const verificationTemplate = `
<html>
  <body style="font-family: sans-serif;">
    <h2>Verificá tu email</h2>
    <p>Pediste reenviar el correo de verificación de tu cuenta de Clientela.</p>
    <p>Seguí el enlace del correo original de tu proveedor de identidad para completar la verificación.</p>
  </body>
</html>`

// MailNotifier implementa los notifiers del dominio sobre el outbox de correo.
// El render es síncrono; la entrega, asíncrona.
type MailNotifier struct {
	templates *mailx.TemplateRegistry
	outbox    mailx.Enqueuer
	from      string
	fromName  string
}

// NewMailNotifier crea el notifier y registra sus plantillas.
func NewMailNotifier(outbox mailx.Enqueuer, from, fromName string) (*MailNotifier, error) {
	templates := mailx.NewTemplateRegistry()
	if err := templates.Register(tmplInvitation, invitationTemplate); err != nil {
		return nil, err
	}
	if err := templates.Register(tmplVerification, verificationTemplate); err != nil {
		return nil, err
	}

	return &MailNotifier{
		templates: templates,
		outbox:    outbox,
		from:      from,
		fromName:  fromName,
	}, nil
}

// SendInvitationCode encola el correo con un código de invitación.
func (n *MailNotifier) SendInvitationCode(ctx context.Context, email string, code string, expiresAt *time.Time) error {
	data := struct {
		Code      string
		ExpiresAt string
	}{Code: code}
	if expiresAt != nil {
		data.ExpiresAt = expiresAt.Format("2006-01-02 15:04 MST")
	}

	body, err := n.templates.Render(tmplInvitation, data)
	if err != nil {
		return err
	}

	_, err = n.outbox.Enqueue(ctx, mailx.EmailMessage{
		From:     n.sender(),
		To:       []string{email},
		Subject:  "Tu invitación a Clientela",
		HTMLBody: body,
	})
	return err
}

// SendVerification encola el recordatorio de verificación.
func (n *MailNotifier) SendVerification(ctx context.Context, email string) error {
	body, err := n.templates.Render(tmplVerification, nil)
	if err != nil {
		return err
	}

	_, err = n.outbox.Enqueue(ctx, mailx.EmailMessage{
		From:     n.sender(),
		To:       []string{email},
		Subject:  "Verificá tu email de Clientela",
		HTMLBody: body,
	})
	return err
}

func (n *MailNotifier) sender() string {
	if n.fromName == "" {
		return n.from
	}
	return fmt.Sprintf("%s <%s>", n.fromName, n.from)
}
