package webhook

import (
	"context"
	"time"

	"github.com/clientela/clientela/pkg/iam/auth"
	"github.com/clientela/clientela/pkg/iam/profile/profilesrv"
	"github.com/clientela/clientela/pkg/kernel"
	"github.com/clientela/clientela/pkg/logx"
	"github.com/clientela/clientela/pkg/ptrx"
	"github.com/gofiber/fiber/v2"
)

// WebhookHandlers recibe eventos del proveedor de identidad. Verificación
// de firma primero; nada del cuerpo se procesa sin firma válida.
type WebhookHandlers struct {
	gateway         *Gateway
	provisioner     *profilesrv.ProvisioningService
	audit           auth.AuditService
	signatureHeader string
	opTimeout       time.Duration
}

// NewWebhookHandlers crea los handlers del webhook
func NewWebhookHandlers(
	gateway *Gateway,
	provisioner *profilesrv.ProvisioningService,
	audit auth.AuditService,
	signatureHeader string,
	opTimeout time.Duration,
) *WebhookHandlers {
	return &WebhookHandlers{
		gateway:         gateway,
		provisioner:     provisioner,
		audit:           audit,
		signatureHeader: signatureHeader,
		opTimeout:       opTimeout,
	}
}

// RegisterRoutes registra las rutas del módulo
func (h *WebhookHandlers) RegisterRoutes(app *fiber.App) {
	app.Post("/api/v1/auth/webhook", h.Receive)
}

// Receive maneja POST /api/v1/auth/webhook.
// Responde 200 con un resumen incluso para condiciones permanentes
// (ya aprovisionado, código en conflicto) para cortar los reintentos
// del proveedor; sólo los fallos transitorios devuelven 5xx.
func (h *WebhookHandlers) Receive(c *fiber.Ctx) error {
	body := c.Body()
	signature := c.Get(h.signatureHeader)

	if !h.gateway.Verify(body, signature) {
		h.audit.LogWebhookReceived(c.Context(), "unknown", false, c.IP())
		return ErrInvalidSignature()
	}

	event, err := h.gateway.Parse(body)
	if err != nil {
		return err
	}

	h.audit.LogWebhookReceived(c.Context(), string(event.Kind), true, c.IP())

	if !event.Kind.IsProvisioning() {
		// Eventos desconocidos se aceptan y se ignoran
		logx.WithFields(logx.Fields{"event_kind": event.Kind}).Debug("Ignoring webhook event")
		return c.JSON(fiber.Map{
			"status": "ignored",
		})
	}

	ctx, cancel := context.WithTimeout(c.Context(), h.opTimeout)
	defer cancel()

	var code *string
	if event.Data.InvitationCode != "" {
		code = ptrx.String(event.Data.InvitationCode)
	}

	result, err := h.provisioner.Provision(
		ctx,
		kernel.NewExternalID(event.Data.UserID),
		event.Data.Email,
		event.Data.Name,
		code,
	)
	if err != nil {
		// El conflicto del código es permanente: reintentar el evento
		// nunca lo va a resolver, así que se reporta en el resumen.
		if profilesrv.IsCodeConflict(err) {
			return c.JSON(fiber.Map{
				"status": "rejected",
				"reason": "invitation-code-conflict",
			})
		}
		return err
	}

	return c.JSON(fiber.Map{
		"status":      string(result.Status),
		"profile_id":  result.ProfileID,
		"grant_count": result.GrantCount,
	})
}
