package invitationapi

import (
	"context"
	"time"

	"github.com/clientela/clientela/pkg/errx"
	"github.com/clientela/clientela/pkg/iam/auth"
	"github.com/clientela/clientela/pkg/iam/invitation/invitationsrv"
	"github.com/clientela/clientela/pkg/kernel"
	"github.com/gofiber/fiber/v2"
)

// InvitationHandlers expone la validación pública de códigos y la gestión
// de códigos propios de un perfil autenticado.
type InvitationHandlers struct {
	service   *invitationsrv.InvitationService
	opTimeout time.Duration
}

// NewInvitationHandlers crea los handlers de invitaciones
func NewInvitationHandlers(service *invitationsrv.InvitationService, opTimeout time.Duration) *InvitationHandlers {
	return &InvitationHandlers{
		service:   service,
		opTimeout: opTimeout,
	}
}

// RegisterRoutes registra las rutas del módulo
func (h *InvitationHandlers) RegisterRoutes(app *fiber.App, mw *auth.TokenMiddleware) {
	// Pública: la valida gente que todavía no tiene cuenta
	app.Post("/api/v1/auth/validate-invitation", h.ValidateInvitation)

	// Protegidas
	group := app.Group("/api/v1/invitations", mw.Authenticate())
	group.Get("/", h.ListOwn)
	group.Post("/send", h.SendCode)
}

type validateInvitationRequest struct {
	Code string `json:"code"`
}

// ValidateInvitation maneja POST /api/v1/auth/validate-invitation
func (h *InvitationHandlers) ValidateInvitation(c *fiber.Ctx) error {
	var req validateInvitationRequest
	if err := c.BodyParser(&req); err != nil {
		return errx.Validation("invalid request body")
	}

	ctx, cancel := context.WithTimeout(c.Context(), h.opTimeout)
	defer cancel()

	fp := kernel.Fingerprint{
		IP:        c.IP(),
		UserAgent: c.Get("User-Agent"),
	}

	result, err := h.service.Validate(ctx, req.Code, fp)
	if err != nil {
		return err
	}

	if result.Outcome == invitationsrv.OutcomeRateLimited {
		return c.Status(fiber.StatusTooManyRequests).JSON(result)
	}

	return c.JSON(result)
}

// ListOwn maneja GET /api/v1/invitations
func (h *InvitationHandlers) ListOwn(c *fiber.Ctx) error {
	authCtx, ok := auth.AuthFromContext(c)
	if !ok {
		return errx.Unauthorized("session required")
	}

	ctx, cancel := context.WithTimeout(c.Context(), h.opTimeout)
	defer cancel()

	codes, err := h.service.ListByOwner(ctx, *authCtx.ProfileID)
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"invitations": codes,
		"count":       len(codes),
	})
}

type sendCodeRequest struct {
	Code  string `json:"code"`
	Email string `json:"email"`
}

// SendCode maneja POST /api/v1/invitations/send
func (h *InvitationHandlers) SendCode(c *fiber.Ctx) error {
	authCtx, ok := auth.AuthFromContext(c)
	if !ok {
		return errx.Unauthorized("session required")
	}

	var req sendCodeRequest
	if err := c.BodyParser(&req); err != nil {
		return errx.Validation("invalid request body")
	}

	ctx, cancel := context.WithTimeout(c.Context(), h.opTimeout)
	defer cancel()

	if err := h.service.SendCode(ctx, *authCtx.ProfileID, req.Code, req.Email); err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"message": "Invitation sent",
	})
}
