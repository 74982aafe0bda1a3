package profileapi

import (
	"context"
	"time"

	"github.com/clientela/clientela/pkg/errx"
	"github.com/clientela/clientela/pkg/iam/profile/profilesrv"
	"github.com/clientela/clientela/pkg/kernel"
	"github.com/gofiber/fiber/v2"
)

// ProfileHandlers expone los endpoints públicos de apoyo al registro:
// chequeo de email y reenvío de verificación.
type ProfileHandlers struct {
	service   *profilesrv.ProvisioningService
	opTimeout time.Duration
}

// NewProfileHandlers crea los handlers de perfiles
func NewProfileHandlers(service *profilesrv.ProvisioningService, opTimeout time.Duration) *ProfileHandlers {
	return &ProfileHandlers{
		service:   service,
		opTimeout: opTimeout,
	}
}

// RegisterRoutes registra las rutas del módulo
func (h *ProfileHandlers) RegisterRoutes(app *fiber.App) {
	app.Post("/api/v1/auth/check-email", h.CheckEmail)
	app.Post("/api/v1/auth/resend-verification", h.ResendVerification)
}

type emailRequest struct {
	Email string `json:"email"`
}

// CheckEmail maneja POST /api/v1/auth/check-email
func (h *ProfileHandlers) CheckEmail(c *fiber.Ctx) error {
	var req emailRequest
	if err := c.BodyParser(&req); err != nil {
		return errx.Validation("invalid request body")
	}

	ctx, cancel := context.WithTimeout(c.Context(), h.opTimeout)
	defer cancel()

	exists, err := h.service.CheckEmail(ctx, req.Email)
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"exists": exists,
	})
}

// ResendVerification maneja POST /api/v1/auth/resend-verification.
// La respuesta es la misma exista o no el email.
func (h *ProfileHandlers) ResendVerification(c *fiber.Ctx) error {
	var req emailRequest
	if err := c.BodyParser(&req); err != nil {
		return errx.Validation("invalid request body")
	}

	ctx, cancel := context.WithTimeout(c.Context(), h.opTimeout)
	defer cancel()

	fp := kernel.Fingerprint{
		IP:        c.IP(),
		UserAgent: c.Get("User-Agent"),
	}

	if err := h.service.ResendVerification(ctx, req.Email, fp); err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"message": "If the address is registered, a verification email is on its way",
	})
}
