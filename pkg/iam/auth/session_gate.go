package auth

import (
	"time"

	"github.com/clientela/clientela/pkg/kernel"
	"github.com/gofiber/fiber/v2"
)

// SessionGate decide el destino de una petición según su estado de sesión.
// No realiza login ni registro; esas transiciones viven en el proveedor de
// identidad externo.
type SessionGate struct {
	middleware *TokenMiddleware
	audit      AuditService
	cookieName string
	secure     bool
}

// NewSessionGate crea un nuevo gate de sesión
func NewSessionGate(middleware *TokenMiddleware, audit AuditService, cookieName string, secureCookies bool) *SessionGate {
	if cookieName == "" {
		cookieName = "access_token"
	}
	return &SessionGate{
		middleware: middleware,
		audit:      audit,
		cookieName: cookieName,
		secure:     secureCookies,
	}
}

// Decide devuelve el destino de redirección para la raíz:
// autenticado → dashboard, no autenticado → landing de solo-invitación.
func (g *SessionGate) Decide(authenticated bool) string {
	if authenticated {
		return PathDashboard
	}
	return PathInviteOnly
}

// RootHandler redirige la raíz según el estado de sesión
func (g *SessionGate) RootHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		authContext := g.middleware.Resolve(c)
		return c.Redirect(g.Decide(authContext != nil), fiber.StatusFound)
	}
}

// LogoutHandler termina la sesión y redirige a la superficie de login.
// Se registra tanto en POST (estándar) como en GET: algunos proveedores y
// enlaces de correo no pueden emitir POST, y ambos métodos terminan la
// sesión de forma idéntica.
func (g *SessionGate) LogoutHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if authContext := g.middleware.Resolve(c); authContext != nil {
			g.audit.LogLogout(c.Context(), *authContext.ProfileID, c.IP())
		}

		// Expirar la cookie de sesión
		c.Cookie(&fiber.Cookie{
			Name:     g.cookieName,
			Value:    "",
			Expires:  time.Now().Add(-time.Hour),
			HTTPOnly: true,
			Secure:   g.secure,
			SameSite: "Lax",
			Path:     "/",
		})

		return c.Redirect(PathLogin, fiber.StatusFound)
	}
}

// IssueSessionCookie emite la cookie de sesión para un perfil autenticado
func (g *SessionGate) IssueSessionCookie(c *fiber.Ctx, profileID kernel.ProfileID, token string, ttl time.Duration) {
	c.Cookie(&fiber.Cookie{
		Name:     g.cookieName,
		Value:    token,
		Expires:  time.Now().Add(ttl),
		HTTPOnly: true,
		Secure:   g.secure,
		SameSite: "Lax",
		Path:     "/",
	})
}
