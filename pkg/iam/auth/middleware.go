package auth

import (
	"strings"

	"github.com/clientela/clientela/pkg/iam"
	"github.com/clientela/clientela/pkg/kernel"
	"github.com/gofiber/fiber/v2"
)

// TokenMiddleware middleware para autenticación JWT con Fiber
type TokenMiddleware struct {
	tokenService TokenService
	cookieName   string
}

// NewAuthMiddleware crea un nuevo middleware de autenticación
func NewAuthMiddleware(tokenService TokenService, cookieName string) *TokenMiddleware {
	if cookieName == "" {
		cookieName = "access_token"
	}
	return &TokenMiddleware{
		tokenService: tokenService,
		cookieName:   cookieName,
	}
}

// Resolve extrae y valida el token de la petición sin rechazarla.
// Devuelve nil si no hay sesión válida — el gate de sesión decide qué hacer.
func (am *TokenMiddleware) Resolve(c *fiber.Ctx) *kernel.AuthContext {
	token := am.extractToken(c)
	if token == "" {
		return nil
	}

	claims, err := am.tokenService.ValidateAccessToken(token)
	if err != nil {
		return nil
	}

	return &kernel.AuthContext{
		ProfileID: &claims.ProfileID,
		Email:     claims.Email,
		Name:      claims.Name,
	}
}

// Authenticate middleware que exige una sesión válida
func (am *TokenMiddleware) Authenticate() fiber.Handler {
	return func(c *fiber.Ctx) error {
		authContext := am.Resolve(c)
		if authContext == nil {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": iam.ErrUnauthorized().Error(),
			})
		}

		// Agregar al contexto de Fiber
		c.Locals("auth", authContext)

		return c.Next()
	}
}

// AuthFromContext devuelve el AuthContext inyectado por Authenticate
func AuthFromContext(c *fiber.Ctx) (*kernel.AuthContext, bool) {
	authContext, ok := c.Locals("auth").(*kernel.AuthContext)
	if !ok || authContext == nil || !authContext.IsValid() {
		return nil, false
	}
	return authContext, true
}

// extractToken busca el token en el header Authorization o en la cookie de acceso
func (am *TokenMiddleware) extractToken(c *fiber.Ctx) string {
	authHeader := c.Get("Authorization")
	if authHeader != "" {
		// Verificar formato "Bearer <token>"
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) == 2 && parts[0] == "Bearer" && parts[1] != "" {
			return parts[1]
		}
	}

	// Fallback: cookie de acceso
	return c.Cookies(am.cookieName)
}
