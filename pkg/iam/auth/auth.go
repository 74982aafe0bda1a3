package auth

import (
	"net/http"
	"time"

	"github.com/clientela/clientela/pkg/errx"
	"github.com/clientela/clientela/pkg/kernel"
)

// ============================================================================
// Token Types
// ============================================================================

// TokenClaims represents JWT claims
type TokenClaims struct {
	ProfileID kernel.ProfileID `json:"profile_id"`
	Email     string           `json:"email"`
	Name      string           `json:"name"`
	IssuedAt  time.Time        `json:"iat"`
	ExpiresAt time.Time        `json:"exp"`
}

// IsExpired checks if the claims have expired
func (t *TokenClaims) IsExpired() bool {
	return time.Now().After(t.ExpiresAt)
}

// ============================================================================
// Session Surfaces
// ============================================================================

// Rutas de superficie de sesión. El gate decide entre ellas; no realiza
// ninguna otra transición automática.
const (
	PathRoot       = "/"
	PathDashboard  = "/dashboard"
	PathInviteOnly = "/invite-only"
	PathLogin      = "/login"
)

// ============================================================================
// Error Registry
// ============================================================================

var ErrRegistry = errx.NewRegistry("AUTH")

var (
	CodeTokenGenerationFailed = ErrRegistry.Register("TOKEN_GENERATION_FAILED", errx.TypeInternal, http.StatusInternalServerError, "Token generation failed")
	CodeTokenValidationFailed = ErrRegistry.Register("TOKEN_VALIDATION_FAILED", errx.TypeAuthorization, http.StatusUnauthorized, "Token validation failed")
	CodeMissingSession        = ErrRegistry.Register("MISSING_SESSION", errx.TypeAuthorization, http.StatusUnauthorized, "No active session")
)

// Helper functions
func ErrTokenGenerationFailed() *errx.Error {
	return ErrRegistry.New(CodeTokenGenerationFailed)
}

func ErrTokenValidationFailed() *errx.Error {
	return ErrRegistry.New(CodeTokenValidationFailed)
}

func ErrMissingSession() *errx.Error {
	return ErrRegistry.New(CodeMissingSession)
}
