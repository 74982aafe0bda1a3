package profile

import (
	"net/http"
	"strings"
	"time"

	"github.com/clientela/clientela/pkg/errx"
	"github.com/clientela/clientela/pkg/kernel"
)

// Profile es la cuenta interna, 1:1 con la identidad del proveedor externo.
// El proveedor es dueño de las credenciales; aquí sólo vive el estado del CRM.
type Profile struct {
	ID         kernel.ProfileID  `db:"id" json:"id"`
	ExternalID kernel.ExternalID `db:"external_id" json:"external_id"`
	Email      string            `db:"email" json:"email"`
	Name       string            `db:"name" json:"name"`
	CreatedAt  time.Time         `db:"created_at" json:"created_at"`
}

// NormalizeEmail canonicaliza un email para la comparación case-insensitive
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// ============================================================================
// Error Registry
// ============================================================================

var ErrRegistry = errx.NewRegistry("PROFILE")

var (
	CodeNotFound           = ErrRegistry.Register("NOT_FOUND", errx.TypeNotFound, http.StatusNotFound, "Profile not found")
	CodeAlreadyProvisioned = ErrRegistry.Register("ALREADY_PROVISIONED", errx.TypeConflict, http.StatusConflict, "Profile already provisioned")
	CodeEmailTaken         = ErrRegistry.Register("EMAIL_TAKEN", errx.TypeConflict, http.StatusConflict, "Email already registered")
)

func ErrProfileNotFound() *errx.Error     { return ErrRegistry.New(CodeNotFound) }
func ErrAlreadyProvisioned() *errx.Error  { return ErrRegistry.New(CodeAlreadyProvisioned) }
func ErrEmailTaken() *errx.Error          { return ErrRegistry.New(CodeEmailTaken) }
