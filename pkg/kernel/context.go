package kernel

// ============================================================================
// Context Types - Tipos para context.Context
// ============================================================================

// AuthContext es el contexto de autenticación que se inyecta en cada request
type AuthContext struct {
	ProfileID *ProfileID `json:"profile_id"`
	Email     string     `json:"email"`
	Name      string     `json:"name"`
}

// IsValid verifica si el AuthContext es válido
func (ac *AuthContext) IsValid() bool {
	return ac.ProfileID != nil && !ac.ProfileID.IsEmpty()
}

// ============================================================================
// Context Keys - Claves para context.Context
// ============================================================================

type ContextKey string

const (
	// AuthContextKey es la clave para almacenar AuthContext en context.Context
	AuthContextKey ContextKey = "auth_context"

	// RequestIDKey es la clave para almacenar el ID de la petición
	RequestIDKey ContextKey = "request_id"
)
