package invitation

import (
	"crypto/rand"
	"math/big"
	"net/http"
	"time"

	"github.com/clientela/clientela/pkg/errx"
	"github.com/clientela/clientela/pkg/kernel"
	"github.com/google/uuid"
)

// Status es el estado de un código de invitación
type Status string

const (
	StatusAvailable Status = "AVAILABLE"
	StatusUsed      Status = "USED"
)

// Code es un código de invitación de un solo uso que controla el registro.
// La transición AVAILABLE → USED es de una sola vía y ocurre a lo sumo una vez.
type Code struct {
	ID     string `db:"id" json:"id"`
	Code   string `db:"code" json:"code"`
	Status Status `db:"status" json:"status"`

	// OwnerID es el perfil que emitió/posee el código.
	// Nulo para códigos sembrados por el sistema.
	OwnerID *kernel.ProfileID `db:"owner_id" json:"owner_id,omitempty"`

	// InviteeID es el perfil que consumió el código.
	// Se asigna junto con UsedAt, exactamente una vez.
	InviteeID *kernel.ProfileID `db:"invitee_id" json:"invitee_id,omitempty"`

	ExpiresAt *time.Time `db:"expires_at" json:"expires_at,omitempty"`
	CreatedAt time.Time  `db:"created_at" json:"created_at"`
	UsedAt    *time.Time `db:"used_at" json:"used_at,omitempty"`
}

// ============================================================================
// Domain Methods
// ============================================================================

// IsExpired verifica si el código expiró (los códigos sin ExpiresAt no expiran)
func (c *Code) IsExpired() bool {
	return c.ExpiresAt != nil && time.Now().After(*c.ExpiresAt)
}

// IsAvailable verifica si el código puede consumirse
func (c *Code) IsAvailable() bool {
	return c.Status == StatusAvailable && !c.IsExpired()
}

// IsUsed verifica si el código ya fue consumido
func (c *Code) IsUsed() bool {
	return c.Status == StatusUsed
}

// Consume marca el código como usado por el perfil invitado.
// Consumir es una mutación de estado, nunca un borrado.
func (c *Code) Consume(invitee kernel.ProfileID) error {
	if c.IsUsed() {
		return ErrCodeAlreadyUsed().WithDetail("code_id", c.ID)
	}
	if c.IsExpired() {
		return ErrCodeExpired().WithDetail("code_id", c.ID)
	}
	now := time.Now()
	c.Status = StatusUsed
	c.UsedAt = &now
	c.InviteeID = &invitee
	return nil
}

// ============================================================================
// Factory
// ============================================================================

// codeAlphabet excluye caracteres ambiguos (0/O, 1/I/l)
const codeAlphabet = "ABCDEFGHJKMNPQRSTUVWXYZ23456789"

// GenerateToken genera un token aleatorio criptográficamente seguro
func GenerateToken(length int) (string, error) {
	b := make([]byte, length)
	max := big.NewInt(int64(len(codeAlphabet)))
	for i := range b {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", errx.Wrap(err, "failed to generate invitation token", errx.TypeInternal)
		}
		b[i] = codeAlphabet[n.Int64()]
	}
	return string(b), nil
}

// New crea un código nuevo en estado AVAILABLE.
// owner nulo produce un código sembrado por el sistema; ttl cero, sin expiración.
func New(owner *kernel.ProfileID, length int, ttl time.Duration) (Code, error) {
	token, err := GenerateToken(length)
	if err != nil {
		return Code{}, err
	}

	now := time.Now()
	code := Code{
		ID:        uuid.NewString(),
		Code:      token,
		Status:    StatusAvailable,
		OwnerID:   owner,
		CreatedAt: now,
	}
	if ttl > 0 {
		expires := now.Add(ttl)
		code.ExpiresAt = &expires
	}
	return code, nil
}

// NewBatch crea el lote de códigos que recibe un perfil recién aprovisionado
// (emisión en cascada).
func NewBatch(owner kernel.ProfileID, count, length int, ttl time.Duration) ([]Code, error) {
	codes := make([]Code, 0, count)
	for i := 0; i < count; i++ {
		c, err := New(&owner, length, ttl)
		if err != nil {
			return nil, err
		}
		codes = append(codes, c)
	}
	return codes, nil
}

// ============================================================================
// Error Registry
// ============================================================================

var ErrRegistry = errx.NewRegistry("INVITATION")

var (
	CodeNotFound     = ErrRegistry.Register("NOT_FOUND", errx.TypeNotFound, http.StatusNotFound, "Invitation code not found")
	CodeAlreadyUsed  = ErrRegistry.Register("ALREADY_USED", errx.TypeBusiness, http.StatusUnprocessableEntity, "Invitation code already used")
	CodeExpired      = ErrRegistry.Register("EXPIRED", errx.TypeBusiness, http.StatusUnprocessableEntity, "Invitation code expired")
	CodeConflict     = ErrRegistry.Register("CODE_CONFLICT", errx.TypeConflict, http.StatusConflict, "This invitation was just used")
	CodeNotOwned     = ErrRegistry.Register("NOT_OWNED", errx.TypeAuthorization, http.StatusForbidden, "Invitation code belongs to another profile")
	CodeDuplicate    = ErrRegistry.Register("DUPLICATE", errx.TypeConflict, http.StatusConflict, "Invitation code collision")
)

func ErrCodeNotFound() *errx.Error    { return ErrRegistry.New(CodeNotFound) }
func ErrCodeAlreadyUsed() *errx.Error { return ErrRegistry.New(CodeAlreadyUsed) }
func ErrCodeExpired() *errx.Error     { return ErrRegistry.New(CodeExpired) }
func ErrCodeConflict() *errx.Error    { return ErrRegistry.New(CodeConflict) }
func ErrCodeNotOwned() *errx.Error    { return ErrRegistry.New(CodeNotOwned) }
func ErrCodeDuplicate() *errx.Error   { return ErrRegistry.New(CodeDuplicate) }
