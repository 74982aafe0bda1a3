package invitation

import (
	"context"
	"time"

	"github.com/clientela/clientela/pkg/kernel"
)

// Repository define el contrato para la persistencia de códigos de invitación
type Repository interface {
	// Create persiste un lote de códigos nuevos
	Create(ctx context.Context, codes []Code) error

	// FindByCode busca un código por su token exacto (case-sensitive)
	FindByCode(ctx context.Context, code string) (*Code, error)

	// FindByOwner lista los códigos emitidos a nombre de un perfil
	FindByOwner(ctx context.Context, owner kernel.ProfileID) ([]*Code, error)

	// FindByInvitee busca el código consumido por un perfil
	FindByInvitee(ctx context.Context, invitee kernel.ProfileID) (*Code, error)

	// Consume marca el código como usado sólo si sigue disponible.
	// Dos consumos concurrentes del mismo código se serializan en el store:
	// exactamente uno gana y el otro recibe ErrCodeConflict.
	Consume(ctx context.Context, code string, invitee kernel.ProfileID, usedAt time.Time) error
}
