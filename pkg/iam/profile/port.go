package profile

import (
	"context"

	"github.com/clientela/clientela/pkg/iam/invitation"
	"github.com/clientela/clientela/pkg/kernel"
)

// Repository define el contrato de lectura/escritura de perfiles
type Repository interface {
	// FindByID busca un perfil por su ID interno
	FindByID(ctx context.Context, id kernel.ProfileID) (*Profile, error)

	// FindByExternalID busca un perfil por la identidad del proveedor externo
	FindByExternalID(ctx context.Context, externalID kernel.ExternalID) (*Profile, error)

	// FindByEmail busca un perfil por email (case-insensitive)
	FindByEmail(ctx context.Context, email string) (*Profile, error)

	// ExistsByEmail verifica si un email ya está registrado
	ExistsByEmail(ctx context.Context, email string) (bool, error)
}

// ProvisioningStore es la unidad atómica de aprovisionamiento: crear el
// perfil, consumir el código (si se suministró) y emitir el lote en cascada
// suceden dentro de UNA transacción — o todo o nada observable.
type ProvisioningStore interface {
	Provision(ctx context.Context, p Profile, consumeCode *string, grants []invitation.Code) error
}
