package profileinfra

import (
	"context"
	"database/sql"

	"github.com/clientela/clientela/pkg/errx"
	"github.com/clientela/clientela/pkg/iam/invitation"
	"github.com/clientela/clientela/pkg/iam/invitation/invitationinfra"
	"github.com/clientela/clientela/pkg/iam/profile"
	"github.com/clientela/clientela/pkg/kernel"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

// PostgresProfileRepository implementación de PostgreSQL para profile.Repository
type PostgresProfileRepository struct {
	db *sqlx.DB
}

// NewPostgresProfileRepository crea una nueva instancia del repositorio de perfiles
func NewPostgresProfileRepository(db *sqlx.DB) profile.Repository {
	return &PostgresProfileRepository{
		db: db,
	}
}

// FindByID busca un perfil por su ID interno
func (r *PostgresProfileRepository) FindByID(ctx context.Context, id kernel.ProfileID) (*profile.Profile, error) {
	query := `
		SELECT id, external_id, email, name, created_at
		FROM profiles
		WHERE id = $1`

	var p profile.Profile
	err := r.db.GetContext(ctx, &p, query, id.String())
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, profile.ErrProfileNotFound().WithDetail("profile_id", id.String())
		}
		return nil, errx.Wrap(err, "failed to find profile by id", errx.TypeInternal)
	}

	return &p, nil
}

// FindByExternalID busca un perfil por la identidad del proveedor externo
func (r *PostgresProfileRepository) FindByExternalID(ctx context.Context, externalID kernel.ExternalID) (*profile.Profile, error) {
	query := `
		SELECT id, external_id, email, name, created_at
		FROM profiles
		WHERE external_id = $1`

	var p profile.Profile
	err := r.db.GetContext(ctx, &p, query, externalID.String())
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, profile.ErrProfileNotFound().WithDetail("external_id", externalID.String())
		}
		return nil, errx.Wrap(err, "failed to find profile by external id", errx.TypeInternal)
	}

	return &p, nil
}

// FindByEmail busca un perfil por email (case-insensitive)
func (r *PostgresProfileRepository) FindByEmail(ctx context.Context, email string) (*profile.Profile, error) {
	query := `
		SELECT id, external_id, email, name, created_at
		FROM profiles
		WHERE email = $1`

	var p profile.Profile
	err := r.db.GetContext(ctx, &p, query, profile.NormalizeEmail(email))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, profile.ErrProfileNotFound()
		}
		return nil, errx.Wrap(err, "failed to find profile by email", errx.TypeInternal)
	}

	return &p, nil
}

// ExistsByEmail verifica si un email ya está registrado
func (r *PostgresProfileRepository) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	query := `SELECT EXISTS(SELECT 1 FROM profiles WHERE email = $1)`

	var exists bool
	err := r.db.GetContext(ctx, &exists, query, profile.NormalizeEmail(email))
	if err != nil {
		return false, errx.Wrap(err, "failed to check email existence", errx.TypeInternal)
	}

	return exists, nil
}

// ============================================================================
// Provisioning Store
// ============================================================================

// PostgresProvisioningStore ejecuta el aprovisionamiento dentro de una
// transacción: perfil + consumo de código + lote en cascada, o nada.
type PostgresProvisioningStore struct {
	db *sqlx.DB
}

// NewPostgresProvisioningStore crea el store transaccional de aprovisionamiento
func NewPostgresProvisioningStore(db *sqlx.DB) profile.ProvisioningStore {
	return &PostgresProvisioningStore{
		db: db,
	}
}

// Provision crea el perfil, consume el código suministrado y emite el lote
// en cascada como unidad atómica.
func (s *PostgresProvisioningStore) Provision(ctx context.Context, p profile.Profile, consumeCode *string, grants []invitation.Code) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return errx.Wrap(err, "failed to begin provisioning transaction", errx.TypeInternal)
	}
	defer tx.Rollback() //nolint:errcheck

	// 1. Crear el perfil
	insertProfile := `
		INSERT INTO profiles (id, external_id, email, name, created_at)
		VALUES (:id, :external_id, :email, :name, :created_at)`

	if _, err := tx.NamedExecContext(ctx, insertProfile, p); err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23505" {
			// Otra entrega del webhook ganó la carrera
			return profile.ErrAlreadyProvisioned().
				WithDetail("external_id", p.ExternalID.String())
		}
		return errx.Wrap(err, "failed to create profile", errx.TypeInternal).
			WithDetail("external_id", p.ExternalID.String())
	}

	// 2. Consumir el código de invitación, si se suministró.
	//    El UPDATE condicional aborta todo si el código dejó de estar
	//    disponible (carrera entre dos registros con el mismo código).
	if consumeCode != nil {
		if err := invitationinfra.ConsumeCode(ctx, tx, *consumeCode, p.ID, p.CreatedAt); err != nil {
			return err
		}
	}

	// 3. Emitir el lote en cascada para el perfil nuevo
	if len(grants) > 0 {
		insertCodes := `
			INSERT INTO invitation_codes (
				id, code, status, owner_id, invitee_id, expires_at, created_at, used_at
			) VALUES (
				:id, :code, :status, :owner_id, :invitee_id, :expires_at, :created_at, :used_at
			)`

		if _, err := tx.NamedExecContext(ctx, insertCodes, grants); err != nil {
			return errx.Wrap(err, "failed to issue invitation grants", errx.TypeInternal).
				WithDetail("profile_id", p.ID.String())
		}
	}

	if err := tx.Commit(); err != nil {
		return errx.Wrap(err, "failed to commit provisioning transaction", errx.TypeInternal)
	}

	return nil
}
