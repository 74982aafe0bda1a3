package invitationinfra

import (
	"context"
	"database/sql"
	"time"

	"github.com/clientela/clientela/pkg/errx"
	"github.com/clientela/clientela/pkg/iam/invitation"
	"github.com/clientela/clientela/pkg/kernel"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

// PostgresInvitationRepository implementación de PostgreSQL para invitation.Repository
type PostgresInvitationRepository struct {
	db *sqlx.DB
}

// NewPostgresInvitationRepository crea una nueva instancia del repositorio de códigos
func NewPostgresInvitationRepository(db *sqlx.DB) invitation.Repository {
	return &PostgresInvitationRepository{
		db: db,
	}
}

// Create persiste un lote de códigos nuevos
func (r *PostgresInvitationRepository) Create(ctx context.Context, codes []invitation.Code) error {
	if len(codes) == 0 {
		return nil
	}

	query := `
		INSERT INTO invitation_codes (
			id, code, status, owner_id, invitee_id, expires_at, created_at, used_at
		) VALUES (
			:id, :code, :status, :owner_id, :invitee_id, :expires_at, :created_at, :used_at
		)`

	_, err := r.db.NamedExecContext(ctx, query, codes)
	if err != nil {
		// Violación de constraint único en el token
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23505" {
			return invitation.ErrCodeDuplicate()
		}
		return errx.Wrap(err, "failed to create invitation codes", errx.TypeInternal).
			WithDetail("count", len(codes))
	}

	return nil
}

// FindByCode busca un código por su token exacto
func (r *PostgresInvitationRepository) FindByCode(ctx context.Context, code string) (*invitation.Code, error) {
	query := `
		SELECT id, code, status, owner_id, invitee_id, expires_at, created_at, used_at
		FROM invitation_codes
		WHERE code = $1`

	var c invitation.Code
	err := r.db.GetContext(ctx, &c, query, code)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, invitation.ErrCodeNotFound()
		}
		return nil, errx.Wrap(err, "failed to find invitation code", errx.TypeInternal)
	}

	return &c, nil
}

// FindByOwner lista los códigos emitidos a nombre de un perfil
func (r *PostgresInvitationRepository) FindByOwner(ctx context.Context, owner kernel.ProfileID) ([]*invitation.Code, error) {
	query := `
		SELECT id, code, status, owner_id, invitee_id, expires_at, created_at, used_at
		FROM invitation_codes
		WHERE owner_id = $1
		ORDER BY created_at DESC`

	var codes []invitation.Code
	err := r.db.SelectContext(ctx, &codes, query, owner.String())
	if err != nil {
		return nil, errx.Wrap(err, "failed to find invitation codes by owner", errx.TypeInternal).
			WithDetail("owner_id", owner.String())
	}

	result := make([]*invitation.Code, len(codes))
	for i := range codes {
		result[i] = &codes[i]
	}

	return result, nil
}

// FindByInvitee busca el código consumido por un perfil
func (r *PostgresInvitationRepository) FindByInvitee(ctx context.Context, invitee kernel.ProfileID) (*invitation.Code, error) {
	query := `
		SELECT id, code, status, owner_id, invitee_id, expires_at, created_at, used_at
		FROM invitation_codes
		WHERE invitee_id = $1`

	var c invitation.Code
	err := r.db.GetContext(ctx, &c, query, invitee.String())
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, invitation.ErrCodeNotFound().WithDetail("invitee_id", invitee.String())
		}
		return nil, errx.Wrap(err, "failed to find invitation code by invitee", errx.TypeInternal)
	}

	return &c, nil
}

// Consume marca el código como usado sólo si sigue disponible.
// El UPDATE condicional serializa consumos concurrentes: el perdedor
// no afecta filas y recibe ErrCodeConflict.
func (r *PostgresInvitationRepository) Consume(ctx context.Context, code string, invitee kernel.ProfileID, usedAt time.Time) error {
	return ConsumeCode(ctx, r.db, code, invitee, usedAt)
}

// Execer cubre *sqlx.DB y *sqlx.Tx para reutilizar el consumo dentro de la
// transacción de aprovisionamiento.
type Execer interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

// ConsumeCode ejecuta el UPDATE condicional de consumo sobre cualquier Execer.
func ConsumeCode(ctx context.Context, e Execer, code string, invitee kernel.ProfileID, usedAt time.Time) error {
	query := `
		UPDATE invitation_codes SET
			status = $1,
			used_at = $2,
			invitee_id = $3
		WHERE code = $4
		  AND status = $5
		  AND (expires_at IS NULL OR expires_at > NOW())`

	result, err := e.ExecContext(ctx, query,
		invitation.StatusUsed, usedAt, invitee.String(), code, invitation.StatusAvailable)
	if err != nil {
		return errx.Wrap(err, "failed to consume invitation code", errx.TypeInternal)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return errx.Wrap(err, "failed to get rows affected", errx.TypeInternal)
	}

	if rowsAffected == 0 {
		return invitation.ErrCodeConflict()
	}

	return nil
}
