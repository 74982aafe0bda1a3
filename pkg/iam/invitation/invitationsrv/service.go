package invitationsrv

import (
	"context"
	"time"

	"github.com/clientela/clientela/pkg/errx"
	"github.com/clientela/clientela/pkg/iam/auth"
	"github.com/clientela/clientela/pkg/iam/invitation"
	"github.com/clientela/clientela/pkg/iam/ratelimit"
	"github.com/clientela/clientela/pkg/kernel"
	"github.com/clientela/clientela/pkg/logx"
)

// Outcome es el resultado de validar un código enviado por un cliente
type Outcome string

const (
	OutcomeValid       Outcome = "valid"
	OutcomeInvalid     Outcome = "invalid"
	OutcomeAlreadyUsed Outcome = "already-used"
	OutcomeRateLimited Outcome = "rate-limited"
)

// Result acompaña el outcome con el dueño del código cuando es válido
type Result struct {
	Outcome Outcome           `json:"outcome"`
	OwnerID *kernel.ProfileID `json:"owner_id,omitempty"`
}

// Notifier envía códigos de invitación por correo (despacho asíncrono)
type Notifier interface {
	SendInvitationCode(ctx context.Context, email string, code string, expiresAt *time.Time) error
}

// InvitationService valida códigos bajo rate limiting y gestiona los códigos
// propios de un perfil. La validación es sólo lectura: el consumo ocurre
// únicamente dentro del aprovisionamiento atómico, para que una verificación
// que nunca completa el registro no "gaste" el código.
type InvitationService struct {
	repo     invitation.Repository
	limiter  ratelimit.Limiter
	audit    auth.AuditService
	notifier Notifier
}

// NewInvitationService crea una nueva instancia del servicio de invitaciones
func NewInvitationService(
	repo invitation.Repository,
	limiter ratelimit.Limiter,
	audit auth.AuditService,
	notifier Notifier,
) *InvitationService {
	return &InvitationService{
		repo:     repo,
		limiter:  limiter,
		audit:    audit,
		notifier: notifier,
	}
}

// throttleKey separa los contadores de validación de otros usos del limiter
func throttleKey(fp kernel.Fingerprint) string {
	return "invite:" + fp.Key()
}

// Validate valida un código contra el repositorio. Búsqueda exacta,
// case-sensitive; sin coincidencias parciales. Cada intento queda auditado
// con el fingerprint del cliente.
func (s *InvitationService) Validate(ctx context.Context, submitted string, fp kernel.Fingerprint) (*Result, error) {
	if submitted == "" {
		return nil, errx.Validation("invitation code is required")
	}

	// El umbral se verifica ANTES de tocar el repositorio: un cliente
	// throttled no obtiene información sobre la existencia de códigos.
	allowed, err := s.limiter.Allow(ctx, throttleKey(fp))
	if err != nil {
		// Fallar cerrado: sin limiter no hay validación
		return nil, errx.Wrap(err, "rate limiter unavailable", errx.TypeInternal)
	}
	if !allowed {
		s.audit.LogRateLimited(ctx, fp, "validate-invitation")
		return &Result{Outcome: OutcomeRateLimited}, nil
	}

	code, err := s.repo.FindByCode(ctx, submitted)
	if err != nil {
		if errx.IsType(err, errx.TypeNotFound) {
			s.recordFailure(ctx, fp, OutcomeInvalid)
			return &Result{Outcome: OutcomeInvalid}, nil
		}
		return nil, err
	}

	if code.IsUsed() {
		s.recordFailure(ctx, fp, OutcomeAlreadyUsed)
		return &Result{Outcome: OutcomeAlreadyUsed}, nil
	}

	// Un código expirado se reporta igual que uno inexistente
	if code.IsExpired() {
		s.recordFailure(ctx, fp, OutcomeInvalid)
		return &Result{Outcome: OutcomeInvalid}, nil
	}

	s.audit.LogValidationAttempt(ctx, fp, string(OutcomeValid))
	return &Result{Outcome: OutcomeValid, OwnerID: code.OwnerID}, nil
}

// recordFailure cuenta el intento fallido en la ventana y lo audita
func (s *InvitationService) recordFailure(ctx context.Context, fp kernel.Fingerprint, outcome Outcome) {
	// El registro del intento no debe ocultar el resultado de la validación
	if err := s.limiter.RecordFailure(ctx, throttleKey(fp)); err != nil {
		logx.WithError(err).Warn("failed to record validation failure")
	}
	s.audit.LogValidationAttempt(ctx, fp, string(outcome))
}

// ListByOwner lista los códigos emitidos a nombre de un perfil
func (s *InvitationService) ListByOwner(ctx context.Context, owner kernel.ProfileID) ([]*invitation.Code, error) {
	return s.repo.FindByOwner(ctx, owner)
}

// SendCode envía por correo uno de los códigos disponibles del perfil
func (s *InvitationService) SendCode(ctx context.Context, owner kernel.ProfileID, codeStr string, email string) error {
	if codeStr == "" || email == "" {
		return errx.Validation("code and email are required")
	}

	code, err := s.repo.FindByCode(ctx, codeStr)
	if err != nil {
		return err
	}

	if code.OwnerID == nil || *code.OwnerID != owner {
		return invitation.ErrCodeNotOwned()
	}

	if !code.IsAvailable() {
		return invitation.ErrCodeAlreadyUsed()
	}

	if err := s.notifier.SendInvitationCode(ctx, email, code.Code, code.ExpiresAt); err != nil {
		return errx.Wrap(err, "failed to send invitation code", errx.TypeExternal)
	}

	return nil
}
